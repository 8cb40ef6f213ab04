package providers

import (
	"fmt"
	"net/http"

	"github.com/dropDatabas3/yesod/internal/config"
)

// Registry contiene los adapters habilitados. Se arma una vez al arrancar y
// no se modifica después, por eso no lleva lock.
type Registry struct {
	adapters map[Kind]Adapter
}

// NewRegistry construye un adapter por cada proveedor con client_id configurado.
// Todos comparten un http.Client con el timeout configurado.
func NewRegistry(cfg config.Providers) *Registry {
	client := &http.Client{Timeout: cfg.Timeout}
	r := &Registry{adapters: make(map[Kind]Adapter)}
	for _, k := range Kinds {
		pc := providerConfig(cfg, k)
		if !pc.Enabled() {
			continue
		}
		r.adapters[k] = New(k, pc, client)
	}
	return r
}

// NewRegistryFrom arma un registry con adapters ya construidos.
func NewRegistryFrom(adapters ...Adapter) *Registry {
	r := &Registry{adapters: make(map[Kind]Adapter, len(adapters))}
	for _, a := range adapters {
		r.adapters[a.Kind()] = a
	}
	return r
}

// New construye el adapter de un Kind. Kind desconocido es un error de programación.
func New(k Kind, pc config.ProviderConfig, client *http.Client) Adapter {
	switch k {
	case Google:
		return newGoogle(pc, client)
	case GitHub:
		return newGitHub(pc, client)
	case Discord:
		return newDiscord(pc, client)
	case X:
		return newX(pc, client)
	case LinkedIn:
		return newLinkedIn(pc, client)
	case Facebook:
		return newFacebook(pc, client)
	case Slack:
		return newSlack(pc, client)
	case Twitch:
		return newTwitch(pc, client)
	}
	panic(fmt.Sprintf("providers: unsupported kind %q", k))
}

// Get devuelve el adapter o ErrUnknownProvider.
func (r *Registry) Get(k Kind) (Adapter, error) {
	if a, ok := r.adapters[k]; ok {
		return a, nil
	}
	return nil, fmt.Errorf("%w: %s", ErrUnknownProvider, k)
}

// Lookup resuelve por nombre (path param).
func (r *Registry) Lookup(name string) (Adapter, error) {
	k, ok := ParseKind(name)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownProvider, name)
	}
	return r.Get(k)
}

// Enabled lista los proveedores habilitados en orden estable.
func (r *Registry) Enabled() []Kind {
	out := make([]Kind, 0, len(r.adapters))
	for _, k := range Kinds {
		if _, ok := r.adapters[k]; ok {
			out = append(out, k)
		}
	}
	return out
}

func providerConfig(cfg config.Providers, k Kind) config.ProviderConfig {
	switch k {
	case Google:
		return cfg.Google
	case GitHub:
		return cfg.GitHub
	case Discord:
		return cfg.Discord
	case X:
		return cfg.X
	case LinkedIn:
		return cfg.LinkedIn
	case Facebook:
		return cfg.Facebook
	case Slack:
		return cfg.Slack
	case Twitch:
		return cfg.Twitch
	}
	return config.ProviderConfig{}
}
