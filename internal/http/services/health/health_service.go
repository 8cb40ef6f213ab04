// Package health contiene el service para health checks.
package health

import (
	"context"
	"fmt"
	"time"

	dto "github.com/dropDatabas3/yesod/internal/http/dto/health"
	"github.com/dropDatabas3/yesod/internal/jwt"
	"github.com/dropDatabas3/yesod/internal/observability/logger"
)

// Check es un chequeo de dependencia. nil = componente deshabilitado.
type Check func(ctx context.Context) error

// Deps contiene las dependencias inyectables para el health service.
type Deps struct {
	Issuer  *jwt.Issuer
	Store   Check // crítico
	Cache   Check // crítico: sin cache no hay state
	Events  Check // no crítico
	Version string
	Timeout time.Duration
}

type Service struct {
	deps Deps
}

func NewService(deps Deps) *Service {
	if deps.Timeout <= 0 {
		deps.Timeout = 2 * time.Second
	}
	return &Service{deps: deps}
}

// Check corre todos los chequeos. Un crítico caído deja el servicio unavailable;
// uno no crítico, degraded.
func (s *Service) Check(ctx context.Context) dto.HealthResponse {
	log := logger.From(ctx).With(logger.Layer("service"), logger.Component("health"), logger.Op("Check"))

	ctx, cancel := context.WithTimeout(ctx, s.deps.Timeout)
	defer cancel()

	resp := dto.HealthResponse{
		Version:    s.deps.Version,
		Components: make(map[string]dto.HealthStatus),
		Timestamp:  time.Now().UTC(),
	}

	critical, degraded := false, false
	run := func(name string, c Check, isCritical bool) {
		if c == nil {
			resp.Components[name] = dto.HealthStatus{Status: "disabled"}
			return
		}
		if err := c(ctx); err != nil {
			resp.Components[name] = dto.HealthStatus{Status: "error", Message: fmt.Sprintf("unavailable: %v", err)}
			log.Error(name+" unavailable", logger.Err(err))
			if isCritical {
				critical = true
			} else {
				degraded = true
			}
			return
		}
		resp.Components[name] = dto.HealthStatus{Status: "ok"}
	}

	run("keystore", s.keystoreCheck(), true)
	run("store", s.deps.Store, true)
	run("cache", s.deps.Cache, true)
	run("events", s.deps.Events, false)

	if s.deps.Issuer != nil {
		resp.ActiveKeyID = s.deps.Issuer.ActiveKID()
	}

	switch {
	case critical:
		resp.Status = "unavailable"
	case degraded:
		resp.Status = "degraded"
	default:
		resp.Status = "ready"
	}
	return resp
}

// keystoreCheck firma y verifica un access token de prueba con la clave activa.
func (s *Service) keystoreCheck() Check {
	if s.deps.Issuer == nil {
		return nil
	}
	return func(context.Context) error {
		raw, _, err := s.deps.Issuer.IssueAccess(jwt.AccessInput{Subject: "healthcheck"})
		if err != nil {
			return fmt.Errorf("sign: %w", err)
		}
		if _, err := s.deps.Issuer.ParseAccess(raw); err != nil {
			return fmt.Errorf("verify: %w", err)
		}
		return nil
	}
}
