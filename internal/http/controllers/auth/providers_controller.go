package auth

import (
	"net/http"

	dto "github.com/dropDatabas3/yesod/internal/http/dto/auth"
	"github.com/dropDatabas3/yesod/internal/http/helpers"
)

type ProvidersController struct {
	flow      LoginFlow
	publicURL string
}

func NewProvidersController(flow LoginFlow, publicURL string) *ProvidersController {
	return &ProvidersController{flow: flow, publicURL: publicURL}
}

// List maneja GET /api/v1/auth/providers
func (c *ProvidersController) List(w http.ResponseWriter, r *http.Request) {
	enabled := c.flow.Enabled()
	resp := dto.ProvidersResponse{Providers: make([]dto.ProviderInfo, 0, len(enabled))}
	for _, ad := range enabled {
		caps := ad.Capabilities()
		resp.Providers = append(resp.Providers, dto.ProviderInfo{
			Name:       ad.Kind().String(),
			LoginURL:   c.publicURL + "/api/v1/auth/" + ad.Kind().String(),
			PKCE:       caps.PKCE.String(),
			NativeOIDC: caps.NativeOIDC,
		})
	}
	helpers.WriteJSON(w, http.StatusOK, resp)
}
