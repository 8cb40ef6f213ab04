// Package health contiene el controller para health checks.
package health

import (
	"context"
	"net/http"

	dto "github.com/dropDatabas3/yesod/internal/http/dto/health"
	"github.com/dropDatabas3/yesod/internal/http/helpers"
	"github.com/dropDatabas3/yesod/internal/observability/logger"
)

// Checker es lo que el controller necesita del service.
type Checker interface {
	Check(ctx context.Context) dto.HealthResponse
}

type HealthController struct {
	service Checker
}

func NewHealthController(service Checker) *HealthController {
	return &HealthController{service: service}
}

// Healthz maneja GET /healthz: liveness, no toca dependencias.
func (c *HealthController) Healthz(w http.ResponseWriter, r *http.Request) {
	helpers.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// Readyz maneja GET /readyz
func (c *HealthController) Readyz(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := logger.From(ctx).With(logger.Layer("controller"), logger.Op("HealthController.Readyz"))

	resp := c.service.Check(ctx)
	if resp.ActiveKeyID != "" {
		w.Header().Set("X-JWKS-KID", resp.ActiveKeyID)
	}

	status := http.StatusOK
	if resp.Status == "unavailable" {
		status = http.StatusServiceUnavailable
	}

	log.Debug("health check completed",
		logger.String("status", resp.Status),
		logger.Int("components_count", len(resp.Components)),
	)
	helpers.WriteJSON(w, status, resp)
}
