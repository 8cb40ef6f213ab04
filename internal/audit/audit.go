// Package audit registra intentos de login y cambios de vínculos como líneas
// estructuradas en el logger "audit". La persistencia queda fuera del broker:
// el pipeline de logs es el sink.
package audit

import (
	"context"

	"go.uber.org/zap"

	"github.com/dropDatabas3/yesod/internal/observability/logger"
)

const (
	EventLogin          = "login"
	EventLink           = "link"
	EventLogout         = "logout"
	EventProfileUpdated = "profile_updated"
	EventProfileSynced  = "profile_synced"
	EventAccountDeleted = "account_deleted"
)

// Entry es una línea de auditoría. UserID vacío = el intento falló antes de resolver usuario.
type Entry struct {
	Event     string
	Provider  string
	UserID    string
	Success   bool
	Reason    string
	IP        string
	UserAgent string
}

// Log escribe la entrada con el logger del request (hereda request_id).
func Log(ctx context.Context, e Entry) {
	fields := []zap.Field{
		zap.String("event", e.Event),
		zap.Bool("success", e.Success),
	}
	if e.Provider != "" {
		fields = append(fields, logger.Provider(e.Provider))
	}
	if e.UserID != "" {
		fields = append(fields, logger.UserID(e.UserID))
	}
	if e.Reason != "" {
		fields = append(fields, zap.String("reason", e.Reason))
	}
	if e.IP != "" {
		fields = append(fields, logger.ClientIP(e.IP))
	}
	if e.UserAgent != "" {
		fields = append(fields, logger.UserAgent(e.UserAgent))
	}
	logger.From(ctx).Named("audit").Info("audit", fields...)
}
