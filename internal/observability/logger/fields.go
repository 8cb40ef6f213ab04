package logger

import (
	"strings"
	"time"

	"go.uber.org/zap"
)

// =================================================================================
// CAMPOS HTTP
// =================================================================================

func RequestID(v string) zap.Field { return zap.String("request_id", v) }
func Method(v string) zap.Field { return zap.String("method", v) }
func Path(v string) zap.Field { return zap.String("path", v) }
func Status(v int) zap.Field { return zap.Int("status", v) }
func Bytes(v int) zap.Field { return zap.Int("bytes", v) }
func ClientIP(v string) zap.Field { return zap.String("client_ip", v) }
func UserAgent(v string) zap.Field { return zap.String("user_agent", v) }

// DurationMs crea un campo para la duración en milisegundos.
func DurationMs(v int64) zap.Field { return zap.Int64("duration_ms", v) }

// =================================================================================
// CAMPOS DE DOMINIO
// =================================================================================

// Provider es el proveedor externo (google, github, ...).
func Provider(v string) zap.Field { return zap.String("provider", v) }

func UserID(v string) zap.Field { return zap.String("user_id", v) }
func FamilyID(v string) zap.Field { return zap.String("family_id", v) }
func TokenID(v string) zap.Field { return zap.String("token_id", v) }
func KeyID(v string) zap.Field { return zap.String("kid", v) }
func EventType(v string) zap.Field { return zap.String("event_type", v) }

// AttemptID loguea solo un prefijo del id del intento; el id completo es un secreto CSRF.
func AttemptID(v string) zap.Field {
	if len(v) > 6 {
		v = v[:6] + "…"
	}
	return zap.String("attempt", v)
}

// Email loguea el email enmascarado.
func Email(v string) zap.Field { return zap.String("email", MaskEmail(v)) }

// UpstreamStatus es el status HTTP devuelto por el proveedor.
func UpstreamStatus(v int) zap.Field { return zap.Int("upstream_status", v) }

// =================================================================================
// CAMPOS DE CONTEXTO
// =================================================================================

// Layer indica la capa: "controller", "service", "store".
func Layer(v string) zap.Field { return zap.String("layer", v) }
func Component(v string) zap.Field { return zap.String("component", v) }
func Op(v string) zap.Field { return zap.String("op", v) }

// =================================================================================
// GENÉRICOS
// =================================================================================

func Err(err error) zap.Field { return zap.Error(err) }
func String(k, v string) zap.Field { return zap.String(k, v) }
func Int(k string, v int) zap.Field { return zap.Int(k, v) }
func Bool(k string, v bool) zap.Field { return zap.Bool(k, v) }
func Duration(k string, v time.Duration) zap.Field { return zap.Duration(k, v) }
func Any(k string, v any) zap.Field { return zap.Any(k, v) }

// MaskEmail deja la primera letra del local part: "alice@x.com" -> "a***@x.com".
func MaskEmail(email string) string {
	at := strings.IndexByte(email, '@')
	if at <= 0 {
		return "***"
	}
	return email[:1] + "***" + email[at:]
}
