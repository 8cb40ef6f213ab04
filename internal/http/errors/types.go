package errors

import (
	"fmt"
	"net/http"
)

// AppError es el error estándar de la capa HTTP.
type AppError struct {
	Code       string `json:"code"`
	Message    string `json:"message"`
	Detail     string `json:"detail,omitempty"`
	HTTPStatus int    `json:"-"`
	Err        error  `json:"-"` // causa original, solo para logs
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// WithDetail devuelve una COPIA con el detalle; las variables base no se mutan.
func (e *AppError) WithDetail(detail string) *AppError {
	newErr := *e
	newErr.Detail = detail
	return &newErr
}

// WithCause devuelve una COPIA con la causa original.
func (e *AppError) WithCause(err error) *AppError {
	newErr := *e
	newErr.Err = err
	return &newErr
}

// =================================================================================
// ERRORES PREDEFINIDOS
// =================================================================================

// 400
var (
	ErrBadRequest = &AppError{
		Code:       "BAD_REQUEST",
		Message:    "La solicitud contiene sintaxis inválida o parámetros faltantes.",
		HTTPStatus: http.StatusBadRequest,
	}

	ErrInvalidJSON = &AppError{
		Code:       "INVALID_JSON",
		Message:    "El cuerpo de la solicitud no es un JSON válido.",
		HTTPStatus: http.StatusBadRequest,
	}

	ErrMissingFields = &AppError{
		Code:       "MISSING_FIELDS",
		Message:    "Faltan campos requeridos en la solicitud.",
		HTTPStatus: http.StatusBadRequest,
	}

	ErrUnsupportedMediaType = &AppError{
		Code:       "UNSUPPORTED_MEDIA_TYPE",
		Message:    "Content-Type debe ser application/json.",
		HTTPStatus: http.StatusUnsupportedMediaType,
	}

	// ErrNoProviderProfile: no hay nombre ni avatar guardados del proveedor.
	ErrNoProviderProfile = &AppError{
		Code:       "NO_PROVIDER_PROFILE",
		Message:    "No hay datos de perfil guardados para ese proveedor. Iniciá sesión con él nuevamente.",
		HTTPStatus: http.StatusBadRequest,
	}

	ErrBodyTooLarge = &AppError{
		Code:       "BODY_TOO_LARGE",
		Message:    "El cuerpo de la solicitud excede el tamaño máximo permitido.",
		HTTPStatus: http.StatusRequestEntityTooLarge,
	}
)

// 401
var (
	ErrTokenExpired = &AppError{
		Code:       "TOKEN_EXPIRED",
		Message:    "El token expiró.",
		HTTPStatus: http.StatusUnauthorized,
	}

	ErrTokenInvalid = &AppError{
		Code:       "TOKEN_INVALID",
		Message:    "El token es inválido.",
		HTTPStatus: http.StatusUnauthorized,
	}

	ErrTokenMissing = &AppError{
		Code:       "TOKEN_MISSING",
		Message:    "Falta el token de acceso.",
		HTTPStatus: http.StatusUnauthorized,
	}

	// ErrRefreshRevoked: la sesión fue cerrada; hay que volver a loguearse.
	ErrRefreshRevoked = &AppError{
		Code:       "REFRESH_REVOKED",
		Message:    "La sesión fue revocada. Iniciá sesión nuevamente.",
		HTTPStatus: http.StatusUnauthorized,
	}

	// ErrRefreshReused: se presentó un refresh token ya rotado; la familia quedó revocada.
	ErrRefreshReused = &AppError{
		Code:       "REFRESH_REUSED",
		Message:    "Se detectó reutilización del refresh token. Iniciá sesión nuevamente.",
		HTTPStatus: http.StatusUnauthorized,
	}

	ErrRefreshExpired = &AppError{
		Code:       "REFRESH_EXPIRED",
		Message:    "El refresh token expiró.",
		HTTPStatus: http.StatusUnauthorized,
	}

	ErrRefreshInvalid = &AppError{
		Code:       "REFRESH_INVALID",
		Message:    "El refresh token es inválido.",
		HTTPStatus: http.StatusUnauthorized,
	}
)

// 404
var (
	ErrUserNotFound = &AppError{
		Code:       "USER_NOT_FOUND",
		Message:    "El usuario no existe.",
		HTTPStatus: http.StatusNotFound,
	}

	ErrProviderUnknown = &AppError{
		Code:       "PROVIDER_UNKNOWN",
		Message:    "El proveedor no existe o no está habilitado.",
		HTTPStatus: http.StatusNotFound,
	}

	ErrNotLinked = &AppError{
		Code:       "NOT_LINKED",
		Message:    "El proveedor no está vinculado a la cuenta.",
		HTTPStatus: http.StatusNotFound,
	}

	ErrSessionNotFound = &AppError{
		Code:       "SESSION_NOT_FOUND",
		Message:    "La sesión no existe.",
		HTTPStatus: http.StatusNotFound,
	}

	ErrRouteNotFound = &AppError{
		Code:       "ROUTE_NOT_FOUND",
		Message:    "La ruta solicitada no existe.",
		HTTPStatus: http.StatusNotFound,
	}
)

// 405
var (
	ErrMethodNotAllowed = &AppError{
		Code:       "METHOD_NOT_ALLOWED",
		Message:    "El método HTTP no está permitido para este recurso.",
		HTTPStatus: http.StatusMethodNotAllowed,
	}
)

// 409
var (
	// ErrLastMethod: desvincular dejaría al usuario sin forma de autenticarse.
	ErrLastMethod = &AppError{
		Code:       "LAST_METHOD",
		Message:    "No se puede desvincular el último método de autenticación.",
		HTTPStatus: http.StatusConflict,
	}

	ErrAlreadyLinked = &AppError{
		Code:       "ALREADY_LINKED",
		Message:    "La identidad ya está vinculada a otra cuenta.",
		HTTPStatus: http.StatusConflict,
	}
)

// 429
var (
	ErrRateLimitExceeded = &AppError{
		Code:       "RATE_LIMIT_EXCEEDED",
		Message:    "Demasiadas solicitudes. Intentá más tarde.",
		HTTPStatus: http.StatusTooManyRequests,
	}
)

// 5xx
var (
	ErrInternalServerError = &AppError{
		Code:       "INTERNAL_SERVER_ERROR",
		Message:    "Ocurrió un error inesperado.",
		HTTPStatus: http.StatusInternalServerError,
	}
)
