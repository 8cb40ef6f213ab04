// Package errors define los errores de la capa HTTP y su serialización JSON.
// Los errores de dominio se traducen acá; nunca se exponen causas internas.
package errors

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"net/http"

	"github.com/dropDatabas3/yesod/internal/account"
	"github.com/dropDatabas3/yesod/internal/jwt"
	"github.com/dropDatabas3/yesod/internal/observability/logger"
	"github.com/dropDatabas3/yesod/internal/providers"
	"github.com/dropDatabas3/yesod/internal/token"
)

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Detail  string `json:"detail,omitempty"`
}

// WriteError escribe la respuesta JSON para err. Errores que no son *AppError
// se traducen con FromError.
func WriteError(w http.ResponseWriter, err error) {
	appErr := FromError(err)

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	if appErr.HTTPStatus == http.StatusUnauthorized && w.Header().Get("WWW-Authenticate") == "" {
		w.Header().Set("WWW-Authenticate", `Bearer error="invalid_token"`)
	}
	w.WriteHeader(appErr.HTTPStatus)

	_ = json.NewEncoder(w).Encode(errorResponse{
		Code:    appErr.Code,
		Message: appErr.Message,
		Detail:  appErr.Detail,
	})
}

// Respond traduce err y lo escribe. Para 5xx la causa queda en el log del
// request; el cliente solo ve el código.
func Respond(ctx context.Context, w http.ResponseWriter, err error) {
	appErr := FromError(err)
	if appErr.HTTPStatus >= http.StatusInternalServerError {
		logger.From(ctx).Error("request error",
			logger.Layer("http"), logger.String("code", appErr.Code), logger.Err(appErr.Err))
	}
	WriteError(w, appErr)
}

// FromError traduce errores de dominio a AppError. Lo desconocido es 500 con
// la causa preservada para logs.
func FromError(err error) *AppError {
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr
	}

	switch {
	case stderrors.Is(err, token.ErrReuseDetected):
		return ErrRefreshReused.WithCause(err)
	case stderrors.Is(err, token.ErrRevoked):
		return ErrRefreshRevoked.WithCause(err)
	case stderrors.Is(err, token.ErrExpired):
		return ErrRefreshExpired.WithCause(err)
	case stderrors.Is(err, token.ErrInvalid):
		return ErrRefreshInvalid.WithCause(err)
	case stderrors.Is(err, token.ErrSessionNotFound):
		return ErrSessionNotFound.WithCause(err)
	case stderrors.Is(err, jwt.ErrExpired):
		return ErrTokenExpired.WithCause(err)
	case stderrors.Is(err, jwt.ErrInvalidToken), stderrors.Is(err, jwt.ErrWrongType):
		return ErrTokenInvalid.WithCause(err)
	case stderrors.Is(err, account.ErrLastMethod):
		return ErrLastMethod.WithCause(err)
	case stderrors.Is(err, account.ErrNotLinked):
		return ErrNotLinked.WithCause(err)
	case stderrors.Is(err, account.ErrAlreadyLinked):
		return ErrAlreadyLinked.WithCause(err)
	case stderrors.Is(err, account.ErrNoProviderProfile):
		return ErrNoProviderProfile.WithCause(err)
	case stderrors.Is(err, account.ErrUserNotFound):
		return ErrUserNotFound.WithCause(err)
	case stderrors.Is(err, providers.ErrUnknownProvider):
		return ErrProviderUnknown.WithCause(err)
	}
	return ErrInternalServerError.WithCause(err)
}
