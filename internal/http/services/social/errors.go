package social

import "fmt"

// Códigos opacos que viajan en ?error= del redirect al frontend.
const (
	CodeStateInvalid  = "state_invalid"
	CodeProviderError = "provider_error"
	CodeIdentityError = "identity_error"
	CodeAlreadyLinked = "already_linked"
	CodeAccessDenied  = "access_denied"
	CodeServerError   = "server_error"
)

// FlowError es la falla de un callback. Code es público; Err solo va a logs.
type FlowError struct {
	Code string
	Err  error
}

func flowErr(code string, err error) *FlowError {
	return &FlowError{Code: code, Err: err}
}

func (e *FlowError) Error() string {
	return fmt.Sprintf("social: %s: %v", e.Code, e.Err)
}

func (e *FlowError) Unwrap() error { return e.Err }
