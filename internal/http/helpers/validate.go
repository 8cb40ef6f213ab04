package helpers

import (
	stderrors "errors"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/dropDatabas3/yesod/internal/http/errors"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate aplica los tags `validate` del DTO. Campos faltantes van a
// MISSING_FIELDS; el resto a BAD_REQUEST. El detalle lista los campos.
func Validate(v any) error {
	err := validate.Struct(v)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !stderrors.As(err, &verrs) {
		// v no es un struct: nada que validar
		var inv *validator.InvalidValidationError
		if stderrors.As(err, &inv) {
			return nil
		}
		return errors.ErrBadRequest.WithCause(err)
	}

	missing := make([]string, 0, len(verrs))
	invalid := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		if fe.Tag() == "required" {
			missing = append(missing, fe.Field())
			continue
		}
		invalid = append(invalid, fe.Field())
	}
	if len(missing) > 0 {
		return errors.ErrMissingFields.WithDetail(strings.Join(missing, ","))
	}
	return errors.ErrBadRequest.WithDetail("invalid: " + strings.Join(invalid, ","))
}
