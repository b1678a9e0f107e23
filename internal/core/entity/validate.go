package entity

import (
	"errors"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"paranoid/internal/core/apperror"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return f.Name
		}
		return name
	})
	return v
}

// ValidateStruct checks `validate` tags on v and converts the first failure into a
// validation AppError naming the field and the rule.
func ValidateStruct(v any) error {
	err := validate.Struct(v)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		fe := verrs[0]
		return apperror.NewValidation(fe.Field()+" failed rule "+fe.Tag()).
			WithDetail("field", fe.Field()).
			WithDetail("rule", fe.Tag())
	}
	return apperror.NewValidation("invalid value").WithCause(err)
}
