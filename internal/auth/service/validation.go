package service

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	autherror "github.com/giovanistefani/Construction-manager-sub001/internal/errors"
	"github.com/go-playground/validator/v10"
)

func newValidator() *validator.Validate {
	v := validator.New()
	// Report fields by their JSON name so reasons match the request body.
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// validationReasons turns validator output into one message per field.
func validationReasons(err error) []string {
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return []string{err.Error()}
	}

	reasons := make([]string, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		switch fe.Tag() {
		case "required":
			reasons = append(reasons, fmt.Sprintf("%s é obrigatório", fe.Field()))
		case "email":
			reasons = append(reasons, fmt.Sprintf("%s deve ser um e-mail válido", fe.Field()))
		case "min":
			reasons = append(reasons, fmt.Sprintf("%s deve ter pelo menos %s caracteres", fe.Field(), fe.Param()))
		case "max":
			reasons = append(reasons, fmt.Sprintf("%s deve ter no máximo %s caracteres", fe.Field(), fe.Param()))
		case "uuid":
			reasons = append(reasons, fmt.Sprintf("%s deve ser um identificador válido", fe.Field()))
		case "numeric":
			reasons = append(reasons, fmt.Sprintf("%s deve conter apenas números", fe.Field()))
		default:
			reasons = append(reasons, fmt.Sprintf("%s é inválido", fe.Field()))
		}
	}
	return reasons
}

func (s *AuthService) validateInput(input any) error {
	if err := s.validate.Struct(input); err != nil {
		return autherror.NewValidationError(validationReasons(err)...)
	}
	return nil
}
