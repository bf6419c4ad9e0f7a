package handlers

import (
	"errors"
	"fmt"
	"net/url"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/recipeapp/apiserver/types"
)

// requestValidator wraps go-playground/validator and reports failures keyed
// by JSON field name.
type requestValidator struct {
	v *validator.Validate
}

var validate = newValidator()

func newValidator() *requestValidator {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	_ = v.RegisterValidation("price", func(fl validator.FieldLevel) bool {
		p := fl.Field().Int()
		return p >= 0 && p <= int64(types.MaxPrice)
	})
	_ = v.RegisterValidation("link", func(fl validator.FieldLevel) bool {
		return validLink(fl.Field().String())
	})
	return &requestValidator{v: v}
}

// validLink accepts an empty string or an absolute http(s) or ftp(s) URL.
func validLink(s string) bool {
	if s == "" {
		return true
	}
	u, err := url.ParseRequestURI(s)
	if err != nil || u.Host == "" {
		return false
	}
	switch strings.ToLower(u.Scheme) {
	case "http", "https", "ftp", "ftps":
		return true
	default:
		return false
	}
}

// Struct validates s and returns nil or a map of field messages.
func (rv *requestValidator) Struct(s any) map[string]string {
	err := rv.v.Struct(s)
	if err == nil {
		return nil
	}
	var ve validator.ValidationErrors
	if !errors.As(err, &ve) {
		return map[string]string{"non_field_errors": err.Error()}
	}
	fields := make(map[string]string, len(ve))
	for _, fe := range ve {
		if _, ok := fields[fe.Field()]; !ok {
			fields[fe.Field()] = fieldError(fe)
		}
	}
	return fields
}

// fieldError converts a single FieldError into a human-readable message.
func fieldError(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "this field is required"
	case "email":
		return "enter a valid email address"
	case "url", "link":
		return "enter a valid URL"
	case "min":
		if fe.Param() == "1" {
			return "this field may not be blank"
		}
		return fmt.Sprintf("ensure this field has at least %s characters", fe.Param())
	case "max":
		return fmt.Sprintf("ensure this field has no more than %s characters", fe.Param())
	case "gte":
		return fmt.Sprintf("ensure this value is greater than or equal to %s", fe.Param())
	case "lte":
		return fmt.Sprintf("ensure this value is less than or equal to %s", fe.Param())
	case "price":
		return fmt.Sprintf("ensure this value is between 0.00 and %s", types.MaxPrice)
	default:
		return fmt.Sprintf("failed validation (%s)", fe.Tag())
	}
}
