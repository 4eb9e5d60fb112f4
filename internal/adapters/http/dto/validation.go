package dto

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

var (
	// ErrBinding means the body could not be decoded at all.
	ErrBinding = errors.New("binding failed")

	// ErrValidation means the body decoded but a field was rejected.
	ErrValidation = errors.New("validation failed")
)

var (
	validate     *validator.Validate
	validateOnce sync.Once
)

// Validator returns the shared validator. Fields are named by their json
// tag, then their form tag, so messages use the names the client sent.
func Validator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New()
		validate.RegisterTagNameFunc(wireName)
	})

	return validate
}

func wireName(f reflect.StructField) string {
	for _, key := range []string{"json", "form"} {
		name, _, _ := strings.Cut(f.Tag.Get(key), ",")

		switch name {
		case "":
			continue
		case "-":
			return ""
		default:
			return name
		}
	}

	return f.Name
}

// Validate checks v's validate tags.
func Validate(v any) error {
	if err := Validator().Struct(v); err != nil {
		return fmt.Errorf("%w: %w", ErrValidation, err)
	}

	return nil
}

// Bind decodes the request with b and validates the result.
func Bind(c *gin.Context, b binding.Binding, v any) error {
	if err := c.ShouldBindWith(v, b); err != nil {
		return fmt.Errorf("%w: %w", ErrBinding, err)
	}

	return Validate(v)
}

// BindAndValidate binds a JSON body.
func BindAndValidate(c *gin.Context, v any) error {
	return Bind(c, binding.JSON, v)
}

// BindFormAndValidate binds an url-encoded or multipart form.
func BindFormAndValidate(c *gin.Context, v any) error {
	return Bind(c, binding.Form, v)
}

// ValidationErrors returns one message per rejected field, or an empty map
// when err carries no field errors.
func ValidationErrors(err error) map[string]string {
	out := make(map[string]string)

	var fieldErrs validator.ValidationErrors
	if errors.As(err, &fieldErrs) {
		for _, fe := range fieldErrs {
			out[fe.Field()] = validationMessage(fe)
		}
	}

	return out
}

// validationMessage is the text shown under a rejected form field.
func validationMessage(fe validator.FieldError) string {
	param := fe.Param()

	unit := ""
	if fe.Kind() == reflect.String {
		unit = " characters"
	}

	switch fe.Tag() {
	case "required":
		return "this field is required"
	case "min":
		return "must be at least " + param + unit
	case "max":
		return "must be at most " + param + unit
	case "oneof":
		return "must be one of: " + param
	case "url":
		return "must be a valid URL"
	default:
		return "failed validation: " + fe.Tag()
	}
}
