package config

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

// Field errors are reported by koanf key so messages match the YAML and
// APP_ env names.
var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("koanf"), ",")
		if name == "" || name == "-" {
			return f.Name
		}

		return name
	})
	v.RegisterStructValidation(crossFieldRules, Config{})

	return v
}

// crossFieldRules checks constraints that span sections.
func crossFieldRules(sl validator.StructLevel) {
	cfg, ok := sl.Current().Interface().(Config)
	if !ok {
		return
	}

	// A page render waits on the Quotes Service; it has to give up before
	// the server cuts the response off.
	if cfg.Client.Timeout > 0 && cfg.Server.WriteTimeout > 0 && cfg.Client.Timeout >= cfg.Server.WriteTimeout {
		sl.ReportError(cfg.Client.Timeout, "client.timeout", "Timeout", "ltcsfield", "server.write_timeout")
	}

	r := cfg.Client.Retry
	if r.InitialInterval > 0 && r.MaxInterval > 0 && r.InitialInterval > r.MaxInterval {
		sl.ReportError(r.InitialInterval, "client.retry.initial_interval", "InitialInterval", "ltecsfield", "client.retry.max_interval")
	}
}

// Validate reports every invalid field at once. Neither the dashboard nor
// the CLI starts with invalid config.
func (c *Config) Validate() error {
	err := validate.Struct(c)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return err
	}

	lines := make([]string, len(fieldErrs))
	for i, fe := range fieldErrs {
		lines[i] = formatFieldError(fe)
	}

	return fmt.Errorf("config validation failed:\n  %s", strings.Join(lines, "\n  "))
}

// fieldMessages formats a failed tag; the verbs receive the field path and
// the tag parameter.
var fieldMessages = map[string]string{
	"required":    "%s is required%.0s",
	"required_if": "%s is required when %s",
	"min":         "%s must be at least %s",
	"max":         "%s must be at most %s",
	"gt":          "%s must be greater than %s",
	"oneof":       "%s must be one of: %s",
	"url":         "%s must be a valid URL%.0s",
	"ltcsfield":   "%s must be shorter than %s",
	"ltecsfield":  "%s must not exceed %s",
}

func formatFieldError(fe validator.FieldError) string {
	field := formatFieldPath(fe.Namespace())

	if msg, ok := fieldMessages[fe.Tag()]; ok {
		return fmt.Sprintf(msg, field, fe.Param())
	}

	return fmt.Sprintf("%s failed validation: %s", field, fe.Tag())
}

// formatFieldPath turns "Config.services.quotes.base_url" into
// "services.quotes.base_url".
func formatFieldPath(namespace string) string {
	_, path, found := strings.Cut(namespace, ".")
	if !found {
		path = namespace
	}

	return strings.ToLower(path)
}
