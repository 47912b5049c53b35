package config

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/aleister1102/secwatch/internal/common"
	"github.com/go-playground/validator/v10"
)

func newConfigValidator() *validator.Validate {
	validate := validator.New()

	_ = validate.RegisterValidation("loglevel", func(fl validator.FieldLevel) bool {
		level := strings.ToLower(fl.Field().String())
		switch level {
		case "", "trace", "debug", "info", "warn", "error", "fatal", "panic":
			return true
		default:
			return false
		}
	})

	_ = validate.RegisterValidation("logformat", func(fl validator.FieldLevel) bool {
		format := strings.ToLower(fl.Field().String())
		switch format {
		case "", "console", "text", "json":
			return true
		default:
			return false
		}
	})

	// ruleids accepts a list of rule identifiers: non-empty, no whitespace.
	_ = validate.RegisterValidation("ruleids", func(fl validator.FieldLevel) bool {
		if fl.Field().Kind() != reflect.Slice {
			return false
		}
		ids, ok := fl.Field().Interface().([]string)
		if !ok {
			return false
		}
		for _, id := range ids {
			if strings.TrimSpace(id) == "" || strings.ContainsAny(id, " \t\r\n") {
				return false
			}
		}
		return true
	})

	return validate
}

// ValidateConfig performs validation on the GlobalConfig structure. Every
// problem found is reported as a common.ConfigurationError.
func ValidateConfig(cfg *GlobalConfig) error {
	if cfg == nil {
		return common.NewConfigurationError("", "", "config is nil")
	}

	var collector common.ErrorCollector
	if err := newConfigValidator().Struct(cfg); err != nil {
		var errs validator.ValidationErrors
		if !errors.As(err, &errs) {
			return fmt.Errorf("configuration validation error: %w", err)
		}
		for _, e := range errs {
			collector.Add(common.NewConfigurationError(sectionOf(e.StructNamespace()), e.Field(), describe(e)))
		}
	}

	if cfg.TransportConfig.Enabled && cfg.TransportConfig.ListenAddress == "" {
		collector.Add(common.NewConfigurationError("TransportConfig", "ListenAddress", "required when transport is enabled"))
	}

	return collector.Error()
}

// sectionOf extracts "WatchConfig" from "GlobalConfig.WatchConfig.DebounceMs".
func sectionOf(namespace string) string {
	parts := strings.Split(namespace, ".")
	if len(parts) < 3 {
		return ""
	}
	return parts[1]
}

func describe(e validator.FieldError) string {
	msg := fmt.Sprintf("rule '%s'", e.Tag())
	if e.Param() != "" {
		msg += fmt.Sprintf(" (expected: %s)", e.Param())
	}
	if e.Value() != nil && e.Value() != "" {
		msg += fmt.Sprintf(", actual: '%v'", e.Value())
	}
	return msg
}
