package config

import (
	"fmt"

	"github.com/go-playground/validator/v10"
)

// Validate checks the configuration for errors.
//
// Struct tags cover field-level constraints (ranges, oneof sets); the checks
// below cover relationships between fields that tags cannot express.
func Validate(cfg *Config) error {
	validate := validator.New()

	if err := validate.Struct(cfg); err != nil {
		return formatValidationError(err)
	}

	// TLS cert and key must come together
	tls := cfg.Security.TLS
	if (tls.CertFile == "") != (tls.KeyFile == "") {
		return fmt.Errorf("security.tls: cert_file and key_file must both be set or both be empty")
	}
	if tls.CAFile != "" && tls.CertFile == "" {
		return fmt.Errorf("security.tls: ca_file requires cert_file and key_file")
	}

	if cfg.Users.File != "" && len(cfg.Users.Inline) > 0 {
		return fmt.Errorf("users: file and inline are mutually exclusive")
	}
	for _, u := range cfg.Users.Inline {
		if err := u.Validate(); err != nil {
			return fmt.Errorf("users.inline: %w", err)
		}
	}

	if cfg.Security.RunAsGroup != "" && cfg.Security.RunAsUser == "" {
		return fmt.Errorf("security: run_as_group requires run_as_user")
	}

	return nil
}

// formatValidationError converts validator errors into a readable message.
func formatValidationError(err error) error {
	validationErrors, ok := err.(validator.ValidationErrors)
	if !ok {
		return err
	}

	for _, fieldErr := range validationErrors {
		switch fieldErr.Tag() {
		case "required":
			return fmt.Errorf("%s is required", fieldErr.Namespace())
		case "oneof":
			return fmt.Errorf("%s must be one of: %s (got %q)",
				fieldErr.Namespace(), fieldErr.Param(), fieldErr.Value())
		case "min", "max", "gt", "gte", "lte":
			return fmt.Errorf("%s out of range (%s=%s, got %v)",
				fieldErr.Namespace(), fieldErr.Tag(), fieldErr.Param(), fieldErr.Value())
		case "gtefield":
			return fmt.Errorf("%s must not be below %s",
				fieldErr.Namespace(), fieldErr.Param())
		case "ip4_addr":
			return fmt.Errorf("%s must be an IPv4 address (got %q)",
				fieldErr.Namespace(), fieldErr.Value())
		default:
			return fmt.Errorf("%s failed %s validation", fieldErr.Namespace(), fieldErr.Tag())
		}
	}

	return err
}
