package globals

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

// ErrConfiguration marks every invalid setting detected before the check runs
var ErrConfiguration = errors.New("invalid configuration")

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	// report fields by their yaml key
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name, _, _ := strings.Cut(fld.Tag.Get("yaml"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// ValidationError represents a field-level validation error
type ValidationError struct {
	Field   string
	Message string
}

// ConfigError holds every problem found in the configuration
type ConfigError struct {
	Errors []ValidationError
}

func (c *ConfigError) Error() string {
	if len(c.Errors) == 0 {
		return ErrConfiguration.Error()
	}
	messages := make([]string, len(c.Errors))
	for i, e := range c.Errors {
		messages[i] = e.Message
	}
	return strings.Join(messages, "; ")
}

func (c *ConfigError) Unwrap() error { return ErrConfiguration }

// Validate checks struct tags first, then the rules spanning several fields
func (c *Config) Validate() error {
	cfgErr := &ConfigError{}

	if err := validate.Struct(c); err != nil {
		var fieldErrs validator.ValidationErrors
		if !errors.As(err, &fieldErrs) {
			return fmt.Errorf("%w: %v", ErrConfiguration, err)
		}
		for _, e := range fieldErrs {
			field := fieldPath(e.Namespace())
			cfgErr.Errors = append(cfgErr.Errors, ValidationError{
				Field:   field,
				Message: formatValidationMessage(field, e),
			})
		}
	}

	if err := c.Thresholds.Memory.Validate(); err != nil {
		cfgErr.add("thresholds.memory", "memory "+err.Error())
	}
	if err := c.Thresholds.CPU.Validate(); err != nil {
		cfgErr.add("thresholds.cpu", "cpu "+err.Error())
	}

	switch c.Host.Transport {
	case "ssh":
		if c.SSH.User == "" {
			cfgErr.add("ssh.user", "ssh.user is required")
		}
		if c.SSH.KeyFile == "" && !c.SSH.UseAgent {
			cfgErr.add("ssh.key_file", "ssh.key_file is required unless ssh.use_agent is set")
		}
	case "winrm":
		if c.WinRM.User == "" {
			cfgErr.add("winrm.user", "winrm.user is required")
		}
		if c.WinRM.Password == "" {
			cfgErr.add("winrm.password", "winrm.password is required")
		}
	}

	if len(cfgErr.Errors) > 0 {
		return cfgErr
	}
	return nil
}

func (c *ConfigError) add(field, message string) {
	c.Errors = append(c.Errors, ValidationError{Field: field, Message: message})
}

// fieldPath turns "Config.host.timeout_ms" into "host.timeout_ms"
func fieldPath(namespace string) string {
	parts := strings.Split(namespace, ".")
	if len(parts) > 1 {
		parts = parts[1:]
	}
	for i, p := range parts {
		parts[i] = toSnakeCase(p)
	}
	return strings.Join(parts, ".")
}

// formatValidationMessage creates human-readable error messages
func formatValidationMessage(field string, e validator.FieldError) string {
	switch e.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", field)
	case "gte":
		return fmt.Sprintf("%s must be at least %s", field, e.Param())
	case "lte":
		return fmt.Sprintf("%s must be at most %s", field, e.Param())
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", field, e.Param())
	case "hostname_rfc1123|ip":
		return fmt.Sprintf("%s must be a host name or IP address, got %q", field, e.Value())
	default:
		return fmt.Sprintf("%s failed %s validation", field, e.Tag())
	}
}

// toSnakeCase converts PascalCase/camelCase to snake_case
func toSnakeCase(s string) string {
	var result strings.Builder
	for i, r := range s {
		if r >= 'A' && r <= 'Z' {
			if i > 0 {
				result.WriteByte('_')
			}
			result.WriteByte(byte(r + 'a' - 'A'))
		} else {
			result.WriteRune(r)
		}
	}
	return result.String()
}
