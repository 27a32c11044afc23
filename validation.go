package socialauth

import (
	"errors"
	"fmt"
	"net/url"
	"slices"
	"strings"
	"time"
)

// StorageDrivers lists the accepted values of storage.driver.
var StorageDrivers = []string{"memory", "sqlite", "postgres"}

// ConfigMustString returns the string value for the given key.
// It panics if the key doesn't exist or the value is empty.
//
// Example:
//
//	secret := socialauth.ConfigMustString("oauth.stateSecret", "Set SA__OAUTH__STATE_SECRET environment variable")
func ConfigMustString(key, helpMsg string) string {
	if !Config.Exists(key) {
		panic(fmt.Sprintf("required config '%s' not set: %s", key, helpMsg))
	}
	value := Config.String(key)
	if value == "" {
		panic(fmt.Sprintf("required config '%s' is empty: %s", key, helpMsg))
	}
	return value
}

// ValidateIntRange validates that a value is within the given range (inclusive).
func ValidateIntRange(value, minVal, maxVal int) error {
	if value < minVal || value > maxVal {
		return fmt.Errorf("must be between %d and %d, got: %d", minVal, maxVal, value)
	}
	return nil
}

// ValidatePort validates that a port number is valid (1-65535).
func ValidatePort(port int) error {
	return ValidateIntRange(port, 1, 65535)
}

// ValidatePositiveDuration validates that a duration is positive (> 0).
func ValidatePositiveDuration(value time.Duration) error {
	if value <= 0 {
		return fmt.Errorf("must be positive, got: %s", value)
	}
	return nil
}

// ValidateNonNegativeDuration validates that a duration is non-negative (>= 0).
func ValidateNonNegativeDuration(value time.Duration) error {
	if value < 0 {
		return fmt.Errorf("must be non-negative, got: %s", value)
	}
	return nil
}

// ValidateURL validates that a string is an absolute URL.
func ValidateURL(urlStr string) error {
	if urlStr == "" {
		return errors.New("URL cannot be empty")
	}
	parsed, err := url.Parse(urlStr)
	if err != nil {
		return fmt.Errorf("invalid URL: %w", err)
	}
	if parsed.Scheme == "" {
		return errors.New("URL must have a scheme (http:// or https://)")
	}
	if parsed.Host == "" {
		return errors.New("URL must have a host")
	}
	return nil
}

// ValidateNonEmpty validates that a string is not empty.
func ValidateNonEmpty(value string) error {
	if value == "" {
		return errors.New("cannot be empty")
	}
	return nil
}

// ValidationError represents a configuration value that can't be used.
type ValidationError struct {
	Key     string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Key, e.Message)
}

// ValidateConfigValues checks the values of the core keys. Unlike
// ValidateConfig, which only warns about unknown keys, any error returned
// here should stop the server from starting.
func ValidateConfigValues() []ValidationError {
	var errs []ValidationError
	check := func(key string, err error) {
		if err != nil {
			errs = append(errs, ValidationError{Key: key, Message: err.Error()})
		}
	}

	if Config.Exists("server.port") {
		check("server.port", ValidatePort(Config.Int("server.port")))
	}
	if Config.Exists("server.host") {
		check("server.host", ValidateNonEmpty(Config.String("server.host")))
	}
	if Config.Exists("address") {
		check("address", ValidateURL(Config.String("address")))
	}
	if Config.Exists("session.expiration") {
		check("session.expiration", ValidatePositiveDuration(Config.Duration("session.expiration")))
	}
	if Config.Exists("server.security.hstsExpiration") {
		check("server.security.hstsExpiration", ValidateNonNegativeDuration(Config.Duration("server.security.hstsExpiration")))
	}

	if Config.Exists("storage.driver") {
		driver := Config.String("storage.driver")
		if !slices.Contains(StorageDrivers, driver) {
			check("storage.driver", fmt.Errorf("must be one of %s, got: %q", strings.Join(StorageDrivers, ", "), driver))
		}
		if driver == "postgres" {
			check("storage.dsn", ValidateNonEmpty(Config.String("storage.dsn")))
		}
	}
	return errs
}

// FormatValidationErrors formats a slice of validation errors into a readable error message.
func FormatValidationErrors(errs []ValidationError) string {
	if len(errs) == 0 {
		return ""
	}

	var sb strings.Builder
	sb.WriteString("Configuration validation failed:\n")
	for _, err := range errs {
		sb.WriteString(fmt.Sprintf("  - %s\n", err.Error()))
	}
	sb.WriteString("\nFix these errors in socialauth.yaml or environment variables and try again.")
	return sb.String()
}
