// Package envconfig reads service configuration from environment variables.
//
// Services keep their own Config struct and LoadConfig function; this package
// only holds the lookups they share. Required keys fail loudly with the key
// name, optional keys fall back to a default, and a malformed optional value
// is an error rather than a silent default.
package envconfig

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// MissingKeyError is returned when a required variable is unset or empty.
type MissingKeyError struct {
	Key string
}

func (e *MissingKeyError) Error() string {
	return fmt.Sprintf("missing required environment variable: %s", e.Key)
}

// LoadDotEnv loads KEY=VALUE files into the process environment.
// Variables that are already set are not overwritten. A file that does not
// exist is skipped; with no paths it looks for ".env" in the working directory.
func LoadDotEnv(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	for _, p := range paths {
		if err := godotenv.Load(p); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return fmt.Errorf("load %s: %w", p, err)
		}
	}
	return nil
}

// Required returns the values of all keys. The first key that is unset or
// empty yields a *MissingKeyError.
func Required(keys ...string) (map[string]string, error) {
	values := make(map[string]string, len(keys))
	for _, key := range keys {
		value := os.Getenv(key)
		if value == "" {
			return nil, &MissingKeyError{Key: key}
		}
		values[key] = value
	}
	return values, nil
}

// String returns the value of key, or fallback when the key is not set.
func String(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

// Int parses key as a base-10 integer.
func Int(key string, fallback int) (int, error) {
	value, exists := os.LookupEnv(key)
	if !exists || value == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("%s: invalid integer %q: %w", key, value, err)
	}
	return n, nil
}

// Bool parses key with strconv.ParseBool ("1", "true", "false", ...).
func Bool(key string, fallback bool) (bool, error) {
	value, exists := os.LookupEnv(key)
	if !exists || value == "" {
		return fallback, nil
	}
	b, err := strconv.ParseBool(value)
	if err != nil {
		return false, fmt.Errorf("%s: invalid boolean %q: %w", key, value, err)
	}
	return b, nil
}

// Duration parses key with time.ParseDuration ("30s", "1m").
// Zero and negative durations are rejected.
func Duration(key string, fallback time.Duration) (time.Duration, error) {
	value, exists := os.LookupEnv(key)
	if !exists || value == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("%s: invalid duration %q: %w", key, value, err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("%s: duration must be positive, got %s", key, d)
	}
	return d, nil
}
