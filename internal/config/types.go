// SPDX-License-Identifier: MPL-2.0

package config

import (
	"errors"
	"fmt"
	"log/slog"
	"time"
)

const (
	// LogLevelDebug logs every state transition.
	LogLevelDebug LogLevel = "debug"
	// LogLevelInfo logs downloads, relocations and activations.
	LogLevelInfo LogLevel = "info"
	// LogLevelWarn logs recoverable problems only.
	LogLevelWarn LogLevel = "warn"
	// LogLevelError logs failures only.
	LogLevelError LogLevel = "error"

	// MaxConcurrency bounds the concurrency setting.
	MaxConcurrency = 64
)

var (
	// ErrInvalidLogLevel is returned when a LogLevel value is not recognized.
	ErrInvalidLogLevel = errors.New("invalid log level")
	// ErrInvalidConcurrency is returned when concurrency is outside 1..MaxConcurrency.
	ErrInvalidConcurrency = errors.New("invalid concurrency")
	// ErrInvalidTimeout is returned when the HTTP timeout is negative.
	ErrInvalidTimeout = errors.New("invalid HTTP timeout")
	// ErrInvalidConfig is the sentinel error wrapped by InvalidConfigError.
	ErrInvalidConfig = errors.New("invalid config")
)

type (
	// LogLevel is the minimum level of emitted log records.
	LogLevel string

	// InvalidLogLevelError is returned when a LogLevel value is not recognized.
	// It wraps ErrInvalidLogLevel for errors.Is() compatibility.
	InvalidLogLevelError struct {
		Value LogLevel
	}

	// InvalidConfigError is returned when a Config has invalid fields.
	// It wraps ErrInvalidConfig for errors.Is() compatibility and collects
	// the field-level errors.
	InvalidConfigError struct {
		FieldErrors []error
	}

	// HTTPConfig configures artifact downloads.
	HTTPConfig struct {
		// Timeout bounds each download; zero means none.
		Timeout time.Duration `json:"timeout" mapstructure:"timeout"`
		// UserAgent is sent with every request.
		UserAgent string `json:"user_agent" mapstructure:"user_agent"`
	}

	// Config is the tool configuration.
	Config struct {
		// CacheDir is the root holding one storage directory per application.
		// Empty selects DefaultCacheDir.
		CacheDir string `json:"cache_dir" mapstructure:"cache_dir"`
		// DefaultRepository replaces Maven Central for libraries without a repository.
		DefaultRepository string `json:"default_repository" mapstructure:"default_repository"`
		// LogLevel is the minimum log level.
		LogLevel LogLevel `json:"log_level" mapstructure:"log_level"`
		// Concurrency is how many libraries resolve at once.
		Concurrency int `json:"concurrency" mapstructure:"concurrency"`
		// HTTP configures downloads.
		HTTP HTTPConfig `json:"http" mapstructure:"http"`
	}
)

// DefaultConfig returns the built-in configuration.
func DefaultConfig() *Config {
	return &Config{
		CacheDir:          "", // resolved by ResolvedCacheDir
		DefaultRepository: "",
		LogLevel:          LogLevelInfo,
		Concurrency:       1,
		HTTP: HTTPConfig{
			Timeout:   0,
			UserAgent: "",
		},
	}
}

// Validate returns an error if the level is not recognized.
func (l LogLevel) Validate() error {
	switch l {
	case LogLevelDebug, LogLevelInfo, LogLevelWarn, LogLevelError:
		return nil
	default:
		return &InvalidLogLevelError{Value: l}
	}
}

// SlogLevel converts the level. Unrecognized values map to slog.LevelInfo.
func (l LogLevel) SlogLevel() slog.Level {
	switch l {
	case LogLevelDebug:
		return slog.LevelDebug
	case LogLevelWarn:
		return slog.LevelWarn
	case LogLevelError:
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// String returns the string representation of the LogLevel.
func (l LogLevel) String() string { return string(l) }

// Validate checks every field and returns all problems at once.
func (c *Config) Validate() error {
	var errs []error
	if err := c.LogLevel.Validate(); err != nil {
		errs = append(errs, err)
	}
	if c.Concurrency < 1 || c.Concurrency > MaxConcurrency {
		errs = append(errs, fmt.Errorf("%w: %d (valid: 1-%d)", ErrInvalidConcurrency, c.Concurrency, MaxConcurrency))
	}
	if c.HTTP.Timeout < 0 {
		errs = append(errs, fmt.Errorf("%w: %s", ErrInvalidTimeout, c.HTTP.Timeout))
	}
	if len(errs) > 0 {
		return &InvalidConfigError{FieldErrors: errs}
	}
	return nil
}

// Error implements the error interface.
func (e *InvalidLogLevelError) Error() string {
	return fmt.Sprintf("invalid log level %q (valid: debug, info, warn, error)", e.Value)
}

// Unwrap returns ErrInvalidLogLevel for errors.Is() compatibility.
func (e *InvalidLogLevelError) Unwrap() error { return ErrInvalidLogLevel }

// Error implements the error interface.
func (e *InvalidConfigError) Error() string {
	return fmt.Sprintf("invalid config: %d field error(s): %v", len(e.FieldErrors), errors.Join(e.FieldErrors...))
}

// Unwrap returns ErrInvalidConfig and the field errors.
func (e *InvalidConfigError) Unwrap() []error {
	return append([]error{ErrInvalidConfig}, e.FieldErrors...)
}
