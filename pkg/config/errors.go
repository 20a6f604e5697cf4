// Package config reads INI-style configuration files: [section]
// headers, "key: value" options, # comments and [include] directives,
// with typed getters that track which options were used.
package config

import (
	"errors"
	"fmt"

	perrors "penbot/pkg/errors"
)

// ConfigError represents a configuration error with context.
type ConfigError struct {
	Section string
	Option  string
	Message string
	Cause   error
}

func (e *ConfigError) Error() string {
	if e.Option != "" {
		return fmt.Sprintf("option '%s' in section '%s': %s", e.Option, e.Section, e.Message)
	}
	if e.Section != "" {
		return fmt.Sprintf("section '%s': %s", e.Section, e.Message)
	}
	return e.Message
}

func (e *ConfigError) Unwrap() error {
	return e.Cause
}

// HostError converts e to the shared error type with a config code.
func (e *ConfigError) HostError() *perrors.HostError {
	code := perrors.ErrConfigValidation
	if e.Option == "" && e.Section != "" {
		code = perrors.ErrConfigSection
	}
	return perrors.Wrap(e, code, "invalid configuration").SetSection(e.Section).SetOption(e.Option)
}

// AsConfigError extracts a ConfigError from err's chain.
func AsConfigError(err error) (*ConfigError, bool) {
	var ce *ConfigError
	ok := errors.As(err, &ce)
	return ce, ok
}

func NewConfigError(section, option, message string) *ConfigError {
	return &ConfigError{Section: section, Option: option, Message: message}
}

// WrapError wraps an existing error with config context.
func WrapError(section, option string, err error) *ConfigError {
	return &ConfigError{Section: section, Option: option, Message: err.Error(), Cause: err}
}

func ErrMissingOption(section, option string) *ConfigError {
	return NewConfigError(section, option, "must be specified")
}

func ErrMissingSection(section string) *ConfigError {
	return NewConfigError(section, "", "section not found")
}

func ErrInvalidValue(section, option, value, expected string) *ConfigError {
	return NewConfigError(section, option, fmt.Sprintf("invalid value '%s', expected %s", value, expected))
}

func ErrOutOfRange(section, option string, value int64, constraint string) *ConfigError {
	return NewConfigError(section, option, fmt.Sprintf("value %d %s", value, constraint))
}

func ErrInvalidChoice(section, option, value string, choices []string) *ConfigError {
	return NewConfigError(section, option, fmt.Sprintf("'%s' is not a valid choice (valid: %v)", value, choices))
}
