package exposure

import (
	"fmt"
)

// InputError reports a record or batch that failed schema validation: a missing
// required column or an unparsable required timestamp. Field names the offending
// column so callers can surface it without string-matching the message.
type InputError struct {
	Field  string
	Reason string
	Err    error
}

func (e *InputError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("invalid input in field %q: %s: %v", e.Field, e.Reason, e.Err)
	}
	return fmt.Sprintf("invalid input in field %q: %s", e.Field, e.Reason)
}

func (e *InputError) Unwrap() error {
	return e.Err
}

// NewInputError creates an InputError for the named field
func NewInputError(field, reason string) *InputError {
	return &InputError{Field: field, Reason: reason}
}

// WrapInputError creates an InputError carrying an underlying cause
func WrapInputError(field, reason string, err error) *InputError {
	return &InputError{Field: field, Reason: reason, Err: err}
}

// ConfigurationError reports an unusable setting (unknown movement profile,
// granularity, speed mode). Raised at setup time, before any row is processed.
type ConfigurationError struct {
	Setting string
	Value   string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("unknown %s %q", e.Setting, e.Value)
}

// NewConfigurationError creates a ConfigurationError for the named setting
func NewConfigurationError(setting, value string) *ConfigurationError {
	return &ConfigurationError{Setting: setting, Value: value}
}
