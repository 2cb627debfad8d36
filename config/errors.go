package config

import (
	"errors"
	"fmt"
)

// ErrInvalidConfig is the sentinel every validation failure wraps.
var ErrInvalidConfig = errors.New("config: invalid configuration")

// FieldError describes one invalid parameter.
type FieldError struct {
	Field  string
	Value  any
	Reason string
}

func (e *FieldError) Error() string {
	return fmt.Sprintf("config: %s=%v: %s", e.Field, e.Value, e.Reason)
}

// Unwrap returns ErrInvalidConfig.
func (e *FieldError) Unwrap() error {
	return ErrInvalidConfig
}
