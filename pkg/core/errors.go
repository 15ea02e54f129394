package core

import (
	"errors"
	"fmt"
)

// ErrDegenerate marks geometry that cannot be intersected
var ErrDegenerate = errors.New("degenerate geometry")

// ConfigError reports a configuration value that could not be parsed.
// The option keeps its previous value.
type ConfigError struct {
	Key   string
	Value string
	Err   error
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("invalid value %q for %s: %v", e.Value, e.Key, e.Err)
}

func (e *ConfigError) Unwrap() error {
	return e.Err
}

// GeometryError reports a primitive excluded from rendering
type GeometryError struct {
	Primitive string // Human readable primitive description
	Reason    string
}

func (e *GeometryError) Error() string {
	return fmt.Sprintf("%s: %s", e.Primitive, e.Reason)
}

func (e *GeometryError) Unwrap() error {
	return ErrDegenerate
}
