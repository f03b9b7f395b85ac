package model

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrSchema matches any *SchemaError.
	ErrSchema = errors.New("schema error")
	// ErrInvalidParameter matches any *InvalidParameterError.
	ErrInvalidParameter = errors.New("invalid parameter")
)

// SchemaError reports required input fields that are absent.
type SchemaError struct {
	Missing []string
}

func (e *SchemaError) Error() string {
	return "missing required field(s): " + strings.Join(e.Missing, ", ")
}

func (e *SchemaError) Unwrap() error { return ErrSchema }

// InvalidParameterError reports a parameter outside its allowed range.
type InvalidParameterError struct {
	Name   string
	Value  any
	Reason string
}

func (e *InvalidParameterError) Error() string {
	return fmt.Sprintf("invalid parameter %s=%v: %s", e.Name, e.Value, e.Reason)
}

func (e *InvalidParameterError) Unwrap() error { return ErrInvalidParameter }

// MissingFields returns the subset of required not present in have, in required order.
// A nil result means nothing is missing.
func MissingFields(have map[string]bool, required ...string) []string {
	var missing []string
	for _, name := range required {
		if !have[name] {
			missing = append(missing, name)
		}
	}
	return missing
}
