// Package indicator computes the SSL Channel over a price series.
//
// Everything here is a pure function of its input: series are processed in a
// single chronological pass and undefined values (NaN) are handled through
// model.Compare rather than raw float comparisons.
package indicator

import "ssl-backtest/internal/model"

// DefaultLength is the moving-average window used when none is configured.
const DefaultLength = 10

// ValidateLength rejects non-positive windows.
func ValidateLength(length int) error {
	if length <= 0 {
		return &model.InvalidParameterError{Name: "length", Value: length, Reason: "must be a positive integer"}
	}
	return nil
}
