package model

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidFeatureValue is returned when a schema field holds a value that
	// cannot be coerced to a finite real number.
	ErrInvalidFeatureValue = errors.New("invalid feature value")

	// ErrSchemaMismatch is returned when a batch is empty or not tabular.
	ErrSchemaMismatch = errors.New("schema mismatch")

	// ErrUnsupportedFormat is returned when an upload is not a delimited table.
	ErrUnsupportedFormat = errors.New("unsupported format")

	// ErrScalingFailure is returned when both scaler transform modes fail.
	ErrScalingFailure = errors.New("scaling failure")

	// ErrShapeError is returned when a feature or probability matrix has the wrong shape.
	ErrShapeError = errors.New("shape error")

	// ErrNoCacheAvailable is returned when no bulk result has been cached yet.
	ErrNoCacheAvailable = errors.New("no cached bulk result available")

	// ErrOutOfRange is returned for probabilities outside [0, 1].
	ErrOutOfRange = errors.New("probability out of range")
)

// FeatureValueError localizes an invalid value to a record and field.
// Row is -1 for single-record scoring.
type FeatureValueError struct {
	Row   int
	Field string
	Value any
}

func (e *FeatureValueError) Error() string {
	if e.Row < 0 {
		return fmt.Sprintf("%s: field %q has non-numeric value %v", ErrInvalidFeatureValue, e.Field, e.Value)
	}
	return fmt.Sprintf("%s: row %d field %q has non-numeric value %v", ErrInvalidFeatureValue, e.Row, e.Field, e.Value)
}

func (e *FeatureValueError) Unwrap() error {
	return ErrInvalidFeatureValue
}
