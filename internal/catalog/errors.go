package catalog

import (
	"errors"
	"fmt"
)

// Sentinel errors checked with errors.Is.
var (
	// ErrInvalidParameter indicates a request option with a disallowed value.
	ErrInvalidParameter = errors.New("invalid parameter")

	// ErrProcessing indicates an unexpected failure inside a pipeline stage.
	ErrProcessing = errors.New("processing failed")

	// ErrMalformedRecord indicates an upstream record that cannot become a Product.
	ErrMalformedRecord = errors.New("malformed record")
)

// ParameterError is a client error caused by one request option.
type ParameterError struct {
	Parameter string
	Value     string
	Message   string
	Cause     error
}

// Error implements the error interface.
func (e *ParameterError) Error() string {
	return e.Message
}

// Unwrap returns the underlying error.
func (e *ParameterError) Unwrap() error {
	return e.Cause
}

// Is checks if the error matches the target.
func (e *ParameterError) Is(target error) bool {
	if target == ErrInvalidParameter {
		return true
	}
	_, ok := target.(*ParameterError)
	return ok
}

// NewParameterError creates a new ParameterError.
func NewParameterError(parameter, value, message string) *ParameterError {
	return &ParameterError{Parameter: parameter, Value: value, Message: message}
}

// ProcessingError is a server-side failure of a pipeline stage.
type ProcessingError struct {
	Stage   string
	Message string
	Cause   error
}

// Error implements the error interface.
func (e *ProcessingError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s stage: %s: %v", e.Stage, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s stage: %s", e.Stage, e.Message)
}

// Unwrap returns the underlying error.
func (e *ProcessingError) Unwrap() error {
	return e.Cause
}

// Is checks if the error matches the target.
func (e *ProcessingError) Is(target error) bool {
	if target == ErrProcessing {
		return true
	}
	_, ok := target.(*ProcessingError)
	return ok
}

// MalformedRecordError describes why a raw record was dropped.
// It never reaches the caller of the pipeline.
type MalformedRecordError struct {
	Field  string
	Reason string
}

// Error implements the error interface.
func (e *MalformedRecordError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("malformed record: %s", e.Reason)
	}
	return fmt.Sprintf("malformed record: field %s: %s", e.Field, e.Reason)
}

// Is checks if the error matches the target.
func (e *MalformedRecordError) Is(target error) bool {
	if target == ErrMalformedRecord {
		return true
	}
	_, ok := target.(*MalformedRecordError)
	return ok
}
