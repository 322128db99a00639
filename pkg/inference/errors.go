package inference

import (
	"errors"
	"fmt"
)

var (
	ErrNotLoaded      = errors.New("model not loaded")
	ErrInputMismatch  = errors.New("model must declare exactly one input")
	ErrOutputMismatch = errors.New("model must declare exactly one output")
	ErrMissingOutput  = errors.New("declared output missing from result")
	ErrEmptyOutput    = errors.New("output tensor is empty")
)

// LoadError reports a model that could not be opened.
type LoadError struct {
	Path string
	Err  error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("load model %s: %v", e.Path, e.Err)
}

func (e *LoadError) Unwrap() error { return e.Err }

// InferenceError reports a run that produced no usable output.
type InferenceError struct {
	Op  string
	Err error
}

func (e *InferenceError) Error() string {
	return fmt.Sprintf("inference %s: %v", e.Op, e.Err)
}

func (e *InferenceError) Unwrap() error { return e.Err }
