package domain

import (
	"errors"
	"fmt"
)

// ErrUnknownFunction is returned when a schema references a callback that is not registered.
var ErrUnknownFunction = errors.New("unknown function")

// ErrMissingOptions is returned when an options variable declares no options map.
var ErrMissingOptions = errors.New("options variable without options")

// ErrResultNotFound is returned by result stores when no result was saved under a row id.
var ErrResultNotFound = errors.New("result not found")

// ErrUnclassified signals that no classification rule fired for a variable.
var ErrUnclassified = errors.New("variable could not be classified")

// FuncKind tells enabling predicates and value computations apart in errors.
type FuncKind string

const (
	KindEnabling FuncKind = "enabling"
	KindValue    FuncKind = "value"
)

// UnknownFunctionError names the callback that could not be resolved.
type UnknownFunctionError struct {
	Kind FuncKind
	Name string
}

func (e *UnknownFunctionError) Error() string {
	return fmt.Sprintf("%s function %q is not registered", e.Kind, e.Name)
}

func (e *UnknownFunctionError) Unwrap() error {
	return ErrUnknownFunction
}

// VariableError attaches the variable being processed to a configuration error.
type VariableError struct {
	Variable string
	Err      error
}

func (e *VariableError) Error() string {
	return fmt.Sprintf("variable %q: %v", e.Variable, e.Err)
}

func (e *VariableError) Unwrap() error {
	return e.Err
}
