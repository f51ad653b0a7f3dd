// Package tcgemm structured error types for better error handling
package tcgemm

import (
	"fmt"
)

// ErrorType represents categories of errors
type ErrorType int

const (
	// Memory errors
	ErrTypeMemory ErrorType = iota
	// Invalid argument / launch precondition errors
	ErrTypeInvalidArg
	// Kernel execution errors
	ErrTypeExecution
	// Sparse codec consistency errors
	ErrTypeCodec
	// Device errors
	ErrTypeDevice
)

// KernelError represents a structured error with context
type KernelError struct {
	Type    ErrorType
	Op      string      // Operation that failed
	Message string      // Human-readable message
	Err     error       // Underlying error if any
	Context interface{} // Additional context
}

// Error implements the error interface
func (e *KernelError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("tcgemm %s error in %s: %s (caused by: %v)",
			e.Type.String(), e.Op, e.Message, e.Err)
	}
	return fmt.Sprintf("tcgemm %s error in %s: %s",
		e.Type.String(), e.Op, e.Message)
}

// Unwrap allows error chain inspection
func (e *KernelError) Unwrap() error {
	return e.Err
}

// String returns the error type as a string
func (t ErrorType) String() string {
	switch t {
	case ErrTypeMemory:
		return "Memory"
	case ErrTypeInvalidArg:
		return "InvalidArgument"
	case ErrTypeExecution:
		return "Execution"
	case ErrTypeCodec:
		return "Codec"
	case ErrTypeDevice:
		return "Device"
	default:
		return "Unknown"
	}
}

// Common error constructors

// NewMemoryError creates a memory-related error
func NewMemoryError(op string, message string, err error) error {
	return &KernelError{
		Type:    ErrTypeMemory,
		Op:      op,
		Message: message,
		Err:     err,
	}
}

// NewInvalidArgError creates an invalid argument error. All launch
// precondition violations (bad dimensions, misaligned or undersized
// buffers) are reported through this constructor before any kernel runs.
func NewInvalidArgError(op string, message string) error {
	return &KernelError{
		Type:    ErrTypeInvalidArg,
		Op:      op,
		Message: message,
	}
}

// NewExecutionError creates an execution error
func NewExecutionError(op string, message string, err error) error {
	return &KernelError{
		Type:    ErrTypeExecution,
		Op:      op,
		Message: message,
		Err:     err,
	}
}

// NewCodecError creates a sparse codec consistency error
func NewCodecError(op string, message string, context interface{}) error {
	return &KernelError{
		Type:    ErrTypeCodec,
		Op:      op,
		Message: message,
		Context: context,
	}
}

// Common pre-defined errors

var (
	// ErrOutOfMemory indicates memory allocation failure
	ErrOutOfMemory = NewMemoryError("Malloc", "out of memory", nil)

	// ErrInvalidSize indicates invalid size parameter
	ErrInvalidSize = NewInvalidArgError("Malloc", "size must be positive")

	// ErrDoubleFree indicates double free attempt
	ErrDoubleFree = NewMemoryError("Free", "double free detected", nil)

	// ErrInvalidDevice indicates invalid device ID
	ErrInvalidDevice = NewInvalidArgError("SetDevice", "invalid device ID")
)

// IsMemoryError checks if an error is a memory error
func IsMemoryError(err error) bool {
	if e, ok := err.(*KernelError); ok {
		return e.Type == ErrTypeMemory
	}
	return false
}

// IsInvalidArgError checks if an error is an invalid argument error
func IsInvalidArgError(err error) bool {
	if e, ok := err.(*KernelError); ok {
		return e.Type == ErrTypeInvalidArg
	}
	return false
}

// IsCodecError checks if an error is a sparse codec consistency error
func IsCodecError(err error) bool {
	if e, ok := err.(*KernelError); ok {
		return e.Type == ErrTypeCodec
	}
	return false
}
