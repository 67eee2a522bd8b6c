// Package domain holds the error kinds shared by the editing pipeline and
// its glue layers.
package domain

import (
	"errors"
	"fmt"
)

// ErrorType classifies a failure so callers can decide how to report it.
type ErrorType string

const (
	// ErrorTypeConfiguration marks invalid edit parameters or settings.
	// Reported before any image is processed.
	ErrorTypeConfiguration ErrorType = "configuration"
	// ErrorTypeDecode marks an input image the codec could not read.
	ErrorTypeDecode ErrorType = "decode"
	// ErrorTypeEncode marks a failure to serialize an output image.
	ErrorTypeEncode ErrorType = "encode"
	// ErrorTypeSegmentation marks a failure of the delegated segmentation
	// service. The pipeline recovers from it locally.
	ErrorTypeSegmentation ErrorType = "segmentation"
)

// DomainError represents a classified error with context
type DomainError struct {
	Type    ErrorType
	Message string
	Err     error
}

func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Type, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Type, e.Message)
}

func (e *DomainError) Unwrap() error {
	return e.Err
}

// NewError creates a new domain error
func NewError(errType ErrorType, message string, err error) *DomainError {
	return &DomainError{
		Type:    errType,
		Message: message,
		Err:     err,
	}
}

func ConfigurationError(message string, err error) *DomainError {
	return NewError(ErrorTypeConfiguration, message, err)
}

func DecodeError(message string, err error) *DomainError {
	return NewError(ErrorTypeDecode, message, err)
}

func EncodeError(message string, err error) *DomainError {
	return NewError(ErrorTypeEncode, message, err)
}

func SegmentationError(message string, err error) *DomainError {
	return NewError(ErrorTypeSegmentation, message, err)
}

// IsKind reports whether err, or any error it wraps, is a DomainError of
// the given type.
func IsKind(err error, errType ErrorType) bool {
	var de *DomainError
	if errors.As(err, &de) {
		return de.Type == errType
	}
	return false
}
