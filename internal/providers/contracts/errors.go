/*
Copyright 2025.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package contracts

import (
	"errors"
	"fmt"
)

// ErrorType represents the category of error
type ErrorType string

const (
	// ErrorTypeNotFound indicates resource not found
	ErrorTypeNotFound ErrorType = "NotFound"
	// ErrorTypeDuplicate indicates a resource with the same identity already exists
	ErrorTypeDuplicate ErrorType = "Duplicate"
	// ErrorTypeInvalidConfiguration indicates missing or malformed provider configuration
	ErrorTypeInvalidConfiguration ErrorType = "InvalidConfiguration"
	// ErrorTypeInvalidLabel indicates a label that does not satisfy label rules
	ErrorTypeInvalidLabel ErrorType = "InvalidLabel"
	// ErrorTypeInvalidName indicates a name that does not satisfy naming rules
	ErrorTypeInvalidName ErrorType = "InvalidName"
	// ErrorTypeInvalidValue indicates an invalid argument
	ErrorTypeInvalidValue ErrorType = "InvalidValue"
	// ErrorTypeWaitState indicates a wait ended in an unexpected state or timed out
	ErrorTypeWaitState ErrorType = "WaitState"
	// ErrorTypeProviderConnection indicates the vendor endpoint could not be reached
	ErrorTypeProviderConnection ErrorType = "ProviderConnection"
	// ErrorTypeProviderInternal indicates an unexpected vendor failure
	ErrorTypeProviderInternal ErrorType = "ProviderInternal"
	// ErrorTypeRetryable indicates a transient error
	ErrorTypeRetryable ErrorType = "Retryable"
	// ErrorTypeUnauthorized indicates authentication/authorization failure
	ErrorTypeUnauthorized ErrorType = "Unauthorized"
	// ErrorTypeNotSupported indicates unsupported operation
	ErrorTypeNotSupported ErrorType = "NotSupported"
)

// CloudError represents a categorized error from a provider
type CloudError struct {
	// Type categorizes the error
	Type ErrorType
	// Message describes the error
	Message string
	// Cause contains the underlying error
	Cause error
	// Retryable indicates if the operation should be retried
	Retryable bool
}

// Error implements the error interface
func (e *CloudError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Type, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

// Unwrap returns the underlying error
func (e *CloudError) Unwrap() error {
	return e.Cause
}

// IsRetryable returns true if the error is retryable
func (e *CloudError) IsRetryable() bool {
	return e.Retryable || e.Type == ErrorTypeRetryable
}

func newError(t ErrorType, message string, cause error) *CloudError {
	return &CloudError{Type: t, Message: message, Cause: cause}
}

// NewNotFoundError creates a not found error
func NewNotFoundError(message string, cause error) *CloudError {
	return newError(ErrorTypeNotFound, message, cause)
}

// NotFoundf creates a not found error for a resource kind and identifier
func NotFoundf(kind, id string) *CloudError {
	return newError(ErrorTypeNotFound, fmt.Sprintf("%s %q not found", kind, id), nil)
}

// NewDuplicateError creates a duplicate resource error
func NewDuplicateError(message string, cause error) *CloudError {
	return newError(ErrorTypeDuplicate, message, cause)
}

// NewInvalidConfigurationError creates an invalid configuration error
func NewInvalidConfigurationError(message string, cause error) *CloudError {
	return newError(ErrorTypeInvalidConfiguration, message, cause)
}

// NewInvalidLabelError creates an invalid label error
func NewInvalidLabelError(label string) *CloudError {
	return newError(ErrorTypeInvalidLabel, fmt.Sprintf("invalid label %q: labels must be 3-63 characters of lowercase letters, digits and hyphens, starting with a letter", label), nil)
}

// NewInvalidNameError creates an invalid name error
func NewInvalidNameError(name, rule string) *CloudError {
	return newError(ErrorTypeInvalidName, fmt.Sprintf("invalid name %q: %s", name, rule), nil)
}

// NewInvalidValueError creates an invalid value error
func NewInvalidValueError(message string, cause error) *CloudError {
	return newError(ErrorTypeInvalidValue, message, cause)
}

// NewWaitStateError creates a wait state error
func NewWaitStateError(message string, cause error) *CloudError {
	return newError(ErrorTypeWaitState, message, cause)
}

// NewProviderConnectionError creates a provider connection error
func NewProviderConnectionError(message string, cause error) *CloudError {
	return &CloudError{
		Type:      ErrorTypeProviderConnection,
		Message:   message,
		Cause:     cause,
		Retryable: true,
	}
}

// NewProviderInternalError creates an error for unexpected vendor failures
func NewProviderInternalError(message string, cause error) *CloudError {
	return newError(ErrorTypeProviderInternal, message, cause)
}

// NewRetryableError creates a retryable error
func NewRetryableError(message string, cause error) *CloudError {
	return &CloudError{
		Type:      ErrorTypeRetryable,
		Message:   message,
		Cause:     cause,
		Retryable: true,
	}
}

// NewUnavailableError creates a retryable error for an unavailable dependency
func NewUnavailableError(message string, cause error) *CloudError {
	return NewRetryableError(message, cause)
}

// NewUnauthorizedError creates an unauthorized error
func NewUnauthorizedError(message string, cause error) *CloudError {
	return newError(ErrorTypeUnauthorized, message, cause)
}

// NewNotSupportedError creates a not supported error
func NewNotSupportedError(message string) *CloudError {
	return newError(ErrorTypeNotSupported, message, nil)
}

// TypeOf returns the ErrorType of err, or "" when err is not a CloudError
func TypeOf(err error) ErrorType {
	var cloudErr *CloudError
	if errors.As(err, &cloudErr) {
		return cloudErr.Type
	}
	return ""
}

// IsNotFound reports whether err is a NotFound CloudError
func IsNotFound(err error) bool { return TypeOf(err) == ErrorTypeNotFound }

// IsDuplicate reports whether err is a Duplicate CloudError
func IsDuplicate(err error) bool { return TypeOf(err) == ErrorTypeDuplicate }

// IsWaitState reports whether err is a WaitState CloudError
func IsWaitState(err error) bool { return TypeOf(err) == ErrorTypeWaitState }

// IsNotSupported reports whether err is a NotSupported CloudError
func IsNotSupported(err error) bool { return TypeOf(err) == ErrorTypeNotSupported }

// IsInvalidConfiguration reports whether err is an InvalidConfiguration CloudError
func IsInvalidConfiguration(err error) bool {
	return TypeOf(err) == ErrorTypeInvalidConfiguration
}

// IsRetryable reports whether err is a retryable CloudError
func IsRetryable(err error) bool {
	var cloudErr *CloudError
	if errors.As(err, &cloudErr) {
		return cloudErr.IsRetryable()
	}
	return false
}

// IgnoreNotFound returns nil for NotFound errors and err otherwise
func IgnoreNotFound(err error) error {
	if IsNotFound(err) {
		return nil
	}
	return err
}
