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

package gcp

import (
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"

	"cloud.google.com/go/storage"
	compute "google.golang.org/api/compute/v1"
	"google.golang.org/api/googleapi"

	"github.com/CloudVE/cloudbridge-sub001/internal/providers/contracts"
)

// operationError is the failure recorded on a finished compute operation
type operationError struct {
	operation string
	code      string
	message   string
}

func (e *operationError) Error() string {
	return fmt.Sprintf("operation %s failed: %s: %s", e.operation, e.code, e.message)
}

// errorOf returns the error of a finished operation, if any
func errorOf(op *compute.Operation) error {
	if op.Error == nil || len(op.Error.Errors) == 0 {
		return nil
	}
	var messages []string
	for _, e := range op.Error.Errors {
		messages = append(messages, e.Message)
	}
	return &operationError{operation: op.Name, code: op.Error.Errors[0].Code, message: strings.Join(messages, "; ")}
}

// retryableReasons are 403 reasons that signal throttling rather than denial
var retryableReasons = map[string]bool{
	"rateLimitExceeded":     true,
	"userRateLimitExceeded": true,
}

func reasonOf(gerr *googleapi.Error) string {
	for _, item := range gerr.Errors {
		if item.Reason != "" {
			return item.Reason
		}
	}
	return ""
}

// translateError maps Google API errors onto CloudErrors
func translateError(err error) error {
	if err == nil {
		return nil
	}
	var cloudErr *contracts.CloudError
	if errors.As(err, &cloudErr) {
		return err
	}

	if errors.Is(err, storage.ErrBucketNotExist) || errors.Is(err, storage.ErrObjectNotExist) {
		return contracts.NewNotFoundError(err.Error(), err)
	}

	var opErr *operationError
	if errors.As(err, &opErr) {
		switch opErr.code {
		case "RESOURCE_NOT_FOUND":
			return contracts.NewNotFoundError(opErr.message, err)
		case "ALREADY_EXISTS", "RESOURCE_ALREADY_EXISTS":
			return contracts.NewDuplicateError(opErr.message, err)
		case "RESOURCE_IN_USE_BY_ANOTHER_RESOURCE", "RESOURCE_NOT_READY", "INVALID_USAGE", "INVALID_FIELD_VALUE":
			return contracts.NewInvalidValueError(opErr.message, err)
		}
		return contracts.NewProviderInternalError(opErr.Error(), err)
	}

	var gerr *googleapi.Error
	if errors.As(err, &gerr) {
		message := gerr.Message
		if message == "" {
			message = http.StatusText(gerr.Code)
		}
		switch {
		case gerr.Code == http.StatusNotFound:
			return contracts.NewNotFoundError(message, err)
		case gerr.Code == http.StatusConflict:
			return contracts.NewDuplicateError(message, err)
		case gerr.Code == http.StatusForbidden && retryableReasons[reasonOf(gerr)]:
			return contracts.NewRetryableError(message, err)
		case gerr.Code == http.StatusUnauthorized || gerr.Code == http.StatusForbidden:
			return contracts.NewUnauthorizedError(message, err)
		case gerr.Code == http.StatusTooManyRequests || gerr.Code >= http.StatusInternalServerError:
			return contracts.NewRetryableError(message, err)
		case gerr.Code == http.StatusBadRequest || gerr.Code == http.StatusPreconditionFailed:
			return contracts.NewInvalidValueError(message, err)
		}
		return contracts.NewProviderInternalError(message, err)
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return contracts.NewProviderConnectionError("failed to reach Google Cloud", err)
	}
	return contracts.NewProviderInternalError("Google Cloud call failed", err)
}
