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

package azure

import (
	"errors"
	"fmt"
	"net"
	"net/http"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/azidentity"

	"github.com/CloudVE/cloudbridge-sub001/internal/providers/contracts"
)

// duplicateCodes are the error codes of creates that collide with an
// existing resource
var duplicateCodes = map[string]bool{
	"ContainerAlreadyExists": true,
	"BlobAlreadyExists":      true,
	"ResourceExists":         true,
}

// translateError converts Azure SDK errors into CloudErrors
func translateError(err error) error {
	if err == nil {
		return nil
	}
	var cloudErr *contracts.CloudError
	if errors.As(err, &cloudErr) {
		return err
	}

	var respErr *azcore.ResponseError
	if errors.As(err, &respErr) {
		return translateResponse(err, respErr)
	}
	var authErr *azidentity.AuthenticationFailedError
	if errors.As(err, &authErr) {
		return contracts.NewUnauthorizedError("Azure authentication failed", err)
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return contracts.NewProviderConnectionError("Azure endpoint unreachable", err)
	}
	return contracts.NewProviderInternalError("Azure request failed", err)
}

// translateResponse maps a response error; err is the caller's error with
// any context it added and stays the cause
func translateResponse(err error, respErr *azcore.ResponseError) error {
	code, errCode := respErr.StatusCode, respErr.ErrorCode
	switch {
	case code == http.StatusNotFound:
		return contracts.NewNotFoundError(fmt.Sprintf("resource not found (%s)", errCode), err)
	case duplicateCodes[errCode]:
		return contracts.NewDuplicateError(fmt.Sprintf("resource already exists (%s)", errCode), err)
	case code == http.StatusConflict:
		return contracts.NewInvalidValueError(fmt.Sprintf("resource conflict (%s)", errCode), err)
	case code == http.StatusUnauthorized || code == http.StatusForbidden:
		return contracts.NewUnauthorizedError(fmt.Sprintf("request not authorized (%s)", errCode), err)
	case code == http.StatusTooManyRequests || code >= http.StatusInternalServerError:
		return contracts.NewRetryableError(fmt.Sprintf("Azure returned %d", code), err)
	case code == http.StatusBadRequest, code == http.StatusPreconditionFailed:
		return contracts.NewInvalidValueError(fmt.Sprintf("request rejected (%s)", errCode), err)
	}
	return contracts.NewProviderInternalError(fmt.Sprintf("Azure returned %d", code), err)
}
