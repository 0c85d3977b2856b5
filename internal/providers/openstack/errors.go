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

package openstack

import (
	"errors"
	"fmt"
	"net"
	"net/http"
	"regexp"

	"github.com/gophercloud/gophercloud"

	"github.com/CloudVE/cloudbridge-sub001/internal/providers/contracts"
)

// statusCoder is implemented by every gophercloud unexpected-response error
type statusCoder interface {
	GetStatusCode() int
}

// duplicateBody recognizes the conflict bodies Nova, Neutron and Designate
// return for names that are already taken. Other conflicts mean "in use".
var duplicateBody = regexp.MustCompile(`(?i)duplicate|already exists|RuleExists`)

// translateError converts gophercloud errors into CloudErrors
func translateError(err error) error {
	if err == nil {
		return nil
	}
	var cloudErr *contracts.CloudError
	if errors.As(err, &cloudErr) {
		return err
	}

	var notFound gophercloud.ErrDefault404
	if errors.As(err, &notFound) {
		return contracts.NewNotFoundError("resource not found", err)
	}
	if isEndpointNotFound(err) {
		return contracts.NewNotSupportedError(fmt.Sprintf("endpoint not found: %v", err))
	}

	var coded statusCoder
	if errors.As(err, &coded) {
		return translateStatus(coded.GetStatusCode(), err)
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return contracts.NewProviderConnectionError("OpenStack endpoint unreachable", err)
	}
	return contracts.NewProviderInternalError("OpenStack request failed", err)
}

func translateStatus(code int, err error) error {
	switch {
	case code == http.StatusNotFound:
		return contracts.NewNotFoundError("resource not found", err)
	case code == http.StatusConflict:
		if duplicateBody.MatchString(conflictBody(err)) {
			return contracts.NewDuplicateError("resource already exists", err)
		}
		return contracts.NewInvalidValueError("resource is in use", err)
	case code == http.StatusUnauthorized || code == http.StatusForbidden:
		return contracts.NewUnauthorizedError("request not authorized", err)
	case code == http.StatusTooManyRequests || code >= http.StatusInternalServerError:
		return contracts.NewRetryableError(fmt.Sprintf("OpenStack returned %d", code), err)
	case code == http.StatusBadRequest, code == http.StatusMethodNotAllowed,
		code == http.StatusPreconditionFailed, code == http.StatusUnprocessableEntity:
		return contracts.NewInvalidValueError("request rejected", err)
	}
	return contracts.NewProviderInternalError(fmt.Sprintf("OpenStack returned %d", code), err)
}

func conflictBody(err error) string {
	var conflict gophercloud.ErrDefault409
	if errors.As(err, &conflict) {
		return string(conflict.Body)
	}
	return err.Error()
}
