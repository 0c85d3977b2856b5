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

package aws

import (
	"errors"
	"net/http"
	"strings"

	"github.com/aws/aws-sdk-go/aws/awserr"
	"github.com/aws/aws-sdk-go/aws/request"

	"github.com/CloudVE/cloudbridge-sub001/internal/providers/contracts"
)

var (
	duplicateCodes = map[string]bool{
		"InvalidGroup.Duplicate":      true,
		"InvalidKeyPair.Duplicate":    true,
		"InvalidPermission.Duplicate": true,
		"BucketAlreadyExists":         true,
		"BucketAlreadyOwnedByYou":     true,
		"HostedZoneAlreadyExists":     true,
		"ConflictingDomainExists":     true,
		"RouteAlreadyExists":          true,
	}

	unauthorizedCodes = map[string]bool{
		"AuthFailure":           true,
		"UnauthorizedOperation": true,
		"InvalidClientTokenId":  true,
		"SignatureDoesNotMatch": true,
		"AccessDenied":          true,
		"ExpiredToken":          true,
	}

	throttlingCodes = map[string]bool{
		"RequestLimitExceeded":    true,
		"Throttling":              true,
		"ThrottlingException":     true,
		"SlowDown":                true,
		"PriorRequestNotComplete": true,
	}

	invalidValueCodes = map[string]bool{
		"InvalidParameter":            true,
		"InvalidParameterValue":       true,
		"InvalidParameterCombination": true,
		"MissingParameter":            true,
		"DependencyViolation":         true,
		"IncorrectState":              true,
		"IncorrectInstanceState":      true,
		"VolumeInUse":                 true,
		"InvalidVolume.ZoneMismatch":  true,
		"InvalidSubnet.Conflict":      true,
		"InvalidSubnet.Range":         true,
		"InvalidVpc.Range":            true,
		"BucketNotEmpty":              true,
		"HostedZoneNotEmpty":          true,
		"InvalidChangeBatch":          true,
		"InvalidDomainName":           true,
		"InvalidBucketName":           true,
		"InvalidKeyPair.Format":       true,
		"InvalidIPAddress.InUse":      true,
		"Resource.AlreadyAssociated":  true,
		"Gateway.NotAttached":         true,
	}

	notFoundCodes = map[string]bool{
		"NoSuchBucket":        true,
		"NoSuchKey":           true,
		"NotFound":            true,
		"NoSuchHostedZone":    true,
		"InvalidInstanceType": true,
	}
)

// translateError maps aws-sdk-go errors onto CloudErrors
func translateError(err error) error {
	if err == nil {
		return nil
	}
	var cloudErr *contracts.CloudError
	if errors.As(err, &cloudErr) {
		return err
	}

	var aerr awserr.Error
	if !errors.As(err, &aerr) {
		return contracts.NewProviderInternalError("AWS call failed", err)
	}

	code := aerr.Code()
	switch {
	case notFoundCodes[code] || strings.HasSuffix(code, ".NotFound") || strings.HasSuffix(code, "ID.Malformed"):
		// A malformed identifier can never name an existing resource
		return contracts.NewNotFoundError(aerr.Message(), err)
	case duplicateCodes[code]:
		return contracts.NewDuplicateError(aerr.Message(), err)
	case unauthorizedCodes[code]:
		return contracts.NewUnauthorizedError(aerr.Message(), err)
	case throttlingCodes[code]:
		return contracts.NewRetryableError(aerr.Message(), err)
	case invalidValueCodes[code]:
		return contracts.NewInvalidValueError(aerr.Message(), err)
	case code == request.CanceledErrorCode:
		return contracts.NewProviderInternalError("request canceled", err)
	case code == request.ErrCodeRequestError || code == request.ErrCodeResponseTimeout:
		return contracts.NewProviderConnectionError(aerr.Message(), err)
	}

	var reqErr awserr.RequestFailure
	if errors.As(err, &reqErr) {
		switch status := reqErr.StatusCode(); {
		case status == http.StatusNotFound:
			return contracts.NewNotFoundError(aerr.Message(), err)
		case status == http.StatusConflict:
			return contracts.NewDuplicateError(aerr.Message(), err)
		case status == http.StatusUnauthorized || status == http.StatusForbidden:
			return contracts.NewUnauthorizedError(aerr.Message(), err)
		case status == http.StatusTooManyRequests || status >= http.StatusInternalServerError:
			return contracts.NewRetryableError(aerr.Message(), err)
		case status == http.StatusBadRequest:
			return contracts.NewInvalidValueError(aerr.Message(), err)
		}
	}
	return contracts.NewProviderInternalError(code+": "+aerr.Message(), err)
}

// isCode reports whether err is an AWS error with the given code
func isCode(err error, code string) bool {
	var aerr awserr.Error
	return errors.As(err, &aerr) && aerr.Code() == code
}
