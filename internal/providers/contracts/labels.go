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
	"regexp"
	"strings"

	"github.com/google/uuid"
)

const (
	// MaxNameLength is the longest name or label accepted by every vendor
	MaxNameLength = 63

	// DefaultNamePrefix is used when generating a name without a label
	DefaultNamePrefix = "cb"

	// nameSuffixLength is the number of hex characters appended to generated names
	nameSuffixLength = 6
)

var (
	labelPattern      = regexp.MustCompile(`^[a-z][-a-z0-9]{1,61}[a-z0-9]$`)
	bucketNamePattern = regexp.MustCompile(`^[a-z0-9][-a-z0-9.]{1,61}[a-z0-9]$`)
)

// ValidateLabel checks a resource label; the empty label is valid
func ValidateLabel(label string) error {
	if label == "" || labelPattern.MatchString(label) {
		return nil
	}
	return NewInvalidLabelError(label)
}

// ValidateName checks a resource name
func ValidateName(name string) error {
	if labelPattern.MatchString(name) {
		return nil
	}
	return NewInvalidNameError(name, "names must be 3-63 characters of lowercase letters, digits and hyphens, starting with a letter")
}

// ValidateBucketName checks an object storage bucket name
func ValidateBucketName(name string) error {
	if bucketNamePattern.MatchString(name) && !strings.Contains(name, "..") {
		return nil
	}
	return NewInvalidNameError(name, "bucket names must be 3-63 characters of lowercase letters, digits, dots and hyphens")
}

// GenerateName derives a unique resource name from a label:
// <label or cb>-<6 hex chars>, truncated to MaxNameLength
func GenerateName(label string) string {
	prefix := label
	if prefix == "" {
		prefix = DefaultNamePrefix
	}
	suffix := strings.ReplaceAll(uuid.NewString(), "-", "")[:nameSuffixLength]

	maxPrefix := MaxNameLength - nameSuffixLength - 1
	if len(prefix) > maxPrefix {
		prefix = strings.TrimRight(prefix[:maxPrefix], "-")
	}
	return prefix + "-" + suffix
}
