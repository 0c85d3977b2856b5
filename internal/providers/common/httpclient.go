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

package common

import (
	"net/http"
	"time"

	"github.com/go-logr/logr"
	"github.com/hashicorp/go-retryablehttp"
)

const (
	httpRetryMax     = 3
	httpRetryWaitMin = 500 * time.Millisecond
	httpRetryWaitMax = 5 * time.Second
	httpTimeout      = 60 * time.Second
)

// leveledLogger adapts logr to retryablehttp.LeveledLogger
type leveledLogger struct{ log logr.Logger }

func (l leveledLogger) Error(msg string, keysAndValues ...interface{}) {
	l.log.Error(nil, msg, keysAndValues...)
}

func (l leveledLogger) Warn(msg string, keysAndValues ...interface{}) {
	l.log.Info(msg, keysAndValues...)
}

func (l leveledLogger) Info(msg string, keysAndValues ...interface{}) {
	l.log.V(1).Info(msg, keysAndValues...)
}

func (l leveledLogger) Debug(msg string, keysAndValues ...interface{}) {
	l.log.V(2).Info(msg, keysAndValues...)
}

// NewHTTPClient returns an http.Client that retries connection failures,
// 429 and 5xx responses at the transport level. REST-based vendor SDKs
// take it as their base client; the Caller retries on top of it.
func NewHTTPClient(log logr.Logger) *http.Client {
	rc := retryablehttp.NewClient()
	rc.RetryMax = httpRetryMax
	rc.RetryWaitMin = httpRetryWaitMin
	rc.RetryWaitMax = httpRetryWaitMax
	rc.HTTPClient.Timeout = httpTimeout
	rc.Logger = leveledLogger{log: log.WithName("http")}
	return rc.StandardClient()
}
