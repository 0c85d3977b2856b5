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

package logging

import (
	"context"
	"fmt"
	"os"
	"regexp"
	"strconv"
	"strings"
	"sync"

	"github.com/go-logr/logr"
	"github.com/go-logr/zapr"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// ContextKey represents the type for context keys
type ContextKey string

const (
	// CorrelationIDKey is the context key for correlation IDs
	CorrelationIDKey ContextKey = "correlationID"
	// TraceIDKey is the context key for trace IDs
	TraceIDKey ContextKey = "traceID"
	// ProviderKey is the context key for the provider profile name
	ProviderKey ContextKey = "provider"
	// ProviderTypeKey is the context key for provider type
	ProviderTypeKey ContextKey = "providerType"
	// ServiceKey is the context key for the cloud service (e.g. compute.instances)
	ServiceKey ContextKey = "service"
	// OperationKey is the context key for the service operation
	OperationKey ContextKey = "operation"
	// ResourceIDKey is the context key for the resource being operated on
	ResourceIDKey ContextKey = "resourceID"
)

// Config holds logging configuration
type Config struct {
	Level        string `yaml:"level"`
	Format       string `yaml:"format"` // json or console
	Sampling     bool   `yaml:"sampling"`
	Development  bool   `yaml:"development"`
	SamplingRate int    `yaml:"samplingRate"`
}

// DefaultConfig returns default logging configuration
func DefaultConfig() *Config {
	return &Config{
		Level:        getEnvWithDefault("LOG_LEVEL", "info"),
		Format:       getEnvWithDefault("LOG_FORMAT", "json"),
		Sampling:     getEnvBoolWithDefault("LOG_SAMPLING", false),
		Development:  getEnvBoolWithDefault("LOG_DEVELOPMENT", false),
		SamplingRate: getEnvIntWithDefault("LOG_SAMPLING_RATE", 100),
	}
}

var (
	globalMu     sync.RWMutex
	globalLogger = logr.Discard()
)

// Setup initializes the global logger
func Setup(config *Config) error {
	zapConfig := zap.NewProductionConfig()
	if config.Development {
		zapConfig = zap.NewDevelopmentConfig()
	}

	if config.Format == "console" {
		zapConfig.Encoding = "console"
		zapConfig.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
		zapConfig.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	} else {
		zapConfig.Encoding = "json"
		zapConfig.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
		zapConfig.EncoderConfig.EncodeLevel = zapcore.LowercaseLevelEncoder
	}
	// the CLI writes results to stdout
	zapConfig.OutputPaths = []string{"stderr"}

	level, err := parseLevel(config.Level)
	if err != nil {
		return err
	}
	zapConfig.Level = zap.NewAtomicLevelAt(level)

	if config.Sampling {
		zapConfig.Sampling = &zap.SamplingConfig{
			Initial:    100,
			Thereafter: config.SamplingRate,
		}
	} else {
		zapConfig.Sampling = nil
	}

	zapLogger, err := zapConfig.Build()
	if err != nil {
		return fmt.Errorf("failed to build logger: %w", err)
	}

	SetLogger(zapr.NewLogger(zapLogger))
	return nil
}

func parseLevel(level string) (zapcore.Level, error) {
	switch strings.ToLower(level) {
	case "", "info":
		return zap.InfoLevel, nil
	case "debug":
		return zap.DebugLevel, nil
	case "warn", "warning":
		return zap.WarnLevel, nil
	case "error":
		return zap.ErrorLevel, nil
	default:
		return zap.InfoLevel, fmt.Errorf("unknown log level %q", level)
	}
}

// SetLogger replaces the global logger
func SetLogger(logger logr.Logger) {
	globalMu.Lock()
	defer globalMu.Unlock()
	globalLogger = logger
}

// Logger returns the global logger
func Logger() logr.Logger {
	globalMu.RLock()
	defer globalMu.RUnlock()
	return globalLogger
}

// FromContext returns a logger with correlation fields from context. A logger
// stored with logr.NewContext takes precedence over the global one.
func FromContext(ctx context.Context) logr.Logger {
	logger, err := logr.FromContext(ctx)
	if err != nil {
		logger = Logger()
	}
	return enrichLogger(ctx, logger)
}

// WithProvider adds provider correlation to context
func WithProvider(ctx context.Context, providerType, name string) context.Context {
	ctx = context.WithValue(ctx, ProviderTypeKey, providerType)
	return context.WithValue(ctx, ProviderKey, name)
}

// WithOperation adds the service and operation to context
func WithOperation(ctx context.Context, service, operation string) context.Context {
	ctx = context.WithValue(ctx, ServiceKey, service)
	return context.WithValue(ctx, OperationKey, operation)
}

// WithResourceID adds the resource identifier to context
func WithResourceID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, ResourceIDKey, id)
}

// WithCorrelationID adds correlation ID to context
func WithCorrelationID(ctx context.Context, correlationID string) context.Context {
	return context.WithValue(ctx, CorrelationIDKey, correlationID)
}

// WithNewCorrelationID adds a generated correlation ID to context
func WithNewCorrelationID(ctx context.Context) context.Context {
	return WithCorrelationID(ctx, uuid.NewString())
}

// WithTraceID adds trace ID to context
func WithTraceID(ctx context.Context, traceID string) context.Context {
	return context.WithValue(ctx, TraceIDKey, traceID)
}

// enrichLogger adds correlation fields from context to logger
func enrichLogger(ctx context.Context, logger logr.Logger) logr.Logger {
	keys := []ContextKey{
		CorrelationIDKey, TraceIDKey, ProviderTypeKey, ProviderKey,
		ServiceKey, OperationKey, ResourceIDKey,
	}
	fields := make([]interface{}, 0, len(keys)*2)
	for _, key := range keys {
		if val := ctx.Value(key); val != nil {
			fields = append(fields, string(key), val)
		}
	}

	if len(fields) > 0 {
		return logger.WithValues(fields...)
	}
	return logger
}

// Redactor provides secure logging by redacting sensitive information
type Redactor struct {
	patterns []*regexp.Regexp
}

// NewRedactor creates a redactor with common sensitive patterns
func NewRedactor() *Redactor {
	patterns := []*regexp.Regexp{
		// PEM private keys returned by key pair creation
		regexp.MustCompile(`(?s)-----BEGIN [A-Z ]*PRIVATE KEY-----.*?-----END [A-Z ]*PRIVATE KEY-----`),
		// Passwords in URLs
		regexp.MustCompile(`://[^:/]*:([^@]*?)@`),
		// API keys, secrets and tokens
		regexp.MustCompile(`(?i)(?:api[_-]?key|token|secret|password|passwd|pwd)\s*[:=]\s*["']?([^"'\s]+)["']?`),
		// Cloud-init user data
		regexp.MustCompile(`(?i)(?:user[_-]?data|userdata)\s*[:=]\s*["']?([^"'\n]{20,})["']?`),
		// AWS access key IDs
		regexp.MustCompile(`\b(?:AKIA|ASIA)[0-9A-Z]{16}\b`),
	}

	return &Redactor{patterns: patterns}
}

// Redact removes sensitive information from strings
func (r *Redactor) Redact(input string) string {
	result := input
	for _, pattern := range r.patterns {
		if pattern.NumSubexp() > 0 {
			result = pattern.ReplaceAllStringFunc(result, func(match string) string {
				submatches := pattern.FindStringSubmatch(match)
				if len(submatches) > 1 && submatches[1] != "" {
					return strings.Replace(match, submatches[1], "[REDACTED]", 1)
				}
				return match
			})
		} else {
			result = pattern.ReplaceAllString(result, "[REDACTED]")
		}
	}
	return result
}

// RedactMap redacts values in a map
func (r *Redactor) RedactMap(input map[string]string) map[string]string {
	if input == nil {
		return nil
	}

	result := make(map[string]string, len(input))
	for k, v := range input {
		if isSensitiveKey(k) {
			result[k] = "[REDACTED]"
		} else {
			result[k] = r.Redact(v)
		}
	}
	return result
}

var globalRedactor = NewRedactor()

// RedactString is a convenience function for global redaction
func RedactString(input string) string {
	return globalRedactor.Redact(input)
}

// RedactMap is a convenience function for global map redaction
func RedactMap(input map[string]string) map[string]string {
	return globalRedactor.RedactMap(input)
}

func isSensitiveKey(key string) bool {
	sensitiveKeys := []string{
		"password", "passwd", "pwd", "secret", "token", "auth",
		"credential", "cred", "api_key", "apikey", "access_key", "private_key",
		"privatekey", "userdata", "user_data", "session",
	}

	keyLower := strings.ToLower(key)
	for _, sensitive := range sensitiveKeys {
		if strings.Contains(keyLower, sensitive) {
			return true
		}
	}
	return false
}

func getEnvWithDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvBoolWithDefault(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseBool(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvIntWithDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}
