package logger

import (
	"strings"

	"go.uber.org/zap"
)

// Structured log field keys shared by components.
const (
	FieldComponent   = "component"
	FieldSource      = "source"
	FieldJobID       = "job_id"
	FieldFingerprint = "fingerprint"
	FieldRequestID   = "request_id"
	FieldLLMProvider = "llm_provider"
	FieldLLMModel    = "llm_model"
)

// StringField describes a string-valued structured logging field.
type StringField struct {
	Key   string
	Value string
}

// StringFields converts key/value pairs into zap fields, trimming whitespace
// and omitting entries with empty keys or values.
func StringFields(fields ...StringField) []zap.Field {
	result := make([]zap.Field, 0, len(fields))
	for _, field := range fields {
		key := strings.TrimSpace(field.Key)
		if key == "" {
			continue
		}
		value := strings.TrimSpace(field.Value)
		if value == "" {
			continue
		}
		result = append(result, zap.String(key, value))
	}
	return result
}

// WithFields attaches fields to the logger, defaulting to a no-op logger when nil.
func WithFields(logger *zap.Logger, fields ...zap.Field) *zap.Logger {
	logger = OrNop(logger)
	if len(fields) == 0 {
		return logger
	}
	return logger.With(fields...)
}

// Component names the subsystem emitting a log line.
func Component(logger *zap.Logger, name string) *zap.Logger {
	return WithFields(logger, StringFields(StringField{Key: FieldComponent, Value: name})...)
}

// LLMFields returns fields describing the language-model backend.
func LLMFields(provider, model string) []zap.Field {
	return StringFields(
		StringField{Key: FieldLLMProvider, Value: provider},
		StringField{Key: FieldLLMModel, Value: model},
	)
}
