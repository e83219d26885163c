package domain

import (
	"encoding/json"
	"fmt"
	"time"
)

// Category — таксономия сбоев, определяющая маршрутизацию записи.
type Category string

const (
	CategoryValidation   Category = "VALIDATION_ERROR"
	CategorySchema       Category = "SCHEMA_ERROR"
	CategoryBusinessRule Category = "BUSINESS_RULE_ERROR"
	CategoryTransient    Category = "TRANSIENT_ERROR"
	CategoryPoisonPill   Category = "POISON_PILL"
	CategorySystem       Category = "SYSTEM_ERROR"
)

// DecodeError — транспортная запись не распарсилась в envelope.
type DecodeError struct {
	Cause error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decode transport record: %v", e.Cause)
}

func (e *DecodeError) Unwrap() error { return e.Cause }

// ValidationFailure — событие отклонено валидатором.
type ValidationFailure struct {
	Outcome ValidationOutcome
}

func (e *ValidationFailure) Error() string {
	if len(e.Outcome.Errors) == 0 {
		return "validation failed"
	}
	first := e.Outcome.Errors[0]
	return fmt.Sprintf("validation failed: %s (%s, field %s), %d error(s) total",
		first.Message, first.Kind, first.Field, len(e.Outcome.Errors))
}

// ErrorDetails — структурированный контекст сбоя для dead-letter и аудита.
type ErrorDetails struct {
	Timestamp     string   `json:"timestamp"`
	CorrelationID string   `json:"correlation_id"`
	ErrorCategory Category `json:"error_category"`
	ErrorType     string   `json:"error_type"`
	ErrorMessage  string   `json:"error_message"`
	Meta          Meta     `json:"record_metadata"`
}

// DeadLetterMessage — сообщение в retry-очередь; retry бюджет фиксирован.
type DeadLetterMessage struct {
	OriginalRecord json.RawMessage `json:"original_record"`
	ErrorDetails   ErrorDetails    `json:"error_details"`
	RetryCount     int             `json:"retry_count"`
	MaxRetries     int             `json:"max_retries"`
	CorrelationID  string          `json:"correlation_id"`
}

// QuarantineRecord — диагностическая запись отклоненного события.
type QuarantineRecord struct {
	Timestamp          string         `json:"timestamp"`
	CorrelationID      string         `json:"correlation_id"`
	StreamMetadata     Meta           `json:"stream_metadata"`
	ValidationErrors   []Issue        `json:"validation_errors"`
	ValidationWarnings []Issue        `json:"validation_warnings"`
	OriginalPayload    map[string]any `json:"original_payload"`
	ErrorCategory      Category       `json:"error_category"`
}

// NewErrorDetails captures a failure's context at the routing boundary.
func NewErrorDetails(err error, category Category, meta Meta, correlationID string) ErrorDetails {
	return ErrorDetails{
		Timestamp:     time.Now().UTC().Format(time.RFC3339),
		CorrelationID: correlationID,
		ErrorCategory: category,
		ErrorType:     fmt.Sprintf("%T", err),
		ErrorMessage:  err.Error(),
		Meta:          meta,
	}
}
