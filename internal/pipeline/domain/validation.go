package domain

// Issue — одно нарушение или предупреждение валидации.
type Issue struct {
	Kind    string `json:"type"`
	Message string `json:"message"`
	Field   string `json:"field"`
}

// Issue kinds produced by the schema and business rule validators.
const (
	IssueStructureError   = "STRUCTURE_ERROR"
	IssueMissingField     = "MISSING_FIELD"
	IssueInvalidEventType = "INVALID_EVENT_TYPE"
	IssueTypeError        = "TYPE_ERROR"
	IssueRangeError       = "RANGE_ERROR"
	IssueRangeCheckFailed = "RANGE_CHECK_FAILED"
	IssueInvalidDatetime  = "INVALID_DATETIME"
	IssueFuturePickup     = "FUTURE_PICKUP"
	IssueOldPickup        = "OLD_PICKUP"
	IssueFutureDropoff    = "FUTURE_DROPOFF"
	IssueHighFareRate     = "HIGH_FARE_RATE"
	IssueBusinessRule     = "BUSINESS_RULE_ERROR"
	IssueValidationSystem = "VALIDATION_SYSTEM_ERROR"
)

// ValidationOutcome — результат проверки одного события.
// Errors блокируют обработку; warnings прикладываются для аудита.
type ValidationOutcome struct {
	Valid    bool    `json:"is_valid"`
	Errors   []Issue `json:"errors"`
	Warnings []Issue `json:"warnings"`
}

// NewValidationOutcome returns an outcome with no findings yet.
func NewValidationOutcome() ValidationOutcome {
	return ValidationOutcome{Valid: true, Errors: []Issue{}, Warnings: []Issue{}}
}

// AddError records a blocking violation and marks the outcome invalid.
func (v *ValidationOutcome) AddError(kind, message, field string) {
	v.Valid = false
	v.Errors = append(v.Errors, Issue{Kind: kind, Message: message, Field: field})
}

// AddWarning records an advisory finding without blocking the event.
func (v *ValidationOutcome) AddWarning(kind, message, field string) {
	v.Warnings = append(v.Warnings, Issue{Kind: kind, Message: message, Field: field})
}

// Merge folds another outcome's findings into this one.
func (v *ValidationOutcome) Merge(other ValidationOutcome) {
	v.Errors = append(v.Errors, other.Errors...)
	v.Warnings = append(v.Warnings, other.Warnings...)
	if len(other.Errors) > 0 {
		v.Valid = false
	}
}
