package validate

import (
	"fmt"
	"time"

	"boltride/internal/pipeline/domain"
)

// Rules — проверки кросс-полевых и временных бизнес-правил.
// Часы инжектируются, чтобы временные правила были тестируемыми.
type Rules struct {
	Now func() time.Time
}

// NewRules returns a validator running against the wall clock.
func NewRules() *Rules {
	return &Rules{Now: time.Now}
}

// Check applies the business rules for the given kind.
// Any internal failure degrades to a single BUSINESS_RULE_ERROR issue:
// rule evaluation must never take the pipeline down.
func (r *Rules) Check(fields map[string]any, kind domain.EventKind) (outcome domain.ValidationOutcome) {
	outcome = domain.NewValidationOutcome()

	defer func() {
		if rec := recover(); rec != nil {
			outcome = domain.NewValidationOutcome()
			outcome.AddError(domain.IssueBusinessRule,
				fmt.Sprintf("Business rule validation error: %v", rec), "system")
		}
	}()

	switch kind {
	case domain.KindTripStart:
		r.checkStart(fields, &outcome)
	case domain.KindTripEnd:
		r.checkEnd(fields, &outcome)
	}

	return outcome
}

func (r *Rules) checkStart(fields map[string]any, outcome *domain.ValidationOutcome) {
	pickup, ok := fields["pickup_time"].(string)
	if !ok || pickup == "" {
		return
	}

	t, err := parseTimestamp(pickup)
	if err != nil {
		outcome.AddError(domain.IssueInvalidDatetime, "Invalid pickup_time format", "pickup_time")
		return
	}

	now := r.Now()
	if t.After(now.Add(time.Hour)) {
		outcome.AddWarning(domain.IssueFuturePickup,
			"Pickup time is more than 1 hour in the future", "pickup_time")
	}
	if t.Before(now.Add(-7 * 24 * time.Hour)) {
		outcome.AddWarning(domain.IssueOldPickup,
			"Pickup time is more than 7 days old", "pickup_time")
	}
}

func (r *Rules) checkEnd(fields map[string]any, outcome *domain.ValidationOutcome) {
	if dropoff, ok := fields["dropoff_time"].(string); ok && dropoff != "" {
		t, err := parseTimestamp(dropoff)
		if err != nil {
			outcome.AddError(domain.IssueInvalidDatetime, "Invalid dropoff_time format", "dropoff_time")
		} else if t.After(r.Now().Add(30 * time.Minute)) {
			// в отличие от pickup-правил, будущий dropoff блокирует событие
			outcome.AddError(domain.IssueFutureDropoff, "Dropoff time cannot be in the future", "dropoff_time")
		}
	}

	fare, fareOK := toFloat(fields["fare"])
	distance, distOK := toFloat(fields["distance"])
	if fareOK && distOK && distance > 0 {
		farePerMile := fare / distance
		if farePerMile > 50 {
			outcome.AddWarning(domain.IssueHighFareRate,
				fmt.Sprintf("Fare per mile ($%.2f) seems unusually high", farePerMile), "fare")
		}
	}
}

// parseTimestamp accepts RFC3339 and the same timestamp without a zone.
func parseTimestamp(s string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02T15:04:05", s)
}
