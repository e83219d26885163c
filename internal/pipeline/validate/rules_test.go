package validate

import (
	"testing"
	"time"

	"boltride/internal/pipeline/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testNow = time.Date(2026, 8, 28, 12, 0, 0, 0, time.UTC)

func fixedRules() *Rules {
	return &Rules{Now: func() time.Time { return testNow }}
}

func TestRulesFuturePickupWarning(t *testing.T) {
	fields := map[string]any{
		"pickup_time": testNow.Add(2 * time.Hour).Format(time.RFC3339),
	}

	outcome := fixedRules().Check(fields, domain.KindTripStart)

	assert.True(t, outcome.Valid, "future pickup is advisory, not blocking")
	require.Len(t, outcome.Warnings, 1)
	assert.Equal(t, domain.IssueFuturePickup, outcome.Warnings[0].Kind)
}

func TestRulesPickupWithinToleranceNoWarning(t *testing.T) {
	fields := map[string]any{
		"pickup_time": testNow.Add(30 * time.Minute).Format(time.RFC3339),
	}

	outcome := fixedRules().Check(fields, domain.KindTripStart)

	assert.True(t, outcome.Valid)
	assert.Empty(t, outcome.Warnings)
}

func TestRulesOldPickupWarning(t *testing.T) {
	fields := map[string]any{
		"pickup_time": testNow.Add(-8 * 24 * time.Hour).Format(time.RFC3339),
	}

	outcome := fixedRules().Check(fields, domain.KindTripStart)

	assert.True(t, outcome.Valid)
	require.Len(t, outcome.Warnings, 1)
	assert.Equal(t, domain.IssueOldPickup, outcome.Warnings[0].Kind)
}

func TestRulesInvalidPickupFormat(t *testing.T) {
	fields := map[string]any{"pickup_time": "28/08/2026 10:00"}

	outcome := fixedRules().Check(fields, domain.KindTripStart)

	assert.False(t, outcome.Valid)
	require.Len(t, outcome.Errors, 1)
	assert.Equal(t, domain.IssueInvalidDatetime, outcome.Errors[0].Kind)
}

// Будущий dropoff — блокирующая ошибка, в отличие от pickup-правил.
func TestRulesFutureDropoffBlocks(t *testing.T) {
	fields := map[string]any{
		"dropoff_time": testNow.Add(time.Hour).Format(time.RFC3339),
		"fare":         20.0,
		"distance":     5.0,
	}

	outcome := fixedRules().Check(fields, domain.KindTripEnd)

	assert.False(t, outcome.Valid)
	require.Len(t, outcome.Errors, 1)
	assert.Equal(t, domain.IssueFutureDropoff, outcome.Errors[0].Kind)
}

func TestRulesDropoffWithinToleranceOK(t *testing.T) {
	fields := map[string]any{
		"dropoff_time": testNow.Add(10 * time.Minute).Format(time.RFC3339),
		"fare":         20.0,
		"distance":     5.0,
	}

	outcome := fixedRules().Check(fields, domain.KindTripEnd)

	assert.True(t, outcome.Valid)
}

func TestRulesHighFarePerMileWarning(t *testing.T) {
	fields := map[string]any{
		"dropoff_time": testNow.Add(-time.Hour).Format(time.RFC3339),
		"fare":         500.0,
		"distance":     2.0,
	}

	outcome := fixedRules().Check(fields, domain.KindTripEnd)

	assert.True(t, outcome.Valid)
	require.Len(t, outcome.Warnings, 1)
	assert.Equal(t, domain.IssueHighFareRate, outcome.Warnings[0].Kind)
}

func TestRulesZeroDistanceSkipsFareRate(t *testing.T) {
	fields := map[string]any{
		"dropoff_time": testNow.Add(-time.Hour).Format(time.RFC3339),
		"fare":         100.0,
		"distance":     0.0,
	}

	outcome := fixedRules().Check(fields, domain.KindTripEnd)

	assert.True(t, outcome.Valid)
	assert.Empty(t, outcome.Warnings)
}

func TestRulesNaiveTimestampAccepted(t *testing.T) {
	fields := map[string]any{
		"pickup_time": "2026-08-28T11:30:00",
	}

	outcome := fixedRules().Check(fields, domain.KindTripStart)

	assert.True(t, outcome.Valid)
	assert.Empty(t, outcome.Errors)
}
