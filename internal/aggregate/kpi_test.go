package aggregate

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestComputeEmptyDay(t *testing.T) {
	kpi := Compute("2026-08-27", nil)

	assert.Equal(t, "2026-08-27", kpi.Date)
	assert.Equal(t, 0, kpi.CountTrips)
	assert.Equal(t, 0.0, kpi.TotalFare)
	assert.Equal(t, 0.0, kpi.AverageFare)
	assert.Equal(t, 0.0, kpi.MaxFare)
	assert.Equal(t, 0.0, kpi.MinFare)
}

func TestComputeSingleTrip(t *testing.T) {
	kpi := Compute("2026-08-27", []float64{27.80})

	assert.Equal(t, 1, kpi.CountTrips)
	assert.Equal(t, 27.80, kpi.TotalFare)
	assert.Equal(t, 27.80, kpi.AverageFare)
	assert.Equal(t, 27.80, kpi.MaxFare)
	assert.Equal(t, 27.80, kpi.MinFare)
}

func TestComputeMultipleTrips(t *testing.T) {
	kpi := Compute("2026-08-27", []float64{10.00, 20.00, 30.00, 5.50})

	assert.Equal(t, 4, kpi.CountTrips)
	assert.Equal(t, 65.50, kpi.TotalFare)
	assert.Equal(t, 16.38, kpi.AverageFare)
	assert.Equal(t, 30.00, kpi.MaxFare)
	assert.Equal(t, 5.50, kpi.MinFare)
}

func TestComputeRoundsToCents(t *testing.T) {
	kpi := Compute("2026-08-27", []float64{10.114, 20.223})

	assert.Equal(t, 30.34, kpi.TotalFare)
	assert.Equal(t, 15.17, kpi.AverageFare)
}
