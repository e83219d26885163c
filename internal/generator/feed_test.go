package generator

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const startCSV = `trip_id,pickup_location_id,dropoff_location_id,vendor_id,pickup_time,estimated_dropoff_time,estimated_fare
trip-1,42,101,2,2026-08-28T10:00:00Z,2026-08-28T10:30:00Z,25.50
trip-2,7,88,1,2026-08-28T11:00:00Z,2026-08-28T11:20:00Z,12.00
trip-3,250,13,3,2026-08-28T12:00:00Z,2026-08-28T12:45:00Z,40.25
`

const endCSV = `trip_id,dropoff_time,rate_code,passenger_count,distance,fare,tip,payment_type,trip_type
trip-1,2026-08-28T10:32:00Z,1,2,5.4,27.80,3.00,1,1
trip-2,2026-08-28T11:22:00Z,1,1,2.1,11.50,0.00,2,1
`

func writeFeedFiles(t *testing.T) (string, string) {
	t.Helper()
	dir := t.TempDir()

	startPath := filepath.Join(dir, "trip_start.csv")
	require.NoError(t, os.WriteFile(startPath, []byte(startCSV), 0o644))

	endPath := filepath.Join(dir, "trip_end.csv")
	require.NoError(t, os.WriteFile(endPath, []byte(endCSV), 0o644))

	return startPath, endPath
}

func TestFeedExhaustsCompletely(t *testing.T) {
	startPath, endPath := writeFeedFiles(t)

	feed, err := LoadFeed(startPath, endPath, 1)
	require.NoError(t, err)

	origStarts, origEnds := feed.Original()
	assert.Equal(t, 3, origStarts)
	assert.Equal(t, 2, origEnds)

	seen := map[string]int{}
	total := 0
	for {
		event, ok := feed.Next()
		if !ok {
			break
		}
		total++
		eventType, _ := event["event_type"].(string)
		seen[eventType]++
	}

	assert.Equal(t, 5, total)
	assert.Equal(t, 3, seen["trip_start"])
	assert.Equal(t, 2, seen["trip_end"])

	startsLeft, endsLeft := feed.Remaining()
	assert.Zero(t, startsLeft)
	assert.Zero(t, endsLeft)

	// feed исчерпан, дальше только false
	_, ok := feed.Next()
	assert.False(t, ok)
}

func TestFeedEventShape(t *testing.T) {
	startPath, endPath := writeFeedFiles(t)

	feed, err := LoadFeed(startPath, endPath, 42)
	require.NoError(t, err)

	for {
		event, ok := feed.Next()
		if !ok {
			break
		}

		tripID, isString := event["trip_id"].(string)
		require.True(t, isString)
		assert.NotEmpty(t, tripID)

		switch event["event_type"] {
		case "trip_start":
			_, isFloat := event["estimated_fare"].(float64)
			assert.True(t, isFloat, "numeric columns must be JSON numbers")
			_, isString := event["pickup_time"].(string)
			assert.True(t, isString)
		case "trip_end":
			_, isFloat := event["fare"].(float64)
			assert.True(t, isFloat)
			_, isString := event["dropoff_time"].(string)
			assert.True(t, isString)
		default:
			t.Fatalf("unexpected event_type: %v", event["event_type"])
		}
	}
}

func TestFeedDeterministicWithSeed(t *testing.T) {
	startPath, endPath := writeFeedFiles(t)

	feedA, err := LoadFeed(startPath, endPath, 7)
	require.NoError(t, err)
	feedB, err := LoadFeed(startPath, endPath, 7)
	require.NoError(t, err)

	for {
		eventA, okA := feedA.Next()
		eventB, okB := feedB.Next()
		require.Equal(t, okA, okB)
		if !okA {
			break
		}
		assert.Equal(t, eventA, eventB)
	}
}

func TestFeedRejectsRaggedCSV(t *testing.T) {
	dir := t.TempDir()

	bad := filepath.Join(dir, "bad.csv")
	require.NoError(t, os.WriteFile(bad, []byte("trip_id,fare\ntrip-1\n"), 0o644))

	endPath := filepath.Join(dir, "trip_end.csv")
	require.NoError(t, os.WriteFile(endPath, []byte(endCSV), 0o644))

	_, err := LoadFeed(bad, endPath, 1)
	assert.Error(t, err)
}

func TestFeedRejectsNonNumericColumn(t *testing.T) {
	dir := t.TempDir()

	bad := filepath.Join(dir, "bad_end.csv")
	content := "trip_id,dropoff_time,rate_code,passenger_count,distance,fare,tip,payment_type,trip_type\n" +
		"trip-1,2026-08-28T10:32:00Z,1,2,5.4,NOT_A_FARE,3.00,1,1\n"
	require.NoError(t, os.WriteFile(bad, []byte(content), 0o644))

	startPath := filepath.Join(dir, "trip_start.csv")
	require.NoError(t, os.WriteFile(startPath, []byte(startCSV), 0o644))

	_, err := LoadFeed(startPath, bad, 1)
	assert.Error(t, err)
}
