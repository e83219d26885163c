package usecase

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"boltride/internal/pipeline/adapter/out/repo"
	"boltride/internal/pipeline/domain"
	"boltride/internal/pipeline/validate"
	"boltride/internal/shared/logger"
	"boltride/internal/shared/metrics"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var batchNow = time.Date(2026, 8, 28, 12, 0, 0, 0, time.UTC)

type fakeArchive struct {
	mu      sync.Mutex
	records []domain.QuarantineRecord
	fail    bool
}

func (f *fakeArchive) Archive(_ context.Context, rec domain.QuarantineRecord) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail {
		return errors.New("archive unavailable")
	}
	f.records = append(f.records, rec)
	return nil
}

type fakeDeadLetter struct {
	mu   sync.Mutex
	msgs []domain.DeadLetterMessage
	fail bool
}

func (f *fakeDeadLetter) Send(_ context.Context, msg domain.DeadLetterMessage) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail {
		return errors.New("broker unavailable")
	}
	f.msgs = append(f.msgs, msg)
	return nil
}

// failingStore — store, у которого отказал backend.
type failingStore struct{ msg string }

func (f failingStore) Merge(context.Context, string, domain.Half, any) (domain.TripRecord, error) {
	return domain.TripRecord{}, errors.New(f.msg)
}

func (f failingStore) MarkComplete(context.Context, string) (bool, error) {
	return false, errors.New(f.msg)
}

// panickyStore — store, роняющий воркер паникой.
type panickyStore struct{}

func (panickyStore) Merge(context.Context, string, domain.Half, any) (domain.TripRecord, error) {
	panic("store invariant violated")
}

func (panickyStore) MarkComplete(context.Context, string) (bool, error) {
	return false, nil
}

func testRules() *validate.Rules {
	return &validate.Rules{Now: func() time.Time { return batchNow }}
}

func newService(archive *fakeArchive, dlq *fakeDeadLetter, workers int) *ProcessBatchService {
	store := repo.NewTripMemStore(24 * time.Hour)
	return NewProcessBatchService(store, archive, dlq, testRules(), workers, 3, logger.NewLogger("test"))
}

func startEventBody(tripID string) []byte {
	return []byte(fmt.Sprintf(`{
		"event_type": "trip_start",
		"trip_id": %q,
		"pickup_location_id": 42,
		"dropoff_location_id": 101,
		"vendor_id": 2,
		"pickup_time": "2026-08-28T10:00:00Z",
		"estimated_dropoff_time": "2026-08-28T10:30:00Z",
		"estimated_fare": 25.50
	}`, tripID))
}

func endEventBody(tripID string) []byte {
	return []byte(fmt.Sprintf(`{
		"event_type": "trip_end",
		"trip_id": %q,
		"dropoff_time": "2026-08-28T10:32:00Z",
		"rate_code": 1,
		"passenger_count": 2,
		"distance": 5.4,
		"fare": 27.80,
		"tip": 3.00,
		"payment_type": 1,
		"trip_type": 1
	}`, tripID))
}

func toRecords(bodies ...[]byte) []domain.TransportRecord {
	records := make([]domain.TransportRecord, len(bodies))
	for i, body := range bodies {
		records[i] = domain.TransportRecord{
			Body:           body,
			SequenceNumber: fmt.Sprintf("%d", i+1),
			PartitionKey:   "trip.events",
			ArrivalTime:    batchNow,
		}
	}
	return records
}

func TestExecuteCompletesTripStartThenEnd(t *testing.T) {
	archive := &fakeArchive{}
	dlq := &fakeDeadLetter{}
	svc := newService(archive, dlq, 1)

	result := svc.Execute(context.Background(), toRecords(
		startEventBody("trip-1"),
		endEventBody("trip-1"),
	))

	assert.Equal(t, 2, result.ProcessedCount)
	assert.Equal(t, 1, result.CompletedTrips)
	assert.Equal(t, 0, result.ErrorCount)
	assert.Equal(t, 0, result.ValidationErrors)
	assert.Empty(t, dlq.msgs)
	assert.Empty(t, archive.records)
}

// Порядок половин не должен влиять на итог.
func TestExecuteCompletesTripEndBeforeStart(t *testing.T) {
	svc := newService(&fakeArchive{}, &fakeDeadLetter{}, 1)

	result := svc.Execute(context.Background(), toRecords(
		endEventBody("trip-1"),
		startEventBody("trip-1"),
	))

	assert.Equal(t, 2, result.ProcessedCount)
	assert.Equal(t, 1, result.CompletedTrips)
	assert.Equal(t, 0, result.ErrorCount)
}

// Redelivery обеих половин: записи мержатся идемпотентно, completion
// не засчитывается второй раз.
func TestExecuteRedeliveryCompletesOnce(t *testing.T) {
	svc := newService(&fakeArchive{}, &fakeDeadLetter{}, 1)
	ctx := context.Background()

	first := svc.Execute(ctx, toRecords(startEventBody("trip-1"), endEventBody("trip-1")))
	assert.Equal(t, 1, first.CompletedTrips)

	second := svc.Execute(ctx, toRecords(startEventBody("trip-1"), endEventBody("trip-1")))
	assert.Equal(t, 2, second.ProcessedCount)
	assert.Equal(t, 0, second.CompletedTrips)
	assert.Equal(t, 0, second.ErrorCount)
}

func TestExecuteManyTripsConcurrently(t *testing.T) {
	svc := newService(&fakeArchive{}, &fakeDeadLetter{}, 8)

	var bodies [][]byte
	for i := 0; i < 50; i++ {
		tripID := fmt.Sprintf("trip-%03d", i)
		// end раньше start у каждой второй поездки
		if i%2 == 0 {
			bodies = append(bodies, startEventBody(tripID), endEventBody(tripID))
		} else {
			bodies = append(bodies, endEventBody(tripID), startEventBody(tripID))
		}
	}

	result := svc.Execute(context.Background(), toRecords(bodies...))

	assert.Equal(t, 100, result.ProcessedCount)
	assert.Equal(t, 50, result.CompletedTrips)
	assert.Equal(t, 0, result.ErrorCount)
}

func TestExecuteInvalidEventQuarantined(t *testing.T) {
	archive := &fakeArchive{}
	dlq := &fakeDeadLetter{}
	svc := newService(archive, dlq, 1)

	// будущий dropoff — блокирующее бизнес-правило
	body := []byte(fmt.Sprintf(`{
		"event_type": "trip_end",
		"trip_id": "trip-bad",
		"dropoff_time": %q,
		"rate_code": 1,
		"passenger_count": 2,
		"distance": 5.4,
		"fare": 27.80,
		"tip": 3.00,
		"payment_type": 1,
		"trip_type": 1
	}`, batchNow.Add(2*time.Hour).Format(time.RFC3339)))

	result := svc.Execute(context.Background(), toRecords(body))

	assert.Equal(t, 0, result.ProcessedCount)
	assert.Equal(t, 1, result.ErrorCount, "rejected records count as errors too")
	assert.Equal(t, 1, result.ValidationErrors)
	assert.Equal(t, 1, result.ArchivedInvalid)

	require.Len(t, archive.records, 1)
	rec := archive.records[0]
	assert.Equal(t, domain.CategoryValidation, rec.ErrorCategory)
	assert.Equal(t, "trip-bad", rec.OriginalPayload["trip_id"])
	require.NotEmpty(t, rec.ValidationErrors)
	assert.Equal(t, domain.IssueFutureDropoff, rec.ValidationErrors[0].Kind)

	// отклоненное событие не попадает ни в store, ни в dead-letter
	assert.Empty(t, dlq.msgs)
}

func TestExecuteMalformedJSONGoesToDeadLetter(t *testing.T) {
	archive := &fakeArchive{}
	dlq := &fakeDeadLetter{}
	svc := newService(archive, dlq, 1)

	result := svc.Execute(context.Background(), toRecords([]byte(`{"event_type": "trip_start"`)))

	assert.Equal(t, 0, result.ProcessedCount)
	assert.Equal(t, 1, result.ErrorCount)
	assert.Empty(t, archive.records)

	require.Len(t, dlq.msgs, 1)
	msg := dlq.msgs[0]
	assert.Equal(t, domain.CategorySchema, msg.ErrorDetails.ErrorCategory)
	assert.Equal(t, 0, msg.RetryCount)
	assert.Equal(t, 3, msg.MaxRetries)
	assert.NotEmpty(t, msg.CorrelationID)
}

func TestExecuteStoreFailureClassifiedTransient(t *testing.T) {
	dlq := &fakeDeadLetter{}
	store := failingStore{msg: "dial tcp: i/o timeout"}
	svc := NewProcessBatchService(store, &fakeArchive{}, dlq, testRules(), 1, 3, logger.NewLogger("test"))

	result := svc.Execute(context.Background(), toRecords(startEventBody("trip-1")))

	assert.Equal(t, 0, result.ProcessedCount)
	assert.Equal(t, 1, result.ErrorCount)

	require.Len(t, dlq.msgs, 1)
	assert.Equal(t, domain.CategoryTransient, dlq.msgs[0].ErrorDetails.ErrorCategory)
}

// Паника воркера проходит тот же путь, что и любой сбой записи:
// dead-letter, error_count и счетчик категории SYSTEM_ERROR.
func TestExecutePanicCountedAsSystemError(t *testing.T) {
	dlq := &fakeDeadLetter{}
	svc := NewProcessBatchService(panickyStore{}, &fakeArchive{}, dlq, testRules(), 1, 3, logger.NewLogger("test"))

	systemErrors := metrics.TripEventErrorsTotal.WithLabelValues(string(domain.CategorySystem))
	before := testutil.ToFloat64(systemErrors)

	result := svc.Execute(context.Background(), toRecords(startEventBody("trip-1")))

	assert.Equal(t, 0, result.ProcessedCount)
	assert.Equal(t, 1, result.ErrorCount)
	require.Len(t, dlq.msgs, 1)
	assert.Equal(t, domain.CategorySystem, dlq.msgs[0].ErrorDetails.ErrorCategory)
	assert.Equal(t, before+1, testutil.ToFloat64(systemErrors))
}

// Проваленное precondition store-а не ретраится: счетчик и лог, без DLQ.
func TestExecutePreconditionFailureNotDeadLettered(t *testing.T) {
	dlq := &fakeDeadLetter{}
	store := failingStore{msg: "ConditionalCheckFailedException: condition not met"}
	svc := NewProcessBatchService(store, &fakeArchive{}, dlq, testRules(), 1, 3, logger.NewLogger("test"))

	result := svc.Execute(context.Background(), toRecords(startEventBody("trip-1")))

	assert.Equal(t, 1, result.ErrorCount)
	assert.Empty(t, dlq.msgs)
}

// Сбой архиватора не переводит событие в dead-letter и не меняет
// его классификацию.
func TestExecuteArchiveFailureDoesNotReroute(t *testing.T) {
	archive := &fakeArchive{fail: true}
	dlq := &fakeDeadLetter{}
	svc := newService(archive, dlq, 1)

	body := []byte(`{"event_type": "trip_cancelled", "trip_id": "trip-x"}`)
	result := svc.Execute(context.Background(), toRecords(body))

	assert.Equal(t, 1, result.ValidationErrors)
	assert.Equal(t, 0, result.ArchivedInvalid)
	assert.Equal(t, 1, result.ErrorCount)
	assert.Empty(t, dlq.msgs)
}

// Сбой dead-letter публикации глотается: батч продолжает работу.
func TestExecuteDeadLetterFailureDoesNotFailBatch(t *testing.T) {
	dlq := &fakeDeadLetter{fail: true}
	svc := newService(&fakeArchive{}, dlq, 1)

	result := svc.Execute(context.Background(), toRecords(
		[]byte(`not json at all`),
		startEventBody("trip-1"),
	))

	assert.Equal(t, 1, result.ErrorCount)
	assert.Equal(t, 1, result.ProcessedCount)
}

func TestExecuteEmptyBatch(t *testing.T) {
	svc := newService(&fakeArchive{}, &fakeDeadLetter{}, 4)

	result := svc.Execute(context.Background(), nil)

	assert.Equal(t, 0, result.ProcessedCount)
	assert.Equal(t, 0, result.ErrorCount)
}

func TestExecuteMixedBatchIsolatesFailures(t *testing.T) {
	archive := &fakeArchive{}
	dlq := &fakeDeadLetter{}
	svc := newService(archive, dlq, 4)

	result := svc.Execute(context.Background(), toRecords(
		startEventBody("trip-1"),
		[]byte(`garbage`),
		endEventBody("trip-1"),
		[]byte(`{"event_type": "trip_start", "trip_id": "trip-2"}`), // missing fields
	))

	assert.Equal(t, 2, result.ProcessedCount)
	assert.Equal(t, 1, result.CompletedTrips)
	assert.Equal(t, 2, result.ErrorCount)
	assert.Equal(t, 1, result.ValidationErrors)
	assert.Equal(t, 1, result.ArchivedInvalid)
}
