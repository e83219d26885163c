package usecase

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	out "boltride/internal/pipeline/application/ports/out"
	"boltride/internal/pipeline/classify"
	"boltride/internal/pipeline/decode"
	"boltride/internal/pipeline/domain"
	"boltride/internal/pipeline/validate"
	"boltride/internal/shared/logger"
	"boltride/internal/shared/metrics"

	"github.com/google/uuid"
)

// BatchResult — сводка одного вызова батча.
type BatchResult struct {
	ProcessedCount   int    `json:"processed_count"`
	ErrorCount       int    `json:"error_count"`
	CompletedTrips   int    `json:"completed_trips"`
	ValidationErrors int    `json:"validation_errors"`
	ArchivedInvalid  int    `json:"archived_invalid"`
	CorrelationID    string `json:"correlation_id"`
}

// ProcessBatchService — координатор батча: прогоняет записи через
// decode → validate → merge → complete и маршрутизирует сбои.
//
// Контракт: батч никогда не фейлится целиком. Любой сбой одной записи
// изолируется, классифицируется и уходит в dead-letter или карантин,
// остальные записи продолжают обрабатываться.
type ProcessBatchService struct {
	store      out.TripStore
	quarantine out.QuarantineArchive
	deadLetter out.DeadLetterQueue
	rules      *validate.Rules
	workers    int
	maxRetries int
	log        *logger.Logger
}

// NewProcessBatchService создает новый координатор
func NewProcessBatchService(
	store out.TripStore,
	quarantine out.QuarantineArchive,
	deadLetter out.DeadLetterQueue,
	rules *validate.Rules,
	workers int,
	maxRetries int,
	log *logger.Logger,
) *ProcessBatchService {
	if workers <= 0 {
		workers = 1
	}
	if maxRetries <= 0 {
		maxRetries = 3
	}
	return &ProcessBatchService{
		store:      store,
		quarantine: quarantine,
		deadLetter: deadLetter,
		rules:      rules,
		workers:    workers,
		maxRetries: maxRetries,
		log:        log,
	}
}

// Execute обрабатывает батч транспортных записей worker pool-ом.
// Записи одного батча независимы: порядок внутри батча не имеет
// значения, reconciliation store разруливает любой порядок половин.
func (s *ProcessBatchService) Execute(ctx context.Context, records []domain.TransportRecord) BatchResult {
	started := time.Now()
	result := BatchResult{CorrelationID: uuid.NewString()}

	if len(records) == 0 {
		return result
	}

	s.log.Info(logger.Entry{
		Action:        "batch_started",
		Message:       fmt.Sprintf("processing %d records", len(records)),
		CorrelationID: result.CorrelationID,
		Additional:    map[string]any{"batch_size": len(records)},
	})

	jobs := make(chan domain.TransportRecord)

	var mu sync.Mutex
	var wg sync.WaitGroup

	for i := 0; i < s.workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for rec := range jobs {
				outcome := s.processOne(ctx, rec)
				mu.Lock()
				result.ProcessedCount += outcome.processed
				result.ErrorCount += outcome.failed
				result.CompletedTrips += outcome.completed
				result.ValidationErrors += outcome.invalid
				result.ArchivedInvalid += outcome.archived
				mu.Unlock()
			}
		}()
	}

	for _, rec := range records {
		jobs <- rec
	}
	close(jobs)
	wg.Wait()

	metrics.BatchProcessingDuration.Observe(time.Since(started).Seconds())

	s.log.Info(logger.Entry{
		Action:        "batch_finished",
		Message:       fmt.Sprintf("processed=%d errors=%d completed=%d", result.ProcessedCount, result.ErrorCount, result.CompletedTrips),
		CorrelationID: result.CorrelationID,
		Additional: map[string]any{
			"processed_count":   result.ProcessedCount,
			"error_count":       result.ErrorCount,
			"completed_trips":   result.CompletedTrips,
			"validation_errors": result.ValidationErrors,
			"archived_invalid":  result.ArchivedInvalid,
			"duration_ms":       time.Since(started).Milliseconds(),
		},
	})

	return result
}

// recordOutcome — вклад одной записи в сводку батча.
type recordOutcome struct {
	processed int
	failed    int
	completed int
	invalid   int
	archived  int
}

func (s *ProcessBatchService) processOne(ctx context.Context, rec domain.TransportRecord) (outcome recordOutcome) {
	correlationID := uuid.NewString()
	log := s.log.WithCorrelation(correlationID)

	meta := domain.Meta{
		SequenceNumber: rec.SequenceNumber,
		PartitionKey:   rec.PartitionKey,
		ArrivalTime:    rec.ArrivalTime,
	}

	// Паника одной записи не должна валить батч
	defer func() {
		if r := recover(); r != nil {
			err := fmt.Errorf("record processing panic: %v", r)
			metrics.TripEventErrorsTotal.WithLabelValues(string(domain.CategorySystem)).Inc()
			log.Error(logger.Entry{
				Action:  "record_panic",
				Message: err.Error(),
				Error:   &logger.ErrObj{Msg: err.Error()},
			})
			s.sendToDeadLetter(ctx, rec, meta, err, domain.CategorySystem, correlationID)
			outcome = recordOutcome{failed: 1}
		}
	}()

	metrics.TripEventsTotal.Inc()

	env, err := decode.Decode(rec)
	if err != nil {
		category := classify.Classify(err)
		metrics.TripEventErrorsTotal.WithLabelValues(string(category)).Inc()
		log.Error(logger.Entry{
			Action:  "record_decode_failed",
			Message: err.Error(),
			Error:   &logger.ErrObj{Msg: err.Error()},
			Additional: map[string]any{
				"error_category":  string(category),
				"sequence_number": rec.SequenceNumber,
			},
		})
		s.sendToDeadLetter(ctx, rec, meta, err, category, correlationID)
		return recordOutcome{failed: 1}
	}

	validation := validate.Schema(env.Fields)
	if validation.Valid {
		validation.Merge(s.rules.Check(env.Fields, env.Kind()))
	}

	if !validation.Valid {
		archived := s.archiveInvalid(ctx, env, meta, validation, correlationID, log)
		res := recordOutcome{invalid: 1, failed: 1}
		if archived {
			res.archived = 1
		}
		return res
	}

	if len(validation.Warnings) > 0 {
		log.Warn(logger.Entry{
			Action:  "record_validation_warnings",
			Message: fmt.Sprintf("%d warning(s)", len(validation.Warnings)),
			TripID:  env.TripID(),
			Additional: map[string]any{
				"warnings": validation.Warnings,
			},
		})
	}

	completed, err := s.merge(ctx, env)
	if err != nil {
		category := classify.Classify(err)
		metrics.TripEventErrorsTotal.WithLabelValues(string(category)).Inc()
		log.Error(logger.Entry{
			Action:  "record_merge_failed",
			Message: err.Error(),
			TripID:  env.TripID(),
			Error:   &logger.ErrObj{Msg: err.Error()},
			Additional: map[string]any{
				"error_category": string(category),
			},
		})
		// в dead-letter уходят только retry-кандидаты и poison;
		// остальные категории фиксируются счетчиком и логом
		if classify.Retryable(category) || category == domain.CategoryPoisonPill {
			s.sendToDeadLetter(ctx, rec, meta, err, category, correlationID)
		}
		return recordOutcome{failed: 1}
	}

	metrics.TripEventsProcessedTotal.Inc()

	res := recordOutcome{processed: 1}
	if completed {
		metrics.TripsCompletedTotal.Inc()
		log.Info(logger.Entry{
			Action:  "trip_completed",
			Message: "both halves reconciled",
			TripID:  env.TripID(),
		})
		res.completed = 1
	}

	return res
}

// merge применяет половину события к store и, если запись стала
// полной, пытается выполнить одноразовый completion-переход.
func (s *ProcessBatchService) merge(ctx context.Context, env domain.Envelope) (bool, error) {
	var (
		half    domain.Half
		payload any
	)

	switch env.Kind() {
	case domain.KindTripStart:
		data := domain.StartFromFields(env.Fields)
		half, payload = domain.HalfStart, &data
	case domain.KindTripEnd:
		data := domain.EndFromFields(env.Fields)
		half, payload = domain.HalfEnd, &data
	default:
		return false, fmt.Errorf("unroutable event type: %q", env.Kind())
	}

	rec, err := s.store.Merge(ctx, env.TripID(), half, payload)
	if err != nil {
		return false, err
	}

	if !rec.BothHalvesPresent() || rec.IsComplete {
		return false, nil
	}

	// Конкурентный воркер мог успеть первым: false здесь — не сбой,
	// просто completion засчитан другому
	return s.store.MarkComplete(ctx, env.TripID())
}

// archiveInvalid отправляет отклоненное событие в карантин.
// Сбой самого архиватора логируется, но не меняет классификацию
// события и не роняет запись в dead-letter.
func (s *ProcessBatchService) archiveInvalid(
	ctx context.Context,
	env domain.Envelope,
	meta domain.Meta,
	validation domain.ValidationOutcome,
	correlationID string,
	log *logger.ContextLogger,
) bool {
	metrics.TripEventErrorsTotal.WithLabelValues(string(domain.CategoryValidation)).Inc()

	log.Warn(logger.Entry{
		Action:  "record_rejected",
		Message: fmt.Sprintf("%d validation error(s)", len(validation.Errors)),
		TripID:  env.TripID(),
		Additional: map[string]any{
			"errors":   validation.Errors,
			"warnings": validation.Warnings,
		},
	})

	qRec := domain.QuarantineRecord{
		Timestamp:          time.Now().UTC().Format(time.RFC3339),
		CorrelationID:      correlationID,
		StreamMetadata:     meta,
		ValidationErrors:   validation.Errors,
		ValidationWarnings: validation.Warnings,
		OriginalPayload:    env.Fields,
		ErrorCategory:      domain.CategoryValidation,
	}

	if err := s.quarantine.Archive(ctx, qRec); err != nil {
		log.Error(logger.Entry{
			Action:  "quarantine_archive_failed",
			Message: err.Error(),
			TripID:  env.TripID(),
			Error:   &logger.ErrObj{Msg: err.Error()},
		})
		return false
	}

	metrics.TripEventsQuarantinedTotal.Inc()
	return true
}

func (s *ProcessBatchService) sendToDeadLetter(
	ctx context.Context,
	rec domain.TransportRecord,
	meta domain.Meta,
	cause error,
	category domain.Category,
	correlationID string,
) {
	msg := domain.DeadLetterMessage{
		OriginalRecord: rawRecord(rec.Body),
		ErrorDetails:   domain.NewErrorDetails(cause, category, meta, correlationID),
		RetryCount:     0,
		MaxRetries:     s.maxRetries,
		CorrelationID:  correlationID,
	}

	// Сбой dead-letter публикации логируется и глотается: он не должен
	// перекрыть исходную классификацию или остановить батч
	if err := s.deadLetter.Send(ctx, msg); err != nil {
		s.log.Error(logger.Entry{
			Action:        "dead_letter_send_failed",
			Message:       err.Error(),
			CorrelationID: correlationID,
			Error:         &logger.ErrObj{Msg: err.Error()},
		})
	}
}

// rawRecord сохраняет оригинальное тело как JSON: невалидный JSON
// оборачивается в строку, чтобы dead-letter сообщение осталось сериализуемым.
func rawRecord(body []byte) json.RawMessage {
	if json.Valid(body) {
		return json.RawMessage(body)
	}
	wrapped, _ := json.Marshal(string(body))
	return json.RawMessage(wrapped)
}
