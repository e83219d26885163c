package repo

import (
	"context"
	"fmt"
	"time"

	out "boltride/internal/pipeline/application/ports/out"
	"boltride/internal/pipeline/domain"

	"github.com/jackc/pgx/v5/pgxpool"
)

type tripPgStore struct {
	pool *pgxpool.Pool
	ttl  time.Duration
}

func NewTripPgStore(pool *pgxpool.Pool, ttl time.Duration) out.TripStore {
	return &tripPgStore{pool: pool, ttl: ttl}
}

// Merge — один atomic upsert: вставка создает запись и выставляет
// expiry_time, конфликт перезаписывает только свою половину.
// expiry_time после вставки больше никогда не трогается.
func (s *tripPgStore) Merge(ctx context.Context, tripID string, half domain.Half, payload any) (domain.TripRecord, error) {
	var column string
	switch half {
	case domain.HalfStart:
		column = "start_data"
	case domain.HalfEnd:
		column = "end_data"
	default:
		return domain.TripRecord{}, fmt.Errorf("unknown trip half: %q", half)
	}

	query := fmt.Sprintf(`
		INSERT INTO trips (trip_id, %s, expiry_time)
		VALUES ($1, $2, $3)
		ON CONFLICT (trip_id) DO UPDATE SET %s = EXCLUDED.%s
		RETURNING trip_id, start_data, end_data, is_complete,
		          COALESCE(completion_time, ''), COALESCE(completion_date, ''), expiry_time
	`, column, column, column)

	var rec domain.TripRecord

	err := s.pool.QueryRow(ctx, query, tripID, payload, time.Now().UTC().Add(s.ttl)).Scan(
		&rec.TripID,
		&rec.StartData,
		&rec.EndData,
		&rec.IsComplete,
		&rec.CompletionTime,
		&rec.CompletionDate,
		&rec.ExpiryTime,
	)
	if err != nil {
		return domain.TripRecord{}, fmt.Errorf("merge trip %s half: %w", half, err)
	}

	return rec, nil
}

// MarkComplete — условный одноразовый переход. Конкурентные воркеры,
// увидевшие обе половины, выполняют один и тот же UPDATE, но
// RowsAffected > 0 будет ровно у одного.
func (s *tripPgStore) MarkComplete(ctx context.Context, tripID string) (bool, error) {
	query := `
		UPDATE trips
		SET is_complete = TRUE,
		    completion_time = end_data->>'dropoff_time',
		    completion_date = left(end_data->>'dropoff_time', 10)
		WHERE trip_id = $1
		  AND is_complete = FALSE
		  AND start_data IS NOT NULL
		  AND end_data IS NOT NULL
	`

	result, err := s.pool.Exec(ctx, query, tripID)
	if err != nil {
		return false, fmt.Errorf("mark trip complete: %w", err)
	}

	return result.RowsAffected() > 0, nil
}
