package repo

import (
	"context"
	"fmt"
	"time"

	out "boltride/internal/pipeline/application/ports/out"
	"boltride/internal/pipeline/domain"

	"github.com/jackc/pgx/v5/pgxpool"
)

type quarantinePgArchive struct {
	pool *pgxpool.Pool
	now  func() time.Time
}

func NewQuarantinePgArchive(pool *pgxpool.Pool) out.QuarantineArchive {
	return &quarantinePgArchive{pool: pool, now: time.Now}
}

// Archive — запись под time-partitioned ключом, чтобы ручной разбор
// карантина мог ходить по префиксу даты/часа.
func (a *quarantinePgArchive) Archive(ctx context.Context, rec domain.QuarantineRecord) error {
	now := a.now().UTC()
	archiveKey := fmt.Sprintf("invalid-data/date=%s/hour=%02d/%s",
		now.Format("2006-01-02"), now.Hour(), rec.CorrelationID)

	eventType, _ := rec.OriginalPayload["event_type"].(string)

	query := `
		INSERT INTO quarantine_events (archive_key, correlation_id, archived_at, event_type, error_category, payload, diagnostics)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (archive_key) DO NOTHING
	`

	_, err := a.pool.Exec(ctx, query,
		archiveKey,
		rec.CorrelationID,
		now,
		eventType,
		string(rec.ErrorCategory),
		rec.OriginalPayload,
		rec,
	)
	if err != nil {
		return fmt.Errorf("archive quarantine record: %w", err)
	}

	return nil
}
