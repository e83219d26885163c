package out

import (
	"context"

	"boltride/internal/pipeline/domain"
)

// QuarantineArchive — интерфейс долговременного хранилища отклоненных
// событий. Записи никогда не ретраятся и не возвращаются в пайплайн.
type QuarantineArchive interface {
	// Archive сохраняет диагностическую запись под time-partitioned ключом
	// invalid-data/date=YYYY-MM-DD/hour=HH/<correlation_id>
	Archive(ctx context.Context, rec domain.QuarantineRecord) error
}
