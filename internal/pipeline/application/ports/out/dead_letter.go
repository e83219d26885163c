package out

import (
	"context"

	"boltride/internal/pipeline/domain"
)

// DeadLetterQueue — интерфейс retry-очереди для transient/system сбоев.
// POISON_PILL тоже уходит сюда, но помечается отдельно и не ретраится.
type DeadLetterQueue interface {
	// Send публикует сообщение с оригинальной записью и контекстом сбоя
	Send(ctx context.Context, msg domain.DeadLetterMessage) error
}
