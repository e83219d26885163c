package out

import (
	"context"

	"boltride/internal/pipeline/domain"
)

// TripStore — интерфейс reconciliation store для записей поездок.
//
// Merge — единственная точка синхронизации между половинами одной
// поездки: обе стороны могут прийти в любом порядке, из разных батчей
// и из конкурентных worker-ов.
type TripStore interface {
	// Merge атомарно применяет одну половину к записи trip_id:
	// создает запись при отсутствии, выставляет expiry_time только
	// если он не выставлен, и возвращает запись после слияния.
	// payload — *domain.StartData для HalfStart, *domain.EndData для HalfEnd.
	Merge(ctx context.Context, tripID string, half domain.Half, payload any) (domain.TripRecord, error)

	// MarkComplete выполняет одноразовый переход is_complete=false→true,
	// только если обе половины присутствуют. Возвращает true ровно один
	// раз за жизнь записи.
	MarkComplete(ctx context.Context, tripID string) (bool, error)
}
