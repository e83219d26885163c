package repo

import (
	"context"
	"fmt"
	"sync"
	"time"

	out "boltride/internal/pipeline/application/ports/out"
	"boltride/internal/pipeline/domain"
)

// tripMemStore — in-memory store с той же merge-семантикой, что и
// Postgres-адаптер. Используется в локальном режиме и в тестах.
type tripMemStore struct {
	mu      sync.Mutex
	records map[string]*domain.TripRecord
	ttl     time.Duration
	now     func() time.Time
}

func NewTripMemStore(ttl time.Duration) out.TripStore {
	return &tripMemStore{
		records: make(map[string]*domain.TripRecord),
		ttl:     ttl,
		now:     time.Now,
	}
}

func (s *tripMemStore) Merge(_ context.Context, tripID string, half domain.Half, payload any) (domain.TripRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.records[tripID]
	if !ok {
		rec = &domain.TripRecord{
			TripID:     tripID,
			ExpiryTime: s.now().UTC().Add(s.ttl),
		}
		s.records[tripID] = rec
	}

	switch half {
	case domain.HalfStart:
		data, ok := payload.(*domain.StartData)
		if !ok {
			return domain.TripRecord{}, fmt.Errorf("merge trip start: payload is %T", payload)
		}
		copied := *data
		rec.StartData = &copied
	case domain.HalfEnd:
		data, ok := payload.(*domain.EndData)
		if !ok {
			return domain.TripRecord{}, fmt.Errorf("merge trip end: payload is %T", payload)
		}
		copied := *data
		rec.EndData = &copied
	default:
		return domain.TripRecord{}, fmt.Errorf("unknown trip half: %q", half)
	}

	return snapshot(rec), nil
}

// snapshot возвращает копию записи без общих указателей: изменение
// результата у вызывающей стороны не должно протекать внутрь store.
func snapshot(rec *domain.TripRecord) domain.TripRecord {
	res := *rec
	if rec.StartData != nil {
		data := *rec.StartData
		res.StartData = &data
	}
	if rec.EndData != nil {
		data := *rec.EndData
		res.EndData = &data
	}
	return res
}

func (s *tripMemStore) MarkComplete(_ context.Context, tripID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.records[tripID]
	if !ok || rec.IsComplete || !rec.BothHalvesPresent() {
		return false, nil
	}

	rec.IsComplete = true
	rec.CompletionTime = rec.EndData.DropoffTime
	rec.CompletionDate = domain.CompletionDateOf(rec.EndData.DropoffTime)
	return true, nil
}
