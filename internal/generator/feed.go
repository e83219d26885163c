package generator

import (
	"encoding/csv"
	"fmt"
	"math/rand"
	"os"
	"strconv"
)

// Feed — источник событий из пары CSV файлов (trip_start / trip_end).
//
// Выборка идет без возвращения: каждая строка отправляется ровно один
// раз, feed исчерпывается полностью. Пока доступны оба типа, старты
// предпочитаются с вероятностью 70% — оставшиеся 30% дают реалистичный
// out-of-order поток, где trip_end приходит раньше своего trip_start.
type Feed struct {
	starts []map[string]any
	ends   []map[string]any

	originalStarts int
	originalEnds   int

	rng *rand.Rand
}

// числовые колонки каждого вида; остальные остаются строками
var startNumericColumns = map[string]bool{
	"pickup_location_id":  true,
	"dropoff_location_id": true,
	"vendor_id":           true,
	"estimated_fare":      true,
}

var endNumericColumns = map[string]bool{
	"rate_code":       true,
	"passenger_count": true,
	"distance":        true,
	"fare":            true,
	"tip":             true,
	"payment_type":    true,
	"trip_type":       true,
}

// LoadFeed читает оба CSV файла в память.
func LoadFeed(startPath, endPath string, seed int64) (*Feed, error) {
	starts, err := loadCSV(startPath, "trip_start", startNumericColumns)
	if err != nil {
		return nil, fmt.Errorf("load trip_start csv: %w", err)
	}

	ends, err := loadCSV(endPath, "trip_end", endNumericColumns)
	if err != nil {
		return nil, fmt.Errorf("load trip_end csv: %w", err)
	}

	return &Feed{
		starts:         starts,
		ends:           ends,
		originalStarts: len(starts),
		originalEnds:   len(ends),
		rng:            rand.New(rand.NewSource(seed)),
	}, nil
}

// Next возвращает следующее событие, либо false когда feed исчерпан.
func (f *Feed) Next() (map[string]any, bool) {
	startsLeft := len(f.starts) > 0
	endsLeft := len(f.ends) > 0

	switch {
	case !startsLeft && !endsLeft:
		return nil, false
	case startsLeft && !endsLeft:
		return f.popStart(), true
	case endsLeft && !startsLeft:
		return f.popEnd(), true
	}

	if f.rng.Float64() < 0.7 {
		return f.popStart(), true
	}
	return f.popEnd(), true
}

func (f *Feed) popStart() map[string]any {
	i := f.rng.Intn(len(f.starts))
	row := f.starts[i]
	f.starts[i] = f.starts[len(f.starts)-1]
	f.starts = f.starts[:len(f.starts)-1]
	return row
}

func (f *Feed) popEnd() map[string]any {
	i := f.rng.Intn(len(f.ends))
	row := f.ends[i]
	f.ends[i] = f.ends[len(f.ends)-1]
	f.ends = f.ends[:len(f.ends)-1]
	return row
}

// Remaining возвращает количество неотправленных записей по типам.
func (f *Feed) Remaining() (starts, ends int) {
	return len(f.starts), len(f.ends)
}

// Original возвращает изначальные размеры feed-а.
func (f *Feed) Original() (starts, ends int) {
	return f.originalStarts, f.originalEnds
}

// loadCSV превращает CSV в список событий с проставленным event_type.
// Числовые колонки приводятся к float64, чтобы JSON на проводе выглядел
// так же, как у живых продьюсеров.
func loadCSV(path, eventType string, numeric map[string]bool) ([]map[string]any, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	reader := csv.NewReader(f)
	rows, err := reader.ReadAll()
	if err != nil {
		return nil, err
	}
	if len(rows) < 1 {
		return nil, fmt.Errorf("%s: empty file", path)
	}

	header := rows[0]
	events := make([]map[string]any, 0, len(rows)-1)

	for lineNo, row := range rows[1:] {
		if len(row) != len(header) {
			return nil, fmt.Errorf("%s: line %d has %d columns, expected %d",
				path, lineNo+2, len(row), len(header))
		}

		event := map[string]any{"event_type": eventType}
		for i, col := range header {
			if numeric[col] {
				n, err := strconv.ParseFloat(row[i], 64)
				if err != nil {
					return nil, fmt.Errorf("%s: line %d column %s: %w", path, lineNo+2, col, err)
				}
				event[col] = n
			} else {
				event[col] = row[i]
			}
		}
		events = append(events, event)
	}

	return events, nil
}
