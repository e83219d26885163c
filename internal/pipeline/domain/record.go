package domain

import "time"

// TripRecord — единица состояния reconciliation store, ключ trip_id.
//
// Инварианты:
//   - trip_id не меняется после первой записи
//   - expiry_time выставляется первой записью и больше не обновляется
//   - is_complete переходит false→true не более одного раза,
//     и только когда обе половины присутствуют
//   - повторная запись половины перезаписывает её целиком (last-writer-wins)
type TripRecord struct {
	TripID         string     `json:"trip_id"`
	StartData      *StartData `json:"start_data,omitempty"`
	EndData        *EndData   `json:"end_data,omitempty"`
	IsComplete     bool       `json:"is_complete"`
	CompletionTime string     `json:"completion_time,omitempty"`
	CompletionDate string     `json:"completion_date,omitempty"`
	ExpiryTime     time.Time  `json:"expiry_time"`
}

// BothHalvesPresent reports whether the record holds start and end data.
func (r TripRecord) BothHalvesPresent() bool {
	return r.StartData != nil && r.EndData != nil
}

// CompletionDateOf derives the YYYY-MM-DD prefix of a dropoff timestamp.
func CompletionDateOf(completionTime string) string {
	if len(completionTime) < 10 {
		return completionTime
	}
	return completionTime[:10]
}
