package decode

import (
	"encoding/json"

	"boltride/internal/pipeline/domain"
)

// Decode превращает транспортную запись в envelope с метаданными.
// Ошибка парсинга возвращается как *domain.DecodeError (SCHEMA_ERROR).
// Валидный JSON, который не является объектом, проходит дальше с
// nil Fields — структурную проверку делает schema validator.
func Decode(rec domain.TransportRecord) (domain.Envelope, error) {
	var payload any
	if err := json.Unmarshal(rec.Body, &payload); err != nil {
		return domain.Envelope{}, &domain.DecodeError{Cause: err}
	}

	fields, _ := payload.(map[string]any)

	return domain.Envelope{
		Fields: fields,
		Meta: domain.Meta{
			SequenceNumber: rec.SequenceNumber,
			PartitionKey:   rec.PartitionKey,
			ArrivalTime:    rec.ArrivalTime,
		},
	}, nil
}
