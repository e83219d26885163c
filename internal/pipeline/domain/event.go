package domain

import "time"

// EventKind — дискриминатор события жизненного цикла поездки.
type EventKind string

const (
	KindTripStart EventKind = "trip_start"
	KindTripEnd   EventKind = "trip_end"
)

// Half — какая половина поездки записывается в store.
type Half string

const (
	HalfStart Half = "start"
	HalfEnd   Half = "end"
)

// TransportRecord — сырая запись транспортного уровня до декодирования.
type TransportRecord struct {
	Body           []byte
	SequenceNumber string
	PartitionKey   string
	ArrivalTime    time.Time
}

// Meta — транспортные метаданные, сопровождающие событие по всему пайплайну.
type Meta struct {
	SequenceNumber string    `json:"sequence_number"`
	PartitionKey   string    `json:"partition_key"`
	ArrivalTime    time.Time `json:"arrival_timestamp"`
}

// Envelope — декодированное событие: нетипизированная карта полей + метаданные.
// Типизированный доступ к полям разрешен только после валидации.
type Envelope struct {
	Fields map[string]any
	Meta   Meta
}

// Kind returns the declared event_type discriminator, empty if absent or non-string.
func (e Envelope) Kind() EventKind {
	v, ok := e.Fields["event_type"].(string)
	if !ok {
		return ""
	}
	return EventKind(v)
}

// TripID returns the trip_id field, empty if absent or non-string.
func (e Envelope) TripID() string {
	v, _ := e.Fields["trip_id"].(string)
	return v
}

// StartData — типизированная половина trip_start.
type StartData struct {
	PickupLocationID  int     `json:"pickup_location_id"`
	DropoffLocationID int     `json:"dropoff_location_id"`
	VendorID          int     `json:"vendor_id"`
	PickupTime        string  `json:"pickup_time"`
	EstDropoffTime    string  `json:"estimated_dropoff_time"`
	EstimatedFare     float64 `json:"estimated_fare"`
}

// EndData — типизированная половина trip_end.
type EndData struct {
	DropoffTime    string  `json:"dropoff_time"`
	RateCode       int     `json:"rate_code"`
	PassengerCount int     `json:"passenger_count"`
	Distance       float64 `json:"distance"`
	Fare           float64 `json:"fare"`
	Tip            float64 `json:"tip"`
	PaymentType    int     `json:"payment_type"`
	TripType       int     `json:"trip_type"`
}

// StartFromFields builds StartData from a validated envelope.
// Callers must have run schema validation first: missing or mistyped
// fields come back as zero values here, never as panics.
func StartFromFields(fields map[string]any) StartData {
	return StartData{
		PickupLocationID:  intField(fields, "pickup_location_id"),
		DropoffLocationID: intField(fields, "dropoff_location_id"),
		VendorID:          intField(fields, "vendor_id"),
		PickupTime:        strField(fields, "pickup_time"),
		EstDropoffTime:    strField(fields, "estimated_dropoff_time"),
		EstimatedFare:     floatField(fields, "estimated_fare"),
	}
}

// EndFromFields builds EndData from a validated envelope.
func EndFromFields(fields map[string]any) EndData {
	return EndData{
		DropoffTime:    strField(fields, "dropoff_time"),
		RateCode:       intField(fields, "rate_code"),
		PassengerCount: intField(fields, "passenger_count"),
		Distance:       floatField(fields, "distance"),
		Fare:           floatField(fields, "fare"),
		Tip:            floatField(fields, "tip"),
		PaymentType:    intField(fields, "payment_type"),
		TripType:       intField(fields, "trip_type"),
	}
}

func strField(fields map[string]any, key string) string {
	v, _ := fields[key].(string)
	return v
}

func floatField(fields map[string]any, key string) float64 {
	switch v := fields[key].(type) {
	case float64:
		return v
	case int:
		return float64(v)
	}
	return 0
}

func intField(fields map[string]any, key string) int {
	return int(floatField(fields, key))
}
