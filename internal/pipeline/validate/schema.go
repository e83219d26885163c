package validate

import (
	"fmt"
	"strconv"

	"boltride/internal/pipeline/domain"
)

// fieldType — допустимое JSON-представление поля.
type fieldType int

const (
	stringField fieldType = iota
	numberField
)

func (t fieldType) String() string {
	if t == stringField {
		return "string"
	}
	return "number"
}

// valueRange — инклюзивные границы числового поля.
type valueRange struct {
	min, max float64
}

// kindSchema — статический контракт полей одного вида события.
type kindSchema struct {
	required []string
	types    map[string]fieldType
	ranges   map[string]valueRange
}

var tripStartSchema = kindSchema{
	required: []string{
		"trip_id", "pickup_location_id", "dropoff_location_id", "vendor_id",
		"pickup_time", "estimated_dropoff_time", "estimated_fare",
	},
	types: map[string]fieldType{
		"trip_id":                stringField,
		"pickup_location_id":     numberField,
		"dropoff_location_id":    numberField,
		"vendor_id":              numberField,
		"pickup_time":            stringField,
		"estimated_dropoff_time": stringField,
		"estimated_fare":         numberField,
	},
	ranges: map[string]valueRange{
		"pickup_location_id":  {1, 500},
		"dropoff_location_id": {1, 500},
		"vendor_id":           {1, 10},
		"estimated_fare":      {0.01, 1000.0},
	},
}

var tripEndSchema = kindSchema{
	required: []string{
		"trip_id", "dropoff_time", "rate_code", "passenger_count",
		"distance", "fare", "tip", "payment_type", "trip_type",
	},
	types: map[string]fieldType{
		"trip_id":         stringField,
		"dropoff_time":    stringField,
		"rate_code":       numberField,
		"passenger_count": numberField,
		"distance":        numberField,
		"fare":            numberField,
		"tip":             numberField,
		"payment_type":    numberField,
		"trip_type":       numberField,
	},
	ranges: map[string]valueRange{
		"rate_code":       {1, 10},
		"passenger_count": {0, 8},
		"distance":        {0, 100},
		"fare":            {0.01, 1000},
		"tip":             {0, 200},
		"payment_type":    {1, 5},
		"trip_type":       {1, 3},
	},
}

// Schema проверяет событие по статическому контракту его вида.
// Все проверки выполняются без short-circuit, чтобы один прогон
// вернул все нарушения сразу. Исключение — неизвестный event_type.
func Schema(fields map[string]any) domain.ValidationOutcome {
	outcome := domain.NewValidationOutcome()

	// (a) структурная проверка
	if fields == nil {
		outcome.AddError(domain.IssueStructureError, "Payload must be a JSON object", "root")
		return outcome
	}

	kindVal, present := fields["event_type"]
	kindStr, isString := kindVal.(string)
	if !present || !isString || kindStr == "" {
		outcome.AddError(domain.IssueMissingField, "Missing required field: event_type", "event_type")
		return outcome
	}

	var schema kindSchema
	switch domain.EventKind(kindStr) {
	case domain.KindTripStart:
		schema = tripStartSchema
	case domain.KindTripEnd:
		schema = tripEndSchema
	default:
		outcome.AddError(domain.IssueInvalidEventType,
			fmt.Sprintf("Unknown event type: %s", kindStr), "event_type")
		return outcome
	}

	// (b) обязательные поля
	for _, field := range schema.required {
		if _, ok := fields[field]; !ok {
			outcome.AddError(domain.IssueMissingField,
				fmt.Sprintf("Missing required field: %s", field), field)
		}
	}

	// (c) типы
	for field, want := range schema.types {
		value, ok := fields[field]
		if !ok {
			continue
		}
		if !typeMatches(value, want) {
			outcome.AddError(domain.IssueTypeError,
				fmt.Sprintf("Field %s has invalid type. Expected: %s, Got: %T", field, want, value),
				field)
		}
	}

	// (d) числовые диапазоны
	for field, bounds := range schema.ranges {
		value, ok := fields[field]
		if !ok {
			continue
		}
		num, ok := toFloat(value)
		if !ok {
			outcome.AddWarning(domain.IssueRangeCheckFailed,
				fmt.Sprintf("Could not validate range for field %s", field), field)
			continue
		}
		if num < bounds.min || num > bounds.max {
			outcome.AddError(domain.IssueRangeError,
				fmt.Sprintf("Field %s value %v is outside valid range [%v, %v]",
					field, num, bounds.min, bounds.max),
				field)
		}
	}

	return outcome
}

func typeMatches(value any, want fieldType) bool {
	switch want {
	case stringField:
		_, ok := value.(string)
		return ok
	case numberField:
		switch value.(type) {
		case float64, int:
			return true
		}
	}
	return false
}

// toFloat mirrors a lenient numeric coercion: JSON numbers pass through,
// numeric strings parse, everything else fails the range evaluation.
func toFloat(value any) (float64, bool) {
	switch v := value.(type) {
	case float64:
		return v, true
	case int:
		return float64(v), true
	case string:
		n, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return 0, false
		}
		return n, true
	}
	return 0, false
}
