package aggregate

import "math"

// DailyKPI — дневная сводка по завершенным поездкам.
type DailyKPI struct {
	Date        string  `json:"date"`
	TotalFare   float64 `json:"total_fare"`
	CountTrips  int     `json:"count_trips"`
	AverageFare float64 `json:"average_fare"`
	MaxFare     float64 `json:"max_fare"`
	MinFare     float64 `json:"min_fare"`
}

// Compute сворачивает тарифы завершенных поездок одной даты в KPI.
// Пустой день дает нулевую сводку, а не ошибку: отсутствие поездок —
// валидный результат.
func Compute(date string, fares []float64) DailyKPI {
	kpi := DailyKPI{Date: date}

	if len(fares) == 0 {
		return kpi
	}

	kpi.CountTrips = len(fares)
	kpi.MaxFare = fares[0]
	kpi.MinFare = fares[0]

	for _, fare := range fares {
		kpi.TotalFare += fare
		if fare > kpi.MaxFare {
			kpi.MaxFare = fare
		}
		if fare < kpi.MinFare {
			kpi.MinFare = fare
		}
	}

	kpi.TotalFare = round2(kpi.TotalFare)
	kpi.AverageFare = round2(kpi.TotalFare / float64(kpi.CountTrips))

	return kpi
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
