package aggregate

import (
	"context"
	"fmt"
	"time"

	"boltride/internal/shared/logger"
)

// Service — batch job дневной агрегации.
type Service struct {
	repo *PgRepository
	log  *logger.Logger
}

func NewService(repo *PgRepository, log *logger.Logger) *Service {
	return &Service{repo: repo, log: log}
}

// Run считает и сохраняет KPI за указанную дату.
// Пустая дата означает вчера (job гоняется по расписанию после полуночи).
func (s *Service) Run(ctx context.Context, date string) (DailyKPI, error) {
	if date == "" {
		date = time.Now().UTC().AddDate(0, 0, -1).Format("2006-01-02")
	}

	if _, err := time.Parse("2006-01-02", date); err != nil {
		return DailyKPI{}, fmt.Errorf("invalid date %q: expected YYYY-MM-DD", date)
	}

	s.log.Info(logger.Entry{
		Action:  "aggregation_started",
		Message: fmt.Sprintf("computing KPIs for %s", date),
		Additional: map[string]any{
			"date": date,
		},
	})

	fares, err := s.repo.FaresByCompletionDate(ctx, date)
	if err != nil {
		return DailyKPI{}, fmt.Errorf("load completed trips: %w", err)
	}

	kpi := Compute(date, fares)

	if err := s.repo.UpsertDailyKPI(ctx, kpi); err != nil {
		return DailyKPI{}, fmt.Errorf("save daily kpi: %w", err)
	}

	s.log.Info(logger.Entry{
		Action:  "aggregation_finished",
		Message: fmt.Sprintf("KPIs for %s: %d trips, total fare %.2f", date, kpi.CountTrips, kpi.TotalFare),
		Additional: map[string]any{
			"date":         kpi.Date,
			"total_fare":   kpi.TotalFare,
			"count_trips":  kpi.CountTrips,
			"average_fare": kpi.AverageFare,
			"max_fare":     kpi.MaxFare,
			"min_fare":     kpi.MinFare,
		},
	})

	return kpi, nil
}
