package aggregate

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// PgRepository читает завершенные поездки и сохраняет дневные сводки.
type PgRepository struct {
	pool *pgxpool.Pool
}

func NewPgRepository(pool *pgxpool.Pool) *PgRepository {
	return &PgRepository{pool: pool}
}

// FaresByCompletionDate возвращает тарифы всех поездок, завершенных
// в указанную дату (YYYY-MM-DD). Partial-индекс по completion_date
// покрывает этот запрос.
func (r *PgRepository) FaresByCompletionDate(ctx context.Context, date string) ([]float64, error) {
	query := `
		SELECT (end_data->>'fare')::double precision
		FROM trips
		WHERE is_complete = TRUE AND completion_date = $1
	`

	rows, err := r.pool.Query(ctx, query, date)
	if err != nil {
		return nil, fmt.Errorf("query completed trips: %w", err)
	}
	defer rows.Close()

	var fares []float64
	for rows.Next() {
		var fare float64
		if err := rows.Scan(&fare); err != nil {
			return nil, fmt.Errorf("scan fare: %w", err)
		}
		fares = append(fares, fare)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate completed trips: %w", err)
	}

	return fares, nil
}

// UpsertDailyKPI сохраняет сводку за дату; повторный запуск за тот же
// день перезаписывает строку целиком.
func (r *PgRepository) UpsertDailyKPI(ctx context.Context, kpi DailyKPI) error {
	query := `
		INSERT INTO daily_kpis (kpi_date, total_fare, count_trips, average_fare, max_fare, min_fare, computed_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (kpi_date) DO UPDATE SET
			total_fare = EXCLUDED.total_fare,
			count_trips = EXCLUDED.count_trips,
			average_fare = EXCLUDED.average_fare,
			max_fare = EXCLUDED.max_fare,
			min_fare = EXCLUDED.min_fare,
			computed_at = EXCLUDED.computed_at
	`

	_, err := r.pool.Exec(ctx, query,
		kpi.Date,
		kpi.TotalFare,
		kpi.CountTrips,
		kpi.AverageFare,
		kpi.MaxFare,
		kpi.MinFare,
		time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("upsert daily kpi: %w", err)
	}

	return nil
}
