package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"

	"github.com/andresuchdata/distroflow/internal/domain"
)

const daysPerWeek = 7.0

// InventoryRepository reads distributor activity from the warehouse.
type InventoryRepository interface {
	ListDistributorAggregates(ctx context.Context, filter domain.InventoryFilter) ([]domain.DistributorAggregate, error)
	GetDepletionHistory(ctx context.Context, distributorCodes []string, weeks int) (map[string][]float64, error)
	GetWeeklySeries(ctx context.Context, filter domain.ForecastFilter) ([]domain.TimeSeriesRecord, error)
	ListProductAggregates(ctx context.Context, distributorCode string, lookbackDays int) ([]domain.ProductAggregate, error)
}

type inventoryRepository struct {
	db *sqlx.DB
}

func NewInventoryRepository(db *sqlx.DB) InventoryRepository {
	return &inventoryRepository{db: db}
}

type aggregateRow struct {
	DistributorCode string          `db:"distributor_code"`
	DistributorName string          `db:"distributor_name"`
	OrderedQty      float64         `db:"ordered_qty"`
	OrderedValue    decimal.Decimal `db:"ordered_value"`
	DepletedQty     float64         `db:"depleted_qty"`
}

func (r *inventoryRepository) ListDistributorAggregates(ctx context.Context, filter domain.InventoryFilter) ([]domain.DistributorAggregate, error) {
	query, args := buildAggregateQuery(filter)

	var rows []aggregateRow
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("error getting distributor aggregates: %w", err)
	}

	weeks := float64(filter.LookbackDays) / daysPerWeek
	out := make([]domain.DistributorAggregate, 0, len(rows))
	for _, row := range rows {
		agg := domain.DistributorAggregate{
			DistributorCode: row.DistributorCode,
			DistributorName: row.DistributorName,
			OrderedQty:      row.OrderedQty,
			OrderedValue:    row.OrderedValue.InexactFloat64(),
			DepletedQty:     row.DepletedQty,
		}
		if weeks > 0 {
			agg.WeeklyDepletionRate = row.DepletedQty / weeks
		}
		out = append(out, agg)
	}

	return out, nil
}

func buildAggregateQuery(filter domain.InventoryFilter) (string, []interface{}) {
	query := `
        SELECT
            d.code AS distributor_code,
            d.name AS distributor_name,
            COALESCE(SUM(f.ordered_qty), 0) AS ordered_qty,
            COALESCE(SUM(f.ordered_value), 0) AS ordered_value,
            COALESCE(SUM(f.depleted_qty), 0) AS depleted_qty
        FROM distributors d
        LEFT JOIN weekly_distributor_facts f
            ON f.distributor_code = d.code
            AND f.week_start >= CURRENT_DATE - $1::int
        WHERE 1=1
    `

	args := []interface{}{filter.LookbackDays}
	var conditions []string
	argCounter := 2

	if len(filter.DistributorCodes) > 0 {
		conditions = append(conditions, fmt.Sprintf("d.code = ANY($%d::text[])", argCounter))
		args = append(args, pq.Array(filter.DistributorCodes))
		argCounter++
	}

	if len(conditions) > 0 {
		query += " AND " + strings.Join(conditions, " AND ")
	}

	query += " GROUP BY d.code, d.name ORDER BY ordered_value DESC, d.code"

	return query, args
}

type historyRow struct {
	DistributorCode string    `db:"distributor_code"`
	WeekStart       time.Time `db:"week_start"`
	DepletedQty     float64   `db:"depleted_qty"`
}

// GetDepletionHistory returns the last complete weeks of depletion per
// distributor, oldest first, with missing weeks as zero.
func (r *inventoryRepository) GetDepletionHistory(ctx context.Context, distributorCodes []string, weeks int) (map[string][]float64, error) {
	if len(distributorCodes) == 0 || weeks <= 0 {
		return map[string][]float64{}, nil
	}

	query := `
        WITH weeks AS (
            SELECT generate_series(
                date_trunc('week', CURRENT_DATE) - $2::int * INTERVAL '1 week',
                date_trunc('week', CURRENT_DATE) - INTERVAL '1 week',
                INTERVAL '1 week'
            )::date AS week_start
        )
        SELECT
            c.code AS distributor_code,
            w.week_start,
            COALESCE(SUM(f.depleted_qty), 0) AS depleted_qty
        FROM unnest($1::text[]) AS c(code)
        CROSS JOIN weeks w
        LEFT JOIN weekly_distributor_facts f
            ON f.distributor_code = c.code
            AND f.week_start = w.week_start
        GROUP BY c.code, w.week_start
        ORDER BY c.code, w.week_start
    `

	var rows []historyRow
	if err := r.db.SelectContext(ctx, &rows, query, pq.Array(distributorCodes), weeks); err != nil {
		return nil, fmt.Errorf("error getting depletion history: %w", err)
	}

	history := make(map[string][]float64, len(distributorCodes))
	for _, row := range rows {
		history[row.DistributorCode] = append(history[row.DistributorCode], row.DepletedQty)
	}

	return history, nil
}

type seriesRow struct {
	PeriodStart  time.Time       `db:"period_start"`
	OrderedQty   float64         `db:"ordered_qty"`
	OrderedValue decimal.Decimal `db:"ordered_value"`
	DepletedQty  float64         `db:"depleted_qty"`
}

// GetWeeklySeries returns populated weeks only; gap filling is left to the
// engine so it can count populated periods.
func (r *inventoryRepository) GetWeeklySeries(ctx context.Context, filter domain.ForecastFilter) ([]domain.TimeSeriesRecord, error) {
	query, args := buildSeriesQuery(filter)

	var rows []seriesRow
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("error getting weekly series: %w", err)
	}

	records := make([]domain.TimeSeriesRecord, 0, len(rows))
	for _, row := range rows {
		records = append(records, domain.TimeSeriesRecord{
			PeriodStart:  row.PeriodStart,
			OrderedQty:   row.OrderedQty,
			OrderedValue: row.OrderedValue.InexactFloat64(),
			DepletedQty:  row.DepletedQty,
		})
	}

	return records, nil
}

func buildSeriesQuery(filter domain.ForecastFilter) (string, []interface{}) {
	query := `
        SELECT
            f.week_start AS period_start,
            SUM(f.ordered_qty) AS ordered_qty,
            SUM(f.ordered_value) AS ordered_value,
            SUM(f.depleted_qty) AS depleted_qty
        FROM weekly_distributor_facts f
        WHERE f.week_start >= date_trunc('week', CURRENT_DATE) - $1::int * INTERVAL '1 week'
            AND f.week_start < date_trunc('week', CURRENT_DATE)
    `

	args := []interface{}{filter.Weeks}
	if filter.DistributorCode != "" {
		query += " AND f.distributor_code = $2"
		args = append(args, filter.DistributorCode)
	}

	query += " GROUP BY f.week_start ORDER BY f.week_start"

	return query, args
}

type productRow struct {
	DistributorCode string  `db:"distributor_code"`
	ProductCode     string  `db:"product_code"`
	OrderedQty      float64 `db:"ordered_qty"`
	DepletedQty     float64 `db:"depleted_qty"`
	ActiveWeeks     int     `db:"active_weeks"`
}

// ListProductAggregates returns per-product activity of one distributor over
// the trailing window, highest depletion first.
func (r *inventoryRepository) ListProductAggregates(ctx context.Context, distributorCode string, lookbackDays int) ([]domain.ProductAggregate, error) {
	query, args := buildProductQuery(distributorCode, lookbackDays)

	var rows []productRow
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("error getting product aggregates: %w", err)
	}

	weeks := float64(lookbackDays) / daysPerWeek
	out := make([]domain.ProductAggregate, 0, len(rows))
	for _, row := range rows {
		agg := domain.ProductAggregate{
			DistributorCode: row.DistributorCode,
			ProductCode:     row.ProductCode,
			OrderedQty:      row.OrderedQty,
			DepletedQty:     row.DepletedQty,
			ActiveWeeks:     row.ActiveWeeks,
		}
		if weeks > 0 {
			agg.WeeklyDepletionRate = row.DepletedQty / weeks
		}
		out = append(out, agg)
	}

	return out, nil
}

func buildProductQuery(distributorCode string, lookbackDays int) (string, []interface{}) {
	query := `
        SELECT
            f.distributor_code,
            f.product_code,
            SUM(f.ordered_qty) AS ordered_qty,
            SUM(f.depleted_qty) AS depleted_qty,
            COUNT(*) FILTER (WHERE f.depleted_qty > 0) AS active_weeks
        FROM weekly_distributor_facts f
        WHERE f.distributor_code = $1
            AND f.week_start >= CURRENT_DATE - $2::int
        GROUP BY f.distributor_code, f.product_code
        ORDER BY depleted_qty DESC, f.product_code
    `

	return query, []interface{}{distributorCode, lookbackDays}
}
