package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/andresuchdata/distroflow/internal/domain"
)

const (
	phaseBaseline = "baseline"
	phaseFollowup = "followup"
)

// VisitRepository reads completed field visits and the account depletions
// around them.
type VisitRepository interface {
	ListVisitWindows(ctx context.Context, filter domain.VisitFilter) ([]domain.VisitWindow, error)
}

type visitRepository struct {
	db *sqlx.DB
}

func NewVisitRepository(db *sqlx.DB) VisitRepository {
	return &visitRepository{db: db}
}

type visitRow struct {
	TaskID      string    `db:"task_id"`
	AccountCode string    `db:"account_code"`
	AccountName string    `db:"account_name"`
	RepName     string    `db:"rep_name"`
	VisitDate   time.Time `db:"visit_date"`
	Phase       *string   `db:"phase"`
	ProductCode *string   `db:"product_code"`
	Quantity    *float64  `db:"quantity"`
	Days        *float64  `db:"depletion_days"`
	Depletions  int       `db:"depletions"`
}

// ListVisitWindows returns visits whose follow-up window has fully elapsed,
// each with per-product volumes before and after the visit day.
func (r *visitRepository) ListVisitWindows(ctx context.Context, filter domain.VisitFilter) ([]domain.VisitWindow, error) {
	query, args := buildVisitQuery(filter)

	var rows []visitRow
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("error getting visit windows: %w", err)
	}

	return groupVisitRows(rows), nil
}

func buildVisitQuery(filter domain.VisitFilter) (string, []interface{}) {
	query := `
        WITH anchor AS (
            SELECT
                v.task_id,
                v.account_code,
                COALESCE(a.name, v.account_code) AS account_name,
                v.rep_name,
                v.visit_date
            FROM visits v
            LEFT JOIN accounts a ON a.code = v.account_code
            WHERE v.visit_date >= CURRENT_DATE - ($1::int + $3::int)
                AND v.visit_date <= CURRENT_DATE - $3::int
    `

	args := []interface{}{filter.DaysBack, filter.BaselineDays, filter.FollowupDays}
	if filter.RepName != "" {
		query += " AND v.rep_name = $4"
		args = append(args, filter.RepName)
	}

	query += `
        )
        SELECT
            an.task_id,
            an.account_code,
            an.account_name,
            an.rep_name,
            an.visit_date,
            CASE WHEN s.transaction_date < an.visit_date THEN 'baseline' ELSE 'followup' END AS phase,
            s.product_code,
            SUM(s.quantity) AS quantity,
            SUM(s.transaction_date - an.visit_date) AS depletion_days,
            COUNT(s.transaction_date) AS depletions
        FROM anchor an
        LEFT JOIN account_depletions s
            ON s.account_code = an.account_code
            AND s.transaction_date >= an.visit_date - $2::int
            AND s.transaction_date <= an.visit_date + $3::int
            AND s.transaction_date <> an.visit_date
        GROUP BY an.task_id, an.account_code, an.account_name, an.rep_name, an.visit_date, phase, s.product_code
        ORDER BY an.visit_date, an.task_id
    `

	return query, args
}

// groupVisitRows folds product rows into one window per visit, keeping the
// order rows arrive in.
func groupVisitRows(rows []visitRow) []domain.VisitWindow {
	index := make(map[string]int)
	var windows []domain.VisitWindow

	for _, row := range rows {
		i, ok := index[row.TaskID]
		if !ok {
			i = len(windows)
			index[row.TaskID] = i
			windows = append(windows, domain.VisitWindow{
				TaskID:      row.TaskID,
				AccountCode: row.AccountCode,
				AccountName: row.AccountName,
				RepName:     row.RepName,
				VisitDate:   row.VisitDate,
				Baseline:    map[string]float64{},
				Followup:    map[string]float64{},
			})
		}

		if row.ProductCode == nil || row.Quantity == nil || row.Phase == nil {
			continue
		}

		switch *row.Phase {
		case phaseBaseline:
			windows[i].Baseline[*row.ProductCode] += *row.Quantity
		case phaseFollowup:
			windows[i].Followup[*row.ProductCode] += *row.Quantity
			windows[i].Depletions += row.Depletions
			if row.Days != nil {
				windows[i].DepletionDays += *row.Days
			}
		}
	}

	return windows
}
