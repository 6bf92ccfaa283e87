package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/andresuchdata/distroflow/internal/domain"
)

// TxRunner runs a function inside a database transaction.
type TxRunner interface {
	WithTx(ctx context.Context, fn func(tx *sql.Tx) error) error
}

type IngestRepository struct {
	db TxRunner
}

func NewIngestRepository(db TxRunner) *IngestRepository {
	return &IngestRepository{db: db}
}

// UpsertWeeklyFacts writes imported rows in one transaction, registering
// unknown distributors on the way. It returns the number of rows written.
func (r *IngestRepository) UpsertWeeklyFacts(ctx context.Context, facts []domain.WeeklyFact) (int, error) {
	var written int

	err := r.db.WithTx(ctx, func(tx *sql.Tx) error {
		distributorStmt, err := tx.PrepareContext(ctx, `
			INSERT INTO distributors (code, name, updated_at)
			VALUES ($1, $2, NOW())
			ON CONFLICT (code)
			DO UPDATE SET
				name = COALESCE(NULLIF(EXCLUDED.name, ''), distributors.name),
				updated_at = NOW()
		`)
		if err != nil {
			return fmt.Errorf("failed to prepare distributor upsert: %w", err)
		}
		defer distributorStmt.Close()

		factStmt, err := tx.PrepareContext(ctx, `
			INSERT INTO weekly_distributor_facts (
				week_start, distributor_code, product_code,
				ordered_qty, ordered_value, depleted_qty, updated_at
			) VALUES ($1, $2, $3, $4, $5, $6, NOW())
			ON CONFLICT (week_start, distributor_code, product_code) DO UPDATE SET
				ordered_qty = EXCLUDED.ordered_qty,
				ordered_value = EXCLUDED.ordered_value,
				depleted_qty = EXCLUDED.depleted_qty,
				updated_at = NOW()
		`)
		if err != nil {
			return fmt.Errorf("failed to prepare weekly fact upsert: %w", err)
		}
		defer factStmt.Close()

		seen := make(map[string]bool)
		for _, f := range facts {
			if !seen[f.DistributorCode] {
				if _, err := distributorStmt.ExecContext(ctx, f.DistributorCode, f.DistributorName); err != nil {
					return fmt.Errorf("failed to upsert distributor %s: %w", f.DistributorCode, err)
				}
				seen[f.DistributorCode] = true
			}

			value := decimal.NewFromFloat(f.OrderedValue).Round(2)
			if _, err := factStmt.ExecContext(ctx,
				f.WeekStart, f.DistributorCode, f.ProductCode,
				f.OrderedQty, value, f.DepletedQty,
			); err != nil {
				return fmt.Errorf("failed to upsert weekly fact %s/%s/%s: %w",
					f.WeekStart.Format("2006-01-02"), f.DistributorCode, f.ProductCode, err)
			}
			written++
		}
		return nil
	})
	if err != nil {
		return 0, err
	}

	return written, nil
}
