package pipeline

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"path"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/andresuchdata/distroflow/internal/domain"
	"github.com/andresuchdata/distroflow/internal/engine"
	"github.com/andresuchdata/distroflow/internal/storage"
)

// ReportSource builds the inventory report a snapshot exports.
type ReportSource interface {
	GetReport(ctx context.Context, filter domain.InventoryFilter, params engine.Params) (*domain.InventoryReport, error)
}

// RunStore persists snapshot run bookkeeping.
type RunStore interface {
	CreateRun(ctx context.Context, run *domain.SnapshotRun) error
	UpdateRun(ctx context.Context, run *domain.SnapshotRun) error
}

// SnapshotJob exports the inventory report as CSV to object storage.
type SnapshotJob struct {
	config PipelineConfig
	source ReportSource
	store  storage.ObjectStorage
	runs   RunStore
	now    func() time.Time
}

func NewSnapshotJob(config PipelineConfig, source ReportSource, store storage.ObjectStorage, runs RunStore) *SnapshotJob {
	return &SnapshotJob{
		config: config,
		source: source,
		store:  store,
		runs:   runs,
		now:    time.Now,
	}
}

// Run computes one report and uploads it. The returned run reflects the
// final recorded state, including failures.
func (j *SnapshotJob) Run(ctx context.Context, filter domain.InventoryFilter, params engine.Params) (*domain.SnapshotRun, error) {
	startedAt := j.now().UTC()
	run := newRun(uuid.NewString(), startedAt)
	run.ObjectKey = objectKey(j.config.Prefix, startedAt, run.ID)

	if err := j.runs.CreateRun(ctx, run); err != nil {
		return nil, fmt.Errorf("failed to create snapshot run: %w", err)
	}

	run.Status = string(StatusProcessing)
	if err := j.runs.UpdateRun(ctx, run); err != nil {
		return nil, fmt.Errorf("failed to update snapshot run: %w", err)
	}

	log.Info().Str("run_id", run.ID).Str("pipeline", j.config.Name).Msg("snapshot: started")

	rows, err := j.export(ctx, run.ObjectKey, filter, params)
	if err != nil {
		return j.fail(ctx, run, err)
	}

	run.Rows = rows
	run.Status = string(StatusCompleted)
	finished := j.now().UTC()
	run.FinishedAt = &finished
	if err := j.runs.UpdateRun(ctx, run); err != nil {
		return nil, fmt.Errorf("failed to complete snapshot run: %w", err)
	}

	log.Info().Str("run_id", run.ID).Int("rows", rows).Str("key", run.ObjectKey).Msg("snapshot: completed")
	return run, nil
}

func (j *SnapshotJob) export(ctx context.Context, key string, filter domain.InventoryFilter, params engine.Params) (int, error) {
	report, err := j.source.GetReport(ctx, filter, params)
	if err != nil {
		return 0, fmt.Errorf("failed to build inventory report: %w", err)
	}

	data, err := EncodeReportCSV(report)
	if err != nil {
		return 0, err
	}

	if err := j.upload(ctx, key, data); err != nil {
		return 0, err
	}

	return len(report.Rows), nil
}

func (j *SnapshotJob) upload(ctx context.Context, key string, data []byte) error {
	attempts := j.config.RetryAttempts
	if attempts < 1 {
		attempts = 1
	}

	var err error
	for attempt := 1; attempt <= attempts; attempt++ {
		if err = j.store.UploadObject(ctx, key, data); err == nil {
			return nil
		}
		log.Warn().Err(err).Int("attempt", attempt).Str("key", key).Msg("snapshot: upload failed")
		if attempt == attempts {
			break
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(j.config.RetryBackoff):
		}
	}

	return fmt.Errorf("failed to upload snapshot %s: %w", key, err)
}

func (j *SnapshotJob) fail(ctx context.Context, run *domain.SnapshotRun, cause error) (*domain.SnapshotRun, error) {
	msg := cause.Error()
	finished := j.now().UTC()
	run.Status = string(StatusFailed)
	run.Error = &msg
	run.FinishedAt = &finished

	if err := j.runs.UpdateRun(ctx, run); err != nil {
		log.Error().Err(err).Str("run_id", run.ID).Msg("snapshot: failed to record failure")
	}

	return run, cause
}

func objectKey(prefix string, at time.Time, id string) string {
	return path.Join(prefix, at.Format("2006/01/02"), id+".csv")
}

var reportHeader = []string{
	"distributor_code", "distributor_name", "ordered_qty", "ordered_value",
	"depleted_qty", "weekly_depletion_rate", "status", "ratio",
	"weeks_of_inventory", "velocity", "weeks_until_stockout", "predicted_date",
	"risk_score", "reorder_qty", "urgency",
}

// EncodeReportCSV renders the report rows as CSV with a header line.
// Undefined values are written as empty cells.
func EncodeReportCSV(report *domain.InventoryReport) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)

	if err := w.Write(reportHeader); err != nil {
		return nil, err
	}

	for _, row := range report.Rows {
		predicted := ""
		if row.Stockout.PredictedDate != nil {
			predicted = row.Stockout.PredictedDate.Format("2006-01-02")
		}

		record := []string{
			row.DistributorCode,
			row.DistributorName,
			formatFloat(row.OrderedQty),
			formatFloat(row.OrderedValue),
			formatFloat(row.DepletedQty),
			formatFloat(row.WeeklyDepletionRate),
			row.Status.String(),
			formatOptional(row.Ratio),
			formatOptional(row.Classification.WeeksOfInventory),
			row.Velocity.String(),
			formatOptional(row.Stockout.WeeksUntilStockout),
			predicted,
			formatFloat(row.Stockout.RiskScore),
			formatFloat(row.Stockout.ReorderQty),
			row.Stockout.Urgency.String(),
		}
		if err := w.Write(record); err != nil {
			return nil, err
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return nil, fmt.Errorf("failed to encode snapshot: %w", err)
	}

	return buf.Bytes(), nil
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', 2, 64)
}

func formatOptional(v *float64) string {
	if v == nil {
		return ""
	}
	return formatFloat(*v)
}
