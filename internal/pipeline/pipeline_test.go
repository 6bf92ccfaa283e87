package pipeline

import (
	"context"
	"encoding/csv"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/andresuchdata/distroflow/internal/domain"
	"github.com/andresuchdata/distroflow/internal/engine"
	"github.com/andresuchdata/distroflow/internal/storage"
)

func TestProcessParallelKeepsOrder(t *testing.T) {
	items := []int{5, 4, 3, 2, 1, 0}

	got, err := ProcessParallel(context.Background(), 3, items, func(_ context.Context, v int) (int, error) {
		time.Sleep(time.Duration(v) * time.Millisecond)
		return v * 10, nil
	})

	require.NoError(t, err)
	assert.Equal(t, []int{50, 40, 30, 20, 10, 0}, got)
}

func TestProcessParallelReturnsFirstError(t *testing.T) {
	boom := errors.New("boom")
	var calls atomic.Int32

	_, err := ProcessParallel(context.Background(), 2, []int{1, 2, 3, 4}, func(_ context.Context, v int) (int, error) {
		calls.Add(1)
		if v == 2 {
			return 0, boom
		}
		return v, nil
	})

	assert.ErrorIs(t, err, boom)
	assert.LessOrEqual(t, calls.Load(), int32(4))
}

func TestProcessParallelEmptyAndCancelled(t *testing.T) {
	got, err := ProcessParallel(context.Background(), 4, []string{}, func(_ context.Context, s string) (string, error) {
		return s, nil
	})
	require.NoError(t, err)
	assert.Empty(t, got)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = ProcessParallel(ctx, 2, []int{1, 2}, func(_ context.Context, v int) (int, error) {
		return v, nil
	})
	assert.ErrorIs(t, err, context.Canceled)
}

type fakeSource struct {
	report *domain.InventoryReport
	err    error
}

func (f *fakeSource) GetReport(context.Context, domain.InventoryFilter, engine.Params) (*domain.InventoryReport, error) {
	return f.report, f.err
}

type fakeRuns struct {
	mu      sync.Mutex
	created []domain.SnapshotRun
	updates []domain.SnapshotRun
}

func (f *fakeRuns) CreateRun(_ context.Context, run *domain.SnapshotRun) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.created = append(f.created, *run)
	return nil
}

func (f *fakeRuns) UpdateRun(_ context.Context, run *domain.SnapshotRun) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.updates = append(f.updates, *run)
	return nil
}

func sampleReport() *domain.InventoryReport {
	ratio := 2.5
	weeks := 3.0
	return &domain.InventoryReport{
		Rows: []domain.InventoryReportRow{
			{
				DistributorAggregate: domain.DistributorAggregate{
					DistributorCode: "D1", DistributorName: "North, Inc",
					OrderedQty: 250, DepletedQty: 100, WeeklyDepletionRate: 10,
				},
				Classification: domain.Classification{Status: domain.StatusOverstock, Ratio: &ratio},
				Velocity:       domain.VelocityHigh,
				Stockout: domain.StockoutAssessment{
					WeeksUntilStockout: &weeks, RiskScore: 70, Urgency: domain.UrgencyCritical,
				},
			},
			{
				DistributorAggregate: domain.DistributorAggregate{DistributorCode: "D2", DistributorName: "South"},
				Classification:       domain.Classification{Status: domain.StatusNoData},
			},
		},
	}
}

func TestEncodeReportCSV(t *testing.T) {
	data, err := EncodeReportCSV(sampleReport())
	require.NoError(t, err)

	records, err := csv.NewReader(strings.NewReader(string(data))).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 3)

	assert.Equal(t, reportHeader, records[0])
	assert.Equal(t, "North, Inc", records[1][1])
	assert.Equal(t, "Overstock", records[1][6])
	assert.Equal(t, "2.50", records[1][7])
	assert.Equal(t, "", records[1][8])
	assert.Equal(t, "High", records[1][9])
	assert.Equal(t, "3.00", records[1][10])
	assert.Equal(t, "Critical", records[1][14])
	assert.Equal(t, "No Data", records[2][6])
	assert.Equal(t, "N/A", records[2][14])
}

func TestSnapshotJobRun(t *testing.T) {
	root := t.TempDir()
	store := storage.NewLocalStorage(root)
	runs := &fakeRuns{}

	job := NewSnapshotJob(DefaultPipelineConfig("inventory"), &fakeSource{report: sampleReport()}, store, runs)
	job.now = func() time.Time { return time.Date(2025, 6, 2, 8, 0, 0, 0, time.UTC) }

	run, err := job.Run(context.Background(), domain.InventoryFilter{LookbackDays: 90}, engine.DefaultParams())
	require.NoError(t, err)

	assert.Equal(t, string(StatusCompleted), run.Status)
	assert.Equal(t, 2, run.Rows)
	assert.True(t, strings.HasPrefix(run.ObjectKey, "snapshots/inventory/2025/06/02/"))
	require.NotNil(t, run.FinishedAt)

	require.Len(t, runs.created, 1)
	assert.Equal(t, string(StatusPending), runs.created[0].Status)
	require.Len(t, runs.updates, 2)
	assert.Equal(t, string(StatusProcessing), runs.updates[0].Status)

	objects, err := store.ListObjects(context.Background(), "snapshots/")
	require.NoError(t, err)
	require.Len(t, objects, 1)
	assert.Equal(t, run.ObjectKey, objects[0].Key)
}

type failingStore struct {
	storage.ObjectStorage
	calls int
}

func (f *failingStore) UploadObject(context.Context, string, []byte) error {
	f.calls++
	return errors.New("bucket unavailable")
}

func TestSnapshotJobRecordsFailure(t *testing.T) {
	cfg := DefaultPipelineConfig("inventory")
	cfg.RetryBackoff = time.Millisecond
	store := &failingStore{}
	runs := &fakeRuns{}

	job := NewSnapshotJob(cfg, &fakeSource{report: sampleReport()}, store, runs)
	run, err := job.Run(context.Background(), domain.InventoryFilter{}, engine.DefaultParams())

	require.Error(t, err)
	assert.Equal(t, 3, store.calls)
	require.NotNil(t, run)
	assert.Equal(t, string(StatusFailed), run.Status)
	require.NotNil(t, run.Error)
	assert.Contains(t, *run.Error, "bucket unavailable")

	last := runs.updates[len(runs.updates)-1]
	assert.Equal(t, string(StatusFailed), last.Status)
}

func TestSnapshotJobSourceError(t *testing.T) {
	job := NewSnapshotJob(DefaultPipelineConfig("inventory"), &fakeSource{err: errors.New("db down")}, storage.NewLocalStorage(t.TempDir()), &fakeRuns{})

	run, err := job.Run(context.Background(), domain.InventoryFilter{}, engine.DefaultParams())
	require.Error(t, err)
	assert.Equal(t, string(StatusFailed), run.Status)
}
