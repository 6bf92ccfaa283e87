package service

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/andresuchdata/distroflow/internal/domain"
	"github.com/andresuchdata/distroflow/internal/engine"
)

type fakeInventoryRepo struct {
	mu           sync.Mutex
	aggregates   []domain.DistributorAggregate
	history      map[string][]float64
	series       []domain.TimeSeriesRecord
	products     []domain.ProductAggregate
	historyCalls int
	seriesErr    error
	productDays  int
}

func (f *fakeInventoryRepo) ListDistributorAggregates(_ context.Context, filter domain.InventoryFilter) ([]domain.DistributorAggregate, error) {
	if len(filter.DistributorCodes) == 0 {
		return f.aggregates, nil
	}
	var out []domain.DistributorAggregate
	for _, agg := range f.aggregates {
		for _, code := range filter.DistributorCodes {
			if agg.DistributorCode == code {
				out = append(out, agg)
			}
		}
	}
	return out, nil
}

func (f *fakeInventoryRepo) GetDepletionHistory(_ context.Context, codes []string, _ int) (map[string][]float64, error) {
	f.mu.Lock()
	f.historyCalls++
	f.mu.Unlock()

	out := make(map[string][]float64, len(codes))
	for _, code := range codes {
		if h, ok := f.history[code]; ok {
			out[code] = h
		}
	}
	return out, nil
}

func (f *fakeInventoryRepo) GetWeeklySeries(context.Context, domain.ForecastFilter) ([]domain.TimeSeriesRecord, error) {
	return f.series, f.seriesErr
}

func (f *fakeInventoryRepo) ListProductAggregates(_ context.Context, code string, lookbackDays int) ([]domain.ProductAggregate, error) {
	f.productDays = lookbackDays
	var out []domain.ProductAggregate
	for _, p := range f.products {
		if p.DistributorCode == code {
			out = append(out, p)
		}
	}
	return out, nil
}

type countingRecorder struct {
	mu    sync.Mutex
	calls map[string]int
}

func (r *countingRecorder) Observe(op string, _ error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.calls == nil {
		r.calls = map[string]int{}
	}
	r.calls[op]++
}

func flat(v float64, n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = v
	}
	return out
}

func newInventoryRepo() *fakeInventoryRepo {
	return &fakeInventoryRepo{
		aggregates: []domain.DistributorAggregate{
			{DistributorCode: "D1", DistributorName: "North", OrderedQty: 250, DepletedQty: 100, WeeklyDepletionRate: 10},
			{DistributorCode: "D2", DistributorName: "South", OrderedQty: 50, DepletedQty: 100, WeeklyDepletionRate: 10},
			{DistributorCode: "D3", DistributorName: "East"},
		},
		history: map[string][]float64{
			"D1": flat(10, 8),
			"D2": flat(10, 8),
		},
	}
}

func TestInventoryServiceGetReport(t *testing.T) {
	repo := newInventoryRepo()
	rec := &countingRecorder{}
	svc := NewInventoryService(repo, nil, engine.DefaultParams(), 2, rec)
	asOf := time.Date(2025, 6, 2, 0, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return asOf }

	report, err := svc.GetReport(context.Background(), domain.InventoryFilter{}, engine.DefaultParams())
	require.NoError(t, err)
	require.Len(t, report.Rows, 3)

	assert.Equal(t, asOf, report.GeneratedAt)

	d1 := report.Rows[0]
	assert.Equal(t, "D1", d1.DistributorCode)
	assert.Equal(t, domain.StatusOverstock, d1.Status)
	assert.Equal(t, domain.VelocityHigh, d1.Velocity)
	require.NotNil(t, d1.Stockout.WeeksUntilStockout)
	assert.InDelta(t, 25, *d1.Stockout.WeeksUntilStockout, 1e-9)
	assert.Equal(t, domain.UrgencyLow, d1.Stockout.Urgency)

	d2 := report.Rows[1]
	assert.Equal(t, domain.StatusUnderstock, d2.Status)
	require.NotNil(t, d2.Stockout.WeeksUntilStockout)
	assert.InDelta(t, 5, *d2.Stockout.WeeksUntilStockout, 1e-9)
	assert.Equal(t, domain.UrgencyHigh, d2.Stockout.Urgency)
	assert.InDelta(t, 30, d2.Stockout.ReorderQty, 1e-9)

	d3 := report.Rows[2]
	assert.Equal(t, domain.StatusNoData, d3.Status)
	assert.Nil(t, d3.Stockout.WeeksUntilStockout)
	assert.Equal(t, domain.UrgencyNotApplicable, d3.Stockout.Urgency)

	counts := map[domain.InventoryStatus]int{}
	for _, sc := range report.Summary {
		counts[sc.Status] = sc.Count
	}
	assert.Len(t, report.Summary, len(domain.InventoryStatuses))
	assert.Equal(t, 1, counts[domain.StatusOverstock])
	assert.Equal(t, 1, counts[domain.StatusUnderstock])
	assert.Equal(t, 1, counts[domain.StatusNoData])

	assert.Equal(t, 3, rec.calls["classify"])
	assert.Equal(t, 3, rec.calls["assess"])
}

func TestInventoryServiceStatusFilter(t *testing.T) {
	svc := NewInventoryService(newInventoryRepo(), nil, engine.DefaultParams(), 1, nil)

	report, err := svc.GetReport(context.Background(), domain.InventoryFilter{
		Statuses: []domain.InventoryStatus{domain.StatusUnderstock},
	}, engine.DefaultParams())
	require.NoError(t, err)
	require.Len(t, report.Rows, 1)
	assert.Equal(t, "D2", report.Rows[0].DistributorCode)
}

func TestInventoryServiceRejectsInvalidParams(t *testing.T) {
	svc := NewInventoryService(newInventoryRepo(), nil, engine.DefaultParams(), 1, nil)
	params := engine.DefaultParams()
	params.OverstockRatio = 0.1

	_, err := svc.GetReport(context.Background(), domain.InventoryFilter{}, params)
	assert.ErrorIs(t, err, engine.ErrInvalidInput)
}

func TestInventoryServiceHistoryChunks(t *testing.T) {
	repo := &fakeInventoryRepo{}
	for i := 0; i < historyChunkSize*2+1; i++ {
		repo.aggregates = append(repo.aggregates, domain.DistributorAggregate{DistributorCode: string(rune('A' + i%26))})
	}
	svc := NewInventoryService(repo, nil, engine.DefaultParams(), 3, nil)

	_, err := svc.GetReport(context.Background(), domain.InventoryFilter{}, engine.DefaultParams())
	require.NoError(t, err)
	assert.Equal(t, 3, repo.historyCalls)
}

func TestInventoryServiceGetStockout(t *testing.T) {
	svc := NewInventoryService(newInventoryRepo(), nil, engine.DefaultParams(), 1, nil)

	row, err := svc.GetStockout(context.Background(), "D2", domain.InventoryFilter{}, engine.DefaultParams())
	require.NoError(t, err)
	assert.Equal(t, "South", row.DistributorName)

	_, err = svc.GetStockout(context.Background(), "missing", domain.InventoryFilter{}, engine.DefaultParams())
	assert.ErrorIs(t, err, ErrNotFound)
}

func weeklyRecords(start time.Time, depleted ...float64) []domain.TimeSeriesRecord {
	out := make([]domain.TimeSeriesRecord, len(depleted))
	for i, d := range depleted {
		out[i] = domain.TimeSeriesRecord{
			PeriodStart:  start.AddDate(0, 0, 7*i),
			DepletedQty:  d,
			OrderedValue: d * 2,
		}
	}
	return out
}

func TestForecastServiceGetForecast(t *testing.T) {
	start := time.Date(2025, 1, 6, 0, 0, 0, 0, time.UTC)
	repo := &fakeInventoryRepo{series: weeklyRecords(start, 10, 12, 11, 13, 12, 14)}
	rec := &countingRecorder{}
	svc := NewForecastService(repo, nil, rec)

	forecast, err := svc.GetForecast(context.Background(), domain.ForecastFilter{Horizon: 4}, engine.DefaultParams())
	require.NoError(t, err)
	assert.Len(t, forecast.History, 6)
	require.Len(t, forecast.Depleted, 4)
	require.Len(t, forecast.OrderedValue, 4)
	require.NotNil(t, forecast.Depleted[0].PeriodStart)
	assert.Equal(t, start.AddDate(0, 0, 42), *forecast.Depleted[0].PeriodStart)
	assert.Equal(t, 1, rec.calls["forecast"])
}

func TestForecastServiceErrors(t *testing.T) {
	start := time.Date(2025, 1, 6, 0, 0, 0, 0, time.UTC)

	svc := NewForecastService(&fakeInventoryRepo{series: weeklyRecords(start, 1, 2)}, nil, nil)
	_, err := svc.GetForecast(context.Background(), domain.ForecastFilter{}, engine.DefaultParams())
	assert.ErrorIs(t, err, engine.ErrInsufficientHistory)

	svc = NewForecastService(&fakeInventoryRepo{}, nil, nil)
	_, err = svc.GetForecast(context.Background(), domain.ForecastFilter{DistributorCode: "D9"}, engine.DefaultParams())
	assert.ErrorIs(t, err, ErrNotFound)

	boom := errors.New("db down")
	svc = NewForecastService(&fakeInventoryRepo{seriesErr: boom}, nil, nil)
	_, err = svc.GetForecast(context.Background(), domain.ForecastFilter{}, engine.DefaultParams())
	assert.ErrorIs(t, err, boom)
}

type fakeVisitRepo struct {
	windows []domain.VisitWindow
	filter  domain.VisitFilter
}

func (f *fakeVisitRepo) ListVisitWindows(_ context.Context, filter domain.VisitFilter) ([]domain.VisitWindow, error) {
	f.filter = filter
	return f.windows, nil
}

func TestVisitServiceGetReport(t *testing.T) {
	day := time.Date(2025, 5, 1, 0, 0, 0, 0, time.UTC)
	repo := &fakeVisitRepo{windows: []domain.VisitWindow{
		{
			TaskID: "T1", AccountCode: "ACC1", RepName: "Ana", VisitDate: day,
			Baseline:      map[string]float64{"A": 10},
			Followup:      map[string]float64{"A": 15, "B": 5},
			Depletions:    2,
			DepletionDays: 10,
		},
		{
			TaskID: "T2", AccountCode: "ACC1", RepName: "Ana", VisitDate: day.AddDate(0, 0, 3),
			Baseline:      map[string]float64{"A": 10},
			Followup:      map[string]float64{"A": 8},
			Depletions:    1,
			DepletionDays: 2,
		},
	}}
	params := engine.DefaultParams()
	params.MinRepVisits = 1
	svc := NewVisitService(repo, nil)

	report, err := svc.GetReport(context.Background(), domain.VisitFilter{}, params)
	require.NoError(t, err)

	assert.Equal(t, defaultDaysBack, repo.filter.DaysBack)
	assert.Equal(t, defaultWindowDays, repo.filter.BaselineDays)
	assert.Equal(t, defaultWindowDays, repo.filter.FollowupDays)

	require.Len(t, report.Visits, 2)
	assert.Equal(t, "T2", report.Visits[0].TaskID)
	assert.False(t, report.Visits[0].Converted)

	t1 := report.Visits[1]
	assert.True(t, t1.Converted)
	assert.InDelta(t, 5, t1.NewProductUnits, 1e-9)
	assert.InDelta(t, 5, t1.IncrementalUnits, 1e-9)

	assert.Equal(t, 2, report.Summary.Visits)
	assert.Equal(t, 1, report.Summary.ConvertedVisits)
	require.Len(t, report.Leaderboard, 1)
	assert.Equal(t, "Ana", report.Leaderboard[0].RepName)
	assert.Equal(t, 1, report.Leaderboard[0].UniqueAccounts)
	assert.InDelta(t, 4, report.Leaderboard[0].AvgDaysToDepletion, 1e-9)
}

func TestVisitServiceNamesFailingVisitOnce(t *testing.T) {
	repo := &fakeVisitRepo{windows: []domain.VisitWindow{
		{TaskID: "T9", RepName: "Ana", Followup: map[string]float64{"A": -1}},
	}}

	_, err := NewVisitService(repo, nil).GetReport(context.Background(), domain.VisitFilter{}, engine.DefaultParams())
	require.ErrorIs(t, err, engine.ErrInvalidInput)
	assert.Equal(t, 1, strings.Count(err.Error(), "T9"))
}

type recordingRepo struct {
	*fakeInventoryRepo
	filter domain.InventoryFilter
	weeks  int
}

func (r *recordingRepo) ListDistributorAggregates(ctx context.Context, filter domain.InventoryFilter) ([]domain.DistributorAggregate, error) {
	r.filter = filter
	return r.fakeInventoryRepo.ListDistributorAggregates(ctx, filter)
}

func (r *recordingRepo) GetDepletionHistory(ctx context.Context, codes []string, weeks int) (map[string][]float64, error) {
	r.weeks = weeks
	return r.fakeInventoryRepo.GetDepletionHistory(ctx, codes, weeks)
}

func TestInventoryServiceWindowDefaults(t *testing.T) {
	repo := &recordingRepo{fakeInventoryRepo: newInventoryRepo()}

	svc := NewInventoryService(repo, nil, engine.DefaultParams(), 1, nil)
	_, err := svc.GetReport(context.Background(), domain.InventoryFilter{}, engine.DefaultParams())
	require.NoError(t, err)
	assert.Equal(t, defaultLookbackDays, repo.filter.LookbackDays)
	assert.Equal(t, defaultHistoryWeeks, repo.weeks)

	svc.WithWindow(60, 8)
	_, err = svc.GetReport(context.Background(), domain.InventoryFilter{}, engine.DefaultParams())
	require.NoError(t, err)
	assert.Equal(t, 60, repo.filter.LookbackDays)
	assert.Equal(t, 8, repo.weeks)

	_, err = svc.GetReport(context.Background(), domain.InventoryFilter{LookbackDays: 28}, engine.DefaultParams())
	require.NoError(t, err)
	assert.Equal(t, 28, repo.filter.LookbackDays)
}

func TestInventoryServiceGetProductVelocity(t *testing.T) {
	repo := newInventoryRepo()
	repo.products = []domain.ProductAggregate{
		{DistributorCode: "D1", ProductCode: "SKU1", DepletedQty: 150, WeeklyDepletionRate: 15},
		{DistributorCode: "D1", ProductCode: "SKU2", DepletedQty: 40, WeeklyDepletionRate: 4},
		{DistributorCode: "D1", ProductCode: "SKU3", DepletedQty: 10, WeeklyDepletionRate: 1},
		{DistributorCode: "D1", ProductCode: "SKU4", DepletedQty: 30, WeeklyDepletionRate: 3},
		{DistributorCode: "D2", ProductCode: "SKU1", DepletedQty: 500, WeeklyDepletionRate: 50},
	}
	svc := NewInventoryService(repo, nil, engine.DefaultParams(), 2, nil).WithWindow(70, 0)

	report, err := svc.GetProductVelocity(context.Background(), "D1", domain.InventoryFilter{}, engine.DefaultParams())
	require.NoError(t, err)

	assert.Equal(t, 70, repo.productDays)
	assert.Equal(t, "North", report.DistributorName)
	require.Len(t, report.Products, 4)
	assert.Equal(t, domain.VelocityHigh, report.Products[0].Velocity)
	assert.Equal(t, domain.VelocityMedium, report.Products[1].Velocity)
	assert.Equal(t, domain.VelocityLow, report.Products[2].Velocity)
	assert.Equal(t, domain.VelocityMedium, report.Products[3].Velocity)

	assert.Equal(t, []domain.VelocityCount{
		{Velocity: domain.VelocityHigh, Count: 1},
		{Velocity: domain.VelocityMedium, Count: 2},
		{Velocity: domain.VelocityLow, Count: 1},
	}, report.Summary)
}

func TestInventoryServiceGetProductVelocityErrors(t *testing.T) {
	svc := NewInventoryService(newInventoryRepo(), nil, engine.DefaultParams(), 1, nil)

	_, err := svc.GetProductVelocity(context.Background(), "D404", domain.InventoryFilter{}, engine.DefaultParams())
	assert.ErrorIs(t, err, ErrNotFound)

	params := engine.DefaultParams()
	params.MediumVelocityRate = -1
	_, err = svc.GetProductVelocity(context.Background(), "D1", domain.InventoryFilter{}, params)
	assert.ErrorIs(t, err, engine.ErrInvalidInput)
}
