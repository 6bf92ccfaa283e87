package engine

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/andresuchdata/distroflow/internal/domain"
)

func TestForecastFlatSeries(t *testing.T) {
	series := []float64{100, 100, 100, 100, 100, 100, 100, 100}

	points, err := Forecast(series, 12, DefaultParams())
	require.NoError(t, err)
	require.Len(t, points, 12)

	for i, p := range points {
		assert.Equal(t, i+1, p.PeriodIndex)
		assert.InDelta(t, 100, p.Point, 1e-9)
		assert.InDelta(t, 100, p.CI80Low, 1e-9)
		assert.InDelta(t, 100, p.CI95High, 1e-9)
	}
}

func TestForecastShortRisingSeries(t *testing.T) {
	points, err := Forecast([]float64{40, 50, 60, 70}, 12, DefaultParams())
	require.NoError(t, err)

	// recent mean 55, trend (70-40)/4 = 7.5 damped once to 6.9
	assert.InDelta(t, 61.9, points[0].Point, 1e-9)
	assert.Greater(t, points[1].Point, points[0].Point)
}

func TestForecastTwoWindowTrend(t *testing.T) {
	points, err := Forecast([]float64{10, 10, 10, 10, 20, 20, 20, 20}, 1, DefaultParams())
	require.NoError(t, err)

	// level 20, trend (20-10)/4 = 2.5 -> 2.3, reversion 0.05*(15-20)
	assert.InDelta(t, 22.05, points[0].Point, 1e-9)
}

func TestForecastCapsDispersion(t *testing.T) {
	points, err := Forecast([]float64{0, 0, 0, 100}, 1, DefaultParams())
	require.NoError(t, err)

	// level 25, trend 25 -> 23, mean equals level; cv capped at 0.25
	assert.InDelta(t, 48, points[0].Point, 1e-9)
	u := 0.25 * (1 + 0.1) * 48
	assert.InDelta(t, 48+0.8*u, points[0].CI80High, 1e-9)
	assert.InDelta(t, 48+1.2*u, points[0].CI95High, 1e-9)
}

func TestForecastZeroSeries(t *testing.T) {
	points, err := Forecast([]float64{0, 0, 0, 0, 0}, 6, DefaultParams())
	require.NoError(t, err)

	for _, p := range points {
		assert.Zero(t, p.Point)
		assert.Zero(t, p.CI95Low)
		assert.Zero(t, p.CI95High)
	}
}

func TestForecastErrors(t *testing.T) {
	tests := []struct {
		name    string
		series  []float64
		horizon int
		want    error
	}{
		{"three points", []float64{1, 2, 3}, 12, ErrInsufficientHistory},
		{"empty", nil, 12, ErrInsufficientHistory},
		{"negative value", []float64{1, 2, -3, 4}, 12, ErrInvalidInput},
		{"nan value", []float64{1, 2, math.NaN(), 4}, 12, ErrInvalidInput},
		{"infinite value", []float64{1, 2, math.Inf(1), 4}, 12, ErrInvalidInput},
		{"zero horizon", []float64{1, 2, 3, 4}, 0, ErrInvalidInput},
		{"horizon above max", []float64{10, 12, 11, 13}, 105, ErrInvalidInput},
		{"huge horizon", []float64{10, 12, 11, 13}, 1 << 42, ErrInvalidInput},
		{"overflowing mean", []float64{1e308, 1e308, 1e308, 1e308}, 2, ErrInvalidInput},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Forecast(tt.series, tt.horizon, DefaultParams())
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestForecastAtMaxHorizon(t *testing.T) {
	p := DefaultParams()
	points, err := Forecast([]float64{10, 12, 11, 13}, p.MaxHorizon, p)
	require.NoError(t, err)
	assert.Len(t, points, p.MaxHorizon)
}

func TestForecastBandsAndFloor(t *testing.T) {
	tests := []struct {
		name   string
		series []float64
	}{
		{"flat", []float64{50, 50, 50, 50}},
		{"rising", []float64{5, 10, 20, 40, 80, 160, 320, 640}},
		{"collapsing", []float64{100, 100, 100, 100, 0, 0, 0, 0}},
		{"falling", []float64{90, 80, 70, 60, 50, 40, 30, 20, 10}},
		{"spiky", []float64{0, 300, 0, 0, 250, 0, 10, 0, 400, 3}},
		{"sparse", []float64{0, 0, 0, 1}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			points, err := Forecast(tt.series, 24, DefaultParams())
			require.NoError(t, err)

			floor := 0.5 * mean(tail(tt.series, 4))
			for _, p := range points {
				assert.LessOrEqual(t, p.CI95Low, p.CI80Low)
				assert.LessOrEqual(t, p.CI80Low, p.Point)
				assert.LessOrEqual(t, p.Point, p.CI80High)
				assert.LessOrEqual(t, p.CI80High, p.CI95High)
				assert.GreaterOrEqual(t, p.CI95Low, 0.0)
				assert.GreaterOrEqual(t, p.Point, floor-1e-9)
			}
		})
	}
}

func TestForecastIsDeterministic(t *testing.T) {
	series := []float64{12, 0, 7, 19, 4, 4, 30, 11, 9}

	first, err := Forecast(series, 12, DefaultParams())
	require.NoError(t, err)
	second, err := Forecast(series, 12, DefaultParams())
	require.NoError(t, err)

	assert.Equal(t, first, second)
}

func TestForecastRecordsFillsGaps(t *testing.T) {
	start := time.Date(2025, 3, 3, 0, 0, 0, 0, time.UTC)
	records := []domain.TimeSeriesRecord{
		{PeriodStart: start, DepletedQty: 10, OrderedValue: 100},
		{PeriodStart: start.AddDate(0, 0, 7), DepletedQty: 10, OrderedValue: 100},
		{PeriodStart: start.AddDate(0, 0, 21), DepletedQty: 10, OrderedValue: 100},
		{PeriodStart: start.AddDate(0, 0, 28), DepletedQty: 10, OrderedValue: 100},
	}

	fc, err := ForecastRecords(records, 3, DefaultParams())
	require.NoError(t, err)

	require.Len(t, fc.History, 5)
	assert.Zero(t, fc.History[2].DepletedQty)
	assert.Equal(t, start.AddDate(0, 0, 14), fc.History[2].PeriodStart)

	require.Len(t, fc.Depleted, 3)
	require.Len(t, fc.OrderedValue, 3)
	require.NotNil(t, fc.Depleted[0].PeriodStart)
	assert.Equal(t, start.AddDate(0, 0, 35), *fc.Depleted[0].PeriodStart)
	assert.Equal(t, start.AddDate(0, 0, 49), *fc.OrderedValue[2].PeriodStart)
}

func TestForecastRecordsCountsPopulatedWeeks(t *testing.T) {
	start := time.Date(2025, 3, 3, 0, 0, 0, 0, time.UTC)
	records := []domain.TimeSeriesRecord{
		{PeriodStart: start, DepletedQty: 1},
		{PeriodStart: start.AddDate(0, 0, 21), DepletedQty: 1},
		{PeriodStart: start.AddDate(0, 0, 42), DepletedQty: 1},
	}

	_, err := ForecastRecords(records, 12, DefaultParams())
	assert.ErrorIs(t, err, ErrInsufficientHistory)
}
