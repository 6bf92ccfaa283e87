package engine

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/andresuchdata/distroflow/internal/domain"
)

func TestFillWeeklyGaps(t *testing.T) {
	start := time.Date(2025, 1, 6, 0, 0, 0, 0, time.UTC)
	records := []domain.TimeSeriesRecord{
		{PeriodStart: start, DepletedQty: 3},
		{PeriodStart: start.AddDate(0, 0, 28), DepletedQty: 4},
	}

	filled, err := FillWeeklyGaps(records)
	require.NoError(t, err)
	require.Len(t, filled, 5)
	for i, r := range filled {
		assert.Equal(t, start.AddDate(0, 0, 7*i), r.PeriodStart)
	}
	assert.Equal(t, []float64{3, 0, 0, 0, 4}, DepletedSeries(filled))
}

func TestFillWeeklyGapsEmpty(t *testing.T) {
	filled, err := FillWeeklyGaps(nil)
	require.NoError(t, err)
	assert.Empty(t, filled)
}

func TestValidateRecords(t *testing.T) {
	start := time.Date(2025, 1, 6, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name    string
		records []domain.TimeSeriesRecord
	}{
		{"duplicate week", []domain.TimeSeriesRecord{{PeriodStart: start}, {PeriodStart: start}}},
		{"descending", []domain.TimeSeriesRecord{{PeriodStart: start}, {PeriodStart: start.AddDate(0, 0, -7)}}},
		{"off grid", []domain.TimeSeriesRecord{{PeriodStart: start}, {PeriodStart: start.AddDate(0, 0, 9)}}},
		{"negative volume", []domain.TimeSeriesRecord{{PeriodStart: start, OrderedQty: -1}}},
		{"nan volume", []domain.TimeSeriesRecord{{PeriodStart: start, OrderedValue: math.NaN()}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.ErrorIs(t, ValidateRecords(tt.records), ErrInvalidInput)
		})
	}
}

func TestSeriesColumns(t *testing.T) {
	records := []domain.TimeSeriesRecord{
		{OrderedQty: 1, OrderedValue: 10, DepletedQty: 2},
		{OrderedQty: 3, OrderedValue: 30, DepletedQty: 4},
	}
	assert.Equal(t, []float64{1, 3}, OrderedQtySeries(records))
	assert.Equal(t, []float64{10, 30}, OrderedValueSeries(records))
	assert.Equal(t, []float64{2, 4}, DepletedSeries(records))
}
