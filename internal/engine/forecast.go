package engine

import (
	"fmt"
	"math"
	"time"

	"github.com/andresuchdata/distroflow/internal/domain"
)

// Forecast projects a weekly series horizon periods ahead with a damped trend
// that reverts toward the series mean, plus 80% and 95% bands.
func Forecast(series []float64, horizon int, p Params) ([]domain.ForecastPoint, error) {
	if horizon < 1 || horizon > p.MaxHorizon {
		return nil, fmt.Errorf("%w: horizon must be within [1, %d], got %d", ErrInvalidInput, p.MaxHorizon, horizon)
	}
	for i, v := range series {
		if !validVolume(v) {
			return nil, fmt.Errorf("%w: observation %d is %v", ErrInvalidInput, i, v)
		}
	}
	if len(series) < p.MinHistory {
		return nil, fmt.Errorf("%w: need %d periods, got %d", ErrInsufficientHistory, p.MinHistory, len(series))
	}

	n := len(series)
	w := p.TrendWindow

	// 1. Level statistics
	overallMean := mean(series)
	recentMean := mean(tail(series, w))

	// 2. Weekly trend: recent window vs the window before it, or the slope
	// across the last window when only one is available
	var trend float64
	switch {
	case n >= 2*w:
		trend = (mean(series[n-w:]) - mean(series[n-2*w:n-w])) / float64(w)
	case n >= w:
		trend = (series[n-1] - series[n-w]) / float64(w)
	}

	// 3. Dispersion, capped
	cv := p.DefaultCV
	if overallMean > 0 {
		cv = stddev(series) / overallMean
	}
	cv = math.Min(cv, p.CVCap)
	if !finite(overallMean, recentMean, trend, cv) {
		return nil, fmt.Errorf("%w: series magnitude overflows the forecast", ErrInvalidInput)
	}

	floor := math.Max(p.FloorRatio*recentMean, 0)

	// 4. Damped trend with mean reversion; the floor applies to the output
	// only, the level itself runs unfloored
	points := make([]domain.ForecastPoint, horizon)
	level := recentMean
	for i := range points {
		trend *= p.Damping
		level = level + trend + p.MeanReversion*(overallMean-level)

		point := math.Max(level, floor)
		u := cv * (1 + p.HorizonGrowth*math.Sqrt(float64(i+1))) * point

		fp := domain.ForecastPoint{
			PeriodIndex: i + 1,
			Point:       point,
			CI80Low:     math.Max(point-p.CI80Width*u, p.CI80FloorRatio*floor),
			CI80High:    point + p.CI80Width*u,
			CI95Low:     math.Max(point-p.CI95Width*u, p.CI95FloorRatio*floor),
			CI95High:    point + p.CI95Width*u,
		}
		if !finite(fp.Point, fp.CI80Low, fp.CI80High, fp.CI95Low, fp.CI95High) {
			return nil, fmt.Errorf("%w: projection %d overflows", ErrInvalidInput, i+1)
		}
		points[i] = fp
	}

	return points, nil
}

// ForecastRecords fills weekly gaps and forecasts the depleted-units and
// ordered-value series independently. Future periods are stamped with the
// week they start on.
func ForecastRecords(records []domain.TimeSeriesRecord, horizon int, p Params) (domain.SeriesForecast, error) {
	filled, err := FillWeeklyGaps(records)
	if err != nil {
		return domain.SeriesForecast{}, err
	}
	if len(records) < p.MinHistory {
		return domain.SeriesForecast{}, fmt.Errorf("%w: need %d populated weeks, got %d",
			ErrInsufficientHistory, p.MinHistory, len(records))
	}

	depleted, err := Forecast(DepletedSeries(filled), horizon, p)
	if err != nil {
		return domain.SeriesForecast{}, fmt.Errorf("forecast depleted units: %w", err)
	}
	value, err := Forecast(OrderedValueSeries(filled), horizon, p)
	if err != nil {
		return domain.SeriesForecast{}, fmt.Errorf("forecast ordered value: %w", err)
	}

	last := filled[len(filled)-1].PeriodStart
	stampPeriods(depleted, last)
	stampPeriods(value, last)

	return domain.SeriesForecast{
		History:      filled,
		Depleted:     depleted,
		OrderedValue: value,
	}, nil
}

func stampPeriods(points []domain.ForecastPoint, last time.Time) {
	for i := range points {
		start := last.AddDate(0, 0, points[i].PeriodIndex*daysPerWeek)
		points[i].PeriodStart = &start
	}
}
