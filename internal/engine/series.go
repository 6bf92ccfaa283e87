package engine

import (
	"fmt"
	"time"

	"github.com/andresuchdata/distroflow/internal/domain"
)

const daysPerWeek = 7

// FillWeeklyGaps validates records and returns a dense weekly series where
// every missing week between the first and last record is present with zero
// activity. Records must be strictly ascending and share one 7-day grid.
func FillWeeklyGaps(records []domain.TimeSeriesRecord) ([]domain.TimeSeriesRecord, error) {
	if err := ValidateRecords(records); err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, nil
	}

	filled := make([]domain.TimeSeriesRecord, 0, len(records))
	for i, r := range records {
		if i > 0 {
			prev := records[i-1].PeriodStart
			for w := 1; w < civilDays(prev, r.PeriodStart)/daysPerWeek; w++ {
				filled = append(filled, domain.TimeSeriesRecord{PeriodStart: prev.AddDate(0, 0, w*daysPerWeek)})
			}
		}
		filled = append(filled, r)
	}

	return filled, nil
}

// ValidateRecords checks volumes and ordering without modifying the records.
func ValidateRecords(records []domain.TimeSeriesRecord) error {
	for i, r := range records {
		if !validVolume(r.OrderedQty) || !validVolume(r.OrderedValue) || !validVolume(r.DepletedQty) {
			return fmt.Errorf("%w: record %d (%s) has a negative or non-finite volume",
				ErrInvalidInput, i, r.PeriodStart.Format(time.DateOnly))
		}
		if i == 0 {
			continue
		}
		days := civilDays(records[i-1].PeriodStart, r.PeriodStart)
		if days <= 0 {
			return fmt.Errorf("%w: record %d (%s) is not after the previous record",
				ErrInvalidInput, i, r.PeriodStart.Format(time.DateOnly))
		}
		if days%daysPerWeek != 0 {
			return fmt.Errorf("%w: record %d (%s) is off the weekly grid by %d days",
				ErrInvalidInput, i, r.PeriodStart.Format(time.DateOnly), days%daysPerWeek)
		}
	}
	return nil
}

// DepletedSeries extracts units depleted per week.
func DepletedSeries(records []domain.TimeSeriesRecord) []float64 {
	return column(records, func(r domain.TimeSeriesRecord) float64 { return r.DepletedQty })
}

// OrderedQtySeries extracts units ordered per week.
func OrderedQtySeries(records []domain.TimeSeriesRecord) []float64 {
	return column(records, func(r domain.TimeSeriesRecord) float64 { return r.OrderedQty })
}

// OrderedValueSeries extracts order value per week.
func OrderedValueSeries(records []domain.TimeSeriesRecord) []float64 {
	return column(records, func(r domain.TimeSeriesRecord) float64 { return r.OrderedValue })
}

func column(records []domain.TimeSeriesRecord, get func(domain.TimeSeriesRecord) float64) []float64 {
	out := make([]float64, len(records))
	for i, r := range records {
		out[i] = get(r)
	}
	return out
}

// civilDays counts calendar days from a to b, ignoring time of day and DST.
func civilDays(a, b time.Time) int {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	da := time.Date(ay, am, ad, 0, 0, 0, 0, time.UTC)
	db := time.Date(by, bm, bd, 0, 0, 0, 0, time.UTC)
	return int(db.Sub(da).Hours() / 24)
}
