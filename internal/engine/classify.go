package engine

import (
	"fmt"

	"github.com/andresuchdata/distroflow/internal/domain"
)

// Classify derives the inventory status of a trailing-window stock position.
// Callers pass a missing weekly depletion rate as 0.
//
// Rules apply in priority order: orders without depletions, depletions
// without orders, then the ratio (or weeks-of-inventory) buckets, otherwise
// no data. Bucket comparisons are strict, so a position exactly on a
// threshold is Balanced.
func Classify(ordered, depleted, weeklyRate float64, p Params) (domain.Classification, error) {
	for _, in := range []struct {
		name  string
		value float64
	}{
		{"ordered", ordered},
		{"depleted", depleted},
		{"weekly rate", weeklyRate},
	} {
		if !validVolume(in.value) {
			return domain.Classification{}, fmt.Errorf("%w: %s is %v", ErrInvalidInput, in.name, in.value)
		}
	}

	var c domain.Classification
	if weeklyRate > 0 {
		woi := ordered / weeklyRate
		c.WeeksOfInventory = &woi
	}
	if depleted > 0 {
		ratio := ordered / depleted
		c.Ratio = &ratio
	}
	if (c.WeeksOfInventory != nil && !finite(*c.WeeksOfInventory)) || (c.Ratio != nil && !finite(*c.Ratio)) {
		return domain.Classification{}, fmt.Errorf("%w: ordered %v overflows against the depletion rate", ErrInvalidInput, ordered)
	}

	switch {
	case depleted == 0 && ordered > 0:
		c.Status = domain.StatusNoDepletionData
	case ordered == 0 && depleted > 0:
		c.Status = domain.StatusNoRecentOrders
	case depleted > 0:
		if p.Mode == ModeWeeks && c.WeeksOfInventory != nil {
			c.Status = bucketWeeks(*c.WeeksOfInventory, p)
		} else {
			c.Status = bucketRatio(*c.Ratio, p)
		}
	default:
		c.Status = domain.StatusNoData
	}

	return c, nil
}

func bucketRatio(ratio float64, p Params) domain.InventoryStatus {
	switch {
	case ratio > p.OverstockRatio:
		return domain.StatusOverstock
	case ratio < p.UnderstockRatio:
		return domain.StatusUnderstock
	default:
		return domain.StatusBalanced
	}
}

func bucketWeeks(weeks float64, p Params) domain.InventoryStatus {
	switch {
	case weeks > p.OverstockWeeks:
		return domain.StatusOverstock
	case weeks < p.UnderstockWeeks:
		return domain.StatusUnderstock
	default:
		return domain.StatusBalanced
	}
}

// ClassifyVelocity buckets a weekly depletion rate.
func ClassifyVelocity(weeklyRate float64, p Params) domain.VelocityStatus {
	switch {
	case weeklyRate >= p.HighVelocityRate:
		return domain.VelocityHigh
	case weeklyRate >= p.MediumVelocityRate:
		return domain.VelocityMedium
	default:
		return domain.VelocityLow
	}
}
