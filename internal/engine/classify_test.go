package engine

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/andresuchdata/distroflow/internal/domain"
)

func TestClassifyRatio(t *testing.T) {
	tests := []struct {
		name     string
		ordered  float64
		depleted float64
		want     domain.InventoryStatus
	}{
		{"on overstock boundary", 130, 100, domain.StatusBalanced},
		{"above overstock boundary", 131, 100, domain.StatusOverstock},
		{"on understock boundary", 70, 100, domain.StatusBalanced},
		{"below understock boundary", 69, 100, domain.StatusUnderstock},
		{"depletion without orders", 0, 100, domain.StatusNoRecentOrders},
		{"orders without depletion", 100, 0, domain.StatusNoDepletionData},
		{"no activity", 0, 0, domain.StatusNoData},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, err := Classify(tt.ordered, tt.depleted, 0, DefaultParams())
			require.NoError(t, err)
			assert.Equal(t, tt.want, c.Status)
		})
	}
}

func TestClassifyDerivedMeasures(t *testing.T) {
	c, err := Classify(100, 50, 25, DefaultParams())
	require.NoError(t, err)
	require.NotNil(t, c.WeeksOfInventory)
	require.NotNil(t, c.Ratio)
	assert.InDelta(t, 4, *c.WeeksOfInventory, 1e-9)
	assert.InDelta(t, 2, *c.Ratio, 1e-9)

	c, err = Classify(100, 0, 0, DefaultParams())
	require.NoError(t, err)
	assert.Nil(t, c.WeeksOfInventory)
	assert.Nil(t, c.Ratio)
}

func TestClassifyIsTotal(t *testing.T) {
	values := []float64{0, 5}
	for _, ordered := range values {
		for _, depleted := range values {
			for _, rate := range []float64{0, 3} {
				c, err := Classify(ordered, depleted, rate, DefaultParams())
				require.NoError(t, err)
				assert.Contains(t, domain.InventoryStatuses, c.Status)
			}
		}
	}
}

func TestClassifyWeeksMode(t *testing.T) {
	p := DefaultParams()
	p.Mode = ModeWeeks

	tests := []struct {
		name           string
		ordered        float64
		rate           float64
		overstockWeeks float64
		want           domain.InventoryStatus
	}{
		{"above twelve weeks", 130, 10, 12, domain.StatusOverstock},
		{"exactly twelve weeks", 120, 10, 12, domain.StatusBalanced},
		{"exactly four weeks", 40, 10, 12, domain.StatusBalanced},
		{"under four weeks", 30, 10, 12, domain.StatusUnderstock},
		{"operator cutoff of eight", 100, 10, 8, domain.StatusOverstock},
		{"operator cutoff of sixteen", 150, 10, 16, domain.StatusBalanced},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := p
			p.OverstockWeeks = tt.overstockWeeks
			c, err := Classify(tt.ordered, 100, tt.rate, p)
			require.NoError(t, err)
			assert.Equal(t, tt.want, c.Status)
		})
	}
}

func TestClassifyWeeksModeFallsBackToRatio(t *testing.T) {
	p := DefaultParams()
	p.Mode = ModeWeeks

	c, err := Classify(200, 100, 0, p)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusOverstock, c.Status)
}

func TestClassifyRejectsInvalidInput(t *testing.T) {
	_, err := Classify(-1, 10, 1, DefaultParams())
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = Classify(1, math.NaN(), 1, DefaultParams())
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestClassifyRejectsOverflow(t *testing.T) {
	_, err := Classify(1e308, 1, 1e-300, DefaultParams())
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = Classify(1e308, 1e-300, 0, DefaultParams())
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestClassifyVelocity(t *testing.T) {
	p := DefaultParams()
	assert.Equal(t, domain.VelocityHigh, ClassifyVelocity(10, p))
	assert.Equal(t, domain.VelocityMedium, ClassifyVelocity(9.99, p))
	assert.Equal(t, domain.VelocityMedium, ClassifyVelocity(3, p))
	assert.Equal(t, domain.VelocityLow, ClassifyVelocity(2.9, p))
	assert.Equal(t, domain.VelocityLow, ClassifyVelocity(0, p))
}
