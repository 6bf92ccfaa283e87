package engine

import (
	"fmt"
	"math"
	"strings"
)

// ClassificationMode selects how Classify buckets a stock position with
// depletion activity.
type ClassificationMode string

const (
	// ModeRatio compares trailing ordered units against depleted units.
	ModeRatio ClassificationMode = "ratio"
	// ModeWeeks compares weeks of inventory against week thresholds.
	ModeWeeks ClassificationMode = "weeks"
)

// OverstockWeekOptions are the overstock cutoffs offered to operators.
var OverstockWeekOptions = []float64{8, 10, 12, 16}

// Params holds every tunable threshold of the engine. It is passed by value
// into each computation; there is no package-level mutable configuration.
type Params struct {
	// Forecasting
	MinHistory     int     // populated periods required to forecast
	TrendWindow    int     // periods in the recent/previous trend windows
	Damping        float64 // per-step trend decay
	MeanReversion  float64 // per-step pull of the level toward the overall mean
	FloorRatio     float64 // forecast floor as a fraction of the recent mean
	CVCap          float64 // cap on the coefficient of variation
	DefaultCV      float64 // CV used when the series mean is zero
	HorizonGrowth  float64 // uncertainty growth per sqrt(step)
	CI80Width      float64
	CI95Width      float64
	CI80FloorRatio float64 // lower 80% bound as a fraction of the floor
	CI95FloorRatio float64 // lower 95% bound as a fraction of the floor

	// Classification
	Mode            ClassificationMode
	OverstockRatio  float64
	UnderstockRatio float64
	OverstockWeeks  float64
	UnderstockWeeks float64

	// Stockout risk
	TrendRateWeight       float64 // influence of velocity trend on the weekly rate
	DefaultConsistency    float64 // CV used when history is empty or all zero
	RiskSlope             float64 // risk points lost per week of cover
	TrendRiskWeight       float64
	ConsistencyRiskWeight float64
	ConsistencyRiskCap    float64
	UnmeasuredRisk        float64 // risk when weeks until stockout is unknown
	ReorderTargetWeeks    float64
	CriticalWeeks         float64
	HighWeeks             float64
	MediumWeeks           float64

	// Velocity and attribution
	HighVelocityRate   float64
	MediumVelocityRate float64
	MinRepVisits       int

	DefaultHorizon int
	MaxHorizon     int // longest horizon Forecast accepts
}

// DefaultParams returns the production defaults.
func DefaultParams() Params {
	return Params{
		MinHistory:     4,
		TrendWindow:    4,
		Damping:        0.92,
		MeanReversion:  0.05,
		FloorRatio:     0.5,
		CVCap:          0.25,
		DefaultCV:      0.15,
		HorizonGrowth:  0.1,
		CI80Width:      0.8,
		CI95Width:      1.2,
		CI80FloorRatio: 0.8,
		CI95FloorRatio: 0.6,

		Mode:            ModeRatio,
		OverstockRatio:  1.3,
		UnderstockRatio: 0.7,
		OverstockWeeks:  12,
		UnderstockWeeks: 4,

		TrendRateWeight:       0.5,
		DefaultConsistency:    0.2,
		RiskSlope:             8,
		TrendRiskWeight:       0.3,
		ConsistencyRiskWeight: 0.5,
		ConsistencyRiskCap:    0.3,
		UnmeasuredRisk:        50,
		ReorderTargetWeeks:    8,
		CriticalWeeks:         3,
		HighWeeks:             6,
		MediumWeeks:           10,

		HighVelocityRate:   10,
		MediumVelocityRate: 3,
		MinRepVisits:       5,

		DefaultHorizon: 12,
		MaxHorizon:     104,
	}
}

// Validate reports parameter combinations the engine cannot work with.
func (p Params) Validate() error {
	switch {
	case p.MinHistory < 1:
		return fmt.Errorf("%w: min history must be positive, got %d", ErrInvalidInput, p.MinHistory)
	case p.TrendWindow < 1:
		return fmt.Errorf("%w: trend window must be positive, got %d", ErrInvalidInput, p.TrendWindow)
	case p.DefaultHorizon < 1:
		return fmt.Errorf("%w: default horizon must be positive, got %d", ErrInvalidInput, p.DefaultHorizon)
	case p.DefaultHorizon > p.MaxHorizon:
		return fmt.Errorf("%w: default horizon %d above max horizon %d", ErrInvalidInput, p.DefaultHorizon, p.MaxHorizon)
	case p.Mode != ModeRatio && p.Mode != ModeWeeks:
		return fmt.Errorf("%w: unknown classification mode %q", ErrInvalidInput, p.Mode)
	case p.UnderstockRatio > p.OverstockRatio:
		return fmt.Errorf("%w: understock ratio %.2f above overstock ratio %.2f", ErrInvalidInput, p.UnderstockRatio, p.OverstockRatio)
	case p.UnderstockWeeks > p.OverstockWeeks:
		return fmt.Errorf("%w: understock weeks %.1f above overstock weeks %.1f", ErrInvalidInput, p.UnderstockWeeks, p.OverstockWeeks)
	case !(p.CriticalWeeks <= p.HighWeeks && p.HighWeeks <= p.MediumWeeks):
		return fmt.Errorf("%w: urgency cutoffs must be ascending", ErrInvalidInput)
	case p.MediumVelocityRate > p.HighVelocityRate:
		return fmt.Errorf("%w: medium velocity rate above high velocity rate", ErrInvalidInput)
	}

	for name, v := range map[string]float64{
		"damping":                 p.Damping,
		"mean reversion":          p.MeanReversion,
		"floor ratio":             p.FloorRatio,
		"cv cap":                  p.CVCap,
		"default cv":              p.DefaultCV,
		"horizon growth":          p.HorizonGrowth,
		"ci80 width":              p.CI80Width,
		"ci95 width":              p.CI95Width,
		"ci80 floor ratio":        p.CI80FloorRatio,
		"ci95 floor ratio":        p.CI95FloorRatio,
		"risk slope":              p.RiskSlope,
		"trend risk weight":       p.TrendRiskWeight,
		"consistency risk weight": p.ConsistencyRiskWeight,
		"consistency risk cap":    p.ConsistencyRiskCap,
		"reorder target weeks":    p.ReorderTargetWeeks,
		"unmeasured risk":         p.UnmeasuredRisk,
		"high velocity rate":      p.HighVelocityRate,
		"medium velocity rate":    p.MediumVelocityRate,
		"overstock ratio":         p.OverstockRatio,
		"understock ratio":        p.UnderstockRatio,
		"overstock weeks":         p.OverstockWeeks,
		"understock weeks":        p.UnderstockWeeks,
		"trend rate weight":       p.TrendRateWeight,
		"default consistency":     p.DefaultConsistency,
		"critical weeks":          p.CriticalWeeks,
		"high weeks":              p.HighWeeks,
		"medium weeks":            p.MediumWeeks,
	} {
		if math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
			return fmt.Errorf("%w: %s must be a non-negative number, got %v", ErrInvalidInput, name, v)
		}
	}

	if p.CI80FloorRatio > 1 || p.FloorRatio > 1 {
		return fmt.Errorf("%w: floor ratios must not exceed 1", ErrInvalidInput)
	}
	if p.CI95Width < p.CI80Width || p.CI95FloorRatio > p.CI80FloorRatio {
		return fmt.Errorf("%w: 95%% band must enclose the 80%% band", ErrInvalidInput)
	}
	if p.UnmeasuredRisk > 100 {
		return fmt.Errorf("%w: unmeasured risk must be within [0, 100], got %v", ErrInvalidInput, p.UnmeasuredRisk)
	}

	return nil
}

// ParseMode returns the classification mode for a label.
func ParseMode(s string) (ClassificationMode, bool) {
	switch ClassificationMode(strings.ToLower(strings.TrimSpace(s))) {
	case ModeRatio:
		return ModeRatio, true
	case ModeWeeks:
		return ModeWeeks, true
	}
	return "", false
}
