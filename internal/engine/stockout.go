package engine

import (
	"fmt"
	"math"
	"time"

	"github.com/andresuchdata/distroflow/internal/domain"
)

// Assess projects when a stock position runs out and how urgently it needs
// reordering. history is the trailing weekly depletion series, oldest first;
// it may be empty.
func Assess(current domain.CurrentPosition, history []float64, asOf time.Time, p Params) (domain.StockoutAssessment, error) {
	if err := validatePosition(current); err != nil {
		return domain.StockoutAssessment{}, err
	}
	for i, v := range history {
		if !validVolume(v) {
			return domain.StockoutAssessment{}, fmt.Errorf("%w: history value %d is %v", ErrInvalidInput, i, v)
		}
	}

	// 1. Velocity trend, recent window vs the one before it
	trend := velocityTrend(history, p.TrendWindow)

	// 2. Consistency
	consistency := p.DefaultConsistency
	if cv, ok := coefficientOfVariation(history); ok {
		consistency = cv
	}

	// 3. Trend-adjusted weekly rate
	adjusted := math.Max(current.WeeklyDepletionRate*(1+p.TrendRateWeight*trend), 0)

	// 4. Weeks until stockout; risk, reorder quantity and urgency follow from it
	var weeks *float64
	switch {
	case adjusted > 0 && current.OrderedQty > 0:
		w := current.OrderedQty / adjusted
		weeks = &w
	case current.WeeksOfInventory != nil && *current.WeeksOfInventory > 0:
		w := *current.WeeksOfInventory
		weeks = &w
	}

	reorder := math.Max(0, adjusted*p.ReorderTargetWeeks-current.OrderedQty)
	if !finite(trend, consistency, adjusted, reorder) || (weeks != nil && !finite(*weeks)) {
		return domain.StockoutAssessment{}, fmt.Errorf("%w: position or history overflows the assessment", ErrInvalidInput)
	}

	a := domain.StockoutAssessment{
		WeeksUntilStockout: weeks,
		PredictedDate:      predictedDate(asOf, weeks),
		RiskScore:          riskScore(weeks, trend, consistency, current.DepletedQty, p),
		ReorderQty:         reorder,
		Urgency:            urgency(weeks, adjusted, p),
		VelocityTrend:      trend,
		Consistency:        consistency,
		AdjustedWeeklyRate: adjusted,
	}

	return a, nil
}

func validatePosition(c domain.CurrentPosition) error {
	if !validVolume(c.OrderedQty) || !validVolume(c.DepletedQty) || !validVolume(c.WeeklyDepletionRate) {
		return fmt.Errorf("%w: position has a negative or non-finite volume", ErrInvalidInput)
	}
	if c.WeeksOfInventory != nil && (math.IsNaN(*c.WeeksOfInventory) || math.IsInf(*c.WeeksOfInventory, 0)) {
		return fmt.Errorf("%w: weeks of inventory is %v", ErrInvalidInput, *c.WeeksOfInventory)
	}
	return nil
}

// velocityTrend is the relative change of the last window against up to one
// window of observations preceding it; 0 when either side is unavailable.
func velocityTrend(history []float64, window int) float64 {
	n := len(history)
	if n < window {
		return 0
	}

	prior := history[max(0, n-2*window) : n-window]
	if len(prior) == 0 {
		return 0
	}
	priorMean := mean(prior)
	if priorMean == 0 {
		return 0
	}

	return (mean(history[n-window:]) - priorMean) / priorMean
}

func riskScore(weeks *float64, trend, consistency, depleted float64, p Params) float64 {
	if weeks == nil {
		if depleted > 0 {
			return p.UnmeasuredRisk
		}
		return 0
	}

	score := clamp(100-*weeks*p.RiskSlope, 0, 100)
	score *= 1 + math.Max(0, trend)*p.TrendRiskWeight
	score *= 1 + math.Min(p.ConsistencyRiskCap, consistency*p.ConsistencyRiskWeight)

	return clamp(score, 0, 100)
}

func urgency(weeks *float64, adjusted float64, p Params) domain.Urgency {
	if weeks == nil || adjusted <= 0 {
		return domain.UrgencyNotApplicable
	}

	switch {
	case *weeks < p.CriticalWeeks:
		return domain.UrgencyCritical
	case *weeks < p.HighWeeks:
		return domain.UrgencyHigh
	case *weeks < p.MediumWeeks:
		return domain.UrgencyMedium
	default:
		return domain.UrgencyLow
	}
}

func predictedDate(asOf time.Time, weeks *float64) *time.Time {
	if weeks == nil {
		return nil
	}
	d := *weeks * daysPerWeek * float64(24*time.Hour)
	if d >= math.MaxInt64 {
		return nil
	}
	t := asOf.Add(time.Duration(d))
	return &t
}
