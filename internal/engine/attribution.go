package engine

import (
	"fmt"
	"sort"

	"github.com/andresuchdata/distroflow/internal/domain"
)

// Attribute credits a visit with the follow-up volume it plausibly caused.
// Products first seen (or previously at zero) in the follow-up window count
// as new-product units; growth on products present in both windows counts as
// incremental units. Declines are never credited.
func Attribute(baseline, followup map[string]float64) (domain.AttributionResult, error) {
	if err := validateVolumes("baseline", baseline); err != nil {
		return domain.AttributionResult{}, err
	}
	if err := validateVolumes("followup", followup); err != nil {
		return domain.AttributionResult{}, err
	}

	var r domain.AttributionResult
	for _, product := range sortedKeys(followup) {
		before, after := baseline[product], followup[product]
		switch {
		case before == 0 && after > 0:
			r.NewProductUnits += after
		case after > before:
			r.IncrementalUnits += after - before
		}
	}

	if !finite(r.TotalUnits()) {
		return domain.AttributionResult{}, fmt.Errorf("%w: attributed volume overflows", ErrInvalidInput)
	}

	r.PODBefore = countPositive(baseline)
	r.PODAfter = countPositive(followup)
	r.Converted = r.TotalUnits() > 0

	return r, nil
}

// AttributeVisit runs Attribute over a visit window.
func AttributeVisit(v domain.VisitWindow) (domain.VisitAttribution, error) {
	r, err := Attribute(v.Baseline, v.Followup)
	if err != nil {
		return domain.VisitAttribution{}, fmt.Errorf("visit %s: %w", v.TaskID, err)
	}
	if v.Depletions < 0 || !validVolume(v.DepletionDays) {
		return domain.VisitAttribution{}, fmt.Errorf("visit %s: %w: %d depletions over %v days",
			v.TaskID, ErrInvalidInput, v.Depletions, v.DepletionDays)
	}

	return domain.VisitAttribution{
		TaskID:            v.TaskID,
		AccountCode:       v.AccountCode,
		AccountName:       v.AccountName,
		RepName:           v.RepName,
		VisitDate:         v.VisitDate,
		Depletions:        v.Depletions,
		DepletionDays:     v.DepletionDays,
		AttributionResult: r,
	}, nil
}

// SummarizeVisits totals attribution across visits.
func SummarizeVisits(visits []domain.VisitAttribution) domain.VisitSummary {
	var s domain.VisitSummary
	var days daysToDepletion
	accounts := make(map[string]struct{})
	converted := make(map[string]struct{})
	for _, v := range visits {
		s.Visits++
		accounts[v.AccountCode] = struct{}{}
		if v.Converted {
			s.ConvertedVisits++
			converted[v.AccountCode] = struct{}{}
		}
		s.NewProductUnits += v.NewProductUnits
		s.IncrementalUnits += v.IncrementalUnits
		days.add(v)
	}
	s.UniqueAccounts = len(accounts)
	s.ConvertedAccounts = len(converted)
	s.UnitsAttributed = s.NewProductUnits + s.IncrementalUnits
	s.ConversionRate = conversionRate(s.ConvertedVisits, s.Visits)
	s.AvgDaysToDepletion = days.mean()
	return s
}

// SummarizeReps builds the rep leaderboard. Reps with fewer than minVisits
// visits are left out. Rows are ordered by units attributed, highest first.
func SummarizeReps(visits []domain.VisitAttribution, minVisits int) []domain.RepPerformance {
	byRep := make(map[string]*domain.RepPerformance)
	podGrowth := make(map[string]int)
	accounts := make(map[string]map[string]struct{})
	days := make(map[string]*daysToDepletion)
	for _, v := range visits {
		rp, ok := byRep[v.RepName]
		if !ok {
			rp = &domain.RepPerformance{RepName: v.RepName}
			byRep[v.RepName] = rp
			accounts[v.RepName] = make(map[string]struct{})
			days[v.RepName] = &daysToDepletion{}
		}
		rp.Visits++
		accounts[v.RepName][v.AccountCode] = struct{}{}
		days[v.RepName].add(v)
		if v.Converted {
			rp.ConvertedVisits++
		}
		rp.NewProductUnits += v.NewProductUnits
		rp.IncrementalUnits += v.IncrementalUnits
		podGrowth[v.RepName] += v.PODAfter - v.PODBefore
	}

	out := make([]domain.RepPerformance, 0, len(byRep))
	for name, rp := range byRep {
		if rp.Visits < minVisits {
			continue
		}
		rp.UnitsAttributed = rp.NewProductUnits + rp.IncrementalUnits
		rp.ConversionRate = conversionRate(rp.ConvertedVisits, rp.Visits)
		rp.AvgPODGrowth = float64(podGrowth[name]) / float64(rp.Visits)
		rp.UniqueAccounts = len(accounts[name])
		rp.AvgDaysToDepletion = days[name].mean()
		out = append(out, *rp)
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].UnitsAttributed != out[j].UnitsAttributed {
			return out[i].UnitsAttributed > out[j].UnitsAttributed
		}
		return out[i].RepName < out[j].RepName
	})

	return out
}

// daysToDepletion averages over follow-up transactions, not visits.
type daysToDepletion struct {
	days   float64
	events int
}

func (d *daysToDepletion) add(v domain.VisitAttribution) {
	d.days += v.DepletionDays
	d.events += v.Depletions
}

func (d *daysToDepletion) mean() float64 {
	if d.events == 0 {
		return 0
	}
	return d.days / float64(d.events)
}

// conversionRate is a percentage.
func conversionRate(converted, total int) float64 {
	if total == 0 {
		return 0
	}
	return float64(converted) / float64(total) * 100
}

func validateVolumes(window string, volumes map[string]float64) error {
	for product, v := range volumes {
		if !validVolume(v) {
			return fmt.Errorf("%w: %s volume for %s is %v", ErrInvalidInput, window, product, v)
		}
	}
	return nil
}

func countPositive(volumes map[string]float64) int {
	var n int
	for _, v := range volumes {
		if v > 0 {
			n++
		}
	}
	return n
}

func sortedKeys(m map[string]float64) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
