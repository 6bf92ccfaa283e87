package drive

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/andresuchdata/distroflow/internal/domain"
)

const weekLayout = "2006-01-02"

var requiredColumns = []string{"week_start", "distributor_code", "ordered_qty", "depleted_qty"}

// ParseWeeklyCSV reads a weekly fact export. Column names are matched
// case-insensitively; distributor_name, product_code and ordered_value are
// optional. Empty numeric cells read as zero.
func ParseWeeklyCSV(r io.Reader) ([]domain.WeeklyFact, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("failed to read CSV header: %w", err)
	}

	colMap := make(map[string]int, len(header))
	for i, col := range header {
		colMap[strings.ToLower(strings.TrimSpace(strings.TrimPrefix(col, "\ufeff")))] = i
	}
	for _, col := range requiredColumns {
		if _, ok := colMap[col]; !ok {
			return nil, fmt.Errorf("missing required column: %s", col)
		}
	}

	var facts []domain.WeeklyFact
	for line := 2; ; line++ {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read CSV record: %w", err)
		}

		fact, err := parseFact(record, colMap)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		facts = append(facts, fact)
	}

	return facts, nil
}

func parseFact(record []string, colMap map[string]int) (domain.WeeklyFact, error) {
	getValue := func(col string) string {
		if idx, ok := colMap[col]; ok && idx < len(record) {
			return strings.TrimSpace(record[idx])
		}
		return ""
	}

	getVolume := func(col string) (float64, error) {
		val := strings.ReplaceAll(getValue(col), ",", "")
		if val == "" {
			return 0, nil
		}
		f, err := strconv.ParseFloat(val, 64)
		if err != nil || f < 0 || math.IsInf(f, 0) || math.IsNaN(f) {
			return 0, fmt.Errorf("%s must be a non-negative number, got %q", col, getValue(col))
		}
		return f, nil
	}

	var fact domain.WeeklyFact
	var err error

	fact.WeekStart, err = time.Parse(weekLayout, getValue("week_start"))
	if err != nil {
		return fact, fmt.Errorf("invalid week_start %q", getValue("week_start"))
	}

	fact.DistributorCode = getValue("distributor_code")
	if fact.DistributorCode == "" {
		return fact, fmt.Errorf("distributor_code is required")
	}
	fact.DistributorName = getValue("distributor_name")
	if fact.DistributorName == "" {
		fact.DistributorName = fact.DistributorCode
	}
	fact.ProductCode = getValue("product_code")

	if fact.OrderedQty, err = getVolume("ordered_qty"); err != nil {
		return fact, err
	}
	if fact.OrderedValue, err = getVolume("ordered_value"); err != nil {
		return fact, err
	}
	if fact.DepletedQty, err = getVolume("depleted_qty"); err != nil {
		return fact, err
	}

	return fact, nil
}

// WeeklyRecords sums facts per week, oldest first. An empty distributorCode
// aggregates the whole network.
func WeeklyRecords(facts []domain.WeeklyFact, distributorCode string) []domain.TimeSeriesRecord {
	byWeek := make(map[time.Time]*domain.TimeSeriesRecord)
	for _, f := range facts {
		if distributorCode != "" && f.DistributorCode != distributorCode {
			continue
		}
		rec, ok := byWeek[f.WeekStart]
		if !ok {
			rec = &domain.TimeSeriesRecord{PeriodStart: f.WeekStart}
			byWeek[f.WeekStart] = rec
		}
		rec.OrderedQty += f.OrderedQty
		rec.OrderedValue += f.OrderedValue
		rec.DepletedQty += f.DepletedQty
	}

	out := make([]domain.TimeSeriesRecord, 0, len(byWeek))
	for _, rec := range byWeek {
		out = append(out, *rec)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].PeriodStart.Before(out[j].PeriodStart) })

	return out
}
