package cache

import (
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/andresuchdata/distroflow/internal/domain"
	"github.com/andresuchdata/distroflow/internal/engine"
)

const (
	reportKeyPrefix   = "distroflow:report"
	forecastKeyPrefix = "distroflow:forecast"
	keyPrefix         = "distroflow:"
	scanBatchSize     = 100
)

func buildReportKey(filter domain.InventoryFilter, params engine.Params) string {
	parts := []string{fmt.Sprintf("lookback=%d", filter.LookbackDays), fmt.Sprintf("history=%d", filter.HistoryWeeks)}

	if codes := normalizeStrings(filter.DistributorCodes); len(codes) > 0 {
		parts = append(parts, "distributors="+strings.Join(codes, ","))
	}
	if len(filter.Statuses) > 0 {
		statuses := make([]string, 0, len(filter.Statuses))
		for _, s := range filter.Statuses {
			statuses = append(statuses, s.String())
		}
		sort.Strings(statuses)
		parts = append(parts, "statuses="+strings.Join(statuses, ","))
	}

	return fmt.Sprintf("%s:%s", reportKeyPrefix, hashParts(parts, params))
}

func buildForecastKey(filter domain.ForecastFilter, params engine.Params) string {
	parts := []string{
		"distributor=" + strings.ToUpper(strings.TrimSpace(filter.DistributorCode)),
		fmt.Sprintf("weeks=%d", filter.Weeks),
		fmt.Sprintf("horizon=%d", filter.Horizon),
	}

	return fmt.Sprintf("%s:%s", forecastKeyPrefix, hashParts(parts, params))
}

// hashParts folds the engine parameters into the key; outputs computed under
// different thresholds never share an entry.
func hashParts(parts []string, params engine.Params) string {
	encoded, _ := json.Marshal(params)
	parts = append(parts, "params="+string(encoded))

	sum := sha1.Sum([]byte(strings.Join(parts, "|")))
	return hex.EncodeToString(sum[:])
}

func normalizeStrings(values []string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		v = strings.ToUpper(strings.TrimSpace(v))
		if v == "" {
			continue
		}
		out = append(out, v)
	}
	sort.Strings(out)
	return out
}
