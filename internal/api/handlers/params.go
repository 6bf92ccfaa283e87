package handlers

import (
	"fmt"
	"slices"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/andresuchdata/distroflow/internal/domain"
	"github.com/andresuchdata/distroflow/internal/engine"
)

// parseParams applies per-request classification overrides on top of base.
func parseParams(c *gin.Context, base engine.Params) (engine.Params, error) {
	p := base

	if raw := strings.TrimSpace(c.Query("mode")); raw != "" {
		mode, ok := engine.ParseMode(raw)
		if !ok {
			return p, fmt.Errorf("%w: unknown mode %q", engine.ErrInvalidInput, raw)
		}
		p.Mode = mode
	}

	if v, ok, err := queryFloat(c, "overstock_weeks"); err != nil {
		return p, err
	} else if ok {
		if !slices.Contains(engine.OverstockWeekOptions, v) {
			return p, fmt.Errorf("%w: overstock_weeks must be one of %v", engine.ErrInvalidInput, engine.OverstockWeekOptions)
		}
		p.OverstockWeeks = v
	}

	for _, o := range []struct {
		name string
		dst  *float64
	}{
		{"understock_weeks", &p.UnderstockWeeks},
		{"overstock_ratio", &p.OverstockRatio},
		{"understock_ratio", &p.UnderstockRatio},
	} {
		v, ok, err := queryFloat(c, o.name)
		if err != nil {
			return p, err
		}
		if ok {
			*o.dst = v
		}
	}

	if err := p.Validate(); err != nil {
		return p, err
	}
	return p, nil
}

func queryFloat(c *gin.Context, name string) (float64, bool, error) {
	raw := strings.TrimSpace(c.Query(name))
	if raw == "" {
		return 0, false, nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, false, fmt.Errorf("%w: %s must be a number", engine.ErrInvalidInput, name)
	}
	return v, true, nil
}

// queryInt returns def when the parameter is absent.
func queryInt(c *gin.Context, name string, def int) (int, error) {
	raw := strings.TrimSpace(c.Query(name))
	if raw == "" {
		return def, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v < 0 {
		return 0, fmt.Errorf("%w: %s must be a non-negative integer", engine.ErrInvalidInput, name)
	}
	return v, nil
}

// queryList supports both ?k=A&k=B and ?k=A,B.
func queryList(c *gin.Context, name string) []string {
	var out []string
	seen := make(map[string]struct{})
	for _, v := range c.QueryArray(name) {
		for _, part := range strings.Split(v, ",") {
			part = strings.TrimSpace(part)
			if part == "" {
				continue
			}
			if _, ok := seen[part]; ok {
				continue
			}
			seen[part] = struct{}{}
			out = append(out, part)
		}
	}
	return out
}

func parseInventoryFilter(c *gin.Context) (domain.InventoryFilter, error) {
	var filter domain.InventoryFilter
	var err error

	if filter.LookbackDays, err = queryInt(c, "lookback_days", 0); err != nil {
		return filter, err
	}
	if filter.HistoryWeeks, err = queryInt(c, "history_weeks", 0); err != nil {
		return filter, err
	}

	filter.DistributorCodes = queryList(c, "distributor")

	for _, label := range queryList(c, "status") {
		st, ok := domain.ParseInventoryStatus(label)
		if !ok {
			return filter, fmt.Errorf("%w: unknown status %q", engine.ErrInvalidInput, label)
		}
		filter.Statuses = append(filter.Statuses, st)
	}

	return filter, nil
}
