package repository

import (
	"strings"
	"testing"
	"time"

	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/andresuchdata/distroflow/internal/domain"
)

func TestBuildAggregateQuery(t *testing.T) {
	query, args := buildAggregateQuery(domain.InventoryFilter{LookbackDays: 90})
	require.Len(t, args, 1)
	assert.Equal(t, 90, args[0])
	assert.NotContains(t, query, "ANY(")

	query, args = buildAggregateQuery(domain.InventoryFilter{LookbackDays: 30, DistributorCodes: []string{"D1", "D2"}})
	require.Len(t, args, 2)
	assert.Contains(t, query, "d.code = ANY($2::text[])")
	assert.Equal(t, pq.Array([]string{"D1", "D2"}), args[1])
	assert.True(t, strings.HasSuffix(strings.TrimSpace(query), "ORDER BY ordered_value DESC, d.code"))
}

func TestBuildSeriesQuery(t *testing.T) {
	query, args := buildSeriesQuery(domain.ForecastFilter{Weeks: 26})
	assert.Equal(t, []interface{}{26}, args)
	assert.NotContains(t, query, "distributor_code = $2")

	query, args = buildSeriesQuery(domain.ForecastFilter{Weeks: 26, DistributorCode: "D9"})
	assert.Equal(t, []interface{}{26, "D9"}, args)
	assert.Contains(t, query, "f.distributor_code = $2")
}

func TestBuildProductQuery(t *testing.T) {
	query, args := buildProductQuery("D7", 90)
	assert.Equal(t, []interface{}{"D7", 90}, args)
	assert.Contains(t, query, "f.distributor_code = $1")
	assert.Contains(t, query, "GROUP BY f.distributor_code, f.product_code")
}

func TestBuildVisitQuery(t *testing.T) {
	query, args := buildVisitQuery(domain.VisitFilter{DaysBack: 30, BaselineDays: 30, FollowupDays: 14, RepName: "Sari"})
	assert.Equal(t, []interface{}{30, 30, 14, "Sari"}, args)
	assert.Contains(t, query, "v.rep_name = $4")
	assert.Contains(t, query, "COUNT(s.transaction_date) AS depletions")
}

func strPtr(s string) *string { return &s }
func floatPtr(f float64) *float64 { return &f }

func TestGroupVisitRows(t *testing.T) {
	day := time.Date(2025, 5, 1, 0, 0, 0, 0, time.UTC)
	rows := []visitRow{
		{TaskID: "T1", AccountCode: "A1", RepName: "Sari", VisitDate: day, Phase: strPtr(phaseBaseline), ProductCode: strPtr("SKU1"), Quantity: floatPtr(10), Days: floatPtr(-40), Depletions: 3},
		{TaskID: "T1", AccountCode: "A1", RepName: "Sari", VisitDate: day, Phase: strPtr(phaseFollowup), ProductCode: strPtr("SKU1"), Quantity: floatPtr(15), Days: floatPtr(12), Depletions: 2},
		{TaskID: "T1", AccountCode: "A1", RepName: "Sari", VisitDate: day, Phase: strPtr(phaseFollowup), ProductCode: strPtr("SKU2"), Quantity: floatPtr(8), Days: floatPtr(3), Depletions: 1},
		{TaskID: "T2", AccountCode: "A2", RepName: "Joko", VisitDate: day.AddDate(0, 0, 1), Phase: strPtr(phaseFollowup)},
	}

	windows := groupVisitRows(rows)
	require.Len(t, windows, 2)

	assert.Equal(t, "T1", windows[0].TaskID)
	assert.Equal(t, map[string]float64{"SKU1": 10}, windows[0].Baseline)
	assert.Equal(t, map[string]float64{"SKU1": 15, "SKU2": 8}, windows[0].Followup)
	assert.Equal(t, 3, windows[0].Depletions)
	assert.InDelta(t, 15, windows[0].DepletionDays, 1e-9)

	assert.Equal(t, "T2", windows[1].TaskID)
	assert.Empty(t, windows[1].Baseline)
	assert.Empty(t, windows[1].Followup)
	assert.Zero(t, windows[1].Depletions)
}

func TestMigrationsAreBundled(t *testing.T) {
	body, err := migrationFiles.ReadFile("migrations/001_init.sql")
	require.NoError(t, err)
	assert.Contains(t, string(body), "weekly_distributor_facts")
}
