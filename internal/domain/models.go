package domain

import "time"

// TimeSeriesRecord is one calendar week of activity for a single entity
// (distributor, product or the whole network).
type TimeSeriesRecord struct {
	PeriodStart  time.Time `json:"period_start" db:"period_start"`
	OrderedQty   float64   `json:"ordered_qty" db:"ordered_qty"`
	OrderedValue float64   `json:"ordered_value" db:"ordered_value"`
	DepletedQty  float64   `json:"depleted_qty" db:"depleted_qty"`
}

// ForecastPoint is a single projected period with its uncertainty bands.
type ForecastPoint struct {
	PeriodIndex int        `json:"period_index"`
	PeriodStart *time.Time `json:"period_start,omitempty"`
	Point       float64    `json:"point"`
	CI80Low     float64    `json:"ci80_low"`
	CI80High    float64    `json:"ci80_high"`
	CI95Low     float64    `json:"ci95_low"`
	CI95High    float64    `json:"ci95_high"`
}

// SeriesForecast holds the independent projections of the depleted-units and
// ordered-value series of one entity.
type SeriesForecast struct {
	History      []TimeSeriesRecord `json:"history"`
	Depleted     []ForecastPoint    `json:"depleted"`
	OrderedValue []ForecastPoint    `json:"ordered_value"`
}

// CurrentPosition is the trailing-window stock position of one entity.
type CurrentPosition struct {
	OrderedQty          float64  `json:"ordered_qty"`
	DepletedQty         float64  `json:"depleted_qty"`
	WeeklyDepletionRate float64  `json:"weekly_depletion_rate"`
	WeeksOfInventory    *float64 `json:"weeks_of_inventory,omitempty"`
}

// Classification is the inventory health verdict for a stock position.
type Classification struct {
	Status           InventoryStatus `json:"status"`
	Ratio            *float64        `json:"ratio"`
	WeeksOfInventory *float64        `json:"weeks_of_inventory"`
}

// StockoutAssessment is the projected stockout risk of one entity.
type StockoutAssessment struct {
	WeeksUntilStockout *float64   `json:"weeks_until_stockout"`
	PredictedDate      *time.Time `json:"predicted_date"`
	RiskScore          float64    `json:"risk_score"`
	ReorderQty         float64    `json:"reorder_qty"`
	Urgency            Urgency    `json:"urgency"`
	VelocityTrend      float64    `json:"velocity_trend"`
	Consistency        float64    `json:"consistency"`
	AdjustedWeeklyRate float64    `json:"adjusted_weekly_rate"`
}

// AttributionResult is the volume a single visit is credited with.
type AttributionResult struct {
	NewProductUnits  float64 `json:"new_product_units"`
	IncrementalUnits float64 `json:"incremental_units"`
	Converted        bool    `json:"converted"`
	PODBefore        int     `json:"pod_before"`
	PODAfter         int     `json:"pod_after"`
}

// TotalUnits is the sum of new-product and incremental units.
func (r AttributionResult) TotalUnits() float64 {
	return r.NewProductUnits + r.IncrementalUnits
}

// VisitWindow is an anchor visit with per-product volumes in the windows
// before and after it.
type VisitWindow struct {
	TaskID      string             `json:"task_id" db:"task_id"`
	AccountCode string             `json:"account_code" db:"account_code"`
	AccountName string             `json:"account_name" db:"account_name"`
	RepName     string             `json:"rep_name" db:"rep_name"`
	VisitDate   time.Time          `json:"visit_date" db:"visit_date"`
	Baseline    map[string]float64 `json:"baseline"`
	Followup    map[string]float64 `json:"followup"`

	// Depletions counts follow-up transactions; DepletionDays sums their
	// distance in days from the visit.
	Depletions    int     `json:"depletions"`
	DepletionDays float64 `json:"depletion_days"`
}

// VisitAttribution is a visit with its attribution result.
type VisitAttribution struct {
	TaskID        string    `json:"task_id"`
	AccountCode   string    `json:"account_code"`
	AccountName   string    `json:"account_name"`
	RepName       string    `json:"rep_name"`
	VisitDate     time.Time `json:"visit_date"`
	Depletions    int       `json:"depletions"`
	DepletionDays float64   `json:"depletion_days"`
	AttributionResult
}

// RepPerformance aggregates attribution results per field rep.
type RepPerformance struct {
	RepName            string  `json:"rep_name"`
	Visits             int     `json:"visits"`
	UniqueAccounts     int     `json:"unique_accounts"`
	ConvertedVisits    int     `json:"converted_visits"`
	ConversionRate     float64 `json:"conversion_rate"`
	NewProductUnits    float64 `json:"new_product_units"`
	IncrementalUnits   float64 `json:"incremental_units"`
	UnitsAttributed    float64 `json:"units_attributed"`
	AvgPODGrowth       float64 `json:"avg_pod_growth"`
	AvgDaysToDepletion float64 `json:"avg_days_to_depletion"`
}

// VisitSummary aggregates attribution results across all visits.
type VisitSummary struct {
	Visits             int     `json:"visits"`
	UniqueAccounts     int     `json:"unique_accounts"`
	ConvertedVisits    int     `json:"converted_visits"`
	ConvertedAccounts  int     `json:"converted_accounts"`
	ConversionRate     float64 `json:"conversion_rate"`
	NewProductUnits    float64 `json:"new_product_units"`
	IncrementalUnits   float64 `json:"incremental_units"`
	UnitsAttributed    float64 `json:"units_attributed"`
	AvgDaysToDepletion float64 `json:"avg_days_to_depletion"`
}

// WeeklyFact is one imported warehouse row.
type WeeklyFact struct {
	WeekStart       time.Time `json:"week_start" db:"week_start"`
	DistributorCode string    `json:"distributor_code" db:"distributor_code"`
	DistributorName string    `json:"distributor_name" db:"distributor_name"`
	ProductCode     string    `json:"product_code" db:"product_code"`
	OrderedQty      float64   `json:"ordered_qty" db:"ordered_qty"`
	OrderedValue    float64   `json:"ordered_value" db:"ordered_value"`
	DepletedQty     float64   `json:"depleted_qty" db:"depleted_qty"`
}
