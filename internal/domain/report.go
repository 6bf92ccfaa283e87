package domain

import "time"

// DistributorAggregate is the trailing-window activity of one distributor.
type DistributorAggregate struct {
	DistributorCode     string  `json:"distributor_code" db:"distributor_code"`
	DistributorName     string  `json:"distributor_name" db:"distributor_name"`
	OrderedQty          float64 `json:"ordered_qty" db:"ordered_qty"`
	OrderedValue        float64 `json:"ordered_value" db:"ordered_value"`
	DepletedQty         float64 `json:"depleted_qty" db:"depleted_qty"`
	WeeklyDepletionRate float64 `json:"weekly_depletion_rate" db:"weekly_depletion_rate"`
}

// Position returns the stock position used by the risk scorer.
func (a DistributorAggregate) Position() CurrentPosition {
	return CurrentPosition{
		OrderedQty:          a.OrderedQty,
		DepletedQty:         a.DepletedQty,
		WeeklyDepletionRate: a.WeeklyDepletionRate,
	}
}

// InventoryReportRow is one distributor line of the inventory report.
type InventoryReportRow struct {
	DistributorAggregate
	Classification
	Velocity VelocityStatus     `json:"velocity"`
	Stockout StockoutAssessment `json:"stockout"`
}

// StatusCount is the number of distributors in a given status.
type StatusCount struct {
	Status InventoryStatus `json:"status"`
	Count  int             `json:"count"`
}

// InventoryReport is the network-wide inventory health report.
type InventoryReport struct {
	GeneratedAt time.Time            `json:"generated_at"`
	Rows        []InventoryReportRow `json:"rows"`
	Summary     []StatusCount        `json:"summary"`
}

// ProductAggregate is the trailing-window activity of one product at one
// distributor.
type ProductAggregate struct {
	DistributorCode     string  `json:"distributor_code" db:"distributor_code"`
	ProductCode         string  `json:"product_code" db:"product_code"`
	OrderedQty          float64 `json:"ordered_qty" db:"ordered_qty"`
	DepletedQty         float64 `json:"depleted_qty" db:"depleted_qty"`
	ActiveWeeks         int     `json:"active_weeks" db:"active_weeks"`
	WeeklyDepletionRate float64 `json:"weekly_depletion_rate" db:"weekly_depletion_rate"`
}

// ProductVelocityRow is one product line of a distributor's velocity report.
type ProductVelocityRow struct {
	ProductAggregate
	Velocity VelocityStatus `json:"velocity"`
}

// VelocityCount is the number of products in a given velocity bucket.
type VelocityCount struct {
	Velocity VelocityStatus `json:"velocity"`
	Count    int            `json:"count"`
}

// ProductVelocityReport breaks one distributor's depletions down by product.
type ProductVelocityReport struct {
	GeneratedAt     time.Time            `json:"generated_at"`
	DistributorCode string               `json:"distributor_code"`
	DistributorName string               `json:"distributor_name"`
	Products        []ProductVelocityRow `json:"products"`
	Summary         []VelocityCount      `json:"summary"`
}

// InventoryFilter represents filters for inventory report queries.
type InventoryFilter struct {
	LookbackDays     int
	HistoryWeeks     int
	DistributorCodes []string
	Statuses         []InventoryStatus
}

// ForecastFilter represents filters for forecast queries.
type ForecastFilter struct {
	DistributorCode string
	Weeks           int
	Horizon         int
}

// VisitFilter represents filters for visit attribution queries.
type VisitFilter struct {
	DaysBack     int
	BaselineDays int
	FollowupDays int
	RepName      string
}

// VisitReport is the attribution of every visit in a window plus the rep
// leaderboard.
type VisitReport struct {
	Visits      []VisitAttribution `json:"visits"`
	Summary     VisitSummary       `json:"summary"`
	Leaderboard []RepPerformance   `json:"leaderboard"`
}

// SnapshotRun records one batch export of the inventory report.
type SnapshotRun struct {
	ID         string     `json:"id" db:"id"`
	Status     string     `json:"status" db:"status"`
	Rows       int        `json:"rows" db:"rows"`
	ObjectKey  string     `json:"object_key" db:"object_key"`
	Error      *string    `json:"error,omitempty" db:"error"`
	StartedAt  time.Time  `json:"started_at" db:"started_at"`
	FinishedAt *time.Time `json:"finished_at,omitempty" db:"finished_at"`
}
