package models

import (
	"fmt"
	"time"
)

// Category is the canonical role a monitored point plays in the energy balance.
type Category string

const (
	CategoryGridImport       Category = "grid_import"
	CategoryGridExport       Category = "grid_export"
	CategorySolar            Category = "solar"
	CategoryBatteryCharge    Category = "battery_charge"
	CategoryBatteryDischarge Category = "battery_discharge"
	CategoryGas              Category = "gas"
	CategoryCarbonIntensity  Category = "carbon_intensity"
)

// Categories lists every category in resolution order.
var Categories = []Category{
	CategoryGridImport,
	CategoryGridExport,
	CategorySolar,
	CategoryBatteryCharge,
	CategoryBatteryDischarge,
	CategoryGas,
	CategoryCarbonIntensity,
}

// MonitoredPoint identifies one physical sensor or counter.
type MonitoredPoint struct {
	ID       string   `json:"id"`
	Category Category `json:"category"`
	Unit     string   `json:"unit,omitempty"`
}

// Granularity is the bucket size requested from the statistics store.
type Granularity string

const (
	GranularityHour  Granularity = "hour"
	GranularityDay   Granularity = "day"
	GranularityWeek  Granularity = "week"
	GranularityMonth Granularity = "month"
	GranularityYear  Granularity = "year"
)

// IsValid reports whether g is one of the supported granularities.
func (g Granularity) IsValid() bool {
	switch g {
	case GranularityHour, GranularityDay, GranularityWeek, GranularityMonth, GranularityYear:
		return true
	}
	return false
}

// Interval returns the TimescaleDB bucket interval for g.
func (g Granularity) Interval() string {
	switch g {
	case GranularityHour:
		return "1 hour"
	case GranularityDay:
		return "1 day"
	case GranularityWeek:
		return "1 week"
	case GranularityMonth:
		return "1 month"
	case GranularityYear:
		return "1 year"
	}
	return ""
}

// Step advances t by one bucket of size g.
func (g Granularity) Step(t time.Time, n int) time.Time {
	switch g {
	case GranularityHour:
		return t.Add(time.Duration(n) * time.Hour)
	case GranularityDay:
		return t.AddDate(0, 0, n)
	case GranularityWeek:
		return t.AddDate(0, 0, 7*n)
	case GranularityMonth:
		return t.AddDate(0, n, 0)
	case GranularityYear:
		return t.AddDate(n, 0, 0)
	}
	return t
}

// Truncate rounds t down to the start of its bucket in UTC. Weeks start on
// Monday.
func (g Granularity) Truncate(t time.Time) time.Time {
	t = t.UTC()
	switch g {
	case GranularityDay:
		return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
	case GranularityWeek:
		day := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
		offset := (int(day.Weekday()) + 6) % 7
		return day.AddDate(0, 0, -offset)
	case GranularityMonth:
		return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
	case GranularityYear:
		return time.Date(t.Year(), 1, 1, 0, 0, 0, 0, time.UTC)
	}
	return t.Truncate(time.Hour)
}

// Aligned reports whether t sits exactly on a bucket boundary of g.
func (g Granularity) Aligned(t time.Time) bool {
	return g.Truncate(t).Equal(t)
}

// Period is the half-open range [Start, End) a FlowRecord describes.
type Period struct {
	Start       time.Time   `json:"start"`
	End         time.Time   `json:"end"`
	Granularity Granularity `json:"granularity"`
}

// Key returns a stable memoization key for the period.
func (p Period) Key() string {
	return fmt.Sprintf("%d:%d:%s", p.Start.UnixNano(), p.End.UnixNano(), p.Granularity)
}

// Contains reports whether t falls inside the period.
func (p Period) Contains(t time.Time) bool {
	return !t.Before(p.Start) && t.Before(p.End)
}

// StatisticBucket is one sample of a point's raw cumulative series.
// A nil Sum marks a counter reset or a missing reading.
type StatisticBucket struct {
	Start time.Time `json:"start"`
	Sum   *float64  `json:"sum,omitempty"`
	State *float64  `json:"state,omitempty"`
}

// StatisticRow is a raw reading as stored in the statistics table.
type StatisticRow struct {
	PointID string
	Time    time.Time
	Sum     *float64
	State   *float64
}

// Delta is the consumption or production attributed to one bucket.
type Delta struct {
	BucketStart time.Time `json:"bucket_start"`
	Value       float64   `json:"value"`
}

// DeltaSeries holds per-bucket deltas in bucket order. Gaps are represented
// by absent entries, never by zero values.
type DeltaSeries []Delta

// Sum adds every delta in the series.
func (s DeltaSeries) Sum() float64 {
	var total float64
	for _, d := range s {
		total += d.Value
	}
	return total
}

// Totals are per-category period totals in kWh (gas in its configured unit).
// A nil field means the category is not configured.
type Totals struct {
	Grid             *float64
	GridReturn       *float64
	Solar            *float64
	BatteryCharge    *float64
	BatteryDischarge *float64
	Gas              *float64
}

// FlowRecord is the reconciled set of energy flows for one period.
type FlowRecord struct {
	Period     Period    `json:"period"`
	NoData     bool      `json:"no_data,omitempty"`
	ComputedAt time.Time `json:"computed_at"`

	GridConsumption  *float64 `json:"grid_consumption,omitempty"`
	GridReturn       *float64 `json:"grid_return,omitempty"`
	SolarProduction  *float64 `json:"solar_production,omitempty"`
	BatteryCharge    *float64 `json:"battery_charge,omitempty"`
	BatteryDischarge *float64 `json:"battery_discharge,omitempty"`
	GasConsumption   *float64 `json:"gas_consumption,omitempty"`
	GasUnit          string   `json:"gas_unit,omitempty"`

	SolarToHome          *float64 `json:"solar_to_home,omitempty"`
	SolarToBattery       *float64 `json:"solar_to_battery,omitempty"`
	SolarToGrid          *float64 `json:"solar_to_grid,omitempty"`
	BatteryToHome        *float64 `json:"battery_to_home,omitempty"`
	BatteryToGrid        *float64 `json:"battery_to_grid,omitempty"`
	BatteryFromGrid      *float64 `json:"battery_from_grid,omitempty"`
	GridToHome           *float64 `json:"grid_to_home,omitempty"`
	TotalHomeConsumption *float64 `json:"total_home_consumption,omitempty"`

	NonFossilEnergy   *float64 `json:"non_fossil_energy,omitempty"`
	NonFossilFraction *float64 `json:"non_fossil_fraction,omitempty"`
	SelfSufficiency   *float64 `json:"self_sufficiency,omitempty"`
	SelfConsumption   *float64 `json:"self_consumption,omitempty"`

	// UnreconciledDeficit is the sensor disagreement absorbed by clamping.
	UnreconciledDeficit float64 `json:"unreconciled_deficit,omitempty"`
}

// Float returns a pointer to v.
func Float(v float64) *float64 {
	return &v
}

// Value dereferences p, treating nil as zero.
func Value(p *float64) float64 {
	if p == nil {
		return 0
	}
	return *p
}

// SourceGroup maps each configured category to its ordered monitored points.
// Version changes whenever the underlying configuration changes.
type SourceGroup struct {
	Points  map[Category][]MonitoredPoint `json:"points"`
	Version uint64                        `json:"version"`
	GasUnit string                        `json:"gas_unit,omitempty"`
	// CarbonRegion names the grid region of the carbon-intensity reference.
	CarbonRegion string `json:"carbon_region,omitempty"`
}

// Has reports whether at least one point is configured for c.
func (g SourceGroup) Has(c Category) bool {
	return len(g.Points[c]) > 0
}

// PointIDs returns the ids of every configured point in category order.
func (g SourceGroup) PointIDs() []string {
	var ids []string
	for _, c := range Categories {
		for _, p := range g.Points[c] {
			ids = append(ids, p.ID)
		}
	}
	return ids
}
