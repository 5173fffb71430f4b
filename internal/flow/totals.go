package flow

import (
	"strings"

	"github.com/tejusbharadwaj/energyflow/internal/models"
)

// ToKWh converts v expressed in unit to kWh. Unknown units pass through.
func ToKWh(v float64, unit string) float64 {
	switch strings.ToLower(unit) {
	case "wh":
		return v / 1000
	case "mwh":
		return v * 1000
	case "mj":
		return v / 3.6
	case "gj":
		return v * 1000 / 3.6
	}
	return v
}

// Aggregation is the per-category view of one period's raw statistics.
type Aggregation struct {
	Totals models.Totals
	// GridDeltas are the merged grid-import deltas in kWh, per bucket.
	GridDeltas models.DeltaSeries
	// HasData is false when no configured energy point reported a reading
	// inside the period. The baseline bucket before it does not count.
	HasData bool
}

// Aggregate computes per-category period totals from raw statistics.
//
// Only deltas whose bucket starts inside period are counted, so callers may
// fetch one extra bucket before the period to give the first bucket a
// baseline. A configured category with no data contributes 0; a category
// without points stays nil in the totals.
func Aggregate(group models.SourceGroup, raw map[string][]models.StatisticBucket, period models.Period) Aggregation {
	var agg Aggregation

	categoryTotal := func(c models.Category) (*float64, models.DeltaSeries) {
		points := group.Points[c]
		if len(points) == 0 {
			return nil, nil
		}
		var (
			total  float64
			series []models.DeltaSeries
		)
		for _, p := range points {
			buckets := raw[p.ID]
			if hasReading(buckets, period) {
				agg.HasData = true
			}
			deltas := inPeriod(ComputeDeltas(buckets), period)
			if c != models.CategoryGas {
				deltas = scale(deltas, p.Unit)
			}
			total += deltas.Sum()
			series = append(series, deltas)
		}
		return models.Float(total), MergeDeltas(series...)
	}

	agg.Totals.Grid, agg.GridDeltas = categoryTotal(models.CategoryGridImport)
	agg.Totals.GridReturn, _ = categoryTotal(models.CategoryGridExport)
	agg.Totals.Solar, _ = categoryTotal(models.CategorySolar)
	agg.Totals.BatteryCharge, _ = categoryTotal(models.CategoryBatteryCharge)
	agg.Totals.BatteryDischarge, _ = categoryTotal(models.CategoryBatteryDischarge)
	agg.Totals.Gas, _ = categoryTotal(models.CategoryGas)

	return agg
}

func hasReading(buckets []models.StatisticBucket, period models.Period) bool {
	for _, b := range buckets {
		if b.Sum != nil && period.Contains(b.Start) {
			return true
		}
	}
	return false
}

func inPeriod(deltas models.DeltaSeries, period models.Period) models.DeltaSeries {
	out := deltas[:0]
	for _, d := range deltas {
		if period.Contains(d.BucketStart) {
			out = append(out, d)
		}
	}
	return out
}

func scale(deltas models.DeltaSeries, unit string) models.DeltaSeries {
	for i := range deltas {
		deltas[i].Value = ToKWh(deltas[i].Value, unit)
	}
	return deltas
}
