// Package flow turns raw cumulative meter statistics into a reconciled,
// self-consistent set of energy flows.
//
// The package is pure: nothing in it performs I/O or keeps state between
// calls, so every function is safe to call concurrently and repeatedly.
//
// Pipeline:
//   - ComputeDeltas converts a cumulative series into per-bucket deltas
//   - Aggregate sums deltas per category into period Totals
//   - Reconcile balances Totals into a FlowRecord
//   - AdjustCarbon estimates the non-fossil share of the record
package flow

import (
	"sort"

	"github.com/tejusbharadwaj/energyflow/internal/models"
)

// ComputeDeltas converts a cumulative-sum series into per-bucket deltas.
//
// Rules, applied while walking buckets in timestamp order:
//   - consecutive buckets with the same start collapse to the later reading
//   - a nil sum emits nothing and makes the next reading a fresh baseline
//   - the first reading after a baseline reset emits nothing
//   - a negative difference (counter reset or rollover) emits 0 and
//     re-baselines from the new reading
//
// The result never contains a negative value.
func ComputeDeltas(series []models.StatisticBucket) models.DeltaSeries {
	buckets := collapse(series)

	deltas := make(models.DeltaSeries, 0, len(buckets))
	var (
		lastSum  float64
		baseline bool
	)
	for _, b := range buckets {
		if b.Sum == nil {
			baseline = false
			continue
		}
		sum := *b.Sum
		if !baseline {
			lastSum = sum
			baseline = true
			continue
		}

		delta := sum - lastSum
		lastSum = sum
		if delta < 0 {
			delta = 0
		}
		deltas = append(deltas, models.Delta{BucketStart: b.Start, Value: delta})
	}
	return deltas
}

// collapse returns series sorted by start with duplicate starts reduced to
// the last reading for that start.
func collapse(series []models.StatisticBucket) []models.StatisticBucket {
	sorted := make([]models.StatisticBucket, len(series))
	copy(sorted, series)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Start.Before(sorted[j].Start)
	})

	out := sorted[:0]
	for _, b := range sorted {
		if n := len(out); n > 0 && out[n-1].Start.Equal(b.Start) {
			out[n-1] = b
			continue
		}
		out = append(out, b)
	}
	return out
}

// MergeDeltas sums several delta series bucket by bucket. A bucket is present
// in the result when at least one input has it.
func MergeDeltas(series ...models.DeltaSeries) models.DeltaSeries {
	byStart := make(map[int64]*models.Delta)
	var order []int64
	for _, s := range series {
		for _, d := range s {
			key := d.BucketStart.UnixNano()
			if existing, ok := byStart[key]; ok {
				existing.Value += d.Value
				continue
			}
			d := d
			byStart[key] = &d
			order = append(order, key)
		}
	}

	sort.Slice(order, func(i, j int) bool { return order[i] < order[j] })
	merged := make(models.DeltaSeries, 0, len(order))
	for _, key := range order {
		merged = append(merged, *byStart[key])
	}
	return merged
}
