package flow

import (
	"github.com/tejusbharadwaj/energyflow/internal/models"
)

// AdjustCarbon estimates the non-fossil share of grid consumption.
//
// fossil carries the fossil-fuel percentage (0-100) of the grid mix in each
// bucket's State. It is keyed to raw grid import, so the non-fossil grid
// energy is apportioned by GridToHome/GridConsumption before it is attributed
// to the home. Solar and battery energy are separate flows and do not enter
// the fraction.
//
// When fossil has no bucket overlapping gridDeltas the record is left
// untouched, so NonFossilFraction stays nil rather than 0.
func AdjustCarbon(rec *models.FlowRecord, gridDeltas models.DeltaSeries, fossil []models.StatisticBucket) {
	if rec == nil || rec.GridConsumption == nil || rec.GridToHome == nil {
		return
	}

	fossilByBucket := make(map[int64]float64, len(fossil))
	for _, b := range fossil {
		if b.State == nil {
			continue
		}
		fossilByBucket[b.Start.UnixNano()] = *b.State
	}

	var (
		overlap      bool
		nonFossilRaw float64
	)
	for _, d := range gridDeltas {
		pct, ok := fossilByBucket[d.BucketStart.UnixNano()]
		if !ok {
			continue
		}
		overlap = true
		nonFossilRaw += d.Value * (1 - clamp01(pct/100))
	}
	if !overlap {
		return
	}

	rawGrid := *rec.GridConsumption
	if rawGrid <= 0 {
		return
	}
	rec.NonFossilEnergy = models.Float(nonFossilRaw * *rec.GridToHome / rawGrid)
	rec.NonFossilFraction = models.Float(clamp01(nonFossilRaw / rawGrid))
}
