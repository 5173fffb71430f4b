package flow

import (
	"errors"
	"math"

	"github.com/tejusbharadwaj/energyflow/internal/models"
)

// Policy names the tie-break order used when sensors disagree.
type Policy string

// PolicyGridBackfill attributes solar to export, then battery, then home, and
// backfills any battery shortfall from grid import. Residual disagreement is
// clamped to zero.
const PolicyGridBackfill Policy = "grid_backfill"

// ErrUnknownPolicy is returned when a configured policy is not supported.
var ErrUnknownPolicy = errors.New("flow: unknown reconciliation policy")

// ParsePolicy validates a configured policy name. The empty string selects
// PolicyGridBackfill.
func ParsePolicy(name string) (Policy, error) {
	switch Policy(name) {
	case "", PolicyGridBackfill:
		return PolicyGridBackfill, nil
	}
	return "", ErrUnknownPolicy
}

// Reconcile balances period totals into a FlowRecord.
//
// Fields of unconfigured categories stay nil; configured categories whose
// flows reconcile to nothing are 0. Every populated field is non-negative.
// Reconcile has no side effects and returns identical records for identical
// totals.
func Reconcile(t models.Totals) models.FlowRecord {
	t = sanitize(t)

	hasGrid := t.Grid != nil
	hasReturn := t.GridReturn != nil
	hasSolar := t.Solar != nil
	hasBattery := t.BatteryCharge != nil || t.BatteryDischarge != nil

	grid := models.Value(t.Grid)
	gridReturn := models.Value(t.GridReturn)
	solar := models.Value(t.Solar)
	charge := models.Value(t.BatteryCharge)
	discharge := models.Value(t.BatteryDischarge)

	rec := models.FlowRecord{
		GridConsumption:  t.Grid,
		GridReturn:       t.GridReturn,
		SolarProduction:  t.Solar,
		BatteryCharge:    t.BatteryCharge,
		BatteryDischarge: t.BatteryDischarge,
		GasConsumption:   t.Gas,
	}

	var solarToHome, batteryFromGrid, shortfall float64
	if hasSolar {
		surplus := solar - gridReturn - charge
		if surplus >= 0 {
			solarToHome = surplus
		} else {
			// Export plus charging exceeded production: the battery must have
			// been topped up from the grid, at most by what was imported.
			shortfall = -surplus
			if hasBattery {
				batteryFromGrid = math.Min(shortfall, grid)
			}
		}
	}

	// Export that neither solar nor grid-funded charging explains left
	// through the battery. Without solar every export did.
	var batteryToGrid float64
	if hasBattery {
		batteryToGrid = gridReturn
		if hasSolar {
			batteryToGrid = math.Max(0, gridReturn-solar-charge-batteryFromGrid)
		}
	}

	switch {
	case shortfall > 0 && hasBattery:
		rec.UnreconciledDeficit = math.Max(0, shortfall-batteryFromGrid-batteryToGrid)
	case shortfall > 0:
		rec.UnreconciledDeficit = shortfall
	}

	if hasSolar {
		rec.SolarToHome = models.Float(solarToHome)
	}

	var batteryToHome float64
	if hasBattery {
		batteryToHome = math.Max(0, discharge-batteryToGrid)

		rec.BatteryFromGrid = models.Float(batteryFromGrid)
		rec.BatteryToGrid = models.Float(batteryToGrid)
		rec.BatteryToHome = models.Float(batteryToHome)
	}
	if hasSolar {
		if hasReturn {
			rec.SolarToGrid = models.Float(math.Max(0, gridReturn-batteryToGrid))
		}
		if hasBattery {
			rec.SolarToBattery = models.Float(math.Max(0, charge-batteryFromGrid))
		}
	}

	gridToHome := math.Max(0, grid-batteryFromGrid)
	if hasGrid {
		rec.GridToHome = models.Float(gridToHome)
	}

	if hasGrid || hasSolar || hasBattery {
		total := gridToHome + solarToHome + batteryToHome
		rec.TotalHomeConsumption = models.Float(total)
		if hasGrid && total > 0 {
			rec.SelfSufficiency = models.Float(clamp01(1 - gridToHome/total))
		}
	}
	if hasSolar && solar > 0 {
		consumed := solarToHome + models.Value(rec.SolarToBattery)
		rec.SelfConsumption = models.Float(clamp01(consumed / solar))
	}

	return rec
}

// sanitize copies t, replacing negative or NaN totals with 0 so that the
// non-negativity of every output holds for arbitrary input.
func sanitize(t models.Totals) models.Totals {
	fix := func(p *float64) *float64 {
		if p == nil {
			return nil
		}
		v := *p
		if v < 0 || math.IsNaN(v) {
			v = 0
		}
		return models.Float(v)
	}
	return models.Totals{
		Grid:             fix(t.Grid),
		GridReturn:       fix(t.GridReturn),
		Solar:            fix(t.Solar),
		BatteryCharge:    fix(t.BatteryCharge),
		BatteryDischarge: fix(t.BatteryDischarge),
		Gas:              fix(t.Gas),
	}
}

func clamp01(v float64) float64 {
	switch {
	case math.IsNaN(v), v < 0:
		return 0
	case v > 1:
		return 1
	}
	return v
}
