// Package report renders FlowRecords as downloadable documents.
package report

import (
	"time"

	"github.com/tejusbharadwaj/energyflow/internal/models"
)

// column is one exported flow quantity.
type column struct {
	label string
	value func(models.FlowRecord) *float64
}

var columns = []column{
	{"Grid consumption (kWh)", func(r models.FlowRecord) *float64 { return r.GridConsumption }},
	{"Grid return (kWh)", func(r models.FlowRecord) *float64 { return r.GridReturn }},
	{"Solar production (kWh)", func(r models.FlowRecord) *float64 { return r.SolarProduction }},
	{"Battery charge (kWh)", func(r models.FlowRecord) *float64 { return r.BatteryCharge }},
	{"Battery discharge (kWh)", func(r models.FlowRecord) *float64 { return r.BatteryDischarge }},
	{"Solar to home (kWh)", func(r models.FlowRecord) *float64 { return r.SolarToHome }},
	{"Solar to battery (kWh)", func(r models.FlowRecord) *float64 { return r.SolarToBattery }},
	{"Solar to grid (kWh)", func(r models.FlowRecord) *float64 { return r.SolarToGrid }},
	{"Battery to home (kWh)", func(r models.FlowRecord) *float64 { return r.BatteryToHome }},
	{"Battery to grid (kWh)", func(r models.FlowRecord) *float64 { return r.BatteryToGrid }},
	{"Battery from grid (kWh)", func(r models.FlowRecord) *float64 { return r.BatteryFromGrid }},
	{"Grid to home (kWh)", func(r models.FlowRecord) *float64 { return r.GridToHome }},
	{"Home consumption (kWh)", func(r models.FlowRecord) *float64 { return r.TotalHomeConsumption }},
	{"Non-fossil energy (kWh)", func(r models.FlowRecord) *float64 { return r.NonFossilEnergy }},
	{"Non-fossil fraction", func(r models.FlowRecord) *float64 { return r.NonFossilFraction }},
	{"Self-sufficiency", func(r models.FlowRecord) *float64 { return r.SelfSufficiency }},
	{"Self-consumption", func(r models.FlowRecord) *float64 { return r.SelfConsumption }},
}

// gasLabel names the gas column after its configured unit.
func gasLabel(unit string) string {
	if unit == "" {
		return "Gas consumption"
	}
	return "Gas consumption (" + unit + ")"
}

// configured returns the columns with a value in at least one record, so
// categories absent from the configuration are left out rather than shown as 0.
func configured(records ...models.FlowRecord) []column {
	var out []column
	for _, c := range columns {
		for _, r := range records {
			if c.value(r) != nil {
				out = append(out, c)
				break
			}
		}
	}
	return out
}

func hasGas(records ...models.FlowRecord) bool {
	for _, r := range records {
		if r.GasConsumption != nil {
			return true
		}
	}
	return false
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}
