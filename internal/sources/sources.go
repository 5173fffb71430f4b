// Package sources resolves the configured energy sources into canonical
// categories of monitored points.
//
// Source definitions are a closed set of variants. Each variant contributes
// points to different categories and carries its own options:
//   - GridSource: import meters and, optionally, paired export meters
//   - SolarSource: one inverter production meter
//   - BatterySource: a charge meter and a discharge meter
//   - GasSource: one gas meter with its volume or energy unit
//   - CO2Signal: the carbon-intensity reference series for grid import
package sources

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/tejusbharadwaj/energyflow/internal/models"
)

var (
	// ErrUnknownSourceType is returned for a definition with an unsupported type.
	ErrUnknownSourceType = errors.New("sources: unknown source type")
	// ErrMissingMeter is returned when a definition lacks a required meter id.
	ErrMissingMeter = errors.New("sources: missing meter id")
	// ErrDuplicatePoint is returned when a meter id is configured twice.
	ErrDuplicatePoint = errors.New("sources: duplicate monitored point")
)

// Source is one configured energy source.
type Source interface {
	// points lists the monitored points the source contributes.
	points() []models.MonitoredPoint
}

// GridSource is a grid connection with its import and export meters.
type GridSource struct {
	Imports []string
	Exports []string
	Unit    string
}

// SolarSource is a solar inverter production meter.
type SolarSource struct {
	Production string
	Unit       string
}

// BatterySource is a battery system with its charge and discharge meters.
type BatterySource struct {
	Charge    string
	Discharge string
	Unit      string
}

// GasSource is a gas meter.
type GasSource struct {
	Consumption string
	Unit        string
}

// CO2Signal references the fossil-fuel share of the grid mix.
type CO2Signal struct {
	Entity string
	Region string
}

func (s GridSource) points() []models.MonitoredPoint {
	var pts []models.MonitoredPoint
	for _, id := range s.Imports {
		pts = append(pts, models.MonitoredPoint{ID: id, Category: models.CategoryGridImport, Unit: s.Unit})
	}
	for _, id := range s.Exports {
		pts = append(pts, models.MonitoredPoint{ID: id, Category: models.CategoryGridExport, Unit: s.Unit})
	}
	return pts
}

func (s SolarSource) points() []models.MonitoredPoint {
	return []models.MonitoredPoint{{ID: s.Production, Category: models.CategorySolar, Unit: s.Unit}}
}

func (s BatterySource) points() []models.MonitoredPoint {
	return []models.MonitoredPoint{
		{ID: s.Charge, Category: models.CategoryBatteryCharge, Unit: s.Unit},
		{ID: s.Discharge, Category: models.CategoryBatteryDischarge, Unit: s.Unit},
	}
}

func (s GasSource) points() []models.MonitoredPoint {
	return []models.MonitoredPoint{{ID: s.Consumption, Category: models.CategoryGas, Unit: s.Unit}}
}

func (s CO2Signal) points() []models.MonitoredPoint {
	return []models.MonitoredPoint{{ID: s.Entity, Category: models.CategoryCarbonIntensity, Unit: "%"}}
}

// Definition is the on-disk form of one source.
type Definition struct {
	Type string `yaml:"type"`

	FlowFrom []FlowMeter `yaml:"flow_from,omitempty"`
	FlowTo   []FlowMeter `yaml:"flow_to,omitempty"`

	StatEnergyFrom string `yaml:"stat_energy_from,omitempty"`
	StatEnergyTo   string `yaml:"stat_energy_to,omitempty"`

	Unit string `yaml:"unit,omitempty"`
}

// FlowMeter is one grid meter reference.
type FlowMeter struct {
	StatEnergyFrom string `yaml:"stat_energy_from,omitempty"`
	StatEnergyTo   string `yaml:"stat_energy_to,omitempty"`
}

// CO2Definition is the on-disk form of the carbon-intensity reference.
type CO2Definition struct {
	Entity string `yaml:"entity"`
	Region string `yaml:"region,omitempty"`
}

// File is the layout of the energy sources file.
type File struct {
	Sources   []Definition   `yaml:"energy_sources"`
	CO2Signal *CO2Definition `yaml:"co2_signal,omitempty"`
}

// LoadFile reads source definitions from a YAML file.
func LoadFile(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read sources file: %w", err)
	}

	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to unmarshal sources file: %w", err)
	}
	return &f, nil
}

// Parse converts the on-disk definitions into typed sources.
func (f *File) Parse() ([]Source, error) {
	parsed := make([]Source, 0, len(f.Sources)+1)
	for i, def := range f.Sources {
		src, err := def.parse()
		if err != nil {
			return nil, fmt.Errorf("source %d: %w", i, err)
		}
		parsed = append(parsed, src)
	}
	if f.CO2Signal != nil && f.CO2Signal.Entity != "" {
		parsed = append(parsed, CO2Signal{Entity: f.CO2Signal.Entity, Region: f.CO2Signal.Region})
	}
	return parsed, nil
}

func (d Definition) parse() (Source, error) {
	switch d.Type {
	case "grid":
		src := GridSource{Unit: d.Unit}
		for _, m := range d.FlowFrom {
			if m.StatEnergyFrom == "" {
				return nil, fmt.Errorf("grid flow_from: %w", ErrMissingMeter)
			}
			src.Imports = append(src.Imports, m.StatEnergyFrom)
		}
		for _, m := range d.FlowTo {
			if m.StatEnergyTo == "" {
				return nil, fmt.Errorf("grid flow_to: %w", ErrMissingMeter)
			}
			src.Exports = append(src.Exports, m.StatEnergyTo)
		}
		if len(src.Imports) == 0 {
			return nil, fmt.Errorf("grid: %w", ErrMissingMeter)
		}
		return src, nil
	case "solar":
		if d.StatEnergyFrom == "" {
			return nil, fmt.Errorf("solar: %w", ErrMissingMeter)
		}
		return SolarSource{Production: d.StatEnergyFrom, Unit: d.Unit}, nil
	case "battery":
		if d.StatEnergyFrom == "" || d.StatEnergyTo == "" {
			return nil, fmt.Errorf("battery: %w", ErrMissingMeter)
		}
		return BatterySource{Charge: d.StatEnergyTo, Discharge: d.StatEnergyFrom, Unit: d.Unit}, nil
	case "gas":
		if d.StatEnergyFrom == "" {
			return nil, fmt.Errorf("gas: %w", ErrMissingMeter)
		}
		return GasSource{Consumption: d.StatEnergyFrom, Unit: d.Unit}, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownSourceType, d.Type)
}
