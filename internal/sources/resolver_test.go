package sources

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tejusbharadwaj/energyflow/internal/models"
)

const sourcesYAML = `
energy_sources:
  - type: grid
    unit: kWh
    flow_from:
      - stat_energy_from: sensor.grid_import_t1
      - stat_energy_from: sensor.grid_import_t2
    flow_to:
      - stat_energy_to: sensor.grid_export
  - type: solar
    stat_energy_from: sensor.inverter_energy
    unit: Wh
  - type: battery
    stat_energy_from: sensor.battery_out
    stat_energy_to: sensor.battery_in
  - type: gas
    stat_energy_from: sensor.gas_meter
    unit: m³
co2_signal:
  entity: sensor.grid_fossil_percentage
  region: DE
`

func writeSources(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "sources.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestResolveFile(t *testing.T) {
	group, err := ResolveFile(writeSources(t, sourcesYAML))
	require.NoError(t, err)

	assert.Equal(t, []models.MonitoredPoint{
		{ID: "sensor.grid_import_t1", Category: models.CategoryGridImport, Unit: "kWh"},
		{ID: "sensor.grid_import_t2", Category: models.CategoryGridImport, Unit: "kWh"},
	}, group.Points[models.CategoryGridImport])
	assert.Equal(t, "sensor.grid_export", group.Points[models.CategoryGridExport][0].ID)
	assert.Equal(t, "Wh", group.Points[models.CategorySolar][0].Unit)
	assert.Equal(t, "sensor.battery_in", group.Points[models.CategoryBatteryCharge][0].ID)
	assert.Equal(t, "sensor.battery_out", group.Points[models.CategoryBatteryDischarge][0].ID)
	assert.Equal(t, "sensor.gas_meter", group.Points[models.CategoryGas][0].ID)
	assert.Equal(t, "sensor.grid_fossil_percentage", group.Points[models.CategoryCarbonIntensity][0].ID)
	assert.Equal(t, "m³", group.GasUnit)
	assert.Equal(t, "DE", group.CarbonRegion)
	assert.NotZero(t, group.Version)

	assert.Equal(t, []string{
		"sensor.grid_import_t1",
		"sensor.grid_import_t2",
		"sensor.grid_export",
		"sensor.inverter_energy",
		"sensor.battery_in",
		"sensor.battery_out",
		"sensor.gas_meter",
		"sensor.grid_fossil_percentage",
	}, group.PointIDs())
}

func TestResolveOmitsUnconfiguredCategories(t *testing.T) {
	group, err := Resolve([]Source{GridSource{Imports: []string{"grid"}}})
	require.NoError(t, err)

	assert.True(t, group.Has(models.CategoryGridImport))
	assert.False(t, group.Has(models.CategorySolar))
	assert.False(t, group.Has(models.CategoryGridExport))
	_, ok := group.Points[models.CategoryBatteryCharge]
	assert.False(t, ok)
}

func TestResolveVersion(t *testing.T) {
	a, err := Resolve([]Source{GridSource{Imports: []string{"grid"}}, SolarSource{Production: "pv"}})
	require.NoError(t, err)
	b, err := Resolve([]Source{GridSource{Imports: []string{"grid"}}, SolarSource{Production: "pv"}})
	require.NoError(t, err)
	c, err := Resolve([]Source{GridSource{Imports: []string{"grid"}}, SolarSource{Production: "pv2"}})
	require.NoError(t, err)

	assert.Equal(t, a.Version, b.Version)
	assert.NotEqual(t, a.Version, c.Version)
}

func TestResolveErrors(t *testing.T) {
	tests := []struct {
		name    string
		content string
		wantErr error
	}{
		{
			name: "unknown type",
			content: `
energy_sources:
  - type: wind
    stat_energy_from: sensor.turbine
`,
			wantErr: ErrUnknownSourceType,
		},
		{
			name: "battery without charge meter",
			content: `
energy_sources:
  - type: battery
    stat_energy_from: sensor.battery_out
`,
			wantErr: ErrMissingMeter,
		},
		{
			name: "grid without import",
			content: `
energy_sources:
  - type: grid
    flow_to:
      - stat_energy_to: sensor.export
`,
			wantErr: ErrMissingMeter,
		},
		{
			name: "meter used twice",
			content: `
energy_sources:
  - type: solar
    stat_energy_from: sensor.meter
  - type: gas
    stat_energy_from: sensor.meter
`,
			wantErr: ErrDuplicatePoint,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ResolveFile(writeSources(t, tt.content))
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestResolveFileMissing(t *testing.T) {
	_, err := ResolveFile(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}
