package report

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/tejusbharadwaj/energyflow/internal/models"
)

var start = time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)

func bucket(i int, grid, solar float64) models.FlowRecord {
	s := start.Add(time.Duration(i) * time.Hour)
	return models.FlowRecord{
		Period:               models.Period{Start: s, End: s.Add(time.Hour), Granularity: models.GranularityHour},
		GridConsumption:      models.Float(grid),
		GridToHome:           models.Float(grid),
		SolarProduction:      models.Float(solar),
		SolarToHome:          models.Float(solar),
		TotalHomeConsumption: models.Float(grid + solar),
		GasConsumption:       models.Float(0.5),
		GasUnit:              "m³",
	}
}

func TestBuildFlowXLSX(t *testing.T) {
	summary := bucket(0, 3, 5)
	summary.Period.End = start.Add(2 * time.Hour)
	buckets := []models.FlowRecord{bucket(0, 1, 2), bucket(1, 2, 3)}

	data, err := BuildFlowXLSX(summary, buckets)
	require.NoError(t, err)

	f, err := excelize.OpenReader(bytes.NewReader(data))
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, []string{"summary", "buckets"}, f.GetSheetList())

	v, err := f.GetCellValue("summary", "B3")
	require.NoError(t, err)
	assert.Equal(t, "2024-06-01T00:00:00Z", v)

	rows, err := f.GetRows("summary")
	require.NoError(t, err)
	labels := map[string]string{}
	for _, row := range rows {
		if len(row) == 2 {
			labels[row[0]] = row[1]
		}
	}
	assert.Equal(t, "3", labels["Grid consumption (kWh)"])
	assert.Equal(t, "8", labels["Home consumption (kWh)"])
	assert.Equal(t, "0.5", labels["Gas consumption (m³)"])
	assert.NotContains(t, labels, "Battery charge (kWh)")

	header, err := f.GetRows("buckets")
	require.NoError(t, err)
	require.Len(t, header, 3)
	assert.Equal(t, "Start", header[0][0])
	assert.Equal(t, "Grid consumption (kWh)", header[0][1])
	assert.Equal(t, "2024-06-01T01:00:00Z", header[2][0])
	assert.Equal(t, "2", header[2][1])
}

func TestBuildFlowXLSXNoData(t *testing.T) {
	summary := models.FlowRecord{
		Period: models.Period{Start: start, End: start.Add(time.Hour), Granularity: models.GranularityHour},
		NoData: true,
	}

	data, err := BuildFlowXLSX(summary, nil)
	require.NoError(t, err)

	f, err := excelize.OpenReader(bytes.NewReader(data))
	require.NoError(t, err)
	defer f.Close()

	v, err := f.GetCellValue("summary", "A7")
	require.NoError(t, err)
	assert.Equal(t, "No data", v)
}

func TestBuildFlowPDF(t *testing.T) {
	data, err := BuildFlowPDF(bucket(0, 1, 2))
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(data, []byte("%PDF-")))
}

func TestConfiguredSkipsAbsentCategories(t *testing.T) {
	cols := configured(bucket(0, 1, 0))
	labels := make([]string, len(cols))
	for i, c := range cols {
		labels[i] = c.label
	}
	assert.Contains(t, labels, "Solar production (kWh)")
	assert.NotContains(t, labels, "Battery to home (kWh)")
	assert.NotContains(t, labels, "Non-fossil fraction")
}
