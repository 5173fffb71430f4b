package flow

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tejusbharadwaj/energyflow/internal/models"
)

var t0 = time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)

func hour(i int) time.Time {
	return t0.Add(time.Duration(i) * time.Hour)
}

// sums builds an hourly series; nil entries become null sums.
func sums(values ...*float64) []models.StatisticBucket {
	series := make([]models.StatisticBucket, len(values))
	for i, v := range values {
		series[i] = models.StatisticBucket{Start: hour(i), Sum: v}
	}
	return series
}

func f(v float64) *float64 { return models.Float(v) }

func TestComputeDeltas(t *testing.T) {
	tests := []struct {
		name   string
		series []models.StatisticBucket
		want   models.DeltaSeries
	}{
		{
			name:   "empty series",
			series: nil,
			want:   models.DeltaSeries{},
		},
		{
			name:   "single reading only sets the baseline",
			series: sums(f(100)),
			want:   models.DeltaSeries{},
		},
		{
			name:   "monotonic counter",
			series: sums(f(10), f(12), f(15.5)),
			want: models.DeltaSeries{
				{BucketStart: hour(1), Value: 2},
				{BucketStart: hour(2), Value: 3.5},
			},
		},
		{
			name:   "counter reset emits zero and re-baselines",
			series: sums(f(100), f(140), f(30), f(70)),
			want: models.DeltaSeries{
				{BucketStart: hour(1), Value: 40},
				{BucketStart: hour(2), Value: 0},
				{BucketStart: hour(3), Value: 40},
			},
		},
		{
			name:   "null reading is a gap and a fresh baseline",
			series: sums(f(5), f(7), nil, f(50), f(51)),
			want: models.DeltaSeries{
				{BucketStart: hour(1), Value: 2},
				{BucketStart: hour(4), Value: 1},
			},
		},
		{
			name:   "all null",
			series: sums(nil, nil),
			want:   models.DeltaSeries{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ComputeDeltas(tt.series)
			assert.Equal(t, tt.want, got)
			for _, d := range got {
				assert.GreaterOrEqual(t, d.Value, 0.0)
			}
		})
	}
}

func TestComputeDeltasCollapsesDuplicateBuckets(t *testing.T) {
	series := []models.StatisticBucket{
		{Start: hour(0), Sum: f(1)},
		{Start: hour(1), Sum: f(3)},
		{Start: hour(1), Sum: f(4)},
		{Start: hour(2), Sum: f(6)},
	}

	got := ComputeDeltas(series)
	require.Len(t, got, 2)
	assert.Equal(t, 3.0, got[0].Value)
	assert.Equal(t, 2.0, got[1].Value)
}

func TestComputeDeltasSortsInput(t *testing.T) {
	series := []models.StatisticBucket{
		{Start: hour(2), Sum: f(9)},
		{Start: hour(0), Sum: f(1)},
		{Start: hour(1), Sum: f(4)},
	}

	got := ComputeDeltas(series)
	assert.Equal(t, models.DeltaSeries{
		{BucketStart: hour(1), Value: 3},
		{BucketStart: hour(2), Value: 5},
	}, got)
	// input untouched
	assert.Equal(t, hour(2), series[0].Start)
}

func TestMergeDeltas(t *testing.T) {
	a := models.DeltaSeries{{BucketStart: hour(1), Value: 1}, {BucketStart: hour(3), Value: 2}}
	b := models.DeltaSeries{{BucketStart: hour(1), Value: 4}, {BucketStart: hour(2), Value: 5}}

	got := MergeDeltas(a, b)
	assert.Equal(t, models.DeltaSeries{
		{BucketStart: hour(1), Value: 5},
		{BucketStart: hour(2), Value: 5},
		{BucketStart: hour(3), Value: 2},
	}, got)
	assert.Equal(t, 1.0, a[0].Value)
}
