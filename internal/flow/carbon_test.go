package flow

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tejusbharadwaj/energyflow/internal/models"
)

func fossil(pcts ...*float64) []models.StatisticBucket {
	series := make([]models.StatisticBucket, len(pcts))
	for i, p := range pcts {
		series[i] = models.StatisticBucket{Start: hour(i + 1), State: p}
	}
	return series
}

func TestAdjustCarbon(t *testing.T) {
	grid := models.DeltaSeries{
		{BucketStart: hour(1), Value: 4},
		{BucketStart: hour(2), Value: 6},
	}

	t.Run("grid only", func(t *testing.T) {
		rec := Reconcile(models.Totals{Grid: f(10)})
		AdjustCarbon(&rec, grid, fossil(f(50), f(25)))

		// 4*0.5 + 6*0.75
		require.NotNil(t, rec.NonFossilEnergy)
		assert.InDelta(t, 6.5, *rec.NonFossilEnergy, 1e-9)
		assert.InDelta(t, 0.65, *rec.NonFossilFraction, 1e-9)
	})

	t.Run("apportioned by reconciled grid share", func(t *testing.T) {
		rec := Reconcile(models.Totals{
			Grid:          f(10),
			Solar:         f(2),
			BatteryCharge: f(7),
		})
		require.Equal(t, 5.0, *rec.BatteryFromGrid)
		AdjustCarbon(&rec, grid, fossil(f(0), f(0)))

		assert.InDelta(t, 5.0, *rec.NonFossilEnergy, 1e-9)
		assert.InDelta(t, 1.0, *rec.NonFossilFraction, 1e-9)
	})

	t.Run("solar does not dilute the grid share", func(t *testing.T) {
		rec := Reconcile(models.Totals{Grid: f(10), Solar: f(10), GridReturn: f(0)})
		require.Equal(t, 10.0, *rec.SolarToHome)
		AdjustCarbon(&rec, grid, fossil(f(100), f(100)))

		assert.Equal(t, 0.0, *rec.NonFossilEnergy)
		assert.Equal(t, 0.0, *rec.NonFossilFraction)
	})

	t.Run("idle grid leaves fields nil", func(t *testing.T) {
		rec := Reconcile(models.Totals{Grid: f(0), Solar: f(3)})
		AdjustCarbon(&rec, models.DeltaSeries{{BucketStart: hour(1), Value: 0}}, fossil(f(30)))

		assert.Nil(t, rec.NonFossilEnergy)
		assert.Nil(t, rec.NonFossilFraction)
	})

	t.Run("no overlap leaves fields nil", func(t *testing.T) {
		rec := Reconcile(models.Totals{Grid: f(10)})
		series := []models.StatisticBucket{{Start: hour(7), State: f(40)}}
		AdjustCarbon(&rec, grid, series)

		assert.Nil(t, rec.NonFossilEnergy)
		assert.Nil(t, rec.NonFossilFraction)
	})

	t.Run("null states are ignored", func(t *testing.T) {
		rec := Reconcile(models.Totals{Grid: f(10)})
		AdjustCarbon(&rec, grid, fossil(nil, nil))

		assert.Nil(t, rec.NonFossilFraction)
	})

	t.Run("grid not configured", func(t *testing.T) {
		rec := Reconcile(models.Totals{Solar: f(3)})
		AdjustCarbon(&rec, grid, fossil(f(10), f(10)))

		assert.Nil(t, rec.NonFossilFraction)
	})
}
