package scheduler

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tejusbharadwaj/energyflow/internal/engine"
	"github.com/tejusbharadwaj/energyflow/internal/models"
)

type fakeCollector struct {
	points     []string
	start, end time.Time
	err        error
}

func (c *fakeCollector) Collect(_ context.Context, pointIDs []string, start, end time.Time) error {
	c.points, c.start, c.end = pointIDs, start, end
	return c.err
}

type fakeTracker struct {
	refreshErr error
	selected   []models.Period
	refreshes  int
}

func (t *fakeTracker) Select(_ context.Context, period models.Period) (models.FlowRecord, error) {
	t.selected = append(t.selected, period)
	return models.FlowRecord{Period: period}, nil
}

func (t *fakeTracker) Refresh(context.Context) (models.FlowRecord, error) {
	t.refreshes++
	return models.FlowRecord{}, t.refreshErr
}

var now = time.Date(2024, 6, 5, 14, 37, 0, 0, time.UTC)

func newTestScheduler(c Collector, tr Tracker, cfg Config) (*Scheduler, *test.Hook) {
	logger, hook := test.NewNullLogger()
	s := NewScheduler(context.Background(), c, tr, func() []string { return []string{"grid", "pv"} }, logger, cfg)
	s.now = func() time.Time { return now }
	return s, hook
}

func TestCollectData(t *testing.T) {
	collector := &fakeCollector{err: errors.New("upstream down")}
	s, hook := newTestScheduler(collector, nil, Config{Lookback: 2 * time.Hour})

	s.collectData()

	assert.Equal(t, []string{"grid", "pv"}, collector.points)
	assert.Equal(t, now.Add(-2*time.Hour), collector.start)
	assert.Equal(t, now, collector.end)
	require.NotNil(t, hook.LastEntry())
	assert.Equal(t, "Failed to collect statistics", hook.LastEntry().Message)
}

func TestRefreshSelectsDefaultPeriod(t *testing.T) {
	tracker := &fakeTracker{refreshErr: engine.ErrNoActivePeriod}
	s, _ := newTestScheduler(nil, tracker, Config{DefaultGranularity: models.GranularityHour, DefaultRange: 24 * time.Hour})

	s.refreshFlow()

	assert.Equal(t, 1, tracker.refreshes)
	require.Len(t, tracker.selected, 1)
	assert.Equal(t, models.Period{
		Start:       time.Date(2024, 6, 4, 15, 0, 0, 0, time.UTC),
		End:         time.Date(2024, 6, 5, 15, 0, 0, 0, time.UTC),
		Granularity: models.GranularityHour,
	}, tracker.selected[0])
}

func TestRefreshActivePeriod(t *testing.T) {
	tracker := &fakeTracker{}
	s, hook := newTestScheduler(nil, tracker, Config{})

	s.refreshFlow()

	assert.Equal(t, 1, tracker.refreshes)
	assert.Empty(t, tracker.selected)
	assert.Empty(t, hook.AllEntries())
}

func TestTruncate(t *testing.T) {
	tests := []struct {
		g    models.Granularity
		want time.Time
	}{
		{models.GranularityHour, time.Date(2024, 6, 5, 14, 0, 0, 0, time.UTC)},
		{models.GranularityDay, time.Date(2024, 6, 5, 0, 0, 0, 0, time.UTC)},
		// 2024-06-05 is a Wednesday
		{models.GranularityWeek, time.Date(2024, 6, 3, 0, 0, 0, 0, time.UTC)},
		{models.GranularityMonth, time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)},
		{models.GranularityYear, time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)},
	}

	for _, tt := range tests {
		t.Run(string(tt.g), func(t *testing.T) {
			assert.Equal(t, tt.want, Truncate(now, tt.g))
		})
	}
}

func TestStartRejectsBadSpec(t *testing.T) {
	s, _ := newTestScheduler(&fakeCollector{}, nil, Config{CollectSpec: "not a cron spec"})
	assert.Error(t, s.Start())
}

func TestStartStop(t *testing.T) {
	s, _ := newTestScheduler(&fakeCollector{}, &fakeTracker{}, Config{CollectSpec: "@every 1h", RefreshSpec: "@every 1h"})
	require.NoError(t, s.Start())
	assert.Len(t, s.cron.Entries(), 2)
	s.Stop()
}
