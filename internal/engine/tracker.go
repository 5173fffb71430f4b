package engine

import (
	"context"
	"errors"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/tejusbharadwaj/energyflow/internal/models"
)

var (
	// ErrSuperseded is returned when a newer period was selected while a
	// computation was in flight. The stale result is discarded.
	ErrSuperseded = errors.New("engine: superseded by a newer period selection")
	// ErrNoActivePeriod is returned by Refresh before any period was selected.
	ErrNoActivePeriod = errors.New("engine: no active period")
)

// Sink receives every new FlowRecord of the active period.
type Sink interface {
	Name() string
	Publish(ctx context.Context, rec models.FlowRecord) error
}

// Tracker owns the single active period and its most recent FlowRecord.
//
// Each Select starts a new generation and cancels work of the previous one.
// Results are applied only if their generation is still current, so the last
// selected period always wins regardless of the order in which fetches finish.
type Tracker struct {
	engine  *Engine
	sinks   []Sink
	logger  *logrus.Logger
	metrics *Metrics

	mu         sync.Mutex
	generation uint64
	genCtx     context.Context
	cancel     context.CancelFunc
	period     *models.Period
	current    *models.FlowRecord
}

// NewTracker creates a Tracker that computes through engine and publishes to sinks.
func NewTracker(engine *Engine, logger *logrus.Logger, sinks ...Sink) *Tracker {
	if logger == nil {
		logger = engine.logger
	}
	return &Tracker{
		engine:  engine,
		sinks:   sinks,
		logger:  logger,
		metrics: engine.metrics,
	}
}

// Select makes period the active period and computes its FlowRecord.
//
// Any computation still running for a previous selection is canceled and its
// result discarded. The memoized record of the previous active period is
// evicted when the period changes.
func (t *Tracker) Select(ctx context.Context, period models.Period) (models.FlowRecord, error) {
	if err := ValidatePeriod(period); err != nil {
		return models.FlowRecord{}, err
	}

	t.mu.Lock()
	if t.cancel != nil {
		t.cancel()
	}
	if t.period != nil && t.period.Key() != period.Key() {
		t.engine.Invalidate(*t.period)
	}
	t.generation++
	gen := t.generation
	t.genCtx, t.cancel = context.WithCancel(context.Background())
	genCtx := t.genCtx
	t.period = &period
	t.current = nil
	t.mu.Unlock()

	t.logger.WithFields(logrus.Fields{
		"period":     period.Key(),
		"generation": gen,
	}).Debug("Active period selected")

	return t.run(ctx, genCtx, gen, period)
}

// Refresh recomputes the active period from fresh statistics and publishes
// the result. A concurrent Select supersedes it.
func (t *Tracker) Refresh(ctx context.Context) (models.FlowRecord, error) {
	t.mu.Lock()
	if t.period == nil {
		t.mu.Unlock()
		return models.FlowRecord{}, ErrNoActivePeriod
	}
	period := *t.period
	gen := t.generation
	genCtx := t.genCtx
	t.mu.Unlock()

	t.engine.Invalidate(period)
	return t.run(ctx, genCtx, gen, period)
}

// Current returns the most recent FlowRecord of the active period.
func (t *Tracker) Current() (models.FlowRecord, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.current == nil {
		return models.FlowRecord{}, false
	}
	return *t.current, true
}

// Period returns the active period.
func (t *Tracker) Period() (models.Period, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.period == nil {
		return models.Period{}, false
	}
	return *t.period, true
}

// Close cancels in-flight work.
func (t *Tracker) Close() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.cancel != nil {
		t.cancel()
	}
}

func (t *Tracker) run(ctx, genCtx context.Context, gen uint64, period models.Period) (models.FlowRecord, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	stop := context.AfterFunc(genCtx, cancel)
	defer stop()

	rec, err := t.engine.Compute(ctx, period)

	t.mu.Lock()
	if gen != t.generation {
		if t.period == nil || t.period.Key() != period.Key() {
			t.engine.Invalidate(period)
		}
		t.mu.Unlock()
		t.metrics.Superseded.Inc()
		t.logger.WithFields(logrus.Fields{
			"period":     period.Key(),
			"generation": gen,
		}).Debug("Discarding superseded flow result")
		return models.FlowRecord{}, ErrSuperseded
	}
	if err != nil {
		t.mu.Unlock()
		return models.FlowRecord{}, err
	}
	t.current = &rec
	t.mu.Unlock()

	t.publish(ctx, rec)
	return rec, nil
}

func (t *Tracker) publish(ctx context.Context, rec models.FlowRecord) {
	for _, s := range t.sinks {
		if err := s.Publish(ctx, rec); err != nil {
			t.metrics.Published.WithLabelValues(s.Name(), "error").Inc()
			t.logger.WithFields(logrus.Fields{
				"sink":   s.Name(),
				"period": rec.Period.Key(),
				"error":  err,
			}).Error("Failed to publish flow record")
			continue
		}
		t.metrics.Published.WithLabelValues(s.Name(), "ok").Inc()
	}
}
