// Package engine computes FlowRecords for requested periods.
//
// Engine is a memoized, concurrency-safe pure computation over
// (source configuration, raw statistics, period). Tracker sits on top of it
// and owns the single active period: it discards results of superseded
// selections, refreshes the active record on demand and hands every new
// record to the configured sinks.
package engine

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru"
	"github.com/sirupsen/logrus"

	"github.com/tejusbharadwaj/energyflow/internal/database"
	"github.com/tejusbharadwaj/energyflow/internal/flow"
	"github.com/tejusbharadwaj/energyflow/internal/models"
)

var (
	// ErrInvalidPeriod is returned for an empty, inverted or unbucketed period.
	ErrInvalidPeriod = errors.New("engine: invalid period")
	// ErrNilFetcher is returned when the engine is built without a fetcher.
	ErrNilFetcher = errors.New("engine: nil statistics fetcher")
)

// Config holds engine tuning options.
type Config struct {
	CacheSize    int
	FetchTimeout time.Duration
	Policy       flow.Policy
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		CacheSize:    256,
		FetchTimeout: 30 * time.Second,
		Policy:       flow.PolicyGridBackfill,
	}
}

// Engine computes and memoizes FlowRecords.
type Engine struct {
	fetcher database.StatisticsFetcher
	logger  *logrus.Logger
	metrics *Metrics
	cache   *lru.Cache
	cfg     Config
	now     func() time.Time

	mu    sync.RWMutex
	group models.SourceGroup
}

// New creates an Engine for the given source configuration.
func New(fetcher database.StatisticsFetcher, group models.SourceGroup, logger *logrus.Logger, metrics *Metrics, cfg Config) (*Engine, error) {
	if fetcher == nil {
		return nil, ErrNilFetcher
	}
	if _, err := flow.ParsePolicy(string(cfg.Policy)); err != nil {
		return nil, err
	}
	if cfg.CacheSize == 0 {
		cfg.CacheSize = DefaultConfig().CacheSize
	}
	cache, err := lru.New(cfg.CacheSize)
	if err != nil {
		return nil, fmt.Errorf("failed to create flow cache: %w", err)
	}
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	if metrics == nil {
		metrics = NewMetrics(nil)
	}

	return &Engine{
		fetcher: fetcher,
		logger:  logger,
		metrics: metrics,
		cache:   cache,
		cfg:     cfg,
		now:     time.Now,
		group:   group,
	}, nil
}

// Sources returns the active source configuration.
func (e *Engine) Sources() models.SourceGroup {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.group
}

// SetSources swaps the source configuration. Memoized records of the previous
// configuration are dropped.
func (e *Engine) SetSources(group models.SourceGroup) {
	e.mu.Lock()
	changed := group.Version != e.group.Version
	e.group = group
	e.mu.Unlock()

	if changed {
		e.cache.Purge()
		e.logger.WithFields(logrus.Fields{
			"version": group.Version,
			"points":  len(group.PointIDs()),
		}).Info("Energy sources updated")
	}
}

// ValidatePeriod checks that p is a non-empty range with a known granularity
// whose bounds fall on bucket boundaries. A partial bucket at either end
// would be dropped or counted whole.
func ValidatePeriod(p models.Period) error {
	if p.Start.IsZero() || p.End.IsZero() {
		return fmt.Errorf("%w: missing bound", ErrInvalidPeriod)
	}
	if !p.Start.Before(p.End) {
		return fmt.Errorf("%w: start must be before end", ErrInvalidPeriod)
	}
	if !p.Granularity.IsValid() {
		return fmt.Errorf("%w: granularity %q", ErrInvalidPeriod, p.Granularity)
	}
	if !p.Granularity.Aligned(p.Start) {
		return fmt.Errorf("%w: start %s not aligned to %s", ErrInvalidPeriod, p.Start.Format(time.RFC3339), p.Granularity)
	}
	if !p.Granularity.Aligned(p.End) {
		return fmt.Errorf("%w: end %s not aligned to %s", ErrInvalidPeriod, p.End.Format(time.RFC3339), p.Granularity)
	}
	return nil
}

// Compute returns the FlowRecord for period, serving it from the memo when
// the same configuration version already computed it.
//
// Statistics fetch failures never surface as errors: they produce a NoData
// record, which is not memoized. Only an invalid period or a canceled ctx
// return an error.
func (e *Engine) Compute(ctx context.Context, period models.Period) (models.FlowRecord, error) {
	if err := ValidatePeriod(period); err != nil {
		return models.FlowRecord{}, err
	}

	group := e.Sources()
	key := cacheKey(group.Version, period)
	if cached, ok := e.cache.Get(key); ok {
		e.metrics.CacheHits.Inc()
		return cached.(models.FlowRecord), nil
	}

	raw, err := e.fetch(ctx, group, period.Start, period.End, period.Granularity)
	if err != nil {
		return models.FlowRecord{}, err
	}

	rec := e.compute(group, raw, period)
	if raw != nil {
		e.cache.Add(key, rec)
	}
	return rec, nil
}

// Breakdown returns one FlowRecord per granularity bucket of period, from a
// single statistics fetch. Breakdowns are not memoized.
func (e *Engine) Breakdown(ctx context.Context, period models.Period) ([]models.FlowRecord, error) {
	if err := ValidatePeriod(period); err != nil {
		return nil, err
	}

	group := e.Sources()
	raw, err := e.fetch(ctx, group, period.Start, period.End, period.Granularity)
	if err != nil {
		return nil, err
	}

	var records []models.FlowRecord
	for start := period.Start; start.Before(period.End); {
		end := period.Granularity.Step(start, 1)
		if end.After(period.End) {
			end = period.End
		}
		sub := models.Period{Start: start, End: end, Granularity: period.Granularity}
		records = append(records, e.compute(group, raw, sub))
		start = end
	}
	return records, nil
}

// Invalidate drops the memoized record for period under the active configuration.
func (e *Engine) Invalidate(period models.Period) {
	e.cache.Remove(cacheKey(e.Sources().Version, period))
}

// fetch reads raw statistics for every configured point, starting one bucket
// before start so the first bucket of the range has a baseline. A nil map with
// a nil error means the fetch failed and the caller should treat every point
// as having no data.
func (e *Engine) fetch(ctx context.Context, group models.SourceGroup, start, end time.Time, g models.Granularity) (map[string][]models.StatisticBucket, error) {
	ids := group.PointIDs()
	if len(ids) == 0 {
		return map[string][]models.StatisticBucket{}, nil
	}

	if e.cfg.FetchTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.cfg.FetchTimeout)
		defer cancel()
	}

	raw, err := e.fetcher.Fetch(ctx, ids, g.Step(start, -1), end, g)
	if err != nil {
		if errors.Is(err, context.Canceled) || ctx.Err() == context.Canceled {
			return nil, context.Canceled
		}
		e.metrics.FetchFailures.Inc()
		e.logger.WithFields(logrus.Fields{
			"points": len(ids),
			"start":  start.Format(time.RFC3339),
			"end":    end.Format(time.RFC3339),
			"error":  err,
		}).Warn("Statistics fetch failed, treating as no data")
		return nil, nil
	}
	return raw, nil
}

func (e *Engine) compute(group models.SourceGroup, raw map[string][]models.StatisticBucket, period models.Period) models.FlowRecord {
	rec := Compute(group, raw, period)
	rec.ComputedAt = e.now()

	e.metrics.Reconciliations.Inc()
	if rec.NoData {
		e.metrics.NoData.Inc()
	}
	if rec.UnreconciledDeficit > 0 {
		e.metrics.AbsorbedDeficit.Add(rec.UnreconciledDeficit)
		e.logger.WithFields(logrus.Fields{
			"period":  period.Key(),
			"deficit": rec.UnreconciledDeficit,
		}).Debug("Absorbed unreconcilable energy balance")
	}
	return rec
}

// Compute is the pure computation behind Engine: it aggregates raw statistics
// for period, reconciles the totals and applies the carbon adjustment when a
// carbon-intensity reference is configured.
func Compute(group models.SourceGroup, raw map[string][]models.StatisticBucket, period models.Period) models.FlowRecord {
	agg := flow.Aggregate(group, raw, period)
	if !agg.HasData {
		return models.FlowRecord{Period: period, NoData: true}
	}

	rec := flow.Reconcile(agg.Totals)
	rec.Period = period
	if rec.GasConsumption != nil {
		rec.GasUnit = group.GasUnit
	}
	if refs := group.Points[models.CategoryCarbonIntensity]; len(refs) > 0 {
		flow.AdjustCarbon(&rec, agg.GridDeltas, raw[refs[0].ID])
	}
	return rec
}

func cacheKey(version uint64, period models.Period) string {
	return fmt.Sprintf("%d|%s", version, period.Key())
}
