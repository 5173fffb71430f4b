package scheduler

import (
	"context"
	"errors"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"

	"github.com/tejusbharadwaj/energyflow/internal/engine"
	"github.com/tejusbharadwaj/energyflow/internal/models"
)

// Collector stores fresh upstream readings for the given points.
type Collector interface {
	Collect(ctx context.Context, pointIDs []string, start, end time.Time) error
}

// Tracker is the part of engine.Tracker the scheduler drives.
type Tracker interface {
	Select(ctx context.Context, period models.Period) (models.FlowRecord, error)
	Refresh(ctx context.Context) (models.FlowRecord, error)
}

// Config holds job schedules. An empty spec disables its job.
type Config struct {
	CollectSpec        string
	RefreshSpec        string
	Lookback           time.Duration
	DefaultGranularity models.Granularity
	DefaultRange       time.Duration
}

type Scheduler struct {
	ctx       context.Context
	collector Collector
	tracker   Tracker
	points    func() []string
	logger    *logrus.Logger
	cfg       Config
	cron      *cron.Cron
	now       func() time.Time
}

// NewScheduler creates a scheduler. collector may be nil when no upstream is
// configured; points returns the ids to collect on each run.
func NewScheduler(ctx context.Context, collector Collector, tracker Tracker, points func() []string, logger *logrus.Logger, cfg Config) *Scheduler {
	return &Scheduler{
		ctx:       ctx,
		collector: collector,
		tracker:   tracker,
		points:    points,
		logger:    logger,
		cfg:       cfg,
		cron:      cron.New(),
		now:       time.Now,
	}
}

// Start the scheduler
func (s *Scheduler) Start() error {
	if s.collector != nil && s.cfg.CollectSpec != "" {
		if _, err := s.cron.AddFunc(s.cfg.CollectSpec, s.collectData); err != nil {
			return err
		}
	}
	if s.tracker != nil && s.cfg.RefreshSpec != "" {
		if _, err := s.cron.AddFunc(s.cfg.RefreshSpec, s.refreshFlow); err != nil {
			return err
		}
	}
	s.cron.Start()
	return nil
}

// collectData fetches recent readings from the upstream API and stores them
func (s *Scheduler) collectData() {
	ctx, cancel := context.WithTimeout(s.ctx, 2*time.Minute)
	defer cancel()

	endTime := s.now()
	startTime := endTime.Add(-s.cfg.Lookback)

	if err := s.collector.Collect(ctx, s.points(), startTime, endTime); err != nil {
		s.logger.WithError(err).Error("Failed to collect statistics")
	}
}

// refreshFlow recomputes the active period, selecting the default one first
// if nothing is active yet.
func (s *Scheduler) refreshFlow() {
	ctx, cancel := context.WithTimeout(s.ctx, time.Minute)
	defer cancel()

	_, err := s.tracker.Refresh(ctx)
	if errors.Is(err, engine.ErrNoActivePeriod) {
		_, err = s.tracker.Select(ctx, s.DefaultPeriod())
	}
	switch {
	case err == nil:
	case errors.Is(err, engine.ErrSuperseded):
		s.logger.Debug("Flow refresh superseded by a newer selection")
	default:
		s.logger.WithError(err).Error("Failed to refresh flow")
	}
}

// DefaultPeriod is the trailing DefaultRange window ending at the start of
// the current bucket's successor.
func (s *Scheduler) DefaultPeriod() models.Period {
	g := s.cfg.DefaultGranularity
	if !g.IsValid() {
		g = models.GranularityHour
	}
	end := g.Step(Truncate(s.now(), g), 1)
	return models.Period{
		Start:       Truncate(end.Add(-s.cfg.DefaultRange), g),
		End:         end,
		Granularity: g,
	}
}

// Truncate rounds t down to the start of its bucket in UTC.
func Truncate(t time.Time, g models.Granularity) time.Time {
	return g.Truncate(t)
}

// Stop the scheduler
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
}
