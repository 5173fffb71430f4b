package engine

import "github.com/prometheus/client_golang/prometheus"

// Metrics are the engine's Prometheus collectors.
type Metrics struct {
	Reconciliations prometheus.Counter
	CacheHits       prometheus.Counter
	NoData          prometheus.Counter
	FetchFailures   prometheus.Counter
	Superseded      prometheus.Counter
	AbsorbedDeficit prometheus.Counter
	Published       *prometheus.CounterVec
}

// NewMetrics creates the engine collectors and registers them with reg.
// A nil reg leaves them unregistered, which is what tests want.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		Reconciliations: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "energyflow_reconciliations_total",
			Help: "Total number of FlowRecords computed",
		}),
		CacheHits: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "energyflow_cache_hits_total",
			Help: "Total number of FlowRecords served from the memo",
		}),
		NoData: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "energyflow_no_data_total",
			Help: "Total number of periods computed without any statistics",
		}),
		FetchFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "energyflow_fetch_failures_total",
			Help: "Total number of statistics fetches that failed",
		}),
		Superseded: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "energyflow_superseded_total",
			Help: "Total number of results discarded because a newer period was selected",
		}),
		AbsorbedDeficit: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "energyflow_absorbed_deficit_kwh_total",
			Help: "Energy in kWh clamped away while reconciling disagreeing sensors",
		}),
		Published: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "energyflow_published_total",
				Help: "Total number of FlowRecords handed to sinks",
			},
			[]string{"sink", "status"},
		),
	}

	if reg != nil {
		reg.MustRegister(
			m.Reconciliations,
			m.CacheHits,
			m.NoData,
			m.FetchFailures,
			m.Superseded,
			m.AbsorbedDeficit,
			m.Published,
		)
	}
	return m
}
