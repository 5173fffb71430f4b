// Package httpapi exposes FlowRecords over HTTP/JSON.
//
// Routes:
//   - GET  /api/v1/flow               one FlowRecord for ?start=&end=&granularity=
//   - GET  /api/v1/flow/breakdown     one FlowRecord per granularity bucket
//   - GET  /api/v1/flow/export.xlsx   summary and breakdown as a spreadsheet
//   - GET  /api/v1/flow/export.pdf    summary as a PDF
//   - GET  /api/v1/flow/current       the active period's latest record
//   - POST /api/v1/flow/select        make a period active
//   - POST /api/v1/flow/refresh       recompute the active period
//   - GET  /api/v1/sources            resolved source configuration
//   - GET  /healthz, /metrics
package httpapi

import (
	"context"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"

	middleware "github.com/tejusbharadwaj/energyflow/internal/grpc/middlewares"
	"github.com/tejusbharadwaj/energyflow/internal/models"
)

// Engine computes FlowRecords on demand.
type Engine interface {
	Compute(ctx context.Context, period models.Period) (models.FlowRecord, error)
	Breakdown(ctx context.Context, period models.Period) ([]models.FlowRecord, error)
	Sources() models.SourceGroup
}

// Tracker owns the active period.
type Tracker interface {
	Select(ctx context.Context, period models.Period) (models.FlowRecord, error)
	Refresh(ctx context.Context) (models.FlowRecord, error)
	Current() (models.FlowRecord, bool)
}

// Options configures the router. Tracker, Health and Gatherer are optional.
type Options struct {
	Engine   Engine
	Tracker  Tracker
	Health   func(ctx context.Context) error
	Gatherer prometheus.Gatherer
	Logger   *logrus.Logger
	MaxRange time.Duration
}

type api struct {
	engine   Engine
	tracker  Tracker
	health   func(ctx context.Context) error
	logger   *logrus.Logger
	maxRange time.Duration
}

// NewRouter builds the mux router with all routes registered.
func NewRouter(opts Options) *mux.Router {
	a := &api{
		engine:   opts.Engine,
		tracker:  opts.Tracker,
		health:   opts.Health,
		logger:   opts.Logger,
		maxRange: opts.MaxRange,
	}
	if a.logger == nil {
		a.logger = logrus.StandardLogger()
	}

	r := mux.NewRouter()
	r.Use(requestID)

	v1 := r.PathPrefix("/api/v1").Subrouter()
	v1.HandleFunc("/flow", a.getFlow).Methods(http.MethodGet)
	v1.HandleFunc("/flow/breakdown", a.getBreakdown).Methods(http.MethodGet)
	v1.HandleFunc("/flow/export.xlsx", a.exportXLSX).Methods(http.MethodGet)
	v1.HandleFunc("/flow/export.pdf", a.exportPDF).Methods(http.MethodGet)
	v1.HandleFunc("/flow/current", a.getCurrent).Methods(http.MethodGet)
	v1.HandleFunc("/flow/select", a.selectPeriod).Methods(http.MethodPost)
	v1.HandleFunc("/flow/refresh", a.refresh).Methods(http.MethodPost)
	v1.HandleFunc("/sources", a.getSources).Methods(http.MethodGet)

	r.HandleFunc("/healthz", a.healthz).Methods(http.MethodGet)
	if opts.Gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(opts.Gatherer, promhttp.HandlerOpts{})).Methods(http.MethodGet)
	}

	return r
}

// NewHandler wraps the router with access logging and panic recovery.
func NewHandler(opts Options, accessLog io.Writer) http.Handler {
	router := NewRouter(opts)
	recovered := handlers.RecoveryHandler(handlers.PrintRecoveryStack(true))(router)
	return handlers.LoggingHandler(accessLog, recovered)
}

// requestID tags each request with an id shared with the gRPC side.
func requestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(middleware.RequestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set(middleware.RequestIDHeader, id)
		next.ServeHTTP(w, r.WithContext(middleware.WithRequestID(r.Context(), id)))
	})
}
