package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/sirupsen/logrus"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health/grpc_health_v1"

	"github.com/tejusbharadwaj/energyflow/internal/api"
	"github.com/tejusbharadwaj/energyflow/internal/config"
	"github.com/tejusbharadwaj/energyflow/internal/database"
	"github.com/tejusbharadwaj/energyflow/internal/engine"
	"github.com/tejusbharadwaj/energyflow/internal/flow"
	server "github.com/tejusbharadwaj/energyflow/internal/grpc"
	"github.com/tejusbharadwaj/energyflow/internal/httpapi"
	"github.com/tejusbharadwaj/energyflow/internal/models"
	"github.com/tejusbharadwaj/energyflow/internal/publish"
	"github.com/tejusbharadwaj/energyflow/internal/scheduler"
	"github.com/tejusbharadwaj/energyflow/internal/sources"
)

// Command energyflow reconciles household energy flows from cumulative meter
// statistics.
//
// The service supports:
//   - Per-period FlowRecords over gRPC and HTTP/JSON
//   - Hour, day, week, month and year granularity
//   - An active period refreshed on a schedule and published to MQTT or Kafka
//   - Spreadsheet and PDF exports
//   - Prometheus metrics
//
// Usage:
//
//	energyflow [flags]
//
// The flags are:
//
//	-config string
//	      path to config file (default "config.yaml")
//	-bootstrap duration
//	      history to collect from upstream at startup (default 0, disabled)
func main() {
	flags := parseFlags()

	appConfig, err := config.Load(flags.ConfigPath)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	if err := appConfig.Validate(); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	logger := newLogger(appConfig.Logging)

	group, err := sources.ResolveFile(appConfig.Sources.File)
	if err != nil {
		logger.Fatalf("Failed to resolve sources: %v", err)
	}
	logger.WithFields(logrus.Fields{
		"file":    appConfig.Sources.File,
		"points":  len(group.PointIDs()),
		"version": group.Version,
	}).Info("Sources resolved")

	repo, err := createPostgresRepository(appConfig.Database)
	if err != nil {
		logger.Fatalf("Failed to create repository: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	policy, err := flow.ParsePolicy(appConfig.Engine.Policy)
	if err != nil {
		logger.Fatalf("Invalid engine policy: %v", err)
	}
	eng, err := engine.New(repo, group, logger, engine.NewMetrics(registry), engine.Config{
		CacheSize:    appConfig.Engine.CacheSize,
		FetchTimeout: appConfig.Engine.FetchTimeout,
		Policy:       policy,
	})
	if err != nil {
		logger.Fatalf("Failed to create engine: %v", err)
	}

	sinks, closers, err := createSinks(appConfig)
	if err != nil {
		logger.Fatalf("Failed to create sinks: %v", err)
	}
	tracker := engine.NewTracker(eng, logger, sinks...)

	var collector scheduler.Collector
	if appConfig.Upstream.URL != "" {
		c := api.NewStatisticsCollector(appConfig.Upstream.URL, repo, logger, appConfig.Upstream.Timeout)
		if flags.Bootstrap > 0 {
			go func() {
				if err := c.Bootstrap(ctx, group.PointIDs(), flags.Bootstrap); err != nil {
					logger.WithError(err).Warn("Bootstrap finished with errors")
				}
			}()
		}
		collector = c
	}

	sched := scheduler.NewScheduler(ctx, collector, tracker, func() []string {
		return eng.Sources().PointIDs()
	}, logger, scheduler.Config{
		CollectSpec:        appConfig.Scheduler.CollectSpec,
		RefreshSpec:        appConfig.Scheduler.RefreshSpec,
		Lookback:           appConfig.Upstream.Lookback,
		DefaultGranularity: models.Granularity(appConfig.Scheduler.DefaultGranularity),
		DefaultRange:       appConfig.Scheduler.DefaultRange,
	})

	health := server.NewHealthChecker(repo.Ping)
	srv, err := server.SetupServer(eng, tracker, health, logger, registry, server.ServerConfig{
		RateLimit:      appConfig.RateLimit.Limit,
		RateLimitBurst: appConfig.RateLimit.Burst,
		MaxRange:       appConfig.Engine.MaxRange,
	})
	if err != nil {
		logger.Fatalf("Failed to setup server: %v", err)
	}

	lis, err := net.Listen("tcp", fmt.Sprintf("%s:%d", appConfig.Server.Host, appConfig.Server.Port))
	if err != nil {
		logger.Fatalf("Failed to listen: %v", err)
	}

	var httpSrv *http.Server
	if appConfig.HTTP.Enabled {
		httpSrv = &http.Server{
			Addr: fmt.Sprintf("%s:%d", appConfig.HTTP.Host, appConfig.HTTP.Port),
			Handler: httpapi.NewHandler(httpapi.Options{
				Engine:   eng,
				Tracker:  tracker,
				Health:   repo.Ping,
				Gatherer: registry,
				Logger:   logger,
				MaxRange: appConfig.Engine.MaxRange,
			}, logger.Writer()),
			ReadHeaderTimeout: 10 * time.Second,
		}
	}

	errChan := make(chan error, 1)

	if err := sched.Start(); err != nil {
		logger.Fatalf("Failed to start scheduler: %v", err)
	}

	go func() {
		logger.WithFields(logrus.Fields{
			"port": appConfig.Server.Port,
		}).Info("Starting gRPC server")
		health.SetServingStatus("", grpc_health_v1.HealthCheckResponse_SERVING)
		health.SetServingStatus(server.ServiceName, grpc_health_v1.HealthCheckResponse_SERVING)
		if err := srv.Serve(lis); err != nil {
			errChan <- fmt.Errorf("grpc server error: %w", err)
		}
	}()

	if httpSrv != nil {
		go func() {
			logger.WithFields(logrus.Fields{
				"addr": httpSrv.Addr,
			}).Info("Starting HTTP server")
			if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				errChan <- fmt.Errorf("http server error: %w", err)
			}
		}()
	}

	go func() {
		if _, err := tracker.Select(ctx, sched.DefaultPeriod()); err != nil {
			logger.WithError(err).Warn("Initial period selection failed")
		}
	}()

	handleShutdown(ctx, errChan, logger, shutdownTargets{
		grpc:      srv,
		http:      httpSrv,
		health:    health,
		scheduler: sched,
		tracker:   tracker,
		closers:   closers,
		repo:      repo,
	})
}

type Flags struct {
	ConfigPath string
	Bootstrap  time.Duration
}

func parseFlags() *Flags {
	flags := &Flags{}

	flag.StringVar(&flags.ConfigPath, "config", "config.yaml", "Path to the configuration file")
	flag.DurationVar(&flags.Bootstrap, "bootstrap", 0, "History to collect from upstream at startup")

	flag.Parse()

	return flags
}

func newLogger(cfg config.LoggingConfig) *logrus.Logger {
	logger := logrus.New()
	if cfg.Format == "text" {
		logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	} else {
		logger.SetFormatter(&logrus.JSONFormatter{})
	}
	level, err := logrus.ParseLevel(cfg.Level)
	if err != nil {
		level = logrus.InfoLevel
	}
	logger.SetLevel(level)
	return logger
}

type closer interface {
	Close() error
}

// createSinks builds the enabled publishers.
func createSinks(cfg *config.Config) ([]engine.Sink, []closer, error) {
	var (
		sinks   []engine.Sink
		closers []closer
	)
	if cfg.MQTT.Enabled {
		sink, err := publish.NewMQTTSink(publish.MQTTConfig{
			Broker:   cfg.MQTT.Broker,
			ClientID: cfg.MQTT.ClientID,
			Topic:    cfg.MQTT.Topic,
			QoS:      byte(cfg.MQTT.QoS),
			Username: cfg.MQTT.Username,
			Password: cfg.MQTT.Password,
		})
		if err != nil {
			return nil, nil, err
		}
		sinks = append(sinks, sink)
		closers = append(closers, sink)
	}
	if cfg.Kafka.Enabled {
		sink, err := publish.NewKafkaSink(cfg.Kafka.Brokers, cfg.Kafka.Topic)
		if err != nil {
			for _, c := range closers {
				c.Close()
			}
			return nil, nil, err
		}
		sinks = append(sinks, sink)
		closers = append(closers, sink)
	}
	return sinks, closers, nil
}

type shutdownTargets struct {
	grpc      *grpc.Server
	http      *http.Server
	health    *server.HealthChecker
	scheduler *scheduler.Scheduler
	tracker   *engine.Tracker
	closers   []closer
	repo      database.StatisticsRepository
}

// Handle graceful shutdown
func handleShutdown(ctx context.Context, errChan <-chan error, logger *logrus.Logger, t shutdownTargets) {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	select {
	case <-ctx.Done():
		logger.Println("Context canceled, initiating shutdown")
	case sig := <-sigChan:
		logger.Printf("Received signal %v, initiating shutdown", sig)
	case err := <-errChan:
		logger.WithError(err).Error("Service error, initiating shutdown")
	}

	t.health.Shutdown()

	logger.Println("Gracefully stopping servers...")
	if t.http != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		if err := t.http.Shutdown(shutdownCtx); err != nil {
			logger.WithError(err).Warn("HTTP server shutdown")
		}
		cancel()
	}
	t.grpc.GracefulStop()
	logger.Println("Servers stopped")

	t.scheduler.Stop()
	t.tracker.Close()
	for _, c := range t.closers {
		if err := c.Close(); err != nil {
			logger.WithError(err).Warn("Sink close")
		}
	}

	if err := t.repo.Close(); err != nil {
		logger.WithError(err).Warn("Repository close")
	}
}

// Create a Postgres repository
func createPostgresRepository(cfg config.DatabaseConfig) (*database.PostgresRepo, error) {
	repo, err := database.NewPostgresRepo(cfg.DSN())
	if err != nil {
		return nil, err
	}
	repo.SetPoolLimits(cfg.MaxConnections, time.Duration(cfg.ConnectionTimeout)*time.Second)
	return repo, nil
}
