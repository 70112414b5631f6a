// Command apiserver serves active-learning queries over HTTP.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"

	"github.com/turtacn/ProbAL-Intelligence/internal/application/query"
	"github.com/turtacn/ProbAL-Intelligence/internal/config"
	"github.com/turtacn/ProbAL-Intelligence/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/ProbAL-Intelligence/internal/infrastructure/monitoring/prometheus"
	httpserver "github.com/turtacn/ProbAL-Intelligence/internal/interfaces/http"
	"github.com/turtacn/ProbAL-Intelligence/internal/interfaces/http/handlers"
	"github.com/turtacn/ProbAL-Intelligence/internal/interfaces/http/middleware"
	qtypes "github.com/turtacn/ProbAL-Intelligence/pkg/types/query"
)

// Build-time variables injected via ldflags.
var version = "dev"

func main() {
	configPath := flag.String("config", "", "path to configuration file (default: PROBAL_* environment)")
	port := flag.Int("port", 0, "HTTP server port (overrides config)")
	flag.Parse()

	if err := run(*configPath, *port); err != nil {
		fmt.Fprintf(os.Stderr, "apiserver: %v\n", err)
		os.Exit(1)
	}
}

func run(configPath string, port int) error {
	cfg, err := config.LoadOrDefault(configPath)
	if err != nil {
		return err
	}
	if port > 0 {
		cfg.Server.Port = port
	}

	logger, err := logging.NewLogger(cfg.Log.ToLogging())
	if err != nil {
		return fmt.Errorf("logger initialization failed: %w", err)
	}
	defer func() { _ = logger.Sync() }()

	collector := prometheus.NewNoopCollector()
	if cfg.Metrics.Enabled {
		collector, err = prometheus.NewMetricsCollector(prometheus.CollectorConfig{
			Namespace:            cfg.Metrics.Namespace,
			Subsystem:            cfg.Metrics.Subsystem,
			EnableGoMetrics:      cfg.Metrics.EnableGoCollector,
			EnableProcessMetrics: cfg.Metrics.EnableProcessCollector,
			ConstLabels:          map[string]string{"version": version},
		}, logger)
		if err != nil {
			return fmt.Errorf("metrics initialization failed: %w", err)
		}
	}
	metrics := prometheus.NewAppMetrics(collector)

	svc := query.NewQueryService(cfg, logger, metrics)
	if configPath != "" {
		config.Watch(configPath, svc.UpdateConfig)
	}

	gin.SetMode(cfg.Server.Mode)
	routerCfg := httpserver.RouterConfig{
		QueryHandler:  handlers.NewQueryHandler(svc, logger),
		HealthHandler: handlers.NewHealthHandler(version, engineCheck(svc)),
		Logging:       middleware.DefaultLoggingConfig(),
		MaxBodySize:   cfg.Server.MaxBodySize,
		Logger:        logger,
		Metrics:       metrics,
	}
	if cfg.Metrics.Enabled {
		routerCfg.MetricsCollector = collector
		routerCfg.MetricsPath = cfg.Metrics.Path
	}
	srv := httpserver.NewServer(cfg.Server, httpserver.NewRouter(routerCfg), logger)

	logger.Info("starting ProbAL-Intelligence API server",
		logging.String("version", version),
		logging.Int("port", cfg.Server.Port),
		logging.String("mode", cfg.Server.Mode))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Start() }()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}
	return srv.Stop(context.Background())
}

// engineCheck reports ready once the query pipeline can serve a trivial
// random query.
func engineCheck(svc query.QueryService) handlers.HealthChecker {
	seed := int64(1)
	probe := &qtypes.Request{
		Strategy:   qtypes.StrategyRandom,
		Candidates: [][]float64{{0}},
		BatchSize:  1,
		Seed:       &seed,
	}
	return handlers.HealthCheckFunc{
		CheckName: "query_engine",
		Fn: func(ctx context.Context) error {
			_, err := svc.Query(ctx, probe)
			return err
		},
	}
}
