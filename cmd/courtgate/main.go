package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/courtsidehq/courtgate/internal/api/router"
	"github.com/courtsidehq/courtgate/internal/availability"
	appconfig "github.com/courtsidehq/courtgate/internal/config"
	"github.com/courtsidehq/courtgate/internal/credentials"
	"github.com/courtsidehq/courtgate/internal/flow"
	"github.com/courtsidehq/courtgate/internal/http/handlers"
	"github.com/courtsidehq/courtgate/internal/intercept"
	"github.com/courtsidehq/courtgate/internal/observability/metrics"
	"github.com/courtsidehq/courtgate/internal/policy"
	"github.com/courtsidehq/courtgate/internal/prefs"
	"github.com/courtsidehq/courtgate/internal/selection"
	"github.com/courtsidehq/courtgate/internal/shaping"
	"github.com/courtsidehq/courtgate/internal/signals"
	"github.com/courtsidehq/courtgate/internal/substitution"
	"github.com/courtsidehq/courtgate/internal/view"
	"github.com/courtsidehq/courtgate/internal/weather"
	"github.com/courtsidehq/courtgate/pkg/logging"
)

func main() {
	_ = godotenv.Load()
	cfg := appconfig.Load()

	logger := logging.New(cfg.LogLevel)
	logger.Info("starting courtgate",
		"env", cfg.Env,
		"port", cfg.Port,
		"upstream", cfg.UpstreamBaseURL,
	)

	table := policy.Default()
	if cfg.PolicyFile != "" {
		loaded, err := policy.LoadFile(cfg.PolicyFile)
		if err != nil {
			logger.Error("failed to load policy file", "path", cfg.PolicyFile, "error", err)
			os.Exit(1)
		}
		table = loaded
	}

	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	if err := redisClient.Ping(context.Background()).Err(); err != nil {
		// Preferences degrade to defaults without Redis; the booking path
		// does not depend on it.
		logger.Warn("redis not available, preferences will not persist", "error", err)
	}

	registry := prometheus.NewRegistry()
	gatewayMetrics := metrics.NewGatewayMetrics(registry)

	creds := credentials.NewStore()
	prefStore := prefs.NewStore(redisClient, table)

	var forecast *weather.Service
	if cfg.WeatherEnabled {
		forecast = weather.NewService(cfg.WeatherLatitude, cfg.WeatherLongitude, cfg.WeatherTimezone, logger)
	}

	builder := view.NewBuilder(table, prefStore, forecast, cfg.BookingWindowDays)
	hub := signals.NewHub(builder, logger, gatewayMetrics)

	availClient := availability.NewClient(cfg.UpstreamBaseURL, cfg.SubscriptionKey, creds,
		availability.WithLogger(logger),
		availability.WithHTTPClient(&http.Client{Timeout: cfg.FetchTimeout}),
	)
	fetcher := availability.NewFetcher(availClient, table, prefStore, hub, logger, gatewayMetrics)

	selections := selection.NewRegistry()
	substitutor := substitution.NewSubstitutor(selections, fetcher, table, logger, gatewayMetrics)
	shaper := shaping.NewAdapter(logger, gatewayMetrics)

	gateway, err := intercept.NewGateway(cfg.UpstreamBaseURL, creds, fetcher, shaper, substitutor, logger, gatewayMetrics)
	if err != nil {
		logger.Error("invalid upstream base url", "url", cfg.UpstreamBaseURL, "error", err)
		os.Exit(1)
	}

	monitor := flow.NewMonitor(flow.Hooks{
		Reconcile: func() {
			if forecast != nil {
				go forecast.Refresh(context.Background())
			}
			if cycle := fetcher.Current(); cycle != nil {
				hub.CycleReady(cycle)
			}
		},
		Teardown: func() {
			fetcher.Reset()
			selections.Clear()
			hub.Fallback("flow-exited")
		},
	}, &flow.Options{
		FastPoll:        cfg.FlowFastPoll,
		SlowPoll:        cfg.FlowSlowPoll,
		ReconcileWindow: cfg.ReconcileWindow,
	}, logger, gatewayMetrics)
	hub.SetReceiver(monitor)
	monitor.Start()
	defer monitor.Stop()

	control := handlers.NewControlHandler(handlers.ControlConfig{
		Cycles:   fetcher,
		Builder:  builder,
		Registry: selections,
		Prefs:    prefStore,
		Monitor:  monitor,
		Coercer:  hub,
		Logger:   logger,
		Metrics:  gatewayMetrics,
	})

	r := router.New(&router.Config{
		Logger:             logger,
		Control:            control,
		SignalsHandler:     hub.HandleWebSocket,
		Proxy:              gateway,
		MetricsHandler:     promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		CORSAllowedOrigins: cfg.CORSAllowedOrigins,
	})

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  60 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		logger.Info("gateway listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("server forced to shutdown", "error", err)
		os.Exit(1)
	}

	logger.Info("gateway stopped")
}
