package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"photo-recovery/internal/database"
	"photo-recovery/internal/handlers"
	"photo-recovery/internal/logging"
	"photo-recovery/internal/media"
	"photo-recovery/internal/memory"
	"photo-recovery/internal/metrics"
	"photo-recovery/internal/middleware"
	"photo-recovery/internal/recovery"
	"photo-recovery/internal/startup"

	"github.com/gorilla/mux"
)

const (
	shutdownTimeout    = 30 * time.Second
	dbInitTimeout      = 30 * time.Second
	collectorInterval  = time.Minute
	readHeaderTimeout  = 10 * time.Second
	idleTimeout        = 60 * time.Second
	metricsReadTimeout = 5 * time.Second
)

type app struct {
	config    *startup.Config
	db        *database.Database
	registry  *recovery.Registry
	collector *metrics.Collector
	monitor   *memory.Monitor
	server    *http.Server
	metrics   *http.Server

	// shutdownDone is closed once every shutdown step has finished.
	shutdownDone chan struct{}
}

func main() {
	startTime := time.Now()

	memory.ConfigureFromEnv()

	config, err := startup.LoadConfig()
	if err != nil {
		logging.Fatal("Configuration error: %v", err)
	}

	if err := media.InitVips(); err != nil {
		logging.Warn("libvips unavailable: %v", err)
	}
	startup.LogImagingInit(media.IsVipsAvailable())

	metrics.InitializeMetrics()

	a := &app{
		config:       config,
		monitor:      memory.NewMonitor(memory.DefaultConfig()),
		shutdownDone: make(chan struct{}),
	}
	a.monitor.Start()
	if err := a.openStore(); err != nil {
		logging.Fatal("Failed to initialize database: %v", err)
	}

	h := handlers.New(a.registry, a.pinger(), config)
	router := mux.NewRouter()
	h.RegisterRoutes(router)
	startup.LogHTTPRoutes(router, config.LogHealthChecks)

	handler, err := buildHandler(router, config)
	if err != nil {
		logging.Fatal("Failed to build middleware: %v", err)
	}

	a.server = &http.Server{
		Addr:              ":" + config.Port,
		Handler:           handler,
		ReadHeaderTimeout: readHeaderTimeout,
		// Uploads and zip downloads can be large; no whole-request deadline.
		WriteTimeout: 0,
		IdleTimeout:  idleTimeout,
	}

	if config.MetricsEnabled {
		metricsMux := http.NewServeMux()
		metricsMux.Handle("/metrics", h.MetricsHandler())
		a.metrics = &http.Server{
			Addr:              ":" + config.MetricsPort,
			Handler:           metricsMux,
			ReadHeaderTimeout: metricsReadTimeout,
		}
		go func() {
			if err := a.metrics.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logging.Error("Metrics server error: %v", err)
			}
		}()
	}

	a.collector = metrics.NewCollector(a.registry, collectorInterval)
	a.collector.Start()

	go a.handleShutdown()

	startup.LogServerStarted(startup.ServerConfig{
		Port:            config.Port,
		MetricsPort:     config.MetricsPort,
		MetricsEnabled:  config.MetricsEnabled,
		StartupDuration: time.Since(startTime),
	})
	if err := a.server.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
		logging.Fatal("Server error: %v", err)
	}

	// ListenAndServe returns as soon as Shutdown begins; sessions still
	// have to stop and be saved before the process may exit.
	<-a.shutdownDone
}

// openStore opens the session database when persistence is enabled and
// builds the registry on top of it.
func (a *app) openStore() error {
	opts := recovery.Options{
		ExtractDir:       a.config.ExtractDir,
		ThumbnailDir:     a.config.ThumbnailDir,
		MaxEntrySize:     a.config.MaxEntrySize,
		MaxConcurrent:    a.config.MaxConcurrentSessions,
		Repair:           a.config.Repair,
		ThumbnailSize:    a.config.ThumbnailSize,
		ThumbnailQuality: a.config.ThumbnailQuality,
		CacheSize:        a.config.ThumbnailCacheSize,
		CacheTTL:         a.config.ThumbnailCacheTTL,
		Throttle:         a.monitor,
	}

	ctx, cancel := context.WithTimeout(context.Background(), dbInitTimeout)
	defer cancel()

	dbStart := time.Now()
	if a.config.PersistSessions {
		db, err := database.New(ctx, a.config.DatabasePath)
		if err != nil {
			return err
		}
		a.db = db
		opts.Store = db
	}

	registry, err := recovery.NewRegistry(opts)
	if err != nil {
		return err
	}
	a.registry = registry

	restored, err := registry.Restore(ctx)
	if err != nil {
		logging.Warn("Failed to restore sessions: %v", err)
	}
	if a.db != nil {
		startup.LogDatabaseInit(time.Since(dbStart), restored)
	}
	return nil
}

// pinger avoids handing the handlers a typed nil when persistence is off.
func (a *app) pinger() handlers.Pinger {
	if a.db == nil {
		return nil
	}
	return a.db
}

func buildHandler(router *mux.Router, config *startup.Config) (http.Handler, error) {
	loggingConfig := middleware.DefaultLoggingConfig()
	loggingConfig.LogHealthChecks = config.LogHealthChecks

	compress, err := middleware.Compression(middleware.DefaultCompressionConfig())
	if err != nil {
		return nil, err
	}

	var handler http.Handler = router
	handler = middleware.Metrics(middleware.DefaultMetricsConfig())(handler)
	handler = middleware.Logger(loggingConfig)(handler)
	handler = compress(handler)
	return handler, nil
}

func (a *app) handleShutdown() {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigChan

	a.shutdown(sig.String())
}

// shutdown stops the servers and background work in dependency order and
// closes shutdownDone when finished.
func (a *app) shutdown(reason string) {
	defer close(a.shutdownDone)

	startup.LogShutdownInitiated(reason)

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	startup.LogShutdownStep("Shutting down HTTP server")
	if err := a.server.Shutdown(ctx); err != nil {
		logging.Warn("Server shutdown error: %v", err)
	} else {
		startup.LogShutdownStepComplete("HTTP server stopped")
	}

	startup.LogShutdownStep("Cancelling recovery sessions")
	if err := a.registry.Close(ctx); err != nil {
		logging.Warn("Recovery sessions did not stop in time: %v", err)
	} else {
		startup.LogShutdownStepComplete("Recovery sessions stopped")
	}

	if a.collector != nil {
		a.collector.Stop()
	}
	a.monitor.Stop()

	if a.metrics != nil {
		if err := a.metrics.Shutdown(ctx); err != nil {
			logging.Warn("Metrics server shutdown error: %v", err)
		} else {
			startup.LogShutdownStepComplete("Metrics server stopped")
		}
	}

	if a.db != nil {
		startup.LogShutdownStep("Closing database")
		if err := a.db.Close(); err != nil {
			logging.Warn("Database close error: %v", err)
		} else {
			startup.LogShutdownStepComplete("Database closed")
		}
	}

	media.ShutdownVips()
	startup.LogShutdownComplete()
}
