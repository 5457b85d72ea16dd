// Command logbroker launches the channel-addressed log broker.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sourcegraph/conc"

	"github.com/coachpo/logbroker/internal/broker"
	"github.com/coachpo/logbroker/internal/config"
	"github.com/coachpo/logbroker/internal/principal"
	"github.com/coachpo/logbroker/internal/registry"
	"github.com/coachpo/logbroker/internal/telemetry"
)

const (
	defaultConfigPath        = "config/logbroker.yaml"
	loggerPrefix             = "logbroker "
	shutdownTimeout          = 15 * time.Second
	serverShutdownTimeout    = 5 * time.Second
	registryShutdownTimeout  = 5 * time.Second
	telemetryShutdownTimeout = 5 * time.Second
	readHeaderTimeout        = 5 * time.Second
)

func main() {
	cfgPathFlag := parseFlags()
	ctx, cancel := newSignalContext()
	defer cancel()

	logger := newLogger()

	configPath := resolveConfigPath(cfgPathFlag)
	cfg, loadedFromFile, err := config.LoadOrDefault(configPath)
	if err != nil {
		logger.Fatalf("load config: %v", err)
	}
	if !loadedFromFile {
		logger.Printf("configuration file not found at %s, using defaults", configPath)
	}
	logger.Printf("configuration initialised: bind=%s, queueCapacity=%d, serviceTokens=%d",
		cfg.BindAddr, cfg.QueueCapacity, len(cfg.ServiceTokens))

	telemetryProvider, err := initTelemetry(ctx, logger)
	if err != nil {
		logger.Fatalf("initialize telemetry: %v", err)
	}

	instruments := telemetry.NewInstruments(telemetryProvider.Meter("logbroker"), logger)
	reg := registry.New(registry.Config{
		QueueCapacity: cfg.QueueCapacity,
		Metrics:       instruments,
	})

	srv := broker.NewServer(broker.Deps{
		Registry: reg,
		Resolver: principal.HeaderResolver{},
		Auth:     cfg.ServiceTokens,
		Config:   cfg,
		Logger:   logger,
	})

	var lifecycle conc.WaitGroup
	httpServer := &http.Server{
		Addr:              cfg.BindAddr,
		Handler:           srv.Handler(),
		ReadHeaderTimeout: readHeaderTimeout,
	}
	startServer(&lifecycle, logger, httpServer)
	logger.Printf("logbroker listening on %s", httpServer.Addr)

	logger.Print("logbroker started; awaiting shutdown signal")
	<-ctx.Done()
	logger.Print("shutdown signal received, initiating graceful shutdown")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer shutdownCancel()

	shutdownStart := time.Now()
	performGracefulShutdown(shutdownCtx, logger, gracefulShutdownConfig{
		server:    httpServer,
		broker:    srv,
		lifecycle: &lifecycle,
		telemetry: telemetryProvider,
	})
	logger.Printf("shutdown completed in %v", time.Since(shutdownStart))
}

func parseFlags() string {
	cfgPath := flag.String("config", "", fmt.Sprintf("path to broker configuration file (default: %s)", defaultConfigPath))
	flag.Parse()
	return *cfgPath
}

func newSignalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
}

func newLogger() *log.Logger {
	return log.New(os.Stdout, loggerPrefix, log.LstdFlags|log.Lmicroseconds)
}

func resolveConfigPath(flagValue string) string {
	if flagValue != "" {
		return flagValue
	}
	if v := os.Getenv("LOGBROKER_CONFIG"); v != "" {
		return v
	}
	return defaultConfigPath
}

func initTelemetry(ctx context.Context, logger *log.Logger) (*telemetry.Provider, error) {
	cfg := telemetry.DefaultConfig()
	provider, err := telemetry.NewProvider(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("initialize telemetry provider: %w", err)
	}
	if cfg.Enabled {
		logger.Printf("telemetry initialized: endpoint=%s, env=%s", cfg.OTLPEndpoint, cfg.Environment)
	} else {
		logger.Printf("telemetry disabled")
	}
	return provider, nil
}

func startServer(lifecycle *conc.WaitGroup, logger *log.Logger, server *http.Server) {
	lifecycle.Go(func() {
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Printf("http server: %v", err)
		}
	})
}

type gracefulShutdownConfig struct {
	server    *http.Server
	broker    *broker.Server
	lifecycle *conc.WaitGroup
	telemetry *telemetry.Provider
}

func performGracefulShutdown(ctx context.Context, logger *log.Logger, cfg gracefulShutdownConfig) {
	shutdownStep := func(name string, timeout time.Duration, fn func(context.Context) error) {
		stepCtx, cancel := context.WithTimeout(ctx, timeout)
		defer cancel()
		logger.Printf("shutdown: %s...", name)
		if err := fn(stepCtx); err != nil {
			logger.Printf("shutdown: %s failed: %v", name, err)
		} else {
			logger.Printf("shutdown: %s completed", name)
		}
	}

	if cfg.server != nil {
		shutdownStep("stopping http server", serverShutdownTimeout, func(stepCtx context.Context) error {
			return cfg.server.Shutdown(stepCtx)
		})
	}

	if cfg.broker != nil {
		shutdownStep("draining connection registry", registryShutdownTimeout, func(stepCtx context.Context) error {
			done := make(chan struct{})
			go func() {
				cfg.broker.Shutdown()
				close(done)
			}()
			select {
			case <-done:
				return nil
			case <-stepCtx.Done():
				return fmt.Errorf("timeout waiting for registry shutdown: %w", stepCtx.Err())
			}
		})
	}

	if cfg.lifecycle != nil {
		shutdownStep("waiting for lifecycle goroutines", serverShutdownTimeout, func(stepCtx context.Context) error {
			done := make(chan struct{})
			go func() {
				cfg.lifecycle.Wait()
				close(done)
			}()
			select {
			case <-done:
				return nil
			case <-stepCtx.Done():
				return fmt.Errorf("timeout waiting for goroutines: %w", stepCtx.Err())
			}
		})
	}

	if cfg.telemetry != nil {
		shutdownStep("shutting down telemetry", telemetryShutdownTimeout, func(stepCtx context.Context) error {
			return cfg.telemetry.Shutdown(stepCtx)
		})
	}
}
