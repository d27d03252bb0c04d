package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/partyfowl/aoc19/pkg/metrics"
	"github.com/partyfowl/aoc19/pkg/rpc"
)

func serveCommand(cfg Config, flags *cliFlags, args []string) error {
	if len(args) != 0 {
		return fmt.Errorf("%w: serve takes no arguments", errUsage)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	store, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer func() {
		log.Info("closing result store")
		if err := store.Close(); err != nil {
			log.Errorf("failed to close result store: %s", err)
		}
	}()

	m := metrics.NewMetrics()
	health := metrics.NewHealthChecker(m,
		metrics.WithMaxSessions(int64(cfg.RPC.MaxSessions)),
		metrics.WithHealthCheckInterval(15*time.Second),
	)
	health.RegisterStoreCheck(store)
	health.Check(ctx)
	health.Start(ctx)
	defer health.Stop()

	collectors := metrics.NewCollectorManager()
	collectors.Add(metrics.NewRuntimeCollector(m, 10*time.Second))
	collectors.Add(metrics.NewStoreCollector(m, store, 30*time.Second))
	collectors.CollectAll()
	collectors.Start()
	defer collectors.Stop()

	var metricsServer *metrics.Server
	if cfg.Metrics.Enabled {
		metricsServer = metrics.NewServer(
			metrics.WithAddr(cfg.Metrics.Addr),
			metrics.WithMetrics(m),
			metrics.WithHealthChecker(health),
		)
		if err := metricsServer.Start(); err != nil {
			return fmt.Errorf("failed to start metrics server: %w", err)
		}
	}

	handlers := rpc.NewHandlers(cfg.handlerConfig(), store, m, health)
	rpcServer := rpc.NewServer(cfg.serverConfig(), handlers)

	log.Notice("configuration:")
	log.Noticef("  data directory:  %s", displayPath(cfg.General.DataDir))
	log.Noticef("  step limit:      %d", cfg.handlerConfig().StepLimit)
	log.Noticef("  max sessions:    %d", cfg.RPC.MaxSessions)
	log.Noticef("  metrics:         %v", cfg.Metrics.Enabled)

	rpcDone := make(chan error, 1)
	go func() {
		rpcDone <- rpcServer.Start(ctx)
	}()
	health.SetReady(true)

	var runErr error
	select {
	case sig := <-sigChan:
		log.Noticef("received signal %v, shutting down", sig)
		cancel()
		runErr = <-rpcDone
	case runErr = <-rpcDone:
	}
	health.SetReady(false)

	if metricsServer != nil {
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := metricsServer.Stop(shutdownCtx); err != nil {
			log.Errorf("failed to stop metrics server: %s", err)
		}
		shutdownCancel()
	}

	if runErr != nil && !errors.Is(runErr, context.Canceled) {
		return fmt.Errorf("rpc server: %w", runErr)
	}
	log.Notice("stopped")
	return nil
}

func displayPath(p string) string {
	if p == "" {
		return "(memory)"
	}
	return p
}
