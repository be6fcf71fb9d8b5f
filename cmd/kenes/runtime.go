package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"kenes-socket-go/internal/config"
	"kenes-socket-go/internal/device"
	"kenes-socket-go/internal/metric"
	"kenes-socket-go/pkg/logger"
	"kenes-socket-go/pkg/socket"
)

// runtime is everything a command needs to talk to the backend
type runtime struct {
	config   *config.Config
	logger   *logger.Logger
	client   *socket.Client
	recorder *metric.Recorder
	device   *device.Collector
	printer  *printer
}

func newRuntime(cmd *cobra.Command) (*runtime, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}

	log := logger.NewWithWriter(os.Stderr, logger.ParseFormat(cfg.LogFormat), logger.ParseLevel(cfg.LogLevel))
	log.Info("Starting Kenes client", "version", config.GetVersionString(), "url", cfg.URL)

	recorder, err := metric.NewRecorder()
	if err != nil {
		return nil, fmt.Errorf("failed to create metrics: %w", err)
	}

	opts, err := cfg.SocketOptions()
	if err != nil {
		return nil, err
	}

	collector := device.NewCollector(log)
	opts.Metrics = recorder
	opts.NetworkAvailable = func() bool {
		return collector.NetworkAvailable(context.Background())
	}

	client := socket.NewClient(log)
	p := newPrinter(cmd.OutOrStdout())
	p.install(client.Listeners())

	if err := client.Create(cfg.URL, opts); err != nil {
		return nil, err
	}

	return &runtime{
		config:   cfg,
		logger:   log,
		client:   client,
		recorder: recorder,
		device:   collector,
		printer:  p,
	}, nil
}

func (r *runtime) connectTimeout() time.Duration {
	if r.config.TimeoutMs <= 0 {
		return 20 * time.Second
	}
	return time.Duration(r.config.TimeoutMs) * time.Millisecond
}

// run connects and calls fn once the session is up. The metrics endpoint is
// served alongside when configured. It returns when fn returns, on SIGINT or
// SIGTERM, or on the first error.
func (r *runtime) run(ctx context.Context, fn func(ctx context.Context) error) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	defer r.client.Release()

	r.client.RegisterAllEventListeners()
	if err := r.client.Connect(ctx); err != nil {
		return err
	}

	g, gctx := errgroup.WithContext(ctx)

	if r.config.MetricsAddr != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", r.recorder.Handler())
		server := &http.Server{
			Addr:              r.config.MetricsAddr,
			Handler:           mux,
			ReadHeaderTimeout: 5 * time.Second,
		}

		g.Go(func() error {
			r.logger.Info("Serving metrics", "addr", r.config.MetricsAddr)
			if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("metrics server failed: %w", err)
			}
			return nil
		})
		g.Go(func() error {
			<-gctx.Done()
			shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer shutdownCancel()
			return server.Shutdown(shutdownCtx)
		})
	}

	g.Go(func() error {
		defer cancel()

		timer := time.NewTimer(r.connectTimeout())
		defer timer.Stop()

		select {
		case <-r.printer.connected:
		case <-timer.C:
			return fmt.Errorf("not connected after %s", r.connectTimeout())
		case <-gctx.Done():
			return gctx.Err()
		}

		return fn(gctx)
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}

	r.logger.Info("Shutting down client")
	return nil
}
