package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/strongdm/deskerr/internal/collector"
	"github.com/strongdm/deskerr/internal/config"
	"github.com/strongdm/deskerr/internal/observability"
	"github.com/strongdm/deskerr/pkg/deskerr/ipc/natsipc"
)

func newServeCmd(flags *globalFlags) *cobra.Command {
	var (
		httpAddr        string
		cleanupInterval time.Duration
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the error collector",
		Long: `Start the collector: subscribe to send-error deliveries on NATS, store
them in BadgerDB and serve /healthz, /reports and /metrics over HTTP.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := flags.load(cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			if httpAddr != "" {
				cfg.Collector.HTTPAddr = httpAddr
			}
			return runServe(cmd.Context(), cfg, flags.tracing(cfg), logger, cleanupInterval)
		},
	}

	cmd.Flags().StringVar(&httpAddr, "http-addr", "", "HTTP address for the API (overrides collector.http_addr)")
	cmd.Flags().DurationVar(&cleanupInterval, "cleanup-interval", time.Hour, "how often expired reports are removed")

	return cmd
}

func runServe(ctx context.Context, cfg *config.Config, tcfg observability.TracingConfig, logger *slog.Logger, cleanupInterval time.Duration) error {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	slog.SetDefault(logger)
	logger.Info("starting deskerr collector",
		slog.String("version", version),
		slog.String("data_dir", cfg.Collector.DataDir),
		slog.String("nats_url", cfg.NATS.URL),
		slog.String("http_addr", cfg.Collector.HTTPAddr),
	)

	tp, err := observability.NewTracerProvider(ctx, tcfg)
	if err != nil {
		return fmt.Errorf("failed to create tracer provider: %w", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := tp.Shutdown(shutdownCtx); err != nil {
			logger.Warn("tracer shutdown failed", slog.Any("error", err))
		}
	}()

	store, err := collector.NewStore(collector.StoreConfig{
		Path:     cfg.Collector.DataDir,
		InMemory: cfg.Collector.InMemory,
	})
	if err != nil {
		return err
	}
	defer store.Close()

	service := collector.NewService(store,
		collector.WithLogger(logger),
		collector.WithPrefix(cfg.NATS.Prefix),
		collector.WithQueueGroup(cfg.NATS.QueueGroup),
	)

	client, err := natsipc.Connect(ctx, natsConfig(cfg, "collector"), logger)
	if err != nil {
		return err
	}
	defer client.Close()

	if err := service.Subscribe(ctx, client.Conn()); err != nil {
		return err
	}
	defer func() {
		if err := service.Unsubscribe(); err != nil {
			logger.Warn("unsubscribe failed", slog.Any("error", err))
		}
	}()

	go service.RunCleanup(ctx, cfg.Collector.Retention, cleanupInterval)

	api := collector.NewAPI(service, cfg.IssueTracker())
	if err := api.Serve(ctx, cfg.Collector.HTTPAddr); err != nil {
		return fmt.Errorf("collector API failed: %w", err)
	}

	logger.Info("deskerr collector stopped")
	return nil
}

// natsConfig names the connection "<nats.name>-<role>".
func natsConfig(cfg *config.Config, role string) natsipc.Config {
	nc := natsipc.DefaultConfig()
	nc.URL = cfg.NATS.URL
	nc.Prefix = cfg.NATS.Prefix
	if cfg.NATS.Name != "" {
		nc.Name = cfg.NATS.Name + "-" + role
	}
	if cfg.NATS.Timeout > 0 {
		nc.Timeout = cfg.NATS.Timeout
	}
	return nc
}
