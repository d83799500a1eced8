package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/oriys/songcache/internal/api"
	"github.com/oriys/songcache/internal/config"
	songgrpc "github.com/oriys/songcache/internal/grpc"
	"github.com/oriys/songcache/internal/logging"
	"github.com/oriys/songcache/internal/metrics"
	"github.com/oriys/songcache/internal/observability"
	"github.com/oriys/songcache/internal/songs"
)

var version = "dev"

func daemonCmd() *cobra.Command {
	var (
		httpAddr string
		grpcAddr string
		logLevel string
	)

	cmd := &cobra.Command{
		Use:   "daemon",
		Short: "Run songcache daemon",
		Long:  "Run songcache as a daemon serving song saves and lookups over HTTP and gRPC",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.DefaultConfig()
			if configFile != "" {
				var err error
				cfg, err = config.LoadFromFile(configFile)
				if err != nil {
					return fmt.Errorf("load config: %w", err)
				}
			}
			config.LoadFromEnv(cfg)

			if cmd.Flags().Changed("pg-dsn") {
				cfg.Postgres.DSN = pgDSN
			}
			if cmd.Flags().Changed("http-addr") {
				cfg.Daemon.HTTPAddr = httpAddr
			}
			if cmd.Flags().Changed("grpc-addr") {
				cfg.Daemon.GRPCAddr = grpcAddr
			}
			if cmd.Flags().Changed("log-level") {
				cfg.Daemon.LogLevel = logLevel
				cfg.Observability.Logging.Level = logLevel
			}
			if err := cfg.Validate(); err != nil {
				return fmt.Errorf("invalid config: %w", err)
			}

			logging.SetLevelFromString(cfg.Daemon.LogLevel)
			logging.InitStructured(cfg.Observability.Logging.Format, cfg.Observability.Logging.Level)

			if path := cfg.Observability.Logging.RequestLogFile; path != "" {
				if err := logging.Default().SetOutput(path); err != nil {
					logging.Op().Warn("failed to open request log file", "path", path, "error", err)
				}
			}
			defer logging.Default().Close()

			if err := observability.Init(context.Background(), observability.Config{
				Enabled:        cfg.Observability.Tracing.Enabled,
				Exporter:       cfg.Observability.Tracing.Exporter,
				Endpoint:       cfg.Observability.Tracing.Endpoint,
				ServiceName:    cfg.Observability.Tracing.ServiceName,
				ServiceVersion: version,
				SampleRate:     cfg.Observability.Tracing.SampleRate,
			}); err != nil {
				return fmt.Errorf("init tracing: %w", err)
			}
			defer observability.Shutdown(context.Background())

			if cfg.Observability.Metrics.Enabled {
				metrics.InitPrometheus(cfg.Observability.Metrics.Namespace, cfg.Observability.Metrics.Buckets)
			}

			ctx := context.Background()

			st, err := openStore(ctx, cfg)
			if err != nil {
				return err
			}
			defer st.Close()

			c, err := openCache(ctx, cfg)
			if err != nil {
				return err
			}
			defer c.Close()

			pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
			if err := c.Ping(pingCtx); err != nil {
				logging.Op().Warn("cache not reachable at startup", "backend", cfg.Cache.Backend, "error", err)
			}
			cancel()

			if cfg.Cache.OutageAsMiss {
				logging.Op().Warn("cache outages are reported as not found; the store is not consulted while the cache is down")
			}

			svc := songs.New(st, c, songs.Options{
				CacheTTL:          cfg.Cache.TTL,
				CacheOutageAsMiss: cfg.Cache.OutageAsMiss,
			})

			httpServer := api.StartHTTPServer(cfg.Daemon.HTTPAddr, api.ServerConfig{Songs: svc})
			logging.Op().Info("HTTP API started",
				"addr", cfg.Daemon.HTTPAddr,
				"store", cfg.Store.Backend,
				"cache", cfg.Cache.Backend,
				"cache_ttl", cfg.Cache.TTL,
			)

			var grpcServer *songgrpc.Server
			if cfg.Daemon.GRPCAddr != "" {
				grpcServer = songgrpc.NewServer(svc, nil)
				if err := grpcServer.Start(cfg.Daemon.GRPCAddr); err != nil {
					return fmt.Errorf("start gRPC server: %w", err)
				}
			}

			sigCh := make(chan os.Signal, 1)
			signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
			<-sigCh

			logging.Op().Info("shutdown signal received")
			if grpcServer != nil {
				grpcServer.Stop()
			}
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			if err := httpServer.Shutdown(shutdownCtx); err != nil {
				logging.Op().Error("HTTP server shutdown failed", "error", err)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&httpAddr, "http-addr", ":8082", "HTTP listen address")
	cmd.Flags().StringVar(&grpcAddr, "grpc-addr", "", "gRPC listen address (empty disables gRPC)")
	cmd.Flags().StringVar(&logLevel, "log-level", "info", "Log level")

	return cmd
}
