package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
	"google.golang.org/grpc"

	"github.com/obsidianstack/clusterstats/server/internal/alerts"
	"github.com/obsidianstack/clusterstats/server/internal/api"
	"github.com/obsidianstack/clusterstats/server/internal/auth"
	"github.com/obsidianstack/clusterstats/server/internal/config"
	"github.com/obsidianstack/clusterstats/server/internal/healthsrv"
	"github.com/obsidianstack/clusterstats/server/internal/metrics"
	"github.com/obsidianstack/clusterstats/server/internal/nodes"
	"github.com/obsidianstack/clusterstats/server/internal/stats"
)

const shutdownTimeout = 10 * time.Second

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the REST API, gRPC health service and node poller",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			ctx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer cancel()
			return serve(ctx, cfg)
		},
	}
}

func serve(ctx context.Context, cfg *config.Config) error {
	s := cfg.Server
	slog.Info("clusterstats starting",
		"config", configPath,
		"grpc_port", s.GRPCPort,
		"http_port", s.HTTPPort,
		"auth_mode", s.Auth.Mode,
		"coordinators", len(s.Nodes.Coordinators),
		"executors", len(s.Nodes.Executors),
	)

	cat, err := openCatalog(s.Catalog)
	if err != nil {
		return err
	}
	defer cat.Close() //nolint:errcheck

	// Node registry with background TTL eviction, fed by the poller.
	reg := nodes.NewRegistry(s.Nodes.TTL)
	reg.SetTargets(nodes.TargetsFromConfig(s.Nodes))
	go reg.Run(ctx)

	scraper, err := nodes.NewScraper(s.Nodes)
	if err != nil {
		return err
	}
	go nodes.NewPoller(reg, scraper, s.Nodes.ScrapeInterval).Run(ctx)

	// Node targets hot-reload; everything else needs a restart.
	go func() {
		err := config.Watch(ctx, configPath, func(next *config.Config) {
			reg.SetTargets(nodes.TargetsFromConfig(next.Server.Nodes))
		})
		if err != nil {
			slog.Error("config watch stopped", "err", err)
		}
	}()

	promReg := prometheus.NewRegistry()
	promReg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	alertEngine := alerts.New(s.Alerts)
	defer alertEngine.Close()

	// gRPC health service with optional API key authentication.
	key := s.Auth.Key()
	grpcSrv := grpc.NewServer(
		grpc.UnaryInterceptor(auth.APIKeyInterceptor(s.Auth.Mode, s.Auth.EffectiveHeader(), key)),
		grpc.StreamInterceptor(auth.APIKeyStreamInterceptor(s.Auth.Mode, s.Auth.EffectiveHeader(), key)),
	)
	health := healthsrv.New(reg)
	health.Register(grpcSrv)
	go health.Run(ctx, s.Nodes.ScrapeInterval)

	lis, err := net.Listen("tcp", fmt.Sprintf(":%d", s.GRPCPort))
	if err != nil {
		return fmt.Errorf("listen on gRPC port %d: %w", s.GRPCPort, err)
	}
	go func() {
		slog.Info("gRPC health service listening", "port", s.GRPCPort)
		if err := grpcSrv.Serve(lis); err != nil {
			slog.Error("gRPC server stopped", "err", err)
		}
	}()

	handler := api.New(api.Deps{
		Stats:    stats.NewAssembler(reg, cat, cat, cat, cat),
		Spaces:   cat,
		Alerts:   alertEngine,
		Metrics:  metrics.New(promReg),
		Gatherer: promReg,
		Policy: auth.HTTPPolicy{
			Mode:       s.Auth.Mode,
			Header:     s.Auth.EffectiveHeader(),
			Key:        key,
			RoleHeader: s.Auth.RoleHeader,
			UserHeader: s.Auth.UserHeader,
		},
	})
	httpSrv := &http.Server{
		Addr:              fmt.Sprintf(":%d", s.HTTPPort),
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		slog.Info("HTTP server listening", "port", s.HTTPPort)
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("HTTP server stopped", "err", err)
		}
	}()

	<-ctx.Done()
	slog.Info("clusterstats shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	grpcSrv.GracefulStop()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		slog.Warn("HTTP shutdown", "err", err)
	}
	return nil
}
