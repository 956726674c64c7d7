package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/claude/healthsync/internal/aggregate"
	"github.com/claude/healthsync/internal/archive"
	"github.com/claude/healthsync/internal/config"
	"github.com/claude/healthsync/internal/kv"
	"github.com/claude/healthsync/internal/provider"
	"github.com/claude/healthsync/internal/server"
	"github.com/claude/healthsync/internal/service"
	"github.com/claude/healthsync/internal/widget"
	"tailscale.com/tsnet"
)

// Version is set at build time via -ldflags.
var Version = "dev"

func main() {
	configPath := flag.String("config", "config.yaml", "path to config file")
	migrateOnly := flag.Bool("migrate-only", false, "run migrations and exit")
	flag.Parse()

	log := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	log.Info("HealthSync starting", "version", Version)

	// Load config
	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	// Migrations only apply to the postgres backend
	if cfg.Storage.Driver == "postgres" {
		if err := kv.RunMigrations(cfg.Storage.Postgres.DSN(), "migrations"); err != nil {
			log.Error("migration failed", "error", err)
			os.Exit(1)
		}
		log.Info("migrations applied")
	}

	if *migrateOnly {
		log.Info("migrate-only: exiting")
		return
	}

	// Open the store
	ctx := context.Background()
	store, err := kv.Open(ctx, cfg.Storage)
	if err != nil {
		log.Error("failed to open store", "driver", cfg.Storage.Driver, "error", err)
		os.Exit(1)
	}
	defer store.Close()
	log.Info("store opened", "driver", cfg.Storage.Driver)

	// Select the platform provider
	platform := provider.Platform(cfg.Platform.Name)
	if cfg.Platform.Name == "" {
		platform = provider.Detect()
	}
	sdk := provider.NewBridgeSDK(cfg.Platform.BridgeURL, cfg.Platform.BridgeKey)
	prov, err := provider.Select(platform, sdk, log)
	if err != nil {
		log.Error("provider selection failed", "error", err)
		os.Exit(1)
	}
	log.Info("provider selected", "platform", platform)

	// Wire the service
	daily := aggregate.NewDaily(prov, log)
	weekly := aggregate.NewWeekly(daily, log)
	arch := archive.New(store, log)
	bridge := widget.NewBridge(daily, widget.NewCache(store, log), cfg.Goals, log)
	svc := service.New(prov, daily, weekly, arch, bridge, store, log)

	srv := server.New(svc, arch, bridge, cfg.Auth.APIKey, log)

	// Start server — tsnet or plain HTTP
	var listener net.Listener
	var tsServer *tsnet.Server

	if cfg.Tailscale.Enabled {
		tsServer = &tsnet.Server{
			Hostname: cfg.Tailscale.Hostname,
			Dir:      cfg.Tailscale.StateDir,
		}
		if err := tsServer.Start(); err != nil {
			log.Error("tsnet start failed", "error", err)
			os.Exit(1)
		}
		defer tsServer.Close()

		listener, err = tsServer.Listen("tcp", ":80")
		if err != nil {
			log.Error("tsnet listen failed", "error", err)
			os.Exit(1)
		}
		log.Info("tsnet server starting", "hostname", cfg.Tailscale.Hostname)
	} else {
		addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
		listener, err = net.Listen("tcp", addr)
		if err != nil {
			log.Error("listen failed", "addr", addr, "error", err)
			os.Exit(1)
		}
		log.Info("server starting", "addr", addr, "mode", "dev (no tailscale)")
	}

	httpSrv := &http.Server{Handler: srv}

	go func() {
		if err := httpSrv.Serve(listener); err != nil && err != http.ErrServerClosed {
			log.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit
	log.Info("shutting down", "signal", sig)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		log.Error("shutdown error", "error", err)
	}
	log.Info("server stopped")
}
