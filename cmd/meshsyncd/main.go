// Package main is the entry point for the meshsync ingestion server.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/Faultbox/meshsync/internal/assetstore"
	"github.com/Faultbox/meshsync/internal/browser"
	"github.com/Faultbox/meshsync/internal/config"
	"github.com/Faultbox/meshsync/internal/logger"
	"github.com/Faultbox/meshsync/internal/materials"
	"github.com/Faultbox/meshsync/internal/protocol"
	"github.com/Faultbox/meshsync/internal/scene"
	"github.com/Faultbox/meshsync/internal/server"
	"github.com/Faultbox/meshsync/pkg/encoding"
)

func main() {
	// Parse CLI flags first
	config.ParseFlags()

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Config error: %v\n", err)
		os.Exit(1)
	}

	if config.WriteConfig() {
		path, err := cfg.Save()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Config error: %v\n", err)
			os.Exit(1)
		}
		fmt.Println("wrote", path)
		return
	}

	// Initialize logger
	if err := logger.Init(cfg.Logging.Level, cfg.Logging.LogFile); err != nil {
		fmt.Fprintf(os.Stderr, "Logger error: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Info("=== meshsync ===")
	logger.Sugar.Debugf("Config: %+v", cfg)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg); err != nil {
		logger.Error("server error", zap.Error(err))
		logger.Sync()
		os.Exit(1)
	}
	logger.Info("server stopped normally")
}

func run(ctx context.Context, cfg *config.Config) error {
	store, err := assetstore.Open(assetstore.Options{
		ContentRoot: cfg.Assets.ContentRoot,
		Compression: cfg.Assets.Compression,
		CatalogPath: cfg.Assets.Catalog,
	})
	if err != nil {
		return fmt.Errorf("opening asset store: %w", err)
	}
	defer store.Close()

	seeded, err := store.SeedBaseMaterials(ctx, cfg.Materials.Base)
	if err != nil {
		return fmt.Errorf("seeding base materials: %w", err)
	}
	if seeded > 0 {
		logger.Info("seeded base materials", zap.Int("count", seeded))
	}

	registry := materials.NewRegistry(store, cfg.Assets.MaterialPackage)
	loaded := registry.Preload(cfg.Materials.Base)
	logger.Info("base materials loaded",
		zap.Int("loaded", loaded),
		zap.Strings("names", registry.Names()),
	)

	hub := browser.NewHub()
	integrator := scene.New(store, registry, hub, cfg.Scene.QueueDepth)
	sceneCtx, stopScene := context.WithCancel(context.Background())
	sceneDone := make(chan struct{})
	go func() {
		defer close(sceneDone)
		integrator.Run(sceneCtx)
	}()
	defer func() {
		stopScene()
		<-sceneDone
		s := integrator.Stats()
		logger.Info("scene integrator stopped",
			zap.Int64("created", s.Created),
			zap.Int64("dropped", s.Dropped),
			zap.Int64("failed", s.Failed),
		)
	}()

	if cfg.Browser.Addr != "" {
		feed := browser.NewServer(cfg.Browser.Addr, hub, store)
		if err := feed.Start(); err != nil {
			// The feed is optional; ingestion carries on without it.
			logger.Warn("content browser feed disabled", zap.Error(err))
		} else {
			defer func() {
				shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
				defer cancel()
				feed.Shutdown(shutdownCtx)
			}()
		}
	}

	decode, _, err := encoding.Lookup(cfg.Protocol.TextEncoding)
	if err != nil {
		return err
	}
	listener := server.NewListener(server.Config{
		Addr:            cfg.ListenAddr(),
		AcceptTick:      cfg.Server.AcceptTick,
		ShutdownTimeout: cfg.Server.ShutdownTimeout,
		Options: server.Options{
			MeshPackage:     cfg.Assets.MeshPackage,
			MaterialPackage: cfg.Assets.MaterialPackage,
			Limits: protocol.Limits{
				MaxArrayElements: cfg.Protocol.MaxArrayElements,
				MaxStringBytes:   cfg.Protocol.MaxStringBytes,
			},
			Text:       decode,
			ReadBuffer: cfg.Server.ReadBuffer,
		},
	}, registry, integrator)
	if err := listener.Start(); err != nil {
		return err
	}

	<-ctx.Done()
	logger.Info("shutting down", zap.Duration("timeout", cfg.Server.ShutdownTimeout))

	stopped := make(chan struct{})
	go func() {
		listener.Stop()
		close(stopped)
	}()
	select {
	case <-stopped:
	case <-time.After(2 * cfg.Server.ShutdownTimeout):
		return errors.New("listener did not stop in time")
	}

	loads, misses := registry.Stats()
	logger.Info("material registry",
		zap.Int("entries", registry.Len()),
		zap.Int("loads", loads),
		zap.Int("misses", misses),
	)
	return nil
}
