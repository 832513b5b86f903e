package main

import (
	"context"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/Marax1234/PortfolioWebapp-sub000/internal/config"
	"github.com/Marax1234/PortfolioWebapp-sub000/internal/database"
	"github.com/Marax1234/PortfolioWebapp-sub000/internal/janitor"
	"github.com/Marax1234/PortfolioWebapp-sub000/internal/media"
	"github.com/Marax1234/PortfolioWebapp-sub000/internal/observability"
	"github.com/Marax1234/PortfolioWebapp-sub000/internal/server"
	"github.com/Marax1234/PortfolioWebapp-sub000/internal/storage"
)

func main() {
	configPath := flag.String("config", config.DefaultConfigPath, "path to TOML config")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		panic(err)
	}

	logger, err := observability.InitLogger(cfg.Log.Development)
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	ctx := context.Background()

	tp, err := observability.InitTracerProvider(ctx, logger)
	if err != nil {
		logger.Fatal("failed to init tracing", zap.Error(err))
	}
	defer observability.ShutdownTracerProvider(ctx, tp, logger)

	metrics, err := observability.InitMetrics()
	if err != nil {
		logger.Fatal("failed to init metrics", zap.Error(err))
	}
	observability.StartMetricsServer(cfg.Server.MetricsPort, logger)

	db, err := database.NewPostgresDB(cfg.Postgres.DSN())
	if err != nil {
		logger.Fatal("failed to connect to postgres", zap.Error(err))
	}
	defer db.Close()

	store := storage.NewStore(storage.Config{
		MaxUploadSize:     cfg.Storage.MaxUploadSizeMB * 1024 * 1024,
		AllowedImageTypes: cfg.Storage.AllowedImageTypes,
		AllowedVideoTypes: cfg.Storage.AllowedVideoTypes,
		UploadDir:         cfg.Storage.UploadDir,
		PublicPrefix:      cfg.Storage.PublicPrefix,
	}, logger)
	if err := store.Bootstrap(); err != nil {
		logger.Fatal("failed to bootstrap storage", zap.Error(err))
	}

	pipeline := media.NewPipeline(store, logger, metrics)

	jan := janitor.New(store, metrics, logger, cfg.Storage.TempMaxAgeHours)
	if err := jan.Start(); err != nil {
		logger.Fatal("failed to start janitor", zap.Error(err))
	}
	defer jan.Stop()

	opts := media.Options{
		Quality:       cfg.Media.Quality,
		MaxWidth:      cfg.Media.MaxWidth,
		MaxHeight:     cfg.Media.MaxHeight,
		ThumbnailSize: cfg.Media.ThumbnailSize,
		GenerateWebP:  cfg.Media.GenerateWebP,
		GenerateAVIF:  cfg.Media.GenerateAVIF,
	}
	handler := server.NewMediaHandler(store, pipeline, db, logger, opts, 4)

	e := server.New(logger, handler, cfg.Storage.PublicPrefix, cfg.Storage.UploadDir)

	go func() {
		logger.Info("starting server", zap.String("addr", cfg.Server.Addr))
		if err := e.Start(cfg.Server.Addr); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server failed", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown failed", zap.Error(err))
	}
}
