package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"musiccatalog/internal/auth"
	"musiccatalog/internal/cache"
	"musiccatalog/internal/catalog"
	"musiccatalog/internal/collection"
	"musiccatalog/internal/config"
	"musiccatalog/internal/database"
	"musiccatalog/internal/ingest"
	"musiccatalog/internal/media"
	"musiccatalog/internal/ngrok"
	"musiccatalog/internal/review"
	"musiccatalog/internal/server"
	"musiccatalog/internal/transcode"

	"github.com/sirupsen/logrus"
)

const (
	userCacheTTL    = 5 * time.Minute
	shutdownTimeout = 15 * time.Second
)

func main() {
	configPath := flag.String("config", "./config.toml", "path to the TOML configuration file")
	flag.Parse()

	// Initialize basic logger for startup
	logger := logrus.New()
	logger.SetFormatter(&logrus.TextFormatter{
		FullTimestamp: true,
	})

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		logger.WithError(err).Fatal("Error loading configuration")
	}

	appLogger, err := cfg.NewLogger()
	if err != nil {
		logger.WithError(err).Fatal("Error configuring logger")
	}
	logger = appLogger

	db, err := database.NewDatabase(cfg.Database, logger)
	if err != nil {
		logger.WithError(err).Fatal("Error initializing database")
	}
	defer db.Close()

	users := cache.NewUserCache(userCacheTTL)
	defer users.Close()

	transcoder := media.NewFFmpegTranscoder(cfg.Transcode.FFmpegPath, cfg.Transcode.BitrateKbps, logger)
	if !transcoder.Available() {
		logger.WithField("ffmpeg_path", cfg.Transcode.FFmpegPath).
			Warn("ffmpeg not found, uploaded files will keep an empty payload")
	}
	prober := media.NewProber(nil, logger)

	dispatcher := transcode.NewDispatcher(cfg.Transcode.MaxConcurrent, logger)
	pipeline := transcode.NewPipeline(db, dispatcher, transcoder, prober, logger)

	catalogServer := server.NewCatalogServer(cfg, db, server.Services{
		Auth:        auth.NewService(db, users, logger),
		Catalog:     catalog.NewService(db, logger),
		Collections: collection.NewService(db, logger),
		Reviews:     review.NewService(db, logger),
		Files:       pipeline,
	}, logger)

	var inbox *ingest.Watcher
	if cfg.Ingest.Enabled {
		inbox = ingest.NewWatcher(cfg.Ingest.InboxDir, pipeline, prober.IsAudioFile, logger)
		if err := inbox.Start(); err != nil {
			logger.WithError(err).Warn("Could not start inbox watcher")
			inbox = nil
		}
	}

	tunnel, err := ngrok.NewService(&cfg.Ngrok, logger)
	if err != nil {
		logger.WithError(err).Warn("Ngrok service not available")
		tunnel = nil
	}

	// Handle graceful shutdown
	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)

	serverErr := make(chan error, 1)
	go func() {
		serverErr <- catalogServer.Start()
	}()

	localAddress := fmt.Sprintf("http://%s", cfg.GetAddress())
	if err := tunnel.StartTunnel(context.Background(), localAddress); err != nil {
		logger.WithError(err).Warn("Could not start ngrok tunnel")
	}

	select {
	case <-c:
		logger.Info("Received shutdown signal")
	case err := <-serverErr:
		if err != nil {
			logger.WithError(err).Error("Server stopped unexpectedly")
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := tunnel.Stop(); err != nil {
		logger.WithError(err).Warn("Error stopping ngrok tunnel")
	}
	if err := catalogServer.Shutdown(ctx); err != nil {
		logger.WithError(err).Warn("Error shutting down HTTP server")
	}
	if inbox != nil {
		inbox.Stop()
	}

	logger.Info("Waiting for background transcodes")
	dispatcher.Wait()
	logger.Info("Shutdown complete")
}
