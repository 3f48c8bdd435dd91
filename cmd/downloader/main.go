package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/Psycoguana/SubredditMediaDownloader/internal/config"
	"github.com/Psycoguana/SubredditMediaDownloader/internal/downloader"
	"github.com/Psycoguana/SubredditMediaDownloader/internal/media"
	"github.com/Psycoguana/SubredditMediaDownloader/internal/progress"
	"github.com/Psycoguana/SubredditMediaDownloader/internal/service"
	"github.com/Psycoguana/SubredditMediaDownloader/internal/source/pushshift"
	"github.com/Psycoguana/SubredditMediaDownloader/internal/source/reddit"
	"github.com/Psycoguana/SubredditMediaDownloader/internal/storage/files"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to config file")
	flag.Parse()

	// Setup logger
	logger := setupLogger("info")

	// Load configuration
	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger = setupLogger(cfg.LogLevel)

	after, before, err := cfg.Dates.Window()
	if err != nil {
		logger.Error("invalid date window", "error", err)
		os.Exit(1)
	}

	// Files land under <download_dir>/<subreddit>/{images,gifs,videos}.
	store, err := files.NewStore(filepath.Join(cfg.DownloadDir, cfg.Subreddit))
	if err != nil {
		logger.Error("failed to prepare download directory", "error", err)
		os.Exit(1)
	}
	logger.Info("download directory ready", "path", store.Root())

	// Initialize PushShift source
	source := pushshift.New(pushshift.Config{
		BaseURL:           cfg.API.BaseURL,
		PageSize:          cfg.API.PageSize,
		MaxPages:          cfg.API.MaxPages,
		Timeout:           cfg.API.Timeout,
		RateLimitInterval: cfg.API.RateLimitInterval,
		MaxAttempts:       cfg.API.Retry.MaxAttempts,
		InitialBackoff:    cfg.API.Retry.InitialBackoff,
		MaxBackoff:        cfg.API.Retry.MaxBackoff,
	}, logger)

	resolver := reddit.NewResolver(reddit.Config{
		Timeout: cfg.API.Timeout,
	}, logger)

	planner := media.NewPlanner(resolver, logger)

	dl := downloader.New(downloader.Config{
		Timeout:        cfg.Download.Timeout,
		MaxAttempts:    cfg.Download.Retry.MaxAttempts,
		InitialBackoff: cfg.Download.Retry.InitialBackoff,
		MaxBackoff:     cfg.Download.Retry.MaxBackoff,
	}, store, logger)

	archive := service.NewArchiveService(
		source,
		planner,
		store,
		dl,
		progress.NewCounter(os.Stdout),
		logger,
		service.Config{
			Subreddit:     cfg.Subreddit,
			After:         after,
			Before:        before,
			MaxConcurrent: cfg.Download.MaxConcurrent,
		},
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		sig := <-sigCh
		logger.Info("received shutdown signal", "signal", sig)
		cancel()
	}()

	if _, err := archive.Run(ctx); err != nil {
		logger.Error("archive run failed", "error", err)
		os.Exit(1)
	}
}

func setupLogger(level string) *slog.Logger {
	var logLevel slog.Level
	switch level {
	case "debug":
		logLevel = slog.LevelDebug
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: logLevel}
	handler := slog.NewJSONHandler(os.Stdout, opts)
	return slog.New(handler)
}
