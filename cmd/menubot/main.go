// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"

	"github.com/olegiv/ocms-menubot/internal/cache"
	"github.com/olegiv/ocms-menubot/internal/config"
	"github.com/olegiv/ocms-menubot/internal/content"
	"github.com/olegiv/ocms-menubot/internal/download"
	"github.com/olegiv/ocms-menubot/internal/handler"
	"github.com/olegiv/ocms-menubot/internal/logging"
	"github.com/olegiv/ocms-menubot/internal/menu"
	"github.com/olegiv/ocms-menubot/internal/metrics"
	"github.com/olegiv/ocms-menubot/internal/render"
	"github.com/olegiv/ocms-menubot/internal/scheduler"
	"github.com/olegiv/ocms-menubot/internal/service"
	"github.com/olegiv/ocms-menubot/internal/telegram"
	"github.com/olegiv/ocms-menubot/internal/version"
)

// Version information - injected at build time via ldflags
var (
	appVersion   = ""
	appGitCommit = ""
	appBuildTime = ""
)

const shutdownTimeout = 30 * time.Second

func main() {
	showVersion := flag.Bool("version", false, "Show version information")
	flag.BoolVar(showVersion, "v", false, "Show version information (shorthand)")
	showHelp := flag.Bool("help", false, "Show help information")
	flag.BoolVar(showHelp, "h", false, "Show help information (shorthand)")

	flag.Usage = func() {
		_, _ = fmt.Fprintf(os.Stderr, "menubot - Telegram menu bot backed by a CMS\n\n")
		_, _ = fmt.Fprintf(os.Stderr, "Usage: %s [options]\n\n", os.Args[0])
		_, _ = fmt.Fprintf(os.Stderr, "Options:\n")
		flag.PrintDefaults()
		_, _ = fmt.Fprintf(os.Stderr, "\nEnvironment Variables:\n")
		_, _ = fmt.Fprintf(os.Stderr, "  MENUBOT_TELEGRAM_TOKEN     Bot API token (required)\n")
		_, _ = fmt.Fprintf(os.Stderr, "  MENUBOT_MENU_SOURCE        wordpress|static (default: wordpress)\n")
		_, _ = fmt.Fprintf(os.Stderr, "  MENUBOT_MENU_ENDPOINT      Menu collection URL (wordpress)\n")
		_, _ = fmt.Fprintf(os.Stderr, "  MENUBOT_MEDIA_ENDPOINT     Media attachment URL (wordpress)\n")
		_, _ = fmt.Fprintf(os.Stderr, "  MENUBOT_STATIC_MENU_PATH   YAML/JSON menu file (static, default: built-in menu)\n")
		_, _ = fmt.Fprintf(os.Stderr, "  MENUBOT_REFRESH_SCHEDULE   Cron schedule for menu refresh, empty or off disables (default: @every 15m)\n")
		_, _ = fmt.Fprintf(os.Stderr, "  MENUBOT_REDIS_URL          Redis URL for the media cache (optional)\n")
		_, _ = fmt.Fprintf(os.Stderr, "  MENUBOT_SERVER_PORT        Ops server port (default: 8081)\n")
		_, _ = fmt.Fprintf(os.Stderr, "  MENUBOT_ENV                development|production (default: development)\n")
	}

	flag.Parse()

	if *showHelp {
		flag.Usage()
		os.Exit(0)
	}

	info := version.Info{
		Version:   appVersion,
		GitCommit: appGitCommit,
		BuildTime: appBuildTime,
	}.WithBuildInfo()

	if *showVersion {
		_, _ = fmt.Printf("menubot %s\n", info)
		os.Exit(0)
	}

	if err := run(info); err != nil {
		slog.Error("application error", "error", err)
		os.Exit(1)
	}
}

func run(info version.Info) error {
	// Load .env file if present (development)
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	logger := logging.New(os.Stdout, cfg.LogLevel, cfg.Env)
	slog.SetDefault(logger)
	slog.Info("starting menubot",
		"version", info.String(),
		"env", cfg.Env,
		"bot", cfg.RedactedToken(),
		"source", cfg.MenuSource)

	collector := metrics.NewCollector("menubot")

	source, media, err := newContentSource(cfg, logger)
	if err != nil {
		return err
	}

	backend, err := cache.NewCacheWithInfo(cache.Config{
		RedisURL:         cfg.RedisURL,
		Prefix:           cfg.CachePrefix,
		FallbackToMemory: true,
		DefaultTTL:       cfg.MediaCacheTTL,
		MaxSize:          10000,
		CleanupInterval:  5 * time.Minute,
	})
	if err != nil {
		return fmt.Errorf("initializing cache: %w", err)
	}

	menus := cache.NewMenuCache(source)
	menus.SetObserver(collector)
	cacheManager := cache.NewManager(menus, cache.NewMediaCache(media, backend.Cache, cfg.MediaCacheTTL), backend)
	defer func() {
		if err := cacheManager.Close(); err != nil {
			slog.Error("error closing cache", "error", err)
		}
	}()

	menuService := service.NewMenuService(service.MenuServiceOptions{
		Cache: cacheManager,
		Downloader: download.New(download.Options{
			Timeout:      cfg.DownloadTimeout,
			MaxBytes:     cfg.MaxDownloadBytes,
			AllowPrivate: cfg.AllowPrivateDownloads,
		}),
		Renderer: render.New(render.Options{
			WelcomeText: cfg.WelcomeText,
			EmptyText:   cfg.EmptyText,
			BackLabel:   cfg.BackLabel,
		}),
		Observer: collector,
		Logger:   logger,
	})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	sched := scheduler.New(menuService, cfg.RefreshSchedule, logger)
	// A failed first load leaves an empty menu; the next run retries.
	if err := sched.RunNow(ctx); err != nil {
		slog.Warn("initial menu load failed, serving empty menu until the next refresh", "error", err)
	}
	if cfg.RefreshEnabled() {
		if err := sched.Start(); err != nil {
			return fmt.Errorf("starting scheduler: %w", err)
		}
		defer sched.Stop()
	}

	bot := telegram.NewClient(telegram.Options{
		BaseURL:  cfg.TelegramAPIURL,
		Token:    cfg.TelegramToken,
		SendRate: cfg.SendRate,
		Observer: collector,
	})
	poller := telegram.NewPoller(bot, handler.NewBotHandler(bot, menuService, logger), telegram.PollerOptions{
		Timeout:  cfg.PollTimeout,
		Workers:  cfg.Workers,
		Observer: collector,
		Logger:   logger,
	})

	srv := &http.Server{
		Addr: cfg.ServerAddr(),
		Handler: handler.NewRouter(handler.RouterConfig{
			Menus:          menuService,
			Metrics:        collector,
			Version:        info,
			IsDevelopment:  cfg.IsDevelopment(),
			RequestTimeout: cfg.FetchTimeout * 3,
		}),
		ReadTimeout:       15 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      cfg.DownloadTimeout + 10*time.Second, // downloads stream through
		IdleTimeout:       60 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		slog.Info("ops server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("ops server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		return poller.Run(gctx)
	})
	g.Go(func() error {
		<-gctx.Done()
		slog.Info("shutting down...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server shutdown: %w", err)
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		return err
	}
	slog.Info("menubot stopped")
	return nil
}

// newContentSource builds the record source and media lookup for the
// configured CMS.
func newContentSource(cfg *config.Config, logger *slog.Logger) (cache.RecordSource, menu.MediaLookup, error) {
	switch cfg.MenuSource {
	case config.SourceStatic:
		path := cfg.StaticMenuPath
		if path == "" {
			path = "built-in"
		}
		slog.Info("using static menu", "path", path)
		return content.NewStaticSource(cfg.StaticMenuPath), content.StaticMedia{}, nil
	default:
		wp, err := content.NewWordPress(content.WordPressOptions{
			MenuEndpoint:  cfg.MenuEndpoint,
			MediaEndpoint: cfg.MediaEndpoint,
			PerPage:       cfg.MenuPerPage,
			Timeout:       cfg.FetchTimeout,
			Logger:        logger,
		})
		if err != nil {
			return nil, nil, fmt.Errorf("configuring wordpress source: %w", err)
		}
		slog.Info("using wordpress menu", "endpoint", cfg.MenuEndpoint)
		return wp, wp, nil
	}
}
