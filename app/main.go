package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/lysyi3m/screening-comb/app/api"
	"github.com/lysyi3m/screening-comb/app/cfg"
	"github.com/lysyi3m/screening-comb/app/database"
	"github.com/lysyi3m/screening-comb/app/event"
	"github.com/lysyi3m/screening-comb/app/feed"
	"github.com/lysyi3m/screening-comb/app/monitor"
	"github.com/lysyi3m/screening-comb/app/notify"
	"github.com/lysyi3m/screening-comb/app/scheduler"
	"github.com/lysyi3m/screening-comb/app/tasks"
	"github.com/lysyi3m/screening-comb/app/venue"
)

func main() {
	if err := run(); err != nil {
		slog.Error("Fatal error", "error", err)
		os.Exit(1)
	}
}

func run() error {
	appCfg, err := cfg.Load(os.Args[1:])
	if err != nil {
		return err
	}
	if appCfg == nil {
		return nil
	}

	level := slog.LevelInfo
	if appCfg.Debug {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	slog.Info("Starting Screening Comb", "version", appCfg.Version, "timezone", appCfg.Timezone, "store", appCfg.StoreDriver)

	catalog := venue.NewCatalog(appCfg.VenuesDir, venue.CGVVendor, venue.LotteVendor, venue.MegaboxVendor)
	if err := catalog.Run(); err != nil {
		return fmt.Errorf("failed to load venue catalog: %w", err)
	}
	slog.Info("Venue catalog loaded", "dir", appCfg.VenuesDir, "vendors", catalog.GetConfigCount(), "enabled", len(catalog.GetEnabledConfigs()))

	httpClient := &http.Client{Timeout: appCfg.FetchTimeout}
	today := func() event.Date {
		return event.DateOf(time.Now().In(appCfg.Location))
	}

	registry := venue.NewRegistry(
		venue.NewCGV(appCfg.ChromeHeadless, appCfg.UserAgent, logger),
		venue.NewLotte(httpClient, venue.LotteBaseURL, appCfg.UserAgent, logger),
		venue.NewMegabox(httpClient, venue.MegaboxBaseURL, appCfg.UserAgent, today, logger),
	)

	store, err := database.Open(appCfg.StoreDriver, appCfg.StatePath, appCfg.DBPath)
	if err != nil {
		return fmt.Errorf("failed to open state store: %w", err)
	}
	defer store.Close()

	recent := notify.NewRecent(notify.DefaultRecentCapacity)
	notifiers := []notify.Notifier{notify.NewLog(logger), recent}
	if appCfg.DiscordWebhook != "" {
		notifiers = append(notifiers, notify.NewDiscord(&http.Client{Timeout: 15 * time.Second}, appCfg.DiscordWebhook, appCfg.UserAgent))
		slog.Info("Discord notifications enabled")
	}

	mon := monitor.New(catalog, registry, store, notify.NewMulti(notifiers...),
		tasks.NewPool(appCfg.WorkerCount, appCfg.FetchTimeout, logger),
		monitor.Options{
			HorizonDays:   appCfg.HorizonDays,
			RetentionDays: appCfg.RetentionDays,
			Location:      appCfg.Location,
		}, logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if appCfg.Once {
		_, err := mon.Run(ctx)
		return err
	}

	sched, err := scheduler.New(mon, appCfg.Schedule, appCfg.Location, logger)
	if err != nil {
		return err
	}
	slog.Info("Starting scheduler", "schedule", appCfg.Schedule, "workers", appCfg.WorkerCount)
	sched.Start()
	defer sched.Stop()

	handler := api.NewHandler(catalog, recent, feed.NewGenerator(appCfg.PublicURL(), appCfg.Version), mon, sched, appCfg.Version)
	httpServer := &http.Server{
		Addr:         ":" + appCfg.Port,
		Handler:      api.NewServer(handler, appCfg.APIAccessKey),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	serverErrChan := make(chan error, 1)
	go func() {
		slog.Info("Starting HTTP server", "port", appCfg.Port, "feed", appCfg.PublicURL()+feed.FeedPath)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErrChan <- fmt.Errorf("HTTP server error: %w", err)
		}
	}()

	var serveErr error
	select {
	case <-ctx.Done():
		slog.Info("Shutdown signal received")
	case serveErr = <-serverErrChan:
		slog.Error("Server error", "error", serveErr)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		slog.Error("HTTP server shutdown error", "error", err)
	}

	slog.Info("Shutdown complete")
	return serveErr
}
