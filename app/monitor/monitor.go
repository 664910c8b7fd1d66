package monitor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/lysyi3m/screening-comb/app/database"
	"github.com/lysyi3m/screening-comb/app/event"
	"github.com/lysyi3m/screening-comb/app/extract"
	"github.com/lysyi3m/screening-comb/app/notify"
	"github.com/lysyi3m/screening-comb/app/tasks"
	"github.com/lysyi3m/screening-comb/app/venue"
)

const (
	DefaultHorizonDays   = 14
	DefaultRetentionDays = 14
)

type Options struct {
	HorizonDays   int
	RetentionDays int
	Location      *time.Location
}

// Report summarises one run. It is safe to share once returned.
type Report struct {
	RunID           string    `json:"run_id"`
	StartedAt       time.Time `json:"started_at"`
	FinishedAt      time.Time `json:"finished_at"`
	Duration        string    `json:"duration"`
	Today           string    `json:"today"`
	VendorsFailed   int       `json:"vendors_failed"`
	VenuesAttempted int       `json:"venues_attempted"`
	VenuesFailed    int       `json:"venues_failed"`
	FailedDates     int       `json:"failed_dates"`
	Dropped         int       `json:"dropped"`
	Fresh           int       `json:"fresh"`
	New             int       `json:"new"`
	Duplicates      int       `json:"duplicates"`
	Pruned          int       `json:"pruned"`
	Tracked         int       `json:"tracked"`
	Bootstrap       bool      `json:"bootstrap"`
	Notified        int       `json:"notified"`
	NotifyFailures  int       `json:"notify_failures"`
}

// Monitor performs complete poll runs: fetch every configured venue,
// reconcile against the stored state, persist, then notify.
type Monitor struct {
	catalog  *venue.Catalog
	registry *venue.Registry
	store    database.Store
	notifier notify.Notifier
	pool     *tasks.Pool
	logger   *slog.Logger
	opts     Options
	now      func() time.Time

	mu   sync.RWMutex
	last *Report
}

func New(catalog *venue.Catalog, registry *venue.Registry, store database.Store, notifier notify.Notifier, pool *tasks.Pool, opts Options, logger *slog.Logger) *Monitor {
	if opts.HorizonDays <= 0 {
		opts.HorizonDays = DefaultHorizonDays
	}
	if opts.RetentionDays < 0 {
		opts.RetentionDays = DefaultRetentionDays
	}
	if opts.Location == nil {
		opts.Location = time.UTC
	}

	return &Monitor{
		catalog:  catalog,
		registry: registry,
		store:    store,
		notifier: notifier,
		pool:     pool,
		logger:   logger,
		opts:     opts,
		now:      time.Now,
	}
}

// LastReport returns the report of the last completed run, or nil.
func (m *Monitor) LastReport() *Report {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.last
}

// Run executes one poll. An error means nothing was notified: either the
// state could not be loaded or saved, or ctx was cancelled before the state
// was saved.
func (m *Monitor) Run(ctx context.Context) (*Report, error) {
	started := m.now()
	today := event.DateOf(started.In(m.opts.Location))
	report := &Report{
		RunID:     uuid.NewString(),
		StartedAt: started,
		Today:     today.String(),
	}
	logger := m.logger.With("run_id", report.RunID)

	prior, err := m.store.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load state: %w", err)
	}

	batch := m.buildTasks(ctx, today, report, logger)
	report.VenuesAttempted = len(batch)

	var fresh []event.Event
	m.pool.Run(ctx, batch, func(t tasks.TaskInterface, err error) {
		task, ok := t.(*tasks.FetchVenueTask)
		if !ok {
			return
		}
		if err != nil {
			report.VenuesFailed++
			if !errors.Is(err, context.Canceled) {
				logger.Warn("Venue fetch failed", "venue", task.VenueName, "error", err)
			}
			return
		}
		report.FailedDates += task.Result.Partial
		report.Dropped += task.Result.Stats.Dropped
		fresh = append(fresh, task.Result.Events...)
	})

	if err := ctx.Err(); err != nil {
		logger.Warn("Run cancelled, state left unchanged", "error", err)
		return nil, err
	}

	cutoff := today.AddDays(-m.opts.RetentionDays)
	result := Reconcile(fresh, prior, cutoff, started)

	if err := m.store.Save(ctx, result.Store); err != nil {
		return nil, fmt.Errorf("failed to save state: %w", err)
	}

	report.Fresh = result.Fresh
	report.New = len(result.New)
	report.Duplicates = result.Duplicates
	report.Pruned = result.Pruned
	report.Tracked = len(result.Store.Events)
	report.Bootstrap = result.Bootstrap

	for _, e := range result.New {
		if err := m.notifier.Notify(ctx, e); err != nil {
			report.NotifyFailures++
			logger.Warn("Notification failed", "venue", e.VenueName, "title", e.MovieTitle, "error", err)
			continue
		}
		report.Notified++
	}

	if result.Bootstrap {
		if err := m.notifier.NotifyBootstrap(ctx, result.BootstrapCount); err != nil {
			report.NotifyFailures++
			logger.Warn("Bootstrap notification failed", "error", err)
		}
	}

	report.FinishedAt = m.now()
	report.Duration = report.FinishedAt.Sub(report.StartedAt).String()

	logger.Info("Run completed",
		"duration", report.Duration,
		"venues", report.VenuesAttempted,
		"venues_failed", report.VenuesFailed,
		"vendors_failed", report.VendorsFailed,
		"failed_dates", report.FailedDates,
		"fresh", report.Fresh,
		"new", report.New,
		"duplicates", report.Duplicates,
		"pruned", report.Pruned,
		"tracked", report.Tracked,
		"bootstrap", report.Bootstrap,
		"notified", report.Notified,
		"notify_failures", report.NotifyFailures)

	m.mu.Lock()
	m.last = report
	m.mu.Unlock()

	return report, nil
}

func (m *Monitor) buildTasks(ctx context.Context, today event.Date, report *Report, logger *slog.Logger) []tasks.TaskInterface {
	var batch []tasks.TaskInterface

	for _, cfg := range m.catalog.GetEnabledConfigs() {
		source, err := m.registry.Get(cfg.Vendor)
		if err != nil {
			report.VendorsFailed++
			logger.Warn("No source for vendor", "vendor", cfg.Vendor, "error", err)
			continue
		}

		venues, err := m.venuesFor(ctx, cfg, source)
		if err != nil {
			report.VendorsFailed++
			logger.Warn("Venue discovery failed", "vendor", cfg.Vendor, "error", err)
			continue
		}

		dates, err := m.datesFor(cfg, today)
		if err != nil {
			report.VendorsFailed++
			logger.Warn("Invalid date window", "vendor", cfg.Vendor, "error", err)
			continue
		}
		if len(dates) == 0 {
			logger.Debug("No dates to poll", "vendor", cfg.Vendor)
			continue
		}

		extractor := extract.NewExtractor(cfg, logger)
		for _, v := range venues {
			batch = append(batch, tasks.NewFetchVenueTask(v, dates, today, source, extractor, logger))
		}
	}

	return batch
}

func (m *Monitor) venuesFor(ctx context.Context, cfg *venue.Config, source venue.Source) ([]venue.Venue, error) {
	if !cfg.PollAll {
		return cfg.BoundVenues(), nil
	}

	discoverer, ok := source.(venue.Discoverer)
	if !ok {
		return nil, fmt.Errorf("vendor %s does not support poll_all", cfg.Vendor)
	}

	found, err := discoverer.Discover(ctx)
	if err != nil {
		return nil, err
	}

	// Listed venues narrow discovery to those names; codes come from discovery.
	wanted := make(map[string]bool, len(cfg.Venues))
	for _, v := range cfg.Venues {
		wanted[v.Name] = true
	}

	venues := make([]venue.Venue, 0, len(found))
	for _, v := range found {
		if len(wanted) > 0 && !wanted[v.Name] {
			continue
		}
		venues = append(venues, cfg.Bind(v))
	}
	return venues, nil
}

func (m *Monitor) datesFor(cfg *venue.Config, today event.Date) ([]event.Date, error) {
	horizon := cfg.Settings.HorizonDays
	if horizon <= 0 {
		horizon = m.opts.HorizonDays
	}

	weekdays, err := cfg.WeekdaySet()
	if err != nil {
		return nil, err
	}

	dates := make([]event.Date, 0, horizon)
	for i := 0; i < horizon; i++ {
		d := today.AddDays(i)
		if weekdays != nil && !weekdays[d.Weekday()] {
			continue
		}
		dates = append(dates, d)
	}
	return dates, nil
}
