package tasks

import (
	"context"
	"log/slog"

	"github.com/lysyi3m/screening-comb/app/event"
	"github.com/lysyi3m/screening-comb/app/extract"
	"github.com/lysyi3m/screening-comb/app/venue"
)

// VenueResult is the outcome of one venue's fetch and extraction.
type VenueResult struct {
	Venue    venue.Venue
	Events   []event.Event
	Stats    extract.Stats
	Partial  int // dates that failed while others succeeded
	Err      error
	Executed bool
}

type FetchVenueTask struct {
	Task
	Venue     venue.Venue
	Dates     []event.Date
	Today     event.Date
	source    venue.Source
	extractor *extract.Extractor
	logger    *slog.Logger

	Result VenueResult
}

func NewFetchVenueTask(v venue.Venue, dates []event.Date, today event.Date, source venue.Source, extractor *extract.Extractor, logger *slog.Logger) *FetchVenueTask {
	return &FetchVenueTask{
		Task:      NewTask(TaskTypeFetchVenue, v.DisplayName()),
		Venue:     v,
		Dates:     dates,
		Today:     today,
		source:    source,
		extractor: extractor,
		logger:    logger,
		Result:    VenueResult{Venue: v},
	}
}

// Execute fetches the venue and extracts its events. A returned error is
// always a *venue.FetchError and is also recorded in Result.
func (t *FetchVenueTask) Execute(ctx context.Context) error {
	t.Result.Executed = true

	select {
	case <-ctx.Done():
		return t.fail(ctx.Err())
	default:
	}

	raw, err := t.source.Fetch(ctx, t.Venue, t.Dates)
	if err != nil {
		return t.fail(err)
	}

	for _, failure := range raw.Failures {
		t.logger.Warn("Date fetch failed", "venue", t.VenueName, "error", failure)
	}

	events, stats := t.extractor.Run(raw, t.Venue, t.Today)
	t.Result.Events = events
	t.Result.Stats = stats
	t.Result.Partial = len(raw.Failures)

	t.logger.Info("Task completed",
		"type", string(t.Type),
		"venue", t.VenueName,
		"duration", t.GetDuration(),
		"pages", stats.Pages,
		"listings", stats.Listings,
		"hits", stats.Hits,
		"events", stats.Events,
		"dropped", stats.Dropped,
		"failed_dates", len(raw.Failures))

	return nil
}

func (t *FetchVenueTask) fail(err error) error {
	fetchErr := &venue.FetchError{Vendor: t.Venue.Vendor, Venue: t.Venue.DisplayName(), Err: err}
	t.Result.Err = fetchErr
	return fetchErr
}
