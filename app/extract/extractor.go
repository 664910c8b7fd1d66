package extract

import (
	"fmt"
	"log/slog"

	"github.com/lysyi3m/screening-comb/app/event"
	"github.com/lysyi3m/screening-comb/app/venue"
)

type Stats struct {
	Pages    int
	Listings int
	Hits     int
	Events   int
	Dropped  int
	Panicked bool
}

// Extractor turns one vendor's raw fetch results into events.
type Extractor struct {
	matcher  *Matcher
	listings *ListingMatcher
	scan     ScanConfig
	logger   *slog.Logger
}

func NewExtractor(cfg *venue.Config, logger *slog.Logger) *Extractor {
	matcher := NewMatcher(cfg.Keywords, cfg.Brand)
	return &Extractor{
		matcher:  matcher,
		listings: NewListingMatcher(matcher, cfg.EventCodes),
		scan:     scanConfigFrom(cfg.Scan, cfg.ExcludeTitles),
		logger:   logger,
	}
}

// Run never fails: unusable input yields fewer events, and a panic while
// extracting one venue yields none.
func (x *Extractor) Run(raw venue.Raw, v venue.Venue, today event.Date) (events []event.Event, stats Stats) {
	defer func() {
		if r := recover(); r != nil {
			x.logger.Error("Extraction panicked", "venue", v.DisplayName(), "panic", fmt.Sprint(r))
			events = nil
			stats = Stats{Pages: len(raw.Pages), Listings: len(raw.Listings), Panicked: true}
		}
	}()

	stats.Pages = len(raw.Pages)
	stats.Listings = len(raw.Listings)

	for _, l := range raw.Listings {
		typ, ok := x.listings.Classify(l)
		if !ok {
			continue
		}
		stats.Hits++
		events = x.appendEvent(events, &stats, v, event.Fields{
			MovieTitle: l.Title,
			Type:       typ,
			PlayDate:   l.PlayDate,
			StartTime:  l.StartTime,
			Hall:       l.Hall,

			RemainingSeats: l.RemainingSeats,
			TotalSeats:     l.TotalSeats,
		})
	}

	if len(raw.Pages) > 0 {
		scanner := NewTextScanner(x.scan, x.matcher, v)
		for _, page := range raw.Pages {
			date, err := pageDate(page, today)
			if err != nil {
				x.logger.Warn("Page dropped", "venue", v.DisplayName(), "day", page.Day, "error", err)
				continue
			}

			for _, hit := range scanner.Scan(page.Text) {
				stats.Hits++
				events = x.appendEvent(events, &stats, v, event.Fields{
					MovieTitle: hit.Title,
					Type:       hit.Type,
					PlayDate:   date,
					StartTime:  hit.Time,
					Hall:       hit.Hall,
				})
			}
		}
	}

	stats.Events = len(events)
	return events, stats
}

func (x *Extractor) appendEvent(events []event.Event, stats *Stats, v venue.Venue, f event.Fields) []event.Event {
	f.VenueName = v.DisplayName()
	f.Vendor = v.Vendor

	e, err := event.New(f)
	if err != nil {
		stats.Dropped++
		x.logger.Debug("Hit dropped", "venue", f.VenueName, "title", f.MovieTitle, "error", err)
		return events
	}
	return append(events, e)
}

func pageDate(p venue.Page, today event.Date) (event.Date, error) {
	if !p.Date.IsZero() {
		return p.Date, nil
	}
	return event.ResolveDay(today, p.Day)
}
