package venue

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode"

	"github.com/lysyi3m/screening-comb/app/event"
)

var ErrUnknownVendor = errors.New("unknown vendor")

type Venue struct {
	Vendor string `yaml:"-" json:"vendor"`
	Brand  string `yaml:"-" json:"brand"`
	Region string `yaml:"region" json:"region,omitempty"`
	Name   string `yaml:"name" json:"name"`
	Code   string `yaml:"code" json:"code,omitempty"`
}

// DisplayName is the vendor-qualified name used on events, e.g. "CGV 강남".
func (v Venue) DisplayName() string {
	if v.Brand == "" {
		return v.Name
	}
	return v.Brand + " " + v.Name
}

// Page is the visible text of one day's schedule. Date is set when the
// source knows the full calendar date; otherwise only Day is reliable.
type Page struct {
	Day     int
	Weekday string
	Date    event.Date
	Text    string
}

// Listing is one structured screening record from a vendor API.
type Listing struct {
	Title        string
	CategoryCode string
	CategoryName string
	PlayDate     event.Date
	StartTime    string
	Hall         string

	RemainingSeats int
	TotalSeats     int
}

// Raw is what a source returned for one venue. Failures holds per-date
// errors; the dates that did succeed are still usable.
type Raw struct {
	Pages    []Page
	Listings []Listing
	Failures []error
}

func (r Raw) Empty() bool {
	return len(r.Pages) == 0 && len(r.Listings) == 0
}

type Source interface {
	Vendor() string
	Fetch(ctx context.Context, v Venue, dates []event.Date) (Raw, error)
}

// Discoverer is implemented by sources that can list every venue they serve.
type Discoverer interface {
	Discover(ctx context.Context) ([]Venue, error)
}

type FetchError struct {
	Vendor string
	Venue  string
	Err    error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("failed to fetch %s/%s: %v", e.Vendor, e.Venue, e.Err)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// Configuration types

type Config struct {
	Vendor        string            // Derived from filename (without .yml extension)
	Brand         string            `yaml:"brand"`
	Settings      Settings          `yaml:"settings"`
	PollAll       bool              `yaml:"poll_all"`
	Venues        []Venue           `yaml:"venues"`
	Keywords      []Keyword         `yaml:"keywords"`
	EventCodes    map[string]string `yaml:"event_codes"`
	ExcludeTitles []string          `yaml:"exclude_titles"`
	Scan          ScanSettings      `yaml:"scan"`
}

type Settings struct {
	Enabled     bool     `yaml:"enabled"`
	HorizonDays int      `yaml:"horizon_days"` // 0 means the process default
	Weekdays    []string `yaml:"weekdays"`     // empty means every day
}

type Keyword struct {
	Term string     `yaml:"term"`
	Type event.Type `yaml:"type"`
}

// ScanSettings overrides the text scanner's windows. Zero keeps the default.
type ScanSettings struct {
	TimeLookback            int `yaml:"time_lookback"`
	TitleLookback           int `yaml:"title_lookback"`
	NearestTitleMaxDistance int `yaml:"nearest_title_max_distance"`
	MinTitleRunes           int `yaml:"min_title_runes"`
	MaxTitleRunes           int `yaml:"max_title_runes"`

	// Script names the Unicode script a title must contain, e.g. "Hangul",
	// "Han" or "Latin". Empty means Hangul, "any" disables the check.
	Script string `yaml:"script"`
}

const DefaultTitleScript = "Hangul"

// TitleScript resolves Script to a range table. A nil table means any script.
func (s ScanSettings) TitleScript() (*unicode.RangeTable, error) {
	name := strings.TrimSpace(s.Script)
	switch {
	case name == "":
		name = DefaultTitleScript
	case strings.EqualFold(name, "any"):
		return nil, nil
	}

	table, ok := unicode.Scripts[name]
	if !ok {
		return nil, fmt.Errorf("unknown title script %q", s.Script)
	}
	return table, nil
}

// AnyEventCode in event_codes marks every non-empty vendor category as special.
const AnyEventCode = "*"

// WeekdaySet returns the configured weekday filter, or nil when all days are
// polled.
func (c *Config) WeekdaySet() (map[time.Weekday]bool, error) {
	if len(c.Settings.Weekdays) == 0 {
		return nil, nil
	}

	set := make(map[time.Weekday]bool, len(c.Settings.Weekdays))
	for _, name := range c.Settings.Weekdays {
		wd, ok := weekdayNames[strings.ToLower(strings.TrimSpace(name))]
		if !ok {
			return nil, fmt.Errorf("unknown weekday %q", name)
		}
		set[wd] = true
	}
	return set, nil
}

// BoundVenues returns the configured venues stamped with vendor and brand.
func (c *Config) BoundVenues() []Venue {
	venues := make([]Venue, 0, len(c.Venues))
	for _, v := range c.Venues {
		venues = append(venues, c.Bind(v))
	}
	return venues
}

func (c *Config) Bind(v Venue) Venue {
	v.Vendor = c.Vendor
	v.Brand = c.Brand
	return v
}

var weekdayNames = map[string]time.Weekday{
	"sun": time.Sunday, "sunday": time.Sunday, "일": time.Sunday,
	"mon": time.Monday, "monday": time.Monday, "월": time.Monday,
	"tue": time.Tuesday, "tuesday": time.Tuesday, "화": time.Tuesday,
	"wed": time.Wednesday, "wednesday": time.Wednesday, "수": time.Wednesday,
	"thu": time.Thursday, "thursday": time.Thursday, "목": time.Thursday,
	"fri": time.Friday, "friday": time.Friday, "금": time.Friday,
	"sat": time.Saturday, "saturday": time.Saturday, "토": time.Saturday,
}

// KoreanWeekday returns the one-rune label vendors print on date tabs.
func KoreanWeekday(wd time.Weekday) string {
	return [...]string{"일", "월", "화", "수", "목", "금", "토"}[wd]
}
