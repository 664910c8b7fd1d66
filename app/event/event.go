package event

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

var clockPattern = regexp.MustCompile(`^(\d{1,2}):?(\d{2})$`)

// New validates the recovered fields and builds an immutable Event.
// Title and hall are optional; an empty title becomes PlaceholderTitle.
func New(f Fields) (Event, error) {
	e := Event{
		MovieTitle: collapseSpace(f.MovieTitle),
		VenueName:  collapseSpace(f.VenueName),
		Type:       Type(collapseSpace(string(f.Type))),
		PlayDate:   f.PlayDate,
		Hall:       collapseSpace(f.Hall),
		Vendor:     strings.ToLower(collapseSpace(f.Vendor)),
	}

	if e.Vendor == "" {
		return Event{}, errors.New("vendor is required")
	}
	if e.VenueName == "" {
		return Event{}, errors.New("venue name is required")
	}
	if e.PlayDate.IsZero() {
		return Event{}, errors.New("play date is required")
	}
	if e.Type == "" {
		return Event{}, errors.New("event type is required")
	}

	clock, err := NormalizeClock(f.StartTime)
	if err != nil {
		return Event{}, err
	}
	e.StartTime = clock

	if e.MovieTitle == "" {
		e.MovieTitle = PlaceholderTitle
	}

	if f.TotalSeats > 0 && f.RemainingSeats >= 0 && f.RemainingSeats <= f.TotalSeats {
		e.RemainingSeats, e.TotalSeats = f.RemainingSeats, f.TotalSeats
	}

	return e, nil
}

// SeatInfo formats the seat counts as "remaining/total석".
func (e Event) SeatInfo() (string, bool) {
	if e.TotalSeats <= 0 {
		return "", false
	}
	return fmt.Sprintf("%d/%d석", e.RemainingSeats, e.TotalSeats), true
}

// ID returns the event's stable identifier.
func (e Event) ID() ID {
	return Assign(e)
}

// NormalizeClock turns "9:05", "09:05" or "0905" into "09:05". Hours up to 29
// are kept as printed since late shows are listed as 24:10, 25:30 and so on.
func NormalizeClock(s string) (string, error) {
	m := clockPattern.FindStringSubmatch(strings.TrimSpace(s))
	if m == nil {
		return "", fmt.Errorf("invalid start time %q", s)
	}

	hour, _ := strconv.Atoi(m[1])
	minute, _ := strconv.Atoi(m[2])
	if hour > 29 || minute > 59 {
		return "", fmt.Errorf("invalid start time %q", s)
	}

	return fmt.Sprintf("%02d:%02d", hour, minute), nil
}

func collapseSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
