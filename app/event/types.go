package event

import "strings"

// Type classifies a special screening. The set is open: vendor category names
// such as "무대인사" are used verbatim when a vendor supplies one.
type Type string

const (
	TypeStageGreeting Type = "stage-greeting"
	TypeDirectorTalk  Type = "director-talk"
	TypePreview       Type = "preview-screening"
	TypeSpecial       Type = "special-tag"
)

// PlaceholderTitle is used when no movie title could be recovered for an event.
const PlaceholderTitle = "미정"

// ID identifies the same real-world screening across runs.
type ID string

type Event struct {
	MovieTitle string `json:"movie_title" yaml:"movie_title"`
	VenueName  string `json:"venue_name" yaml:"venue_name"` // vendor-qualified, e.g. "CGV 강남"
	Type       Type   `json:"event_type" yaml:"event_type"`
	PlayDate   Date   `json:"play_date" yaml:"play_date"`
	StartTime  string `json:"start_time" yaml:"start_time"` // HH:MM, local
	Hall       string `json:"hall,omitempty" yaml:"hall,omitempty"`
	Vendor     string `json:"source_vendor" yaml:"source_vendor"`

	// Seat counts as first seen. Zero TotalSeats means unknown.
	RemainingSeats int `json:"remaining_seats,omitempty" yaml:"remaining_seats,omitempty"`
	TotalSeats     int `json:"total_seats,omitempty" yaml:"total_seats,omitempty"`
}

// Fields carries the raw values an extractor recovered for one screening.
type Fields struct {
	MovieTitle string
	VenueName  string
	Type       Type
	PlayDate   Date
	StartTime  string
	Hall       string
	Vendor     string

	RemainingSeats int
	TotalSeats     int
}

// JoinTypes merges co-occurring types into a single slash-joined type,
// keeping first-seen order and dropping duplicates and empty values.
func JoinTypes(types ...Type) Type {
	seen := make(map[Type]bool, len(types))
	parts := make([]string, 0, len(types))
	for _, t := range types {
		for _, part := range strings.Split(string(t), "/") {
			p := Type(strings.TrimSpace(part))
			if p == "" || seen[p] {
				continue
			}
			seen[p] = true
			parts = append(parts, string(p))
		}
	}
	return Type(strings.Join(parts, "/"))
}
