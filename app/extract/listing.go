package extract

import (
	"strings"

	"github.com/lysyi3m/screening-comb/app/event"
	"github.com/lysyi3m/screening-comb/app/venue"
)

// ListingMatcher classifies structured vendor listings.
type ListingMatcher struct {
	matcher *Matcher
	codes   map[string]string
}

func NewListingMatcher(matcher *Matcher, codes map[string]string) *ListingMatcher {
	return &ListingMatcher{matcher: matcher, codes: codes}
}

// Classify reports whether a listing is a special screening and its type.
// A listing qualifies by a configured category code or by a keyword in its
// title or category name. The vendor's own category name wins as the type
// whenever the category is what qualified it.
func (lm *ListingMatcher) Classify(l venue.Listing) (event.Type, bool) {
	code := strings.TrimSpace(l.CategoryCode)
	name := strings.TrimSpace(l.CategoryName)

	label, byCode := lm.codes[code]
	if !byCode && code != "" {
		label, byCode = lm.codes[venue.AnyEventCode]
	}
	if code == "" {
		byCode = false
	}

	nameTypes := lm.matcher.Match(name)
	titleTypes := lm.matcher.Match(l.Title)

	switch {
	case byCode || len(nameTypes) > 0:
		if name != "" {
			return event.Type(name), true
		}
		if label != "" {
			return event.Type(label), true
		}
		if joined := event.JoinTypes(titleTypes...); joined != "" {
			return joined, true
		}
		return event.TypeSpecial, true
	case len(titleTypes) > 0:
		return event.JoinTypes(titleTypes...), true
	default:
		return "", false
	}
}
