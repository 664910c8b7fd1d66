package extract

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/lysyi3m/screening-comb/app/event"
	"github.com/lysyi3m/screening-comb/app/venue"
)

// Short ASCII keywords such as "GV" need word boundaries to stay clear of
// unrelated tokens like "GVIP".
const boundaryRunes = 3

type keyword struct {
	term      string
	typ       event.Type
	boundary  bool
	maskBrand bool
}

// Matcher finds special-event keywords in a line of text.
type Matcher struct {
	keywords []keyword
	brand    string
}

func NewMatcher(keywords []venue.Keyword, brand string) *Matcher {
	m := &Matcher{brand: strings.ToLower(strings.TrimSpace(brand))}

	for _, kw := range keywords {
		term := strings.ToLower(strings.TrimSpace(kw.Term))
		if term == "" {
			continue
		}
		m.keywords = append(m.keywords, keyword{
			term:      term,
			typ:       kw.Type,
			boundary:  isASCII(term) && utf8.RuneCountInString(term) <= boundaryRunes,
			maskBrand: m.brand != "" && term != m.brand && strings.Contains(m.brand, term),
		})
	}

	return m
}

// Match returns the distinct types of every keyword found in line, in
// keyword order.
func (m *Matcher) Match(line string) []event.Type {
	lower := strings.ToLower(line)
	masked := ""

	var types []event.Type
	seen := make(map[event.Type]bool)
	for _, kw := range m.keywords {
		if seen[kw.typ] {
			continue
		}

		text := lower
		if kw.maskBrand {
			if masked == "" {
				masked = maskBrand(lower, m.brand)
			}
			text = masked
		}

		if containsTerm(text, kw.term, kw.boundary) {
			seen[kw.typ] = true
			types = append(types, kw.typ)
		}
	}
	return types
}

// Matches reports whether any keyword occurs in line.
func (m *Matcher) Matches(line string) bool {
	return len(m.Match(line)) > 0
}

// maskBrand blanks out occurrences of the brand so that keywords contained in
// it ("GV" in "CGV") do not match the brand itself.
func maskBrand(text, brand string) string {
	return strings.ReplaceAll(text, brand, strings.Repeat(" ", len(brand)))
}

func containsTerm(text, term string, boundary bool) bool {
	if !boundary {
		return strings.Contains(text, term)
	}

	offset := 0
	for {
		idx := strings.Index(text[offset:], term)
		if idx < 0 {
			return false
		}
		start := offset + idx
		end := start + len(term)

		before, _ := utf8.DecodeLastRuneInString(text[:start])
		after, _ := utf8.DecodeRuneInString(text[end:])
		if !isASCIILetter(before) && !isASCIILetter(after) {
			return true
		}
		offset = start + 1
	}
}

func isASCII(s string) bool {
	for _, r := range s {
		if r > unicode.MaxASCII {
			return false
		}
	}
	return true
}

func isASCIILetter(r rune) bool {
	return (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z')
}
