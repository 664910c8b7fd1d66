package event

import (
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
	"golang.org/x/text/width"
)

const (
	// TitlePrefixRunes bounds how much of the normalized title takes part in
	// identity. Subtitle noise past the prefix is ignored; two films sharing a
	// ten-rune prefix at the same venue and minute collide.
	TitlePrefixRunes = 10

	emptyComponent = "_"
	idSeparator    = "|"
)

// Assign derives the identifier of an event. It is pure and total: the same
// logical screening always yields the same ID regardless of whitespace,
// full-width forms or Unicode composition in the source text.
func Assign(e Event) ID {
	parts := []string{
		component(strings.ToLower(collapseSpace(e.Vendor))),
		component(collapseSpace(norm.NFC.String(e.VenueName))),
		component(e.PlayDate.String()),
		component(clockOrRaw(e.StartTime)),
		component(TitleKey(e.MovieTitle)),
	}
	return ID(strings.Join(parts, idSeparator))
}

// TitleKey normalizes a title for identity: NFC, half-width, lower case,
// whitespace and punctuation removed, cut to TitlePrefixRunes.
func TitleKey(title string) string {
	folded := width.Fold.String(norm.NFC.String(title))

	var b strings.Builder
	n := 0
	for _, r := range folded {
		if unicode.IsSpace(r) || unicode.IsPunct(r) || unicode.IsSymbol(r) {
			continue
		}
		if n == TitlePrefixRunes {
			break
		}
		b.WriteRune(unicode.ToLower(r))
		n++
	}
	return b.String()
}

func clockOrRaw(s string) string {
	if clock, err := NormalizeClock(s); err == nil {
		return clock
	}
	return strings.TrimSpace(s)
}

func component(s string) string {
	s = strings.ReplaceAll(s, idSeparator, " ")
	if strings.TrimSpace(s) == "" {
		return emptyComponent
	}
	return s
}
