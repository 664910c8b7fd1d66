package feed

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"html"
	"strings"
	"time"

	"github.com/lysyi3m/screening-comb/app/notify"
)

const FeedPath = "/feeds/new"

type Generator struct {
	baseURL string
	version string
}

// NewGenerator creates a generator whose self links point at baseURL, for
// example "https://monitor.example.com".
func NewGenerator(baseURL, version string) *Generator {
	return &Generator{
		baseURL: strings.TrimRight(baseURL, "/"),
		version: version,
	}
}

// Run renders entries, newest first, as an RSS 2.0 document.
func (g *Generator) Run(entries []notify.Entry) (string, error) {
	var buf bytes.Buffer

	buf.WriteString(`<?xml version="1.0" encoding="UTF-8"?>`)
	buf.WriteString("\n")
	buf.WriteString(`<rss version="2.0" xmlns:atom="http://www.w3.org/2005/Atom">`)
	buf.WriteString("\n  <channel>\n")

	g.writeElement(&buf, "title", "Special screenings", 4)
	g.writeElement(&buf, "link", g.baseURL+"/", 4)
	g.writeElement(&buf, "description", "Newly announced stage greetings, GV and other special screenings", 4)
	buf.WriteString(fmt.Sprintf("    <atom:link href=\"%s\" rel=\"self\" type=\"application/rss+xml\" />\n",
		html.EscapeString(g.baseURL+FeedPath)))

	lastBuildDate := time.Now()
	if len(entries) > 0 {
		lastBuildDate = entries[0].NotifiedAt
	}

	g.writeElement(&buf, "lastBuildDate", lastBuildDate.Format(time.RFC1123Z), 4)
	g.writeElement(&buf, "generator", fmt.Sprintf("Screening-Comb/%s", g.version), 4)
	g.writeElement(&buf, "language", "ko", 4)

	for _, entry := range entries {
		g.writeItem(&buf, entry)
	}

	buf.WriteString("  </channel>\n</rss>")

	return buf.String(), nil
}

func (g *Generator) writeItem(buf *bytes.Buffer, entry notify.Entry) {
	e := entry.Event

	buf.WriteString("    <item>\n")

	buf.WriteString("      <guid isPermaLink=\"false\">")
	xml.EscapeText(buf, []byte(e.ID()))
	buf.WriteString("</guid>\n")

	g.writeElement(buf, "title", fmt.Sprintf("[%s] %s", e.Type, e.MovieTitle), 6)

	description := fmt.Sprintf("%s, %s %s", e.VenueName, e.PlayDate, e.StartTime)
	if e.Hall != "" {
		description += ", " + e.Hall
	}
	g.writeElement(buf, "description", description, 6)
	g.writeElement(buf, "pubDate", entry.NotifiedAt.Format(time.RFC1123Z), 6)

	for _, category := range []string{string(e.Type), e.Vendor} {
		g.writeElement(buf, "category", category, 6)
	}

	buf.WriteString("    </item>\n")
}

func (g *Generator) writeElement(buf *bytes.Buffer, tag, content string, indent int) {
	if content == "" {
		return
	}

	for i := 0; i < indent; i++ {
		buf.WriteByte(' ')
	}

	buf.WriteString("<")
	buf.WriteString(tag)
	buf.WriteString(">")
	xml.EscapeText(buf, []byte(content))
	buf.WriteString("</")
	buf.WriteString(tag)
	buf.WriteString(">\n")
}
