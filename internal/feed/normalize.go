package feed

import (
	"strings"
	"time"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"
	"github.com/araddon/dateparse"
	"github.com/mmcdole/gofeed"

	"github.com/alekseyt9/newswatch/internal/domain"
)

// maxAbstractLen caps the stored abstract so one verbose feed cannot
// inflate state and downstream requests.
const maxAbstractLen = 2000

// Normalize converts a raw feed record into a canonical item tagged with
// its fingerprint. Publication times are resolved in loc; timestamps
// without zone information are assumed UTC first, which is what the bulk
// of RSS feeds actually emit.
func Normalize(raw *gofeed.Item, sourceName string, loc *time.Location) domain.Item {
	it := domain.Item{
		Source:       sourceName,
		Title:        strings.TrimSpace(raw.Title),
		Link:         canonicalLink(raw.Link),
		RawPublished: strings.TrimSpace(raw.Published),
		Abstract:     extractAbstract(raw),
	}

	if raw.PublishedParsed != nil {
		ts := raw.PublishedParsed.In(loc)
		it.PublishedAt = &ts
	} else if it.RawPublished != "" {
		if parsed, err := dateparse.ParseIn(it.RawPublished, time.UTC); err == nil {
			ts := parsed.In(loc)
			it.PublishedAt = &ts
		}
	}

	it.Fingerprint = domain.Fingerprint(it)
	return it
}

// canonicalLink trims whitespace and utm tracking parameters so the same
// article shared through different campaigns keeps one identity.
func canonicalLink(link string) string {
	link = strings.TrimSpace(link)
	if idx := strings.Index(link, "?utm_"); idx > 0 {
		link = link[:idx]
	}
	return link
}

// extractAbstract prefers full content over the description, strips HTML,
// decodes entities, and caps the length.
func extractAbstract(raw *gofeed.Item) string {
	text := raw.Content
	if text == "" {
		text = raw.Description
	}
	if text == "" {
		return ""
	}

	text = stripHTML(text)
	return truncateRunes(text, maxAbstractLen)
}

// truncateRunes caps s at n characters without splitting a codepoint.
func truncateRunes(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n])
}

// stripHTML reduces markup to its visible text. goquery parses tolerant
// real-world HTML and decodes entities along the way; on a parse failure
// the raw string is returned rather than losing the abstract.
func stripHTML(raw string) string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(raw))
	if err != nil {
		return strings.TrimSpace(raw)
	}
	doc.Find("script, style").Remove()
	return collapseWhitespace(doc.Text())
}

func collapseWhitespace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
