package feed

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/mmcdole/gofeed"
)

const sampleRSS = `<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0">
  <channel>
    <title>Example Feed</title>
    <item>
      <title>  First article  </title>
      <link>https://example.org/a?utm_source=rss</link>
      <pubDate>Mon, 09 Mar 2026 12:00:00 GMT</pubDate>
      <description>&lt;p&gt;Some &amp;amp; more &lt;b&gt;text&lt;/b&gt;&lt;/p&gt;</description>
    </item>
    <item>
      <title>Second article</title>
      <link>https://example.org/b</link>
    </item>
  </channel>
</rss>`

func seoul(t *testing.T) *time.Location {
	t.Helper()
	loc, err := time.LoadLocation("Asia/Seoul")
	if err != nil {
		t.Fatalf("load zone: %v", err)
	}
	return loc
}

func TestFetchAllNormalizes(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(sampleRSS))
	}))
	defer server.Close()

	src := NewSource([]Feed{{Name: "example", URL: server.URL}}, seoul(t), 0, server.Client(), nil)
	items, err := src.FetchAll(context.Background())
	if err != nil {
		t.Fatalf("FetchAll: %v", err)
	}
	if len(items) != 2 {
		t.Fatalf("expected 2 items, got %d", len(items))
	}

	first := items[0]
	if first.Title != "First article" {
		t.Fatalf("title not trimmed: %q", first.Title)
	}
	if first.Link != "https://example.org/a" {
		t.Fatalf("tracking params not stripped: %q", first.Link)
	}
	if first.Source != "example" {
		t.Fatalf("unexpected source: %q", first.Source)
	}
	if first.Fingerprint == "" {
		t.Fatalf("item must carry a fingerprint")
	}
	if first.Abstract != "Some & more text" {
		t.Fatalf("abstract not sanitized: %q", first.Abstract)
	}

	if first.PublishedAt == nil {
		t.Fatalf("published time missing")
	}
	// Mon, 09 Mar 2026 12:00 GMT is 21:00 in Seoul.
	if first.PublishedAt.Hour() != 21 {
		t.Fatalf("expected 21:00 KST, got %v", first.PublishedAt)
	}

	if items[1].PublishedAt != nil {
		t.Fatalf("item without pubDate must have nil PublishedAt")
	}
}

func TestFetchAllIsolatesFailingFeed(t *testing.T) {
	t.Parallel()

	good := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(sampleRSS))
	}))
	defer good.Close()

	bad := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer bad.Close()

	src := NewSource([]Feed{
		{Name: "broken", URL: bad.URL},
		{Name: "healthy", URL: good.URL},
	}, time.UTC, 0, nil, nil)

	items, err := src.FetchAll(context.Background())
	if err != nil {
		t.Fatalf("FetchAll must not fail when one feed breaks: %v", err)
	}
	if len(items) != 2 {
		t.Fatalf("expected 2 items from the healthy feed, got %d", len(items))
	}
	for _, it := range items {
		if it.Source != "healthy" {
			t.Fatalf("unexpected source %q", it.Source)
		}
	}
}

func TestFetchAllPerFeedCap(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(sampleRSS))
	}))
	defer server.Close()

	src := NewSource([]Feed{{Name: "example", URL: server.URL}}, time.UTC, 1, server.Client(), nil)
	items, err := src.FetchAll(context.Background())
	if err != nil {
		t.Fatalf("FetchAll: %v", err)
	}
	if len(items) != 1 {
		t.Fatalf("per-feed cap not applied, got %d items", len(items))
	}
}

func TestNormalizeNaiveTimestampAssumedUTC(t *testing.T) {
	t.Parallel()

	raw := &gofeed.Item{
		Title:     "Naive time",
		Link:      "https://example.org/naive",
		Published: "2026-03-09 12:00:00",
	}

	it := Normalize(raw, "example", seoul(t))
	if it.PublishedAt == nil {
		t.Fatalf("expected parsed time")
	}
	if it.PublishedAt.Hour() != 21 {
		t.Fatalf("naive time must be read as UTC then converted, got %v", it.PublishedAt)
	}
}

func TestNormalizeCapsAbstract(t *testing.T) {
	t.Parallel()

	raw := &gofeed.Item{
		Title:       "Long",
		Link:        "https://example.org/long",
		Description: strings.Repeat("한", maxAbstractLen+100),
	}

	it := Normalize(raw, "example", time.UTC)
	got := []rune(it.Abstract)
	if len(got) != maxAbstractLen {
		t.Fatalf("expected %d chars, got %d", maxAbstractLen, len(got))
	}
	for _, r := range got {
		if r != '한' {
			t.Fatalf("multibyte char corrupted by cap")
		}
	}
}
