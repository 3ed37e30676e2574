// Package feed fetches configured RSS/Atom feeds and normalizes their
// entries into domain items.
package feed

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/mmcdole/gofeed"

	"github.com/alekseyt9/newswatch/internal/domain"
	"github.com/alekseyt9/newswatch/internal/ports"
)

const userAgent = "newswatch/1.0 (+https://github.com/alekseyt9/newswatch)"

// Feed names one syndicated source.
type Feed struct {
	Name string
	URL  string
}

// Source implements ports.ItemSource over a fixed feed list. A failing
// feed contributes zero items and never aborts the others.
type Source struct {
	feeds      []Feed
	loc        *time.Location
	perFeedCap int
	client     *http.Client
	logger     *slog.Logger
}

var _ ports.ItemSource = (*Source)(nil)

// NewSource wires the feed list; perFeedCap <= 0 disables the cap.
func NewSource(feeds []Feed, loc *time.Location, perFeedCap int, client *http.Client, logger *slog.Logger) *Source {
	if client == nil {
		client = &http.Client{Timeout: 20 * time.Second}
	}
	if loc == nil {
		loc = time.UTC
	}
	return &Source{
		feeds:      feeds,
		loc:        loc,
		perFeedCap: perFeedCap,
		client:     client,
		logger:     logger,
	}
}

// FetchAll pulls every configured feed sequentially and returns the
// normalized, fingerprint-tagged items in feed order.
func (s *Source) FetchAll(ctx context.Context) ([]domain.Item, error) {
	var items []domain.Item
	for _, f := range s.feeds {
		entries, err := s.fetchFeed(ctx, f)
		if err != nil {
			s.warn("feed fetch failed", "feed", f.Name, "error", err)
			continue
		}

		count := 0
		for _, raw := range entries {
			if s.perFeedCap > 0 && count >= s.perFeedCap {
				break
			}
			items = append(items, Normalize(raw, f.Name, s.loc))
			count++
		}
		s.debug("feed fetched", "feed", f.Name, "items", count)
	}

	s.debug("fetch complete", "feeds", len(s.feeds), "total_items", len(items))
	return items, nil
}

func (s *Source) fetchFeed(ctx context.Context, f Feed) ([]*gofeed.Item, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.URL, nil)
	if err != nil {
		return nil, fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %s", resp.Status)
	}

	parsed, err := gofeed.NewParser().Parse(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("parse feed: %w", err)
	}
	return parsed.Items, nil
}

func (s *Source) debug(msg string, args ...any) {
	if s.logger != nil {
		s.logger.Debug(msg, args...)
	}
}

func (s *Source) warn(msg string, args ...any) {
	if s.logger != nil {
		s.logger.Warn(msg, args...)
	}
}
