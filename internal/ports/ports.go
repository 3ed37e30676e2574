package ports

import (
	"context"
	"time"

	"github.com/alekseyt9/newswatch/internal/domain"
)

// ItemSource pulls the current set of items from all configured feeds.
type ItemSource interface {
	FetchAll(ctx context.Context) ([]domain.Item, error)
}

// SeenStore persists fingerprints already reported, partitioned by
// reporting-zone calendar day. A fingerprint is written to exactly one
// day's partition; deduplication reads span two days.
type SeenStore interface {
	// Load returns today's own partition and the union of today's and
	// yesterday's partitions. Diff against the union; persist additions
	// on top of today only, so yesterday's entries are never re-written
	// into today's file.
	Load(now time.Time) (today, union map[string]struct{}, err error)
	// Save overwrites today's partition with the given set.
	Save(now time.Time, fingerprints map[string]struct{}) error
}

// Enricher rewrites item display text via an external text service.
// Enrichment never fails an item: on any service error the item falls
// back to its original title.
type Enricher interface {
	Enrich(ctx context.Context, item domain.Item) domain.Item
	EnrichMany(ctx context.Context, items []domain.Item, delay time.Duration) []domain.Item
}

// Notifier delivers a rendered digest to the configured destination.
type Notifier interface {
	Dispatch(ctx context.Context, title string, blocks []string) error
}

// Scheduler controls when runs execute.
type Scheduler interface {
	Start(ctx context.Context, job func(time.Time)) error
	Stop(ctx context.Context) error
}
