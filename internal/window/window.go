// Package window computes the admissible publication interval per run mode
// and filters items against it. Policies are values so the reporting window
// can be swapped without touching the run controller.
package window

import (
	"time"

	"github.com/alekseyt9/newswatch/internal/domain"
)

// Policy resolves the half-open interval [start, end) for a run executed
// at now, and decides whether items lacking a publication time are admitted.
type Policy struct {
	// Name identifies the policy in logs and config.
	Name string
	// Interval computes [start, end) in now's location.
	Interval func(now time.Time) (start, end time.Time)
	// IncludeUndated admits items without a parsed publication time.
	//
	// FullWindow excludes them: a full-window run commits every selected
	// fingerprint irrevocably, so a false positive is permanent noise.
	// Incremental includes them: it runs often and the dedup layer bounds
	// the cost of reporting an undated item once.
	IncludeUndated bool
}

// FullWindow covers exactly the prior calendar day.
var FullWindow = Policy{
	Name: "full-window",
	Interval: func(now time.Time) (time.Time, time.Time) {
		today := startOfDay(now)
		return today.AddDate(0, 0, -1), today
	},
	IncludeUndated: false,
}

// Incremental covers the current day up to the run time.
var Incremental = Policy{
	Name: "incremental",
	Interval: func(now time.Time) (time.Time, time.Time) {
		return startOfDay(now), now
	},
	IncludeUndated: true,
}

// RecentDays covers the trailing n days up to now. Earlier revisions of the
// reporting rule used a 7-day lookback; kept as a named policy so the window
// remains a configuration decision rather than a rewrite.
func RecentDays(n int) Policy {
	return Policy{
		Name: "recent-days",
		Interval: func(now time.Time) (time.Time, time.Time) {
			return now.AddDate(0, 0, -n), now
		},
		IncludeUndated: true,
	}
}

// Select returns the items admissible under the policy for a run at now.
// Order is preserved.
func Select(p Policy, now time.Time, items []domain.Item) []domain.Item {
	start, end := p.Interval(now)
	out := make([]domain.Item, 0, len(items))
	for _, it := range items {
		if it.PublishedAt == nil {
			if p.IncludeUndated {
				out = append(out, it)
			}
			continue
		}
		ts := *it.PublishedAt
		if !ts.Before(start) && ts.Before(end) {
			out = append(out, it)
		}
	}
	return out
}

func startOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}
