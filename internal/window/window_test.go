package window

import (
	"testing"
	"time"

	"github.com/alekseyt9/newswatch/internal/domain"
)

func mustZone(t *testing.T) *time.Location {
	t.Helper()
	loc, err := time.LoadLocation("Asia/Seoul")
	if err != nil {
		t.Fatalf("load zone: %v", err)
	}
	return loc
}

func ptr(t time.Time) *time.Time { return &t }

func TestFullWindowInterval(t *testing.T) {
	t.Parallel()

	loc := mustZone(t)
	now := time.Date(2026, time.March, 10, 6, 30, 0, 0, loc)

	start, end := FullWindow.Interval(now)
	if !start.Equal(time.Date(2026, time.March, 9, 0, 0, 0, 0, loc)) {
		t.Fatalf("unexpected start: %v", start)
	}
	if !end.Equal(time.Date(2026, time.March, 10, 0, 0, 0, 0, loc)) {
		t.Fatalf("unexpected end: %v", end)
	}
}

func TestSelectAsymmetry(t *testing.T) {
	t.Parallel()

	loc := mustZone(t)
	now := time.Date(2026, time.March, 10, 6, 0, 0, 0, loc)

	yesterdayNoon := ptr(time.Date(2026, time.March, 9, 12, 0, 0, 0, loc))
	todayEarly := ptr(time.Date(2026, time.March, 10, 0, 30, 0, 0, loc))

	items := []domain.Item{
		{Title: "yesterday", PublishedAt: yesterdayNoon},
		{Title: "today", PublishedAt: todayEarly},
		{Title: "undated"},
	}

	full := Select(FullWindow, now, items)
	if len(full) != 1 || full[0].Title != "yesterday" {
		t.Fatalf("full-window: expected only the yesterday item, got %+v", full)
	}

	inc := Select(Incremental, now, items)
	if len(inc) != 2 {
		t.Fatalf("incremental: expected 2 items, got %d", len(inc))
	}
	if inc[0].Title != "today" || inc[1].Title != "undated" {
		t.Fatalf("incremental: unexpected selection %+v", inc)
	}
}

func TestSelectBoundariesHalfOpen(t *testing.T) {
	t.Parallel()

	loc := mustZone(t)
	now := time.Date(2026, time.March, 10, 6, 0, 0, 0, loc)

	startOfYesterday := ptr(time.Date(2026, time.March, 9, 0, 0, 0, 0, loc))
	startOfToday := ptr(time.Date(2026, time.March, 10, 0, 0, 0, 0, loc))

	items := []domain.Item{
		{Title: "at-start", PublishedAt: startOfYesterday},
		{Title: "at-end", PublishedAt: startOfToday},
	}

	got := Select(FullWindow, now, items)
	if len(got) != 1 || got[0].Title != "at-start" {
		t.Fatalf("interval must include start and exclude end, got %+v", got)
	}
}

func TestRecentDays(t *testing.T) {
	t.Parallel()

	loc := mustZone(t)
	now := time.Date(2026, time.March, 10, 6, 0, 0, 0, loc)

	old := ptr(now.AddDate(0, 0, -8))
	recent := ptr(now.AddDate(0, 0, -3))

	got := Select(RecentDays(7), now, []domain.Item{
		{Title: "old", PublishedAt: old},
		{Title: "recent", PublishedAt: recent},
		{Title: "undated"},
	})
	if len(got) != 2 || got[0].Title != "recent" || got[1].Title != "undated" {
		t.Fatalf("unexpected selection: %+v", got)
	}
}
