package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/alekseyt9/newswatch/internal/config"
	"github.com/alekseyt9/newswatch/internal/digest"
	"github.com/alekseyt9/newswatch/internal/domain"
	"github.com/alekseyt9/newswatch/internal/ports"
	"github.com/alekseyt9/newswatch/internal/window"
)

// PipelineDeps wires all driven adapters into the run controller.
type PipelineDeps struct {
	Source   ports.ItemSource
	Store    ports.SeenStore
	Enricher ports.Enricher
	Notifier ports.Notifier
	Logger   *slog.Logger
}

// Settings bounds one run.
type Settings struct {
	Mode            string
	EnrichMaxItems  int
	EnrichCallDelay time.Duration
	DigestMaxItems  int
}

// Pipeline sequences one invocation: fetch, filter, commit-or-diff,
// enrich, dispatch, persist. Delivery is best effort; once an item clears
// the window (full-window) or is diffed as new (incremental), its
// fingerprint is tracked whether or not dispatch succeeds.
type Pipeline struct {
	source   ports.ItemSource
	store    ports.SeenStore
	enricher ports.Enricher
	notifier ports.Notifier
	logger   *slog.Logger
	settings Settings
}

// NewPipeline constructs the run controller.
func NewPipeline(deps PipelineDeps, settings Settings) *Pipeline {
	return &Pipeline{
		source:   deps.Source,
		store:    deps.Store,
		enricher: deps.Enricher,
		notifier: deps.Notifier,
		logger:   deps.Logger,
		settings: settings,
	}
}

// Run executes one invocation at the given time.
func (p *Pipeline) Run(ctx context.Context, now time.Time) error {
	p.info("run starting", "mode", p.settings.Mode, "now", now.Format("2006-01-02 15:04:05"))

	items, err := p.source.FetchAll(ctx)
	if err != nil {
		return fmt.Errorf("fetch feeds: %w", err)
	}
	if len(items) == 0 {
		p.warn("no items fetched from any feed")
		return nil
	}

	today, union, err := p.store.Load(now)
	if err != nil {
		return fmt.Errorf("load seen set: %w", err)
	}
	p.info("items fetched", "total", len(items), "previously_seen", len(union))

	switch p.settings.Mode {
	case config.ModeFullWindow:
		return p.runFullWindow(ctx, now, items, today)
	case config.ModeIncremental:
		return p.runIncremental(ctx, now, items, today, union)
	default:
		return fmt.Errorf("unknown mode %q", p.settings.Mode)
	}
}

// runFullWindow reports everything published in the prior calendar day.
// Every filtered fingerprint is committed and persisted before enrichment
// or dispatch is attempted: a delivery failure must not cause tomorrow's
// run to re-report today's selection.
func (p *Pipeline) runFullWindow(ctx context.Context, now time.Time, items []domain.Item, today map[string]struct{}) error {
	selected := window.Select(window.FullWindow, now, items)
	p.info("window applied", "policy", window.FullWindow.Name, "selected", len(selected))

	for _, it := range selected {
		today[it.Fingerprint] = struct{}{}
	}
	if err := p.store.Save(now, today); err != nil {
		return fmt.Errorf("persist seen set: %w", err)
	}

	if len(selected) == 0 {
		p.info("nothing to report for the full window")
		return nil
	}

	sortNewestFirst(selected)
	selected = p.enrich(ctx, selected)

	yesterday := now.AddDate(0, 0, -1).Format("2006-01-02")
	title := fmt.Sprintf("📌 %s AI 뉴스 요약 (%d건)", yesterday, len(selected))
	p.dispatch(ctx, title, selected)
	return nil
}

// runIncremental reports only items absent from the two-day union. With
// zero new items neither the notifier nor the store is touched. Additions
// are layered onto today's own partition, never the union, so a fingerprint
// first seen yesterday stays out of today's file and expires with its day.
func (p *Pipeline) runIncremental(ctx context.Context, now time.Time, items []domain.Item, today, union map[string]struct{}) error {
	selected := window.Select(window.Incremental, now, items)
	p.info("window applied", "policy", window.Incremental.Name, "selected", len(selected))

	var fresh []domain.Item
	for _, it := range selected {
		if _, ok := union[it.Fingerprint]; !ok {
			fresh = append(fresh, it)
		}
	}
	if len(fresh) == 0 {
		p.info("no new items")
		return nil
	}
	p.info("new items found", "count", len(fresh))

	sortNewestFirst(fresh)
	fresh = p.enrich(ctx, fresh)

	title := fmt.Sprintf("🆕 신규 감지 %s (%d건)", now.Format("15:04 MST"), len(fresh))
	p.dispatch(ctx, title, fresh)

	for _, it := range fresh {
		today[it.Fingerprint] = struct{}{}
	}
	if err := p.store.Save(now, today); err != nil {
		return fmt.Errorf("persist seen set: %w", err)
	}
	return nil
}

// enrich runs the enrichment adapter over at most EnrichMaxItems leading
// items; the remainder passes through untouched, order preserved.
func (p *Pipeline) enrich(ctx context.Context, items []domain.Item) []domain.Item {
	if p.enricher == nil {
		return items
	}

	head := items
	if p.settings.EnrichMaxItems > 0 && len(items) > p.settings.EnrichMaxItems {
		head = items[:p.settings.EnrichMaxItems]
	}
	tail := items[len(head):]

	enriched := p.enricher.EnrichMany(ctx, head, p.settings.EnrichCallDelay)
	return append(enriched, tail...)
}

// dispatch renders and delivers the digest. Transport failure is logged
// and deliberately not returned: the seen-set decision has already been
// made and a flaky webhook must not fail the run.
func (p *Pipeline) dispatch(ctx context.Context, title string, items []domain.Item) {
	blocks := digest.Format(items, digest.Options{
		PreferEnriched: p.enricher != nil,
		MaxItems:       p.settings.DigestMaxItems,
	})

	if err := p.notifier.Dispatch(ctx, title, blocks); err != nil {
		p.warn("digest delivery incomplete", "error", err)
		return
	}
	p.info("digest dispatched", "title", title, "items", len(items))
}

// sortNewestFirst orders by publication time descending; undated items
// sort last, keeping their relative order.
func sortNewestFirst(items []domain.Item) {
	sort.SliceStable(items, func(i, j int) bool {
		a, b := items[i].PublishedAt, items[j].PublishedAt
		switch {
		case a == nil:
			return false
		case b == nil:
			return true
		default:
			return a.After(*b)
		}
	})
}

func (p *Pipeline) info(msg string, args ...any) {
	if p.logger != nil {
		p.logger.Info(msg, args...)
	}
}

func (p *Pipeline) warn(msg string, args ...any) {
	if p.logger != nil {
		p.logger.Warn(msg, args...)
	}
}
