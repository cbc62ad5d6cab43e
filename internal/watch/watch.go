// Package watch runs the polling loop: fetch news from configured feeds on
// a cron schedule, match each batch against the market stores, and hand the
// rendered digest to a sink (stdout, downstream LLM, ...).
package watch

import (
	"context"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/tradescan/marketscout/internal/market"
	"github.com/tradescan/marketscout/internal/match"
)

// NewsSource produces news items from a set of feed URLs.
type NewsSource interface {
	FetchAll(ctx context.Context, urls []string) []market.NewsItem
}

// Config configures the watch loop.
type Config struct {
	FeedURLs []string
	// Schedule is a standard cron expression, e.g. "*/15 * * * *".
	Schedule string
	// MaxPromptMarkets bounds each item's digest.
	MaxPromptMarkets int
	// ScanTimeout bounds one full fetch-and-match pass.
	ScanTimeout time.Duration
}

// Watcher ties the news source and the matcher together on a schedule.
type Watcher struct {
	source  NewsSource
	matcher *match.Matcher
	cfg     Config
	emit    func(item market.NewsItem, digest string)
}

// New creates a Watcher. emit receives one digest per news item with at
// least one match; nil means log-only.
func New(source NewsSource, matcher *match.Matcher, cfg Config, emit func(market.NewsItem, string)) *Watcher {
	if cfg.ScanTimeout <= 0 {
		cfg.ScanTimeout = 5 * time.Minute
	}
	if emit == nil {
		emit = func(item market.NewsItem, digest string) {
			slog.Info("matched news item", "news_id", item.ID, "title", item.Title)
		}
	}
	return &Watcher{source: source, matcher: matcher, cfg: cfg, emit: emit}
}

// Run scans once immediately, then on the configured schedule until ctx is
// cancelled.
func (w *Watcher) Run(ctx context.Context) error {
	w.Scan(ctx)

	c := cron.New()
	_, err := c.AddFunc(w.cfg.Schedule, func() { w.Scan(ctx) })
	if err != nil {
		return err
	}
	c.Start()
	defer c.Stop()

	<-ctx.Done()
	return ctx.Err()
}

// Scan performs one fetch-and-match pass.
func (w *Watcher) Scan(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, w.cfg.ScanTimeout)
	defer cancel()

	items := w.source.FetchAll(ctx, w.cfg.FeedURLs)
	if len(items) == 0 {
		slog.Info("scan found no news items")
		return
	}
	slog.Info("scanning news batch", "items", len(items))

	results, err := w.matcher.MatchBatch(ctx, items)
	if err != nil {
		slog.Error("batch match failed", "error", err)
		return
	}

	matched := 0
	for _, item := range items {
		matches := results[item.ID]
		if len(matches) == 0 {
			continue
		}
		matched++
		w.emit(item, match.FormatPrompt(matches, w.cfg.MaxPromptMarkets))
	}
	slog.Info("scan complete", "items", len(items), "with_matches", matched)
}
