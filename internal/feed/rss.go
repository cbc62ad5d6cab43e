// Package feed adapts RSS/Atom sources into NewsItems for the matching
// pipeline. It is pure fetch-and-rename glue; the pipeline never depends on
// any one source's shape.
package feed

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/mmcdole/gofeed"

	"github.com/tradescan/marketscout/internal/market"
)

// Fetcher pulls news items from RSS/Atom feeds.
type Fetcher struct {
	parser *gofeed.Parser
}

// NewFetcher creates an RSS fetcher.
func NewFetcher() *Fetcher {
	return &Fetcher{parser: gofeed.NewParser()}
}

// Fetch downloads and parses one feed, newest items first as published.
func (f *Fetcher) Fetch(ctx context.Context, url string) ([]market.NewsItem, error) {
	parsed, err := f.parser.ParseURLWithContext(url, ctx)
	if err != nil {
		return nil, fmt.Errorf("fetching feed %s: %w", url, err)
	}
	return itemsFromFeed(parsed), nil
}

// FetchAll pulls every feed, skipping sources that fail.
func (f *Fetcher) FetchAll(ctx context.Context, urls []string) []market.NewsItem {
	var items []market.NewsItem
	for _, url := range urls {
		fetched, err := f.Fetch(ctx, url)
		if err != nil {
			slog.Warn("feed fetch failed, skipping source", "url", url, "error", err)
			continue
		}
		items = append(items, fetched...)
	}
	return items
}

func itemsFromFeed(parsed *gofeed.Feed) []market.NewsItem {
	source := parsed.Title
	items := make([]market.NewsItem, 0, len(parsed.Items))
	for _, it := range parsed.Items {
		if it == nil || it.Title == "" {
			continue
		}

		published := time.Now()
		if it.PublishedParsed != nil {
			published = *it.PublishedParsed
		}

		body := it.Content
		if body == "" {
			body = it.Description
		}

		items = append(items, market.NewsItem{
			ID:          newsID(it),
			Source:      source,
			Title:       it.Title,
			Body:        body,
			PublishedAt: published,
			Tags:        it.Categories,
		})
	}
	return items
}

// newsID derives a stable id so the same entry seen twice keeps one identity.
func newsID(it *gofeed.Item) string {
	seed := it.GUID
	if seed == "" {
		seed = it.Link
	}
	if seed == "" {
		seed = it.Title
	}
	return uuid.NewSHA1(uuid.NameSpaceURL, []byte(seed)).String()
}
