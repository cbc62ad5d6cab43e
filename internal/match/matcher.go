// Package match ranks prediction markets against news items by vector
// similarity and attaches their tradable contracts.
package match

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/tradescan/marketscout/internal/embed"
	"github.com/tradescan/marketscout/internal/market"
	"github.com/tradescan/marketscout/internal/observability"
	"github.com/tradescan/marketscout/internal/store"
)

// Embedder is the slice of embed.Embedder the matcher needs.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
}

// Config configures a Matcher.
type Config struct {
	// TopN is how many nearest markets to retrieve per news item.
	TopN int
	// MinSimilarity drops retrieved markets scoring below it (0 = keep all).
	MinSimilarity float64
}

// Matcher orchestrates the embedder, the vector-capable market store, and
// the contract store into ranked, contract-enriched match results.
type Matcher struct {
	embedder  Embedder
	markets   store.MarketStore
	contracts store.ContractStore
	cfg       Config
}

// New creates a Matcher. Call Init before use.
func New(embedder Embedder, markets store.MarketStore, contracts store.ContractStore, cfg Config) *Matcher {
	return &Matcher{
		embedder:  embedder,
		markets:   markets,
		contracts: contracts,
		cfg:       cfg,
	}
}

// Init validates configuration. It performs no I/O and is idempotent.
func (m *Matcher) Init() error {
	if m.embedder == nil {
		return errors.New("matcher: embedder is required")
	}
	if m.markets == nil {
		return errors.New("matcher: market store is required")
	}
	if m.contracts == nil {
		return errors.New("matcher: contract store is required")
	}
	if m.cfg.TopN <= 0 {
		return fmt.Errorf("matcher: top_n must be positive, got %d", m.cfg.TopN)
	}
	if m.cfg.MinSimilarity < -1 || m.cfg.MinSimilarity > 1 {
		return fmt.Errorf("matcher: min_similarity %v outside [-1, 1]", m.cfg.MinSimilarity)
	}
	return nil
}

// Match finds the markets most similar to one news item, similarity
// descending. A news item whose embedding is unavailable yields an empty
// result without touching the stores.
func (m *Matcher) Match(ctx context.Context, item market.NewsItem) ([]market.Match, error) {
	ctx, span := observability.StartMatchSpan(ctx, "one", item.ID)
	defer span.End()

	vec, err := m.embedder.Embed(ctx, item.Text())
	if err != nil {
		if errors.Is(err, embed.ErrNoEmbedding) {
			slog.Debug("no embedding for news item, skipping", "news_id", item.ID)
			return []market.Match{}, nil
		}
		observability.RecordError(span, err)
		return nil, err
	}
	if len(vec) == 0 {
		return []market.Match{}, nil
	}

	matches, err := m.matchVector(ctx, vec)
	if err != nil {
		observability.RecordError(span, err)
		return nil, err
	}
	return matches, nil
}

// MatchBatch matches many news items, amortizing rate-limit cost with one
// batch embedding call. Every input id is present in the result; items whose
// embedding failed map to an empty list.
func (m *Matcher) MatchBatch(ctx context.Context, items []market.NewsItem) (map[string][]market.Match, error) {
	ctx, span := observability.StartMatchSpan(ctx, "batch", fmt.Sprintf("%d items", len(items)))
	defer span.End()

	texts := make([]string, len(items))
	for i, item := range items {
		texts[i] = item.Text()
	}

	vectors, err := m.embedder.EmbedBatch(ctx, texts)
	if err != nil {
		observability.RecordError(span, err)
		return nil, err
	}

	results := make(map[string][]market.Match, len(items))
	for i, item := range items {
		if len(vectors[i]) == 0 {
			results[item.ID] = []market.Match{}
			continue
		}
		matches, err := m.matchVector(ctx, vectors[i])
		if err != nil {
			observability.RecordError(span, err)
			return nil, fmt.Errorf("matching %s: %w", item.ID, err)
		}
		results[item.ID] = matches
	}
	return results, nil
}

// matchVector runs the store similarity query and attaches contracts with
// one batched lookup. Result order is the store's similarity-descending order.
func (m *Matcher) matchVector(ctx context.Context, vec []float32) ([]market.Match, error) {
	hits, err := m.markets.SearchSimilar(ctx, vec, m.cfg.TopN)
	if err != nil {
		return nil, fmt.Errorf("market search: %w", err)
	}

	if m.cfg.MinSimilarity > 0 {
		kept := hits[:0]
		for _, h := range hits {
			if h.Score >= m.cfg.MinSimilarity {
				kept = append(kept, h)
			}
		}
		hits = kept
	}
	if len(hits) == 0 {
		return []market.Match{}, nil
	}

	ids := make([]string, len(hits))
	for i, h := range hits {
		ids[i] = h.Market.ID
	}
	contracts, err := m.contracts.ContractsFor(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("contract lookup: %w", err)
	}

	matches := make([]market.Match, len(hits))
	for i, h := range hits {
		matches[i] = market.Match{
			Market:     h.Market,
			Similarity: h.Score,
			Contracts:  contracts[h.Market.ID],
		}
	}
	return matches, nil
}

// Stats reports aggregate counts from the stores. The counts are
// independent; nothing is cross-validated between them.
func (m *Matcher) Stats(ctx context.Context) (market.Stats, error) {
	activeMarkets, activeContracts, err := m.contracts.Counts(ctx)
	if err != nil {
		return market.Stats{}, fmt.Errorf("contract counts: %w", err)
	}
	embedded, err := m.markets.CountEmbedded(ctx)
	if err != nil {
		return market.Stats{}, fmt.Errorf("embedded market count: %w", err)
	}
	return market.Stats{
		ActiveMarkets:         activeMarkets,
		ActiveContracts:       activeContracts,
		MarketsWithEmbeddings: embedded,
	}, nil
}
