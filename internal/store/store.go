// Package store provides the market and contract stores consumed by the
// matching pipeline: a vector-capable market store (qdrant) and a contract
// store (redis), plus in-memory implementations for tests and local runs.
package store

import (
	"context"

	"github.com/tradescan/marketscout/internal/market"
)

// MarketHit is a single market returned by a similarity search.
type MarketHit struct {
	Market market.Market
	Score  float64
}

// MarketStore is a vector-capable store of market embeddings. SearchSimilar
// returns up to limit markets ordered by descending similarity; the indexing
// strategy is the store's concern.
type MarketStore interface {
	SearchSimilar(ctx context.Context, vector []float32, limit int) ([]MarketHit, error)
	UpsertMarkets(ctx context.Context, markets []market.Market, vectors [][]float32) error
	CountEmbedded(ctx context.Context) (int, error)
	Close() error
}

// ContractStore holds the tradable contracts per market. ContractsFor
// resolves a set of market ids in one batched lookup.
type ContractStore interface {
	ContractsFor(ctx context.Context, marketIDs []string) (map[string][]market.Contract, error)
	PutContracts(ctx context.Context, marketID string, contracts []market.Contract) error
	Counts(ctx context.Context) (markets, contracts int, err error)
	Close() error
}
