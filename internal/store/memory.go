package store

import (
	"context"
	"sync"

	"github.com/tradescan/marketscout/internal/market"
	"github.com/tradescan/marketscout/internal/similarity"
)

// MemoryMarketStore is an in-process MarketStore ranking with brute-force
// cosine similarity. Used in tests and for running without a qdrant
// deployment; not meant for large collections.
type MemoryMarketStore struct {
	mu      sync.RWMutex
	markets map[string]market.Market
	vectors map[string][]float32
	order   []string // insertion order, keeps ties deterministic
}

// NewMemoryMarketStore creates an empty in-memory market store.
func NewMemoryMarketStore() *MemoryMarketStore {
	return &MemoryMarketStore{
		markets: make(map[string]market.Market),
		vectors: make(map[string][]float32),
	}
}

func (s *MemoryMarketStore) UpsertMarkets(ctx context.Context, markets []market.Market, vectors [][]float32) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, m := range markets {
		if i >= len(vectors) || len(vectors[i]) == 0 {
			continue
		}
		if _, seen := s.markets[m.ID]; !seen {
			s.order = append(s.order, m.ID)
		}
		s.markets[m.ID] = m
		s.vectors[m.ID] = vectors[i]
	}
	return nil
}

func (s *MemoryMarketStore) SearchSimilar(ctx context.Context, vector []float32, limit int) ([]MarketHit, error) {
	s.mu.RLock()
	candidates := make([]similarity.Candidate, 0, len(s.order))
	for _, id := range s.order {
		candidates = append(candidates, similarity.Candidate{ID: id, Vector: s.vectors[id]})
	}
	s.mu.RUnlock()

	ranked := similarity.TopN(vector, candidates, limit)
	hits := make([]MarketHit, len(ranked))
	s.mu.RLock()
	defer s.mu.RUnlock()
	for i, r := range ranked {
		hits[i] = MarketHit{Market: s.markets[r.ID], Score: r.Score}
	}
	return hits, nil
}

func (s *MemoryMarketStore) CountEmbedded(ctx context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.vectors), nil
}

func (s *MemoryMarketStore) Close() error { return nil }

// MemoryContractStore is an in-process ContractStore.
type MemoryContractStore struct {
	mu        sync.RWMutex
	contracts map[string][]market.Contract
}

// NewMemoryContractStore creates an empty in-memory contract store.
func NewMemoryContractStore() *MemoryContractStore {
	return &MemoryContractStore{contracts: make(map[string][]market.Contract)}
}

func (s *MemoryContractStore) PutContracts(ctx context.Context, marketID string, contracts []market.Contract) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.contracts[marketID] = contracts
	return nil
}

func (s *MemoryContractStore) ContractsFor(ctx context.Context, marketIDs []string) (map[string][]market.Contract, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string][]market.Contract, len(marketIDs))
	for _, id := range marketIDs {
		if cs, ok := s.contracts[id]; ok {
			out[id] = cs
		}
	}
	return out, nil
}

func (s *MemoryContractStore) Counts(ctx context.Context) (markets, contracts int, err error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, cs := range s.contracts {
		contracts += len(cs)
	}
	return len(s.contracts), contracts, nil
}

func (s *MemoryContractStore) Close() error { return nil }

var (
	_ MarketStore   = (*MemoryMarketStore)(nil)
	_ ContractStore = (*MemoryContractStore)(nil)
)
