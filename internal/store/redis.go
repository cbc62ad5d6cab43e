package store

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/redis/go-redis/v9"

	"github.com/tradescan/marketscout/internal/market"
)

const (
	contractsKeyPrefix = "contracts:"
	// The counts hash lives outside the contracts: keyspace so no market
	// id can collide with it.
	contractCountsKey = "stats:contract_counts"
)

func contractsKey(marketID string) string {
	return contractsKeyPrefix + marketID
}

// RedisConfig configures the redis-backed contract store.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// RedisContractStore keeps each market's active contracts as a JSON blob
// under contracts:<market_id>, with per-market counts in one hash for cheap
// aggregate stats.
type RedisContractStore struct {
	client *redis.Client
}

// NewRedis creates a contract store and verifies connectivity.
func NewRedis(ctx context.Context, cfg RedisConfig) (*RedisContractStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis connect: %w", err)
	}
	return &RedisContractStore{client: client}, nil
}

func (s *RedisContractStore) PutContracts(ctx context.Context, marketID string, contracts []market.Contract) error {
	data, err := json.Marshal(contracts)
	if err != nil {
		return fmt.Errorf("encoding contracts: %w", err)
	}

	_, err = s.client.Pipelined(ctx, func(p redis.Pipeliner) error {
		p.Set(ctx, contractsKey(marketID), data, 0)
		p.HSet(ctx, contractCountsKey, marketID, len(contracts))
		return nil
	})
	return err
}

// ContractsFor fetches the contracts for all given markets in one pipelined
// round trip. Markets with no stored contracts are absent from the result.
func (s *RedisContractStore) ContractsFor(ctx context.Context, marketIDs []string) (map[string][]market.Contract, error) {
	out := make(map[string][]market.Contract, len(marketIDs))
	if len(marketIDs) == 0 {
		return out, nil
	}

	cmds := make([]*redis.StringCmd, len(marketIDs))
	_, err := s.client.Pipelined(ctx, func(p redis.Pipeliner) error {
		for i, id := range marketIDs {
			cmds[i] = p.Get(ctx, contractsKey(id))
		}
		return nil
	})
	if err != nil && err != redis.Nil {
		return nil, fmt.Errorf("redis contracts lookup: %w", err)
	}

	for i, cmd := range cmds {
		data, err := cmd.Bytes()
		if err == redis.Nil {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("redis contracts lookup: %w", err)
		}
		var contracts []market.Contract
		if err := json.Unmarshal(data, &contracts); err != nil {
			return nil, fmt.Errorf("decoding contracts for %s: %w", marketIDs[i], err)
		}
		out[marketIDs[i]] = contracts
	}
	return out, nil
}

func (s *RedisContractStore) Counts(ctx context.Context) (markets, contracts int, err error) {
	counts, err := s.client.HGetAll(ctx, contractCountsKey).Result()
	if err != nil {
		return 0, 0, fmt.Errorf("redis counts: %w", err)
	}
	for _, v := range counts {
		n, convErr := strconv.Atoi(v)
		if convErr != nil {
			continue
		}
		contracts += n
	}
	return len(counts), contracts, nil
}

func (s *RedisContractStore) Close() error {
	return s.client.Close()
}

var _ ContractStore = (*RedisContractStore)(nil)
