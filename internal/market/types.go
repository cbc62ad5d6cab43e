// Package market defines the domain types shared across the matching pipeline.
package market

import "time"

// NewsItem is a single piece of news produced by a source adapter.
// It is immutable once fetched.
type NewsItem struct {
	ID          string
	Source      string
	Title       string
	Body        string
	PublishedAt time.Time
	Tags        []string
}

// Text returns the combined title and body used for embedding.
func (n NewsItem) Text() string {
	if n.Body == "" {
		return n.Title
	}
	return n.Title + "\n\n" + n.Body
}

// Contract is a single tradable outcome belonging to a market.
// Prices are probabilities in [0, 1].
type Contract struct {
	ID        string  `json:"id"`
	MarketID  string  `json:"market_id"`
	Title     string  `json:"title"`
	YesPrice  float64 `json:"yes_price"`
	NoPrice   float64 `json:"no_price"`
	Volume    float64 `json:"volume"`
	Liquidity float64 `json:"liquidity"`
}

// Market is a prediction market offered by some platform.
type Market struct {
	ID       string    `json:"id"`
	Platform string    `json:"platform"`
	Title    string    `json:"title"`
	EndDate  time.Time `json:"end_date,omitzero"`
}

// Match pairs a market with its cosine similarity to a news item,
// plus the market's active contracts.
type Match struct {
	Market     Market     `json:"market"`
	Similarity float64    `json:"similarity"`
	Contracts  []Contract `json:"contracts"`
}

// Stats holds aggregate counts reported by the stores. The three counts
// are independent; no cross-validation is performed between them.
type Stats struct {
	ActiveMarkets         int `json:"active_markets"`
	ActiveContracts       int `json:"active_contracts"`
	MarketsWithEmbeddings int `json:"markets_with_embeddings"`
}
