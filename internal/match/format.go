package match

import (
	"fmt"
	"strings"

	"github.com/tradescan/marketscout/internal/market"
)

// DefaultMaxPromptMarkets bounds the digest when the caller passes no limit.
const DefaultMaxPromptMarkets = 20

// FormatPrompt renders ranked matches as a bounded, LLM-readable digest:
// one line per market with ordinal, platform, title, and similarity
// percentage, followed by an Options block listing contract prices.
// Input order is preserved; only the first maxMarkets entries are emitted.
func FormatPrompt(matches []market.Match, maxMarkets int) string {
	if maxMarkets <= 0 {
		maxMarkets = DefaultMaxPromptMarkets
	}
	if len(matches) == 0 {
		return "No matching markets found.\n"
	}
	if len(matches) > maxMarkets {
		matches = matches[:maxMarkets]
	}

	var b strings.Builder
	for i, m := range matches {
		fmt.Fprintf(&b, "%d. [%s] %s (similarity: %.1f%%)\n",
			i+1, m.Market.Platform, m.Market.Title, m.Similarity*100)
		if len(m.Contracts) == 0 {
			continue
		}
		b.WriteString("   Options:\n")
		for _, c := range m.Contracts {
			fmt.Fprintf(&b, "   - %s: yes %.2f / no %.2f\n", c.Title, c.YesPrice, c.NoPrice)
		}
	}
	return b.String()
}
