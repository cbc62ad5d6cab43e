package server

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/tradescan/marketscout/internal/store"
)

// checkTimeout bounds one full readiness pass; a hung store must not
// hang the probe.
const checkTimeout = 5 * time.Second

// Check probes one dependency the pipeline cannot serve without.
type Check struct {
	Name  string
	Probe func(ctx context.Context) error
}

// checkResult is the per-dependency readiness report.
type checkResult struct {
	Name   string `json:"name"`
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
}

// handleReady runs every registered check. Any failure makes the whole
// probe fail with 503, so orchestrators stop routing traffic here.
func (s *Server) handleReady(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), checkTimeout)
	defer cancel()

	ready := true
	results := make([]checkResult, 0, len(s.checks))
	for _, chk := range s.checks {
		r := checkResult{Name: chk.Name, Status: "ok"}
		if err := chk.Probe(ctx); err != nil {
			r.Status = "failed"
			r.Error = err.Error()
			ready = false
		}
		results = append(results, r)
	}

	status := http.StatusOK
	if !ready {
		status = http.StatusServiceUnavailable
	}
	c.JSON(status, gin.H{"ready": ready, "checks": results})
}

// StoreChecks builds readiness probes over the pipeline's stores, using
// their cheapest round trip as the connectivity signal.
func StoreChecks(markets store.MarketStore, contracts store.ContractStore) []Check {
	return []Check{
		{
			Name: "markets",
			Probe: func(ctx context.Context) error {
				_, err := markets.CountEmbedded(ctx)
				return err
			},
		},
		{
			Name: "contracts",
			Probe: func(ctx context.Context) error {
				_, _, err := contracts.Counts(ctx)
				return err
			},
		},
	}
}
