// FILE: adminfeed/src/internal/filter/gate.go
package filter

import (
	"fmt"
	"sync/atomic"

	"adminfeed/src/internal/config"
	"adminfeed/src/internal/core"

	"github.com/lixenwraith/log"
)

// Gate is the push-acceptance gate of a feed: the configured pattern chain followed
// by the current user criteria. Update takes effect for the next Apply call.
type Gate struct {
	chain    *Chain
	criteria atomic.Pointer[Criteria]
	logger   *log.Logger

	// Statistics
	totalProcessed atomic.Uint64
	totalAccepted  atomic.Uint64
	totalRejected  atomic.Uint64
	updates        atomic.Uint64
}

// NewGate builds a gate from static pattern filters and the initial criteria
func NewGate(configs []config.FilterConfig, initial Criteria, logger *log.Logger) (*Gate, error) {
	chain, err := NewChain(configs, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create filter chain: %w", err)
	}

	g := &Gate{
		chain:  chain,
		logger: logger,
	}
	g.criteria.Store(&initial)
	return g, nil
}

// Apply reports whether e is accepted by both the pattern chain and the criteria
func (g *Gate) Apply(e core.Entry) bool {
	g.totalProcessed.Add(1)

	if !g.chain.Apply(e) || !g.criteria.Load().Accepts(e) {
		g.totalRejected.Add(1)
		return false
	}

	g.totalAccepted.Add(1)
	return true
}

// ApplyPatterns runs only the configured pattern chain, for rows the server already filtered
func (g *Gate) ApplyPatterns(e core.Entry) bool {
	return g.chain.Apply(e)
}

// Update swaps the criteria
func (g *Gate) Update(c Criteria) {
	g.criteria.Store(&c)
	g.updates.Add(1)

	g.logger.Debug("msg", "Filter criteria updated",
		"component", "filter_gate",
		"criteria", c.String())
}

// Criteria returns the current criteria
func (g *Gate) Criteria() Criteria {
	return *g.criteria.Load()
}

// GetStats returns gate statistics including the pattern chain
func (g *Gate) GetStats() map[string]any {
	return map[string]any{
		"criteria":        g.Criteria().String(),
		"total_processed": g.totalProcessed.Load(),
		"total_accepted":  g.totalAccepted.Load(),
		"total_rejected":  g.totalRejected.Load(),
		"updates":         g.updates.Load(),
		"chain":           g.chain.GetStats(),
	}
}
