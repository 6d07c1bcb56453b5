// FILE: adminfeed/src/internal/filter/chain.go
package filter

import (
	"fmt"
	"sync/atomic"

	"adminfeed/src/internal/config"
	"adminfeed/src/internal/core"

	"github.com/lixenwraith/log"
)

// Chain holds a feed's static pattern filters; an entry must pass every one of them
type Chain struct {
	filters []*Filter
	logger  *log.Logger

	// Statistics
	totalProcessed atomic.Uint64
	totalPassed    atomic.Uint64
}

// NewChain compiles the configured filters in order
func NewChain(configs []config.FilterConfig, logger *log.Logger) (*Chain, error) {
	c := &Chain{
		filters: make([]*Filter, 0, len(configs)),
		logger:  logger,
	}
	for i, cfg := range configs {
		f, err := NewFilter(cfg)
		if err != nil {
			return nil, fmt.Errorf("filter[%d]: %w", i, err)
		}
		c.filters = append(c.filters, f)
		logger.Debug("msg", "Pattern filter compiled",
			"component", "filter_chain",
			"index", i,
			"rule", f.String())
	}
	return c, nil
}

// Apply reports whether e passes all filters, stopping at the first rejection
func (c *Chain) Apply(e core.Entry) bool {
	c.totalProcessed.Add(1)

	for i, f := range c.filters {
		if !f.Apply(e) {
			c.logger.Debug("msg", "Entry dropped by pattern filter",
				"component", "filter_chain",
				"index", i,
				"rule", f.String())
			return false
		}
	}

	c.totalPassed.Add(1)
	return true
}

// Len returns the number of filters
func (c *Chain) Len() int {
	return len(c.filters)
}

// GetStats returns chain statistics with one entry per filter
func (c *Chain) GetStats() map[string]any {
	filters := make([]map[string]any, len(c.filters))
	for i, f := range c.filters {
		filters[i] = f.GetStats()
	}
	return map[string]any{
		"filter_count":    len(c.filters),
		"total_processed": c.totalProcessed.Load(),
		"total_passed":    c.totalPassed.Load(),
		"filters":         filters,
	}
}
