// FILE: adminfeed/src/internal/filter/filter.go
package filter

import (
	"fmt"
	"regexp"
	"strings"
	"sync/atomic"

	"adminfeed/src/internal/config"
	"adminfeed/src/internal/core"
)

// Filter is one compiled include/exclude rule over an entry field. It is immutable after creation.
type Filter struct {
	include  bool
	matchAll bool
	field    string
	patterns []*regexp.Regexp

	// Statistics
	totalMatched atomic.Uint64
	totalDropped atomic.Uint64
}

// NewFilter compiles a pattern filter; type defaults to include, logic to or, field to all
func NewFilter(cfg config.FilterConfig) (*Filter, error) {
	f := &Filter{
		include:  cfg.Type != config.FilterTypeExclude,
		matchAll: cfg.Logic == config.FilterLogicAnd,
		field:    cfg.Field,
		patterns: make([]*regexp.Regexp, 0, len(cfg.Patterns)),
	}
	if f.field == "" {
		f.field = config.FilterFieldAll
	}

	for i, pattern := range cfg.Patterns {
		re, err := regexp.Compile(pattern)
		if err != nil {
			return nil, fmt.Errorf("invalid regex pattern[%d] '%s': %w", i, pattern, err)
		}
		f.patterns = append(f.patterns, re)
	}
	return f, nil
}

// Apply reports whether the entry passes; a filter without patterns passes everything
func (f *Filter) Apply(e core.Entry) bool {
	if len(f.patterns) == 0 {
		return true
	}

	matched := f.match(f.text(e))
	if matched {
		f.totalMatched.Add(1)
	}
	if matched != f.include {
		f.totalDropped.Add(1)
		return false
	}
	return true
}

func (f *Filter) match(text string) bool {
	for _, re := range f.patterns {
		if re.MatchString(text) != f.matchAll {
			// First miss under and, first hit under or
			return !f.matchAll
		}
	}
	return f.matchAll
}

// text selects the part of the entry the patterns run against
func (f *Filter) text(e core.Entry) string {
	switch f.field {
	case config.FilterFieldMessage:
		return e.Message
	case config.FilterFieldCategory:
		return e.Category
	case config.FilterFieldOrigin:
		return e.Origin
	case config.FilterFieldID:
		return e.ID
	}

	parts := make([]string, 0, 3)
	for _, s := range []string{e.Origin, e.Category, e.Message} {
		if s != "" {
			parts = append(parts, s)
		}
	}
	return strings.Join(parts, " ")
}

// String describes the rule, e.g. "exclude message~(healthcheck|heartbeat)"
func (f *Filter) String() string {
	kind := config.FilterTypeInclude
	if !f.include {
		kind = config.FilterTypeExclude
	}
	sep := "|"
	if f.matchAll {
		sep = "&"
	}
	srcs := make([]string, len(f.patterns))
	for i, re := range f.patterns {
		srcs[i] = re.String()
	}
	return fmt.Sprintf("%s %s~(%s)", kind, f.field, strings.Join(srcs, sep))
}

// GetStats returns filter statistics
func (f *Filter) GetStats() map[string]any {
	return map[string]any{
		"rule":          f.String(),
		"pattern_count": len(f.patterns),
		"total_matched": f.totalMatched.Load(),
		"total_dropped": f.totalDropped.Load(),
	}
}
