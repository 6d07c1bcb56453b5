// FILE: adminfeed/src/internal/format/format.go
package format

import (
	"fmt"

	"adminfeed/src/internal/config"
	"adminfeed/src/internal/core"

	"github.com/lixenwraith/log"
)

// Formatter renders an entry for non-interactive output
type Formatter interface {
	// Format returns the entry as one newline-terminated record
	Format(entry core.Entry) ([]byte, error)

	// Name returns the formatter type name
	Name() string
}

// New creates a Formatter from the output section; nil selects the default text formatter
func New(cfg *config.OutputConfig, logger *log.Logger) (Formatter, error) {
	if cfg == nil {
		cfg = &config.OutputConfig{}
	}

	switch cfg.Format {
	case config.OutputFormatText, "":
		return NewTextFormatter(cfg, logger)
	case config.OutputFormatJSON:
		return NewJSONFormatter(logger), nil
	case config.OutputFormatRaw:
		return NewRawFormatter(), nil
	default:
		return nil, fmt.Errorf("unknown output format: %s", cfg.Format)
	}
}
