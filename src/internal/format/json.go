// FILE: adminfeed/src/internal/format/json.go
package format

import (
	"encoding/json"
	"fmt"
	"time"

	"adminfeed/src/internal/config"
	"adminfeed/src/internal/core"

	"github.com/lixenwraith/log"
)

// JSONFormatter produces one JSON object per entry (NDJSON)
type JSONFormatter struct {
	logger *log.Logger
}

// NewJSONFormatter creates a JSON formatter
func NewJSONFormatter(logger *log.Logger) *JSONFormatter {
	return &JSONFormatter{logger: logger}
}

// Format marshals the entry; metadata keys never override the canonical fields
func (f *JSONFormatter) Format(entry core.Entry) ([]byte, error) {
	output := make(map[string]any, len(entry.Metadata)+5)
	for k, v := range entry.Metadata {
		output[k] = v
	}

	if entry.ID != "" {
		output["id"] = entry.ID
	}
	if !entry.Timestamp.IsZero() {
		output["timestamp"] = entry.Timestamp.UTC().Format(time.RFC3339Nano)
	}
	if entry.Category != "" {
		output["category"] = entry.Category
	}
	if entry.Origin != "" {
		output["origin"] = entry.Origin
	}
	output["message"] = entry.Message

	result, err := json.Marshal(output)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal JSON: %w", err)
	}
	return append(result, '\n'), nil
}

// Name returns the formatter's type name
func (f *JSONFormatter) Name() string {
	return config.OutputFormatJSON
}
