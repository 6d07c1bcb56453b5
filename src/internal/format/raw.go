// FILE: adminfeed/src/internal/format/raw.go
package format

import (
	"adminfeed/src/internal/config"
	"adminfeed/src/internal/core"
)

// RawFormatter outputs the message as-is with a newline
type RawFormatter struct{}

// NewRawFormatter creates a raw formatter
func NewRawFormatter() *RawFormatter {
	return &RawFormatter{}
}

// Format returns the message with a newline appended
func (f *RawFormatter) Format(entry core.Entry) ([]byte, error) {
	return append([]byte(entry.Message), '\n'), nil
}

// Name returns the formatter name
func (f *RawFormatter) Name() string {
	return config.OutputFormatRaw
}
