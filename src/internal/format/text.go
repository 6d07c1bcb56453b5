// FILE: adminfeed/src/internal/format/text.go
package format

import (
	"bytes"
	"fmt"
	"strings"
	"text/template"
	"time"

	"adminfeed/src/internal/config"
	"adminfeed/src/internal/core"

	"github.com/lixenwraith/log"
)

// DefaultTemplate renders "2024-03-01T10:30:00Z [error] storage: disk full"
const DefaultTemplate = `{{if .Timestamp.IsZero}}-{{else}}{{FmtTime .Timestamp}}{{end}}` +
	`{{with .Category}} [{{.}}]{{end}}{{with .Origin}} {{.}}:{{end}} {{.Message}}`

// TextFormatter produces human-readable lines using a template
type TextFormatter struct {
	timestampFormat string
	template        *template.Template
	logger          *log.Logger
}

// NewTextFormatter parses the configured template, falling back to DefaultTemplate
func NewTextFormatter(cfg *config.OutputConfig, logger *log.Logger) (*TextFormatter, error) {
	f := &TextFormatter{
		timestampFormat: time.RFC3339,
		logger:          logger,
	}
	text := DefaultTemplate
	if cfg != nil {
		if cfg.TimestampFormat != "" {
			f.timestampFormat = cfg.TimestampFormat
		}
		if cfg.Template != "" {
			text = cfg.Template
		}
	}

	funcMap := template.FuncMap{
		"FmtTime": func(t time.Time) string {
			return t.UTC().Format(f.timestampFormat)
		},
		"ToUpper":   strings.ToUpper,
		"ToLower":   strings.ToLower,
		"TrimSpace": strings.TrimSpace,
	}

	tmpl, err := template.New("entry").Funcs(funcMap).Parse(text)
	if err != nil {
		return nil, fmt.Errorf("invalid template: %w", err)
	}
	f.template = tmpl
	return f, nil
}

// Format renders the entry; the message is folded onto one line
func (f *TextFormatter) Format(entry core.Entry) ([]byte, error) {
	data := map[string]any{
		"ID":        entry.ID,
		"Timestamp": entry.Timestamp,
		"Category":  entry.Category,
		"Origin":    entry.Origin,
		"Message":   OneLine(entry.Message),
		"Metadata":  entry.Metadata,
	}

	var buf bytes.Buffer
	if err := f.template.Execute(&buf, data); err != nil {
		if f.logger != nil {
			f.logger.Debug("msg", "Template execution failed, using fallback",
				"component", "text_formatter",
				"error", err)
		}
		fallback := fmt.Sprintf("%s [%s] %s: %s\n",
			entry.Timestamp.UTC().Format(f.timestampFormat),
			entry.Category,
			entry.Origin,
			OneLine(entry.Message))
		return []byte(fallback), nil
	}

	result := buf.Bytes()
	if len(result) == 0 || result[len(result)-1] != '\n' {
		result = append(result, '\n')
	}
	return result, nil
}

// Name returns the formatter name
func (f *TextFormatter) Name() string {
	return config.OutputFormatText
}

// OneLine collapses line breaks and tabs into single spaces
func OneLine(s string) string {
	if !strings.ContainsAny(s, "\r\n\t") {
		return s
	}
	return strings.Join(strings.Fields(s), " ")
}
