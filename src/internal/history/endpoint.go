// FILE: adminfeed/src/internal/history/endpoint.go
package history

import (
	"context"
	"fmt"
	"io"

	"adminfeed/src/internal/core"

	"github.com/klauspost/compress/zstd"
	"github.com/valyala/fastjson"
)

// Export formats accepted by the backend
const (
	FormatCSV  = "csv"
	FormatJSON = "json"
)

// Compression applied by ExportTo
const (
	CompressionNone = ""
	CompressionZstd = "zstd"
)

// Row container keys, in lookup order
var pageFields = []string{"entries", "data", "logs", "items"}

// Endpoint queries and exports one feed's history
type Endpoint struct {
	client     *Client
	queryPath  string
	exportPath string
}

// Query fetches one page of entries matching q
func (e *Endpoint) Query(ctx context.Context, q core.Query) (*core.Page, error) {
	if e.queryPath == "" {
		return nil, fmt.Errorf("no query path configured")
	}
	body, err := e.client.get(ctx, e.queryPath, queryArgs(q))
	if err != nil {
		return nil, err
	}
	return e.client.parsePage(body, q)
}

// Export downloads the entries matching q in the given format
func (e *Endpoint) Export(ctx context.Context, format string, q core.Query) ([]byte, error) {
	if e.exportPath == "" {
		return nil, fmt.Errorf("no export path configured")
	}
	switch format {
	case FormatCSV, FormatJSON:
	default:
		return nil, fmt.Errorf("unsupported export format '%s' (valid: csv, json)", format)
	}

	args := queryArgs(q)
	args["format"] = format
	return e.client.get(ctx, e.exportPath, args)
}

// ExportTo streams an export into w, optionally zstd-compressed, and returns the bytes written
func (e *Endpoint) ExportTo(ctx context.Context, w io.Writer, format string, q core.Query, compression string) (int64, error) {
	switch compression {
	case CompressionNone, CompressionZstd:
	default:
		return 0, fmt.Errorf("unsupported compression '%s' (valid: zstd)", compression)
	}

	data, err := e.Export(ctx, format, q)
	if err != nil {
		return 0, err
	}

	if compression == CompressionNone {
		n, err := w.Write(data)
		return int64(n), err
	}

	cw := &countingWriter{w: w}
	enc, err := zstd.NewWriter(cw)
	if err != nil {
		return 0, fmt.Errorf("failed to create zstd encoder: %w", err)
	}
	if _, err := enc.Write(data); err != nil {
		enc.Close()
		return cw.n, fmt.Errorf("compress export: %w", err)
	}
	if err := enc.Close(); err != nil {
		return cw.n, fmt.Errorf("compress export: %w", err)
	}
	return cw.n, nil
}

type countingWriter struct {
	w io.Writer
	n int64
}

func (c *countingWriter) Write(p []byte) (int, error) {
	n, err := c.w.Write(p)
	c.n += int64(n)
	return n, err
}

// parsePage accepts a bare array of rows or an object wrapping one.
// Rows that fail to decode are skipped.
func (c *Client) parsePage(body []byte, q core.Query) (*core.Page, error) {
	p := c.parsers.Get()
	defer c.parsers.Put(p)

	v, err := p.ParseBytes(body)
	if err != nil {
		return nil, fmt.Errorf("invalid page JSON: %w", err)
	}

	var rows []*fastjson.Value
	page := &core.Page{Total: -1}
	hasMore := -1

	switch v.Type() {
	case fastjson.TypeArray:
		rows, _ = v.Array()
	case fastjson.TypeObject:
		for _, k := range pageFields {
			if r := v.Get(k); r != nil && r.Type() == fastjson.TypeArray {
				rows, _ = r.Array()
				break
			}
		}
		if t := v.Get("total"); t != nil && t.Type() == fastjson.TypeNumber {
			page.Total = t.GetInt()
		}
		for _, k := range []string{"hasMore", "has_more"} {
			if h := v.Get(k); h != nil {
				switch h.Type() {
				case fastjson.TypeTrue:
					hasMore = 1
				case fastjson.TypeFalse:
					hasMore = 0
				}
				break
			}
		}
	default:
		return nil, fmt.Errorf("page must be a JSON array or object")
	}

	page.Entries = make([]core.Entry, 0, len(rows))
	for i, row := range rows {
		entry, err := core.ParseEntry(row)
		if err != nil {
			c.skippedRows.Add(1)
			c.logger.Debug("msg", "Skipping undecodable row",
				"component", "history",
				"row", i,
				"error", err)
			continue
		}
		page.Entries = append(page.Entries, entry)
	}

	if page.Total < 0 {
		page.Total = q.Offset + len(rows)
	}
	switch hasMore {
	case 1:
		page.HasMore = true
	case 0:
		page.HasMore = false
	default:
		page.HasMore = q.Offset+len(rows) < page.Total
	}

	return page, nil
}
