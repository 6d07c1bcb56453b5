// FILE: adminfeed/src/internal/core/entry.go
package core

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/valyala/fastjson"
)

// ErrNoIdentity is returned for entries that carry neither an id nor a timestamp
var ErrNoIdentity = errors.New("entry has neither id nor timestamp")

// Entry is a single feed item, either an operational log line or an audit record
type Entry struct {
	ID        string         `json:"id,omitempty"`
	Timestamp time.Time      `json:"timestamp"`
	Category  string         `json:"category,omitempty"`
	Message   string         `json:"message"`
	Origin    string         `json:"origin,omitempty"`
	Metadata  map[string]any `json:"metadata,omitempty"`
}

// DedupKey returns the identity used to recognize the same logical event.
// The server id wins when present; otherwise the (timestamp, message) pair is used.
func (e Entry) DedupKey() (string, error) {
	if e.ID != "" {
		return "id:" + e.ID, nil
	}
	if !e.Timestamp.IsZero() {
		return "ts:" + strconv.FormatInt(e.Timestamp.UnixNano(), 10) + "|" + e.Message, nil
	}
	return "", ErrNoIdentity
}

// SameEvent reports whether other represents the same logical event as e.
// Ids decide when both entries carry one; otherwise the (timestamp, message)
// pair does, since push payloads may omit the id that a fetched row carries.
func (e Entry) SameEvent(other Entry) bool {
	if e.ID != "" && other.ID != "" {
		return e.ID == other.ID
	}
	if e.Timestamp.IsZero() || other.Timestamp.IsZero() {
		return false
	}
	return e.Timestamp.Equal(other.Timestamp) && e.Message == other.Message
}

// Field aliases accepted from push payloads and REST rows
var (
	idFields        = []string{"id", "_id"}
	timestampFields = []string{"timestamp", "time", "createdAt", "created_at"}
	categoryFields  = []string{"category", "level", "severity", "action"}
	messageFields   = []string{"message", "description", "msg"}
	originFields    = []string{"origin", "source", "service"}
	metadataFields  = []string{"metadata", "details"}
)

// DecodeEntry parses a single JSON object into an Entry
func DecodeEntry(data []byte) (Entry, error) {
	var p fastjson.Parser
	v, err := p.ParseBytes(data)
	if err != nil {
		return Entry{}, fmt.Errorf("invalid entry JSON: %w", err)
	}
	return ParseEntry(v)
}

// ParseEntry converts a parsed JSON object into an Entry.
// Missing optional fields are left empty; identity validation is deferred to DedupKey.
func ParseEntry(v *fastjson.Value) (Entry, error) {
	if v == nil || v.Type() != fastjson.TypeObject {
		return Entry{}, fmt.Errorf("entry must be a JSON object")
	}

	var e Entry
	if id := firstValue(v, idFields); id != nil {
		e.ID = scalarString(id)
	}

	if ts := firstValue(v, timestampFields); ts != nil {
		t, err := parseTimestamp(ts)
		if err != nil {
			return Entry{}, err
		}
		e.Timestamp = t
	}

	if c := firstValue(v, categoryFields); c != nil {
		e.Category = scalarString(c)
	}
	if m := firstValue(v, messageFields); m != nil {
		e.Message = scalarString(m)
	}
	if o := firstValue(v, originFields); o != nil {
		e.Origin = scalarString(o)
	}

	if md := firstValue(v, metadataFields); md != nil && md.Type() == fastjson.TypeObject {
		var meta map[string]any
		if err := json.Unmarshal(md.MarshalTo(nil), &meta); err == nil && len(meta) > 0 {
			e.Metadata = meta
		}
	}

	return e, nil
}

func firstValue(v *fastjson.Value, keys []string) *fastjson.Value {
	for _, k := range keys {
		if f := v.Get(k); f != nil && f.Type() != fastjson.TypeNull {
			return f
		}
	}
	return nil
}

func scalarString(v *fastjson.Value) string {
	switch v.Type() {
	case fastjson.TypeString:
		b, _ := v.StringBytes()
		return string(b)
	case fastjson.TypeNumber, fastjson.TypeTrue, fastjson.TypeFalse:
		return string(v.MarshalTo(nil))
	default:
		return ""
	}
}

// Numbers above this are treated as unix milliseconds, below as unix seconds
const unixMillisThreshold = 1e11

func parseTimestamp(v *fastjson.Value) (time.Time, error) {
	switch v.Type() {
	case fastjson.TypeString:
		b, _ := v.StringBytes()
		s := string(b)
		if s == "" {
			return time.Time{}, nil
		}
		for _, layout := range []string{time.RFC3339Nano, time.RFC3339, "2006-01-02 15:04:05", "2006-01-02T15:04:05"} {
			if t, err := time.Parse(layout, s); err == nil {
				return t.UTC(), nil
			}
		}
		// Numeric string
		if n, err := strconv.ParseFloat(s, 64); err == nil {
			return fromUnix(n), nil
		}
		return time.Time{}, fmt.Errorf("unrecognized timestamp format: %q", s)

	case fastjson.TypeNumber:
		n, err := v.Float64()
		if err != nil {
			return time.Time{}, fmt.Errorf("invalid numeric timestamp: %w", err)
		}
		return fromUnix(n), nil

	default:
		return time.Time{}, fmt.Errorf("timestamp must be a string or number")
	}
}

func fromUnix(n float64) time.Time {
	if n > unixMillisThreshold {
		return time.UnixMilli(int64(n)).UTC()
	}
	return time.Unix(int64(n), 0).UTC()
}
