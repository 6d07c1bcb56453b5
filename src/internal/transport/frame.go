// FILE: adminfeed/src/internal/transport/frame.go
package transport

import (
	"encoding/json"
	"fmt"

	"github.com/valyala/fastjson"
)

// Handshake events exchanged before a session is joined
const (
	eventAuthenticate  = "authenticate"
	eventAuthenticated = "authenticated"
	eventUnauthorized  = "unauthorized"

	eventScramFirst     = "scram_first"
	eventScramChallenge = "scram_challenge"
	eventScramProof     = "scram_proof"
	eventScramOK        = "scram_ok"
	eventScramFail      = "scram_fail"

	eventJoin      = "join"
	eventJoined    = "joined"
	eventJoinError = "join_error"
)

// Frame is the envelope of every text message on the socket
type Frame struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

type authenticatePayload struct {
	Token string `json:"token"`
}

type joinPayload struct {
	Group    string `json:"group"`
	ClientID string `json:"client_id"`
}

// encodeFrame wraps data in a frame; []byte and json.RawMessage are taken as raw JSON
func encodeFrame(event string, data any) ([]byte, error) {
	f := Frame{Event: event}
	switch d := data.(type) {
	case nil:
	case json.RawMessage:
		f.Data = d
	case []byte:
		f.Data = d
	default:
		b, err := json.Marshal(d)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal %s payload: %w", event, err)
		}
		f.Data = b
	}

	b, err := json.Marshal(f)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal %s frame: %w", event, err)
	}
	return b, nil
}

// decodeFrame extracts the event name and raw data of a frame.
// The returned data does not alias the parser's buffers.
func decodeFrame(p *fastjson.Parser, msg []byte) (string, []byte, error) {
	v, err := p.ParseBytes(msg)
	if err != nil {
		return "", nil, fmt.Errorf("invalid frame: %w", err)
	}
	if v.Type() != fastjson.TypeObject {
		return "", nil, fmt.Errorf("invalid frame: not an object")
	}

	event := string(v.GetStringBytes("event"))
	if event == "" {
		return "", nil, fmt.Errorf("invalid frame: missing event")
	}

	var data []byte
	if d := v.Get("data"); d != nil && d.Type() != fastjson.TypeNull {
		data = d.MarshalTo(nil)
	}
	return event, data, nil
}

// frameMessage returns the "message" field of a handshake error payload
func frameMessage(data []byte) string {
	if len(data) == 0 {
		return ""
	}
	var p fastjson.Parser
	v, err := p.ParseBytes(data)
	if err != nil {
		return string(data)
	}
	if s := v.GetStringBytes("message"); s != nil {
		return string(s)
	}
	if v.Type() == fastjson.TypeString {
		sb, _ := v.StringBytes()
		return string(sb)
	}
	return ""
}
