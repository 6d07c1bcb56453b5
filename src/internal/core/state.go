// FILE: adminfeed/src/internal/core/state.go
package core

// ConnectionState is the lifecycle state of the push transport.
// States are ordered; a later state implies every earlier one succeeded.
type ConnectionState int32

const (
	StateDisconnected ConnectionState = iota
	StateConnecting
	StateConnected
	StateAuthenticated
	StateJoined
)

func (s ConnectionState) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	case StateAuthenticated:
		return "authenticated"
	case StateJoined:
		return "joined"
	default:
		return "unknown"
	}
}
