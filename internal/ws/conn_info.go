package ws

import (
	"crypto/rand"
	"encoding/hex"
	"time"
)

// ConnInfo carries the identity bound to a connection at handshake time.
// Every event on the connection is attributed to this user id; ids inside
// payloads only ever address the target of an action.
type ConnInfo struct {
	ConnID      string
	UserID      int
	Username    string
	DisplayName string
	AvatarURL   string
	IP          string
	RequestID   string
	TraceID     string
	ConnectedAt time.Time
}

// newConnID issues an opaque id used to correlate a connection's log lines
// and broker events.
func newConnID() string {
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		return ""
	}
	return hex.EncodeToString(buf)
}
