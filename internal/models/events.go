package models

import (
	"encoding/json"
	"time"
)

// Client-to-server event types handled by the realtime gateway.
const (
	EventJoinParty     = "join_party"
	EventLeaveParty    = "leave_party"
	EventSendMessage   = "send_message"
	EventReportMessage = "report_message"
	EventSyncAction    = "sync_action"
	EventRequestSync   = "request_sync"
	EventSyncReply     = "sync_reply"
	EventKickUser      = "kick_user"
	EventBanUser       = "ban_user"
	EventTransferHost  = "transfer_host"
	EventEndParty      = "end_party"
	EventJoinDecision  = "join_decision"
)

// Server-to-client event types.
const (
	EventMembersUpdated    = "members_updated"
	EventNewMessage        = "new_message"
	EventMessageSuppressed = "message_suppressed"
	EventMessageFlagged    = "message_flagged"
	EventSyncBroadcast     = "sync_broadcast"
	EventSyncRequested     = "sync_requested"
	EventSyncState         = "sync_state"
	EventJoinPending       = "join_pending"
	EventJoinRequest       = "join_request"
	EventJoinRejected      = "join_rejected"
	EventHostChanged       = "host_changed"
	EventKicked            = "kicked"
	EventBanned            = "banned"
	EventPartyEnded        = "party_ended"
	EventNotification      = "notification:new"
	EventError             = "error"
)

// Player sync actions relayed by the host.
const (
	SyncPlay  = "play"
	SyncPause = "pause"
	SyncSeek  = "seek"
)

// ClientEvent is the envelope read off a gateway connection. Identity is never
// taken from the payload; UserID only ever addresses the target of an action.
type ClientEvent struct {
	Type      string  `json:"type"`
	PartyID   int     `json:"party_id"`
	Text      string  `json:"text,omitempty"`
	MessageID int     `json:"message_id,omitempty"`
	UserID    int     `json:"user_id,omitempty"`
	Action    string  `json:"action,omitempty"`
	Position  float64 `json:"position,omitempty"`
	IsPlaying bool    `json:"is_playing,omitempty"`
	Accept    bool    `json:"accept,omitempty"`
}

// ServerEvent is the envelope written to gateway connections.
type ServerEvent struct {
	Type       string           `json:"type"`
	PartyID    int              `json:"party_id,omitempty"`
	Message    *ChatMessageView `json:"message,omitempty"`
	MessageID  int              `json:"message_id,omitempty"`
	Members    []MemberView     `json:"members,omitempty"`
	User       *MemberView      `json:"user,omitempty"`
	HostID     int              `json:"host_id,omitempty"`
	Action     string           `json:"action,omitempty"`
	Position   float64          `json:"position,omitempty"`
	IsPlaying  bool             `json:"is_playing,omitempty"`
	ServerTime *time.Time       `json:"server_time,omitempty"`
	Reason     string           `json:"reason,omitempty"`
	Payload    json.RawMessage  `json:"payload,omitempty"`
}
