package ws

import (
	"context"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.opentelemetry.io/otel"

	"watch-party-service/internal/auth"
	"watch-party-service/internal/models"
	"watch-party-service/internal/observability"
	"watch-party-service/internal/presence"
	"watch-party-service/internal/repositories"
	"watch-party-service/internal/toxicity"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// Gateway is the connection-oriented core. Each connection is authenticated
// once; after that it can subscribe to party broadcast groups and emit
// room-scoped events. Host role and ban state are re-read from storage at the
// start of every privileged handler, never cached across dispatches.
type Gateway struct {
	hub      *Hub
	registry *presence.Registry
	resolver auth.Resolver
	parties  repositories.PartyRepository
	members  repositories.MemberRepository
	messages repositories.PartyMessageRepository
	users    repositories.UserRepository
	toxicity toxicity.Classifier
}

// NewGateway constructs a Gateway.
func NewGateway(hub *Hub, registry *presence.Registry, resolver auth.Resolver,
	parties repositories.PartyRepository, members repositories.MemberRepository,
	messages repositories.PartyMessageRepository, users repositories.UserRepository,
	classifier toxicity.Classifier) *Gateway {
	return &Gateway{
		hub:      hub,
		registry: registry,
		resolver: resolver,
		parties:  parties,
		members:  members,
		messages: messages,
		users:    users,
		toxicity: classifier,
	}
}

// Handle upgrades the connection, authenticates it and runs the read pump.
func (g *Gateway) Handle(c *gin.Context) {
	ctx, span := otel.Tracer("watch-party-service/ws").Start(c.Request.Context(), "ws.handshake")
	defer span.End()
	c.Request = c.Request.WithContext(ctx)

	token := auth.TokenFromHeader(c.GetHeader("Authorization"))
	if token == "" {
		token = c.Query("token")
	}

	user, err := g.resolver.Resolve(ctx, token)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		return
	}

	info := ConnInfo{
		ConnID:      newConnID(),
		UserID:      user.ID,
		Username:    user.Username,
		DisplayName: user.Name(),
		AvatarURL:   user.Avatar(),
		IP:          observability.IPFromRequest(c.Request),
		RequestID:   observability.RequestIDFromRequest(c.Request),
		TraceID:     span.SpanContext().TraceID().String(),
		ConnectedAt: time.Now(),
	}

	g.registry.Add(user.ID, conn)
	observability.IncWSActive("party")
	observability.IncWSEvent("party", "ws_connect")
	_ = observability.PublishEvent(ctx, "ws_events.parties", observability.EventEnvelope{
		EventType: "ws_events",
		EventName: "ws_connect",
		Payload: map[string]interface{}{
			"conn_id": info.ConnID,
			"user_id": info.UserID,
			"ip":      info.IP,
		},
	}, observability.BuildHeaders(info.RequestID, info.TraceID))
	log.Printf("ws connect user=%d conn=%s", user.ID, info.ConnID)

	go g.readPump(conn, info)
}

func (g *Gateway) readPump(conn *websocket.Conn, info ConnInfo) {
	defer func() {
		g.disconnect(conn, info)
		conn.Close()
	}()

	for {
		var event models.ClientEvent
		if err := conn.ReadJSON(&event); err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				observability.IncWSEvent("party", "ws_error")
			}
			return
		}
		g.dispatch(context.Background(), conn, info, event)
	}
}

func (g *Gateway) disconnect(conn *websocket.Conn, info ConnInfo) {
	g.registry.Remove(info.UserID, conn)
	partyIDs := g.hub.UnsubscribeAll(conn)

	ctx := context.Background()
	for _, partyID := range partyIDs {
		if err := g.members.SetOnline(ctx, partyID, info.UserID, false); err != nil {
			log.Printf("ws disconnect: mark offline party=%d user=%d: %v", partyID, info.UserID, err)
		}
		g.broadcastMembers(ctx, partyID)
	}

	observability.DecWSActive("party")
	observability.IncWSEvent("party", "ws_disconnect")
	_ = observability.PublishEvent(ctx, "ws_events.parties", observability.EventEnvelope{
		EventType: "ws_events",
		EventName: "ws_disconnect",
		Payload: map[string]interface{}{
			"conn_id":     info.ConnID,
			"user_id":     info.UserID,
			"duration_ms": time.Since(info.ConnectedAt).Milliseconds(),
		},
	}, observability.BuildHeaders(info.RequestID, info.TraceID))
	log.Printf("ws disconnect user=%d conn=%s duration_ms=%d",
		info.UserID, info.ConnID, time.Since(info.ConnectedAt).Milliseconds())
}

// dispatch routes one event. A failing handler never tears down the
// connection or affects other rooms.
func (g *Gateway) dispatch(ctx context.Context, conn *websocket.Conn, info ConnInfo, event models.ClientEvent) {
	observability.IncWSEvent("party", event.Type)

	switch event.Type {
	case models.EventJoinParty:
		g.handleJoin(ctx, conn, info, event)
	case models.EventLeaveParty:
		g.handleLeave(ctx, conn, info, event)
	case models.EventSendMessage:
		g.handleChat(ctx, conn, info, event)
	case models.EventReportMessage:
		g.handleReport(ctx, conn, info, event)
	case models.EventSyncAction:
		g.handleSync(ctx, conn, info, event)
	case models.EventRequestSync:
		g.handleRequestSync(ctx, conn, info, event)
	case models.EventSyncReply:
		g.handleSyncReply(ctx, conn, info, event)
	case models.EventKickUser:
		g.handleKick(ctx, conn, info, event)
	case models.EventBanUser:
		g.handleBan(ctx, conn, info, event)
	case models.EventTransferHost:
		g.handleTransferHost(ctx, conn, info, event)
	case models.EventEndParty:
		g.handleEnd(ctx, conn, info, event)
	case models.EventJoinDecision:
		g.handleJoinDecision(ctx, conn, info, event)
	default:
		g.sendError(conn, event.PartyID, "unknown event type")
	}
}

// activeParty re-reads the room and drops events against ended or unknown
// rooms.
func (g *Gateway) activeParty(ctx context.Context, conn *websocket.Conn, partyID int) (models.Party, bool) {
	party, err := g.parties.GetParty(ctx, partyID)
	if err != nil {
		g.sendError(conn, partyID, "party not found")
		return models.Party{}, false
	}
	if !party.IsActive {
		g.sendError(conn, partyID, "party ended")
		return models.Party{}, false
	}
	return party, true
}

// requireHost re-verifies host identity against durable state immediately
// before a privileged action. Non-host attempts are dropped with only a local
// notice to the offending connection.
func (g *Gateway) requireHost(ctx context.Context, conn *websocket.Conn, info ConnInfo, partyID int) (models.Party, bool) {
	party, ok := g.activeParty(ctx, conn, partyID)
	if !ok {
		return models.Party{}, false
	}
	if party.HostUserID != info.UserID {
		log.Printf("ws drop: user=%d is not host of party=%d", info.UserID, partyID)
		g.sendError(conn, partyID, "not authorized")
		return models.Party{}, false
	}
	return party, true
}

func (g *Gateway) handleJoin(ctx context.Context, conn *websocket.Conn, info ConnInfo, event models.ClientEvent) {
	party, ok := g.activeParty(ctx, conn, event.PartyID)
	if !ok {
		return
	}

	member, err := g.members.Get(ctx, party.ID, info.UserID)
	if err == nil && member.IsBanned {
		// Re-admission gate: the host decides, the requester waits.
		requester := models.MemberView{
			UserID:      info.UserID,
			Username:    info.Username,
			DisplayName: info.DisplayName,
			AvatarURL:   info.AvatarURL,
			Role:        member.Role,
			IsBanned:    true,
		}
		g.sendToUser(party.HostUserID, models.ServerEvent{
			Type:    models.EventJoinRequest,
			PartyID: party.ID,
			User:    &requester,
		})
		g.hub.SendTo(conn, models.ServerEvent{Type: models.EventJoinPending, PartyID: party.ID})
		return
	}
	if err != nil && !errors.Is(err, repositories.ErrMemberNotFound) {
		g.sendError(conn, party.ID, "server error")
		return
	}

	if err := g.members.JoinOnline(ctx, party.ID, info.UserID); err != nil {
		g.sendError(conn, party.ID, "server error")
		return
	}
	g.hub.Subscribe(party.ID, conn, info)
	g.broadcastMembers(ctx, party.ID)
}

func (g *Gateway) handleJoinDecision(ctx context.Context, conn *websocket.Conn, info ConnInfo, event models.ClientEvent) {
	party, ok := g.requireHost(ctx, conn, info, event.PartyID)
	if !ok {
		return
	}
	targetID := event.UserID

	if !event.Accept {
		g.sendToUser(targetID, models.ServerEvent{Type: models.EventJoinRejected, PartyID: party.ID})
		return
	}

	if err := g.members.Readmit(ctx, party.ID, targetID); err != nil {
		log.Printf("ws readmit party=%d user=%d: %v", party.ID, targetID, err)
		g.sendError(conn, party.ID, "server error")
		return
	}

	target, err := g.users.GetUser(ctx, targetID)
	if err != nil {
		log.Printf("ws readmit: resolve user=%d: %v", targetID, err)
	}
	for _, targetConn := range g.registry.Connections(targetID) {
		g.hub.Subscribe(party.ID, targetConn, ConnInfo{
			UserID:      targetID,
			Username:    target.Username,
			DisplayName: target.Name(),
			AvatarURL:   target.Avatar(),
			ConnectedAt: time.Now(),
		})
	}
	g.broadcastMembers(ctx, party.ID)
}

func (g *Gateway) handleLeave(ctx context.Context, conn *websocket.Conn, info ConnInfo, event models.ClientEvent) {
	g.hub.Unsubscribe(event.PartyID, conn)
	if err := g.members.SetOnline(ctx, event.PartyID, info.UserID, false); err != nil {
		log.Printf("ws leave party=%d user=%d: %v", event.PartyID, info.UserID, err)
	}
	g.broadcastMembers(ctx, event.PartyID)
}

func (g *Gateway) handleChat(ctx context.Context, conn *websocket.Conn, info ConnInfo, event models.ClientEvent) {
	party, ok := g.activeParty(ctx, conn, event.PartyID)
	if !ok {
		return
	}
	if event.Text == "" {
		return
	}

	verdict := g.toxicity.Classify(ctx, event.Text)

	var flagReason *string
	if verdict.IsToxic {
		reason := "toxicity"
		flagReason = &reason
	}

	// The audit trail is unconditional; the verdict only decides visibility.
	msg, err := g.messages.Create(ctx, party.ID, info.UserID, event.Text, verdict.IsToxic, verdict.Score, flagReason)
	if err != nil {
		g.sendError(conn, party.ID, "failed to store message")
		return
	}

	if verdict.IsToxic {
		g.hub.SendTo(conn, models.ServerEvent{
			Type:      models.EventMessageSuppressed,
			PartyID:   party.ID,
			MessageID: msg.ID,
			Reason:    "message flagged by moderation",
		})
		g.sendToUser(party.HostUserID, models.ServerEvent{
			Type:      models.EventMessageFlagged,
			PartyID:   party.ID,
			MessageID: msg.ID,
		})
		return
	}

	view := models.ChatMessageView{
		ID:     msg.ID,
		Text:   msg.Message,
		UserID: info.UserID,
		User:   info.DisplayName,
		Avatar: info.AvatarURL,
		Time:   msg.CreatedAt,
		IsHost: info.UserID == party.HostUserID,
	}
	g.hub.Broadcast(party.ID, models.ServerEvent{
		Type:    models.EventNewMessage,
		PartyID: party.ID,
		Message: &view,
	})
}

func (g *Gateway) handleReport(ctx context.Context, conn *websocket.Conn, info ConnInfo, event models.ClientEvent) {
	party, ok := g.activeParty(ctx, conn, event.PartyID)
	if !ok {
		return
	}

	msg, err := g.messages.Get(ctx, event.MessageID)
	if err != nil || msg.PartyID != party.ID {
		g.sendError(conn, party.ID, "message not found")
		return
	}

	if err := g.messages.Flag(ctx, msg.ID, "reported"); err != nil {
		g.sendError(conn, party.ID, "failed to report message")
		return
	}
	g.sendToUser(party.HostUserID, models.ServerEvent{
		Type:      models.EventMessageFlagged,
		PartyID:   party.ID,
		MessageID: msg.ID,
	})
}

func (g *Gateway) handleSync(ctx context.Context, conn *websocket.Conn, info ConnInfo, event models.ClientEvent) {
	party, ok := g.requireHost(ctx, conn, info, event.PartyID)
	if !ok {
		return
	}

	// Server timestamp lets clients compensate for relay latency.
	now := time.Now()
	g.hub.BroadcastExcept(party.ID, conn, models.ServerEvent{
		Type:       models.EventSyncBroadcast,
		PartyID:    party.ID,
		Action:     event.Action,
		Position:   event.Position,
		ServerTime: &now,
	})
}

func (g *Gateway) handleRequestSync(ctx context.Context, conn *websocket.Conn, info ConnInfo, event models.ClientEvent) {
	party, ok := g.activeParty(ctx, conn, event.PartyID)
	if !ok {
		return
	}
	if !g.hub.IsSubscribed(party.ID, conn) {
		return
	}

	requester := models.MemberView{
		UserID:      info.UserID,
		Username:    info.Username,
		DisplayName: info.DisplayName,
		AvatarURL:   info.AvatarURL,
	}
	g.sendToUser(party.HostUserID, models.ServerEvent{
		Type:    models.EventSyncRequested,
		PartyID: party.ID,
		User:    &requester,
	})
}

func (g *Gateway) handleSyncReply(ctx context.Context, conn *websocket.Conn, info ConnInfo, event models.ClientEvent) {
	party, ok := g.requireHost(ctx, conn, info, event.PartyID)
	if !ok {
		return
	}

	// Addressed to the requester only, so already-synced clients are not
	// disturbed by a late joiner converging.
	now := time.Now()
	g.sendToUser(event.UserID, models.ServerEvent{
		Type:       models.EventSyncState,
		PartyID:    party.ID,
		Position:   event.Position,
		IsPlaying:  event.IsPlaying,
		ServerTime: &now,
	})
}

func (g *Gateway) handleKick(ctx context.Context, conn *websocket.Conn, info ConnInfo, event models.ClientEvent) {
	party, ok := g.requireHost(ctx, conn, info, event.PartyID)
	if !ok {
		return
	}
	targetID := event.UserID
	if targetID == party.HostUserID {
		return
	}

	removed := g.hub.UnsubscribeUser(party.ID, targetID)
	if err := g.members.SetOnline(ctx, party.ID, targetID, false); err != nil {
		log.Printf("ws kick party=%d user=%d: %v", party.ID, targetID, err)
	}
	for _, removedConn := range removed {
		g.hub.SendTo(removedConn, models.ServerEvent{Type: models.EventKicked, PartyID: party.ID})
	}
	g.broadcastMembers(ctx, party.ID)
}

func (g *Gateway) handleBan(ctx context.Context, conn *websocket.Conn, info ConnInfo, event models.ClientEvent) {
	party, ok := g.requireHost(ctx, conn, info, event.PartyID)
	if !ok {
		return
	}
	targetID := event.UserID
	if targetID == party.HostUserID {
		return
	}

	removed := g.hub.UnsubscribeUser(party.ID, targetID)
	if err := g.members.SetOnline(ctx, party.ID, targetID, false); err != nil {
		log.Printf("ws ban party=%d user=%d: %v", party.ID, targetID, err)
	}
	if err := g.members.SetBanned(ctx, party.ID, targetID, true); err != nil {
		log.Printf("ws ban party=%d user=%d: %v", party.ID, targetID, err)
	}
	for _, removedConn := range removed {
		g.hub.SendTo(removedConn, models.ServerEvent{Type: models.EventBanned, PartyID: party.ID})
	}
	g.broadcastMembers(ctx, party.ID)
}

func (g *Gateway) handleTransferHost(ctx context.Context, conn *websocket.Conn, info ConnInfo, event models.ClientEvent) {
	party, ok := g.requireHost(ctx, conn, info, event.PartyID)
	if !ok {
		return
	}

	if err := g.parties.TransferHost(ctx, party.ID, info.UserID, event.UserID); err != nil {
		log.Printf("ws transfer host party=%d to=%d: %v", party.ID, event.UserID, err)
		g.sendError(conn, party.ID, "host transfer failed")
		return
	}

	g.hub.Broadcast(party.ID, models.ServerEvent{
		Type:    models.EventHostChanged,
		PartyID: party.ID,
		HostID:  event.UserID,
	})
	g.broadcastMembers(ctx, party.ID)
}

func (g *Gateway) handleEnd(ctx context.Context, conn *websocket.Conn, info ConnInfo, event models.ClientEvent) {
	party, ok := g.requireHost(ctx, conn, info, event.PartyID)
	if !ok {
		return
	}

	if err := g.parties.End(ctx, party.ID); err != nil {
		g.sendError(conn, party.ID, "failed to end party")
		return
	}
	g.hub.CloseParty(party.ID, models.ServerEvent{Type: models.EventPartyEnded, PartyID: party.ID})
}

func (g *Gateway) broadcastMembers(ctx context.Context, partyID int) {
	members, err := g.members.ListMembers(ctx, partyID)
	if err != nil {
		log.Printf("ws list members party=%d: %v", partyID, err)
		return
	}
	g.hub.Broadcast(partyID, models.ServerEvent{
		Type:    models.EventMembersUpdated,
		PartyID: partyID,
		Members: members,
	})
}

// sendToUser delivers an event to every live connection of a user, whether or
// not those connections are subscribed to a party group.
func (g *Gateway) sendToUser(userID int, event models.ServerEvent) {
	for _, conn := range g.registry.Connections(userID) {
		g.hub.SendTo(conn, event)
	}
}

// SendToUser exposes targeted delivery for collaborators such as the
// notification path.
func (g *Gateway) SendToUser(userID int, event models.ServerEvent) {
	g.sendToUser(userID, event)
}

func (g *Gateway) sendError(conn *websocket.Conn, partyID int, reason string) {
	g.hub.SendTo(conn, models.ServerEvent{Type: models.EventError, PartyID: partyID, Reason: reason})
}
