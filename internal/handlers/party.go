package handlers

import (
	"crypto/rand"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"watch-party-service/internal/models"
	"watch-party-service/internal/repositories"
	"watch-party-service/internal/telemetry"
	"watch-party-service/internal/ws"
)

const joinCodeAttempts = 3

// PartyHandler manages the watch-party lifecycle endpoints.
type PartyHandler struct {
	parties   repositories.PartyRepository
	messages  repositories.PartyMessageRepository
	reminders repositories.ReminderRepository
	catalog   repositories.CatalogRepository
	hub       *ws.Hub
	audit     *telemetry.AuditEmitter
}

// NewPartyHandler constructs a PartyHandler.
func NewPartyHandler(parties repositories.PartyRepository, messages repositories.PartyMessageRepository,
	reminders repositories.ReminderRepository, catalog repositories.CatalogRepository,
	hub *ws.Hub, audit *telemetry.AuditEmitter) *PartyHandler {
	return &PartyHandler{
		parties:   parties,
		messages:  messages,
		reminders: reminders,
		catalog:   catalog,
		hub:       hub,
		audit:     audit,
	}
}

// Create handles POST /parties.
func (h *PartyHandler) Create(c *gin.Context) {
	userID := c.GetInt("userID")

	var req struct {
		Title       string     `json:"title" binding:"required"`
		MovieID     int        `json:"movie_id" binding:"required"`
		EpisodeID   int        `json:"episode_id"`
		IsPrivate   bool       `json:"is_private"`
		ScheduledAt *time.Time `json:"scheduled_at"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		h.emitAudit(c, "ERROR", "invalid request payload")
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	active, err := h.parties.HasActiveParty(c.Request.Context(), userID)
	if err != nil {
		h.emitAudit(c, "ERROR", "internal error")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not create party"})
		return
	}
	if active {
		c.JSON(http.StatusConflict, gin.H{"error": "USER_HAS_ACTIVE_PARTY"})
		return
	}

	episodeID := req.EpisodeID
	if episodeID == 0 {
		episodeID, err = h.catalog.ResolveDefaultEpisode(c.Request.Context(), req.MovieID)
		if err != nil {
			if errors.Is(err, repositories.ErrMovieSourceNotFound) {
				c.JSON(http.StatusNotFound, gin.H{"error": "MOVIE_SOURCE_NOT_FOUND"})
				return
			}
			h.emitAudit(c, "ERROR", "internal error")
			c.JSON(http.StatusInternalServerError, gin.H{"error": "could not create party"})
			return
		}
	}

	input := repositories.CreateParty{
		HostUserID:  userID,
		Title:       req.Title,
		MovieID:     req.MovieID,
		EpisodeID:   episodeID,
		IsPrivate:   req.IsPrivate,
		ScheduledAt: req.ScheduledAt,
	}

	var party models.Party
	for attempt := 0; attempt < joinCodeAttempts; attempt++ {
		if req.IsPrivate {
			code := newJoinCode()
			input.JoinCode = &code
		}
		party, err = h.parties.Create(c.Request.Context(), input)
		if !errors.Is(err, repositories.ErrJoinCodeTaken) {
			break
		}
	}
	if err != nil {
		h.emitAudit(c, "ERROR", "internal error")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not create party"})
		return
	}

	h.emitAudit(c, "INFO", "Watch party created")
	c.JSON(http.StatusCreated, party)
}

// List handles GET /parties?filter={live|scheduled|ended}&q=.
func (h *PartyHandler) List(c *gin.Context) {
	filter := c.DefaultQuery("filter", models.FilterLive)
	search := c.Query("q")

	listings, err := h.parties.List(c.Request.Context(), filter, search)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load parties"})
		return
	}

	for i := range listings {
		decorateListing(&listings[i], filter)
	}
	c.JSON(http.StatusOK, gin.H{"parties": listings})
}

// GetDetails handles GET /parties/:party_id.
func (h *PartyHandler) GetDetails(c *gin.Context) {
	partyID, ok := parsePartyID(c)
	if !ok {
		return
	}
	userID := c.GetInt("userID")

	party, err := h.parties.GetParty(c.Request.Context(), partyID)
	if err != nil {
		h.respondPartyError(c, err)
		return
	}
	if !party.IsActive {
		c.JSON(http.StatusGone, gin.H{"error": "PARTY_ENDED"})
		return
	}

	isHost := party.HostUserID == userID

	movie, err := h.catalog.GetMovie(c.Request.Context(), party.MovieID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load party"})
		return
	}
	episode, err := h.catalog.GetEpisode(c.Request.Context(), party.EpisodeID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load party"})
		return
	}

	// Hosts get flagged messages for review; everyone else only the clean feed.
	messages, err := h.messages.ListRecent(c.Request.Context(), partyID, isHost, 50)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load messages"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"party":    party,
		"movie":    movie,
		"episode":  episode,
		"messages": messages,
		"is_host":  isHost,
	})
}

// JoinByCode handles POST /parties/join.
func (h *PartyHandler) JoinByCode(c *gin.Context) {
	var req struct {
		Code string `json:"code" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	party, err := h.parties.GetByJoinCode(c.Request.Context(), req.Code)
	if err != nil {
		if errors.Is(err, repositories.ErrInvalidCode) {
			c.JSON(http.StatusNotFound, gin.H{"error": "INVALID_CODE"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to resolve code"})
		return
	}
	if !party.IsActive {
		c.JSON(http.StatusGone, gin.H{"error": "PARTY_ENDED"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"room_id": party.ID})
}

// ToggleReminder handles POST /parties/:party_id/remind.
func (h *PartyHandler) ToggleReminder(c *gin.Context) {
	partyID, ok := parsePartyID(c)
	if !ok {
		return
	}
	userID := c.GetInt("userID")

	if _, err := h.parties.GetParty(c.Request.Context(), partyID); err != nil {
		h.respondPartyError(c, err)
		return
	}

	subscribed, err := h.reminders.Toggle(c.Request.Context(), partyID, userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to toggle reminder"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"subscribed": subscribed})
}

// End handles PUT /parties/:party_id/end. Host only, legal any time while the
// room is active.
func (h *PartyHandler) End(c *gin.Context) {
	partyID, ok := parsePartyID(c)
	if !ok {
		return
	}
	userID := c.GetInt("userID")

	party, err := h.parties.GetParty(c.Request.Context(), partyID)
	if err != nil {
		h.respondPartyError(c, err)
		return
	}
	if party.HostUserID != userID {
		h.emitAudit(c, "ERROR", "not allowed")
		c.JSON(http.StatusForbidden, gin.H{"error": "NOT_HOST"})
		return
	}

	if err := h.parties.End(c.Request.Context(), partyID); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to end party"})
		return
	}

	h.hub.CloseParty(partyID, models.ServerEvent{Type: models.EventPartyEnded, PartyID: partyID})
	h.emitAudit(c, "INFO", "Watch party ended")
	c.JSON(http.StatusOK, gin.H{"success": true})
}

// Cancel handles DELETE /parties/:party_id. Host only, legal only pre-start;
// the room never aired so the row is hard-deleted.
func (h *PartyHandler) Cancel(c *gin.Context) {
	partyID, ok := parsePartyID(c)
	if !ok {
		return
	}
	userID := c.GetInt("userID")

	party, err := h.parties.GetParty(c.Request.Context(), partyID)
	if err != nil {
		h.respondPartyError(c, err)
		return
	}
	if party.HostUserID != userID {
		h.emitAudit(c, "ERROR", "not allowed")
		c.JSON(http.StatusForbidden, gin.H{"error": "NOT_HOST"})
		return
	}
	if party.StartedAt != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "PARTY_ALREADY_STARTED"})
		return
	}

	if err := h.parties.Delete(c.Request.Context(), partyID); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to cancel party"})
		return
	}

	// Scheduled rooms accept lobby subscriptions before start, so the group
	// has to be torn down like an ended room's.
	h.hub.CloseParty(partyID, models.ServerEvent{Type: models.EventPartyEnded, PartyID: partyID})
	h.emitAudit(c, "INFO", "Watch party cancelled")
	c.JSON(http.StatusOK, gin.H{"success": true})
}

func (h *PartyHandler) respondPartyError(c *gin.Context, err error) {
	if errors.Is(err, repositories.ErrPartyNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "PARTY_NOT_FOUND"})
		return
	}
	h.emitAudit(c, "ERROR", "internal error")
	c.JSON(http.StatusInternalServerError, gin.H{"error": "server error"})
}

func (h *PartyHandler) emitAudit(c *gin.Context, level, text string) {
	if h.audit == nil {
		return
	}
	h.audit.Emit(c.Request.Context(), level, text, requestIDFromContext(c), userIDFromContext(c))
}

func parsePartyID(c *gin.Context) (int, bool) {
	partyID, err := strconv.Atoi(c.Param("party_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid party id"})
		return 0, false
	}
	return partyID, true
}

func decorateListing(listing *models.PartyListing, filter string) {
	listing.Status = filter
	if listing.BackdropURL.Valid && listing.BackdropURL.String != "" {
		listing.Image = listing.BackdropURL.String
	} else if listing.PosterURL.Valid {
		listing.Image = listing.PosterURL.String
	}

	if listing.MediaType == "TV" && listing.SeasonNumber.Valid && listing.EpisodeNumber.Valid {
		listing.EpisodeInfo = &models.EpisodeInfo{
			Season:  int(listing.SeasonNumber.Int64),
			Episode: int(listing.EpisodeNumber.Int64),
		}
		listing.MovieTitle = fmt.Sprintf("%s - S%dE%d", listing.MovieTitle, listing.EpisodeInfo.Season, listing.EpisodeInfo.Episode)
		if listing.EpisodeTitle.Valid && listing.EpisodeTitle.String != "" {
			listing.MovieTitle += ": " + listing.EpisodeTitle.String
		}
	}
}

const joinCodeCharset = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

func newJoinCode() string {
	buf := make([]byte, 6)
	if _, err := rand.Read(buf); err != nil {
		return ""
	}
	code := make([]byte, len(buf))
	for i, b := range buf {
		code[i] = joinCodeCharset[int(b)%len(joinCodeCharset)]
	}
	return string(code)
}
