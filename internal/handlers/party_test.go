package handlers

import (
	"bytes"
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"watch-party-service/internal/mocks"
	"watch-party-service/internal/models"
	"watch-party-service/internal/repositories"
	"watch-party-service/internal/ws"
)

func setupPartyRouter(handler *PartyHandler) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(func(c *gin.Context) {
		c.Set("userID", 1)
		c.Next()
	})
	r.POST("/parties", handler.Create)
	r.GET("/parties", handler.List)
	r.GET("/parties/:party_id", handler.GetDetails)
	r.POST("/parties/join", handler.JoinByCode)
	r.POST("/parties/:party_id/remind", handler.ToggleReminder)
	r.PUT("/parties/:party_id/end", handler.End)
	r.DELETE("/parties/:party_id", handler.Cancel)
	return r
}

func newPartyHandlerWith(parties *mocks.PartyRepositoryMock, messages *mocks.PartyMessageRepositoryMock,
	reminders *mocks.ReminderRepositoryMock, catalog *mocks.CatalogRepositoryMock) *PartyHandler {
	return NewPartyHandler(parties, messages, reminders, catalog, ws.NewHub(), nil)
}

func TestCreatePartySuccess(t *testing.T) {
	parties := new(mocks.PartyRepositoryMock)
	catalog := new(mocks.CatalogRepositoryMock)
	handler := newPartyHandlerWith(parties, nil, nil, catalog)
	router := setupPartyRouter(handler)

	parties.On("HasActiveParty", mock.Anything, 1).Return(false, nil).Once()
	parties.On("Create", mock.Anything, mock.MatchedBy(func(in repositories.CreateParty) bool {
		return in.HostUserID == 1 && in.MovieID == 5 && in.EpisodeID == 9 && in.JoinCode == nil
	})).Return(models.Party{ID: 42, HostUserID: 1, Title: "movie night"}, nil).Once()

	body := bytes.NewBufferString(`{"title":"movie night","movie_id":5,"episode_id":9}`)
	req := httptest.NewRequest(http.MethodPost, "/parties", body)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusCreated, rec.Code)
	parties.AssertExpectations(t)
	catalog.AssertNotCalled(t, "ResolveDefaultEpisode", mock.Anything, mock.Anything)
}

func TestCreatePartyActiveConflict(t *testing.T) {
	parties := new(mocks.PartyRepositoryMock)
	handler := newPartyHandlerWith(parties, nil, nil, new(mocks.CatalogRepositoryMock))
	router := setupPartyRouter(handler)

	parties.On("HasActiveParty", mock.Anything, 1).Return(true, nil).Once()

	body := bytes.NewBufferString(`{"title":"again","movie_id":5}`)
	req := httptest.NewRequest(http.MethodPost, "/parties", body)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusConflict, rec.Code)
	assert.Contains(t, rec.Body.String(), "USER_HAS_ACTIVE_PARTY")
	parties.AssertExpectations(t)
}

func TestCreatePartyResolvesDefaultEpisode(t *testing.T) {
	parties := new(mocks.PartyRepositoryMock)
	catalog := new(mocks.CatalogRepositoryMock)
	handler := newPartyHandlerWith(parties, nil, nil, catalog)
	router := setupPartyRouter(handler)

	parties.On("HasActiveParty", mock.Anything, 1).Return(false, nil).Once()
	catalog.On("ResolveDefaultEpisode", mock.Anything, 5).Return(12, nil).Once()
	parties.On("Create", mock.Anything, mock.MatchedBy(func(in repositories.CreateParty) bool {
		return in.EpisodeID == 12
	})).Return(models.Party{ID: 1}, nil).Once()

	body := bytes.NewBufferString(`{"title":"pilot","movie_id":5}`)
	req := httptest.NewRequest(http.MethodPost, "/parties", body)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusCreated, rec.Code)
	parties.AssertExpectations(t)
	catalog.AssertExpectations(t)
}

func TestCreatePartyMovieSourceMissing(t *testing.T) {
	parties := new(mocks.PartyRepositoryMock)
	catalog := new(mocks.CatalogRepositoryMock)
	handler := newPartyHandlerWith(parties, nil, nil, catalog)
	router := setupPartyRouter(handler)

	parties.On("HasActiveParty", mock.Anything, 1).Return(false, nil).Once()
	catalog.On("ResolveDefaultEpisode", mock.Anything, 99).Return(0, repositories.ErrMovieSourceNotFound).Once()

	body := bytes.NewBufferString(`{"title":"ghost","movie_id":99}`)
	req := httptest.NewRequest(http.MethodPost, "/parties", body)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Body.String(), "MOVIE_SOURCE_NOT_FOUND")
}

func TestCreatePrivatePartyRetriesJoinCode(t *testing.T) {
	parties := new(mocks.PartyRepositoryMock)
	handler := newPartyHandlerWith(parties, nil, nil, new(mocks.CatalogRepositoryMock))
	router := setupPartyRouter(handler)

	parties.On("HasActiveParty", mock.Anything, 1).Return(false, nil).Once()
	parties.On("Create", mock.Anything, mock.MatchedBy(func(in repositories.CreateParty) bool {
		return in.JoinCode != nil && len(*in.JoinCode) == 6
	})).Return(models.Party{}, repositories.ErrJoinCodeTaken).Once()
	parties.On("Create", mock.Anything, mock.MatchedBy(func(in repositories.CreateParty) bool {
		return in.JoinCode != nil && len(*in.JoinCode) == 6
	})).Return(models.Party{ID: 8}, nil).Once()

	body := bytes.NewBufferString(`{"title":"secret","movie_id":5,"episode_id":9,"is_private":true}`)
	req := httptest.NewRequest(http.MethodPost, "/parties", body)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusCreated, rec.Code)
	parties.AssertExpectations(t)
}

func TestListPartiesDecoratesTVListings(t *testing.T) {
	parties := new(mocks.PartyRepositoryMock)
	handler := newPartyHandlerWith(parties, nil, nil, new(mocks.CatalogRepositoryMock))
	router := setupPartyRouter(handler)

	parties.On("List", mock.Anything, models.FilterLive, "").Return([]models.PartyListing{{
		ID:            3,
		MovieTitle:    "Space Show",
		MediaType:     "TV",
		BackdropURL:   sql.NullString{String: "http://img/backdrop.jpg", Valid: true},
		SeasonNumber:  sql.NullInt64{Int64: 2, Valid: true},
		EpisodeNumber: sql.NullInt64{Int64: 4, Valid: true},
		EpisodeTitle:  sql.NullString{String: "The Docking", Valid: true},
	}}, nil).Once()

	req := httptest.NewRequest(http.MethodGet, "/parties", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Parties []models.PartyListing `json:"parties"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	require.Len(t, resp.Parties, 1)
	assert.Equal(t, "http://img/backdrop.jpg", resp.Parties[0].Image)
	assert.Equal(t, models.FilterLive, resp.Parties[0].Status)
	require.NotNil(t, resp.Parties[0].EpisodeInfo)
	assert.Equal(t, 2, resp.Parties[0].EpisodeInfo.Season)
	assert.Equal(t, "Space Show - S2E4: The Docking", resp.Parties[0].MovieTitle)
	parties.AssertExpectations(t)
}

func TestGetDetailsHostSeesFlagged(t *testing.T) {
	parties := new(mocks.PartyRepositoryMock)
	messages := new(mocks.PartyMessageRepositoryMock)
	catalog := new(mocks.CatalogRepositoryMock)
	handler := newPartyHandlerWith(parties, messages, nil, catalog)
	router := setupPartyRouter(handler)

	parties.On("GetParty", mock.Anything, 3).Return(models.Party{ID: 3, HostUserID: 1, MovieID: 5, EpisodeID: 9, IsActive: true}, nil).Once()
	catalog.On("GetMovie", mock.Anything, 5).Return(models.Movie{ID: 5, Title: "Space Show"}, nil).Once()
	catalog.On("GetEpisode", mock.Anything, 9).Return(models.Episode{ID: 9}, nil).Once()
	messages.On("ListRecent", mock.Anything, 3, true, 50).Return([]models.ChatMessageView{{ID: 1, Text: "hi"}}, nil).Once()

	req := httptest.NewRequest(http.MethodGet, "/parties/3", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"is_host":true`)
	messages.AssertExpectations(t)
}

func TestGetDetailsParticipantCleanFeed(t *testing.T) {
	parties := new(mocks.PartyRepositoryMock)
	messages := new(mocks.PartyMessageRepositoryMock)
	catalog := new(mocks.CatalogRepositoryMock)
	handler := newPartyHandlerWith(parties, messages, nil, catalog)
	router := setupPartyRouter(handler)

	parties.On("GetParty", mock.Anything, 3).Return(models.Party{ID: 3, HostUserID: 2, MovieID: 5, EpisodeID: 9, IsActive: true}, nil).Once()
	catalog.On("GetMovie", mock.Anything, 5).Return(models.Movie{ID: 5}, nil).Once()
	catalog.On("GetEpisode", mock.Anything, 9).Return(models.Episode{ID: 9}, nil).Once()
	messages.On("ListRecent", mock.Anything, 3, false, 50).Return([]models.ChatMessageView{}, nil).Once()

	req := httptest.NewRequest(http.MethodGet, "/parties/3", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	messages.AssertExpectations(t)
}

func TestGetDetailsEndedParty(t *testing.T) {
	parties := new(mocks.PartyRepositoryMock)
	handler := newPartyHandlerWith(parties, nil, nil, new(mocks.CatalogRepositoryMock))
	router := setupPartyRouter(handler)

	parties.On("GetParty", mock.Anything, 3).Return(models.Party{ID: 3, IsActive: false}, nil).Once()

	req := httptest.NewRequest(http.MethodGet, "/parties/3", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusGone, rec.Code)
	assert.Contains(t, rec.Body.String(), "PARTY_ENDED")
}

func TestGetDetailsNotFound(t *testing.T) {
	parties := new(mocks.PartyRepositoryMock)
	handler := newPartyHandlerWith(parties, nil, nil, new(mocks.CatalogRepositoryMock))
	router := setupPartyRouter(handler)

	parties.On("GetParty", mock.Anything, 404).Return(models.Party{}, repositories.ErrPartyNotFound).Once()

	req := httptest.NewRequest(http.MethodGet, "/parties/404", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Body.String(), "PARTY_NOT_FOUND")
}

func TestJoinByCodeSuccess(t *testing.T) {
	parties := new(mocks.PartyRepositoryMock)
	handler := newPartyHandlerWith(parties, nil, nil, new(mocks.CatalogRepositoryMock))
	router := setupPartyRouter(handler)

	parties.On("GetByJoinCode", mock.Anything, "AB12CD").Return(models.Party{ID: 7, IsActive: true}, nil).Once()

	body := bytes.NewBufferString(`{"code":"AB12CD"}`)
	req := httptest.NewRequest(http.MethodPost, "/parties/join", body)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"room_id":7`)
}

func TestJoinByCodeInvalid(t *testing.T) {
	parties := new(mocks.PartyRepositoryMock)
	handler := newPartyHandlerWith(parties, nil, nil, new(mocks.CatalogRepositoryMock))
	router := setupPartyRouter(handler)

	parties.On("GetByJoinCode", mock.Anything, "NOPE11").Return(models.Party{}, repositories.ErrInvalidCode).Once()

	body := bytes.NewBufferString(`{"code":"NOPE11"}`)
	req := httptest.NewRequest(http.MethodPost, "/parties/join", body)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Body.String(), "INVALID_CODE")
}

func TestJoinByCodeEndedParty(t *testing.T) {
	parties := new(mocks.PartyRepositoryMock)
	handler := newPartyHandlerWith(parties, nil, nil, new(mocks.CatalogRepositoryMock))
	router := setupPartyRouter(handler)

	parties.On("GetByJoinCode", mock.Anything, "OLD123").Return(models.Party{ID: 7, IsActive: false}, nil).Once()

	body := bytes.NewBufferString(`{"code":"OLD123"}`)
	req := httptest.NewRequest(http.MethodPost, "/parties/join", body)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusGone, rec.Code)
}

func TestToggleReminder(t *testing.T) {
	parties := new(mocks.PartyRepositoryMock)
	reminders := new(mocks.ReminderRepositoryMock)
	handler := newPartyHandlerWith(parties, nil, reminders, new(mocks.CatalogRepositoryMock))
	router := setupPartyRouter(handler)

	parties.On("GetParty", mock.Anything, 3).Return(models.Party{ID: 3, IsActive: true}, nil).Once()
	reminders.On("Toggle", mock.Anything, 3, 1).Return(true, nil).Once()

	req := httptest.NewRequest(http.MethodPost, "/parties/3/remind", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"subscribed":true`)
	reminders.AssertExpectations(t)
}

func TestEndPartyNotHost(t *testing.T) {
	parties := new(mocks.PartyRepositoryMock)
	handler := newPartyHandlerWith(parties, nil, nil, new(mocks.CatalogRepositoryMock))
	router := setupPartyRouter(handler)

	parties.On("GetParty", mock.Anything, 3).Return(models.Party{ID: 3, HostUserID: 2, IsActive: true}, nil).Once()

	req := httptest.NewRequest(http.MethodPut, "/parties/3/end", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusForbidden, rec.Code)
	assert.Contains(t, rec.Body.String(), "NOT_HOST")
	parties.AssertNotCalled(t, "End", mock.Anything, mock.Anything)
}

func TestEndPartyHostSuccess(t *testing.T) {
	parties := new(mocks.PartyRepositoryMock)
	handler := newPartyHandlerWith(parties, nil, nil, new(mocks.CatalogRepositoryMock))
	router := setupPartyRouter(handler)

	parties.On("GetParty", mock.Anything, 3).Return(models.Party{ID: 3, HostUserID: 1, IsActive: true}, nil).Once()
	parties.On("End", mock.Anything, 3).Return(nil).Once()

	req := httptest.NewRequest(http.MethodPut, "/parties/3/end", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	parties.AssertExpectations(t)
}

func TestCancelPartyAlreadyStarted(t *testing.T) {
	parties := new(mocks.PartyRepositoryMock)
	handler := newPartyHandlerWith(parties, nil, nil, new(mocks.CatalogRepositoryMock))
	router := setupPartyRouter(handler)

	started := time.Now()
	parties.On("GetParty", mock.Anything, 3).Return(models.Party{ID: 3, HostUserID: 1, StartedAt: &started, IsActive: true}, nil).Once()

	req := httptest.NewRequest(http.MethodDelete, "/parties/3", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "PARTY_ALREADY_STARTED")
	parties.AssertNotCalled(t, "Delete", mock.Anything, mock.Anything)
}

func TestCancelPartySuccess(t *testing.T) {
	parties := new(mocks.PartyRepositoryMock)
	handler := newPartyHandlerWith(parties, nil, nil, new(mocks.CatalogRepositoryMock))
	router := setupPartyRouter(handler)

	parties.On("GetParty", mock.Anything, 3).Return(models.Party{ID: 3, HostUserID: 1, IsActive: true}, nil).Once()
	parties.On("Delete", mock.Anything, 3).Return(nil).Once()

	req := httptest.NewRequest(http.MethodDelete, "/parties/3", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	parties.AssertExpectations(t)
}

func wsConnPair(t *testing.T) (*websocket.Conn, *websocket.Conn) {
	t.Helper()
	upgrader := websocket.Upgrader{}
	conns := make(chan *websocket.Conn, 1)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			t.Errorf("upgrade: %v", err)
			return
		}
		conns <- conn
	}))
	t.Cleanup(server.Close)

	client, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(server.URL, "http"), nil)
	require.NoError(t, err)
	t.Cleanup(func() { client.Close() })
	return <-conns, client
}

func TestCancelPartyTearsDownGroup(t *testing.T) {
	parties := new(mocks.PartyRepositoryMock)
	hub := ws.NewHub()
	handler := NewPartyHandler(parties, nil, nil, new(mocks.CatalogRepositoryMock), hub, nil)
	router := setupPartyRouter(handler)

	// A lobby subscriber waiting on a scheduled room.
	serverConn, clientConn := wsConnPair(t)
	hub.Subscribe(3, serverConn, ws.ConnInfo{UserID: 2})

	parties.On("GetParty", mock.Anything, 3).Return(models.Party{ID: 3, HostUserID: 1, IsActive: true}, nil).Once()
	parties.On("Delete", mock.Anything, 3).Return(nil).Once()

	req := httptest.NewRequest(http.MethodDelete, "/parties/3", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	var frame models.ServerEvent
	require.NoError(t, clientConn.ReadJSON(&frame))
	assert.Equal(t, models.EventPartyEnded, frame.Type)
	assert.Equal(t, 3, frame.PartyID)
	assert.False(t, hub.IsSubscribed(3, serverConn))
	parties.AssertExpectations(t)
}

func TestJoinCodeShape(t *testing.T) {
	code := newJoinCode()
	require.Len(t, code, 6)
	for _, r := range code {
		assert.Contains(t, joinCodeCharset, string(r))
	}
}
