package handlers

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"watch-party-service/internal/mocks"
	"watch-party-service/internal/models"
	"watch-party-service/internal/presence"
)

func TestDebugRoutesDisabled(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	RegisterDebugRoutes(router, nil, presence.NewRegistry(), new(mocks.UserRepositoryMock), false)

	req := httptest.NewRequest(http.MethodGet, "/debug/online", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestDebugOnlineResolvesUsers(t *testing.T) {
	gin.SetMode(gin.TestMode)
	registry := presence.NewRegistry()
	registry.Add(7, &websocket.Conn{})
	registry.Add(7, &websocket.Conn{})

	users := new(mocks.UserRepositoryMock)
	users.On("BulkUsers", mock.Anything, []int{7}).Return([]models.User{{ID: 7, Username: "amy"}}, nil).Once()

	router := gin.New()
	RegisterDebugRoutes(router, nil, registry, users, true)

	req := httptest.NewRequest(http.MethodGet, "/debug/online", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"count":1`)
	assert.Contains(t, rec.Body.String(), `"username":"amy"`)
	users.AssertExpectations(t)
}
