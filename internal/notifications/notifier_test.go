package notifications

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"watch-party-service/internal/mocks"
	"watch-party-service/internal/models"
)

type pusherRecorder struct {
	events []models.ServerEvent
}

func (p *pusherRecorder) SendToUser(userID int, event models.ServerEvent) {
	p.events = append(p.events, event)
}

func TestDeliverBulkFansOut(t *testing.T) {
	repo := new(mocks.NotificationRepositoryMock)
	publisher := new(mocks.PublisherMock)
	pusher := &pusherRecorder{}
	service := NewService(repo, publisher, "notify.users", pusher)

	input := models.NotificationInput{Type: models.NotificationWatchPartyInvite, Title: "Starting soon"}
	rows := []models.Notification{{ID: 1, UserID: 5}, {ID: 2, UserID: 6}}

	repo.On("CreateBulk", mock.Anything, []int{5, 6}, input).Return(rows, nil).Once()
	publisher.On("Publish", mock.Anything, "notify.users", rows).Return(nil).Once()

	require.NoError(t, service.DeliverBulk(context.Background(), []int{5, 6}, input))

	require.Len(t, pusher.events, 2)
	assert.Equal(t, models.EventNotification, pusher.events[0].Type)
	repo.AssertExpectations(t)
	publisher.AssertExpectations(t)
}

func TestDeliverBulkStorageFailureIsReturned(t *testing.T) {
	repo := new(mocks.NotificationRepositoryMock)
	publisher := new(mocks.PublisherMock)
	service := NewService(repo, publisher, "notify.users", nil)

	repo.On("CreateBulk", mock.Anything, []int{5}, mock.Anything).
		Return(([]models.Notification)(nil), assert.AnError).Once()

	err := service.DeliverBulk(context.Background(), []int{5}, models.NotificationInput{})
	assert.Error(t, err)
	publisher.AssertNotCalled(t, "Publish", mock.Anything, mock.Anything, mock.Anything)
}

func TestDeliverBulkBrokerFailureIsSwallowed(t *testing.T) {
	repo := new(mocks.NotificationRepositoryMock)
	publisher := new(mocks.PublisherMock)
	pusher := &pusherRecorder{}
	service := NewService(repo, publisher, "notify.users", pusher)

	rows := []models.Notification{{ID: 1, UserID: 5}}
	repo.On("CreateBulk", mock.Anything, []int{5}, mock.Anything).Return(rows, nil).Once()
	publisher.On("Publish", mock.Anything, "notify.users", rows).Return(assert.AnError).Once()

	require.NoError(t, service.DeliverBulk(context.Background(), []int{5}, models.NotificationInput{}))
	assert.Len(t, pusher.events, 1)
}

func TestDeliverBulkNoRecipients(t *testing.T) {
	repo := new(mocks.NotificationRepositoryMock)
	service := NewService(repo, nil, "notify.users", nil)

	require.NoError(t, service.DeliverBulk(context.Background(), nil, models.NotificationInput{}))
	repo.AssertNotCalled(t, "CreateBulk", mock.Anything, mock.Anything, mock.Anything)
}
