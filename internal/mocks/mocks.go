package mocks

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"

	"watch-party-service/internal/models"
	"watch-party-service/internal/repositories"
	"watch-party-service/internal/toxicity"
)

type PartyRepositoryMock struct {
	mock.Mock
}

func (m *PartyRepositoryMock) Create(ctx context.Context, input repositories.CreateParty) (models.Party, error) {
	args := m.Called(ctx, input)
	var party models.Party
	if val := args.Get(0); val != nil {
		party = val.(models.Party)
	}
	return party, args.Error(1)
}

func (m *PartyRepositoryMock) GetParty(ctx context.Context, partyID int) (models.Party, error) {
	args := m.Called(ctx, partyID)
	var party models.Party
	if val := args.Get(0); val != nil {
		party = val.(models.Party)
	}
	return party, args.Error(1)
}

func (m *PartyRepositoryMock) HasActiveParty(ctx context.Context, hostID int) (bool, error) {
	args := m.Called(ctx, hostID)
	return args.Bool(0), args.Error(1)
}

func (m *PartyRepositoryMock) List(ctx context.Context, filter string, search string) ([]models.PartyListing, error) {
	args := m.Called(ctx, filter, search)
	var list []models.PartyListing
	if val := args.Get(0); val != nil {
		list = val.([]models.PartyListing)
	}
	return list, args.Error(1)
}

func (m *PartyRepositoryMock) GetByJoinCode(ctx context.Context, code string) (models.Party, error) {
	args := m.Called(ctx, code)
	var party models.Party
	if val := args.Get(0); val != nil {
		party = val.(models.Party)
	}
	return party, args.Error(1)
}

func (m *PartyRepositoryMock) Delete(ctx context.Context, partyID int) error {
	args := m.Called(ctx, partyID)
	return args.Error(0)
}

func (m *PartyRepositoryMock) End(ctx context.Context, partyID int) error {
	args := m.Called(ctx, partyID)
	return args.Error(0)
}

func (m *PartyRepositoryMock) TransferHost(ctx context.Context, partyID, fromUserID, toUserID int) error {
	args := m.Called(ctx, partyID, fromUserID, toUserID)
	return args.Error(0)
}

func (m *PartyRepositoryMock) ListDueImminent(ctx context.Context, now time.Time, lead time.Duration) ([]models.Party, error) {
	args := m.Called(ctx, now, lead)
	var list []models.Party
	if val := args.Get(0); val != nil {
		list = val.([]models.Party)
	}
	return list, args.Error(1)
}

func (m *PartyRepositoryMock) ListDueStart(ctx context.Context, now time.Time) ([]models.Party, error) {
	args := m.Called(ctx, now)
	var list []models.Party
	if val := args.Get(0); val != nil {
		list = val.([]models.Party)
	}
	return list, args.Error(1)
}

func (m *PartyRepositoryMock) MarkImminentNotified(ctx context.Context, partyID int) error {
	args := m.Called(ctx, partyID)
	return args.Error(0)
}

func (m *PartyRepositoryMock) MarkStarted(ctx context.Context, partyID int, startedAt time.Time) error {
	args := m.Called(ctx, partyID, startedAt)
	return args.Error(0)
}

type MemberRepositoryMock struct {
	mock.Mock
}

func (m *MemberRepositoryMock) Get(ctx context.Context, partyID, userID int) (models.PartyMember, error) {
	args := m.Called(ctx, partyID, userID)
	var member models.PartyMember
	if val := args.Get(0); val != nil {
		member = val.(models.PartyMember)
	}
	return member, args.Error(1)
}

func (m *MemberRepositoryMock) JoinOnline(ctx context.Context, partyID, userID int) error {
	args := m.Called(ctx, partyID, userID)
	return args.Error(0)
}

func (m *MemberRepositoryMock) SetOnline(ctx context.Context, partyID, userID int, online bool) error {
	args := m.Called(ctx, partyID, userID, online)
	return args.Error(0)
}

func (m *MemberRepositoryMock) SetBanned(ctx context.Context, partyID, userID int, banned bool) error {
	args := m.Called(ctx, partyID, userID, banned)
	return args.Error(0)
}

func (m *MemberRepositoryMock) Readmit(ctx context.Context, partyID, userID int) error {
	args := m.Called(ctx, partyID, userID)
	return args.Error(0)
}

func (m *MemberRepositoryMock) ListMembers(ctx context.Context, partyID int) ([]models.MemberView, error) {
	args := m.Called(ctx, partyID)
	var members []models.MemberView
	if val := args.Get(0); val != nil {
		members = val.([]models.MemberView)
	}
	return members, args.Error(1)
}

type PartyMessageRepositoryMock struct {
	mock.Mock
}

func (m *PartyMessageRepositoryMock) Create(ctx context.Context, partyID, userID int, text string, flagged bool, score float64, flagReason *string) (models.PartyMessage, error) {
	args := m.Called(ctx, partyID, userID, text, flagged, score, flagReason)
	var msg models.PartyMessage
	if val := args.Get(0); val != nil {
		msg = val.(models.PartyMessage)
	}
	return msg, args.Error(1)
}

func (m *PartyMessageRepositoryMock) Get(ctx context.Context, messageID int) (models.PartyMessage, error) {
	args := m.Called(ctx, messageID)
	var msg models.PartyMessage
	if val := args.Get(0); val != nil {
		msg = val.(models.PartyMessage)
	}
	return msg, args.Error(1)
}

func (m *PartyMessageRepositoryMock) Flag(ctx context.Context, messageID int, reason string) error {
	args := m.Called(ctx, messageID, reason)
	return args.Error(0)
}

func (m *PartyMessageRepositoryMock) ListRecent(ctx context.Context, partyID int, includeFlagged bool, limit int) ([]models.ChatMessageView, error) {
	args := m.Called(ctx, partyID, includeFlagged, limit)
	var list []models.ChatMessageView
	if val := args.Get(0); val != nil {
		list = val.([]models.ChatMessageView)
	}
	return list, args.Error(1)
}

type ReminderRepositoryMock struct {
	mock.Mock
}

func (m *ReminderRepositoryMock) Toggle(ctx context.Context, partyID, userID int) (bool, error) {
	args := m.Called(ctx, partyID, userID)
	return args.Bool(0), args.Error(1)
}

func (m *ReminderRepositoryMock) ListSubscribers(ctx context.Context, partyID int) ([]int, error) {
	args := m.Called(ctx, partyID)
	var ids []int
	if val := args.Get(0); val != nil {
		ids = val.([]int)
	}
	return ids, args.Error(1)
}

type CatalogRepositoryMock struct {
	mock.Mock
}

func (m *CatalogRepositoryMock) ResolveDefaultEpisode(ctx context.Context, movieID int) (int, error) {
	args := m.Called(ctx, movieID)
	return args.Int(0), args.Error(1)
}

func (m *CatalogRepositoryMock) GetMovie(ctx context.Context, movieID int) (models.Movie, error) {
	args := m.Called(ctx, movieID)
	var movie models.Movie
	if val := args.Get(0); val != nil {
		movie = val.(models.Movie)
	}
	return movie, args.Error(1)
}

func (m *CatalogRepositoryMock) GetEpisode(ctx context.Context, episodeID int) (models.Episode, error) {
	args := m.Called(ctx, episodeID)
	var episode models.Episode
	if val := args.Get(0); val != nil {
		episode = val.(models.Episode)
	}
	return episode, args.Error(1)
}

type UserRepositoryMock struct {
	mock.Mock
}

func (m *UserRepositoryMock) GetUser(ctx context.Context, userID int) (models.User, error) {
	args := m.Called(ctx, userID)
	var user models.User
	if val := args.Get(0); val != nil {
		user = val.(models.User)
	}
	return user, args.Error(1)
}

func (m *UserRepositoryMock) BulkUsers(ctx context.Context, ids []int) ([]models.User, error) {
	args := m.Called(ctx, ids)
	var users []models.User
	if val := args.Get(0); val != nil {
		users = val.([]models.User)
	}
	return users, args.Error(1)
}

type NotificationRepositoryMock struct {
	mock.Mock
}

func (m *NotificationRepositoryMock) CreateBulk(ctx context.Context, userIDs []int, input models.NotificationInput) ([]models.Notification, error) {
	args := m.Called(ctx, userIDs, input)
	var rows []models.Notification
	if val := args.Get(0); val != nil {
		rows = val.([]models.Notification)
	}
	return rows, args.Error(1)
}

type NotifierMock struct {
	mock.Mock
}

func (m *NotifierMock) DeliverBulk(ctx context.Context, userIDs []int, input models.NotificationInput) error {
	args := m.Called(ctx, userIDs, input)
	return args.Error(0)
}

type ClassifierMock struct {
	mock.Mock
}

func (m *ClassifierMock) Classify(ctx context.Context, text string) toxicity.Result {
	args := m.Called(ctx, text)
	var res toxicity.Result
	if val := args.Get(0); val != nil {
		res = val.(toxicity.Result)
	}
	return res
}

type ResolverMock struct {
	mock.Mock
}

func (m *ResolverMock) Resolve(ctx context.Context, token string) (models.User, error) {
	args := m.Called(ctx, token)
	var user models.User
	if val := args.Get(0); val != nil {
		user = val.(models.User)
	}
	return user, args.Error(1)
}

var _ repositories.PartyRepository = (*PartyRepositoryMock)(nil)
var _ repositories.MemberRepository = (*MemberRepositoryMock)(nil)
var _ repositories.PartyMessageRepository = (*PartyMessageRepositoryMock)(nil)
var _ repositories.ReminderRepository = (*ReminderRepositoryMock)(nil)
var _ repositories.CatalogRepository = (*CatalogRepositoryMock)(nil)
var _ repositories.UserRepository = (*UserRepositoryMock)(nil)
var _ repositories.NotificationRepository = (*NotificationRepositoryMock)(nil)
var _ toxicity.Classifier = (*ClassifierMock)(nil)
