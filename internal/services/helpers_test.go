package services

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"remix-go/internal/config"
	"remix-go/internal/content"
	"remix-go/internal/events"
	"remix-go/internal/models"
	"remix-go/internal/storage"
)

type testEnv struct {
	db  *gorm.DB
	hub *events.Hub

	userRepo  storage.UserRepository
	groupRepo storage.GroupRepository

	auth      AuthService
	users     UserService
	friends   FriendRequestService
	groups    GroupService
	messages  MessageService
	positions ReadPositionService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	return newTestEnvWithDB(t, config.DatabaseConfig{Type: "sqlite", DBName: ":memory:", LogLevel: "silent"})
}

func newTestEnvWithDB(t *testing.T, dbCfg config.DatabaseConfig) *testEnv {
	t.Helper()

	db, err := storage.InitDB(dbCfg)
	require.NoError(t, err)
	require.NoError(t, storage.AutoMigrateTables(db))
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	})

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	logger := zap.NewNop()
	hub := events.NewHub(16, logger)
	go hub.Run(ctx)

	userRepo := storage.NewGormUserRepository(db)
	friendRepo := storage.NewGormFriendRequestRepository(db)
	friendshipRepo := storage.NewGormFriendshipRepository(db)
	groupRepo := storage.NewGormGroupRepository(db)
	chatRepo := storage.NewGormChatRepository(db)
	requestRepo := storage.NewGormGroupRequestRepository(db)
	messageRepo := storage.NewGormMessageRepository(db)
	positionRepo := storage.NewGormReadPositionRepository(db)

	authCfg := config.AuthConfig{JWTSecretKey: "test-secret", JWTExpiry: time.Hour, Issuer: "test"}

	return &testEnv{
		db:        db,
		hub:       hub,
		userRepo:  userRepo,
		groupRepo: groupRepo,
		auth:      NewAuthService(userRepo, nil, authCfg, logger),
		users:     NewUserService(userRepo, friendshipRepo, groupRepo, logger),
		friends:   NewFriendRequestService(db, userRepo, friendRepo, friendshipRepo, hub, logger),
		groups:    NewGroupService(db, groupRepo, chatRepo, userRepo, requestRepo, logger),
		messages:  NewMessageService(db, messageRepo, chatRepo, groupRepo, content.NewRegistry(), hub, logger),
		positions: NewReadPositionService(positionRepo, messageRepo, chatRepo, groupRepo, logger),
	}
}

// createUser 直接写库，避免每个测试都做 bcrypt。
func (e *testEnv) createUser(t *testing.T, username string) *models.User {
	t.Helper()
	user := &models.User{Username: username, Name: username, PasswordHash: "x"}
	created, err := e.userRepo.Create(context.Background(), user)
	require.NoError(t, err)
	require.True(t, created)
	return user
}

// befriend 走完整的请求/接受流程，返回两人的私聊群组。
func (e *testEnv) befriend(t *testing.T, from, to *models.User) *models.Group {
	t.Helper()
	ctx := context.Background()
	req, err := e.friends.CreateFriendRequest(ctx, from.ID, to.ID, "")
	require.NoError(t, err)
	_, err = e.friends.AcceptFriendRequest(ctx, to.ID, req.ID)
	require.NoError(t, err)

	group, err := e.groupRepo.GetGroupByDirectKey(ctx, models.DirectMessageKey(from.ID, to.ID))
	require.NoError(t, err)
	return group
}

// groupWithMembers 创建普通群组，第一个成员加入空群，其余由他拉入。
func (e *testEnv) groupWithMembers(t *testing.T, name string, members ...*models.User) (*models.Group, *models.Chat) {
	t.Helper()
	ctx := context.Background()
	group, err := e.groups.CreateGroup(ctx, name, "", "")
	require.NoError(t, err)
	for i, m := range members {
		actor := members[0]
		if i == 0 {
			actor = m
		}
		require.NoError(t, e.groups.AddMember(ctx, actor.ID, group.ID, m.ID))
	}
	require.Len(t, group.Chats, 1)
	return group, &group.Chats[0]
}

func (e *testEnv) sendText(t *testing.T, author *models.User, chatID uint, text string) *models.Message {
	t.Helper()
	data, err := json.Marshal(map[string]string{"text": text})
	require.NoError(t, err)
	msg, err := e.messages.CreateMessage(context.Background(), author.ID, chatID, content.TypeRemixText, data)
	require.NoError(t, err)
	return msg
}

func textOf(t *testing.T, m models.Message) string {
	t.Helper()
	require.NotNil(t, m.Content, "message %d has no content", m.ID)
	var body content.TextBody
	require.NoError(t, json.Unmarshal(m.Content.Data, &body))
	return body.Text
}

func texts(t *testing.T, msgs []models.Message) []string {
	out := make([]string, 0, len(msgs))
	for _, m := range msgs {
		out = append(out, textOf(t, m))
	}
	return out
}

func userIDs(users []models.User) []uint {
	ids := make([]uint, 0, len(users))
	for _, u := range users {
		ids = append(ids, u.ID)
	}
	return ids
}

func nextEvent(t *testing.T, ch <-chan *events.Event) *events.Event {
	t.Helper()
	select {
	case e := <-ch:
		require.NotNil(t, e)
		return e
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for event")
		return nil
	}
}

func noEvent(t *testing.T, ch <-chan *events.Event) {
	t.Helper()
	select {
	case e := <-ch:
		t.Fatalf("unexpected event %s for user %d", e.Topic, e.UserID)
	case <-time.After(50 * time.Millisecond):
	}
}
