package services

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"remix-go/internal/content"
	"remix-go/internal/events"
	"remix-go/internal/models"
)

func TestNotify_IgnoresCanceledRequestContext(t *testing.T) {
	e := newTestEnv(t)
	feed, err := e.hub.Subscribe(context.Background(), events.TopicMessageCreated, 7)
	require.NoError(t, err)

	canceled, cancel := context.WithCancel(context.Background())
	cancel()

	for i := 0; i < 50; i++ {
		notify(canceled, e.hub, zap.NewNop(), events.TopicMessageCreated, []uint{7}, map[string]int{"n": i})
		var got map[string]int
		require.NoError(t, nextEvent(t, feed).Decode(&got))
		assert.Equal(t, i, got["n"])
	}
}

// 在消息事务提交之后、成员查询之前取消请求的 ctx。
func TestCreateMessage_FanOutSurvivesCallerCancel(t *testing.T) {
	e := newTestEnv(t)
	alice := e.createUser(t, "alice")
	bob := e.createUser(t, "bob")
	_, chat := e.groupWithMembers(t, "team", alice, bob)

	aliceFeed, err := e.hub.Subscribe(context.Background(), events.TopicMessageCreated, alice.ID)
	require.NoError(t, err)
	bobFeed, err := e.hub.Subscribe(context.Background(), events.TopicMessageCreated, bob.ID)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	committed := false
	require.NoError(t, e.db.Callback().Create().After("gorm:create").Register("test:mark_message", func(db *gorm.DB) {
		if db.Statement.Table == "messages" {
			committed = true
		}
	}))
	require.NoError(t, e.db.Callback().Query().Before("gorm:query").Register("test:cancel_caller", func(db *gorm.DB) {
		if committed && db.Statement.Table == "group_members" {
			cancel()
		}
	}))

	msg, err := e.messages.CreateMessage(ctx, alice.ID, chat.ID, content.TypeText, json.RawMessage(`{"text":"still delivered"}`))
	require.NoError(t, err)
	require.ErrorIs(t, ctx.Err(), context.Canceled)

	for _, feed := range []<-chan *events.Event{aliceFeed, bobFeed} {
		var got models.Message
		require.NoError(t, nextEvent(t, feed).Decode(&got))
		assert.Equal(t, msg.ID, got.ID)
	}
}

func TestCreateFriendRequest_FanOutSurvivesCallerCancel(t *testing.T) {
	e := newTestEnv(t)
	alice := e.createUser(t, "alice")
	bob := e.createUser(t, "bob")

	bobFeed, err := e.hub.Subscribe(context.Background(), events.TopicFriendRequestCreated, bob.ID)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, e.db.Callback().Create().After("gorm:commit_or_rollback_transaction").Register("test:cancel_caller", func(db *gorm.DB) {
		if db.Statement.Table == "friend_requests" && db.Error == nil {
			cancel()
		}
	}))

	req, err := e.friends.CreateFriendRequest(ctx, alice.ID, bob.ID, "hi")
	require.NoError(t, err)
	require.ErrorIs(t, ctx.Err(), context.Canceled)

	var got models.FriendRequest
	require.NoError(t, nextEvent(t, bobFeed).Decode(&got))
	assert.Equal(t, req.ID, got.ID)
}
