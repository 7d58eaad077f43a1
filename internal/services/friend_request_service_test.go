package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"

	"remix-go/internal/apperrors"
	"remix-go/internal/events"
	"remix-go/internal/models"
)

func countDirectGroups(t *testing.T, e *testEnv) int64 {
	t.Helper()
	var n int64
	require.NoError(t, e.db.Model(&models.Group{}).Where("is_direct_message = ?", true).Count(&n).Error)
	return n
}

func TestFriendRequest_AcceptCreatesFriendshipAndDirectGroup(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()

	user1, err := e.auth.CreateUser(ctx, CreateUserInput{Username: "test", Email: "test", Password: "test", Name: "Test User"})
	require.NoError(t, err)
	user2, err := e.auth.CreateUser(ctx, CreateUserInput{Username: "react", Email: "react", Password: "react"})
	require.NoError(t, err)

	incoming, err := e.hub.Subscribe(ctx, events.TopicFriendRequestCreated, user1.ID)
	require.NoError(t, err)

	req, err := e.friends.CreateFriendRequest(ctx, user2.ID, user1.ID, "Hello, World!")
	require.NoError(t, err)

	ev := nextEvent(t, incoming)
	var published models.FriendRequest
	require.NoError(t, ev.Decode(&published))
	assert.Equal(t, req.ID, published.ID)
	assert.Equal(t, "Hello, World!", published.Message)
	require.NotNil(t, published.FromUser)
	assert.Equal(t, user2.ID, published.FromUser.ID)

	accepted, err := e.friends.AcceptFriendRequest(ctx, user1.ID, req.ID)
	require.NoError(t, err)
	assert.Equal(t, req.ID, accepted)

	friends1, err := e.friends.GetFriendsList(ctx, user1.ID)
	require.NoError(t, err)
	friends2, err := e.friends.GetFriendsList(ctx, user2.ID)
	require.NoError(t, err)
	assert.Equal(t, []uint{user2.ID}, userIDs(friends1))
	assert.Equal(t, []uint{user1.ID}, userIDs(friends2))

	for _, u := range []*models.User{user1, user2} {
		groups, err := e.groups.GetUserGroups(ctx, u.ID)
		require.NoError(t, err)
		require.Len(t, groups, 1)
		assert.Equal(t, models.DirectMessageGroupName, groups[0].Name)
		assert.True(t, groups[0].IsDirectMessage)

		members, err := e.groups.GetMembers(ctx, groups[0].ID)
		require.NoError(t, err)
		assert.ElementsMatch(t, []uint{user1.ID, user2.ID}, userIDs(members))

		chats, err := e.groups.GetChats(ctx, groups[0].ID)
		require.NoError(t, err)
		assert.Len(t, chats, 1)
	}

	pending, err := e.friends.ListPendingRequests(ctx, user1.ID)
	require.NoError(t, err)
	assert.Empty(t, pending)
}

func TestFriendRequest_SelfRequestRejected(t *testing.T) {
	e := newTestEnv(t)
	u := e.createUser(t, "alice")

	_, err := e.friends.CreateFriendRequest(context.Background(), u.ID, u.ID, "me")
	assert.ErrorIs(t, err, ErrFriendRequestSelf)
	assert.Equal(t, apperrors.KindConflict, apperrors.KindOf(err))
}

func TestFriendRequest_CreateValidation(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()
	alice := e.createUser(t, "alice")
	bob := e.createUser(t, "bob")

	_, err := e.friends.CreateFriendRequest(ctx, alice.ID, 999, "")
	assert.ErrorIs(t, err, ErrRecipientNotFound)

	_, err = e.friends.CreateFriendRequest(ctx, 999, alice.ID, "")
	assert.ErrorIs(t, err, ErrSenderNotFound)

	_, err = e.friends.CreateFriendRequest(ctx, alice.ID, bob.ID, "hi")
	require.NoError(t, err)

	// 同一对用户，不论方向，只能有一个待处理请求
	_, err = e.friends.CreateFriendRequest(ctx, alice.ID, bob.ID, "again")
	assert.ErrorIs(t, err, ErrFriendRequestExists)
	_, err = e.friends.CreateFriendRequest(ctx, bob.ID, alice.ID, "reverse")
	assert.ErrorIs(t, err, ErrFriendRequestExists)
}

func TestFriendRequest_AlreadyFriends(t *testing.T) {
	e := newTestEnv(t)
	alice := e.createUser(t, "alice")
	bob := e.createUser(t, "bob")
	e.befriend(t, alice, bob)

	_, err := e.friends.CreateFriendRequest(context.Background(), bob.ID, alice.ID, "")
	assert.ErrorIs(t, err, ErrAlreadyFriends)
}

func TestFriendRequest_OnlyRecipientCanAccept(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()
	alice := e.createUser(t, "alice")
	bob := e.createUser(t, "bob")

	req, err := e.friends.CreateFriendRequest(ctx, alice.ID, bob.ID, "")
	require.NoError(t, err)

	_, err = e.friends.AcceptFriendRequest(ctx, alice.ID, req.ID)
	assert.ErrorIs(t, err, ErrNotRecipientOfRequest)
	assert.Equal(t, int64(0), countDirectGroups(t, e))

	_, err = e.friends.AcceptFriendRequest(ctx, bob.ID, 12345)
	assert.ErrorIs(t, err, ErrFriendRequestNotFound)
}

func TestFriendRequest_DoubleAcceptKeepsSingleDirectGroup(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()
	alice := e.createUser(t, "alice")
	bob := e.createUser(t, "bob")

	req, err := e.friends.CreateFriendRequest(ctx, alice.ID, bob.ID, "")
	require.NoError(t, err)

	_, err = e.friends.AcceptFriendRequest(ctx, bob.ID, req.ID)
	require.NoError(t, err)
	_, err = e.friends.AcceptFriendRequest(ctx, bob.ID, req.ID)
	assert.ErrorIs(t, err, ErrFriendRequestNotFound)

	assert.Equal(t, int64(1), countDirectGroups(t, e))
}

// 在 SQLite 上请求是串行执行的，真正的并发由 postgres_test.go 覆盖。
func TestFriendRequest_ConcurrentAcceptCreatesOneDirectGroup(t *testing.T) {
	checkConcurrentAccept(t, newTestEnv(t))
}

func checkConcurrentAccept(t *testing.T, e *testEnv) {
	ctx := context.Background()
	alice := e.createUser(t, "alice")
	bob := e.createUser(t, "bob")

	req, err := e.friends.CreateFriendRequest(ctx, alice.ID, bob.ID, "")
	require.NoError(t, err)

	const attempts = 8
	results := make([]error, attempts)
	var g errgroup.Group
	for i := 0; i < attempts; i++ {
		i := i
		g.Go(func() error {
			_, results[i] = e.friends.AcceptFriendRequest(ctx, bob.ID, req.ID)
			return nil
		})
	}
	require.NoError(t, g.Wait())

	succeeded := 0
	for _, err := range results {
		if err == nil {
			succeeded++
			continue
		}
		assert.ErrorIs(t, err, ErrFriendRequestNotFound)
	}
	assert.Equal(t, 1, succeeded)
	assert.Equal(t, int64(1), countDirectGroups(t, e))

	group, err := e.groupRepo.GetGroupByDirectKey(ctx, models.DirectMessageKey(alice.ID, bob.ID))
	require.NoError(t, err)
	count, err := e.groupRepo.CountMembers(ctx, group.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(2), count)
}

func TestFriendRequest_RejectDeletesRequest(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()
	alice := e.createUser(t, "alice")
	bob := e.createUser(t, "bob")

	req, err := e.friends.CreateFriendRequest(ctx, alice.ID, bob.ID, "")
	require.NoError(t, err)

	assert.ErrorIs(t, e.friends.RejectFriendRequest(ctx, alice.ID, req.ID), ErrNotRecipientOfRequest)
	require.NoError(t, e.friends.RejectFriendRequest(ctx, bob.ID, req.ID))
	assert.ErrorIs(t, e.friends.RejectFriendRequest(ctx, bob.ID, req.ID), ErrFriendRequestNotFound)

	friends, err := e.friends.GetFriendsList(ctx, alice.ID)
	require.NoError(t, err)
	assert.Empty(t, friends)

	// 拒绝后可以重新发起
	_, err = e.friends.CreateFriendRequest(ctx, bob.ID, alice.ID, "retry")
	assert.NoError(t, err)
}

func TestFriendRequest_ListPendingIncludesSender(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()
	alice := e.createUser(t, "alice")
	bob := e.createUser(t, "bob")
	carol := e.createUser(t, "carol")

	_, err := e.friends.CreateFriendRequest(ctx, alice.ID, carol.ID, "from alice")
	require.NoError(t, err)
	_, err = e.friends.CreateFriendRequest(ctx, bob.ID, carol.ID, "from bob")
	require.NoError(t, err)

	pending, err := e.friends.ListPendingRequests(ctx, carol.ID)
	require.NoError(t, err)
	require.Len(t, pending, 2)
	assert.Equal(t, "alice", pending[0].FromUser.Username)
	assert.Equal(t, "bob", pending[1].FromUser.Username)
}
