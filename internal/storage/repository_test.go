package storage

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"remix-go/internal/config"
	"remix-go/internal/models"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := InitDB(config.DatabaseConfig{Type: "sqlite", DBName: ":memory:", LogLevel: "silent"})
	require.NoError(t, err)
	require.NoError(t, AutoMigrateTables(db))
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	})
	return db
}

func createUsers(t *testing.T, db *gorm.DB, names ...string) []uint {
	t.Helper()
	repo := NewGormUserRepository(db)
	ids := make([]uint, 0, len(names))
	for _, name := range names {
		u := &models.User{Username: name, PasswordHash: "x"}
		created, err := repo.Create(context.Background(), u)
		require.NoError(t, err)
		require.True(t, created)
		ids = append(ids, u.ID)
	}
	return ids
}

func TestUserRepository_CreateReportsConflict(t *testing.T) {
	db := newTestDB(t)
	repo := NewGormUserRepository(db)
	ctx := context.Background()
	createUsers(t, db, "alice")

	created, err := repo.Create(ctx, &models.User{Username: "alice", PasswordHash: "y"})
	require.NoError(t, err)
	assert.False(t, created)

	_, err = repo.GetByUsername(ctx, "nobody")
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

func TestFriendshipRepository_Unordered(t *testing.T) {
	db := newTestDB(t)
	repo := NewGormFriendshipRepository(db)
	ctx := context.Background()
	ids := createUsers(t, db, "a", "b", "c")

	created, err := repo.CreateIfAbsent(ctx, ids[1], ids[0])
	require.NoError(t, err)
	assert.True(t, created)

	created, err = repo.CreateIfAbsent(ctx, ids[0], ids[1])
	require.NoError(t, err)
	assert.False(t, created, "same pair in the other order")

	_, err = repo.CreateIfAbsent(ctx, ids[2], ids[1])
	require.NoError(t, err)

	friends, err := repo.AreUsersFriends(ctx, ids[0], ids[1])
	require.NoError(t, err)
	assert.True(t, friends)

	got, err := repo.GetFriendIDs(ctx, ids[1])
	require.NoError(t, err)
	assert.Equal(t, []uint{ids[0], ids[2]}, got)
}

func TestFriendRequestRepository_OnePendingPerPair(t *testing.T) {
	db := newTestDB(t)
	repo := NewGormFriendRequestRepository(db)
	ctx := context.Background()
	ids := createUsers(t, db, "a", "b")

	first := &models.FriendRequest{FromUserID: ids[0], ToUserID: ids[1]}
	created, err := repo.CreateIfAbsent(ctx, first)
	require.NoError(t, err)
	assert.True(t, created)

	created, err = repo.CreateIfAbsent(ctx, &models.FriendRequest{FromUserID: ids[1], ToUserID: ids[0]})
	require.NoError(t, err)
	assert.False(t, created)

	deleted, err := repo.Delete(ctx, first.ID)
	require.NoError(t, err)
	assert.True(t, deleted)

	deleted, err = repo.Delete(ctx, first.ID)
	require.NoError(t, err)
	assert.False(t, deleted)
}

func TestChatRepository_NextSeq(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	groupRepo := NewGormGroupRepository(db)
	chatRepo := NewGormChatRepository(db)

	group := &models.Group{Name: "g"}
	require.NoError(t, groupRepo.CreateGroup(ctx, group))
	chat := &models.Chat{GroupID: group.ID, Name: "g"}
	require.NoError(t, chatRepo.Create(ctx, chat))

	for want := int64(1); want <= 3; want++ {
		seq, err := chatRepo.NextSeq(ctx, chat.ID)
		require.NoError(t, err)
		assert.Equal(t, want, seq)
	}

	_, err := chatRepo.NextSeq(ctx, chat.ID+100)
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

func TestGroupRepository_Membership(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	repo := NewGormGroupRepository(db)
	ids := createUsers(t, db, "a", "b", "c")

	g1 := &models.Group{Name: "one"}
	g2 := &models.Group{Name: "two"}
	require.NoError(t, repo.CreateGroup(ctx, g1))
	require.NoError(t, repo.CreateGroup(ctx, g2))

	for _, m := range []struct{ group, user uint }{
		{g1.ID, ids[0]}, {g1.ID, ids[1]}, {g2.ID, ids[0]}, {g2.ID, ids[2]}, {g2.ID, ids[1]},
	} {
		added, err := repo.AddMember(ctx, m.group, m.user, models.MemberRole)
		require.NoError(t, err)
		assert.True(t, added)
	}
	added, err := repo.AddMember(ctx, g1.ID, ids[0], models.MemberRole)
	require.NoError(t, err)
	assert.False(t, added)

	co, err := repo.GetCoMemberIDs(ctx, ids[0])
	require.NoError(t, err)
	assert.Equal(t, []uint{ids[1], ids[2]}, co)

	removed, err := repo.RemoveMember(ctx, g2.ID, ids[2])
	require.NoError(t, err)
	assert.True(t, removed)

	n, err := repo.CountMembers(ctx, g2.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	groups, err := repo.GetUserGroups(ctx, ids[1])
	require.NoError(t, err)
	assert.Len(t, groups, 2)
}

func TestGroupRequestRepository_Dedup(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	repo := NewGormGroupRequestRepository(db)

	inv := &models.GroupRequest{Kind: models.GroupInvitation, GroupID: 1, FromUserID: 2, ToUserID: 3}
	created, err := repo.CreateIfAbsent(ctx, inv)
	require.NoError(t, err)
	assert.True(t, created)

	created, err = repo.CreateIfAbsent(ctx, &models.GroupRequest{Kind: models.GroupInvitation, GroupID: 1, FromUserID: 4, ToUserID: 3})
	require.NoError(t, err)
	assert.False(t, created)

	created, err = repo.CreateIfAbsent(ctx, &models.GroupRequest{Kind: models.GroupJoinRequest, GroupID: 1, FromUserID: 3, ToUserID: 3})
	require.NoError(t, err)
	assert.True(t, created)

	invitations, err := repo.ListInvitationsFor(ctx, 3)
	require.NoError(t, err)
	assert.Len(t, invitations, 1)

	joins, err := repo.ListJoinRequestsFor(ctx, 1)
	require.NoError(t, err)
	assert.Len(t, joins, 1)
}

func TestReadPositionRepository_Advance(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	repo := NewGormReadPositionRepository(db)

	pos, err := repo.Advance(ctx, 1, 1, 20, 2)
	require.NoError(t, err)
	assert.Equal(t, uint(20), pos.MessageID)

	pos, err = repo.Advance(ctx, 1, 1, 10, 1)
	require.NoError(t, err)
	assert.Equal(t, uint(20), pos.MessageID, "older message does not move the position back")

	pos, err = repo.Advance(ctx, 1, 1, 30, 3)
	require.NoError(t, err)
	assert.Equal(t, uint(30), pos.MessageID)
}
