package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"remix-go/internal/apperrors"
	"remix-go/internal/models"
)

func TestCreateGroup(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()

	group, err := e.groups.CreateGroup(ctx, "  book club ", "https://img/icon.png", "books")
	require.NoError(t, err)
	assert.Equal(t, "book club", group.Name)
	assert.False(t, group.IsDirectMessage)

	members, err := e.groups.GetMembers(ctx, group.ID)
	require.NoError(t, err)
	assert.Empty(t, members)

	chats, err := e.groups.GetChats(ctx, group.ID)
	require.NoError(t, err)
	require.Len(t, chats, 1)
	assert.Equal(t, "book club", chats[0].Name)

	_, err = e.groups.CreateGroup(ctx, " ", "", "")
	assert.ErrorIs(t, err, ErrGroupNameRequired)
	assert.Equal(t, apperrors.KindValidation, apperrors.KindOf(err))
}

func TestGetGroupAndChatNotFound(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()

	_, err := e.groups.GetGroup(ctx, 42)
	assert.ErrorIs(t, err, ErrGroupNotFound)
	_, err = e.groups.GetChat(ctx, 42)
	assert.ErrorIs(t, err, ErrChatNotFound)
	_, err = e.groups.GetChats(ctx, 42)
	assert.ErrorIs(t, err, ErrGroupNotFound)
}

func TestMembership(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()
	alice := e.createUser(t, "alice")
	bob := e.createUser(t, "bob")
	mallory := e.createUser(t, "mallory")

	group, err := e.groups.CreateGroup(ctx, "team", "", "")
	require.NoError(t, err)

	// 空群组任何人都可以加入
	require.NoError(t, e.groups.AddMember(ctx, alice.ID, group.ID, alice.ID))
	// 之后只有成员可以拉人
	assert.ErrorIs(t, e.groups.AddMember(ctx, mallory.ID, group.ID, mallory.ID), ErrNotGroupMember)
	require.NoError(t, e.groups.AddMember(ctx, alice.ID, group.ID, bob.ID))
	// 重复添加是幂等的
	require.NoError(t, e.groups.AddMember(ctx, alice.ID, group.ID, bob.ID))

	assert.ErrorIs(t, e.groups.AddMember(ctx, alice.ID, group.ID, 999), ErrUserNotFound)
	assert.ErrorIs(t, e.groups.AddMember(ctx, alice.ID, 999, bob.ID), ErrGroupNotFound)

	members, err := e.groups.GetMembers(ctx, group.ID)
	require.NoError(t, err)
	assert.Equal(t, []uint{alice.ID, bob.ID}, userIDs(members))

	assert.ErrorIs(t, e.groups.RemoveMember(ctx, mallory.ID, group.ID, bob.ID), ErrNotGroupMember)
	require.NoError(t, e.groups.RemoveMember(ctx, bob.ID, group.ID, bob.ID))
	require.NoError(t, e.groups.RemoveMember(ctx, alice.ID, group.ID, alice.ID))

	// 移除最后一个成员后群组仍然存在
	_, err = e.groups.GetGroup(ctx, group.ID)
	assert.NoError(t, err)
	members, err = e.groups.GetMembers(ctx, group.ID)
	require.NoError(t, err)
	assert.Empty(t, members)
}

func TestDirectMessageGroupIsImmutable(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()
	alice := e.createUser(t, "alice")
	bob := e.createUser(t, "bob")
	carol := e.createUser(t, "carol")
	dm := e.befriend(t, alice, bob)

	assert.ErrorIs(t, e.groups.AddMember(ctx, alice.ID, dm.ID, carol.ID), ErrDirectMessageImmutable)
	assert.ErrorIs(t, e.groups.RemoveMember(ctx, alice.ID, dm.ID, bob.ID), ErrDirectMessageImmutable)
	_, err := e.groups.CreateGroupRequest(ctx, carol.ID, dm.ID, "let me in")
	assert.ErrorIs(t, err, ErrDirectMessageImmutable)

	count, err := e.groupRepo.CountMembers(ctx, dm.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(2), count)
}

func TestCreateChat(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()
	alice := e.createUser(t, "alice")
	bob := e.createUser(t, "bob")
	group, _ := e.groupWithMembers(t, "team", alice)

	chat, err := e.groups.CreateChat(ctx, alice.ID, group.ID, "random")
	require.NoError(t, err)
	assert.Equal(t, group.ID, chat.GroupID)

	_, err = e.groups.CreateChat(ctx, bob.ID, group.ID, "intruders")
	assert.ErrorIs(t, err, ErrNotGroupMember)
	_, err = e.groups.CreateChat(ctx, alice.ID, group.ID, "")
	assert.ErrorIs(t, err, ErrChatNameRequired)

	chats, err := e.groups.GetChats(ctx, group.ID)
	require.NoError(t, err)
	assert.Len(t, chats, 2)
}

func TestGroupJoinRequest(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()
	alice := e.createUser(t, "alice")
	bob := e.createUser(t, "bob")
	carol := e.createUser(t, "carol")
	group, _ := e.groupWithMembers(t, "team", alice)

	req, err := e.groups.CreateGroupRequest(ctx, bob.ID, group.ID, "please")
	require.NoError(t, err)
	assert.Equal(t, models.GroupJoinRequest, req.Kind)

	_, err = e.groups.CreateGroupRequest(ctx, bob.ID, group.ID, "again")
	assert.ErrorIs(t, err, ErrGroupRequestExists)
	_, err = e.groups.CreateGroupRequest(ctx, alice.ID, group.ID, "")
	assert.ErrorIs(t, err, ErrAlreadyGroupMember)

	pending, err := e.groups.ListJoinRequests(ctx, alice.ID, group.ID)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	_, err = e.groups.ListJoinRequests(ctx, carol.ID, group.ID)
	assert.ErrorIs(t, err, ErrNotGroupMember)

	// 申请只能由群成员处理
	_, err = e.groups.AcceptGroupRequest(ctx, carol.ID, req.ID)
	assert.ErrorIs(t, err, ErrNotGroupMember)
	_, err = e.groups.AcceptGroupRequest(ctx, bob.ID, req.ID)
	assert.ErrorIs(t, err, ErrNotGroupMember)

	id, err := e.groups.AcceptGroupRequest(ctx, alice.ID, req.ID)
	require.NoError(t, err)
	assert.Equal(t, req.ID, id)

	_, err = e.groups.AcceptGroupRequest(ctx, alice.ID, req.ID)
	assert.ErrorIs(t, err, ErrGroupRequestNotFound)

	members, err := e.groups.GetMembers(ctx, group.ID)
	require.NoError(t, err)
	assert.Equal(t, []uint{alice.ID, bob.ID}, userIDs(members))
}

func TestGroupInvitation(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()
	alice := e.createUser(t, "alice")
	bob := e.createUser(t, "bob")
	carol := e.createUser(t, "carol")
	group, _ := e.groupWithMembers(t, "team", alice)

	_, err := e.groups.CreateGroupInvitation(ctx, carol.ID, bob.ID, group.ID, "join us")
	assert.ErrorIs(t, err, ErrNotGroupMember)
	_, err = e.groups.CreateGroupInvitation(ctx, alice.ID, bob.ID, 999, "join us")
	assert.ErrorIs(t, err, ErrGroupNotFound)
	_, err = e.groups.CreateGroupInvitation(ctx, alice.ID, 999, group.ID, "join us")
	assert.ErrorIs(t, err, ErrUserNotFound)

	inv, err := e.groups.CreateGroupInvitation(ctx, alice.ID, bob.ID, group.ID, "join us")
	require.NoError(t, err)
	assert.Equal(t, models.GroupInvitation, inv.Kind)

	invitations, err := e.groups.ListGroupInvitations(ctx, bob.ID)
	require.NoError(t, err)
	require.Len(t, invitations, 1)
	assert.Equal(t, group.ID, invitations[0].GroupID)

	// 邀请只能由被邀请者接受
	_, err = e.groups.AcceptGroupRequest(ctx, alice.ID, inv.ID)
	assert.ErrorIs(t, err, ErrNotInvitee)

	_, err = e.groups.AcceptGroupRequest(ctx, bob.ID, inv.ID)
	require.NoError(t, err)

	groups, err := e.groups.GetUserGroups(ctx, bob.ID)
	require.NoError(t, err)
	require.Len(t, groups, 1)
	assert.Equal(t, group.ID, groups[0].ID)

	invitations, err = e.groups.ListGroupInvitations(ctx, bob.ID)
	require.NoError(t, err)
	assert.Empty(t, invitations)
}
