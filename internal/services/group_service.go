package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"remix-go/internal/apperrors"
	"remix-go/internal/models"
	"remix-go/internal/storage"
)

var (
	ErrGroupNotFound          = apperrors.NotFound("群组不存在")
	ErrChatNotFound           = apperrors.NotFound("聊天不存在")
	ErrNotGroupMember         = apperrors.Authorization("您不是该群组的成员")
	ErrDirectMessageImmutable = apperrors.Authorization("私聊群组的成员不能修改")
	ErrGroupNameRequired      = apperrors.Validation("群组名称不能为空")
	ErrChatNameRequired       = apperrors.Validation("聊天名称不能为空")
	ErrAlreadyGroupMember     = apperrors.Conflict("用户已经是群组成员")
	ErrGroupRequestExists     = apperrors.Conflict("已存在待处理的入群请求或邀请")
	ErrGroupRequestNotFound   = apperrors.NotFound("入群请求或邀请不存在")
	ErrNotInvitee             = apperrors.Authorization("您不是此邀请的接收者")
)

// GroupService 定义了群组、成员、聊天和入群流程的操作接口。
type GroupService interface {
	CreateGroup(ctx context.Context, name, iconURL, description string) (*models.Group, error)
	GetGroup(ctx context.Context, groupID uint) (*models.Group, error)
	GetChat(ctx context.Context, chatID uint) (*models.Chat, error)
	GetChats(ctx context.Context, groupID uint) ([]models.Chat, error)
	GetMembers(ctx context.Context, groupID uint) ([]models.User, error)
	GetUserGroups(ctx context.Context, userID uint) ([]models.Group, error)
	CreateChat(ctx context.Context, actorID, groupID uint, name string) (*models.Chat, error)

	AddMember(ctx context.Context, actorID, groupID, userID uint) error
	RemoveMember(ctx context.Context, actorID, groupID, userID uint) error

	CreateGroupRequest(ctx context.Context, fromUserID, groupID uint, message string) (*models.GroupRequest, error)
	CreateGroupInvitation(ctx context.Context, fromUserID, toUserID, groupID uint, message string) (*models.GroupRequest, error)
	// AcceptGroupRequest 同时处理入群申请和邀请，返回请求 ID。
	AcceptGroupRequest(ctx context.Context, actorID, requestID uint) (uint, error)
	ListGroupInvitations(ctx context.Context, userID uint) ([]models.GroupRequest, error)
	ListJoinRequests(ctx context.Context, actorID, groupID uint) ([]models.GroupRequest, error)
}

type groupService struct {
	db          *gorm.DB
	groupRepo   storage.GroupRepository
	chatRepo    storage.ChatRepository
	userRepo    storage.UserRepository
	requestRepo storage.GroupRequestRepository
	logger      *zap.Logger
}

// NewGroupService 创建一个新的 GroupService 实例。
func NewGroupService(
	db *gorm.DB,
	groupRepo storage.GroupRepository,
	chatRepo storage.ChatRepository,
	userRepo storage.UserRepository,
	requestRepo storage.GroupRequestRepository,
	logger *zap.Logger,
) GroupService {
	return &groupService{
		db:          db,
		groupRepo:   groupRepo,
		chatRepo:    chatRepo,
		userRepo:    userRepo,
		requestRepo: requestRepo,
		logger:      logger,
	}
}

// CreateGroup 创建一个没有成员的普通群组，并创建与群组同名的默认聊天。
func (s *groupService) CreateGroup(ctx context.Context, name, iconURL, description string) (*models.Group, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, ErrGroupNameRequired
	}

	group := &models.Group{
		Name:        name,
		IconURL:     iconURL,
		Description: description,
	}
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := storage.NewGormGroupRepository(tx).CreateGroup(ctx, group); err != nil {
			return fmt.Errorf("创建群组失败: %w", err)
		}
		chat := &models.Chat{GroupID: group.ID, Name: name}
		if err := storage.NewGormChatRepository(tx).Create(ctx, chat); err != nil {
			return fmt.Errorf("创建默认聊天失败: %w", err)
		}
		group.Chats = []models.Chat{*chat}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("群组已创建", zap.Uint("groupID", group.ID), zap.String("name", name))
	return group, nil
}

func (s *groupService) GetGroup(ctx context.Context, groupID uint) (*models.Group, error) {
	return s.loadGroup(ctx, s.groupRepo, groupID)
}

func (s *groupService) GetChat(ctx context.Context, chatID uint) (*models.Chat, error) {
	chat, err := s.chatRepo.GetByID(ctx, chatID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrChatNotFound
		}
		return nil, fmt.Errorf("获取聊天 %d 失败: %w", chatID, err)
	}
	return chat, nil
}

func (s *groupService) GetChats(ctx context.Context, groupID uint) ([]models.Chat, error) {
	if _, err := s.GetGroup(ctx, groupID); err != nil {
		return nil, err
	}
	chats, err := s.chatRepo.ListByGroup(ctx, groupID)
	if err != nil {
		return nil, fmt.Errorf("获取群组 %d 的聊天失败: %w", groupID, err)
	}
	return chats, nil
}

// GetMembers 返回群组成员，按加入时间排序。
func (s *groupService) GetMembers(ctx context.Context, groupID uint) ([]models.User, error) {
	if _, err := s.GetGroup(ctx, groupID); err != nil {
		return nil, err
	}
	members, err := s.groupRepo.GetGroupMembers(ctx, groupID)
	if err != nil {
		return nil, fmt.Errorf("获取群组 %d 的成员失败: %w", groupID, err)
	}
	users := make([]models.User, 0, len(members))
	for _, m := range members {
		if m.User != nil {
			users = append(users, *m.User)
		}
	}
	return users, nil
}

func (s *groupService) GetUserGroups(ctx context.Context, userID uint) ([]models.Group, error) {
	groups, err := s.groupRepo.GetUserGroups(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("获取用户 %d 的群组失败: %w", userID, err)
	}
	return groups, nil
}

// CreateChat 在已有群组中新建聊天，只有成员可以操作。
func (s *groupService) CreateChat(ctx context.Context, actorID, groupID uint, name string) (*models.Chat, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, ErrChatNameRequired
	}
	if _, err := s.GetGroup(ctx, groupID); err != nil {
		return nil, err
	}
	if err := s.requireMember(ctx, s.groupRepo, groupID, actorID); err != nil {
		return nil, err
	}

	chat := &models.Chat{GroupID: groupID, Name: name}
	if err := s.chatRepo.Create(ctx, chat); err != nil {
		return nil, fmt.Errorf("创建聊天失败: %w", err)
	}
	s.logger.Info("聊天已创建", zap.Uint("chatID", chat.ID), zap.Uint("groupID", groupID), zap.Uint("actorID", actorID))
	return chat, nil
}

// AddMember 添加成员，已是成员时不报错。空群组允许任何已登录用户加入或拉人，
// 非空群组只接受成员的操作。私聊群组的成员不可修改。
func (s *groupService) AddMember(ctx context.Context, actorID, groupID, userID uint) error {
	group, err := s.GetGroup(ctx, groupID)
	if err != nil {
		return err
	}
	if group.IsDirectMessage {
		return ErrDirectMessageImmutable
	}
	if err := s.requireUser(ctx, userID); err != nil {
		return err
	}
	if err := s.requireMemberUnlessEmpty(ctx, groupID, actorID); err != nil {
		return err
	}

	added, err := s.groupRepo.AddMember(ctx, groupID, userID, models.MemberRole)
	if err != nil {
		return fmt.Errorf("添加成员失败: %w", err)
	}
	if added {
		s.logger.Info("成员已加入群组", zap.Uint("groupID", groupID), zap.Uint("userID", userID), zap.Uint("actorID", actorID))
	}
	return nil
}

// RemoveMember 移除成员。移除最后一个成员不会删除群组。
func (s *groupService) RemoveMember(ctx context.Context, actorID, groupID, userID uint) error {
	group, err := s.GetGroup(ctx, groupID)
	if err != nil {
		return err
	}
	if group.IsDirectMessage {
		return ErrDirectMessageImmutable
	}
	if err := s.requireMember(ctx, s.groupRepo, groupID, actorID); err != nil {
		return err
	}

	removed, err := s.groupRepo.RemoveMember(ctx, groupID, userID)
	if err != nil {
		return fmt.Errorf("移除成员失败: %w", err)
	}
	if removed {
		s.logger.Info("成员已移出群组", zap.Uint("groupID", groupID), zap.Uint("userID", userID), zap.Uint("actorID", actorID))
	}
	return nil
}

// CreateGroupRequest 由用户申请加入群组。
func (s *groupService) CreateGroupRequest(ctx context.Context, fromUserID, groupID uint, message string) (*models.GroupRequest, error) {
	request := &models.GroupRequest{
		Kind:       models.GroupJoinRequest,
		GroupID:    groupID,
		FromUserID: fromUserID,
		ToUserID:   fromUserID,
		Message:    message,
	}
	if err := s.createGroupRequest(ctx, request); err != nil {
		return nil, err
	}
	return request, nil
}

// CreateGroupInvitation 由群成员邀请 toUserID 加入群组。
func (s *groupService) CreateGroupInvitation(ctx context.Context, fromUserID, toUserID, groupID uint, message string) (*models.GroupRequest, error) {
	if _, err := s.GetGroup(ctx, groupID); err != nil {
		return nil, err
	}
	if err := s.requireMember(ctx, s.groupRepo, groupID, fromUserID); err != nil {
		return nil, err
	}
	request := &models.GroupRequest{
		Kind:       models.GroupInvitation,
		GroupID:    groupID,
		FromUserID: fromUserID,
		ToUserID:   toUserID,
		Message:    message,
	}
	if err := s.createGroupRequest(ctx, request); err != nil {
		return nil, err
	}
	return request, nil
}

func (s *groupService) createGroupRequest(ctx context.Context, request *models.GroupRequest) error {
	group, err := s.GetGroup(ctx, request.GroupID)
	if err != nil {
		return err
	}
	if group.IsDirectMessage {
		return ErrDirectMessageImmutable
	}
	if err := s.requireUser(ctx, request.ToUserID); err != nil {
		return err
	}
	isMember, err := s.groupRepo.IsMember(ctx, request.GroupID, request.ToUserID)
	if err != nil {
		return fmt.Errorf("检查成员关系失败: %w", err)
	}
	if isMember {
		return ErrAlreadyGroupMember
	}

	created, err := s.requestRepo.CreateIfAbsent(ctx, request)
	if err != nil {
		return fmt.Errorf("保存入群请求失败: %w", err)
	}
	if !created {
		return ErrGroupRequestExists
	}
	s.logger.Info("入群请求已创建",
		zap.String("kind", string(request.Kind)),
		zap.Uint("requestID", request.ID),
		zap.Uint("groupID", request.GroupID),
		zap.Uint("fromUserID", request.FromUserID),
		zap.Uint("toUserID", request.ToUserID))
	return nil
}

// AcceptGroupRequest 在一个事务中消费请求并添加成员。
// 申请可以由任一群成员接受，邀请只能由被邀请者接受。
func (s *groupService) AcceptGroupRequest(ctx context.Context, actorID, requestID uint) (uint, error) {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		txRequestRepo := storage.NewGormGroupRequestRepository(tx)
		txGroupRepo := storage.NewGormGroupRepository(tx)

		request, err := txRequestRepo.GetByID(ctx, requestID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrGroupRequestNotFound
			}
			return fmt.Errorf("检索入群请求失败: %w", err)
		}

		switch request.Kind {
		case models.GroupInvitation:
			if request.ToUserID != actorID {
				return ErrNotInvitee
			}
		default:
			if err := s.requireMember(ctx, txGroupRepo, request.GroupID, actorID); err != nil {
				return err
			}
		}

		deleted, err := txRequestRepo.Delete(ctx, requestID)
		if err != nil {
			return fmt.Errorf("删除入群请求失败: %w", err)
		}
		if !deleted {
			return ErrGroupRequestNotFound
		}
		if _, err := txGroupRepo.AddMember(ctx, request.GroupID, request.ToUserID, models.MemberRole); err != nil {
			return fmt.Errorf("添加成员失败: %w", err)
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	s.logger.Info("入群请求已接受", zap.Uint("requestID", requestID), zap.Uint("actorID", actorID))
	return requestID, nil
}

func (s *groupService) ListGroupInvitations(ctx context.Context, userID uint) ([]models.GroupRequest, error) {
	invitations, err := s.requestRepo.ListInvitationsFor(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("获取入群邀请失败: %w", err)
	}
	return invitations, nil
}

// ListJoinRequests 返回群组收到的入群申请，只有成员可以查看。
func (s *groupService) ListJoinRequests(ctx context.Context, actorID, groupID uint) ([]models.GroupRequest, error) {
	if _, err := s.GetGroup(ctx, groupID); err != nil {
		return nil, err
	}
	if err := s.requireMember(ctx, s.groupRepo, groupID, actorID); err != nil {
		return nil, err
	}
	requests, err := s.requestRepo.ListJoinRequestsFor(ctx, groupID)
	if err != nil {
		return nil, fmt.Errorf("获取入群申请失败: %w", err)
	}
	return requests, nil
}

func (s *groupService) loadGroup(ctx context.Context, repo storage.GroupRepository, groupID uint) (*models.Group, error) {
	group, err := repo.GetGroupByID(ctx, groupID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrGroupNotFound
		}
		return nil, fmt.Errorf("获取群组 %d 失败: %w", groupID, err)
	}
	return group, nil
}

func (s *groupService) requireMember(ctx context.Context, repo storage.GroupRepository, groupID, userID uint) error {
	isMember, err := repo.IsMember(ctx, groupID, userID)
	if err != nil {
		return fmt.Errorf("检查成员关系失败: %w", err)
	}
	if !isMember {
		return ErrNotGroupMember
	}
	return nil
}

func (s *groupService) requireMemberUnlessEmpty(ctx context.Context, groupID, userID uint) error {
	count, err := s.groupRepo.CountMembers(ctx, groupID)
	if err != nil {
		return fmt.Errorf("统计群组成员失败: %w", err)
	}
	if count == 0 {
		return nil
	}
	return s.requireMember(ctx, s.groupRepo, groupID, userID)
}

func (s *groupService) requireUser(ctx context.Context, userID uint) error {
	exists, err := s.userRepo.Exists(ctx, userID)
	if err != nil {
		return fmt.Errorf("检查用户失败: %w", err)
	}
	if !exists {
		return ErrUserNotFound
	}
	return nil
}
