package services

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"remix-go/internal/apperrors"
	"remix-go/internal/events"
	"remix-go/internal/models"
	"remix-go/internal/storage"
)

var (
	ErrFriendRequestSelf     = apperrors.Conflict("不能添加自己为好友")
	ErrFriendRequestExists   = apperrors.Conflict("已存在待处理的好友请求")
	ErrSenderNotFound        = apperrors.NotFound("发送用户不存在")
	ErrRecipientNotFound     = apperrors.NotFound("接收用户不存在")
	ErrAlreadyFriends        = apperrors.Conflict("你们已经是好友了")
	ErrFriendRequestNotFound = apperrors.NotFound("好友请求不存在")
	ErrNotRecipientOfRequest = apperrors.Authorization("您不是此好友请求的接收者")
)

// FriendRequestService defines the interface for friend request operations.
type FriendRequestService interface {
	CreateFriendRequest(ctx context.Context, fromUserID, toUserID uint, message string) (*models.FriendRequest, error)
	// AcceptFriendRequest 在一个事务中消费请求、建立好友关系并创建私聊群组，返回请求 ID。
	AcceptFriendRequest(ctx context.Context, recipientUserID uint, requestID uint) (uint, error)
	RejectFriendRequest(ctx context.Context, recipientUserID uint, requestID uint) error
	ListPendingRequests(ctx context.Context, userID uint) ([]models.FriendRequest, error)
	GetFriendsList(ctx context.Context, userID uint) ([]models.User, error)
}

type friendRequestService struct {
	db             *gorm.DB
	userRepo       storage.UserRepository
	friendRepo     storage.FriendRequestRepository
	friendshipRepo storage.FriendshipRepository
	publisher      events.Publisher
	logger         *zap.Logger
}

// NewFriendRequestService creates a new FriendRequestService instance.
func NewFriendRequestService(
	db *gorm.DB,
	userRepo storage.UserRepository,
	friendRepo storage.FriendRequestRepository,
	friendshipRepo storage.FriendshipRepository,
	publisher events.Publisher,
	logger *zap.Logger,
) FriendRequestService {
	return &friendRequestService{
		db:             db,
		userRepo:       userRepo,
		friendRepo:     friendRepo,
		friendshipRepo: friendshipRepo,
		publisher:      publisher,
		logger:         logger,
	}
}

// CreateFriendRequest 创建待处理的好友请求，并通知接收者。
// 同一对用户（不论方向）最多只有一个待处理请求，由 pair_key 唯一索引保证。
func (s *friendRequestService) CreateFriendRequest(ctx context.Context, fromUserID, toUserID uint, message string) (*models.FriendRequest, error) {
	if fromUserID == toUserID {
		return nil, ErrFriendRequestSelf
	}

	sender, err := s.userRepo.GetByID(ctx, fromUserID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrSenderNotFound
		}
		return nil, fmt.Errorf("检查发送用户时出错: %w", err)
	}
	if exists, err := s.userRepo.Exists(ctx, toUserID); err != nil {
		return nil, fmt.Errorf("检查接收用户时出错: %w", err)
	} else if !exists {
		return nil, ErrRecipientNotFound
	}

	areFriends, err := s.friendshipRepo.AreUsersFriends(ctx, fromUserID, toUserID)
	if err != nil {
		return nil, fmt.Errorf("检查好友关系时出错: %w", err)
	}
	if areFriends {
		return nil, ErrAlreadyFriends
	}

	request := &models.FriendRequest{
		FromUserID: fromUserID,
		ToUserID:   toUserID,
		Message:    message,
	}
	created, err := s.friendRepo.CreateIfAbsent(ctx, request)
	if err != nil {
		return nil, fmt.Errorf("保存好友请求失败: %w", err)
	}
	if !created {
		return nil, ErrFriendRequestExists
	}

	request.FromUser = &models.UserBasicInfo{
		ID:       sender.ID,
		Username: sender.Username,
		Name:     sender.Name,
		IconURL:  sender.IconURL,
		Color:    sender.Color,
	}
	s.logger.Info("好友请求已创建",
		zap.Uint("requestID", request.ID),
		zap.Uint("fromUserID", fromUserID),
		zap.Uint("toUserID", toUserID))

	notify(ctx, s.publisher, s.logger, events.TopicFriendRequestCreated, []uint{toUserID}, request)
	return request, nil
}

func (s *friendRequestService) AcceptFriendRequest(ctx context.Context, recipientUserID uint, requestID uint) (uint, error) {
	var dmGroupID uint
	var dmCreated bool

	txErr := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		txFriendRepo := storage.NewGormFriendRequestRepository(tx)
		txFriendshipRepo := storage.NewGormFriendshipRepository(tx)
		txGroupRepo := storage.NewGormGroupRepository(tx)
		txChatRepo := storage.NewGormChatRepository(tx)

		// 1. 查找请求
		request, err := txFriendRepo.GetByID(ctx, requestID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrFriendRequestNotFound
			}
			return fmt.Errorf("检索好友请求失败: %w", err)
		}
		if request.ToUserID != recipientUserID {
			return ErrNotRecipientOfRequest
		}

		// 2. 消费请求。并发接受时只有一个事务能删除成功
		deleted, err := txFriendRepo.Delete(ctx, requestID)
		if err != nil {
			return fmt.Errorf("删除好友请求失败: %w", err)
		}
		if !deleted {
			return ErrFriendRequestNotFound
		}

		// 3. 建立双向好友关系
		if _, err := txFriendshipRepo.CreateIfAbsent(ctx, request.FromUserID, request.ToUserID); err != nil {
			return fmt.Errorf("创建好友关系失败: %w", err)
		}

		// 4. 私聊群组，每对好友只有一个
		key := models.DirectMessageKey(request.FromUserID, request.ToUserID)
		group := &models.Group{
			Name:            models.DirectMessageGroupName,
			IsDirectMessage: true,
			DirectKey:       &key,
		}
		created, err := txGroupRepo.CreateDirectGroupIfAbsent(ctx, group)
		if err != nil {
			return fmt.Errorf("创建私聊群组失败: %w", err)
		}
		if !created {
			return nil
		}
		for _, userID := range []uint{request.FromUserID, request.ToUserID} {
			if _, err := txGroupRepo.AddMember(ctx, group.ID, userID, models.MemberRole); err != nil {
				return fmt.Errorf("添加私聊群组成员失败: %w", err)
			}
		}
		chat := &models.Chat{GroupID: group.ID, Name: models.DirectMessageGroupName}
		if err := txChatRepo.Create(ctx, chat); err != nil {
			return fmt.Errorf("创建私聊聊天失败: %w", err)
		}
		dmGroupID, dmCreated = group.ID, true
		return nil
	})
	if txErr != nil {
		return 0, txErr
	}

	s.logger.Info("好友请求已接受",
		zap.Uint("requestID", requestID),
		zap.Uint("recipientUserID", recipientUserID),
		zap.Bool("dmGroupCreated", dmCreated),
		zap.Uint("dmGroupID", dmGroupID))
	return requestID, nil
}

// RejectFriendRequest 删除请求，只有接收者可以拒绝。
func (s *friendRequestService) RejectFriendRequest(ctx context.Context, recipientUserID uint, requestID uint) error {
	request, err := s.friendRepo.GetByID(ctx, requestID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrFriendRequestNotFound
		}
		return fmt.Errorf("检索好友请求失败: %w", err)
	}
	if request.ToUserID != recipientUserID {
		return ErrNotRecipientOfRequest
	}

	deleted, err := s.friendRepo.Delete(ctx, requestID)
	if err != nil {
		return fmt.Errorf("删除好友请求失败: %w", err)
	}
	if !deleted {
		return ErrFriendRequestNotFound
	}
	s.logger.Info("好友请求已拒绝", zap.Uint("requestID", requestID), zap.Uint("recipientUserID", recipientUserID))
	return nil
}

// ListPendingRequests 返回发给 userID 的待处理请求，附带发送者信息。
func (s *friendRequestService) ListPendingRequests(ctx context.Context, userID uint) ([]models.FriendRequest, error) {
	requests, err := s.friendRepo.ListForRecipient(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("获取待处理好友请求失败: %w", err)
	}
	if len(requests) == 0 {
		return requests, nil
	}

	senderIDs := make([]uint, 0, len(requests))
	for _, r := range requests {
		senderIDs = append(senderIDs, r.FromUserID)
	}
	senders, err := s.userRepo.GetByIDs(ctx, senderIDs)
	if err != nil {
		return nil, fmt.Errorf("获取请求发送者信息失败: %w", err)
	}
	byID := make(map[uint]*models.UserBasicInfo, len(senders))
	for _, u := range senders {
		byID[u.ID] = &models.UserBasicInfo{ID: u.ID, Username: u.Username, Name: u.Name, IconURL: u.IconURL, Color: u.Color}
	}
	for i := range requests {
		requests[i].FromUser = byID[requests[i].FromUserID]
	}
	return requests, nil
}

// GetFriendsList 返回好友，按 ID 升序。
func (s *friendRequestService) GetFriendsList(ctx context.Context, userID uint) ([]models.User, error) {
	friendIDs, err := s.friendshipRepo.GetFriendIDs(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("获取好友列表失败: %w", err)
	}
	friends, err := s.userRepo.GetByIDs(ctx, friendIDs)
	if err != nil {
		return nil, fmt.Errorf("获取好友信息失败: %w", err)
	}
	return friends, nil
}
