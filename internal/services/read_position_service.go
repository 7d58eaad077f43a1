package services

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"remix-go/internal/apperrors"
	"remix-go/internal/models"
	"remix-go/internal/storage"
)

var ErrReadPositionNotFound = apperrors.NotFound("尚无已读位置")

// ReadPositionService 维护每个用户在每个聊天中的已读位置。
type ReadPositionService interface {
	// UpdateReadPosition 把已读位置推进到 messageID。位置只会向前移动，
	// 重复调用或使用更旧的消息不会改变已存储的位置。
	UpdateReadPosition(ctx context.Context, userID, messageID uint) (*models.ReadPosition, error)
	GetReadPosition(ctx context.Context, userID, chatID uint) (*models.ReadPosition, error)
}

type readPositionService struct {
	positionRepo storage.ReadPositionRepository
	messageRepo  storage.MessageRepository
	chatRepo     storage.ChatRepository
	groupRepo    storage.GroupRepository
	logger       *zap.Logger
}

// NewReadPositionService 创建一个新的 ReadPositionService 实例。
func NewReadPositionService(
	positionRepo storage.ReadPositionRepository,
	messageRepo storage.MessageRepository,
	chatRepo storage.ChatRepository,
	groupRepo storage.GroupRepository,
	logger *zap.Logger,
) ReadPositionService {
	return &readPositionService{
		positionRepo: positionRepo,
		messageRepo:  messageRepo,
		chatRepo:     chatRepo,
		groupRepo:    groupRepo,
		logger:       logger,
	}
}

func (s *readPositionService) UpdateReadPosition(ctx context.Context, userID, messageID uint) (*models.ReadPosition, error) {
	message, err := s.messageRepo.GetByID(ctx, messageID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrMessageNotFound
		}
		return nil, fmt.Errorf("获取消息 %d 失败: %w", messageID, err)
	}
	if err := s.requireChatMember(ctx, userID, message.ChatID); err != nil {
		return nil, err
	}

	position, err := s.positionRepo.Advance(ctx, userID, message.ChatID, message.ID, message.Seq)
	if err != nil {
		return nil, fmt.Errorf("更新已读位置失败: %w", err)
	}
	s.logger.Debug("已读位置已更新",
		zap.Uint("userID", userID),
		zap.Uint("chatID", message.ChatID),
		zap.Uint("messageID", position.MessageID))
	return position, nil
}

func (s *readPositionService) GetReadPosition(ctx context.Context, userID, chatID uint) (*models.ReadPosition, error) {
	if err := s.requireChatMember(ctx, userID, chatID); err != nil {
		return nil, err
	}
	position, err := s.positionRepo.Get(ctx, userID, chatID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrReadPositionNotFound
		}
		return nil, fmt.Errorf("获取已读位置失败: %w", err)
	}
	return position, nil
}

func (s *readPositionService) requireChatMember(ctx context.Context, userID, chatID uint) error {
	chat, err := s.chatRepo.GetByID(ctx, chatID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrChatNotFound
		}
		return fmt.Errorf("获取聊天 %d 失败: %w", chatID, err)
	}
	isMember, err := s.groupRepo.IsMember(ctx, chat.GroupID, userID)
	if err != nil {
		return fmt.Errorf("检查成员关系失败: %w", err)
	}
	if !isMember {
		return ErrNotGroupMember
	}
	return nil
}
