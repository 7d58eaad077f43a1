package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"remix-go/internal/apperrors"
	"remix-go/internal/content"
	"remix-go/internal/events"
	"remix-go/internal/models"
	"remix-go/internal/storage"
)

var (
	ErrContentNotFound = apperrors.NotFound("消息内容不存在")
	ErrMessageNotFound = apperrors.NotFound("消息不存在")
)

// MessageService 定义了消息服务的接口。
type MessageService interface {
	CreateMessage(ctx context.Context, authorID, chatID uint, contentType string, data json.RawMessage) (*models.Message, error)
	// CreateMessageWithExistingContent 引用已有内容发送消息，不复制内容（引用/转发）。
	CreateMessageWithExistingContent(ctx context.Context, authorID, contentID, toChatID uint) (*models.Message, error)
	// GetMessages 按聊天内序号升序返回消息。
	GetMessages(ctx context.Context, userID, chatID uint) ([]models.Message, error)
	// AllMessages 返回用户所有聊天的消息，最新的在前。
	AllMessages(ctx context.Context, userID uint) ([]models.Message, error)
}

// messageService 是 MessageService 的实现。
type messageService struct {
	db          *gorm.DB
	messageRepo storage.MessageRepository
	chatRepo    storage.ChatRepository
	groupRepo   storage.GroupRepository
	registry    *content.Registry
	publisher   events.Publisher
	logger      *zap.Logger
}

// NewMessageService 创建一个新的 MessageService 实例。
func NewMessageService(
	db *gorm.DB,
	messageRepo storage.MessageRepository,
	chatRepo storage.ChatRepository,
	groupRepo storage.GroupRepository,
	registry *content.Registry,
	publisher events.Publisher,
	logger *zap.Logger,
) MessageService {
	return &messageService{
		db:          db,
		messageRepo: messageRepo,
		chatRepo:    chatRepo,
		groupRepo:   groupRepo,
		registry:    registry,
		publisher:   publisher,
		logger:      logger,
	}
}

func (s *messageService) CreateMessage(ctx context.Context, authorID, chatID uint, contentType string, data json.RawMessage) (*models.Message, error) {
	normalized, err := s.registry.Normalize(contentType, data)
	if err != nil {
		return nil, err
	}
	chat, err := s.authorizeChat(ctx, authorID, chatID)
	if err != nil {
		return nil, err
	}

	body := &models.Content{Type: contentType, Data: normalized}
	message, err := s.commit(ctx, authorID, chat.ID, func(repo storage.MessageRepository) (*models.Content, error) {
		if err := repo.CreateContent(ctx, body); err != nil {
			return nil, fmt.Errorf("保存消息内容失败: %w", err)
		}
		return body, nil
	})
	if err != nil {
		return nil, err
	}
	s.afterCommit(ctx, chat, message)
	return message, nil
}

func (s *messageService) CreateMessageWithExistingContent(ctx context.Context, authorID, contentID, toChatID uint) (*models.Message, error) {
	chat, err := s.authorizeChat(ctx, authorID, toChatID)
	if err != nil {
		return nil, err
	}

	message, err := s.commit(ctx, authorID, chat.ID, func(repo storage.MessageRepository) (*models.Content, error) {
		existing, err := repo.GetContentByID(ctx, contentID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, ErrContentNotFound
			}
			return nil, fmt.Errorf("获取消息内容失败: %w", err)
		}
		return existing, nil
	})
	if err != nil {
		return nil, err
	}
	s.afterCommit(ctx, chat, message)
	return message, nil
}

// commit 在一个事务中准备内容、分配聊天内序号并保存消息。
// 序号由 UPDATE chats 分配，行锁持有到提交，所以序号顺序即提交顺序。
func (s *messageService) commit(ctx context.Context, authorID, chatID uint, prepare func(storage.MessageRepository) (*models.Content, error)) (*models.Message, error) {
	var message *models.Message
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		txMessageRepo := storage.NewGormMessageRepository(tx)
		txChatRepo := storage.NewGormChatRepository(tx)

		body, err := prepare(txMessageRepo)
		if err != nil {
			return err
		}
		seq, err := txChatRepo.NextSeq(ctx, chatID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrChatNotFound
			}
			return fmt.Errorf("分配消息序号失败: %w", err)
		}

		msg := &models.Message{
			ChatID:    chatID,
			Seq:       seq,
			UserID:    authorID,
			ContentID: body.ID,
		}
		if err := txMessageRepo.Create(ctx, msg); err != nil {
			return fmt.Errorf("保存消息失败: %w", err)
		}
		msg.Content = body
		message = msg
		return nil
	})
	if err != nil {
		return nil, err
	}
	return message, nil
}

// afterCommit 通知群组的全部成员，包括作者本人。成员查询同样脱离请求的取消。
func (s *messageService) afterCommit(ctx context.Context, chat *models.Chat, message *models.Message) {
	ctx = context.WithoutCancel(ctx)
	s.logger.Info("消息已创建",
		zap.Uint("messageID", message.ID),
		zap.Uint("chatID", chat.ID),
		zap.Int64("seq", message.Seq),
		zap.Uint("authorID", message.UserID))

	memberIDs, err := s.groupRepo.GetMemberIDs(ctx, chat.GroupID)
	if err != nil {
		s.logger.Warn("获取群组成员失败，跳过消息通知", zap.Uint("groupID", chat.GroupID), zap.Error(err))
		return
	}
	notify(ctx, s.publisher, s.logger, events.TopicMessageCreated, memberIDs, message)
}

func (s *messageService) GetMessages(ctx context.Context, userID, chatID uint) ([]models.Message, error) {
	if _, err := s.authorizeChat(ctx, userID, chatID); err != nil {
		return nil, err
	}
	messages, err := s.messageRepo.ListByChat(ctx, chatID)
	if err != nil {
		return nil, fmt.Errorf("获取聊天 %d 的消息失败: %w", chatID, err)
	}
	return messages, nil
}

func (s *messageService) AllMessages(ctx context.Context, userID uint) ([]models.Message, error) {
	messages, err := s.messageRepo.ListForUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("获取用户 %d 的消息失败: %w", userID, err)
	}
	return messages, nil
}

// authorizeChat 返回聊天，并确认 userID 是聊天所属群组的成员。
func (s *messageService) authorizeChat(ctx context.Context, userID, chatID uint) (*models.Chat, error) {
	chat, err := s.chatRepo.GetByID(ctx, chatID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrChatNotFound
		}
		return nil, fmt.Errorf("获取聊天 %d 失败: %w", chatID, err)
	}
	isMember, err := s.groupRepo.IsMember(ctx, chat.GroupID, userID)
	if err != nil {
		return nil, fmt.Errorf("检查成员关系失败: %w", err)
	}
	if !isMember {
		return nil, ErrNotGroupMember
	}
	return chat, nil
}
