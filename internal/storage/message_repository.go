package storage

import (
	"context"

	"gorm.io/gorm"

	"remix-go/internal/models"
)

// MessageRepository 定义了消息与内容的数据操作接口。
type MessageRepository interface {
	CreateContent(ctx context.Context, content *models.Content) error
	GetContentByID(ctx context.Context, id uint) (*models.Content, error)
	Create(ctx context.Context, message *models.Message) error
	GetByID(ctx context.Context, id uint) (*models.Message, error)
	// ListByChat 按聊天内序号升序返回消息。
	ListByChat(ctx context.Context, chatID uint) ([]models.Message, error)
	// ListForUser 返回用户所在全部群组中全部聊天的消息，按创建时间倒序，ID 倒序兜底。
	ListForUser(ctx context.Context, userID uint) ([]models.Message, error)
}

// gormMessageRepository 使用 GORM 实现 MessageRepository。
type gormMessageRepository struct {
	db *gorm.DB
}

// NewGormMessageRepository 创建一个新的基于 GORM 的 MessageRepository。
func NewGormMessageRepository(db *gorm.DB) MessageRepository {
	return &gormMessageRepository{db: db}
}

func (r *gormMessageRepository) CreateContent(ctx context.Context, content *models.Content) error {
	return r.db.WithContext(ctx).Create(content).Error
}

func (r *gormMessageRepository) GetContentByID(ctx context.Context, id uint) (*models.Content, error) {
	var content models.Content
	if err := r.db.WithContext(ctx).First(&content, id).Error; err != nil {
		return nil, err
	}
	return &content, nil
}

func (r *gormMessageRepository) Create(ctx context.Context, message *models.Message) error {
	return r.db.WithContext(ctx).Create(message).Error
}

// GetByID 通过ID检索消息，附带内容。
func (r *gormMessageRepository) GetByID(ctx context.Context, id uint) (*models.Message, error) {
	var message models.Message
	if err := r.db.WithContext(ctx).Preload("Content").First(&message, id).Error; err != nil {
		return nil, err
	}
	return &message, nil
}

func (r *gormMessageRepository) ListByChat(ctx context.Context, chatID uint) ([]models.Message, error) {
	messages := []models.Message{}
	err := r.db.WithContext(ctx).
		Where("chat_id = ?", chatID).
		Order("seq ASC").
		Preload("Content").
		Find(&messages).Error
	return messages, err
}

func (r *gormMessageRepository) ListForUser(ctx context.Context, userID uint) ([]models.Message, error) {
	messages := []models.Message{}
	groupIDs := r.db.WithContext(ctx).Model(&models.GroupMember{}).Select("group_id").Where("user_id = ?", userID)
	chatIDs := r.db.WithContext(ctx).Model(&models.Chat{}).Select("id").Where("group_id IN (?)", groupIDs)
	err := r.db.WithContext(ctx).
		Where("chat_id IN (?)", chatIDs).
		Order("created_at DESC").Order("id DESC").
		Preload("Content").
		Find(&messages).Error
	return messages, err
}
