package storage

import (
	"context"

	"gorm.io/gorm"

	"remix-go/internal/models"
)

// ChatRepository 定义了聊天的数据操作接口。
type ChatRepository interface {
	Create(ctx context.Context, chat *models.Chat) error
	GetByID(ctx context.Context, id uint) (*models.Chat, error)
	ListByGroup(ctx context.Context, groupID uint) ([]models.Chat, error)
	// NextSeq 原子地递增聊天的消息序号并返回新值。
	// 在事务中调用时，UPDATE 持有的行锁会一直保留到提交，
	// 因此同一聊天内的序号顺序与提交顺序一致。
	NextSeq(ctx context.Context, chatID uint) (int64, error)
}

type gormChatRepository struct {
	db *gorm.DB
}

// NewGormChatRepository 创建一个新的基于 GORM 的 ChatRepository。
func NewGormChatRepository(db *gorm.DB) ChatRepository {
	return &gormChatRepository{db: db}
}

func (r *gormChatRepository) Create(ctx context.Context, chat *models.Chat) error {
	return r.db.WithContext(ctx).Create(chat).Error
}

func (r *gormChatRepository) GetByID(ctx context.Context, id uint) (*models.Chat, error) {
	var chat models.Chat
	if err := r.db.WithContext(ctx).First(&chat, id).Error; err != nil {
		return nil, err
	}
	return &chat, nil
}

func (r *gormChatRepository) ListByGroup(ctx context.Context, groupID uint) ([]models.Chat, error) {
	chats := []models.Chat{}
	err := r.db.WithContext(ctx).Where("group_id = ?", groupID).Order("id ASC").Find(&chats).Error
	return chats, err
}

func (r *gormChatRepository) NextSeq(ctx context.Context, chatID uint) (int64, error) {
	res := r.db.WithContext(ctx).Model(&models.Chat{}).
		Where("id = ?", chatID).
		UpdateColumn("last_seq", gorm.Expr("last_seq + ?", 1))
	if res.Error != nil {
		return 0, res.Error
	}
	if res.RowsAffected == 0 {
		return 0, gorm.ErrRecordNotFound
	}

	var chat models.Chat
	if err := r.db.WithContext(ctx).Select("id", "last_seq").First(&chat, chatID).Error; err != nil {
		return 0, err
	}
	return chat.LastSeq, nil
}
