package storage

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"remix-go/internal/models"
)

// ReadPositionRepository 定义了已读位置的数据操作接口。
type ReadPositionRepository interface {
	// Advance 把 (userID, chatID) 的已读位置推进到 seq 对应的消息。
	// 只会向前移动：更旧或相同的消息不会改变已存储的位置。
	Advance(ctx context.Context, userID, chatID, messageID uint, seq int64) (*models.ReadPosition, error)
	Get(ctx context.Context, userID, chatID uint) (*models.ReadPosition, error)
}

type gormReadPositionRepository struct {
	db *gorm.DB
}

// NewGormReadPositionRepository 创建一个新的基于 GORM 的 ReadPositionRepository。
func NewGormReadPositionRepository(db *gorm.DB) ReadPositionRepository {
	return &gormReadPositionRepository{db: db}
}

func (r *gormReadPositionRepository) Advance(ctx context.Context, userID, chatID, messageID uint, seq int64) (*models.ReadPosition, error) {
	position := &models.ReadPosition{
		UserID:     userID,
		ChatID:     chatID,
		MessageID:  messageID,
		MessageSeq: seq,
	}
	res := r.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(position)
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		err := r.db.WithContext(ctx).Model(&models.ReadPosition{}).
			Where("user_id = ? AND chat_id = ? AND message_seq < ?", userID, chatID, seq).
			Updates(map[string]any{"message_id": messageID, "message_seq": seq}).Error
		if err != nil {
			return nil, err
		}
	}
	return r.Get(ctx, userID, chatID)
}

func (r *gormReadPositionRepository) Get(ctx context.Context, userID, chatID uint) (*models.ReadPosition, error) {
	var position models.ReadPosition
	err := r.db.WithContext(ctx).Where("user_id = ? AND chat_id = ?", userID, chatID).First(&position).Error
	if err != nil {
		return nil, err
	}
	return &position, nil
}
