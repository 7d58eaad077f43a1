package models

import (
	"time"

	"gorm.io/gorm"
)

// BaseModel defines the common fields for all soft-deletable models.
type BaseModel struct {
	ID        uint           `gorm:"primarykey" json:"id"`
	CreatedAt time.Time      `json:"createdAt"`
	UpdatedAt time.Time      `json:"updatedAt"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

// All 返回需要迁移的全部模型，顺序即建表顺序。
func All() []any {
	return []any{
		&User{},
		&FriendRequest{},
		&Friendship{},
		&Group{},
		&GroupMember{},
		&GroupRequest{},
		&Chat{},
		&Content{},
		&Message{},
		&ReadPosition{},
	}
}
