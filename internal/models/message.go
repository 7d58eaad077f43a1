package models

import (
	"encoding/json"
)

// Content 是可被多条消息引用的不可变载荷。
type Content struct {
	BaseModel
	Type string          `gorm:"type:varchar(50);not null" json:"type"`
	Data json.RawMessage `gorm:"type:jsonb;not null" json:"data"`
}

// TableName 指定 Content 模型的表名。
func (Content) TableName() string {
	return "contents"
}

// Message 代表聊天中的一条消息，创建后不再修改。
type Message struct {
	BaseModel
	ChatID    uint  `gorm:"not null;uniqueIndex:idx_message_chat_seq" json:"chatId"`
	Seq       int64 `gorm:"not null;uniqueIndex:idx_message_chat_seq" json:"seq"`
	UserID    uint  `gorm:"not null;index" json:"userId"`
	ContentID uint  `gorm:"not null;index" json:"contentId"`

	Content *Content `gorm:"foreignKey:ContentID" json:"content,omitempty"`
}

// TableName 指定 Message 模型的表名。
func (Message) TableName() string {
	return "messages"
}
