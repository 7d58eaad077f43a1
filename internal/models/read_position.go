package models

// ReadPosition 记录用户在某个聊天中最后读到的消息。
type ReadPosition struct {
	BaseModel
	UserID     uint  `gorm:"not null;uniqueIndex:idx_read_position_user_chat" json:"userId"`
	ChatID     uint  `gorm:"not null;uniqueIndex:idx_read_position_user_chat" json:"chatId"`
	MessageID  uint  `gorm:"not null" json:"messageId"`
	MessageSeq int64 `gorm:"not null" json:"-"`
}

// TableName 指定 ReadPosition 模型的表名。
func (ReadPosition) TableName() string {
	return "read_positions"
}
