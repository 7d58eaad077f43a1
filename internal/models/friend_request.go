package models

import (
	"fmt"
	"time"
)

// FriendRequest 是一条待处理的好友请求。
// 被接受或拒绝时物理删除，所以 PairKey 上的唯一索引等价于
// "同一对用户之间最多只有一条待处理请求"。
type FriendRequest struct {
	ID         uint      `gorm:"primarykey" json:"id"`
	FromUserID uint      `gorm:"not null;index" json:"fromUserId"`
	ToUserID   uint      `gorm:"not null;index" json:"toUserId"`
	Message    string    `gorm:"type:text" json:"message,omitempty"`
	PairKey    string    `gorm:"type:varchar(64);not null;uniqueIndex" json:"-"`
	CreatedAt  time.Time `json:"createdAt"`

	FromUser *UserBasicInfo `gorm:"-" json:"fromUser,omitempty"`
}

// TableName 指定 FriendRequest 模型的表名。
func (FriendRequest) TableName() string {
	return "friend_requests"
}

// PairKey 返回无序用户对的规范键，较小的 ID 在前。
func PairKey(a, b uint) string {
	if a > b {
		a, b = b, a
	}
	return fmt.Sprintf("%d:%d", a, b)
}
