package models

import (
	"fmt"
	"time"
)

// GroupRequestKind 区分用户主动申请和成员发出的邀请。
type GroupRequestKind string

const (
	GroupJoinRequest GroupRequestKind = "request"
	GroupInvitation  GroupRequestKind = "invitation"
)

// GroupRequest 是一条待处理的入群申请或邀请，处理后物理删除。
type GroupRequest struct {
	ID         uint             `gorm:"primarykey" json:"id"`
	Kind       GroupRequestKind `gorm:"type:varchar(20);not null" json:"kind"`
	GroupID    uint             `gorm:"not null;index" json:"groupId"`
	FromUserID uint             `gorm:"not null" json:"fromUserId"`
	// ToUserID 是将要入群的用户：邀请时是被邀请人，申请时就是申请人自己。
	ToUserID  uint      `gorm:"not null;index" json:"toUserId"`
	Message   string    `gorm:"type:text" json:"message,omitempty"`
	UniqueKey string    `gorm:"type:varchar(80);not null;uniqueIndex" json:"-"`
	CreatedAt time.Time `json:"createdAt"`
}

// TableName 指定 GroupRequest 模型的表名。
func (GroupRequest) TableName() string {
	return "group_requests"
}

// GroupRequestKey 保证同一用户对同一群组最多只有一条同类待处理记录。
func GroupRequestKey(kind GroupRequestKind, groupID, subjectUserID uint) string {
	return fmt.Sprintf("%s:%d:%d", kind, groupID, subjectUserID)
}
