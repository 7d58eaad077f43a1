package models

import "time"

// DirectMessageGroupName 是好友私聊群组的固定名称。
const DirectMessageGroupName = "friend"

// Group 代表一个群组，私聊也是一个只有两名成员的群组。
type Group struct {
	BaseModel
	Name            string `gorm:"type:varchar(100);not null" json:"name"`
	Description     string `gorm:"type:text" json:"description,omitempty"`
	IconURL         string `gorm:"type:varchar(255)" json:"iconUrl,omitempty"`
	IsDirectMessage bool   `gorm:"not null;default:false" json:"isDirectMessage"`
	// DirectKey 仅私聊群组有值 ("dm:小ID:大ID")，唯一索引保证每对好友只有一个私聊群组。
	DirectKey *string `gorm:"type:varchar(64);uniqueIndex" json:"-"`

	Members []GroupMember `gorm:"foreignKey:GroupID" json:"members,omitempty"`
	Chats   []Chat        `gorm:"foreignKey:GroupID" json:"chats,omitempty"`
}

// TableName 指定 Group 模型的表名。
func (Group) TableName() string {
	return "groups"
}

// DirectMessageKey 返回一对用户私聊群组的唯一键。
func DirectMessageKey(a, b uint) string {
	return "dm:" + PairKey(a, b)
}

// GroupMemberRole 定义了用户在群组中的角色。
type GroupMemberRole string

const (
	AdminRole  GroupMemberRole = "admin"
	MemberRole GroupMemberRole = "member"
)

// GroupMember 将用户链接到群组。
type GroupMember struct {
	GroupID   uint            `gorm:"primaryKey;autoIncrement:false" json:"groupId"`
	UserID    uint            `gorm:"primaryKey;autoIncrement:false;index" json:"userId"`
	Role      GroupMemberRole `gorm:"type:varchar(20);default:'member'" json:"role"`
	JoinedAt  time.Time       `json:"joinedAt"`
	CreatedAt time.Time       `json:"-"`

	User *User `gorm:"foreignKey:UserID" json:"user,omitempty"`
}

// TableName 指定 GroupMember 模型的表名。
func (GroupMember) TableName() string {
	return "group_members"
}

// Chat 属于一个群组，按 LastSeq 为其中的消息分配递增序号。
type Chat struct {
	BaseModel
	GroupID uint   `gorm:"not null;index" json:"groupId"`
	Name    string `gorm:"type:varchar(100);not null" json:"name"`
	LastSeq int64  `gorm:"not null;default:0" json:"-"`
}

// TableName 指定 Chat 模型的表名。
func (Chat) TableName() string {
	return "chats"
}
