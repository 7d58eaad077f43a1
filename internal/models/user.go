package models

// User 代表系统中的用户。
type User struct {
	BaseModel
	Username     string  `gorm:"type:varchar(100);uniqueIndex;not null" json:"username"`
	Email        *string `gorm:"type:varchar(100);uniqueIndex" json:"email,omitempty"`
	PhoneNumber  *string `gorm:"type:varchar(32);uniqueIndex" json:"phoneNumber,omitempty"`
	PasswordHash string  `gorm:"type:varchar(255);not null" json:"-"` // 不暴露密码哈希
	Name         string  `gorm:"type:varchar(100)" json:"name,omitempty"`
	Description  string  `gorm:"type:text" json:"description,omitempty"`
	IconURL      string  `gorm:"type:varchar(255)" json:"iconUrl,omitempty"`
	Color        string  `gorm:"type:varchar(20)" json:"color,omitempty"`

	// 登录成功后由服务层填充，不落库
	Token string `gorm:"-" json:"token,omitempty"`
}

// UserBasicInfo holds minimal public information about a user.
type UserBasicInfo struct {
	ID       uint   `json:"id"`
	Username string `json:"username"`
	Name     string `json:"name,omitempty"`
	IconURL  string `json:"iconUrl,omitempty"`
	Color    string `json:"color,omitempty"`
}

// TableName 指定 User 模型的表名。
func (User) TableName() string {
	return "users"
}
