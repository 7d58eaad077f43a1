package resolvers

import (
	"encoding/json"
	"errors"

	"github.com/go-playground/validator/v10"

	"remix-go/internal/apperrors"
)

// CreateUserInput 对应 createUser。Email 不校验格式，只要求唯一。
type CreateUserInput struct {
	Username    string `json:"username" validate:"required,min=2,max=100"`
	Password    string `json:"password" validate:"required,min=4,max=72"`
	Email       string `json:"email" validate:"omitempty,max=100"`
	PhoneNumber string `json:"phoneNumber" validate:"omitempty,max=32"`
	Name        string `json:"name" validate:"max=100"`
	Description string `json:"description" validate:"max=1000"`
	IconURL     string `json:"iconUrl" validate:"max=255"`
	Color       string `json:"color" validate:"max=20"`
}

type EmailLoginInput struct {
	Email    string `json:"email" validate:"required"`
	Password string `json:"password" validate:"required"`
}

type PhoneLoginInput struct {
	PhoneNumber string `json:"phoneNumber" validate:"required"`
	Password    string `json:"password" validate:"required"`
}

type CreateGroupInput struct {
	Name        string `json:"name" validate:"required,max=100"`
	IconURL     string `json:"iconUrl" validate:"max=255"`
	Description string `json:"description" validate:"max=1000"`
}

type CreateChatInput struct {
	GroupID uint   `json:"groupId" validate:"required"`
	Name    string `json:"name" validate:"required,max=100"`
}

// CreateFriendRequestInput 对应 createFriendRequest。FromUserID 为 0 时使用当前用户。
type CreateFriendRequestInput struct {
	Message    string `json:"message" validate:"max=500"`
	FromUserID uint   `json:"fromUserId"`
	ToUserID   uint   `json:"toUserId" validate:"required"`
}

type CreateGroupRequestInput struct {
	Message string `json:"message" validate:"max=500"`
	GroupID uint   `json:"groupId" validate:"required"`
}

type CreateGroupInvitationInput struct {
	Message    string `json:"message" validate:"max=500"`
	ToUserID   uint   `json:"toUserId" validate:"required"`
	ForGroupID uint   `json:"forGroupId" validate:"required"`
}

type CreateMessageInput struct {
	Type   string          `json:"type" validate:"required,max=50"`
	Data   json.RawMessage `json:"data" validate:"required"`
	ChatID uint            `json:"chatId" validate:"required"`
}

type CreateMessageWithExistingContentInput struct {
	ContentID uint `json:"contentId" validate:"required"`
	ToChatID  uint `json:"toChatId" validate:"required"`
}

type UpdateReadPositionInput struct {
	ForMessageID uint `json:"forMessageId" validate:"required"`
}

var validate = validator.New()

func validateInput(in any) error {
	err := validate.Struct(in)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		fe := verrs[0]
		return apperrors.Validationf("字段 %s 校验失败 (%s)", fe.Field(), fe.Tag())
	}
	return apperrors.Validationf("参数校验失败: %v", err)
}
