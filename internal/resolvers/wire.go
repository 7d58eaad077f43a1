package resolvers

import (
	"go.uber.org/zap"
	"gorm.io/gorm"

	"remix-go/internal/auth"
	"remix-go/internal/config"
	"remix-go/internal/content"
	"remix-go/internal/events"
	"remix-go/internal/services"
	"remix-go/internal/storage"
)

// NewServices 基于同一个数据库连接装配全部服务。
func NewServices(
	db *gorm.DB,
	registry *content.Registry,
	publisher events.Publisher,
	blacklist auth.TokenBlacklist,
	authCfg config.AuthConfig,
	logger *zap.Logger,
) Services {
	userRepo := storage.NewGormUserRepository(db)
	friendRepo := storage.NewGormFriendRequestRepository(db)
	friendshipRepo := storage.NewGormFriendshipRepository(db)
	groupRepo := storage.NewGormGroupRepository(db)
	chatRepo := storage.NewGormChatRepository(db)
	requestRepo := storage.NewGormGroupRequestRepository(db)
	messageRepo := storage.NewGormMessageRepository(db)
	positionRepo := storage.NewGormReadPositionRepository(db)

	return Services{
		Auth:          services.NewAuthService(userRepo, blacklist, authCfg, logger),
		Users:         services.NewUserService(userRepo, friendshipRepo, groupRepo, logger),
		FriendRequest: services.NewFriendRequestService(db, userRepo, friendRepo, friendshipRepo, publisher, logger),
		Groups:        services.NewGroupService(db, groupRepo, chatRepo, userRepo, requestRepo, logger),
		Messages:      services.NewMessageService(db, messageRepo, chatRepo, groupRepo, registry, publisher, logger),
		ReadPositions: services.NewReadPositionService(positionRepo, messageRepo, chatRepo, groupRepo, logger),
	}
}
