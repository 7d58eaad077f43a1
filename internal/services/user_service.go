package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"remix-go/internal/apperrors"
	"remix-go/internal/models"
	"remix-go/internal/storage"
)

const searchLimit = 50

var ErrSearchPhraseRequired = apperrors.Validation("搜索关键字不能为空")

// UserService 定义了用户相关服务的接口。
type UserService interface {
	GetUser(ctx context.Context, userID uint) (*models.User, error)
	SearchUsers(ctx context.Context, phrase string) ([]models.User, error)
	// RelevantUsers 返回好友（按 ID 升序）和同群成员（按 ID 升序），按 ID 去重，不含自己。
	RelevantUsers(ctx context.Context, userID uint) ([]models.User, error)
}

// userService 是 UserService 的实现。
type userService struct {
	userRepo       storage.UserRepository
	friendshipRepo storage.FriendshipRepository
	groupRepo      storage.GroupRepository
	logger         *zap.Logger
}

// NewUserService 创建一个新的 UserService 实例。
func NewUserService(userRepo storage.UserRepository, friendshipRepo storage.FriendshipRepository, groupRepo storage.GroupRepository, logger *zap.Logger) UserService {
	return &userService{
		userRepo:       userRepo,
		friendshipRepo: friendshipRepo,
		groupRepo:      groupRepo,
		logger:         logger,
	}
}

// GetUser 获取用户公开的个人资料。
func (s *userService) GetUser(ctx context.Context, userID uint) (*models.User, error) {
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("获取用户 %d 失败: %w", userID, err)
	}
	return user, nil
}

func (s *userService) SearchUsers(ctx context.Context, phrase string) ([]models.User, error) {
	phrase = strings.TrimSpace(phrase)
	if phrase == "" {
		return nil, ErrSearchPhraseRequired
	}
	users, err := s.userRepo.Search(ctx, phrase, searchLimit)
	if err != nil {
		return nil, fmt.Errorf("搜索用户失败: %w", err)
	}
	return users, nil
}

func (s *userService) RelevantUsers(ctx context.Context, userID uint) ([]models.User, error) {
	friendIDs, err := s.friendshipRepo.GetFriendIDs(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("获取好友列表失败: %w", err)
	}
	coMemberIDs, err := s.groupRepo.GetCoMemberIDs(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("获取同群成员失败: %w", err)
	}

	seen := make(map[uint]struct{}, len(friendIDs)+len(coMemberIDs))
	ordered := make([]uint, 0, len(friendIDs)+len(coMemberIDs))
	for _, ids := range [][]uint{friendIDs, coMemberIDs} {
		for _, id := range ids {
			if id == userID {
				continue
			}
			if _, ok := seen[id]; ok {
				continue
			}
			seen[id] = struct{}{}
			ordered = append(ordered, id)
		}
	}

	users, err := s.userRepo.GetByIDs(ctx, ordered)
	if err != nil {
		return nil, fmt.Errorf("获取用户信息失败: %w", err)
	}
	byID := make(map[uint]models.User, len(users))
	for _, u := range users {
		byID[u.ID] = u
	}

	result := make([]models.User, 0, len(ordered))
	for _, id := range ordered {
		if u, ok := byID[id]; ok {
			result = append(result, u)
		}
	}
	return result, nil
}
