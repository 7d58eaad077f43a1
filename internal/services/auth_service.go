package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"remix-go/internal/apperrors"
	"remix-go/internal/auth"
	"remix-go/internal/config"
	"remix-go/internal/models"
	"remix-go/internal/storage"
)

var (
	ErrUserAlreadyExists  = apperrors.Conflict("用户名、邮箱或手机号已被使用")
	ErrInvalidCredentials = apperrors.Authentication("账号或密码错误")
	ErrUserNotFound       = apperrors.NotFound("用户未找到")
)

// CreateUserInput 是注册所需的字段。Email 与 PhoneNumber 均可为空。
type CreateUserInput struct {
	Username    string
	Password    string
	Email       string
	PhoneNumber string
	Name        string
	Description string
	IconURL     string
	Color       string
}

// AuthService 定义了用户认证服务的接口。
type AuthService interface {
	CreateUser(ctx context.Context, input CreateUserInput) (*models.User, error)
	LoginWithEmail(ctx context.Context, email, password string) (*models.User, error)
	LoginWithPhone(ctx context.Context, phoneNumber, password string) (*models.User, error)
	Logout(ctx context.Context, principal *auth.Principal) error
}

// authService 是 AuthService 的实现。
type authService struct {
	userRepo  storage.UserRepository
	blacklist auth.TokenBlacklist
	cfg       config.AuthConfig
	logger    *zap.Logger
}

// NewAuthService 创建一个新的 AuthService 实例。blacklist 为 nil 时 Logout 不做任何事。
func NewAuthService(userRepo storage.UserRepository, blacklist auth.TokenBlacklist, cfg config.AuthConfig, logger *zap.Logger) AuthService {
	return &authService{
		userRepo:  userRepo,
		blacklist: blacklist,
		cfg:       cfg,
		logger:    logger,
	}
}

// CreateUser 注册用户并签发令牌。唯一性由数据库的唯一索引保证。
func (s *authService) CreateUser(ctx context.Context, input CreateUserInput) (*models.User, error) {
	hashedPassword, err := auth.HashPassword(input.Password)
	if err != nil {
		return nil, fmt.Errorf("密码哈希失败: %w", err)
	}

	user := &models.User{
		Username:     input.Username,
		Email:        optional(input.Email),
		PhoneNumber:  optional(input.PhoneNumber),
		PasswordHash: hashedPassword,
		Name:         input.Name,
		Description:  input.Description,
		IconURL:      input.IconURL,
		Color:        input.Color,
	}

	created, err := s.userRepo.Create(ctx, user)
	if err != nil {
		return nil, fmt.Errorf("创建用户失败: %w", err)
	}
	if !created {
		return nil, ErrUserAlreadyExists
	}

	if err := s.attachToken(user); err != nil {
		return nil, err
	}
	s.logger.Info("用户已注册", zap.Uint("userID", user.ID), zap.String("username", user.Username))
	return user, nil
}

// LoginWithEmail 通过邮箱和密码登录。
func (s *authService) LoginWithEmail(ctx context.Context, email, password string) (*models.User, error) {
	user, err := s.userRepo.GetByEmail(ctx, email)
	return s.login(user, err, password)
}

// LoginWithPhone 通过手机号和密码登录。
func (s *authService) LoginWithPhone(ctx context.Context, phoneNumber, password string) (*models.User, error) {
	user, err := s.userRepo.GetByPhoneNumber(ctx, phoneNumber)
	return s.login(user, err, password)
}

func (s *authService) login(user *models.User, lookupErr error, password string) (*models.User, error) {
	if lookupErr != nil {
		if errors.Is(lookupErr, gorm.ErrRecordNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("查找用户失败: %w", lookupErr)
	}
	if err := auth.ComparePassword(user.PasswordHash, password); err != nil {
		if errors.Is(err, auth.ErrPasswordMismatch) {
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("校验密码失败: %w", err)
	}
	if err := s.attachToken(user); err != nil {
		return nil, err
	}
	return user, nil
}

// Logout 吊销当前令牌，直到它原本的过期时间。
func (s *authService) Logout(ctx context.Context, principal *auth.Principal) error {
	if s.blacklist == nil || principal == nil || principal.TokenID == "" {
		return nil
	}
	if err := s.blacklist.Add(ctx, principal.TokenID, principal.ExpiresAt); err != nil {
		return fmt.Errorf("吊销令牌失败: %w", err)
	}
	s.logger.Info("用户已登出", zap.Uint("userID", principal.ID))
	return nil
}

func (s *authService) attachToken(user *models.User) error {
	token, err := auth.GenerateToken(user.ID, user.Username, s.cfg)
	if err != nil {
		return fmt.Errorf("生成令牌失败: %w", err)
	}
	user.Token = token
	return nil
}

func optional(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}
