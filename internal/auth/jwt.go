package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"remix-go/internal/config"
)

// Claims 是 JWT 中的自定义声明，嵌入了 jwt.RegisteredClaims。
type Claims struct {
	UserID   uint   `json:"userId"`
	Username string `json:"username"`
	jwt.RegisteredClaims
}

var (
	ErrMissingToken = errors.New("请求未包含授权令牌")
	ErrInvalidToken = errors.New("令牌无效")
	ErrRevokedToken = errors.New("令牌已被吊销")
)

// GenerateToken 为指定用户生成一个新的 JWT。
func GenerateToken(userID uint, username string, authCfg config.AuthConfig) (string, error) {
	jwtID, err := uuid.NewRandom()
	if err != nil {
		return "", fmt.Errorf("生成 JWT ID 失败: %w", err)
	}

	now := time.Now()
	claims := &Claims{
		UserID:   userID,
		Username: username,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(authCfg.JWTExpiry)),
			ID:        jwtID.String(),
			IssuedAt:  jwt.NewNumericDate(now),
			Issuer:    authCfg.Issuer,
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString([]byte(authCfg.JWTSecretKey))
	if err != nil {
		return "", fmt.Errorf("生成 JWT 失败: %w", err)
	}
	return tokenString, nil
}

// ParseToken 校验签名与有效期并返回声明，不检查黑名单。
func ParseToken(tokenString string, jwtKey string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("非预期的签名算法: %v", token.Header["alg"])
		}
		return []byte(jwtKey), nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if !token.Valid {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

// TokenBlacklist 保存已吊销的 JTI，条目在令牌原本的过期时间之后自动失效。
type TokenBlacklist interface {
	Add(ctx context.Context, jti string, originalTokenExpTime time.Time) error
	IsBlacklisted(ctx context.Context, jti string) (bool, error)
}

// Verifier 把不透明的凭证解析为调用方身份。
type Verifier interface {
	Verify(ctx context.Context, credential string) (*Principal, error)
}

// JWTVerifier 使用 HMAC 密钥校验 JWT，并在提供黑名单时拒绝已吊销的令牌。
type JWTVerifier struct {
	secret    string
	blacklist TokenBlacklist
	now       func() time.Time
}

// NewJWTVerifier 创建 JWTVerifier，blacklist 可以为 nil。
func NewJWTVerifier(authCfg config.AuthConfig, blacklist TokenBlacklist) *JWTVerifier {
	return &JWTVerifier{secret: authCfg.JWTSecretKey, blacklist: blacklist, now: time.Now}
}

func (v *JWTVerifier) Verify(ctx context.Context, credential string) (*Principal, error) {
	if credential == "" {
		return nil, ErrMissingToken
	}
	claims, err := ParseToken(credential, v.secret)
	if err != nil {
		return nil, err
	}
	if claims.ExpiresAt == nil || claims.IssuedAt == nil || claims.UserID == 0 {
		return nil, ErrInvalidToken
	}

	if v.blacklist != nil {
		if claims.ID == "" {
			return nil, fmt.Errorf("%w: 缺少 JTI", ErrInvalidToken)
		}
		revoked, err := v.blacklist.IsBlacklisted(ctx, claims.ID)
		if err != nil {
			// 黑名单不可用时拒绝请求
			return nil, fmt.Errorf("检查 Token 黑名单失败: %w", err)
		}
		if revoked {
			return nil, ErrRevokedToken
		}
	}

	p := &Principal{
		ID:        claims.UserID,
		Username:  claims.Username,
		TokenID:   claims.ID,
		IssuedAt:  claims.IssuedAt.Time,
		ExpiresAt: claims.ExpiresAt.Time,
	}
	if !p.Valid(v.now()) {
		return nil, ErrInvalidToken
	}
	return p, nil
}
