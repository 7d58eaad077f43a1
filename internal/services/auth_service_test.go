package services

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"remix-go/internal/apperrors"
	"remix-go/internal/auth"
	"remix-go/internal/config"
	"remix-go/internal/storage"
)

type memoryBlacklist struct {
	mu      sync.Mutex
	revoked map[string]time.Time
}

func (m *memoryBlacklist) Add(_ context.Context, jti string, exp time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.revoked[jti] = exp
	return nil
}

func (m *memoryBlacklist) IsBlacklisted(_ context.Context, jti string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.revoked[jti]
	return ok, nil
}

func TestCreateUserAndLogin(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()

	user, err := e.auth.CreateUser(ctx, CreateUserInput{
		Username:    "test",
		Email:       "test",
		PhoneNumber: "+100",
		Password:    "test",
		Name:        "Test User",
	})
	require.NoError(t, err)
	assert.NotZero(t, user.ID)
	assert.NotEmpty(t, user.Token)

	_, err = e.auth.CreateUser(ctx, CreateUserInput{Username: "test", Password: "other"})
	assert.ErrorIs(t, err, ErrUserAlreadyExists)
	_, err = e.auth.CreateUser(ctx, CreateUserInput{Username: "other", Email: "test", Password: "other"})
	assert.ErrorIs(t, err, ErrUserAlreadyExists)

	byEmail, err := e.auth.LoginWithEmail(ctx, "test", "test")
	require.NoError(t, err)
	assert.Equal(t, user.ID, byEmail.ID)
	assert.NotEmpty(t, byEmail.Token)

	byPhone, err := e.auth.LoginWithPhone(ctx, "+100", "test")
	require.NoError(t, err)
	assert.Equal(t, user.ID, byPhone.ID)

	_, err = e.auth.LoginWithEmail(ctx, "test", "wrong")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	assert.Equal(t, apperrors.KindAuthentication, apperrors.KindOf(err))
	_, err = e.auth.LoginWithPhone(ctx, "+999", "test")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestLogoutRevokesToken(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()
	authCfg := config.AuthConfig{JWTSecretKey: "k", JWTExpiry: time.Hour}
	blacklist := &memoryBlacklist{revoked: map[string]time.Time{}}
	svc := NewAuthService(storage.NewGormUserRepository(e.db), blacklist, authCfg, zap.NewNop())

	user, err := svc.CreateUser(ctx, CreateUserInput{Username: "u", Password: "pw"})
	require.NoError(t, err)

	verifier := auth.NewJWTVerifier(authCfg, blacklist)
	principal, err := verifier.Verify(ctx, user.Token)
	require.NoError(t, err)

	require.NoError(t, svc.Logout(ctx, principal))

	_, err = verifier.Verify(ctx, user.Token)
	assert.ErrorIs(t, err, auth.ErrRevokedToken)
}
