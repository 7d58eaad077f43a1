package auth

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"remix-go/internal/config"
)

type memoryBlacklist struct {
	revoked map[string]bool
	err     error
}

func (m *memoryBlacklist) Add(_ context.Context, jti string, _ time.Time) error {
	m.revoked[jti] = true
	return nil
}

func (m *memoryBlacklist) IsBlacklisted(_ context.Context, jti string) (bool, error) {
	return m.revoked[jti], m.err
}

func testAuthConfig() config.AuthConfig {
	return config.AuthConfig{JWTSecretKey: "test-secret", JWTExpiry: time.Hour, Issuer: "test"}
}

func TestVerify_ValidToken(t *testing.T) {
	cfg := testAuthConfig()
	token, err := GenerateToken(7, "alice", cfg)
	require.NoError(t, err)

	p, err := NewJWTVerifier(cfg, nil).Verify(context.Background(), token)
	require.NoError(t, err)
	assert.Equal(t, uint(7), p.ID)
	assert.Equal(t, "alice", p.Username)
	assert.NotEmpty(t, p.TokenID)
	assert.True(t, p.ExpiresAt.After(p.IssuedAt))
}

func TestVerify_Rejects(t *testing.T) {
	cfg := testAuthConfig()
	good, err := GenerateToken(1, "bob", cfg)
	require.NoError(t, err)

	expiredCfg := cfg
	expiredCfg.JWTExpiry = -time.Minute
	expired, err := GenerateToken(1, "bob", expiredCfg)
	require.NoError(t, err)

	otherKey := cfg
	otherKey.JWTSecretKey = "other"
	forged, err := GenerateToken(1, "bob", otherKey)
	require.NoError(t, err)

	tests := []struct {
		name  string
		token string
		want  error
	}{
		{"empty", "", ErrMissingToken},
		{"garbage", "not-a-jwt", ErrInvalidToken},
		{"expired", expired, ErrInvalidToken},
		{"wrong key", forged, ErrInvalidToken},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewJWTVerifier(cfg, nil).Verify(context.Background(), tt.token)
			assert.ErrorIs(t, err, tt.want)
		})
	}

	_, err = NewJWTVerifier(cfg, nil).Verify(context.Background(), good)
	assert.NoError(t, err)
}

func TestVerify_Blacklist(t *testing.T) {
	cfg := testAuthConfig()
	token, err := GenerateToken(3, "carol", cfg)
	require.NoError(t, err)
	claims, err := ParseToken(token, cfg.JWTSecretKey)
	require.NoError(t, err)

	bl := &memoryBlacklist{revoked: map[string]bool{}}
	v := NewJWTVerifier(cfg, bl)

	_, err = v.Verify(context.Background(), token)
	require.NoError(t, err)

	require.NoError(t, bl.Add(context.Background(), claims.ID, claims.ExpiresAt.Time))
	_, err = v.Verify(context.Background(), token)
	assert.ErrorIs(t, err, ErrRevokedToken)

	bl.err = errors.New("redis down")
	_, err = v.Verify(context.Background(), token)
	assert.Error(t, err)
}

func TestPrincipalValid(t *testing.T) {
	now := time.Now()
	assert.False(t, (*Principal)(nil).Valid(now))
	assert.False(t, (&Principal{ExpiresAt: now.Add(time.Hour)}).Valid(now))
	assert.False(t, (&Principal{ID: 1, ExpiresAt: now.Add(-time.Second)}).Valid(now))
	assert.True(t, (&Principal{ID: 1, ExpiresAt: now.Add(time.Hour)}).Valid(now))
}

func TestPasswordHash(t *testing.T) {
	hash, err := HashPassword("s3cret")
	require.NoError(t, err)
	assert.NoError(t, ComparePassword(hash, "s3cret"))
	assert.ErrorIs(t, ComparePassword(hash, "wrong"), ErrPasswordMismatch)

	err = ComparePassword("not-a-bcrypt-hash", "s3cret")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrPasswordMismatch)
}
