// AngelaMos | 2026
// jwt_test.go

package auth_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/carterperez-dev/templates/saas-backend/internal/auth"
	"github.com/carterperez-dev/templates/saas-backend/internal/config"
	"github.com/carterperez-dev/templates/saas-backend/internal/core"
)

func jwtConfig() config.JWTConfig {
	return config.JWTConfig{
		AccessTokenExpire:  15 * time.Minute,
		RefreshTokenExpire: 24 * time.Hour,
		Issuer:             "avatar-test",
		Audience:           "avatar-test-api",
	}
}

func newManager(t *testing.T, cfg config.JWTConfig) *auth.JWTManager {
	t.Helper()
	m, err := auth.NewEphemeralJWTManager(cfg)
	require.NoError(t, err)
	return m
}

func TestJWT_RoundTrip(t *testing.T) {
	m := newManager(t, jwtConfig())

	token, err := m.CreateAccessToken(auth.AccessTokenClaims{
		UserID:       "user-1",
		Role:         "admin",
		Tier:         "pro",
		TokenVersion: 4,
	})
	require.NoError(t, err)
	assert.Equal(t, 2, strings.Count(token, "."))

	claims, err := m.VerifyAccessToken(context.Background(), token)
	require.NoError(t, err)

	assert.Equal(t, "user-1", claims.UserID)
	assert.Equal(t, "admin", claims.Role)
	assert.Equal(t, "pro", claims.Tier)
	assert.Equal(t, 4, claims.TokenVersion)
	assert.NotEmpty(t, claims.ID)
	assert.WithinDuration(t, time.Now().Add(15*time.Minute), claims.ExpiresAt, 5*time.Second)
	assert.Equal(t, 15*time.Minute, m.AccessTokenTTL())
	assert.Len(t, m.GetKeyID(), 8)
}

func TestJWT_Rejections(t *testing.T) {
	cfg := jwtConfig()
	m := newManager(t, cfg)

	valid, err := m.CreateAccessToken(auth.AccessTokenClaims{UserID: "user-1", Role: "user", Tier: "free"})
	require.NoError(t, err)

	expiredCfg := cfg
	expiredCfg.AccessTokenExpire = -time.Minute
	expired, err := newManager(t, expiredCfg).CreateAccessToken(auth.AccessTokenClaims{UserID: "user-1"})
	require.NoError(t, err)

	otherKey, err := newManager(t, cfg).CreateAccessToken(auth.AccessTokenClaims{UserID: "user-1"})
	require.NoError(t, err)

	otherIssuerCfg := cfg
	otherIssuerCfg.Issuer = "someone-else"
	otherIssuer := newManager(t, otherIssuerCfg)
	foreign, err := otherIssuer.CreateAccessToken(auth.AccessTokenClaims{UserID: "user-1"})
	require.NoError(t, err)

	parts := strings.Split(valid, ".")
	tampered := parts[0] + "." + parts[1] + "x." + parts[2]

	tests := []struct {
		name    string
		verify  func() error
		wantErr error
	}{
		{"garbage", func() error {
			_, err := m.VerifyAccessToken(context.Background(), "not.a.jwt")
			return err
		}, core.ErrTokenInvalid},
		{"tampered payload", func() error {
			_, err := m.VerifyAccessToken(context.Background(), tampered)
			return err
		}, core.ErrTokenInvalid},
		{"different signing key", func() error {
			_, err := m.VerifyAccessToken(context.Background(), otherKey)
			return err
		}, core.ErrTokenInvalid},
		{"wrong issuer", func() error {
			_, err := otherIssuer.VerifyAccessToken(context.Background(), valid)
			return err
		}, core.ErrTokenInvalid},
		{"foreign token", func() error {
			_, err := m.VerifyAccessToken(context.Background(), foreign)
			return err
		}, core.ErrTokenInvalid},
		{"expired", func() error {
			_, err := m.VerifyAccessToken(context.Background(), expired)
			return err
		}, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.verify()
			require.Error(t, err)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			}
		})
	}
}

func TestJWT_ExpiredSameKey(t *testing.T) {
	cfg := jwtConfig()
	cfg.AccessTokenExpire = -time.Minute
	m := newManager(t, cfg)

	token, err := m.CreateAccessToken(auth.AccessTokenClaims{UserID: "user-1", Role: "user", Tier: "free"})
	require.NoError(t, err)

	_, err = m.VerifyAccessToken(context.Background(), token)
	require.Error(t, err)
	assert.ErrorIs(t, err, core.ErrTokenExpired)
}

func TestGenerateKeyPair(t *testing.T) {
	dir := t.TempDir()
	cfg := jwtConfig()
	cfg.PrivateKeyPath = filepath.Join(dir, "private.pem")
	cfg.PublicKeyPath = filepath.Join(dir, "public.pem")

	require.NoError(t, auth.GenerateKeyPair(cfg.PrivateKeyPath, cfg.PublicKeyPath))

	m, err := auth.NewJWTManager(cfg)
	require.NoError(t, err)

	token, err := m.CreateAccessToken(auth.AccessTokenClaims{UserID: "user-9", Role: "user", Tier: "free"})
	require.NoError(t, err)

	claims, err := m.VerifyAccessToken(context.Background(), token)
	require.NoError(t, err)
	assert.Equal(t, "user-9", claims.UserID)
}

func TestNewJWTManager_MissingKey(t *testing.T) {
	cfg := jwtConfig()
	cfg.PrivateKeyPath = filepath.Join(t.TempDir(), "absent.pem")

	_, err := auth.NewJWTManager(cfg)
	assert.ErrorContains(t, err, "read private key")
}

func TestJWKSHandler(t *testing.T) {
	m := newManager(t, jwtConfig())

	rec := httptest.NewRecorder()
	m.GetJWKSHandler()(rec, httptest.NewRequest(http.MethodGet, "/.well-known/jwks.json", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "public, max-age=3600", rec.Header().Get("Cache-Control"))

	var set struct {
		Keys []map[string]any `json:"keys"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &set))
	require.Len(t, set.Keys, 1)
	assert.Equal(t, "EC", set.Keys[0]["kty"])
	assert.Equal(t, "sig", set.Keys[0]["use"])
	assert.Equal(t, m.GetKeyID(), set.Keys[0]["kid"])
	assert.NotContains(t, set.Keys[0], "d")
}

func TestCreateRefreshToken(t *testing.T) {
	m := newManager(t, jwtConfig())

	data, err := m.CreateRefreshToken("user-1", "")
	require.NoError(t, err)
	assert.NotEmpty(t, data.FamilyID)
	assert.Equal(t, core.HashToken(data.Token), data.Hash)
	assert.WithinDuration(t, time.Now().Add(24*time.Hour), data.ExpiresAt, 5*time.Second)

	rotated, err := m.CreateRefreshToken("user-1", data.FamilyID)
	require.NoError(t, err)
	assert.Equal(t, data.FamilyID, rotated.FamilyID)
	assert.NotEqual(t, data.Token, rotated.Token)
}

func TestJWT_ImpersonationClaims(t *testing.T) {
	m := newManager(t, jwtConfig())

	token, err := m.CreateAccessToken(auth.AccessTokenClaims{
		UserID:         "user-2",
		Role:           "user",
		Tier:           "free",
		ImpersonatedBy: "admin-1",
		TTL:            2 * time.Minute,
	})
	require.NoError(t, err)

	claims, err := m.VerifyAccessToken(context.Background(), token)
	require.NoError(t, err)
	assert.Equal(t, "admin-1", claims.ImpersonatedBy)
	assert.True(t, claims.Impersonating())
	assert.WithinDuration(t, time.Now().Add(2*time.Minute), claims.ExpiresAt, 5*time.Second)

	plain, err := m.CreateAccessToken(auth.AccessTokenClaims{UserID: "user-2", Role: "user"})
	require.NoError(t, err)
	claims, err = m.VerifyAccessToken(context.Background(), plain)
	require.NoError(t, err)
	assert.Empty(t, claims.ImpersonatedBy)
	assert.False(t, claims.Impersonating())
}
