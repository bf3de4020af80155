// AngelaMos | 2026
// handler_test.go

package admin_test

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/carterperez-dev/templates/saas-backend/internal/admin"
	"github.com/carterperez-dev/templates/saas-backend/internal/auth"
	"github.com/carterperez-dev/templates/saas-backend/internal/core"
	"github.com/carterperez-dev/templates/saas-backend/internal/middleware"
	"github.com/carterperez-dev/templates/saas-backend/internal/user"
)

type fakeSessions struct {
	revoked []string
	reasons []auth.RevokeReason
	err     error
}

func (f *fakeSessions) EndAllSessions(
	_ context.Context,
	userID string,
	reason auth.RevokeReason,
) (int64, error) {
	if f.err != nil {
		return 0, f.err
	}
	f.revoked = append(f.revoked, userID)
	f.reasons = append(f.reasons, reason)
	return 2, nil
}

type fakeImpersonator struct {
	startErr error
	stopErr  error
	actor    *middleware.AccessTokenClaims
	stopped  *middleware.AccessTokenClaims
}

func (f *fakeImpersonator) Impersonate(
	_ context.Context,
	actor *middleware.AccessTokenClaims,
	targetID string,
) (*auth.ImpersonationResponse, error) {
	if f.startErr != nil {
		return nil, f.startErr
	}
	f.actor = actor
	return &auth.ImpersonationResponse{
		User: auth.UserResponse{ID: targetID, Role: middleware.RoleUser},
		Token: auth.AccessTokenResponse{
			AccessToken: "impersonation-token",
			TokenType:   "Bearer",
			ExpiresIn:   int(auth.ImpersonationTTL / time.Second),
			ExpiresAt:   time.Now().Add(auth.ImpersonationTTL),
		},
		ImpersonatedBy: actor.UserID,
	}, nil
}

func (f *fakeImpersonator) StopImpersonating(
	_ context.Context,
	claims *middleware.AccessTokenClaims,
) (*auth.AccessTokenResponse, error) {
	if f.stopErr != nil {
		return nil, f.stopErr
	}
	f.stopped = claims
	return &auth.AccessTokenResponse{AccessToken: "admin-token", TokenType: "Bearer", ExpiresIn: 900}, nil
}

type fakeModerator struct {
	banErr   error
	unbanErr error
	lastBan  struct {
		actor, target, reason string
		expiresAt             *time.Time
	}
}

func (f *fakeModerator) Ban(
	_ context.Context,
	actorID, targetID, reason string,
	expiresAt *time.Time,
) (*user.User, error) {
	if f.banErr != nil {
		return nil, f.banErr
	}
	f.lastBan.actor = actorID
	f.lastBan.target = targetID
	f.lastBan.reason = reason
	f.lastBan.expiresAt = expiresAt
	return &user.User{ID: targetID, Banned: true, BanReason: &reason, BanExpires: expiresAt}, nil
}

func (f *fakeModerator) Unban(_ context.Context, targetID string) (*user.User, error) {
	if f.unbanErr != nil {
		return nil, f.unbanErr
	}
	return &user.User{ID: targetID}, nil
}

func (f *fakeModerator) Stats(context.Context) (*user.Stats, error) {
	return &user.Stats{Total: 10, NewLast7Day: 2, NewLast30Day: 5, Banned: 1}, nil
}

func newAdminRouter(cfg admin.HandlerConfig, role string) http.Handler {
	return newRouterWithClaims(cfg, &middleware.AccessTokenClaims{
		UserID: "admin-1",
		Role:   role,
	})
}

func newRouterWithClaims(cfg admin.HandlerConfig, claims *middleware.AccessTokenClaims) http.Handler {
	h := admin.NewHandler(cfg)

	authenticate := func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := middleware.WithClaims(r.Context(), claims)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}

	r := chi.NewRouter()
	h.RegisterRoutes(r, authenticate, middleware.RequireAdmin)
	return r
}

func send(router http.Handler, method, path, body string) (*httptest.ResponseRecorder, core.Response) {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	var resp core.Response
	_ = json.Unmarshal(rec.Body.Bytes(), &resp) //nolint:errcheck // 204 has no body
	return rec, resp
}

func TestBanUser(t *testing.T) {
	sessions := &fakeSessions{}
	users := &fakeModerator{}
	router := newAdminRouter(admin.HandlerConfig{Sessions: sessions, Users: users}, middleware.RoleAdmin)

	rec, resp := send(router, http.MethodPost, "/admin/users/u-9/ban",
		`{"reason":"spam","expires_at":"2099-01-01T00:00:00Z"}`)

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.True(t, resp.Success)
	assert.Equal(t, []string{"u-9"}, sessions.revoked)
	assert.Equal(t, []auth.RevokeReason{auth.RevokeBanned}, sessions.reasons)
	assert.Equal(t, "admin-1", users.lastBan.actor)
	assert.Equal(t, "spam", users.lastBan.reason)
	require.NotNil(t, users.lastBan.expiresAt)
	assert.Equal(t, 2099, users.lastBan.expiresAt.Year())

	data, ok := resp.Data.(map[string]any)
	require.True(t, ok)
	assert.Equal(t, true, data["banned"])
	assert.Equal(t, "spam", data["ban_reason"])
}

func TestBanUser_Errors(t *testing.T) {
	tests := []struct {
		name       string
		body       string
		banErr     error
		sessionErr error
		wantCode   int
	}{
		{"missing reason", `{}`, nil, nil, http.StatusBadRequest},
		{"malformed", `{"reason":`, nil, nil, http.StatusBadRequest},
		{"forbidden", `{"reason":"x"}`, fmt.Errorf("ban: %w", core.ErrForbidden), nil, http.StatusForbidden},
		{"not found", `{"reason":"x"}`, fmt.Errorf("get user: %w", core.ErrNotFound), nil, http.StatusNotFound},
		{"invalid", `{"reason":"x"}`, fmt.Errorf("ban: %w", core.ErrInvalidInput), nil, http.StatusBadRequest},
		{"revocation fails", `{"reason":"x"}`, nil, errors.New("redis down"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sessions := &fakeSessions{err: tt.sessionErr}
			router := newAdminRouter(admin.HandlerConfig{
				Sessions: sessions,
				Users:    &fakeModerator{banErr: tt.banErr},
			}, middleware.RoleAdmin)

			rec, resp := send(router, http.MethodPost, "/admin/users/u-9/ban", tt.body)

			assert.Equal(t, tt.wantCode, rec.Code)
			assert.False(t, resp.Success)
			assert.Empty(t, sessions.revoked)
		})
	}
}

func TestUnbanUser(t *testing.T) {
	router := newAdminRouter(admin.HandlerConfig{
		Sessions: &fakeSessions{},
		Users:    &fakeModerator{},
	}, middleware.RoleSuperAdmin)

	rec, resp := send(router, http.MethodDelete, "/admin/users/u-9/ban", "")
	require.Equal(t, http.StatusOK, rec.Code)
	data, ok := resp.Data.(map[string]any)
	require.True(t, ok)
	assert.Equal(t, false, data["banned"])

	missing := newAdminRouter(admin.HandlerConfig{
		Sessions: &fakeSessions{},
		Users:    &fakeModerator{unbanErr: core.ErrNotFound},
	}, middleware.RoleAdmin)

	rec, _ = send(missing, http.MethodDelete, "/admin/users/u-9/ban", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestRevokeUserSessions(t *testing.T) {
	sessions := &fakeSessions{}
	router := newAdminRouter(admin.HandlerConfig{Sessions: sessions, Users: &fakeModerator{}}, middleware.RoleAdmin)

	rec, _ := send(router, http.MethodDelete, "/admin/users/u-3/sessions", "")

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, []string{"u-3"}, sessions.revoked)
	assert.Equal(t, []auth.RevokeReason{auth.RevokeAdmin}, sessions.reasons)
}

func TestRequiresAdmin(t *testing.T) {
	router := newAdminRouter(admin.HandlerConfig{Sessions: &fakeSessions{}, Users: &fakeModerator{}}, middleware.RoleUser)

	for _, path := range []string{"/admin/stats", "/admin/users/stats"} {
		rec, resp := send(router, http.MethodGet, path, "")
		assert.Equal(t, http.StatusForbidden, rec.Code, path)
		require.NotNil(t, resp.Error)
		assert.Equal(t, "FORBIDDEN", resp.Error.Code)
	}
}

func TestStats(t *testing.T) {
	router := newAdminRouter(admin.HandlerConfig{
		DBStats:    func() sql.DBStats { return sql.DBStats{MaxOpenConnections: 25, InUse: 3} },
		RedisStats: func() *redis.PoolStats { return &redis.PoolStats{Hits: 7} },
		DBPing:     func(context.Context) error { return nil },
		RedisPing:  func(context.Context) error { return errors.New("timeout") },
		Sessions:   &fakeSessions{},
		Users:      &fakeModerator{},
	}, middleware.RoleAdmin)

	rec, _ := send(router, http.MethodGet, "/admin/stats", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var system struct {
		Data admin.SystemStatsResponse `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &system))
	assert.True(t, system.Data.Database.Healthy)
	assert.False(t, system.Data.Redis.Healthy)
	require.NotNil(t, system.Data.Database.Stats)
	assert.Equal(t, 25, system.Data.Database.Stats.MaxOpenConnections)
	require.NotNil(t, system.Data.Redis.Stats)
	assert.Equal(t, uint32(7), system.Data.Redis.Stats.Hits)
	assert.NotEmpty(t, system.Data.Runtime.GoVersion)

	rec, _ = send(router, http.MethodGet, "/admin/users/stats", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var users struct {
		Data user.Stats `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &users))
	assert.Equal(t, 10, users.Data.Total)
	assert.Equal(t, 1, users.Data.Banned)
}

func TestUserRoutesMounted(t *testing.T) {
	var hit bool
	router := newAdminRouter(admin.HandlerConfig{
		Sessions: &fakeSessions{},
		Users:    &fakeModerator{},
		UserRoutes: func(r chi.Router) {
			r.Get("/", func(w http.ResponseWriter, _ *http.Request) {
				hit = true
				core.OK(w, []string{})
			})
		},
	}, middleware.RoleAdmin)

	rec, _ := send(router, http.MethodGet, "/admin/users/", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, hit)
}

func TestImpersonate(t *testing.T) {
	imp := &fakeImpersonator{}
	router := newAdminRouter(admin.HandlerConfig{
		Sessions:     &fakeSessions{},
		Impersonator: imp,
		Users:        &fakeModerator{},
	}, middleware.RoleAdmin)

	rec, resp := send(router, http.MethodPost, "/admin/users/u-7/impersonate", "")

	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.True(t, resp.Success)
	require.NotNil(t, imp.actor)
	assert.Equal(t, "admin-1", imp.actor.UserID)

	var body struct {
		Data auth.ImpersonationResponse `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "u-7", body.Data.User.ID)
	assert.Equal(t, "admin-1", body.Data.ImpersonatedBy)
	assert.Equal(t, "impersonation-token", body.Data.Token.AccessToken)
	assert.Equal(t, 1800, body.Data.Token.ExpiresIn)
}

func TestImpersonate_Errors(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		wantCode int
	}{
		{"denied", fmt.Errorf("impersonate: %w", auth.ErrImpersonationDenied), http.StatusForbidden},
		{"unknown user", fmt.Errorf("get target: %w", core.ErrNotFound), http.StatusNotFound},
		{"no actor", fmt.Errorf("impersonate: %w", core.ErrUnauthorized), http.StatusUnauthorized},
		{"store down", errors.New("connection refused"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router := newAdminRouter(admin.HandlerConfig{
				Sessions:     &fakeSessions{},
				Impersonator: &fakeImpersonator{startErr: tt.err},
				Users:        &fakeModerator{},
			}, middleware.RoleSuperAdmin)

			rec, resp := send(router, http.MethodPost, "/admin/users/u-7/impersonate", "")

			assert.Equal(t, tt.wantCode, rec.Code)
			assert.False(t, resp.Success)
		})
	}
}

func TestImpersonate_RequiresAdmin(t *testing.T) {
	imp := &fakeImpersonator{}
	router := newAdminRouter(admin.HandlerConfig{
		Sessions:     &fakeSessions{},
		Impersonator: imp,
		Users:        &fakeModerator{},
	}, middleware.RoleUser)

	rec, _ := send(router, http.MethodPost, "/admin/users/u-7/impersonate", "")

	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Nil(t, imp.actor)
}

func TestStopImpersonating(t *testing.T) {
	imp := &fakeImpersonator{}
	claims := &middleware.AccessTokenClaims{
		ID:             "jti-9",
		UserID:         "u-7",
		Role:           middleware.RoleUser,
		ImpersonatedBy: "admin-1",
	}
	router := newRouterWithClaims(admin.HandlerConfig{
		Sessions:     &fakeSessions{},
		Impersonator: imp,
		Users:        &fakeModerator{},
	}, claims)

	rec, resp := send(router, http.MethodDelete, "/admin/impersonation", "")

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.True(t, resp.Success)
	assert.Same(t, claims, imp.stopped)

	data, ok := resp.Data.(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "admin-token", data["access_token"])
}

func TestStopImpersonating_Errors(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		wantCode int
	}{
		{"ordinary session", fmt.Errorf("stop impersonating: %w", auth.ErrNotImpersonating), http.StatusBadRequest},
		{"admin demoted", fmt.Errorf("stop impersonating: %w", core.ErrForbidden), http.StatusForbidden},
		{"admin banned", auth.ErrUserBanned, http.StatusForbidden},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router := newAdminRouter(admin.HandlerConfig{
				Sessions:     &fakeSessions{},
				Impersonator: &fakeImpersonator{stopErr: tt.err},
				Users:        &fakeModerator{},
			}, middleware.RoleUser)

			rec, resp := send(router, http.MethodDelete, "/admin/impersonation", "")

			assert.Equal(t, tt.wantCode, rec.Code)
			assert.False(t, resp.Success)
		})
	}
}

func TestImpersonationRoutes_NeedImpersonator(t *testing.T) {
	router := newAdminRouter(admin.HandlerConfig{
		Sessions: &fakeSessions{},
		Users:    &fakeModerator{},
	}, middleware.RoleSuperAdmin)

	rec, _ := send(router, http.MethodPost, "/admin/users/u-7/impersonate", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec, _ = send(router, http.MethodDelete, "/admin/impersonation", "")
	assert.NotEqual(t, http.StatusOK, rec.Code)
}
