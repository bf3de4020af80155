// AngelaMos | 2026
// impersonation.go

package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/carterperez-dev/templates/saas-backend/internal/core"
	"github.com/carterperez-dev/templates/saas-backend/internal/middleware"
)

// ImpersonationTTL bounds an impersonated session. No refresh token is
// issued, so the admin has to start over once it lapses.
const ImpersonationTTL = 30 * time.Minute

var (
	ErrImpersonationDenied = errors.New("impersonation not permitted")
	ErrNotImpersonating    = errors.New("not an impersonated session")
)

// Impersonate mints a short-lived access token that acts as targetID on
// behalf of actor. Nobody impersonates a superadmin, only a superadmin may
// impersonate an admin, and an impersonated session cannot start another.
func (s *Service) Impersonate(
	ctx context.Context,
	actor *middleware.AccessTokenClaims,
	targetID string,
) (*ImpersonationResponse, error) {
	if actor == nil || actor.UserID == "" {
		return nil, fmt.Errorf("impersonate: %w", core.ErrUnauthorized)
	}

	if actor.Impersonating() {
		return nil, fmt.Errorf("impersonate: nested session: %w", ErrImpersonationDenied)
	}

	if actor.UserID == targetID {
		return nil, fmt.Errorf("impersonate: self: %w", ErrImpersonationDenied)
	}

	admin, err := s.userProvider.GetByID(ctx, actor.UserID)
	if err != nil {
		return nil, fmt.Errorf("get actor: %w", err)
	}
	if !isAdminRole(admin.Role) || admin.BanActive(time.Now()) {
		return nil, fmt.Errorf("impersonate: actor: %w", ErrImpersonationDenied)
	}

	target, err := s.userProvider.GetByID(ctx, targetID)
	if err != nil {
		return nil, fmt.Errorf("get target: %w", err)
	}

	switch {
	case target.Role == middleware.RoleSuperAdmin:
		return nil, fmt.Errorf("impersonate: superadmin target: %w", ErrImpersonationDenied)
	case target.Role == middleware.RoleAdmin && admin.Role != middleware.RoleSuperAdmin:
		return nil, fmt.Errorf("impersonate: admin target: %w", ErrImpersonationDenied)
	}

	token, err := s.jwt.CreateAccessToken(AccessTokenClaims{
		UserID:         target.ID,
		Role:           target.Role,
		Tier:           target.Tier,
		TokenVersion:   target.TokenVersion,
		ImpersonatedBy: admin.ID,
		TTL:            ImpersonationTTL,
	})
	if err != nil {
		return nil, fmt.Errorf("create impersonation token: %w", err)
	}

	return &ImpersonationResponse{
		User:           toUserResponse(target),
		Token:          accessTokenResponse(token, ImpersonationTTL),
		ImpersonatedBy: admin.ID,
	}, nil
}

// StopImpersonating revokes the impersonation token in claims and returns a
// fresh access token for the admin behind it.
func (s *Service) StopImpersonating(
	ctx context.Context,
	claims *middleware.AccessTokenClaims,
) (*AccessTokenResponse, error) {
	if !claims.Impersonating() {
		return nil, fmt.Errorf("stop impersonating: %w", ErrNotImpersonating)
	}

	if err := s.RevokeAccessToken(ctx, claims.ID, claims.ExpiresAt); err != nil {
		return nil, fmt.Errorf("stop impersonating: %w", err)
	}

	admin, err := s.userProvider.GetByID(ctx, claims.ImpersonatedBy)
	if err != nil {
		return nil, fmt.Errorf("get admin: %w", err)
	}

	if !isAdminRole(admin.Role) {
		return nil, fmt.Errorf("stop impersonating: role revoked: %w", core.ErrForbidden)
	}
	if err := s.checkBan(ctx, admin); err != nil {
		return nil, err
	}

	token, err := s.jwt.CreateAccessToken(AccessTokenClaims{
		UserID:       admin.ID,
		Role:         admin.Role,
		Tier:         admin.Tier,
		TokenVersion: admin.TokenVersion,
	})
	if err != nil {
		return nil, fmt.Errorf("create access token: %w", err)
	}

	resp := accessTokenResponse(token, s.jwt.AccessTokenTTL())
	return &resp, nil
}

func isAdminRole(role string) bool {
	return role == middleware.RoleAdmin || role == middleware.RoleSuperAdmin
}

func accessTokenResponse(token string, ttl time.Duration) AccessTokenResponse {
	return AccessTokenResponse{
		AccessToken: token,
		TokenType:   "Bearer",
		ExpiresIn:   int(ttl / time.Second),
		ExpiresAt:   time.Now().Add(ttl),
	}
}

func toUserResponse(u *UserInfo) UserResponse {
	return UserResponse{
		ID:        u.ID,
		Email:     u.Email,
		Name:      u.Name,
		Image:     u.Image,
		Role:      u.Role,
		Tier:      u.Tier,
		CreatedAt: u.CreatedAt,
	}
}
