// AngelaMos | 2026
// service.go

package user

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/carterperez-dev/templates/saas-backend/internal/auth"
	"github.com/carterperez-dev/templates/saas-backend/internal/core"
)

// AvatarProvisioner generates and stores a default avatar, returning its
// public URL.
type AvatarProvisioner interface {
	Provision(ctx context.Context, userID, seed string) (string, error)
}

type Service struct {
	repo    Repository
	avatars AvatarProvisioner
	logger  *slog.Logger
	now     func() time.Time
}

func NewService(repo Repository) *Service {
	return &Service{
		repo:   repo,
		logger: slog.Default(),
		now:    time.Now,
	}
}

// SetAvatarProvisioner enables default avatars for new accounts.
func (s *Service) SetAvatarProvisioner(p AvatarProvisioner) {
	s.avatars = p
}

func (s *Service) GetByID(
	ctx context.Context,
	id string,
) (*auth.UserInfo, error) {
	user, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	return toUserInfo(user), nil
}

func (s *Service) GetByEmail(
	ctx context.Context,
	email string,
) (*auth.UserInfo, error) {
	user, err := s.repo.GetByEmail(ctx, strings.ToLower(email))
	if err != nil {
		return nil, err
	}

	return toUserInfo(user), nil
}

// Create stores the account and then attaches a generated avatar. Avatar
// failures are logged and never fail the signup.
func (s *Service) Create(
	ctx context.Context,
	email, passwordHash, name string,
) (*auth.UserInfo, error) {
	user := &User{
		ID:           uuid.New().String(),
		Email:        strings.ToLower(email),
		PasswordHash: passwordHash,
		Name:         name,
		Role:         RoleUser,
		Tier:         TierFree,
	}

	if err := s.repo.Create(ctx, user); err != nil {
		return nil, err
	}

	s.provisionAvatar(ctx, user)

	return toUserInfo(user), nil
}

func (s *Service) provisionAvatar(ctx context.Context, user *User) {
	if s.avatars == nil {
		return
	}

	url, err := s.avatars.Provision(ctx, user.ID, user.Name)
	if err != nil {
		s.logger.WarnContext(ctx, "default avatar failed",
			"user_id", user.ID,
			"error", err,
		)
		return
	}

	if err := s.repo.SetImage(ctx, user.ID, url); err != nil {
		s.logger.WarnContext(ctx, "default avatar not saved",
			"user_id", user.ID,
			"error", err,
		)
		return
	}

	user.Image = &url
}

func (s *Service) IncrementTokenVersion(
	ctx context.Context,
	userID string,
) error {
	return s.repo.IncrementTokenVersion(ctx, userID)
}

func (s *Service) UpdatePassword(
	ctx context.Context,
	userID, passwordHash string,
) error {
	return s.repo.UpdatePassword(ctx, userID, passwordHash)
}

func (s *Service) LiftBan(ctx context.Context, userID string) error {
	return s.repo.Unban(ctx, userID)
}

// ReplaceImage sets the profile image and returns the one it replaced.
func (s *Service) ReplaceImage(
	ctx context.Context,
	userID, url string,
) (*string, error) {
	if userID == "" {
		return nil, fmt.Errorf("replace image: %w", core.ErrUnauthorized)
	}

	user, err := s.repo.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	if err := s.repo.SetImage(ctx, userID, url); err != nil {
		return nil, err
	}

	return user.Image, nil
}

func (s *Service) GetUser(ctx context.Context, id string) (*User, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *Service) UpdateUser(
	ctx context.Context,
	id string,
	req UpdateUserRequest,
) (*User, error) {
	user, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if req.Name != nil {
		user.Name = *req.Name
	}

	if req.Image != nil {
		image := *req.Image
		user.Image = &image
	}

	if err := s.repo.Update(ctx, user); err != nil {
		return nil, err
	}

	return user, nil
}

// UpdateUserRole applies a role change requested by actorID. Only a
// superadmin may grant or revoke superadmin, and a superadmin cannot demote
// themselves.
func (s *Service) UpdateUserRole(
	ctx context.Context,
	actorID, id, role string,
) (*User, error) {
	if !validRole(role) {
		return nil, fmt.Errorf(
			"update role: invalid role %q: %w",
			role,
			core.ErrInvalidInput,
		)
	}

	actor, err := s.repo.GetByID(ctx, actorID)
	if err != nil {
		return nil, err
	}

	user, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if actor.ID == user.ID && actor.IsSuperAdmin() && role != RoleSuperAdmin {
		return nil, fmt.Errorf(
			"update role: cannot demote yourself: %w",
			core.ErrForbidden,
		)
	}

	touchesSuper := role == RoleSuperAdmin || user.IsSuperAdmin()
	if touchesSuper && !actor.IsSuperAdmin() {
		return nil, fmt.Errorf(
			"update role: superadmin required: %w",
			core.ErrForbidden,
		)
	}

	user.Role = role

	if err := s.repo.Update(ctx, user); err != nil {
		return nil, err
	}

	if err := s.repo.IncrementTokenVersion(ctx, user.ID); err != nil {
		return nil, err
	}

	return user, nil
}

func (s *Service) UpdateUserTier(
	ctx context.Context,
	id, tier string,
) (*User, error) {
	if tier != TierFree && tier != TierPro && tier != TierEnterprise {
		return nil, fmt.Errorf(
			"update tier: invalid tier %q: %w",
			tier,
			core.ErrInvalidInput,
		)
	}

	user, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	user.Tier = tier

	if err := s.repo.Update(ctx, user); err != nil {
		return nil, err
	}

	return user, nil
}

// Ban suspends targetID. expiresAt nil means permanent.
func (s *Service) Ban(
	ctx context.Context,
	actorID, targetID, reason string,
	expiresAt *time.Time,
) (*User, error) {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return nil, fmt.Errorf("ban: reason required: %w", core.ErrInvalidInput)
	}

	if expiresAt != nil && !expiresAt.After(s.now()) {
		return nil, fmt.Errorf(
			"ban: expiry must be in the future: %w",
			core.ErrInvalidInput,
		)
	}

	if actorID == targetID {
		return nil, fmt.Errorf("ban: cannot ban yourself: %w", core.ErrForbidden)
	}

	actor, err := s.repo.GetByID(ctx, actorID)
	if err != nil {
		return nil, err
	}

	target, err := s.repo.GetByID(ctx, targetID)
	if err != nil {
		return nil, err
	}

	if target.IsSuperAdmin() && !actor.IsSuperAdmin() {
		return nil, fmt.Errorf(
			"ban: cannot ban a superadmin: %w",
			core.ErrForbidden,
		)
	}

	if err := s.repo.Ban(ctx, targetID, reason, expiresAt); err != nil {
		return nil, err
	}

	target.Banned = true
	target.BanReason = &reason
	target.BanExpires = expiresAt

	s.logger.InfoContext(ctx, "user banned",
		"actor_id", actorID,
		"target_id", targetID,
		"permanent", expiresAt == nil,
	)

	return target, nil
}

func (s *Service) Unban(ctx context.Context, targetID string) (*User, error) {
	if err := s.repo.Unban(ctx, targetID); err != nil {
		return nil, err
	}
	return s.repo.GetByID(ctx, targetID)
}

func (s *Service) Stats(ctx context.Context) (*Stats, error) {
	return s.repo.Stats(ctx)
}

func (s *Service) DeleteUser(ctx context.Context, id string) error {
	return s.repo.SoftDelete(ctx, id)
}

func (s *Service) ListUsers(
	ctx context.Context,
	params ListUsersParams,
) ([]User, int, error) {
	return s.repo.List(ctx, params)
}

func (s *Service) GetMe(ctx context.Context, userID string) (*User, error) {
	if userID == "" {
		return nil, fmt.Errorf("get me: %w", core.ErrUnauthorized)
	}

	return s.repo.GetByID(ctx, userID)
}

func (s *Service) UpdateMe(
	ctx context.Context,
	userID string,
	req UpdateUserRequest,
) (*User, error) {
	if userID == "" {
		return nil, fmt.Errorf("update me: %w", core.ErrUnauthorized)
	}

	return s.UpdateUser(ctx, userID, req)
}

func (s *Service) DeleteMe(ctx context.Context, userID string) error {
	if userID == "" {
		return fmt.Errorf("delete me: %w", core.ErrUnauthorized)
	}

	return s.repo.SoftDelete(ctx, userID)
}

func (s *Service) CanDeleteUser(
	ctx context.Context,
	requesterID, targetID string,
) error {
	if requesterID == targetID {
		return nil
	}

	requester, err := s.repo.GetByID(ctx, requesterID)
	if err != nil {
		return err
	}

	if !requester.IsAdmin() {
		return fmt.Errorf("delete user: %w", core.ErrForbidden)
	}

	target, err := s.repo.GetByID(ctx, targetID)
	if err != nil {
		return err
	}

	if target.IsAdmin() && !requester.IsSuperAdmin() {
		return fmt.Errorf("cannot delete admin users: %w", core.ErrForbidden)
	}

	return nil
}

func toUserInfo(u *User) *auth.UserInfo {
	return &auth.UserInfo{
		ID:           u.ID,
		Email:        u.Email,
		Name:         u.Name,
		PasswordHash: u.PasswordHash,
		Role:         u.Role,
		Tier:         u.Tier,
		TokenVersion: u.TokenVersion,
		Image:        u.Image,
		CreatedAt:    u.CreatedAt,
		Banned:       u.Banned,
		BanReason:    u.BanReason,
		BanExpires:   u.BanExpires,
	}
}

var _ auth.UserProvider = (*Service)(nil)
