// AngelaMos | 2026
// service_test.go

package user_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/carterperez-dev/templates/saas-backend/internal/core"
	"github.com/carterperez-dev/templates/saas-backend/internal/user"
)

type memRepo struct {
	mu           sync.Mutex
	users        map[string]*user.User
	versionBumps map[string]int
	setImageErr  error
	listParams   user.ListUsersParams
}

func newMemRepo(users ...*user.User) *memRepo {
	r := &memRepo{
		users:        map[string]*user.User{},
		versionBumps: map[string]int{},
	}
	for _, u := range users {
		r.users[u.ID] = u
	}
	return r
}

func (r *memRepo) get(id string) (*user.User, error) {
	u, ok := r.users[id]
	if !ok || u.DeletedAt != nil {
		return nil, fmt.Errorf("get user: %w", core.ErrNotFound)
	}
	return u, nil
}

func (r *memRepo) Create(_ context.Context, u *user.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.users {
		if existing.Email == u.Email {
			return fmt.Errorf("create user: %w", core.ErrDuplicateKey)
		}
	}
	u.CreatedAt = time.Now()
	u.UpdatedAt = u.CreatedAt
	stored := *u
	r.users[u.ID] = &stored
	return nil
}

func (r *memRepo) GetByID(_ context.Context, id string) (*user.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, err := r.get(id)
	if err != nil {
		return nil, err
	}
	clone := *u
	return &clone, nil
}

func (r *memRepo) GetByEmail(_ context.Context, email string) (*user.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if u.Email == email && u.DeletedAt == nil {
			clone := *u
			return &clone, nil
		}
	}
	return nil, fmt.Errorf("get user by email: %w", core.ErrNotFound)
}

func (r *memRepo) Update(_ context.Context, u *user.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, err := r.get(u.ID); err != nil {
		return err
	}
	stored := *u
	r.users[u.ID] = &stored
	return nil
}

func (r *memRepo) UpdatePassword(_ context.Context, id, hash string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, err := r.get(id)
	if err != nil {
		return err
	}
	u.PasswordHash = hash
	return nil
}

func (r *memRepo) IncrementTokenVersion(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, err := r.get(id)
	if err != nil {
		return err
	}
	u.TokenVersion++
	r.versionBumps[id]++
	return nil
}

func (r *memRepo) SetImage(_ context.Context, id, image string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.setImageErr != nil {
		return r.setImageErr
	}
	u, err := r.get(id)
	if err != nil {
		return err
	}
	u.Image = &image
	return nil
}

func (r *memRepo) Ban(_ context.Context, id, reason string, expiresAt *time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, err := r.get(id)
	if err != nil {
		return err
	}
	u.Banned = true
	u.BanReason = &reason
	u.BanExpires = expiresAt
	return nil
}

func (r *memRepo) Unban(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, err := r.get(id)
	if err != nil {
		return err
	}
	u.Banned = false
	u.BanReason = nil
	u.BanExpires = nil
	return nil
}

func (r *memRepo) SoftDelete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, err := r.get(id)
	if err != nil {
		return err
	}
	now := time.Now()
	u.DeletedAt = &now
	return nil
}

func (r *memRepo) List(_ context.Context, params user.ListUsersParams) ([]user.User, int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.listParams = params
	out := make([]user.User, 0, len(r.users))
	for _, u := range r.users {
		if u.DeletedAt == nil {
			out = append(out, *u)
		}
	}
	return out, len(out), nil
}

func (r *memRepo) Stats(context.Context) (*user.Stats, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	stats := &user.Stats{}
	for _, u := range r.users {
		if u.DeletedAt != nil {
			continue
		}
		stats.Total++
		if u.Banned {
			stats.Banned++
		}
	}
	return stats, nil
}

func (r *memRepo) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	_, err := r.GetByEmail(ctx, email)
	if errors.Is(err, core.ErrNotFound) {
		return false, nil
	}
	return err == nil, err
}

type fakeProvisioner struct {
	seeds []string
	err   error
}

func (p *fakeProvisioner) Provision(_ context.Context, userID, seed string) (string, error) {
	if p.err != nil {
		return "", p.err
	}
	p.seeds = append(p.seeds, seed)
	return "https://cdn.example.test/users/" + userID + "/avatar/default.svg", nil
}

func member(id, role string) *user.User {
	return &user.User{
		ID:    id,
		Email: id + "@example.test",
		Name:  id,
		Role:  role,
		Tier:  user.TierFree,
	}
}

func TestService_Create_ProvisionsAvatar(t *testing.T) {
	repo := newMemRepo()
	provisioner := &fakeProvisioner{}
	svc := user.NewService(repo)
	svc.SetAvatarProvisioner(provisioner)

	info, err := svc.Create(context.Background(), "Ada@Example.test", "hash", "Ada")
	require.NoError(t, err)

	assert.Equal(t, "ada@example.test", info.Email)
	assert.Equal(t, []string{"Ada"}, provisioner.seeds)
	require.NotNil(t, info.Image)
	assert.Equal(t, "https://cdn.example.test/users/"+info.ID+"/avatar/default.svg", *info.Image)

	stored, err := repo.GetByID(context.Background(), info.ID)
	require.NoError(t, err)
	assert.Equal(t, info.Image, stored.Image)
}

func TestService_Create_AvatarFailureDoesNotBlockSignup(t *testing.T) {
	t.Run("provision fails", func(t *testing.T) {
		svc := user.NewService(newMemRepo())
		svc.SetAvatarProvisioner(&fakeProvisioner{err: errors.New("bucket down")})

		info, err := svc.Create(context.Background(), "ada@example.test", "hash", "Ada")
		require.NoError(t, err)
		assert.Nil(t, info.Image)
	})

	t.Run("image not saved", func(t *testing.T) {
		repo := newMemRepo()
		repo.setImageErr = errors.New("db down")
		svc := user.NewService(repo)
		svc.SetAvatarProvisioner(&fakeProvisioner{})

		info, err := svc.Create(context.Background(), "ada@example.test", "hash", "Ada")
		require.NoError(t, err)
		assert.Nil(t, info.Image)
	})

	t.Run("no provisioner", func(t *testing.T) {
		svc := user.NewService(newMemRepo())

		info, err := svc.Create(context.Background(), "ada@example.test", "hash", "Ada")
		require.NoError(t, err)
		assert.Nil(t, info.Image)
	})
}

func TestService_ReplaceImage(t *testing.T) {
	old := "https://cdn.example.test/old.svg"
	u := member("u1", user.RoleUser)
	u.Image = &old
	svc := user.NewService(newMemRepo(u))

	previous, err := svc.ReplaceImage(context.Background(), "u1", "https://cdn.example.test/new.svg")
	require.NoError(t, err)
	require.NotNil(t, previous)
	assert.Equal(t, old, *previous)

	got, err := svc.GetUser(context.Background(), "u1")
	require.NoError(t, err)
	assert.Equal(t, "https://cdn.example.test/new.svg", *got.Image)

	_, err = svc.ReplaceImage(context.Background(), "", "x")
	assert.ErrorIs(t, err, core.ErrUnauthorized)

	_, err = svc.ReplaceImage(context.Background(), "missing", "x")
	assert.ErrorIs(t, err, core.ErrNotFound)
}

func TestService_UpdateMe(t *testing.T) {
	svc := user.NewService(newMemRepo(member("u1", user.RoleUser)))

	name := "Grace"
	image := "https://images.example.test/grace.png"
	got, err := svc.UpdateMe(context.Background(), "u1", user.UpdateUserRequest{Name: &name, Image: &image})
	require.NoError(t, err)

	assert.Equal(t, "Grace", got.Name)
	require.NotNil(t, got.Image)
	assert.Equal(t, image, *got.Image)

	_, err = svc.UpdateMe(context.Background(), "", user.UpdateUserRequest{Name: &name})
	assert.ErrorIs(t, err, core.ErrUnauthorized)
}

func TestService_Ban(t *testing.T) {
	future := time.Now().Add(24 * time.Hour)
	past := time.Now().Add(-time.Hour)

	tests := []struct {
		name      string
		actor     string
		target    string
		reason    string
		expiresAt *time.Time
		wantErr   error
	}{
		{"admin bans user", "admin", "member", "spam", nil, nil},
		{"temporary ban", "admin", "member", "cool off", &future, nil},
		{"superadmin bans admin", "super", "admin", "abuse", nil, nil},
		{"superadmin bans superadmin", "super", "super2", "abuse", nil, nil},
		{"reason required", "admin", "member", "   ", nil, core.ErrInvalidInput},
		{"expiry in the past", "admin", "member", "spam", &past, core.ErrInvalidInput},
		{"self ban", "admin", "admin", "oops", nil, core.ErrForbidden},
		{"admin cannot ban superadmin", "admin", "super", "coup", nil, core.ErrForbidden},
		{"unknown target", "admin", "ghost", "spam", nil, core.ErrNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := newMemRepo(
				member("member", user.RoleUser),
				member("admin", user.RoleAdmin),
				member("super", user.RoleSuperAdmin),
				member("super2", user.RoleSuperAdmin),
			)
			svc := user.NewService(repo)

			got, err := svc.Ban(context.Background(), tt.actor, tt.target, tt.reason, tt.expiresAt)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				if target, ok := repo.users[tt.target]; ok {
					assert.False(t, target.Banned)
				}
				return
			}

			require.NoError(t, err)
			assert.True(t, got.Banned)
			require.NotNil(t, got.BanReason)
			assert.Equal(t, tt.reason, *got.BanReason)
			assert.Equal(t, tt.expiresAt, got.BanExpires)
			assert.True(t, repo.users[tt.target].Banned)
			assert.True(t, got.BanActive(time.Now()))
		})
	}
}

func TestService_Unban(t *testing.T) {
	reason := "spam"
	banned := member("member", user.RoleUser)
	banned.Banned = true
	banned.BanReason = &reason

	svc := user.NewService(newMemRepo(banned))

	got, err := svc.Unban(context.Background(), "member")
	require.NoError(t, err)
	assert.False(t, got.Banned)
	assert.Nil(t, got.BanReason)

	_, err = svc.Unban(context.Background(), "ghost")
	assert.ErrorIs(t, err, core.ErrNotFound)
}

func TestUser_BanActive(t *testing.T) {
	now := time.Now()
	later := now.Add(time.Minute)
	earlier := now.Add(-time.Minute)

	assert.False(t, (&user.User{}).BanActive(now))
	assert.True(t, (&user.User{Banned: true}).BanActive(now))
	assert.True(t, (&user.User{Banned: true, BanExpires: &later}).BanActive(now))
	assert.False(t, (&user.User{Banned: true, BanExpires: &earlier}).BanActive(now))
}

func TestService_UpdateUserRole(t *testing.T) {
	tests := []struct {
		name    string
		actor   string
		target  string
		role    string
		wantErr error
	}{
		{"admin promotes user", "admin", "member", user.RoleAdmin, nil},
		{"admin demotes admin", "admin", "admin2", user.RoleUser, nil},
		{"superadmin grants superadmin", "super", "member", user.RoleSuperAdmin, nil},
		{"superadmin demotes other superadmin", "super", "super2", user.RoleAdmin, nil},
		{"invalid role", "admin", "member", "owner", core.ErrInvalidInput},
		{"admin cannot grant superadmin", "admin", "member", user.RoleSuperAdmin, core.ErrForbidden},
		{"admin cannot demote superadmin", "admin", "super", user.RoleUser, core.ErrForbidden},
		{"superadmin cannot demote self", "super", "super", user.RoleAdmin, core.ErrForbidden},
		{"unknown target", "admin", "ghost", user.RoleAdmin, core.ErrNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := newMemRepo(
				member("member", user.RoleUser),
				member("admin", user.RoleAdmin),
				member("admin2", user.RoleAdmin),
				member("super", user.RoleSuperAdmin),
				member("super2", user.RoleSuperAdmin),
			)
			svc := user.NewService(repo)

			got, err := svc.UpdateUserRole(context.Background(), tt.actor, tt.target, tt.role)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				assert.Zero(t, repo.versionBumps[tt.target])
				return
			}

			require.NoError(t, err)
			assert.Equal(t, tt.role, got.Role)
			assert.Equal(t, tt.role, repo.users[tt.target].Role)
			assert.Equal(t, 1, repo.versionBumps[tt.target])
		})
	}
}

func TestService_CanDeleteUser(t *testing.T) {
	tests := []struct {
		name      string
		requester string
		target    string
		wantErr   error
	}{
		{"self", "member", "member", nil},
		{"admin deletes user", "admin", "member", nil},
		{"superadmin deletes admin", "super", "admin", nil},
		{"user deletes other", "member", "admin", core.ErrForbidden},
		{"admin deletes admin", "admin", "admin2", core.ErrForbidden},
		{"admin deletes superadmin", "admin", "super", core.ErrForbidden},
		{"unknown target", "admin", "ghost", core.ErrNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := user.NewService(newMemRepo(
				member("member", user.RoleUser),
				member("admin", user.RoleAdmin),
				member("admin2", user.RoleAdmin),
				member("super", user.RoleSuperAdmin),
			))

			err := svc.CanDeleteUser(context.Background(), tt.requester, tt.target)
			if tt.wantErr == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestService_Stats(t *testing.T) {
	reason := "spam"
	banned := member("b", user.RoleUser)
	banned.Banned = true
	banned.BanReason = &reason

	svc := user.NewService(newMemRepo(member("a", user.RoleUser), banned))

	stats, err := svc.Stats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, stats.Total)
	assert.Equal(t, 1, stats.Banned)
}

func TestService_LiftBan(t *testing.T) {
	reason := "spam"
	expired := time.Now().Add(-time.Hour)
	banned := member("b", user.RoleUser)
	banned.Banned = true
	banned.BanReason = &reason
	banned.BanExpires = &expired

	repo := newMemRepo(banned)
	svc := user.NewService(repo)

	info, err := svc.GetByID(context.Background(), "b")
	require.NoError(t, err)
	assert.True(t, info.Banned)
	assert.False(t, info.BanActive(time.Now()))

	require.NoError(t, svc.LiftBan(context.Background(), "b"))
	assert.False(t, repo.users["b"].Banned)
}
