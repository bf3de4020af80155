// AngelaMos | 2026
// entity.go

package user

import (
	"time"
)

type User struct {
	ID           string     `db:"id"`
	Email        string     `db:"email"`
	PasswordHash string     `db:"password_hash"`
	Name         string     `db:"name"`
	Image        *string    `db:"image"`
	Role         string     `db:"role"`
	Tier         string     `db:"tier"`
	Banned       bool       `db:"banned"`
	BanReason    *string    `db:"ban_reason"`
	BanExpires   *time.Time `db:"ban_expires"`
	TokenVersion int        `db:"token_version"`
	CreatedAt    time.Time  `db:"created_at"`
	UpdatedAt    time.Time  `db:"updated_at"`
	DeletedAt    *time.Time `db:"deleted_at"`
}

func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin || u.Role == RoleSuperAdmin
}

func (u *User) IsSuperAdmin() bool {
	return u.Role == RoleSuperAdmin
}

// BanActive reports whether the ban still applies at now. A ban without an
// expiry never lapses.
func (u *User) BanActive(now time.Time) bool {
	if !u.Banned {
		return false
	}
	return u.BanExpires == nil || now.Before(*u.BanExpires)
}

type Stats struct {
	Total        int `db:"total"        json:"total"`
	NewLast30Day int `db:"new_last_30d" json:"new_last_30_days"`
	NewLast7Day  int `db:"new_last_7d"  json:"new_last_7_days"`
	Banned       int `db:"banned"       json:"banned"`
}

const (
	RoleUser       = "user"
	RoleAdmin      = "admin"
	RoleSuperAdmin = "superadmin"
)

const (
	TierFree       = "free"
	TierPro        = "pro"
	TierEnterprise = "enterprise"
)

func validRole(role string) bool {
	switch role {
	case RoleUser, RoleAdmin, RoleSuperAdmin:
		return true
	}
	return false
}
