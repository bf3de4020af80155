// AngelaMos | 2026
// entity.go

package auth

import (
	"time"
)

// RevokeReason records why a session ended. It is stored with the token so
// moderation and reuse incidents can be told apart from ordinary logouts.
type RevokeReason string

const (
	RevokeLogout         RevokeReason = "logout"
	RevokeLogoutAll      RevokeReason = "logout_all"
	RevokeSessionEnded   RevokeReason = "session_revoked"
	RevokePasswordChange RevokeReason = "password_change"
	RevokeTokenReuse     RevokeReason = "token_reuse"
	RevokeBanned         RevokeReason = "banned"
	RevokeAdmin          RevokeReason = "admin"
)

// RefreshToken is one link in a session's rotation chain. Every token of a
// session shares FamilyID; only the newest one is ever valid.
type RefreshToken struct {
	ID           string     `db:"id"`
	UserID       string     `db:"user_id"`
	TokenHash    string     `db:"token_hash"`
	FamilyID     string     `db:"family_id"`
	ExpiresAt    time.Time  `db:"expires_at"`
	CreatedAt    time.Time  `db:"created_at"`
	IsUsed       bool       `db:"is_used"`
	UsedAt       *time.Time `db:"used_at"`
	RevokedAt    *time.Time `db:"revoked_at"`
	RevokeReason *string    `db:"revoke_reason"`
	ReplacedByID *string    `db:"replaced_by_id"`
	UserAgent    string     `db:"user_agent"`
	IPAddress    string     `db:"ip_address"`
}

func (t *RefreshToken) IsExpired() bool {
	return !time.Now().Before(t.ExpiresAt)
}

func (t *RefreshToken) IsRevoked() bool {
	return t.RevokedAt != nil
}

func (t *RefreshToken) IsValid() bool {
	return !t.IsExpired() && !t.IsRevoked() && !t.IsUsed
}

func (t *RefreshToken) MarkAsUsed(replacedByID string) {
	now := time.Now()
	t.IsUsed = true
	t.UsedAt = &now
	t.ReplacedByID = &replacedByID
}

// Revoke ends the token. The first reason wins; revoking twice keeps the
// original timestamp and reason.
func (t *RefreshToken) Revoke(reason RevokeReason) {
	if t.RevokedAt != nil {
		return
	}
	now := time.Now()
	r := string(reason)
	t.RevokedAt = &now
	t.RevokeReason = &r
}

// Session is the client-facing view of the token that currently backs a
// login.
func (t *RefreshToken) Session() SessionInfo {
	return SessionInfo{
		ID:        t.ID,
		UserAgent: t.UserAgent,
		IPAddress: t.IPAddress,
		CreatedAt: t.CreatedAt,
		ExpiresAt: t.ExpiresAt,
	}
}
