// AngelaMos | 2026
// entity.go

package notification

import (
	"time"
)

type Preferences struct {
	UserID          string    `db:"user_id"          json:"-"`
	AccountUpdates  bool      `db:"account_updates"  json:"account_updates"`
	ProductUpdates  bool      `db:"product_updates"  json:"product_updates"`
	MarketingEmails bool      `db:"marketing_emails" json:"marketing_emails"`
	CreatedAt       time.Time `db:"created_at"       json:"-"`
	UpdatedAt       time.Time `db:"updated_at"       json:"updated_at"`
}

// Defaults are what a user gets before touching their settings:
// account mail on, everything promotional off.
func Defaults(userID string) *Preferences {
	return &Preferences{
		UserID:          userID,
		AccountUpdates:  true,
		ProductUpdates:  false,
		MarketingEmails: false,
	}
}

type UpdateRequest struct {
	AccountUpdates  *bool `json:"account_updates"  validate:"required"`
	ProductUpdates  *bool `json:"product_updates"  validate:"required"`
	MarketingEmails *bool `json:"marketing_emails" validate:"required"`
}
