// AngelaMos | 2026
// repository.go

package notification

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/carterperez-dev/templates/saas-backend/internal/core"
)

type Repository interface {
	Get(ctx context.Context, userID string) (*Preferences, error)
	Upsert(ctx context.Context, prefs *Preferences) error
}

type repository struct {
	db core.DBTX
}

func NewRepository(db core.DBTX) Repository {
	return &repository{db: db}
}

func (r *repository) Get(
	ctx context.Context,
	userID string,
) (*Preferences, error) {
	query := `
		SELECT user_id, account_updates, product_updates, marketing_emails,
		       created_at, updated_at
		FROM notification_preferences
		WHERE user_id = $1`

	var prefs Preferences
	err := r.db.GetContext(ctx, &prefs, query, userID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("get notification preferences: %w", core.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get notification preferences: %w", err)
	}

	return &prefs, nil
}

func (r *repository) Upsert(ctx context.Context, prefs *Preferences) error {
	query := `
		INSERT INTO notification_preferences (
			user_id, account_updates, product_updates, marketing_emails
		) VALUES ($1, $2, $3, $4)
		ON CONFLICT (user_id) DO UPDATE SET
			account_updates  = EXCLUDED.account_updates,
			product_updates  = EXCLUDED.product_updates,
			marketing_emails = EXCLUDED.marketing_emails,
			updated_at       = NOW()
		RETURNING created_at, updated_at`

	err := r.db.QueryRowxContext(ctx, query,
		prefs.UserID,
		prefs.AccountUpdates,
		prefs.ProductUpdates,
		prefs.MarketingEmails,
	).Scan(&prefs.CreatedAt, &prefs.UpdatedAt)
	if err != nil {
		return fmt.Errorf("upsert notification preferences: %w", err)
	}

	return nil
}
