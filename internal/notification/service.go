// AngelaMos | 2026
// service.go

package notification

import (
	"context"
	"errors"
	"fmt"

	"github.com/carterperez-dev/templates/saas-backend/internal/core"
)

type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// Get returns stored preferences, persisting the defaults on first read.
func (s *Service) Get(ctx context.Context, userID string) (*Preferences, error) {
	if userID == "" {
		return nil, fmt.Errorf("get preferences: %w", core.ErrUnauthorized)
	}

	prefs, err := s.repo.Get(ctx, userID)
	if err == nil {
		return prefs, nil
	}
	if !errors.Is(err, core.ErrNotFound) {
		return nil, err
	}

	prefs = Defaults(userID)
	if err := s.repo.Upsert(ctx, prefs); err != nil {
		return nil, err
	}

	return prefs, nil
}

func (s *Service) Update(
	ctx context.Context,
	userID string,
	req UpdateRequest,
) (*Preferences, error) {
	if userID == "" {
		return nil, fmt.Errorf("update preferences: %w", core.ErrUnauthorized)
	}

	if req.AccountUpdates == nil || req.ProductUpdates == nil ||
		req.MarketingEmails == nil {
		return nil, fmt.Errorf("update preferences: %w", core.ErrInvalidInput)
	}

	prefs := &Preferences{
		UserID:          userID,
		AccountUpdates:  *req.AccountUpdates,
		ProductUpdates:  *req.ProductUpdates,
		MarketingEmails: *req.MarketingEmails,
	}

	if err := s.repo.Upsert(ctx, prefs); err != nil {
		return nil, err
	}

	return prefs, nil
}
