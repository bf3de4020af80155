// AngelaMos | 2026
// service.go

package avatar

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/carterperez-dev/templates/saas-backend/internal/core"
	"github.com/carterperez-dev/templates/saas-backend/internal/storage"
)

const (
	cacheKeyPrefix       = "avatar:gradient:"
	defaultCacheTTL      = 24 * time.Hour
	defaultUploadTimeout = 10 * time.Second
)

type ServiceConfig struct {
	Store         storage.ObjectStore
	Cache         Cache
	CacheTTL      time.Duration
	UploadTimeout time.Duration
	Logger        *slog.Logger
}

type Service struct {
	store         storage.ObjectStore
	cache         Cache
	cacheTTL      time.Duration
	uploadTimeout time.Duration
	logger        *slog.Logger
	tracer        trace.Tracer
	newID         func() string
}

func NewService(cfg ServiceConfig) *Service {
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = defaultCacheTTL
	}
	if cfg.UploadTimeout <= 0 {
		cfg.UploadTimeout = defaultUploadTimeout
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	return &Service{
		store:         cfg.Store,
		cache:         cfg.Cache,
		cacheTTL:      cfg.CacheTTL,
		uploadTimeout: cfg.UploadTimeout,
		logger:        cfg.Logger,
		tracer:        otel.Tracer("avatar"),
		newID:         func() string { return uuid.New().String() },
	}
}

// Provision creates and stores a letter avatar for a new account.
func (s *Service) Provision(
	ctx context.Context,
	userID, seed string,
) (string, error) {
	a, err := s.Generate(ctx, userID, GenerateRequest{
		Seed:    seed,
		Variant: string(VariantLetter),
	})
	if err != nil {
		return "", err
	}
	return a.URL, nil
}

func (s *Service) Generate(
	ctx context.Context,
	userID string,
	req GenerateRequest,
) (*Avatar, error) {
	if userID == "" {
		return nil, fmt.Errorf("generate avatar: %w", core.ErrUnauthorized)
	}

	variant, err := ParseVariant(req.Variant)
	if err != nil {
		return nil, fmt.Errorf("generate avatar: %w: %w", core.ErrInvalidInput, err)
	}

	ctx, span := s.tracer.Start(ctx, "avatar.Generate", trace.WithAttributes(
		attribute.String("avatar.variant", string(variant)),
		attribute.String("user.id", userID),
	))
	defer span.End()

	image, err := Render(req.Seed, variant)
	if err != nil {
		return nil, fmt.Errorf("generate avatar: %w", err)
	}

	key := storage.UserKey(userID, "avatar", s.newID()+".svg")

	uploadCtx, cancel := context.WithTimeout(ctx, s.uploadTimeout)
	defer cancel()

	url, err := s.store.Put(uploadCtx, key, image, ContentType)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "upload failed")
		return nil, fmt.Errorf("upload avatar: %w", err)
	}

	s.logger.InfoContext(ctx, "avatar generated",
		"user_id", userID,
		"variant", variant,
		"key", key,
		"bytes", len(image),
	)

	return &Avatar{Key: key, URL: url, Variant: variant}, nil
}

// Discard removes an avatar previously stored for userID. URLs outside the
// store, or under another user's prefix, are left alone.
func (s *Service) Discard(ctx context.Context, userID, previousURL string) {
	key, ok := storage.KeyFromURL(s.store, previousURL)
	if !ok || userID == "" {
		return
	}

	if !strings.HasPrefix(key, storage.UserKey(userID, "avatar", "")) {
		s.logger.WarnContext(ctx, "refusing to delete foreign avatar",
			"user_id", userID,
			"key", key,
		)
		return
	}

	if err := s.store.Delete(ctx, key); err != nil {
		s.logger.WarnContext(ctx, "previous avatar not deleted",
			"key", key,
			"error", err,
		)
	}
}

// Preview renders an avatar without storing it. Gradient avatars are a
// pure function of the seed and are served from cache when possible.
func (s *Service) Preview(
	ctx context.Context,
	seed string,
	variant Variant,
) ([]byte, error) {
	if variant != VariantGradient || s.cache == nil {
		return Render(seed, variant)
	}

	key := previewCacheKey(seed)

	cached, err := s.cache.Get(ctx, key)
	if err == nil {
		return cached, nil
	}
	if !errors.Is(err, ErrCacheMiss) {
		s.logger.WarnContext(ctx, "avatar cache read failed", "error", err)
	}

	image := GenerateGradientAvatarImage(seed)

	if err := s.cache.Set(ctx, key, image, s.cacheTTL); err != nil {
		s.logger.WarnContext(ctx, "avatar cache write failed", "error", err)
	}

	return image, nil
}

func previewCacheKey(seed string) string {
	sum := sha256.Sum256([]byte(seed))
	return cacheKeyPrefix + hex.EncodeToString(sum[:])
}
