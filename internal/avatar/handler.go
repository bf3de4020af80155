// AngelaMos | 2026
// handler.go

package avatar

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/carterperez-dev/templates/saas-backend/internal/core"
	"github.com/carterperez-dev/templates/saas-backend/internal/middleware"
	"github.com/carterperez-dev/templates/saas-backend/internal/storage"
)

// ProfileUpdater stores a generated avatar as the caller's profile image
// and reports the image it replaced.
type ProfileUpdater interface {
	ReplaceImage(ctx context.Context, userID, url string) (*string, error)
}

type Handler struct {
	service   *Service
	profiles  ProfileUpdater
	validator *validator.Validate
}

func NewHandler(service *Service, profiles ProfileUpdater) *Handler {
	return &Handler{
		service:   service,
		profiles:  profiles,
		validator: validator.New(validator.WithRequiredStructEnabled()),
	}
}

func (h *Handler) RegisterRoutes(
	r chi.Router,
	authenticator func(http.Handler) http.Handler,
	limiters ...func(http.Handler) http.Handler,
) {
	r.Route("/avatars", func(r chi.Router) {
		r.Get("/preview", h.Preview)

		r.Group(func(r chi.Router) {
			r.Use(authenticator)
			r.Use(limiters...)
			r.Post("/", h.Generate)
		})
	})
}

func (h *Handler) Generate(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	if userID == "" {
		core.Unauthorized(w, "")
		return
	}

	var req GenerateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		core.BadRequest(w, "invalid request body")
		return
	}

	if err := h.validator.Struct(req); err != nil {
		core.BadRequest(w, core.FormatValidationError(err))
		return
	}

	avatar, err := h.service.Generate(r.Context(), userID, req)
	if err != nil {
		if errors.Is(err, storage.ErrStorage) {
			core.JSONError(w, core.NewAppError(
				err,
				"failed to generate avatar",
				http.StatusBadGateway,
				"UPLOAD_FAILED",
			))
			return
		}
		if errors.Is(err, core.ErrInvalidInput) {
			core.BadRequest(w, "unknown avatar variant")
			return
		}
		core.InternalServerError(w, err)
		return
	}

	if h.profiles != nil {
		previous, err := h.profiles.ReplaceImage(r.Context(), userID, avatar.URL)
		if err != nil {
			h.service.Discard(r.Context(), userID, avatar.URL)
			if errors.Is(err, core.ErrNotFound) {
				core.NotFound(w, "user")
				return
			}
			core.InternalServerError(w, err)
			return
		}
		if previous != nil && *previous != avatar.URL {
			h.service.Discard(r.Context(), userID, *previous)
		}
	}

	core.Created(w, avatar)
}

func (h *Handler) Preview(w http.ResponseWriter, r *http.Request) {
	seed := r.URL.Query().Get("seed")
	if len(seed) > maxSeedLength {
		core.BadRequest(w, "seed must be at most 256 characters")
		return
	}

	variant, err := ParseVariant(r.URL.Query().Get("variant"))
	if err != nil {
		core.BadRequest(w, "unknown avatar variant")
		return
	}

	image, err := h.service.Preview(r.Context(), seed, variant)
	if err != nil {
		core.InternalServerError(w, err)
		return
	}

	cacheControl := "no-store"
	if variant == VariantGradient {
		cacheControl = "public, max-age=86400"
	}

	w.Header().Set("Content-Type", ContentType)
	w.Header().Set("Cache-Control", cacheControl)
	w.Header().Set("Content-Security-Policy", "default-src 'none'; style-src 'unsafe-inline'")
	w.WriteHeader(http.StatusOK)
	//nolint:errcheck // best-effort response write
	_, _ = w.Write(image)
}
