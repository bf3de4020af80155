// AngelaMos | 2026
// handler.go

package upload

import (
	"errors"
	"io"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/go-chi/chi/v5"

	"github.com/carterperez-dev/templates/saas-backend/internal/core"
	"github.com/carterperez-dev/templates/saas-backend/internal/middleware"
	"github.com/carterperez-dev/templates/saas-backend/internal/storage"
)

const (
	DefaultMaxImageSize = 1 << 20
	formField           = "file"
	multipartOverhead   = 64 << 10
	defaultLogoName     = "logo"
)

var imageTypes = []string{
	"image/png",
	"image/jpeg",
	"image/webp",
	"image/gif",
	"image/avif",
}

type Result struct {
	Key         string `json:"key"`
	URL         string `json:"url"`
	ContentType string `json:"content_type"`
	Size        int    `json:"size"`
}

type Handler struct {
	store   storage.ObjectStore
	maxSize int64
}

func NewHandler(store storage.ObjectStore, maxSize int64) *Handler {
	if maxSize <= 0 {
		maxSize = DefaultMaxImageSize
	}
	return &Handler{
		store:   store,
		maxSize: maxSize,
	}
}

func (h *Handler) RegisterRoutes(
	r chi.Router,
	authenticator func(http.Handler) http.Handler,
	limiters ...func(http.Handler) http.Handler,
) {
	r.Route("/uploads", func(r chi.Router) {
		r.Use(authenticator)
		r.Use(limiters...)

		r.Post("/logo", h.UploadLogo)
	})
}

func (h *Handler) UploadLogo(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	if userID == "" {
		core.Unauthorized(w, "")
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, h.maxSize+multipartOverhead)

	file, header, err := r.FormFile(formField)
	if err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			core.JSONError(w, tooLargeError(err))
			return
		}
		core.BadRequest(w, "multipart field \"file\" is required")
		return
	}
	//nolint:errcheck // read-only multipart part
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, h.maxSize+1))
	if err != nil {
		core.BadRequest(w, "could not read upload")
		return
	}

	if int64(len(data)) > h.maxSize {
		core.JSONError(w, tooLargeError(nil))
		return
	}

	if len(data) == 0 {
		core.BadRequest(w, "file is empty")
		return
	}

	detected := mimetype.Detect(data)
	if !mimetype.EqualsAny(detected.String(), imageTypes...) {
		core.JSONError(w, core.NewAppError(
			core.ErrInvalidInput,
			"only png, jpeg, webp, gif and avif images are accepted",
			http.StatusUnsupportedMediaType,
			"UNSUPPORTED_MEDIA_TYPE",
		))
		return
	}

	key := storage.UserKey(userID, "logo", objectName(header.Filename, detected))

	url, err := h.store.Put(r.Context(), key, data, detected.String())
	if err != nil {
		middleware.GetLogger(r.Context()).ErrorContext(r.Context(), "logo upload failed",
			"user_id", userID,
			"key", key,
			"error", err,
		)
		core.JSONError(w, core.NewAppError(
			err,
			"failed to upload file",
			http.StatusBadGateway,
			"UPLOAD_FAILED",
		))
		return
	}

	core.Created(w, Result{
		Key:         key,
		URL:         url,
		ContentType: detected.String(),
		Size:        len(data),
	})
}

// objectName keeps the client's base name for readability but trusts only
// the sniffed type for the extension.
func objectName(filename string, detected *mimetype.MIME) string {
	base := filepath.Base(filename)
	base = strings.TrimSuffix(base, filepath.Ext(base))

	name := Slugify(base)
	if name == "" {
		name = defaultLogoName
	}

	return name + detected.Extension()
}

func tooLargeError(err error) *core.AppError {
	return core.NewAppError(
		err,
		"file exceeds the maximum upload size",
		http.StatusRequestEntityTooLarge,
		"FILE_TOO_LARGE",
	)
}
