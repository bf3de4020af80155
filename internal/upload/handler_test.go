// AngelaMos | 2026
// handler_test.go

package upload_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/carterperez-dev/templates/saas-backend/internal/core"
	"github.com/carterperez-dev/templates/saas-backend/internal/middleware"
	"github.com/carterperez-dev/templates/saas-backend/internal/storage"
	"github.com/carterperez-dev/templates/saas-backend/internal/upload"
)

var (
	pngBytes  = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR\x00\x00\x00\x01\x00\x00\x00\x01\x08\x06\x00\x00\x00")
	jpegBytes = []byte("\xff\xd8\xff\xe0\x00\x10JFIF\x00\x01\x01\x00\x00\x01\x00\x01\x00\x00")
	gifBytes  = []byte("GIF89a\x01\x00\x01\x00\x80\x00\x00\xff\xff\xff\x00\x00\x00")
)

type putCall struct {
	key         string
	contentType string
	size        int
}

type recordingStore struct {
	puts   []putCall
	putErr error
}

func (s *recordingStore) Put(_ context.Context, key string, body []byte, contentType string) (string, error) {
	if s.putErr != nil {
		return "", &storage.Error{Op: "put", Key: key, Err: s.putErr}
	}
	s.puts = append(s.puts, putCall{key: key, contentType: contentType, size: len(body)})
	return s.PublicURL(key), nil
}

func (s *recordingStore) Delete(context.Context, string) error { return nil }

func (s *recordingStore) PublicURL(key string) string {
	return "https://cdn.example.test/" + key
}

func withUser(userID string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if userID == "" {
				core.Unauthorized(w, "")
				return
			}
			ctx := middleware.WithClaims(r.Context(), &middleware.AccessTokenClaims{UserID: userID})
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func multipartBody(t *testing.T, field, filename string, content []byte) (*bytes.Buffer, string) {
	t.Helper()

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile(field, filename)
	require.NoError(t, err)
	_, err = part.Write(content)
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	return &buf, mw.FormDataContentType()
}

func serve(
	t *testing.T,
	store *recordingStore,
	maxSize int64,
	userID string,
	body *bytes.Buffer,
	contentType string,
) (*httptest.ResponseRecorder, core.Response) {
	t.Helper()

	r := chi.NewRouter()
	upload.NewHandler(store, maxSize).RegisterRoutes(r, withUser(userID))

	req := httptest.NewRequest(http.MethodPost, "/uploads/logo", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	var resp core.Response
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp), rec.Body.String())
	return rec, resp
}

func TestUploadLogo(t *testing.T) {
	tests := []struct {
		name     string
		filename string
		content  []byte
		wantKey  string
		wantType string
	}{
		{"png", "Acme Logo.PNG", pngBytes, "users/user-1/logo/acme-logo.png", "image/png"},
		{"jpeg", "photo.jpeg", jpegBytes, "users/user-1/logo/photo.jpg", "image/jpeg"},
		{"gif", "spinner.gif", gifBytes, "users/user-1/logo/spinner.gif", "image/gif"},
		{"path in filename", "../../etc/evil.png", pngBytes, "users/user-1/logo/evil.png", "image/png"},
		{"extension from content", "logo.txt", pngBytes, "users/user-1/logo/logo.png", "image/png"},
		{"unsluggable name", "日本.png", pngBytes, "users/user-1/logo/logo.png", "image/png"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := &recordingStore{}
			body, ct := multipartBody(t, "file", tt.filename, tt.content)

			rec, resp := serve(t, store, upload.DefaultMaxImageSize, "user-1", body, ct)

			require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
			require.Len(t, store.puts, 1)
			assert.Equal(t, tt.wantKey, store.puts[0].key)
			assert.Equal(t, tt.wantType, store.puts[0].contentType)
			assert.Equal(t, len(tt.content), store.puts[0].size)

			data, ok := resp.Data.(map[string]any)
			require.True(t, ok)
			assert.Equal(t, "https://cdn.example.test/"+tt.wantKey, data["url"])
			assert.Equal(t, tt.wantType, data["content_type"])
		})
	}
}

func TestUploadLogo_Rejections(t *testing.T) {
	tests := []struct {
		name     string
		userID   string
		field    string
		content  []byte
		maxSize  int64
		putErr   error
		wantCode int
		wantErr  string
	}{
		{
			name:     "unauthenticated",
			field:    "file",
			content:  pngBytes,
			wantCode: http.StatusUnauthorized,
			wantErr:  "UNAUTHORIZED",
		},
		{
			name:     "wrong field",
			userID:   "user-1",
			field:    "image",
			content:  pngBytes,
			wantCode: http.StatusBadRequest,
			wantErr:  "VALIDATION_ERROR",
		},
		{
			name:     "empty file",
			userID:   "user-1",
			field:    "file",
			content:  []byte{},
			wantCode: http.StatusBadRequest,
			wantErr:  "VALIDATION_ERROR",
		},
		{
			name:     "too large",
			userID:   "user-1",
			field:    "file",
			content:  pngBytes,
			maxSize:  int64(len(pngBytes) - 1),
			wantCode: http.StatusRequestEntityTooLarge,
			wantErr:  "FILE_TOO_LARGE",
		},
		{
			name:     "plain text",
			userID:   "user-1",
			field:    "file",
			content:  []byte("just some notes"),
			wantCode: http.StatusUnsupportedMediaType,
			wantErr:  "UNSUPPORTED_MEDIA_TYPE",
		},
		{
			name:     "svg is not accepted",
			userID:   "user-1",
			field:    "file",
			content:  []byte(`<svg xmlns="http://www.w3.org/2000/svg"><script>alert(1)</script></svg>`),
			wantCode: http.StatusUnsupportedMediaType,
			wantErr:  "UNSUPPORTED_MEDIA_TYPE",
		},
		{
			name:     "storage failure",
			userID:   "user-1",
			field:    "file",
			content:  pngBytes,
			putErr:   errors.New("timeout"),
			wantCode: http.StatusBadGateway,
			wantErr:  "UPLOAD_FAILED",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := &recordingStore{putErr: tt.putErr}
			body, ct := multipartBody(t, tt.field, "logo.png", tt.content)

			maxSize := tt.maxSize
			if maxSize == 0 {
				maxSize = upload.DefaultMaxImageSize
			}

			rec, resp := serve(t, store, maxSize, tt.userID, body, ct)

			assert.Equal(t, tt.wantCode, rec.Code)
			require.NotNil(t, resp.Error)
			assert.Equal(t, tt.wantErr, resp.Error.Code)
			assert.Empty(t, store.puts)
		})
	}
}

func TestUploadLogo_NotMultipart(t *testing.T) {
	store := &recordingStore{}
	body := bytes.NewBufferString(`{"file":"nope"}`)

	rec, resp := serve(t, store, 0, "user-1", body, "application/json")

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	require.NotNil(t, resp.Error)
	assert.True(t, strings.Contains(resp.Error.Message, "file"))
}
