// AngelaMos | 2026
// storage_test.go

package storage_test

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/carterperez-dev/templates/saas-backend/internal/storage"
)

func TestValidateKey(t *testing.T) {
	tests := []struct {
		key     string
		wantErr bool
	}{
		{"users/1/avatar/a.svg", false},
		{"logo.png", false},
		{"users/1/..hidden/a.svg", false},
		{"", true},
		{"/users/1/a.svg", true},
		{"users/../secrets", true},
		{"users/./a.svg", true},
		{"..", true},
	}

	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			err := storage.ValidateKey(tt.key)
			if tt.wantErr {
				assert.ErrorIs(t, err, storage.ErrInvalidKey)
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestUserKey(t *testing.T) {
	assert.Equal(t, "users/42/avatar/x.svg", storage.UserKey("42", "avatar", "x.svg"))
	assert.Equal(t, "users/42/logo/acme.png", storage.UserKey("42", "logo", "acme.png"))
}

type urlOnlyStore struct {
	base string
}

func (s urlOnlyStore) Put(context.Context, string, []byte, string) (string, error) {
	return "", nil
}

func (s urlOnlyStore) Delete(context.Context, string) error { return nil }

func (s urlOnlyStore) PublicURL(key string) string {
	if s.base == "" {
		return ""
	}
	return s.base + "/" + key
}

func TestKeyFromURL(t *testing.T) {
	store := urlOnlyStore{base: "https://cdn.example.test"}

	tests := []struct {
		name    string
		url     string
		wantKey string
		wantOK  bool
	}{
		{"own object", "https://cdn.example.test/users/1/avatar/a.svg", "users/1/avatar/a.svg", true},
		{"escaped segment", "https://cdn.example.test/users/1/logo/my%20logo.png", "users/1/logo/my logo.png", true},
		{"other host", "https://gravatar.example/users/1/a.svg", "", false},
		{"traversal", "https://cdn.example.test/../etc/passwd", "", false},
		{"bucket root", "https://cdn.example.test/", "", false},
		{"bad escape", "https://cdn.example.test/users/%zz", "", false},
		{"empty", "", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			key, ok := storage.KeyFromURL(store, tt.url)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.wantKey, key)
		})
	}
}

func TestKeyFromURL_NoPublicURL(t *testing.T) {
	_, ok := storage.KeyFromURL(urlOnlyStore{}, "users/1/a.svg")
	assert.False(t, ok)
}

type rootSlashStore struct {
	urlOnlyStore
}

func (rootSlashStore) PublicURL(key string) string {
	return "/" + key
}

func TestKeyFromURL_BarePrefix(t *testing.T) {
	for _, raw := range []string{"/users/1/avatar/a.svg", "users/1/avatar/a.svg", "/"} {
		_, ok := storage.KeyFromURL(rootSlashStore{}, raw)
		assert.False(t, ok, raw)
	}
}

func TestError(t *testing.T) {
	cause := errors.New("connection refused")
	err := fmt.Errorf("upload avatar: %w", &storage.Error{
		Op:   "put",
		Key:  "users/1/a.svg",
		Code: "SlowDown",
		Err:  cause,
	})

	assert.ErrorIs(t, err, storage.ErrStorage)
	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), `storage put "users/1/a.svg": SlowDown: connection refused`)

	var storageErr *storage.Error
	assert.ErrorAs(t, err, &storageErr)
	assert.Equal(t, "put", storageErr.Op)
}
