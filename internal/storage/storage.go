// AngelaMos | 2026
// storage.go

package storage

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
)

const DefaultContentType = "application/octet-stream"

// ErrStorage matches every error returned by an ObjectStore.
var ErrStorage = errors.New("storage error")

var ErrInvalidKey = errors.New("invalid object key")

type ObjectStore interface {
	Put(ctx context.Context, key string, body []byte, contentType string) (string, error)
	Delete(ctx context.Context, key string) error
	PublicURL(key string) string
}

type Error struct {
	Op   string
	Key  string
	Code string
	Err  error
}

func (e *Error) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("storage %s %q: %s: %v", e.Op, e.Key, e.Code, e.Err)
	}
	return fmt.Sprintf("storage %s %q: %v", e.Op, e.Key, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

func (e *Error) Is(target error) bool {
	return target == ErrStorage
}

func ValidateKey(key string) error {
	if key == "" {
		return fmt.Errorf("empty key: %w", ErrInvalidKey)
	}

	if strings.HasPrefix(key, "/") {
		return fmt.Errorf("key %q has leading slash: %w", key, ErrInvalidKey)
	}

	for _, segment := range strings.Split(key, "/") {
		if segment == ".." || segment == "." {
			return fmt.Errorf("key %q has relative segment: %w", key, ErrInvalidKey)
		}
	}

	return nil
}

func UserKey(userID, folder, name string) string {
	return fmt.Sprintf("users/%s/%s/%s", userID, folder, name)
}

// KeyFromURL recovers the object key from a URL previously returned by
// store. URLs pointing elsewhere report false.
func KeyFromURL(store ObjectStore, rawURL string) (string, bool) {
	prefix := store.PublicURL("")
	if strings.TrimRight(prefix, "/") == "" || !strings.HasPrefix(rawURL, prefix) {
		return "", false
	}

	key, err := url.PathUnescape(strings.TrimPrefix(rawURL, prefix))
	if err != nil || ValidateKey(key) != nil {
		return "", false
	}

	return key, true
}
