// Package storage keeps uploaded images on local disk and serves them by URL.
package storage

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// ErrForeignURL is returned when a URL does not point into this store.
var ErrForeignURL = errors.New("storage: url not owned by this store")

// Local writes objects under Dir and exposes them below BaseURL.
type Local struct {
	dir     string
	baseURL string
}

// NewLocal creates dir if needed. baseURL is the public prefix objects are
// served from, e.g. http://localhost:8080/uploads.
func NewLocal(dir, baseURL string) (*Local, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create upload dir: %w", err)
	}
	return &Local{dir: dir, baseURL: strings.TrimRight(baseURL, "/")}, nil
}

// Dir returns the directory objects are written to.
func (l *Local) Dir() string { return l.dir }

// Put stores data under a fresh name keeping the extension of name.
func (l *Local) Put(_ context.Context, data []byte, name string) (string, error) {
	ext := strings.ToLower(filepath.Ext(name))
	key := uuid.NewString() + ext
	if err := os.WriteFile(filepath.Join(l.dir, key), data, 0o644); err != nil {
		return "", fmt.Errorf("write object: %w", err)
	}
	return l.baseURL + "/" + key, nil
}

// Delete removes the object behind url. Missing objects are not an error.
func (l *Local) Delete(_ context.Context, url string) error {
	if !strings.HasPrefix(url, l.baseURL+"/") {
		return ErrForeignURL
	}
	key := path.Base(strings.TrimPrefix(url, l.baseURL+"/"))
	if key == "." || key == "/" || key == "" {
		return ErrForeignURL
	}
	err := os.Remove(filepath.Join(l.dir, key))
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("delete object: %w", err)
	}
	return nil
}
