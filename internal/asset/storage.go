// Package asset stores uploaded store and product images.
package asset

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"github.com/foodville/marketplace-api/internal/model"
)

var (
	ErrFileTooLarge   = errors.New("file too large")
	ErrUnsupportedExt = errors.New("unsupported file type")
)

// Storage keeps image files addressed by a slash-separated relative path.
type Storage interface {
	Save(ctx context.Context, dir, filename string, r io.Reader, size int64) (string, error)
	Delete(ctx context.Context, path string) error
	URL(path string) string
	MaxBytes() int64
}

var allowedExts = map[string]bool{".jpg": true, ".jpeg": true, ".png": true, ".gif": true, ".webp": true}

// LocalStorage writes files below Root and serves them from BaseURL.
type LocalStorage struct {
	root     string
	baseURL  string
	maxBytes int64
	defaults map[string]bool
}

func NewLocalStorage(root, baseURL string, maxBytes int64) *LocalStorage {
	return &LocalStorage{
		root:     root,
		baseURL:  strings.TrimRight(baseURL, "/"),
		maxBytes: maxBytes,
		defaults: map[string]bool{
			model.DefaultStoreImage:   true,
			model.DefaultProductImage: true,
		},
	}
}

func (s *LocalStorage) MaxBytes() int64 { return s.maxBytes }

// Save stores r under dir with a generated name that keeps filename's
// extension. size is the declared upload size; the copy is capped at
// MaxBytes regardless.
func (s *LocalStorage) Save(_ context.Context, dir, filename string, r io.Reader, size int64) (string, error) {
	if size > s.maxBytes {
		return "", ErrFileTooLarge
	}
	ext := strings.ToLower(filepath.Ext(filename))
	if !allowedExts[ext] {
		return "", ErrUnsupportedExt
	}

	rel := path.Join(dir, uuid.NewString()+ext)
	full := filepath.Join(s.root, filepath.FromSlash(rel))
	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		return "", fmt.Errorf("create asset dir: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(full), ".upload-*")
	if err != nil {
		return "", fmt.Errorf("create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	n, err := io.Copy(tmp, io.LimitReader(r, s.maxBytes+1))
	if closeErr := tmp.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		return "", fmt.Errorf("write asset: %w", err)
	}
	if n > s.maxBytes {
		return "", ErrFileTooLarge
	}

	if err := os.Rename(tmp.Name(), full); err != nil {
		return "", fmt.Errorf("store asset: %w", err)
	}
	return rel, nil
}

// Delete removes the file at p. Default placeholders are never removed and a
// missing file is not an error.
func (s *LocalStorage) Delete(_ context.Context, p string) error {
	if p == "" || s.defaults[p] {
		return nil
	}
	clean := path.Clean("/" + p)
	err := os.Remove(filepath.Join(s.root, filepath.FromSlash(clean)))
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("delete asset: %w", err)
	}
	return nil
}

func (s *LocalStorage) URL(p string) string {
	if p == "" {
		return ""
	}
	return s.baseURL + "/" + strings.TrimLeft(p, "/")
}

// IsDefault reports whether p is one of the shared placeholder images.
func (s *LocalStorage) IsDefault(p string) bool { return s.defaults[p] }
