// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package artifact

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// BlobStore holds unversioned binary objects under slash-separated keys.
type BlobStore interface {
	// Upload writes data under key, replacing any previous object, and
	// returns a URI for it.
	Upload(ctx context.Context, key string, data []byte) (string, error)

	// Download returns the object stored under key.
	Download(ctx context.Context, key string) ([]byte, error)
}

// DirBlobStore is a BlobStore rooted at a local directory.
type DirBlobStore struct {
	Dir string
}

// Upload implements BlobStore. The object is written to a temp file and
// renamed so readers never see a partial write.
func (b *DirBlobStore) Upload(ctx context.Context, key string, data []byte) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	path, err := b.path(key)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", fmt.Errorf("creating blob directory: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), ".upload-*")
	if err != nil {
		return "", fmt.Errorf("creating temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return "", fmt.Errorf("writing %s: %w", key, err)
	}
	if err := tmp.Close(); err != nil {
		return "", fmt.Errorf("closing %s: %w", key, err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return "", fmt.Errorf("moving %s into place: %w", key, err)
	}

	abs, err := filepath.Abs(path)
	if err != nil {
		abs = path
	}
	return "file://" + filepath.ToSlash(abs), nil
}

// Download implements BlobStore.
func (b *DirBlobStore) Download(ctx context.Context, key string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	path, err := b.path(key)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("blob %s: %w", key, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("reading blob %s: %w", key, err)
	}
	return data, nil
}

// path maps key inside Dir, rejecting keys that would escape it.
func (b *DirBlobStore) path(key string) (string, error) {
	clean := filepath.Clean(filepath.FromSlash(strings.TrimPrefix(key, "/")))
	if key == "" || clean == "." || !filepath.IsLocal(clean) {
		return "", fmt.Errorf("invalid blob key %q", key)
	}
	return filepath.Join(b.Dir, clean), nil
}
