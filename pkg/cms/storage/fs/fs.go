package fs

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/tendant/simple-cms/pkg/cms"
)

// DefaultURLPrefix is the public path local uploads are served under
const DefaultURLPrefix = "/uploads"

// Backend is a filesystem implementation of the cms.BlobStore interface.
// Stored files are expected to be served statically under the URL prefix.
type Backend struct {
	mu        sync.Mutex
	baseDir   string
	urlPrefix string
}

// Config options for the filesystem backend
type Config struct {
	BaseDir   string // Base directory for storing files
	URLPrefix string // Public path prefix; defaults to DefaultURLPrefix
}

// New creates a new filesystem storage backend
func New(config Config) (*Backend, error) {
	if config.BaseDir == "" {
		return nil, errors.New("base directory is required")
	}

	if err := os.MkdirAll(config.BaseDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create base directory: %w", err)
	}

	prefix := strings.TrimRight(config.URLPrefix, "/")
	if prefix == "" {
		prefix = DefaultURLPrefix
	}

	return &Backend{
		baseDir:   filepath.Clean(config.BaseDir),
		urlPrefix: prefix,
	}, nil
}

func (b *Backend) Name() string {
	return "fs"
}

// BaseDir returns the directory files are written to
func (b *Backend) BaseDir() string {
	return b.baseDir
}

// URLPrefix returns the public path prefix of stored files
func (b *Backend) URLPrefix() string {
	return b.urlPrefix
}

// Store writes the object under the base directory and returns its public path
func (b *Backend) Store(ctx context.Context, reader io.Reader, params cms.StoreParams) (string, error) {
	filePath, err := b.resolve(params.ObjectKey)
	if err != nil {
		return "", err
	}

	if err := os.MkdirAll(filepath.Dir(filePath), 0755); err != nil {
		return "", fmt.Errorf("failed to create directory: %w", err)
	}

	// Write to a temp file first so a failed copy never leaves a partial object behind
	tmp, err := os.CreateTemp(filepath.Dir(filePath), ".upload-*")
	if err != nil {
		return "", fmt.Errorf("failed to create file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := io.Copy(tmp, reader); err != nil {
		tmp.Close()
		return "", fmt.Errorf("failed to write file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return "", fmt.Errorf("failed to write file: %w", err)
	}
	if err := os.Chmod(tmp.Name(), 0644); err != nil {
		return "", fmt.Errorf("failed to set file mode: %w", err)
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if err := os.Rename(tmp.Name(), filePath); err != nil {
		return "", fmt.Errorf("failed to move file into place: %w", err)
	}

	return b.urlPrefix + "/" + filepath.ToSlash(params.ObjectKey), nil
}

// Remove deletes the file behind a URL returned by Store. URLs outside the
// prefix and files that no longer exist are ignored.
func (b *Backend) Remove(ctx context.Context, url string) error {
	key, ok := strings.CutPrefix(url, b.urlPrefix+"/")
	if !ok || key == "" {
		return nil
	}

	filePath, err := b.resolve(key)
	if err != nil {
		return err
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if err := os.Remove(filePath); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("failed to delete file: %w", err)
	}

	b.cleanupEmptyDirectories(filepath.Dir(filePath))
	return nil
}

// resolve maps an object key to a path inside the base directory
func (b *Backend) resolve(objectKey string) (string, error) {
	if objectKey == "" {
		return "", errors.New("object key is required")
	}
	filePath := filepath.Join(b.baseDir, filepath.FromSlash(objectKey))
	rel, err := filepath.Rel(b.baseDir, filePath)
	if err != nil || rel == "." || strings.HasPrefix(rel, "..") {
		return "", fmt.Errorf("object key %q escapes base directory", objectKey)
	}
	return filePath, nil
}

// cleanupEmptyDirectories recursively removes empty directories up to baseDir
func (b *Backend) cleanupEmptyDirectories(dir string) {
	// Don't remove the base directory
	if dir == b.baseDir {
		return
	}

	if entries, err := os.ReadDir(dir); err == nil && len(entries) == 0 {
		if os.Remove(dir) == nil {
			b.cleanupEmptyDirectories(filepath.Dir(dir))
		}
	}
}
