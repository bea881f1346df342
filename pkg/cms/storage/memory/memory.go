package memory

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"sync"

	"github.com/tendant/simple-cms/pkg/cms"
)

// DefaultURLPrefix mirrors the path local uploads are served under
const DefaultURLPrefix = "/uploads"

// Backend is an in-memory implementation of the cms.BlobStore interface
type Backend struct {
	mu              sync.RWMutex
	urlPrefix       string
	objects         map[string][]byte
	objectsMimeType map[string]string
}

// New creates a new in-memory storage backend
func New() *Backend {
	return &Backend{
		urlPrefix:       DefaultURLPrefix,
		objects:         make(map[string][]byte),
		objectsMimeType: make(map[string]string),
	}
}

func (b *Backend) Name() string {
	return "memory"
}

func (b *Backend) Store(ctx context.Context, reader io.Reader, params cms.StoreParams) (string, error) {
	if params.ObjectKey == "" {
		return "", errors.New("object key is required")
	}

	data, err := io.ReadAll(reader)
	if err != nil {
		return "", err
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	b.objects[params.ObjectKey] = data
	b.objectsMimeType[params.ObjectKey] = params.MimeType

	return b.urlPrefix + "/" + params.ObjectKey, nil
}

func (b *Backend) Remove(ctx context.Context, url string) error {
	key, ok := strings.CutPrefix(url, b.urlPrefix+"/")
	if !ok {
		return nil
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	delete(b.objects, key)
	delete(b.objectsMimeType, key)
	return nil
}

// Get returns a stored object by URL
func (b *Backend) Get(url string) (io.Reader, string, bool) {
	key := strings.TrimPrefix(url, b.urlPrefix+"/")

	b.mu.RLock()
	defer b.mu.RUnlock()

	data, ok := b.objects[key]
	if !ok {
		return nil, "", false
	}
	return bytes.NewReader(data), b.objectsMimeType[key], true
}

// Len reports how many objects are stored
func (b *Backend) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.objects)
}
