package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/tendant/simple-cms/pkg/cms"
)

// Repository implements cms.Repository using in-memory storage
type Repository struct {
	mu          sync.RWMutex
	collections map[cms.RecordType]*collection
}

type collection struct {
	order []string // insertion order of ids
	docs  map[string]cms.Document
}

// New creates a new in-memory repository
func New() *Repository {
	r := &Repository{
		collections: make(map[cms.RecordType]*collection),
	}
	for _, t := range cms.RecordTypes() {
		r.collections[t] = &collection{docs: make(map[string]cms.Document)}
	}
	return r
}

func (r *Repository) collection(t cms.RecordType) (*collection, error) {
	c, ok := r.collections[t]
	if !ok {
		return nil, fmt.Errorf("%w: %q", cms.ErrUnknownType, t)
	}
	return c, nil
}

func (r *Repository) Insert(ctx context.Context, t cms.RecordType, doc cms.Document) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	c, err := r.collection(t)
	if err != nil {
		return "", err
	}
	if err := c.checkUnique(t, "", doc); err != nil {
		return "", err
	}

	id := uuid.NewString()
	stored := copyDocument(doc)
	delete(stored, cms.StorageIDField)
	c.docs[id] = stored
	c.order = append(c.order, id)

	return id, nil
}

func (r *Repository) FindAll(ctx context.Context, t cms.RecordType) ([]cms.Document, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	c, err := r.collection(t)
	if err != nil {
		return nil, err
	}

	out := make([]cms.Document, 0, len(c.order))
	for _, id := range c.order {
		out = append(out, withID(id, c.docs[id]))
	}
	return out, nil
}

func (r *Repository) FindByID(ctx context.Context, t cms.RecordType, id string) (cms.Document, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	c, err := r.collection(t)
	if err != nil {
		return nil, err
	}

	doc, ok := c.docs[id]
	if !ok {
		return nil, cms.ErrNotFound
	}
	return withID(id, doc), nil
}

func (r *Repository) FindOne(ctx context.Context, t cms.RecordType, field string, value any) (cms.Document, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	c, err := r.collection(t)
	if err != nil {
		return nil, err
	}

	for _, id := range c.order {
		if v, ok := c.docs[id][field]; ok && v == value {
			return withID(id, c.docs[id]), nil
		}
	}
	return nil, cms.ErrNotFound
}

func (r *Repository) UpdateByID(ctx context.Context, t cms.RecordType, id string, set cms.Document) (cms.Document, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	c, err := r.collection(t)
	if err != nil {
		return nil, err
	}

	doc, ok := c.docs[id]
	if !ok {
		return nil, cms.ErrNotFound
	}
	if err := c.checkUnique(t, id, set); err != nil {
		return nil, err
	}

	updated := copyDocument(doc)
	for k, v := range set {
		if k == cms.StorageIDField {
			continue
		}
		updated[k] = v
	}
	c.docs[id] = updated

	return withID(id, updated), nil
}

func (r *Repository) DeleteByID(ctx context.Context, t cms.RecordType, id string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	c, err := r.collection(t)
	if err != nil {
		return false, err
	}

	if _, ok := c.docs[id]; !ok {
		return false, nil
	}
	delete(c.docs, id)
	for i, existing := range c.order {
		if existing == id {
			c.order = append(c.order[:i], c.order[i+1:]...)
			break
		}
	}
	return true, nil
}

func (r *Repository) Ping(ctx context.Context) error {
	return nil
}

func (r *Repository) Close(ctx context.Context) error {
	return nil
}

// checkUnique rejects values for unique fields that another document
// (other than skipID) already holds.
func (c *collection) checkUnique(t cms.RecordType, skipID string, doc cms.Document) error {
	for _, field := range t.UniqueFields() {
		value, ok := doc[field]
		if !ok {
			continue
		}
		for id, existing := range c.docs {
			if id == skipID {
				continue
			}
			if existing[field] == value {
				return fmt.Errorf("%w: %s %v already exists", cms.ErrDuplicate, field, value)
			}
		}
	}
	return nil
}

func withID(id string, doc cms.Document) cms.Document {
	out := copyDocument(doc)
	out[cms.StorageIDField] = id
	return out
}

// copyDocument is a shallow copy; stored values are scalars.
func copyDocument(doc cms.Document) cms.Document {
	out := make(cms.Document, len(doc)+1)
	for k, v := range doc {
		out[k] = v
	}
	return out
}
