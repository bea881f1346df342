package cms

import "fmt"

// RecordType selects the collection an operation targets.
type RecordType string

// Record type constants (typed).
const (
	RecordTypeUsers RecordType = "users"
	RecordTypeMedia RecordType = "media"
	RecordTypePages RecordType = "pages"
	RecordTypePosts RecordType = "posts"
)

// recordTraits centralizes the per-type behavior so every endpoint that
// dispatches on a RecordType agrees on it.
type recordTraits struct {
	collection   string
	uniqueFields []string
	// updatable marks types accepted by the full-record update endpoint.
	updatable bool
	// hidden lists stored fields that never leave the service.
	hidden []string
}

var recordTraitsByType = map[RecordType]recordTraits{
	RecordTypeUsers: {
		collection:   "users",
		uniqueFields: []string{"username"},
		hidden:       []string{"password"},
	},
	RecordTypeMedia: {
		collection: "media",
	},
	RecordTypePages: {
		collection: "pages",
		updatable:  true,
	},
	RecordTypePosts: {
		collection: "posts",
		updatable:  true,
	},
}

// RecordTypes lists every known record type in a stable order.
func RecordTypes() []RecordType {
	return []RecordType{RecordTypeUsers, RecordTypeMedia, RecordTypePages, RecordTypePosts}
}

// ParseRecordType validates a type tag taken from a request path.
func ParseRecordType(s string) (RecordType, error) {
	t := RecordType(s)
	if _, ok := recordTraitsByType[t]; !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownType, s)
	}
	return t, nil
}

// IsValid reports whether t is one of the known record types.
func (t RecordType) IsValid() bool {
	_, ok := recordTraitsByType[t]
	return ok
}

// Collection returns the name of the collection (or table) holding records of this type.
func (t RecordType) Collection() string {
	return recordTraitsByType[t].collection
}

// UniqueFields returns the document fields that must be unique within the collection.
func (t RecordType) UniqueFields() []string {
	return recordTraitsByType[t].uniqueFields
}

// Updatable reports whether records of this type accept full-record updates.
func (t RecordType) Updatable() bool {
	return recordTraitsByType[t].updatable
}

// project prepares a stored document for clients: public id, no hidden fields.
func (t RecordType) project(doc Document) Document {
	out := exposeID(doc)
	for _, field := range recordTraitsByType[t].hidden {
		delete(out, field)
	}
	return out
}
