package cms

import (
	"context"
	"io"
)

// Repository defines the interface for record persistence.
//
// Documents returned by a Repository carry their identifier under
// StorageIDField as a string. Lookups by an identifier the backend cannot
// parse report ErrNotFound, never a parse error: identifiers are opaque.
type Repository interface {
	// Insert stores a new document and returns its generated identifier
	Insert(ctx context.Context, t RecordType, doc Document) (string, error)

	// FindAll returns every document of the collection in insertion order
	FindAll(ctx context.Context, t RecordType) ([]Document, error)

	// FindByID returns one document or ErrNotFound
	FindByID(ctx context.Context, t RecordType, id string) (Document, error)

	// FindOne returns the first document whose field equals value, or ErrNotFound
	FindOne(ctx context.Context, t RecordType, field string, value any) (Document, error)

	// UpdateByID merges set into the stored document and returns the result
	UpdateByID(ctx context.Context, t RecordType, id string, set Document) (Document, error)

	// DeleteByID removes a document and reports whether it existed
	DeleteByID(ctx context.Context, t RecordType, id string) (bool, error)

	// Ping verifies the backend is reachable
	Ping(ctx context.Context) error

	// Close releases the backend's connections
	Close(ctx context.Context) error
}

// BlobStore defines the interface for storage backends
type BlobStore interface {
	// Store writes the object and returns the URL clients resolve it with
	Store(ctx context.Context, reader io.Reader, params StoreParams) (string, error)

	// Name identifies the backend in logs and errors
	Name() string
}

// BlobRemover is implemented by stores that can delete what they stored.
// Media deletion only removes blobs from stores implementing it.
type BlobRemover interface {
	// Remove deletes the object behind url. A missing object is not an error.
	Remove(ctx context.Context, url string) error
}

// ImageProcessor rewrites uploaded images before they are stored
type ImageProcessor interface {
	Process(reader io.Reader, fileName string) (io.Reader, error)
}

// EventSink defines the interface for event handling
type EventSink interface {
	// RecordCreated is fired when a record is created
	RecordCreated(ctx context.Context, t RecordType, id string) error

	// RecordUpdated is fired when a record is updated
	RecordUpdated(ctx context.Context, t RecordType, id string) error

	// RecordDeleted is fired when a delete request completes
	RecordDeleted(ctx context.Context, t RecordType, id string) error

	// MediaUploaded is fired when an upload has been stored and recorded
	MediaUploaded(ctx context.Context, media *Media) error
}
