package cms

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/tendant/simple-cms/pkg/cms/objectkey"
	"golang.org/x/crypto/bcrypt"
)

// service implements the Service interface
type service struct {
	repository   Repository
	blobStore    BlobStore
	eventSink    EventSink
	keyGenerator objectkey.Generator
	avatarProc   ImageProcessor
	passwordCost int
	now          func() time.Time
	logger       *slog.Logger
}

// Option represents a functional option for configuring the service
type Option func(*service)

// WithRepository sets the repository for the service
func WithRepository(repo Repository) Option {
	return func(s *service) {
		s.repository = repo
	}
}

// WithBlobStore sets the storage backend uploads are written to
func WithBlobStore(store BlobStore) Option {
	return func(s *service) {
		s.blobStore = store
	}
}

// WithEventSink sets the event sink for the service
func WithEventSink(sink EventSink) Option {
	return func(s *service) {
		s.eventSink = sink
	}
}

// WithKeyGenerator sets how stored file names are chosen
func WithKeyGenerator(gen objectkey.Generator) Option {
	return func(s *service) {
		s.keyGenerator = gen
	}
}

// WithAvatarProcessor sets the processor applied to profile pictures before storage
func WithAvatarProcessor(proc ImageProcessor) Option {
	return func(s *service) {
		s.avatarProc = proc
	}
}

// WithPasswordCost sets the bcrypt cost for new hashes. Values below
// bcrypt.DefaultCost are raised to it.
func WithPasswordCost(cost int) Option {
	return func(s *service) {
		s.passwordCost = cost
	}
}

// WithClock sets the time source used for record dates
func WithClock(now func() time.Time) Option {
	return func(s *service) {
		s.now = now
	}
}

// WithLogger sets the logger for the service
func WithLogger(logger *slog.Logger) Option {
	return func(s *service) {
		s.logger = logger
	}
}

// New creates a new service instance with the given options
func New(options ...Option) (Service, error) {
	s := &service{
		eventSink:    NewNoopEventSink(),
		keyGenerator: objectkey.NewUUIDGenerator(),
		passwordCost: bcrypt.DefaultCost,
		now:          time.Now,
		logger:       slog.Default(),
	}

	for _, option := range options {
		option(s)
	}

	if s.repository == nil {
		return nil, fmt.Errorf("repository is required")
	}
	if s.blobStore == nil {
		return nil, fmt.Errorf("blob store is required")
	}
	if s.passwordCost < bcrypt.DefaultCost {
		s.passwordCost = bcrypt.DefaultCost
	}
	if s.passwordCost > bcrypt.MaxCost {
		return nil, fmt.Errorf("bcrypt cost %d exceeds maximum %d", s.passwordCost, bcrypt.MaxCost)
	}

	return s, nil
}

func (s *service) Ping(ctx context.Context) error {
	return s.repository.Ping(ctx)
}

// Record operations

func (s *service) List(ctx context.Context, t RecordType) ([]Document, error) {
	if !t.IsValid() {
		return nil, fmt.Errorf("%w: %q", ErrUnknownType, t)
	}

	docs, err := s.repository.FindAll(ctx, t)
	if err != nil {
		return nil, &RecordError{Type: t, Op: "list", Err: err}
	}

	out := make([]Document, 0, len(docs))
	for _, doc := range docs {
		out = append(out, t.project(doc))
	}
	return out, nil
}

func (s *service) CreatePage(ctx context.Context, fields Content) (*Content, error) {
	return s.createContent(ctx, RecordTypePages, fields)
}

func (s *service) CreatePost(ctx context.Context, fields Content) (*Content, error) {
	return s.createContent(ctx, RecordTypePosts, fields)
}

func (s *service) createContent(ctx context.Context, t RecordType, fields Content) (*Content, error) {
	fields.ID = ""
	if fields.Date == "" {
		fields.Date = s.today()
	}

	doc, err := toDocument(fields)
	if err != nil {
		return nil, &RecordError{Type: t, Op: "create", Err: err}
	}

	id, err := s.repository.Insert(ctx, t, doc)
	if err != nil {
		return nil, &RecordError{Type: t, Op: "create", Err: err}
	}
	fields.ID = id

	s.fire(ctx, "created", t, id, s.eventSink.RecordCreated)
	return &fields, nil
}

func (s *service) UpdateContent(ctx context.Context, t RecordType, id string, patch ContentPatch) (*Content, error) {
	if !t.IsValid() {
		return nil, fmt.Errorf("%w: %q", ErrUnknownType, t)
	}
	if !t.Updatable() {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedType, t)
	}

	doc, err := s.repository.UpdateByID(ctx, t, id, patch.document())
	if err != nil {
		return nil, &RecordError{Type: t, ID: id, Op: "update", Err: err}
	}

	updated, err := fromDocument[Content](doc)
	if err != nil {
		return nil, &RecordError{Type: t, ID: id, Op: "update", Err: err}
	}

	s.fire(ctx, "updated", t, id, s.eventSink.RecordUpdated)
	return updated, nil
}

// UpdateUserName sets the display name. An empty name leaves the record
// unchanged but still reports ErrNotFound for unknown ids.
func (s *service) UpdateUserName(ctx context.Context, id, name string) error {
	set := Document{}
	if name != "" {
		set["name"] = name
	}
	return s.update(ctx, RecordTypeUsers, id, set)
}

func (s *service) UpdateMedia(ctx context.Context, id string, patch MediaPatch) error {
	return s.update(ctx, RecordTypeMedia, id, patch.document())
}

func (s *service) update(ctx context.Context, t RecordType, id string, set Document) error {
	if _, err := s.repository.UpdateByID(ctx, t, id, set); err != nil {
		return &RecordError{Type: t, ID: id, Op: "update", Err: err}
	}
	s.fire(ctx, "updated", t, id, s.eventSink.RecordUpdated)
	return nil
}

// Delete removes a record. Deleting a record that does not exist succeeds.
// For media the stored file is removed too when the blob store supports it;
// a failed file removal is logged and does not fail the request.
func (s *service) Delete(ctx context.Context, t RecordType, id string) error {
	if !t.IsValid() {
		return fmt.Errorf("%w: %q", ErrUnknownType, t)
	}

	if t == RecordTypeMedia {
		if err := s.removeMediaBlob(ctx, id); err != nil {
			return &RecordError{Type: t, ID: id, Op: "delete", Err: err}
		}
	}

	existed, err := s.repository.DeleteByID(ctx, t, id)
	if err != nil {
		return &RecordError{Type: t, ID: id, Op: "delete", Err: err}
	}
	if !existed {
		s.logger.DebugContext(ctx, "delete of missing record", "type", t, "id", id)
	}

	s.fire(ctx, "deleted", t, id, s.eventSink.RecordDeleted)
	return nil
}

func (s *service) removeMediaBlob(ctx context.Context, id string) error {
	doc, err := s.repository.FindByID(ctx, RecordTypeMedia, id)
	if errors.Is(err, ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}

	remover, ok := s.blobStore.(BlobRemover)
	if !ok {
		return nil
	}
	url, _ := doc["url"].(string)
	if url == "" {
		return nil
	}
	if err := remover.Remove(ctx, url); err != nil {
		s.logger.WarnContext(ctx, "failed to remove media file", "id", id, "url", url, "backend", s.blobStore.Name(), "err", err)
	}
	return nil
}

func (s *service) today() string {
	return s.now().UTC().Format(DateLayout)
}

// fire delivers an event. Sink failures are logged and never fail the operation.
func (s *service) fire(ctx context.Context, event string, t RecordType, id string, fn func(context.Context, RecordType, string) error) {
	if err := fn(ctx, t, id); err != nil {
		s.logger.WarnContext(ctx, "event sink failed", "event", event, "type", t, "id", id, "err", err)
	}
}
