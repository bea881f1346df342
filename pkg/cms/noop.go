package cms

import (
	"context"
	"log/slog"
)

// NoopEventSink is an event sink that does nothing
type NoopEventSink struct{}

// NewNoopEventSink creates a new no-op event sink
func NewNoopEventSink() EventSink {
	return &NoopEventSink{}
}

func (n *NoopEventSink) RecordCreated(ctx context.Context, t RecordType, id string) error {
	return nil
}

func (n *NoopEventSink) RecordUpdated(ctx context.Context, t RecordType, id string) error {
	return nil
}

func (n *NoopEventSink) RecordDeleted(ctx context.Context, t RecordType, id string) error {
	return nil
}

func (n *NoopEventSink) MediaUploaded(ctx context.Context, media *Media) error {
	return nil
}

// LoggingEventSink is an event sink that logs events but takes no other action
// Useful for development and debugging
type LoggingEventSink struct {
	logger *slog.Logger
}

// NewLoggingEventSink creates a new logging event sink
func NewLoggingEventSink(logger *slog.Logger) EventSink {
	if logger == nil {
		logger = slog.Default()
	}
	return &LoggingEventSink{logger: logger}
}

func (l *LoggingEventSink) RecordCreated(ctx context.Context, t RecordType, id string) error {
	l.logger.InfoContext(ctx, "record created", "type", t, "id", id)
	return nil
}

func (l *LoggingEventSink) RecordUpdated(ctx context.Context, t RecordType, id string) error {
	l.logger.InfoContext(ctx, "record updated", "type", t, "id", id)
	return nil
}

func (l *LoggingEventSink) RecordDeleted(ctx context.Context, t RecordType, id string) error {
	l.logger.InfoContext(ctx, "record deleted", "type", t, "id", id)
	return nil
}

func (l *LoggingEventSink) MediaUploaded(ctx context.Context, media *Media) error {
	l.logger.InfoContext(ctx, "media uploaded", "id", media.ID, "name", media.Name, "size", media.Size, "url", media.URL)
	return nil
}
