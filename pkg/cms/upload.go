package cms

import (
	"context"
	"fmt"
	"io"
)

// UploadMedia stores a file and records it as a media item. The name falls
// back to the uploaded file name and the size is the byte count reported by
// the caller, rendered with FormatSize.
func (s *service) UploadMedia(ctx context.Context, req UploadMediaRequest) (*Media, error) {
	if req.Reader == nil {
		return nil, fmt.Errorf("%w: %w", ErrUploadFailed, ErrMissingFile)
	}

	url, err := s.store(ctx, req.Reader, req.FileName, req.MimeType, req.Size)
	if err != nil {
		return nil, err
	}

	name := req.Name
	if name == "" {
		name = req.FileName
	}

	media := &Media{
		Name: name,
		Type: req.Type,
		Size: FormatSize(req.Size),
		URL:  url,
		Date: s.today(),
	}

	doc, err := toDocument(media)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUploadFailed, err)
	}

	id, err := s.repository.Insert(ctx, RecordTypeMedia, doc)
	if err != nil {
		// The stored blob is left behind; record creation is the only
		// step that can still fail here.
		return nil, fmt.Errorf("%w: %w", ErrUploadFailed, &RecordError{Type: RecordTypeMedia, Op: "create", Err: err})
	}
	media.ID = id

	if err := s.eventSink.MediaUploaded(ctx, media); err != nil {
		s.logger.WarnContext(ctx, "event sink failed", "event", "media_uploaded", "id", id, "err", err)
	}
	return media, nil
}

// UploadAvatar stores a profile picture and points the user's profilePic at
// it. The user must exist before anything is written to storage.
func (s *service) UploadAvatar(ctx context.Context, userID string, req UploadAvatarRequest) (string, error) {
	if req.Reader == nil {
		return "", fmt.Errorf("%w: %w", ErrUploadFailed, ErrMissingFile)
	}

	if _, err := s.repository.FindByID(ctx, RecordTypeUsers, userID); err != nil {
		return "", &RecordError{Type: RecordTypeUsers, ID: userID, Op: "upload_avatar", Err: err}
	}

	reader := req.Reader
	size := int64(-1)
	if s.avatarProc != nil {
		processed, err := s.avatarProc.Process(reader, req.FileName)
		if err != nil {
			return "", fmt.Errorf("%w: %w", ErrUploadFailed, err)
		}
		reader = processed
	}

	url, err := s.store(ctx, reader, req.FileName, req.MimeType, size)
	if err != nil {
		return "", err
	}

	if _, err := s.repository.UpdateByID(ctx, RecordTypeUsers, userID, Document{"profilePic": url}); err != nil {
		return "", fmt.Errorf("%w: %w", ErrUploadFailed, &RecordError{Type: RecordTypeUsers, ID: userID, Op: "upload_avatar", Err: err})
	}

	s.fire(ctx, "updated", RecordTypeUsers, userID, s.eventSink.RecordUpdated)
	return url, nil
}

func (s *service) store(ctx context.Context, reader io.Reader, fileName, mimeType string, size int64) (string, error) {
	key := s.keyGenerator.GenerateKey(fileName)
	url, err := s.blobStore.Store(ctx, reader, StoreParams{
		ObjectKey: key,
		FileName:  fileName,
		MimeType:  mimeType,
		Size:      size,
	})
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrUploadFailed, &StorageError{
			Backend: s.blobStore.Name(),
			Key:     key,
			Op:      "store",
			Err:     err,
		})
	}
	return url, nil
}
