package cms

import "context"

// Service defines the main interface for the CMS backend
type Service interface {
	// Authentication operations
	Login(ctx context.Context, username, password string) (*UserProjection, error)
	CreateUser(ctx context.Context, req CreateUserRequest) (*UserProjection, error)
	MigrateLegacyPasswords(ctx context.Context) (int, error)

	// Record operations
	List(ctx context.Context, t RecordType) ([]Document, error)
	CreatePage(ctx context.Context, fields Content) (*Content, error)
	CreatePost(ctx context.Context, fields Content) (*Content, error)
	UpdateContent(ctx context.Context, t RecordType, id string, patch ContentPatch) (*Content, error)
	UpdateUserName(ctx context.Context, id, name string) error
	UpdateUserSecurity(ctx context.Context, id string, req SecurityUpdate) error
	UpdateMedia(ctx context.Context, id string, patch MediaPatch) error
	Delete(ctx context.Context, t RecordType, id string) error

	// Upload operations
	UploadMedia(ctx context.Context, req UploadMediaRequest) (*Media, error)
	UploadAvatar(ctx context.Context, userID string, req UploadAvatarRequest) (string, error)

	// Ping reports whether the persistence backend is reachable
	Ping(ctx context.Context) error
}
