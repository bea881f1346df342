// Package cms is the core of a small content management backend.
//
// It manages four record types (users, media, pages and posts) on top of a
// pluggable document Repository, and stores uploaded files through a
// pluggable BlobStore. HTTP transport lives in pkg/cms/api; backends live in
// pkg/cms/repo and pkg/cms/storage.
//
// Basic usage:
//
//	repo := memory.New()
//	store := memorystorage.New()
//	svc, err := cms.New(
//		cms.WithRepository(repo),
//		cms.WithBlobStore(store),
//	)
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	user, err := svc.CreateUser(ctx, cms.CreateUserRequest{
//		Name:     "Ada",
//		Username: "ada",
//		Password: "s3cret",
//	})
//
// Identifiers are opaque strings chosen by the repository. Records leave
// the service with an "id" field and never with the stored password.
package cms
