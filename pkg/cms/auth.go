package cms

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// Login checks a username and password. Unknown users and wrong passwords
// both report ErrInvalidCredentials. Stored values that are not bcrypt
// hashes never match; run MigrateLegacyPasswords to convert them.
func (s *service) Login(ctx context.Context, username, password string) (*UserProjection, error) {
	if username == "" || password == "" {
		return nil, ErrInvalidCredentials
	}

	doc, err := s.repository.FindOne(ctx, RecordTypeUsers, "username", username)
	if errors.Is(err, ErrNotFound) {
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, &RecordError{Type: RecordTypeUsers, Op: "login", Err: err}
	}

	user, err := fromDocument[User](doc)
	if err != nil {
		return nil, &RecordError{Type: RecordTypeUsers, Op: "login", Err: err}
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}

	return user.Projection(), nil
}

func (s *service) CreateUser(ctx context.Context, req CreateUserRequest) (*UserProjection, error) {
	if req.Username == "" || req.Password == "" {
		return nil, fmt.Errorf("%w: username and password are required", ErrInvalidInput)
	}

	hash, err := s.hashPassword(req.Password)
	if err != nil {
		return nil, &RecordError{Type: RecordTypeUsers, Op: "create", Err: err}
	}

	user := &User{
		Name:       req.Name,
		Username:   req.Username,
		Password:   hash,
		Role:       req.Role,
		ProfilePic: req.ProfilePic,
	}
	if user.Role == "" {
		user.Role = DefaultRole
	}

	doc, err := toDocument(user)
	if err != nil {
		return nil, &RecordError{Type: RecordTypeUsers, Op: "create", Err: err}
	}

	id, err := s.repository.Insert(ctx, RecordTypeUsers, doc)
	if err != nil {
		return nil, &RecordError{Type: RecordTypeUsers, Op: "create", Err: err}
	}
	user.ID = id

	s.fire(ctx, "created", RecordTypeUsers, id, s.eventSink.RecordCreated)
	return user.Projection(), nil
}

// UpdateUserSecurity changes the username and/or password of a user.
// Empty fields are left as they are; a new password is stored hashed.
func (s *service) UpdateUserSecurity(ctx context.Context, id string, req SecurityUpdate) error {
	set := Document{}
	if req.Username != "" {
		set["username"] = req.Username
	}
	if req.Password != "" {
		hash, err := s.hashPassword(req.Password)
		if err != nil {
			return &RecordError{Type: RecordTypeUsers, ID: id, Op: "update_security", Err: err}
		}
		set["password"] = hash
	}

	if _, err := s.repository.UpdateByID(ctx, RecordTypeUsers, id, set); err != nil {
		return &RecordError{Type: RecordTypeUsers, ID: id, Op: "update_security", Err: err}
	}

	s.fire(ctx, "updated", RecordTypeUsers, id, s.eventSink.RecordUpdated)
	return nil
}

// MigrateLegacyPasswords hashes every stored password that is not already
// a bcrypt hash and returns how many users were converted.
func (s *service) MigrateLegacyPasswords(ctx context.Context) (int, error) {
	docs, err := s.repository.FindAll(ctx, RecordTypeUsers)
	if err != nil {
		return 0, &RecordError{Type: RecordTypeUsers, Op: "migrate_passwords", Err: err}
	}

	migrated := 0
	for _, doc := range docs {
		user, err := fromDocument[User](doc)
		if err != nil {
			return migrated, &RecordError{Type: RecordTypeUsers, Op: "migrate_passwords", Err: err}
		}
		if user.Password == "" || isBcryptHash(user.Password) {
			continue
		}

		hash, err := s.hashPassword(user.Password)
		if err != nil {
			return migrated, &RecordError{Type: RecordTypeUsers, ID: user.ID, Op: "migrate_passwords", Err: err}
		}
		if _, err := s.repository.UpdateByID(ctx, RecordTypeUsers, user.ID, Document{"password": hash}); err != nil {
			return migrated, &RecordError{Type: RecordTypeUsers, ID: user.ID, Op: "migrate_passwords", Err: err}
		}

		s.logger.InfoContext(ctx, "migrated legacy password", "user_id", user.ID, "username", user.Username)
		migrated++
	}

	return migrated, nil
}

func (s *service) hashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.passwordCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

func isBcryptHash(value string) bool {
	_, err := bcrypt.Cost([]byte(value))
	return err == nil
}
