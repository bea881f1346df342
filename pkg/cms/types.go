package cms

import (
	"encoding/json"
	"fmt"
	"io"
)

// DefaultRole is assigned to users created without an explicit role.
const DefaultRole = "Administrator"

// DateLayout is the format of the date field on content and media records.
const DateLayout = "2006-01-02"

// Document is a schemaless record as exchanged with a Repository.
type Document map[string]any

// StorageIDField is the key under which repositories report a record's identifier.
const StorageIDField = "_id"

// User is a stored account. Password always holds a bcrypt hash once
// legacy credentials have been migrated.
type User struct {
	ID         string `json:"id,omitempty"`
	Name       string `json:"name"`
	Username   string `json:"username"`
	Password   string `json:"password,omitempty"`
	Role       string `json:"role"`
	ProfilePic string `json:"profilePic"`
}

// Projection returns the client-safe view of the user.
func (u *User) Projection() *UserProjection {
	return &UserProjection{
		ID:         u.ID,
		Name:       u.Name,
		Role:       u.Role,
		ProfilePic: u.ProfilePic,
		Username:   u.Username,
	}
}

// UserProjection is a User without its credential.
type UserProjection struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	Role       string `json:"role"`
	ProfilePic string `json:"profilePic"`
	Username   string `json:"username"`
}

// Content is the shared shape of pages and posts. The collection holding
// a record decides whether it is a page or a post.
type Content struct {
	ID       string `json:"id,omitempty"`
	Title    string `json:"title,omitempty"`
	Content  string `json:"content,omitempty"`
	Author   string `json:"author,omitempty"`
	Status   string `json:"status,omitempty"`
	Category string `json:"category,omitempty"`
	Type     string `json:"type,omitempty"`
	Date     string `json:"date"`
}

// Media describes an uploaded file.
type Media struct {
	ID   string `json:"id,omitempty"`
	Name string `json:"name"`
	Type string `json:"type"`
	Size string `json:"size"`
	URL  string `json:"url"`
	Date string `json:"date"`
}

// CreateUserRequest contains the fields for creating a user
type CreateUserRequest struct {
	Name       string `json:"name"`
	Username   string `json:"username"`
	Password   string `json:"password"`
	Role       string `json:"role,omitempty"`
	ProfilePic string `json:"profilePic,omitempty"`
}

// SecurityUpdate changes login credentials. Empty fields are left untouched.
type SecurityUpdate struct {
	Username string `json:"username,omitempty"`
	Password string `json:"password,omitempty"`
}

// ContentPatch holds the fields to merge into a page or post. Nil fields
// are left untouched.
type ContentPatch struct {
	Title    *string `json:"title,omitempty"`
	Content  *string `json:"content,omitempty"`
	Author   *string `json:"author,omitempty"`
	Status   *string `json:"status,omitempty"`
	Category *string `json:"category,omitempty"`
	Type     *string `json:"type,omitempty"`
	Date     *string `json:"date,omitempty"`
}

func (p ContentPatch) document() Document {
	doc := Document{}
	setIfPresent(doc, "title", p.Title)
	setIfPresent(doc, "content", p.Content)
	setIfPresent(doc, "author", p.Author)
	setIfPresent(doc, "status", p.Status)
	setIfPresent(doc, "category", p.Category)
	setIfPresent(doc, "type", p.Type)
	setIfPresent(doc, "date", p.Date)
	return doc
}

// MediaPatch holds the editable media fields. Nil or empty fields are left
// untouched.
type MediaPatch struct {
	Name *string `json:"name,omitempty"`
	Type *string `json:"type,omitempty"`
}

func (p MediaPatch) document() Document {
	doc := Document{}
	setIfNotEmpty(doc, "name", p.Name)
	setIfNotEmpty(doc, "type", p.Type)
	return doc
}

// UploadMediaRequest contains a file and the caller supplied media metadata
type UploadMediaRequest struct {
	Reader   io.Reader
	FileName string
	Size     int64
	MimeType string
	Name     string
	Type     string
}

// UploadAvatarRequest contains a profile picture upload
type UploadAvatarRequest struct {
	Reader   io.Reader
	FileName string
	MimeType string
}

// StoreParams describes an object handed to a BlobStore
type StoreParams struct {
	ObjectKey string
	FileName  string
	MimeType  string
	// Size is -1 when the length is not known up front
	Size int64
}

// FormatSize renders a byte count the way media records have always shown it:
// bytes/1024 with two decimals and a " KB" suffix, whatever the magnitude.
// Ties round away from zero, so 128 bytes is "0.13 KB".
func FormatSize(bytes int64) string {
	sign := ""
	if bytes < 0 {
		sign, bytes = "-", -bytes
	}
	hundredths, rem := (bytes*100)/1024, (bytes*100)%1024
	if 2*rem >= 1024 {
		hundredths++
	}
	return fmt.Sprintf("%s%d.%02d KB", sign, hundredths/100, hundredths%100)
}

func setIfPresent(doc Document, key string, value *string) {
	if value != nil {
		doc[key] = *value
	}
}

func setIfNotEmpty(doc Document, key string, value *string) {
	if value != nil && *value != "" {
		doc[key] = *value
	}
}

// exposeID is the single place where a stored identifier becomes the
// public id field. Every record leaving the persistence layer goes through it.
func exposeID(doc Document) Document {
	out := make(Document, len(doc)+1)
	for k, v := range doc {
		if k == StorageIDField {
			continue
		}
		out[k] = v
	}
	if id, ok := doc[StorageIDField]; ok && id != nil {
		out["id"] = fmt.Sprint(id)
	}
	return out
}

// toDocument converts a typed record into its stored form. The public id
// is never written back into the document body.
func toDocument(v any) (Document, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	doc := Document{}
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, err
	}
	delete(doc, "id")
	delete(doc, StorageIDField)
	return doc, nil
}

// fromDocument decodes a stored document into a typed record.
func fromDocument[T any](doc Document) (*T, error) {
	data, err := json.Marshal(exposeID(doc))
	if err != nil {
		return nil, err
	}
	var out T
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, err
	}
	return &out, nil
}
