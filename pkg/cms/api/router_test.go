package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/jwtauth"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tendant/simple-cms/pkg/cms"
	memoryrepo "github.com/tendant/simple-cms/pkg/cms/repo/memory"
	fsstorage "github.com/tendant/simple-cms/pkg/cms/storage/fs"
	memorystorage "github.com/tendant/simple-cms/pkg/cms/storage/memory"
)

type testServer struct {
	router  http.Handler
	service cms.Service
	store   *memorystorage.Backend
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func fixedClock() time.Time {
	return time.Date(2024, 3, 9, 15, 4, 5, 0, time.UTC)
}

// setupRouter builds a router over in-memory backends
func setupRouter(t *testing.T, cfg RouterConfig) *testServer {
	t.Helper()
	store := memorystorage.New()
	service, err := cms.New(
		cms.WithRepository(memoryrepo.New()),
		cms.WithBlobStore(store),
		cms.WithClock(fixedClock),
		cms.WithLogger(quietLogger()),
	)
	require.NoError(t, err)

	if cfg.Logger == nil {
		cfg.Logger = quietLogger()
	}
	return &testServer{router: NewRouter(service, cfg), service: service, store: store}
}

func (s *testServer) do(t *testing.T, method, path string, body any, headers ...string) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func (s *testServer) upload(t *testing.T, path, fileName string, content []byte, fields map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for k, v := range fields {
		require.NoError(t, mw.WriteField(k, v))
	}
	if fileName != "" {
		part, err := mw.CreateFormFile("file", fileName)
		require.NoError(t, err)
		_, err = part.Write(content)
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, path, &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func decodeMap(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	return out
}

func decodeList(t *testing.T, w *httptest.ResponseRecorder) []map[string]any {
	t.Helper()
	var out []map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	return out
}

func (s *testServer) createUser(t *testing.T, username, password string) string {
	t.Helper()
	w := s.do(t, http.MethodPost, "/api/users", map[string]string{
		"name":     "Test " + username,
		"username": username,
		"password": password,
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	user := decodeMap(t, w)["user"].(map[string]any)
	return user["id"].(string)
}

func TestLogin(t *testing.T) {
	s := setupRouter(t, RouterConfig{})
	s.createUser(t, "ada", "lovelace")

	t.Run("valid credentials", func(t *testing.T) {
		w := s.do(t, http.MethodPost, "/api/login", LoginRequest{Username: "ada", Password: "lovelace"})
		require.Equal(t, http.StatusOK, w.Code)

		body := decodeMap(t, w)
		assert.Equal(t, true, body["success"])
		assert.NotContains(t, body, "token", "no token without an issuer")

		user := body["user"].(map[string]any)
		assert.NotEmpty(t, user["id"])
		assert.Equal(t, "ada", user["username"])
		assert.Equal(t, "Test ada", user["name"])
		assert.Equal(t, cms.DefaultRole, user["role"])
		assert.Equal(t, "", user["profilePic"])
		assert.NotContains(t, user, "password")
	})

	t.Run("wrong password", func(t *testing.T) {
		w := s.do(t, http.MethodPost, "/api/login", LoginRequest{Username: "ada", Password: "nope"})
		require.Equal(t, http.StatusUnauthorized, w.Code)
		assert.Equal(t, map[string]any{"success": false, "message": "Invalid credentials"}, decodeMap(t, w))
	})

	t.Run("unknown user", func(t *testing.T) {
		w := s.do(t, http.MethodPost, "/api/login", LoginRequest{Username: "grace", Password: "lovelace"})
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("malformed body", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/api/login", strings.NewReader("{"))
		w := httptest.NewRecorder()
		s.router.ServeHTTP(w, req)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestLogin_IssuesToken(t *testing.T) {
	tokens, err := NewTokenIssuer("test-secret", time.Hour)
	require.NoError(t, err)
	s := setupRouter(t, RouterConfig{Tokens: tokens})
	id := s.createUser(t, "ada", "lovelace")

	w := s.do(t, http.MethodPost, "/api/login", LoginRequest{Username: "ada", Password: "lovelace"})
	require.Equal(t, http.StatusOK, w.Code)

	raw, ok := decodeMap(t, w)["token"].(string)
	require.True(t, ok)

	token, err := jwtauth.VerifyToken(jwtauth.New("HS256", []byte("test-secret"), nil), raw)
	require.NoError(t, err)
	assert.Equal(t, id, token.Subject())
	assert.True(t, token.Expiration().After(time.Now()))

	claims, err := token.AsMap(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "ada", claims["username"])
	assert.Equal(t, cms.DefaultRole, claims["role"])
}

func TestRequireAuth(t *testing.T) {
	tokens, err := NewTokenIssuer("test-secret", time.Hour)
	require.NoError(t, err)
	s := setupRouter(t, RouterConfig{Tokens: tokens, RequireAuth: true})

	_, err = s.service.CreateUser(context.Background(), cms.CreateUserRequest{Username: "ada", Password: "pw"})
	require.NoError(t, err)

	w := s.do(t, http.MethodGet, "/api/pages", nil)
	require.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, false, decodeMap(t, w)["success"])

	w = s.do(t, http.MethodGet, "/api/pages", nil, "Authorization", "Bearer not-a-token")
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	other, err := NewTokenIssuer("other-secret", time.Hour)
	require.NoError(t, err)
	forged, err := other.Issue(&cms.UserProjection{ID: "x", Username: "ada"})
	require.NoError(t, err)
	w = s.do(t, http.MethodGet, "/api/pages", nil, "Authorization", "Bearer "+forged)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	// Login stays open
	w = s.do(t, http.MethodPost, "/api/login", LoginRequest{Username: "ada", Password: "pw"})
	require.Equal(t, http.StatusOK, w.Code)
	token := decodeMap(t, w)["token"].(string)

	w = s.do(t, http.MethodGet, "/api/pages", nil, "Authorization", "Bearer "+token)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestRequireAuth_ExpiredToken(t *testing.T) {
	tokens, err := NewTokenIssuer("test-secret", time.Hour)
	require.NoError(t, err)
	s := setupRouter(t, RouterConfig{Tokens: tokens, RequireAuth: true})

	claims := map[string]interface{}{"sub": "u1"}
	jwtauth.SetExpiry(claims, time.Now().Add(-time.Minute))
	_, expired, err := tokens.auth.Encode(claims)
	require.NoError(t, err)

	w := s.do(t, http.MethodGet, "/api/pages", nil, "Authorization", "Bearer "+expired)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestNewTokenIssuer_Validation(t *testing.T) {
	_, err := NewTokenIssuer("", time.Hour)
	assert.Error(t, err)
	_, err = NewTokenIssuer("secret", 0)
	assert.Error(t, err)
}

func TestLoginRateLimit(t *testing.T) {
	s := setupRouter(t, RouterConfig{LoginRateLimit: 2})

	for i := 0; i < 2; i++ {
		w := s.do(t, http.MethodPost, "/api/login", LoginRequest{Username: "x", Password: "y"})
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	}
	w := s.do(t, http.MethodPost, "/api/login", LoginRequest{Username: "x", Password: "y"})
	assert.Equal(t, http.StatusTooManyRequests, w.Code)

	// Other routes are not limited
	for i := 0; i < 3; i++ {
		assert.Equal(t, http.StatusOK, s.do(t, http.MethodGet, "/api/posts", nil).Code)
	}
}

func TestCreateUser(t *testing.T) {
	s := setupRouter(t, RouterConfig{})

	w := s.do(t, http.MethodPost, "/api/users", map[string]string{
		"name": "Ada", "username": "ada", "password": "pw", "role": "Editor",
	})
	require.Equal(t, http.StatusCreated, w.Code)
	body := decodeMap(t, w)
	assert.Equal(t, true, body["success"])
	user := body["user"].(map[string]any)
	assert.Equal(t, "Editor", user["role"])
	assert.NotContains(t, user, "password")

	w = s.do(t, http.MethodPost, "/api/users", map[string]string{"name": "No creds"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = s.do(t, http.MethodPost, "/api/users", map[string]string{"username": "ada", "password": "again"})
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, "Server error", decodeMap(t, w)["error"])
}

func TestList(t *testing.T) {
	s := setupRouter(t, RouterConfig{})
	s.createUser(t, "ada", "pw")

	for _, typ := range []string{"users", "media", "pages", "posts"} {
		w := s.do(t, http.MethodGet, "/api/"+typ, nil)
		assert.Equal(t, http.StatusOK, w.Code, typ)
	}

	users := decodeList(t, s.do(t, http.MethodGet, "/api/users", nil))
	require.Len(t, users, 1)
	assert.NotEmpty(t, users[0]["id"])
	assert.NotContains(t, users[0], "_id")
	assert.NotContains(t, users[0], "password")

	media := decodeList(t, s.do(t, http.MethodGet, "/api/media", nil))
	assert.Empty(t, media)

	w := s.do(t, http.MethodGet, "/api/unknowntype", nil)
	require.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "Invalid type", decodeMap(t, w)["error"])
}

func TestPageLifecycle(t *testing.T) {
	s := setupRouter(t, RouterConfig{})

	w := s.do(t, http.MethodPost, "/api/pages", map[string]string{"title": "A", "content": "B", "author": "C"})
	require.Equal(t, http.StatusCreated, w.Code)
	created := decodeMap(t, w)
	id := created["id"].(string)
	assert.NotEmpty(t, id)
	assert.Equal(t, "2024-03-09", created["date"])
	assert.Equal(t, "A", created["title"])
	assert.Equal(t, "B", created["content"])
	assert.Equal(t, "C", created["author"])

	w = s.do(t, http.MethodPut, "/api/pages/"+id, map[string]string{"title": "A2"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "A2", decodeMap(t, w)["title"])

	pages := decodeList(t, s.do(t, http.MethodGet, "/api/pages", nil))
	require.Len(t, pages, 1)
	assert.Equal(t, id, pages[0]["id"])
	assert.Equal(t, "A2", pages[0]["title"])
	assert.Equal(t, "B", pages[0]["content"])
	assert.Equal(t, "C", pages[0]["author"])
	assert.Equal(t, "2024-03-09", pages[0]["date"])

	w = s.do(t, http.MethodDelete, "/api/pages/"+id, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, map[string]any{"success": true}, decodeMap(t, w))
	assert.Empty(t, decodeList(t, s.do(t, http.MethodGet, "/api/pages", nil)))

	// Deleting again still succeeds
	assert.Equal(t, http.StatusOK, s.do(t, http.MethodDelete, "/api/pages/"+id, nil).Code)
}

func TestCreatePost_KeepsSuppliedDate(t *testing.T) {
	s := setupRouter(t, RouterConfig{})

	w := s.do(t, http.MethodPost, "/api/posts", map[string]string{"title": "Old", "date": "2020-01-01", "status": "draft"})
	require.Equal(t, http.StatusCreated, w.Code)
	post := decodeMap(t, w)
	assert.Equal(t, "2020-01-01", post["date"])
	assert.Equal(t, "draft", post["status"])
}

func TestUpdateContent_Errors(t *testing.T) {
	s := setupRouter(t, RouterConfig{})
	id := s.createUser(t, "ada", "pw")

	w := s.do(t, http.MethodPut, "/api/users/"+id, map[string]string{"title": "x"})
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = s.do(t, http.MethodPut, "/api/widgets/1", map[string]string{"title": "x"})
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "Invalid type", decodeMap(t, w)["error"])

	w = s.do(t, http.MethodPut, "/api/posts/missing", map[string]string{"title": "x"})
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "Not found", decodeMap(t, w)["error"])
}

func TestUpdateUser(t *testing.T) {
	s := setupRouter(t, RouterConfig{})
	id := s.createUser(t, "ada", "pw")

	w := s.do(t, http.MethodPatch, "/api/users/"+id, map[string]string{"name": "Countess"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, map[string]any{"success": true}, decodeMap(t, w))

	w = s.do(t, http.MethodPatch, "/api/users/"+id+"/security", map[string]string{"password": "new-pw"})
	require.Equal(t, http.StatusOK, w.Code)

	w = s.do(t, http.MethodPost, "/api/login", LoginRequest{Username: "ada", Password: "pw"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = s.do(t, http.MethodPost, "/api/login", LoginRequest{Username: "ada", Password: "new-pw"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Countess", decodeMap(t, w)["user"].(map[string]any)["name"])

	w = s.do(t, http.MethodPatch, "/api/users/"+id+"/security", map[string]string{"username": "countess"})
	require.Equal(t, http.StatusOK, w.Code)
	w = s.do(t, http.MethodPost, "/api/login", LoginRequest{Username: "countess", Password: "new-pw"})
	assert.Equal(t, http.StatusOK, w.Code)

	w = s.do(t, http.MethodPatch, "/api/users/missing", map[string]string{"name": "x"})
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = s.do(t, http.MethodPatch, "/api/users/missing/security", map[string]string{"password": "x"})
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestUnknownIDs_AnswerNotFound(t *testing.T) {
	s := setupRouter(t, RouterConfig{})

	tests := []struct {
		method string
		path   string
		body   map[string]string
	}{
		{http.MethodPut, "/api/pages/missing", map[string]string{"title": "x"}},
		{http.MethodPatch, "/api/users/missing", map[string]string{"name": "x"}},
		{http.MethodPatch, "/api/users/missing/security", map[string]string{"password": "x"}},
		{http.MethodPatch, "/api/media/missing", map[string]string{"name": "x"}},
	}
	for _, tt := range tests {
		w := s.do(t, tt.method, tt.path, tt.body)
		assert.Equal(t, http.StatusNotFound, w.Code, tt.path)
		body := decodeMap(t, w)
		assert.NotContains(t, body, "success", tt.path)
		assert.Equal(t, "Not found", body["error"], tt.path)
	}

	w := s.upload(t, "/api/users/missing/avatar", "me.jpg", []byte("x"), nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.NotContains(t, decodeMap(t, w), "success")
}

func TestMediaUpload(t *testing.T) {
	s := setupRouter(t, RouterConfig{})

	w := s.upload(t, "/api/media/upload", "photo.png", bytes.Repeat([]byte("x"), 2048), map[string]string{"type": "image"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	media := decodeMap(t, w)
	assert.NotEmpty(t, media["id"])
	assert.Equal(t, "photo.png", media["name"])
	assert.Equal(t, "image", media["type"])
	assert.Equal(t, "2.00 KB", media["size"])
	assert.Equal(t, "2024-03-09", media["date"])

	url := media["url"].(string)
	assert.True(t, strings.HasPrefix(url, "/uploads/"), url)
	assert.True(t, strings.HasSuffix(url, ".png"), url)
	_, _, ok := s.store.Get(url)
	assert.True(t, ok)

	w = s.upload(t, "/api/media/upload", "photo.png", []byte("x"), map[string]string{"name": "Holiday"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Holiday", decodeMap(t, w)["name"])

	// Rename and retype
	id := media["id"].(string)
	w = s.do(t, http.MethodPatch, "/api/media/"+id, map[string]string{"name": "Beach", "type": "photo"})
	require.Equal(t, http.StatusOK, w.Code)

	list := decodeList(t, s.do(t, http.MethodGet, "/api/media", nil))
	require.Len(t, list, 2)
	assert.Equal(t, "Beach", list[0]["name"])
	assert.Equal(t, "photo", list[0]["type"])

	w = s.do(t, http.MethodPatch, "/api/media/missing", map[string]string{"name": "x"})
	assert.Equal(t, http.StatusNotFound, w.Code)

	// Deleting the record removes the stored file
	require.Equal(t, http.StatusOK, s.do(t, http.MethodDelete, "/api/media/"+id, nil).Code)
	_, _, ok = s.store.Get(url)
	assert.False(t, ok)
}

func TestMediaUpload_MissingFile(t *testing.T) {
	s := setupRouter(t, RouterConfig{})

	w := s.upload(t, "/api/media/upload", "", nil, map[string]string{"name": "nothing"})
	require.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, "Upload failed", decodeMap(t, w)["error"])
	assert.Equal(t, 0, s.store.Len())

	w = s.do(t, http.MethodPost, "/api/media/upload", map[string]string{"name": "json"})
	assert.Equal(t, http.StatusInternalServerError, w.Code)
}

func TestMediaUpload_TooLarge(t *testing.T) {
	s := setupRouter(t, RouterConfig{UploadMaxBytes: 1024})

	w := s.upload(t, "/api/media/upload", "big.bin", bytes.Repeat([]byte("x"), 4096), nil)
	assert.Contains(t, []int{http.StatusRequestEntityTooLarge, http.StatusInternalServerError}, w.Code)
	assert.Equal(t, 0, s.store.Len())
}

func TestAvatarUpload(t *testing.T) {
	s := setupRouter(t, RouterConfig{})
	id := s.createUser(t, "ada", "pw")

	w := s.upload(t, "/api/users/"+id+"/avatar", "me.jpg", []byte("jpeg-bytes"), nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	body := decodeMap(t, w)
	assert.Equal(t, true, body["success"])
	url := body["url"].(string)
	assert.True(t, strings.HasPrefix(url, "/uploads/"))

	w = s.do(t, http.MethodPost, "/api/login", LoginRequest{Username: "ada", Password: "pw"})
	assert.Equal(t, url, decodeMap(t, w)["user"].(map[string]any)["profilePic"])

	w = s.upload(t, "/api/users/missing/avatar", "me.jpg", []byte("x"), nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = s.upload(t, "/api/users/"+id+"/avatar", "", nil, nil)
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, "Avatar upload failed", decodeMap(t, w)["error"])
}

func TestDelete_UnknownType(t *testing.T) {
	s := setupRouter(t, RouterConfig{})

	w := s.do(t, http.MethodDelete, "/api/widgets/1", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestDelete_User(t *testing.T) {
	s := setupRouter(t, RouterConfig{})
	id := s.createUser(t, "ada", "pw")

	require.Equal(t, http.StatusOK, s.do(t, http.MethodDelete, "/api/users/"+id, nil).Code)
	assert.Empty(t, decodeList(t, s.do(t, http.MethodGet, "/api/users", nil)))
}

func TestStaticUploads(t *testing.T) {
	dir := t.TempDir()
	backend, err := fsstorage.New(fsstorage.Config{BaseDir: dir})
	require.NoError(t, err)

	service, err := cms.New(
		cms.WithRepository(memoryrepo.New()),
		cms.WithBlobStore(backend),
		cms.WithLogger(quietLogger()),
	)
	require.NoError(t, err)
	router := NewRouter(service, RouterConfig{
		Logger:       quietLogger(),
		StaticDir:    backend.BaseDir(),
		StaticPrefix: backend.URLPrefix(),
	})
	s := &testServer{router: router, service: service}

	w := s.upload(t, "/api/media/upload", "note.txt", []byte("hello"), nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	url := decodeMap(t, w)["url"].(string)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "/uploads/"+entries[0].Name(), url)
	_, err = os.Stat(filepath.Join(dir, entries[0].Name()))
	require.NoError(t, err)

	w = s.do(t, http.MethodGet, url, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "hello", w.Body.String())

	t.Run("directories are not listed", func(t *testing.T) {
		require.NoError(t, os.Mkdir(filepath.Join(dir, "nested"), 0o755))

		for _, path := range []string{"/uploads/", "/uploads/nested/"} {
			w := s.do(t, http.MethodGet, path, nil)
			assert.Equal(t, http.StatusNotFound, w.Code, path)
			assert.NotContains(t, w.Body.String(), entries[0].Name(), path)
		}
	})
}

func TestHealthAndReadiness(t *testing.T) {
	s := setupRouter(t, RouterConfig{})

	assert.Equal(t, http.StatusOK, s.do(t, http.MethodGet, "/healthz", nil).Code)
	assert.Equal(t, http.StatusOK, s.do(t, http.MethodGet, "/healthz/ready", nil).Code)

	w := s.do(t, http.MethodGet, "/readyz", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "ok", decodeMap(t, w)["status"])
}

type downRepository struct {
	*memoryrepo.Repository
}

func (downRepository) Ping(context.Context) error {
	return errors.New("connection refused")
}

func (downRepository) FindAll(context.Context, cms.RecordType) ([]cms.Document, error) {
	return nil, errors.New("connection refused")
}

func TestReadiness_Unavailable(t *testing.T) {
	service, err := cms.New(
		cms.WithRepository(downRepository{memoryrepo.New()}),
		cms.WithBlobStore(memorystorage.New()),
		cms.WithLogger(quietLogger()),
	)
	require.NoError(t, err)
	s := &testServer{router: NewRouter(service, RouterConfig{Logger: quietLogger()}), service: service}

	assert.Equal(t, http.StatusServiceUnavailable, s.do(t, http.MethodGet, "/readyz", nil).Code)

	// List failures answer 500 with an empty array
	w := s.do(t, http.MethodGet, "/api/posts", nil)
	require.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Empty(t, decodeList(t, w))
}

func TestMetrics(t *testing.T) {
	metrics := NewMetrics()
	s := setupRouter(t, RouterConfig{Metrics: metrics})

	s.do(t, http.MethodGet, "/api/pages", nil)
	s.do(t, http.MethodGet, "/api/widgets", nil)
	s.upload(t, "/api/media/upload", "a.txt", []byte("12345"), nil)

	w := s.do(t, http.MethodGet, "/metrics", nil)
	require.Equal(t, http.StatusOK, w.Code)
	body := w.Body.String()
	assert.Contains(t, body, `cms_http_requests_total{method="GET",path="/api/{type}",status="200"} 1`)
	assert.Contains(t, body, `cms_http_requests_total{method="GET",path="/api/{type}",status="404"} 1`)
	assert.Contains(t, body, "cms_uploaded_bytes_total 5")
	assert.Contains(t, body, "cms_http_request_duration_seconds")
}

func TestRequestIDAndCORS(t *testing.T) {
	s := setupRouter(t, RouterConfig{CORSAllowedOrigins: []string{"https://admin.example.com"}})

	w := s.do(t, http.MethodGet, "/api/pages", nil, "X-Request-ID", "req-123", "Origin", "https://admin.example.com")
	assert.Equal(t, "req-123", w.Header().Get("X-Request-ID"))
	assert.Equal(t, "https://admin.example.com", w.Header().Get("Access-Control-Allow-Origin"))

	w = s.do(t, http.MethodGet, "/api/pages", nil, "Origin", "https://evil.example.com")
	assert.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))
	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))
}
