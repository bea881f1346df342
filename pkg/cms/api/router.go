package api

import (
	"context"
	"io/fs"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"
	"github.com/go-chi/render"
	"github.com/tendant/chi-demo/app"
	"github.com/tendant/simple-cms/pkg/cms"
)

// RouterConfig controls the optional parts of the HTTP surface
type RouterConfig struct {
	Logger *slog.Logger

	// Tokens issues a token on login when set. RequireAuth additionally
	// protects every /api route except login.
	Tokens      *TokenIssuer
	RequireAuth bool

	// LoginRateLimit is the number of login attempts allowed per minute per
	// client IP. Zero disables the limit.
	LoginRateLimit int

	// CORSAllowedOrigins defaults to every origin when empty
	CORSAllowedOrigins []string

	// UploadMaxBytes caps upload request bodies. Zero disables the cap.
	UploadMaxBytes int64

	// StaticDir is served under StaticPrefix when both are set
	StaticDir    string
	StaticPrefix string

	// Metrics enables request metrics and GET /metrics when set
	Metrics *Metrics
}

// NewRouter wires the CMS routes, operational endpoints and middleware.
//
// Updates addressed to an id that does not exist answer 404 with
// {"error": "Not found"} rather than {"success": true}. This covers
// PUT /api/{type}/{id}, PATCH /api/users/{id}, PATCH /api/users/{id}/security,
// PATCH /api/media/{id} and POST /api/users/{id}/avatar.
func NewRouter(service cms.Service, cfg RouterConfig) *chi.Mux {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	r := chi.NewRouter()
	r.Use(middleware.RealIP)
	r.Use(RequestIDMiddleware)
	r.Use(LoggingMiddleware(logger))
	r.Use(RecoveryMiddleware(logger))
	if cfg.Metrics != nil {
		r.Use(cfg.Metrics.Middleware)
	}
	r.Use(cors.Handler(corsOptions(cfg.CORSAllowedOrigins)))

	app.RoutesHealthz(r)
	app.RoutesHealthzReady(r)
	r.Get("/readyz", readiness(service, logger))
	if cfg.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", cfg.Metrics.Handler())
	}

	if cfg.StaticDir != "" && cfg.StaticPrefix != "" {
		prefix := strings.TrimRight(cfg.StaticPrefix, "/")
		r.Handle(prefix+"/*", http.StripPrefix(prefix, http.FileServer(filesOnly{http.Dir(cfg.StaticDir)})))
	}

	auth := NewAuthHandler(service, cfg.Tokens, logger)
	content := NewContentHandler(service, logger)
	uploads := NewUploadHandler(service, cfg.Metrics, logger)

	r.Route("/api", func(r chi.Router) {
		if cfg.LoginRateLimit > 0 {
			r.With(httprate.LimitByIP(cfg.LoginRateLimit, time.Minute)).Post("/login", auth.Login)
		} else {
			r.Post("/login", auth.Login)
		}

		r.Group(func(r chi.Router) {
			if cfg.RequireAuth && cfg.Tokens != nil {
				r.Use(cfg.Tokens.Verifier())
				r.Use(Authenticator)
			}

			r.Post("/users", auth.CreateUser)
			r.Post("/pages", content.CreatePage)
			r.Post("/posts", content.CreatePost)

			r.Get("/{type}", content.List)
			r.Put("/{type}/{id}", content.UpdateContent)
			r.Delete("/{type}/{id}", content.Delete)

			r.Patch("/users/{id}", content.UpdateUserName)
			r.Patch("/users/{id}/security", content.UpdateUserSecurity)
			r.Patch("/media/{id}", content.UpdateMedia)

			r.Group(func(r chi.Router) {
				r.Use(RequestSizeLimitMiddleware(cfg.UploadMaxBytes))
				r.Post("/media/upload", uploads.UploadMedia)
				r.Post("/users/{id}/avatar", uploads.UploadAvatar)
			})
		})
	})

	return r
}

// filesOnly hides directories so the static handler never lists uploads
type filesOnly struct {
	http.FileSystem
}

func (f filesOnly) Open(name string) (http.File, error) {
	file, err := f.FileSystem.Open(name)
	if err != nil {
		return nil, err
	}
	info, err := file.Stat()
	if err != nil {
		file.Close()
		return nil, err
	}
	if info.IsDir() {
		file.Close()
		return nil, fs.ErrNotExist
	}
	return file, nil
}

func corsOptions(origins []string) cors.Options {
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	return cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
		ExposedHeaders: []string{"X-Request-ID"},
		MaxAge:         300,
	}
}

// readiness reports 503 while the persistence backend is unreachable
func readiness(service cms.Service, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		if err := service.Ping(ctx); err != nil {
			logger.WarnContext(r.Context(), "readiness check failed", "err", err)
			render.Status(r, http.StatusServiceUnavailable)
			render.JSON(w, r, map[string]string{"status": "unavailable"})
			return
		}
		render.JSON(w, r, map[string]string{"status": "ok"})
	}
}
