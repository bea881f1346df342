package config

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"github.com/tendant/simple-cms/pkg/cms"
	"github.com/tendant/simple-cms/pkg/cms/imageproc"
	"github.com/tendant/simple-cms/pkg/cms/objectkey"
	memoryrepo "github.com/tendant/simple-cms/pkg/cms/repo/memory"
	mongorepo "github.com/tendant/simple-cms/pkg/cms/repo/mongo"
	repopg "github.com/tendant/simple-cms/pkg/cms/repo/postgres"
	fsstorage "github.com/tendant/simple-cms/pkg/cms/storage/fs"
	memorystorage "github.com/tendant/simple-cms/pkg/cms/storage/memory"
	s3storage "github.com/tendant/simple-cms/pkg/cms/storage/s3"
	"golang.org/x/crypto/bcrypt"
)

const (
	DatabaseMemory   = "memory"
	DatabaseMongo    = "mongo"
	DatabasePostgres = "postgres"

	StorageMemory = "memory"
	StorageFS     = "fs"
	StorageS3     = "s3"
)

// Option applies configuration to a ServerConfig instance.
type Option func(*ServerConfig) error

// Load constructs a ServerConfig by applying the supplied options on top of library defaults.
func Load(opts ...Option) (*ServerConfig, error) {
	cfg := defaults()

	for _, opt := range opts {
		if opt == nil {
			continue
		}
		if err := opt(&cfg); err != nil {
			return nil, err
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func defaults() ServerConfig {
	return ServerConfig{
		Port:               "3000",
		Environment:        "development",
		LogLevel:           "info",
		DatabaseType:       DatabaseMemory,
		DatabaseName:       "cms",
		StorageType:        StorageFS,
		UploadDir:          "public/uploads",
		URLPrefix:          fsstorage.DefaultURLPrefix,
		UploadMaxBytes:     32 << 20,
		BcryptCost:         bcrypt.DefaultCost,
		JWTTTL:             24 * time.Hour,
		LoginRateLimit:     10,
		AvatarMaxDimension: 512,
		ObjectKeyStrategy:  objectkey.StrategyUUID,
		EnableEventLogging: true,
		S3: S3Config{
			Region:       "us-east-1",
			PublicRead:   true,
			SSEAlgorithm: "AES256",
		},
	}
}

// ServerConfig represents server configuration for the CMS backend.
// Fields carrying an env tag are read by WithEnv; DATABASE_URL and
// STORAGE_URL are parsed into the database and storage fields.
type ServerConfig struct {
	Port        string `env:"PORT"`
	Environment string `env:"ENVIRONMENT"` // development, production, testing
	LogLevel    string `env:"LOG_LEVEL"`   // debug, info, warn, error

	// Database configuration
	// DatabaseType is "memory", "mongo" or "postgres". DatabaseName
	// selects the Mongo database.
	DatabaseType string
	DatabaseURL  string
	DatabaseName string `env:"DATABASE_NAME"`

	// Storage configuration
	// StorageType is "memory", "fs" or "s3". UploadDir and URLPrefix
	// apply to fs only.
	StorageType string
	UploadDir   string
	URLPrefix   string `env:"PUBLIC_URL_PREFIX"`
	S3          S3Config

	UploadMaxBytes int64 `env:"UPLOAD_MAX_BYTES"`
	BcryptCost     int   `env:"BCRYPT_COST"`

	// Token and access options
	JWTSecret          string        `env:"JWT_SECRET"`
	JWTTTL             time.Duration `env:"JWT_TTL"`
	RequireAuth        bool          `env:"REQUIRE_AUTH"`
	LoginRateLimit     int           `env:"LOGIN_RATE_LIMIT"` // attempts per minute per IP, 0 disables
	CORSAllowedOrigins []string      `env:"CORS_ALLOWED_ORIGINS"`

	// Upload options
	AvatarMaxDimension int    `env:"AVATAR_MAX_DIMENSION"` // 0 keeps avatars as uploaded
	ObjectKeyStrategy  string `env:"OBJECT_KEY_STRATEGY"`

	// Server options
	MigrateLegacyPasswords bool `env:"MIGRATE_LEGACY_PASSWORDS"`
	EnableEventLogging     bool `env:"ENABLE_EVENT_LOGGING"`
}

// S3Config holds the media host settings used when StorageType is "s3".
type S3Config struct {
	Bucket          string
	Region          string `env:"S3_REGION,AWS_REGION"`
	AccessKeyID     string `env:"S3_ACCESS_KEY_ID,AWS_ACCESS_KEY_ID"`
	SecretAccessKey string `env:"S3_SECRET_ACCESS_KEY,AWS_SECRET_ACCESS_KEY"`
	Endpoint        string `env:"S3_ENDPOINT"`
	UsePathStyle    bool   `env:"S3_USE_PATH_STYLE"`
	KeyPrefix       string `env:"S3_KEY_PREFIX"`
	PublicBaseURL   string `env:"S3_PUBLIC_BASE_URL"`
	PublicRead      bool   `env:"S3_PUBLIC_READ"`
	EnableSSE       bool   `env:"S3_ENABLE_SSE"`
	SSEAlgorithm    string `env:"S3_SSE_ALGORITHM"`
	SSEKMSKeyID     string `env:"S3_SSE_KMS_KEY_ID"`
	CreateBucket    bool   `env:"S3_CREATE_BUCKET"`
}

// Validate validates the server configuration
func (c *ServerConfig) Validate() error {
	if c.Port == "" {
		return errors.New("port is required")
	}
	if _, err := ParseLevel(c.LogLevel); err != nil {
		return err
	}

	switch c.DatabaseType {
	case DatabaseMemory:
	case DatabaseMongo, DatabasePostgres:
		if c.DatabaseURL == "" {
			return fmt.Errorf("database_url is required when using %s", c.DatabaseType)
		}
	default:
		return fmt.Errorf("database_type must be 'memory', 'mongo' or 'postgres', got: %s", c.DatabaseType)
	}

	switch c.StorageType {
	case StorageMemory:
	case StorageFS:
		if c.UploadDir == "" {
			return errors.New("upload directory is required when using fs storage")
		}
	case StorageS3:
		if c.S3.Bucket == "" {
			return errors.New("s3 bucket is required when using s3 storage")
		}
		if c.S3.AccessKeyID == "" || c.S3.SecretAccessKey == "" {
			return errors.New("s3 access key id and secret access key are required when using s3 storage")
		}
	default:
		return fmt.Errorf("storage_type must be 'memory', 'fs' or 's3', got: %s", c.StorageType)
	}

	if c.UploadMaxBytes <= 0 {
		return errors.New("upload max bytes must be positive")
	}
	if c.BcryptCost < bcrypt.DefaultCost || c.BcryptCost > bcrypt.MaxCost {
		return fmt.Errorf("bcrypt cost must be between %d and %d, got: %d", bcrypt.DefaultCost, bcrypt.MaxCost, c.BcryptCost)
	}
	if c.RequireAuth && c.JWTSecret == "" {
		return errors.New("jwt secret is required when auth is required")
	}
	if c.JWTTTL <= 0 {
		return errors.New("jwt ttl must be positive")
	}
	if c.LoginRateLimit < 0 {
		return errors.New("login rate limit cannot be negative")
	}
	if c.AvatarMaxDimension < 0 {
		return errors.New("avatar max dimension cannot be negative")
	}
	if !slices.Contains([]string{objectkey.StrategyUUID, objectkey.StrategyTimestamp, objectkey.StrategySharded}, c.ObjectKeyStrategy) {
		return fmt.Errorf("unknown object key strategy: %s", c.ObjectKeyStrategy)
	}

	return nil
}

// IsProduction reports whether the server runs in production mode
func (c *ServerConfig) IsProduction() bool {
	return c.Environment == "production"
}

// Built holds everything Build wires together. Close releases the
// persistence backend.
type Built struct {
	Service    cms.Service
	Repository cms.Repository
	BlobStore  cms.BlobStore
	// StaticDir is the directory served under StaticPrefix; empty unless
	// storage is on local disk.
	StaticDir    string
	StaticPrefix string
}

// Close releases the repository connection
func (b *Built) Close(ctx context.Context) error {
	return b.Repository.Close(ctx)
}

// Build connects the configured backends and creates the service.
// Postgres migrations and Mongo indexes are applied before returning.
func (c *ServerConfig) Build(ctx context.Context, logger *slog.Logger) (*Built, error) {
	if logger == nil {
		logger = slog.Default()
	}

	repo, err := c.buildRepository(ctx, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to build repository: %w", err)
	}

	built := &Built{Repository: repo}
	store, err := c.buildStorageBackend(built)
	if err != nil {
		_ = repo.Close(ctx)
		return nil, fmt.Errorf("failed to build storage backend %s: %w", c.StorageType, err)
	}
	built.BlobStore = store

	options, err := c.serviceOptions(logger)
	if err != nil {
		_ = repo.Close(ctx)
		return nil, err
	}
	options = append(options, cms.WithRepository(repo), cms.WithBlobStore(store))

	svc, err := cms.New(options...)
	if err != nil {
		_ = repo.Close(ctx)
		return nil, err
	}
	built.Service = svc
	return built, nil
}

// BuildService creates a Service instance from the server configuration
func (c *ServerConfig) BuildService(ctx context.Context) (cms.Service, error) {
	built, err := c.Build(ctx, nil)
	if err != nil {
		return nil, err
	}
	return built.Service, nil
}

func (c *ServerConfig) serviceOptions(logger *slog.Logger) ([]cms.Option, error) {
	keys, err := objectkey.New(c.ObjectKeyStrategy)
	if err != nil {
		return nil, err
	}

	options := []cms.Option{
		cms.WithLogger(logger),
		cms.WithPasswordCost(c.BcryptCost),
		cms.WithKeyGenerator(keys),
	}

	// Set up event sink
	if c.EnableEventLogging {
		options = append(options, cms.WithEventSink(cms.NewLoggingEventSink(logger)))
	}

	if c.AvatarMaxDimension > 0 {
		options = append(options, cms.WithAvatarProcessor(imageproc.NewResizer(c.AvatarMaxDimension)))
	}

	return options, nil
}

// buildRepository creates a Repository based on the configuration
func (c *ServerConfig) buildRepository(ctx context.Context, logger *slog.Logger) (cms.Repository, error) {
	switch c.DatabaseType {
	case DatabaseMemory:
		return memoryrepo.New(), nil

	case DatabaseMongo:
		repo, err := mongorepo.Connect(ctx, c.DatabaseURL, c.DatabaseName)
		if err != nil {
			return nil, err
		}
		if err := repo.EnsureIndexes(ctx); err != nil {
			_ = repo.Close(ctx)
			return nil, fmt.Errorf("failed to ensure indexes: %w", err)
		}
		return repo, nil

	case DatabasePostgres:
		if err := repopg.Migrate(c.DatabaseURL, logger); err != nil {
			return nil, err
		}
		return repopg.Connect(ctx, c.DatabaseURL)

	default:
		return nil, fmt.Errorf("unsupported database type: %s", c.DatabaseType)
	}
}

// buildStorageBackend creates a BlobStore based on the configuration
func (c *ServerConfig) buildStorageBackend(built *Built) (cms.BlobStore, error) {
	switch c.StorageType {
	case StorageMemory:
		return memorystorage.New(), nil

	case StorageFS:
		backend, err := fsstorage.New(fsstorage.Config{
			BaseDir:   c.UploadDir,
			URLPrefix: c.URLPrefix,
		})
		if err != nil {
			return nil, err
		}
		built.StaticDir = backend.BaseDir()
		built.StaticPrefix = backend.URLPrefix()
		return backend, nil

	case StorageS3:
		return s3storage.New(s3storage.Config{
			Region:                 c.S3.Region,
			Bucket:                 c.S3.Bucket,
			AccessKeyID:            c.S3.AccessKeyID,
			SecretAccessKey:        c.S3.SecretAccessKey,
			Endpoint:               c.S3.Endpoint,
			UsePathStyle:           c.S3.UsePathStyle,
			KeyPrefix:              c.S3.KeyPrefix,
			PublicBaseURL:          c.S3.PublicBaseURL,
			PublicRead:             c.S3.PublicRead,
			EnableSSE:              c.S3.EnableSSE,
			SSEAlgorithm:           c.S3.SSEAlgorithm,
			SSEKMSKeyID:            c.S3.SSEKMSKeyID,
			CreateBucketIfNotExist: c.S3.CreateBucket,
		})

	default:
		return nil, fmt.Errorf("unsupported storage backend type: %s", c.StorageType)
	}
}
