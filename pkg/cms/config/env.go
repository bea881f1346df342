package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"

	"github.com/ilyakaznacheev/cleanenv"
)

// WithEnv applies environment variable overrides. Variables that are unset
// leave the current value alone.
//
// Server:
//
//	PORT - Server port (default: "3000")
//	ENVIRONMENT - Runtime environment (default: "development")
//	LOG_LEVEL - debug, info, warn or error (default: "info")
//
// Database:
//
//	DATABASE_URL - Connection string, one of:
//	               - "memory" - In-memory database (default)
//	               - "mongodb://..." or "mongodb+srv://..." - MongoDB
//	               - "postgres://..." or "postgresql://..." - Postgres JSONB tables
//	DATABASE_NAME - MongoDB database name (default: "cms")
//
// Storage:
//
//	STORAGE_URL - Storage connection string, one of:
//	              - "file://public/uploads" - Local disk (default)
//	              - "s3://bucket?region=us-east-1&endpoint=http://localhost:9000" - S3 media host
//	              - "memory://" - In-memory storage
//	PUBLIC_URL_PREFIX - Path local uploads are served under (default: "/uploads")
//	S3_* / AWS_* - Credentials and options for the media host
//
// The remaining variables are documented on ServerConfig's env tags.
func WithEnv() Option {
	return func(c *ServerConfig) error {
		if err := cleanenv.ReadEnv(c); err != nil {
			return fmt.Errorf("failed to read environment: %w", err)
		}

		// Database config
		if err := applyDatabaseEnv(c); err != nil {
			return err
		}

		// Storage config
		if err := applyStorageEnv(c); err != nil {
			return err
		}

		return nil
	}
}

// EnvUsage returns a description of every variable WithEnv reads
func EnvUsage() (string, error) {
	cfg := defaults()
	return cleanenv.GetDescription(&cfg, nil)
}

// applyDatabaseEnv applies database configuration from environment
func applyDatabaseEnv(c *ServerConfig) error {
	dbURL, hasURL := os.LookupEnv("DATABASE_URL")
	if !hasURL || dbURL == "" {
		return nil
	}

	// Auto-detect database type from URL
	switch {
	case dbURL == "memory":
		c.DatabaseType = DatabaseMemory
		c.DatabaseURL = ""
	case strings.HasPrefix(dbURL, "mongodb://"), strings.HasPrefix(dbURL, "mongodb+srv://"):
		c.DatabaseType = DatabaseMongo
		c.DatabaseURL = dbURL
	case strings.HasPrefix(dbURL, "postgres://"), strings.HasPrefix(dbURL, "postgresql://"):
		c.DatabaseType = DatabasePostgres
		c.DatabaseURL = dbURL
	default:
		return fmt.Errorf("unsupported DATABASE_URL format: %s (use 'memory', 'mongodb://...' or 'postgresql://...')", dbURL)
	}

	return nil
}

// applyStorageEnv applies storage configuration from environment
func applyStorageEnv(c *ServerConfig) error {
	storageURL, hasURL := os.LookupEnv("STORAGE_URL")
	if !hasURL || storageURL == "" {
		return nil
	}

	switch {
	case storageURL == "memory" || storageURL == "memory://":
		c.StorageType = StorageMemory
		return nil
	case strings.HasPrefix(storageURL, "file://"):
		return applyFilesystemStorage(storageURL, c)
	case strings.HasPrefix(storageURL, "s3://"):
		return applyS3Storage(storageURL, c)
	}

	return fmt.Errorf("unsupported STORAGE_URL format: %s (use 'memory://', 'file://...', or 's3://...')", storageURL)
}

// applyFilesystemStorage configures filesystem storage from URL
// Format: file://relative/dir or file:///absolute/dir
func applyFilesystemStorage(rawURL string, c *ServerConfig) error {
	path := strings.TrimPrefix(rawURL, "file://")
	if path == "" {
		return fmt.Errorf("filesystem path cannot be empty in STORAGE_URL")
	}

	c.StorageType = StorageFS
	c.UploadDir = path
	return nil
}

// applyS3Storage configures S3 storage from URL
// Format: s3://bucket?region=us-east-1&endpoint=http://localhost:9000&path_style=true&public_url=https://cdn.example.com
func applyS3Storage(rawURL string, c *ServerConfig) error {
	u, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("invalid STORAGE_URL: %w", err)
	}
	if u.Host == "" {
		return fmt.Errorf("S3 bucket name cannot be empty in STORAGE_URL")
	}

	c.StorageType = StorageS3
	c.S3.Bucket = u.Host
	if prefix := strings.Trim(u.Path, "/"); prefix != "" {
		c.S3.KeyPrefix = prefix
	}

	query := u.Query()
	if v := query.Get("region"); v != "" {
		c.S3.Region = v
	}
	if v := query.Get("endpoint"); v != "" {
		c.S3.Endpoint = v
	}
	if v := query.Get("public_url"); v != "" {
		c.S3.PublicBaseURL = v
	}
	if v := query.Get("path_style"); v != "" {
		pathStyle, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("invalid path_style in STORAGE_URL: %w", err)
		}
		c.S3.UsePathStyle = pathStyle
	}

	return nil
}
