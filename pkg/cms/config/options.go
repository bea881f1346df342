package config

import (
	"fmt"
	"time"
)

// WithPort sets the server port
func WithPort(port string) Option {
	return func(c *ServerConfig) error {
		if port == "" {
			return fmt.Errorf("port cannot be empty")
		}
		c.Port = port
		return nil
	}
}

// WithEnvironment sets the environment (development, production, testing)
func WithEnvironment(env string) Option {
	return func(c *ServerConfig) error {
		if env == "" {
			return fmt.Errorf("environment cannot be empty")
		}
		c.Environment = env
		return nil
	}
}

// WithLogLevel sets the minimum log level (debug, info, warn, error)
func WithLogLevel(level string) Option {
	return func(c *ServerConfig) error {
		if _, err := ParseLevel(level); err != nil {
			return err
		}
		c.LogLevel = level
		return nil
	}
}

// WithDatabase configures the database backend
func WithDatabase(dbType, url string) Option {
	return func(c *ServerConfig) error {
		switch dbType {
		case DatabaseMemory:
		case DatabaseMongo, DatabasePostgres:
			if url == "" {
				return fmt.Errorf("database URL is required for %s", dbType)
			}
		default:
			return fmt.Errorf("database type must be 'memory', 'mongo' or 'postgres', got: %s", dbType)
		}
		c.DatabaseType = dbType
		c.DatabaseURL = url
		return nil
	}
}

// WithDatabaseName sets the Mongo database name
func WithDatabaseName(name string) Option {
	return func(c *ServerConfig) error {
		if name == "" {
			return fmt.Errorf("database name cannot be empty")
		}
		c.DatabaseName = name
		return nil
	}
}

// WithFilesystemStorage stores uploads under baseDir, served under urlPrefix.
// An empty urlPrefix keeps the current one.
func WithFilesystemStorage(baseDir, urlPrefix string) Option {
	return func(c *ServerConfig) error {
		if baseDir == "" {
			return fmt.Errorf("filesystem base directory cannot be empty")
		}
		c.StorageType = StorageFS
		c.UploadDir = baseDir
		if urlPrefix != "" {
			c.URLPrefix = urlPrefix
		}
		return nil
	}
}

// WithS3Storage sends uploads to an S3 bucket
func WithS3Storage(bucket, region string) Option {
	return func(c *ServerConfig) error {
		if bucket == "" {
			return fmt.Errorf("S3 bucket cannot be empty")
		}
		if region == "" {
			region = "us-east-1" // Default region
		}
		c.StorageType = StorageS3
		c.S3.Bucket = bucket
		c.S3.Region = region
		return nil
	}
}

// WithS3Credentials sets AWS credentials for S3 storage
func WithS3Credentials(accessKeyID, secretAccessKey string) Option {
	return func(c *ServerConfig) error {
		c.S3.AccessKeyID = accessKeyID
		c.S3.SecretAccessKey = secretAccessKey
		return nil
	}
}

// WithS3Endpoint sets a custom S3 endpoint (for MinIO, LocalStack, etc.)
func WithS3Endpoint(endpoint string, usePathStyle bool) Option {
	return func(c *ServerConfig) error {
		c.S3.Endpoint = endpoint
		c.S3.UsePathStyle = usePathStyle
		return nil
	}
}

// WithS3PublicBaseURL sets the origin stored media is linked under
func WithS3PublicBaseURL(baseURL string) Option {
	return func(c *ServerConfig) error {
		c.S3.PublicBaseURL = baseURL
		return nil
	}
}

// WithMemoryStorage keeps uploads in memory (for testing)
func WithMemoryStorage() Option {
	return func(c *ServerConfig) error {
		c.StorageType = StorageMemory
		return nil
	}
}

// WithUploadMaxBytes limits the size of upload request bodies
func WithUploadMaxBytes(n int64) Option {
	return func(c *ServerConfig) error {
		if n <= 0 {
			return fmt.Errorf("upload max bytes must be positive, got: %d", n)
		}
		c.UploadMaxBytes = n
		return nil
	}
}

// WithBcryptCost sets the cost used for new password hashes
func WithBcryptCost(cost int) Option {
	return func(c *ServerConfig) error {
		c.BcryptCost = cost
		return nil
	}
}

// WithJWT enables token issuance on login
func WithJWT(secret string, ttl time.Duration) Option {
	return func(c *ServerConfig) error {
		if secret == "" {
			return fmt.Errorf("jwt secret cannot be empty")
		}
		c.JWTSecret = secret
		if ttl > 0 {
			c.JWTTTL = ttl
		}
		return nil
	}
}

// WithRequireAuth enables or disables bearer token checks on the API
func WithRequireAuth(enabled bool) Option {
	return func(c *ServerConfig) error {
		c.RequireAuth = enabled
		return nil
	}
}

// WithLoginRateLimit sets the login attempts allowed per minute per client IP.
// Zero disables the limit.
func WithLoginRateLimit(perMinute int) Option {
	return func(c *ServerConfig) error {
		if perMinute < 0 {
			return fmt.Errorf("login rate limit cannot be negative, got: %d", perMinute)
		}
		c.LoginRateLimit = perMinute
		return nil
	}
}

// WithCORSOrigins sets the origins allowed to call the API from a browser
func WithCORSOrigins(origins ...string) Option {
	return func(c *ServerConfig) error {
		c.CORSAllowedOrigins = origins
		return nil
	}
}

// WithAvatarMaxDimension bounds profile pictures to size x size pixels.
// Zero stores avatars as uploaded.
func WithAvatarMaxDimension(size int) Option {
	return func(c *ServerConfig) error {
		if size < 0 {
			return fmt.Errorf("avatar max dimension cannot be negative, got: %d", size)
		}
		c.AvatarMaxDimension = size
		return nil
	}
}

// WithObjectKeyStrategy sets how stored file names are generated
// Valid values: "uuid", "timestamp", "sharded"
func WithObjectKeyStrategy(strategy string) Option {
	return func(c *ServerConfig) error {
		c.ObjectKeyStrategy = strategy
		return nil
	}
}

// WithLegacyPasswordMigration hashes plaintext passwords at startup
func WithLegacyPasswordMigration(enabled bool) Option {
	return func(c *ServerConfig) error {
		c.MigrateLegacyPasswords = enabled
		return nil
	}
}

// WithEventLogging enables or disables event logging
func WithEventLogging(enabled bool) Option {
	return func(c *ServerConfig) error {
		c.EnableEventLogging = enabled
		return nil
	}
}
