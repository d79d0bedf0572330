package app

import (
	"fmt"
	"time"

	"github.com/spf13/viper"

	"katalog/pkg/imagehost"
)

// Config holds the application configuration, read from the environment.
type Config struct {
	Port     string
	Env      string
	LogLevel string

	// DatabaseDriver is one of postgres, sqlite or memory.
	DatabaseDriver string
	DatabaseDSN    string

	RedisURL string
	CacheTTL time.Duration

	RabbitMQURL string

	// ImageHost is one of cloudinary, local or none.
	ImageHost     string
	Cloudinary    imagehost.CloudinaryConfig
	UploadDir     string
	PublicBaseURL string
	MaxImageBytes int

	RequestTimeout time.Duration
	SeedProducts   bool
}

// SetDefaults registers the default configuration on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("APP_PORT", ":8080")
	v.SetDefault("APP_ENV", "development")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("DATABASE_DRIVER", "sqlite")
	v.SetDefault("DATABASE_DSN", "file:katalog.db?cache=shared")
	v.SetDefault("REDIS_URL", "")
	v.SetDefault("CACHE_TTL", "5m")
	v.SetDefault("RABBITMQ_URL", "")
	v.SetDefault("IMAGE_HOST", "none")
	v.SetDefault("CLOUDINARY_FOLDER", "e-commerce-products")
	v.SetDefault("UPLOAD_DIR", "./uploads")
	v.SetDefault("PUBLIC_BASE_URL", "http://localhost:8080")
	v.SetDefault("MAX_IMAGE_BYTES", 5<<20)
	v.SetDefault("REQUEST_TIMEOUT", "30s")
	v.SetDefault("SEED_PRODUCTS", false)
}

// LoadConfig reads the configuration from v, which should already have
// defaults and environment binding set up.
func LoadConfig(v *viper.Viper) (Config, error) {
	cfg := Config{
		Port:           v.GetString("APP_PORT"),
		Env:            v.GetString("APP_ENV"),
		LogLevel:       v.GetString("LOG_LEVEL"),
		DatabaseDriver: v.GetString("DATABASE_DRIVER"),
		DatabaseDSN:    v.GetString("DATABASE_DSN"),
		RedisURL:       v.GetString("REDIS_URL"),
		CacheTTL:       v.GetDuration("CACHE_TTL"),
		RabbitMQURL:    v.GetString("RABBITMQ_URL"),
		ImageHost:      v.GetString("IMAGE_HOST"),
		Cloudinary: imagehost.CloudinaryConfig{
			CloudName: v.GetString("CLOUDINARY_CLOUD_NAME"),
			APIKey:    v.GetString("CLOUDINARY_API_KEY"),
			APISecret: v.GetString("CLOUDINARY_API_SECRET"),
			Folder:    v.GetString("CLOUDINARY_FOLDER"),
			BaseURL:   v.GetString("CLOUDINARY_BASE_URL"),
		},
		UploadDir:      v.GetString("UPLOAD_DIR"),
		PublicBaseURL:  v.GetString("PUBLIC_BASE_URL"),
		MaxImageBytes:  v.GetInt("MAX_IMAGE_BYTES"),
		RequestTimeout: v.GetDuration("REQUEST_TIMEOUT"),
		SeedProducts:   v.GetBool("SEED_PRODUCTS"),
	}
	return cfg, cfg.validate()
}

func (c Config) validate() error {
	switch c.DatabaseDriver {
	case "postgres", "sqlite":
		if c.DatabaseDSN == "" {
			return fmt.Errorf("DATABASE_DSN is required for driver %s", c.DatabaseDriver)
		}
	case "memory":
	default:
		return fmt.Errorf("unknown DATABASE_DRIVER %q", c.DatabaseDriver)
	}

	switch c.ImageHost {
	case "cloudinary":
		if c.Cloudinary.CloudName == "" || c.Cloudinary.APIKey == "" || c.Cloudinary.APISecret == "" {
			return fmt.Errorf("CLOUDINARY_CLOUD_NAME, CLOUDINARY_API_KEY and CLOUDINARY_API_SECRET are required")
		}
	case "local", "none":
	default:
		return fmt.Errorf("unknown IMAGE_HOST %q", c.ImageHost)
	}

	if c.MaxImageBytes <= 0 {
		return fmt.Errorf("MAX_IMAGE_BYTES must be positive")
	}
	return nil
}
