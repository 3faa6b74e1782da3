package config

import (
	"errors"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// ErrMissingDatabaseURI is returned by RequireDatabase when no connection string is configured.
// The server cannot run without it.
var ErrMissingDatabaseURI = errors.New("configuration error: database.uri (DATABASE_URI or MONGODB_URI) is required")

// Config holds all configuration for the application.
// The values are read by Viper from a config file or environment variables.
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	S3       S3Config       `mapstructure:"s3"`
	Upload   UploadConfig   `mapstructure:"upload"`
	Registry RegistryConfig `mapstructure:"registry"`
	AI       AIConfig       `mapstructure:"ai"`
	Log      LogConfig      `mapstructure:"log"`
}

type ServerConfig struct {
	Address         string        `mapstructure:"address"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	IdleTimeout     time.Duration `mapstructure:"idle_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// DatabaseConfig carries the MongoDB connection string and pool knobs.
type DatabaseConfig struct {
	URI             string        `mapstructure:"uri"`
	Name            string        `mapstructure:"name"`
	MaxPoolSize     uint64        `mapstructure:"max_pool_size"`
	MinPoolSize     uint64        `mapstructure:"min_pool_size"`
	MaxConnIdleTime time.Duration `mapstructure:"max_conn_idle_time"`
	ConnectTimeout  time.Duration `mapstructure:"connect_timeout"`
}

type S3Config struct {
	Endpoint        string `mapstructure:"endpoint"`
	Region          string `mapstructure:"region"`
	AccessKeyID     string `mapstructure:"access_key_id"`
	SecretAccessKey string `mapstructure:"secret_access_key"`
	BucketName      string `mapstructure:"bucket_name"`
	UsePathStyle    bool   `mapstructure:"use_path_style"`
	// PublicBaseURL, when set, is used to build fetch URLs instead of presigned GETs
	// (e.g. a CDN or a public-read bucket).
	PublicBaseURL   string        `mapstructure:"public_base_url"`
	FetchURLExpiry  time.Duration `mapstructure:"fetch_url_expiry"`
	UploadURLExpiry time.Duration `mapstructure:"upload_url_expiry"`
}

// UploadConfig drives the upload validator on both the server and the uploader CLI.
type UploadConfig struct {
	AllowedTypes    []string `mapstructure:"allowed_types"`
	MaxSizeBytes    int64    `mapstructure:"max_size_bytes"`
	OwnerCollection string   `mapstructure:"owner_collection"`
}

// RegistryConfig is used by the registry client (uploader CLI).
type RegistryConfig struct {
	BaseURL  string        `mapstructure:"base_url"`
	Timeout  time.Duration `mapstructure:"timeout"`
	RetryMax int           `mapstructure:"retry_max"`
}

type AIConfig struct {
	APIKey          string        `mapstructure:"api_key"`
	BaseURL         string        `mapstructure:"base_url"`
	Model           string        `mapstructure:"model"`
	MaxTokens       int           `mapstructure:"max_tokens"`
	Timeout         time.Duration `mapstructure:"timeout"`
	CacheSize       int           `mapstructure:"cache_size"`
	CacheTTL        time.Duration `mapstructure:"cache_ttl"`
	BulkLimit       int           `mapstructure:"bulk_limit"`
	BulkConcurrency int           `mapstructure:"bulk_concurrency"`
}

// Enabled reports whether AI endpoints can reach a provider.
func (c AIConfig) Enabled() bool {
	return c.APIKey != ""
}

type LogConfig struct {
	Level       string `mapstructure:"level"`
	Development bool   `mapstructure:"development"`
}

// RequireDatabase checks that a metadata store connection string is present.
func (c Config) RequireDatabase() error {
	if strings.TrimSpace(c.Database.URI) == "" {
		return ErrMissingDatabaseURI
	}
	return nil
}

// LoadConfig reads configuration from file or environment variables.
func LoadConfig(path string) (config Config, err error) {
	v := viper.New()
	v.AddConfigPath(path)
	v.SetConfigName("config")
	v.SetConfigType("yaml")

	// server.address -> SERVER_ADDRESS, s3.bucket_name -> S3_BUCKET_NAME
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(`.`, `_`))
	// Legacy names from the first deployments.
	_ = v.BindEnv("database.uri", "DATABASE_URI", "MONGODB_URI")
	_ = v.BindEnv("ai.api_key", "AI_API_KEY", "CLAUDE_API_KEY")

	setDefaults(v)

	err = v.ReadInConfig()
	if _, ok := err.(viper.ConfigFileNotFoundError); ok {
		err = nil
	} else if err != nil {
		return
	}

	if err = v.Unmarshal(&config); err != nil {
		return
	}

	if config.Server.Address == "" {
		config.Server.Address = ":3000"
		if port := v.GetString("port"); port != "" {
			config.Server.Address = ":" + port
		}
	}

	return config, nil
}

func setDefaults(v *viper.Viper) {
	// Every key needs a default (even empty) so that Unmarshal sees env overrides.
	v.SetDefault("server.address", "")
	v.SetDefault("server.read_timeout", "30s")
	v.SetDefault("server.write_timeout", "60s")
	v.SetDefault("server.idle_timeout", "120s")
	v.SetDefault("server.shutdown_timeout", "10s")

	v.SetDefault("database.uri", "")
	v.SetDefault("database.name", "domex")
	v.SetDefault("database.max_pool_size", 50)
	v.SetDefault("database.min_pool_size", 0)
	v.SetDefault("database.max_conn_idle_time", "5m")
	v.SetDefault("database.connect_timeout", "10s")

	v.SetDefault("s3.endpoint", "")
	v.SetDefault("s3.region", "us-east-1")
	v.SetDefault("s3.access_key_id", "")
	v.SetDefault("s3.secret_access_key", "")
	v.SetDefault("s3.bucket_name", "")
	v.SetDefault("s3.public_base_url", "")
	v.SetDefault("s3.use_path_style", true)
	v.SetDefault("s3.fetch_url_expiry", "168h") // presigned GET max (7 days)
	v.SetDefault("s3.upload_url_expiry", "15m")

	v.SetDefault("upload.allowed_types", []string{"image/*", "application/pdf"})
	v.SetDefault("upload.max_size_bytes", 10*1024*1024)
	v.SetDefault("upload.owner_collection", "domains")

	v.SetDefault("registry.base_url", "http://localhost:3000")
	v.SetDefault("registry.timeout", "30s")
	v.SetDefault("registry.retry_max", 3)

	v.SetDefault("ai.api_key", "")
	v.SetDefault("ai.base_url", "https://api.anthropic.com")
	v.SetDefault("ai.model", "claude-3-haiku-20240307")
	v.SetDefault("ai.max_tokens", 1024)
	v.SetDefault("ai.timeout", "60s")
	v.SetDefault("ai.cache_size", 256)
	v.SetDefault("ai.cache_ttl", "1h")
	v.SetDefault("ai.bulk_limit", 10)
	v.SetDefault("ai.bulk_concurrency", 4)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.development", false)
}
