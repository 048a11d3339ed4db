package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"

	"github.com/hszk-dev/gotube/internal/domain/repository"
)

type Config struct {
	Server      ServerConfig
	Worker      WorkerConfig
	Database    DatabaseConfig
	Storage     StorageConfig
	MinIO       MinIOConfig
	S3          S3Config
	Redis       RedisConfig
	RabbitMQ    RabbitMQConfig
	Collections CollectionsConfig
	Profile     ProfileConfig
}

type ServerConfig struct {
	Port            int           `envconfig:"API_PORT" default:"8080"`
	ReadTimeout     time.Duration `envconfig:"API_READ_TIMEOUT" default:"10s"`
	WriteTimeout    time.Duration `envconfig:"API_WRITE_TIMEOUT" default:"5m"`
	ShutdownTimeout time.Duration `envconfig:"API_SHUTDOWN_TIMEOUT" default:"10s"`
	MaxUploadBytes  int64         `envconfig:"API_MAX_UPLOAD_BYTES" default:"2147483648"`
}

type WorkerConfig struct {
	MaxRetries      int           `envconfig:"WORKER_MAX_RETRIES" default:"5"`
	ShutdownTimeout time.Duration `envconfig:"WORKER_SHUTDOWN_TIMEOUT" default:"30s"`
}

type DatabaseConfig struct {
	// Backend selects the document store: postgres or memory.
	Backend  string `envconfig:"DOCUMENT_STORE" default:"postgres"`
	Host     string `envconfig:"POSTGRES_HOST" default:"localhost"`
	Port     int    `envconfig:"POSTGRES_PORT" default:"5432"`
	User     string `envconfig:"POSTGRES_USER" default:"gotube"`
	Password string `envconfig:"POSTGRES_PASSWORD" default:"gotube"`
	DBName   string `envconfig:"POSTGRES_DB" default:"gotube"`
	SSLMode  string `envconfig:"POSTGRES_SSLMODE" default:"disable"`
}

func (c DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.User, c.Password, c.Host, c.Port, c.DBName, c.SSLMode,
	)
}

type StorageConfig struct {
	// Backend selects the blob store: minio, s3 or memory.
	Backend string `envconfig:"BLOB_STORE" default:"minio"`
	Bucket  string `envconfig:"STORAGE_BUCKET" default:"media"`

	// PublicBaseURL prefixes asset locators. It must point at this API's /v1 root
	// so locators resolve through the storage view route.
	PublicBaseURL string `envconfig:"PUBLIC_BASE_URL" default:"http://localhost:8080/v1"`
}

type MinIOConfig struct {
	Endpoint  string `envconfig:"MINIO_ENDPOINT" default:"localhost:9000"`
	AccessKey string `envconfig:"MINIO_ACCESS_KEY" default:"minioadmin"`
	SecretKey string `envconfig:"MINIO_SECRET_KEY" default:"minioadmin"`
	UseSSL    bool   `envconfig:"MINIO_USE_SSL" default:"false"`
}

type S3Config struct {
	Region          string `envconfig:"S3_REGION" default:"us-east-1"`
	Endpoint        string `envconfig:"S3_ENDPOINT"`
	AccessKeyID     string `envconfig:"S3_ACCESS_KEY_ID"`
	SecretAccessKey string `envconfig:"S3_SECRET_ACCESS_KEY"`
	UsePathStyle    bool   `envconfig:"S3_USE_PATH_STYLE" default:"false"`
}

type RedisConfig struct {
	Host       string        `envconfig:"REDIS_HOST" default:"localhost"`
	Port       int           `envconfig:"REDIS_PORT" default:"6379"`
	Password   string        `envconfig:"REDIS_PASSWORD"`
	DB         int           `envconfig:"REDIS_DB" default:"0"`
	SessionTTL time.Duration `envconfig:"SESSION_TTL" default:"24h"`
}

func (c RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

type RabbitMQConfig struct {
	// Enabled turns on out-of-band cleanup of assets whose delete failed.
	Enabled  bool   `envconfig:"CLEANUP_QUEUE_ENABLED" default:"true"`
	Host     string `envconfig:"RABBITMQ_HOST" default:"localhost"`
	Port     int    `envconfig:"RABBITMQ_PORT" default:"5672"`
	User     string `envconfig:"RABBITMQ_USER" default:"gotube"`
	Password string `envconfig:"RABBITMQ_PASSWORD" default:"gotube"`
	VHost    string `envconfig:"RABBITMQ_VHOST" default:"/"`
}

func (c RabbitMQConfig) URL() string {
	return fmt.Sprintf(
		"amqp://%s:%s@%s:%d%s",
		c.User, c.Password, c.Host, c.Port, c.VHost,
	)
}

type CollectionsConfig struct {
	Videos        string `envconfig:"COLLECTION_VIDEOS" default:"videos"`
	Profiles      string `envconfig:"COLLECTION_PROFILES" default:"profiles"`
	Likes         string `envconfig:"COLLECTION_LIKES" default:"likes"`
	Bookmarks     string `envconfig:"COLLECTION_BOOKMARKS" default:"bookmarks"`
	Subscriptions string `envconfig:"COLLECTION_SUBSCRIPTIONS" default:"subscriptions"`
	Comments      string `envconfig:"COLLECTION_COMMENTS" default:"comments"`
}

// Names converts the configured names to repository.Collections.
func (c CollectionsConfig) Names() repository.Collections {
	return repository.Collections{
		Videos:        c.Videos,
		Profiles:      c.Profiles,
		Likes:         c.Likes,
		Bookmarks:     c.Bookmarks,
		Subscriptions: c.Subscriptions,
		Comments:      c.Comments,
	}
}

type ProfileConfig struct {
	// InitialsAvatarURL receives the url-escaped display name appended.
	InitialsAvatarURL string `envconfig:"INITIALS_AVATAR_URL" default:"https://ui-avatars.com/api/?name="`
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks the backend selectors.
func (c *Config) Validate() error {
	switch strings.ToLower(c.Database.Backend) {
	case "postgres", "memory":
	default:
		return fmt.Errorf("invalid DOCUMENT_STORE %q: want postgres or memory", c.Database.Backend)
	}

	switch strings.ToLower(c.Storage.Backend) {
	case "minio", "s3", "memory":
	default:
		return fmt.Errorf("invalid BLOB_STORE %q: want minio, s3 or memory", c.Storage.Backend)
	}

	if c.Storage.Bucket == "" {
		return fmt.Errorf("STORAGE_BUCKET must not be empty")
	}
	if c.Worker.MaxRetries < 0 {
		return fmt.Errorf("WORKER_MAX_RETRIES must not be negative")
	}
	return nil
}
