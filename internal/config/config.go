package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
)

// Backend names accepted by KV_BACKEND and BLOB_BACKEND.
const (
	BackendAuto    = "auto"
	BackendMemory  = "memory"
	BackendUpstash = "upstash"
	BackendMySQL   = "mysql"
	BackendVercel  = "vercel"
	BackendS3      = "s3"
	BackendKV      = "kv"
)

var ErrMissingAuthSecret = errors.New("AUTH_SECRET must be set in production environment")

type Config struct {
	Port     string `env:"PORT" envDefault:"8080"`
	Env      string `env:"ENV" envDefault:"development"`
	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`

	AuthSecret           string `env:"AUTH_SECRET"`
	AuthTokenTTLSeconds  int    `env:"AUTH_TOKEN_TTL_SECONDS" envDefault:"1209600"`
	AdminInitialPassword string `env:"ADMIN_INITIAL_PASSWORD"`
	BootstrapToken       string `env:"BOOTSTRAP_TOKEN"`
	CookieSecure         bool   `env:"COOKIE_SECURE" envDefault:"true"`

	KVBackend   string `env:"KV_BACKEND" envDefault:"auto"`
	KVRestURL   string `env:"KV_REST_API_URL"`
	KVRestToken string `env:"KV_REST_API_TOKEN"`
	DatabaseDSN string `env:"DATABASE_DSN"`

	BlobBackend        string `env:"BLOB_BACKEND" envDefault:"auto"`
	BlobBaseURL        string `env:"BLOB_BASE_URL"`
	BlobAPIURL         string `env:"BLOB_API_URL" envDefault:"https://blob.vercel-storage.com"`
	BlobReadWriteToken string `env:"BLOB_READ_WRITE_TOKEN"`
	BlobJSONKey        string `env:"BLOB_JSON_KEY" envDefault:"birthdays.json"`
	LocalSnapshotPath  string `env:"LOCAL_SNAPSHOT_PATH" envDefault:"birthdays.json"`

	S3Bucket          string `env:"S3_BUCKET"`
	S3Region          string `env:"S3_REGION" envDefault:"us-east-1"`
	S3Endpoint        string `env:"S3_ENDPOINT"`
	S3AccessKeyID     string `env:"S3_ACCESS_KEY_ID"`
	S3SecretAccessKey string `env:"S3_SECRET_ACCESS_KEY"`

	GitHubToken        string `env:"GITHUB_TOKEN"`
	GitHubLegacyToken  string `env:"BIRTHDAY_APP_EDIT_CSV_TOKEN"`
	GitHubOwner        string `env:"GITHUB_REPO_OWNER"`
	GitHubRepo         string `env:"GITHUB_REPO"`
	GitHubBranch       string `env:"GITHUB_BRANCH" envDefault:"main"`
	GitHubPath         string `env:"GITHUB_JSON_FILE_PATH" envDefault:"birthdays.json"`
	GitHubAPIURL       string `env:"GITHUB_API_URL" envDefault:"https://api.github.com"`
	GitHubRawURL       string `env:"GITHUB_RAW_URL" envDefault:"https://raw.githubusercontent.com"`
	GitHubBranchPrefix string `env:"PR_BRANCH_PREFIX" envDefault:"update-birthdays"`
}

// Load parses the environment into a Config. The caller loads .env first.
func Load() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}

	if cfg.GitHubToken == "" {
		cfg.GitHubToken = cfg.GitHubLegacyToken
	}
	cfg.KVBackend = strings.ToLower(strings.TrimSpace(cfg.KVBackend))
	cfg.BlobBackend = strings.ToLower(strings.TrimSpace(cfg.BlobBackend))

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate rejects settings the server cannot start with.
func (c Config) Validate() error {
	if c.IsProduction() && c.AuthSecret == "" {
		return ErrMissingAuthSecret
	}

	switch c.KVBackend {
	case BackendAuto, BackendMemory, BackendUpstash, BackendMySQL:
	default:
		return fmt.Errorf("KV_BACKEND %q: want auto, memory, upstash or mysql", c.KVBackend)
	}

	switch c.BlobBackend {
	case BackendAuto, BackendMemory, BackendVercel, BackendS3, BackendKV:
	default:
		return fmt.Errorf("BLOB_BACKEND %q: want auto, memory, vercel, s3 or kv", c.BlobBackend)
	}

	if c.AuthTokenTTLSeconds <= 0 {
		return fmt.Errorf("AUTH_TOKEN_TTL_SECONDS must be positive, got %d", c.AuthTokenTTLSeconds)
	}
	return nil
}

func (c Config) IsProduction() bool {
	return strings.EqualFold(c.Env, "production")
}

func (c Config) TokenTTL() time.Duration {
	return time.Duration(c.AuthTokenTTLSeconds) * time.Second
}

// ResolveKVBackend turns "auto" into a concrete backend: upstash when its REST
// URL and token are set, mysql when a DSN is set, memory otherwise.
func (c Config) ResolveKVBackend() string {
	if c.KVBackend != BackendAuto && c.KVBackend != "" {
		return c.KVBackend
	}
	switch {
	case c.KVRestURL != "" && c.KVRestToken != "":
		return BackendUpstash
	case c.DatabaseDSN != "":
		return BackendMySQL
	default:
		return BackendMemory
	}
}

// ResolveBlobBackend turns "auto" into vercel when the bucket URL and token are
// set, memory otherwise.
func (c Config) ResolveBlobBackend() string {
	if c.BlobBackend != BackendAuto && c.BlobBackend != "" {
		return c.BlobBackend
	}
	if c.BlobBaseURL != "" && c.BlobReadWriteToken != "" {
		return BackendVercel
	}
	return BackendMemory
}
