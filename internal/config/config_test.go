package config

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("ENV", "development")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, 14*24*time.Hour, cfg.TokenTTL())
	assert.True(t, cfg.CookieSecure)
	assert.Equal(t, "birthdays.json", cfg.BlobJSONKey)
	assert.Equal(t, "main", cfg.GitHubBranch)
	assert.Equal(t, "update-birthdays", cfg.GitHubBranchPrefix)
}

func TestLoadGitHubTokenFallback(t *testing.T) {
	t.Setenv("GITHUB_TOKEN", "")
	t.Setenv("BIRTHDAY_APP_EDIT_CSV_TOKEN", "legacy")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "legacy", cfg.GitHubToken)

	t.Setenv("GITHUB_TOKEN", "primary")
	cfg, err = Load()
	require.NoError(t, err)
	assert.Equal(t, "primary", cfg.GitHubToken)
}

func TestLoadProductionRequiresSecret(t *testing.T) {
	t.Setenv("ENV", "production")
	t.Setenv("AUTH_SECRET", "")

	_, err := Load()
	assert.True(t, errors.Is(err, ErrMissingAuthSecret))

	t.Setenv("AUTH_SECRET", "s3cret")
	_, err = Load()
	assert.NoError(t, err)
}

func TestLoadRejectsBadValues(t *testing.T) {
	t.Run("unknown kv backend", func(t *testing.T) {
		t.Setenv("KV_BACKEND", "redis")
		_, err := Load()
		assert.ErrorContains(t, err, "KV_BACKEND")
	})

	t.Run("unknown blob backend", func(t *testing.T) {
		t.Setenv("BLOB_BACKEND", "ftp")
		_, err := Load()
		assert.ErrorContains(t, err, "BLOB_BACKEND")
	})

	t.Run("non-numeric ttl", func(t *testing.T) {
		t.Setenv("AUTH_TOKEN_TTL_SECONDS", "soon")
		_, err := Load()
		assert.ErrorContains(t, err, "parse env")
	})

	t.Run("zero ttl", func(t *testing.T) {
		t.Setenv("AUTH_TOKEN_TTL_SECONDS", "0")
		_, err := Load()
		assert.ErrorContains(t, err, "AUTH_TOKEN_TTL_SECONDS")
	})
}

func TestResolveKVBackend(t *testing.T) {
	tests := []struct {
		name string
		cfg  Config
		want string
	}{
		{"explicit", Config{KVBackend: BackendMySQL}, BackendMySQL},
		{"auto upstash", Config{KVBackend: BackendAuto, KVRestURL: "https://kv", KVRestToken: "t"}, BackendUpstash},
		{"auto upstash needs token", Config{KVBackend: BackendAuto, KVRestURL: "https://kv"}, BackendMemory},
		{"auto mysql", Config{KVBackend: BackendAuto, DatabaseDSN: "user@tcp(db)/app"}, BackendMySQL},
		{"auto memory", Config{KVBackend: BackendAuto}, BackendMemory},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.cfg.ResolveKVBackend())
		})
	}
}

func TestResolveBlobBackend(t *testing.T) {
	assert.Equal(t, BackendS3, Config{BlobBackend: BackendS3}.ResolveBlobBackend())
	assert.Equal(t, BackendVercel, Config{BlobBackend: BackendAuto, BlobBaseURL: "https://b", BlobReadWriteToken: "t"}.ResolveBlobBackend())
	assert.Equal(t, BackendMemory, Config{BlobBackend: BackendAuto, BlobBaseURL: "https://b"}.ResolveBlobBackend())
}
