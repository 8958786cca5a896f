package service

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/birthapp/birthapp-go/internal/blob"
	"github.com/birthapp/birthapp-go/internal/config"
	"github.com/birthapp/birthapp-go/internal/kv"
	"github.com/birthapp/birthapp-go/internal/model"
)

func TestRedact(t *testing.T) {
	assert.Equal(t, "<redacted:0>", Redact(""))
	assert.Equal(t, "<redacted:8>", Redact("12345678"))
	assert.Equal(t, "abcd…wxyz (len=26)", Redact("abcdefghijklmnopqrstuvwxyz"))
}

func TestHealthReportMemoryMode(t *testing.T) {
	cfg := config.Config{Env: "development", KVBackend: "auto", BlobBackend: "auto", AuthSecret: "super-secret-value"}
	svc := NewHealthService(cfg, blob.NewMemory(nil), kv.NewMemory())

	report := svc.Report(context.Background(), false)
	assert.True(t, report.OK)
	assert.Equal(t, "memory", report.Blob.Kind)
	assert.True(t, report.Blob.Configured)
	assert.Equal(t, "memory", report.KV.Kind)

	assert.False(t, report.GitHub.Configured)
	assert.Equal(t, []string{"GITHUB_REPO", "GITHUB_REPO_OWNER", "GITHUB_TOKEN"}, report.GitHub.Missing)

	assert.True(t, report.Auth.Configured)
	assert.Equal(t, "supe…alue (len=18)", report.Auth.Preview["AUTH_SECRET"])
	assert.False(t, report.Sync.Configured)
	assert.Nil(t, report.Blob.Probe)
}

func TestHealthReportNeverLeaksSecrets(t *testing.T) {
	cfg := config.Config{
		KVBackend:          "upstash",
		KVRestURL:          "https://kv.example",
		KVRestToken:        "kv-token-abcdefgh",
		BlobBackend:        "vercel",
		BlobBaseURL:        "https://blob.example",
		BlobReadWriteToken: "vercel_blob_rw_secret",
		GitHubToken:        "ghp_0123456789",
		AuthSecret:         "auth-secret-123",
	}
	svc := NewHealthService(cfg, blob.NewMemory(nil), kv.NewMemory())
	report := svc.Report(context.Background(), false)

	for _, g := range []HealthGroup{report.Blob, report.KV, report.GitHub, report.Auth, report.Sync} {
		for _, v := range g.Preview {
			for _, secret := range []string{cfg.KVRestToken, cfg.BlobReadWriteToken, cfg.GitHubToken, cfg.AuthSecret} {
				assert.False(t, strings.Contains(v, secret), "preview %q leaks a secret", v)
			}
		}
	}
	assert.Equal(t, "https://blob.example", report.Blob.Preview["BLOB_BASE_URL"])
}

func TestHealthProbe(t *testing.T) {
	cfg := config.Config{BlobBackend: "auto", KVBackend: "auto"}

	t.Run("reachable", func(t *testing.T) {
		store := &fakeBlob{found: true, records: []model.Record{ada}}
		report := NewHealthService(cfg, store, kv.NewMemory()).Report(context.Background(), true)

		require.NotNil(t, report.Blob.Probe)
		assert.True(t, report.OK)
		assert.True(t, report.Blob.Probe.Reachable)
		assert.True(t, report.Blob.Probe.Found)
		assert.Equal(t, 1, report.Blob.Probe.Count)
	})

	t.Run("unreachable", func(t *testing.T) {
		store := &fakeBlob{getErr: errors.New("dial tcp: refused")}
		report := NewHealthService(cfg, store, kv.NewMemory()).Report(context.Background(), true)

		require.NotNil(t, report.Blob.Probe)
		assert.False(t, report.OK)
		assert.False(t, report.Blob.Probe.Reachable)
		assert.Contains(t, report.Blob.Probe.Error, "refused")
	})
}
