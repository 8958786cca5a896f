package service

import (
	"context"
	"fmt"
	"maps"
	"slices"
	"time"

	"github.com/birthapp/birthapp-go/internal/blob"
	"github.com/birthapp/birthapp-go/internal/config"
	"github.com/birthapp/birthapp-go/internal/kv"
)

const probeTimeout = 10 * time.Second

// HealthGroup reports one dependency's configuration.
type HealthGroup struct {
	Configured bool              `json:"configured"`
	Missing    []string          `json:"missing,omitempty"`
	Kind       string            `json:"kind,omitempty"`
	Preview    map[string]string `json:"preview,omitempty"`
	Probe      *Probe            `json:"probe,omitempty"`
}

// Probe is the result of a live reachability check.
type Probe struct {
	Reachable bool   `json:"reachable"`
	Count     int    `json:"count"`
	Found     bool   `json:"found"`
	Error     string `json:"error,omitempty"`
}

// HealthReport is the diagnostics payload. Secrets only appear redacted.
type HealthReport struct {
	OK     bool        `json:"ok"`
	Env    string      `json:"env"`
	Blob   HealthGroup `json:"blob"`
	KV     HealthGroup `json:"kv"`
	GitHub HealthGroup `json:"github"`
	Auth   HealthGroup `json:"auth"`
	Sync   HealthGroup `json:"sync"`
}

// HealthService inspects configuration and, on request, the blob store.
type HealthService struct {
	cfg   config.Config
	store blob.Store
	kv    kv.Store
}

func NewHealthService(cfg config.Config, store blob.Store, kvStore kv.Store) *HealthService {
	return &HealthService{cfg: cfg, store: store, kv: kvStore}
}

// Report builds the diagnostics payload. With probe set it also reads the blob.
func (s *HealthService) Report(ctx context.Context, probe bool) HealthReport {
	c := s.cfg
	report := HealthReport{
		OK:     true,
		Env:    c.Env,
		Blob:   s.blobGroup(),
		KV:     s.kvGroup(),
		GitHub: group(map[string]string{"GITHUB_TOKEN": c.GitHubToken, "GITHUB_REPO_OWNER": c.GitHubOwner, "GITHUB_REPO": c.GitHubRepo}, "GITHUB_TOKEN"),
		Auth:   group(map[string]string{"AUTH_SECRET": c.AuthSecret}, "AUTH_SECRET"),
		Sync:   group(map[string]string{"BOOTSTRAP_TOKEN": c.BootstrapToken}, "BOOTSTRAP_TOKEN"),
	}

	if probe {
		report.Blob.Probe = s.probe(ctx)
		report.OK = report.Blob.Probe.Reachable
	}
	return report
}

func (s *HealthService) blobGroup() HealthGroup {
	c := s.cfg
	var g HealthGroup
	switch c.ResolveBlobBackend() {
	case config.BackendVercel:
		g = group(map[string]string{"BLOB_BASE_URL": c.BlobBaseURL, "BLOB_READ_WRITE_TOKEN": c.BlobReadWriteToken, "BLOB_JSON_KEY": c.BlobJSONKey}, "BLOB_READ_WRITE_TOKEN")
	case config.BackendS3:
		g = group(map[string]string{"S3_BUCKET": c.S3Bucket, "S3_ACCESS_KEY_ID": c.S3AccessKeyID, "S3_SECRET_ACCESS_KEY": c.S3SecretAccessKey, "BLOB_JSON_KEY": c.BlobJSONKey}, "S3_ACCESS_KEY_ID", "S3_SECRET_ACCESS_KEY")
	default:
		g = HealthGroup{Configured: true}
	}
	g.Kind = s.store.Kind()
	return g
}

func (s *HealthService) kvGroup() HealthGroup {
	c := s.cfg
	var g HealthGroup
	switch c.ResolveKVBackend() {
	case config.BackendUpstash:
		g = group(map[string]string{"KV_REST_API_URL": c.KVRestURL, "KV_REST_API_TOKEN": c.KVRestToken}, "KV_REST_API_TOKEN")
	case config.BackendMySQL:
		g = group(map[string]string{"DATABASE_DSN": c.DatabaseDSN}, "DATABASE_DSN")
	default:
		g = HealthGroup{Configured: true}
	}
	g.Kind = s.kv.Kind()
	return g
}

func (s *HealthService) probe(ctx context.Context) *Probe {
	ctx, cancel := context.WithTimeout(ctx, probeTimeout)
	defer cancel()

	records, found, err := s.store.Get(ctx)
	if err != nil {
		return &Probe{Error: err.Error()}
	}
	return &Probe{Reachable: true, Found: found, Count: len(records)}
}

// group marks every empty value as missing. Values named in secrets are
// previewed redacted, others verbatim.
func group(values map[string]string, secrets ...string) HealthGroup {
	g := HealthGroup{Configured: true, Preview: map[string]string{}}
	secret := make(map[string]bool, len(secrets))
	for _, name := range secrets {
		secret[name] = true
	}

	for _, name := range slices.Sorted(maps.Keys(values)) {
		v := values[name]
		if v == "" {
			g.Configured = false
			g.Missing = append(g.Missing, name)
			continue
		}
		if secret[name] {
			g.Preview[name] = Redact(v)
		} else {
			g.Preview[name] = v
		}
	}
	if len(g.Preview) == 0 {
		g.Preview = nil
	}
	return g
}

// Redact hides a secret, keeping only enough to tell two values apart.
func Redact(v string) string {
	n := len(v)
	if n <= 8 {
		return fmt.Sprintf("<redacted:%d>", n)
	}
	return fmt.Sprintf("%s…%s (len=%d)", v[:4], v[n-4:], n)
}
