package blob

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/birthapp/birthapp-go/internal/apperr"
	"github.com/birthapp/birthapp-go/internal/model"
	"github.com/birthapp/birthapp-go/internal/snapshot"
)

const (
	vercelTimeout = 30 * time.Second

	// DefaultVercelAPIURL is the write endpoint of the Vercel Blob REST API.
	DefaultVercelAPIURL = "https://blob.vercel-storage.com"
)

// VercelConfig locates the records document in a Vercel Blob store.
type VercelConfig struct {
	BaseURL string // public bucket URL used for reads
	APIURL  string // API host used for writes
	Token   string
	Key     string
}

// Vercel reads the document from the bucket URL and overwrites it in place
// through the API host, keeping a stable pathname.
type Vercel struct {
	cfg    VercelConfig
	client *http.Client
}

// NewVercel creates a Vercel store. BaseURL, Token and Key are required.
func NewVercel(cfg VercelConfig) (*Vercel, error) {
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	cfg.APIURL = strings.TrimRight(cfg.APIURL, "/")
	if cfg.APIURL == "" {
		cfg.APIURL = DefaultVercelAPIURL
	}
	if cfg.BaseURL == "" || cfg.Token == "" || cfg.Key == "" {
		return nil, apperr.NotConfigured("blob store (BLOB_BASE_URL, BLOB_READ_WRITE_TOKEN, BLOB_JSON_KEY)")
	}

	return &Vercel{
		cfg:    cfg,
		client: &http.Client{Timeout: vercelTimeout},
	}, nil
}

func (v *Vercel) Kind() string { return "vercel" }

func (v *Vercel) Get(ctx context.Context) ([]model.Record, bool, error) {
	target := v.cfg.BaseURL + "/" + url.PathEscape(v.cfg.Key)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, false, fmt.Errorf("building blob request: %w", err)
	}
	v.setHeaders(req)

	status, body, err := v.do(req, "get")
	if err != nil {
		return nil, false, err
	}

	switch status {
	case http.StatusOK:
		records, err := snapshot.DecodeJSON(body)
		if err != nil {
			return nil, false, &apperr.UpstreamError{Service: "blob", Op: "get", Status: status, Body: err.Error()}
		}
		return records, true, nil
	case http.StatusNotFound:
		return nil, false, nil
	default:
		return nil, false, &apperr.UpstreamError{Service: "blob", Op: "get", Status: status, Body: apperr.Truncate(body)}
	}
}

func (v *Vercel) Set(ctx context.Context, records []model.Record) error {
	payload, err := snapshot.EncodeJSON(records)
	if err != nil {
		return err
	}

	target := v.cfg.APIURL + "/" + url.PathEscape(v.cfg.Key)
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, target, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("building blob request: %w", err)
	}
	v.setHeaders(req)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-content-type", "application/json")
	req.Header.Set("x-add-random-suffix", "0")
	req.Header.Set("x-allow-overwrite", "1")
	req.Header.Set("x-cache-control-max-age", "0")

	status, body, err := v.do(req, "put")
	if err != nil {
		return err
	}
	if status != http.StatusOK && status != http.StatusCreated {
		return &apperr.UpstreamError{Service: "blob", Op: "put", Status: status, Body: apperr.Truncate(body)}
	}
	return nil
}

func (v *Vercel) setHeaders(req *http.Request) {
	req.Header.Set("Authorization", "Bearer "+v.cfg.Token)
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Cache-Control", "no-cache")
	req.Header.Set("User-Agent", "birthapp-go")
}

func (v *Vercel) do(req *http.Request, op string) (int, []byte, error) {
	resp, err := v.client.Do(req)
	if err != nil {
		return 0, nil, &apperr.NetworkError{Service: "blob", Op: op, Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 10<<20))
	if err != nil {
		return 0, nil, &apperr.NetworkError{Service: "blob", Op: op, Err: err}
	}
	return resp.StatusCode, body, nil
}
