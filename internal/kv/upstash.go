package kv

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/birthapp/birthapp-go/internal/apperr"
)

const upstashTimeout = 20 * time.Second

// Upstash talks to a Redis-compatible REST endpoint. Commands are posted as a
// JSON array to the base URL and answered with {"result": ...} or {"error": ...}.
type Upstash struct {
	baseURL string
	token   string
	client  *http.Client
}

// NewUpstash creates an Upstash store. Both url and token are required.
func NewUpstash(url, token string) (*Upstash, error) {
	url = strings.TrimRight(url, "/")
	if url == "" || token == "" {
		return nil, apperr.NotConfigured("kv store (KV_REST_API_URL, KV_REST_API_TOKEN)")
	}
	return &Upstash{
		baseURL: url,
		token:   token,
		client:  &http.Client{Timeout: upstashTimeout},
	}, nil
}

type upstashResponse struct {
	Result json.RawMessage `json:"result"`
	Error  string          `json:"error"`
}

func (u *Upstash) Get(ctx context.Context, key string) (string, bool, error) {
	return u.stringCommand(ctx, "GET", key)
}

func (u *Upstash) Set(ctx context.Context, key, value string) error {
	res, err := u.do(ctx, "SET", key, value)
	if err != nil {
		return err
	}

	var status string
	if err := json.Unmarshal(res, &status); err != nil || !strings.EqualFold(status, "OK") {
		return &apperr.UpstreamError{Service: "kv", Op: "SET", Body: apperr.Truncate(res)}
	}
	return nil
}

func (u *Upstash) Del(ctx context.Context, key string) (int, error) {
	res, err := u.do(ctx, "DEL", key)
	if err != nil {
		return 0, err
	}

	var n int
	if err := json.Unmarshal(res, &n); err != nil {
		return 0, &apperr.UpstreamError{Service: "kv", Op: "DEL", Body: apperr.Truncate(res)}
	}
	return n, nil
}

func (u *Upstash) GetDel(ctx context.Context, key string) (string, bool, error) {
	return u.stringCommand(ctx, "GETDEL", key)
}

func (u *Upstash) Kind() string { return "upstash" }

func (u *Upstash) stringCommand(ctx context.Context, cmd, key string) (string, bool, error) {
	res, err := u.do(ctx, cmd, key)
	if err != nil {
		return "", false, err
	}
	if len(res) == 0 || string(res) == "null" {
		return "", false, nil
	}

	var v string
	if err := json.Unmarshal(res, &v); err != nil {
		return "", false, &apperr.UpstreamError{Service: "kv", Op: cmd, Body: apperr.Truncate(res)}
	}
	return v, true, nil
}

func (u *Upstash) do(ctx context.Context, args ...string) (json.RawMessage, error) {
	body, err := json.Marshal(args)
	if err != nil {
		return nil, err
	}

	op := args[0]
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u.baseURL, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("building kv request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+u.token)
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", "birthapp-go")

	resp, err := u.client.Do(req)
	if err != nil {
		return nil, &apperr.NetworkError{Service: "kv", Op: op, Err: err}
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 10<<20))
	if err != nil {
		return nil, &apperr.NetworkError{Service: "kv", Op: op, Err: err}
	}

	if resp.StatusCode != http.StatusOK {
		return nil, &apperr.UpstreamError{Service: "kv", Op: op, Status: resp.StatusCode, Body: apperr.Truncate(data)}
	}

	var out upstashResponse
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, &apperr.UpstreamError{Service: "kv", Op: op, Status: resp.StatusCode, Body: apperr.Truncate(data)}
	}
	if out.Error != "" {
		return nil, &apperr.UpstreamError{Service: "kv", Op: op, Status: resp.StatusCode, Body: out.Error}
	}
	return out.Result, nil
}
