// Package github reads the records snapshot from a repository and proposes
// changes to it as pull requests.
package github

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/birthapp/birthapp-go/internal/apperr"
	"github.com/birthapp/birthapp-go/internal/model"
	"github.com/birthapp/birthapp-go/internal/snapshot"
)

const (
	DefaultAPIURL       = "https://api.github.com"
	DefaultRawURL       = "https://raw.githubusercontent.com"
	DefaultBranch       = "main"
	DefaultPath         = "birthdays.json"
	DefaultBranchPrefix = "update-birthdays"

	apiVersion     = "2022-11-28"
	requestTimeout = 30 * time.Second
	branchRetries  = 5
)

// Config identifies the repository file that mirrors the live collection.
type Config struct {
	Token        string
	Owner        string
	Repo         string
	Branch       string
	Path         string
	APIURL       string
	RawURL       string
	BranchPrefix string
}

// Configured reports whether token, owner and repo are all set.
func (c Config) Configured() bool {
	return c.Token != "" && c.Owner != "" && c.Repo != ""
}

// Missing lists the environment variables still needed.
func (c Config) Missing() []string {
	var missing []string
	if c.Token == "" {
		missing = append(missing, "GITHUB_TOKEN")
	}
	if c.Owner == "" {
		missing = append(missing, "GITHUB_REPO_OWNER")
	}
	if c.Repo == "" {
		missing = append(missing, "GITHUB_REPO")
	}
	return missing
}

// PullRequest is the result of a proposed change.
type PullRequest struct {
	Number int    `json:"number"`
	URL    string `json:"html_url"`
	Branch string `json:"-"`
}

// Client talks to the GitHub REST API. A Client with incomplete configuration
// can still be constructed; every call then fails with apperr.ErrNotConfigured.
type Client struct {
	cfg    Config
	client *http.Client
	now    func() time.Time
}

func NewClient(cfg Config) *Client {
	if cfg.Branch == "" {
		cfg.Branch = DefaultBranch
	}
	if cfg.Path == "" {
		cfg.Path = DefaultPath
	}
	if cfg.APIURL == "" {
		cfg.APIURL = DefaultAPIURL
	}
	if cfg.RawURL == "" {
		cfg.RawURL = DefaultRawURL
	}
	if cfg.BranchPrefix == "" {
		cfg.BranchPrefix = DefaultBranchPrefix
	}
	cfg.APIURL = strings.TrimRight(cfg.APIURL, "/")
	cfg.RawURL = strings.TrimRight(cfg.RawURL, "/")
	cfg.Path = strings.TrimLeft(cfg.Path, "/")

	return &Client{
		cfg:    cfg,
		client: &http.Client{Timeout: requestTimeout},
		now:    time.Now,
	}
}

// Config returns the normalized configuration.
func (c *Client) Config() Config { return c.cfg }

func (c *Client) check() error {
	if !c.cfg.Configured() {
		return apperr.NotConfigured("github (" + strings.Join(c.cfg.Missing(), ", ") + ")")
	}
	return nil
}

// ReadSnapshot fetches the file from the base branch. A missing file is an
// empty collection.
func (c *Client) ReadSnapshot(ctx context.Context) ([]model.Record, error) {
	if err := c.check(); err != nil {
		return nil, err
	}

	target := fmt.Sprintf("%s/%s/%s/%s/%s", c.cfg.RawURL, c.cfg.Owner, c.cfg.Repo, c.cfg.Branch, escapePath(c.cfg.Path))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, fmt.Errorf("building snapshot request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.cfg.Token)
	req.Header.Set("User-Agent", "birthapp-go")
	req.Header.Set("Cache-Control", "no-cache")

	status, body, err := c.send(req, "read snapshot")
	if err != nil {
		return nil, err
	}

	switch status {
	case http.StatusOK:
	case http.StatusNotFound:
		return []model.Record{}, nil
	default:
		return nil, &apperr.UpstreamError{Service: "github", Op: "read snapshot", Status: status, Body: apperr.Truncate(body)}
	}

	records, err := snapshot.Decode(body, snapshot.FormatForPath(c.cfg.Path))
	if err != nil {
		return nil, &apperr.UpstreamError{Service: "github", Op: "read snapshot", Status: status, Body: err.Error()}
	}
	return records, nil
}

// ProposeChange writes records to a fresh branch and opens a pull request
// against the base branch. A failure at any step aborts; partially created
// branches are left in place.
func (c *Client) ProposeChange(ctx context.Context, records []model.Record, title string) (*PullRequest, error) {
	if err := c.check(); err != nil {
		return nil, err
	}

	content, err := snapshot.Encode(records, snapshot.FormatForPath(c.cfg.Path))
	if err != nil {
		return nil, fmt.Errorf("encoding snapshot: %w", err)
	}

	baseSHA, err := c.baseSHA(ctx)
	if err != nil {
		return nil, err
	}

	branch, err := c.createBranch(ctx, baseSHA)
	if err != nil {
		return nil, err
	}

	fileSHA, err := c.fileSHA(ctx, branch)
	if err != nil {
		return nil, err
	}

	if err := c.putFile(ctx, branch, fileSHA, title, content); err != nil {
		return nil, err
	}

	pr, err := c.openPull(ctx, branch, title)
	if err != nil {
		return nil, err
	}

	slog.Info("opened pull request", "number", pr.Number, "url", pr.URL, "branch", branch)
	return pr, nil
}

func (c *Client) baseSHA(ctx context.Context) (string, error) {
	var ref struct {
		Object struct {
			SHA string `json:"sha"`
		} `json:"object"`
	}

	status, body, err := c.api(ctx, http.MethodGet, c.repoPath("/git/ref/heads/"+escapePath(c.cfg.Branch)), nil, "get base ref")
	if err != nil {
		return "", err
	}
	if status != http.StatusOK {
		return "", &apperr.UpstreamError{Service: "github", Op: "get base ref", Status: status, Body: apperr.Truncate(body)}
	}
	if err := json.Unmarshal(body, &ref); err != nil || ref.Object.SHA == "" {
		return "", &apperr.UpstreamError{Service: "github", Op: "get base ref", Status: status, Body: "missing object sha"}
	}
	return ref.Object.SHA, nil
}

// createBranch creates {prefix}-{timestamp}, adding -1..-5 suffixes while the
// name is taken.
func (c *Client) createBranch(ctx context.Context, sha string) (string, error) {
	base := fmt.Sprintf("%s-%s", c.cfg.BranchPrefix, c.now().UTC().Format("20060102150405"))

	for attempt := 0; attempt <= branchRetries; attempt++ {
		branch := base
		if attempt > 0 {
			branch = fmt.Sprintf("%s-%d", base, attempt)
		}

		payload := map[string]string{"ref": "refs/heads/" + branch, "sha": sha}
		status, body, err := c.api(ctx, http.MethodPost, c.repoPath("/git/refs"), payload, "create branch")
		if err != nil {
			return "", err
		}

		switch status {
		case http.StatusCreated, http.StatusOK:
			return branch, nil
		case http.StatusUnprocessableEntity:
			slog.Debug("branch name taken, retrying", "branch", branch)
			continue
		default:
			return "", &apperr.UpstreamError{Service: "github", Op: "create branch", Status: status, Body: apperr.Truncate(body)}
		}
	}

	return "", fmt.Errorf("create branch %s: no free name after %d attempts: %w", base, branchRetries+1, apperr.ErrConflict)
}

func (c *Client) fileSHA(ctx context.Context, branch string) (string, error) {
	path := c.repoPath("/contents/"+escapePath(c.cfg.Path)) + "?ref=" + url.QueryEscape(branch)
	status, body, err := c.api(ctx, http.MethodGet, path, nil, "get file")
	if err != nil {
		return "", err
	}

	switch status {
	case http.StatusOK:
		var file struct {
			SHA string `json:"sha"`
		}
		if err := json.Unmarshal(body, &file); err != nil {
			return "", &apperr.UpstreamError{Service: "github", Op: "get file", Status: status, Body: err.Error()}
		}
		return file.SHA, nil
	case http.StatusNotFound:
		return "", nil
	default:
		return "", &apperr.UpstreamError{Service: "github", Op: "get file", Status: status, Body: apperr.Truncate(body)}
	}
}

func (c *Client) putFile(ctx context.Context, branch, sha, message string, content []byte) error {
	payload := map[string]string{
		"message": message,
		"content": base64.StdEncoding.EncodeToString(content),
		"branch":  branch,
	}
	if sha != "" {
		payload["sha"] = sha
	}

	status, body, err := c.api(ctx, http.MethodPut, c.repoPath("/contents/"+escapePath(c.cfg.Path)), payload, "update file")
	if err != nil {
		return err
	}
	if status != http.StatusOK && status != http.StatusCreated {
		return &apperr.UpstreamError{Service: "github", Op: "update file", Status: status, Body: apperr.Truncate(body)}
	}
	return nil
}

func (c *Client) openPull(ctx context.Context, branch, title string) (*PullRequest, error) {
	payload := map[string]string{
		"title": title,
		"head":  branch,
		"base":  c.cfg.Branch,
		"body":  "Automated update of " + c.cfg.Path + ".",
	}

	status, body, err := c.api(ctx, http.MethodPost, c.repoPath("/pulls"), payload, "open pull request")
	if err != nil {
		return nil, err
	}
	if status != http.StatusCreated && status != http.StatusOK {
		return nil, &apperr.UpstreamError{Service: "github", Op: "open pull request", Status: status, Body: apperr.Truncate(body)}
	}

	var pr PullRequest
	if err := json.Unmarshal(body, &pr); err != nil {
		return nil, &apperr.UpstreamError{Service: "github", Op: "open pull request", Status: status, Body: err.Error()}
	}
	pr.Branch = branch
	return &pr, nil
}

func (c *Client) repoPath(suffix string) string {
	return fmt.Sprintf("/repos/%s/%s%s", url.PathEscape(c.cfg.Owner), url.PathEscape(c.cfg.Repo), suffix)
}

func (c *Client) api(ctx context.Context, method, path string, payload any, op string) (int, []byte, error) {
	var reader io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return 0, nil, fmt.Errorf("encoding %s request: %w", op, err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.cfg.APIURL+path, reader)
	if err != nil {
		return 0, nil, fmt.Errorf("building %s request: %w", op, err)
	}
	req.Header.Set("Authorization", "Bearer "+c.cfg.Token)
	req.Header.Set("Accept", "application/vnd.github+json")
	req.Header.Set("X-GitHub-Api-Version", apiVersion)
	req.Header.Set("User-Agent", "birthapp-go")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	return c.send(req, op)
}

func (c *Client) send(req *http.Request, op string) (int, []byte, error) {
	resp, err := c.client.Do(req)
	if err != nil {
		return 0, nil, &apperr.NetworkError{Service: "github", Op: op, Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 10<<20))
	if err != nil {
		return 0, nil, &apperr.NetworkError{Service: "github", Op: op, Err: err}
	}
	return resp.StatusCode, body, nil
}

// escapePath escapes each segment of a slash-separated path.
func escapePath(p string) string {
	parts := strings.Split(p, "/")
	for i, part := range parts {
		parts[i] = url.PathEscape(part)
	}
	return strings.Join(parts, "/")
}
