/*
Package github stores blobs as files in a GitHub repository through the
contents API.

VERSION TAG:
  The file's git blob SHA. GitHub's PUT accepts the SHA the caller last saw
  and refuses the write if the file moved on, which is exactly the
  compare-and-swap generic.BlobStore needs.

  GET  /repos/{owner}/{repo}/contents/{path}?ref={branch}
  PUT  /repos/{owner}/{repo}/contents/{path}  {message, content, branch, sha?}

STATUS MAPPING:
  GET 404            -> ErrNotFound
  PUT 409, 422       -> ErrConflict (stale sha, or sha missing on create)
  401, 403, 429, 5xx -> ErrUnavailable
  transport errors   -> ErrUnavailable

Outbound calls go through a token-bucket limiter so a burst of sessions
does not exhaust the token's secondary rate limit.
*/
package github

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/warp/leave-register/generic"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// DefaultAPIURL is the public GitHub API.
const DefaultAPIURL = "https://api.github.com"

// Config locates the repository.
type Config struct {
	APIURL        string
	Owner         string
	Repo          string
	Branch        string
	Token         string
	RatePerSecond float64
	HTTPClient    *http.Client
	Logger        *zap.Logger
}

// Store implements generic.BlobStore on a GitHub repository.
type Store struct {
	cfg     Config
	client  *http.Client
	limiter *rate.Limiter
	logger  *zap.Logger
}

// New validates cfg and returns a store.
func New(cfg Config) (*Store, error) {
	if cfg.Owner == "" || cfg.Repo == "" {
		return nil, fmt.Errorf("%w: github store needs owner and repo", generic.ErrInvalidInput)
	}
	if cfg.APIURL == "" {
		cfg.APIURL = DefaultAPIURL
	}
	cfg.APIURL = strings.TrimRight(cfg.APIURL, "/")
	if cfg.Branch == "" {
		cfg.Branch = "main"
	}

	client := cfg.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: 15 * time.Second}
	}
	limit := rate.Inf
	if cfg.RatePerSecond > 0 {
		limit = rate.Limit(cfg.RatePerSecond)
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Store{
		cfg:     cfg,
		client:  client,
		limiter: rate.NewLimiter(limit, 5),
		logger:  logger,
	}, nil
}

type contentResponse struct {
	SHA      string `json:"sha"`
	Content  string `json:"content"`
	Encoding string `json:"encoding"`
}

type putRequest struct {
	Message string `json:"message"`
	Content string `json:"content"`
	Branch  string `json:"branch"`
	SHA     string `json:"sha,omitempty"`
}

type putResponse struct {
	Content struct {
		SHA string `json:"sha"`
	} `json:"content"`
}

// =============================================================================
// BLOB STORE
// =============================================================================

// Get fetches the file at path on the configured branch.
func (s *Store) Get(ctx context.Context, path string) (generic.Blob, error) {
	endpoint := s.contentsURL(path) + "?ref=" + url.QueryEscape(s.cfg.Branch)
	resp, err := s.do(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return generic.Blob{}, generic.UnavailableError("get", path, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return generic.Blob{}, generic.NotFoundError(path)
	case resp.StatusCode != http.StatusOK:
		return generic.Blob{}, generic.UnavailableError("get", path, statusError(resp))
	}

	var body contentResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return generic.Blob{}, generic.UnavailableError("get", path, err)
	}
	if body.Encoding != "" && body.Encoding != "base64" {
		return generic.Blob{}, generic.UnavailableError("get", path, fmt.Errorf("unsupported encoding %q", body.Encoding))
	}
	// GitHub wraps base64 at 60 columns.
	content, err := base64.StdEncoding.DecodeString(strings.ReplaceAll(body.Content, "\n", ""))
	if err != nil {
		return generic.Blob{}, generic.UnavailableError("get", path, err)
	}

	return generic.Blob{Path: path, Content: content, Version: generic.Version(body.SHA)}, nil
}

// Put commits content to path. An empty expected omits the sha, which
// GitHub rejects when the file already exists.
func (s *Store) Put(ctx context.Context, path string, content []byte, expected generic.Version) (generic.Version, error) {
	req := putRequest{
		Message: "update " + path,
		Content: base64.StdEncoding.EncodeToString(content),
		Branch:  s.cfg.Branch,
		SHA:     string(expected),
	}
	payload, err := json.Marshal(req)
	if err != nil {
		return "", fmt.Errorf("failed to encode commit: %w", err)
	}

	resp, err := s.do(ctx, http.MethodPut, s.contentsURL(path), payload)
	if err != nil {
		return "", generic.UnavailableError("put", path, err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK, http.StatusCreated:
	case http.StatusConflict, http.StatusUnprocessableEntity:
		s.logger.Info("github write rejected",
			zap.String("path", path),
			zap.String("expected", string(expected)),
			zap.Int("status", resp.StatusCode))
		return "", generic.StaleVersionError(path, expected)
	default:
		return "", generic.UnavailableError("put", path, statusError(resp))
	}

	var body putResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return "", generic.UnavailableError("put", path, err)
	}
	if body.Content.SHA == "" {
		return "", generic.UnavailableError("put", path, fmt.Errorf("response carries no sha"))
	}
	return generic.Version(body.Content.SHA), nil
}

// =============================================================================
// HTTP
// =============================================================================

func (s *Store) contentsURL(path string) string {
	segments := strings.Split(path, "/")
	for i, seg := range segments {
		segments[i] = url.PathEscape(seg)
	}
	return fmt.Sprintf("%s/repos/%s/%s/contents/%s",
		s.cfg.APIURL, url.PathEscape(s.cfg.Owner), url.PathEscape(s.cfg.Repo), strings.Join(segments, "/"))
}

func (s *Store) do(ctx context.Context, method, endpoint string, body []byte) (*http.Response, error) {
	if err := s.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/vnd.github+json")
	req.Header.Set("X-GitHub-Api-Version", "2022-11-28")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if s.cfg.Token != "" {
		req.Header.Set("Authorization", "Bearer "+s.cfg.Token)
	}
	return s.client.Do(req)
}

func statusError(resp *http.Response) error {
	msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
	return fmt.Errorf("github returned %d: %s", resp.StatusCode, strings.TrimSpace(string(msg)))
}
