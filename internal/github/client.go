// Package github fetches issue records from the GitHub REST API.
package github

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/starford/hooktriage/internal/credential"
	"github.com/starford/hooktriage/internal/models"
)

// apiVersion pins the REST API version header.
const apiVersion = "2022-11-28"

// DefaultBaseURL is the public GitHub API root.
const DefaultBaseURL = "https://api.github.com"

// maxResponseBytes caps how much of a response body is read.
const maxResponseBytes = 10 << 20

// Config holds configuration for a Client.
type Config struct {
	// BaseURL defaults to DefaultBaseURL. Must use HTTPS.
	BaseURL string
	Owner   string
	Repo    string

	// Tokens supplies the bearer token. Nil or an empty token sends
	// unauthenticated requests.
	Tokens credential.Source

	// HTTPClient defaults to http.DefaultClient.
	HTTPClient *http.Client

	// Logger defaults to slog.Default().
	Logger *slog.Logger
}

// Client fetches issues from one repository. It performs no retries.
type Client struct {
	baseURL    string
	owner      string
	repo       string
	tokens     credential.Source
	httpClient *http.Client
	logger     *slog.Logger
}

// NewClient validates config and returns a Client.
func NewClient(config Config) (*Client, error) {
	baseURL := strings.TrimRight(config.BaseURL, "/")
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if !strings.HasPrefix(baseURL, "https://") {
		return nil, fmt.Errorf("github: API client requires HTTPS (got %q)", baseURL)
	}
	if config.Owner == "" || config.Repo == "" {
		return nil, fmt.Errorf("github: owner and repo are required")
	}

	httpClient := config.HTTPClient
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	tokens := config.Tokens
	if tokens == nil {
		tokens = credential.Static("")
	}
	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Client{
		baseURL:    baseURL,
		owner:      config.Owner,
		repo:       config.Repo,
		tokens:     tokens,
		httpClient: httpClient,
		logger:     logger,
	}, nil
}

// APIError is a non-2xx response from the API.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("github: HTTP %d: %s", e.StatusCode, e.Message)
}

// IsNotFound reports whether err is a 404 response.
func IsNotFound(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusNotFound
}

type label struct {
	Name string `json:"name"`
}

type issue struct {
	Number  int     `json:"number"`
	Title   string  `json:"title"`
	Body    *string `json:"body"`
	HTMLURL string  `json:"html_url"`
	Labels  []label `json:"labels"`
}

// FetchIssue retrieves issue number and converts it to an IssueRecord.
// Label order follows the API response.
func (c *Client) FetchIssue(ctx context.Context, number int) (*models.IssueRecord, error) {
	path := fmt.Sprintf("/repos/%s/%s/issues/%d", c.owner, c.repo, number)

	var raw issue
	if err := c.get(ctx, path, &raw); err != nil {
		return nil, fmt.Errorf("getting issue %s/%s#%d: %w", c.owner, c.repo, number, err)
	}

	rec := &models.IssueRecord{
		Number:  raw.Number,
		Title:   raw.Title,
		HTMLURL: raw.HTMLURL,
		Labels:  make([]string, 0, len(raw.Labels)),
	}
	if raw.Body != nil {
		rec.Body = *raw.Body
	}
	for _, l := range raw.Labels {
		rec.Labels = append(rec.Labels, l.Name)
	}
	if err := rec.Validate(); err != nil {
		return nil, fmt.Errorf("github: issue %d: %w", number, err)
	}
	return rec, nil
}

func (c *Client) get(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("github: building request: %w", err)
	}
	req.Header.Set("Accept", "application/vnd.github+json")
	req.Header.Set("X-GitHub-Api-Version", apiVersion)

	token, err := c.tokens.Token(ctx)
	if err != nil {
		return fmt.Errorf("github: resolving token: %w", err)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("github: GET %s: %w", path, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return fmt.Errorf("github: reading response body: %w", err)
	}

	c.logger.Debug("github request",
		slog.String("path", path),
		slog.Int("status", resp.StatusCode))

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return parseAPIError(resp.StatusCode, body)
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("github: decoding response: %w", err)
	}
	return nil
}

func parseAPIError(status int, body []byte) *APIError {
	apiErr := &APIError{StatusCode: status}
	var payload struct {
		Message string `json:"message"`
	}
	if json.Unmarshal(body, &payload) == nil && payload.Message != "" {
		apiErr.Message = payload.Message
	} else {
		apiErr.Message = strings.TrimSpace(string(body))
	}
	if apiErr.Message == "" {
		apiErr.Message = http.StatusText(status)
	}
	return apiErr
}
