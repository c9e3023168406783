// Package client is a Go SDK for the question-api HTTP API.
package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/examprep/question-api/internal/models"
)

// ErrUnauthorized is matched by APIError values with a 401 status
var ErrUnauthorized = errors.New("unauthorized")

// Client is a Go SDK for question-api
type Client struct {
	baseURL     string
	accessToken string
	httpClient  *http.Client
}

// Option configures the client
type Option func(*Client)

// WithHTTPClient sets a custom HTTP client
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		c.httpClient = client
	}
}

// WithTimeout sets the client timeout
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		c.httpClient.Timeout = timeout
	}
}

// NewClient creates a client. accessToken is the caller's bearer token from
// the identity provider; it may be empty for Health.
func NewClient(baseURL, accessToken string, opts ...Option) *Client {
	c := &Client{
		baseURL:     strings.TrimRight(baseURL, "/"),
		accessToken: accessToken,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// APIError is a non-2xx response
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("HTTP %d: %s", e.StatusCode, e.Message)
}

// Is reports 401 responses as ErrUnauthorized
func (e *APIError) Is(target error) bool {
	return target == ErrUnauthorized && e.StatusCode == http.StatusUnauthorized
}

// HealthStatus is the body of a successful health check
type HealthStatus struct {
	Status    string `json:"status"`
	Store     string `json:"store"`
	Timestamp string `json:"timestamp"`
}

// ListOptions filters a question listing. Zero values are omitted.
type ListOptions struct {
	Level    models.Level
	Theme    string
	Language string
	Limit    int
}

// QuestionList is the body of a successful question listing
type QuestionList struct {
	Questions []models.QuestionView `json:"questions"`
	Count     int                   `json:"count"`
	UserTier  models.Tier           `json:"userTier"`
}

// Health checks if the service and its content store are reachable
func (c *Client) Health(ctx context.Context) (*HealthStatus, error) {
	var status HealthStatus
	if err := c.get(ctx, "/api/health", nil, &status); err != nil {
		return nil, err
	}
	return &status, nil
}

// ListQuestions lists the questions visible to the token's user
func (c *Client) ListQuestions(ctx context.Context, opts ListOptions) (*QuestionList, error) {
	params := url.Values{}
	if opts.Level != "" {
		params.Set("level", string(opts.Level))
	}
	if opts.Theme != "" {
		params.Set("theme", opts.Theme)
	}
	if opts.Language != "" {
		params.Set("language", opts.Language)
	}
	if opts.Limit > 0 {
		params.Set("limit", strconv.Itoa(opts.Limit))
	}

	var list QuestionList
	if err := c.get(ctx, "/api/questions", params, &list); err != nil {
		return nil, err
	}
	return &list, nil
}

func (c *Client) get(ctx context.Context, path string, params url.Values, out interface{}) error {
	target := c.baseURL + path
	if len(params) > 0 {
		target += "?" + params.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Accept", "application/json")
	if c.accessToken != "" {
		req.Header.Set("Authorization", "Bearer "+c.accessToken)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode >= 400 {
		return decodeAPIError(resp.StatusCode, body)
	}

	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("failed to unmarshal response: %w", err)
	}
	return nil
}

// decodeAPIError reads {"error": ...} or {"message": ...}, falling back to the raw body
func decodeAPIError(status int, body []byte) error {
	var payload struct {
		Error   string `json:"error"`
		Message string `json:"message"`
	}
	msg := strings.TrimSpace(string(body))
	if err := json.Unmarshal(body, &payload); err == nil {
		switch {
		case payload.Error != "":
			msg = payload.Error
		case payload.Message != "":
			msg = payload.Message
		}
	}
	return &APIError{StatusCode: status, Message: msg}
}
