package identity

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

// GoTrueVerifier verifies tokens by asking a GoTrue-compatible auth service
// for the user behind them (GET /auth/v1/user)
type GoTrueVerifier struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

// GoTrueOption configures a GoTrueVerifier
type GoTrueOption func(*GoTrueVerifier)

// WithHTTPClient sets a custom HTTP client
func WithHTTPClient(client *http.Client) GoTrueOption {
	return func(v *GoTrueVerifier) {
		v.httpClient = client
	}
}

// NewGoTrueVerifier creates a verifier for the auth service at baseURL.
// apiKey is sent as the apikey header the gateway in front of GoTrue expects.
func NewGoTrueVerifier(baseURL, apiKey string, opts ...GoTrueOption) *GoTrueVerifier {
	v := &GoTrueVerifier{
		baseURL: baseURL,
		apiKey:  apiKey,
		httpClient: &http.Client{
			Timeout:   10 * time.Second,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
	}

	for _, opt := range opts {
		opt(v)
	}

	return v
}

type goTrueUser struct {
	ID    string `json:"id"`
	Email string `json:"email"`
}

// Verify resolves token to the identity the auth service reports for it
func (v *GoTrueVerifier) Verify(ctx context.Context, token string) (*Identity, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, v.baseURL+"/auth/v1/user", nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Authorization", bearerPrefix+token)
	req.Header.Set("apikey", v.apiKey)
	req.Header.Set("Accept", "application/json")

	resp, err := v.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("auth service request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("failed to read auth service response: %w", err)
	}

	switch {
	case resp.StatusCode == http.StatusOK:
	case resp.StatusCode == http.StatusBadRequest,
		resp.StatusCode == http.StatusUnauthorized,
		resp.StatusCode == http.StatusForbidden,
		resp.StatusCode == http.StatusNotFound,
		resp.StatusCode == http.StatusUnprocessableEntity:
		return nil, fmt.Errorf("%w: auth service returned %d", ErrInvalidCredential, resp.StatusCode)
	default:
		return nil, fmt.Errorf("auth service returned HTTP %d: %s", resp.StatusCode, truncate(body, 200))
	}

	var user goTrueUser
	if err := json.Unmarshal(body, &user); err != nil {
		return nil, fmt.Errorf("failed to decode auth service user: %w", err)
	}

	if user.ID == "" {
		return nil, fmt.Errorf("%w: auth service returned no user", ErrInvalidCredential)
	}

	return &Identity{UserID: user.ID, Email: user.Email}, nil
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}
