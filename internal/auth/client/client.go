// Package client implements the credential exchange calls against the
// backend: password login and refresh-token exchange. Responses are
// normalized into a canonical TokenGrant before anything else sees them.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"planta-mantenimiento/client/internal/auth/domain"
)

// Sentinel errors; the session service maps them to its own error kinds.
var (
	// ErrRejected is returned when the backend refuses the presented
	// credentials (non-2xx status on login or refresh).
	ErrRejected = errors.New("credentials rejected")
	// ErrMalformedResponse is returned when a 2xx response cannot be
	// normalized into a usable grant (no token, or no resolvable user).
	ErrMalformedResponse = errors.New("malformed auth response")
)

// TokenGrant is the canonical outcome of a successful login or refresh.
// ExpiresAt is set when the server declared an absolute expiration;
// ExpiresIn when it declared a relative lifetime. User is nil when the
// refresh response omitted it.
type TokenGrant struct {
	Token        string
	RefreshToken string
	ExpiresIn    time.Duration
	ExpiresAt    *time.Time
	User         *domain.User
}

// Client performs the HTTP credential exchange against the backend.
type Client struct {
	baseURL string
	http    *http.Client
	logger  zerolog.Logger
	tracer  trace.Tracer
}

// New returns a Client talking to the backend at baseURL. httpClient may be
// nil to use a default client with a 15s timeout.
func New(baseURL string, httpClient *http.Client, logger zerolog.Logger) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 15 * time.Second}
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    httpClient,
		logger:  logger,
		tracer:  otel.Tracer("planta-mantenimiento/client/internal/auth/client"),
	}
}

// Login exchanges username/password for a token grant.
func (c *Client) Login(ctx context.Context, username, password string) (*TokenGrant, error) {
	ctx, span := c.tracer.Start(ctx, "auth.login",
		trace.WithAttributes(attribute.String("auth.username", username)))
	defer span.End()

	body := map[string]string{"username": username, "password": password}
	raw, err := c.post(ctx, "/auth/login", body)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	grant, err := normalizeGrant(raw, username, true)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	c.logger.Debug().Str("username", grant.User.Username).Str("role", string(grant.User.Role)).
		Msg("login accepted")
	return grant, nil
}

// Refresh exchanges a refresh token for a new token grant. The user field of
// the result is nil when the backend does not echo the user.
func (c *Client) Refresh(ctx context.Context, refreshToken string) (*TokenGrant, error) {
	ctx, span := c.tracer.Start(ctx, "auth.refresh")
	defer span.End()

	body := map[string]string{"refresh_token": refreshToken}
	raw, err := c.post(ctx, "/auth/refresh", body)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	grant, err := normalizeGrant(raw, "", false)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	c.logger.Debug().Msg("refresh accepted")
	return grant, nil
}

func (c *Client) post(ctx context.Context, path string, body any) ([]byte, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("encode request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Request-Id", uuid.New().String())

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("auth request: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read auth response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("%w: %s", ErrRejected, errorMessage(resp, data))
	}
	return data, nil
}

// errorMessage extracts a human-readable message from an error response:
// the JSON "message" field when present, else the body text, else the
// HTTP status text.
func errorMessage(resp *http.Response, body []byte) string {
	if strings.Contains(resp.Header.Get("Content-Type"), "application/json") {
		var e struct {
			Message string `json:"message"`
		}
		if err := json.Unmarshal(body, &e); err == nil && e.Message != "" {
			return e.Message
		}
	}
	if text := strings.TrimSpace(string(body)); text != "" {
		return text
	}
	return resp.Status
}
