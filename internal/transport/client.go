// Package transport is the generic JSON REST client: it joins paths onto the
// backend base URL, attaches the bearer token obtained from the session
// lifecycle, and extracts error messages from failed responses.
package transport

import (
	"bytes"
	"context"
	"encoding/json"
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
)

// Authorizer supplies the bearer token for outgoing requests, refreshing the
// session when needed. The session manager implements it.
type Authorizer interface {
	Authorize(ctx context.Context) (string, error)
}

// APIError is a non-2xx backend response with its extracted message.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("backend responded %d: %s", e.Status, e.Message)
}

// Client performs authorized JSON requests against the backend.
type Client struct {
	baseURL string
	http    *http.Client
	auth    Authorizer
	logger  zerolog.Logger
	tracer  trace.Tracer
}

// New returns a Client for the backend at baseURL. auth may be nil for
// unauthenticated use. httpClient may be nil to use a default client with a
// 15s timeout.
func New(baseURL string, httpClient *http.Client, auth Authorizer, logger zerolog.Logger) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 15 * time.Second}
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    httpClient,
		auth:    auth,
		logger:  logger,
		tracer:  otel.Tracer("planta-mantenimiento/client/internal/transport"),
	}
}

// Get performs an authorized GET and decodes the JSON response into out.
func (c *Client) Get(ctx context.Context, path string, out any) error {
	return c.Do(ctx, http.MethodGet, path, nil, out)
}

// Do performs an authorized JSON request. body is encoded as JSON when
// non-nil; the response is decoded into out when out is non-nil (a 204
// leaves out untouched). Authorization failures from the session lifecycle
// propagate unchanged so callers can detect an expired session.
func (c *Client) Do(ctx context.Context, method, path string, body, out any) error {
	ctx, span := c.tracer.Start(ctx, "api.request", trace.WithAttributes(
		attribute.String("http.method", method),
		attribute.String("http.path", path),
	))
	defer span.End()

	var token string
	if c.auth != nil {
		var err error
		token, err = c.auth.Authorize(ctx)
		if err != nil {
			span.SetStatus(codes.Error, err.Error())
			return fmt.Errorf("authorize request: %w", err)
		}
	}

	var reqBody io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request body: %w", err)
		}
		reqBody = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Request-Id", uuid.New().String())
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return fmt.Errorf("reach backend: %w", err)
	}
	defer resp.Body.Close()
	span.SetAttributes(attribute.Int("http.status_code", resp.StatusCode))

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		apiErr := &APIError{Status: resp.StatusCode, Message: extractMessage(resp, data)}
		c.logger.Debug().Int("status", resp.StatusCode).Str("path", path).
			Str("message", apiErr.Message).Msg("request failed")
		span.SetStatus(codes.Error, apiErr.Message)
		return apiErr
	}
	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	if !strings.Contains(resp.Header.Get("Content-Type"), "application/json") {
		return fmt.Errorf("unexpected content type %q", resp.Header.Get("Content-Type"))
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// extractMessage pulls a human-readable message out of an error response:
// the JSON "message" field when present, else the body text, else the HTTP
// status text.
func extractMessage(resp *http.Response, body []byte) string {
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
