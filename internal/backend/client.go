// Package backend is the REST client of the remote network-monitoring API.
// Every call carries the session bearer token, unwraps the
// {success, message, data} envelope and normalizes records through the
// telemetry package.
package backend

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
	"go.uber.org/zap"

	"netmon-dashboard/pkg/logger"
)

// TokenSource supplies the bearer token for each request
type TokenSource interface {
	Token() string
}

type Options struct {
	BaseURL string
	Timeout time.Duration
	Tokens  TokenSource
	// OnUnauthorized runs on every 401 answer, before ErrUnauthorized is
	// returned to the caller.
	OnUnauthorized func(ctx context.Context)
	HTTPClient     *http.Client
}

type Client struct {
	baseURL        string
	httpClient     *http.Client
	tokens         TokenSource
	onUnauthorized func(ctx context.Context)
	log            *zap.Logger
	now            func() time.Time
}

func NewClient(opts Options) *Client {
	httpClient := opts.HTTPClient
	if httpClient == nil {
		timeout := opts.Timeout
		if timeout <= 0 {
			timeout = 10 * time.Second
		}
		httpClient = &http.Client{Timeout: timeout}
	}
	return &Client{
		baseURL:        strings.TrimRight(opts.BaseURL, "/"),
		httpClient:     httpClient,
		tokens:         opts.Tokens,
		onUnauthorized: opts.OnUnauthorized,
		log:            logger.Named("backend"),
		now:            time.Now,
	}
}

// response is a decoded envelope. Top-level fields stay raw so callers can
// pick what the endpoint puts outside data (login tokens).
type response struct {
	StatusCode int
	Fields     map[string]json.RawMessage
}

// Data returns the payload, unwrapping a nested {"data": {"data": ...}}
func (r *response) Data() json.RawMessage {
	data, ok := r.Fields["data"]
	if !ok {
		return nil
	}
	var inner map[string]json.RawMessage
	if err := json.Unmarshal(data, &inner); err == nil {
		if nested, ok := inner["data"]; ok {
			return nested
		}
	}
	return data
}

func (r *response) Message() string {
	var msg string
	if raw, ok := r.Fields["message"]; ok {
		_ = json.Unmarshal(raw, &msg)
	}
	return msg
}

func (c *Client) do(ctx context.Context, method, path string, body any) (*response, error) {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to encode request: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	requestID := uuid.NewString()
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-ID", requestID)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.tokens != nil {
		if token := c.tokens.Token(); token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
	}

	start := c.now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.log.Warn("Backend request failed",
			zap.String("method", method),
			zap.String("path", path),
			zap.String("request_id", requestID),
			zap.Error(err),
		)
		return nil, fmt.Errorf("failed to make request: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	c.log.Debug("Backend request",
		zap.String("method", method),
		zap.String("path", path),
		zap.Int("status", resp.StatusCode),
		zap.String("request_id", requestID),
		zap.Duration("duration", c.now().Sub(start)),
	)

	if resp.StatusCode == http.StatusUnauthorized {
		if c.onUnauthorized != nil {
			c.onUnauthorized(ctx)
		}
		return nil, ErrUnauthorized
	}

	out := &response{StatusCode: resp.StatusCode}
	if len(bytes.TrimSpace(raw)) > 0 {
		if err := json.Unmarshal(raw, &out.Fields); err != nil && resp.StatusCode < 300 {
			return nil, fmt.Errorf("failed to decode response: %w", err)
		}
	}

	if resp.StatusCode >= 300 {
		return nil, &APIError{StatusCode: resp.StatusCode, Message: errorMessage(out.Fields)}
	}

	if rawSuccess, ok := out.Fields["success"]; ok {
		var success bool
		if err := json.Unmarshal(rawSuccess, &success); err == nil && !success {
			return nil, &APIError{StatusCode: resp.StatusCode, Message: errorMessage(out.Fields)}
		}
	}

	return out, nil
}

// errorMessage picks the displayable message out of an error body: detail
// first, then message, then the generic fallback. FastAPI validation errors
// carry detail as a list of {msg}.
func errorMessage(fields map[string]json.RawMessage) string {
	if raw, ok := fields["detail"]; ok {
		var s string
		if json.Unmarshal(raw, &s) == nil && s != "" {
			return s
		}
		var list []struct {
			Msg string `json:"msg"`
		}
		if json.Unmarshal(raw, &list) == nil && len(list) > 0 && list[0].Msg != "" {
			return list[0].Msg
		}
	}
	if raw, ok := fields["message"]; ok {
		var s string
		if json.Unmarshal(raw, &s) == nil && s != "" {
			return s
		}
	}
	return GenericErrorMessage
}

// decode unmarshals raw keeping numbers as json.Number so integer ids and
// floats survive the loosely typed records.
func decode(raw json.RawMessage, v any) error {
	if len(raw) == 0 || string(raw) == "null" {
		return nil
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("failed to decode payload: %w", err)
	}
	return nil
}

// Health pings GET /health
func (c *Client) Health(ctx context.Context) error {
	_, err := c.do(ctx, http.MethodGet, "/health", nil)
	return err
}

// IsUnauthorized reports whether err is a 401 from the backend
func IsUnauthorized(err error) bool {
	return errors.Is(err, ErrUnauthorized)
}
