package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/sadopc/worklog/internal/record"
)

// TransportError reports a network failure or an unexpected server answer.
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string { return e.Op + ": " + e.Err.Error() }

func (e *TransportError) Unwrap() error { return e.Err }

// Client talks to a worklog server. It satisfies cache.Backend.
type Client struct {
	base string
	http *http.Client
	log  *zap.Logger
}

// NewClient returns a client for the server at baseURL.
func NewClient(baseURL string, timeout time.Duration, log *zap.Logger) *Client {
	if log == nil {
		log = zap.NewNop()
	}
	return &Client{
		base: strings.TrimRight(baseURL, "/"),
		http: &http.Client{Timeout: timeout},
		log:  log,
	}
}

func (c *Client) do(ctx context.Context, op, method, path string, header http.Header, in, out any) error {
	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("%s: encode request: %w", op, err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.base+path, body)
	if err != nil {
		return &TransportError{Op: op, Err: err}
	}
	for k, vs := range header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	reqID := uuid.NewString()
	req.Header.Set(RequestIDHeader, reqID)
	req.Header.Set("Cache-Control", "no-cache")

	resp, err := c.http.Do(req)
	if err != nil {
		c.log.Warn("request failed", zap.String("op", op), zap.String("request_id", reqID), zap.Error(err))
		return &TransportError{Op: op, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return c.decodeErr(op, resp)
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return &TransportError{Op: op, Err: fmt.Errorf("decode response: %w", err)}
	}
	return nil
}

// decodeErr rebuilds the domain error the server reported so errors.Is
// works on this side of the wire.
func (c *Client) decodeErr(op string, resp *http.Response) error {
	var e errorResp
	if err := json.NewDecoder(resp.Body).Decode(&e); err != nil || e.Code == "" {
		return &TransportError{Op: op, Err: fmt.Errorf("unexpected status %d", resp.StatusCode)}
	}
	c.log.Debug("server error",
		zap.String("op", op),
		zap.Int("status", resp.StatusCode),
		zap.String("code", e.Code),
		zap.String("request_id", e.RequestID))

	switch e.Code {
	case codeValidation:
		return &record.ValidationError{Field: e.Field, Msg: e.Details}
	case codeNotFound:
		return fmt.Errorf("%s: %w", op, record.ErrNotFound)
	case codeSecretMismatch:
		return fmt.Errorf("%s: %w", op, record.ErrSecretMismatch)
	case codeNoSecret:
		return fmt.Errorf("%s: %w", op, record.ErrNoSecret)
	default:
		msg := e.Error
		if e.Details != "" {
			msg += ": " + e.Details
		}
		return &TransportError{Op: op, Err: fmt.Errorf("status %d: %s", resp.StatusCode, msg)}
	}
}

func (c *Client) ListTimers(ctx context.Context) ([]record.Timer, error) {
	var timers []record.Timer
	if err := c.do(ctx, "list timers", http.MethodGet, "/api/timers", nil, nil, &timers); err != nil {
		return nil, err
	}
	return timers, nil
}

func (c *Client) CreateTimer(ctx context.Context, n record.NewTimer) (*record.Timer, error) {
	var t record.Timer
	if err := c.do(ctx, "create timer", http.MethodPost, "/api/timers", nil, n, &t); err != nil {
		return nil, err
	}
	return &t, nil
}

func (c *Client) UpdateTimer(ctx context.Context, id string, u record.TimerUpdate) (*record.Timer, error) {
	var t record.Timer
	req := updateRequest{ID: id, TimerUpdate: u}
	if err := c.do(ctx, "update timer", http.MethodPut, "/api/timers", nil, req, &t); err != nil {
		return nil, err
	}
	return &t, nil
}

func (c *Client) DeleteTimer(ctx context.Context, id string) error {
	path := "/api/timers?id=" + url.QueryEscape(id)
	return c.do(ctx, "delete timer", http.MethodDelete, path, nil, nil, nil)
}

func (c *Client) DeleteAllTimers(ctx context.Context, secretKey string) error {
	h := http.Header{}
	h.Set(SecretKeyHeader, secretKey)
	return c.do(ctx, "delete all timers", http.MethodDelete, "/api/timers", h, nil, nil)
}

func (c *Client) GetUser(ctx context.Context) (*record.User, error) {
	var resp userResp
	if err := c.do(ctx, "get user", http.MethodGet, "/api/user", nil, nil, &resp); err != nil {
		return nil, err
	}
	return resp.User, nil
}

func (c *Client) SetUserSecret(ctx context.Context, secretKey string) error {
	return c.do(ctx, "set user secret", http.MethodPost, "/api/user", nil, secretRequest{SecretKey: secretKey}, nil)
}

func (c *Client) GetAllSettings(ctx context.Context) ([]record.Setting, error) {
	var settings []record.Setting
	if err := c.do(ctx, "list settings", http.MethodGet, "/api/settings", nil, nil, &settings); err != nil {
		return nil, err
	}
	return settings, nil
}

func (c *Client) GetSetting(ctx context.Context, key string) (string, error) {
	settings, err := c.GetAllSettings(ctx)
	if err != nil {
		return "", err
	}
	for _, s := range settings {
		if s.Key == key {
			return s.Value, nil
		}
	}
	return "", fmt.Errorf("get setting %q: %w", key, record.ErrNotFound)
}

func (c *Client) SetSetting(ctx context.Context, key, value string) error {
	return c.do(ctx, "set setting", http.MethodPut, "/api/settings", nil, record.Setting{Key: key, Value: value}, nil)
}

// Ping checks that the server is reachable.
func (c *Client) Ping(ctx context.Context) error {
	return c.do(ctx, "ping", http.MethodGet, "/api/healthz", nil, nil, nil)
}
