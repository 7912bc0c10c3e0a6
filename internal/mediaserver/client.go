// SPDX-License-Identifier: MIT

// Package mediaserver implements a typed HTTP client for the session
// APIs shared by Jellyfin and Emby servers.
package mediaserver

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Kind selects the API dialect of the remote server.
type Kind string

const (
	KindJellyfin Kind = "jellyfin"
	KindEmby     Kind = "emby"
)

// ParseKind maps a configured server type to a Kind.
func ParseKind(s string) (Kind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "jellyfin":
		return KindJellyfin, nil
	case "emby":
		return KindEmby, nil
	default:
		return "", &APIError{Sentinel: ErrBadResponse, Operation: "parse-kind", Body: s}
	}
}

const (
	defaultTimeout   = 10 * time.Second
	defaultUserAgent = "JellyPatrol/1.0"
	maxErrorBody     = 256
)

// Options configures the client behavior.
type Options struct {
	Token     string
	Kind      Kind
	Timeout   time.Duration
	UserAgent string
}

type Client struct {
	base      string
	kind      Kind
	token     string
	userAgent string
	http      *http.Client
}

func New(base string, opts Options) *Client {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	userAgent := opts.UserAgent
	if userAgent == "" {
		userAgent = defaultUserAgent
	}
	kind := opts.Kind
	if kind == "" {
		kind = KindJellyfin
	}
	return &Client{
		base:      strings.TrimRight(base, "/"),
		kind:      kind,
		token:     opts.Token,
		userAgent: userAgent,
		http:      &http.Client{Timeout: timeout},
	}
}

// url builds an absolute API URL. Emby serves the same session API
// under the /emby prefix.
func (c *Client) url(path string) string {
	if c.kind == KindEmby {
		return c.base + "/emby" + path
	}
	return c.base + path
}

// Sessions fetches all active sessions and maps them into snapshots.
func (c *Client) Sessions(ctx context.Context) ([]Session, error) {
	var raw []rawSession
	if err := c.do(ctx, "sessions", http.MethodGet, c.url("/Sessions"), nil, &raw); err != nil {
		return nil, err
	}

	sessions := make([]Session, 0, len(raw))
	for _, r := range raw {
		if s, ok := r.snapshot(); ok {
			sessions = append(sessions, s)
		}
	}
	return sessions, nil
}

// SendMessage displays a popup message on the client driving the given
// session.
func (c *Client) SendMessage(ctx context.Context, sessionID, header, text string, timeout time.Duration) error {
	payload := messagePayload{
		Header:    header,
		Text:      text,
		TimeoutMs: timeout.Milliseconds(),
	}
	path := "/Sessions/" + url.PathEscape(sessionID) + "/Message"
	return c.do(ctx, "send-message", http.MethodPost, c.url(path), payload, nil)
}

// StopPlayback sends the stop command to the given session.
func (c *Client) StopPlayback(ctx context.Context, sessionID string) error {
	path := "/Sessions/" + url.PathEscape(sessionID) + "/Playing/Stop"
	return c.do(ctx, "stop-playback", http.MethodPost, c.url(path), nil, nil)
}

type messagePayload struct {
	Header    string `json:"Header"`
	Text      string `json:"Text"`
	TimeoutMs int64  `json:"TimeoutMs"`
}

func (c *Client) do(ctx context.Context, op, method, rawURL string, payload, out any) error {
	var body io.Reader
	if payload != nil {
		buf, err := json.Marshal(payload)
		if err != nil {
			return &APIError{Sentinel: ErrBadResponse, Operation: op, Err: err}
		}
		body = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, rawURL, body)
	if err != nil {
		return &APIError{Sentinel: ErrBadResponse, Operation: op, Err: err}
	}
	req.Header.Set("X-Emby-Token", c.token)
	req.Header.Set("User-Agent", c.userAgent)
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	res, err := c.http.Do(req)
	if err != nil {
		return &APIError{Sentinel: classifyTransport(err), Operation: op, Err: err}
	}
	defer res.Body.Close() //nolint:errcheck

	if res.StatusCode < 200 || res.StatusCode > 299 {
		return &APIError{
			Sentinel:  classifyStatus(res.StatusCode),
			Operation: op,
			Status:    res.StatusCode,
			Body:      readErrorBody(res.Body),
		}
	}

	if out != nil {
		if err := json.NewDecoder(res.Body).Decode(out); err != nil {
			return &APIError{Sentinel: ErrBadResponse, Operation: op, Err: err}
		}
	}
	return nil
}

func classifyTransport(err error) error {
	var netErr net.Error
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return ErrTimeout
	case errors.As(err, &netErr) && netErr.Timeout():
		return ErrTimeout
	default:
		return ErrUpstreamUnavailable
	}
}

func classifyStatus(status int) error {
	switch {
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return ErrUnauthorized
	case status == http.StatusNotFound:
		return ErrNotFound
	case status >= 500:
		return ErrUpstreamError
	default:
		return ErrBadResponse
	}
}

func readErrorBody(r io.Reader) string {
	buf, err := io.ReadAll(io.LimitReader(r, maxErrorBody))
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(buf))
}
