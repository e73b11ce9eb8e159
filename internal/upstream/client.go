// Package upstream talks to the external StoryTeller REST backend and the
// file service. Every call is a single attempt; the caller's context bounds it.
package upstream

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const maxResponseBytes = 64 << 20

type Client struct {
	baseURL    string
	httpClient *http.Client
}

func New(baseURL string, timeout time.Duration) *Client {
	return NewWithHTTPClient(baseURL, &http.Client{Timeout: timeout})
}

func NewWithHTTPClient(baseURL string, httpClient *http.Client) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: httpClient,
	}
}

func (c *Client) BaseURL() string {
	return c.baseURL
}

type Request struct {
	Method      string
	Path        string
	Query       url.Values
	Body        io.Reader
	ContentType string
	Accept      string
	Token       string
}

type Response struct {
	Status int
	Header http.Header
	Body   []byte
}

// JSON decodes the buffered body into out.
func (r *Response) JSON(out any) error {
	if len(bytes.TrimSpace(r.Body)) == 0 {
		return fmt.Errorf("decode upstream response: empty body")
	}
	if err := json.Unmarshal(r.Body, out); err != nil {
		return fmt.Errorf("decode upstream response: %w", err)
	}
	return nil
}

// Raw returns the body as JSON, substituting null for an empty body.
func (r *Response) Raw() (json.RawMessage, error) {
	trimmed := bytes.TrimSpace(r.Body)
	if len(trimmed) == 0 {
		return json.RawMessage("null"), nil
	}
	if !json.Valid(trimmed) {
		return nil, fmt.Errorf("decode upstream response: body is not JSON")
	}
	return json.RawMessage(trimmed), nil
}

// Do sends req and buffers the response. Non-2xx answers are returned as *Error.
func (c *Client) Do(ctx context.Context, req Request) (*Response, error) {
	resp, err := c.send(ctx, req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("read upstream %s %s: %w", req.Method, req.Path, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, newError(resp.StatusCode, body)
	}

	return &Response{Status: resp.StatusCode, Header: resp.Header, Body: body}, nil
}

// DoJSON marshals in as the request body and calls Do.
func (c *Client) DoJSON(ctx context.Context, method string, path string, token string, in any) (*Response, error) {
	req := Request{Method: method, Path: path, Token: token}
	if in != nil {
		payload, err := json.Marshal(in)
		if err != nil {
			return nil, fmt.Errorf("encode upstream request: %w", err)
		}
		req.Body = bytes.NewReader(payload)
		req.ContentType = "application/json"
	}

	return c.Do(ctx, req)
}

// Stream sends req and hands back the open response for 2xx answers. The
// caller closes the body.
func (c *Client) Stream(ctx context.Context, req Request) (*http.Response, error) {
	resp, err := c.send(ctx, req)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		defer resp.Body.Close()
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
		return nil, newError(resp.StatusCode, body)
	}

	return resp, nil
}

func (c *Client) send(ctx context.Context, req Request) (*http.Response, error) {
	target := c.baseURL + req.Path
	if len(req.Query) > 0 {
		target += "?" + req.Query.Encode()
	}

	method := req.Method
	if method == "" {
		method = http.MethodGet
	}

	httpReq, err := http.NewRequestWithContext(ctx, method, target, req.Body)
	if err != nil {
		return nil, fmt.Errorf("build upstream request: %w", err)
	}

	if req.ContentType != "" {
		httpReq.Header.Set("Content-Type", req.ContentType)
	}
	accept := req.Accept
	if accept == "" {
		accept = "application/json"
	}
	httpReq.Header.Set("Accept", accept)
	if req.Token != "" {
		httpReq.Header.Set("Authorization", "Bearer "+req.Token)
	}

	started := time.Now()
	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("upstream %s %s: %w", method, req.Path, err)
	}

	slog.Debug("upstream call",
		"method", method,
		"path", req.Path,
		"status", resp.StatusCode,
		"duration_ms", time.Since(started).Milliseconds(),
	)

	return resp, nil
}

// Error is a non-2xx answer from the backend.
type Error struct {
	Status  int
	Message string
	Body    any
}

func (e *Error) Error() string {
	return fmt.Sprintf("upstream status %d: %s", e.Status, e.Message)
}

func AsError(err error) (*Error, bool) {
	var upstreamErr *Error
	if errors.As(err, &upstreamErr) {
		return upstreamErr, true
	}
	return nil, false
}

func newError(status int, body []byte) *Error {
	e := &Error{Status: status}

	trimmed := bytes.TrimSpace(body)
	var parsed any
	if len(trimmed) > 0 && json.Unmarshal(trimmed, &parsed) == nil {
		e.Body = parsed
		e.Message = messageFrom(parsed)
	} else if len(trimmed) > 0 {
		text := string(trimmed)
		if len(text) > 512 {
			text = text[:512]
		}
		e.Body = text
	}

	if e.Message == "" {
		e.Message = http.StatusText(status)
	}
	if e.Message == "" {
		e.Message = "Upstream request failed"
	}

	return e
}

// messageFrom looks for the message field the backend conventionally uses,
// including ASP.NET problem details ("title").
func messageFrom(parsed any) string {
	obj, ok := parsed.(map[string]any)
	if !ok {
		if s, isString := parsed.(string); isString {
			return strings.TrimSpace(s)
		}
		return ""
	}

	for _, key := range []string{"message", "Message", "title", "error", "detail"} {
		if s, isString := obj[key].(string); isString && strings.TrimSpace(s) != "" {
			return strings.TrimSpace(s)
		}
	}

	if nested, isMap := obj["error"].(map[string]any); isMap {
		return messageFrom(nested)
	}

	return ""
}

// Path joins escaped segments into an absolute path, e.g. Path("User", id).
func Path(segments ...string) string {
	var b strings.Builder
	for _, segment := range segments {
		b.WriteByte('/')
		b.WriteString(url.PathEscape(segment))
	}
	return b.String()
}
