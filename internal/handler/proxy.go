package handler

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"

	"storyteller-admin/internal/upstream"
	"storyteller-admin/pkg/apierror"
)

// Proxy forwards a BFF route to exactly one backend endpoint.
type Proxy struct {
	client *upstream.Client
}

func NewProxy(client *upstream.Client) *Proxy {
	return &Proxy{client: client}
}

// Target names the upstream call and how its success is reported.
type Target struct {
	Method string
	// Path builds the upstream path from the inbound request.
	Path func(r *http.Request) string
	// Status overrides the upstream success status when non-zero.
	Status int
	// Message is added to mutation answers.
	Message string
}

// Static returns a Path func for a fixed upstream path.
func Static(path string) func(*http.Request) string {
	return func(*http.Request) string { return path }
}

// WithParam returns a Path func for resource/{param}[/suffix...].
func WithParam(resource string, param string, suffix ...string) func(*http.Request) string {
	return func(r *http.Request) string {
		return upstream.Path(append([]string{resource, chi.URLParam(r, param)}, suffix...)...)
	}
}

// Handler returns an http.HandlerFunc forwarding requests to target.
func (p *Proxy) Handler(target Target) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		p.Forward(w, r, target)
	}
}

func (p *Proxy) Forward(w http.ResponseWriter, r *http.Request, target Target) {
	token, ok := sessionToken(w, r)
	if !ok {
		return
	}

	req := upstream.Request{
		Method: target.Method,
		Path:   target.Path(r),
		Query:  r.URL.Query(),
		Token:  token,
	}

	if hasBody(target.Method) {
		body, err := readJSONBody(w, r)
		if err != nil {
			writeError(w, err)
			return
		}
		if len(body) > 0 {
			req.Body = bytes.NewReader(body)
			req.ContentType = "application/json"
		}
	}

	p.send(w, r, req, target)
}

// ForwardPublic sends payload as the JSON body of target without a session
// token. It serves the unauthenticated password flows.
func (p *Proxy) ForwardPublic(w http.ResponseWriter, r *http.Request, target Target, payload any) {
	body, err := json.Marshal(payload)
	if err != nil {
		writeError(w, fmt.Errorf("encode %s body: %w", target.Path(r), err))
		return
	}

	p.send(w, r, upstream.Request{
		Method:      target.Method,
		Path:        target.Path(r),
		Body:        bytes.NewReader(body),
		ContentType: "application/json",
	}, target)
}

// send performs req and writes the {data} envelope.
func (p *Proxy) send(w http.ResponseWriter, r *http.Request, req upstream.Request, target Target) {
	resp, err := p.client.Do(r.Context(), req)
	if err != nil {
		writeError(w, err)
		return
	}

	data, err := resp.Raw()
	if err != nil {
		writeError(w, fmt.Errorf("%s %s: %w", req.Method, req.Path, err))
		return
	}

	status := resp.Status
	if target.Status != 0 {
		status = target.Status
	}
	if status == http.StatusNoContent {
		status = http.StatusOK
	}

	writeSuccess(w, status, target.Message, data)
}

func hasBody(method string) bool {
	switch method {
	case http.MethodPost, http.MethodPut, http.MethodPatch:
		return true
	default:
		return false
	}
}

// readJSONBody returns the raw body after checking it is JSON. An empty body
// is allowed.
func readJSONBody(w http.ResponseWriter, r *http.Request) ([]byte, error) {
	defer r.Body.Close()

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxJSONBodyBytes))
	if err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			return nil, apierror.New("Request body too large", nil, http.StatusRequestEntityTooLarge)
		}
		return nil, apierror.BadRequest("Invalid request body", err.Error())
	}

	trimmed := bytes.TrimSpace(body)
	if len(trimmed) > 0 && !json.Valid(trimmed) {
		return nil, apierror.BadRequest("Invalid JSON body", nil)
	}
	return trimmed, nil
}
