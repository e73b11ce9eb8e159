package handler

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"

	"storyteller-admin/internal/auth"
	"storyteller-admin/internal/middleware"
	"storyteller-admin/internal/upstream"
)

const testCookie = "authToken"

// capturedRequest is what the fake backend saw.
type capturedRequest struct {
	Method        string
	Path          string
	RawQuery      string
	Authorization string
	Body          string
}

// fakeBackend answers every call with status and body and records the calls.
type fakeBackend struct {
	server   *httptest.Server
	requests chan capturedRequest
}

func newFakeBackend(t *testing.T, status int, body string) *fakeBackend {
	t.Helper()

	backend := &fakeBackend{requests: make(chan capturedRequest, 16)}
	backend.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		payload, _ := io.ReadAll(r.Body)
		backend.requests <- capturedRequest{
			Method:        r.Method,
			Path:          r.URL.Path,
			RawQuery:      r.URL.RawQuery,
			Authorization: r.Header.Get("Authorization"),
			Body:          string(payload),
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = io.WriteString(w, body)
	}))
	t.Cleanup(backend.server.Close)

	return backend
}

func (b *fakeBackend) client() *upstream.Client {
	return upstream.New(b.server.URL, 5*time.Second)
}

func (b *fakeBackend) lastRequest(t *testing.T) capturedRequest {
	t.Helper()

	select {
	case req := <-b.requests:
		return req
	default:
		t.Fatal("backend was not called")
		return capturedRequest{}
	}
}

func (b *fakeBackend) requireNoCalls(t *testing.T) {
	t.Helper()
	require.Len(t, b.requests, 0, "backend must not be called")
}

func signedToken(t *testing.T, role string) string {
	t.Helper()

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":   "user-1",
		"role":  role,
		"email": "staff@storyteller.test",
		"exp":   time.Now().Add(time.Hour).Unix(),
	}).SignedString([]byte("backend-secret"))
	require.NoError(t, err)
	return token
}

// serve routes method/pattern to h behind the session middleware.
func serve(method string, pattern string, h http.HandlerFunc) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.NewSession(testCookie, auth.NewClaimDecoder()).Attach)
	r.Method(method, pattern, h)
	return r
}

func newRequest(method string, target string, body string, token string) *http.Request {
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.AddCookie(&http.Cookie{Name: testCookie, Value: token})
	}
	return req
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()

	var out map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}
