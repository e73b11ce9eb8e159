//go:build integration

package integration

import (
	"bytes"
	"context"
	"encoding/json"
	"image"
	"image/png"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"

	"storyteller-admin/internal/app"
	"storyteller-admin/internal/config"
)

// fakeBackend plays the StoryTeller REST backend, the AI providers and the
// CDN file service.
type fakeBackend struct {
	t       *testing.T
	server  *httptest.Server
	token   string
	mu      sync.Mutex
	story   map[string]any
	uploads []string
	calls   []string
}

func newFakeBackend(t *testing.T, role string) *fakeBackend {
	t.Helper()

	b := &fakeBackend{
		t:     t,
		token: issueToken(t, "staff-1", role),
		story: map[string]any{
			"id":    float64(1),
			"title": "The Moon Cat",
			"panels": []any{
				map[string]any{"id": float64(10), "panelNumber": float64(1), "content": "A cat looks at the moon."},
			},
		},
	}
	b.server = httptest.NewServer(http.HandlerFunc(b.serve))
	t.Cleanup(b.server.Close)
	return b
}

func issueToken(t *testing.T, subject string, role string) string {
	t.Helper()

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":  subject,
		"role": role,
		"exp":  time.Now().Add(time.Hour).Unix(),
	}).SignedString([]byte("backend-secret"))
	require.NoError(t, err)
	return token
}

func (b *fakeBackend) serve(w http.ResponseWriter, r *http.Request) {
	b.mu.Lock()
	b.calls = append(b.calls, r.Method+" "+r.URL.Path)
	b.mu.Unlock()

	if r.URL.Path != "/Auth/login" && r.Header.Get("Authorization") != "Bearer "+b.token {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"message": "Missing bearer token"})
		return
	}

	switch {
	case r.URL.Path == "/Auth/login":
		writeJSON(w, http.StatusOK, map[string]any{"data": map[string]string{"token": b.token}})
	case r.URL.Path == "/User":
		writeJSON(w, http.StatusOK, []map[string]any{{"id": 1, "username": "reader"}})
	case r.URL.Path == "/Story/1" && r.Method == http.MethodGet:
		b.mu.Lock()
		defer b.mu.Unlock()
		writeJSON(w, http.StatusOK, map[string]any{"data": b.story})
	case r.URL.Path == "/Story/1" && r.Method == http.MethodPut:
		var story map[string]any
		if err := json.NewDecoder(r.Body).Decode(&story); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"message": err.Error()})
			return
		}
		b.mu.Lock()
		b.story = story
		b.mu.Unlock()
		writeJSON(w, http.StatusOK, story)
	case r.URL.Path == "/chat/completions":
		writeJSON(w, http.StatusOK, map[string]string{"content": "A curious grey cat sits on a rooftop under a full moon."})
	case r.URL.Path == "/pollinationai/generate-image":
		var buf bytes.Buffer
		_ = png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, 8, 8)))
		w.Header().Set("Content-Type", "image/png")
		_, _ = w.Write(buf.Bytes())
	case r.URL.Path == "/pollinationai/tts" || r.URL.Path == "/viettelAI/tts":
		w.Header().Set("Content-Type", "audio/mpeg")
		_, _ = io.WriteString(w, "ID3-audio")
	case r.URL.Path == "/Files/upload":
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"message": err.Error()})
			return
		}
		_, header, err := r.FormFile("file")
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"message": "file is required"})
			return
		}
		url := "https://cdn.storyteller.test/" + header.Filename
		b.mu.Lock()
		b.uploads = append(b.uploads, url)
		b.mu.Unlock()
		writeJSON(w, http.StatusOK, map[string]any{"data": map[string]string{"url": url}})
	default:
		writeJSON(w, http.StatusNotFound, map[string]string{"message": "not found: " + r.URL.Path})
	}
}

func (b *fakeBackend) storySnapshot() map[string]any {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.story
}

func (b *fakeBackend) uploaded() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]string(nil), b.uploads...)
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func testConfig(backendURL string) *config.Config {
	return &config.Config{
		ServerPort:              "0",
		ServerReadHeaderTimeout: 5 * time.Second,
		ServerWriteTimeout:      time.Minute,
		ServerIdleTimeout:       time.Minute,
		RequestTimeout:          10 * time.Second,
		AIRequestTimeout:        30 * time.Second,
		UpstreamTimeout:         10 * time.Second,
		APIBaseURL:              backendURL,
		CDNBaseURL:              backendURL,
		MaxUploadSize:           10 << 20,
		CORSOrigins:             []string{"*"},
		RateLimitRPM:            10000,
		AuthRateLimitRPM:        10000,
		AuthCookieName:          "authToken",
		AuthCookieMaxAge:        24 * time.Hour,
		TTSMaxChunkLength:       300,
		PipelineTimeout:         30 * time.Second,
		LogLevel:                "error",
	}
}

// newBFF starts the whole application against backend.
func newBFF(t *testing.T, backend *fakeBackend) *httptest.Server {
	t.Helper()

	application, err := app.NewWithConfig(context.Background(), testConfig(backend.server.URL))
	require.NoError(t, err)

	server := httptest.NewServer(application.Handler())
	t.Cleanup(func() {
		server.Close()
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = application.Shutdown(ctx)
	})
	return server
}

// newBrowser returns a client that keeps cookies and does not follow redirects.
func newBrowser(t *testing.T) *http.Client {
	t.Helper()

	jar, err := cookiejar.New(nil)
	require.NoError(t, err)
	return &http.Client{
		Jar:     jar,
		Timeout: 10 * time.Second,
		CheckRedirect: func(*http.Request, []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}
}

func doJSON(t *testing.T, client *http.Client, method string, url string, body string) (*http.Response, map[string]any) {
	t.Helper()

	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req, err := http.NewRequest(method, url, reader)
	require.NoError(t, err)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := client.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	var parsed map[string]any
	if len(bytes.TrimSpace(raw)) > 0 && strings.Contains(resp.Header.Get("Content-Type"), "json") {
		require.NoError(t, json.Unmarshal(raw, &parsed), string(raw))
	}
	return resp, parsed
}

func login(t *testing.T, client *http.Client, server *httptest.Server) {
	t.Helper()

	resp, body := doJSON(t, client, http.MethodPost, server.URL+"/api/auth/login", `{"email":"staff@storyteller.test","password":"secret"}`)
	require.Equal(t, http.StatusOK, resp.StatusCode, body)
}
