package handler

import (
	"context"
	"errors"
	"io/fs"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"
)

const indexFile = "index.html"

// PageHandler serves the console shell for page routes that passed the role
// gate. Unknown paths fall back to index.html.
type PageHandler struct {
	root  string
	files http.Handler
}

func NewPageHandler(staticDir string) *PageHandler {
	h := &PageHandler{root: strings.TrimSpace(staticDir)}
	if h.root != "" {
		h.files = http.FileServer(http.Dir(h.root))
	}
	return h
}

func (h *PageHandler) Serve(w http.ResponseWriter, r *http.Request) {
	if h.files == nil {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("storyteller admin"))
		return
	}

	clean := path.Clean("/" + r.URL.Path)
	info, err := os.Stat(filepath.Join(h.root, filepath.FromSlash(clean)))
	if err == nil && !info.IsDir() {
		h.files.ServeHTTP(w, r)
		return
	}
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		writeError(w, err)
		return
	}

	http.ServeFile(w, r, filepath.Join(h.root, indexFile))
}

// HealthChecker reports whether a dependency is reachable.
type HealthChecker interface {
	Health(ctx context.Context) error
}

type HealthHandler struct {
	checks map[string]HealthChecker
}

func NewHealthHandler(checks map[string]HealthChecker) *HealthHandler {
	return &HealthHandler{checks: checks}
}

type healthData struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks,omitempty"`
}

func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	data := healthData{Status: "ok"}
	status := http.StatusOK
	if len(h.checks) > 0 {
		data.Checks = make(map[string]string, len(h.checks))
	}
	for name, check := range h.checks {
		if err := check.Health(ctx); err != nil {
			data.Checks[name] = err.Error()
			data.Status = "degraded"
			status = http.StatusServiceUnavailable
			continue
		}
		data.Checks[name] = "ok"
	}

	writeSuccess(w, status, "", data)
}
