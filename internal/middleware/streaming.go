package middleware

import (
	"context"
	"net/http"
	"sync"
	"time"
)

// StreamingTimeout bounds AI and upload routes without buffering the
// response the way http.TimeoutHandler does, so audio bodies can be
// flushed as they are copied from the provider. maxDuration caps the whole
// exchange; idleTimeout caps the gap between writes once the first byte has
// been written.
func StreamingTimeout(maxDuration, idleTimeout time.Duration) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx, cancel := context.WithTimeout(r.Context(), maxDuration)
			defer cancel()

			rc := http.NewResponseController(w)
			_ = rc.SetWriteDeadline(time.Now().Add(maxDuration))

			sw := &streamingWriter{
				ResponseWriter: w,
				rc:             rc,
				idleTimeout:    idleTimeout,
				cancel:         cancel,
			}

			next.ServeHTTP(sw, r.WithContext(ctx))
			sw.stop()
		})
	}
}

type streamingWriter struct {
	http.ResponseWriter
	rc          *http.ResponseController
	idleTimeout time.Duration
	cancel      context.CancelFunc
	mu          sync.Mutex
	idleTimer   *time.Timer
}

func (sw *streamingWriter) resetIdle() {
	if sw.idleTimeout <= 0 {
		return
	}

	sw.mu.Lock()
	defer sw.mu.Unlock()

	if sw.idleTimer != nil {
		sw.idleTimer.Stop()
	}

	sw.idleTimer = time.AfterFunc(sw.idleTimeout, func() {
		_ = sw.rc.SetWriteDeadline(time.Now())
		sw.cancel()
	})
}

func (sw *streamingWriter) stop() {
	sw.mu.Lock()
	defer sw.mu.Unlock()

	if sw.idleTimer != nil {
		sw.idleTimer.Stop()
	}
}

func (sw *streamingWriter) Write(b []byte) (int, error) {
	sw.resetIdle()
	return sw.ResponseWriter.Write(b)
}

func (sw *streamingWriter) Unwrap() http.ResponseWriter {
	return sw.ResponseWriter
}

func (sw *streamingWriter) Flush() {
	if f, ok := sw.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}
