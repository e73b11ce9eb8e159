package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"storyteller-admin/internal/auth"
)

type contextKey string

const (
	tokenContextKey     contextKey = "session_token"
	principalContextKey contextKey = "session_principal"
)

// Session reads the auth cookie once per request and exposes the raw token
// and, when it decodes, the principal.
type Session struct {
	cookieName string
	verifier   auth.Verifier
}

func NewSession(cookieName string, verifier auth.Verifier) *Session {
	return &Session{cookieName: cookieName, verifier: verifier}
}

func (s *Session) Attach(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := s.tokenFromRequest(r)
		if token == "" {
			next.ServeHTTP(w, r)
			return
		}

		ctx := context.WithValue(r.Context(), tokenContextKey, token)
		principal, err := s.verifier.Verify(token)
		if err != nil {
			slog.Debug("session token rejected", "path", r.URL.Path, "error", err)
		} else {
			ctx = context.WithValue(ctx, principalContextKey, principal)
		}

		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RequirePrincipal rejects requests without a decodable staff session.
func (s *Session) RequirePrincipal(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		principal, ok := PrincipalFromContext(r.Context())
		if !ok {
			writeJSONError(w, http.StatusUnauthorized, "Unauthorized")
			return
		}
		if !principal.IsStaff() {
			writeJSONError(w, http.StatusForbidden, "Unauthorized role")
			return
		}

		next.ServeHTTP(w, r)
	})
}

// tokenFromRequest prefers the cookie; an Authorization header is accepted
// for non-browser callers.
func (s *Session) tokenFromRequest(r *http.Request) string {
	if cookie, err := r.Cookie(s.cookieName); err == nil {
		if value := strings.TrimSpace(cookie.Value); value != "" {
			return value
		}
	}

	header := strings.TrimSpace(r.Header.Get("Authorization"))
	if len(header) > 7 && strings.EqualFold(header[:7], "bearer ") {
		return strings.TrimSpace(header[7:])
	}

	return ""
}

func TokenFromContext(ctx context.Context) (string, bool) {
	token, ok := ctx.Value(tokenContextKey).(string)
	return token, ok && token != ""
}

func PrincipalFromContext(ctx context.Context) (auth.Principal, bool) {
	principal, ok := ctx.Value(principalContextKey).(auth.Principal)
	return principal, ok
}
