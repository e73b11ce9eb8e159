package middleware

import (
	"net/http"
	"strings"

	"storyteller-admin/internal/auth"
)

const (
	LoginPath          = "/login"
	OwnerHomePath      = "/owner/dashboard"
	ModeratorHomePath  = "/moderator/stories"
	ownerPrefix        = "/owner"
	moderatorPrefix    = "/moderator"
	gateRedirectStatus = http.StatusFound
)

// moderatorRoutes are the only console pages a moderator may open.
var moderatorRoutes = map[string]struct{}{
	"/moderator/stories":          {},
	"/moderator/issue-management": {},
	"/moderator/write-story":      {},
}

// RoleGate redirects page requests according to the session role. It must
// run after Session.Attach. A token that fails to decode counts as no token.
func RoleGate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var principal *auth.Principal
		if p, ok := PrincipalFromContext(r.Context()); ok {
			principal = &p
		}

		if target := GateRedirect(r.URL.Path, principal); target != "" {
			http.Redirect(w, r, target, gateRedirectStatus)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// GateRedirect returns where a request for path must be sent, or "" to let
// it through. principal is nil for unauthenticated requests.
func GateRedirect(path string, principal *auth.Principal) string {
	path = normalizePagePath(path)
	owner := hasSegmentPrefix(path, ownerPrefix)
	moderator := hasSegmentPrefix(path, moderatorPrefix)

	if principal == nil {
		if owner || moderator {
			return LoginPath
		}
		return ""
	}

	switch {
	case path == LoginPath:
		if principal.IsAdmin() {
			return OwnerHomePath
		}
		if principal.IsModerator() {
			return ModeratorHomePath
		}
	case owner:
		if !principal.IsAdmin() {
			return ModeratorHomePath
		}
	case moderator:
		if !principal.IsModerator() {
			return OwnerHomePath
		}
		if _, allowed := moderatorRoutes[path]; !allowed {
			return ModeratorHomePath
		}
	}

	return ""
}

func normalizePagePath(path string) string {
	if path == "" {
		return "/"
	}
	if len(path) > 1 {
		path = strings.TrimSuffix(path, "/")
	}
	return path
}

// hasSegmentPrefix matches prefix itself or prefix followed by "/", so
// "/owners" is not treated as "/owner".
func hasSegmentPrefix(path string, prefix string) bool {
	return path == prefix || strings.HasPrefix(path, prefix+"/")
}
