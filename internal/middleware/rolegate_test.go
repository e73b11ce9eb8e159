package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"

	"storyteller-admin/internal/auth"
)

func roleToken(t *testing.T, role string) string {
	t.Helper()

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":  "staff-1",
		"role": role,
		"exp":  time.Now().Add(time.Hour).Unix(),
	}).SignedString([]byte("backend"))
	require.NoError(t, err)
	return token
}

func gatedHandler() http.Handler {
	session := NewSession("authToken", auth.NewClaimDecoder())
	return session.Attach(RoleGate(okHandler()))
}

func serveGate(t *testing.T, path string, token string) *httptest.ResponseRecorder {
	t.Helper()

	req := httptest.NewRequest(http.MethodGet, path, nil)
	if token != "" {
		req.AddCookie(&http.Cookie{Name: "authToken", Value: token})
	}
	rec := httptest.NewRecorder()
	gatedHandler().ServeHTTP(rec, req)
	return rec
}

func requireRedirect(t *testing.T, rec *httptest.ResponseRecorder, location string) {
	t.Helper()

	if location == "" {
		require.Equal(t, http.StatusOK, rec.Code, "expected pass-through, got redirect to %q", rec.Header().Get("Location"))
		return
	}
	require.Equal(t, http.StatusFound, rec.Code)
	require.Equal(t, location, rec.Header().Get("Location"))
}

func TestRoleGate_UnauthenticatedProtectedPathsGoToLogin(t *testing.T) {
	t.Parallel()

	paths := []string{
		"/owner", "/owner/", "/owner/dashboard", "/owner/users/12",
		"/moderator", "/moderator/stories", "/moderator/anything/else",
	}
	for _, path := range paths {
		requireRedirect(t, serveGate(t, path, ""), "/login")
	}
}

func TestRoleGate_UnauthenticatedPublicPathsPass(t *testing.T) {
	t.Parallel()

	for _, path := range []string{"/login", "/", "/owners", "/forgot-password"} {
		requireRedirect(t, serveGate(t, path, ""), "")
	}
}

func TestRoleGate_Moderator(t *testing.T) {
	t.Parallel()

	token := roleToken(t, "Moderator")

	cases := []struct {
		path     string
		location string
	}{
		{"/login", "/moderator/stories"},
		{"/owner", "/moderator/stories"},
		{"/owner/dashboard", "/moderator/stories"},
		{"/owner/system-config", "/moderator/stories"},
		{"/moderator/stories", ""},
		{"/moderator/stories/", ""},
		{"/moderator/issue-management", ""},
		{"/moderator/write-story", ""},
		{"/moderator", "/moderator/stories"},
		{"/moderator/users", "/moderator/stories"},
		{"/moderator/stories/17", "/moderator/stories"},
	}

	for _, tc := range cases {
		t.Run(tc.path, func(t *testing.T) {
			requireRedirect(t, serveGate(t, tc.path, token), tc.location)
		})
	}
}

func TestRoleGate_Admin(t *testing.T) {
	t.Parallel()

	token := roleToken(t, "Admin")

	cases := []struct {
		path     string
		location string
	}{
		{"/login", "/owner/dashboard"},
		{"/owner/dashboard", ""},
		{"/owner/users", ""},
		{"/moderator/stories", "/owner/dashboard"},
		{"/moderator/write-story", "/owner/dashboard"},
	}

	for _, tc := range cases {
		t.Run(tc.path, func(t *testing.T) {
			requireRedirect(t, serveGate(t, tc.path, token), tc.location)
		})
	}
}

func TestRoleGate_NonStaffRole(t *testing.T) {
	t.Parallel()

	token := roleToken(t, "User")

	requireRedirect(t, serveGate(t, "/login", token), "")
	requireRedirect(t, serveGate(t, "/owner/dashboard", token), "/moderator/stories")
	requireRedirect(t, serveGate(t, "/moderator/stories", token), "/owner/dashboard")
}

func TestRoleGate_MalformedTokenCountsAsAnonymous(t *testing.T) {
	t.Parallel()

	requireRedirect(t, serveGate(t, "/owner/dashboard", "garbage.token"), "/login")
	requireRedirect(t, serveGate(t, "/login", "garbage.token"), "")
}

func TestGateRedirect_IsStateless(t *testing.T) {
	t.Parallel()

	admin := &auth.Principal{Role: "Admin"}
	moderator := &auth.Principal{Role: "Moderator"}

	// Same path, different principals, evaluated back to back.
	require.Equal(t, "", GateRedirect("/owner/dashboard", admin))
	require.Equal(t, "/moderator/stories", GateRedirect("/owner/dashboard", moderator))
	require.Equal(t, "/login", GateRedirect("/owner/dashboard", nil))
	require.Equal(t, "", GateRedirect("/owner/dashboard", admin))
}
