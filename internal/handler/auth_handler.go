package handler

import (
	"net/http"
	"time"

	"storyteller-admin/internal/middleware"
	"storyteller-admin/internal/model"
	"storyteller-admin/internal/service"
	"storyteller-admin/pkg/apierror"
)

type CookieOptions struct {
	Name   string
	Secure bool
	MaxAge time.Duration
}

type AuthHandler struct {
	service *service.AuthService
	proxy   *Proxy
	cookie  CookieOptions
}

func NewAuthHandler(service *service.AuthService, proxy *Proxy, cookie CookieOptions) *AuthHandler {
	return &AuthHandler{service: service, proxy: proxy, cookie: cookie}
}

type loginData struct {
	Role string `json:"role"`
}

// Login exchanges credentials with the backend and stores the issued token in
// the session cookie. Only staff roles get a cookie.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var payload model.LoginRequest
	if err := decodeJSON(w, r, &payload); err != nil {
		writeError(w, err)
		return
	}

	result, err := h.service.Login(r.Context(), payload)
	if err != nil {
		writeError(w, err)
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     h.cookie.Name,
		Value:    result.Token,
		Path:     "/",
		MaxAge:   int(h.cookie.MaxAge.Seconds()),
		HttpOnly: true,
		Secure:   h.cookie.Secure,
		SameSite: http.SameSiteLaxMode,
	})

	writeSuccess(w, http.StatusOK, "Login successful", loginData{Role: result.Principal.Role})
}

func (h *AuthHandler) Logout(w http.ResponseWriter, _ *http.Request) {
	http.SetCookie(w, &http.Cookie{
		Name:     h.cookie.Name,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		Expires:  time.Unix(0, 0),
		HttpOnly: true,
		Secure:   h.cookie.Secure,
		SameSite: http.SameSiteLaxMode,
	})

	writeSuccess(w, http.StatusOK, "Logout successful", nil)
}

// Me reports the principal decoded from the session cookie.
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	principal, ok := middleware.PrincipalFromContext(r.Context())
	if !ok {
		writeError(w, apierror.Unauthorized("Unauthorized"))
		return
	}

	writeSuccess(w, http.StatusOK, "", principal)
}

func (h *AuthHandler) ForgotPassword(w http.ResponseWriter, r *http.Request) {
	var payload model.ForgotPasswordRequest
	if err := decodeJSON(w, r, &payload); err != nil {
		writeError(w, err)
		return
	}

	h.proxy.ForwardPublic(w, r, Target{
		Method:  http.MethodPost,
		Path:    Static("/Auth/forgot-password"),
		Message: "Password reset email sent",
	}, payload)
}

func (h *AuthHandler) ResetPassword(w http.ResponseWriter, r *http.Request) {
	var payload model.ResetPasswordRequest
	if err := decodeJSON(w, r, &payload); err != nil {
		writeError(w, err)
		return
	}

	h.proxy.ForwardPublic(w, r, Target{
		Method:  http.MethodPost,
		Path:    Static("/Auth/reset-password"),
		Message: "Password reset successful",
	}, payload)
}

func (h *AuthHandler) VerifyToken(w http.ResponseWriter, r *http.Request) {
	var payload model.VerifyTokenRequest
	if err := decodeJSON(w, r, &payload); err != nil {
		writeError(w, err)
		return
	}

	h.proxy.ForwardPublic(w, r, Target{
		Method:  http.MethodPost,
		Path:    Static("/Auth/verify-token"),
		Message: "Token verified",
	}, payload)
}
