package service

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"storyteller-admin/internal/auth"
	"storyteller-admin/internal/model"
	"storyteller-admin/internal/upstream"
)

// AuthService exchanges staff credentials with the backend. It never stores
// credentials or tokens itself.
type AuthService struct {
	client   *upstream.Client
	verifier auth.Verifier
}

func NewAuthService(client *upstream.Client, verifier auth.Verifier) *AuthService {
	return &AuthService{client: client, verifier: verifier}
}

type LoginResult struct {
	Token     string
	Principal auth.Principal
}

// Login returns the backend-issued token when it belongs to an Admin or
// Moderator. Any other role yields model.ErrUnauthorizedRole.
func (s *AuthService) Login(ctx context.Context, req model.LoginRequest) (LoginResult, error) {
	resp, err := s.client.DoJSON(ctx, http.MethodPost, "/Auth/login", "", req)
	if err != nil {
		return LoginResult{}, err
	}

	var payload map[string]any
	if err := resp.JSON(&payload); err != nil {
		return LoginResult{}, err
	}

	token := tokenFrom(payload)
	if token == "" {
		return LoginResult{}, model.ErrTokenNotIssued
	}

	principal, err := s.verifier.Verify(token)
	if err != nil {
		return LoginResult{}, fmt.Errorf("decode issued token: %w", err)
	}

	if !principal.IsStaff() {
		return LoginResult{}, model.ErrUnauthorizedRole
	}

	return LoginResult{Token: token, Principal: principal}, nil
}

// tokenFrom reads token or accessToken at the top level or under data.
func tokenFrom(payload map[string]any) string {
	for _, key := range []string{"token", "accessToken"} {
		if s, ok := payload[key].(string); ok && strings.TrimSpace(s) != "" {
			return strings.TrimSpace(s)
		}
	}

	if data, ok := payload["data"].(map[string]any); ok {
		return tokenFrom(data)
	}

	return ""
}
