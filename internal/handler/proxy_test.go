package handler

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"storyteller-admin/internal/model"
	"storyteller-admin/internal/upstream"
)

func TestProxyForwardsWithBearerToken(t *testing.T) {
	backend := newFakeBackend(t, http.StatusOK, `[{"id":1,"username":"kid"}]`)
	users := NewUserHandler(NewProxy(backend.client()))
	token := signedToken(t, model.RoleAdmin)

	rec := httptest.NewRecorder()
	serve(http.MethodGet, "/api/users", users.List).ServeHTTP(rec, newRequest(http.MethodGet, "/api/users?page=2&role=User", "", token))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"data":[{"id":1,"username":"kid"}]}`, rec.Body.String())

	call := backend.lastRequest(t)
	assert.Equal(t, http.MethodGet, call.Method)
	assert.Equal(t, "/User", call.Path)
	assert.Equal(t, "page=2&role=User", call.RawQuery)
	assert.Equal(t, "Bearer "+token, call.Authorization)
}

func TestProxyMutationUsesFixedStatusAndMessage(t *testing.T) {
	backend := newFakeBackend(t, http.StatusOK, `{"id":7}`)
	users := NewUserHandler(NewProxy(backend.client()))

	rec := httptest.NewRecorder()
	serve(http.MethodPost, "/api/users", users.Create).ServeHTTP(rec,
		newRequest(http.MethodPost, "/api/users", `{"username":"new"}`, signedToken(t, model.RoleAdmin)))

	require.Equal(t, http.StatusCreated, rec.Code)
	assert.JSONEq(t, `{"message":"User created successfully","data":{"id":7}}`, rec.Body.String())
	assert.JSONEq(t, `{"username":"new"}`, backend.lastRequest(t).Body)
}

func TestProxyPathParameters(t *testing.T) {
	backend := newFakeBackend(t, http.StatusNoContent, "")
	users := NewUserHandler(NewProxy(backend.client()))

	rec := httptest.NewRecorder()
	serve(http.MethodPut, "/api/users/{id}/status", users.UpdateStatus).ServeHTTP(rec,
		newRequest(http.MethodPut, "/api/users/42/status", `{"status":"banned"}`, signedToken(t, model.RoleAdmin)))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "/User/42/status", backend.lastRequest(t).Path)
	assert.Equal(t, "User status updated successfully", decodeBody(t, rec)["message"])
}

func TestProxyKeepsUpstreamFailureStatus(t *testing.T) {
	tests := []struct {
		name        string
		status      int
		body        string
		wantMessage string
	}{
		{name: "not found with message", status: http.StatusNotFound, body: `{"message":"User not found"}`, wantMessage: "User not found"},
		{name: "problem details title", status: http.StatusBadRequest, body: `{"title":"One or more validation errors occurred."}`, wantMessage: "One or more validation errors occurred."},
		{name: "no message falls back to status text", status: http.StatusConflict, body: `{}`, wantMessage: "Conflict"},
		{name: "server error", status: http.StatusBadGateway, body: `{"message":"gateway down"}`, wantMessage: "gateway down"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			backend := newFakeBackend(t, tt.status, tt.body)
			stories := NewStoryHandler(NewProxy(backend.client()), nil)

			rec := httptest.NewRecorder()
			serve(http.MethodGet, "/api/stories/{id}", stories.Get).ServeHTTP(rec,
				newRequest(http.MethodGet, "/api/stories/9", "", signedToken(t, model.RoleModerator)))

			require.Equal(t, tt.status, rec.Code)
			body := decodeBody(t, rec)
			assert.Equal(t, tt.wantMessage, body["message"])
			if tt.body != `{}` {
				assert.NotNil(t, body["error"])
			}
		})
	}
}

func TestProxyNetworkFailureIsInternalError(t *testing.T) {
	closed := httptest.NewServer(http.NotFoundHandler())
	closed.Close()

	subscriptions := NewSubscriptionHandler(NewProxy(upstream.New(closed.URL, time.Second)))

	rec := httptest.NewRecorder()
	serve(http.MethodGet, "/api/subscriptions", subscriptions.List).ServeHTTP(rec,
		newRequest(http.MethodGet, "/api/subscriptions", "", signedToken(t, model.RoleAdmin)))

	require.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.JSONEq(t, `{"message":"Internal Server Error"}`, rec.Body.String())
}

func TestProxyNonJSONSuccessIsInternalError(t *testing.T) {
	backend := newFakeBackend(t, http.StatusOK, `<html>oops</html>`)
	wallet := NewWalletHandler(NewProxy(backend.client()))

	rec := httptest.NewRecorder()
	serve(http.MethodGet, "/api/wallet/transactions", wallet.ListTransactions).ServeHTTP(rec,
		newRequest(http.MethodGet, "/api/wallet/transactions", "", signedToken(t, model.RoleAdmin)))

	require.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.JSONEq(t, `{"message":"Internal Server Error"}`, rec.Body.String())
}

func TestProxyMissingTokenIsInternalError(t *testing.T) {
	backend := newFakeBackend(t, http.StatusOK, `[]`)
	moderation := NewModerationHandler(NewProxy(backend.client()))

	rec := httptest.NewRecorder()
	serve(http.MethodGet, "/api/comments", moderation.ListComments).ServeHTTP(rec,
		newRequest(http.MethodGet, "/api/comments", "", ""))

	require.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.JSONEq(t, `{"message":"Internal Server Error"}`, rec.Body.String())
	backend.requireNoCalls(t)
}

func TestProxyRejectsInvalidJSONBody(t *testing.T) {
	backend := newFakeBackend(t, http.StatusOK, `{}`)
	configs := NewSystemConfigHandler(NewProxy(backend.client()))

	rec := httptest.NewRecorder()
	serve(http.MethodPut, "/api/system-configs/{key}", configs.Update).ServeHTTP(rec,
		newRequest(http.MethodPut, "/api/system-configs/maxStories", `{"value":`, signedToken(t, model.RoleAdmin)))

	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Invalid JSON body", decodeBody(t, rec)["message"])
	backend.requireNoCalls(t)
}
