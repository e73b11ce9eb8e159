package handler

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"storyteller-admin/internal/model"
	"storyteller-admin/internal/service"
)

func newTestStoryHandler(backend *fakeBackend) *StoryHandler {
	client := backend.client()
	return NewStoryHandler(NewProxy(client), service.NewStoryService(client))
}

func TestReviewSendsActionAndNotes(t *testing.T) {
	tests := []struct {
		name        string
		body        string
		wantPath    string
		wantBody    string
		wantMessage string
	}{
		{
			name:        "approve with empty notes uses default",
			body:        `{"id":5,"action":"approve","reviewNotes":""}`,
			wantPath:    "/Story/publish-request/approve",
			wantBody:    `{"id":5,"reviewNotes":"Approved by admin"}`,
			wantMessage: "Story approved successfully",
		},
		{
			name:        "reject is case insensitive",
			body:        `{"id":"st-9","action":"REJECT"}`,
			wantPath:    "/Story/publish-request/reject",
			wantBody:    `{"id":"st-9","reviewNotes":"Rejected by admin"}`,
			wantMessage: "Story rejected successfully",
		},
		{
			name:        "explicit notes are kept",
			body:        `{"id":5,"action":"Approve","reviewNotes":"Lovely pictures"}`,
			wantPath:    "/Story/publish-request/approve",
			wantBody:    `{"id":5,"reviewNotes":"Lovely pictures"}`,
			wantMessage: "Story approved successfully",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			backend := newFakeBackend(t, http.StatusOK, `{"status":"ok"}`)
			h := newTestStoryHandler(backend)
			token := signedToken(t, model.RoleAdmin)

			rec := httptest.NewRecorder()
			serve(http.MethodPost, "/api/stories/pending", h.Review).ServeHTTP(rec,
				newRequest(http.MethodPost, "/api/stories/pending", tt.body, token))

			require.Equal(t, http.StatusOK, rec.Code)
			assert.JSONEq(t, `{"message":"`+tt.wantMessage+`","data":{"status":"ok"}}`, rec.Body.String())

			call := backend.lastRequest(t)
			assert.Equal(t, http.MethodPut, call.Method)
			assert.Equal(t, tt.wantPath, call.Path)
			assert.Equal(t, "Bearer "+token, call.Authorization)
			assert.JSONEq(t, tt.wantBody, call.Body)
		})
	}
}

func TestReviewRejectsBadInput(t *testing.T) {
	tests := []struct {
		name        string
		body        string
		wantMessage string
	}{
		{name: "unknown action", body: `{"id":5,"action":"publish"}`, wantMessage: "Invalid action"},
		{name: "missing action", body: `{"id":5}`, wantMessage: "Invalid action"},
		{name: "missing id", body: `{"action":"approve"}`, wantMessage: "Story id is required"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			backend := newFakeBackend(t, http.StatusOK, `{}`)
			h := newTestStoryHandler(backend)

			rec := httptest.NewRecorder()
			serve(http.MethodPost, "/api/stories/pending", h.Review).ServeHTTP(rec,
				newRequest(http.MethodPost, "/api/stories/pending", tt.body, signedToken(t, model.RoleAdmin)))

			require.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Equal(t, tt.wantMessage, decodeBody(t, rec)["message"])
			backend.requireNoCalls(t)
		})
	}
}

func TestReviewUpstreamFailureKeepsStatus(t *testing.T) {
	backend := newFakeBackend(t, http.StatusNotFound, `{"message":"Publish request not found"}`)
	h := newTestStoryHandler(backend)

	rec := httptest.NewRecorder()
	serve(http.MethodPost, "/api/stories/pending", h.Review).ServeHTTP(rec,
		newRequest(http.MethodPost, "/api/stories/pending", `{"id":5,"action":"approve"}`, signedToken(t, model.RoleAdmin)))

	require.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "Publish request not found", decodeBody(t, rec)["message"])
}

func TestListPendingForwardsQuery(t *testing.T) {
	backend := newFakeBackend(t, http.StatusOK, `[]`)
	h := newTestStoryHandler(backend)

	rec := httptest.NewRecorder()
	serve(http.MethodGet, "/api/stories/pending", h.ListPending).ServeHTTP(rec,
		newRequest(http.MethodGet, "/api/stories/pending?status=Pending", "", signedToken(t, model.RoleModerator)))

	require.Equal(t, http.StatusOK, rec.Code)
	call := backend.lastRequest(t)
	assert.Equal(t, "/Story/publish-request", call.Path)
	assert.Equal(t, "status=Pending", call.RawQuery)
}
