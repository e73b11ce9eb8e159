package handler

import (
	"fmt"
	"net/http"
	"strings"

	"storyteller-admin/internal/model"
	"storyteller-admin/internal/service"
)

type StoryHandler struct {
	proxy   *Proxy
	service *service.StoryService
}

func NewStoryHandler(proxy *Proxy, service *service.StoryService) *StoryHandler {
	return &StoryHandler{proxy: proxy, service: service}
}

func (h *StoryHandler) List(w http.ResponseWriter, r *http.Request) {
	h.proxy.Forward(w, r, Target{Method: http.MethodGet, Path: Static("/Story")})
}

func (h *StoryHandler) Create(w http.ResponseWriter, r *http.Request) {
	h.proxy.Forward(w, r, Target{
		Method:  http.MethodPost,
		Path:    Static("/Story"),
		Status:  http.StatusCreated,
		Message: "Story created successfully",
	})
}

func (h *StoryHandler) Get(w http.ResponseWriter, r *http.Request) {
	h.proxy.Forward(w, r, Target{Method: http.MethodGet, Path: WithParam("Story", "id")})
}

func (h *StoryHandler) Update(w http.ResponseWriter, r *http.Request) {
	h.proxy.Forward(w, r, Target{
		Method:  http.MethodPut,
		Path:    WithParam("Story", "id"),
		Message: "Story updated successfully",
	})
}

func (h *StoryHandler) Delete(w http.ResponseWriter, r *http.Request) {
	h.proxy.Forward(w, r, Target{
		Method:  http.MethodDelete,
		Path:    WithParam("Story", "id"),
		Message: "Story deleted successfully",
	})
}

func (h *StoryHandler) SetFeatured(w http.ResponseWriter, r *http.Request) {
	h.proxy.Forward(w, r, Target{
		Method:  http.MethodPut,
		Path:    WithParam("Story", "id", "featured"),
		Message: "Story featured status updated successfully",
	})
}

func (h *StoryHandler) RequestPublish(w http.ResponseWriter, r *http.Request) {
	h.proxy.Forward(w, r, Target{
		Method:  http.MethodPost,
		Path:    WithParam("Story", "id", "publish-request"),
		Message: "Publish request submitted successfully",
	})
}

func (h *StoryHandler) ListPending(w http.ResponseWriter, r *http.Request) {
	h.proxy.Forward(w, r, Target{Method: http.MethodGet, Path: Static("/Story/publish-request")})
}

// Review approves or rejects a pending publish request.
func (h *StoryHandler) Review(w http.ResponseWriter, r *http.Request) {
	token, ok := sessionToken(w, r)
	if !ok {
		return
	}

	var payload model.ReviewRequest
	if err := decodeJSON(w, r, &payload); err != nil {
		writeError(w, err)
		return
	}

	resp, err := h.service.Review(r.Context(), token, payload)
	if err != nil {
		writeError(w, err)
		return
	}

	data, err := resp.Raw()
	if err != nil {
		writeError(w, fmt.Errorf("review story: %w", err))
		return
	}

	action := strings.ToLower(strings.TrimSpace(payload.Action))
	message := "Story approved successfully"
	if action == service.ReviewReject {
		message = "Story rejected successfully"
	}

	writeSuccess(w, http.StatusOK, message, data)
}
