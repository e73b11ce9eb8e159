package handler

import (
	"context"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	gorillaws "github.com/gorilla/websocket"

	"storyteller-admin/internal/auth"
	"storyteller-admin/internal/middleware"
	"storyteller-admin/internal/model"
	"storyteller-admin/internal/pipeline"
	"storyteller-admin/internal/websocket"
)

const defaultRunListLimit = 50

type PipelineRunner interface {
	Start(ctx context.Context, token string, createdBy string, req pipeline.Request) (pipeline.Run, error)
	Get(ctx context.Context, id string) (pipeline.Run, error)
	List(ctx context.Context, limit int) ([]pipeline.Run, error)
}

type PipelineHandler struct {
	runner   PipelineRunner
	hub      *websocket.Hub
	upgrader *gorillaws.Upgrader
}

func NewPipelineHandler(runner PipelineRunner, hub *websocket.Hub, upgrader *gorillaws.Upgrader) *PipelineHandler {
	return &PipelineHandler{runner: runner, hub: hub, upgrader: upgrader}
}

// Start accepts a generation run and returns it in the Pending state. Progress
// is available from Get and the websocket stream.
func (h *PipelineHandler) Start(w http.ResponseWriter, r *http.Request) {
	token, ok := sessionToken(w, r)
	if !ok {
		return
	}
	principal, _ := middleware.PrincipalFromContext(r.Context())

	var payload model.PipelineRequest
	if err := decodeJSON(w, r, &payload); err != nil {
		writeError(w, err)
		return
	}

	run, err := h.runner.Start(r.Context(), token, principal.Subject, pipeline.Request{
		StoryID:       payload.StoryID,
		PanelID:       payload.PanelID,
		PanelIndex:    payload.PanelIndex,
		Prompt:        payload.Prompt,
		GenerateImage: payload.GenerateImage,
		Narration:     payload.Narration,
		VoiceProvider: payload.VoiceProvider,
		Voice:         payload.Voice,
	})
	if err != nil {
		writeError(w, err)
		return
	}

	writeSuccess(w, http.StatusAccepted, "Pipeline started", run)
}

// List returns recent runs; moderators only see their own.
func (h *PipelineHandler) List(w http.ResponseWriter, r *http.Request) {
	principal, _ := middleware.PrincipalFromContext(r.Context())

	limit := defaultRunListLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil && parsed > 0 {
			limit = parsed
		}
	}

	runs, err := h.runner.List(r.Context(), limit)
	if err != nil {
		writeError(w, err)
		return
	}

	visible := make([]pipeline.Run, 0, len(runs))
	for _, run := range runs {
		if canSee(principal, run) {
			visible = append(visible, run)
		}
	}

	writeSuccess(w, http.StatusOK, "", visible)
}

func (h *PipelineHandler) Get(w http.ResponseWriter, r *http.Request) {
	principal, _ := middleware.PrincipalFromContext(r.Context())

	run, err := h.runner.Get(r.Context(), chi.URLParam(r, "runID"))
	if err != nil {
		writeError(w, err)
		return
	}
	if !canSee(principal, run) {
		writeError(w, model.ErrRunNotFound)
		return
	}

	writeSuccess(w, http.StatusOK, "", run)
}

// Stream upgrades to a websocket carrying pipeline events.
func (h *PipelineHandler) Stream(w http.ResponseWriter, r *http.Request) {
	principal, _ := middleware.PrincipalFromContext(r.Context())

	client := websocket.NewClient(h.hub, principal.Subject, principal.IsAdmin())
	websocket.Serve(r.Context(), h.hub, h.upgrader, w, r, client)
}

func canSee(principal auth.Principal, run pipeline.Run) bool {
	return principal.IsAdmin() || (run.CreatedBy != "" && run.CreatedBy == principal.Subject)
}
