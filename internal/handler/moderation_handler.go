package handler

import (
	"net/http"
)

// ModerationHandler covers flagged comments and user bug reports.
type ModerationHandler struct {
	proxy *Proxy
}

func NewModerationHandler(proxy *Proxy) *ModerationHandler {
	return &ModerationHandler{proxy: proxy}
}

func (h *ModerationHandler) ListComments(w http.ResponseWriter, r *http.Request) {
	h.proxy.Forward(w, r, Target{Method: http.MethodGet, Path: Static("/Comment")})
}

func (h *ModerationHandler) ListFlaggedComments(w http.ResponseWriter, r *http.Request) {
	h.proxy.Forward(w, r, Target{Method: http.MethodGet, Path: Static("/Comment/flagged")})
}

func (h *ModerationHandler) ModerateComment(w http.ResponseWriter, r *http.Request) {
	h.proxy.Forward(w, r, Target{
		Method:  http.MethodPut,
		Path:    WithParam("Comment", "id", "moderate"),
		Message: "Comment moderated successfully",
	})
}

func (h *ModerationHandler) DeleteComment(w http.ResponseWriter, r *http.Request) {
	h.proxy.Forward(w, r, Target{
		Method:  http.MethodDelete,
		Path:    WithParam("Comment", "id"),
		Message: "Comment deleted successfully",
	})
}

func (h *ModerationHandler) ListIssues(w http.ResponseWriter, r *http.Request) {
	h.proxy.Forward(w, r, Target{Method: http.MethodGet, Path: Static("/IssueReport")})
}

func (h *ModerationHandler) GetIssue(w http.ResponseWriter, r *http.Request) {
	h.proxy.Forward(w, r, Target{Method: http.MethodGet, Path: WithParam("IssueReport", "id")})
}

func (h *ModerationHandler) UpdateIssueStatus(w http.ResponseWriter, r *http.Request) {
	h.proxy.Forward(w, r, Target{
		Method:  http.MethodPut,
		Path:    WithParam("IssueReport", "id", "status"),
		Message: "Issue status updated successfully",
	})
}
