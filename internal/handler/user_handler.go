package handler

import (
	"net/http"
)

// UserHandler forwards user administration and notification routes to the
// backend /User resource.
type UserHandler struct {
	proxy *Proxy
}

func NewUserHandler(proxy *Proxy) *UserHandler {
	return &UserHandler{proxy: proxy}
}

func (h *UserHandler) List(w http.ResponseWriter, r *http.Request) {
	h.proxy.Forward(w, r, Target{Method: http.MethodGet, Path: Static("/User")})
}

func (h *UserHandler) Create(w http.ResponseWriter, r *http.Request) {
	h.proxy.Forward(w, r, Target{
		Method:  http.MethodPost,
		Path:    Static("/User"),
		Status:  http.StatusCreated,
		Message: "User created successfully",
	})
}

func (h *UserHandler) Get(w http.ResponseWriter, r *http.Request) {
	h.proxy.Forward(w, r, Target{Method: http.MethodGet, Path: WithParam("User", "id")})
}

func (h *UserHandler) Update(w http.ResponseWriter, r *http.Request) {
	h.proxy.Forward(w, r, Target{
		Method:  http.MethodPut,
		Path:    WithParam("User", "id"),
		Message: "User updated successfully",
	})
}

func (h *UserHandler) Delete(w http.ResponseWriter, r *http.Request) {
	h.proxy.Forward(w, r, Target{
		Method:  http.MethodDelete,
		Path:    WithParam("User", "id"),
		Message: "User deleted successfully",
	})
}

// UpdateStatus bans, unbans or activates a user.
func (h *UserHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	h.proxy.Forward(w, r, Target{
		Method:  http.MethodPut,
		Path:    WithParam("User", "id", "status"),
		Message: "User status updated successfully",
	})
}

func (h *UserHandler) ListNotifications(w http.ResponseWriter, r *http.Request) {
	h.proxy.Forward(w, r, Target{Method: http.MethodGet, Path: Static("/User/notifications")})
}

func (h *UserHandler) SendNotification(w http.ResponseWriter, r *http.Request) {
	h.proxy.Forward(w, r, Target{
		Method:  http.MethodPost,
		Path:    Static("/User/notifications"),
		Status:  http.StatusCreated,
		Message: "Notification sent successfully",
	})
}
