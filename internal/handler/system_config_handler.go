package handler

import (
	"net/http"
)

type SystemConfigHandler struct {
	proxy *Proxy
}

func NewSystemConfigHandler(proxy *Proxy) *SystemConfigHandler {
	return &SystemConfigHandler{proxy: proxy}
}

func (h *SystemConfigHandler) List(w http.ResponseWriter, r *http.Request) {
	h.proxy.Forward(w, r, Target{Method: http.MethodGet, Path: Static("/SystemConfigs")})
}

func (h *SystemConfigHandler) Update(w http.ResponseWriter, r *http.Request) {
	h.proxy.Forward(w, r, Target{
		Method:  http.MethodPut,
		Path:    WithParam("SystemConfigs", "key"),
		Message: "System config updated successfully",
	})
}
