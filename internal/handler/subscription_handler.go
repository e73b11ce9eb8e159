package handler

import (
	"net/http"
)

type SubscriptionHandler struct {
	proxy *Proxy
}

func NewSubscriptionHandler(proxy *Proxy) *SubscriptionHandler {
	return &SubscriptionHandler{proxy: proxy}
}

func (h *SubscriptionHandler) List(w http.ResponseWriter, r *http.Request) {
	h.proxy.Forward(w, r, Target{Method: http.MethodGet, Path: Static("/Subscription")})
}

func (h *SubscriptionHandler) Create(w http.ResponseWriter, r *http.Request) {
	h.proxy.Forward(w, r, Target{
		Method:  http.MethodPost,
		Path:    Static("/Subscription"),
		Status:  http.StatusCreated,
		Message: "Subscription created successfully",
	})
}

func (h *SubscriptionHandler) Get(w http.ResponseWriter, r *http.Request) {
	h.proxy.Forward(w, r, Target{Method: http.MethodGet, Path: WithParam("Subscription", "id")})
}

func (h *SubscriptionHandler) Update(w http.ResponseWriter, r *http.Request) {
	h.proxy.Forward(w, r, Target{
		Method:  http.MethodPut,
		Path:    WithParam("Subscription", "id"),
		Message: "Subscription updated successfully",
	})
}

func (h *SubscriptionHandler) Delete(w http.ResponseWriter, r *http.Request) {
	h.proxy.Forward(w, r, Target{
		Method:  http.MethodDelete,
		Path:    WithParam("Subscription", "id"),
		Message: "Subscription deleted successfully",
	})
}

// BillingHistory forwards filters such as ?userId= unchanged.
func (h *SubscriptionHandler) BillingHistory(w http.ResponseWriter, r *http.Request) {
	h.proxy.Forward(w, r, Target{Method: http.MethodGet, Path: Static("/Subscription/billing-history")})
}
