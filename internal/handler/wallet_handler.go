package handler

import (
	"net/http"
)

// WalletHandler lists and records point adjustments.
type WalletHandler struct {
	proxy *Proxy
}

func NewWalletHandler(proxy *Proxy) *WalletHandler {
	return &WalletHandler{proxy: proxy}
}

func (h *WalletHandler) ListTransactions(w http.ResponseWriter, r *http.Request) {
	h.proxy.Forward(w, r, Target{Method: http.MethodGet, Path: Static("/WalletTransactions")})
}

func (h *WalletHandler) CreateTransaction(w http.ResponseWriter, r *http.Request) {
	h.proxy.Forward(w, r, Target{
		Method:  http.MethodPost,
		Path:    Static("/WalletTransactions"),
		Status:  http.StatusCreated,
		Message: "Wallet transaction created successfully",
	})
}
