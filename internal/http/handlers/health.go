package handlers

import (
	"net/http"
)

// Health — публичная проверка состояния с признаком доступности хранилища.
// Всегда 200: для оркестратора есть /healthz.
func (h *Handlers) Health(w http.ResponseWriter, r *http.Request) {
	db := "connected"
	if err := h.Service.Ping(r.Context()); err != nil {
		db = "disconnected"
	}

	now := h.now()
	writeJSON(w, http.StatusOK, healthResponse{
		Status:    "ok",
		Timestamp: now.UTC(),
		Database:  db,
		Uptime:    now.Sub(h.started).Seconds(),
	})
}
