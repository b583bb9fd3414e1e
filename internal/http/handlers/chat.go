package handlers

import (
	"log/slog"
	"net/http"

	"github.com/pribylovaa/go-career-advisor/internal/http/middleware"
	"github.com/pribylovaa/go-career-advisor/internal/pkg/log"
)

// ChatMessage проксирует реплику к AI-ассистенту. Сбой ассистента не ошибка:
// клиент получает 200 с заготовленным ответом и confidence 0.
//
// Признак аутентификации и сводку результатов определяет сервер: с валидным
// токеном сводка строится по последнему сохранённому результату, без токена
// заявления клиента об аутентификации отбрасываются.
func (h *Handlers) ChatMessage(w http.ResponseWriter, r *http.Request) {
	var in chatRequest
	if err := decodeStrict(w, r, &in); err != nil {
		fail(w, r, err)
		return
	}

	ctx := r.Context()
	cc := in.Context.toModel()

	if id, ok := middleware.IdentityFrom(ctx); ok {
		cc.IsAuthenticated = true
		cc.UserID = id.UserID.String()
		if cc.UserName == "" {
			cc.UserName = id.Username
		}

		summary, err := h.Service.LatestSummary(ctx, id)
		if err != nil {
			log.From(ctx).Warn("chat_summary_failed", slog.String("err", err.Error()))
		} else {
			cc.Summary = &summary
		}
	} else {
		cc.IsAuthenticated = false
		cc.UserID = ""
	}

	reply, err := h.Bot.Reply(ctx, in.Message, cc)
	if err != nil {
		fail(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, chatFromModel(reply))
}
