// handlers — REST-обработчики: разбор запроса в типизированные DTO,
// вызов сервисного слоя и сериализация ответа.
package handlers

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/pribylovaa/go-career-advisor/internal/chat"
	apierrors "github.com/pribylovaa/go-career-advisor/internal/errors"
	"github.com/pribylovaa/go-career-advisor/internal/pkg/log"
	"github.com/pribylovaa/go-career-advisor/internal/service"
)

// maxBodyBytes — предел размера JSON-тела запроса.
const maxBodyBytes = 1 << 20

// Handlers агрегирует зависимости обработчиков.
type Handlers struct {
	Service *service.Service
	Bot     *chat.Bot

	started time.Time
	now     func() time.Time
}

func New(svc *service.Service, bot *chat.Bot) *Handlers {
	return &Handlers{Service: svc, Bot: bot, started: time.Now(), now: time.Now}
}

// writeJSON — единый ответ JSON с нужным Content-Type.
// Ошибки выводим через fail.
func writeJSON(w http.ResponseWriter, status int, value any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(value)
}

// decodeStrict — строгий JSON-декодер: запрещаем неизвестные поля и данные после объекта.
// Любая ошибка оборачивается в apierrors.ErrInvalidBody.
func decodeStrict(w http.ResponseWriter, r *http.Request, value any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()

	if err := dec.Decode(value); err != nil {
		return fmt.Errorf("%w: %w", apierrors.ErrInvalidBody, err)
	}

	if dec.More() {
		return fmt.Errorf("%w: trailing data", apierrors.ErrInvalidBody)
	}

	return nil
}

// fail пишет ошибку клиенту; 5xx дополнительно логируются с исходной причиной.
func fail(w http.ResponseWriter, r *http.Request, err error) {
	if status, _ := apierrors.ToHTTP(err); status >= http.StatusInternalServerError {
		log.From(r.Context()).Error("request_failed",
			slog.String("path", r.URL.Path),
			slog.Int("status", status),
			slog.String("err", err.Error()),
		)
	}

	apierrors.WriteError(w, r, err)
}
