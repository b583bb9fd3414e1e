// chat — прокси к внешнему генеративному ассистенту.
// Ошибка или отсутствие ассистента не передаётся пользователю:
// вместо неё возвращается заготовленный ответ на языке пользователя.
package chat

//go:generate mockgen -destination=../../mocks/mock_assistant.go -package=mocks github.com/pribylovaa/go-career-advisor/internal/chat Assistant

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/pribylovaa/go-career-advisor/internal/metrics"
	"github.com/pribylovaa/go-career-advisor/internal/models"
	"github.com/pribylovaa/go-career-advisor/internal/pkg/log"
)

// ErrEmptyMessage — пустое сообщение пользователя. HTTP 400.
var ErrEmptyMessage = errors.New("empty message")

// aiConfidence — уверенность, сообщаемая для ответа модели; fallback всегда 0.
const aiConfidence = 0.9

var fallbackReplies = map[string]string{
	LangEnglish:    "Sorry, an error occurred while processing your request. Please try again later.",
	LangChinese:    "抱歉，出了點問題，請再試一次。",
	LangVietnamese: "Xin lỗi, đã xảy ra lỗi khi xử lý yêu cầu của bạn. Vui lòng thử lại sau.",
}

// Assistant — внешний сервис текстовых ответов.
type Assistant interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

// Bot отвечает на сообщения чата.
type Bot struct {
	assistant Assistant // nil — ассистент не сконфигурирован, только fallback
	model     string
	timeout   time.Duration
	metrics   *metrics.Metrics
}

// NewBot создаёт Bot. timeout <= 0 — без собственного ограничения времени.
func NewBot(a Assistant, model string, timeout time.Duration) *Bot {
	return &Bot{assistant: a, model: model, timeout: timeout}
}

// SetMetrics подключает метрики (опционально).
func (b *Bot) SetMetrics(m *metrics.Metrics) {
	b.metrics = m
}

// Reply отвечает на сообщение. Единственная возможная ошибка — ErrEmptyMessage.
func (b *Bot) Reply(ctx context.Context, message string, cc models.ChatContext) (models.ChatReply, error) {
	const op = "chat.Reply"

	if strings.TrimSpace(message) == "" {
		return models.ChatReply{}, ErrEmptyMessage
	}

	lg := log.From(ctx).With("op", op, "session_id", cc.SessionID)
	quick := QuickReplies(message, cc)

	if b.assistant == nil {
		lg.Warn("chat_assistant_not_configured")
		return b.fallback(cc, quick), nil
	}

	if b.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, b.timeout)
		defer cancel()
	}

	start := time.Now()
	text, err := b.assistant.Complete(ctx, BuildPrompt(message, cc))
	if err == nil && strings.TrimSpace(text) == "" {
		err = errors.New("empty completion")
	}
	if err != nil {
		lg.Error("chat_completion_failed",
			slog.String("err", err.Error()),
			slog.Duration("took", time.Since(start)),
		)
		return b.fallback(cc, quick), nil
	}

	b.metrics.Chat(metrics.ChatAI)
	lg.Debug("chat_completion_ok", slog.Duration("took", time.Since(start)))

	return models.ChatReply{
		Reply:        text,
		QuickReplies: quick,
		Confidence:   aiConfidence,
		Model:        b.model,
	}, nil
}

func (b *Bot) fallback(cc models.ChatContext, quick []string) models.ChatReply {
	b.metrics.Chat(metrics.ChatFallback)

	return models.ChatReply{
		Reply:        FallbackReply(cc.Language),
		QuickReplies: quick,
		Confidence:   0,
		Fallback:     true,
	}
}

// FallbackReply — заготовленный ответ на языке пользователя.
func FallbackReply(lang string) string {
	return fallbackReplies[normalizeLang(lang)]
}
