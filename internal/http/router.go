package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/pribylovaa/go-career-advisor/internal/chat"
	apierrors "github.com/pribylovaa/go-career-advisor/internal/errors"
	"github.com/pribylovaa/go-career-advisor/internal/http/handlers"
	"github.com/pribylovaa/go-career-advisor/internal/http/middleware"
	"github.com/pribylovaa/go-career-advisor/internal/metrics"
	"github.com/pribylovaa/go-career-advisor/internal/service"
)

// Options — параметры сборки HTTP-роутера.
type Options struct {
	Logger   *slog.Logger
	Timeout  time.Duration
	BasePath string // например, "/api"; если пустой — роуты регистрируются на корне.
	Metrics  *metrics.Metrics
}

// NewRouter собирает http.Handler с chi и подключёнными middleware/роутами.
func NewRouter(svc *service.Service, bot *chat.Bot, opts Options) http.Handler {
	root := chi.NewRouter()

	// Middleware (внешний -> внутренний).
	root.Use(
		middleware.Recover(),             // безопасно ловим паники
		middleware.RequestID(),           // формируем/прокидываем X-Request-Id (до логирования!)
		middleware.Logging(opts.Logger),  // кладём request-scoped логгер в контекст и логируем
		middleware.Metrics(opts.Metrics), // счётчики и гистограммы по шаблону маршрута
	)
	if opts.Timeout > 0 {
		root.Use(middleware.Timeout(opts.Timeout)) // общий дедлайн запроса
	}

	root.NotFound(func(w http.ResponseWriter, r *http.Request) {
		apierrors.WriteError(w, r, apierrors.WithMessage(service.ErrNotFound, "Route not found"))
	})
	root.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		apierrors.WriteError(w, r, apierrors.ErrMethodNotAllowed)
	})

	h := handlers.New(svc, bot)

	if opts.BasePath != "" {
		sub := chi.NewRouter()
		registerRoutes(sub, h, svc)
		root.Mount(opts.BasePath, sub)
		return root
	}

	registerRoutes(root, h, svc)
	return root
}

// registerRoutes — единая точка регистрации всех REST-эндпойнтов.
func registerRoutes(r chi.Router, h *handlers.Handlers, v middleware.Verifier) {
	r.Get("/health", h.Health)

	// auth
	r.Post("/register", h.Register)
	r.Post("/login", h.Login)
	r.Post("/refresh", h.Refresh)
	r.Post("/logout", h.Logout)

	// chat: токен необязателен
	r.With(middleware.OptionalAuth(v)).Post("/chatbot/message", h.ChatMessage)

	// защищённые маршруты: владелец токена должен совпадать с {userId} и userId в теле
	r.Group(func(r chi.Router) {
		r.Use(middleware.Authenticate(v), middleware.RequireOwner())

		r.Post("/test-results", h.SubmitResult)
		r.Get("/test-results/{userId}", h.ListResults)
		r.Post("/test-results/{userId}/{resultId}/export", h.ExportResult)
		r.Put("/users/{userId}/profile", h.UpdateProfile)
	})
}
