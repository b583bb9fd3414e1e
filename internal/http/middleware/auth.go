package middleware

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	apierrors "github.com/pribylovaa/go-career-advisor/internal/errors"
	"github.com/pribylovaa/go-career-advisor/internal/models"
	"github.com/pribylovaa/go-career-advisor/internal/pkg/log"
	"github.com/pribylovaa/go-career-advisor/internal/service"
)

// maxOwnerProbe — предел тела для проверки поля userId; тело больше предела отклоняется.
const maxOwnerProbe = 1 << 20

// Verifier проверяет access-токен (service.Service).
type Verifier interface {
	VerifyAccess(token string) (models.Identity, error)
}

// IdentityFrom возвращает пользователя, установленного Authenticate/OptionalAuth.
func IdentityFrom(ctx context.Context) (models.Identity, bool) {
	id, ok := ctx.Value(ctxIdentity).(models.Identity)
	return id, ok
}

// bearer извлекает токен из "Authorization: Bearer <token>".
func bearer(r *http.Request) string {
	const prefix = "Bearer "

	auth := r.Header.Get("Authorization")
	if len(auth) <= len(prefix) || !strings.EqualFold(auth[:len(prefix)], prefix) {
		return ""
	}

	return strings.TrimSpace(auth[len(prefix):])
}

func withIdentity(r *http.Request, id models.Identity) *http.Request {
	ctx := context.WithValue(r.Context(), ctxIdentity, id)
	ctx = log.With(ctx, "user_id", id.UserID.String())
	return r.WithContext(ctx)
}

// Authenticate требует валидный access-токен; иначе 401.
func Authenticate(v Verifier) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := bearer(r)
			if token == "" {
				apierrors.WriteError(w, r, service.ErrUnauthorized)
				return
			}

			id, err := v.VerifyAccess(token)
			if err != nil {
				apierrors.WriteError(w, r, err)
				return
			}

			next.ServeHTTP(w, withIdentity(r, id))
		})
	}
}

// OptionalAuth устанавливает пользователя, если передан валидный токен.
// Отсутствующий или невалидный токен не ошибка: запрос идёт как анонимный.
func OptionalAuth(v Verifier) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if token := bearer(r); token != "" {
				if id, err := v.VerifyAccess(token); err == nil {
					r = withIdentity(r, id)
				}
			}

			next.ServeHTTP(w, r)
		})
	}
}

// RequireOwner сверяет идентификатор пользователя в запросе с владельцем токена:
// параметр пути {userId} и поле userId верхнего уровня в JSON-теле. Несовпадение — 403.
// Ставится после Authenticate.
func RequireOwner() Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id, ok := IdentityFrom(r.Context())
			if !ok {
				apierrors.WriteError(w, r, service.ErrUnauthorized)
				return
			}

			if p := chi.URLParam(r, "userId"); p != "" && !owns(p, id) {
				apierrors.WriteError(w, r, service.ErrForbidden)
				return
			}

			if r.Body != nil && r.Body != http.NoBody {
				body, err := io.ReadAll(io.LimitReader(r.Body, maxOwnerProbe+1))
				if err != nil {
					apierrors.WriteError(w, r, apierrors.ErrInvalidBody)
					return
				}
				_ = r.Body.Close()
				if len(body) > maxOwnerProbe {
					apierrors.WriteError(w, r, apierrors.ErrInvalidBody)
					return
				}
				r.Body = io.NopCloser(bytes.NewReader(body))

				// Битый JSON здесь не ошибка: его отклонит строгий декодер хендлера.
				var probe struct {
					UserID *string `json:"userId"`
				}
				if json.Unmarshal(body, &probe) == nil && probe.UserID != nil && !owns(*probe.UserID, id) {
					apierrors.WriteError(w, r, service.ErrForbidden)
					return
				}
			}

			next.ServeHTTP(w, r)
		})
	}
}

func owns(raw string, id models.Identity) bool {
	u, err := uuid.Parse(raw)
	return err == nil && u == id.UserID
}
