package service

import (
	"context"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/pribylovaa/go-career-advisor/internal/cache"
	"github.com/pribylovaa/go-career-advisor/internal/metrics"
	"github.com/pribylovaa/go-career-advisor/internal/models"
	"github.com/pribylovaa/go-career-advisor/internal/pkg/log"
	"github.com/pribylovaa/go-career-advisor/internal/storage"
)

// tokenClaims — claims обоих видов токенов; вид фиксируется в "kind".
type tokenClaims struct {
	Kind     string `json:"kind"`
	Username string `json:"username,omitempty"`
	jwt.RegisteredClaims
}

// keyFor возвращает секрет и TTL для вида токена.
func (s *Service) keyFor(kind models.TokenKind) ([]byte, time.Duration, error) {
	switch kind {
	case models.TokenAccess:
		return []byte(s.cfg.AccessSecret), s.cfg.AccessTokenTTL, nil
	case models.TokenRefresh:
		return []byte(s.cfg.RefreshSecret), s.cfg.RefreshTokenTTL, nil
	default:
		return nil, 0, fmt.Errorf("unknown token kind %d", kind)
	}
}

// sign подписывает токен заданного вида (HS256). Каждый токен получает случайный jti,
// поэтому два токена, выпущенные в одну секунду, различаются.
func (s *Service) sign(kind models.TokenKind, user *models.User, now time.Time) (string, time.Time, error) {
	const op = "service.token.sign"

	secret, ttl, err := s.keyFor(kind)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("%s: %w", op, err)
	}

	exp := now.Add(ttl)
	claims := tokenClaims{
		Kind:     kind.String(),
		Username: user.Username,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   user.ID.String(),
			Issuer:    s.cfg.Issuer,
			Audience:  jwt.ClaimStrings(s.cfg.Audience),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("%s: %w", op, err)
	}

	return signed, exp, nil
}

// parse проверяет подпись, алгоритм, issuer, audience, срок и вид токена.
// Любое несоответствие -> ErrUnauthorized.
func (s *Service) parse(kind models.TokenKind, raw string) (*tokenClaims, uuid.UUID, error) {
	const op = "service.token.parse"

	secret, _, err := s.keyFor(kind)
	if err != nil {
		return nil, uuid.Nil, fmt.Errorf("%s: %w", op, err)
	}

	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithLeeway(5 * time.Second),
		jwt.WithIssuer(s.cfg.Issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	}
	if len(s.cfg.Audience) > 0 {
		opts = append(opts, jwt.WithAudience(s.cfg.Audience...))
	}

	claims := &tokenClaims{}
	token, err := jwt.ParseWithClaims(raw, claims,
		func(t *jwt.Token) (interface{}, error) {
			return secret, nil
		},
		opts...,
	)
	if err != nil || !token.Valid {
		return nil, uuid.Nil, fmt.Errorf("%s: %w", op, ErrUnauthorized)
	}

	if got, ok := models.ParseTokenKind(claims.Kind); !ok || got != kind {
		return nil, uuid.Nil, fmt.Errorf("%s: %w", op, ErrUnauthorized)
	}

	uid, err := uuid.Parse(claims.Subject)
	if err != nil {
		return nil, uuid.Nil, fmt.Errorf("%s: %w", op, ErrUnauthorized)
	}

	return claims, uid, nil
}

// hashToken — sha256 от сырого токена в base64url; именно это значение хранится в БД.
func hashToken(raw string) string {
	sum := sha256.Sum256([]byte(raw))
	return base64.RawURLEncoding.EncodeToString(sum[:])
}

// IssueTokenPair выпускает access+refresh и сохраняет хэш refresh в хранилище отзыва.
func (s *Service) IssueTokenPair(ctx context.Context, user *models.User) (*models.TokenPair, error) {
	const (
		op          = "service.token.IssueTokenPair"
		maxAttempts = 5
	)

	lg := log.From(ctx).With("op", op, "user_id", user.ID.String())
	now := s.now()

	access, accessExp, err := s.sign(models.TokenAccess, user, now)
	if err != nil {
		s.metrics.Token("issue", metrics.OutcomeError)
		lg.Error("access_token_sign_failed", slog.String("err", err.Error()))
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	for attempt := 0; attempt < maxAttempts; attempt++ {
		refresh, refreshExp, err := s.sign(models.TokenRefresh, user, now)
		if err != nil {
			s.metrics.Token("issue", metrics.OutcomeError)
			lg.Error("refresh_token_sign_failed", slog.String("err", err.Error()))
			return nil, fmt.Errorf("%s: %w", op, err)
		}

		rt := &models.RefreshToken{
			Hash:      hashToken(refresh),
			UserID:    user.ID,
			CreatedAt: now,
			ExpiresAt: refreshExp,
		}

		if err := s.storage.SaveRefreshToken(ctx, rt); err != nil {
			if errors.Is(err, storage.ErrAlreadyExists) {
				// Редкая коллизия — пробуем сгенерировать заново.
				continue
			}

			s.metrics.Token("issue", metrics.OutcomeError)
			lg.Error("save_refresh_token_failed", slog.String("err", err.Error()))
			return nil, fmt.Errorf("%s: %w", op, err)
		}

		if s.rcache != nil {
			if err := s.rcache.Remember(ctx, rt); err != nil {
				lg.Warn("refresh_cache_remember_failed", slog.String("err", err.Error()))
			}
		}

		s.metrics.Token("issue", metrics.OutcomeOK)
		return &models.TokenPair{
			AccessToken:     access,
			RefreshToken:    refresh,
			AccessExpiresAt: accessExp,
		}, nil
	}

	s.metrics.Token("issue", metrics.OutcomeError)
	lg.Error("refresh_collision_exceeded")

	return nil, fmt.Errorf("%s: %w", op, ErrRefreshTokenCollision)
}

// VerifyAccess проверяет access-токен без обращения к хранилищу.
func (s *Service) VerifyAccess(raw string) (models.Identity, error) {
	const op = "service.token.VerifyAccess"

	claims, uid, err := s.parse(models.TokenAccess, raw)
	if err != nil {
		s.metrics.Token("verify", metrics.OutcomeUnauthorized)
		return models.Identity{}, fmt.Errorf("%s: %w", op, err)
	}

	s.metrics.Token("verify", metrics.OutcomeOK)
	return models.Identity{UserID: uid, Username: claims.Username}, nil
}

// RotateAccess выпускает новый access-токен по refresh-токену.
// Refresh-токен не ротируется и остаётся действительным до истечения или отзыва.
func (s *Service) RotateAccess(ctx context.Context, raw string) (string, time.Time, error) {
	const op = "service.token.RotateAccess"

	lg := log.From(ctx).With("op", op)

	claims, uid, err := s.parse(models.TokenRefresh, raw)
	if err != nil {
		s.metrics.Token("rotate", metrics.OutcomeUnauthorized)
		lg.Warn("refresh_token_invalid")
		return "", time.Time{}, fmt.Errorf("%s: %w", op, err)
	}

	hash := hashToken(raw)

	active, err := s.refreshActive(ctx, hash, uid)
	if err != nil {
		if errors.Is(err, ErrUnauthorized) {
			s.metrics.Token("rotate", metrics.OutcomeUnauthorized)
		} else {
			s.metrics.Token("rotate", metrics.OutcomeError)
		}
		return "", time.Time{}, fmt.Errorf("%s: %w", op, err)
	}
	if !active {
		s.metrics.Token("rotate", metrics.OutcomeUnauthorized)
		lg.Warn("refresh_token_revoked", slog.String("user_id", uid.String()))
		return "", time.Time{}, fmt.Errorf("%s: %w", op, ErrUnauthorized)
	}

	user := &models.User{ID: uid, Username: claims.Username}
	access, exp, err := s.sign(models.TokenAccess, user, s.now())
	if err != nil {
		s.metrics.Token("rotate", metrics.OutcomeError)
		lg.Error("access_token_sign_failed", slog.String("err", err.Error()))
		return "", time.Time{}, fmt.Errorf("%s: %w", op, err)
	}

	s.metrics.Token("rotate", metrics.OutcomeOK)
	return access, exp, nil
}

// refreshActive проверяет членство хэша в хранилище отзыва: сначала кэш, затем БД.
// Ошибка кэша не фатальна, БД остаётся источником истины.
func (s *Service) refreshActive(ctx context.Context, hash string, uid uuid.UUID) (bool, error) {
	const op = "service.token.refreshActive"

	lg := log.From(ctx).With("op", op)

	if s.rcache != nil {
		state, owner, err := s.rcache.Lookup(ctx, hash)
		switch {
		case err != nil:
			lg.Warn("refresh_cache_lookup_failed", slog.String("err", err.Error()))
		case state == cache.StateRevoked:
			return false, nil
		case state == cache.StateActive && owner == uid:
			return true, nil
		}
	}

	rt, err := s.storage.RefreshTokenByHash(ctx, hash)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			lg.Warn("refresh_lookup_not_found")
			return false, nil
		}

		lg.Error("refresh_lookup_failed", slog.String("err", err.Error()))
		return false, fmt.Errorf("%s: %w", op, err)
	}

	if rt.UserID != uid || !s.now().Before(rt.ExpiresAt) {
		return false, nil
	}

	if s.rcache != nil {
		if err := s.rcache.Remember(ctx, rt); err != nil {
			lg.Warn("refresh_cache_remember_failed", slog.String("err", err.Error()))
		}
	}

	return true, nil
}

// Revoke удаляет refresh-токен из хранилища отзыва. Повторный вызов — не ошибка.
// Токен не разбирается: удалить можно и просроченный, и повреждённый токен.
func (s *Service) Revoke(ctx context.Context, raw string) error {
	const op = "service.token.Revoke"

	hash := hashToken(raw)

	if err := s.storage.DeleteRefreshToken(ctx, hash); err != nil {
		s.metrics.Token("revoke", metrics.OutcomeError)
		return fmt.Errorf("%s: %w", op, err)
	}

	if s.rcache != nil {
		if err := s.rcache.Forget(ctx, hash); err != nil {
			log.From(ctx).Warn("refresh_cache_forget_failed",
				slog.String("op", op),
				slog.String("err", err.Error()),
			)
		}
	}

	s.metrics.Token("revoke", metrics.OutcomeOK)
	return nil
}

// revokeAll отзывает все refresh-токены пользователя (политика revoke_on_login).
func (s *Service) revokeAll(ctx context.Context, uid uuid.UUID) error {
	const op = "service.token.revokeAll"

	// При ошибке часть токенов уже удалена: их тоже убираем из кэша.
	hashes, err := s.storage.DeleteUserRefreshTokens(ctx, uid)

	if s.rcache != nil && len(hashes) > 0 {
		if ferr := s.rcache.Forget(ctx, hashes...); ferr != nil {
			log.From(ctx).Warn("refresh_cache_forget_failed",
				slog.String("op", op),
				slog.String("err", ferr.Error()),
			)
		}
	}

	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}
