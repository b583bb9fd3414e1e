package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/pribylovaa/go-career-advisor/internal/models"
	"github.com/pribylovaa/go-career-advisor/internal/pkg/log"
	"github.com/pribylovaa/go-career-advisor/internal/pkg/redact"
	"github.com/pribylovaa/go-career-advisor/internal/storage"
	"golang.org/x/crypto/bcrypt"
)

// RegisterInput — данные регистрации. Profile опционален целиком,
// AgreedToTerms и CareerPath из него берутся как есть.
type RegisterInput struct {
	Username   string
	Password   string
	Department string
	Profile    models.Profile
}

// Register создаёт пользователя и выдаёт пару токенов.
func (s *Service) Register(ctx context.Context, in RegisterInput) (*models.User, *models.TokenPair, error) {
	const op = "service.auth.Register"

	username := strings.TrimSpace(in.Username)
	department := strings.TrimSpace(in.Department)

	if username == "" || in.Password == "" || department == "" {
		return nil, nil, fmt.Errorf("%s: %w", op, invalid("Missing required fields: username, password and department"))
	}

	if err := validateUsername(username); err != nil {
		return nil, nil, fmt.Errorf("%s: %w", op, err)
	}

	if err := validatePassword(in.Password); err != nil {
		return nil, nil, fmt.Errorf("%s: %w", op, err)
	}

	profile := in.Profile
	normalizeProfile(&profile)
	if err := validateProfile(&profile, s.now()); err != nil {
		return nil, nil, fmt.Errorf("%s: %w", op, err)
	}

	lg := log.From(ctx).With("op", op, "username", redact.Username(username))

	// Предварительная проверка только ради понятной ошибки;
	// уникальность гарантирует индекс хранилища.
	_, err := s.storage.UserByUsername(ctx, username)
	if err == nil {
		return nil, nil, fmt.Errorf("%s: %w", op, invalid("Username already exists"))
	}
	if !errors.Is(err, storage.ErrNotFound) {
		lg.Error("user_lookup_failed", slog.String("err", err.Error()))
		return nil, nil, fmt.Errorf("%s: %w", op, err)
	}

	hashed, err := hashPassword(in.Password)
	if err != nil {
		return nil, nil, fmt.Errorf("%s: %w", op, err)
	}

	now := s.now()
	user := &models.User{
		ID:           uuid.New(),
		Username:     username,
		PasswordHash: hashed,
		Department:   department,
		Profile:      profile,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := s.storage.SaveUser(ctx, user); err != nil {
		if errors.Is(err, storage.ErrAlreadyExists) {
			return nil, nil, fmt.Errorf("%s: %w", op, invalid("Username already exists"))
		}

		lg.Error("save_user_failed", slog.String("err", err.Error()))
		return nil, nil, fmt.Errorf("%s: %w", op, err)
	}

	pair, err := s.IssueTokenPair(ctx, user)
	if err != nil {
		return nil, nil, fmt.Errorf("%s: %w", op, err)
	}

	lg.Info("user_registered", slog.String("user_id", user.ID.String()))

	return user, pair, nil
}

// Login выполняет вход по имени и паролю.
// Неизвестный пользователь и неверный пароль неразличимы для клиента.
func (s *Service) Login(ctx context.Context, username, password string) (*models.User, *models.TokenPair, error) {
	const op = "service.auth.Login"

	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return nil, nil, fmt.Errorf("%s: %w", op, invalid("Username and password are required"))
	}

	lg := log.From(ctx).With("op", op, "username", redact.Username(username))

	user, err := s.storage.UserByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			lg.Warn("login_unknown_user")
			return nil, nil, fmt.Errorf("%s: %w", op, ErrInvalidCredentials)
		}

		lg.Error("user_lookup_failed", slog.String("err", err.Error()))
		return nil, nil, fmt.Errorf("%s: %w", op, err)
	}

	if !checkPassword(user.PasswordHash, password) {
		lg.Warn("login_wrong_password")
		return nil, nil, fmt.Errorf("%s: %w", op, ErrInvalidCredentials)
	}

	if s.cfg.RevokeOnLogin {
		if err := s.revokeAll(ctx, user.ID); err != nil {
			lg.Error("revoke_on_login_failed", slog.String("err", err.Error()))
			return nil, nil, fmt.Errorf("%s: %w", op, err)
		}
	}

	pair, err := s.IssueTokenPair(ctx, user)
	if err != nil {
		return nil, nil, fmt.Errorf("%s: %w", op, err)
	}

	lg.Info("user_logged_in", slog.String("user_id", user.ID.String()))

	return user, pair, nil
}

// Refresh выдаёт новый access-токен.
func (s *Service) Refresh(ctx context.Context, refreshToken string) (string, time.Time, error) {
	const op = "service.auth.Refresh"

	if refreshToken == "" {
		return "", time.Time{}, fmt.Errorf("%s: %w", op, invalid("Refresh token required"))
	}

	access, exp, err := s.RotateAccess(ctx, refreshToken)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("%s: %w", op, err)
	}

	return access, exp, nil
}

// Logout отзывает refresh-токен. Выход всегда успешен:
// пустой токен пропускается, ошибка хранилища только логируется.
func (s *Service) Logout(ctx context.Context, refreshToken string) {
	const op = "service.auth.Logout"

	if refreshToken == "" {
		return
	}

	if err := s.Revoke(ctx, refreshToken); err != nil {
		log.From(ctx).Error("logout_revoke_failed",
			slog.String("op", op),
			slog.String("err", err.Error()),
		)
	}
}

// hashPassword хэширует пароль с помощью bcrypt.
func hashPassword(password string) (string, error) {
	const op = "service.auth.hashPassword"

	bytes, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}

	return string(bytes), nil
}

// checkPassword сравнивает пароль с хэшем.
func checkPassword(hash, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}
