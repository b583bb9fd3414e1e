// storage описывает контракты хранилища пользователей, refresh-токенов
// и результатов теста. Реализации: storage/mongo (по умолчанию) и storage/postgres.
package storage

//go:generate mockgen -destination=../../mocks/mock_storage.go -package=mocks github.com/pribylovaa/go-career-advisor/internal/storage Storage

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/pribylovaa/go-career-advisor/internal/models"
)

var (
	// ErrNotFound — запись не найдена (пользователь/токен/результат).
	ErrNotFound = errors.New("not found")
	// ErrAlreadyExists — нарушение уникальности (username/хэш токена).
	ErrAlreadyExists = errors.New("already exists")
)

// UserStorage выполняет операции над пользователями.
type UserStorage interface {
	// SaveUser создаёт пользователя; занятый username -> ErrAlreadyExists.
	SaveUser(ctx context.Context, user *models.User) error
	// UserByUsername находит пользователя по имени.
	UserByUsername(ctx context.Context, username string) (*models.User, error)
	// UserByID находит пользователя по ID.
	UserByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	// UpdateProfile целиком заменяет профиль и возвращает обновлённого пользователя.
	UpdateProfile(ctx context.Context, id uuid.UUID, profile models.Profile, updatedAt time.Time) (*models.User, error)
}

// RefreshTokenStorage — хранилище отзыва: присутствие записи означает, что токен действителен.
type RefreshTokenStorage interface {
	// SaveRefreshToken сохраняет хэш нового refresh-токена.
	SaveRefreshToken(ctx context.Context, token *models.RefreshToken) error
	// RefreshTokenByHash находит запись по хэшу токена.
	RefreshTokenByHash(ctx context.Context, hash string) (*models.RefreshToken, error)
	// DeleteRefreshToken удаляет запись; отсутствие записи не ошибка.
	DeleteRefreshToken(ctx context.Context, hash string) error
	// DeleteUserRefreshTokens удаляет все токены пользователя и возвращает их хэши.
	DeleteUserRefreshTokens(ctx context.Context, userID uuid.UUID) ([]string, error)
	// DeleteExpiredTokens удаляет просроченные записи и возвращает их число.
	DeleteExpiredTokens(ctx context.Context, now time.Time) (int64, error)
}

// ResultStorage хранит историю прохождений теста.
type ResultStorage interface {
	// SaveResult сохраняет результат.
	SaveResult(ctx context.Context, result *models.QuizResult) error
	// ResultsByUser возвращает результаты пользователя, новые первыми.
	ResultsByUser(ctx context.Context, userID uuid.UUID) ([]models.QuizResult, error)
	// LatestResult возвращает последний результат пользователя.
	LatestResult(ctx context.Context, userID uuid.UUID) (*models.QuizResult, error)
	// ResultByID возвращает результат, принадлежащий пользователю.
	ResultByID(ctx context.Context, userID, resultID uuid.UUID) (*models.QuizResult, error)
}

// Storage задаёт контракт работы с БД.
type Storage interface {
	UserStorage
	RefreshTokenStorage
	ResultStorage
	Ping(ctx context.Context) error
	Close(ctx context.Context) error
}
