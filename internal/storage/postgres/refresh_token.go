package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/pribylovaa/go-career-advisor/internal/models"
	"github.com/pribylovaa/go-career-advisor/internal/storage"
)

// SaveRefreshToken сохраняет хэш refresh-токена.
func (s *Storage) SaveRefreshToken(ctx context.Context, token *models.RefreshToken) error {
	const op = "storage.postgres.SaveRefreshToken"

	query := `
		INSERT INTO refresh_tokens(token_hash, user_id, created_at, expires_at)
		VALUES ($1, $2, $3, $4)
	`

	if _, err := s.db.Exec(ctx, query, token.Hash, token.UserID, token.CreatedAt, token.ExpiresAt); err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%s: %w", op, storage.ErrAlreadyExists)
		}

		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

// RefreshTokenByHash находит refresh-токен по хэшу.
func (s *Storage) RefreshTokenByHash(ctx context.Context, hash string) (*models.RefreshToken, error) {
	const op = "storage.postgres.RefreshTokenByHash"

	query := `
		SELECT token_hash, user_id, created_at, expires_at
		FROM refresh_tokens
		WHERE token_hash = $1
	`

	var t models.RefreshToken
	if err := s.db.QueryRow(ctx, query, hash).Scan(&t.Hash, &t.UserID, &t.CreatedAt, &t.ExpiresAt); err != nil {
		return nil, wrapNoRows(op, err)
	}

	t.CreatedAt = t.CreatedAt.UTC()
	t.ExpiresAt = t.ExpiresAt.UTC()

	return &t, nil
}

// DeleteRefreshToken удаляет запись; повторное удаление не ошибка.
func (s *Storage) DeleteRefreshToken(ctx context.Context, hash string) error {
	const op = "storage.postgres.DeleteRefreshToken"

	if _, err := s.db.Exec(ctx, `DELETE FROM refresh_tokens WHERE token_hash = $1`, hash); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

// DeleteUserRefreshTokens удаляет все токены пользователя и возвращает их хэши.
func (s *Storage) DeleteUserRefreshTokens(ctx context.Context, userID uuid.UUID) ([]string, error) {
	const op = "storage.postgres.DeleteUserRefreshTokens"

	rows, err := s.db.Query(ctx, `DELETE FROM refresh_tokens WHERE user_id = $1 RETURNING token_hash`, userID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	hashes, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return hashes, nil
}

// DeleteExpiredTokens удаляет все просроченные токены.
func (s *Storage) DeleteExpiredTokens(ctx context.Context, now time.Time) (int64, error) {
	const op = "storage.postgres.DeleteExpiredTokens"

	tag, err := s.db.Exec(ctx, `DELETE FROM refresh_tokens WHERE expires_at <= $1`, now)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}

	return tag.RowsAffected(), nil
}
