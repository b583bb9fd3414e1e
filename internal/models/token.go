package models

import (
	"time"

	"github.com/google/uuid"
)

// TokenKind — вид токена. Проверяется при выпуске и при валидации,
// access-токен нельзя предъявить вместо refresh и наоборот.
type TokenKind uint8

const (
	tokenKindUnknown TokenKind = iota
	TokenAccess
	TokenRefresh
)

// String возвращает значение claim-а "kind".
func (k TokenKind) String() string {
	switch k {
	case TokenAccess:
		return "access"
	case TokenRefresh:
		return "refresh"
	default:
		return "unknown"
	}
}

// ParseTokenKind — обратное преобразование; неизвестная строка даёт ok=false.
func ParseTokenKind(s string) (TokenKind, bool) {
	switch s {
	case "access":
		return TokenAccess, true
	case "refresh":
		return TokenRefresh, true
	default:
		return tokenKindUnknown, false
	}
}

// Identity — аутентифицированный пользователь, извлечённый из access-токена.
type Identity struct {
	UserID   uuid.UUID
	Username string
}

// TokenPair — пара токенов, выдаваемая при регистрации/входе.
//
// Описание:
//   - AccessToken — короткоживущий JWT, проверяется только по подписи и сроку;
//   - RefreshToken — долгоживущий JWT, дополнительно проверяется по хранилищу;
//   - AccessExpiresAt — момент истечения access-токена (UTC).
type TokenPair struct {
	AccessToken     string
	RefreshToken    string
	AccessExpiresAt time.Time
}

// RefreshToken — запись хранилища отзыва. Сам токен не хранится, только его хэш.
type RefreshToken struct {
	Hash      string
	UserID    uuid.UUID
	CreatedAt time.Time
	ExpiresAt time.Time
}
