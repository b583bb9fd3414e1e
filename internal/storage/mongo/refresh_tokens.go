package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/pribylovaa/go-career-advisor/internal/models"
	"github.com/pribylovaa/go-career-advisor/internal/storage"
	"go.mongodb.org/mongo-driver/bson"
	mongodriver "go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// tokenDoc — запись хранилища отзыва; _id — хэш токена.
// TTL-индекс по expires_at удаляет просроченные записи на стороне MongoDB.
type tokenDoc struct {
	Hash      string    `bson:"_id"`
	UserID    string    `bson:"user_id"`
	CreatedAt time.Time `bson:"created_at"`
	ExpiresAt time.Time `bson:"expires_at"`
}

func (m *Mongo) SaveRefreshToken(ctx context.Context, token *models.RefreshToken) error {
	const op = "storage.mongo.SaveRefreshToken"

	doc := tokenDoc{
		Hash:      token.Hash,
		UserID:    token.UserID.String(),
		CreatedAt: token.CreatedAt.UTC(),
		ExpiresAt: token.ExpiresAt.UTC(),
	}

	if _, err := m.tokens.InsertOne(ctx, doc); err != nil {
		if mongodriver.IsDuplicateKeyError(err) {
			return fmt.Errorf("%s: %w", op, storage.ErrAlreadyExists)
		}

		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

func (m *Mongo) RefreshTokenByHash(ctx context.Context, hash string) (*models.RefreshToken, error) {
	const op = "storage.mongo.RefreshTokenByHash"

	var doc tokenDoc
	if err := m.tokens.FindOne(ctx, bson.M{"_id": hash}).Decode(&doc); err != nil {
		if errors.Is(err, mongodriver.ErrNoDocuments) {
			return nil, fmt.Errorf("%s: %w", op, storage.ErrNotFound)
		}

		return nil, fmt.Errorf("%s: %w", op, err)
	}

	uid, err := uuid.Parse(doc.UserID)
	if err != nil {
		return nil, fmt.Errorf("%s: parse user id: %w", op, err)
	}

	return &models.RefreshToken{
		Hash:      doc.Hash,
		UserID:    uid,
		CreatedAt: doc.CreatedAt.UTC(),
		ExpiresAt: doc.ExpiresAt.UTC(),
	}, nil
}

func (m *Mongo) DeleteRefreshToken(ctx context.Context, hash string) error {
	const op = "storage.mongo.DeleteRefreshToken"

	if _, err := m.tokens.DeleteOne(ctx, bson.M{"_id": hash}); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

// DeleteUserRefreshTokens удаляет токены пользователя по одному через FindOneAndDelete
// до пустой выборки: возвращаются ровно удалённые хэши, включая вставленные во время очистки.
func (m *Mongo) DeleteUserRefreshTokens(ctx context.Context, userID uuid.UUID) ([]string, error) {
	const op = "storage.mongo.DeleteUserRefreshTokens"

	filter := bson.M{"user_id": userID.String()}
	opts := options.FindOneAndDelete().SetProjection(bson.M{"_id": 1})

	var hashes []string
	for {
		var doc struct {
			Hash string `bson:"_id"`
		}

		err := m.tokens.FindOneAndDelete(ctx, filter, opts).Decode(&doc)
		if errors.Is(err, mongodriver.ErrNoDocuments) {
			return hashes, nil
		}
		if err != nil {
			return hashes, fmt.Errorf("%s: %w", op, err)
		}

		hashes = append(hashes, doc.Hash)
	}
}

// DeleteExpiredTokens дублирует работу TTL-монитора MongoDB (он срабатывает раз в минуту).
func (m *Mongo) DeleteExpiredTokens(ctx context.Context, now time.Time) (int64, error) {
	const op = "storage.mongo.DeleteExpiredTokens"

	res, err := m.tokens.DeleteMany(ctx, bson.M{"expires_at": bson.M{"$lte": now.UTC()}})
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}

	return res.DeletedCount, nil
}
