// mongo — реализация storage.Storage поверх MongoDB (драйвер по умолчанию).
package mongo

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/pribylovaa/go-career-advisor/internal/storage"
	"go.mongodb.org/mongo-driver/bson"
	mongodriver "go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

const (
	usersCollection   = "users"
	tokensCollection  = "refresh_tokens"
	resultsCollection = "quiz_results"
	defaultDBName     = "career"
)

var _ storage.Storage = (*Mongo)(nil)

// Mongo — тонкий адаптер для подключения и коллекций MongoDB.
type Mongo struct {
	client  *mongodriver.Client
	db      *mongodriver.Database
	users   *mongodriver.Collection
	tokens  *mongodriver.Collection
	results *mongodriver.Collection
}

// New подключается к MongoDB, проверяет соединение, подготавливает коллекции и индексы.
// Имя БД берётся из пути URI.
func New(ctx context.Context, uri string) (*Mongo, error) {
	if uri == "" {
		return nil, fmt.Errorf("mongo: empty database url")
	}

	cli, err := mongodriver.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("mongo connect: %w", err)
	}

	if err := cli.Ping(ctx, readpref.Primary()); err != nil {
		_ = cli.Disconnect(context.Background())
		return nil, fmt.Errorf("mongo ping: %w", err)
	}

	db := cli.Database(databaseFromURI(uri))

	m := &Mongo{
		client:  cli,
		db:      db,
		users:   db.Collection(usersCollection),
		tokens:  db.Collection(tokensCollection),
		results: db.Collection(resultsCollection),
	}

	if err := m.ensureIndexes(ctx); err != nil {
		_ = m.Close(ctx)
		return nil, err
	}

	return m, nil
}

func (m *Mongo) Ping(ctx context.Context) error {
	return m.client.Ping(ctx, readpref.Primary())
}

func (m *Mongo) Close(ctx context.Context) error {
	return m.client.Disconnect(ctx)
}

// ensureIndexes создаёт индексы:
//   - users: уникальный username (гарантия уникальности при гонке регистраций);
//   - refresh_tokens: TTL по expires_at и выборка по user_id;
//   - quiz_results: история пользователя user_id + completed_at(desc).
func (m *Mongo) ensureIndexes(ctx context.Context) error {
	if _, err := m.users.Indexes().CreateOne(ctx, mongodriver.IndexModel{
		Keys:    bson.D{{Key: "username", Value: 1}},
		Options: options.Index().SetName("uniq_username").SetUnique(true),
	}); err != nil {
		return fmt.Errorf("mongo ensure users indexes: %w", err)
	}

	if _, err := m.tokens.Indexes().CreateMany(ctx, []mongodriver.IndexModel{
		{
			Keys:    bson.D{{Key: "expires_at", Value: 1}},
			Options: options.Index().SetName("ttl_expires_at").SetExpireAfterSeconds(0),
		},
		{
			Keys:    bson.D{{Key: "user_id", Value: 1}},
			Options: options.Index().SetName("user_id"),
		},
	}); err != nil {
		return fmt.Errorf("mongo ensure refresh_tokens indexes: %w", err)
	}

	if _, err := m.results.Indexes().CreateOne(ctx, mongodriver.IndexModel{
		Keys:    bson.D{{Key: "user_id", Value: 1}, {Key: "completed_at", Value: -1}},
		Options: options.Index().SetName("user_completed_desc"),
	}); err != nil {
		return fmt.Errorf("mongo ensure quiz_results indexes: %w", err)
	}

	return nil
}

// databaseFromURI извлекает имя базы данных из URI-пути mongodb.
// Если оно отсутствует или не разбирается, возвращает значение по умолчанию.
func databaseFromURI(uri string) string {
	u, err := url.Parse(uri)
	if err == nil {
		if name := strings.Trim(u.Path, "/"); name != "" {
			return name
		}
	}

	return defaultDBName
}
