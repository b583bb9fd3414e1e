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

type resultDoc struct {
	ID                 string             `bson:"_id"`
	UserID             string             `bson:"user_id"`
	Answers            map[string]string  `bson:"answers"`
	CategoryScores     map[string]float64 `bson:"category_scores"`
	TopRecommendations []recommendationDoc `bson:"top_recommendations"`
	MaxScore           float64            `bson:"max_score,omitempty"`
	CompletedAt        time.Time          `bson:"completed_at"`
}

type recommendationDoc struct {
	Field       string   `bson:"field"`
	Score       float64  `bson:"score"`
	Title       string   `bson:"title"`
	Description string   `bson:"description"`
	Careers     []string `bson:"careers"`
}

func resultToDoc(r *models.QuizResult) resultDoc {
	doc := resultDoc{
		ID:                 r.ID.String(),
		UserID:             r.UserID.String(),
		Answers:            map[string]string(r.Answers),
		CategoryScores:     make(map[string]float64, len(r.CategoryScores)),
		TopRecommendations: make([]recommendationDoc, 0, len(r.TopRecommendations)),
		MaxScore:           r.MaxScore,
		CompletedAt:        r.CompletedAt.UTC(),
	}

	for c, v := range r.CategoryScores {
		doc.CategoryScores[string(c)] = v
	}

	for _, rec := range r.TopRecommendations {
		doc.TopRecommendations = append(doc.TopRecommendations, recommendationDoc{
			Field:       string(rec.Field),
			Score:       rec.Score,
			Title:       rec.Title,
			Description: rec.Description,
			Careers:     rec.Careers,
		})
	}

	return doc
}

func (d resultDoc) toModel() (models.QuizResult, error) {
	id, err := uuid.Parse(d.ID)
	if err != nil {
		return models.QuizResult{}, fmt.Errorf("parse result id %q: %w", d.ID, err)
	}

	uid, err := uuid.Parse(d.UserID)
	if err != nil {
		return models.QuizResult{}, fmt.Errorf("parse user id %q: %w", d.UserID, err)
	}

	out := models.QuizResult{
		ID:                 id,
		UserID:             uid,
		Answers:            models.Answers(d.Answers),
		CategoryScores:     make(models.CategoryScores, len(d.CategoryScores)),
		TopRecommendations: make([]models.Recommendation, 0, len(d.TopRecommendations)),
		MaxScore:           d.MaxScore,
		CompletedAt:        d.CompletedAt.UTC(),
	}

	for c, v := range d.CategoryScores {
		out.CategoryScores[models.Category(c)] = v
	}

	for _, rec := range d.TopRecommendations {
		out.TopRecommendations = append(out.TopRecommendations, models.Recommendation{
			Field:       models.Category(rec.Field),
			Score:       rec.Score,
			Title:       rec.Title,
			Description: rec.Description,
			Careers:     rec.Careers,
		})
	}

	return out, nil
}

func (m *Mongo) SaveResult(ctx context.Context, result *models.QuizResult) error {
	const op = "storage.mongo.SaveResult"

	if _, err := m.results.InsertOne(ctx, resultToDoc(result)); err != nil {
		if mongodriver.IsDuplicateKeyError(err) {
			return fmt.Errorf("%s: %w", op, storage.ErrAlreadyExists)
		}

		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

// newestFirst — сортировка истории; _id разрешает совпадение completed_at.
var newestFirst = bson.D{{Key: "completed_at", Value: -1}, {Key: "_id", Value: -1}}

func (m *Mongo) ResultsByUser(ctx context.Context, userID uuid.UUID) ([]models.QuizResult, error) {
	const op = "storage.mongo.ResultsByUser"

	cur, err := m.results.Find(ctx, bson.M{"user_id": userID.String()}, options.Find().SetSort(newestFirst))
	if err != nil {
		return nil, fmt.Errorf("%s: find: %w", op, err)
	}

	var docs []resultDoc
	if err := cur.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("%s: decode: %w", op, err)
	}

	out := make([]models.QuizResult, 0, len(docs))
	for _, d := range docs {
		r, err := d.toModel()
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		out = append(out, r)
	}

	return out, nil
}

func (m *Mongo) LatestResult(ctx context.Context, userID uuid.UUID) (*models.QuizResult, error) {
	const op = "storage.mongo.LatestResult"

	return m.findResult(ctx, op, bson.M{"user_id": userID.String()}, options.FindOne().SetSort(newestFirst))
}

func (m *Mongo) ResultByID(ctx context.Context, userID, resultID uuid.UUID) (*models.QuizResult, error) {
	const op = "storage.mongo.ResultByID"

	return m.findResult(ctx, op, bson.M{"_id": resultID.String(), "user_id": userID.String()})
}

func (m *Mongo) findResult(ctx context.Context, op string, filter bson.M, opts ...*options.FindOneOptions) (*models.QuizResult, error) {
	var doc resultDoc
	if err := m.results.FindOne(ctx, filter, opts...).Decode(&doc); err != nil {
		if errors.Is(err, mongodriver.ErrNoDocuments) {
			return nil, fmt.Errorf("%s: %w", op, storage.ErrNotFound)
		}

		return nil, fmt.Errorf("%s: %w", op, err)
	}

	r, err := doc.toModel()
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return &r, nil
}
