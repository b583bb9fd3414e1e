package postgres

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/pribylovaa/go-career-advisor/internal/models"
	"github.com/pribylovaa/go-career-advisor/internal/storage"
)

type recommendationJSON struct {
	Field       models.Category `json:"field"`
	Score       float64         `json:"score"`
	Title       string          `json:"title"`
	Description string          `json:"description"`
	Careers     []string        `json:"careers"`
}

const resultColumns = `id, user_id, answers, category_scores, top_recommendations, max_score, completed_at`

func scanResult(row pgx.Row) (*models.QuizResult, error) {
	var (
		r    models.QuizResult
		recs []recommendationJSON
	)

	if err := row.Scan(&r.ID, &r.UserID, &r.Answers, &r.CategoryScores, &recs, &r.MaxScore, &r.CompletedAt); err != nil {
		return nil, err
	}

	r.CompletedAt = r.CompletedAt.UTC()
	r.TopRecommendations = make([]models.Recommendation, 0, len(recs))
	for _, rec := range recs {
		r.TopRecommendations = append(r.TopRecommendations, models.Recommendation(rec))
	}

	return &r, nil
}

// SaveResult сохраняет результат теста.
func (s *Storage) SaveResult(ctx context.Context, result *models.QuizResult) error {
	const op = "storage.postgres.SaveResult"

	recs := make([]recommendationJSON, 0, len(result.TopRecommendations))
	for _, rec := range result.TopRecommendations {
		recs = append(recs, recommendationJSON(rec))
	}

	answers := result.Answers
	if answers == nil {
		answers = models.Answers{}
	}

	scores := result.CategoryScores
	if scores == nil {
		scores = models.CategoryScores{}
	}

	query := `
		INSERT INTO quiz_results(` + resultColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`

	if _, err := s.db.Exec(ctx, query, result.ID, result.UserID, answers, scores, recs, result.MaxScore, result.CompletedAt); err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%s: %w", op, storage.ErrAlreadyExists)
		}

		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

// ResultsByUser возвращает историю пользователя, новые первыми.
func (s *Storage) ResultsByUser(ctx context.Context, userID uuid.UUID) ([]models.QuizResult, error) {
	const op = "storage.postgres.ResultsByUser"

	query := `SELECT ` + resultColumns + ` FROM quiz_results
		WHERE user_id = $1
		ORDER BY completed_at DESC, id DESC`

	rows, err := s.db.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer rows.Close()

	out := make([]models.QuizResult, 0)
	for rows.Next() {
		r, err := scanResult(rows)
		if err != nil {
			return nil, fmt.Errorf("%s: scan: %w", op, err)
		}
		out = append(out, *r)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return out, nil
}

// LatestResult возвращает последний результат пользователя.
func (s *Storage) LatestResult(ctx context.Context, userID uuid.UUID) (*models.QuizResult, error) {
	const op = "storage.postgres.LatestResult"

	query := `SELECT ` + resultColumns + ` FROM quiz_results
		WHERE user_id = $1
		ORDER BY completed_at DESC, id DESC
		LIMIT 1`

	r, err := scanResult(s.db.QueryRow(ctx, query, userID))
	if err != nil {
		return nil, wrapNoRows(op, err)
	}

	return r, nil
}

// ResultByID возвращает результат, только если он принадлежит пользователю.
func (s *Storage) ResultByID(ctx context.Context, userID, resultID uuid.UUID) (*models.QuizResult, error) {
	const op = "storage.postgres.ResultByID"

	query := `SELECT ` + resultColumns + ` FROM quiz_results WHERE id = $1 AND user_id = $2`

	r, err := scanResult(s.db.QueryRow(ctx, query, resultID, userID))
	if err != nil {
		return nil, wrapNoRows(op, err)
	}

	return r, nil
}
