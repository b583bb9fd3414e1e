package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/pribylovaa/go-career-advisor/internal/models"
	"github.com/pribylovaa/go-career-advisor/internal/pkg/log"
	"github.com/pribylovaa/go-career-advisor/internal/quiz"
	"github.com/pribylovaa/go-career-advisor/internal/reports"
	"github.com/pribylovaa/go-career-advisor/internal/storage"
)

// SubmitInput — попытка прохождения теста.
// Weights — необязательная таблица весов вместо таблицы по умолчанию.
type SubmitInput struct {
	UserID  uuid.UUID
	Answers models.Answers
	Weights quiz.WeightTable
}

// checkOwner сверяет идентификатор из запроса с владельцем токена.
func checkOwner(id models.Identity, userID uuid.UUID) error {
	if userID != uuid.Nil && userID != id.UserID {
		return ErrForbidden
	}

	return nil
}

// SubmitResult считает баллы на сервере и сохраняет результат.
// Баллы, присланные клиентом, не принимаются.
func (s *Service) SubmitResult(ctx context.Context, id models.Identity, in SubmitInput) (*models.QuizResult, error) {
	const op = "service.results.SubmitResult"

	if err := checkOwner(id, in.UserID); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if in.Answers == nil {
		return nil, fmt.Errorf("%s: %w", op, invalid("Missing fields"))
	}

	engine := s.engine
	if len(in.Weights) > 0 {
		custom, err := quiz.NewEngine(in.Weights, s.questions)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, invalidQuiz(err))
		}
		engine = custom
	}

	scores, recs, err := engine.Evaluate(in.Answers)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, invalidQuiz(err))
	}

	result := &models.QuizResult{
		ID:                 uuid.New(),
		UserID:             id.UserID,
		Answers:            in.Answers,
		CategoryScores:     scores,
		TopRecommendations: recs,
		MaxScore:           engine.MaxScore(len(in.Answers)),
		CompletedAt:        s.now(),
	}

	if err := s.storage.SaveResult(ctx, result); err != nil {
		log.From(ctx).Error("save_result_failed",
			slog.String("op", op),
			slog.String("user_id", id.UserID.String()),
			slog.String("err", err.Error()),
		)
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	s.metrics.QuizResultSaved()

	return result, nil
}

// ListResults возвращает историю пользователя, новые первыми.
func (s *Service) ListResults(ctx context.Context, id models.Identity, userID uuid.UUID) ([]models.QuizResult, error) {
	const op = "service.results.ListResults"

	if err := checkOwner(id, userID); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	results, err := s.storage.ResultsByUser(ctx, id.UserID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if results == nil {
		results = []models.QuizResult{}
	}

	return results, nil
}

// LatestSummary строит сводку по последнему результату пользователя.
// Отсутствие результатов — не ошибка: HasCompletedQuiz == false.
func (s *Service) LatestSummary(ctx context.Context, id models.Identity) (models.ResultSummary, error) {
	const op = "service.results.LatestSummary"

	latest, err := s.storage.LatestResult(ctx, id.UserID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return models.ResultSummary{}, nil
		}

		return models.ResultSummary{}, fmt.Errorf("%s: %w", op, err)
	}

	if latest.MaxScore > 0 {
		return quiz.SummarizeWithMax(latest.TopRecommendations, latest.MaxScore), nil
	}

	// Старые записи без max_score считались таблицей по умолчанию.
	return s.engine.Summarize(latest.TopRecommendations, len(latest.Answers)), nil
}

// ExportResult выгружает текстовый отчёт по результату в объектное хранилище
// и возвращает временную ссылку на скачивание.
func (s *Service) ExportResult(ctx context.Context, id models.Identity, userID, resultID uuid.UUID) (*reports.Link, error) {
	const op = "service.results.ExportResult"

	if err := checkOwner(id, userID); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if s.reports == nil {
		return nil, fmt.Errorf("%s: %w", op, ErrUnavailable)
	}

	result, err := s.storage.ResultByID(ctx, id.UserID, resultID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, fmt.Errorf("%s: %w", op, ErrNotFound)
		}

		return nil, fmt.Errorf("%s: %w", op, err)
	}

	link, err := s.reports.Publish(ctx, reports.Key(result), reports.Filename(result), reports.Render(id.Username, result))
	if err != nil {
		log.From(ctx).Error("report_publish_failed",
			slog.String("op", op),
			slog.String("result_id", resultID.String()),
			slog.String("err", err.Error()),
		)
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return link, nil
}

// invalidQuiz превращает ошибку движка в ValidationError с её текстом.
func invalidQuiz(err error) error {
	if errors.Is(err, quiz.ErrInvalidInput) {
		return invalid(err.Error())
	}

	return err
}
