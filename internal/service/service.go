// service содержит бизнес-логику сервиса:
// менеджер сессий (выпуск/проверка/ротация/отзыв токенов), регистрацию и вход,
// сохранение и выдачу результатов теста, обновление профиля и выгрузку отчётов.
//
// Основные аспекты:
//   - Service не хранит состояние запроса; экземпляр безопасен для конкурентного
//     использования при условии, что хранилище и кэш потокобезопасны.
//   - Ошибки — sentinel-значения ниже и *ValidationError; транспорт маппит их
//     на HTTP-статусы в одном месте (internal/errors).
package service

//go:generate mockgen -destination=../../mocks/mock_reports.go -package=mocks github.com/pribylovaa/go-career-advisor/internal/service ReportPublisher

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/pribylovaa/go-career-advisor/internal/cache"
	"github.com/pribylovaa/go-career-advisor/internal/config"
	"github.com/pribylovaa/go-career-advisor/internal/metrics"
	"github.com/pribylovaa/go-career-advisor/internal/quiz"
	"github.com/pribylovaa/go-career-advisor/internal/reports"
	"github.com/pribylovaa/go-career-advisor/internal/storage"
)

var (
	// ErrUnauthorized — токен отсутствует, повреждён, просрочен, подписан чужим ключом,
	// не того вида или отозван. Причина наружу не раскрывается. HTTP 401.
	ErrUnauthorized = errors.New("unauthorized")

	// ErrInvalidCredentials — неизвестный пользователь или неверный пароль. HTTP 401.
	ErrInvalidCredentials = errors.New("invalid credentials")

	// ErrForbidden — идентификатор в запросе не совпадает с владельцем токена. HTTP 403.
	ErrForbidden = errors.New("forbidden")

	// ErrNotFound — сущность не найдена. HTTP 404.
	ErrNotFound = errors.New("not found")

	// ErrUnavailable — опциональная зависимость не сконфигурирована. HTTP 503.
	ErrUnavailable = errors.New("unavailable")

	// ErrRefreshTokenCollision — исчерпаны попытки сохранить уникальный refresh-токен. HTTP 500.
	ErrRefreshTokenCollision = errors.New("refresh token collision")
)

// ValidationError — некорректный ввод; Message показывается пользователю как есть. HTTP 400.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string { return e.Message }

func invalid(msg string) error { return &ValidationError{Message: msg} }

// ReportPublisher — хранилище выгруженных отчётов (reports.Store).
type ReportPublisher interface {
	Publish(ctx context.Context, key, filename string, body []byte) (*reports.Link, error)
}

// Service описывает бизнес-логику.
type Service struct {
	storage   storage.Storage
	cfg       config.AuthConfig
	engine    *quiz.Engine
	questions int                // число вопросов для движков с пользовательскими весами
	rcache    cache.RefreshCache // может быть nil, если кэш не сконфигурирован
	reports   ReportPublisher    // может быть nil, если S3 не сконфигурирован
	metrics   *metrics.Metrics   // может быть nil
	now       func() time.Time
}

// New создаёт Service. questions — число вопросов анкеты для расчёта максимального балла.
func New(st storage.Storage, cfg config.AuthConfig, quizCfg config.QuizConfig) (*Service, error) {
	const op = "service.New"

	engine, err := quiz.NewEngine(nil, quizCfg.Questions)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return &Service{
		storage:   st,
		cfg:       cfg,
		engine:    engine,
		questions: quizCfg.Questions,
		now:       func() time.Time { return time.Now().UTC() },
	}, nil
}

// SetRefreshCache устанавливает кэш refresh-токенов (опционально).
func (s *Service) SetRefreshCache(c cache.RefreshCache) {
	s.rcache = c
}

// SetReports подключает хранилище отчётов (опционально).
func (s *Service) SetReports(p ReportPublisher) {
	s.reports = p
}

// SetMetrics подключает метрики (опционально).
func (s *Service) SetMetrics(m *metrics.Metrics) {
	s.metrics = m
}

// Ping проверяет доступность хранилища (для /healthz).
func (s *Service) Ping(ctx context.Context) error {
	return s.storage.Ping(ctx)
}

// CleanupExpiredTokens удаляет просроченные refresh-токены (фоновая очистка).
func (s *Service) CleanupExpiredTokens(ctx context.Context) (int64, error) {
	const op = "service.CleanupExpiredTokens"

	n, err := s.storage.DeleteExpiredTokens(ctx, s.now())
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}

	return n, nil
}
