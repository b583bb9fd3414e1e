package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/pribylovaa/go-career-advisor/internal/models"
	"github.com/pribylovaa/go-career-advisor/internal/pkg/log"
	"github.com/pribylovaa/go-career-advisor/internal/pkg/redact"
	"github.com/pribylovaa/go-career-advisor/internal/storage"
)

// ProfileInput — новая анкета пользователя.
// Profile.AgreedToTerms и Profile.CareerPath игнорируются:
// согласие не меняется после регистрации, CareerPath заменяется только если задан.
type ProfileInput struct {
	Profile    models.Profile
	CareerPath *models.CareerPath
}

// UpdateProfile целиком заменяет анкету пользователя.
func (s *Service) UpdateProfile(ctx context.Context, id models.Identity, userID uuid.UUID, in ProfileInput) (*models.User, error) {
	const op = "service.profile.UpdateProfile"

	if err := checkOwner(id, userID); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	profile := in.Profile
	normalizeProfile(&profile)
	if err := validateProfile(&profile, s.now()); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	lg := log.From(ctx).With("op", op, "user_id", id.UserID.String())

	current, err := s.storage.UserByID(ctx, id.UserID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, fmt.Errorf("%s: %w", op, ErrNotFound)
		}

		lg.Error("user_lookup_failed", slog.String("err", err.Error()))
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	profile.AgreedToTerms = current.Profile.AgreedToTerms
	profile.CareerPath = current.Profile.CareerPath
	if in.CareerPath != nil {
		profile.CareerPath = *in.CareerPath
	}

	updated, err := s.storage.UpdateProfile(ctx, id.UserID, profile, s.now())
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, fmt.Errorf("%s: %w", op, ErrNotFound)
		}

		lg.Error("update_profile_failed", slog.String("err", err.Error()))
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if profile.Email != "" {
		lg = lg.With("email", redact.Email(profile.Email))
	}
	lg.Info("profile_updated")

	return updated, nil
}
