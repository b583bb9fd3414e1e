package service

import (
	"context"
	"testing"
	"time"

	"github.com/golang/mock/gomock"
	"github.com/google/uuid"
	"github.com/pribylovaa/go-career-advisor/internal/models"
	"github.com/pribylovaa/go-career-advisor/internal/storage"
	"github.com/stretchr/testify/require"
)

func TestUpdateProfile_ReplacesAndPreservesConsent(t *testing.T) {
	t.Parallel()

	svc, st, ctrl := newSvc(t)
	defer ctrl.Finish()

	id := testIdentity()
	current := &models.User{
		ID:       id.UserID,
		Username: "alice",
		Profile: models.Profile{
			Name:          "Old",
			MobilePhone:   "123",
			AgreedToTerms: true,
			CareerPath:    models.CareerPath{AISummary: "keep me"},
		},
	}

	in := ProfileInput{Profile: models.Profile{
		Name:          " Alice ",
		BackupEmail:   "backup@example.com",
		AgreedToTerms: false,
	}}

	st.EXPECT().UserByID(gomock.Any(), id.UserID).Return(current, nil)
	st.EXPECT().UpdateProfile(gomock.Any(), id.UserID, gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, uid uuid.UUID, p models.Profile, at time.Time) (*models.User, error) {
			u := *current
			u.Profile = p
			u.UpdatedAt = at
			return &u, nil
		})

	got, err := svc.UpdateProfile(context.Background(), id, id.UserID, in)
	require.NoError(t, err)

	require.Equal(t, "Alice", got.Profile.Name)
	// Полная замена: неуказанные поля очищаются.
	require.Empty(t, got.Profile.MobilePhone)
	require.True(t, got.Profile.AgreedToTerms)
	require.Equal(t, "keep me", got.Profile.CareerPath.AISummary)
	require.False(t, got.UpdatedAt.IsZero())
}

func TestUpdateProfile_ReplacesCareerPathWhenGiven(t *testing.T) {
	t.Parallel()

	svc, st, ctrl := newSvc(t)
	defer ctrl.Finish()

	id := testIdentity()
	current := &models.User{ID: id.UserID, Profile: models.Profile{CareerPath: models.CareerPath{AISummary: "old"}}}
	cp := &models.CareerPath{AISummary: "new", RecommendedCourses: []string{"Go"}}

	st.EXPECT().UserByID(gomock.Any(), id.UserID).Return(current, nil)
	st.EXPECT().UpdateProfile(gomock.Any(), id.UserID, gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, _ uuid.UUID, p models.Profile, _ time.Time) (*models.User, error) {
			require.Equal(t, *cp, p.CareerPath)
			return &models.User{ID: id.UserID, Profile: p}, nil
		})

	_, err := svc.UpdateProfile(context.Background(), id, id.UserID, ProfileInput{CareerPath: cp})
	require.NoError(t, err)
}

func TestUpdateProfile_Errors(t *testing.T) {
	t.Parallel()

	id := testIdentity()

	t.Run("foreign_user", func(t *testing.T) {
		svc, _, ctrl := newSvc(t)
		defer ctrl.Finish()

		_, err := svc.UpdateProfile(context.Background(), id, uuid.New(), ProfileInput{})
		require.ErrorIs(t, err, ErrForbidden)
	})

	t.Run("bad_email", func(t *testing.T) {
		svc, _, ctrl := newSvc(t)
		defer ctrl.Finish()

		_, err := svc.UpdateProfile(context.Background(), id, id.UserID, ProfileInput{Profile: models.Profile{Email: "bad"}})
		requireValidation(t, err, "Invalid email format")
	})

	t.Run("bad_backup_email", func(t *testing.T) {
		svc, _, ctrl := newSvc(t)
		defer ctrl.Finish()

		_, err := svc.UpdateProfile(context.Background(), id, id.UserID, ProfileInput{Profile: models.Profile{BackupEmail: "a b@c.d"}})
		requireValidation(t, err, "Invalid backup email format")
	})

	t.Run("user_not_found", func(t *testing.T) {
		svc, st, ctrl := newSvc(t)
		defer ctrl.Finish()

		st.EXPECT().UserByID(gomock.Any(), id.UserID).Return(nil, storage.ErrNotFound)

		_, err := svc.UpdateProfile(context.Background(), id, id.UserID, ProfileInput{})
		require.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("vanished_between_calls", func(t *testing.T) {
		svc, st, ctrl := newSvc(t)
		defer ctrl.Finish()

		st.EXPECT().UserByID(gomock.Any(), id.UserID).Return(&models.User{ID: id.UserID}, nil)
		st.EXPECT().UpdateProfile(gomock.Any(), id.UserID, gomock.Any(), gomock.Any()).Return(nil, storage.ErrNotFound)

		_, err := svc.UpdateProfile(context.Background(), id, id.UserID, ProfileInput{})
		require.ErrorIs(t, err, ErrNotFound)
	})
}
