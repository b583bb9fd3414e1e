package handlers

import (
	"errors"
	"net/http"

	apierrors "github.com/pribylovaa/go-career-advisor/internal/errors"
	"github.com/pribylovaa/go-career-advisor/internal/http/middleware"
	"github.com/pribylovaa/go-career-advisor/internal/models"
	"github.com/pribylovaa/go-career-advisor/internal/service"
)

func (h *Handlers) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	id, ok := middleware.IdentityFrom(r.Context())
	if !ok {
		fail(w, r, service.ErrUnauthorized)
		return
	}

	userID, err := pathUserID(r)
	if err != nil {
		fail(w, r, err)
		return
	}

	var in updateProfileRequest
	if err := decodeStrict(w, r, &in); err != nil {
		fail(w, r, err)
		return
	}

	input := service.ProfileInput{Profile: in.profileFields.toModel()}
	if cp := in.CareerPath; cp != nil {
		input.CareerPath = &models.CareerPath{AISummary: cp.AISummary, RecommendedCourses: cp.RecommendedCourses}
	}

	user, err := h.Service.UpdateProfile(r.Context(), id, userID, input)
	if err != nil {
		if errors.Is(err, service.ErrNotFound) {
			err = apierrors.WithMessage(err, "User not found")
		}
		fail(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, profileResponse{
		Success: true,
		Message: "Profile updated successfully",
		User:    userFromModel(user),
	})
}
