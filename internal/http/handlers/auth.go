package handlers

import (
	"errors"
	"io"
	"net/http"

	apierrors "github.com/pribylovaa/go-career-advisor/internal/errors"
	"github.com/pribylovaa/go-career-advisor/internal/service"
)

func (h *Handlers) Register(w http.ResponseWriter, r *http.Request) {
	var in registerRequest
	if err := decodeStrict(w, r, &in); err != nil {
		fail(w, r, err)
		return
	}

	profile := in.profileFields.toModel()
	profile.AgreedToTerms = in.AgreedToTerms

	user, pair, err := h.Service.Register(r.Context(), service.RegisterInput{
		Username:   in.Username,
		Password:   in.Password,
		Department: in.Department,
		Profile:    profile,
	})
	if err != nil {
		fail(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, authResponse{
		Success:      true,
		User:         userFromModel(user),
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
	})
}

func (h *Handlers) Login(w http.ResponseWriter, r *http.Request) {
	var in loginRequest
	if err := decodeStrict(w, r, &in); err != nil {
		fail(w, r, err)
		return
	}

	user, pair, err := h.Service.Login(r.Context(), in.Username, in.Password)
	if err != nil {
		fail(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, authResponse{
		Success:      true,
		User:         userFromModel(user),
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
	})
}

func (h *Handlers) Refresh(w http.ResponseWriter, r *http.Request) {
	var in refreshRequest
	if err := decodeStrict(w, r, &in); err != nil {
		fail(w, r, err)
		return
	}

	access, _, err := h.Service.Refresh(r.Context(), in.RefreshToken)
	if err != nil {
		if errors.Is(err, service.ErrUnauthorized) {
			err = apierrors.WithMessage(err, "Invalid or expired refresh token")
		}
		fail(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, refreshResponse{Success: true, AccessToken: access})
}

// Logout всегда успешен: пустое тело и неизвестный токен не ошибка.
func (h *Handlers) Logout(w http.ResponseWriter, r *http.Request) {
	var in refreshRequest
	if err := decodeStrict(w, r, &in); err != nil && !errors.Is(err, io.EOF) {
		fail(w, r, err)
		return
	}

	h.Service.Logout(r.Context(), in.RefreshToken)

	writeJSON(w, http.StatusOK, messageResponse{Success: true, Message: "Logged out successfully"})
}
