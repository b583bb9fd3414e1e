package handlers

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	apierrors "github.com/pribylovaa/go-career-advisor/internal/errors"
	"github.com/pribylovaa/go-career-advisor/internal/http/middleware"
	"github.com/pribylovaa/go-career-advisor/internal/service"
)

// pathUserID разбирает {userId}. Невалидный идентификатор не может принадлежать
// владельцу токена, поэтому это 403, а не 400.
func pathUserID(r *http.Request) (uuid.UUID, error) {
	id, err := uuid.Parse(chi.URLParam(r, "userId"))
	if err != nil {
		return uuid.Nil, service.ErrForbidden
	}

	return id, nil
}

func (h *Handlers) SubmitResult(w http.ResponseWriter, r *http.Request) {
	id, ok := middleware.IdentityFrom(r.Context())
	if !ok {
		fail(w, r, service.ErrUnauthorized)
		return
	}

	var in submitResultRequest
	if err := decodeStrict(w, r, &in); err != nil {
		fail(w, r, err)
		return
	}

	if in.UserID == "" || in.Answers == nil {
		fail(w, r, &service.ValidationError{Message: "Missing fields"})
		return
	}

	userID, err := uuid.Parse(in.UserID)
	if err != nil {
		fail(w, r, service.ErrForbidden)
		return
	}

	result, err := h.Service.SubmitResult(r.Context(), id, service.SubmitInput{
		UserID:  userID,
		Answers: in.Answers,
		Weights: in.weightTable(),
	})
	if err != nil {
		fail(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, submitResultResponse{Success: true, TestResult: resultFromModel(result)})
}

func (h *Handlers) ListResults(w http.ResponseWriter, r *http.Request) {
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

	results, err := h.Service.ListResults(r.Context(), id, userID)
	if err != nil {
		fail(w, r, err)
		return
	}

	out := make([]resultView, 0, len(results))
	for i := range results {
		out = append(out, resultFromModel(&results[i]))
	}

	writeJSON(w, http.StatusOK, listResultsResponse{Success: true, Results: out})
}

func (h *Handlers) ExportResult(w http.ResponseWriter, r *http.Request) {
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

	resultID, err := uuid.Parse(chi.URLParam(r, "resultId"))
	if err != nil {
		fail(w, r, apierrors.WithMessage(service.ErrNotFound, "Result not found"))
		return
	}

	link, err := h.Service.ExportResult(r.Context(), id, userID, resultID)
	if err != nil {
		if errors.Is(err, service.ErrNotFound) {
			err = apierrors.WithMessage(err, "Result not found")
		}
		fail(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, exportFromLink(link))
}
