package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

func (h *Handler) getSubjectChannel(w http.ResponseWriter, r *http.Request) {
	subjectID := chi.URLParam(r, "subject_id")
	resp, err := h.service.SubjectChannel(r.Context(), subjectID)
	if err != nil {
		status, code, msg := mapDomainError(err)
		writeError(w, status, code, msg)
		return
	}
	writeSuccess(w, http.StatusOK, resp)
}
