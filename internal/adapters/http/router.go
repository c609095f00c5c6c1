package http

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/caseflow/followup-service/internal/application"
	"github.com/caseflow/followup-service/internal/ports"
)

type Handler struct {
	service *application.Service
}

func NewHandler(service *application.Service) *Handler {
	return &Handler{service: service}
}

func NewRouter(logger *slog.Logger, handler *Handler, readiness ports.Readiness) http.Handler {
	r := chi.NewRouter()
	r.Use(requestIDMiddleware)
	r.Use(recoverMiddleware)
	r.Use(loggingMiddleware(logger))

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) { writeMessage(w, http.StatusOK, "ok") })
	r.Get("/readyz", func(w http.ResponseWriter, _ *http.Request) {
		if !readiness.Ready() {
			writeError(w, http.StatusServiceUnavailable, "NOT_READY", "starting up")
			return
		}
		writeMessage(w, http.StatusOK, "ready")
	})

	r.Route("/v1", func(r chi.Router) {
		r.Get("/subjects/{subject_id}/channel", handler.getSubjectChannel)
	})
	return r
}
