package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/dmateus/lexflash/internal/clock"
	"github.com/dmateus/lexflash/internal/events"
	"github.com/dmateus/lexflash/internal/remote"
	"github.com/dmateus/lexflash/internal/repository"
	"github.com/dmateus/lexflash/internal/services"
	"github.com/dmateus/lexflash/internal/syncengine"
)

// Server exposes the study and sync surface to the UI layer.
type Server struct {
	Study    services.StudyService
	Sync     *syncengine.Engine
	Cards    repository.CardRepository
	Remote   remote.API
	Bus      *events.Bus
	Clock    clock.Clock
	Validate *validator.Validate
}

func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(recoveryMiddleware)
	r.Use(loggingMiddleware)

	r.Post("/session/start", s.handleStartSession)
	r.Get("/session/card", s.handleCurrentCard)
	r.Post("/session/answer", s.handleAnswerCard)
	r.Post("/session/end", s.handleEndSession)
	r.Get("/session/stats", s.handleStats)

	r.Post("/sync", s.handleSync)
	r.Get("/sync/status", s.handleSyncStatus)

	r.Post("/progress", s.handleSubmitProgress)
	r.Get("/progress", s.handleFetchProgress)

	r.Get("/cards/{id}", s.handleGetCard)
	r.Post("/app/visible", s.handleAppVisible)
	r.Get("/healthz", s.handleHealth)

	return r
}
