package api

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/dmateus/lexflash/internal/errors"
	"github.com/dmateus/lexflash/internal/events"
	"github.com/dmateus/lexflash/internal/remote"
)

func (s *Server) handleStartSession(w http.ResponseWriter, r *http.Request) {
	queued, err := s.Study.StartSession(r.Context())
	if err != nil {
		handleError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, map[string]int{"queued": queued})
}

func (s *Server) handleCurrentCard(w http.ResponseWriter, r *http.Request) {
	card, err := s.Study.GetCurrentCard(r.Context())
	if err != nil {
		handleError(w, r, err)
		return
	}
	// A nil card with no error means the queue is exhausted.
	writeData(w, http.StatusOK, card)
}

type answerRequest struct {
	Quality *int `json:"quality" validate:"required,gte=0,lte=5"`
}

func (s *Server) handleAnswerCard(w http.ResponseWriter, r *http.Request) {
	var req answerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		handleError(w, r, errors.NewInvalidInputError("body", "malformed JSON"))
		return
	}
	if err := s.Validate.Struct(req); err != nil {
		handleError(w, r, errors.NewInvalidInputError("quality", "must be an integer between 0 and 5"))
		return
	}
	if err := s.Study.AnswerCard(r.Context(), *req.Quality); err != nil {
		handleError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, map[string]bool{"complete": s.Study.IsComplete(r.Context())})
}

func (s *Server) handleEndSession(w http.ResponseWriter, r *http.Request) {
	summary, err := s.Study.EndSession(r.Context())
	if err != nil {
		handleError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, summary)
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.Study.GetStats(r.Context())
	if err != nil {
		handleError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, stats)
}

func (s *Server) handleSync(w http.ResponseWriter, r *http.Request) {
	summary, err := s.Sync.SyncAll(r.Context())
	if err != nil {
		handleError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, summary)
}

func (s *Server) handleSyncStatus(w http.ResponseWriter, r *http.Request) {
	status, err := s.Sync.Status(r.Context())
	if err != nil {
		handleError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, status)
}

type progressRequest struct {
	LessonID string  `json:"lesson_id" validate:"required"`
	Kind     string  `json:"kind" validate:"required"`
	Score    float64 `json:"score" validate:"gte=0,lte=100"`
}

func (s *Server) handleSubmitProgress(w http.ResponseWriter, r *http.Request) {
	var req progressRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		handleError(w, r, errors.NewInvalidInputError("body", "malformed JSON"))
		return
	}
	if err := s.Validate.Struct(req); err != nil {
		handleError(w, r, errors.NewInvalidInputError("progress", err.Error()))
		return
	}
	record := remote.ProgressRecord{
		LessonID:    req.LessonID,
		Kind:        req.Kind,
		Score:       req.Score,
		CompletedAt: s.Clock.Now(),
	}
	if err := s.Sync.SubmitProgress(r.Context(), record); err != nil {
		handleError(w, r, err)
		return
	}
	writeData(w, http.StatusAccepted, map[string]bool{"queued": true})
}

func (s *Server) handleFetchProgress(w http.ResponseWriter, r *http.Request) {
	report, err := s.Remote.FetchProgress(r.Context())
	if err != nil {
		handleError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, report)
}

func (s *Server) handleGetCard(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	card, err := s.Cards.Get(r.Context(), id)
	if err != nil {
		handleError(w, r, errors.NewStorageError(err))
		return
	}
	if card == nil {
		handleError(w, r, errors.NewNotFoundError("card", id))
		return
	}
	writeData(w, http.StatusOK, card)
}

func (s *Server) handleAppVisible(w http.ResponseWriter, r *http.Request) {
	s.Bus.Emit(events.AppVisible, nil)
	writeData(w, http.StatusAccepted, map[string]bool{"ok": true})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeData(w, http.StatusOK, map[string]string{"status": "ok"})
}
