package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/chanatinart02/next-stock-tracker-app/internal/modules/users"
	"github.com/chanatinart02/next-stock-tracker-app/internal/modules/watchlist"
	"github.com/chanatinart02/next-stock-tracker-app/internal/modules/welcome"
	"github.com/chanatinart02/next-stock-tracker-app/internal/workflow"
)

func (s *Server) respondJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.log.Error().Err(err).Msg("Failed to encode response")
	}
}

func (s *Server) respondError(w http.ResponseWriter, status int, message string) {
	s.respondJSON(w, status, map[string]string{"error": message})
}

// handleHealth reports liveness.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]string{
		"status": "ok",
		"time":   time.Now().UTC().Format(time.RFC3339),
	})
}

type signUpRequest struct {
	Email             string `json:"email"`
	Name              string `json:"name"`
	Country           string `json:"country"`
	InvestmentGoals   string `json:"investmentGoals"`
	RiskTolerance     string `json:"riskTolerance"`
	PreferredIndustry string `json:"preferredIndustry"`
}

// handleSignUp creates a user and fires the signup event. The welcome
// workflow runs asynchronously; a dispatch problem is logged but does
// not fail the signup.
func (s *Server) handleSignUp(w http.ResponseWriter, r *http.Request) {
	var req signUpRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	req.Email = strings.TrimSpace(req.Email)
	req.Name = strings.TrimSpace(req.Name)
	if req.Email == "" || req.Name == "" {
		s.respondError(w, http.StatusBadRequest, "email and name are required")
		return
	}

	existing, err := s.users.GetByEmail(req.Email)
	if err != nil {
		s.log.Error().Err(err).Msg("Failed to look up user")
		s.respondError(w, http.StatusInternalServerError, "failed to create user")
		return
	}
	if existing != nil {
		s.respondError(w, http.StatusConflict, "a user with this email already exists")
		return
	}

	user := &users.User{
		Email:             req.Email,
		Name:              req.Name,
		Country:           req.Country,
		InvestmentGoals:   req.InvestmentGoals,
		RiskTolerance:     req.RiskTolerance,
		PreferredIndustry: req.PreferredIndustry,
	}
	if err := s.users.Create(user); err != nil {
		s.log.Error().Err(err).Msg("Failed to create user")
		s.respondError(w, http.StatusInternalServerError, "failed to create user")
		return
	}

	runIDs := s.dispatchSignup(welcome.SignupPayload{
		Email:             user.Email,
		Name:              user.Name,
		Country:           user.Country,
		InvestmentGoals:   user.InvestmentGoals,
		RiskTolerance:     user.RiskTolerance,
		PreferredIndustry: user.PreferredIndustry,
	})

	s.respondJSON(w, http.StatusCreated, map[string]interface{}{
		"user":   user,
		"runIds": runIDs,
	})
}

func (s *Server) dispatchSignup(payload welcome.SignupPayload) []string {
	trigger, err := workflow.NewEventTrigger(welcome.TriggerEvent, payload)
	if err != nil {
		s.log.Error().Err(err).Msg("Failed to build signup trigger")
		return nil
	}

	runIDs, err := s.engine.Dispatch(trigger)
	if err != nil {
		s.log.Error().Err(err).Str("event", welcome.TriggerEvent).Msg("Failed to dispatch signup event")
		return nil
	}

	return runIDs
}

type emitEventRequest struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

// handleEmitEvent dispatches an arbitrary event to the engine. This is
// the manual trigger surface, e.g. send.daily.news.
func (s *Server) handleEmitEvent(w http.ResponseWriter, r *http.Request) {
	var req emitEventRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if req.Event == "" {
		s.respondError(w, http.StatusBadRequest, "event is required")
		return
	}

	trigger, err := workflow.NewEventTrigger(req.Event, req.Data)
	if err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	runIDs, err := s.engine.Dispatch(trigger)
	if err != nil {
		if errors.Is(err, workflow.ErrNoWorkflow) {
			s.respondError(w, http.StatusNotFound, err.Error())
			return
		}
		s.log.Error().Err(err).Str("event", req.Event).Msg("Dispatch failed")
		s.respondError(w, http.StatusInternalServerError, "dispatch failed")
		return
	}

	s.respondJSON(w, http.StatusAccepted, map[string]interface{}{
		"event":  req.Event,
		"runIds": runIDs,
	})
}

// handleGetRun returns the status of one workflow run.
func (s *Server) handleGetRun(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	run, err := s.engine.Run(id)
	if err != nil {
		s.log.Error().Err(err).Str("run_id", id).Msg("Failed to load run")
		s.respondError(w, http.StatusInternalServerError, "failed to load run")
		return
	}
	if run == nil {
		s.respondError(w, http.StatusNotFound, "run not found")
		return
	}

	s.respondJSON(w, http.StatusOK, run)
}

// handleRetryRun re-executes a run; completed steps replay from the
// memoization store.
func (s *Server) handleRetryRun(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	if err := s.engine.Retry(id); err != nil {
		if strings.Contains(err.Error(), "not found") {
			s.respondError(w, http.StatusNotFound, err.Error())
			return
		}
		s.log.Error().Err(err).Str("run_id", id).Msg("Failed to retry run")
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	s.respondJSON(w, http.StatusAccepted, map[string]string{
		"runId":  id,
		"status": string(workflow.StatusRunning),
	})
}

type addWatchlistRequest struct {
	Symbol  string `json:"symbol"`
	Company string `json:"company"`
}

func (s *Server) handleListWatchlist(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userId")

	items, err := s.watchlists.List(userID)
	if err != nil {
		s.log.Error().Err(err).Str("user_id", userID).Msg("Failed to list watchlist")
		s.respondError(w, http.StatusInternalServerError, "failed to list watchlist")
		return
	}
	if items == nil {
		items = []watchlist.Item{}
	}

	s.respondJSON(w, http.StatusOK, items)
}

func (s *Server) handleAddWatchlistItem(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userId")

	var req addWatchlistRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	req.Symbol = strings.ToUpper(strings.TrimSpace(req.Symbol))
	if req.Symbol == "" {
		s.respondError(w, http.StatusBadRequest, "symbol is required")
		return
	}

	if err := s.watchlists.Add(userID, req.Symbol, req.Company); err != nil {
		s.log.Error().Err(err).Str("user_id", userID).Str("symbol", req.Symbol).Msg("Failed to add watchlist item")
		s.respondError(w, http.StatusInternalServerError, "failed to add watchlist item")
		return
	}

	s.respondJSON(w, http.StatusCreated, map[string]string{
		"symbol": req.Symbol,
		"status": "added",
	})
}

func (s *Server) handleRemoveWatchlistItem(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userId")
	symbol := strings.ToUpper(chi.URLParam(r, "symbol"))

	if err := s.watchlists.Remove(userID, symbol); err != nil {
		s.log.Error().Err(err).Str("user_id", userID).Str("symbol", symbol).Msg("Failed to remove watchlist item")
		s.respondError(w, http.StatusInternalServerError, "failed to remove watchlist item")
		return
	}

	s.respondJSON(w, http.StatusOK, map[string]string{
		"symbol": symbol,
		"status": "removed",
	})
}
