package handlers

import (
	"encoding/json"
	"net/http"

	"camp-companion/internal/scores"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"
)

// TeamHandler handles team score HTTP requests
type TeamHandler struct {
	scores *scores.Aggregator
}

// NewTeamHandler creates a new team handler
func NewTeamHandler(scores *scores.Aggregator) *TeamHandler {
	return &TeamHandler{scores: scores}
}

// GetTeams handles GET /api/v1/teams
func (h *TeamHandler) GetTeams(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"teams": h.scores.Teams(),
	})
}

// GetTeam handles GET /api/v1/teams/{team_id}
func (h *TeamHandler) GetTeam(w http.ResponseWriter, r *http.Request) {
	teamID := chi.URLParam(r, "team_id")
	team, err := h.scores.Team(teamID)
	if err != nil {
		respondDomainError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, team)
}

// RefreshTeams handles POST /api/v1/teams/refresh
func (h *TeamHandler) RefreshTeams(w http.ResponseWriter, r *http.Request) {
	teams, err := h.scores.Refresh(r.Context())
	if err != nil {
		log.Error().Err(err).Msg("Failed to refresh teams")
		respondDomainError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"teams": teams,
	})
}

// AddPointsRequest represents the request body for a point change
type AddPointsRequest struct {
	Points int    `json:"points"`
	Reason string `json:"reason"`
}

// AddPoints handles POST /api/v1/teams/{team_id}/points
func (h *TeamHandler) AddPoints(w http.ResponseWriter, r *http.Request) {
	teamID := chi.URLParam(r, "team_id")

	var req AddPointsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	team, err := h.scores.AddPoints(r.Context(), teamID, req.Points, req.Reason)
	if err != nil {
		log.Error().
			Err(err).
			Str("team_id", teamID).
			Int("points", req.Points).
			Msg("Failed to apply points")
		respondDomainError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, team)
}

// ResetTeamPoints handles POST /api/v1/teams/{team_id}/reset
func (h *TeamHandler) ResetTeamPoints(w http.ResponseWriter, r *http.Request) {
	teamID := chi.URLParam(r, "team_id")
	if err := h.scores.ResetTeamPoints(r.Context(), teamID); err != nil {
		log.Error().Err(err).Str("team_id", teamID).Msg("Failed to reset team points")
		respondDomainError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"teams": h.scores.Teams(),
	})
}

// ResetAllPoints handles POST /api/v1/teams/reset
func (h *TeamHandler) ResetAllPoints(w http.ResponseWriter, r *http.Request) {
	if err := h.scores.ResetPoints(r.Context()); err != nil {
		log.Error().Err(err).Msg("Failed to reset all points")
		respondDomainError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"teams": h.scores.Teams(),
	})
}
