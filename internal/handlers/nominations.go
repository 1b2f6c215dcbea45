package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"

	"camp-companion/internal/models"
	"camp-companion/internal/nominations"
	"camp-companion/internal/profile"
	"camp-companion/internal/remote"
	"camp-companion/internal/votes"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"
)

// NominationHandler handles nomination and vote HTTP requests
type NominationHandler struct {
	nominations *nominations.Aggregator
	ledger      *votes.Ledger
	profile     *profile.Manager
}

// NewNominationHandler creates a new nomination handler
func NewNominationHandler(n *nominations.Aggregator, l *votes.Ledger, p *profile.Manager) *NominationHandler {
	return &NominationHandler{
		nominations: n,
		ledger:      l,
		profile:     p,
	}
}

func filterFromQuery(r *http.Request) remote.Filter {
	return remote.Filter{
		Type: models.NominationType(r.URL.Query().Get("type")),
		Day:  models.Day(r.URL.Query().Get("day")),
	}
}

// GetNominations handles GET /api/v1/nominations
//
// Query parameters: type, day (both optional), top (returns the top-N view
// for the given type instead of the raw list).
func (h *NominationHandler) GetNominations(w http.ResponseWriter, r *http.Request) {
	typ := models.NominationType(r.URL.Query().Get("type"))
	day := models.Day(r.URL.Query().Get("day"))

	if topStr := r.URL.Query().Get("top"); topStr != "" {
		n, err := strconv.Atoi(topStr)
		if err != nil {
			respondError(w, "top must be an integer", http.StatusBadRequest)
			return
		}
		respondJSON(w, http.StatusOK, map[string]interface{}{
			"nominations": h.nominations.TopN(typ, n),
		})
		return
	}

	var noms []models.Nomination
	switch {
	case typ != "" && day != "":
		noms = h.nominations.ByDayAndType(day, typ)
	case typ != "":
		noms = h.nominations.ByType(typ)
	default:
		f := remote.Filter{Type: typ, Day: day}
		for _, nom := range h.nominations.Sync().Items() {
			if f.MatchesNomination(nom) {
				noms = append(noms, nom)
			}
		}
	}
	if noms == nil {
		noms = []models.Nomination{}
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"nominations": noms,
	})
}

// RefreshNominations handles POST /api/v1/nominations/refresh
func (h *NominationHandler) RefreshNominations(w http.ResponseWriter, r *http.Request) {
	noms, err := h.nominations.Refresh(r.Context(), filterFromQuery(r))
	if err != nil {
		log.Error().Err(err).Msg("Failed to refresh nominations")
		respondDomainError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"nominations": noms,
	})
}

// SubmitNominationRequest represents the request body for a new nomination
type SubmitNominationRequest struct {
	CamperID string `json:"camper_id"`
	Reason   string `json:"reason"`
	Day      string `json:"day"`
	Type     string `json:"type"`
}

// SubmitNomination handles POST /api/v1/nominations
func (h *NominationHandler) SubmitNomination(w http.ResponseWriter, r *http.Request) {
	var req SubmitNominationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	nom, err := h.nominations.Submit(r.Context(), req.CamperID, req.Reason, models.Day(req.Day), models.NominationType(req.Type))
	if err != nil {
		log.Error().
			Err(err).
			Str("camper_id", req.CamperID).
			Str("type", req.Type).
			Msg("Failed to submit nomination")
		respondDomainError(w, err)
		return
	}

	respondJSON(w, http.StatusCreated, nom)
}

// DeleteNomination handles DELETE /api/v1/nominations/{nomination_id}
func (h *NominationHandler) DeleteNomination(w http.ResponseWriter, r *http.Request) {
	nominationID := chi.URLParam(r, "nomination_id")
	if err := h.nominations.Delete(r.Context(), nominationID); err != nil {
		log.Error().Err(err).Str("nomination_id", nominationID).Msg("Failed to delete nomination")
		respondDomainError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
	})
}

// VoteRequest represents the request body for a vote
type VoteRequest struct {
	Type string `json:"type"`
	Day  string `json:"day"`
}

// Vote handles POST /api/v1/nominations/{nomination_id}/vote
func (h *NominationHandler) Vote(w http.ResponseWriter, r *http.Request) {
	nominationID := chi.URLParam(r, "nomination_id")
	userID := h.profile.Current().UserID

	var req VoteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	nom, err := h.ledger.CastVote(r.Context(), nominationID, userID, models.NominationType(req.Type), models.Day(req.Day))
	if err != nil {
		log.Error().
			Err(err).
			Str("nomination_id", nominationID).
			Str("user_id", userID).
			Msg("Failed to cast vote")
		respondDomainError(w, err)
		return
	}

	// Fold the store-confirmed count back into the collection.
	h.nominations.Apply(*nom)

	respondJSON(w, http.StatusOK, nom)
}

// GetVotes handles GET /api/v1/votes
func (h *NominationHandler) GetVotes(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"votes": h.ledger.Votes(),
	})
}

// ResetVotesRequest represents the request body for a vote reset
type ResetVotesRequest struct {
	Day         string `json:"day"`
	Type        string `json:"type"`
	ClearLedger bool   `json:"clear_ledger"`
}

// ResetVotes handles POST /api/v1/votes/reset
func (h *NominationHandler) ResetVotes(w http.ResponseWriter, r *http.Request) {
	var req ResetVotesRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	if err := h.ledger.ResetVotes(r.Context(), models.Day(req.Day), models.NominationType(req.Type)); err != nil {
		log.Error().Err(err).Msg("Failed to reset votes")
		respondDomainError(w, err)
		return
	}
	if req.ClearLedger {
		h.ledger.ResetUserVotes()
	}

	if _, err := h.nominations.Refresh(r.Context(), remote.Filter{Type: models.NominationType(req.Type), Day: models.Day(req.Day)}); err != nil {
		log.Error().Err(err).Msg("Nomination refetch after vote reset failed")
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
	})
}

// GetCampers handles GET /api/v1/campers
func (h *NominationHandler) GetCampers(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"campers": h.nominations.Campers(),
	})
}
