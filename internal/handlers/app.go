package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"camp-companion/internal/nominations"
	"camp-companion/internal/notifications"
	"camp-companion/internal/profile"
	"camp-companion/internal/remote"
	"camp-companion/internal/resources"
	"camp-companion/internal/scores"
	"camp-companion/internal/votes"

	"github.com/rs/zerolog/log"
)

// AppHandler handles profile and app lifecycle HTTP requests
type AppHandler struct {
	profile       *profile.Manager
	scores        *scores.Aggregator
	nominations   *nominations.Aggregator
	notifications *notifications.Service
	resources     *resources.Service
	ledger        *votes.Ledger
}

// NewAppHandler creates a new app handler
func NewAppHandler(p *profile.Manager, s *scores.Aggregator, n *nominations.Aggregator, nt *notifications.Service, rs *resources.Service, l *votes.Ledger) *AppHandler {
	return &AppHandler{
		profile:       p,
		scores:        s,
		nominations:   n,
		notifications: nt,
		resources:     rs,
		ledger:        l,
	}
}

// GetProfile handles GET /api/v1/profile
func (h *AppHandler) GetProfile(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, h.profile.Current())
}

// RenameProfileRequest represents the request body for a profile rename
type RenameProfileRequest struct {
	Name string `json:"name"`
}

// RenameProfile handles POST /api/v1/profile
func (h *AppHandler) RenameProfile(w http.ResponseWriter, r *http.Request) {
	var req RenameProfileRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if req.Name == "" {
		respondError(w, "name is required", http.StatusBadRequest)
		return
	}
	p, err := h.profile.Rename(req.Name)
	if err != nil {
		respondError(w, err.Error(), http.StatusInternalServerError)
		return
	}
	respondJSON(w, http.StatusOK, p)
}

// Foreground handles POST /api/v1/app/foreground
//
// Resumes polling on every synced collection and triggers an immediate
// refresh of each one. Refreshes run detached from the request context so
// they survive the response.
func (h *AppHandler) Foreground(w http.ResponseWriter, r *http.Request) {
	ctx := context.Background()
	h.scores.Sync().Foreground(ctx)
	h.nominations.Sync().Foreground(ctx)
	h.notifications.Sync().Foreground(ctx)

	userID := h.profile.Current().UserID
	go func() {
		if err := h.ledger.RefreshVotes(ctx, userID, remote.Filter{}); err != nil {
			log.Error().Err(err).Msg("Vote refresh on foreground failed")
		}
	}()
	go func() {
		if _, err := h.resources.Refresh(ctx, ""); err != nil {
			log.Error().Err(err).Msg("Resource refresh on foreground failed")
		}
	}()

	log.Info().Msg("App foregrounded")
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
	})
}

// Background handles POST /api/v1/app/background
//
// Suspends polling on every synced collection, notifications included.
func (h *AppHandler) Background(w http.ResponseWriter, r *http.Request) {
	h.scores.Sync().Background()
	h.nominations.Sync().Background()
	h.notifications.Sync().Background()
	log.Info().Msg("App backgrounded")
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
	})
}
