package scores

import (
	"context"
	"errors"
	"fmt"
	"time"

	"camp-companion/internal/cache"
	"camp-companion/internal/errs"
	"camp-companion/internal/models"
	"camp-companion/internal/remote"
	syncctl "camp-companion/internal/sync"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"
)

// Aggregator maintains per-team point totals and the append-only history of
// point-change events, with the remote store as source of truth. Point
// mutations are applied optimistically for zero-latency UI feedback and then
// reconciled by an unconditional full refetch.
type Aggregator struct {
	store remote.Store
	ctrl  *syncctl.Controller[models.Team]
}

// NewAggregator creates a team score aggregator
func NewAggregator(store remote.Store, c *cache.Cache, clock clockwork.Clock) *Aggregator {
	a := &Aggregator{store: store}
	a.ctrl = syncctl.NewController(
		"teams",
		func(ctx context.Context, _ remote.Filter) ([]models.Team, error) {
			return store.GetTeams(ctx)
		},
		nil, // teams are always fetched unfiltered
		clock,
	)
	a.ctrl.OnChange(func(teams []models.Team) {
		if err := c.Put(cache.StoreTeams, teams); err != nil {
			log.Error().Err(err).Msg("failed to persist teams")
		}
	})
	return a
}

// Rehydrate pre-populates the collection from the local cache
func (a *Aggregator) Rehydrate(c *cache.Cache) error {
	var teams []models.Team
	if err := c.Get(cache.StoreTeams, &teams); err != nil {
		if errors.Is(err, cache.ErrMiss) {
			return nil
		}
		return fmt.Errorf("failed to rehydrate teams: %w", err)
	}
	a.ctrl.SetItems(teams)
	return nil
}

// Sync exposes the collection controller for polling and lifecycle wiring
func (a *Aggregator) Sync() *syncctl.Controller[models.Team] {
	return a.ctrl
}

// Teams returns a snapshot of all teams
func (a *Aggregator) Teams() []models.Team {
	return a.ctrl.Items()
}

// Team returns one team by id
func (a *Aggregator) Team(id string) (*models.Team, error) {
	for _, t := range a.ctrl.Items() {
		if t.ID == id {
			return &t, nil
		}
	}
	return nil, &errs.NotFoundError{Resource: "team", ID: id}
}

// Err returns the error recorded by the most recent refresh, or nil
func (a *Aggregator) Err() error {
	return a.ctrl.Err()
}

// Refresh refetches all teams from the remote store
func (a *Aggregator) Refresh(ctx context.Context) ([]models.Team, error) {
	return a.ctrl.Refresh(ctx, remote.Filter{})
}

// AddPoints applies a signed point delta to a team. The delta and a history
// entry are applied locally first, then the remote mutation is issued, then
// all teams are refetched unconditionally; the refetch is the reconciliation
// point and the optimistic state is never rolled back.
func (a *Aggregator) AddPoints(ctx context.Context, teamID string, delta int, reason string) (*models.Team, error) {
	if reason == "" {
		return nil, &errs.ValidationError{Field: "reason", Reason: "must not be empty"}
	}
	if _, err := a.Team(teamID); err != nil {
		return nil, err
	}

	a.ctrl.Mutate(func(teams []models.Team) []models.Team {
		for i := range teams {
			if teams[i].ID == teamID {
				teams[i].Points += delta
				teams[i].PointHistory = append(teams[i].PointHistory, models.PointEntry{
					ID:     uuid.New().String(),
					Points: delta,
					Reason: reason,
					Date:   time.Now(),
				})
			}
		}
		return teams
	})

	_, remoteErr := a.store.UpdateTeamPoints(ctx, teamID, delta, reason)
	if remoteErr != nil {
		log.Error().Err(remoteErr).Str("team_id", teamID).Int("delta", delta).Msg("remote point update failed")
	}

	// Reconciliation point: refetch regardless of remote success or failure.
	if _, err := a.ctrl.Refresh(ctx, remote.Filter{}); err != nil {
		log.Error().Err(err).Msg("team refetch after point update failed")
	}

	if remoteErr != nil {
		return nil, remoteErr
	}

	team, err := a.Team(teamID)
	if err != nil {
		return nil, err
	}
	log.Info().
		Str("team_id", teamID).
		Int("delta", delta).
		Str("reason", reason).
		Int("points", team.Points).
		Msg("points applied")
	return team, nil
}

// ResetTeamPoints zeroes points and clears history for one team, leaving
// every other team untouched. Same optimistic-then-refetch pattern as
// AddPoints.
func (a *Aggregator) ResetTeamPoints(ctx context.Context, teamID string) error {
	if _, err := a.Team(teamID); err != nil {
		return err
	}
	return a.reset(ctx, teamID)
}

// ResetPoints zeroes points and clears history for every team
func (a *Aggregator) ResetPoints(ctx context.Context) error {
	return a.reset(ctx, "")
}

func (a *Aggregator) reset(ctx context.Context, teamID string) error {
	a.ctrl.Mutate(func(teams []models.Team) []models.Team {
		for i := range teams {
			if teamID != "" && teams[i].ID != teamID {
				continue
			}
			teams[i].Points = 0
			teams[i].PointHistory = nil
		}
		return teams
	})

	_, remoteErr := a.store.ResetTeamPoints(ctx, teamID)
	if remoteErr != nil {
		log.Error().Err(remoteErr).Str("team_id", teamID).Msg("remote point reset failed")
	}

	if _, err := a.ctrl.Refresh(ctx, remote.Filter{}); err != nil {
		log.Error().Err(err).Msg("team refetch after reset failed")
	}

	if remoteErr != nil {
		return remoteErr
	}
	log.Info().Str("team_id", teamID).Msg("points reset")
	return nil
}
