package nominations

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"camp-companion/internal/cache"
	"camp-companion/internal/errs"
	"camp-companion/internal/models"
	"camp-companion/internal/remote"
	syncctl "camp-companion/internal/sync"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"
)

// DefaultTopN is the number of entries returned by TopN when n is not positive
const DefaultTopN = 3

// Aggregator maintains the nomination collection and derives filtered and
// top-N views over it without re-querying the remote store per view.
type Aggregator struct {
	store remote.Store
	ctrl  *syncctl.Controller[models.Nomination]

	rosterMu sync.Mutex
	roster   map[string]models.Camper
}

// NewAggregator creates a nomination aggregator
func NewAggregator(store remote.Store, c *cache.Cache, clock clockwork.Clock) *Aggregator {
	a := &Aggregator{
		store:  store,
		roster: make(map[string]models.Camper),
	}
	a.ctrl = syncctl.NewController(
		"nominations",
		func(ctx context.Context, f remote.Filter) ([]models.Nomination, error) {
			return store.GetNominations(ctx, f)
		},
		func(n models.Nomination, f remote.Filter) bool {
			return f.MatchesNomination(n)
		},
		clock,
	)
	a.ctrl.OnChange(func(noms []models.Nomination) {
		if err := c.Put(cache.StoreNominations, noms); err != nil {
			log.Error().Err(err).Msg("failed to persist nominations")
		}
	})
	return a
}

// Rehydrate pre-populates the collection from the local cache
func (a *Aggregator) Rehydrate(c *cache.Cache) error {
	var noms []models.Nomination
	if err := c.Get(cache.StoreNominations, &noms); err != nil {
		if errors.Is(err, cache.ErrMiss) {
			return nil
		}
		return fmt.Errorf("failed to rehydrate nominations: %w", err)
	}
	a.ctrl.SetItems(noms)
	return nil
}

// Sync exposes the collection controller for polling and lifecycle wiring
func (a *Aggregator) Sync() *syncctl.Controller[models.Nomination] {
	return a.ctrl
}

// Err returns the error recorded by the most recent refresh, or nil
func (a *Aggregator) Err() error {
	return a.ctrl.Err()
}

// Refresh refetches nominations inside the filter scope
func (a *Aggregator) Refresh(ctx context.Context, f remote.Filter) ([]models.Nomination, error) {
	return a.ctrl.Refresh(ctx, f)
}

// RefreshRoster refetches the camper roster used to validate submissions
func (a *Aggregator) RefreshRoster(ctx context.Context) error {
	campers, err := a.store.GetCampers(ctx)
	if err != nil {
		return err
	}
	a.rosterMu.Lock()
	a.roster = make(map[string]models.Camper, len(campers))
	for _, c := range campers {
		a.roster[c.ID] = c
	}
	a.rosterMu.Unlock()
	return nil
}

// Campers returns the roster snapshot, sorted by name
func (a *Aggregator) Campers() []models.Camper {
	a.rosterMu.Lock()
	campers := make([]models.Camper, 0, len(a.roster))
	for _, c := range a.roster {
		campers = append(campers, c)
	}
	a.rosterMu.Unlock()
	sort.Slice(campers, func(i, j int) bool { return campers[i].Name < campers[j].Name })
	return campers
}

func (a *Aggregator) knownCamper(id string) bool {
	a.rosterMu.Lock()
	defer a.rosterMu.Unlock()
	_, ok := a.roster[id]
	return ok
}

// ByDayAndType returns nominations matching both day and type exactly
func (a *Aggregator) ByDayAndType(day models.Day, typ models.NominationType) []models.Nomination {
	var out []models.Nomination
	for _, n := range a.ctrl.Items() {
		if n.Day == day && n.Type == typ {
			out = append(out, n)
		}
	}
	return out
}

// ByType returns nominations of a type across all days. Used for the special
// categories, which are not day-scoped in the UI.
func (a *Aggregator) ByType(typ models.NominationType) []models.Nomination {
	var out []models.Nomination
	for _, n := range a.ctrl.Items() {
		if n.Type == typ {
			out = append(out, n)
		}
	}
	return out
}

// TopN returns up to n nominations of a type, sorted by votes descending.
// Ties are broken by submission time ascending, then by id, so the ordering
// is deterministic regardless of how the collection arrived.
func (a *Aggregator) TopN(typ models.NominationType, n int) []models.Nomination {
	if n <= 0 {
		n = DefaultTopN
	}
	candidates := a.ByType(typ)
	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].Votes != candidates[j].Votes {
			return candidates[i].Votes > candidates[j].Votes
		}
		if !candidates[i].CreatedAt.Equal(candidates[j].CreatedAt) {
			return candidates[i].CreatedAt.Before(candidates[j].CreatedAt)
		}
		return candidates[i].ID < candidates[j].ID
	})
	if len(candidates) > n {
		candidates = candidates[:n]
	}
	return candidates
}

// Submit creates a new nomination and reconciles with a refetch scoped to
// the nomination's type.
func (a *Aggregator) Submit(ctx context.Context, camperID, reason string, day models.Day, typ models.NominationType) (*models.Nomination, error) {
	if reason == "" {
		return nil, &errs.ValidationError{Field: "reason", Reason: "must not be empty"}
	}
	if !models.ValidNominationType(typ) {
		return nil, &errs.ValidationError{Field: "type", Reason: fmt.Sprintf("unknown nomination type %q", typ)}
	}
	if !models.ValidDay(day) || day == models.DayAll {
		return nil, &errs.ValidationError{Field: "day", Reason: fmt.Sprintf("unknown program day %q", day)}
	}
	if !a.knownCamper(camperID) {
		return nil, &errs.ValidationError{Field: "camper_id", Reason: fmt.Sprintf("camper %q is not on the roster", camperID)}
	}

	nom, err := a.store.AddNomination(ctx, camperID, reason, day, typ)
	if err != nil {
		return nil, err
	}

	if _, err := a.ctrl.Refresh(ctx, remote.Filter{Type: typ}); err != nil {
		log.Error().Err(err).Str("type", string(typ)).Msg("nomination refetch after submit failed")
	}

	log.Info().
		Str("nomination_id", nom.ID).
		Str("camper_id", camperID).
		Str("type", string(typ)).
		Str("day", string(day)).
		Msg("nomination submitted")
	return nom, nil
}

// Delete removes a nomination. Any profile may delete any nomination; there
// is deliberately no ownership check. Reconciles with an unscoped refetch.
func (a *Aggregator) Delete(ctx context.Context, nominationID string) error {
	if err := a.store.DeleteNomination(ctx, nominationID); err != nil {
		return err
	}
	if _, err := a.ctrl.Refresh(ctx, remote.Filter{}); err != nil {
		log.Error().Err(err).Msg("nomination refetch after delete failed")
	}
	log.Info().Str("nomination_id", nominationID).Msg("nomination deleted")
	return nil
}

// Apply merges one reconciled nomination (as confirmed by the store, e.g.
// from a vote response) into the local collection without a fetch.
func (a *Aggregator) Apply(nom models.Nomination) {
	a.ctrl.Mutate(func(noms []models.Nomination) []models.Nomination {
		for i := range noms {
			if noms[i].ID == nom.ID {
				noms[i] = nom
				return noms
			}
		}
		return append(noms, nom)
	})
}
