package votes

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"camp-companion/internal/cache"
	"camp-companion/internal/errs"
	"camp-companion/internal/models"
	"camp-companion/internal/remote"

	"github.com/rs/zerolog/log"
)

// VoteCap is the maximum number of votes per user per nomination category
// (per day for the daily category).
const VoteCap = 2

// Ledger tracks which votes this device's user has cast and enforces the
// per-category vote cap against the locally cached vote records.
type Ledger struct {
	store remote.Store
	cache *cache.Cache

	mu    sync.Mutex
	votes []models.UserVote
}

// NewLedger creates a vote ledger backed by the remote store and local cache
func NewLedger(store remote.Store, c *cache.Cache) *Ledger {
	return &Ledger{store: store, cache: c}
}

// Rehydrate loads previously persisted ledger entries from the local cache
func (l *Ledger) Rehydrate() error {
	var votes []models.UserVote
	if err := l.cache.Get(cache.StoreUserVotes, &votes); err != nil {
		if errors.Is(err, cache.ErrMiss) {
			return nil
		}
		return fmt.Errorf("failed to rehydrate vote ledger: %w", err)
	}
	l.mu.Lock()
	l.votes = votes
	l.mu.Unlock()
	return nil
}

// CanVote reports whether the user may still vote in the category. Daily
// nominations are capped per day; every other category is capped across all
// days, and callers pass DayAll for those.
func (l *Ledger) CanVote(userID string, typ models.NominationType, day models.Day) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.countLocked(userID, typ, day) < VoteCap
}

func (l *Ledger) countLocked(userID string, typ models.NominationType, day models.Day) int {
	count := 0
	for _, v := range l.votes {
		if v.UserID != userID || v.Type != typ {
			continue
		}
		if typ == models.NominationDaily && day != models.DayAll && v.Day != day {
			continue
		}
		count++
	}
	return count
}

// CastVote casts a vote for a nomination. The cap is checked locally before
// the remote call; on remote success one ledger entry is appended and the
// nomination is returned exactly as the store confirmed it, never as a
// locally computed increment.
func (l *Ledger) CastVote(ctx context.Context, nominationID, userID string, typ models.NominationType, day models.Day) (*models.Nomination, error) {
	if !l.CanVote(userID, typ, day) {
		return nil, &errs.CapReachedError{UserID: userID, Type: string(typ), Day: string(day)}
	}

	nom, err := l.store.VoteForNomination(ctx, nominationID, userID, typ, day)
	if err != nil {
		return nil, err
	}

	entry := models.UserVote{
		UserID:    userID,
		Type:      typ,
		Day:       day,
		Timestamp: time.Now(),
	}
	l.mu.Lock()
	l.votes = append(l.votes, entry)
	snap := append([]models.UserVote(nil), l.votes...)
	l.mu.Unlock()

	l.persist(snap)

	log.Info().
		Str("nomination_id", nominationID).
		Str("user_id", userID).
		Str("type", string(typ)).
		Str("day", string(day)).
		Int("votes", nom.Votes).
		Msg("vote recorded")

	return nom, nil
}

// ResetVotes zeroes vote counts and deletes vote rows on the remote store
// for the given scope. The local ledger is NOT touched here; callers follow
// up with ResetUserVotes. The two steps are independent: if this succeeds
// and the ledger clear is skipped, the ledger stays stale until the next
// RefreshVotes.
func (l *Ledger) ResetVotes(ctx context.Context, day models.Day, typ models.NominationType) error {
	return l.store.ResetVotes(ctx, day, typ)
}

// ResetUserVotes clears the local ledger
func (l *Ledger) ResetUserVotes() {
	l.mu.Lock()
	l.votes = nil
	l.mu.Unlock()
	l.persist(nil)
	log.Info().Msg("local vote ledger cleared")
}

// RefreshVotes refetches the user's vote records for the filter scope and
// merges them: entries inside the scope are replaced by the fetched set,
// entries outside it are kept.
func (l *Ledger) RefreshVotes(ctx context.Context, userID string, f remote.Filter) error {
	fetched, err := l.store.GetUserVotes(ctx, userID, f)
	if err != nil {
		return err
	}

	l.mu.Lock()
	merged := make([]models.UserVote, 0, len(l.votes)+len(fetched))
	for _, v := range l.votes {
		if v.UserID == userID && f.MatchesVote(v) {
			continue
		}
		merged = append(merged, v)
	}
	merged = append(merged, fetched...)
	l.votes = merged
	snap := append([]models.UserVote(nil), l.votes...)
	l.mu.Unlock()

	l.persist(snap)
	return nil
}

// Votes returns a snapshot of the ledger
func (l *Ledger) Votes() []models.UserVote {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]models.UserVote(nil), l.votes...)
}

func (l *Ledger) persist(votes []models.UserVote) {
	if votes == nil {
		votes = []models.UserVote{}
	}
	if err := l.cache.Put(cache.StoreUserVotes, votes); err != nil {
		log.Error().Err(err).Msg("failed to persist vote ledger")
	}
}
