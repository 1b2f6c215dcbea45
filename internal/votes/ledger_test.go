package votes

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"camp-companion/internal/cache"
	"camp-companion/internal/errs"
	"camp-companion/internal/models"
	"camp-companion/internal/remote"
)

// fakeStore implements the store methods the ledger touches; everything else
// panics via the embedded nil interface.
type fakeStore struct {
	remote.Store

	voteErr   error
	votes     []models.UserVote
	resetDay  models.Day
	resetType models.NominationType
}

func (s *fakeStore) VoteForNomination(ctx context.Context, nominationID, userID string, typ models.NominationType, day models.Day) (*models.Nomination, error) {
	if s.voteErr != nil {
		return nil, s.voteErr
	}
	return &models.Nomination{ID: nominationID, Type: typ, Day: day, Votes: 7}, nil
}

func (s *fakeStore) GetUserVotes(ctx context.Context, userID string, f remote.Filter) ([]models.UserVote, error) {
	var out []models.UserVote
	for _, v := range s.votes {
		if v.UserID == userID && f.MatchesVote(v) {
			out = append(out, v)
		}
	}
	return out, nil
}

func (s *fakeStore) ResetVotes(ctx context.Context, day models.Day, typ models.NominationType) error {
	s.resetDay = day
	s.resetType = typ
	return nil
}

func newTestLedger(t *testing.T, store *fakeStore) (*Ledger, *cache.Cache) {
	t.Helper()
	c, err := cache.Open(filepath.Join(t.TempDir(), "cache.db"))
	if err != nil {
		t.Fatalf("cache.Open() error = %v", err)
	}
	t.Cleanup(func() { c.Close() })
	return NewLedger(store, c), c
}

func TestCastVoteCap(t *testing.T) {
	l, _ := newTestLedger(t, &fakeStore{})
	ctx := context.Background()

	for i := 0; i < VoteCap; i++ {
		if _, err := l.CastVote(ctx, "nom-1", "user-1", models.NominationBravery, models.DayAll); err != nil {
			t.Fatalf("CastVote() #%d error = %v", i+1, err)
		}
	}

	_, err := l.CastVote(ctx, "nom-1", "user-1", models.NominationBravery, models.DayAll)
	var capErr *errs.CapReachedError
	if !errors.As(err, &capErr) {
		t.Fatalf("CastVote() over cap error = %v, want CapReachedError", err)
	}

	// Other categories and other users are unaffected.
	if !l.CanVote("user-1", models.NominationService, models.DayAll) {
		t.Error("CanVote() = false for a different category")
	}
	if !l.CanVote("user-2", models.NominationBravery, models.DayAll) {
		t.Error("CanVote() = false for a different user")
	}
}

func TestDailyCapIsPerDay(t *testing.T) {
	l, _ := newTestLedger(t, &fakeStore{})
	ctx := context.Background()

	for i := 0; i < VoteCap; i++ {
		if _, err := l.CastVote(ctx, "nom-1", "user-1", models.NominationDaily, models.DayTuesday); err != nil {
			t.Fatalf("CastVote() error = %v", err)
		}
	}

	if l.CanVote("user-1", models.NominationDaily, models.DayTuesday) {
		t.Error("CanVote() = true on the capped day")
	}
	if !l.CanVote("user-1", models.NominationDaily, models.DayWednesday) {
		t.Error("CanVote() = false on a fresh day")
	}
}

func TestCastVoteReturnsStoreConfirmedCount(t *testing.T) {
	l, _ := newTestLedger(t, &fakeStore{})

	nom, err := l.CastVote(context.Background(), "nom-1", "user-1", models.NominationScholar, models.DayAll)
	if err != nil {
		t.Fatalf("CastVote() error = %v", err)
	}
	if nom.Votes != 7 {
		t.Errorf("Votes = %d, want the store-confirmed 7", nom.Votes)
	}
}

func TestCastVoteRemoteFailureRecordsNothing(t *testing.T) {
	store := &fakeStore{voteErr: &errs.RemoteError{Op: "vote", Err: errors.New("boom")}}
	l, _ := newTestLedger(t, store)

	if _, err := l.CastVote(context.Background(), "nom-1", "user-1", models.NominationBravery, models.DayAll); err == nil {
		t.Fatal("CastVote() expected error")
	}
	if got := len(l.Votes()); got != 0 {
		t.Errorf("Votes() length = %d after failed vote, want 0", got)
	}
}

func TestLedgerPersistsAcrossRestart(t *testing.T) {
	store := &fakeStore{}
	c, err := cache.Open(filepath.Join(t.TempDir(), "cache.db"))
	if err != nil {
		t.Fatalf("cache.Open() error = %v", err)
	}
	defer c.Close()

	l := NewLedger(store, c)
	if _, err := l.CastVote(context.Background(), "nom-1", "user-1", models.NominationBravery, models.DayAll); err != nil {
		t.Fatalf("CastVote() error = %v", err)
	}

	// A fresh ledger over the same cache sees the recorded vote.
	l2 := NewLedger(store, c)
	if err := l2.Rehydrate(); err != nil {
		t.Fatalf("Rehydrate() error = %v", err)
	}
	if got := len(l2.Votes()); got != 1 {
		t.Errorf("Votes() length after rehydrate = %d, want 1", got)
	}
}

func TestResetVotesScope(t *testing.T) {
	store := &fakeStore{}
	l, _ := newTestLedger(t, store)

	if err := l.ResetVotes(context.Background(), models.DayTuesday, models.NominationDaily); err != nil {
		t.Fatalf("ResetVotes() error = %v", err)
	}
	if store.resetDay != models.DayTuesday || store.resetType != models.NominationDaily {
		t.Errorf("reset scope = (%s, %s), want (tuesday, daily)", store.resetDay, store.resetType)
	}
}

func TestResetUserVotesClearsLocally(t *testing.T) {
	l, _ := newTestLedger(t, &fakeStore{})
	if _, err := l.CastVote(context.Background(), "nom-1", "user-1", models.NominationBravery, models.DayAll); err != nil {
		t.Fatalf("CastVote() error = %v", err)
	}

	l.ResetUserVotes()
	if got := len(l.Votes()); got != 0 {
		t.Errorf("Votes() length = %d after reset, want 0", got)
	}
	if !l.CanVote("user-1", models.NominationBravery, models.DayAll) {
		t.Error("CanVote() = false after ledger reset")
	}
}

func TestRefreshVotesMergesScope(t *testing.T) {
	store := &fakeStore{
		votes: []models.UserVote{
			{UserID: "user-1", Type: models.NominationDaily, Day: models.DayTuesday, Timestamp: time.Now()},
			{UserID: "user-1", Type: models.NominationDaily, Day: models.DayTuesday, Timestamp: time.Now()},
		},
	}
	l, _ := newTestLedger(t, store)

	// Local ledger holds one vote outside the refresh scope and one inside.
	if _, err := l.CastVote(context.Background(), "nom-1", "user-1", models.NominationBravery, models.DayAll); err != nil {
		t.Fatalf("CastVote() error = %v", err)
	}
	if _, err := l.CastVote(context.Background(), "nom-2", "user-1", models.NominationDaily, models.DayTuesday); err != nil {
		t.Fatalf("CastVote() error = %v", err)
	}

	f := remote.Filter{Type: models.NominationDaily, Day: models.DayTuesday}
	if err := l.RefreshVotes(context.Background(), "user-1", f); err != nil {
		t.Fatalf("RefreshVotes() error = %v", err)
	}

	// The scoped entry was replaced by the two fetched records; the bravery
	// vote survived.
	if got := len(l.Votes()); got != 3 {
		t.Fatalf("Votes() length = %d, want 3", got)
	}
	if l.CanVote("user-1", models.NominationDaily, models.DayTuesday) {
		t.Error("CanVote() = true after refresh showed the day is capped")
	}
}
