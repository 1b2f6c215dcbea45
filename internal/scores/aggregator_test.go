package scores

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"

	"camp-companion/internal/cache"
	"camp-companion/internal/errs"
	"camp-companion/internal/models"
	"camp-companion/internal/remote"

	"github.com/jonboulle/clockwork"
)

// fakeStore serves teams from an in-memory slice and records mutations
type fakeStore struct {
	remote.Store

	mu        sync.Mutex
	teams     []models.Team
	updateErr error
	updates   int
	resets    []string
}

func (s *fakeStore) GetTeams(ctx context.Context) ([]models.Team, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]models.Team(nil), s.teams...), nil
}

func (s *fakeStore) UpdateTeamPoints(ctx context.Context, teamID string, points int, reason string) (*models.Team, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.updates++
	if s.updateErr != nil {
		return nil, s.updateErr
	}
	for i := range s.teams {
		if s.teams[i].ID == teamID {
			s.teams[i].Points += points
			t := s.teams[i]
			return &t, nil
		}
	}
	return nil, &errs.NotFoundError{Resource: "team", ID: teamID}
}

func (s *fakeStore) ResetTeamPoints(ctx context.Context, teamID string) ([]models.Team, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.resets = append(s.resets, teamID)
	for i := range s.teams {
		if teamID != "" && s.teams[i].ID != teamID {
			continue
		}
		s.teams[i].Points = 0
		s.teams[i].PointHistory = nil
	}
	return append([]models.Team(nil), s.teams...), nil
}

func newTestAggregator(t *testing.T, store *fakeStore) *Aggregator {
	t.Helper()
	c, err := cache.Open(filepath.Join(t.TempDir(), "cache.db"))
	if err != nil {
		t.Fatalf("cache.Open() error = %v", err)
	}
	t.Cleanup(func() { c.Close() })
	return NewAggregator(store, c, clockwork.NewFakeClock())
}

func twoTeams() []models.Team {
	return []models.Team{
		{ID: "red", Name: "Red", Points: 10},
		{ID: "blue", Name: "Blue", Points: 20},
	}
}

func TestAddPointsReconcilesWithRemote(t *testing.T) {
	store := &fakeStore{teams: twoTeams()}
	a := newTestAggregator(t, store)
	if _, err := a.Refresh(context.Background()); err != nil {
		t.Fatalf("Refresh() error = %v", err)
	}

	team, err := a.AddPoints(context.Background(), "red", 5, "obstacle course win")
	if err != nil {
		t.Fatalf("AddPoints() error = %v", err)
	}
	if team.Points != 15 {
		t.Errorf("Points = %d, want 15", team.Points)
	}

	// The other team is untouched.
	blue, err := a.Team("blue")
	if err != nil {
		t.Fatalf("Team(blue) error = %v", err)
	}
	if blue.Points != 20 {
		t.Errorf("blue Points = %d, want 20", blue.Points)
	}
}

func TestAddPointsValidation(t *testing.T) {
	store := &fakeStore{teams: twoTeams()}
	a := newTestAggregator(t, store)
	if _, err := a.Refresh(context.Background()); err != nil {
		t.Fatalf("Refresh() error = %v", err)
	}

	tests := []struct {
		name   string
		teamID string
		reason string
		want   interface{}
	}{
		{"empty reason", "red", "", &errs.ValidationError{}},
		{"unknown team", "green", "cleanup", &errs.NotFoundError{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := a.AddPoints(context.Background(), tt.teamID, 5, tt.reason)
			if err == nil {
				t.Fatal("AddPoints() expected error")
			}
			switch tt.want.(type) {
			case *errs.ValidationError:
				var ve *errs.ValidationError
				if !errors.As(err, &ve) {
					t.Errorf("error = %v, want ValidationError", err)
				}
			case *errs.NotFoundError:
				var ne *errs.NotFoundError
				if !errors.As(err, &ne) {
					t.Errorf("error = %v, want NotFoundError", err)
				}
			}
			if store.updates != 0 {
				t.Errorf("remote updates = %d, want 0", store.updates)
			}
		})
	}
}

func TestAddPointsRemoteFailureStillRefetches(t *testing.T) {
	store := &fakeStore{
		teams:     twoTeams(),
		updateErr: &errs.RemoteError{Op: "update points", Err: errors.New("boom")},
	}
	a := newTestAggregator(t, store)
	if _, err := a.Refresh(context.Background()); err != nil {
		t.Fatalf("Refresh() error = %v", err)
	}

	_, err := a.AddPoints(context.Background(), "red", 5, "relay win")
	if err == nil {
		t.Fatal("AddPoints() expected error")
	}

	// The optimistic delta was discarded by the refetch: the remote never
	// applied it, and the refetch is the reconciliation point.
	team, err := a.Team("red")
	if err != nil {
		t.Fatalf("Team(red) error = %v", err)
	}
	if team.Points != 10 {
		t.Errorf("Points = %d after failed remote update, want remote value 10", team.Points)
	}
	if len(team.PointHistory) != 0 {
		t.Errorf("PointHistory length = %d, want 0", len(team.PointHistory))
	}
}

func TestResetTeamPointsLeavesOthersAlone(t *testing.T) {
	store := &fakeStore{teams: twoTeams()}
	a := newTestAggregator(t, store)
	if _, err := a.Refresh(context.Background()); err != nil {
		t.Fatalf("Refresh() error = %v", err)
	}

	if err := a.ResetTeamPoints(context.Background(), "red"); err != nil {
		t.Fatalf("ResetTeamPoints() error = %v", err)
	}

	red, _ := a.Team("red")
	blue, _ := a.Team("blue")
	if red.Points != 0 {
		t.Errorf("red Points = %d, want 0", red.Points)
	}
	if blue.Points != 20 {
		t.Errorf("blue Points = %d, want 20", blue.Points)
	}
}

func TestResetAllPoints(t *testing.T) {
	store := &fakeStore{teams: twoTeams()}
	a := newTestAggregator(t, store)
	if _, err := a.Refresh(context.Background()); err != nil {
		t.Fatalf("Refresh() error = %v", err)
	}

	if err := a.ResetPoints(context.Background()); err != nil {
		t.Fatalf("ResetPoints() error = %v", err)
	}
	for _, team := range a.Teams() {
		if team.Points != 0 {
			t.Errorf("%s Points = %d, want 0", team.ID, team.Points)
		}
	}
	if len(store.resets) != 1 || store.resets[0] != "" {
		t.Errorf("remote resets = %v, want one unscoped reset", store.resets)
	}
}

func TestRehydrateServesCachedTeams(t *testing.T) {
	c, err := cache.Open(filepath.Join(t.TempDir(), "cache.db"))
	if err != nil {
		t.Fatalf("cache.Open() error = %v", err)
	}
	defer c.Close()
	if err := c.Put(cache.StoreTeams, twoTeams()); err != nil {
		t.Fatalf("Put() error = %v", err)
	}

	a := NewAggregator(&fakeStore{}, c, clockwork.NewFakeClock())
	if err := a.Rehydrate(c); err != nil {
		t.Fatalf("Rehydrate() error = %v", err)
	}
	if got := len(a.Teams()); got != 2 {
		t.Errorf("Teams() length = %d after rehydrate, want 2", got)
	}
}
