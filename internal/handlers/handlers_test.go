package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"camp-companion/internal/cache"
	"camp-companion/internal/errs"
	"camp-companion/internal/models"
	"camp-companion/internal/nominations"
	"camp-companion/internal/notifications"
	"camp-companion/internal/profile"
	"camp-companion/internal/remote"
	"camp-companion/internal/resources"
	"camp-companion/internal/scores"
	"camp-companion/internal/votes"

	"github.com/go-chi/chi/v5"
	"github.com/jonboulle/clockwork"
)

type fakeStore struct {
	remote.Store

	mu          sync.Mutex
	teams       []models.Team
	nominations []models.Nomination
	campers     []models.Camper

	resourceLists atomic.Int32
	voteLists     atomic.Int32
}

func (s *fakeStore) GetTeams(ctx context.Context) ([]models.Team, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]models.Team(nil), s.teams...), nil
}

func (s *fakeStore) UpdateTeamPoints(ctx context.Context, teamID string, points int, reason string) (*models.Team, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.teams {
		if s.teams[i].ID == teamID {
			s.teams[i].Points += points
			t := s.teams[i]
			return &t, nil
		}
	}
	return nil, &errs.NotFoundError{Resource: "team", ID: teamID}
}

func (s *fakeStore) GetNominations(ctx context.Context, f remote.Filter) ([]models.Nomination, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.Nomination
	for _, n := range s.nominations {
		if f.MatchesNomination(n) {
			out = append(out, n)
		}
	}
	return out, nil
}

func (s *fakeStore) VoteForNomination(ctx context.Context, nominationID, userID string, typ models.NominationType, day models.Day) (*models.Nomination, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.nominations {
		if s.nominations[i].ID == nominationID {
			s.nominations[i].Votes++
			n := s.nominations[i]
			return &n, nil
		}
	}
	return nil, &errs.NotFoundError{Resource: "nomination", ID: nominationID}
}

func (s *fakeStore) GetCampers(ctx context.Context) ([]models.Camper, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]models.Camper(nil), s.campers...), nil
}

func (s *fakeStore) ListResources(ctx context.Context, category string) ([]models.Resource, error) {
	s.resourceLists.Add(1)
	return nil, nil
}

func (s *fakeStore) GetUserVotes(ctx context.Context, userID string, f remote.Filter) ([]models.UserVote, error) {
	s.voteLists.Add(1)
	return nil, nil
}

type testEnv struct {
	store   *fakeStore
	router  chi.Router
	profile *profile.Manager
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	c, err := cache.Open(filepath.Join(t.TempDir(), "cache.db"))
	if err != nil {
		t.Fatalf("cache.Open() error = %v", err)
	}
	t.Cleanup(func() { c.Close() })

	store := &fakeStore{
		teams: []models.Team{
			{ID: "red", Name: "Red", Points: 10},
			{ID: "blue", Name: "Blue", Points: 20},
		},
		nominations: []models.Nomination{
			{ID: "n1", CamperID: "c1", Day: models.DayTuesday, Type: models.NominationDaily, Votes: 2, CreatedAt: time.Now()},
		},
		campers: []models.Camper{{ID: "c1", Name: "Avery"}},
	}

	clock := clockwork.NewFakeClock()
	profileMgr := profile.NewManager(c)
	if _, err := profileMgr.Ensure("Tester"); err != nil {
		t.Fatalf("profile.Ensure() error = %v", err)
	}

	ledger := votes.NewLedger(store, c)
	scoreAgg := scores.NewAggregator(store, c, clock)
	nomAgg := nominations.NewAggregator(store, c, clock)

	ctx := context.Background()
	if _, err := scoreAgg.Refresh(ctx); err != nil {
		t.Fatalf("scores.Refresh() error = %v", err)
	}
	if _, err := nomAgg.Refresh(ctx, remote.Filter{}); err != nil {
		t.Fatalf("nominations.Refresh() error = %v", err)
	}
	if err := nomAgg.RefreshRoster(ctx); err != nil {
		t.Fatalf("RefreshRoster() error = %v", err)
	}

	teamHandler := NewTeamHandler(scoreAgg)
	nomHandler := NewNominationHandler(nomAgg, ledger, profileMgr)

	r := chi.NewRouter()
	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/teams", teamHandler.GetTeams)
		r.Get("/teams/{team_id}", teamHandler.GetTeam)
		r.Post("/teams/{team_id}/points", teamHandler.AddPoints)
		r.Get("/nominations", nomHandler.GetNominations)
		r.Post("/nominations/{nomination_id}/vote", nomHandler.Vote)
		r.Get("/campers", nomHandler.GetCampers)
	})

	return &testEnv{store: store, router: r, profile: profileMgr}
}

func (e *testEnv) do(t *testing.T, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

func TestGetTeamsEndpoint(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(t, http.MethodGet, "/api/v1/teams", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	var resp struct {
		Teams []models.Team `json:"teams"`
	}
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(resp.Teams) != 2 {
		t.Errorf("teams = %d, want 2", len(resp.Teams))
	}
}

func TestGetTeamNotFound(t *testing.T) {
	env := newTestEnv(t)
	w := env.do(t, http.MethodGet, "/api/v1/teams/green", nil)
	if w.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", w.Code)
	}
}

func TestAddPointsEndpoint(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(t, http.MethodPost, "/api/v1/teams/red/points", AddPointsRequest{Points: 5, Reason: "relay win"})
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", w.Code, w.Body.String())
	}
	var team models.Team
	if err := json.NewDecoder(w.Body).Decode(&team); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if team.Points != 15 {
		t.Errorf("Points = %d, want 15", team.Points)
	}
}

func TestAddPointsValidationStatus(t *testing.T) {
	env := newTestEnv(t)
	w := env.do(t, http.MethodPost, "/api/v1/teams/red/points", AddPointsRequest{Points: 5})
	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", w.Code)
	}
}

func TestVoteCapReturnsConflict(t *testing.T) {
	env := newTestEnv(t)

	body := VoteRequest{Type: "daily", Day: "tuesday"}
	for i := 0; i < votes.VoteCap; i++ {
		w := env.do(t, http.MethodPost, "/api/v1/nominations/n1/vote", body)
		if w.Code != http.StatusOK {
			t.Fatalf("vote #%d status = %d, want 200: %s", i+1, w.Code, w.Body.String())
		}
	}

	w := env.do(t, http.MethodPost, "/api/v1/nominations/n1/vote", body)
	if w.Code != http.StatusConflict {
		t.Errorf("status = %d over cap, want 409", w.Code)
	}
}

func TestGetNominationsTopN(t *testing.T) {
	env := newTestEnv(t)
	w := env.do(t, http.MethodGet, "/api/v1/nominations?type=daily&top=1", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	var resp struct {
		Nominations []models.Nomination `json:"nominations"`
	}
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(resp.Nominations) != 1 {
		t.Errorf("nominations = %d, want 1", len(resp.Nominations))
	}
}

func TestForegroundRefreshesVotesAndResources(t *testing.T) {
	c, err := cache.Open(filepath.Join(t.TempDir(), "cache.db"))
	if err != nil {
		t.Fatalf("cache.Open() error = %v", err)
	}
	defer c.Close()

	store := &fakeStore{}
	clock := clockwork.NewFakeClock()
	profileMgr := profile.NewManager(c)
	if _, err := profileMgr.Ensure("Tester"); err != nil {
		t.Fatalf("profile.Ensure() error = %v", err)
	}

	ledger := votes.NewLedger(store, c)
	scoreAgg := scores.NewAggregator(store, c, clock)
	nomAgg := nominations.NewAggregator(store, c, clock)
	notifSvc := notifications.NewService(store, c, clock)
	resourceSvc, err := resources.NewService(store, c, "us-east-1", "test-bucket", "test", "test", "")
	if err != nil {
		t.Fatalf("resources.NewService() error = %v", err)
	}

	h := NewAppHandler(profileMgr, scoreAgg, nomAgg, notifSvc, resourceSvc, ledger)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/app/foreground", nil)
	w := httptest.NewRecorder()
	h.Foreground(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}

	// The vote and resource refreshes run detached from the request.
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if store.voteLists.Load() == 1 && store.resourceLists.Load() == 1 {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("foreground fetches = votes %d, resources %d; want 1 and 1",
		store.voteLists.Load(), store.resourceLists.Load())
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"not found", &errs.NotFoundError{Resource: "team"}, http.StatusNotFound},
		{"validation", &errs.ValidationError{Field: "reason"}, http.StatusBadRequest},
		{"cap reached", &errs.CapReachedError{UserID: "u1"}, http.StatusConflict},
		{"remote", &errs.RemoteError{Op: "fetch", Err: errors.New("boom")}, http.StatusBadGateway},
		{"wrapped remote", &errs.RemoteError{Op: "fetch", Err: errors.New("boom")}, http.StatusBadGateway},
		{"unknown", errors.New("other"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := statusFor(tt.err); got != tt.want {
				t.Errorf("statusFor() = %d, want %d", got, tt.want)
			}
		})
	}
}
