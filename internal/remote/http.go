package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"camp-companion/internal/errs"
	"camp-companion/internal/models"
)

// HTTPStore talks to the hosted store over its REST endpoint.
type HTTPStore struct {
	baseURL string
	apiKey  string
	client  *http.Client
}

// Verify that HTTPStore implements the Store interface
var _ Store = (*HTTPStore)(nil)

// NewHTTPStore creates a store client for the given base URL.
func NewHTTPStore(baseURL, apiKey string, timeout time.Duration) *HTTPStore {
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	return &HTTPStore{
		baseURL: baseURL,
		apiKey:  apiKey,
		client: &http.Client{
			Timeout: timeout,
		},
	}
}

// do issues one request and decodes the JSON response into out (when non-nil).
// Non-2xx statuses are mapped into the error taxonomy; op names the logical
// operation for error reporting.
func (s *HTTPStore) do(ctx context.Context, method, endpoint, op string, body, out interface{}) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request body: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, s.baseURL+endpoint, reader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if s.apiKey != "" {
		req.Header.Set("Apikey", s.apiKey)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return &errs.RemoteError{Op: op, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var apiErr struct {
			Error string `json:"error"`
		}
		data, _ := io.ReadAll(resp.Body)
		_ = json.Unmarshal(data, &apiErr)
		msg := apiErr.Error
		if msg == "" {
			msg = string(data)
		}

		switch resp.StatusCode {
		case http.StatusNotFound:
			return &errs.NotFoundError{Resource: op}
		case http.StatusBadRequest, http.StatusUnprocessableEntity:
			return &errs.ValidationError{Field: op, Reason: msg}
		default:
			return &errs.RemoteError{Op: op, Err: fmt.Errorf("status %d: %s", resp.StatusCode, msg)}
		}
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return &errs.RemoteError{Op: op, Err: fmt.Errorf("decode response: %w", err)}
	}
	return nil
}

// GetTeams retrieves all teams with their point histories
func (s *HTTPStore) GetTeams(ctx context.Context) ([]models.Team, error) {
	var resp struct {
		Teams     []models.Team `json:"teams"`
		Timestamp time.Time     `json:"timestamp"`
	}
	if err := s.do(ctx, http.MethodGet, "/api/v1/teams", "get teams", nil, &resp); err != nil {
		return nil, err
	}
	return resp.Teams, nil
}

// UpdateTeamPoints applies a signed point delta to a team
func (s *HTTPStore) UpdateTeamPoints(ctx context.Context, teamID string, points int, reason string) (*models.Team, error) {
	req := struct {
		Points int    `json:"points"`
		Reason string `json:"reason"`
	}{Points: points, Reason: reason}

	var resp struct {
		Team         models.Team         `json:"team"`
		PointHistory []models.PointEntry `json:"point_history"`
	}
	endpoint := "/api/v1/teams/" + url.PathEscape(teamID) + "/points"
	if err := s.do(ctx, http.MethodPost, endpoint, "update team points", req, &resp); err != nil {
		return nil, err
	}
	team := resp.Team
	team.PointHistory = resp.PointHistory
	return &team, nil
}

// ResetTeamPoints zeroes points and clears history for one team, or all
// teams when teamID is empty.
func (s *HTTPStore) ResetTeamPoints(ctx context.Context, teamID string) ([]models.Team, error) {
	req := struct {
		TeamID string `json:"team_id,omitempty"`
	}{TeamID: teamID}

	var resp struct {
		Teams []models.Team `json:"teams"`
	}
	if err := s.do(ctx, http.MethodPost, "/api/v1/teams/reset", "reset team points", req, &resp); err != nil {
		return nil, err
	}
	return resp.Teams, nil
}

// GetNominations retrieves nominations, optionally filtered by type and day
func (s *HTTPStore) GetNominations(ctx context.Context, f Filter) ([]models.Nomination, error) {
	q := url.Values{}
	if f.Type != "" {
		q.Set("type", string(f.Type))
	}
	if f.Day != "" && f.Day != models.DayAll {
		q.Set("day", string(f.Day))
	}
	endpoint := "/api/v1/nominations"
	if len(q) > 0 {
		endpoint += "?" + q.Encode()
	}

	var resp struct {
		Nominations []models.Nomination `json:"nominations"`
		Timestamp   time.Time           `json:"timestamp"`
	}
	if err := s.do(ctx, http.MethodGet, endpoint, "get nominations", nil, &resp); err != nil {
		return nil, err
	}
	return resp.Nominations, nil
}

// AddNomination submits a new nomination
func (s *HTTPStore) AddNomination(ctx context.Context, camperID, reason string, day models.Day, typ models.NominationType) (*models.Nomination, error) {
	req := struct {
		CamperID string                `json:"camper_id"`
		Reason   string                `json:"reason"`
		Day      models.Day            `json:"day"`
		Type     models.NominationType `json:"type"`
	}{CamperID: camperID, Reason: reason, Day: day, Type: typ}

	var resp struct {
		Nomination models.Nomination `json:"nomination"`
	}
	if err := s.do(ctx, http.MethodPost, "/api/v1/nominations", "add nomination", req, &resp); err != nil {
		return nil, err
	}
	return &resp.Nomination, nil
}

// VoteForNomination increments the vote count on a nomination and returns
// the nomination as the store now sees it.
func (s *HTTPStore) VoteForNomination(ctx context.Context, nominationID, userID string, typ models.NominationType, day models.Day) (*models.Nomination, error) {
	req := struct {
		UserID string                `json:"user_id"`
		Type   models.NominationType `json:"type"`
		Day    models.Day            `json:"day"`
	}{UserID: userID, Type: typ, Day: day}

	var resp struct {
		Nomination models.Nomination `json:"nomination"`
	}
	endpoint := "/api/v1/nominations/" + url.PathEscape(nominationID) + "/vote"
	if err := s.do(ctx, http.MethodPost, endpoint, "vote for nomination", req, &resp); err != nil {
		return nil, err
	}
	return &resp.Nomination, nil
}

// DeleteNomination removes a nomination
func (s *HTTPStore) DeleteNomination(ctx context.Context, nominationID string) error {
	endpoint := "/api/v1/nominations/" + url.PathEscape(nominationID)
	return s.do(ctx, http.MethodDelete, endpoint, "delete nomination", nil, nil)
}

// GetUserVotes retrieves the vote ledger entries recorded for a user
func (s *HTTPStore) GetUserVotes(ctx context.Context, userID string, f Filter) ([]models.UserVote, error) {
	q := url.Values{}
	q.Set("user_id", userID)
	if f.Type != "" {
		q.Set("type", string(f.Type))
	}
	if f.Day != "" && f.Day != models.DayAll {
		q.Set("day", string(f.Day))
	}

	var resp struct {
		Votes []models.UserVote `json:"votes"`
	}
	if err := s.do(ctx, http.MethodGet, "/api/v1/votes?"+q.Encode(), "get user votes", nil, &resp); err != nil {
		return nil, err
	}
	return resp.Votes, nil
}

// ResetVotes zeroes vote counts on matching nominations and deletes the
// matching remote vote rows.
func (s *HTTPStore) ResetVotes(ctx context.Context, day models.Day, typ models.NominationType) error {
	req := struct {
		Day  models.Day            `json:"day,omitempty"`
		Type models.NominationType `json:"type,omitempty"`
	}{Day: day, Type: typ}

	var resp struct {
		Success bool `json:"success"`
	}
	if err := s.do(ctx, http.MethodPost, "/api/v1/votes/reset", "reset votes", req, &resp); err != nil {
		return err
	}
	if !resp.Success {
		return &errs.RemoteError{Op: "reset votes", Err: fmt.Errorf("store reported failure")}
	}
	return nil
}

// GetCampers retrieves the camper roster
func (s *HTTPStore) GetCampers(ctx context.Context) ([]models.Camper, error) {
	var resp struct {
		Campers []models.Camper `json:"campers"`
	}
	if err := s.do(ctx, http.MethodGet, "/api/v1/campers", "get campers", nil, &resp); err != nil {
		return nil, err
	}
	return resp.Campers, nil
}

// ListResources retrieves shared resources, optionally filtered by category
func (s *HTTPStore) ListResources(ctx context.Context, category string) ([]models.Resource, error) {
	endpoint := "/api/v1/resources"
	if category != "" {
		endpoint += "?category=" + url.QueryEscape(category)
	}

	var resp struct {
		Resources []models.Resource `json:"resources"`
	}
	if err := s.do(ctx, http.MethodGet, endpoint, "list resources", nil, &resp); err != nil {
		return nil, err
	}
	return resp.Resources, nil
}

// AddResource registers an uploaded resource
func (s *HTTPStore) AddResource(ctx context.Context, res *models.Resource) (*models.Resource, error) {
	var resp struct {
		Resource models.Resource `json:"resource"`
	}
	if err := s.do(ctx, http.MethodPost, "/api/v1/resources", "add resource", res, &resp); err != nil {
		return nil, err
	}
	return &resp.Resource, nil
}

// DeleteResource removes a resource record
func (s *HTTPStore) DeleteResource(ctx context.Context, id string) error {
	return s.do(ctx, http.MethodDelete, "/api/v1/resources/"+url.PathEscape(id), "delete resource", nil, nil)
}

// ListNotifications retrieves all notifications
func (s *HTTPStore) ListNotifications(ctx context.Context) ([]models.Notification, error) {
	var resp struct {
		Notifications []models.Notification `json:"notifications"`
	}
	if err := s.do(ctx, http.MethodGet, "/api/v1/notifications", "list notifications", nil, &resp); err != nil {
		return nil, err
	}
	return resp.Notifications, nil
}

// MarkNotificationRead marks a notification as read
func (s *HTTPStore) MarkNotificationRead(ctx context.Context, id string) error {
	endpoint := "/api/v1/notifications/" + url.PathEscape(id) + "/read"
	return s.do(ctx, http.MethodPost, endpoint, "mark notification read", nil, nil)
}
