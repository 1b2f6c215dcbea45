package remote

import (
	"context"
	"errors"
	"time"

	"camp-companion/internal/errs"
	"camp-companion/internal/models"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PGStore implements Store directly against the hosted Postgres database,
// for deployments that skip the REST endpoint.
type PGStore struct {
	db *pgxpool.Pool
}

// Verify that PGStore implements the Store interface
var _ Store = (*PGStore)(nil)

// NewPGStore creates a Postgres-backed store client
func NewPGStore(db *pgxpool.Pool) *PGStore {
	return &PGStore{db: db}
}

// GetTeams retrieves all teams with their point histories
func (s *PGStore) GetTeams(ctx context.Context) ([]models.Team, error) {
	query := `
		SELECT id, name, color, points
		FROM teams
		ORDER BY name
	`
	rows, err := s.db.Query(ctx, query)
	if err != nil {
		return nil, &errs.RemoteError{Op: "get teams", Err: err}
	}
	defer rows.Close()

	byID := make(map[string]int)
	var teams []models.Team
	for rows.Next() {
		var t models.Team
		if err := rows.Scan(&t.ID, &t.Name, &t.Color, &t.Points); err != nil {
			return nil, &errs.RemoteError{Op: "get teams", Err: err}
		}
		t.PointHistory = []models.PointEntry{}
		byID[t.ID] = len(teams)
		teams = append(teams, t)
	}
	if err := rows.Err(); err != nil {
		return nil, &errs.RemoteError{Op: "get teams", Err: err}
	}

	histQuery := `
		SELECT team_id, id, points, reason, date
		FROM point_entries
		ORDER BY date, id
	`
	histRows, err := s.db.Query(ctx, histQuery)
	if err != nil {
		return nil, &errs.RemoteError{Op: "get teams", Err: err}
	}
	defer histRows.Close()

	for histRows.Next() {
		var teamID string
		var e models.PointEntry
		if err := histRows.Scan(&teamID, &e.ID, &e.Points, &e.Reason, &e.Date); err != nil {
			return nil, &errs.RemoteError{Op: "get teams", Err: err}
		}
		if i, ok := byID[teamID]; ok {
			teams[i].PointHistory = append(teams[i].PointHistory, e)
		}
	}
	if err := histRows.Err(); err != nil {
		return nil, &errs.RemoteError{Op: "get teams", Err: err}
	}

	return teams, nil
}

// UpdateTeamPoints applies a signed point delta and records a history entry,
// in one transaction.
func (s *PGStore) UpdateTeamPoints(ctx context.Context, teamID string, points int, reason string) (*models.Team, error) {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return nil, &errs.RemoteError{Op: "update team points", Err: err}
	}
	defer tx.Rollback(ctx)

	var team models.Team
	query := `
		UPDATE teams
		SET points = points + $2
		WHERE id = $1
		RETURNING id, name, color, points
	`
	err = tx.QueryRow(ctx, query, teamID, points).Scan(&team.ID, &team.Name, &team.Color, &team.Points)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, &errs.NotFoundError{Resource: "team", ID: teamID}
		}
		return nil, &errs.RemoteError{Op: "update team points", Err: err}
	}

	entry := models.PointEntry{
		ID:     uuid.New().String(),
		Points: points,
		Reason: reason,
		Date:   time.Now(),
	}
	insertQuery := `
		INSERT INTO point_entries (id, team_id, points, reason, date)
		VALUES ($1, $2, $3, $4, $5)
	`
	if _, err := tx.Exec(ctx, insertQuery, entry.ID, teamID, entry.Points, entry.Reason, entry.Date); err != nil {
		return nil, &errs.RemoteError{Op: "update team points", Err: err}
	}

	histQuery := `
		SELECT id, points, reason, date
		FROM point_entries
		WHERE team_id = $1
		ORDER BY date, id
	`
	rows, err := tx.Query(ctx, histQuery, teamID)
	if err != nil {
		return nil, &errs.RemoteError{Op: "update team points", Err: err}
	}
	team.PointHistory = []models.PointEntry{}
	for rows.Next() {
		var e models.PointEntry
		if err := rows.Scan(&e.ID, &e.Points, &e.Reason, &e.Date); err != nil {
			rows.Close()
			return nil, &errs.RemoteError{Op: "update team points", Err: err}
		}
		team.PointHistory = append(team.PointHistory, e)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, &errs.RemoteError{Op: "update team points", Err: err}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, &errs.RemoteError{Op: "update team points", Err: err}
	}
	return &team, nil
}

// ResetTeamPoints zeroes points and clears history for one team, or all
// teams when teamID is empty.
func (s *PGStore) ResetTeamPoints(ctx context.Context, teamID string) ([]models.Team, error) {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return nil, &errs.RemoteError{Op: "reset team points", Err: err}
	}
	defer tx.Rollback(ctx)

	if teamID == "" {
		if _, err := tx.Exec(ctx, `UPDATE teams SET points = 0`); err != nil {
			return nil, &errs.RemoteError{Op: "reset team points", Err: err}
		}
		if _, err := tx.Exec(ctx, `DELETE FROM point_entries`); err != nil {
			return nil, &errs.RemoteError{Op: "reset team points", Err: err}
		}
	} else {
		result, err := tx.Exec(ctx, `UPDATE teams SET points = 0 WHERE id = $1`, teamID)
		if err != nil {
			return nil, &errs.RemoteError{Op: "reset team points", Err: err}
		}
		if result.RowsAffected() == 0 {
			return nil, &errs.NotFoundError{Resource: "team", ID: teamID}
		}
		if _, err := tx.Exec(ctx, `DELETE FROM point_entries WHERE team_id = $1`, teamID); err != nil {
			return nil, &errs.RemoteError{Op: "reset team points", Err: err}
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, &errs.RemoteError{Op: "reset team points", Err: err}
	}
	return s.GetTeams(ctx)
}

// GetNominations retrieves nominations, optionally filtered by type and day
func (s *PGStore) GetNominations(ctx context.Context, f Filter) ([]models.Nomination, error) {
	query := `
		SELECT id, camper_id, reason, day, type, votes, created_at
		FROM nominations
		WHERE ($1 = '' OR type = $1)
		  AND ($2 = '' OR day = $2)
		ORDER BY created_at, id
	`
	day := string(f.Day)
	if day == string(models.DayAll) {
		day = ""
	}
	rows, err := s.db.Query(ctx, query, string(f.Type), day)
	if err != nil {
		return nil, &errs.RemoteError{Op: "get nominations", Err: err}
	}
	defer rows.Close()

	var noms []models.Nomination
	for rows.Next() {
		var n models.Nomination
		if err := rows.Scan(&n.ID, &n.CamperID, &n.Reason, &n.Day, &n.Type, &n.Votes, &n.CreatedAt); err != nil {
			return nil, &errs.RemoteError{Op: "get nominations", Err: err}
		}
		noms = append(noms, n)
	}
	if err := rows.Err(); err != nil {
		return nil, &errs.RemoteError{Op: "get nominations", Err: err}
	}
	return noms, nil
}

// AddNomination submits a new nomination
func (s *PGStore) AddNomination(ctx context.Context, camperID, reason string, day models.Day, typ models.NominationType) (*models.Nomination, error) {
	n := models.Nomination{
		ID:        uuid.New().String(),
		CamperID:  camperID,
		Reason:    reason,
		Day:       day,
		Type:      typ,
		Votes:     0,
		CreatedAt: time.Now(),
	}
	query := `
		INSERT INTO nominations (id, camper_id, reason, day, type, votes, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	_, err := s.db.Exec(ctx, query, n.ID, n.CamperID, n.Reason, n.Day, n.Type, n.Votes, n.CreatedAt)
	if err != nil {
		return nil, &errs.RemoteError{Op: "add nomination", Err: err}
	}
	return &n, nil
}

// VoteForNomination increments the vote count and records the vote row
func (s *PGStore) VoteForNomination(ctx context.Context, nominationID, userID string, typ models.NominationType, day models.Day) (*models.Nomination, error) {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return nil, &errs.RemoteError{Op: "vote for nomination", Err: err}
	}
	defer tx.Rollback(ctx)

	var n models.Nomination
	query := `
		UPDATE nominations
		SET votes = votes + 1
		WHERE id = $1
		RETURNING id, camper_id, reason, day, type, votes, created_at
	`
	err = tx.QueryRow(ctx, query, nominationID).Scan(&n.ID, &n.CamperID, &n.Reason, &n.Day, &n.Type, &n.Votes, &n.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, &errs.NotFoundError{Resource: "nomination", ID: nominationID}
		}
		return nil, &errs.RemoteError{Op: "vote for nomination", Err: err}
	}

	voteQuery := `
		INSERT INTO user_votes (user_id, type, day, timestamp)
		VALUES ($1, $2, $3, $4)
	`
	if _, err := tx.Exec(ctx, voteQuery, userID, typ, day, time.Now()); err != nil {
		return nil, &errs.RemoteError{Op: "vote for nomination", Err: err}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, &errs.RemoteError{Op: "vote for nomination", Err: err}
	}
	return &n, nil
}

// DeleteNomination removes a nomination
func (s *PGStore) DeleteNomination(ctx context.Context, nominationID string) error {
	result, err := s.db.Exec(ctx, `DELETE FROM nominations WHERE id = $1`, nominationID)
	if err != nil {
		return &errs.RemoteError{Op: "delete nomination", Err: err}
	}
	if result.RowsAffected() == 0 {
		return &errs.NotFoundError{Resource: "nomination", ID: nominationID}
	}
	return nil
}

// GetUserVotes retrieves the vote rows recorded for a user
func (s *PGStore) GetUserVotes(ctx context.Context, userID string, f Filter) ([]models.UserVote, error) {
	query := `
		SELECT user_id, type, day, timestamp
		FROM user_votes
		WHERE user_id = $1
		  AND ($2 = '' OR type = $2)
		  AND ($3 = '' OR day = $3)
		ORDER BY timestamp
	`
	day := string(f.Day)
	if day == string(models.DayAll) {
		day = ""
	}
	rows, err := s.db.Query(ctx, query, userID, string(f.Type), day)
	if err != nil {
		return nil, &errs.RemoteError{Op: "get user votes", Err: err}
	}
	defer rows.Close()

	var votes []models.UserVote
	for rows.Next() {
		var v models.UserVote
		if err := rows.Scan(&v.UserID, &v.Type, &v.Day, &v.Timestamp); err != nil {
			return nil, &errs.RemoteError{Op: "get user votes", Err: err}
		}
		votes = append(votes, v)
	}
	if err := rows.Err(); err != nil {
		return nil, &errs.RemoteError{Op: "get user votes", Err: err}
	}
	return votes, nil
}

// ResetVotes zeroes vote counts on matching nominations and deletes the
// matching vote rows.
func (s *PGStore) ResetVotes(ctx context.Context, day models.Day, typ models.NominationType) error {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return &errs.RemoteError{Op: "reset votes", Err: err}
	}
	defer tx.Rollback(ctx)

	d := string(day)
	if d == string(models.DayAll) {
		d = ""
	}
	nomQuery := `
		UPDATE nominations
		SET votes = 0
		WHERE ($1 = '' OR type = $1)
		  AND ($2 = '' OR day = $2)
	`
	if _, err := tx.Exec(ctx, nomQuery, string(typ), d); err != nil {
		return &errs.RemoteError{Op: "reset votes", Err: err}
	}

	voteQuery := `
		DELETE FROM user_votes
		WHERE ($1 = '' OR type = $1)
		  AND ($2 = '' OR day = $2)
	`
	if _, err := tx.Exec(ctx, voteQuery, string(typ), d); err != nil {
		return &errs.RemoteError{Op: "reset votes", Err: err}
	}

	if err := tx.Commit(ctx); err != nil {
		return &errs.RemoteError{Op: "reset votes", Err: err}
	}
	return nil
}

// GetCampers retrieves the camper roster
func (s *PGStore) GetCampers(ctx context.Context) ([]models.Camper, error) {
	query := `
		SELECT id, name, team_id
		FROM campers
		ORDER BY name
	`
	rows, err := s.db.Query(ctx, query)
	if err != nil {
		return nil, &errs.RemoteError{Op: "get campers", Err: err}
	}
	defer rows.Close()

	var campers []models.Camper
	for rows.Next() {
		var c models.Camper
		if err := rows.Scan(&c.ID, &c.Name, &c.TeamID); err != nil {
			return nil, &errs.RemoteError{Op: "get campers", Err: err}
		}
		campers = append(campers, c)
	}
	if err := rows.Err(); err != nil {
		return nil, &errs.RemoteError{Op: "get campers", Err: err}
	}
	return campers, nil
}

// ListResources retrieves shared resources, optionally filtered by category
func (s *PGStore) ListResources(ctx context.Context, category string) ([]models.Resource, error) {
	query := `
		SELECT id, name, description, type, uri, size, date_added, category
		FROM resources
		WHERE ($1 = '' OR category = $1)
		ORDER BY date_added DESC
	`
	rows, err := s.db.Query(ctx, query, category)
	if err != nil {
		return nil, &errs.RemoteError{Op: "list resources", Err: err}
	}
	defer rows.Close()

	var resources []models.Resource
	for rows.Next() {
		var r models.Resource
		if err := rows.Scan(&r.ID, &r.Name, &r.Description, &r.Type, &r.URI, &r.Size, &r.DateAdded, &r.Category); err != nil {
			return nil, &errs.RemoteError{Op: "list resources", Err: err}
		}
		resources = append(resources, r)
	}
	if err := rows.Err(); err != nil {
		return nil, &errs.RemoteError{Op: "list resources", Err: err}
	}
	return resources, nil
}

// AddResource registers an uploaded resource
func (s *PGStore) AddResource(ctx context.Context, res *models.Resource) (*models.Resource, error) {
	r := *res
	if r.ID == "" {
		r.ID = uuid.New().String()
	}
	if r.DateAdded.IsZero() {
		r.DateAdded = time.Now()
	}
	query := `
		INSERT INTO resources (id, name, description, type, uri, size, date_added, category)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`
	_, err := s.db.Exec(ctx, query, r.ID, r.Name, r.Description, r.Type, r.URI, r.Size, r.DateAdded, r.Category)
	if err != nil {
		return nil, &errs.RemoteError{Op: "add resource", Err: err}
	}
	return &r, nil
}

// DeleteResource removes a resource record
func (s *PGStore) DeleteResource(ctx context.Context, id string) error {
	result, err := s.db.Exec(ctx, `DELETE FROM resources WHERE id = $1`, id)
	if err != nil {
		return &errs.RemoteError{Op: "delete resource", Err: err}
	}
	if result.RowsAffected() == 0 {
		return &errs.NotFoundError{Resource: "resource", ID: id}
	}
	return nil
}

// ListNotifications retrieves all notifications, newest first
func (s *PGStore) ListNotifications(ctx context.Context) ([]models.Notification, error) {
	query := `
		SELECT id, title, message, timestamp, read, type, COALESCE(link, '')
		FROM notifications
		ORDER BY timestamp DESC
	`
	rows, err := s.db.Query(ctx, query)
	if err != nil {
		return nil, &errs.RemoteError{Op: "list notifications", Err: err}
	}
	defer rows.Close()

	var notifs []models.Notification
	for rows.Next() {
		var n models.Notification
		if err := rows.Scan(&n.ID, &n.Title, &n.Message, &n.Timestamp, &n.Read, &n.Type, &n.Link); err != nil {
			return nil, &errs.RemoteError{Op: "list notifications", Err: err}
		}
		notifs = append(notifs, n)
	}
	if err := rows.Err(); err != nil {
		return nil, &errs.RemoteError{Op: "list notifications", Err: err}
	}
	return notifs, nil
}

// MarkNotificationRead marks a notification as read
func (s *PGStore) MarkNotificationRead(ctx context.Context, id string) error {
	result, err := s.db.Exec(ctx, `UPDATE notifications SET read = TRUE WHERE id = $1`, id)
	if err != nil {
		return &errs.RemoteError{Op: "mark notification read", Err: err}
	}
	if result.RowsAffected() == 0 {
		return &errs.NotFoundError{Resource: "notification", ID: id}
	}
	return nil
}
