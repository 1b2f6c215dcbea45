package remote

import (
	"context"

	"camp-companion/internal/models"
)

// Filter narrows a fetch to a nomination type and/or program day.
// A zero value (or DayAll for Day) means "no constraint".
type Filter struct {
	Type models.NominationType
	Day  models.Day
}

// IsZero reports whether the filter places no constraint at all.
func (f Filter) IsZero() bool {
	return f.Type == "" && (f.Day == "" || f.Day == models.DayAll)
}

// MatchesNomination reports whether n falls inside the filter scope.
func (f Filter) MatchesNomination(n models.Nomination) bool {
	if f.Type != "" && n.Type != f.Type {
		return false
	}
	if f.Day != "" && f.Day != models.DayAll && n.Day != f.Day {
		return false
	}
	return true
}

// MatchesVote reports whether v falls inside the filter scope.
func (f Filter) MatchesVote(v models.UserVote) bool {
	if f.Type != "" && v.Type != f.Type {
		return false
	}
	if f.Day != "" && f.Day != models.DayAll && v.Day != f.Day {
		return false
	}
	return true
}

// Store is the remote data store consumed by the companion core. Typed call
// in, typed result or error out; the wire format is an implementation detail.
type Store interface {
	GetTeams(ctx context.Context) ([]models.Team, error)
	UpdateTeamPoints(ctx context.Context, teamID string, points int, reason string) (*models.Team, error)
	// ResetTeamPoints resets a single team, or every team when teamID is empty.
	ResetTeamPoints(ctx context.Context, teamID string) ([]models.Team, error)

	GetNominations(ctx context.Context, f Filter) ([]models.Nomination, error)
	AddNomination(ctx context.Context, camperID, reason string, day models.Day, typ models.NominationType) (*models.Nomination, error)
	VoteForNomination(ctx context.Context, nominationID, userID string, typ models.NominationType, day models.Day) (*models.Nomination, error)
	DeleteNomination(ctx context.Context, nominationID string) error

	GetUserVotes(ctx context.Context, userID string, f Filter) ([]models.UserVote, error)
	ResetVotes(ctx context.Context, day models.Day, typ models.NominationType) error

	GetCampers(ctx context.Context) ([]models.Camper, error)

	ListResources(ctx context.Context, category string) ([]models.Resource, error)
	AddResource(ctx context.Context, res *models.Resource) (*models.Resource, error)
	DeleteResource(ctx context.Context, id string) error

	ListNotifications(ctx context.Context) ([]models.Notification, error)
	MarkNotificationRead(ctx context.Context, id string) error
}
