package models

import "time"

// NominationType classifies a peer-recognition entry.
type NominationType string

const (
	NominationDaily         NominationType = "daily"
	NominationSportsmanship NominationType = "sportsmanship"
	NominationBravery       NominationType = "bravery"
	NominationService       NominationType = "service"
	NominationScholar       NominationType = "scholar"
	NominationOther         NominationType = "other"
)

// ValidNominationType reports whether t is one of the known categories.
func ValidNominationType(t NominationType) bool {
	switch t {
	case NominationDaily, NominationSportsmanship, NominationBravery,
		NominationService, NominationScholar, NominationOther:
		return true
	}
	return false
}

// Day is a camp program day. DayAll is the pseudo-scope used for
// unfiltered fetches and for counting votes across all days.
type Day string

const (
	DayAll       Day = "all"
	DayTuesday   Day = "tuesday"
	DayWednesday Day = "wednesday"
	DayThursday  Day = "thursday"
	DayFriday    Day = "friday"
	DaySaturday  Day = "saturday"
)

// ValidDay reports whether d is a program day or the "all" scope.
func ValidDay(d Day) bool {
	switch d {
	case DayAll, DayTuesday, DayWednesday, DayThursday, DayFriday, DaySaturday:
		return true
	}
	return false
}

// Team represents a camp team with its running point total
type Team struct {
	ID           string       `json:"id"`
	Name         string       `json:"name"`
	Color        string       `json:"color"`
	Points       int          `json:"points"`
	PointHistory []PointEntry `json:"point_history"`
}

// PointEntry is one point-change event in a team's history.
// Entries are immutable; only a reset removes them, en masse.
type PointEntry struct {
	ID     string    `json:"id"`
	Points int       `json:"points"`
	Reason string    `json:"reason"`
	Date   time.Time `json:"date"`
}

// Nomination represents a peer-recognition entry with its vote count
type Nomination struct {
	ID        string         `json:"id"`
	CamperID  string         `json:"camper_id"`
	Reason    string         `json:"reason"`
	Day       Day            `json:"day"`
	Type      NominationType `json:"type"`
	Votes     int            `json:"votes"`
	CreatedAt time.Time      `json:"created_at"`
}

// UserVote is an append-only ledger entry recorded when a vote succeeds
type UserVote struct {
	UserID    string         `json:"user_id"`
	Type      NominationType `json:"type"`
	Day       Day            `json:"day"`
	Timestamp time.Time      `json:"timestamp"`
}

// Camper is a roster entry used to validate nomination submissions
type Camper struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	TeamID string `json:"team_id"`
}

// Resource is a shared camp file (schedule, packing list, photo set)
type Resource struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Type        string    `json:"type"`
	URI         string    `json:"uri"`
	Size        int64     `json:"size"`
	DateAdded   time.Time `json:"date_added"`
	Category    string    `json:"category"`
}

// Notification represents an announcement delivered to the app
type Notification struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
	Read      bool      `json:"read"`
	Type      string    `json:"type"`
	Link      string    `json:"link,omitempty"`
}

// Profile is the name-based device profile
type Profile struct {
	UserID    string    `json:"user_id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
}
