package remote

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// CreateSchema creates all tables the Postgres store driver needs.
// Safe to call multiple times - uses IF NOT EXISTS.
func CreateSchema(ctx context.Context, db *pgxpool.Pool) error {
	_, err := db.Exec(ctx, schema)
	if err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}
	return nil
}

const schema = `
-- Teams (seeded once, never user-created)
CREATE TABLE IF NOT EXISTS teams (
    id TEXT PRIMARY KEY,
    name TEXT NOT NULL,
    color TEXT NOT NULL,
    points INTEGER NOT NULL DEFAULT 0
);

-- Point history
CREATE TABLE IF NOT EXISTS point_entries (
    id TEXT PRIMARY KEY,
    team_id TEXT NOT NULL REFERENCES teams(id) ON DELETE CASCADE,
    points INTEGER NOT NULL,
    reason TEXT NOT NULL,
    date TIMESTAMP NOT NULL DEFAULT NOW()
);

CREATE INDEX IF NOT EXISTS idx_point_entries_team_id ON point_entries(team_id);

-- Campers
CREATE TABLE IF NOT EXISTS campers (
    id TEXT PRIMARY KEY,
    name TEXT NOT NULL,
    team_id TEXT NOT NULL REFERENCES teams(id)
);

-- Nominations
CREATE TABLE IF NOT EXISTS nominations (
    id TEXT PRIMARY KEY,
    camper_id TEXT NOT NULL,
    reason TEXT NOT NULL,
    day TEXT NOT NULL CHECK (day IN ('tuesday', 'wednesday', 'thursday', 'friday', 'saturday')),
    type TEXT NOT NULL CHECK (type IN ('daily', 'sportsmanship', 'bravery', 'service', 'scholar', 'other')),
    votes INTEGER NOT NULL DEFAULT 0 CHECK (votes >= 0),
    created_at TIMESTAMP NOT NULL DEFAULT NOW()
);

CREATE INDEX IF NOT EXISTS idx_nominations_type_day ON nominations(type, day);

-- Vote ledger rows
CREATE TABLE IF NOT EXISTS user_votes (
    user_id TEXT NOT NULL,
    type TEXT NOT NULL,
    day TEXT NOT NULL,
    timestamp TIMESTAMP NOT NULL DEFAULT NOW()
);

CREATE INDEX IF NOT EXISTS idx_user_votes_user ON user_votes(user_id, type);

-- Shared resources
CREATE TABLE IF NOT EXISTS resources (
    id TEXT PRIMARY KEY,
    name TEXT NOT NULL,
    description TEXT NOT NULL DEFAULT '',
    type TEXT NOT NULL DEFAULT '',
    uri TEXT NOT NULL,
    size BIGINT NOT NULL DEFAULT 0,
    date_added TIMESTAMP NOT NULL DEFAULT NOW(),
    category TEXT NOT NULL DEFAULT ''
);

CREATE INDEX IF NOT EXISTS idx_resources_category ON resources(category);

-- Notifications
CREATE TABLE IF NOT EXISTS notifications (
    id TEXT PRIMARY KEY,
    title TEXT NOT NULL,
    message TEXT NOT NULL,
    timestamp TIMESTAMP NOT NULL DEFAULT NOW(),
    read BOOLEAN NOT NULL DEFAULT FALSE,
    type TEXT NOT NULL DEFAULT '',
    link TEXT
);
`
