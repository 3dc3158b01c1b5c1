package db

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
)

// Migrate runs all schema migrations. Every statement is safe to re-run.
func Migrate(db *sql.DB) error {
	for i, stmt := range migrations {
		if _, err := db.Exec(stmt); err != nil {
			// ALTER TABLE ADD COLUMN has no IF NOT EXISTS form.
			if strings.Contains(err.Error(), "duplicate column name") {
				continue
			}
			return fmt.Errorf("migration %d: %w", i, err)
		}
	}
	if err := migrateNormalizeTaskDates(db); err != nil {
		return fmt.Errorf("normalizing task dates: %w", err)
	}
	return nil
}

// migrateNormalizeTaskDates rewrites bare-day task dates written by early
// imports into the full record timestamp layout, so that text comparison
// against filter bounds orders correctly.
func migrateNormalizeTaskDates(db *sql.DB) error {
	ctx := context.Background()
	if _, err := db.ExecContext(ctx,
		`UPDATE tasks SET date = date || ' 00:00:00.000Z' WHERE length(date) = 10`); err != nil {
		return fmt.Errorf("updating bare-day dates: %w", err)
	}
	return nil
}

var migrations = []string{
	`CREATE TABLE IF NOT EXISTS projects (
		id              TEXT PRIMARY KEY,
		name            TEXT NOT NULL,
		organization_id TEXT NOT NULL DEFAULT '',
		tags            TEXT NOT NULL DEFAULT '[]',
		created         TEXT NOT NULL,
		updated         TEXT NOT NULL
	)`,

	`CREATE TABLE IF NOT EXISTS teams (
		id         TEXT PRIMARY KEY,
		name       TEXT NOT NULL,
		project_id TEXT NOT NULL REFERENCES projects(id) ON DELETE CASCADE,
		tags       TEXT NOT NULL DEFAULT '[]',
		members    TEXT NOT NULL DEFAULT '[]',
		managers   TEXT NOT NULL DEFAULT '[]',
		created    TEXT NOT NULL,
		updated    TEXT NOT NULL
	)`,

	`CREATE INDEX IF NOT EXISTS idx_teams_project ON teams(project_id)`,

	`CREATE TABLE IF NOT EXISTS activities (
		id              TEXT PRIMARY KEY,
		name            TEXT NOT NULL,
		team_id         TEXT NOT NULL REFERENCES teams(id) ON DELETE CASCADE,
		project_id      TEXT NOT NULL DEFAULT '',
		organization_id TEXT NOT NULL DEFAULT '',
		created         TEXT NOT NULL,
		updated         TEXT NOT NULL
	)`,

	`CREATE INDEX IF NOT EXISTS idx_activities_team ON activities(team_id)`,

	`CREATE TABLE IF NOT EXISTS users (
		id       TEXT PRIMARY KEY,
		username TEXT NOT NULL UNIQUE,
		email    TEXT NOT NULL DEFAULT '',
		name     TEXT NOT NULL DEFAULT '',
		avatar   TEXT NOT NULL DEFAULT '',
		roles    TEXT NOT NULL DEFAULT '[]',
		teams    TEXT NOT NULL DEFAULT '[]',
		created  TEXT NOT NULL,
		updated  TEXT NOT NULL
	)`,

	`CREATE TABLE IF NOT EXISTS tasks (
		id          TEXT PRIMARY KEY,
		activity_id TEXT NOT NULL REFERENCES activities(id),
		comment     TEXT NOT NULL DEFAULT '',
		duration    REAL NOT NULL CHECK(duration > 0 AND duration <= 24),
		date        TEXT NOT NULL,
		user_id     TEXT NOT NULL REFERENCES users(id),
		team_id     TEXT NOT NULL REFERENCES teams(id),
		status      TEXT NOT NULL DEFAULT 'none'
		            CHECK(status IN ('none','accepted','rejected')),
		created     TEXT NOT NULL,
		updated     TEXT NOT NULL
	)`,

	`CREATE INDEX IF NOT EXISTS idx_tasks_team_date ON tasks(team_id, date)`,
	`CREATE INDEX IF NOT EXISTS idx_tasks_user_date ON tasks(user_id, date)`,
	`CREATE INDEX IF NOT EXISTS idx_tasks_status ON tasks(status)`,
}
