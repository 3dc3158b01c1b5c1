package db

import (
	"database/sql"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := OpenDB(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func TestMigrate_Idempotent(t *testing.T) {
	db := openTestDB(t)

	require.NoError(t, Migrate(db))
	require.NoError(t, Migrate(db))
}

func TestMigrate_CreatesAllTables(t *testing.T) {
	db := openTestDB(t)

	for _, table := range []string{"projects", "teams", "activities", "users", "tasks"} {
		var name string
		err := db.QueryRow(`SELECT name FROM sqlite_master WHERE type='table' AND name=?`, table).Scan(&name)
		require.NoError(t, err, "table %s should exist", table)
		assert.Equal(t, table, name)
	}
}

func TestMigrate_CreatesIndexes(t *testing.T) {
	db := openTestDB(t)

	for _, idx := range []string{
		"idx_teams_project",
		"idx_activities_team",
		"idx_tasks_team_date",
		"idx_tasks_user_date",
		"idx_tasks_status",
	} {
		var name string
		err := db.QueryRow(`SELECT name FROM sqlite_master WHERE type='index' AND name=?`, idx).Scan(&name)
		require.NoError(t, err, "index %s should exist", idx)
	}
}

func TestMigrate_ForeignKeysEnforced(t *testing.T) {
	db := openTestDB(t)

	_, err := db.Exec(`INSERT INTO teams (id, name, project_id, created, updated) VALUES ('t1', 'Ops', 'missing', 'x', 'x')`)
	assert.Error(t, err)
}

func TestMigrate_TaskConstraints(t *testing.T) {
	db := openTestDB(t)
	seed := []string{
		`INSERT INTO projects (id, name, created, updated) VALUES ('p1', 'P', 'x', 'x')`,
		`INSERT INTO teams (id, name, project_id, created, updated) VALUES ('t1', 'T', 'p1', 'x', 'x')`,
		`INSERT INTO activities (id, name, team_id, created, updated) VALUES ('a1', 'A', 't1', 'x', 'x')`,
		`INSERT INTO users (id, username, created, updated) VALUES ('u1', 'ann', 'x', 'x')`,
	}
	for _, stmt := range seed {
		_, err := db.Exec(stmt)
		require.NoError(t, err)
	}

	insert := `INSERT INTO tasks (id, activity_id, duration, date, user_id, team_id, status, created, updated)
		VALUES (?, 'a1', ?, '2024-01-02', 'u1', 't1', ?, 'x', 'x')`
	_, err := db.Exec(insert, "k1", 8.0, "none")
	require.NoError(t, err)
	_, err = db.Exec(insert, "k2", 25.0, "none")
	assert.Error(t, err, "duration above 24 hours")
	_, err = db.Exec(insert, "k3", 1.0, "pending")
	assert.Error(t, err, "unknown status")

	require.NoError(t, Migrate(db))
	var date string
	require.NoError(t, db.QueryRow(`SELECT date FROM tasks WHERE id = 'k1'`).Scan(&date))
	assert.Equal(t, "2024-01-02 00:00:00.000Z", date)
}
