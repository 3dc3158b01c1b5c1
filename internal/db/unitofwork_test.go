package db_test

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"github.com/NotNullDev/nanomgmt/internal/db"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const insertProject = `INSERT INTO projects (id, name, created, updated) VALUES (?, ?, '', '')`

func projectExists(t *testing.T, database *sql.DB, id string) bool {
	t.Helper()
	var n int
	require.NoError(t, database.QueryRow(`SELECT count(*) FROM projects WHERE id = ?`, id).Scan(&n))
	return n == 1
}

func TestWithinTx_Outcomes(t *testing.T) {
	errBoom := errors.New("boom")

	tests := []struct {
		name    string
		fn      func(ctx context.Context, tx db.DBTX) error
		panics  bool
		wantErr error
		kept    bool
	}{
		{
			name: "commit",
			fn: func(ctx context.Context, tx db.DBTX) error {
				_, err := tx.ExecContext(ctx, insertProject, "p1", "Acme")
				return err
			},
			kept: true,
		},
		{
			name: "error rolls back",
			fn: func(ctx context.Context, tx db.DBTX) error {
				if _, err := tx.ExecContext(ctx, insertProject, "p1", "Acme"); err != nil {
					return err
				}
				return errBoom
			},
			wantErr: errBoom,
		},
		{
			name: "panic rolls back",
			fn: func(ctx context.Context, tx db.DBTX) error {
				_, _ = tx.ExecContext(ctx, insertProject, "p1", "Acme")
				panic("boom")
			},
			panics: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			database, err := db.OpenDB(":memory:")
			require.NoError(t, err)
			t.Cleanup(func() { database.Close() })
			uow := db.NewSQLiteUnitOfWork(database)

			run := func() { err = uow.WithinTx(context.Background(), tt.fn) }
			if tt.panics {
				assert.Panics(t, run)
			} else {
				run()
				assert.ErrorIs(t, err, tt.wantErr)
			}
			assert.Equal(t, tt.kept, projectExists(t, database, "p1"))
		})
	}
}

func TestJoinTx_RollsBackWithOuter(t *testing.T) {
	database, err := db.OpenDB(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { database.Close() })

	err = db.NewSQLiteUnitOfWork(database).WithinTx(context.Background(), func(ctx context.Context, tx db.DBTX) error {
		inner := db.JoinTx(tx)
		require.NoError(t, inner.WithinTx(ctx, func(ctx context.Context, tx db.DBTX) error {
			_, err := tx.ExecContext(ctx, insertProject, "p2", "Joined")
			return err
		}))
		return errors.New("outer failure")
	})

	require.EqualError(t, err, "outer failure")
	assert.False(t, projectExists(t, database, "p2"))
}
