package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/NotNullDev/nanomgmt/internal/db"
	"github.com/NotNullDev/nanomgmt/internal/domain"
	"github.com/NotNullDev/nanomgmt/internal/query"
	"github.com/google/uuid"
)

// ErrNoCurrentUser is returned by CurrentUserID when no user is configured.
var ErrNoCurrentUser = errors.New("no current user configured")

// SQLiteStore implements Store and Transactional on the local database.
type SQLiteStore struct {
	db     db.DBTX
	uow    db.UnitOfWork
	userID string
	now    func() time.Time
}

// StoreOption configures a SQLiteStore.
type StoreOption func(*SQLiteStore)

// WithCurrentUser sets the id CurrentUserID reports.
func WithCurrentUser(id string) StoreOption {
	return func(s *SQLiteStore) { s.userID = id }
}

func WithStoreClock(now func() time.Time) StoreOption {
	return func(s *SQLiteStore) { s.now = now }
}

// WithUnitOfWork replaces the default transaction manager. Tests use it to
// inject failures.
func WithUnitOfWork(uow db.UnitOfWork) StoreOption {
	return func(s *SQLiteStore) { s.uow = uow }
}

func NewSQLiteStore(database *sql.DB, opts ...StoreOption) *SQLiteStore {
	s := &SQLiteStore{
		db:  database,
		uow: db.NewSQLiteUnitOfWork(database),
		now: time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// As returns a store on the same database that reports userID as the
// current user.
func (s *SQLiteStore) As(userID string) *SQLiteStore {
	out := *s
	out.userID = userID
	return &out
}

func (s *SQLiteStore) Collection(c domain.Collection) Collection {
	spec, ok := specFor(c)
	if !ok {
		return unknownCollection{name: c}
	}
	return &sqliteCollection{store: s, spec: spec}
}

func (s *SQLiteStore) CurrentUserID(ctx context.Context) (string, error) {
	if s.userID == "" {
		return "", ErrNoCurrentUser
	}
	return s.userID, nil
}

func (s *SQLiteStore) Health(ctx context.Context) error {
	var one int
	if err := s.db.QueryRowContext(ctx, `SELECT 1`).Scan(&one); err != nil {
		return fmt.Errorf("pinging database: %w", err)
	}
	return nil
}

// WithinTx runs fn against a store bound to one transaction. Nested calls
// on the bound store join the outer transaction.
func (s *SQLiteStore) WithinTx(ctx context.Context, fn func(tx Store) error) error {
	return s.uow.WithinTx(ctx, func(ctx context.Context, tx db.DBTX) error {
		return fn(s.bind(tx))
	})
}

func (s *SQLiteStore) bind(tx db.DBTX) *SQLiteStore {
	return &SQLiteStore{db: tx, uow: db.JoinTx(tx), userID: s.userID, now: s.now}
}

type sqliteCollection struct {
	store *SQLiteStore
	spec  *tableSpec
}

func (c *sqliteCollection) FetchAll(ctx context.Context, filter query.Predicate) ([]domain.Record, error) {
	where, args, err := c.spec.where(filter)
	if err != nil {
		return nil, err
	}
	order, _ := c.spec.orderBy(query.Sort{})
	q := "SELECT " + c.spec.selectList() + c.spec.from() + where + order
	return c.query(ctx, q, args...)
}

func (c *sqliteCollection) FetchPage(ctx context.Context, page, limit int, filter query.Predicate, sort query.Sort) (Page, error) {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = query.DefaultLimit
	}
	where, args, err := c.spec.where(filter)
	if err != nil {
		return Page{}, err
	}
	order, err := c.spec.orderBy(sort)
	if err != nil {
		return Page{}, err
	}

	var total int
	countQ := "SELECT COUNT(*)" + c.spec.from() + where
	if err := c.store.db.QueryRowContext(ctx, countQ, args...).Scan(&total); err != nil {
		return Page{}, fmt.Errorf("counting %s: %w", c.spec.collection, err)
	}

	q := "SELECT " + c.spec.selectList() + c.spec.from() + where + order + " LIMIT ? OFFSET ?"
	items, err := c.query(ctx, q, append(args, limit, (page-1)*limit)...)
	if err != nil {
		return Page{}, err
	}
	return Page{Items: items, Page: page, PerPage: limit, AllCount: total}, nil
}

func (c *sqliteCollection) FetchOne(ctx context.Context, id string) (domain.Record, error) {
	q := "SELECT " + c.spec.selectList() + c.spec.from() + " WHERE " + c.spec.alias + ".id = ?"
	rec, err := c.spec.scan(c.store.db.QueryRowContext(ctx, q, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%s %q: %w", c.spec.collection, id, ErrNotFound)
		}
		return nil, fmt.Errorf("fetching %s %q: %w", c.spec.collection, id, err)
	}
	return rec, nil
}

func (c *sqliteCollection) Create(ctx context.Context, rec domain.Record) (domain.Record, error) {
	out := c.spec.persisted(rec)
	for k, v := range c.spec.defaults {
		if _, ok := out[k]; !ok {
			out[k] = v
		}
	}
	if out.ID() == "" {
		out["id"] = uuid.NewString()
	}
	now := domain.FormatTimestamp(c.store.now())
	out["created"], out["updated"] = now, now

	if err := c.spec.validate(out); err != nil {
		return nil, fmt.Errorf("creating %s record: %w", c.spec.collection, err)
	}
	args, err := c.spec.values(out)
	if err != nil {
		return nil, fmt.Errorf("creating %s record: %w", c.spec.collection, err)
	}

	names := make([]string, len(c.spec.columns))
	marks := make([]string, len(c.spec.columns))
	for i, col := range c.spec.columns {
		names[i] = col.name
		marks[i] = "?"
	}
	q := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)", c.spec.table, strings.Join(names, ", "), strings.Join(marks, ", "))
	if _, err := c.store.db.ExecContext(ctx, q, args...); err != nil {
		return nil, fmt.Errorf("inserting %s record: %w", c.spec.collection, err)
	}
	return c.FetchOne(ctx, out.ID())
}

// Update reads the stored record, merges patch, validates the result and
// writes it back, all in one transaction. id, created and updated cannot
// be patched.
func (c *sqliteCollection) Update(ctx context.Context, id string, patch domain.Record) (domain.Record, error) {
	var out domain.Record
	err := c.store.uow.WithinTx(ctx, func(ctx context.Context, tx db.DBTX) error {
		txc := &sqliteCollection{store: c.store.bind(tx), spec: c.spec}
		cur, err := txc.FetchOne(ctx, id)
		if err != nil {
			return err
		}
		clean := c.spec.persisted(patch)
		delete(clean, "id")
		delete(clean, "created")
		delete(clean, "updated")

		merged := c.spec.persisted(cur).Merge(clean)
		merged["updated"] = domain.FormatTimestamp(c.store.now())
		if err := c.spec.validate(merged); err != nil {
			return fmt.Errorf("updating %s record: %w", c.spec.collection, err)
		}
		args, err := c.spec.values(merged)
		if err != nil {
			return fmt.Errorf("updating %s record: %w", c.spec.collection, err)
		}

		sets := make([]string, 0, len(c.spec.columns)-1)
		setArgs := make([]any, 0, len(c.spec.columns))
		for i, col := range c.spec.columns {
			if col.key == "id" {
				continue
			}
			sets = append(sets, col.name+" = ?")
			setArgs = append(setArgs, args[i])
		}
		q := fmt.Sprintf("UPDATE %s SET %s WHERE id = ?", c.spec.table, strings.Join(sets, ", "))
		if _, err := tx.ExecContext(ctx, q, append(setArgs, id)...); err != nil {
			return fmt.Errorf("writing %s record: %w", c.spec.collection, err)
		}
		out, err = txc.FetchOne(ctx, id)
		return err
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (c *sqliteCollection) query(ctx context.Context, q string, args ...any) ([]domain.Record, error) {
	rows, err := c.store.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("listing %s: %w", c.spec.collection, err)
	}
	defer rows.Close()

	out := []domain.Record{}
	for rows.Next() {
		rec, err := c.spec.scan(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning %s row: %w", c.spec.collection, err)
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating %s: %w", c.spec.collection, err)
	}
	return out, nil
}

// unknownCollection fails every call so that a bad name surfaces at the
// first use instead of as a nil Collection.
type unknownCollection struct {
	name domain.Collection
}

func (u unknownCollection) err() error {
	return fmt.Errorf("%w: %q", ErrUnknownCollection, u.name)
}

func (u unknownCollection) FetchAll(context.Context, query.Predicate) ([]domain.Record, error) {
	return nil, u.err()
}

func (u unknownCollection) FetchPage(context.Context, int, int, query.Predicate, query.Sort) (Page, error) {
	return Page{}, u.err()
}

func (u unknownCollection) FetchOne(context.Context, string) (domain.Record, error) {
	return nil, u.err()
}

func (u unknownCollection) Create(context.Context, domain.Record) (domain.Record, error) {
	return nil, u.err()
}

func (u unknownCollection) Update(context.Context, string, domain.Record) (domain.Record, error) {
	return nil, u.err()
}

// UnknownCollection returns a Collection whose every call fails with
// ErrUnknownCollection. Other Store implementations reuse it.
func UnknownCollection(name domain.Collection) Collection {
	return unknownCollection{name: name}
}
