package repository

import (
	"context"
	"errors"

	"github.com/NotNullDev/nanomgmt/internal/domain"
	"github.com/NotNullDev/nanomgmt/internal/query"
)

var (
	ErrNotFound          = errors.New("record not found")
	ErrUnknownCollection = errors.New("unknown collection")
)

// Page is one slice of a filtered, sorted collection. AllCount counts
// every match, ignoring paging.
type Page struct {
	Items    []domain.Record
	Page     int
	PerPage  int
	AllCount int
}

// TotalPages reports how many pages of PerPage cover AllCount.
func (p Page) TotalPages() int {
	if p.PerPage <= 0 {
		return 0
	}
	return (p.AllCount + p.PerPage - 1) / p.PerPage
}

// Collection is one record collection of a store.
type Collection interface {
	FetchAll(ctx context.Context, filter query.Predicate) ([]domain.Record, error)
	FetchPage(ctx context.Context, page, limit int, filter query.Predicate, sort query.Sort) (Page, error)
	FetchOne(ctx context.Context, id string) (domain.Record, error)
	Create(ctx context.Context, rec domain.Record) (domain.Record, error)
	Update(ctx context.Context, id string, patch domain.Record) (domain.Record, error)
}

// Store is a record store: local, remote, or a test double.
type Store interface {
	Collection(c domain.Collection) Collection
	CurrentUserID(ctx context.Context) (string, error)
	Health(ctx context.Context) error
}

// Transactional is implemented by stores that can run a batch atomically.
// fn receives a store bound to the transaction.
type Transactional interface {
	WithinTx(ctx context.Context, fn func(tx Store) error) error
}

// InTx runs fn inside a transaction when s supports one and directly on s
// otherwise.
func InTx(ctx context.Context, s Store, fn func(tx Store) error) error {
	if t, ok := s.(Transactional); ok {
		return t.WithinTx(ctx, fn)
	}
	return fn(s)
}
