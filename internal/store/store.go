// Package store is the relationship store: users, follow sets, group
// metadata and membership, conversations and message history.
//
// Set-valued fields are rows of set_members and are only ever changed one
// element at a time (add-to-set / pull), so concurrent edits of disjoint
// elements commute.
package store

import (
	"context"
	"errors"
	"time"

	"github.com/cenkalti/backoff/v4"
	"gorm.io/gorm"
)

var (
	ErrNotFound      = errors.New("record not found")
	ErrOwnerConflict = errors.New("group belongs to another owner")
)

type Store struct {
	db       *gorm.DB
	retryMax time.Duration
}

type Option func(*Store)

// WithRetry bounds how long transient failures are retried. Zero disables
// retries.
func WithRetry(maxElapsed time.Duration) Option {
	return func(s *Store) { s.retryMax = maxElapsed }
}

func New(db *gorm.DB, opts ...Option) *Store {
	s := &Store{db: db, retryMax: 2 * time.Second}
	for _, o := range opts {
		o(s)
	}
	return s
}

// do runs fn with exponential backoff on transient errors.
func (s *Store) do(ctx context.Context, fn func(db *gorm.DB) error) error {
	op := func() error {
		err := fn(s.db.WithContext(ctx))
		switch {
		case err == nil:
			return nil
		case errors.Is(err, gorm.ErrRecordNotFound):
			return backoff.Permanent(ErrNotFound)
		case errors.Is(err, gorm.ErrDuplicatedKey),
			errors.Is(err, ErrOwnerConflict),
			errors.Is(err, context.Canceled),
			errors.Is(err, context.DeadlineExceeded):
			return backoff.Permanent(err)
		}
		return err
	}

	var b backoff.BackOff = &backoff.StopBackOff{}
	if s.retryMax > 0 {
		eb := backoff.NewExponentialBackOff()
		eb.InitialInterval = 25 * time.Millisecond
		eb.MaxElapsedTime = s.retryMax
		b = eb
	}
	return backoff.Retry(op, backoff.WithContext(b, ctx))
}
