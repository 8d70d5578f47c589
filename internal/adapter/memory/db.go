// Package memory is an in-process store. Every write runs on a private copy of
// the state which replaces the current one only when the transaction succeeds.
package memory

import (
	"context"
	"maps"
	"slices"
	"sync"

	"github.com/Temutjin2k/ride-lifecycle/internal/domain/models"
	"github.com/Temutjin2k/ride-lifecycle/internal/domain/types"
)

type actorKey struct {
	userID string
	role   types.UserRole
}

type contactKey struct {
	rideID string
	role   types.UserRole
}

type state struct {
	rides    map[string]models.Ride
	actors   map[actorKey]string
	contacts map[contactKey]models.PrivateContact
	profiles map[string]models.RawProfile
	events   []models.RideEventMessage
}

func newState() *state {
	return &state{
		rides:    make(map[string]models.Ride),
		actors:   make(map[actorKey]string),
		contacts: make(map[contactKey]models.PrivateContact),
		profiles: make(map[string]models.RawProfile),
	}
}

// clone copies the maps. Values are copied on write by the repos, so sharing them is safe.
func (s *state) clone() *state {
	return &state{
		rides:    maps.Clone(s.rides),
		actors:   maps.Clone(s.actors),
		contacts: maps.Clone(s.contacts),
		profiles: maps.Clone(s.profiles),
		events:   slices.Clip(s.events),
	}
}

// DB holds the committed state and implements trm.TxManager.
type DB struct {
	mu   sync.RWMutex // guards cur
	txMu sync.Mutex   // one writer at a time
	cur  *state
}

func New() *DB {
	return &DB{cur: newState()}
}

type txKey struct{}

// Do runs fn on a private copy of the state and commits it when fn returns nil.
// A ctx that already carries a transaction joins it.
func (db *DB) Do(ctx context.Context, fn func(ctx context.Context) error) error {
	if _, ok := ctx.Value(txKey{}).(*state); ok {
		return fn(ctx)
	}

	db.txMu.Lock()
	defer db.txMu.Unlock()

	db.mu.RLock()
	work := db.cur.clone()
	db.mu.RUnlock()

	if err := fn(context.WithValue(ctx, txKey{}, work)); err != nil {
		return err
	}

	db.mu.Lock()
	db.cur = work
	db.mu.Unlock()
	return nil
}

// read runs fn against the transaction state, or the committed one under a read lock.
func (db *DB) read(ctx context.Context, fn func(st *state) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if st, ok := ctx.Value(txKey{}).(*state); ok {
		return fn(st)
	}

	db.mu.RLock()
	defer db.mu.RUnlock()
	return fn(db.cur)
}

// write runs fn inside the current transaction or a new single-statement one.
func (db *DB) write(ctx context.Context, fn func(st *state) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return db.Do(ctx, func(ctx context.Context) error {
		return fn(ctx.Value(txKey{}).(*state))
	})
}
