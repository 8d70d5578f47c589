package firestore

import (
	"context"
	"fmt"
	"reflect"
	"sync"

	"cloud.google.com/go/firestore"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/Temutjin2k/ride-lifecycle/internal/domain/types"
)

type txKey struct{}

// TxManager runs repository calls inside one Firestore transaction.
//
// Firestore rejects reads issued after a write in the same transaction, so
// writes are buffered in the transaction state and applied when fn returns.
// Reads see the buffered writes first.
type TxManager struct {
	client *firestore.Client
}

func NewTxManager(client *firestore.Client) *TxManager {
	return &TxManager{client: client}
}

func (m *TxManager) Do(ctx context.Context, fn func(ctx context.Context) error) error {
	if _, ok := ctx.Value(txKey{}).(*txState); ok {
		return fn(ctx)
	}

	err := m.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		st := &txState{tx: tx, pending: make(map[string]pendingWrite)}
		if err := fn(context.WithValue(ctx, txKey{}, st)); err != nil {
			return err
		}
		return st.flush()
	})
	if err != nil {
		return mapError(err)
	}
	return nil
}

type pendingWrite struct {
	ref     *firestore.DocumentRef
	value   any
	deleted bool
}

type txState struct {
	mu      sync.Mutex
	tx      *firestore.Transaction
	order   []string
	pending map[string]pendingWrite
}

func (s *txState) put(ref *firestore.DocumentRef, value any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.pending[ref.Path]; !ok {
		s.order = append(s.order, ref.Path)
	}
	s.pending[ref.Path] = pendingWrite{ref: ref, value: value}
}

func (s *txState) delete(ref *firestore.DocumentRef) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.pending[ref.Path]; !ok {
		s.order = append(s.order, ref.Path)
	}
	s.pending[ref.Path] = pendingWrite{ref: ref, deleted: true}
}

func (s *txState) lookup(path string) (pendingWrite, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	w, ok := s.pending[path]
	return w, ok
}

func (s *txState) flush() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, path := range s.order {
		w := s.pending[path]
		var err error
		if w.deleted {
			err = s.tx.Delete(w.ref)
		} else {
			err = s.tx.Set(w.ref, w.value)
		}
		if err != nil {
			return err
		}
	}
	return nil
}

// getDoc reads ref into dst and reports whether the document exists.
func getDoc(ctx context.Context, ref *firestore.DocumentRef, dst any) (bool, error) {
	var (
		snap *firestore.DocumentSnapshot
		err  error
	)
	if st, ok := ctx.Value(txKey{}).(*txState); ok {
		if w, ok := st.lookup(ref.Path); ok {
			if w.deleted {
				return false, nil
			}
			reflect.ValueOf(dst).Elem().Set(reflect.ValueOf(w.value))
			return true, nil
		}
		snap, err = st.tx.Get(ref)
	} else {
		snap, err = ref.Get(ctx)
	}

	if err != nil {
		if status.Code(err) == codes.NotFound {
			return false, nil
		}
		return false, mapError(err)
	}
	if err := snap.DataTo(dst); err != nil {
		return false, fmt.Errorf("decode %s: %w", ref.Path, err)
	}
	return true, nil
}

func setDoc(ctx context.Context, ref *firestore.DocumentRef, value any) error {
	if st, ok := ctx.Value(txKey{}).(*txState); ok {
		st.put(ref, value)
		return nil
	}
	if _, err := ref.Set(ctx, value); err != nil {
		return mapError(err)
	}
	return nil
}

func deleteDoc(ctx context.Context, ref *firestore.DocumentRef) error {
	if st, ok := ctx.Value(txKey{}).(*txState); ok {
		st.delete(ref)
		return nil
	}
	if _, err := ref.Delete(ctx); err != nil {
		return mapError(err)
	}
	return nil
}

// mapError keeps domain errors and marks infrastructure failures transient.
func mapError(err error) error {
	if err == nil {
		return nil
	}
	if types.KindOf(err) != types.KindInternal {
		return err
	}
	switch status.Code(err) {
	case codes.Aborted:
		return fmt.Errorf("%w: %v", types.ErrStaleRide, err)
	case codes.Unavailable, codes.DeadlineExceeded, codes.ResourceExhausted, codes.Internal:
		return fmt.Errorf("%w: %v", types.ErrDatabaseFailed, err)
	}
	return err
}
