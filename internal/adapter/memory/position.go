package memory

import (
	"context"
	"sync"
	"time"

	"github.com/Temutjin2k/ride-lifecycle/internal/domain/models"
)

// PositionStore keeps the latest position per ride and fans writes out to subscribers.
type PositionStore struct {
	mu     sync.Mutex
	ttl    time.Duration
	latest map[string]models.LivePosition
	subs   map[string]map[chan models.LivePosition]struct{}
}

func NewPositionStore(ttl time.Duration) *PositionStore {
	return &PositionStore{
		ttl:    ttl,
		latest: make(map[string]models.LivePosition),
		subs:   make(map[string]map[chan models.LivePosition]struct{}),
	}
}

func (s *PositionStore) Set(ctx context.Context, pos models.LivePosition) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.latest[pos.RideID] = pos
	for ch := range s.subs[pos.RideID] {
		// slow readers lose intermediate positions, the next one supersedes them
		select {
		case ch <- pos:
		default:
		}
	}
	return nil
}

func (s *PositionStore) Latest(ctx context.Context, rideID string) (models.LivePosition, bool, error) {
	if err := ctx.Err(); err != nil {
		return models.LivePosition{}, false, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	pos, ok := s.latest[rideID]
	if ok && s.ttl > 0 && time.Since(pos.UpdatedAt) > s.ttl {
		delete(s.latest, rideID)
		return models.LivePosition{}, false, nil
	}
	return pos, ok, nil
}

func (s *PositionStore) Delete(ctx context.Context, rideID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.latest, rideID)
	return nil
}

// Subscribe streams new positions of rideID until ctx is done.
func (s *PositionStore) Subscribe(ctx context.Context, rideID string) (<-chan models.LivePosition, error) {
	ch := make(chan models.LivePosition, 8)

	s.mu.Lock()
	if s.subs[rideID] == nil {
		s.subs[rideID] = make(map[chan models.LivePosition]struct{})
	}
	s.subs[rideID][ch] = struct{}{}
	s.mu.Unlock()

	go func() {
		<-ctx.Done()

		s.mu.Lock()
		delete(s.subs[rideID], ch)
		if len(s.subs[rideID]) == 0 {
			delete(s.subs, rideID)
		}
		close(ch)
		s.mu.Unlock()
	}()

	return ch, nil
}
