package watch

import (
	"context"
	"sync"

	"github.com/Temutjin2k/ride-lifecycle/internal/domain/models"
	"github.com/Temutjin2k/ride-lifecycle/pkg/logger"
)

const subscriberBuffer = 16

// Feed fans lifecycle events out to in-process subscribers. It is fed by the
// local ride service and by the broker consumer, so a subscriber may see an
// event twice and must order by version.
type Feed struct {
	mu   sync.RWMutex
	subs map[*subscriber]struct{}
	l    logger.Logger
}

type subscriber struct {
	ch    chan models.RideEventMessage
	match func(models.RideEventMessage) bool
}

func NewFeed(l logger.Logger) *Feed {
	return &Feed{
		subs: make(map[*subscriber]struct{}),
		l:    l,
	}
}

// PublishRideEvent delivers msg to every matching subscriber without blocking.
// A subscriber whose buffer is full is closed instead of losing the event, so
// its reader can re-read the current state and subscribe again.
func (f *Feed) PublishRideEvent(ctx context.Context, msg models.RideEventMessage) error {
	var lagging []*subscriber

	f.mu.RLock()
	for s := range f.subs {
		if s.match != nil && !s.match(msg) {
			continue
		}
		select {
		case s.ch <- msg:
		default:
			lagging = append(lagging, s)
		}
	}
	f.mu.RUnlock()

	for _, s := range lagging {
		f.l.Warn(ctx, "watch subscriber is lagging, closing it", "ride_id", msg.RideID, "version", msg.Version)
		f.remove(s)
	}
	return nil
}

// Subscribe streams events accepted by match until ctx is done. The channel
// also closes early when the subscriber falls behind.
func (f *Feed) Subscribe(ctx context.Context, match func(models.RideEventMessage) bool) <-chan models.RideEventMessage {
	s := &subscriber{
		ch:    make(chan models.RideEventMessage, subscriberBuffer),
		match: match,
	}

	f.mu.Lock()
	f.subs[s] = struct{}{}
	f.mu.Unlock()

	go func() {
		<-ctx.Done()
		f.remove(s)
	}()

	return s.ch
}

func (f *Feed) remove(s *subscriber) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if _, ok := f.subs[s]; !ok {
		return
	}
	delete(f.subs, s)
	close(s.ch)
}

// Subscribers returns the number of live subscriptions.
func (f *Feed) Subscribers() int {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return len(f.subs)
}
