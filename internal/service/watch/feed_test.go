package watch

import (
	"context"
	"testing"
	"time"

	"github.com/Temutjin2k/ride-lifecycle/internal/domain/models"
	"github.com/Temutjin2k/ride-lifecycle/internal/domain/types"
	"github.com/Temutjin2k/ride-lifecycle/pkg/logger"
)

func TestFeed_ClosesLaggingSubscriber(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	feed := NewFeed(logger.Nop())
	ch := feed.Subscribe(ctx, nil)

	for v := int64(1); v <= subscriberBuffer; v++ {
		_ = feed.PublishRideEvent(ctx, models.RideEventMessage{RideID: "r1", Status: types.StatusInTrip, Version: v})
	}
	if feed.Subscribers() != 1 {
		t.Fatal("subscriber closed before its buffer was full")
	}

	_ = feed.PublishRideEvent(ctx, models.RideEventMessage{RideID: "r1", Status: types.StatusCompleted, Version: subscriberBuffer + 1})
	if feed.Subscribers() != 0 {
		t.Fatal("lagging subscriber kept")
	}

	var got int
	for range ch {
		got++
	}
	if got != subscriberBuffer {
		t.Fatalf("buffered events = %d, want %d", got, subscriberBuffer)
	}

	// cancelling after eviction must not close the channel twice
	cancel()
	time.Sleep(10 * time.Millisecond)
}

func TestFeed_MatchFilters(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	feed := NewFeed(logger.Nop())
	ch := feed.Subscribe(ctx, func(msg models.RideEventMessage) bool { return msg.RideID == "r2" })

	_ = feed.PublishRideEvent(ctx, models.RideEventMessage{RideID: "r1", Version: 1})
	_ = feed.PublishRideEvent(ctx, models.RideEventMessage{RideID: "r2", Version: 1})

	if got := recv(t, ch); got.RideID != "r2" {
		t.Fatalf("got %+v", got)
	}

	cancel()
	select {
	case _, ok := <-ch:
		if ok {
			t.Fatal("event after cancel")
		}
	case <-time.After(time.Second):
		t.Fatal("channel not closed after cancel")
	}
}
