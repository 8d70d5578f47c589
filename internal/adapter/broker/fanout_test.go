package broker

import (
	"context"
	"errors"
	"testing"

	"github.com/Temutjin2k/ride-lifecycle/internal/domain/models"
	"github.com/Temutjin2k/ride-lifecycle/internal/domain/types"
)

type countingPublisher struct {
	calls int
	err   error
}

func (p *countingPublisher) PublishRideEvent(context.Context, models.RideEventMessage) error {
	p.calls++
	return p.err
}

func TestFanout(t *testing.T) {
	local := &countingPublisher{}
	remote := &countingPublisher{err: types.ErrPublishFailed}

	f := NewFanout(local, nil, remote)
	err := f.PublishRideEvent(context.Background(), models.RideEventMessage{RideID: "r1", Version: 1})

	if local.calls != 1 || remote.calls != 1 {
		t.Fatalf("calls = %d, %d", local.calls, remote.calls)
	}
	if !errors.Is(err, types.ErrPublishFailed) {
		t.Fatalf("err = %v", err)
	}

	if err := NewFanout(local).PublishRideEvent(context.Background(), models.RideEventMessage{}); err != nil {
		t.Fatalf("err = %v", err)
	}
}
