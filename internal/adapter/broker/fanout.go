package broker

import (
	"context"
	"errors"

	"github.com/Temutjin2k/ride-lifecycle/internal/domain/models"
)

type Publisher interface {
	PublishRideEvent(ctx context.Context, msg models.RideEventMessage) error
}

// Fanout publishes every event to all targets and joins their errors.
type Fanout struct {
	targets []Publisher
}

func NewFanout(targets ...Publisher) *Fanout {
	out := make([]Publisher, 0, len(targets))
	for _, t := range targets {
		if t != nil {
			out = append(out, t)
		}
	}
	return &Fanout{targets: out}
}

func (f *Fanout) PublishRideEvent(ctx context.Context, msg models.RideEventMessage) error {
	var errs []error
	for _, t := range f.targets {
		if err := t.PublishRideEvent(ctx, msg); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
