package relay

import (
	"context"

	"github.com/Temutjin2k/ride-lifecycle/internal/domain/models"
)

type RideReader interface {
	Get(ctx context.Context, rideID string) (models.Ride, error)
}

// PositionStore keeps only the latest position of a ride and fans new ones out.
type PositionStore interface {
	Set(ctx context.Context, pos models.LivePosition) error
	Latest(ctx context.Context, rideID string) (models.LivePosition, bool, error)
	Delete(ctx context.Context, rideID string) error
	Subscribe(ctx context.Context, rideID string) (<-chan models.LivePosition, error)
}

// EventSource streams lifecycle events, used to stop streams of finished rides.
type EventSource interface {
	Subscribe(ctx context.Context, match func(models.RideEventMessage) bool) <-chan models.RideEventMessage
}
