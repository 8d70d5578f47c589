package ride

import (
	"context"

	"github.com/Temutjin2k/ride-lifecycle/internal/domain/models"
	"github.com/Temutjin2k/ride-lifecycle/internal/domain/types"
)

/*=================Ride Repository======================*/

type RideRepo interface {
	Create(ctx context.Context, ride models.Ride) error
	// Get returns types.ErrRideNotFound for an unknown id.
	Get(ctx context.Context, rideID string) (models.Ride, error)
	// Swap stores next only if the stored version equals prevVersion,
	// otherwise it returns types.ErrStaleRide.
	Swap(ctx context.Context, prevVersion int64, next models.Ride) error
	ListPending(ctx context.Context, filter models.PendingFilter) ([]models.Ride, error)
}

/*=================Actor Pointers=======================*/

// ActorLocks stores the open ride of a passenger and the active ride of a driver.
type ActorLocks interface {
	HeldRide(ctx context.Context, userID string, role types.UserRole) (rideID string, ok bool, err error)
	// Hold fails with ErrPassengerHasOpenRide or ErrDriverHasActiveRide when
	// the pointer refers to another ride.
	Hold(ctx context.Context, userID string, role types.UserRole, rideID string) error
	Release(ctx context.Context, userID string, role types.UserRole, rideID string) error
}

/*=================Private Contacts=====================*/

type ContactRepo interface {
	Put(ctx context.Context, c models.PrivateContact) error
	Get(ctx context.Context, rideID string, role types.UserRole) (models.PrivateContact, error)
}

/*=================Audit Trail==========================*/

type RideEventRepo interface {
	Append(ctx context.Context, msg models.RideEventMessage) error
	List(ctx context.Context, rideID string) ([]models.RideEventMessage, error)
}

/*=================Collaborators========================*/

type Publisher interface {
	PublishRideEvent(ctx context.Context, msg models.RideEventMessage) error
}

type ProfileProvider interface {
	Get(ctx context.Context, userID string) (models.UserProfile, error)
}
