package firestore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/iterator"

	"github.com/Temutjin2k/ride-lifecycle/internal/domain/models"
	"github.com/Temutjin2k/ride-lifecycle/internal/domain/types"
)

const (
	ridesCollection = "rides"
	lockCollection  = "actorLocks"
)

// rideDoc keeps the queryable fields at the top level and the full ride as json.
type rideDoc struct {
	PassengerID  string    `firestore:"passengerId"`
	DriverID     string    `firestore:"driverId"`
	Status       string    `firestore:"status"`
	Region       string    `firestore:"region"`
	Subregion    string    `firestore:"subregion"`
	VehicleClass string    `firestore:"vehicleClass"`
	Version      int64     `firestore:"version"`
	CreatedAt    time.Time `firestore:"createdAt"`
	UpdatedAt    time.Time `firestore:"updatedAt"`
	Snapshot     string    `firestore:"snapshot"`
}

func toRideDoc(r models.Ride) (rideDoc, error) {
	b, err := json.Marshal(r)
	if err != nil {
		return rideDoc{}, err
	}
	d := rideDoc{
		PassengerID:  r.PassengerID,
		Status:       r.Status.String(),
		Region:       r.Region,
		Subregion:    r.Subregion,
		VehicleClass: r.VehicleClass.String(),
		Version:      r.Version,
		CreatedAt:    r.CreatedAt,
		UpdatedAt:    r.UpdatedAt,
		Snapshot:     string(b),
	}
	if r.DriverID != nil {
		d.DriverID = *r.DriverID
	}
	return d, nil
}

func (d rideDoc) ride() (models.Ride, error) {
	var r models.Ride
	if err := json.Unmarshal([]byte(d.Snapshot), &r); err != nil {
		return models.Ride{}, err
	}
	return r, nil
}

type RideRepo struct {
	client *firestore.Client
}

func NewRideRepo(client *firestore.Client) *RideRepo {
	return &RideRepo{client: client}
}

func (r *RideRepo) ref(rideID string) *firestore.DocumentRef {
	return r.client.Collection(ridesCollection).Doc(rideID)
}

func (r *RideRepo) Create(ctx context.Context, ride models.Ride) error {
	const op = "RideRepo.Create"

	var existing rideDoc
	found, err := getDoc(ctx, r.ref(ride.ID), &existing)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if found {
		return fmt.Errorf("%s: ride %s already exists", op, ride.ID)
	}

	doc, err := toRideDoc(ride)
	if err != nil {
		return fmt.Errorf("%s: encode: %w", op, err)
	}
	if err := setDoc(ctx, r.ref(ride.ID), doc); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

func (r *RideRepo) Get(ctx context.Context, rideID string) (models.Ride, error) {
	const op = "RideRepo.Get"

	var doc rideDoc
	found, err := getDoc(ctx, r.ref(rideID), &doc)
	if err != nil {
		return models.Ride{}, fmt.Errorf("%s: %w", op, err)
	}
	if !found {
		return models.Ride{}, types.ErrRideNotFound
	}

	ride, err := doc.ride()
	if err != nil {
		return models.Ride{}, fmt.Errorf("%s: decode: %w", op, err)
	}
	return ride, nil
}

// Swap must run inside a transaction for the version check to hold.
func (r *RideRepo) Swap(ctx context.Context, prevVersion int64, next models.Ride) error {
	const op = "RideRepo.Swap"

	var cur rideDoc
	found, err := getDoc(ctx, r.ref(next.ID), &cur)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if !found {
		return types.ErrRideNotFound
	}
	if cur.Version != prevVersion {
		return types.ErrStaleRide
	}

	doc, err := toRideDoc(next)
	if err != nil {
		return fmt.Errorf("%s: encode: %w", op, err)
	}
	if err := setDoc(ctx, r.ref(next.ID), doc); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// ListPending needs a composite index on status, region, subregion, vehicleClass and createdAt.
func (r *RideRepo) ListPending(ctx context.Context, filter models.PendingFilter) ([]models.Ride, error) {
	const op = "RideRepo.ListPending"

	limit := filter.Limit
	if limit <= 0 {
		limit = models.DefaultQueueLimit
	}

	q := r.client.Collection(ridesCollection).
		Where("status", "==", types.StatusPending.String()).
		Where("region", "==", filter.Region).
		Where("subregion", "==", filter.Subregion).
		Where("vehicleClass", "==", filter.VehicleClass.String()).
		OrderBy("createdAt", firestore.Desc).
		Limit(limit)

	iter := q.Documents(ctx)
	defer iter.Stop()

	var out []models.Ride
	for {
		snap, err := iter.Next()
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, mapError(err))
		}

		var doc rideDoc
		if err := snap.DataTo(&doc); err != nil {
			return nil, fmt.Errorf("%s: decode %s: %w", op, snap.Ref.ID, err)
		}
		ride, err := doc.ride()
		if err != nil {
			return nil, fmt.Errorf("%s: decode %s: %w", op, snap.Ref.ID, err)
		}
		out = append(out, ride)
	}
	return out, nil
}
