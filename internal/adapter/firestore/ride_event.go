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
)

type eventDoc struct {
	Event     string    `firestore:"event"`
	Version   int64     `firestore:"version"`
	Data      string    `firestore:"data"`
	CreatedAt time.Time `firestore:"createdAt"`
}

// RideEventRepo appends the audit trail under rides/{id}/events.
type RideEventRepo struct {
	client *firestore.Client
}

func NewRideEventRepo(client *firestore.Client) *RideEventRepo {
	return &RideEventRepo{client: client}
}

func (r *RideEventRepo) events(rideID string) *firestore.CollectionRef {
	return r.client.Collection(ridesCollection).Doc(rideID).Collection("events")
}

// Append keys the document by version, so a redelivered event overwrites itself.
func (r *RideEventRepo) Append(ctx context.Context, msg models.RideEventMessage) error {
	const op = "RideEventRepo.Append"

	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("%s: marshal: %w", op, err)
	}

	ref := r.events(msg.RideID).Doc(fmt.Sprintf("%010d", msg.Version))
	doc := eventDoc{Event: msg.Event.String(), Version: msg.Version, Data: string(data), CreatedAt: msg.Timestamp}
	if err := setDoc(ctx, ref, doc); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

func (r *RideEventRepo) List(ctx context.Context, rideID string) ([]models.RideEventMessage, error) {
	const op = "RideEventRepo.List"

	iter := r.events(rideID).OrderBy("version", firestore.Asc).Documents(ctx)
	defer iter.Stop()

	var out []models.RideEventMessage
	for {
		snap, err := iter.Next()
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, mapError(err))
		}

		var doc eventDoc
		if err := snap.DataTo(&doc); err != nil {
			return nil, fmt.Errorf("%s: decode: %w", op, err)
		}
		var msg models.RideEventMessage
		if err := json.Unmarshal([]byte(doc.Data), &msg); err != nil {
			return nil, fmt.Errorf("%s: decode: %w", op, err)
		}
		out = append(out, msg)
	}
	return out, nil
}
