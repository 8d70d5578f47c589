// Package lifecycle is the ride state machine. It performs no I/O and never
// reads the clock: callers pass now and persist the returned record.
package lifecycle

import (
	"time"

	"github.com/Temutjin2k/ride-lifecycle/internal/domain/models"
	"github.com/Temutjin2k/ride-lifecycle/internal/domain/types"
	"github.com/Temutjin2k/ride-lifecycle/pkg/validator"
)

// Price bounds for proposed and offered prices.
const (
	MinPrice = 15.0
	MaxPrice = 3000.0
)

// Actor is the caller of a transition.
type Actor struct {
	ID      string
	Role    types.UserRole
	Summary models.PartySummary
}

// Command is one lifecycle event issued by an actor.
type Command struct {
	Event  types.RideEvent
	Actor  Actor
	Price  float64 // send_offer only
	Reason string  // cancel only
}

// CreateRequest carries everything a passenger supplies for a new ride.
type CreateRequest struct {
	ID            string
	Origin        models.Place
	Destination   models.Place
	Region        string
	Subregion     string
	VehicleClass  types.VehicleClass
	ProposedPrice float64
}

// Validate returns FieldErrors when a field is missing or malformed.
func (r CreateRequest) Validate() error {
	v := validator.New()
	v.Check(r.ID != "", "id", "must be provided")
	validatePlace(v, "origin", r.Origin)
	validatePlace(v, "destination", r.Destination)
	v.Check(r.Region != "", "region", "must be provided")
	v.Check(r.Subregion != "", "subregion", "must be provided")
	v.Check(r.VehicleClass.Valid(), "vehicle_class", "must be a known vehicle class")
	v.Check(validator.InRange(r.ProposedPrice, MinPrice, MaxPrice), "proposed_price", "must be between 15 and 3000")

	if !v.Valid() {
		return types.FieldErrors(v.Errors)
	}
	return nil
}

func validatePlace(v *validator.Validator, key string, p models.Place) {
	v.Check(validator.InRange(p.Latitude, -90, 90), key+".latitude", "must be between -90 and 90")
	v.Check(validator.InRange(p.Longitude, -180, 180), key+".longitude", "must be between -180 and 180")
	v.Check(p.Latitude != 0 || p.Longitude != 0, key, "must be provided")
}

// New builds a pending ride.
func New(req CreateRequest, actor Actor, now time.Time) (models.Ride, error) {
	if err := req.Validate(); err != nil {
		return models.Ride{}, err
	}
	if actor.Role != types.RolePassenger {
		return models.Ride{}, types.ErrWrongRole
	}

	summary := actor.Summary
	return models.Ride{
		ID:               req.ID,
		PassengerID:      actor.ID,
		Status:           types.StatusPending,
		Origin:           req.Origin,
		Destination:      req.Destination,
		Region:           req.Region,
		Subregion:        req.Subregion,
		VehicleClass:     req.VehicleClass,
		ProposedPrice:    req.ProposedPrice,
		PassengerSummary: &summary,
		CreatedAt:        now,
		UpdatedAt:        now,
		Version:          1,
	}, nil
}

// Apply runs cmd against ride. On success the returned ride has Version+1.
// On failure ride is returned unchanged together with the guard error.
func Apply(ride models.Ride, cmd Command, now time.Time) (models.Ride, error) {
	if ride.Status.IsTerminal() {
		return ride, types.ErrRideTerminal
	}

	next := ride.Clone()
	var err error

	switch cmd.Event {
	case types.EventSendOffer:
		err = sendOffer(&next, cmd, now)
	case types.EventAcceptDirect:
		err = acceptDirect(&next, cmd, now)
	case types.EventAcceptOffer:
		err = acceptOffer(&next, cmd, now)
	case types.EventRejectOffer:
		err = rejectOffer(&next, cmd)
	case types.EventStartTrip:
		err = startTrip(&next, cmd, now)
	case types.EventComplete:
		err = complete(&next, cmd, now)
	case types.EventCancel:
		err = cancel(&next, cmd, now)
	default:
		err = types.ErrIllegalTransition
	}
	if err != nil {
		return ride, err
	}

	next.Version = ride.Version + 1
	next.UpdatedAt = now
	return next, nil
}

// claimable checks that a driver may take the ride right now.
func claimable(r *models.Ride, a Actor) error {
	if a.Role != types.RoleDriver {
		return types.ErrWrongRole
	}
	if r.PassengerID == a.ID {
		return types.ErrIllegalTransition
	}

	switch r.Status {
	case types.StatusPending:
		return nil
	case types.StatusOfferSent:
		if r.IsOfferingDriver(a.ID) {
			return types.ErrIllegalTransition
		}
		return types.ErrRideTaken
	default:
		if r.IsDriver(a.ID) {
			return types.ErrIllegalTransition
		}
		return types.ErrRideTaken
	}
}

func sendOffer(r *models.Ride, cmd Command, now time.Time) error {
	if !validator.InRange(cmd.Price, MinPrice, MaxPrice) {
		return types.ErrInvalidPrice
	}
	if err := claimable(r, cmd.Actor); err != nil {
		return err
	}

	r.Status = types.StatusOfferSent
	r.Offer = &models.Offer{
		DriverID:  cmd.Actor.ID,
		Price:     cmd.Price,
		Driver:    cmd.Actor.Summary,
		CreatedAt: now,
	}
	return nil
}

func acceptDirect(r *models.Ride, cmd Command, now time.Time) error {
	if err := claimable(r, cmd.Actor); err != nil {
		return err
	}

	driverID := cmd.Actor.ID
	price := r.ProposedPrice
	summary := cmd.Actor.Summary

	r.Status = types.StatusAccepted
	r.DriverID = &driverID
	r.FinalPrice = &price
	r.DriverSummary = &summary
	r.AcceptedAt = &now
	return nil
}

// ownerDecision guards the passenger side of an offer.
func ownerDecision(r *models.Ride, a Actor) error {
	if a.Role != types.RolePassenger {
		return types.ErrWrongRole
	}
	if r.PassengerID != a.ID {
		return types.ErrNotYourRide
	}
	if r.Status == types.StatusPending {
		return types.ErrNoOffer
	}
	if r.Status != types.StatusOfferSent {
		return types.ErrIllegalTransition
	}
	if r.Offer == nil || r.Offer.DriverID == "" {
		return types.ErrNoOffer
	}
	return nil
}

func acceptOffer(r *models.Ride, cmd Command, now time.Time) error {
	if err := ownerDecision(r, cmd.Actor); err != nil {
		return err
	}

	driverID := r.Offer.DriverID
	price := r.Offer.Price
	summary := r.Offer.Driver

	r.Status = types.StatusAccepted
	r.DriverID = &driverID
	r.FinalPrice = &price
	r.DriverSummary = &summary
	r.Offer = nil
	r.AcceptedAt = &now
	return nil
}

func rejectOffer(r *models.Ride, cmd Command) error {
	if err := ownerDecision(r, cmd.Actor); err != nil {
		return err
	}

	// vehicle class and proposed price stay, the ride goes back to the queue as it was
	r.Status = types.StatusPending
	r.Offer = nil
	return nil
}

func startTrip(r *models.Ride, cmd Command, now time.Time) error {
	if cmd.Actor.Role != types.RoleDriver {
		return types.ErrWrongRole
	}
	if !r.IsDriver(cmd.Actor.ID) {
		return types.ErrNotYourRide
	}
	if r.Status != types.StatusAccepted {
		return types.ErrIllegalTransition
	}

	r.Status = types.StatusInTrip
	r.StartedAt = &now
	return nil
}

func complete(r *models.Ride, cmd Command, now time.Time) error {
	role, ok := relation(r, cmd.Actor.ID)
	if !ok || (role == types.RoleDriver && !r.IsDriver(cmd.Actor.ID)) {
		return types.ErrNotYourRide
	}
	if !r.Status.IsActive() {
		return types.ErrIllegalTransition
	}

	r.Status = types.StatusCompleted
	r.CompletedAt = &now
	r.CompletedBy = &models.ActorRef{ID: cmd.Actor.ID, Role: role}
	return nil
}

func cancel(r *models.Ride, cmd Command, now time.Time) error {
	role, ok := relation(r, cmd.Actor.ID)
	// a driver holding only an offer is not matched yet
	if !ok || (role == types.RoleDriver && !r.IsDriver(cmd.Actor.ID)) {
		return types.ErrNotYourRide
	}

	r.Status = types.StatusCancelled
	r.Offer = nil
	if r.DriverID != nil {
		r.FormerDriverID = r.DriverID
		r.DriverID = nil
	}
	r.CancelledAt = &now
	r.Cancel = &models.CancelMeta{
		Reason: cmd.Reason,
		ByRole: role,
		ByID:   cmd.Actor.ID,
	}
	return nil
}

// relation returns the side userID is on: the owner, the assigned driver,
// the driver holding the pending offer or the driver of a cancelled match.
func relation(r *models.Ride, userID string) (types.UserRole, bool) {
	switch {
	case userID == "":
		return "", false
	case r.PassengerID == userID:
		return types.RolePassenger, true
	case r.IsDriver(userID), r.IsOfferingDriver(userID), r.WasDriver(userID):
		return types.RoleDriver, true
	default:
		return "", false
	}
}

// Relation exposes relation for read paths that authorize viewers.
func Relation(r models.Ride, userID string) (types.UserRole, bool) {
	return relation(&r, userID)
}
