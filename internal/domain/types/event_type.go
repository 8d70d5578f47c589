package types

// RideEvent names a lifecycle transition.
type RideEvent string

func (s RideEvent) String() string {
	return string(s)
}

const (
	EventCreate       RideEvent = "create"
	EventSendOffer    RideEvent = "send_offer"
	EventAcceptDirect RideEvent = "accept_direct"
	EventAcceptOffer  RideEvent = "accept_offer"
	EventRejectOffer  RideEvent = "reject_offer"
	EventStartTrip    RideEvent = "start_trip"
	EventComplete     RideEvent = "complete"
	EventCancel       RideEvent = "cancel"
)
