package models

import (
	"time"

	"github.com/Temutjin2k/ride-lifecycle/internal/domain/types"
)

// RideEventMessage is published after every committed transition.
// Ride carries the full snapshot so watchers need no extra read.
type RideEventMessage struct {
	RideID         string           `json:"ride_id"`
	Event          types.RideEvent  `json:"event"`
	Status         types.RideStatus `json:"status"`
	PreviousStatus types.RideStatus `json:"previous_status,omitempty"`
	Version        int64            `json:"version"`
	ActorID        string           `json:"actor_id"`
	ActorRole      types.UserRole   `json:"actor_role"`
	Ride           Ride             `json:"ride"`
	Timestamp      time.Time        `json:"timestamp"`
	CorrelationID  string           `json:"correlation_id,omitempty"`
}

// PositionMessage is fanned out to position watchers.
type PositionMessage struct {
	Type     string       `json:"type"`
	Position LivePosition `json:"position"`
}

// RideUpdateMessage is what a ride watcher receives over the socket.
type RideUpdateMessage struct {
	Type    string          `json:"type"`
	Event   types.RideEvent `json:"event,omitempty"`
	Ride    Ride            `json:"ride"`
	Version int64           `json:"version"`
}

// QueueUpdateMessage is what a queue watcher receives over the socket.
type QueueUpdateMessage struct {
	Type  string `json:"type"`
	Rides []Ride `json:"rides"`
}
