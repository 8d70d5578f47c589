package types

import "slices"

type ServiceMode string

// Ride Service - owns the ride lifecycle, profiles, contacts, the matching queue and ride watches.
// Location Service - relays live driver positions and proxies geocoding and routing.
const (
	RideService     ServiceMode = "ride-service"
	LocationService ServiceMode = "location-service"
)

// RideStatus is the lifecycle state of a ride.
type RideStatus string

func (s RideStatus) String() string {
	return string(s)
}

const (
	StatusPending   RideStatus = "pending"
	StatusOfferSent RideStatus = "offer_sent"
	StatusAccepted  RideStatus = "accepted"
	StatusInTrip    RideStatus = "in_trip"
	StatusCompleted RideStatus = "completed"
	StatusCancelled RideStatus = "cancelled"
)

// IsTerminal reports whether no transition leaves s.
func (s RideStatus) IsTerminal() bool {
	return s == StatusCompleted || s == StatusCancelled
}

// IsOpen reports whether a passenger ride in s blocks a new request.
func (s RideStatus) IsOpen() bool {
	return s != "" && !s.IsTerminal()
}

// IsActive reports whether a driver in a ride with status s is busy.
func (s RideStatus) IsActive() bool {
	return s == StatusAccepted || s == StatusInTrip
}

// HasDriver reports whether a ride in s must carry a driver id.
func (s RideStatus) HasDriver() bool {
	return s == StatusAccepted || s == StatusInTrip || s == StatusCompleted
}

// VehicleClass is the matching filter and pricing key.
type VehicleClass string

func (c VehicleClass) String() string {
	return string(c)
}

const (
	VehicleTuktuk        VehicleClass = "tuktuk"
	VehicleMotorDelivery VehicleClass = "motor_delivery"
	VehicleCar           VehicleClass = "car"
	VehicleMicrobus      VehicleClass = "microbus"
	VehicleTamanya       VehicleClass = "tamanya"
	VehicleCaboot        VehicleClass = "caboot"
)

var vehicleClasses = []VehicleClass{
	VehicleTuktuk, VehicleMotorDelivery, VehicleCar, VehicleMicrobus, VehicleTamanya, VehicleCaboot,
}

// VehicleClasses returns every known class.
func VehicleClasses() []VehicleClass {
	return slices.Clone(vehicleClasses)
}

func (c VehicleClass) Valid() bool {
	return slices.Contains(vehicleClasses, c)
}

// UserRole is the active role of a profile.
type UserRole string

func (r UserRole) String() string {
	return string(r)
}

const (
	RolePassenger UserRole = "passenger"
	RoleDriver    UserRole = "driver"
)

func (r UserRole) Valid() bool {
	return r == RolePassenger || r == RoleDriver
}

// StorageDriver selects the persistence backend.
type StorageDriver string

const (
	StoragePostgres  StorageDriver = "postgres"
	StorageFirestore StorageDriver = "firestore"
	StorageMemory    StorageDriver = "memory"
)

// EventBroker selects where lifecycle events are published.
type EventBroker string

const (
	BrokerRabbitMQ EventBroker = "rabbitmq"
	BrokerKafka    EventBroker = "kafka"
	BrokerNone     EventBroker = "none"
)

// AuthProvider selects how bearer tokens are verified.
type AuthProvider string

const (
	AuthJWT      AuthProvider = "jwt"
	AuthFirebase AuthProvider = "firebase"
)
