package server

import (
	"context"
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	httpSwagger "github.com/swaggo/http-swagger"

	_ "github.com/Temutjin2k/ride-lifecycle/docs"
	"github.com/Temutjin2k/ride-lifecycle/internal/adapter/http/middleware"
	"github.com/Temutjin2k/ride-lifecycle/internal/domain/types"
	"github.com/Temutjin2k/ride-lifecycle/pkg/logger"
	wrap "github.com/Temutjin2k/ride-lifecycle/pkg/logger/wrapper"
)

// setupRoutes - setups http routes
func setupRoutes(mux *http.ServeMux, routes *handlers, m *middleware.Middleware, mode types.ServiceMode, log logger.Logger) {
	// System Health
	mux.HandleFunc("GET /health", routes.health.HealthCheck)

	setupSwaggerRoutes(mux, mode, log)
	setupMetricsRoute(mux)

	switch mode {
	case types.RideService:
		setupRideRoutes(mux, routes, m)
	case types.LocationService:
		setupLocationRoutes(mux, routes, m)
	}
}

// setupRideRoutes setups routes for ride service.
// Role checks here only reject obvious misuse early, the lifecycle guards decide.
func setupRideRoutes(mux *http.ServeMux, routes *handlers, m *middleware.Middleware) {
	mux.Handle("GET /profiles/me", m.RequireRoles(routes.profile.GetMe))            // Own profile
	mux.Handle("PUT /profiles/me", m.RequireRoles(routes.profile.UpdateMe))         // Update role attributes
	mux.Handle("POST /profiles/me/role", m.RequireRoles(routes.profile.SwitchRole)) // Switch active role

	mux.Handle("POST /rides", m.RequireRoles(routes.ride.CreateRide, types.RolePassenger))                         // Create a new ride request
	mux.Handle("GET /rides/mine", m.RequireRoles(routes.ride.MyRide))                                              // Open or active ride
	mux.Handle("GET /rides/pending", m.RequireRoles(routes.ride.ListPending, types.RoleDriver))                    // Pending queue
	mux.Handle("GET /rides/{ride_id}", m.RequireRoles(routes.ride.GetRide))                                        // Get a ride
	mux.Handle("GET /rides/{ride_id}/events", m.RequireRoles(routes.ride.History))                                 // Transition history
	mux.Handle("GET /rides/{ride_id}/contacts/{role}", m.RequireRoles(routes.ride.Contact))                        // Counterpart phone
	mux.Handle("POST /rides/{ride_id}/offer", m.RequireRoles(routes.ride.SendOffer, types.RoleDriver))             // Send an offer
	mux.Handle("POST /rides/{ride_id}/accept", m.RequireRoles(routes.ride.AcceptDirect, types.RoleDriver))         // Accept at the proposed price
	mux.Handle("POST /rides/{ride_id}/offer/accept", m.RequireRoles(routes.ride.AcceptOffer, types.RolePassenger)) // Accept the offer
	mux.Handle("POST /rides/{ride_id}/offer/reject", m.RequireRoles(routes.ride.RejectOffer, types.RolePassenger)) // Reject the offer
	mux.Handle("POST /rides/{ride_id}/start", m.RequireRoles(routes.ride.StartTrip, types.RoleDriver))             // Start the trip
	mux.Handle("POST /rides/{ride_id}/complete", m.RequireRoles(routes.ride.Complete))                             // Complete the trip
	mux.Handle("POST /rides/{ride_id}/cancel", m.RequireRoles(routes.ride.Cancel))                                 // Cancel a ride

	mux.Handle("GET /ws/rides/{ride_id}", m.RequireRoles(routes.stream.WatchRide))          // Ride watch stream
	mux.Handle("GET /ws/queue", m.RequireRoles(routes.stream.WatchQueue, types.RoleDriver)) // Queue watch stream
}

// setupLocationRoutes setups routes for location service
func setupLocationRoutes(mux *http.ServeMux, routes *handlers, m *middleware.Middleware) {
	mux.Handle("POST /rides/{ride_id}/position", m.RequireRoles(routes.location.PublishPosition, types.RoleDriver)) // Driver writes position
	mux.Handle("GET /ws/rides/{ride_id}/position", m.RequireRoles(routes.stream.WatchPosition))                     // Position stream

	mux.HandleFunc("GET /geo/search", routes.geo.Search)     // Geocode
	mux.HandleFunc("GET /geo/reverse", routes.geo.Reverse)   // Reverse geocode
	mux.HandleFunc("GET /geo/route", routes.geo.Route)       // Route between two points
	mux.HandleFunc("GET /geo/estimate", routes.geo.Estimate) // Priced route
}

// setupSwaggerRoutes configures Swagger UI endpoints based on service mode
func setupSwaggerRoutes(mux *http.ServeMux, mode types.ServiceMode, log logger.Logger) {
	var instanceName string

	switch mode {
	case types.RideService:
		instanceName = "ride"
	case types.LocationService:
		instanceName = "location"
	default:
		log.Warn(wrap.WithAction(context.Background(), "setup swagger routes"), "unknown service mode for swagger setup", "mode", mode)
		return
	}

	// Swagger UI endpoint
	swaggerURL := httpSwagger.InstanceName(instanceName)
	mux.HandleFunc("/swagger/", httpSwagger.Handler(swaggerURL))
}

// setupMetricsRoute configures the Prometheus metrics endpoint
func setupMetricsRoute(mux *http.ServeMux) {
	mux.Handle("/metrics", promhttp.Handler())
}
