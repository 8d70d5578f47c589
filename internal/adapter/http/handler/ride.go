package handler

import (
	"context"
	"net/http"
	"strings"

	"github.com/Temutjin2k/ride-lifecycle/internal/adapter/http/handler/dto"
	"github.com/Temutjin2k/ride-lifecycle/internal/domain/lifecycle"
	"github.com/Temutjin2k/ride-lifecycle/internal/domain/models"
	"github.com/Temutjin2k/ride-lifecycle/internal/domain/types"
	"github.com/Temutjin2k/ride-lifecycle/pkg/logger"
	wrap "github.com/Temutjin2k/ride-lifecycle/pkg/logger/wrapper"
	"github.com/Temutjin2k/ride-lifecycle/pkg/validator"
)

type Ride struct {
	service RideService
	l       logger.Logger
}

type RideService interface {
	Create(ctx context.Context, userID string, req lifecycle.CreateRequest) (models.Ride, error)
	Get(ctx context.Context, userID, rideID string) (models.Ride, error)
	MyOpenRide(ctx context.Context, userID string) (models.Ride, error)
	ListPending(ctx context.Context, userID string, filter models.PendingFilter) ([]models.Ride, error)
	Contact(ctx context.Context, userID, rideID string, role types.UserRole) (models.PrivateContact, error)
	History(ctx context.Context, userID, rideID string) ([]models.RideEventMessage, error)

	SendOffer(ctx context.Context, driverID, rideID string, price float64) (models.Ride, error)
	AcceptDirect(ctx context.Context, driverID, rideID string) (models.Ride, error)
	AcceptOffer(ctx context.Context, passengerID, rideID string) (models.Ride, error)
	RejectOffer(ctx context.Context, passengerID, rideID string) (models.Ride, error)
	StartTrip(ctx context.Context, driverID, rideID string) (models.Ride, error)
	Complete(ctx context.Context, userID, rideID string) (models.Ride, error)
	Cancel(ctx context.Context, userID, rideID, reason string) (models.Ride, error)
}

func NewRide(service RideService, l logger.Logger) *Ride {
	return &Ride{
		service: service,
		l:       l,
	}
}

// CreateRide godoc
// @Summary      Create ride
// @Description  Passenger requests a ride with a proposed price
// @Tags         Rides
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        request  body      dto.CreateRideRequest  true  "Ride request"
// @Success      201      {object}  dto.RideResponse
// @Failure      409      {object}  map[string]string
// @Failure      422      {object}  map[string]any
// @Router       /rides [post]
func (h *Ride) CreateRide(w http.ResponseWriter, r *http.Request) {
	ctx := wrap.WithAction(r.Context(), "create_ride")
	userID := models.IdentityFromContext(ctx).UserID

	var req dto.CreateRideRequest
	if err := readJSON(w, r, &req); err != nil {
		h.l.Warn(ctx, "failed to read request JSON data", "error", err.Error())
		badRequestResponse(w, err.Error())
		return
	}

	v := validator.New()
	req.Validate(v)
	if !v.Valid() {
		h.l.Warn(ctx, "invalid request data")
		failedValidationResponse(w, v.Errors)
		return
	}

	ride, err := h.service.Create(ctx, userID, req.ToModel())
	if err != nil {
		serviceErrorResponse(ctx, w, h.l, "failed to create ride", err)
		return
	}

	if err := writeJSON(w, http.StatusCreated, dto.RideResponse{Ride: ride}, nil); err != nil {
		h.l.Error(ctx, "failed to write response", err)
		internalErrorResponse(w)
		return
	}
}

// GetRide godoc
// @Summary      Get ride
// @Tags         Rides
// @Produce      json
// @Security     BearerAuth
// @Param        ride_id  path      string  true  "Ride ID"
// @Success      200      {object}  dto.RideResponse
// @Failure      403      {object}  map[string]string
// @Failure      404      {object}  map[string]string
// @Router       /rides/{ride_id} [get]
func (h *Ride) GetRide(w http.ResponseWriter, r *http.Request) {
	ctx, rideID, ok := h.rideRequest(w, r, "get_ride")
	if !ok {
		return
	}

	ride, err := h.service.Get(ctx, models.IdentityFromContext(ctx).UserID, rideID)
	if err != nil {
		serviceErrorResponse(ctx, w, h.l, "failed to get ride", err)
		return
	}

	h.writeRide(ctx, w, http.StatusOK, ride)
}

// MyRide godoc
// @Summary      Current ride
// @Description  The passenger's open ride or the driver's active ride
// @Tags         Rides
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  dto.RideResponse
// @Failure      404  {object}  map[string]string
// @Router       /rides/mine [get]
func (h *Ride) MyRide(w http.ResponseWriter, r *http.Request) {
	ctx := wrap.WithAction(r.Context(), "get_my_ride")

	ride, err := h.service.MyOpenRide(ctx, models.IdentityFromContext(ctx).UserID)
	if err != nil {
		serviceErrorResponse(ctx, w, h.l, "failed to get open ride", err)
		return
	}

	h.writeRide(ctx, w, http.StatusOK, ride)
}

// ListPending godoc
// @Summary      Pending queue
// @Description  Pending rides for a region, subregion and vehicle class, newest first
// @Tags         Rides
// @Produce      json
// @Security     BearerAuth
// @Param        region         query     string  true  "Region"
// @Param        subregion      query     string  true  "Subregion"
// @Param        vehicle_class  query     string  true  "Vehicle class"
// @Success      200            {object}  dto.RideListResponse
// @Failure      422            {object}  map[string]any
// @Router       /rides/pending [get]
func (h *Ride) ListPending(w http.ResponseWriter, r *http.Request) {
	ctx := wrap.WithAction(r.Context(), "list_pending_rides")

	q := pendingQuery(r)
	v := validator.New()
	q.Validate(v)
	if !v.Valid() {
		h.l.Warn(ctx, "invalid queue filter")
		failedValidationResponse(w, v.Errors)
		return
	}

	rides, err := h.service.ListPending(ctx, models.IdentityFromContext(ctx).UserID, q.ToModel())
	if err != nil {
		serviceErrorResponse(ctx, w, h.l, "failed to list pending rides", err)
		return
	}
	if rides == nil {
		rides = []models.Ride{}
	}

	if err := writeJSON(w, http.StatusOK, dto.RideListResponse{Rides: rides}, nil); err != nil {
		h.l.Error(ctx, "failed to write response", err)
		internalErrorResponse(w)
	}
}

// Contact godoc
// @Summary      Read contact
// @Description  Phone of a ride party, readable by the counterpart once matched
// @Tags         Rides
// @Produce      json
// @Security     BearerAuth
// @Param        ride_id  path      string  true  "Ride ID"
// @Param        role     path      string  true  "passenger or driver"
// @Success      200      {object}  models.PrivateContact
// @Failure      403      {object}  map[string]string
// @Router       /rides/{ride_id}/contacts/{role} [get]
func (h *Ride) Contact(w http.ResponseWriter, r *http.Request) {
	ctx, rideID, ok := h.rideRequest(w, r, "read_contact")
	if !ok {
		return
	}

	role := types.UserRole(r.PathValue("role"))
	if !role.Valid() {
		failedValidationResponse(w, map[string]string{"role": "must be passenger or driver"})
		return
	}

	contact, err := h.service.Contact(ctx, models.IdentityFromContext(ctx).UserID, rideID, role)
	if err != nil {
		serviceErrorResponse(ctx, w, h.l, "failed to read contact", err)
		return
	}

	if err := writeJSON(w, http.StatusOK, envelope{"contact": contact}, nil); err != nil {
		h.l.Error(ctx, "failed to write response", err)
		internalErrorResponse(w)
	}
}

// History godoc
// @Summary      Ride history
// @Description  Committed transitions of a ride, oldest first
// @Tags         Rides
// @Produce      json
// @Security     BearerAuth
// @Param        ride_id  path      string  true  "Ride ID"
// @Success      200      {object}  dto.HistoryResponse
// @Failure      403      {object}  map[string]string
// @Router       /rides/{ride_id}/events [get]
func (h *Ride) History(w http.ResponseWriter, r *http.Request) {
	ctx, rideID, ok := h.rideRequest(w, r, "ride_history")
	if !ok {
		return
	}

	events, err := h.service.History(ctx, models.IdentityFromContext(ctx).UserID, rideID)
	if err != nil {
		serviceErrorResponse(ctx, w, h.l, "failed to read ride history", err)
		return
	}
	if events == nil {
		events = []models.RideEventMessage{}
	}

	if err := writeJSON(w, http.StatusOK, dto.HistoryResponse{Events: events}, nil); err != nil {
		h.l.Error(ctx, "failed to write response", err)
		internalErrorResponse(w)
	}
}

// SendOffer godoc
// @Summary      Send offer
// @Description  Driver proposes a price for a pending ride
// @Tags         Transitions
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        ride_id  path      string            true  "Ride ID"
// @Param        request  body      dto.OfferRequest  true  "Offer"
// @Success      200      {object}  dto.RideResponse
// @Failure      409      {object}  map[string]string
// @Router       /rides/{ride_id}/offer [post]
func (h *Ride) SendOffer(w http.ResponseWriter, r *http.Request) {
	ctx, rideID, ok := h.rideRequest(w, r, "send_offer")
	if !ok {
		return
	}

	var req dto.OfferRequest
	if err := readJSON(w, r, &req); err != nil {
		h.l.Warn(ctx, "failed to read request JSON data", "error", err.Error())
		badRequestResponse(w, err.Error())
		return
	}

	v := validator.New()
	req.Validate(v)
	if !v.Valid() {
		failedValidationResponse(w, v.Errors)
		return
	}

	ride, err := h.service.SendOffer(ctx, models.IdentityFromContext(ctx).UserID, rideID, *req.Price)
	if err != nil {
		serviceErrorResponse(ctx, w, h.l, "failed to send offer", err)
		return
	}

	h.writeRide(ctx, w, http.StatusOK, ride)
}

// AcceptDirect godoc
// @Summary      Accept ride
// @Description  Driver accepts a pending ride at the proposed price
// @Tags         Transitions
// @Produce      json
// @Security     BearerAuth
// @Param        ride_id  path      string  true  "Ride ID"
// @Success      200      {object}  dto.RideResponse
// @Failure      409      {object}  map[string]string
// @Router       /rides/{ride_id}/accept [post]
func (h *Ride) AcceptDirect(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, "accept_direct", h.service.AcceptDirect)
}

// AcceptOffer godoc
// @Summary      Accept offer
// @Tags         Transitions
// @Produce      json
// @Security     BearerAuth
// @Param        ride_id  path      string  true  "Ride ID"
// @Success      200      {object}  dto.RideResponse
// @Failure      409      {object}  map[string]string
// @Router       /rides/{ride_id}/offer/accept [post]
func (h *Ride) AcceptOffer(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, "accept_offer", h.service.AcceptOffer)
}

// RejectOffer godoc
// @Summary      Reject offer
// @Tags         Transitions
// @Produce      json
// @Security     BearerAuth
// @Param        ride_id  path      string  true  "Ride ID"
// @Success      200      {object}  dto.RideResponse
// @Failure      409      {object}  map[string]string
// @Router       /rides/{ride_id}/offer/reject [post]
func (h *Ride) RejectOffer(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, "reject_offer", h.service.RejectOffer)
}

// StartTrip godoc
// @Summary      Start trip
// @Tags         Transitions
// @Produce      json
// @Security     BearerAuth
// @Param        ride_id  path      string  true  "Ride ID"
// @Success      200      {object}  dto.RideResponse
// @Failure      409      {object}  map[string]string
// @Router       /rides/{ride_id}/start [post]
func (h *Ride) StartTrip(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, "start_trip", h.service.StartTrip)
}

// Complete godoc
// @Summary      Complete ride
// @Tags         Transitions
// @Produce      json
// @Security     BearerAuth
// @Param        ride_id  path      string  true  "Ride ID"
// @Success      200      {object}  dto.RideResponse
// @Failure      409      {object}  map[string]string
// @Router       /rides/{ride_id}/complete [post]
func (h *Ride) Complete(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, "complete_ride", h.service.Complete)
}

// Cancel godoc
// @Summary      Cancel ride
// @Tags         Transitions
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        ride_id  path      string                 true   "Ride ID"
// @Param        request  body      dto.CancelRideRequest  false  "Reason"
// @Success      200      {object}  dto.RideResponse
// @Failure      409      {object}  map[string]string
// @Router       /rides/{ride_id}/cancel [post]
func (h *Ride) Cancel(w http.ResponseWriter, r *http.Request) {
	ctx, rideID, ok := h.rideRequest(w, r, "cancel_ride")
	if !ok {
		return
	}

	var req dto.CancelRideRequest
	if err := readOptionalJSON(w, r, &req); err != nil {
		h.l.Warn(ctx, "failed to read request JSON data", "error", err.Error())
		badRequestResponse(w, err.Error())
		return
	}

	v := validator.New()
	req.Validate(v)
	if !v.Valid() {
		failedValidationResponse(w, v.Errors)
		return
	}

	ride, err := h.service.Cancel(ctx, models.IdentityFromContext(ctx).UserID, rideID, strings.TrimSpace(req.Reason))
	if err != nil {
		serviceErrorResponse(ctx, w, h.l, "failed to cancel ride", err)
		return
	}

	h.writeRide(ctx, w, http.StatusOK, ride)
}

// transition runs a body-less lifecycle command on the ride in the path.
func (h *Ride) transition(w http.ResponseWriter, r *http.Request, action string, fn func(ctx context.Context, userID, rideID string) (models.Ride, error)) {
	ctx, rideID, ok := h.rideRequest(w, r, action)
	if !ok {
		return
	}

	ride, err := fn(ctx, models.IdentityFromContext(ctx).UserID, rideID)
	if err != nil {
		serviceErrorResponse(ctx, w, h.l, "failed to apply "+action, err)
		return
	}

	h.writeRide(ctx, w, http.StatusOK, ride)
}

func (h *Ride) rideRequest(w http.ResponseWriter, r *http.Request, action string) (context.Context, string, bool) {
	ctx := wrap.WithAction(r.Context(), action)

	rideID := strings.TrimSpace(r.PathValue("ride_id"))
	if rideID == "" {
		h.l.Warn(ctx, "missing ride id")
		badRequestResponse(w, "ride_id must be provided")
		return ctx, "", false
	}

	return wrap.WithRideID(ctx, rideID), rideID, true
}

func (h *Ride) writeRide(ctx context.Context, w http.ResponseWriter, status int, ride models.Ride) {
	if err := writeJSON(w, status, dto.RideResponse{Ride: ride}, nil); err != nil {
		h.l.Error(ctx, "failed to write response", err)
		internalErrorResponse(w)
	}
}

func pendingQuery(r *http.Request) dto.PendingQuery {
	q := r.URL.Query()
	return dto.PendingQuery{
		Region:       strings.TrimSpace(q.Get("region")),
		Subregion:    strings.TrimSpace(q.Get("subregion")),
		VehicleClass: strings.TrimSpace(q.Get("vehicle_class")),
	}
}
