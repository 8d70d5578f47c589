package handler

import (
	"context"
	"net/http"

	"github.com/Temutjin2k/ride-lifecycle/internal/adapter/http/handler/dto"
	"github.com/Temutjin2k/ride-lifecycle/internal/domain/models"
	"github.com/Temutjin2k/ride-lifecycle/internal/service/relay"
	"github.com/Temutjin2k/ride-lifecycle/pkg/logger"
	wrap "github.com/Temutjin2k/ride-lifecycle/pkg/logger/wrapper"
	"github.com/Temutjin2k/ride-lifecycle/pkg/validator"
)

type Location struct {
	relay PositionPublisher
	l     logger.Logger
}

type PositionPublisher interface {
	Publish(ctx context.Context, driverID, rideID string, in relay.PositionInput) (relay.PublishResult, error)
}

func NewLocation(relay PositionPublisher, l logger.Logger) *Location {
	return &Location{
		relay: relay,
		l:     l,
	}
}

// PublishPosition godoc
// @Summary      Publish driver position
// @Description  Assigned driver writes the live position. Writes inside the throttle interval are dropped.
// @Tags         Location
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        ride_id  path      string               true  "Ride ID"
// @Param        request  body      dto.PositionRequest  true  "Position"
// @Success      200      {object}  relay.PublishResult
// @Failure      403      {object}  map[string]string
// @Failure      422      {object}  map[string]any
// @Router       /rides/{ride_id}/position [post]
func (h *Location) PublishPosition(w http.ResponseWriter, r *http.Request) {
	ctx := wrap.WithAction(r.Context(), "publish_position")

	rideID := r.PathValue("ride_id")
	if rideID == "" {
		badRequestResponse(w, "ride_id must be provided")
		return
	}
	ctx = wrap.WithRideID(ctx, rideID)

	var req dto.PositionRequest
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

	res, err := h.relay.Publish(ctx, models.IdentityFromContext(ctx).UserID, rideID, req.ToModel())
	if err != nil {
		serviceErrorResponse(ctx, w, h.l, "failed to publish position", err)
		return
	}

	h.write(ctx, w, res)
}

func (h *Location) write(ctx context.Context, w http.ResponseWriter, data any) {
	if err := writeJSON(w, http.StatusOK, data, nil); err != nil {
		h.l.Error(ctx, "failed to write response", err)
		internalErrorResponse(w)
	}
}
