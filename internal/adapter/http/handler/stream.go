package handler

import (
	"context"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/Temutjin2k/ride-lifecycle/internal/domain/models"
	"github.com/Temutjin2k/ride-lifecycle/pkg/logger"
	wrap "github.com/Temutjin2k/ride-lifecycle/pkg/logger/wrapper"
	"github.com/Temutjin2k/ride-lifecycle/pkg/metrics"
	"github.com/Temutjin2k/ride-lifecycle/pkg/validator"
	ws "github.com/Temutjin2k/ride-lifecycle/pkg/wsHub"
)

type (
	RideWatcher interface {
		WatchRide(ctx context.Context, userID, rideID string) (<-chan models.Ride, error)
		WatchQueue(ctx context.Context, userID string, filter models.PendingFilter) (<-chan []models.Ride, error)
	}

	PositionWatcher interface {
		Watch(ctx context.Context, viewerID, rideID string) (<-chan models.LivePosition, error)
	}
)

// Stream serves the websocket watch endpoints. Every stream is opened before the
// upgrade so guard failures still get a plain JSON response.
type Stream struct {
	service   string
	rides     RideWatcher
	positions PositionWatcher
	hub       *ws.ConnectionHub
	upgrader  websocket.Upgrader
	l         logger.Logger
}

// NewStream builds the stream handler. rides or positions may be nil when the
// service mode does not serve them.
func NewStream(service string, rides RideWatcher, positions PositionWatcher, hub *ws.ConnectionHub, allowedOrigins []string, l logger.Logger) *Stream {
	return &Stream{
		service:   service,
		rides:     rides,
		positions: positions,
		hub:       hub,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     checkOrigin(allowedOrigins),
		},
		l: l,
	}
}

// WatchRide godoc
// @Summary      Watch ride
// @Description  Websocket stream of ride snapshots, closed after a terminal status
// @Tags         Streams
// @Security     BearerAuth
// @Param        ride_id  path  string  true   "Ride ID"
// @Param        token    query string  false  "Bearer token for browsers"
// @Success      101
// @Failure      403  {object}  map[string]string
// @Router       /ws/rides/{ride_id} [get]
func (h *Stream) WatchRide(w http.ResponseWriter, r *http.Request) {
	ctx := wrap.WithAction(r.Context(), "ws_watch_ride")
	rideID := r.PathValue("ride_id")
	ctx = wrap.WithRideID(ctx, rideID)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	rides, err := h.rides.WatchRide(ctx, models.IdentityFromContext(ctx).UserID, rideID)
	if err != nil {
		serviceErrorResponse(ctx, w, h.l, "failed to watch ride", err)
		return
	}

	serveStream(ctx, h, w, r, "ride", rides, func(ride models.Ride) any {
		return models.RideUpdateMessage{Type: "ride_update", Ride: ride, Version: ride.Version}
	})
}

// WatchQueue godoc
// @Summary      Watch pending queue
// @Description  Websocket stream of the driver's pending list
// @Tags         Streams
// @Security     BearerAuth
// @Param        region         query  string  true   "Region"
// @Param        subregion      query  string  true   "Subregion"
// @Param        vehicle_class  query  string  true   "Vehicle class"
// @Param        token          query  string  false  "Bearer token for browsers"
// @Success      101
// @Failure      409  {object}  map[string]string
// @Router       /ws/queue [get]
func (h *Stream) WatchQueue(w http.ResponseWriter, r *http.Request) {
	ctx := wrap.WithAction(r.Context(), "ws_watch_queue")

	q := pendingQuery(r)
	v := validator.New()
	q.Validate(v)
	if !v.Valid() {
		failedValidationResponse(w, v.Errors)
		return
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	lists, err := h.rides.WatchQueue(ctx, models.IdentityFromContext(ctx).UserID, q.ToModel())
	if err != nil {
		serviceErrorResponse(ctx, w, h.l, "failed to watch queue", err)
		return
	}

	serveStream(ctx, h, w, r, "queue", lists, func(rides []models.Ride) any {
		if rides == nil {
			rides = []models.Ride{}
		}
		return models.QueueUpdateMessage{Type: "queue_update", Rides: rides}
	})
}

// WatchPosition godoc
// @Summary      Watch driver position
// @Description  Websocket stream of live positions of an active ride
// @Tags         Streams
// @Security     BearerAuth
// @Param        ride_id  path   string  true   "Ride ID"
// @Param        token    query  string  false  "Bearer token for browsers"
// @Success      101
// @Failure      403  {object}  map[string]string
// @Router       /ws/rides/{ride_id}/position [get]
func (h *Stream) WatchPosition(w http.ResponseWriter, r *http.Request) {
	ctx := wrap.WithAction(r.Context(), "ws_watch_position")
	rideID := r.PathValue("ride_id")
	ctx = wrap.WithRideID(ctx, rideID)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	positions, err := h.positions.Watch(ctx, models.IdentityFromContext(ctx).UserID, rideID)
	if err != nil {
		serviceErrorResponse(ctx, w, h.l, "failed to watch position", err)
		return
	}

	serveStream(ctx, h, w, r, "position", positions, func(pos models.LivePosition) any {
		return models.PositionMessage{Type: "position", Position: pos}
	})
}

// serveStream upgrades the request and forwards values until the source
// closes or the peer goes away.
func serveStream[T any](ctx context.Context, h *Stream, w http.ResponseWriter, r *http.Request, stream string, src <-chan T, toMsg func(T) any) {
	wsConn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already written the response
		h.l.Warn(ctx, "websocket upgrade failed", "error", err.Error())
		return
	}

	userID := models.IdentityFromContext(ctx).UserID
	conn := ws.NewConn(ctx, userID+":"+uuid.NewString(), wsConn)
	if err := h.hub.Add(conn); err != nil {
		h.l.Warn(ctx, "failed to register websocket", "error", err.Error())
		_ = conn.Close()
		return
	}
	defer func() {
		_ = h.hub.Delete(conn.ID())
	}()

	gauge := metrics.WebSocketConnectionsGauge.WithLabelValues(h.service, stream)
	gauge.Inc()
	defer gauge.Dec()

	go conn.KeepAlive()
	go func() {
		// clients only send control frames, reading ends when they leave
		if err := conn.Listen(nil); err != nil {
			h.l.Debug(ctx, "websocket reader stopped", "error", err.Error())
		}
	}()

	h.l.Info(ctx, "websocket stream opened", "stream", stream)
	defer h.l.Info(ctx, "websocket stream closed", "stream", stream)

	for {
		select {
		case <-conn.Done():
			return
		case v, ok := <-src:
			if !ok {
				return
			}
			if err := conn.Send(toMsg(v)); err != nil {
				h.l.Warn(ctx, "failed to send websocket message", "stream", stream, "error", err.Error())
				return
			}
		}
	}
}

// checkOrigin allows same-origin requests, requests without an Origin header
// and the configured origins. "*" allows every origin.
func checkOrigin(allowed []string) func(r *http.Request) bool {
	set := make(map[string]struct{}, len(allowed))
	for _, o := range allowed {
		set[strings.TrimRight(strings.TrimSpace(o), "/")] = struct{}{}
	}
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		if _, ok := set["*"]; ok {
			return true
		}
		if _, ok := set[strings.TrimRight(origin, "/")]; ok {
			return true
		}
		host := strings.TrimPrefix(strings.TrimPrefix(origin, "https://"), "http://")
		return strings.EqualFold(host, r.Host)
	}
}
