package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/Temutjin2k/ride-lifecycle/internal/domain/lifecycle"
	"github.com/Temutjin2k/ride-lifecycle/internal/domain/models"
	"github.com/Temutjin2k/ride-lifecycle/internal/domain/types"
	"github.com/Temutjin2k/ride-lifecycle/pkg/logger"
	ws "github.com/Temutjin2k/ride-lifecycle/pkg/wsHub"
)

func TestGetCode(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{types.ErrInvalidPrice, http.StatusUnprocessableEntity},
		{types.FieldErrors{"region": "must be provided"}, http.StatusUnprocessableEntity},
		{types.ErrNotYourRide, http.StatusForbidden},
		{fmt.Errorf("wrapped: %w", types.ErrWrongRole), http.StatusForbidden},
		{types.ErrPassengerHasOpenRide, http.StatusConflict},
		{types.ErrRideNotFound, http.StatusNotFound},
		{types.ErrExternalTimeout, http.StatusServiceUnavailable},
		{types.ErrRideTaken, http.StatusConflict},
		{errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		if got := GetCode(tt.err); got != tt.want {
			t.Errorf("GetCode(%v) = %d, want %d", tt.err, got, tt.want)
		}
	}
}

// fakeRides records the last call and answers with ride or err.
type fakeRides struct {
	RideService
	ride    models.Ride
	err     error
	created lifecycle.CreateRequest
	reason  string
	userID  string
}

func (f *fakeRides) Create(_ context.Context, userID string, req lifecycle.CreateRequest) (models.Ride, error) {
	f.userID, f.created = userID, req
	return f.ride, f.err
}

func (f *fakeRides) Cancel(_ context.Context, userID, _, reason string) (models.Ride, error) {
	f.userID, f.reason = userID, reason
	return f.ride, f.err
}

func (f *fakeRides) AcceptDirect(_ context.Context, userID, _ string) (models.Ride, error) {
	f.userID = userID
	return f.ride, f.err
}

func withUser(userID string, role types.UserRole, h http.HandlerFunc) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := models.WithIdentity(r.Context(), &models.Identity{UserID: userID, Role: role})
		h(w, r.WithContext(ctx))
	})
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode %q: %v", rec.Body.String(), err)
	}
	return body
}

func TestCreateRide(t *testing.T) {
	svc := &fakeRides{ride: models.Ride{ID: "r1", Status: types.StatusPending, Version: 1}}
	h := NewRide(svc, logger.Nop())

	body := `{"origin":{"latitude":30.04,"longitude":31.23,"label":" Tahrir "},
		"destination":{"latitude":30.06,"longitude":31.21},
		"region":"Cairo","subregion":"Downtown","vehicle_class":"car","proposed_price":80}`
	req := httptest.NewRequest(http.MethodPost, "/rides", strings.NewReader(body))
	rec := httptest.NewRecorder()
	withUser("p1", types.RolePassenger, h.CreateRide).ServeHTTP(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body)
	}
	if svc.userID != "p1" || svc.created.Origin.Label != "Tahrir" || svc.created.VehicleClass != types.VehicleCar {
		t.Fatalf("service got %q %+v", svc.userID, svc.created)
	}
	ride := decode(t, rec)["ride"].(map[string]any)
	if ride["ride_id"] != "r1" {
		t.Errorf("ride = %v", ride)
	}
}

func TestCreateRide_Validation(t *testing.T) {
	h := NewRide(&fakeRides{}, logger.Nop())

	req := httptest.NewRequest(http.MethodPost, "/rides", strings.NewReader(`{"region":"Cairo"}`))
	rec := httptest.NewRecorder()
	withUser("p1", types.RolePassenger, h.CreateRide).ServeHTTP(rec, req)

	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("status = %d", rec.Code)
	}
	body := decode(t, rec)
	if body["kind"] != types.KindValidation {
		t.Errorf("kind = %v", body["kind"])
	}
	fields := body["fields"].(map[string]any)
	for _, key := range []string{"origin", "destination", "subregion", "proposed_price"} {
		if _, ok := fields[key]; !ok {
			t.Errorf("missing field error %q in %v", key, fields)
		}
	}
}

func TestCreateRide_UnknownField(t *testing.T) {
	h := NewRide(&fakeRides{}, logger.Nop())

	req := httptest.NewRequest(http.MethodPost, "/rides", strings.NewReader(`{"passenger_id":"x"}`))
	rec := httptest.NewRecorder()
	withUser("p1", types.RolePassenger, h.CreateRide).ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d", rec.Code)
	}
}

func TestCancel_EmptyBody(t *testing.T) {
	svc := &fakeRides{ride: models.Ride{ID: "r1", Status: types.StatusCancelled, Version: 2}}
	h := NewRide(svc, logger.Nop())

	mux := http.NewServeMux()
	mux.Handle("POST /rides/{ride_id}/cancel", withUser("p1", types.RolePassenger, h.Cancel))

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/rides/r1/cancel", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body)
	}
	if svc.reason != "" {
		t.Errorf("reason = %q", svc.reason)
	}
}

func TestTransition_ConflictKind(t *testing.T) {
	svc := &fakeRides{err: fmt.Errorf("failed to commit: %w", types.ErrRideTaken)}
	h := NewRide(svc, logger.Nop())

	mux := http.NewServeMux()
	mux.Handle("POST /rides/{ride_id}/accept", withUser("d1", types.RoleDriver, h.AcceptDirect))

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/rides/r1/accept", nil))
	if rec.Code != http.StatusConflict {
		t.Fatalf("status = %d", rec.Code)
	}
	if kind := decode(t, rec)["kind"]; kind != types.KindConflict {
		t.Errorf("kind = %v", kind)
	}
	if svc.userID != "d1" {
		t.Errorf("user = %q", svc.userID)
	}
}

func TestInternalErrorHidesCause(t *testing.T) {
	svc := &fakeRides{err: errors.New("pq: password authentication failed")}
	h := NewRide(svc, logger.Nop())

	mux := http.NewServeMux()
	mux.Handle("POST /rides/{ride_id}/accept", withUser("d1", types.RoleDriver, h.AcceptDirect))

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/rides/r1/accept", nil))
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d", rec.Code)
	}
	if strings.Contains(rec.Body.String(), "password") {
		t.Errorf("body leaks cause: %s", rec.Body)
	}
}

type fakeGeo struct {
	GeoService
	near *models.Point
}

func (f *fakeGeo) Search(_ context.Context, query string, near *models.Point) (models.Place, error) {
	f.near = near
	return models.Place{Latitude: 30, Longitude: 31, Label: query}, nil
}

func TestGeoSearch_NearPoint(t *testing.T) {
	svc := &fakeGeo{}
	h := NewGeo(svc, logger.Nop())

	rec := httptest.NewRecorder()
	h.Search(rec, httptest.NewRequest(http.MethodGet, "/geo/search?q=Zamalek&near_lat=30.06&near_lng=31.22", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body)
	}
	if svc.near == nil || svc.near.Latitude != 30.06 {
		t.Fatalf("near = %+v", svc.near)
	}

	rec = httptest.NewRecorder()
	h.Search(rec, httptest.NewRequest(http.MethodGet, "/geo/search?q=Zamalek&near_lat=30.06", nil))
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("half point status = %d", rec.Code)
	}
}

func TestGeoRoute_MissingPoint(t *testing.T) {
	h := NewGeo(&fakeGeo{}, logger.Nop())

	rec := httptest.NewRecorder()
	h.Route(rec, httptest.NewRequest(http.MethodGet, "/geo/route?from_lat=30&from_lng=31", nil))
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("status = %d", rec.Code)
	}
	fields := decode(t, rec)["fields"].(map[string]any)
	if _, ok := fields["to_lat"]; !ok {
		t.Errorf("fields = %v", fields)
	}
}

type fakeWatcher struct {
	rides chan models.Ride
	err   error
}

func (f *fakeWatcher) WatchRide(context.Context, string, string) (<-chan models.Ride, error) {
	return f.rides, f.err
}

func (f *fakeWatcher) WatchQueue(context.Context, string, models.PendingFilter) (<-chan []models.Ride, error) {
	return nil, f.err
}

func TestWatchRide_StreamsUntilClosed(t *testing.T) {
	watcher := &fakeWatcher{rides: make(chan models.Ride, 2)}
	hub := ws.NewConnHub(logger.Nop())
	h := NewStream("ride-service", watcher, nil, hub, nil, logger.Nop())

	mux := http.NewServeMux()
	mux.Handle("GET /ws/rides/{ride_id}", withUser("p1", types.RolePassenger, h.WatchRide))
	srv := httptest.NewServer(mux)
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws/rides/r1"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatal(err)
	}
	defer conn.Close()

	watcher.rides <- models.Ride{ID: "r1", Status: types.StatusAccepted, Version: 3}

	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var msg models.RideUpdateMessage
	if err := conn.ReadJSON(&msg); err != nil {
		t.Fatal(err)
	}
	if msg.Type != "ride_update" || msg.Version != 3 || msg.Ride.Status != types.StatusAccepted {
		t.Fatalf("msg = %+v", msg)
	}

	close(watcher.rides)
	if _, _, err := conn.ReadMessage(); !websocket.IsCloseError(err, websocket.CloseNormalClosure) {
		t.Fatalf("read after source closed = %v", err)
	}
}

func TestWatchRide_GuardBeforeUpgrade(t *testing.T) {
	h := NewStream("ride-service", &fakeWatcher{err: types.ErrNotYourRide}, nil, ws.NewConnHub(logger.Nop()), nil, logger.Nop())

	mux := http.NewServeMux()
	mux.Handle("GET /ws/rides/{ride_id}", withUser("p9", types.RolePassenger, h.WatchRide))

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/ws/rides/r1", nil))
	if rec.Code != http.StatusForbidden {
		t.Fatalf("status = %d", rec.Code)
	}
}

func TestCheckOrigin(t *testing.T) {
	check := checkOrigin([]string{"https://app.example.com/"})

	tests := []struct {
		origin string
		want   bool
	}{
		{"", true},
		{"https://app.example.com", true},
		{"http://api.local", true},
		{"https://evil.example.com", false},
	}
	for _, tt := range tests {
		r := httptest.NewRequest(http.MethodGet, "http://api.local/ws/queue", nil)
		if tt.origin != "" {
			r.Header.Set("Origin", tt.origin)
		}
		if got := check(r); got != tt.want {
			t.Errorf("origin %q: got %v, want %v", tt.origin, got, tt.want)
		}
	}
}
