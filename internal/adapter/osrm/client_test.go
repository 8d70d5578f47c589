package osrm

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/Temutjin2k/ride-lifecycle/internal/domain/models"
	"github.com/Temutjin2k/ride-lifecycle/internal/domain/types"
)

const okBody = `{"code":"Ok","routes":[{"distance":5230.5,"duration":612.3,
"geometry":{"type":"LineString","coordinates":[[31.2357,30.0444],[31.24,30.05],[31.25,30.06]]}}]}`

func TestRoute(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/route/v1/driving/31.235700,30.044400;31.250000,30.060000" {
			t.Errorf("path = %s", r.URL.Path)
		}
		if r.URL.Query().Get("overview") != "full" || r.URL.Query().Get("geometries") != "geojson" {
			t.Errorf("query = %s", r.URL.RawQuery)
		}
		_, _ = w.Write([]byte(okBody))
	}))
	defer srv.Close()

	c := New(Config{BaseURL: srv.URL, Timeout: time.Second}, "test")
	route, err := c.Route(context.Background(), models.Point{Latitude: 30.0444, Longitude: 31.2357}, models.Point{Latitude: 30.06, Longitude: 31.25})
	if err != nil {
		t.Fatal(err)
	}
	if route.DistanceMeters != 5230.5 || route.DurationSeconds != 612.3 {
		t.Fatalf("route = %+v", route)
	}
	if route.Path.NumCoords() != 3 {
		t.Fatalf("coords = %d", route.Path.NumCoords())
	}

	raw, err := json.Marshal(route)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(raw), `"type":"LineString"`) || !strings.Contains(string(raw), `"distance_m":5230.5`) {
		t.Errorf("json = %s", raw)
	}
}

func TestRoute_NoRoute(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"code":"NoRoute","message":"Impossible route"}`))
	}))
	defer srv.Close()

	c := New(Config{BaseURL: srv.URL, Timeout: time.Second}, "test")
	_, err := c.Route(context.Background(), models.Point{Latitude: 1, Longitude: 1}, models.Point{Latitude: 2, Longitude: 2})
	if !errors.Is(err, types.ErrRouteNotFound) {
		t.Fatalf("err = %v", err)
	}
}

func TestRoute_Timeout(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	c := New(Config{BaseURL: srv.URL, Timeout: 50 * time.Millisecond}, "test")
	_, err := c.Route(context.Background(), models.Point{Latitude: 1, Longitude: 1}, models.Point{Latitude: 2, Longitude: 2})
	if !errors.Is(err, types.ErrTransient) {
		t.Fatalf("err = %v, want transient", err)
	}
}
