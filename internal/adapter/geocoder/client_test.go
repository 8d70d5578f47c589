package geocoder

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/Temutjin2k/ride-lifecycle/internal/domain/models"
	"github.com/Temutjin2k/ride-lifecycle/internal/domain/types"
)

func TestSearch_BiasAndLanguage(t *testing.T) {
	var got map[string]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/search" {
			t.Errorf("path = %s", r.URL.Path)
		}
		got = map[string]string{}
		for k := range r.URL.Query() {
			got[k] = r.URL.Query().Get(k)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[{"lat":"30.0444","lon":"31.2357","display_name":"Cairo"}]`))
	}))
	defer srv.Close()

	c := New(Config{BaseURL: srv.URL, Language: "ar", Timeout: time.Second}, "test")
	place, err := c.Search(context.Background(), "midan tahrir", &models.Point{Latitude: 30, Longitude: 31})
	if err != nil {
		t.Fatal(err)
	}
	if place.Latitude != 30.0444 || place.Longitude != 31.2357 || place.Label != "Cairo" {
		t.Fatalf("place = %+v", place)
	}

	want := map[string]string{
		"q":               "midan tahrir",
		"limit":           "1",
		"format":          "json",
		"accept-language": "ar",
		"bounded":         "1",
		"viewbox":         "30.550000,30.450000,31.450000,29.550000",
	}
	for k, v := range want {
		if got[k] != v {
			t.Errorf("%s = %q, want %q", k, got[k], v)
		}
	}
}

func TestSearch_NoResult(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`[]`))
	}))
	defer srv.Close()

	c := New(Config{BaseURL: srv.URL, Timeout: time.Second}, "test")
	_, err := c.Search(context.Background(), "nowhere", nil)
	if !errors.Is(err, types.ErrPlaceNotFound) || !errors.Is(err, types.ErrNotFound) {
		t.Fatalf("err = %v, want place not found", err)
	}
}

func TestSearch_Timeout(t *testing.T) {
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
	_, err := c.Search(context.Background(), "slow", nil)
	if !errors.Is(err, types.ErrTransient) {
		t.Fatalf("err = %v, want transient", err)
	}
}

func TestSearch_ServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	c := New(Config{BaseURL: srv.URL, Timeout: time.Second}, "test")
	if _, err := c.Search(context.Background(), "x", nil); !errors.Is(err, types.ErrExternalFailed) {
		t.Fatalf("err = %v, want external failure", err)
	}
}

func TestReverse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("lat") != "30.000000" || r.URL.Query().Get("lon") != "31.000000" {
			t.Errorf("query = %s", r.URL.RawQuery)
		}
		_, _ = w.Write([]byte(`{"display_name":"Giza"}`))
	}))
	defer srv.Close()

	c := New(Config{BaseURL: srv.URL, Timeout: time.Second}, "test")
	label, err := c.Reverse(context.Background(), 30, 31)
	if err != nil || label != "Giza" {
		t.Fatalf("label = %q, err = %v", label, err)
	}
}
