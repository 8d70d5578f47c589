// Package osrm fetches driving routes from an OSRM server.
package osrm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/encoding/geojson"

	"github.com/Temutjin2k/ride-lifecycle/internal/domain/models"
	"github.com/Temutjin2k/ride-lifecycle/internal/domain/types"
	wrap "github.com/Temutjin2k/ride-lifecycle/pkg/logger/wrapper"
	"github.com/Temutjin2k/ride-lifecycle/pkg/metrics"
)

type Config struct {
	BaseURL string
	Profile string
	Timeout time.Duration
}

type Client struct {
	cfg  Config
	http *http.Client
	name string
}

func New(cfg Config, service string) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 8 * time.Second
	}
	if cfg.Profile == "" {
		cfg.Profile = "driving"
	}
	return &Client{
		cfg:  cfg,
		http: &http.Client{Timeout: cfg.Timeout},
		name: service,
	}
}

type routeResponse struct {
	Code   string `json:"code"`
	Routes []struct {
		Distance float64         `json:"distance"`
		Duration float64         `json:"duration"`
		Geometry json.RawMessage `json:"geometry"`
	} `json:"routes"`
}

// Route returns the first driving route between two points.
func (c *Client) Route(ctx context.Context, from, to models.Point) (route models.Route, err error) {
	const op = "OSRMClient.Route"
	ctx = wrap.WithAction(ctx, "osrm_route")

	start := time.Now()
	defer func() { metrics.RecordExternal(c.name, "osrm", err, time.Since(start)) }()

	ctx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()

	// OSRM wants lon,lat
	url := fmt.Sprintf("%s/route/v1/%s/%s,%s;%s,%s?overview=full&geometries=geojson",
		c.cfg.BaseURL, c.cfg.Profile,
		ftoa(from.Longitude), ftoa(from.Latitude), ftoa(to.Longitude), ftoa(to.Latitude))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return models.Route{}, wrap.Error(ctx, fmt.Errorf("%s: failed to build request: %w", op, err))
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		ctx = wrap.WithAction(ctx, types.ActionExternalServiceFailed)
		if errors.Is(ctx.Err(), context.DeadlineExceeded) || isTimeout(err) {
			return models.Route{}, wrap.Error(ctx, fmt.Errorf("%s: %w: %v", op, types.ErrExternalTimeout, err))
		}
		return models.Route{}, wrap.Error(ctx, fmt.Errorf("%s: %w: %v", op, types.ErrExternalFailed, err))
	}
	defer resp.Body.Close()

	var payload routeResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return models.Route{}, wrap.Error(ctx, fmt.Errorf("%s: %w: failed to decode response: %v", op, types.ErrExternalFailed, err))
	}

	// OSRM answers 400 with code NoRoute or NoSegment when points cannot be joined
	if payload.Code == "NoRoute" || payload.Code == "NoSegment" || (resp.StatusCode == http.StatusOK && len(payload.Routes) == 0) {
		return models.Route{}, wrap.Error(ctx, types.ErrRouteNotFound)
	}
	if resp.StatusCode != http.StatusOK {
		return models.Route{}, wrap.Error(ctx, fmt.Errorf("%s: %w: unexpected response status %d", op, types.ErrExternalFailed, resp.StatusCode))
	}

	first := payload.Routes[0]
	var g geom.T
	if err := geojson.Unmarshal(first.Geometry, &g); err != nil {
		return models.Route{}, wrap.Error(ctx, fmt.Errorf("%s: %w: bad geometry: %v", op, types.ErrExternalFailed, err))
	}
	line, ok := g.(*geom.LineString)
	if !ok {
		return models.Route{}, wrap.Error(ctx, fmt.Errorf("%s: %w: geometry is %T, want LineString", op, types.ErrExternalFailed, g))
	}

	return models.Route{
		DistanceMeters:  first.Distance,
		DurationSeconds: first.Duration,
		Path:            line,
	}, nil
}

func isTimeout(err error) bool {
	var ne interface{ Timeout() bool }
	return errors.As(err, &ne) && ne.Timeout()
}

func ftoa(f float64) string {
	return strconv.FormatFloat(f, 'f', 6, 64)
}
