// Package geocoder is a client for Nominatim compatible search APIs, which
// includes LocationIQ when a key is configured.
package geocoder

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/Temutjin2k/ride-lifecycle/internal/domain/models"
	"github.com/Temutjin2k/ride-lifecycle/internal/domain/types"
	wrap "github.com/Temutjin2k/ride-lifecycle/pkg/logger/wrapper"
	"github.com/Temutjin2k/ride-lifecycle/pkg/metrics"
)

// BiasDelta is the half size in degrees of the box around a reference point (~50km).
const BiasDelta = 0.45

type Config struct {
	BaseURL   string
	APIKey    string
	Language  string
	UserAgent string
	Timeout   time.Duration
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
	return &Client{
		cfg:  cfg,
		http: &http.Client{Timeout: cfg.Timeout},
		name: service,
	}
}

type searchPayload struct {
	Lat         string `json:"lat"`
	Lon         string `json:"lon"`
	DisplayName string `json:"display_name"`
}

type reversePayload struct {
	DisplayName string `json:"display_name"`
	Error       string `json:"error"`
}

// Search returns the single best match for query. With near set, results are
// bounded to a box of ±BiasDelta around it.
func (c *Client) Search(ctx context.Context, query string, near *models.Point) (models.Place, error) {
	const op = "GeocoderClient.Search"
	ctx = wrap.WithAction(ctx, "geocode_search")

	q := c.baseQuery()
	q.Set("q", query)
	q.Set("limit", "1")
	if near != nil {
		left := near.Longitude - BiasDelta
		right := near.Longitude + BiasDelta
		top := near.Latitude + BiasDelta
		bottom := near.Latitude - BiasDelta
		q.Set("viewbox", fmt.Sprintf("%s,%s,%s,%s", ftoa(left), ftoa(top), ftoa(right), ftoa(bottom)))
		q.Set("bounded", "1")
	}

	var results []searchPayload
	if err := c.get(ctx, "/search", q, &results); err != nil {
		return models.Place{}, wrap.Error(ctx, fmt.Errorf("%s: %w", op, err))
	}
	if len(results) == 0 {
		return models.Place{}, wrap.Error(ctx, types.ErrPlaceNotFound)
	}

	lat, err := strconv.ParseFloat(results[0].Lat, 64)
	if err != nil {
		return models.Place{}, wrap.Error(ctx, fmt.Errorf("%s: failed to parse latitude: %w", op, err))
	}
	lon, err := strconv.ParseFloat(results[0].Lon, 64)
	if err != nil {
		return models.Place{}, wrap.Error(ctx, fmt.Errorf("%s: failed to parse longitude: %w", op, err))
	}

	return models.Place{Latitude: lat, Longitude: lon, Label: results[0].DisplayName}, nil
}

// Reverse returns a label for the coordinate.
func (c *Client) Reverse(ctx context.Context, lat, lon float64) (string, error) {
	const op = "GeocoderClient.Reverse"
	ctx = wrap.WithAction(ctx, "geocode_reverse")

	q := c.baseQuery()
	q.Set("lat", ftoa(lat))
	q.Set("lon", ftoa(lon))

	var payload reversePayload
	if err := c.get(ctx, "/reverse", q, &payload); err != nil {
		if errors.Is(err, types.ErrNotFound) {
			return "", wrap.Error(ctx, types.ErrPlaceNotFound)
		}
		return "", wrap.Error(ctx, fmt.Errorf("%s: %w", op, err))
	}
	if payload.DisplayName == "" {
		return "", wrap.Error(ctx, types.ErrPlaceNotFound)
	}

	return payload.DisplayName, nil
}

func (c *Client) baseQuery() url.Values {
	q := url.Values{}
	q.Set("format", "json")
	if c.cfg.Language != "" {
		q.Set("accept-language", c.cfg.Language)
	}
	if c.cfg.APIKey != "" {
		q.Set("key", c.cfg.APIKey)
	}
	return q
}

func (c *Client) get(ctx context.Context, path string, q url.Values, dst any) (err error) {
	start := time.Now()
	defer func() { metrics.RecordExternal(c.name, "geocoder", err, time.Since(start)) }()

	ctx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.cfg.BaseURL+path+"?"+q.Encode(), nil)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if c.cfg.UserAgent != "" {
		req.Header.Set("User-Agent", c.cfg.UserAgent)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		ctx = wrap.WithAction(ctx, types.ActionExternalServiceFailed)
		if isTimeout(ctx, err) {
			return wrap.Error(ctx, fmt.Errorf("%w: %v", types.ErrExternalTimeout, err))
		}
		return wrap.Error(ctx, fmt.Errorf("%w: %v", types.ErrExternalFailed, err))
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return types.ErrPlaceNotFound
	case resp.StatusCode != http.StatusOK:
		return fmt.Errorf("%w: unexpected response status %d", types.ErrExternalFailed, resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(dst); err != nil {
		return fmt.Errorf("%w: failed to decode response: %v", types.ErrExternalFailed, err)
	}
	return nil
}

func isTimeout(ctx context.Context, err error) bool {
	if errors.Is(ctx.Err(), context.DeadlineExceeded) || errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var ne interface{ Timeout() bool }
	return errors.As(err, &ne) && ne.Timeout()
}

func ftoa(f float64) string {
	return strconv.FormatFloat(f, 'f', 6, 64)
}
