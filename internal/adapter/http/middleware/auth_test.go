package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/Temutjin2k/ride-lifecycle/internal/domain/models"
	"github.com/Temutjin2k/ride-lifecycle/internal/domain/types"
	"github.com/Temutjin2k/ride-lifecycle/internal/service/auth"
	"github.com/Temutjin2k/ride-lifecycle/pkg/logger"
)

type fakeAuth map[string]*models.Identity

func (f fakeAuth) Authenticate(_ context.Context, token string) (*models.Identity, error) {
	if token == "down" {
		return nil, errors.New("profile store unavailable")
	}
	id, ok := f[token]
	if !ok {
		return nil, auth.ErrInvalidToken
	}
	return id, nil
}

func TestAuthAndRoles(t *testing.T) {
	m := NewMiddleware(fakeAuth{
		"p": {UserID: "u1", Role: types.RolePassenger},
		"d": {UserID: "u2", Role: types.RoleDriver},
	}, logger.Nop())

	var seen *models.Identity
	driverOnly := m.Auth(m.RequireRoles(func(w http.ResponseWriter, r *http.Request) {
		seen = models.IdentityFromContext(r.Context())
		w.WriteHeader(http.StatusNoContent)
	}, types.RoleDriver))

	tests := []struct {
		name   string
		header string
		want   int
	}{
		{"anonymous", "", http.StatusUnauthorized},
		{"malformed header", "Token d", http.StatusUnauthorized},
		{"unknown token", "Bearer nope", http.StatusUnauthorized},
		{"store down", "Bearer down", http.StatusServiceUnavailable},
		{"wrong role", "Bearer p", http.StatusForbidden},
		{"driver", "Bearer d", http.StatusNoContent},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/rides/pending", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()
			driverOnly.ServeHTTP(rec, req)
			if rec.Code != tt.want {
				t.Fatalf("status = %d, want %d (%s)", rec.Code, tt.want, rec.Body.String())
			}
		})
	}

	if seen == nil || seen.UserID != "u2" {
		t.Fatalf("identity = %+v", seen)
	}
}

func TestBearerToken_WebsocketQuery(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/ws/queue?token=abc", nil)
	if tok, _ := bearerToken(req); tok != "" {
		t.Fatalf("plain request used query token %q", tok)
	}

	req.Header.Set("Upgrade", "websocket")
	if tok, _ := bearerToken(req); tok != "abc" {
		t.Fatalf("token = %q", tok)
	}
}

func TestRequestID(t *testing.T) {
	m := NewMiddleware(fakeAuth{}, logger.Nop())
	h := m.RequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set(requestIDHeader, "req-1")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if got := rec.Header().Get(requestIDHeader); got != "req-1" {
		t.Fatalf("request id = %q", got)
	}

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	if rec.Header().Get(requestIDHeader) == "" {
		t.Fatal("no request id generated")
	}
}
