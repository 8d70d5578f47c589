package middleware

import "testing"

func TestRouteLabel(t *testing.T) {
	tests := map[string]string{
		"/rides":                       "/rides",
		"/rides/mine":                  "/rides/mine",
		"/rides/pending":               "/rides/pending",
		"/rides/3f1c/offer/accept":     "/rides/{ride_id}/offer/accept",
		"/ws/rides/3f1c/position":      "/ws/rides/{ride_id}/position",
		"/profiles/me":                 "/profiles/me",
		"/rides/3f1c/contacts/driver/": "/rides/{ride_id}/contacts/driver",
	}
	for in, want := range tests {
		if got := routeLabel(in); got != want {
			t.Errorf("routeLabel(%q) = %q, want %q", in, got, want)
		}
	}
}
