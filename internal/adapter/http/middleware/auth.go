package middleware

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/Temutjin2k/ride-lifecycle/internal/domain/models"
	"github.com/Temutjin2k/ride-lifecycle/internal/domain/types"
	"github.com/Temutjin2k/ride-lifecycle/internal/service/auth"
	wrap "github.com/Temutjin2k/ride-lifecycle/pkg/logger/wrapper"
)

// --- base auth middleware ---

// Auth verifies the bearer token and injects the caller identity into the context.
// A request without a token continues as anonymous.
func (h *Middleware) Auth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		token, err := bearerToken(r)
		if err != nil {
			errorResponse(w, http.StatusUnauthorized, err.Error())
			return
		}
		// anonymous callers reach only public endpoints
		if token == "" {
			next.ServeHTTP(w, r.WithContext(models.WithIdentity(ctx, models.AnonymousIdentity())))
			return
		}

		id, err := h.auth.Authenticate(ctx, token)
		if err != nil || id == nil {
			if errors.Is(err, auth.ErrInvalidToken) || errors.Is(err, auth.ErrExpToken) {
				h.log.Warn(ctx, "rejected bearer token", "reason", err.Error())
				errorResponse(w, http.StatusUnauthorized, "invalid credentials")
				return
			}
			h.log.Error(wrap.ErrorCtx(ctx, err), "failed to authenticate user", err)
			errorResponse(w, http.StatusServiceUnavailable, "authentication unavailable")
			return
		}

		ctx = wrap.WithUserID(models.WithIdentity(ctx, id), id.UserID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RequireRoles wraps a handler and allows only callers whose active role is one of the given roles.
// With no roles it only requires an authenticated caller.
func (h *Middleware) RequireRoles(next http.HandlerFunc, allowedRoles ...types.UserRole) http.Handler {
	allowed := make(map[types.UserRole]struct{}, len(allowedRoles))
	for _, r := range allowedRoles {
		allowed[r] = struct{}{}
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := models.IdentityFromContext(r.Context())
		if id.IsAnonymous() {
			errorResponse(w, http.StatusUnauthorized, "authorization required")
			return
		}
		if len(allowed) > 0 {
			if _, ok := allowed[id.Role]; !ok {
				kindResponse(w, http.StatusForbidden, types.ErrWrongRole.Error(), types.KindGuard)
				return
			}
		}

		next.ServeHTTP(w, r)
	})
}

// --- header parser ---

// bearerToken reads the Authorization header. Browsers cannot set headers on
// websocket upgrades, so upgrade requests may carry the token as ?token=.
func bearerToken(r *http.Request) (string, error) {
	if header := r.Header.Get("Authorization"); header != "" {
		return extractBearerToken(header)
	}
	if strings.EqualFold(r.Header.Get("Upgrade"), "websocket") {
		return r.URL.Query().Get("token"), nil
	}
	return "", nil
}

func extractBearerToken(header string) (string, error) {
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || parts[1] == "" {
		return "", fmt.Errorf("invalid Authorization header format")
	}
	return parts[1], nil
}
