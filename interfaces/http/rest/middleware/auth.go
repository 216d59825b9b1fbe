package middleware

import (
	"net/http"
	"strings"

	"photopedia-backend/domain/core/entities"
	"photopedia-backend/pkg/auth"
	"photopedia-backend/pkg/common"
	apperrors "photopedia-backend/pkg/errors"
)

// BearerToken extracts the bearer token from the Authorization header,
// returning the empty string when none is present.
func BearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	if header == "" {
		return ""
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}

// Authenticate requires a valid bearer token resolving to an active
// account. The principal is attached to the request context.
func Authenticate(guard *auth.Guard) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			principal, err := guard.Authenticate(r.Context(), BearerToken(r))
			if err != nil {
				common.RespondAppError(w, err)
				return
			}
			next.ServeHTTP(w, r.WithContext(auth.SetPrincipal(r.Context(), principal)))
		})
	}
}

// OptionalAuthenticate attaches a principal when valid credentials are
// presented and lets the request through either way. Guest gallery
// access runs behind this.
func OptionalAuthenticate(guard *auth.Guard) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if principal := guard.Optional(r.Context(), BearerToken(r)); principal != nil {
				r = r.WithContext(auth.SetPrincipal(r.Context(), principal))
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RequireRoles rejects authenticated principals outside the given
// roles. It must run after Authenticate.
func RequireRoles(roles ...entities.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			principal, ok := auth.GetPrincipal(r.Context())
			if !ok {
				common.RespondAppError(w, apperrors.NewUnauthorizedError("authentication required"))
				return
			}
			if !principal.HasRole(roles...) {
				common.RespondAppError(w, apperrors.NewForbiddenError("insufficient permissions"))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RateLimit throttles by client IP. Applied to the public gallery
// surface where no principal exists to key on.
func RateLimit(limiter *auth.IPRateLimiter) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			allowed, err := limiter.Allow(r.Context(), clientIP(r))
			if err == nil && !allowed {
				common.RespondError(w, http.StatusTooManyRequests, "RATE_LIMITED", "too many requests")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func clientIP(r *http.Request) string {
	// chi's RealIP middleware rewrites RemoteAddr from the forwarding
	// headers before this runs.
	if i := strings.LastIndex(r.RemoteAddr, ":"); i > 0 {
		return r.RemoteAddr[:i]
	}
	return r.RemoteAddr
}
