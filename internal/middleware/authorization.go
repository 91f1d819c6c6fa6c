package middleware

import (
	"net/http"

	"go.uber.org/zap"
)

// RequireAnyRole lets only the listed roles through. Requests without an
// authenticated staff identity are rejected the same way as requests with
// the wrong role.
func RequireAnyRole(logger *zap.Logger, allowed ...Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			role, ok := StaffRole(r.Context())
			if !ok {
				logger.Warn("Role-gated endpoint hit without staff identity", zap.String("path", r.URL.Path))
				respondWithError(w, http.StatusForbidden, "insufficient permissions")
				return
			}

			for _, a := range allowed {
				if role == a {
					next.ServeHTTP(w, r)
					return
				}
			}

			logger.Warn("Staff role not authorized",
				zap.String("role", string(role)),
				zap.String("path", r.URL.Path),
			)
			respondWithError(w, http.StatusForbidden, "insufficient permissions")
		})
	}
}

// RequireAdmin restricts an endpoint to administrators.
func RequireAdmin(logger *zap.Logger) func(http.Handler) http.Handler {
	return RequireAnyRole(logger, RoleAdmin)
}
