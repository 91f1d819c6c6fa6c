package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Role is a staff role carried in the access token. Tokens are issued by
// the identity provider; this service only verifies and interprets them.
type Role string

const (
	RoleAdmin      Role = "admin"
	RolePharmacist Role = "pharmacist"
	RoleCashier    Role = "cashier"
)

// Known reports whether the role is one this service understands.
func (r Role) Known() bool {
	switch r {
	case RoleAdmin, RolePharmacist, RoleCashier:
		return true
	}
	return false
}

type contextKey string

const (
	staffIDKey   contextKey = "staff_id"
	staffRoleKey contextKey = "staff_role"
)

// staffClaims is the expected token payload: the staff member's ID in the
// registered subject claim plus their role.
type staffClaims struct {
	Role Role `json:"role"`
	jwt.RegisteredClaims
}

// Authenticate verifies the bearer token and stores the staff identity in
// the request context. Only HMAC-SHA256 tokens are accepted; the subject
// must be a staff UUID and the role must be a known one.
func Authenticate(secret string, logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
			if !ok || raw == "" {
				respondWithError(w, http.StatusUnauthorized, "missing bearer token")
				return
			}

			claims := &staffClaims{}
			token, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (interface{}, error) {
				return []byte(secret), nil
			}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
			if err != nil {
				logger.Debug("Token rejected", zap.Error(err))
				if errors.Is(err, jwt.ErrTokenExpired) {
					respondWithError(w, http.StatusUnauthorized, "token expired")
					return
				}
				respondWithError(w, http.StatusUnauthorized, "invalid token")
				return
			}
			if !token.Valid {
				respondWithError(w, http.StatusUnauthorized, "invalid token")
				return
			}

			staffID, err := uuid.Parse(claims.Subject)
			if err != nil {
				logger.Debug("Token subject is not a staff ID", zap.String("subject", claims.Subject))
				respondWithError(w, http.StatusUnauthorized, "invalid token claims")
				return
			}
			if !claims.Role.Known() {
				logger.Debug("Token carries unrecognized role", zap.String("role", string(claims.Role)))
				respondWithError(w, http.StatusUnauthorized, "invalid token claims")
				return
			}

			next.ServeHTTP(w, r.WithContext(WithStaff(r.Context(), staffID, claims.Role)))
		})
	}
}

// WithStaff returns a context carrying the authenticated staff identity.
func WithStaff(ctx context.Context, id uuid.UUID, role Role) context.Context {
	ctx = context.WithValue(ctx, staffIDKey, id)
	return context.WithValue(ctx, staffRoleKey, role)
}

// StaffID returns the authenticated staff member's ID, if any.
func StaffID(ctx context.Context) (uuid.UUID, bool) {
	id, ok := ctx.Value(staffIDKey).(uuid.UUID)
	return id, ok
}

// StaffRole returns the authenticated staff member's role, if any.
func StaffRole(ctx context.Context) (Role, bool) {
	role, ok := ctx.Value(staffRoleKey).(Role)
	return role, ok
}
