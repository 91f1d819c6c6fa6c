package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"go.uber.org/zap"
)

const testSecret = "till-secret"

func signStaffToken(t *testing.T, secret, subject string, role Role, expiresAt time.Time, method jwt.SigningMethod) string {
	t.Helper()
	token := jwt.NewWithClaims(method, staffClaims{
		Role: role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	})
	signed, err := token.SignedString([]byte(secret))
	if err != nil {
		t.Fatalf("Signing token failed: %v", err)
	}
	return signed
}

func authProbe(t *testing.T) (http.Handler, *bool) {
	t.Helper()
	reached := false
	handler := Authenticate(testSecret, zap.NewNop())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reached = true
		w.WriteHeader(http.StatusOK)
	}))
	return handler, &reached
}

func TestAuthenticateRejectsBadCredentials(t *testing.T) {
	staffID := uuid.New().String()
	soon := time.Now().Add(time.Hour)

	tests := []struct {
		name   string
		header string
	}{
		{"no header", ""},
		{"wrong scheme", "Basic " + signStaffToken(t, testSecret, staffID, RoleCashier, soon, jwt.SigningMethodHS256)},
		{"bare token", signStaffToken(t, testSecret, staffID, RoleCashier, soon, jwt.SigningMethodHS256)},
		{"wrong secret", "Bearer " + signStaffToken(t, "other-secret", staffID, RoleCashier, soon, jwt.SigningMethodHS256)},
		{"expired", "Bearer " + signStaffToken(t, testSecret, staffID, RoleCashier, time.Now().Add(-time.Minute), jwt.SigningMethodHS256)},
		{"wrong algorithm", "Bearer " + signStaffToken(t, testSecret, staffID, RoleCashier, soon, jwt.SigningMethodHS384)},
		{"subject not a staff ID", "Bearer " + signStaffToken(t, testSecret, "till-7", RoleCashier, soon, jwt.SigningMethodHS256)},
		{"unknown role", "Bearer " + signStaffToken(t, testSecret, staffID, Role("janitor"), soon, jwt.SigningMethodHS256)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handler, reached := authProbe(t)

			req := httptest.NewRequest(http.MethodGet, "/api/products", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)

			if rec.Code != http.StatusUnauthorized {
				t.Errorf("Status = %d, want 401", rec.Code)
			}
			if *reached {
				t.Errorf("Handler reached despite rejected credentials")
			}
		})
	}
}

func TestAuthenticatePopulatesStaffIdentity(t *testing.T) {
	staffID := uuid.New()
	token := signStaffToken(t, testSecret, staffID.String(), RolePharmacist, time.Now().Add(time.Hour), jwt.SigningMethodHS256)

	var gotID uuid.UUID
	var gotRole Role
	var gotBoth bool
	handler := Authenticate(testSecret, zap.NewNop())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, ok1 := StaffID(r.Context())
		role, ok2 := StaffRole(r.Context())
		gotID, gotRole, gotBoth = id, role, ok1 && ok2
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/pos/cart", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("Status = %d, want 200", rec.Code)
	}
	if !gotBoth {
		t.Fatal("Staff identity missing from request context")
	}
	if gotID != staffID {
		t.Errorf("StaffID = %s, want %s", gotID, staffID)
	}
	if gotRole != RolePharmacist {
		t.Errorf("StaffRole = %s, want %s", gotRole, RolePharmacist)
	}
}

func TestStaffAccessorsOnBareContext(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if _, ok := StaffID(req.Context()); ok {
		t.Error("StaffID reported present on an unauthenticated context")
	}
	if _, ok := StaffRole(req.Context()); ok {
		t.Error("StaffRole reported present on an unauthenticated context")
	}
}

func TestProperty_TamperedTokensNeverAuthenticate(t *testing.T) {
	properties := gopter.NewProperties(nil)

	properties.Property("arbitrary bearer strings are rejected", prop.ForAll(
		func(garbage string) bool {
			handler, reached := authProbe(t)

			req := httptest.NewRequest(http.MethodGet, "/api/products", nil)
			req.Header.Set("Authorization", "Bearer "+garbage)
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)

			if rec.Code != http.StatusUnauthorized || *reached {
				t.Logf("FAIL: token %q passed authentication", garbage)
				return false
			}
			return true
		},
		gen.AnyString(),
	))

	properties.TestingRun(t, gopter.ConsoleReporter(false))
}
