package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func principalEcho(t *testing.T, captured **Principal) http.Handler {
	t.Helper()
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		pr, ok := FromContext(r.Context())
		if !ok {
			t.Error("Expected principal in context")
		}
		*captured = pr
		w.WriteHeader(http.StatusOK)
	})
}

// TestMiddleware_ValidToken tests that a valid bearer token reaches the handler
func TestMiddleware_ValidToken(t *testing.T) {
	verifier, key := newTestVerifier(t)
	tokenString := signToken(t, key, validClaims(), testKeyID)

	var captured *Principal
	handler := Middleware(verifier)(principalEcho(t, &captured))

	req := httptest.NewRequest(http.MethodGet, "/organizations", nil)
	req.Header.Set("Authorization", "Bearer "+tokenString)
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("Expected status 200, got %d", rec.Code)
	}
	if captured == nil || captured.UserID != "user-123" {
		t.Errorf("Expected principal user-123, got %+v", captured)
	}
}

// TestMiddleware_MissingHeader tests the missing Authorization header path
func TestMiddleware_MissingHeader(t *testing.T) {
	verifier, _ := newTestVerifier(t)
	handler := Middleware(verifier)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("Handler should not be reached")
	}))

	req := httptest.NewRequest(http.MethodGet, "/organizations", nil)
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("Expected status 401, got %d", rec.Code)
	}
}

// TestMiddleware_MalformedHeader tests a non-Bearer Authorization header
func TestMiddleware_MalformedHeader(t *testing.T) {
	verifier, _ := newTestVerifier(t)
	handler := Middleware(verifier)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("Handler should not be reached")
	}))

	req := httptest.NewRequest(http.MethodGet, "/organizations", nil)
	req.Header.Set("Authorization", "Basic dXNlcjpwYXNz")
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("Expected status 401, got %d", rec.Code)
	}
}

// TestMiddleware_InvalidToken tests rejection of a garbage token
func TestMiddleware_InvalidToken(t *testing.T) {
	verifier, _ := newTestVerifier(t)
	handler := Middleware(verifier)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("Handler should not be reached")
	}))

	req := httptest.NewRequest(http.MethodGet, "/organizations", nil)
	req.Header.Set("Authorization", "Bearer not-a-jwt")
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("Expected status 401, got %d", rec.Code)
	}
}

// TestRequirePermission_Allowed tests a permitted request
func TestRequirePermission_Allowed(t *testing.T) {
	perms := Permissions{"broker_admin": {"rule:manage"}}
	reached := false
	handler := RequirePermission("rule:manage", perms)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reached = true
		w.WriteHeader(http.StatusOK)
	}))

	principal := &Principal{UserID: "user-1", Roles: []string{"broker_admin"}}
	req := httptest.NewRequest(http.MethodPost, "/rules", nil)
	req = req.WithContext(ContextWithPrincipal(req.Context(), principal))
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("Expected status 200, got %d", rec.Code)
	}
	if !reached {
		t.Error("Expected handler to be reached")
	}
}

// TestRequirePermission_Forbidden tests a denied request
func TestRequirePermission_Forbidden(t *testing.T) {
	perms := Permissions{
		"broker_admin": {"rule:manage"},
		"member":       {"rule:view"},
	}
	handler := RequirePermission("rule:manage", perms)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("Handler should not be reached")
	}))

	principal := &Principal{UserID: "user-2", Roles: []string{"member"}}
	req := httptest.NewRequest(http.MethodPost, "/rules", nil)
	req = req.WithContext(ContextWithPrincipal(req.Context(), principal))
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusForbidden {
		t.Errorf("Expected status 403, got %d", rec.Code)
	}
}

// TestRequirePermission_Unauthenticated tests the missing-principal path
func TestRequirePermission_Unauthenticated(t *testing.T) {
	perms := Permissions{"broker_admin": {"rule:manage"}}
	handler := RequirePermission("rule:manage", perms)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("Handler should not be reached")
	}))

	req := httptest.NewRequest(http.MethodPost, "/rules", nil)
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("Expected status 401, got %d", rec.Code)
	}
}
