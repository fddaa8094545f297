package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

func TestHandleHealth(t *testing.T) {
	api := &API{}

	req := httptest.NewRequest("GET", "/api/health", nil)
	w := httptest.NewRecorder()

	api.handleHealth(w, req)

	resp := w.Result()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("Expected status OK, got %v", resp.StatusCode)
	}

	var body map[string]string
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if body["status"] != "ok" {
		t.Errorf("Expected status ok, got %q", body["status"])
	}
}

func TestAuthMiddlewareRejectsMissingHeader(t *testing.T) {
	api := &API{jwtSecret: []byte("test-secret")}

	handler := api.authMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("protected handler should not run without a token")
	}))

	req := httptest.NewRequest("GET", "/api/sessions/s1/pairings", nil)
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	if w.Result().StatusCode != http.StatusUnauthorized {
		t.Errorf("Expected status Unauthorized, got %v", w.Result().StatusCode)
	}
}

func TestAuthMiddlewareRejectsBadToken(t *testing.T) {
	api := &API{jwtSecret: []byte("test-secret")}

	handler := api.authMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("protected handler should not run with a bad token")
	}))

	req := httptest.NewRequest("GET", "/api/sessions/s1/pairings", nil)
	req.Header.Set("Authorization", "Bearer not-a-token")
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	if w.Result().StatusCode != http.StatusUnauthorized {
		t.Errorf("Expected status Unauthorized, got %v", w.Result().StatusCode)
	}
}

func TestAuthMiddlewareAcceptsValidToken(t *testing.T) {
	api := &API{jwtSecret: []byte("test-secret")}

	claims := &Claims{
		UserID:   "user1",
		Username: "tester",
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	}
	tokenString, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(api.jwtSecret)
	if err != nil {
		t.Fatalf("Failed to sign token: %v", err)
	}

	called := false
	handler := api.authMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
		got := r.Context().Value("claims").(*Claims)
		if got.UserID != "user1" {
			t.Errorf("claims user = %q, want user1", got.UserID)
		}
	}))

	req := httptest.NewRequest("GET", "/api/sessions/s1/pairings", nil)
	req.Header.Set("Authorization", "Bearer "+tokenString)
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	if !called {
		t.Error("protected handler did not run with a valid token")
	}
	if w.Result().StatusCode != http.StatusOK {
		t.Errorf("Expected status OK, got %v", w.Result().StatusCode)
	}
}
