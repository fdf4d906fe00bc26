// Copyright (c) 2025 Lodestar App.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/lodestar-app/server/auth"
	"github.com/lodestar-app/server/models"
)

func TestJSONResponse(t *testing.T) {
	w := httptest.NewRecorder()
	JSONResponse(w, http.StatusCreated, map[string]string{"hello": "world"})

	if w.Code != http.StatusCreated {
		t.Errorf("Expected 201, got %d", w.Code)
	}
	if ct := w.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("Expected application/json, got %q", ct)
	}

	var body map[string]string
	if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
		t.Fatal(err)
	}
	if body["hello"] != "world" {
		t.Errorf("Unexpected body: %v", body)
	}
}

func TestErrorResponse(t *testing.T) {
	w := httptest.NewRecorder()
	ErrorResponse(w, http.StatusNotFound, "goal not found")

	var body models.ErrorResponse
	if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
		t.Fatal(err)
	}
	if body.Error != "Not Found" {
		t.Errorf("Expected 'Not Found', got %q", body.Error)
	}
	if body.Message != "goal not found" {
		t.Errorf("Expected message, got %q", body.Message)
	}
}

func TestRequireAuth(t *testing.T) {
	tokens := auth.NewTokenService("test-secret", time.Hour)
	validToken, err := tokens.GenerateToken("user-42", "alice@example.com")
	if err != nil {
		t.Fatal(err)
	}

	var gotUserID string
	handler := RequireAuth(tokens, func(w http.ResponseWriter, r *http.Request) {
		gotUserID = UserID(r)
		w.WriteHeader(http.StatusOK)
	})

	tests := []struct {
		name           string
		header         string
		expectedStatus int
	}{
		{"valid token", "Bearer " + validToken, http.StatusOK},
		{"missing header", "", http.StatusUnauthorized},
		{"wrong scheme", "Basic abc", http.StatusUnauthorized},
		{"garbage token", "Bearer garbage", http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gotUserID = ""

			req := httptest.NewRequest("GET", "/goals", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			w := httptest.NewRecorder()

			handler(w, req)

			if w.Code != tt.expectedStatus {
				t.Errorf("Expected status %d, got %d", tt.expectedStatus, w.Code)
			}
			if tt.expectedStatus == http.StatusOK && gotUserID != "user-42" {
				t.Errorf("Expected user-42 on context, got %q", gotUserID)
			}
			if tt.expectedStatus == http.StatusUnauthorized && gotUserID != "" {
				t.Error("Handler should not run for unauthorized requests")
			}
		})
	}
}

func TestUserID_Unauthenticated(t *testing.T) {
	req := httptest.NewRequest("GET", "/health", nil)
	if id := UserID(req); id != "" {
		t.Errorf("Expected empty user ID, got %q", id)
	}
}

func TestCORS_Preflight(t *testing.T) {
	handler := CORS(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("Preflight should not reach the handler")
	}))

	req := httptest.NewRequest("OPTIONS", "/goals", nil)
	req.Header.Set("Origin", "http://localhost:5173")
	w := httptest.NewRecorder()

	handler.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("Expected 200, got %d", w.Code)
	}
	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "http://localhost:5173" {
		t.Errorf("Expected origin echoed back, got %q", got)
	}
}

func TestGetClientIP(t *testing.T) {
	tests := []struct {
		name       string
		forwarded  string
		realIP     string
		remoteAddr string
		expected   string
	}{
		{"x-forwarded-for single", "203.0.113.7", "", "10.0.0.1:1234", "203.0.113.7"},
		{"x-forwarded-for chain", "203.0.113.7, 10.0.0.2", "", "10.0.0.1:1234", "203.0.113.7"},
		{"x-real-ip", "", "203.0.113.9", "10.0.0.1:1234", "203.0.113.9"},
		{"remote addr fallback", "", "", "10.0.0.1:1234", "10.0.0.1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest("GET", "/goals", nil)
			req.RemoteAddr = tt.remoteAddr
			if tt.forwarded != "" {
				req.Header.Set("X-Forwarded-For", tt.forwarded)
			}
			if tt.realIP != "" {
				req.Header.Set("X-Real-IP", tt.realIP)
			}

			if got := GetClientIP(req); got != tt.expected {
				t.Errorf("Expected %q, got %q", tt.expected, got)
			}
		})
	}
}
