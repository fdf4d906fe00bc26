// Copyright (c) 2025 Lodestar App.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package router

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/lodestar-app/server/models"
	"github.com/lodestar-app/server/scrape"
	"github.com/lodestar-app/server/testutil"
)

func TestHealthEndpoint(t *testing.T) {
	db := testutil.SetupTestDB(t)
	cfg := testutil.GetTestConfig()
	mux := NewRouter(db, cfg, nil, nil, scrape.NewQueue(db), nil)

	req := httptest.NewRequest("GET", "/health", nil)
	w := httptest.NewRecorder()

	mux.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("Expected status 200, got %d", w.Code)
	}
	if w.Body.String() != "OK" {
		t.Errorf("Expected body 'OK', got '%s'", w.Body.String())
	}
}

func TestRootEndpoint(t *testing.T) {
	db := testutil.SetupTestDB(t)
	cfg := testutil.GetTestConfig()
	mux := NewRouter(db, cfg, nil, nil, scrape.NewQueue(db), nil)

	req := httptest.NewRequest("GET", "/", nil)
	w := httptest.NewRecorder()

	mux.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("Expected status 200, got %d", w.Code)
	}

	expected := "lodestar API v1"
	if w.Body.String() != expected {
		t.Errorf("Expected body '%s', got '%s'", expected, w.Body.String())
	}
}

func TestRouteExistence(t *testing.T) {
	db := testutil.SetupTestDB(t)
	cfg := testutil.GetTestConfig()
	mux := NewRouter(db, cfg, nil, nil, scrape.NewQueue(db), nil)

	// Routes should be matched; 400/401/404/503 are valid handler
	// responses, 405 means the route is missing
	testCases := []struct {
		method string
		path   string
	}{
		{"GET", "/health"},
		{"GET", "/"},

		{"POST", "/auth/register"},
		{"POST", "/auth/login"},
		{"GET", "/auth/me"},

		{"GET", "/goals"},
		{"POST", "/goals"},
		{"GET", "/goals/test-id"},
		{"PATCH", "/goals/test-id"},
		{"POST", "/goals/test-id/archive"},
		{"POST", "/goals/test-id/complete"},
		{"POST", "/goals/test-id/contributions"},
		{"PUT", "/goals/test-id/filters"},
		{"POST", "/goals/test-id/tasks"},
		{"POST", "/goals/test-id/tasks/test-task/toggle"},
		{"DELETE", "/goals/test-id/tasks/test-task"},

		{"POST", "/chat"},
		{"GET", "/chat/stream"},
		{"GET", "/chat/history"},

		{"POST", "/plaid/link-token"},
		{"POST", "/plaid/exchange"},
		{"GET", "/plaid/accounts"},
		{"POST", "/plaid/sync"},

		{"POST", "/goals/test-id/search"},
		{"GET", "/goals/test-id/listings"},
		{"POST", "/scrape/callback"},
	}

	for _, tc := range testCases {
		t.Run(tc.method+" "+tc.path, func(t *testing.T) {
			req := httptest.NewRequest(tc.method, tc.path, nil)
			w := httptest.NewRecorder()

			mux.ServeHTTP(w, req)

			if w.Code == http.StatusMethodNotAllowed {
				t.Errorf("Route %s %s returned 405, expected route handler to exist", tc.method, tc.path)
			}
		})
	}
}

func TestMethodNotAllowed(t *testing.T) {
	db := testutil.SetupTestDB(t)
	cfg := testutil.GetTestConfig()
	mux := NewRouter(db, cfg, nil, nil, scrape.NewQueue(db), nil)

	testCases := []struct {
		method string
		path   string
	}{
		{"POST", "/health"},          // Only GET is defined
		{"DELETE", "/goals/test-id"}, // GET and PATCH are defined
	}

	for _, tc := range testCases {
		t.Run(tc.method+" "+tc.path, func(t *testing.T) {
			req := httptest.NewRequest(tc.method, tc.path, nil)
			w := httptest.NewRecorder()

			mux.ServeHTTP(w, req)

			if w.Code != http.StatusMethodNotAllowed {
				t.Errorf("Expected 405 for %s %s, got %d", tc.method, tc.path, w.Code)
			}
		})
	}
}

func TestProtectedRoutesRequireAuth(t *testing.T) {
	db := testutil.SetupTestDB(t)
	cfg := testutil.GetTestConfig()
	mux := NewRouter(db, cfg, nil, nil, scrape.NewQueue(db), nil)

	for _, path := range []string{"/goals", "/auth/me", "/chat/history", "/plaid/accounts"} {
		t.Run(path, func(t *testing.T) {
			req := httptest.NewRequest("GET", path, nil)
			w := httptest.NewRecorder()

			mux.ServeHTTP(w, req)

			if w.Code != http.StatusUnauthorized {
				t.Errorf("Expected 401 without token, got %d", w.Code)
			}
		})
	}
}

func TestEndToEndGoalFlow(t *testing.T) {
	db := testutil.SetupTestDB(t)
	cfg := testutil.GetTestConfig()
	mux := NewRouter(db, cfg, nil, nil, scrape.NewQueue(db), []string{"ebay"})

	// Register
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, testutil.MakeRequest("POST", "/auth/register", models.RegisterRequest{
		Email:    "alice@example.com",
		Password: "hunter2hunter2",
	}, nil))
	testutil.AssertStatus(t, w, http.StatusCreated)

	var authResp models.AuthResponse
	testutil.AssertJSON(t, w, &authResp)
	headers := testutil.AuthHeader(authResp.Token)

	// Create a purchase goal
	w = httptest.NewRecorder()
	mux.ServeHTTP(w, testutil.MakeRequest("POST", "/goals", models.CreateGoalRequest{
		Type:    "purchase",
		Title:   "Used RAV4",
		Filters: map[string]string{"maxPrice": "25000"},
	}, headers))
	testutil.AssertStatus(t, w, http.StatusCreated)

	var created models.CreateGoalResponse
	testutil.AssertJSON(t, w, &created)

	// Queue a search
	w = httptest.NewRecorder()
	mux.ServeHTTP(w, testutil.MakeRequest("POST", "/goals/"+created.GoalID+"/search",
		models.SearchRequest{}, headers))
	testutil.AssertStatus(t, w, http.StatusAccepted)

	// Detail shows the filters
	w = httptest.NewRecorder()
	mux.ServeHTTP(w, testutil.MakeRequest("GET", "/goals/"+created.GoalID, nil, headers))
	testutil.AssertStatus(t, w, http.StatusOK)

	var detail models.GoalDetail
	testutil.AssertJSON(t, w, &detail)
	if detail.Filters["maxPrice"] != "25000" {
		t.Errorf("Expected maxPrice filter, got %v", detail.Filters)
	}

	// Chat is not configured on this router
	w = httptest.NewRecorder()
	mux.ServeHTTP(w, testutil.MakeRequest("POST", "/chat", models.ChatRequest{Message: "hi"}, headers))
	testutil.AssertStatus(t, w, http.StatusServiceUnavailable)
}
