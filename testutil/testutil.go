// Copyright (c) 2025 Lodestar App.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package testutil

import (
	"bytes"
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	_ "modernc.org/sqlite"

	"github.com/lodestar-app/server/auth"
	"github.com/lodestar-app/server/cliparse"
	"github.com/lodestar-app/server/db"
)

// SetupTestDB opens a fresh in-memory sqlite database with the full
// schema. Each test gets its own database; cache=shared with a unique
// name keeps it alive across connections within the test.
func SetupTestDB(t *testing.T) *sql.DB {
	t.Helper()

	name, err := auth.GenerateID(8)
	if err != nil {
		t.Fatalf("Failed to generate database name: %v", err)
	}

	conn, err := sql.Open("sqlite",
		"file:"+name+"?mode=memory&cache=shared&_pragma=foreign_keys(1)")
	if err != nil {
		t.Fatalf("Failed to open test database: %v", err)
	}
	// Idle connections keep the shared in-memory database alive. Two
	// connections are needed because buildGoalContext issues a second
	// query while its first result set is still open.
	conn.SetMaxOpenConns(2)
	conn.SetMaxIdleConns(2)

	if err := db.CreateSchema(conn); err != nil {
		t.Fatalf("Failed to create schema: %v", err)
	}

	t.Cleanup(func() { conn.Close() })
	return conn
}

// GetTestConfig returns a standard test configuration
func GetTestConfig() cliparse.Config {
	return cliparse.Config{
		Port:         4217,
		DatabaseURL:  ":memory:",
		DatabaseType: "sqlite",
		JWTSecret:    "test-jwt-secret",
		WorkerKey:    "test-worker-key",
	}
}

// CreateTestUser inserts a user and returns its ID and a valid session token
func CreateTestUser(t *testing.T, conn *sql.DB, cfg cliparse.Config, email string) (userID, token string) {
	t.Helper()

	userID, _ = auth.GenerateID(16)
	hash, err := auth.HashPassword("test-password-1")
	if err != nil {
		t.Fatalf("Failed to hash password: %v", err)
	}

	_, err = conn.Exec(`
		INSERT INTO account_user (id, email, password_hash, created_at)
		VALUES ($1, $2, $3, $4)
	`, userID, email, hash, time.Now())
	if err != nil {
		t.Fatalf("Failed to create test user: %v", err)
	}

	tokens := auth.NewTokenService(cfg.JWTSecret, 0)
	token, err = tokens.GenerateToken(userID, email)
	if err != nil {
		t.Fatalf("Failed to generate test token: %v", err)
	}

	return userID, token
}

// CreateTestGoal inserts a goal and returns its ID.
// goalType should be "savings", "purchase", or "habit".
func CreateTestGoal(t *testing.T, conn *sql.DB, userID, goalType, title string) string {
	t.Helper()

	goalID, _ := auth.GenerateID(16)
	now := time.Now()
	_, err := conn.Exec(`
		INSERT INTO goal (id, user_id, type, title, status, current_amount, created_at, updated_at)
		VALUES ($1, $2, $3, $4, 'active', '0', $5, $6)
	`, goalID, userID, goalType, title, now, now)
	if err != nil {
		t.Fatalf("Failed to create test goal: %v", err)
	}

	return goalID
}

// SetTargetAmount sets a goal's target amount directly
func SetTargetAmount(t *testing.T, conn *sql.DB, goalID, amount string) {
	t.Helper()

	_, err := conn.Exec(`UPDATE goal SET target_amount = $1 WHERE id = $2`, amount, goalID)
	if err != nil {
		t.Fatalf("Failed to set target amount: %v", err)
	}
}

// AddTestTask inserts a task for a goal and returns the task ID
func AddTestTask(t *testing.T, conn *sql.DB, goalID, title string, position int) string {
	t.Helper()

	taskID, _ := auth.GenerateID(12)
	_, err := conn.Exec(`
		INSERT INTO task (id, goal_id, title, position, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`, taskID, goalID, title, position, time.Now())
	if err != nil {
		t.Fatalf("Failed to create test task: %v", err)
	}

	return taskID
}

// MakeRequest creates an HTTP test request
func MakeRequest(method, path string, body interface{}, headers map[string]string) *http.Request {
	var req *http.Request
	if body != nil {
		jsonBody, _ := json.Marshal(body)
		req = httptest.NewRequest(method, path, bytes.NewReader(jsonBody))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}

	for k, v := range headers {
		req.Header.Set(k, v)
	}

	return req
}

// AuthHeader builds the Authorization header map for a session token
func AuthHeader(token string) map[string]string {
	return map[string]string{"Authorization": "Bearer " + token}
}

// AssertStatus checks that the response has the expected status code
func AssertStatus(t *testing.T, w *httptest.ResponseRecorder, expected int) {
	t.Helper()
	if w.Code != expected {
		t.Errorf("Expected status %d, got %d. Body: %s", expected, w.Code, w.Body.String())
	}
}

// AssertJSON decodes the response body into the provided struct
func AssertJSON(t *testing.T, w *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	if err := json.NewDecoder(w.Body).Decode(v); err != nil {
		t.Fatalf("Failed to decode JSON response: %v", err)
	}
}
