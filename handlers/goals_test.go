// Copyright (c) 2025 Lodestar App.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/lodestar-app/server/auth"
	"github.com/lodestar-app/server/goalcmd"
	"github.com/lodestar-app/server/middleware"
	"github.com/lodestar-app/server/models"
	"github.com/lodestar-app/server/testutil"
)

// callAuthed runs a handler func behind RequireAuth with path values set
func callAuthed(t *testing.T, fn http.HandlerFunc, token string, req *http.Request, pathValues map[string]string) *httptest.ResponseRecorder {
	t.Helper()

	cfg := testutil.GetTestConfig()
	tokens := auth.NewTokenService(cfg.JWTSecret, 0)

	req.Header.Set("Authorization", "Bearer "+token)
	for k, v := range pathValues {
		req.SetPathValue(k, v)
	}

	w := httptest.NewRecorder()
	middleware.RequireAuth(tokens, fn)(w, req)
	return w
}

func TestCreateGoalEndpoint(t *testing.T) {
	db := testutil.SetupTestDB(t)
	cfg := testutil.GetTestConfig()
	_, token := testutil.CreateTestUser(t, db, cfg, "alice@example.com")
	handler := NewGoalHandler(db, cfg, goalcmd.NewService(db))

	tests := []struct {
		name           string
		requestBody    models.CreateGoalRequest
		expectedStatus int
	}{
		{
			name: "savings goal",
			requestBody: models.CreateGoalRequest{
				Type:         "savings",
				Title:        "Emergency fund",
				TargetAmount: "5000",
			},
			expectedStatus: http.StatusCreated,
		},
		{
			name: "purchase goal with filters",
			requestBody: models.CreateGoalRequest{
				Type:        "purchase",
				Title:       "Used RAV4",
				SearchQuery: "2020 RAV4",
				Filters:     map[string]string{"maxPrice": "25000"},
			},
			expectedStatus: http.StatusCreated,
		},
		{
			name: "missing title",
			requestBody: models.CreateGoalRequest{
				Type: "habit",
			},
			expectedStatus: http.StatusBadRequest,
		},
		{
			name: "savings without target",
			requestBody: models.CreateGoalRequest{
				Type:  "savings",
				Title: "No target",
			},
			expectedStatus: http.StatusBadRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := testutil.MakeRequest("POST", "/goals", tt.requestBody, nil)
			w := callAuthed(t, handler.Create, token, req, nil)

			testutil.AssertStatus(t, w, tt.expectedStatus)

			if tt.expectedStatus == http.StatusCreated {
				var resp models.CreateGoalResponse
				testutil.AssertJSON(t, w, &resp)
				if resp.GoalID == "" {
					t.Error("Expected a goal ID")
				}
			}
		})
	}
}

func TestCreateSubgoalEndpoint(t *testing.T) {
	db := testutil.SetupTestDB(t)
	cfg := testutil.GetTestConfig()
	userID, token := testutil.CreateTestUser(t, db, cfg, "alice@example.com")
	handler := NewGoalHandler(db, cfg, goalcmd.NewService(db))

	parentID := testutil.CreateTestGoal(t, db, userID, models.TypeSavings, "Buy a house")

	req := testutil.MakeRequest("POST", "/goals", models.CreateGoalRequest{
		Type:     "habit",
		Title:    "Save receipts",
		ParentID: parentID,
	}, nil)
	w := callAuthed(t, handler.Create, token, req, nil)

	testutil.AssertStatus(t, w, http.StatusCreated)

	var resp models.CreateGoalResponse
	testutil.AssertJSON(t, w, &resp)

	var gotParent string
	if err := db.QueryRow(`SELECT parent_id FROM goal WHERE id = $1`, resp.GoalID).Scan(&gotParent); err != nil {
		t.Fatalf("Failed to query subgoal: %v", err)
	}
	if gotParent != parentID {
		t.Errorf("Expected parent %s, got %s", parentID, gotParent)
	}
}

func TestListGoals(t *testing.T) {
	db := testutil.SetupTestDB(t)
	cfg := testutil.GetTestConfig()
	userID, token := testutil.CreateTestUser(t, db, cfg, "alice@example.com")
	otherID, _ := testutil.CreateTestUser(t, db, cfg, "bob@example.com")
	handler := NewGoalHandler(db, cfg, goalcmd.NewService(db))

	testutil.CreateTestGoal(t, db, userID, models.TypeSavings, "Fund A")
	testutil.CreateTestGoal(t, db, userID, models.TypeHabit, "Habit B")
	archived := testutil.CreateTestGoal(t, db, userID, models.TypeHabit, "Old habit")
	if _, err := db.Exec(`UPDATE goal SET status = 'archived' WHERE id = $1`, archived); err != nil {
		t.Fatal(err)
	}
	testutil.CreateTestGoal(t, db, otherID, models.TypeSavings, "Bob's fund")

	t.Run("default excludes archived and other users", func(t *testing.T) {
		req := testutil.MakeRequest("GET", "/goals", nil, nil)
		w := callAuthed(t, handler.List, token, req, nil)

		testutil.AssertStatus(t, w, http.StatusOK)
		var goals []models.Goal
		testutil.AssertJSON(t, w, &goals)
		if len(goals) != 2 {
			t.Errorf("Expected 2 goals, got %d", len(goals))
		}
	})

	t.Run("type filter", func(t *testing.T) {
		req := testutil.MakeRequest("GET", "/goals?type=savings", nil, nil)
		w := callAuthed(t, handler.List, token, req, nil)

		var goals []models.Goal
		testutil.AssertJSON(t, w, &goals)
		if len(goals) != 1 || goals[0].Type != models.TypeSavings {
			t.Errorf("Expected one savings goal, got %+v", goals)
		}
	})

	t.Run("explicit archived status", func(t *testing.T) {
		req := testutil.MakeRequest("GET", "/goals?status=archived", nil, nil)
		w := callAuthed(t, handler.List, token, req, nil)

		var goals []models.Goal
		testutil.AssertJSON(t, w, &goals)
		if len(goals) != 1 || goals[0].ID != archived {
			t.Errorf("Expected the archived goal, got %+v", goals)
		}
	})
}

func TestGetGoalDetail(t *testing.T) {
	db := testutil.SetupTestDB(t)
	cfg := testutil.GetTestConfig()
	userID, token := testutil.CreateTestUser(t, db, cfg, "alice@example.com")
	handler := NewGoalHandler(db, cfg, goalcmd.NewService(db))

	goalID := testutil.CreateTestGoal(t, db, userID, models.TypePurchase, "Mountain bike")
	testutil.AddTestTask(t, db, goalID, "Research brands", 1)
	if _, err := db.Exec(`INSERT INTO goal_filter (goal_id, name, value) VALUES ($1, 'maxPrice', '3000')`, goalID); err != nil {
		t.Fatal(err)
	}
	subID := testutil.CreateTestGoal(t, db, userID, models.TypeHabit, "Save monthly")
	if _, err := db.Exec(`UPDATE goal SET parent_id = $1 WHERE id = $2`, goalID, subID); err != nil {
		t.Fatal(err)
	}

	req := testutil.MakeRequest("GET", "/goals/"+goalID, nil, nil)
	w := callAuthed(t, handler.Get, token, req, map[string]string{"id": goalID})

	testutil.AssertStatus(t, w, http.StatusOK)

	var detail models.GoalDetail
	testutil.AssertJSON(t, w, &detail)
	if detail.Goal.ID != goalID {
		t.Errorf("Expected goal %s, got %s", goalID, detail.Goal.ID)
	}
	if len(detail.Tasks) != 1 {
		t.Errorf("Expected 1 task, got %d", len(detail.Tasks))
	}
	if detail.Filters["maxPrice"] != "3000" {
		t.Errorf("Expected maxPrice filter, got %v", detail.Filters)
	}
	if len(detail.Subgoals) != 1 || detail.Subgoals[0].ID != subID {
		t.Errorf("Expected subgoal %s, got %+v", subID, detail.Subgoals)
	}
}

func TestGetGoal_NotYours(t *testing.T) {
	db := testutil.SetupTestDB(t)
	cfg := testutil.GetTestConfig()
	aliceID, _ := testutil.CreateTestUser(t, db, cfg, "alice@example.com")
	_, bobToken := testutil.CreateTestUser(t, db, cfg, "bob@example.com")
	handler := NewGoalHandler(db, cfg, goalcmd.NewService(db))

	goalID := testutil.CreateTestGoal(t, db, aliceID, models.TypeSavings, "Alice's fund")

	req := testutil.MakeRequest("GET", "/goals/"+goalID, nil, nil)
	w := callAuthed(t, handler.Get, bobToken, req, map[string]string{"id": goalID})

	testutil.AssertStatus(t, w, http.StatusNotFound)
}

func TestContributeEndpoint(t *testing.T) {
	db := testutil.SetupTestDB(t)
	cfg := testutil.GetTestConfig()
	userID, token := testutil.CreateTestUser(t, db, cfg, "alice@example.com")
	handler := NewGoalHandler(db, cfg, goalcmd.NewService(db))

	goalID := testutil.CreateTestGoal(t, db, userID, models.TypeSavings, "Bike fund")
	testutil.SetTargetAmount(t, db, goalID, "1000")

	req := testutil.MakeRequest("POST", "/goals/"+goalID+"/contributions",
		models.ContributionRequest{Amount: "200", Note: "paycheck"}, nil)
	w := callAuthed(t, handler.Contribute, token, req, map[string]string{"id": goalID})

	testutil.AssertStatus(t, w, http.StatusCreated)

	// REST contributions are manual, not chat
	var source string
	if err := db.QueryRow(`SELECT source FROM contribution WHERE goal_id = $1`, goalID).Scan(&source); err != nil {
		t.Fatalf("Failed to query contribution: %v", err)
	}
	if source != models.SourceManual {
		t.Errorf("Expected manual source, got %q", source)
	}
}

func TestUpdateGoalEndpoint(t *testing.T) {
	db := testutil.SetupTestDB(t)
	cfg := testutil.GetTestConfig()
	userID, token := testutil.CreateTestUser(t, db, cfg, "alice@example.com")
	handler := NewGoalHandler(db, cfg, goalcmd.NewService(db))

	goalID := testutil.CreateTestGoal(t, db, userID, models.TypeSavings, "Old title")
	testutil.SetTargetAmount(t, db, goalID, "100")

	newTitle := "New title"
	req := testutil.MakeRequest("PATCH", "/goals/"+goalID,
		models.UpdateGoalRequest{Title: &newTitle}, nil)
	w := callAuthed(t, handler.Update, token, req, map[string]string{"id": goalID})

	testutil.AssertStatus(t, w, http.StatusOK)

	var title string
	if err := db.QueryRow(`SELECT title FROM goal WHERE id = $1`, goalID).Scan(&title); err != nil {
		t.Fatal(err)
	}
	if title != newTitle {
		t.Errorf("Expected %q, got %q", newTitle, title)
	}
}

func TestArchiveEndpoint(t *testing.T) {
	db := testutil.SetupTestDB(t)
	cfg := testutil.GetTestConfig()
	userID, token := testutil.CreateTestUser(t, db, cfg, "alice@example.com")
	handler := NewGoalHandler(db, cfg, goalcmd.NewService(db))

	goalID := testutil.CreateTestGoal(t, db, userID, models.TypeHabit, "Old habit")

	req := testutil.MakeRequest("POST", "/goals/"+goalID+"/archive", nil, nil)
	w := callAuthed(t, handler.Archive, token, req, map[string]string{"id": goalID})
	testutil.AssertStatus(t, w, http.StatusOK)

	// Second archive conflicts
	req = testutil.MakeRequest("POST", "/goals/"+goalID+"/archive", nil, nil)
	w = callAuthed(t, handler.Archive, token, req, map[string]string{"id": goalID})
	testutil.AssertStatus(t, w, http.StatusConflict)
}

func TestTaskEndpoints(t *testing.T) {
	db := testutil.SetupTestDB(t)
	cfg := testutil.GetTestConfig()
	userID, token := testutil.CreateTestUser(t, db, cfg, "alice@example.com")
	handler := NewGoalHandler(db, cfg, goalcmd.NewService(db))

	goalID := testutil.CreateTestGoal(t, db, userID, models.TypeHabit, "Morning routine")

	// Add
	req := testutil.MakeRequest("POST", "/goals/"+goalID+"/tasks",
		models.AddTaskRequest{Title: "Stretch"}, nil)
	w := callAuthed(t, handler.AddTask, token, req, map[string]string{"id": goalID})
	testutil.AssertStatus(t, w, http.StatusCreated)

	var result models.CommandResult
	testutil.AssertJSON(t, w, &result)
	if result.TaskID == "" {
		t.Fatal("Expected a task ID")
	}

	// Toggle
	req = testutil.MakeRequest("POST", "/goals/"+goalID+"/tasks/"+result.TaskID+"/toggle", nil, nil)
	w = callAuthed(t, handler.ToggleTask, token, req,
		map[string]string{"id": goalID, "taskId": result.TaskID})
	testutil.AssertStatus(t, w, http.StatusOK)

	var done bool
	if err := db.QueryRow(`SELECT done FROM task WHERE id = $1`, result.TaskID).Scan(&done); err != nil {
		t.Fatal(err)
	}
	if !done {
		t.Error("Expected task done after toggle")
	}

	// Delete
	req = testutil.MakeRequest("DELETE", "/goals/"+goalID+"/tasks/"+result.TaskID, nil, nil)
	w = callAuthed(t, handler.DeleteTask, token, req,
		map[string]string{"id": goalID, "taskId": result.TaskID})
	testutil.AssertStatus(t, w, http.StatusOK)

	var n int
	if err := db.QueryRow(`SELECT COUNT(*) FROM task WHERE id = $1`, result.TaskID).Scan(&n); err != nil {
		t.Fatal(err)
	}
	if n != 0 {
		t.Error("Expected task deleted")
	}

	// A task under a different goal's URL is a 404
	otherGoal := testutil.CreateTestGoal(t, db, userID, models.TypeHabit, "Evening routine")
	otherTask := testutil.AddTestTask(t, db, otherGoal, "Brush teeth", 1)

	req = testutil.MakeRequest("POST", "/goals/"+goalID+"/tasks/"+otherTask+"/toggle", nil, nil)
	w = callAuthed(t, handler.ToggleTask, token, req,
		map[string]string{"id": goalID, "taskId": otherTask})
	testutil.AssertStatus(t, w, http.StatusNotFound)

	if err := db.QueryRow(`SELECT done FROM task WHERE id = $1`, otherTask).Scan(&done); err != nil {
		t.Fatal(err)
	}
	if done {
		t.Error("Expected other goal's task untouched")
	}
}
