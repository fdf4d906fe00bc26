// Copyright (c) 2025 Lodestar App.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/lodestar-app/server/models"
	"github.com/lodestar-app/server/scrape"
	"github.com/lodestar-app/server/testutil"
)

func TestSearchEndpoint(t *testing.T) {
	db := testutil.SetupTestDB(t)
	cfg := testutil.GetTestConfig()
	userID, token := testutil.CreateTestUser(t, db, cfg, "alice@example.com")
	queue := scrape.NewQueue(db)
	handler := NewScrapeHandler(db, cfg, queue, []string{"ebay", "craigslist"})

	t.Run("fans out one job per retailer", func(t *testing.T) {
		goalID := testutil.CreateTestGoal(t, db, userID, models.TypePurchase, "Used RAV4")

		req := testutil.MakeRequest("POST", "/goals/"+goalID+"/search", models.SearchRequest{}, nil)
		w := callAuthed(t, handler.Search, token, req, map[string]string{"id": goalID})

		testutil.AssertStatus(t, w, http.StatusAccepted)
		var resp models.SearchResponse
		testutil.AssertJSON(t, w, &resp)
		if len(resp.JobIDs) != 2 {
			t.Fatalf("Expected 2 jobs, got %d", len(resp.JobIDs))
		}

		// Query falls back to the title when search_query is empty
		var query string
		if err := db.QueryRow(`SELECT query FROM scrape_job WHERE id = $1`, resp.JobIDs[0]).Scan(&query); err != nil {
			t.Fatal(err)
		}
		if query != "Used RAV4" {
			t.Errorf("Expected title as query, got %q", query)
		}
	})

	t.Run("explicit retailer list", func(t *testing.T) {
		goalID := testutil.CreateTestGoal(t, db, userID, models.TypePurchase, "Espresso machine")

		req := testutil.MakeRequest("POST", "/goals/"+goalID+"/search",
			models.SearchRequest{Retailers: []string{"ebay"}}, nil)
		w := callAuthed(t, handler.Search, token, req, map[string]string{"id": goalID})

		testutil.AssertStatus(t, w, http.StatusAccepted)
		var resp models.SearchResponse
		testutil.AssertJSON(t, w, &resp)
		if len(resp.JobIDs) != 1 {
			t.Errorf("Expected 1 job, got %d", len(resp.JobIDs))
		}
	})

	t.Run("savings goals cannot be searched", func(t *testing.T) {
		goalID := testutil.CreateTestGoal(t, db, userID, models.TypeSavings, "Just money")

		req := testutil.MakeRequest("POST", "/goals/"+goalID+"/search", models.SearchRequest{}, nil)
		w := callAuthed(t, handler.Search, token, req, map[string]string{"id": goalID})

		testutil.AssertStatus(t, w, http.StatusBadRequest)
	})

	t.Run("unknown goal", func(t *testing.T) {
		req := testutil.MakeRequest("POST", "/goals/nope/search", models.SearchRequest{}, nil)
		w := callAuthed(t, handler.Search, token, req, map[string]string{"id": "nope"})

		testutil.AssertStatus(t, w, http.StatusNotFound)
	})
}

func TestWorkerCallback(t *testing.T) {
	db := testutil.SetupTestDB(t)
	cfg := testutil.GetTestConfig()
	userID, _ := testutil.CreateTestUser(t, db, cfg, "alice@example.com")
	queue := scrape.NewQueue(db)
	handler := NewScrapeHandler(db, cfg, queue, nil)

	goalID := testutil.CreateTestGoal(t, db, userID, models.TypePurchase, "Used RAV4")

	enqueue := func() string {
		t.Helper()
		jobID, err := queue.Enqueue(t.Context(), goalID, userID, "ebay", "rav4")
		if err != nil {
			t.Fatalf("Failed to enqueue: %v", err)
		}
		return jobID
	}

	workerHeaders := map[string]string{"X-Worker-Key": cfg.WorkerKey}

	t.Run("successful results", func(t *testing.T) {
		jobID := enqueue()

		req := testutil.MakeRequest("POST", "/scrape/callback", models.WorkerCallbackRequest{
			JobID:  jobID,
			Status: "done",
			Data: []models.WorkerListing{
				{Title: "2020 RAV4 XLE", Price: "$24,998", URL: "https://example.com/1"},
				{Title: "2019 RAV4 LE", Price: "$21,500", URL: "https://example.com/2"},
			},
		}, workerHeaders)
		w := httptest.NewRecorder()
		handler.Callback(w, req)

		testutil.AssertStatus(t, w, http.StatusOK)

		var status string
		if err := db.QueryRow(`SELECT status FROM scrape_job WHERE id = $1`, jobID).Scan(&status); err != nil {
			t.Fatal(err)
		}
		if status != models.JobDone {
			t.Errorf("Expected job done, got %q", status)
		}

		var price string
		if err := db.QueryRow(`SELECT price FROM listing WHERE job_id = $1 AND title = '2020 RAV4 XLE'`, jobID).
			Scan(&price); err != nil {
			t.Fatal(err)
		}
		if price != "24998" {
			t.Errorf("Expected parsed price 24998, got %q", price)
		}
	})

	t.Run("error report", func(t *testing.T) {
		jobID := enqueue()

		req := testutil.MakeRequest("POST", "/scrape/callback", models.WorkerCallbackRequest{
			JobID:  jobID,
			Status: "error",
			Error:  "timeout loading page",
		}, workerHeaders)
		w := httptest.NewRecorder()
		handler.Callback(w, req)

		testutil.AssertStatus(t, w, http.StatusOK)

		var status, errMsg string
		if err := db.QueryRow(`SELECT status, error FROM scrape_job WHERE id = $1`, jobID).
			Scan(&status, &errMsg); err != nil {
			t.Fatal(err)
		}
		if status != models.JobError || errMsg != "timeout loading page" {
			t.Errorf("Expected errored job, got %q / %q", status, errMsg)
		}
	})

	t.Run("wrong worker key", func(t *testing.T) {
		jobID := enqueue()

		req := testutil.MakeRequest("POST", "/scrape/callback", models.WorkerCallbackRequest{
			JobID:  jobID,
			Status: "done",
		}, map[string]string{"X-Worker-Key": "wrong"})
		w := httptest.NewRecorder()
		handler.Callback(w, req)

		testutil.AssertStatus(t, w, http.StatusUnauthorized)
	})

	t.Run("unknown job", func(t *testing.T) {
		req := testutil.MakeRequest("POST", "/scrape/callback", models.WorkerCallbackRequest{
			JobID:  "no-such-job",
			Status: "done",
		}, workerHeaders)
		w := httptest.NewRecorder()
		handler.Callback(w, req)

		testutil.AssertStatus(t, w, http.StatusNotFound)
	})

	t.Run("callbacks disabled without worker key", func(t *testing.T) {
		bare := cfg
		bare.WorkerKey = ""
		disabled := NewScrapeHandler(db, bare, queue, nil)

		req := testutil.MakeRequest("POST", "/scrape/callback", models.WorkerCallbackRequest{
			JobID: "whatever",
		}, workerHeaders)
		w := httptest.NewRecorder()
		disabled.Callback(w, req)

		testutil.AssertStatus(t, w, http.StatusServiceUnavailable)
	})
}

func TestListingsEndpoint(t *testing.T) {
	db := testutil.SetupTestDB(t)
	cfg := testutil.GetTestConfig()
	userID, token := testutil.CreateTestUser(t, db, cfg, "alice@example.com")
	queue := scrape.NewQueue(db)
	handler := NewScrapeHandler(db, cfg, queue, nil)

	goalID := testutil.CreateTestGoal(t, db, userID, models.TypePurchase, "Used RAV4")
	jobID, err := queue.Enqueue(t.Context(), goalID, userID, "ebay", "rav4")
	if err != nil {
		t.Fatal(err)
	}
	if err := queue.SaveResults(t.Context(), jobID, []scrape.Item{
		{Title: "2020 RAV4", Price: "$24,998", URL: "https://example.com/1"},
	}); err != nil {
		t.Fatal(err)
	}

	req := testutil.MakeRequest("GET", "/goals/"+goalID+"/listings", nil, nil)
	w := callAuthed(t, handler.Listings, token, req, map[string]string{"id": goalID})

	testutil.AssertStatus(t, w, http.StatusOK)
	var listings []models.Listing
	testutil.AssertJSON(t, w, &listings)
	if len(listings) != 1 {
		t.Fatalf("Expected 1 listing, got %d", len(listings))
	}
	if listings[0].Price == nil || listings[0].Price.String() != "24998" {
		t.Errorf("Expected price 24998, got %+v", listings[0].Price)
	}

	// Another user's view is a 404
	_, bobToken := testutil.CreateTestUser(t, db, cfg, "bob@example.com")
	req = testutil.MakeRequest("GET", "/goals/"+goalID+"/listings", nil, nil)
	w = callAuthed(t, handler.Listings, bobToken, req, map[string]string{"id": goalID})
	testutil.AssertStatus(t, w, http.StatusNotFound)
}
