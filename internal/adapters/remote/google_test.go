package remote

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/hearthboard/core/internal/domain/entities"
	"github.com/hearthboard/core/internal/infrastructure/config"
	"github.com/hearthboard/core/internal/infrastructure/logger"
)

func newTestClient(t *testing.T, handler http.Handler) (*Client, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	client, err := NewClient(config.GoogleConfig{
		CalendarBaseURL: srv.URL + "/calendar/v3",
		TasksBaseURL:    srv.URL + "/tasks/v1",
		Token:           "test-token",
		RequestTimeout:  5 * time.Second,
		ChoresListName:  "Chores",
	}, logger.NewNop())
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	return client, srv
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(v)
}

func TestFetchEventsPaginatesAndSorts(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/calendar/v3/users/me/calendarList", func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer test-token" {
			t.Errorf("Authorization = %q", got)
		}
		writeJSON(w, map[string]interface{}{
			"items": []map[string]string{{"id": "work", "summary": "Work"}},
		})
	})
	mux.HandleFunc("/calendar/v3/calendars/work/events", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("singleEvents") != "true" {
			t.Error("singleEvents must be requested")
		}
		if r.URL.Query().Get("pageToken") == "" {
			writeJSON(w, map[string]interface{}{
				"items": []map[string]interface{}{
					{
						"id":      "e2",
						"summary": "Later",
						"start":   map[string]string{"dateTime": "2025-06-15T14:00:00Z"},
						"end":     map[string]string{"dateTime": "2025-06-15T15:00:00Z"},
					},
				},
				"nextPageToken": "page2",
			})
			return
		}
		writeJSON(w, map[string]interface{}{
			"items": []map[string]interface{}{
				{
					"id":      "e1",
					"summary": "Earlier",
					"start":   map[string]string{"dateTime": "2025-06-15T09:00:00Z"},
					"end":     map[string]string{"dateTime": "2025-06-15T10:00:00Z"},
				},
			},
		})
	})

	client, _ := newTestClient(t, mux)
	events, err := client.FetchEvents(context.Background(), 2025, 6)
	if err != nil {
		t.Fatalf("FetchEvents: %v", err)
	}

	if len(events) != 2 {
		t.Fatalf("got %d events, want 2 across pages", len(events))
	}
	if events[0].ID != "e1" || events[1].ID != "e2" {
		t.Errorf("order = %s, %s; want sorted by start", events[0].ID, events[1].ID)
	}
	if events[0].CalendarName != "Work" {
		t.Errorf("calendar name = %q", events[0].CalendarName)
	}
}

func TestFetchEventsNormalizesTimes(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/calendar/v3/users/me/calendarList", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, map[string]interface{}{
			"items": []map[string]string{{"id": "fam", "summary": "Family"}},
		})
	})
	mux.HandleFunc("/calendar/v3/calendars/fam/events", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, map[string]interface{}{
			"items": []map[string]interface{}{
				{
					"id":    "allday",
					"start": map[string]string{"date": "2025-06-15"},
					"end":   map[string]string{"date": "2025-06-16"},
				},
				{
					"id":      "broken",
					"summary": "Broken clock",
					"start":   map[string]string{"dateTime": "garbage"},
					"end":     map[string]string{"dateTime": "2025-06-15T10:00:00Z"},
				},
			},
		})
	})

	client, _ := newTestClient(t, mux)
	events, err := client.FetchEvents(context.Background(), 2025, 6)
	if err != nil {
		t.Fatalf("FetchEvents: %v", err)
	}
	if len(events) != 2 {
		t.Fatalf("got %d events, want 2", len(events))
	}

	byID := map[string]int{}
	for i, ev := range events {
		byID[ev.ID] = i
	}

	allday := events[byID["allday"]]
	if !allday.AllDay {
		t.Error("date-only event should be all-day")
	}
	if !allday.Start.Equal(time.Date(2025, 6, 15, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("all-day start = %v", allday.Start)
	}
	if allday.Title != "(No Title)" {
		t.Errorf("missing summary should default, got %q", allday.Title)
	}

	broken := events[byID["broken"]]
	if !broken.Start.IsZero() {
		t.Errorf("malformed start = %v, want zero time", broken.Start)
	}
}

func TestFetchEventsCalendarFailureAborts(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/calendar/v3/users/me/calendarList", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, map[string]interface{}{
			"items": []map[string]string{
				{"id": "ok", "summary": "Fine"},
				{"id": "bad", "summary": "Broken"},
			},
		})
	})
	mux.HandleFunc("/calendar/v3/calendars/ok/events", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, map[string]interface{}{"items": []map[string]interface{}{}})
	})
	mux.HandleFunc("/calendar/v3/calendars/bad/events", func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	})

	client, _ := newTestClient(t, mux)
	if _, err := client.FetchEvents(context.Background(), 2025, 6); err == nil {
		t.Fatal("a per-calendar failure must abort the snapshot, not truncate it")
	}
}

func TestFetchEventsAuthFailure(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/calendar/v3/users/me/calendarList", func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
	})

	client, _ := newTestClient(t, mux)
	if _, err := client.FetchEvents(context.Background(), 2025, 6); err == nil {
		t.Fatal("auth failure must surface as an error")
	}
}

func tasksMux(t *testing.T, tasks []map[string]interface{}) *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/tasks/v1/users/@me/lists", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, map[string]interface{}{
			"items": []map[string]string{
				{"id": "other-list", "title": "Groceries"},
				{"id": "chores-list", "title": "Chores"},
			},
		})
	})
	mux.HandleFunc("/tasks/v1/lists/chores-list/tasks", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet {
			if r.URL.Query().Get("showCompleted") != "true" || r.URL.Query().Get("showHidden") != "true" {
				t.Error("completed and hidden tasks must be requested")
			}
			if r.URL.Query().Get("dueMax") == "" {
				t.Error("dueMax horizon must be set")
			}
			writeJSON(w, map[string]interface{}{"items": tasks})
			return
		}
		// POST: create
		var body map[string]string
		json.NewDecoder(r.Body).Decode(&body)
		writeJSON(w, map[string]string{"id": "new-task", "title": body["title"]})
	})
	return mux
}

func TestFetchChores(t *testing.T) {
	farFuture := time.Now().UTC().Add(100 * time.Hour).Format(time.RFC3339)
	mux := tasksMux(t, []map[string]interface{}{
		{"id": "t1", "title": "Sam", "notes": "Dishes", "status": "needsAction"},
		{"id": "t2", "notes": "Vacuum", "status": "needsAction"},
		{"id": "t3", "title": "Alex", "notes": "Old", "status": "completed", "completed": farFuture},
	})

	client, _ := newTestClient(t, mux)
	chores, err := client.FetchChores(context.Background())
	if err != nil {
		t.Fatalf("FetchChores: %v", err)
	}

	if len(chores) != 2 {
		t.Fatalf("got %d chores, want 2 (t3 past the horizon filtered)", len(chores))
	}
	if chores[0].ID != "t1" || chores[0].AssignedTo != "Sam" || chores[0].Description != "Dishes" {
		t.Errorf("chore = %+v", chores[0])
	}
	if chores[1].AssignedTo != "Unassigned" {
		t.Errorf("missing title should default to Unassigned, got %q", chores[1].AssignedTo)
	}
}

func TestFetchChoresMissingListIsEmpty(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/tasks/v1/users/@me/lists", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, map[string]interface{}{
			"items": []map[string]string{{"id": "other", "title": "Groceries"}},
		})
	})

	client, _ := newTestClient(t, mux)
	chores, err := client.FetchChores(context.Background())
	if err != nil {
		t.Fatalf("missing list must not be an error, got %v", err)
	}
	if len(chores) != 0 {
		t.Errorf("got %d chores, want none", len(chores))
	}
}

func TestCreateChore(t *testing.T) {
	mux := tasksMux(t, nil)

	client, _ := newTestClient(t, mux)
	id, err := client.CreateChore(context.Background(), "Sam", "Dishes")
	if err != nil {
		t.Fatalf("CreateChore: %v", err)
	}
	if id != "new-task" {
		t.Errorf("id = %q, want the remote-assigned id", id)
	}
}

func TestUpdateChoreStatusRejectsInvisible(t *testing.T) {
	called := false
	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		called = true
		writeJSON(w, map[string]string{})
	})

	client, _ := newTestClient(t, mux)
	err := client.UpdateChoreStatus(context.Background(), "t1", entities.ChoreStatusInvisible)
	if err == nil {
		t.Fatal("invisible must be rejected before any remote call")
	}
	if called {
		t.Error("no request must reach the remote for invisible")
	}
}

func TestUpdateChoreStatus(t *testing.T) {
	var gotMethod, gotPath string
	var gotBody map[string]string
	mux := http.NewServeMux()
	mux.HandleFunc("/tasks/v1/users/@me/lists", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, map[string]interface{}{
			"items": []map[string]string{{"id": "chores-list", "title": "Chores"}},
		})
	})
	mux.HandleFunc("/tasks/v1/lists/chores-list/tasks/t1", func(w http.ResponseWriter, r *http.Request) {
		gotMethod = r.Method
		gotPath = r.URL.Path
		json.NewDecoder(r.Body).Decode(&gotBody)
		writeJSON(w, map[string]string{"id": "t1"})
	})

	client, _ := newTestClient(t, mux)
	if err := client.UpdateChoreStatus(context.Background(), "t1", entities.ChoreStatusCompleted); err != nil {
		t.Fatalf("UpdateChoreStatus: %v", err)
	}

	if gotMethod != http.MethodPatch {
		t.Errorf("method = %q, want PATCH", gotMethod)
	}
	if gotPath != "/tasks/v1/lists/chores-list/tasks/t1" {
		t.Errorf("path = %q", gotPath)
	}
	if gotBody["status"] != "completed" {
		t.Errorf("body = %v", gotBody)
	}
}
