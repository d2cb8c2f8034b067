package httptracker

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/hylla/pejl/internal/app"
	"github.com/hylla/pejl/internal/domain"
)

func testPayload(key string) issuePayload {
	now := time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)
	return issuePayload{
		Key:       key,
		Project:   "PEJL",
		Reporter:  "mika",
		Summary:   "Fix flaky sync",
		Status:    "open",
		Priority:  "high",
		Labels:    []string{"sync", "flaky"},
		CreatedAt: now.Add(-48 * time.Hour),
		UpdatedAt: now,
	}
}

func newTestClient(t *testing.T, handler http.Handler) (*Client, *httptest.Server) {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	client, err := New(server.URL, Options{Token: "tok-123"})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return client, server
}

func TestGetIssueDecodesSnapshot(t *testing.T) {
	var gotAuth string
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		if r.URL.Path != "/api/v1/issues/PEJL-7" {
			t.Errorf("path = %q", r.URL.Path)
		}
		json.NewEncoder(w).Encode(testPayload("PEJL-7"))
	}))

	issue, err := client.GetIssue(context.Background(), "PEJL-7")
	if err != nil {
		t.Fatalf("GetIssue() error = %v", err)
	}
	if issue.Key != "PEJL-7" || issue.Priority != domain.PriorityHigh {
		t.Fatalf("unexpected issue %+v", issue)
	}
	if gotAuth != "Bearer tok-123" {
		t.Fatalf("Authorization = %q", gotAuth)
	}
	if !issue.UpdatedAt.Equal(testPayload("PEJL-7").UpdatedAt) {
		t.Fatalf("UpdatedAt = %v, want wire timestamp", issue.UpdatedAt)
	}
}

func TestGetIssueMapsNotFound(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		json.NewEncoder(w).Encode(ErrorEnvelope{Error: APIError{
			Code:    "not_found",
			Message: "issue PEJL-404 not found",
		}})
	}))

	_, err := client.GetIssue(context.Background(), "PEJL-404")
	if !errors.Is(err, app.ErrNotFound) {
		t.Fatalf("GetIssue() error = %v, want ErrNotFound", err)
	}
}

func TestGetIssueMapsGatewayErrorsToOffline(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))

	_, err := client.GetIssue(context.Background(), "PEJL-7")
	if !errors.Is(err, app.ErrOffline) {
		t.Fatalf("GetIssue() error = %v, want ErrOffline", err)
	}
}

func TestConnectionRefusedMapsToOffline(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	addr := server.URL
	server.Close()

	client, err := New(addr, Options{Timeout: time.Second})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	_, err = client.GetIssue(context.Background(), "PEJL-7")
	if !errors.Is(err, app.ErrOffline) {
		t.Fatalf("GetIssue() error = %v, want ErrOffline", err)
	}
}

func TestUpdateFieldSendsPatch(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPatch {
			t.Errorf("method = %q", r.Method)
		}
		if r.URL.Path != "/api/v1/issues/PEJL-7/fields" {
			t.Errorf("path = %q", r.URL.Path)
		}
		var body map[string]string
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Errorf("decode body: %v", err)
		}
		if body["field"] != "priority" || body["value"] != "urgent" {
			t.Errorf("body = %v", body)
		}
		payload := testPayload("PEJL-7")
		payload.Priority = "urgent"
		json.NewEncoder(w).Encode(payload)
	}))

	issue, err := client.UpdateField(context.Background(), "PEJL-7", domain.FieldPriority, "urgent")
	if err != nil {
		t.Fatalf("UpdateField() error = %v", err)
	}
	if issue.Priority != domain.PriorityUrgent {
		t.Fatalf("Priority = %q, want urgent", issue.Priority)
	}
}

func TestUpdateFieldSurfacesRejection(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
		json.NewEncoder(w).Encode(ErrorEnvelope{Error: APIError{
			Code:    "invalid_value",
			Message: "priority must be one of low, medium, high, urgent",
		}})
	}))

	_, err := client.UpdateField(context.Background(), "PEJL-7", domain.FieldPriority, "meteoric")
	if err == nil {
		t.Fatal("UpdateField() error = nil, want rejection")
	}
	if errors.Is(err, app.ErrOffline) || errors.Is(err, app.ErrNotFound) {
		t.Fatalf("UpdateField() error = %v, want plain rejection", err)
	}
}

func TestSearchIssuesPassesQueryAndLimit(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("q"); got != "sync" {
			t.Errorf("q = %q", got)
		}
		if got := r.URL.Query().Get("limit"); got != "5" {
			t.Errorf("limit = %q", got)
		}
		json.NewEncoder(w).Encode(map[string]any{
			"issues": []issuePayload{testPayload("PEJL-7"), testPayload("PEJL-9")},
		})
	}))

	issues, err := client.SearchIssues(context.Background(), "sync", 5)
	if err != nil {
		t.Fatalf("SearchIssues() error = %v", err)
	}
	if len(issues) != 2 {
		t.Fatalf("issues = %d, want 2", len(issues))
	}
}

func TestFieldOptions(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/v1/fields/status/options" {
			t.Errorf("path = %q", r.URL.Path)
		}
		json.NewEncoder(w).Encode(map[string]any{
			"options": []string{"open", "in-progress", "done"},
		})
	}))

	options, err := client.FieldOptions(context.Background(), domain.FieldStatus)
	if err != nil {
		t.Fatalf("FieldOptions() error = %v", err)
	}
	if len(options) != 3 || options[1] != "in-progress" {
		t.Fatalf("options = %v", options)
	}
}

func TestAddCommentPostsBody(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("method = %q", r.Method)
		}
		var body map[string]string
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Errorf("decode body: %v", err)
		}
		if body["body"] != "looks fixed on main" {
			t.Errorf("body = %v", body)
		}
		payload := testPayload("PEJL-7")
		payload.Comments = []commentPayload{{
			ID: "c-1", Author: "mika", Body: body["body"], CreatedAt: payload.UpdatedAt,
		}}
		json.NewEncoder(w).Encode(payload)
	}))

	issue, err := client.AddComment(context.Background(), "PEJL-7", "looks fixed on main")
	if err != nil {
		t.Fatalf("AddComment() error = %v", err)
	}
	if len(issue.Comments) != 1 {
		t.Fatalf("comments = %d, want 1", len(issue.Comments))
	}
}

func TestNewRequiresBaseURL(t *testing.T) {
	if _, err := New("   ", Options{}); err == nil {
		t.Fatal("New() error = nil, want error")
	}
}
