package sqlite

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/hylla/pejl/internal/app"
	"github.com/hylla/pejl/internal/domain"
	_ "modernc.org/sqlite"
)

func openTestCache(t *testing.T) *Cache {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "pejl.db")
	cache, err := Open(dbPath)
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	t.Cleanup(func() {
		_ = cache.Close()
	})
	return cache
}

func testIssue(t *testing.T, key, summary string) domain.Issue {
	t.Helper()
	now := time.Date(2026, 2, 21, 12, 0, 0, 0, time.UTC)
	issue, err := domain.NewIssue(domain.IssueInput{
		Key:      key,
		Project:  "PEJL",
		Reporter: "mika",
		Summary:  summary,
		Status:   "open",
		Priority: domain.PriorityHigh,
		Labels:   []string{"sync", "flaky"},
		Links:    []domain.Link{{Kind: domain.LinkBlocks, TargetKey: "PEJL-2"}},
	}, now)
	if err != nil {
		t.Fatalf("NewIssue() error = %v", err)
	}
	return issue
}

func TestCache_IssueRoundTrip(t *testing.T) {
	ctx := context.Background()
	cache := openTestCache(t)

	issue := testIssue(t, "PEJL-7", "Fix flaky sync")
	fetchedAt := time.Date(2026, 2, 21, 13, 0, 0, 0, time.UTC)
	if err := cache.PutIssue(ctx, issue, fetchedAt); err != nil {
		t.Fatalf("PutIssue() error = %v", err)
	}

	loaded, gotFetched, err := cache.GetIssue(ctx, "pejl-7")
	if err != nil {
		t.Fatalf("GetIssue() error = %v", err)
	}
	if loaded.Summary != "Fix flaky sync" || loaded.Priority != domain.PriorityHigh {
		t.Fatalf("unexpected issue %+v", loaded)
	}
	if len(loaded.Labels) != 2 || len(loaded.Links) != 1 {
		t.Fatalf("collections lost: labels=%v links=%v", loaded.Labels, loaded.Links)
	}
	if !gotFetched.Equal(fetchedAt) {
		t.Fatalf("fetched_at = %v, want %v", gotFetched, fetchedAt)
	}
}

func TestCache_PutIssueOverwrites(t *testing.T) {
	ctx := context.Background()
	cache := openTestCache(t)

	first := testIssue(t, "PEJL-7", "Fix flaky sync")
	if err := cache.PutIssue(ctx, first, time.Now()); err != nil {
		t.Fatalf("PutIssue() error = %v", err)
	}
	second := testIssue(t, "PEJL-7", "Fix flaky sync for real")
	if err := cache.PutIssue(ctx, second, time.Now()); err != nil {
		t.Fatalf("PutIssue() error = %v", err)
	}

	loaded, _, err := cache.GetIssue(ctx, "PEJL-7")
	if err != nil {
		t.Fatalf("GetIssue() error = %v", err)
	}
	if loaded.Summary != "Fix flaky sync for real" {
		t.Fatalf("summary = %q, want overwrite", loaded.Summary)
	}
}

func TestCache_GetIssueMissing(t *testing.T) {
	cache := openTestCache(t)
	_, _, err := cache.GetIssue(context.Background(), "PEJL-404")
	if !errors.Is(err, app.ErrNotFound) {
		t.Fatalf("GetIssue() error = %v, want ErrNotFound", err)
	}
}

func TestCache_RecentIssuesOrderedByFetchTime(t *testing.T) {
	ctx := context.Background()
	cache := openTestCache(t)

	base := time.Date(2026, 2, 21, 12, 0, 0, 0, time.UTC)
	if err := cache.PutIssue(ctx, testIssue(t, "PEJL-1", "Oldest"), base); err != nil {
		t.Fatalf("PutIssue() error = %v", err)
	}
	if err := cache.PutIssue(ctx, testIssue(t, "PEJL-2", "Newest"), base.Add(time.Hour)); err != nil {
		t.Fatalf("PutIssue() error = %v", err)
	}
	if err := cache.PutIssue(ctx, testIssue(t, "PEJL-3", "Middle"), base.Add(30*time.Minute)); err != nil {
		t.Fatalf("PutIssue() error = %v", err)
	}

	issues, err := cache.RecentIssues(ctx, 2)
	if err != nil {
		t.Fatalf("RecentIssues() error = %v", err)
	}
	if len(issues) != 2 {
		t.Fatalf("expected 2 issues, got %d", len(issues))
	}
	if issues[0].Key != "PEJL-2" || issues[1].Key != "PEJL-3" {
		t.Fatalf("unexpected order: %s, %s", issues[0].Key, issues[1].Key)
	}
}

func TestCache_FieldOptionsRoundTrip(t *testing.T) {
	ctx := context.Background()
	cache := openTestCache(t)

	fetchedAt := time.Date(2026, 2, 21, 12, 0, 0, 0, time.UTC)
	if err := cache.PutFieldOptions(ctx, domain.FieldStatus, []string{"open", "done"}, fetchedAt); err != nil {
		t.Fatalf("PutFieldOptions() error = %v", err)
	}

	options, gotFetched, err := cache.GetFieldOptions(ctx, domain.FieldStatus)
	if err != nil {
		t.Fatalf("GetFieldOptions() error = %v", err)
	}
	if len(options) != 2 || options[0] != "open" {
		t.Fatalf("options = %v", options)
	}
	if !gotFetched.Equal(fetchedAt) {
		t.Fatalf("fetched_at = %v, want %v", gotFetched, fetchedAt)
	}

	if _, _, err := cache.GetFieldOptions(ctx, domain.FieldAssignee); !errors.Is(err, app.ErrNotFound) {
		t.Fatalf("GetFieldOptions() error = %v, want ErrNotFound", err)
	}
}

func TestCache_UpdateLogRoundTrip(t *testing.T) {
	ctx := context.Background()
	cache := openTestCache(t)

	base := time.Date(2026, 2, 21, 12, 0, 0, 0, time.UTC)
	records := []app.UpdateRecord{
		{ID: "r1", IssueKey: "PEJL-7", Field: domain.FieldStatus, OldValue: "open", NewValue: "done", SubmittedAt: base},
		{ID: "r2", IssueKey: "PEJL-7", Field: domain.FieldPriority, OldValue: "high", NewValue: "urgent", SubmittedAt: base.Add(time.Minute)},
		{ID: "r3", IssueKey: "PEJL-9", Field: domain.FieldSummary, OldValue: "a", NewValue: "b", SubmittedAt: base},
	}
	for _, record := range records {
		if err := cache.AppendUpdateRecord(ctx, record); err != nil {
			t.Fatalf("AppendUpdateRecord(%s) error = %v", record.ID, err)
		}
	}

	got, err := cache.ListUpdateRecords(ctx, "PEJL-7", 10)
	if err != nil {
		t.Fatalf("ListUpdateRecords() error = %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 records, got %d", len(got))
	}
	if got[0].ID != "r2" {
		t.Fatalf("newest record = %s, want r2", got[0].ID)
	}
	if got[1].Field != domain.FieldStatus || got[1].NewValue != "done" {
		t.Fatalf("unexpected record %+v", got[1])
	}
}

func TestCache_AppendUpdateRecordRequiresID(t *testing.T) {
	cache := openTestCache(t)
	err := cache.AppendUpdateRecord(context.Background(), app.UpdateRecord{IssueKey: "PEJL-7"})
	if err == nil {
		t.Fatal("AppendUpdateRecord() error = nil, want error")
	}
}
