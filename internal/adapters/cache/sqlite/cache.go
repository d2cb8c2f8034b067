// Package sqlite stores issue snapshots, field options, and the local
// update journal in a single-file database for offline reads.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/hylla/pejl/internal/app"
	"github.com/hylla/pejl/internal/domain"
	_ "modernc.org/sqlite"
)

// driverName defines a package constant value.
const driverName = "sqlite"

// Cache represents the local snapshot store backed by sqlite.
type Cache struct {
	db *sql.DB
}

// Open opens the cache file, creating parent directories as needed.
func Open(path string) (*Cache, error) {
	if strings.TrimSpace(path) == "" {
		return nil, errors.New("sqlite path is required")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create sqlite dir: %w", err)
	}
	db, err := sql.Open(driverName, path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	cache := &Cache{db: db}
	if err := cache.migrate(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return cache, nil
}

// OpenInMemory opens an in-memory cache, mainly for tests.
func OpenInMemory() (*Cache, error) {
	db, err := sql.Open(driverName, "file::memory:?cache=shared")
	if err != nil {
		return nil, fmt.Errorf("open sqlite memory: %w", err)
	}
	cache := &Cache{db: db}
	if err := cache.migrate(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return cache, nil
}

// Close closes the underlying database.
func (c *Cache) Close() error {
	return c.db.Close()
}

// migrate handles migrate.
func (c *Cache) migrate(ctx context.Context) error {
	stmts := []string{
		`PRAGMA foreign_keys = ON;`,
		`CREATE TABLE IF NOT EXISTS issues (
			key TEXT PRIMARY KEY,
			snapshot_json TEXT NOT NULL,
			fetched_at TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS field_options (
			field TEXT PRIMARY KEY,
			options_json TEXT NOT NULL,
			fetched_at TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS update_log (
			id TEXT PRIMARY KEY,
			issue_key TEXT NOT NULL,
			field TEXT NOT NULL,
			old_value TEXT NOT NULL DEFAULT '',
			new_value TEXT NOT NULL DEFAULT '',
			submitted_at TEXT NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_issues_fetched_at ON issues(fetched_at DESC);`,
		`CREATE INDEX IF NOT EXISTS idx_update_log_issue_submitted ON update_log(issue_key, submitted_at DESC, id DESC);`,
	}
	for _, stmt := range stmts {
		if _, err := c.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migrate sqlite: %w", err)
		}
	}
	return nil
}

// issueSnapshot is the stored representation of one issue.
type issueSnapshot struct {
	Key         string            `json:"key"`
	Project     string            `json:"project"`
	Reporter    string            `json:"reporter"`
	Summary     string            `json:"summary"`
	Description string            `json:"description,omitempty"`
	Status      string            `json:"status"`
	Priority    string            `json:"priority"`
	Assignee    string            `json:"assignee,omitempty"`
	Labels      []string          `json:"labels,omitempty"`
	Links       []linkSnapshot    `json:"links,omitempty"`
	Comments    []commentSnapshot `json:"comments,omitempty"`
	CreatedAt   time.Time         `json:"created_at"`
	UpdatedAt   time.Time         `json:"updated_at"`
}

type linkSnapshot struct {
	Kind      string `json:"kind"`
	TargetKey string `json:"target_key"`
}

type commentSnapshot struct {
	ID        string    `json:"id"`
	Author    string    `json:"author"`
	Body      string    `json:"body"`
	CreatedAt time.Time `json:"created_at"`
}

// PutIssue upserts one snapshot keyed by issue key.
func (c *Cache) PutIssue(ctx context.Context, issue domain.Issue, fetchedAt time.Time) error {
	snapshotJSON, err := json.Marshal(toSnapshot(issue))
	if err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}
	_, err = c.db.ExecContext(ctx, `
		INSERT INTO issues(key, snapshot_json, fetched_at)
		VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET snapshot_json = excluded.snapshot_json, fetched_at = excluded.fetched_at
	`, issue.Key, string(snapshotJSON), ts(fetchedAt))
	if err != nil {
		return fmt.Errorf("upsert snapshot: %w", err)
	}
	return nil
}

// GetIssue returns one cached snapshot with the time it was fetched.
func (c *Cache) GetIssue(ctx context.Context, key string) (domain.Issue, time.Time, error) {
	row := c.db.QueryRowContext(ctx, `
		SELECT snapshot_json, fetched_at
		FROM issues
		WHERE key = ?
	`, strings.ToUpper(strings.TrimSpace(key)))

	var (
		snapshotRaw string
		fetchedRaw  string
	)
	if err := row.Scan(&snapshotRaw, &fetchedRaw); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Issue{}, time.Time{}, app.ErrNotFound
		}
		return domain.Issue{}, time.Time{}, err
	}
	issue, err := decodeSnapshot(snapshotRaw)
	if err != nil {
		return domain.Issue{}, time.Time{}, err
	}
	return issue, parseTS(fetchedRaw), nil
}

// RecentIssues lists cached snapshots, most recently fetched first.
func (c *Cache) RecentIssues(ctx context.Context, limit int) ([]domain.Issue, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := c.db.QueryContext(ctx, `
		SELECT snapshot_json
		FROM issues
		ORDER BY fetched_at DESC, key ASC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []domain.Issue{}
	for rows.Next() {
		var snapshotRaw string
		if err := rows.Scan(&snapshotRaw); err != nil {
			return nil, err
		}
		issue, err := decodeSnapshot(snapshotRaw)
		if err != nil {
			return nil, err
		}
		out = append(out, issue)
	}
	return out, rows.Err()
}

// PutFieldOptions upserts the allowed values for one choice field.
func (c *Cache) PutFieldOptions(ctx context.Context, field domain.FieldID, options []string, fetchedAt time.Time) error {
	optionsJSON, err := json.Marshal(options)
	if err != nil {
		return fmt.Errorf("encode options: %w", err)
	}
	_, err = c.db.ExecContext(ctx, `
		INSERT INTO field_options(field, options_json, fetched_at)
		VALUES (?, ?, ?)
		ON CONFLICT(field) DO UPDATE SET options_json = excluded.options_json, fetched_at = excluded.fetched_at
	`, string(field), string(optionsJSON), ts(fetchedAt))
	if err != nil {
		return fmt.Errorf("upsert options: %w", err)
	}
	return nil
}

// GetFieldOptions returns the cached values for one choice field.
func (c *Cache) GetFieldOptions(ctx context.Context, field domain.FieldID) ([]string, time.Time, error) {
	row := c.db.QueryRowContext(ctx, `
		SELECT options_json, fetched_at
		FROM field_options
		WHERE field = ?
	`, string(field))

	var (
		optionsRaw string
		fetchedRaw string
	)
	if err := row.Scan(&optionsRaw, &fetchedRaw); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, time.Time{}, app.ErrNotFound
		}
		return nil, time.Time{}, err
	}
	var options []string
	if err := json.Unmarshal([]byte(optionsRaw), &options); err != nil {
		return nil, time.Time{}, fmt.Errorf("decode options_json: %w", err)
	}
	return options, parseTS(fetchedRaw), nil
}

// AppendUpdateRecord journals one submitted field update.
func (c *Cache) AppendUpdateRecord(ctx context.Context, record app.UpdateRecord) error {
	if strings.TrimSpace(record.ID) == "" {
		return errors.New("update record id is required")
	}
	_, err := c.db.ExecContext(ctx, `
		INSERT INTO update_log(id, issue_key, field, old_value, new_value, submitted_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, record.ID, record.IssueKey, string(record.Field), record.OldValue, record.NewValue, ts(record.SubmittedAt))
	if err != nil {
		return fmt.Errorf("insert update record: %w", err)
	}
	return nil
}

// ListUpdateRecords returns the journal for one issue, newest first.
func (c *Cache) ListUpdateRecords(ctx context.Context, issueKey string, limit int) ([]app.UpdateRecord, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := c.db.QueryContext(ctx, `
		SELECT id, issue_key, field, old_value, new_value, submitted_at
		FROM update_log
		WHERE issue_key = ?
		ORDER BY submitted_at DESC, id DESC
		LIMIT ?
	`, strings.ToUpper(strings.TrimSpace(issueKey)), limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []app.UpdateRecord{}
	for rows.Next() {
		var (
			record       app.UpdateRecord
			fieldRaw     string
			submittedRaw string
		)
		if err := rows.Scan(&record.ID, &record.IssueKey, &fieldRaw, &record.OldValue, &record.NewValue, &submittedRaw); err != nil {
			return nil, err
		}
		record.Field = domain.FieldID(fieldRaw)
		record.SubmittedAt = parseTS(submittedRaw)
		out = append(out, record)
	}
	return out, rows.Err()
}

// toSnapshot converts a domain issue into its stored form.
func toSnapshot(issue domain.Issue) issueSnapshot {
	links := make([]linkSnapshot, 0, len(issue.Links))
	for _, l := range issue.Links {
		links = append(links, linkSnapshot{Kind: string(l.Kind), TargetKey: l.TargetKey})
	}
	comments := make([]commentSnapshot, 0, len(issue.Comments))
	for _, comment := range issue.Comments {
		comments = append(comments, commentSnapshot{
			ID:        comment.ID,
			Author:    comment.Author,
			Body:      comment.Body,
			CreatedAt: comment.CreatedAt.UTC(),
		})
	}
	return issueSnapshot{
		Key:         issue.Key,
		Project:     issue.Project,
		Reporter:    issue.Reporter,
		Summary:     issue.Summary,
		Description: issue.Description,
		Status:      issue.Status,
		Priority:    string(issue.Priority),
		Assignee:    issue.Assignee,
		Labels:      issue.Labels,
		Links:       links,
		Comments:    comments,
		CreatedAt:   issue.CreatedAt.UTC(),
		UpdatedAt:   issue.UpdatedAt.UTC(),
	}
}

// decodeSnapshot parses one stored snapshot back into a domain issue.
func decodeSnapshot(raw string) (domain.Issue, error) {
	var snapshot issueSnapshot
	if err := json.Unmarshal([]byte(raw), &snapshot); err != nil {
		return domain.Issue{}, fmt.Errorf("decode snapshot_json: %w", err)
	}
	links := make([]domain.Link, 0, len(snapshot.Links))
	for _, l := range snapshot.Links {
		kind, err := domain.ParseLinkKind(l.Kind)
		if err != nil {
			return domain.Issue{}, fmt.Errorf("decode snapshot_json link: %w", err)
		}
		links = append(links, domain.Link{Kind: kind, TargetKey: l.TargetKey})
	}
	comments := make([]domain.Comment, 0, len(snapshot.Comments))
	for _, comment := range snapshot.Comments {
		comments = append(comments, domain.Comment{
			ID:        comment.ID,
			Author:    comment.Author,
			Body:      comment.Body,
			CreatedAt: comment.CreatedAt,
		})
	}
	issue, err := domain.NewIssue(domain.IssueInput{
		Key:         snapshot.Key,
		Project:     snapshot.Project,
		Reporter:    snapshot.Reporter,
		Summary:     snapshot.Summary,
		Description: snapshot.Description,
		Status:      snapshot.Status,
		Priority:    domain.Priority(snapshot.Priority),
		Assignee:    snapshot.Assignee,
		Labels:      snapshot.Labels,
		Links:       links,
		Comments:    comments,
	}, snapshot.CreatedAt)
	if err != nil {
		return domain.Issue{}, fmt.Errorf("decode snapshot_json: %w", err)
	}
	issue.CreatedAt = snapshot.CreatedAt.UTC()
	issue.UpdatedAt = snapshot.UpdatedAt.UTC()
	return issue, nil
}

// ts handles ts.
func ts(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

// parseTS parses input into a normalized form.
func parseTS(v string) time.Time {
	ts, err := time.Parse(time.RFC3339Nano, v)
	if err != nil {
		return time.Time{}
	}
	return ts.UTC()
}
