package app

import (
	"context"
	"time"

	"github.com/hylla/pejl/internal/domain"
)

// Tracker is the remote issue tracker. All fallible persistence — network
// submission, validation, authorization — happens behind this port.
type Tracker interface {
	GetIssue(context.Context, string) (domain.Issue, error)
	SearchIssues(context.Context, string, int) ([]domain.Issue, error)
	UpdateField(context.Context, string, domain.FieldID, string) (domain.Issue, error)
	FieldOptions(context.Context, domain.FieldID) ([]string, error)
	AddComment(context.Context, string, string) (domain.Issue, error)
}

// Cache is the local snapshot store used for offline reads and recency.
type Cache interface {
	GetIssue(context.Context, string) (domain.Issue, time.Time, error)
	PutIssue(context.Context, domain.Issue, time.Time) error
	RecentIssues(context.Context, int) ([]domain.Issue, error)

	GetFieldOptions(context.Context, domain.FieldID) ([]string, time.Time, error)
	PutFieldOptions(context.Context, domain.FieldID, []string, time.Time) error

	AppendUpdateRecord(context.Context, UpdateRecord) error
	ListUpdateRecords(context.Context, string, int) ([]UpdateRecord, error)
}

// UpdateRecord is one locally journaled field submission.
type UpdateRecord struct {
	ID          string
	IssueKey    string
	Field       domain.FieldID
	OldValue    string
	NewValue    string
	SubmittedAt time.Time
}
