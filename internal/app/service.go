package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/hylla/pejl/internal/domain"
)

// SnapshotSource reports where a loaded issue snapshot came from.
type SnapshotSource string

const (
	SourceTracker SnapshotSource = "tracker"
	SourceCache   SnapshotSource = "cache"
)

// LoadedIssue pairs one snapshot with its provenance.
type LoadedIssue struct {
	Issue     domain.Issue
	Source    SnapshotSource
	FetchedAt time.Time
}

// ServiceConfig holds configuration for the service.
type ServiceConfig struct {
	// OptionsTTL bounds how long cached field option lists stay fresh.
	OptionsTTL time.Duration
	// RecentLimit caps the issue switcher list.
	RecentLimit int
}

// IDGenerator returns unique identifiers for update records.
type IDGenerator func() string

// Clock returns the current time.
type Clock func() time.Time

// Service orchestrates the tracker client and the local cache for the TUI
// and the MCP surface. It owns no editor state; the field-edit core hands
// it committed values and it reports outcomes back.
type Service struct {
	tracker     Tracker
	cache       Cache
	idGen       IDGenerator
	clock       Clock
	optionsTTL  time.Duration
	recentLimit int
}

// NewService constructs the application service.
func NewService(tracker Tracker, cache Cache, idGen IDGenerator, clock Clock, cfg ServiceConfig) *Service {
	if idGen == nil {
		idGen = func() string { return "" }
	}
	if clock == nil {
		clock = time.Now
	}
	if cfg.OptionsTTL <= 0 {
		cfg.OptionsTTL = 15 * time.Minute
	}
	if cfg.RecentLimit <= 0 {
		cfg.RecentLimit = 20
	}
	return &Service{
		tracker:     tracker,
		cache:       cache,
		idGen:       idGen,
		clock:       clock,
		optionsTTL:  cfg.OptionsTTL,
		recentLimit: cfg.RecentLimit,
	}
}

// LoadIssue fetches one snapshot from the tracker, falling back to the
// cache when the tracker is unreachable. Fresh snapshots are cached.
func (s *Service) LoadIssue(ctx context.Context, key string) (LoadedIssue, error) {
	issue, err := s.tracker.GetIssue(ctx, key)
	switch {
	case err == nil:
		now := s.clock().UTC()
		if s.cache != nil {
			if cacheErr := s.cache.PutIssue(ctx, issue, now); cacheErr != nil {
				return LoadedIssue{}, fmt.Errorf("cache snapshot %s: %w", issue.Key, cacheErr)
			}
		}
		return LoadedIssue{Issue: issue, Source: SourceTracker, FetchedAt: now}, nil
	case errors.Is(err, ErrNotFound):
		return LoadedIssue{}, err
	case s.cache != nil:
		cached, fetchedAt, cacheErr := s.cache.GetIssue(ctx, key)
		if cacheErr != nil {
			return LoadedIssue{}, fmt.Errorf("load issue %s: %w", key, err)
		}
		return LoadedIssue{Issue: cached, Source: SourceCache, FetchedAt: fetchedAt}, nil
	default:
		return LoadedIssue{}, fmt.Errorf("load issue %s: %w", key, err)
	}
}

// SubmitFieldUpdate validates one committed value against the snapshot,
// submits it to the tracker, refreshes the cache, and journals the update.
// The returned issue is the tracker's post-update snapshot.
func (s *Service) SubmitFieldUpdate(ctx context.Context, issue domain.Issue, field domain.FieldID, value string) (domain.Issue, error) {
	now := s.clock().UTC()
	oldValue := issue.FieldValue(field)

	// Validate locally first so an obviously bad value never travels.
	staged := issue
	if err := staged.SetField(field, value, now); err != nil {
		return domain.Issue{}, err
	}

	updated, err := s.tracker.UpdateField(ctx, issue.Key, field, value)
	if err != nil {
		return domain.Issue{}, fmt.Errorf("update %s.%s: %w", issue.Key, field, err)
	}
	if s.cache != nil {
		if err := s.cache.PutIssue(ctx, updated, now); err != nil {
			return domain.Issue{}, fmt.Errorf("cache snapshot %s: %w", updated.Key, err)
		}
		record := UpdateRecord{
			ID:          s.idGen(),
			IssueKey:    updated.Key,
			Field:       field,
			OldValue:    oldValue,
			NewValue:    updated.FieldValue(field),
			SubmittedAt: now,
		}
		if err := s.cache.AppendUpdateRecord(ctx, record); err != nil {
			return domain.Issue{}, fmt.Errorf("journal update %s.%s: %w", updated.Key, field, err)
		}
	}
	return updated, nil
}

// FieldOptions returns picker options for a modal-choice field, preferring
// a fresh cache entry and falling back to it entirely when offline.
func (s *Service) FieldOptions(ctx context.Context, field domain.FieldID) ([]string, error) {
	now := s.clock().UTC()
	if s.cache != nil {
		options, fetchedAt, err := s.cache.GetFieldOptions(ctx, field)
		if err == nil && now.Sub(fetchedAt) < s.optionsTTL {
			return options, nil
		}
	}
	options, err := s.tracker.FieldOptions(ctx, field)
	if err != nil {
		if s.cache != nil {
			if stale, _, cacheErr := s.cache.GetFieldOptions(ctx, field); cacheErr == nil {
				return stale, nil
			}
		}
		return nil, fmt.Errorf("field options %s: %w", field, err)
	}
	if s.cache != nil {
		if err := s.cache.PutFieldOptions(ctx, field, options, now); err != nil {
			return nil, fmt.Errorf("cache options %s: %w", field, err)
		}
	}
	return options, nil
}

// AddComment posts one comment and caches the refreshed snapshot.
func (s *Service) AddComment(ctx context.Context, issue domain.Issue, body string) (domain.Issue, error) {
	if _, err := domain.NewComment(domain.CommentInput{ID: "pending", Author: "local", Body: body}, s.clock()); err != nil {
		return domain.Issue{}, err
	}
	updated, err := s.tracker.AddComment(ctx, issue.Key, body)
	if err != nil {
		return domain.Issue{}, fmt.Errorf("comment on %s: %w", issue.Key, err)
	}
	if s.cache != nil {
		if err := s.cache.PutIssue(ctx, updated, s.clock().UTC()); err != nil {
			return domain.Issue{}, fmt.Errorf("cache snapshot %s: %w", updated.Key, err)
		}
	}
	return updated, nil
}

// SearchIssues queries the tracker, falling back to cached recents offline.
func (s *Service) SearchIssues(ctx context.Context, query string) ([]domain.Issue, error) {
	issues, err := s.tracker.SearchIssues(ctx, query, s.recentLimit)
	if err == nil {
		return issues, nil
	}
	if s.cache != nil {
		if cached, cacheErr := s.cache.RecentIssues(ctx, s.recentLimit); cacheErr == nil {
			return cached, nil
		}
	}
	return nil, fmt.Errorf("search issues: %w", err)
}

// RecentIssues lists locally cached snapshots, newest first.
func (s *Service) RecentIssues(ctx context.Context) ([]domain.Issue, error) {
	if s.cache == nil {
		return nil, nil
	}
	return s.cache.RecentIssues(ctx, s.recentLimit)
}

// ListUpdateRecords returns the local submission journal for one issue.
func (s *Service) ListUpdateRecords(ctx context.Context, issueKey string, limit int) ([]UpdateRecord, error) {
	if s.cache == nil {
		return nil, nil
	}
	if limit <= 0 {
		limit = 50
	}
	return s.cache.ListUpdateRecords(ctx, issueKey, limit)
}
