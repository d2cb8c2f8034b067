package domain

import (
	"slices"
	"strings"
	"time"
)

// Priority classifies issue urgency.
type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
	PriorityUrgent Priority = "urgent"
)

var validPriorities = []Priority{PriorityLow, PriorityMedium, PriorityHigh, PriorityUrgent}

// ParsePriority normalizes raw input into a known Priority.
func ParsePriority(raw string) (Priority, error) {
	p := Priority(strings.ToLower(strings.TrimSpace(raw)))
	if !slices.Contains(validPriorities, p) {
		return "", ErrInvalidPriority
	}
	return p, nil
}

// Priorities returns the known priorities in ascending urgency order.
func Priorities() []Priority {
	return append([]Priority(nil), validPriorities...)
}

// LinkKind classifies the relationship an issue link expresses.
type LinkKind string

const (
	LinkBlocks     LinkKind = "blocks"
	LinkBlockedBy  LinkKind = "blocked-by"
	LinkRelatesTo  LinkKind = "relates-to"
	LinkDuplicates LinkKind = "duplicates"
)

var validLinkKinds = []LinkKind{LinkBlocks, LinkBlockedBy, LinkRelatesTo, LinkDuplicates}

// ParseLinkKind normalizes raw input into a known LinkKind.
func ParseLinkKind(raw string) (LinkKind, error) {
	k := LinkKind(strings.ToLower(strings.TrimSpace(raw)))
	if !slices.Contains(validLinkKinds, k) {
		return "", ErrInvalidLinkKind
	}
	return k, nil
}

// Link references another issue from this one.
type Link struct {
	Kind      LinkKind
	TargetKey string
}

// Issue is one read-only snapshot of a tracked issue as fetched from the
// tracker. Field mutation goes through SetField so read-only fields and
// value normalization are enforced in one place.
type Issue struct {
	Key         string
	Project     string
	Reporter    string
	Summary     string
	Description string
	Status      string
	Priority    Priority
	Assignee    string
	Labels      []string
	Links       []Link
	Comments    []Comment
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// IssueInput carries raw values for constructing a validated Issue.
type IssueInput struct {
	Key         string
	Project     string
	Reporter    string
	Summary     string
	Description string
	Status      string
	Priority    Priority
	Assignee    string
	Labels      []string
	Links       []Link
	Comments    []Comment
}

// NewIssue validates and normalizes an issue snapshot.
func NewIssue(in IssueInput, now time.Time) (Issue, error) {
	in.Key = strings.ToUpper(strings.TrimSpace(in.Key))
	in.Project = strings.TrimSpace(in.Project)
	in.Summary = strings.TrimSpace(in.Summary)
	in.Status = strings.ToLower(strings.TrimSpace(in.Status))

	if in.Key == "" {
		return Issue{}, ErrInvalidKey
	}
	if in.Summary == "" {
		return Issue{}, ErrInvalidSummary
	}
	if in.Priority == "" {
		in.Priority = PriorityMedium
	}
	if !slices.Contains(validPriorities, in.Priority) {
		return Issue{}, ErrInvalidPriority
	}
	if in.Status == "" {
		in.Status = "open"
	}

	return Issue{
		Key:         in.Key,
		Project:     in.Project,
		Reporter:    strings.TrimSpace(in.Reporter),
		Summary:     in.Summary,
		Description: strings.TrimSpace(in.Description),
		Status:      in.Status,
		Priority:    in.Priority,
		Assignee:    strings.TrimSpace(in.Assignee),
		Labels:      NormalizeLabels(in.Labels),
		Links:       append([]Link(nil), in.Links...),
		Comments:    append([]Comment(nil), in.Comments...),
		CreatedAt:   now.UTC(),
		UpdatedAt:   now.UTC(),
	}, nil
}

// FieldValue renders the current value of one field the way inline editors
// are seeded with it. Collection fields render as display text.
func (i Issue) FieldValue(id FieldID) string {
	switch id {
	case FieldKey:
		return i.Key
	case FieldProject:
		return i.Project
	case FieldReporter:
		return i.Reporter
	case FieldCreated:
		return i.CreatedAt.Format(time.RFC3339)
	case FieldUpdated:
		return i.UpdatedAt.Format(time.RFC3339)
	case FieldSummary:
		return i.Summary
	case FieldDescription:
		return i.Description
	case FieldStatus:
		return i.Status
	case FieldPriority:
		return string(i.Priority)
	case FieldAssignee:
		return i.Assignee
	case FieldLabels:
		return strings.Join(i.Labels, ", ")
	case FieldLinks:
		parts := make([]string, 0, len(i.Links))
		for _, link := range i.Links {
			parts = append(parts, string(link.Kind)+" "+link.TargetKey)
		}
		return strings.Join(parts, ", ")
	case FieldComments:
		return ""
	default:
		return ""
	}
}

// SetField applies one committed scalar value to an editable field.
func (i *Issue) SetField(id FieldID, value string, now time.Time) error {
	if id.ReadOnly() {
		return ErrReadOnlyField
	}
	value = strings.TrimSpace(value)
	switch id {
	case FieldSummary:
		if value == "" {
			return ErrInvalidSummary
		}
		i.Summary = value
	case FieldDescription:
		i.Description = value
	case FieldStatus:
		if value == "" {
			return ErrInvalidStatus
		}
		i.Status = strings.ToLower(value)
	case FieldPriority:
		p, err := ParsePriority(value)
		if err != nil {
			return err
		}
		i.Priority = p
	case FieldAssignee:
		i.Assignee = value
	case FieldLabels:
		i.Labels = NormalizeLabels(strings.Split(value, ","))
	case FieldLinks, FieldComments:
		// Links and comments change through their own tracker operations,
		// never through a scalar field write.
		return ErrReadOnlyField
	default:
		return ErrUnknownField
	}
	i.UpdatedAt = now.UTC()
	return nil
}

// NormalizeLabels trims, lowercases, dedupes, and sorts label values.
func NormalizeLabels(labels []string) []string {
	out := make([]string, 0, len(labels))
	seen := map[string]struct{}{}
	for _, raw := range labels {
		label := strings.ToLower(strings.TrimSpace(raw))
		if label == "" {
			continue
		}
		if _, ok := seen[label]; ok {
			continue
		}
		seen[label] = struct{}{}
		out = append(out, label)
	}
	slices.Sort(out)
	return out
}
