package domain

import "strings"

// FieldID identifies one catalog field on an issue detail screen.
type FieldID string

// Field identifiers. The set is fixed; Key, Project, Reporter, Created, and
// Updated are read-only on every issue.
const (
	FieldKey         FieldID = "key"
	FieldProject     FieldID = "project"
	FieldReporter    FieldID = "reporter"
	FieldCreated     FieldID = "created"
	FieldUpdated     FieldID = "updated"
	FieldSummary     FieldID = "summary"
	FieldDescription FieldID = "description"
	FieldStatus      FieldID = "status"
	FieldPriority    FieldID = "priority"
	FieldAssignee    FieldID = "assignee"
	FieldLabels      FieldID = "labels"
	FieldLinks       FieldID = "links"
	FieldComments    FieldID = "comments"
)

// fieldIDs stores every known field in catalog order.
var fieldIDs = []FieldID{
	FieldKey, FieldProject, FieldReporter, FieldCreated, FieldUpdated,
	FieldSummary, FieldDescription, FieldStatus, FieldPriority,
	FieldAssignee, FieldLabels, FieldLinks, FieldComments,
}

// ParseFieldID normalizes raw input into a known FieldID.
func ParseFieldID(raw string) (FieldID, error) {
	id := FieldID(strings.ToLower(strings.TrimSpace(raw)))
	for _, known := range fieldIDs {
		if id == known {
			return known, nil
		}
	}
	return "", ErrUnknownField
}

// FieldIDs returns every known field in catalog order.
func FieldIDs() []FieldID {
	return append([]FieldID(nil), fieldIDs...)
}

// Label returns the display label for a field.
func (id FieldID) Label() string {
	switch id {
	case FieldKey:
		return "Key"
	case FieldProject:
		return "Project"
	case FieldReporter:
		return "Reporter"
	case FieldCreated:
		return "Created"
	case FieldUpdated:
		return "Updated"
	case FieldSummary:
		return "Summary"
	case FieldDescription:
		return "Description"
	case FieldStatus:
		return "Status"
	case FieldPriority:
		return "Priority"
	case FieldAssignee:
		return "Assignee"
	case FieldLabels:
		return "Labels"
	case FieldLinks:
		return "Links"
	case FieldComments:
		return "Comments"
	default:
		return string(id)
	}
}

// ReadOnly reports whether a field can never be edited by the client.
func (id FieldID) ReadOnly() bool {
	switch id {
	case FieldKey, FieldProject, FieldReporter, FieldCreated, FieldUpdated:
		return true
	default:
		return false
	}
}
