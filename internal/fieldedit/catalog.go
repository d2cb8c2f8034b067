// Package fieldedit implements the field-level editing core of the issue
// detail screen: a cursor over a jagged grid of fields, vim-style navigation
// that skips read-only cells and keeps column memory across rows of
// differing width, and dispatch of the right editing interaction for the
// focused field.
package fieldedit

import (
	"fmt"

	"github.com/hylla/pejl/internal/domain"
)

// EditKind classifies the editing interaction a field uses.
type EditKind int

const (
	// EditKindNone marks read-only cells that occupy layout space only.
	EditKindNone EditKind = iota
	// EditKindInline is a single-line text editor owned by this package.
	EditKindInline
	// EditKindMultiline is a multi-line text editor owned by this package.
	EditKindMultiline
	// EditKindChoice is a modal option picker owned by the host.
	EditKindChoice
	// EditKindPanel is a side panel owned by the host.
	EditKindPanel
)

// String returns the kind name for status lines and errors.
func (k EditKind) String() string {
	switch k {
	case EditKindNone:
		return "none"
	case EditKindInline:
		return "inline"
	case EditKindMultiline:
		return "multiline"
	case EditKindChoice:
		return "choice"
	case EditKindPanel:
		return "panel"
	default:
		return fmt.Sprintf("editkind(%d)", int(k))
	}
}

// FieldSpec is one immutable catalog entry: where a field sits on the detail
// screen and how it is edited.
type FieldSpec struct {
	ID       domain.FieldID
	Label    string
	Row      int
	Column   int
	Span     int
	Editable bool
	Kind     EditKind
}

// Catalog arranges field specs into ordered jagged rows. Rows may have
// different lengths; there are no sentinel cells for absent columns.
type Catalog struct {
	rows [][]FieldSpec
}

// NewCatalog validates row/column coordinates and the editability/kind
// pairing, so every grid built from the catalog starts consistent.
func NewCatalog(rows [][]FieldSpec) (Catalog, error) {
	seen := map[domain.FieldID]struct{}{}
	for rowIdx, row := range rows {
		for colIdx, spec := range row {
			if spec.ID == "" {
				return Catalog{}, fmt.Errorf("catalog row %d col %d: missing field id", rowIdx, colIdx)
			}
			if _, ok := seen[spec.ID]; ok {
				return Catalog{}, fmt.Errorf("catalog field %q appears twice", spec.ID)
			}
			seen[spec.ID] = struct{}{}
			if spec.Row != rowIdx || spec.Column != colIdx {
				return Catalog{}, fmt.Errorf("catalog field %q declares position %d/%d but sits at %d/%d", spec.ID, spec.Row, spec.Column, rowIdx, colIdx)
			}
			if spec.Editable == (spec.Kind == EditKindNone) {
				return Catalog{}, fmt.Errorf("catalog field %q: editable flag and edit kind %s disagree", spec.ID, spec.Kind)
			}
			if spec.Editable && spec.ID.ReadOnly() {
				return Catalog{}, fmt.Errorf("catalog field %q is read-only on every issue", spec.ID)
			}
		}
	}
	return Catalog{rows: rows}, nil
}

// MustCatalog panics on an invalid layout; for static package-level catalogs.
func MustCatalog(rows [][]FieldSpec) Catalog {
	catalog, err := NewCatalog(rows)
	if err != nil {
		panic(err)
	}
	return catalog
}

// Rows returns the catalog layout.
func (c Catalog) Rows() [][]FieldSpec {
	return c.rows
}

// spec builds one catalog entry with the label derived from the field.
func spec(id domain.FieldID, row, col, span int, kind EditKind) FieldSpec {
	return FieldSpec{
		ID:       id,
		Label:    id.Label(),
		Row:      row,
		Column:   col,
		Span:     span,
		Editable: kind != EditKindNone,
		Kind:     kind,
	}
}

// DefaultCatalog is the issue detail layout. Read-only fields occupy cells
// for layout purposes but can never be the cursor target.
func DefaultCatalog() Catalog {
	return MustCatalog([][]FieldSpec{
		{
			spec(domain.FieldKey, 0, 0, 1, EditKindNone),
			spec(domain.FieldProject, 0, 1, 1, EditKindNone),
			spec(domain.FieldReporter, 0, 2, 1, EditKindNone),
		},
		{
			spec(domain.FieldSummary, 1, 0, 3, EditKindInline),
		},
		{
			spec(domain.FieldStatus, 2, 0, 1, EditKindChoice),
			spec(domain.FieldPriority, 2, 1, 1, EditKindChoice),
			spec(domain.FieldAssignee, 2, 2, 1, EditKindChoice),
		},
		{
			spec(domain.FieldLabels, 3, 0, 2, EditKindPanel),
			spec(domain.FieldLinks, 3, 1, 1, EditKindPanel),
		},
		{
			spec(domain.FieldDescription, 4, 0, 3, EditKindMultiline),
		},
		{
			spec(domain.FieldComments, 5, 0, 3, EditKindPanel),
		},
	})
}
