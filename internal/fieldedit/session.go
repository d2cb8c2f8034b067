package fieldedit

import (
	tea "charm.land/bubbletea/v2"

	"github.com/hylla/pejl/internal/domain"
)

// Phase is the field-edit interaction state.
type Phase int

const (
	// PhaseBrowsing means field-edit mode is inactive.
	PhaseBrowsing Phase = iota
	// PhaseNavigating means the cursor is active and no editor is open.
	PhaseNavigating
	// PhaseEditing means an inline editor owns key input.
	PhaseEditing
)

// String returns the phase name for status lines.
func (p Phase) String() string {
	switch p {
	case PhaseBrowsing:
		return "browsing"
	case PhaseNavigating:
		return "navigating"
	case PhaseEditing:
		return "editing"
	default:
		return "unknown"
	}
}

// Direction is one navigation request.
type Direction int

const (
	MoveLeft Direction = iota
	MoveRight
	MoveUp
	MoveDown
)

// IntentKind classifies what the host must do after an activation.
type IntentKind int

const (
	// IntentNone means nothing is required of the host.
	IntentNone IntentKind = iota
	// IntentEditInline reports that an inline editor opened; the host only
	// needs to render it and route keys.
	IntentEditInline
	// IntentOpenPicker asks the host to open a modal option picker.
	IntentOpenPicker
	// IntentOpenPanel asks the host to open a side panel.
	IntentOpenPanel
)

// Intent is a declarative request emitted toward the host, which performs
// all I/O and external editor UI.
type Intent struct {
	Kind  IntentKind
	Field domain.FieldID
	// Value seeds inline editors; empty for picker/panel intents.
	Value string
}

// Commit is one extracted editor value for the host to persist.
type Commit struct {
	Field domain.FieldID
	Value string
}

// ValueReader supplies current field values for seeding editors. Issue
// snapshots satisfy it.
type ValueReader interface {
	FieldValue(domain.FieldID) string
}

// Session composes the field grid with the active inline editor and the
// Browsing/Navigating/Editing state machine. One session exists per detail
// screen; every operation is total and synchronous.
type Session struct {
	catalog Catalog
	grid    *Grid
	editor  *Editor
	phase   Phase
}

// NewSession starts in Browsing with no grid allocated.
func NewSession(catalog Catalog) *Session {
	return &Session{catalog: catalog, phase: PhaseBrowsing}
}

// Phase returns the current interaction state.
func (s *Session) Phase() Phase {
	return s.phase
}

// Catalog returns the layout this session navigates.
func (s *Session) Catalog() Catalog {
	return s.catalog
}

// Enter activates field-edit mode with a fresh grid at the reset position.
func (s *Session) Enter() {
	if s.phase != PhaseBrowsing {
		return
	}
	s.grid = NewGrid(s.catalog)
	s.phase = PhaseNavigating
}

// Exit steps the state machine back one level. While editing, the first
// call only discards the editor; the next one leaves field-edit mode.
func (s *Session) Exit() {
	switch s.phase {
	case PhaseEditing:
		s.editor = nil
		s.phase = PhaseNavigating
	case PhaseNavigating:
		s.grid = nil
		s.editor = nil
		s.phase = PhaseBrowsing
	}
}

// Move applies one navigation request. It reports false when the move was
// blocked at a grid boundary or the session is not navigating; the cursor
// never rests on a read-only field either way.
func (s *Session) Move(dir Direction) bool {
	if s.phase != PhaseNavigating || s.grid == nil {
		return false
	}
	switch dir {
	case MoveLeft:
		return s.grid.MoveLeft()
	case MoveRight:
		return s.grid.MoveRight()
	case MoveUp:
		return s.grid.MoveUp()
	case MoveDown:
		return s.grid.MoveDown()
	default:
		return false
	}
}

// Focused returns the field under the cursor.
func (s *Session) Focused() (FieldSpec, bool) {
	if s.phase == PhaseBrowsing || s.grid == nil {
		return FieldSpec{}, false
	}
	return s.grid.Current()
}

// Position returns the cursor location while field-edit mode is active.
func (s *Session) Position() Position {
	if s.grid == nil {
		return Position{}
	}
	return s.grid.Position()
}

// Activate classifies the focused field and either opens an inline editor
// (phase becomes Editing) or emits a picker/panel intent for the host while
// the cursor stays put. The returned command focuses a new inline buffer.
func (s *Session) Activate(values ValueReader) (Intent, tea.Cmd) {
	if s.phase != PhaseNavigating || s.grid == nil {
		return Intent{Kind: IntentNone}, nil
	}
	spec, ok := s.grid.Current()
	if !ok {
		// Unreachable while the catalog has an editable field; stay a no-op.
		return Intent{Kind: IntentNone}, nil
	}
	switch spec.Kind {
	case EditKindInline, EditKindMultiline:
		value := ""
		if values != nil {
			value = values.FieldValue(spec.ID)
		}
		editor, cmd := newEditor(spec, value)
		s.editor = editor
		s.phase = PhaseEditing
		return Intent{Kind: IntentEditInline, Field: spec.ID, Value: value}, cmd
	case EditKindChoice:
		return Intent{Kind: IntentOpenPicker, Field: spec.ID}, nil
	case EditKindPanel:
		return Intent{Kind: IntentOpenPanel, Field: spec.ID}, nil
	default:
		return Intent{Kind: IntentNone}, nil
	}
}

// Editor returns the active inline editor while editing.
func (s *Session) Editor() (*Editor, bool) {
	if s.phase != PhaseEditing || s.editor == nil {
		return nil, false
	}
	return s.editor, true
}

// UpdateEditor forwards one message to the active inline buffer.
func (s *Session) UpdateEditor(msg tea.Msg) tea.Cmd {
	if s.phase != PhaseEditing || s.editor == nil {
		return nil
	}
	return s.editor.Update(msg)
}

// CommitEditor extracts the buffer value, discards the editor, and returns
// the (field, value) pair for the host to persist. Persistence never
// happens here.
func (s *Session) CommitEditor() (Commit, bool) {
	if s.phase != PhaseEditing || s.editor == nil {
		return Commit{}, false
	}
	commit := Commit{Field: s.editor.Field(), Value: s.editor.Value()}
	s.editor = nil
	s.phase = PhaseNavigating
	return commit, true
}

// CancelEditor discards the editor and any uncommitted text; the cursor is
// untouched.
func (s *Session) CancelEditor() {
	if s.phase != PhaseEditing {
		return
	}
	s.editor = nil
	s.phase = PhaseNavigating
}
