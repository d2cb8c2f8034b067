package fieldedit

import (
	"charm.land/bubbles/v2/textarea"
	"charm.land/bubbles/v2/textinput"
	tea "charm.land/bubbletea/v2"

	"github.com/hylla/pejl/internal/domain"
)

// Editor is the transient buffer for one inline edit. The original value is
// retained so a cancel can be reported without touching the issue, and the
// buffer itself is a bubbles text model the host forwards key messages to.
type Editor struct {
	field     domain.FieldID
	kind      EditKind
	original  string
	single    textinput.Model
	multi     textarea.Model
	multiline bool
}

// newEditor seeds an inline editor with the field's current value.
func newEditor(spec FieldSpec, value string) (*Editor, tea.Cmd) {
	e := &Editor{
		field:     spec.ID,
		kind:      spec.Kind,
		original:  value,
		multiline: spec.Kind == EditKindMultiline,
	}
	if e.multiline {
		area := textarea.New()
		area.Placeholder = "write markdown"
		area.ShowLineNumbers = false
		area.CharLimit = 0
		area.SetWidth(72)
		area.SetHeight(8)
		area.SetValue(value)
		e.multi = area
		return e, e.multi.Focus()
	}
	in := textinput.New()
	in.Prompt = ""
	in.CharLimit = 512
	in.SetValue(value)
	in.CursorEnd()
	e.single = in
	return e, e.single.Focus()
}

// Field returns the field this editor is bound to.
func (e *Editor) Field() domain.FieldID {
	return e.field
}

// Multiline reports whether this editor uses the multi-line buffer.
func (e *Editor) Multiline() bool {
	return e.multiline
}

// Value returns the current buffer contents.
func (e *Editor) Value() string {
	if e.multiline {
		return e.multi.Value()
	}
	return e.single.Value()
}

// Original returns the value the editor was seeded with.
func (e *Editor) Original() string {
	return e.original
}

// Update forwards one message to the underlying text model.
func (e *Editor) Update(msg tea.Msg) tea.Cmd {
	var cmd tea.Cmd
	if e.multiline {
		e.multi, cmd = e.multi.Update(msg)
		return cmd
	}
	e.single, cmd = e.single.Update(msg)
	return cmd
}

// SetWidth resizes the buffer to the host's available width.
func (e *Editor) SetWidth(width int) {
	if width < 20 {
		width = 20
	}
	if e.multiline {
		e.multi.SetWidth(width)
		return
	}
	e.single.SetWidth(width)
}

// View renders the buffer.
func (e *Editor) View() string {
	if e.multiline {
		return e.multi.View()
	}
	return e.single.View()
}
