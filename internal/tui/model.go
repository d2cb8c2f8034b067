package tui

import (
	"context"
	"fmt"
	"image/color"
	"strings"
	"time"

	"charm.land/bubbles/v2/help"
	"charm.land/bubbles/v2/key"
	"charm.land/bubbles/v2/textinput"
	tea "charm.land/bubbletea/v2"
	"charm.land/lipgloss/v2"

	"github.com/hylla/pejl/internal/app"
	"github.com/hylla/pejl/internal/domain"
	"github.com/hylla/pejl/internal/fieldedit"
)

// Service represents service data used by this package.
type Service interface {
	LoadIssue(context.Context, string) (app.LoadedIssue, error)
	SubmitFieldUpdate(context.Context, domain.Issue, domain.FieldID, string) (domain.Issue, error)
	FieldOptions(context.Context, domain.FieldID) ([]string, error)
	AddComment(context.Context, domain.Issue, string) (domain.Issue, error)
	SearchIssues(context.Context, string) ([]domain.Issue, error)
	RecentIssues(context.Context) ([]domain.Issue, error)
	ListUpdateRecords(context.Context, string, int) ([]app.UpdateRecord, error)
}

// inputMode represents a selectable modal overlay.
type inputMode int

// modeNone and related constants define package defaults.
const (
	modeNone inputMode = iota
	modePicker
	modeLabelsPanel
	modeLinksPanel
	modeCommentsPanel
	modeSwitcher
	modeUpdateLog
)

// updateLogViewLimit bounds records shown in the update-log modal.
const updateLogViewLimit = 20

// issueLoadedMsg carries one loaded snapshot through update handling.
type issueLoadedMsg struct {
	loaded app.LoadedIssue
	err    error
}

// actionMsg carries mutation results through update handling.
type actionMsg struct {
	issue  *domain.Issue
	status string
	err    error
}

// optionsLoadedMsg carries picker options for one choice field.
type optionsLoadedMsg struct {
	field   domain.FieldID
	options []string
	err     error
}

// recentLoadedMsg carries switcher candidates.
type recentLoadedMsg struct {
	issues []domain.Issue
	err    error
}

// updateLogLoadedMsg carries journaled submissions for the active issue.
type updateLogLoadedMsg struct {
	records []app.UpdateRecord
	err     error
}

// Model represents model data used by this package.
type Model struct {
	svc Service

	ready  bool
	width  int
	height int
	err    error

	status string

	help help.Model
	keys keyMap

	fieldConfig    FieldConfig
	clipboardWrite func(string) error
	initialKey     string

	issue     domain.Issue
	hasIssue  bool
	source    app.SnapshotSource
	fetchedAt time.Time

	session *fieldedit.Session

	mode inputMode

	pickerField   domain.FieldID
	pickerOptions []string
	pickerIndex   int

	labelsInput  textinput.Model
	commentInput textinput.Model
	commentIndex int

	switcherInput  textinput.Model
	switcherIssues []domain.Issue
	switcherIndex  int

	updateRecords []app.UpdateRecord

	md markdownRenderer
}

// NewModel constructs a new value for this package.
func NewModel(svc Service, opts ...Option) Model {
	h := help.New()
	h.ShowAll = false
	switcherInput := textinput.New()
	switcherInput.Prompt = "key: "
	switcherInput.Placeholder = "PEJL-7 or leave empty to pick below"
	switcherInput.CharLimit = 64
	m := Model{
		svc:           svc,
		status:        "loading...",
		help:          h,
		keys:          newKeyMap(),
		fieldConfig:   DefaultFieldConfig(),
		session:       fieldedit.NewSession(fieldedit.DefaultCatalog()),
		switcherInput: switcherInput,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(&m)
		}
	}
	return m
}

// Init handles init.
func (m Model) Init() tea.Cmd {
	if m.initialKey != "" {
		return m.loadIssue(m.initialKey)
	}
	return m.loadRecent
}

// Update updates state for the requested operation.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.ready = true
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case issueLoadedMsg:
		if msg.err != nil {
			// Keep the current snapshot on screen when a later load fails.
			if m.hasIssue {
				m.status = "load failed: " + msg.err.Error()
				m.mode = modeNone
				return m, nil
			}
			m.err = msg.err
			return m, nil
		}
		m.err = nil
		m.issue = msg.loaded.Issue
		m.hasIssue = true
		m.source = msg.loaded.Source
		m.fetchedAt = msg.loaded.FetchedAt
		m.mode = modeNone
		if msg.loaded.Source == app.SourceCache {
			m.status = "offline: showing cached snapshot"
		} else {
			m.status = "ready"
		}
		return m, nil

	case actionMsg:
		if msg.err != nil {
			// A failed submit keeps the current snapshot on screen.
			m.status = msg.err.Error()
			return m, nil
		}
		if msg.issue != nil {
			m.issue = *msg.issue
			m.hasIssue = true
		}
		if msg.status != "" {
			m.status = msg.status
		}
		return m, nil

	case optionsLoadedMsg:
		if msg.err != nil {
			m.status = "options unavailable: " + msg.err.Error()
			return m, nil
		}
		if len(msg.options) == 0 {
			m.status = "no options for " + msg.field.Label()
			return m, nil
		}
		m.pickerField = msg.field
		m.pickerOptions = msg.options
		m.pickerIndex = 0
		current := m.issue.FieldValue(msg.field)
		for i, option := range msg.options {
			if option == current {
				m.pickerIndex = i
				break
			}
		}
		m.mode = modePicker
		m.status = "pick " + msg.field.Label()
		return m, nil

	case recentLoadedMsg:
		if msg.err != nil {
			m.status = "recent issues unavailable: " + msg.err.Error()
			return m, nil
		}
		m.switcherIssues = msg.issues
		m.switcherIndex = 0
		if !m.hasIssue && len(msg.issues) == 0 {
			m.status = "no cached issues; open one with o"
		}
		if m.mode != modeSwitcher && !m.hasIssue && len(msg.issues) > 0 {
			return m, m.loadIssue(msg.issues[0].Key)
		}
		return m, nil

	case updateLogLoadedMsg:
		if msg.err != nil {
			m.status = "update log unavailable: " + msg.err.Error()
			return m, nil
		}
		m.updateRecords = msg.records
		m.mode = modeUpdateLog
		m.status = "update log"
		return m, nil

	case tea.KeyPressMsg:
		if m.mode != modeNone {
			return m.handleModalKey(msg)
		}
		switch m.session.Phase() {
		case fieldedit.PhaseEditing:
			return m.handleEditingKey(msg)
		case fieldedit.PhaseNavigating:
			return m.handleNavigatingKey(msg)
		default:
			return m.handleBrowsingKey(msg)
		}

	default:
		return m, nil
	}
}

// loadIssue fetches one snapshot by key.
func (m Model) loadIssue(issueKey string) tea.Cmd {
	svc := m.svc
	return func() tea.Msg {
		loaded, err := svc.LoadIssue(context.Background(), issueKey)
		return issueLoadedMsg{loaded: loaded, err: err}
	}
}

// loadRecent lists cached snapshots for startup and the switcher.
func (m Model) loadRecent() tea.Msg {
	issues, err := m.svc.RecentIssues(context.Background())
	return recentLoadedMsg{issues: issues, err: err}
}

// loadOptions fetches picker choices for one field.
func (m Model) loadOptions(field domain.FieldID) tea.Cmd {
	svc := m.svc
	return func() tea.Msg {
		options, err := svc.FieldOptions(context.Background(), field)
		return optionsLoadedMsg{field: field, options: options, err: err}
	}
}

// loadUpdateLog fetches the journal for the active issue.
func (m Model) loadUpdateLog() tea.Cmd {
	svc := m.svc
	issueKey := m.issue.Key
	return func() tea.Msg {
		records, err := svc.ListUpdateRecords(context.Background(), issueKey, updateLogViewLimit)
		return updateLogLoadedMsg{records: records, err: err}
	}
}

// submitField sends one committed value to the tracker.
func (m Model) submitField(field domain.FieldID, value string) tea.Cmd {
	svc := m.svc
	issue := m.issue
	return func() tea.Msg {
		updated, err := svc.SubmitFieldUpdate(context.Background(), issue, field, value)
		if err != nil {
			return actionMsg{err: err}
		}
		return actionMsg{issue: &updated, status: field.Label() + " updated"}
	}
}

// submitComment posts one comment body.
func (m Model) submitComment(body string) tea.Cmd {
	svc := m.svc
	issue := m.issue
	return func() tea.Msg {
		updated, err := svc.AddComment(context.Background(), issue, body)
		if err != nil {
			return actionMsg{err: err}
		}
		return actionMsg{issue: &updated, status: "comment added"}
	}
}

// handleBrowsingKey handles keys on the plain detail screen.
func (m Model) handleBrowsingKey(msg tea.KeyPressMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.toggleHelp):
		m.help.ShowAll = !m.help.ShowAll
		if m.help.ShowAll {
			m.status = "help"
		} else {
			m.status = "ready"
		}
		return m, nil
	case msg.String() == "esc":
		if m.help.ShowAll {
			m.help.ShowAll = false
			m.status = "ready"
		}
		return m, nil
	case key.Matches(msg, m.keys.reload):
		if !m.hasIssue {
			if m.initialKey != "" {
				m.err = nil
				m.status = "reloading..."
				return m, m.loadIssue(m.initialKey)
			}
			return m, m.loadRecent
		}
		m.status = "reloading..."
		return m, m.loadIssue(m.issue.Key)
	case key.Matches(msg, m.keys.fieldEdit):
		if !m.hasIssue {
			m.status = "no issue loaded"
			return m, nil
		}
		m.help.ShowAll = false
		m.session.Enter()
		if field, ok := m.session.Focused(); ok {
			m.status = "field edit: " + field.Label
		} else {
			m.session.Exit()
			m.status = "no editable fields"
		}
		return m, nil
	case key.Matches(msg, m.keys.yank):
		return m.yankIssueKey()
	case key.Matches(msg, m.keys.issueSwitcher):
		m.err = nil
		m.mode = modeSwitcher
		m.switcherInput.SetValue("")
		m.switcherIndex = 0
		m.status = "open issue"
		return m, tea.Batch(m.switcherInput.Focus(), m.loadRecent)
	case key.Matches(msg, m.keys.updateLog):
		if !m.hasIssue {
			m.status = "no issue loaded"
			return m, nil
		}
		return m, m.loadUpdateLog()
	default:
		return m, nil
	}
}

// handleNavigatingKey routes keys while the field cursor is active.
func (m Model) handleNavigatingKey(msg tea.KeyPressMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.quit):
		return m, tea.Quit
	case msg.String() == "esc":
		m.session.Exit()
		m.status = "ready"
		return m, nil
	case key.Matches(msg, m.keys.moveLeft):
		m.moveCursor(fieldedit.MoveLeft)
		return m, nil
	case key.Matches(msg, m.keys.moveRight):
		m.moveCursor(fieldedit.MoveRight)
		return m, nil
	case key.Matches(msg, m.keys.moveUp):
		m.moveCursor(fieldedit.MoveUp)
		return m, nil
	case key.Matches(msg, m.keys.moveDown):
		m.moveCursor(fieldedit.MoveDown)
		return m, nil
	case key.Matches(msg, m.keys.activate):
		return m.activateField()
	case key.Matches(msg, m.keys.yank):
		return m.yankIssueKey()
	default:
		return m, nil
	}
}

// moveCursor applies one grid move and reports the landing field.
func (m *Model) moveCursor(dir fieldedit.Direction) {
	if !m.session.Move(dir) {
		return
	}
	if field, ok := m.session.Focused(); ok {
		m.status = "field edit: " + field.Label
	}
}

// activateField opens the focused field's editor, picker, or panel.
func (m Model) activateField() (tea.Model, tea.Cmd) {
	intent, cmd := m.session.Activate(m.issue)
	switch intent.Kind {
	case fieldedit.IntentEditInline:
		field, _ := m.session.Focused()
		m.status = "editing " + field.Label
		return m, cmd
	case fieldedit.IntentOpenPicker:
		m.status = "loading options..."
		return m, m.loadOptions(intent.Field)
	case fieldedit.IntentOpenPanel:
		return m.openPanel(intent.Field)
	default:
		return m, nil
	}
}

// openPanel opens the modal panel backing one collection field.
func (m Model) openPanel(field domain.FieldID) (tea.Model, tea.Cmd) {
	switch field {
	case domain.FieldLabels:
		m.labelsInput = newModalInput("labels: ", "comma-separated labels", m.issue.FieldValue(domain.FieldLabels), 256)
		m.mode = modeLabelsPanel
		m.status = "edit labels"
		return m, m.labelsInput.Focus()
	case domain.FieldLinks:
		m.mode = modeLinksPanel
		m.status = "links"
		return m, nil
	case domain.FieldComments:
		m.commentInput = newModalInput("comment: ", "write markdown", "", 1024)
		m.commentIndex = max(0, len(m.issue.Comments)-1)
		m.mode = modeCommentsPanel
		m.status = "comments"
		return m, m.commentInput.Focus()
	default:
		return m, nil
	}
}

// handleEditingKey routes keys while an inline editor owns input.
func (m Model) handleEditingKey(msg tea.KeyPressMsg) (tea.Model, tea.Cmd) {
	editor, ok := m.session.Editor()
	if !ok {
		m.session.CancelEditor()
		return m, nil
	}
	switch msg.String() {
	case "esc":
		m.session.CancelEditor()
		m.status = "edit canceled"
		return m, nil
	case "enter":
		// Multiline editors take enter as a newline; ctrl+s commits.
		if editor.Multiline() {
			return m, m.session.UpdateEditor(msg)
		}
		return m.commitEditor()
	case "ctrl+s":
		return m.commitEditor()
	default:
		return m, m.session.UpdateEditor(msg)
	}
}

// commitEditor extracts the buffer and submits it when changed.
func (m Model) commitEditor() (tea.Model, tea.Cmd) {
	editor, ok := m.session.Editor()
	if !ok {
		return m, nil
	}
	unchanged := editor.Value() == editor.Original()
	commit, ok := m.session.CommitEditor()
	if !ok {
		return m, nil
	}
	if unchanged {
		m.status = "no change"
		return m, nil
	}
	m.status = "saving " + commit.Field.Label() + "..."
	return m, m.submitField(commit.Field, commit.Value)
}

// handleModalKey routes keys while a modal overlay is open.
func (m Model) handleModalKey(msg tea.KeyPressMsg) (tea.Model, tea.Cmd) {
	switch m.mode {
	case modePicker:
		return m.handlePickerKey(msg)
	case modeLabelsPanel:
		return m.handleLabelsPanelKey(msg)
	case modeLinksPanel:
		return m.handleLinksPanelKey(msg)
	case modeCommentsPanel:
		return m.handleCommentsPanelKey(msg)
	case modeSwitcher:
		return m.handleSwitcherKey(msg)
	case modeUpdateLog:
		return m.handleUpdateLogKey(msg)
	default:
		m.mode = modeNone
		return m, nil
	}
}

// handlePickerKey drives the modal choice picker.
func (m Model) handlePickerKey(msg tea.KeyPressMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc":
		m.mode = modeNone
		m.status = "pick canceled"
		return m, nil
	case "j", "down":
		m.pickerIndex = clamp(m.pickerIndex+1, 0, len(m.pickerOptions)-1)
		return m, nil
	case "k", "up":
		m.pickerIndex = clamp(m.pickerIndex-1, 0, len(m.pickerOptions)-1)
		return m, nil
	case "enter":
		if len(m.pickerOptions) == 0 {
			m.mode = modeNone
			return m, nil
		}
		choice := m.pickerOptions[m.pickerIndex]
		m.mode = modeNone
		if choice == m.issue.FieldValue(m.pickerField) {
			m.status = "no change"
			return m, nil
		}
		m.status = "saving " + m.pickerField.Label() + "..."
		return m, m.submitField(m.pickerField, choice)
	default:
		return m, nil
	}
}

// handleLabelsPanelKey drives the labels editing panel.
func (m Model) handleLabelsPanelKey(msg tea.KeyPressMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc":
		m.mode = modeNone
		m.status = "labels unchanged"
		return m, nil
	case "enter":
		value := m.labelsInput.Value()
		m.mode = modeNone
		if strings.TrimSpace(value) == strings.TrimSpace(m.issue.FieldValue(domain.FieldLabels)) {
			m.status = "no change"
			return m, nil
		}
		m.status = "saving labels..."
		return m, m.submitField(domain.FieldLabels, value)
	default:
		var cmd tea.Cmd
		m.labelsInput, cmd = m.labelsInput.Update(msg)
		return m, cmd
	}
}

// handleLinksPanelKey drives the read-only links panel.
func (m Model) handleLinksPanelKey(msg tea.KeyPressMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc", "enter", "q":
		m.mode = modeNone
		m.status = "ready"
		return m, nil
	default:
		return m, nil
	}
}

// handleCommentsPanelKey drives the comments panel with its composer.
func (m Model) handleCommentsPanelKey(msg tea.KeyPressMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc":
		m.mode = modeNone
		m.status = "ready"
		return m, nil
	case "up", "ctrl+k":
		m.commentIndex = clamp(m.commentIndex-1, 0, max(0, len(m.issue.Comments)-1))
		return m, nil
	case "down", "ctrl+j":
		m.commentIndex = clamp(m.commentIndex+1, 0, max(0, len(m.issue.Comments)-1))
		return m, nil
	case "enter":
		body := strings.TrimSpace(m.commentInput.Value())
		if body == "" {
			m.status = "empty comment discarded"
			return m, nil
		}
		m.mode = modeNone
		m.status = "posting comment..."
		return m, m.submitComment(body)
	default:
		var cmd tea.Cmd
		m.commentInput, cmd = m.commentInput.Update(msg)
		return m, cmd
	}
}

// handleSwitcherKey drives the issue switcher.
func (m Model) handleSwitcherKey(msg tea.KeyPressMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc":
		m.mode = modeNone
		m.status = "ready"
		return m, nil
	case "ctrl+j", "down":
		m.switcherIndex = clamp(m.switcherIndex+1, 0, max(0, len(m.switcherIssues)-1))
		return m, nil
	case "ctrl+k", "up":
		m.switcherIndex = clamp(m.switcherIndex-1, 0, max(0, len(m.switcherIssues)-1))
		return m, nil
	case "enter":
		if typed := strings.TrimSpace(m.switcherInput.Value()); typed != "" {
			m.status = "opening " + strings.ToUpper(typed) + "..."
			return m, m.loadIssue(typed)
		}
		if len(m.switcherIssues) == 0 {
			m.status = "nothing to open"
			return m, nil
		}
		selected := m.switcherIssues[clamp(m.switcherIndex, 0, len(m.switcherIssues)-1)]
		m.status = "opening " + selected.Key + "..."
		return m, m.loadIssue(selected.Key)
	default:
		var cmd tea.Cmd
		m.switcherInput, cmd = m.switcherInput.Update(msg)
		return m, cmd
	}
}

// handleUpdateLogKey drives the read-only update-log modal.
func (m Model) handleUpdateLogKey(msg tea.KeyPressMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc", "enter", "q", "g":
		m.mode = modeNone
		m.status = "ready"
		return m, nil
	default:
		return m, nil
	}
}

// yankIssueKey copies the active issue key to the clipboard.
func (m Model) yankIssueKey() (tea.Model, tea.Cmd) {
	if !m.hasIssue {
		m.status = "no issue loaded"
		return m, nil
	}
	if m.clipboardWrite == nil {
		m.status = "clipboard unavailable"
		return m, nil
	}
	if err := m.clipboardWrite(m.issue.Key); err != nil {
		m.status = "yank failed: " + err.Error()
		return m, nil
	}
	m.status = "yanked " + m.issue.Key
	return m, nil
}

// newModalInput builds one focused-style single-line input.
func newModalInput(prompt, placeholder, value string, limit int) textinput.Model {
	in := textinput.New()
	in.Prompt = prompt
	in.Placeholder = placeholder
	in.CharLimit = limit
	in.SetValue(value)
	in.CursorEnd()
	return in
}

// clamp bounds v into [lo, hi].
func clamp(v, lo, hi int) int {
	if hi < lo {
		return lo
	}
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// truncate shortens s to width runes with an ellipsis.
func truncate(s string, width int) string {
	if width <= 0 {
		return ""
	}
	runes := []rune(s)
	if len(runes) <= width {
		return s
	}
	if width == 1 {
		return "…"
	}
	return string(runes[:width-1]) + "…"
}

// fitLines pads or trims content to exactly height lines.
func fitLines(content string, height int) string {
	if height <= 0 {
		return ""
	}
	lines := strings.Split(content, "\n")
	if len(lines) > height {
		lines = lines[:height]
	}
	for len(lines) < height {
		lines = append(lines, "")
	}
	return strings.Join(lines, "\n")
}

// modeLabel names the current interaction state for the header.
func (m Model) modeLabel() string {
	switch m.mode {
	case modePicker:
		return "pick"
	case modeLabelsPanel:
		return "labels"
	case modeLinksPanel:
		return "links"
	case modeCommentsPanel:
		return "comments"
	case modeSwitcher:
		return "open"
	case modeUpdateLog:
		return "log"
	}
	switch m.session.Phase() {
	case fieldedit.PhaseNavigating:
		return "fields"
	case fieldedit.PhaseEditing:
		return "edit"
	default:
		return "view"
	}
}

// View handles view.
func (m Model) View() tea.View {
	if m.err != nil {
		v := tea.NewView("error: " + m.err.Error() + "\n\npress r to retry • o open issue • q quit\n")
		v.AltScreen = true
		return v
	}
	if !m.ready {
		v := tea.NewView("loading...")
		v.AltScreen = true
		return v
	}

	accent := lipgloss.Color("62")
	muted := lipgloss.Color("241")
	dim := lipgloss.Color("239")
	titleStyle := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("252"))
	statusStyle := lipgloss.NewStyle().Foreground(dim)

	if !m.hasIssue {
		sections := []string{
			titleStyle.Render("pejl"),
			"",
			"No issue loaded.",
			"Press o to open an issue.",
			"Press q to quit.",
		}
		if strings.TrimSpace(m.status) != "" && m.status != "ready" {
			sections = append(sections, "", statusStyle.Render(m.status))
		}
		body := strings.Join(sections, "\n")
		if overlay := m.renderModalOverlay(accent, muted, dim); overlay != "" {
			body += "\n\n" + overlay
		}
		v := tea.NewView(body)
		v.AltScreen = true
		return v
	}

	header := titleStyle.Render("pejl") + "  " + m.issue.Key + "  " + truncate(m.issue.Summary, max(10, m.width-30))
	header += statusStyle.Render("  [" + m.modeLabel() + "]")
	if m.source == app.SourceCache {
		header += statusStyle.Render("  cached " + m.fetchedAt.Local().Format("15:04"))
	}

	grid := m.renderFieldGrid(accent, muted, dim)
	detail := m.renderDetailSections(accent, muted, dim)

	statusLine := ""
	if text := strings.TrimSpace(m.status); text != "" && text != "ready" {
		statusLine = statusStyle.Render(text)
	}

	helpBubble := m.help
	helpBubble.SetWidth(max(0, m.width-2))
	helpLine := lipgloss.NewStyle().
		Foreground(muted).
		BorderTop(true).
		BorderForeground(dim).
		Padding(0, 1).
		Width(max(0, m.width)).
		Render(helpBubble.View(m.keys))

	sections := []string{header, "", grid}
	if detail != "" {
		sections = append(sections, "", detail)
	}
	if overlay := m.renderModalOverlay(accent, muted, dim); overlay != "" {
		sections = append(sections, "", overlay)
	}
	if statusLine != "" {
		sections = append(sections, "", statusLine)
	}
	content := strings.Join(sections, "\n")
	if m.height > 0 {
		helpHeight := lipgloss.Height(helpLine)
		content = fitLines(content, max(0, m.height-helpHeight))
	}
	v := tea.NewView(content + "\n" + helpLine)
	v.AltScreen = true
	return v
}

// renderFieldGrid draws the jagged field layout with the session cursor.
func (m Model) renderFieldGrid(accent, muted, dim color.Color) string {
	focusedPos := fieldedit.Position{Row: -1, Col: -1}
	navigating := m.session.Phase() != fieldedit.PhaseBrowsing
	if navigating {
		focusedPos = m.session.Position()
	}
	editor, editing := m.session.Editor()

	labelStyle := lipgloss.NewStyle().Foreground(muted)
	readOnlyStyle := lipgloss.NewStyle().Foreground(dim)
	valueStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("252"))
	focusedStyle := lipgloss.NewStyle().Bold(true).Foreground(accent)

	rows := m.session.Catalog().Rows()
	rendered := make([]string, 0, len(rows))
	for rowIdx, row := range rows {
		cells := make([]string, 0, len(row))
		for colIdx, field := range row {
			focused := navigating && rowIdx == focusedPos.Row && colIdx == focusedPos.Col
			if focused && editing && editor.Field() == field.ID {
				width := max(24, m.cellWidth(len(row))*field.Span)
				editorView := editor.View()
				if !editor.Multiline() {
					editor.SetWidth(width - 2)
					editorView = editor.View()
				}
				cells = append(cells, focusedStyle.Render(field.Label+":")+" "+editorView)
				continue
			}
			value := m.fieldCellValue(field.ID)
			label := field.Label + ":"
			switch {
			case focused:
				cells = append(cells, focusedStyle.Render("▸ "+label)+" "+valueStyle.Render(value))
			case !field.Editable:
				cells = append(cells, readOnlyStyle.Render(label+" "+value))
			default:
				cells = append(cells, labelStyle.Render(label)+" "+valueStyle.Render(value))
			}
		}
		rendered = append(rendered, strings.Join(cells, "   "))
	}
	return strings.Join(rendered, "\n")
}

// fieldCellValue renders one field's value for the grid line.
func (m Model) fieldCellValue(id domain.FieldID) string {
	value := m.issue.FieldValue(id)
	switch id {
	case domain.FieldDescription:
		if strings.TrimSpace(value) == "" {
			return "(empty, enter to write)"
		}
		return truncate(strings.SplitN(value, "\n", 2)[0], 60) + fmt.Sprintf("  (%d lines)", strings.Count(value, "\n")+1)
	case domain.FieldComments:
		return fmt.Sprintf("%d comments", len(m.issue.Comments))
	case domain.FieldLinks:
		return fmt.Sprintf("%d links", len(m.issue.Links))
	case domain.FieldCreated, domain.FieldUpdated:
		return value
	default:
		if value == "" {
			return "—"
		}
		return truncate(value, 40)
	}
}

// cellWidth estimates how much horizontal room one cell gets.
func (m Model) cellWidth(columns int) int {
	if columns <= 0 {
		return m.width
	}
	usable := m.width - 4
	if usable <= 0 {
		usable = 80
	}
	return max(16, usable/columns)
}

// renderDetailSections draws the description and optional footer sections.
func (m *Model) renderDetailSections(accent, muted, dim color.Color) string {
	sectionStyle := lipgloss.NewStyle().Bold(true).Foreground(accent)
	hintStyle := lipgloss.NewStyle().Foreground(muted)
	dimStyle := lipgloss.NewStyle().Foreground(dim)

	sections := []string{}
	if editor, ok := m.session.Editor(); ok && editor.Multiline() {
		editor.SetWidth(max(24, m.width-6))
		sections = append(sections,
			sectionStyle.Render("Description")+hintStyle.Render("  ctrl+s save • esc cancel"),
			editor.View(),
		)
	} else if description := strings.TrimSpace(m.issue.Description); description != "" {
		sections = append(sections,
			sectionStyle.Render("Description"),
			m.md.render(description, max(24, m.width-6)),
		)
	}

	if m.fieldConfig.ShowLinks && len(m.issue.Links) > 0 {
		lines := []string{sectionStyle.Render("Links")}
		for _, link := range m.issue.Links {
			lines = append(lines, hintStyle.Render("  "+string(link.Kind)+" ")+link.TargetKey)
		}
		sections = append(sections, strings.Join(lines, "\n"))
	}

	if m.fieldConfig.ShowComments && len(m.issue.Comments) > 0 {
		lines := []string{sectionStyle.Render(fmt.Sprintf("Comments (%d)", len(m.issue.Comments)))}
		for _, comment := range m.issue.Comments {
			meta := dimStyle.Render(comment.Author + " • " + comment.CreatedAt.Local().Format("2006-01-02 15:04"))
			lines = append(lines, meta, "  "+truncate(strings.ReplaceAll(comment.Body, "\n", " "), max(20, m.width-8)))
		}
		sections = append(sections, strings.Join(lines, "\n"))
	}

	sections = append(sections, dimStyle.Render(
		"created "+m.issue.CreatedAt.Local().Format("2006-01-02 15:04")+
			"  •  updated "+m.issue.UpdatedAt.Local().Format("2006-01-02 15:04")))
	return strings.Join(sections, "\n\n")
}

// renderModalOverlay draws the active modal, if any.
func (m Model) renderModalOverlay(accent, muted, dim color.Color) string {
	titleStyle := lipgloss.NewStyle().Bold(true).Foreground(accent)
	hintStyle := lipgloss.NewStyle().Foreground(muted)
	dimStyle := lipgloss.NewStyle().Foreground(dim)
	selectedStyle := lipgloss.NewStyle().Bold(true).Foreground(accent)
	boxStyle := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(accent).
		Padding(0, 1)

	switch m.mode {
	case modePicker:
		lines := []string{titleStyle.Render("Pick " + m.pickerField.Label())}
		for i, option := range m.pickerOptions {
			if i == m.pickerIndex {
				lines = append(lines, selectedStyle.Render("▸ "+option))
			} else {
				lines = append(lines, "  "+option)
			}
		}
		lines = append(lines, "", hintStyle.Render("enter apply • j/k move • esc cancel"))
		return boxStyle.Render(strings.Join(lines, "\n"))

	case modeLabelsPanel:
		lines := []string{
			titleStyle.Render("Labels"),
			m.labelsInput.View(),
			"",
			hintStyle.Render("enter save • esc cancel"),
		}
		return boxStyle.Render(strings.Join(lines, "\n"))

	case modeLinksPanel:
		lines := []string{titleStyle.Render("Links")}
		if len(m.issue.Links) == 0 {
			lines = append(lines, dimStyle.Render("no links"))
		}
		for _, link := range m.issue.Links {
			lines = append(lines, hintStyle.Render(string(link.Kind)+" ")+link.TargetKey)
		}
		lines = append(lines, "", hintStyle.Render("esc close"))
		return boxStyle.Render(strings.Join(lines, "\n"))

	case modeCommentsPanel:
		lines := []string{titleStyle.Render(fmt.Sprintf("Comments (%d)", len(m.issue.Comments)))}
		if len(m.issue.Comments) == 0 {
			lines = append(lines, dimStyle.Render("no comments yet"))
		}
		for i, comment := range m.issue.Comments {
			marker := "  "
			if i == m.commentIndex {
				marker = selectedStyle.Render("▸ ")
			}
			meta := dimStyle.Render(comment.Author + " • " + comment.CreatedAt.Local().Format("2006-01-02 15:04"))
			lines = append(lines, marker+meta, "  "+truncate(strings.ReplaceAll(comment.Body, "\n", " "), max(20, m.width-12)))
		}
		lines = append(lines, "", m.commentInput.View(), hintStyle.Render("enter post • ctrl+j/k scroll • esc close"))
		return boxStyle.Render(strings.Join(lines, "\n"))

	case modeSwitcher:
		lines := []string{titleStyle.Render("Open Issue"), m.switcherInput.View(), ""}
		if len(m.switcherIssues) == 0 {
			lines = append(lines, dimStyle.Render("no cached issues"))
		}
		for i, issue := range m.switcherIssues {
			entry := issue.Key + "  " + truncate(issue.Summary, 48)
			if i == m.switcherIndex {
				lines = append(lines, selectedStyle.Render("▸ "+entry))
			} else {
				lines = append(lines, "  "+entry)
			}
		}
		lines = append(lines, "", hintStyle.Render("enter open • ctrl+j/k move • esc cancel"))
		return boxStyle.Render(strings.Join(lines, "\n"))

	case modeUpdateLog:
		lines := []string{titleStyle.Render("Update Log")}
		if len(m.updateRecords) == 0 {
			lines = append(lines, dimStyle.Render("no local submissions"))
		}
		for _, record := range m.updateRecords {
			when := dimStyle.Render(record.SubmittedAt.Local().Format("2006-01-02 15:04"))
			lines = append(lines, fmt.Sprintf("%s  %s: %q → %q",
				when, record.Field.Label(), truncate(record.OldValue, 24), truncate(record.NewValue, 24)))
		}
		lines = append(lines, "", hintStyle.Render("esc close"))
		return boxStyle.Render(strings.Join(lines, "\n"))

	default:
		return ""
	}
}
