package tui

import (
	"testing"

	tea "charm.land/bubbletea/v2"

	"charm.land/bubbles/v2/key"
)

// TestRebindSwapsPrimaryKey verifies configured overrides replace defaults.
func TestRebindSwapsPrimaryKey(t *testing.T) {
	binding := key.NewBinding(key.WithKeys("e"), key.WithHelp("e", "edit fields"))
	rebound := rebind(binding, "f")

	if !key.Matches(keyRune('f'), rebound) {
		t.Fatalf("expected f to match rebound binding")
	}
	if key.Matches(keyRune('e'), rebound) {
		t.Fatalf("old key should no longer match")
	}
	if rebound.Help().Desc != "edit fields" {
		t.Fatalf("help text should survive a rebind, got %q", rebound.Help().Desc)
	}
}

// TestRebindKeepsAlternates verifies alternates stay matchable.
func TestRebindKeepsAlternates(t *testing.T) {
	binding := key.NewBinding(key.WithKeys("h", "left"), key.WithHelp("h/←", "field left"))
	rebound := rebind(binding, "a", "left")

	if !key.Matches(keyRune('a'), rebound) {
		t.Fatalf("expected a to match")
	}
	if !key.Matches(tea.KeyPressMsg{Code: tea.KeyLeft}, rebound) {
		t.Fatalf("expected left arrow alternate to match")
	}
}

// TestWithKeyOverridesAppliesConfig verifies option plumbing into the keymap.
func TestWithKeyOverridesAppliesConfig(t *testing.T) {
	svc := newFakeIssueService(testIssue(t))
	m := NewModel(svc, WithKeyOverrides(KeyOverrides{
		FieldEdit:     "f",
		Yank:          "c",
		IssueSwitcher: "p",
		Refresh:       "R",
	}))

	if !key.Matches(keyRune('f'), m.keys.fieldEdit) {
		t.Fatalf("field edit override not applied")
	}
	if !key.Matches(keyRune('c'), m.keys.yank) {
		t.Fatalf("yank override not applied")
	}
	if !key.Matches(keyRune('p'), m.keys.issueSwitcher) {
		t.Fatalf("switcher override not applied")
	}
	if !key.Matches(keyRune('R'), m.keys.reload) {
		t.Fatalf("refresh override not applied")
	}
	if key.Matches(keyRune('e'), m.keys.fieldEdit) {
		t.Fatalf("default field edit key should be replaced")
	}
}

// TestHelpCoversEveryBinding verifies help output names each action once.
func TestHelpCoversEveryBinding(t *testing.T) {
	k := newKeyMap()
	seen := map[string]bool{}
	for _, row := range k.FullHelp() {
		for _, binding := range row {
			desc := binding.Help().Desc
			if seen[desc] {
				t.Fatalf("duplicate help entry %q", desc)
			}
			seen[desc] = true
		}
	}
	for _, want := range []string{"edit fields", "open issue", "yank key", "update log", "quit"} {
		if !seen[want] {
			t.Fatalf("help missing %q", want)
		}
	}
}
