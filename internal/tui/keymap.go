package tui

import "charm.land/bubbles/v2/key"

// keyMap represents key map data used by this package.
type keyMap struct {
	quit          key.Binding
	reload        key.Binding
	toggleHelp    key.Binding
	fieldEdit     key.Binding
	moveLeft      key.Binding
	moveRight     key.Binding
	moveUp        key.Binding
	moveDown      key.Binding
	activate      key.Binding
	yank          key.Binding
	issueSwitcher key.Binding
	updateLog     key.Binding
}

// newKeyMap constructs key map.
func newKeyMap() keyMap {
	return keyMap{
		quit:          key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
		reload:        key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "reload")),
		toggleHelp:    key.NewBinding(key.WithKeys("?"), key.WithHelp("?", "toggle help")),
		fieldEdit:     key.NewBinding(key.WithKeys("e"), key.WithHelp("e", "edit fields")),
		moveLeft:      key.NewBinding(key.WithKeys("h", "left"), key.WithHelp("h/←", "field left")),
		moveRight:     key.NewBinding(key.WithKeys("l", "right"), key.WithHelp("l/→", "field right")),
		moveUp:        key.NewBinding(key.WithKeys("k", "up"), key.WithHelp("k/↑", "field up")),
		moveDown:      key.NewBinding(key.WithKeys("j", "down"), key.WithHelp("j/↓", "field down")),
		activate:      key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "edit field")),
		yank:          key.NewBinding(key.WithKeys("y"), key.WithHelp("y", "yank key")),
		issueSwitcher: key.NewBinding(key.WithKeys("o"), key.WithHelp("o", "open issue")),
		updateLog:     key.NewBinding(key.WithKeys("g"), key.WithHelp("g", "update log")),
	}
}

// rebind swaps the primary key of one binding while keeping alternates.
func rebind(binding key.Binding, primary string, alternates ...string) key.Binding {
	keys := append([]string{primary}, alternates...)
	help := binding.Help()
	return key.NewBinding(key.WithKeys(keys...), key.WithHelp(primary, help.Desc))
}

// ShortHelp handles short help.
func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{
		k.fieldEdit, k.issueSwitcher, k.yank, k.reload, k.toggleHelp, k.quit,
	}
}

// FullHelp handles full help.
func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.fieldEdit, k.activate, k.issueSwitcher, k.updateLog, k.yank},
		{k.moveLeft, k.moveRight, k.moveUp, k.moveDown},
		{k.reload, k.toggleHelp, k.quit},
	}
}
