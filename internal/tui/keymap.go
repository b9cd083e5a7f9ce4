package tui

import "charm.land/bubbles/v2/key"

// keyMap holds the agenda key bindings.
type keyMap struct {
	quit       key.Binding
	reload     key.Binding
	toggleHelp key.Binding
	nextTab    key.Binding
	prevTab    key.Binding
	moveUp     key.Binding
	moveDown   key.Binding
	copyID     key.Binding
}

func newKeyMap() keyMap {
	return keyMap{
		quit:       key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
		reload:     key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "reload")),
		toggleHelp: key.NewBinding(key.WithKeys("?"), key.WithHelp("?", "toggle help")),
		nextTab:    key.NewBinding(key.WithKeys("tab", "l", "right"), key.WithHelp("tab/l", "next view")),
		prevTab:    key.NewBinding(key.WithKeys("shift+tab", "h", "left"), key.WithHelp("h", "previous view")),
		moveUp:     key.NewBinding(key.WithKeys("k", "up"), key.WithHelp("k/↑", "row up")),
		moveDown:   key.NewBinding(key.WithKeys("j", "down"), key.WithHelp("j/↓", "row down")),
		copyID:     key.NewBinding(key.WithKeys("y"), key.WithHelp("y", "copy id")),
	}
}

func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.nextTab, k.moveUp, k.moveDown, k.copyID, k.reload, k.quit}
}

func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.nextTab, k.prevTab, k.moveUp, k.moveDown},
		{k.copyID, k.reload, k.toggleHelp, k.quit},
	}
}
