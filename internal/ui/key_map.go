package ui

import "github.com/charmbracelet/bubbles/key"

// keyMap defines the [key.Binding] mapping for the TUI.
type keyMap struct {
	submit       key.Binding
	quality      key.Binding
	sponsorBlock key.Binding
	thumbnail    key.Binding
	drawer       key.Binding
	up           key.Binding
	down         key.Binding
	buy          key.Binding
	refresh      key.Binding
	back         key.Binding
	quit         key.Binding
}

func newKeyMap() keyMap {
	return keyMap{
		submit:       key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "send")),
		quality:      key.NewBinding(key.WithKeys("tab"), key.WithHelp("tab", "quality")),
		sponsorBlock: key.NewBinding(key.WithKeys("ctrl+s"), key.WithHelp("ctrl+s", "sponsorblock")),
		thumbnail:    key.NewBinding(key.WithKeys("ctrl+t"), key.WithHelp("ctrl+t", "thumbnail")),
		drawer:       key.NewBinding(key.WithKeys("ctrl+o"), key.WithHelp("ctrl+o", "credits")),
		up:           key.NewBinding(key.WithKeys("up", "k"), key.WithHelp("↑/k", "up")),
		down:         key.NewBinding(key.WithKeys("down", "j"), key.WithHelp("↓/j", "down")),
		buy:          key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "buy")),
		refresh:      key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "refresh")),
		back:         key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "maybe later")),
		quit:         key.NewBinding(key.WithKeys("ctrl+c"), key.WithHelp("ctrl+c", "quit")),
	}
}

func (k keyMap) chatHelp() []key.Binding {
	return []key.Binding{k.submit, k.quality, k.sponsorBlock, k.thumbnail, k.drawer, k.quit}
}

func (k keyMap) drawerHelp() []key.Binding {
	return []key.Binding{k.up, k.down, k.buy, k.refresh, k.back, k.quit}
}
