package ui

import (
	tea "github.com/charmbracelet/bubbletea"

	"github.com/verse91/clipy/internal/clip"
	"github.com/verse91/clipy/internal/credits"
)

// MsgKind enumerates all message types in the application.
type MsgKind int

// Msg represents all possible messages in the TUI (Elm-style message union).
type Msg struct {
	kind MsgKind
	data any
}

var (
	_ tea.Msg = Msg{}
)

const (
	MsgChatChanged MsgKind = iota
	MsgBalanceFetched
	MsgCheckoutOpened
)

// chatChangedMsg is the constructor for [MsgChatChanged]
func chatChangedMsg(state clip.State) Msg {
	return Msg{kind: MsgChatChanged, data: state}
}

// balanceFetchedMsg is the constructor for [MsgBalanceFetched]
func balanceFetchedMsg(state credits.State) Msg {
	return Msg{kind: MsgBalanceFetched, data: state}
}

// checkoutOpenedMsg is the constructor for [MsgCheckoutOpened]
func checkoutOpenedMsg(url string, err error) Msg {
	return Msg{
		kind: MsgCheckoutOpened,
		data: struct {
			url string
			err error
		}{url, err},
	}
}
