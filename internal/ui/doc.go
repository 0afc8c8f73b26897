// Package ui implements the terminal front using bubbletea's Elm architecture.
//
// The [Model] has two views:
//  1. [ChatView] : paste a link, pick output options and submit it
//  2. [DrawerView] : the signed-in balance and the credit plans, with a checkout link per plan
//
// Chat box changes arrive from a [clip.Box] whose timer runs outside the program. The box only signals that
// something changed and the model re-reads its snapshot, so notifications coalesce instead of queueing.
//
// Keyboard: enter submits, tab cycles the quality, ctrl+s and ctrl+t toggle SponsorBlock and the thumbnail,
// ctrl+o opens the drawer. In the drawer j/k move, enter opens checkout, r refreshes the balance and esc goes back.
package ui
