// Package handshake coordinates the sign-in modal and the cross-window OAuth handshake.
//
// # Attempts
//
// Every call to [Modal.SignIn] starts a new attempt identified by a uuid token. Starting an attempt
// releases the previous one first: its window is closed, its poll goroutine is cancelled and its
// message subscription is dropped. Poll ticks and delivered messages are checked against the live
// token under the modal lock, so a late tick from a closed popup never touches a newer attempt.
//
// # Popup flow
//
// Desktop clients open a 400x500 window at <origin>/auth/signin?attempt=<token>. The callback page
// answers with an AUTH_SUCCESS or AUTH_ERROR [Message] published on the [Bus]. A poll loop watches
// the window and clears the loading state, without an error, once the user closes it.
//
// # Redirect flow
//
// Mobile user agents skip the popup. The modal asks the [Authorizer] for the provider URL, sends the
// same window there and stays loading until [Modal.UserChanged] reports a signed-in user.
package handshake
