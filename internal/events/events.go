// Package events names the host-to-content events of the bridge protocol.
// These are wire names: the remote web app subscribes to them by string, so
// they must stay stable across host releases.
package events

const (
	// AuthTokenReceived delivers the auth token exactly once per completed
	// authentication handoff.
	AuthTokenReceived = "authTokenReceived"

	// FullScreenChanged mirrors the window's full-screen transitions.
	FullScreenChanged = "fullScreenChanged"

	// FocusChanged mirrors the window's focus transitions.
	FocusChanged = "focusChanged"

	// LastOpenReplChanged tells windows opened earlier in the process
	// lifetime that the tracked workspace changed.
	LastOpenReplChanged = "lastOpenReplChanged"
)
