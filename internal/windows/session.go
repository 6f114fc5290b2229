package windows

import (
	"github.com/replit/desktop/internal/native"
)

// Session is the host's handle to one open native window. The underlying
// window is owned by the OS; every method tolerates the window having already
// disappeared.
type Session struct {
	id  string
	win native.Window

	// disposers release store subscriptions tied to this window's
	// lifetime. Run exactly once, on close.
	disposers []func()
}

// ID returns the session's unique identifier.
func (s *Session) ID() string {
	return s.id
}

// URL returns the window's currently loaded URL.
func (s *Session) URL() string {
	return s.win.URL()
}

// Navigate points the window at a new URL.
func (s *Session) Navigate(url string) {
	s.win.SetURL(url)
}

// Focus restores and focuses the window.
func (s *Session) Focus() {
	s.win.Focus()
}

// IsFocused reports whether the window has OS focus.
func (s *Session) IsFocused() bool {
	return s.win.IsFocused()
}

// Emit pushes a named event to the window's content.
func (s *Session) Emit(event string, payload any) {
	s.win.Emit(event, payload)
}

// Close asks the OS to close the window. Persistence runs in the close
// callback wired by the manager.
func (s *Session) Close() {
	s.win.Close()
}
