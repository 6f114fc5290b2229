// Package testutil provides shared fakes for the desktop shell tests: an
// in-memory window host with a configurable display layout.
package testutil

import (
	"fmt"
	"strings"
	"sync"

	"github.com/replit/desktop/internal/native"
)

// FakeWindow implements native.Window in memory and records interactions.
// The lifecycle callbacks from its WindowOptions can be driven explicitly via
// the Trigger methods.
type FakeWindow struct {
	mu   sync.Mutex
	id   string
	opts native.WindowOptions

	url        string
	bounds     native.Rect
	focused    bool
	fullScreen bool
	closing    bool
	closed     bool

	background string
	foreground string

	// EvalResults maps a script substring to the value EvalJS returns for
	// it. Scripts with no match return an empty string.
	EvalResults map[string]string

	// EvalErr, when set, makes every EvalJS call fail. Used to simulate a
	// window that disappeared mid-capture.
	EvalErr error

	emitted []EmittedEvent
}

// EmittedEvent records one host-to-content event.
type EmittedEvent struct {
	Name    string
	Payload any
}

func (w *FakeWindow) ID() string { return w.id }

func (w *FakeWindow) URL() string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.url
}

func (w *FakeWindow) SetURL(url string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return
	}
	w.url = url
}

func (w *FakeWindow) Bounds() native.Rect {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.bounds
}

func (w *FakeWindow) SetBounds(r native.Rect) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.bounds = r
}

func (w *FakeWindow) Focus() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return
	}
	w.focused = true
}

func (w *FakeWindow) IsFocused() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.focused
}

func (w *FakeWindow) IsFullScreen() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.fullScreen
}

func (w *FakeWindow) SetBackgroundColor(color string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.background = color
}

func (w *FakeWindow) SetTitleBarColors(background, foreground string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.background = background
	w.foreground = foreground
}

func (w *FakeWindow) EvalJS(js string) (string, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return "", fmt.Errorf("window %s is closed", w.id)
	}
	if w.EvalErr != nil {
		return "", w.EvalErr
	}
	for needle, result := range w.EvalResults {
		if strings.Contains(js, needle) {
			return result, nil
		}
	}
	return "", nil
}

func (w *FakeWindow) Emit(event string, payload any) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return
	}
	w.emitted = append(w.emitted, EmittedEvent{Name: event, Payload: payload})
}

// Close fires the OnClose callback while the window is still evaluable, then
// marks it closed, like the real host does when the user closes a window.
func (w *FakeWindow) Close() {
	w.mu.Lock()
	if w.closed || w.closing {
		w.mu.Unlock()
		return
	}
	w.closing = true
	onClose := w.opts.OnClose
	w.mu.Unlock()

	if onClose != nil {
		onClose()
	}

	w.mu.Lock()
	w.closed = true
	w.mu.Unlock()
}

// IsClosed reports whether Close was called.
func (w *FakeWindow) IsClosed() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.closed
}

// Background returns the last applied background color.
func (w *FakeWindow) Background() string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.background
}

// Foreground returns the last applied title-bar symbol color.
func (w *FakeWindow) Foreground() string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.foreground
}

// Emitted returns a copy of the events pushed to content.
func (w *FakeWindow) Emitted() []EmittedEvent {
	w.mu.Lock()
	defer w.mu.Unlock()
	out := make([]EmittedEvent, len(w.emitted))
	copy(out, w.emitted)
	return out
}

// Options returns the WindowOptions the window was created with.
func (w *FakeWindow) Options() native.WindowOptions {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.opts
}

// SetFocused flips the focus flag without firing callbacks.
func (w *FakeWindow) SetFocused(focused bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.focused = focused
}

// TriggerFocus simulates the window gaining OS focus.
func (w *FakeWindow) TriggerFocus() {
	w.mu.Lock()
	w.focused = true
	fn := w.opts.OnFocus
	w.mu.Unlock()
	if fn != nil {
		fn()
	}
}

// TriggerBlur simulates the window losing OS focus.
func (w *FakeWindow) TriggerBlur() {
	w.mu.Lock()
	w.focused = false
	fn := w.opts.OnBlur
	w.mu.Unlock()
	if fn != nil {
		fn()
	}
}

// TriggerFullScreen simulates a full-screen transition.
func (w *FakeWindow) TriggerFullScreen(fullScreen bool) {
	w.mu.Lock()
	w.fullScreen = fullScreen
	fn := w.opts.OnFullScreenChange
	w.mu.Unlock()
	if fn != nil {
		fn(fullScreen)
	}
}

// TriggerNavigation simulates a full-page navigation attempt and reports
// whether the guard allowed it. Allowed navigations update the window URL.
func (w *FakeWindow) TriggerNavigation(url string) bool {
	w.mu.Lock()
	guard := w.opts.OnWillNavigate
	w.mu.Unlock()

	if guard != nil && !guard(url) {
		return false
	}
	w.SetURL(url)
	return true
}

// TriggerInPageNavigation simulates an in-page route change.
func (w *FakeWindow) TriggerInPageNavigation(url string) {
	w.SetURL(url)
	w.mu.Lock()
	fn := w.opts.OnNavigated
	w.mu.Unlock()
	if fn != nil {
		fn(url)
	}
}

// TriggerWindowOpen simulates content asking for a new window and reports
// whether the guard allowed handing the URL to the OS.
func (w *FakeWindow) TriggerWindowOpen(url string) bool {
	w.mu.Lock()
	guard := w.opts.OnWindowOpen
	w.mu.Unlock()
	if guard == nil {
		return true
	}
	return guard(url)
}

// FakeHost implements native.Host against an in-memory display layout.
type FakeHost struct {
	mu sync.Mutex

	// DisplayList is the fake display configuration. Defaults to a single
	// 1920x1080 display when empty.
	DisplayList []native.Display

	// Cursor is the fake pointer position.
	Cursor native.Point

	// MessageBoxResponse is returned by ShowMessageBox.
	MessageBoxResponse int

	// DirectoryResponse is returned by OpenDirectoryDialog. Empty means the
	// user cancelled.
	DirectoryResponse string

	// NewWindowErr, when set, makes NewWindow fail.
	NewWindowErr error

	windows      []*FakeWindow
	external     []string
	messageBoxes []native.MessageBoxOptions
	quitCalled   bool
	nextID       int
}

// NewFakeHost returns a host with one primary 1920x1080 display and a work
// area shrunk by a 40px taskbar.
func NewFakeHost() *FakeHost {
	return &FakeHost{
		DisplayList: []native.Display{
			{
				Bounds:   native.Rect{X: 0, Y: 0, Width: 1920, Height: 1080},
				WorkArea: native.Rect{X: 0, Y: 0, Width: 1920, Height: 1040},
				Primary:  true,
			},
		},
	}
}

func (h *FakeHost) Displays() []native.Display {
	h.mu.Lock()
	defer h.mu.Unlock()
	if len(h.DisplayList) == 0 {
		return []native.Display{{
			Bounds:   native.Rect{X: 0, Y: 0, Width: 1920, Height: 1080},
			WorkArea: native.Rect{X: 0, Y: 0, Width: 1920, Height: 1040},
			Primary:  true,
		}}
	}
	out := make([]native.Display, len(h.DisplayList))
	copy(out, h.DisplayList)
	return out
}

func (h *FakeHost) CursorPoint() native.Point {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.Cursor
}

func (h *FakeHost) NewWindow(opts native.WindowOptions) (native.Window, error) {
	h.mu.Lock()
	if h.NewWindowErr != nil {
		err := h.NewWindowErr
		h.mu.Unlock()
		return nil, err
	}
	h.nextID++
	w := &FakeWindow{
		id:         fmt.Sprintf("window-%d", h.nextID),
		opts:       opts,
		url:        opts.URL,
		background: opts.BackgroundColor,
		foreground: opts.ForegroundColor,
		bounds:     native.Rect{X: 0, Y: 0, Width: 1280, Height: 800},
	}
	if opts.Bounds != nil {
		w.bounds = *opts.Bounds
	}
	h.windows = append(h.windows, w)
	h.mu.Unlock()
	return w, nil
}

func (h *FakeHost) OpenExternal(url string) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.external = append(h.external, url)
	return nil
}

func (h *FakeHost) ShowMessageBox(opts native.MessageBoxOptions) (int, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.messageBoxes = append(h.messageBoxes, opts)
	return h.MessageBoxResponse, nil
}

func (h *FakeHost) OpenDirectoryDialog(title string) (string, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.DirectoryResponse, nil
}

func (h *FakeHost) Quit() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.quitCalled = true
}

// Windows returns every window the host created, open or closed.
func (h *FakeHost) Windows() []*FakeWindow {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]*FakeWindow, len(h.windows))
	copy(out, h.windows)
	return out
}

// OpenWindows returns the windows that are still open.
func (h *FakeHost) OpenWindows() []*FakeWindow {
	h.mu.Lock()
	defer h.mu.Unlock()
	var out []*FakeWindow
	for _, w := range h.windows {
		if !w.IsClosed() {
			out = append(out, w)
		}
	}
	return out
}

// ExternalOpens returns every URL handed to the OS external handler.
func (h *FakeHost) ExternalOpens() []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]string, len(h.external))
	copy(out, h.external)
	return out
}

// MessageBoxes returns every dialog shown.
func (h *FakeHost) MessageBoxes() []native.MessageBoxOptions {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]native.MessageBoxOptions, len(h.messageBoxes))
	copy(out, h.messageBoxes)
	return out
}

// QuitCalled reports whether Quit was invoked.
func (h *FakeHost) QuitCalled() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.quitCalled
}
