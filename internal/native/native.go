// Package native defines the capability surface the desktop core needs from
// the OS windowing layer. Core packages depend only on these interfaces; the
// wails-backed implementation lives in native/wailshost and tests use the
// fakes in internal/testutil.
package native

// Point is a position in virtual screen coordinates.
type Point struct {
	X int
	Y int
}

// Rect is a rectangle in virtual screen coordinates.
type Rect struct {
	X      int
	Y      int
	Width  int
	Height int
}

// Display describes one connected display.
type Display struct {
	// Bounds is the full area of the display.
	Bounds Rect

	// WorkArea is the usable area, excluding taskbars and docks.
	WorkArea Rect

	// Primary marks the OS primary display.
	Primary bool
}

// Screens exposes the current display configuration and pointer position.
type Screens interface {
	Displays() []Display
	CursorPoint() Point
}

// MessageBoxOptions describes a native modal dialog.
type MessageBoxOptions struct {
	Type    string   `json:"type"` // info, warning, error, question
	Title   string   `json:"title"`
	Message string   `json:"message"`
	Detail  string   `json:"detail"`
	Buttons []string `json:"buttons"`
}

// WindowOptions configures a new native window. The guard callbacks are
// invoked by the host on the corresponding OS events; a nil callback permits
// everything.
type WindowOptions struct {
	URL       string
	Title     string
	MinWidth  int
	MinHeight int

	// Bounds places the window explicitly. Nil lets the host pick.
	Bounds *Rect

	// Theme colors applied to the window chrome before content paints.
	BackgroundColor string
	ForegroundColor string

	// UserAgentSuffix is appended to the webview's outgoing user agent.
	UserAgentSuffix string

	// BypassCache forces the initial navigation to skip the HTTP cache.
	BypassCache bool

	// InitScript runs in the page as soon as the runtime is ready, before
	// content scripts can observe the environment.
	InitScript string

	// OnWillNavigate is consulted before every full-page navigation.
	// Returning false cancels it.
	OnWillNavigate func(url string) bool

	// OnWindowOpen is consulted when content asks for a new window or tab.
	// Returning false denies the request; the host never opens the window
	// itself either way.
	OnWindowOpen func(url string) bool

	// OnNavigated fires after an in-page navigation commits.
	OnNavigated func(url string)

	OnFocus            func()
	OnBlur             func()
	OnFullScreenChange func(fullScreen bool)
	OnClose            func()
}

// Window is a live native window. Implementations must tolerate calls after
// the underlying window is gone by degrading to no-ops or errors, never
// panics.
type Window interface {
	ID() string
	URL() string
	SetURL(url string)
	Bounds() Rect
	SetBounds(Rect)
	Focus()
	IsFocused() bool
	IsFullScreen() bool
	SetBackgroundColor(color string)

	// SetTitleBarColors restyles the title-bar overlay on platforms that
	// draw one; elsewhere it is a no-op.
	SetTitleBarColors(background, foreground string)

	// EvalJS evaluates script inside the page and returns its result.
	// Fails if the window is already gone.
	EvalJS(js string) (string, error)

	// Emit pushes a named event to the hosted content.
	Emit(event string, payload any)

	Close()
}

// Host creates windows and fronts the remaining OS services the shell needs.
type Host interface {
	Screens

	NewWindow(opts WindowOptions) (Window, error)

	// OpenExternal hands a URL to the OS default handler.
	OpenExternal(url string) error

	// ShowMessageBox shows a modal dialog and returns the index of the
	// chosen button.
	ShowMessageBox(opts MessageBoxOptions) (int, error)

	// OpenDirectoryDialog shows a directory picker. Returns an empty path
	// when the user cancels.
	OpenDirectoryDialog(title string) (string, error)

	Quit()
}
