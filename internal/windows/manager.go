// Package windows creates and tracks the native windows hosting the remote
// web app, and enforces their navigation contract.
package windows

import (
	"fmt"
	"net/url"
	"strings"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/replit/desktop/internal/config"
	"github.com/replit/desktop/internal/events"
	"github.com/replit/desktop/internal/native"
	"github.com/replit/desktop/internal/pages"
	"github.com/replit/desktop/internal/platform"
	"github.com/replit/desktop/internal/store"
)

// UserAgentSuffix tags outgoing requests so the remote side can tell desktop
// windows from browser tabs.
const UserAgentSuffix = "ReplitDesktop"

const (
	minWindowWidth  = 500
	minWindowHeight = 420
)

// cssColorCapture reads the theme variables the remote app exposes on the
// document body.
const (
	backgroundCaptureJS = `getComputedStyle(document.body).getPropertyValue('--background-root');`
	foregroundCaptureJS = `getComputedStyle(document.body).getPropertyValue('--foreground-default');`
)

// vscodeScheme is the one editor deep-link scheme content may hand to the OS.
const vscodeScheme = "vscode"

// startupGlobalsJS exposes the host to content before any of its scripts run.
const startupGlobalsJS = `window.replitDesktop = Object.freeze({isDesktopApp: true, version: %q, platform: %q});`

// Manager owns every window session in the process. Multiple simultaneously
// open windows are a supported case, not an error.
type Manager struct {
	host  native.Host
	prefs *store.Store
	app   config.AppConfig

	origin string // scheme://host of the trusted origin

	// allowedSchemes may be handed to the OS external handler. Anything
	// else is denied outright.
	allowedSchemes map[string]bool

	version string

	mu       sync.Mutex
	sessions []*Session
}

// NewManager wires a window manager against the given native host and
// preferences store.
func NewManager(host native.Host, prefs *store.Store, app config.AppConfig) *Manager {
	return &Manager{
		host:   host,
		prefs:  prefs,
		app:    app,
		origin: originOf(app.BaseURL),
		allowedSchemes: map[string]bool{
			"http":       true,
			"https":      true,
			app.Scheme:   true,
			vscodeScheme: true,
		},
	}
}

// originOf normalizes a URL down to scheme://host.
func originOf(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return strings.TrimRight(raw, "/")
	}
	return u.Scheme + "://" + u.Host
}

// SetVersion records the build version exposed to content through the
// startup globals.
func (m *Manager) SetVersion(version string) {
	m.version = version
}

// SchemeAllowed reports whether a URL scheme may be handed to the OS
// external handler.
func (m *Manager) SchemeAllowed(scheme string) bool {
	return m.allowedSchemes[scheme]
}

// Origin returns the trusted origin windows are restricted to.
func (m *Manager) Origin() string {
	return m.origin
}

// HomeURL is the absolute URL of the in-app home page.
func (m *Manager) HomeURL() string {
	return m.origin + m.app.HomePage
}

// AuthURL is the absolute URL of the dedicated auth page.
func (m *Manager) AuthURL() string {
	return m.origin + m.app.AuthPage
}

// ResolveURL turns an open target into an absolute URL: an absolute path is
// prefixed with the trusted origin, an empty target becomes the default auth
// URL, anything else is taken as-is.
func (m *Manager) ResolveURL(target string) string {
	if target == "" {
		return m.AuthURL()
	}
	if strings.HasPrefix(target, "/") {
		return m.origin + target
	}
	return target
}

// Open creates a new window loading the resolved target URL, restoring
// persisted bounds and theme, and wiring the navigation guards.
func (m *Manager) Open(target string) (*Session, error) {
	loadURL := m.ResolveURL(target)

	sess := &Session{}
	opts := native.WindowOptions{
		URL:             loadURL,
		Title:           m.app.Name,
		MinWidth:        minWindowWidth,
		MinHeight:       minWindowHeight,
		Bounds:          m.restoreBounds(),
		BackgroundColor: m.prefs.LastSeenBackgroundColor(),
		ForegroundColor: m.prefs.LastSeenForegroundColor(),
		UserAgentSuffix: UserAgentSuffix,
		// Always fetch the freshest remote build on first load.
		BypassCache: true,
		InitScript:  fmt.Sprintf(startupGlobalsJS, m.version, platform.Name()),

		OnWillNavigate: func(raw string) bool { return m.guardNavigation(sess, raw) },
		OnWindowOpen:   func(raw string) bool { return m.guardWindowOpen(sess, raw) },
		OnNavigated:    func(raw string) { m.trackLastOpenRepl(raw) },
		OnFocus:        func() { m.handleFocus(sess) },
		OnBlur:         func() { sess.Emit(events.FocusChanged, false) },
		OnFullScreenChange: func(fullScreen bool) {
			sess.Emit(events.FullScreenChanged, fullScreen)
		},
		OnClose: func() { m.handleClose(sess) },
	}

	win, err := m.host.NewWindow(opts)
	if err != nil {
		return nil, err
	}
	sess.win = win
	sess.id = win.ID()

	// Windows opened before a workspace switch still learn about it.
	sess.disposers = append(sess.disposers, m.prefs.OnChange(store.KeyLastOpenRepl, func() {
		path, _ := m.prefs.LastOpenRepl()
		sess.Emit(events.LastOpenReplChanged, path)
	}))

	m.mu.Lock()
	m.sessions = append(m.sessions, sess)
	m.mu.Unlock()

	log.Info().Str("window", sess.id).Str("url", loadURL).Msg("window opened")
	return sess, nil
}

// restoreBounds returns the persisted bounds when they are still visible on
// a connected display; otherwise it clears them and fills the work area of
// the display nearest the pointer.
func (m *Manager) restoreBounds() *native.Rect {
	displays := m.host.Displays()

	if b, ok := m.prefs.WindowBounds(); ok {
		r := native.Rect{X: b.X, Y: b.Y, Width: b.Width, Height: b.Height}
		if IsInBounds(r, displays) {
			return &r
		}
		log.Debug().Msg("stored window bounds off-screen, falling back to display placement")
		m.prefs.ClearWindowBounds()
	}

	d := displayNearest(displays, m.host.CursorPoint())
	if d.WorkArea.Width == 0 || d.WorkArea.Height == 0 {
		return nil
	}
	wa := d.WorkArea
	return &wa
}

// guardNavigation enforces the trusted origin and page policy on every
// full-page navigation. Rejected URLs with an allowed scheme are handed to
// the OS instead, but only for the focused window.
func (m *Manager) guardNavigation(sess *Session, raw string) bool {
	u, err := url.Parse(raw)
	if err != nil || u.Scheme == "" {
		log.Debug().Str("url", raw).Msg("blocked malformed navigation")
		return false
	}

	if u.Scheme+"://"+u.Host == m.origin && pages.IsSupportedPage(u.Path) {
		return true
	}

	m.openExternally(sess, raw, u.Scheme)
	return false
}

// guardWindowOpen handles content asking for a new native window or tab. The
// request never opens a window in-app; at most the URL goes to the OS.
// Reports whether the URL was handed off.
func (m *Manager) guardWindowOpen(sess *Session, raw string) bool {
	u, err := url.Parse(raw)
	if err != nil || !m.allowedSchemes[u.Scheme] {
		log.Warn().Str("url", raw).Msg("denied window open with disallowed scheme")
		return false
	}
	return m.openExternally(sess, raw, u.Scheme)
}

// openExternally hands the URL to the OS default handler, provided its
// scheme is allowed and the requesting window has focus. A background window
// must not be able to steal focus by spawning browser windows.
func (m *Manager) openExternally(sess *Session, raw, scheme string) bool {
	if !m.allowedSchemes[scheme] {
		log.Debug().Str("url", raw).Msg("dropped navigation with disallowed scheme")
		return false
	}
	if !sess.IsFocused() {
		log.Debug().Str("url", raw).Msg("suppressed external open from unfocused window")
		return false
	}
	if err := m.host.OpenExternal(raw); err != nil {
		log.Warn().Err(err).Str("url", raw).Msg("failed to open external URL")
		return false
	}
	return true
}

// trackLastOpenRepl records the workspace the user is looking at. The home
// page clears the record; identical paths are skipped by the store.
func (m *Manager) trackLastOpenRepl(raw string) {
	if raw == "" {
		return
	}
	u, err := url.Parse(raw)
	if err != nil {
		return
	}
	if u.Scheme+"://"+u.Host != m.origin {
		return
	}

	if u.Path == m.app.HomePage {
		if _, ok := m.prefs.LastOpenRepl(); ok {
			m.prefs.ClearLastOpenRepl()
		}
		return
	}

	if !pages.IsWorkspacePath(u.Path) {
		return
	}
	m.prefs.SetLastOpenRepl(u.Path)
}

func (m *Manager) handleFocus(sess *Session) {
	m.trackLastOpenRepl(sess.URL())
	sess.Emit(events.FocusChanged, true)
}

// handleClose flushes bounds and theme colors before the window handle
// becomes invalid, then releases the session's subscriptions.
func (m *Manager) handleClose(sess *Session) {
	m.captureThemeColors(sess)

	if b := sess.win.Bounds(); b.Width > 0 && b.Height > 0 {
		m.prefs.SetWindowBounds(store.Bounds{X: b.X, Y: b.Y, Width: b.Width, Height: b.Height})
	}

	for _, dispose := range sess.disposers {
		dispose()
	}
	sess.disposers = nil

	m.mu.Lock()
	for i, s := range m.sessions {
		if s == sess {
			m.sessions = append(m.sessions[:i], m.sessions[i+1:]...)
			break
		}
	}
	m.mu.Unlock()

	log.Info().Str("window", sess.id).Msg("window closed")
}

// captureThemeColors reads the page's theme variables for the next launch.
// The window may already be gone by the time the evaluation returns; that is
// not an error, the capture is simply skipped.
func (m *Manager) captureThemeColors(sess *Session) {
	background, err := sess.win.EvalJS(backgroundCaptureJS)
	if err != nil {
		log.Debug().Err(err).Str("window", sess.id).Msg("skipped theme capture on close")
		return
	}
	foreground, err := sess.win.EvalJS(foregroundCaptureJS)
	if err != nil {
		log.Debug().Err(err).Str("window", sess.id).Msg("skipped theme capture on close")
		return
	}

	if c := strings.TrimSpace(background); c != "" {
		m.prefs.SetLastSeenBackgroundColor(c)
	}
	if c := strings.TrimSpace(foreground); c != "" {
		m.prefs.SetLastSeenForegroundColor(c)
	}
}

// ApplyTheme persists the colors the content reported and restyles the
// calling window.
func (m *Manager) ApplyTheme(sess *Session, background, foreground string) {
	m.prefs.SetLastSeenBackgroundColor(background)
	m.prefs.SetLastSeenForegroundColor(foreground)

	if sess == nil {
		return
	}
	sess.win.SetBackgroundColor(background)
	if platform.HasTitleBarOverlay() {
		sess.win.SetTitleBarColors(background, foreground)
	}
}

// All returns the open sessions in creation order.
func (m *Manager) All() []*Session {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*Session, len(m.sessions))
	copy(out, m.sessions)
	return out
}

// Count returns the number of open sessions.
func (m *Manager) Count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}

// Get returns the session for a window id, or nil if it is already gone.
func (m *Manager) Get(id string) *Session {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, s := range m.sessions {
		if s.id == id {
			return s
		}
	}
	return nil
}

// FocusedOrFirst returns the focused session, the first open one when none
// has focus, or nil when no windows exist.
func (m *Manager) FocusedOrFirst() *Session {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, s := range m.sessions {
		if s.IsFocused() {
			return s
		}
	}
	if len(m.sessions) > 0 {
		return m.sessions[0]
	}
	return nil
}

// FindByURLPrefix returns the first session whose URL starts with the given
// prefix, or nil.
func (m *Manager) FindByURLPrefix(prefix string) *Session {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, s := range m.sessions {
		if strings.HasPrefix(s.URL(), prefix) {
			return s
		}
	}
	return nil
}

// CloseOthers closes every session except keep.
func (m *Manager) CloseOthers(keep *Session) {
	for _, s := range m.All() {
		if s != keep {
			s.Close()
		}
	}
}

// CloseAll closes every session.
func (m *Manager) CloseAll() {
	m.CloseOthers(nil)
}
