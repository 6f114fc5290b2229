package windows

import (
	"errors"
	"strings"
	"testing"

	"github.com/replit/desktop/internal/config"
	"github.com/replit/desktop/internal/events"
	"github.com/replit/desktop/internal/native"
	"github.com/replit/desktop/internal/store"
	"github.com/replit/desktop/internal/testutil"
)

func testAppConfig() config.AppConfig {
	return config.AppConfig{
		Name:                   "Replit",
		Scheme:                 "replit",
		BaseURL:                "https://replit.com",
		HomePage:               "/desktopApp/home",
		AuthPage:               "/desktopApp/login",
		DefaultNewReplLanguage: "python3",
	}
}

func newTestManager(t *testing.T) (*Manager, *testutil.FakeHost, *store.Store) {
	t.Helper()
	host := testutil.NewFakeHost()
	prefs := store.New(t.TempDir(), "test")
	return NewManager(host, prefs, testAppConfig()), host, prefs
}

func mustOpen(t *testing.T, m *Manager, target string) *Session {
	t.Helper()
	sess, err := m.Open(target)
	if err != nil {
		t.Fatalf("Open(%q) error = %v", target, err)
	}
	return sess
}

func fakeFor(t *testing.T, host *testutil.FakeHost, sess *Session) *testutil.FakeWindow {
	t.Helper()
	for _, w := range host.Windows() {
		if w.ID() == sess.ID() {
			return w
		}
	}
	t.Fatalf("no fake window for session %s", sess.ID())
	return nil
}

func TestOpen_DefaultURLIsAuthPage(t *testing.T) {
	m, _, _ := newTestManager(t)
	sess := mustOpen(t, m, "")

	if got := sess.URL(); got != "https://replit.com/desktopApp/login" {
		t.Errorf("default URL = %q", got)
	}
}

func TestOpen_ResolvesAbsolutePathAgainstOrigin(t *testing.T) {
	m, _, _ := newTestManager(t)
	sess := mustOpen(t, m, "/@alice/my-project")

	if got := sess.URL(); got != "https://replit.com/@alice/my-project" {
		t.Errorf("URL = %q", got)
	}
}

func TestOpen_KeepsFullURL(t *testing.T) {
	m, _, _ := newTestManager(t)
	sess := mustOpen(t, m, "https://replit.com/desktopApp/home")

	if got := sess.URL(); got != "https://replit.com/desktopApp/home" {
		t.Errorf("URL = %q", got)
	}
}

func TestOpen_AppliesStoredTheme(t *testing.T) {
	m, host, prefs := newTestManager(t)
	prefs.SetLastSeenBackgroundColor("#101010")
	prefs.SetLastSeenForegroundColor("#EEEEEE")

	sess := mustOpen(t, m, "")
	w := fakeFor(t, host, sess)

	if w.Background() != "#101010" || w.Foreground() != "#EEEEEE" {
		t.Errorf("window colors = %q/%q", w.Background(), w.Foreground())
	}
	if opts := w.Options(); opts.UserAgentSuffix != UserAgentSuffix {
		t.Errorf("user agent suffix = %q", opts.UserAgentSuffix)
	}
	if opts := w.Options(); !opts.BypassCache {
		t.Error("initial load should bypass the HTTP cache")
	}
}

func TestOpen_InjectsStartupGlobals(t *testing.T) {
	m, host, _ := newTestManager(t)
	m.SetVersion("1.2.3")

	sess := mustOpen(t, m, "")
	w := fakeFor(t, host, sess)

	script := w.Options().InitScript
	if !strings.Contains(script, `"1.2.3"`) || !strings.Contains(script, "isDesktopApp") {
		t.Errorf("init script = %q", script)
	}
}

func TestOpen_RestoresStoredBounds(t *testing.T) {
	m, host, prefs := newTestManager(t)
	prefs.SetWindowBounds(store.Bounds{X: 50, Y: 60, Width: 900, Height: 700})

	sess := mustOpen(t, m, "")
	w := fakeFor(t, host, sess)

	want := native.Rect{X: 50, Y: 60, Width: 900, Height: 700}
	if got := w.Bounds(); got != want {
		t.Errorf("bounds = %+v, want %+v", got, want)
	}
}

func TestOpen_OffScreenBoundsClearedAndFallback(t *testing.T) {
	m, host, prefs := newTestManager(t)
	// Way past the fake 1920x1040 work area.
	prefs.SetWindowBounds(store.Bounds{X: 5000, Y: 60, Width: 900, Height: 700})

	sess := mustOpen(t, m, "")
	w := fakeFor(t, host, sess)

	// Falls back to the work area of the display nearest the cursor.
	want := native.Rect{X: 0, Y: 0, Width: 1920, Height: 1040}
	if got := w.Bounds(); got != want {
		t.Errorf("bounds = %+v, want %+v", got, want)
	}
	if _, ok := prefs.WindowBounds(); ok {
		t.Error("off-screen bounds were not cleared")
	}
}

func TestOpen_FallbackUsesDisplayNearestCursor(t *testing.T) {
	host := testutil.NewFakeHost()
	host.DisplayList = []native.Display{
		{WorkArea: native.Rect{X: 0, Y: 0, Width: 1920, Height: 1040}, Primary: true},
		{WorkArea: native.Rect{X: 1920, Y: 0, Width: 2560, Height: 1400}},
	}
	host.Cursor = native.Point{X: 3000, Y: 700}
	prefs := store.New(t.TempDir(), "test")
	m := NewManager(host, prefs, testAppConfig())

	sess := mustOpen(t, m, "")
	w := fakeFor(t, host, sess)

	want := native.Rect{X: 1920, Y: 0, Width: 2560, Height: 1400}
	if got := w.Bounds(); got != want {
		t.Errorf("bounds = %+v, want %+v", got, want)
	}
}

func TestNavigationGuard_AllowsSupportedPages(t *testing.T) {
	m, host, _ := newTestManager(t)
	sess := mustOpen(t, m, "")
	w := fakeFor(t, host, sess)

	for _, u := range []string{
		"https://replit.com/desktopApp/home",
		"https://replit.com/@alice/my-project",
		"https://replit.com/t/acme/1234/repls/backend",
		"https://replit.com/logout",
	} {
		if !w.TriggerNavigation(u) {
			t.Errorf("navigation to %q blocked", u)
		}
	}
}

func TestNavigationGuard_BlocksAndRedirectsWhenFocused(t *testing.T) {
	m, host, _ := newTestManager(t)
	sess := mustOpen(t, m, "")
	w := fakeFor(t, host, sess)
	w.SetFocused(true)

	if w.TriggerNavigation("https://evil.example/phish") {
		t.Error("navigation away from the trusted origin was allowed")
	}
	if w.TriggerNavigation("https://replit.com/signup") {
		t.Error("navigation to unsupported page was allowed")
	}

	ext := host.ExternalOpens()
	if len(ext) != 2 || ext[0] != "https://evil.example/phish" || ext[1] != "https://replit.com/signup" {
		t.Errorf("external opens = %v", ext)
	}
}

func TestNavigationGuard_NoRedirectWhenUnfocused(t *testing.T) {
	m, host, _ := newTestManager(t)
	sess := mustOpen(t, m, "")
	w := fakeFor(t, host, sess)
	w.SetFocused(false)

	if w.TriggerNavigation("https://evil.example/phish") {
		t.Error("navigation away from the trusted origin was allowed")
	}
	if got := host.ExternalOpens(); len(got) != 0 {
		t.Errorf("unfocused window caused external opens: %v", got)
	}
}

func TestNavigationGuard_MalformedURLNeverPanics(t *testing.T) {
	m, host, _ := newTestManager(t)
	sess := mustOpen(t, m, "")
	w := fakeFor(t, host, sess)

	for _, u := range []string{"", ":", "%%%", "not a url"} {
		if w.TriggerNavigation(u) {
			t.Errorf("malformed navigation %q allowed", u)
		}
	}
	if got := host.ExternalOpens(); len(got) != 0 {
		t.Errorf("malformed URLs reached the external handler: %v", got)
	}
}

func TestWindowOpenGuard_DisallowedSchemeDenied(t *testing.T) {
	m, host, _ := newTestManager(t)
	sess := mustOpen(t, m, "")
	w := fakeFor(t, host, sess)
	w.SetFocused(true)

	if w.TriggerWindowOpen("file:///etc/passwd") {
		t.Error("file: scheme was handed to the OS")
	}
	if w.TriggerWindowOpen("javascript:alert(1)") {
		t.Error("javascript: scheme was handed to the OS")
	}
	if got := host.ExternalOpens(); len(got) != 0 {
		t.Errorf("external opens = %v", got)
	}
}

func TestWindowOpenGuard_AllowedSchemeGoesExternalWhenFocused(t *testing.T) {
	m, host, _ := newTestManager(t)
	sess := mustOpen(t, m, "")
	w := fakeFor(t, host, sess)

	w.SetFocused(true)
	if !w.TriggerWindowOpen("https://docs.example/page") {
		t.Error("https target-blank link was not handed to the OS")
	}
	if !w.TriggerWindowOpen("vscode://open?file=x") {
		t.Error("editor deep link was not handed to the OS")
	}

	w.SetFocused(false)
	if w.TriggerWindowOpen("https://docs.example/other") {
		t.Error("background window was allowed to open a browser window")
	}

	ext := host.ExternalOpens()
	if len(ext) != 2 {
		t.Errorf("external opens = %v", ext)
	}
}

func TestLastOpenRepl_TrackedOnInPageNavigation(t *testing.T) {
	m, host, prefs := newTestManager(t)
	sess := mustOpen(t, m, "")
	w := fakeFor(t, host, sess)

	w.TriggerInPageNavigation("https://replit.com/@alice/my-project")
	if got, _ := prefs.LastOpenRepl(); got != "/@alice/my-project" {
		t.Errorf("lastOpenRepl = %q", got)
	}

	// Foreign origin never updates the record.
	w.TriggerInPageNavigation("https://evil.example/@bob/stolen")
	if got, _ := prefs.LastOpenRepl(); got != "/@alice/my-project" {
		t.Errorf("lastOpenRepl = %q after foreign navigation", got)
	}

	// Non-workspace pages leave it alone.
	w.TriggerInPageNavigation("https://replit.com/desktopApp/settings")
	if got, _ := prefs.LastOpenRepl(); got != "/@alice/my-project" {
		t.Errorf("lastOpenRepl = %q after non-workspace navigation", got)
	}

	// The home page clears it.
	w.TriggerInPageNavigation("https://replit.com/desktopApp/home")
	if _, ok := prefs.LastOpenRepl(); ok {
		t.Error("lastOpenRepl survived navigating home")
	}
}

func TestLastOpenRepl_TrackedOnFocus(t *testing.T) {
	m, host, prefs := newTestManager(t)
	sess := mustOpen(t, m, "/@alice/my-project")
	w := fakeFor(t, host, sess)

	w.TriggerFocus()
	if got, _ := prefs.LastOpenRepl(); got != "/@alice/my-project" {
		t.Errorf("lastOpenRepl = %q after focus", got)
	}
}

func TestFocusAndFullScreenEventsReachContent(t *testing.T) {
	m, host, _ := newTestManager(t)
	sess := mustOpen(t, m, "")
	w := fakeFor(t, host, sess)

	w.TriggerFocus()
	w.TriggerBlur()
	w.TriggerFullScreen(true)
	w.TriggerFullScreen(false)

	emitted := w.Emitted()
	if len(emitted) != 4 {
		t.Fatalf("emitted %d events, want 4: %v", len(emitted), emitted)
	}
	expect := []struct {
		name    string
		payload any
	}{
		{events.FocusChanged, true},
		{events.FocusChanged, false},
		{events.FullScreenChanged, true},
		{events.FullScreenChanged, false},
	}
	for i, e := range expect {
		if emitted[i].Name != e.name || emitted[i].Payload != e.payload {
			t.Errorf("event[%d] = %+v, want %s/%v", i, emitted[i], e.name, e.payload)
		}
	}
}

func TestClose_PersistsBoundsAndTheme(t *testing.T) {
	m, host, prefs := newTestManager(t)
	sess := mustOpen(t, m, "")
	w := fakeFor(t, host, sess)
	w.SetBounds(native.Rect{X: 11, Y: 22, Width: 1000, Height: 750})
	// Non-default colors so a skipped capture cannot pass as a successful one.
	w.EvalResults = map[string]string{
		"--background-root":    " #123456 ",
		"--foreground-default": "#654321",
	}

	sess.Close()

	b, ok := prefs.WindowBounds()
	if !ok || b != (store.Bounds{X: 11, Y: 22, Width: 1000, Height: 750}) {
		t.Errorf("persisted bounds = %+v, ok = %v", b, ok)
	}
	if got := prefs.LastSeenBackgroundColor(); got != "#123456" {
		t.Errorf("persisted background = %q", got)
	}
	if got := prefs.LastSeenForegroundColor(); got != "#654321" {
		t.Errorf("persisted foreground = %q", got)
	}
	if m.Count() != 0 {
		t.Errorf("session count = %d after close", m.Count())
	}
}

func TestClose_SkipsThemeCaptureWhenWindowGone(t *testing.T) {
	m, host, prefs := newTestManager(t)
	prefs.SetLastSeenBackgroundColor("#111111")
	sess := mustOpen(t, m, "")
	w := fakeFor(t, host, sess)
	w.EvalErr = errors.New("window destroyed")

	sess.Close()

	if got := prefs.LastSeenBackgroundColor(); got != "#111111" {
		t.Errorf("background overwritten by failed capture: %q", got)
	}
}

func TestClose_DisposesStoreSubscriptions(t *testing.T) {
	m, host, prefs := newTestManager(t)
	sess := mustOpen(t, m, "")
	w := fakeFor(t, host, sess)

	sess.Close()
	before := len(w.Emitted())

	// Mutating after close must not reach the closed window.
	prefs.SetLastOpenRepl("/@alice/my-project")
	if got := len(w.Emitted()); got != before {
		t.Errorf("closed window received %d new events", got-before)
	}
}

func TestLastOpenReplChange_PropagatedToOlderWindows(t *testing.T) {
	m, host, prefs := newTestManager(t)
	first := mustOpen(t, m, "")
	w1 := fakeFor(t, host, first)

	prefs.SetLastOpenRepl("/@alice/my-project")

	var saw bool
	for _, e := range w1.Emitted() {
		if e.Name == events.LastOpenReplChanged && e.Payload == "/@alice/my-project" {
			saw = true
		}
	}
	if !saw {
		t.Errorf("first window missed the change: %v", w1.Emitted())
	}
}

func TestApplyTheme(t *testing.T) {
	m, host, prefs := newTestManager(t)
	sess := mustOpen(t, m, "")
	w := fakeFor(t, host, sess)

	m.ApplyTheme(sess, "#222222", "#DDDDDD")

	if got := prefs.LastSeenBackgroundColor(); got != "#222222" {
		t.Errorf("persisted background = %q", got)
	}
	if got := w.Background(); got != "#222222" {
		t.Errorf("window background = %q", got)
	}
}

func TestFocusedOrFirst(t *testing.T) {
	m, host, _ := newTestManager(t)
	if m.FocusedOrFirst() != nil {
		t.Error("FocusedOrFirst() != nil with no windows")
	}

	a := mustOpen(t, m, "")
	b := mustOpen(t, m, "/desktopApp/home")

	if got := m.FocusedOrFirst(); got != a {
		t.Errorf("FocusedOrFirst() = %v, want first window", got)
	}

	fakeFor(t, host, b).SetFocused(true)
	if got := m.FocusedOrFirst(); got != b {
		t.Errorf("FocusedOrFirst() = %v, want focused window", got)
	}
}

func TestFindByURLPrefixAndCloseOthers(t *testing.T) {
	m, _, _ := newTestManager(t)
	auth := mustOpen(t, m, "/desktopApp/login?authToken=x")
	mustOpen(t, m, "/desktopApp/home")
	mustOpen(t, m, "/@alice/my-project")

	found := m.FindByURLPrefix("https://replit.com/desktopApp/login")
	if found != auth {
		t.Fatalf("FindByURLPrefix returned %v", found)
	}

	m.CloseOthers(found)
	if m.Count() != 1 || m.All()[0] != auth {
		t.Errorf("CloseOthers left %d sessions", m.Count())
	}
}
