package bridge

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/replit/desktop/internal/config"
	"github.com/replit/desktop/internal/dirsync"
	"github.com/replit/desktop/internal/store"
	"github.com/replit/desktop/internal/testutil"
	"github.com/replit/desktop/internal/windows"
)

type fakeUpdater struct {
	called    bool
	supported bool
}

func (u *fakeUpdater) CheckNow() bool {
	u.called = true
	return u.supported
}

type fixture struct {
	bridge  *Bridge
	mgr     *windows.Manager
	host    *testutil.FakeHost
	prefs   *store.Store
	svc     *Service
	updater *fakeUpdater
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	host := testutil.NewFakeHost()
	prefs := store.New(t.TempDir(), "test")
	mgr := windows.NewManager(host, prefs, config.AppConfig{
		Name:                   "Replit",
		Scheme:                 "replit",
		BaseURL:                "https://replit.com",
		HomePage:               "/desktopApp/home",
		AuthPage:               "/desktopApp/login",
		DefaultNewReplLanguage: "python3",
	})

	updater := &fakeUpdater{supported: true}
	svc := NewService(mgr, prefs, host, dirsync.NewManager(t.TempDir()), updater)

	reg := NewRegistry()
	reg.Use(WithLogging())
	svc.RegisterChannels(reg)

	return &fixture{
		bridge:  New(reg, mgr),
		mgr:     mgr,
		host:    host,
		prefs:   prefs,
		svc:     svc,
		updater: updater,
	}
}

func (f *fixture) invoke(t *testing.T, windowID, channel, params string) (any, *Error) {
	t.Helper()
	var raw json.RawMessage
	if params != "" {
		raw = json.RawMessage(params)
	}
	return f.bridge.Invoke(context.Background(), windowID, channel, raw)
}

func (f *fixture) open(t *testing.T, target string) *windows.Session {
	t.Helper()
	sess, err := f.mgr.Open(target)
	if err != nil {
		t.Fatalf("Open(%q) error = %v", target, err)
	}
	return sess
}

func TestInvoke_UnknownChannel(t *testing.T) {
	f := newFixture(t)

	_, err := f.invoke(t, "", "doTheThing", "")
	if err == nil || err.Code != CodeChannelNotFound {
		t.Errorf("error = %v, want channel not found", err)
	}
}

func TestCloseCurrentWindow(t *testing.T) {
	f := newFixture(t)
	sess := f.open(t, "")

	if _, err := f.invoke(t, sess.ID(), ChannelCloseCurrentWindow, ""); err != nil {
		t.Fatalf("error = %v", err)
	}
	if f.mgr.Count() != 0 {
		t.Errorf("window count = %d, want 0", f.mgr.Count())
	}
}

func TestCloseCurrentWindow_SenderAlreadyGone(t *testing.T) {
	f := newFixture(t)

	if _, err := f.invoke(t, "window-99", ChannelCloseCurrentWindow, ""); err != nil {
		t.Errorf("error = %v, want tolerant no-op", err)
	}
}

func TestOpenWindow(t *testing.T) {
	f := newFixture(t)

	result, err := f.invoke(t, "", ChannelOpenWindow, `{"path":"/@alice/my-project"}`)
	if err != nil {
		t.Fatalf("error = %v", err)
	}
	if f.mgr.Count() != 1 {
		t.Fatalf("window count = %d, want 1", f.mgr.Count())
	}
	ids := result.(map[string]string)
	if got := f.mgr.Get(ids["windowId"]).URL(); got != "https://replit.com/@alice/my-project" {
		t.Errorf("URL = %q", got)
	}
}

func TestOpenWindow_RejectsUnsupportedPage(t *testing.T) {
	f := newFixture(t)

	tests := []string{
		`{"path":"/etc/passwd"}`,
		`{"path":"/@@@bad"}`,
		`{"path":"https://evil.example"}`,
	}
	for _, params := range tests {
		_, err := f.invoke(t, "", ChannelOpenWindow, params)
		if err == nil || err.Code != CodeRejected {
			t.Errorf("openWindow(%s) error = %v, want rejected", params, err)
		}
	}
	if f.mgr.Count() != 0 {
		t.Errorf("window count = %d, want 0", f.mgr.Count())
	}
}

func TestOpenWindow_MalformedParams(t *testing.T) {
	f := newFixture(t)

	for _, params := range []string{"", "not json", `[1,2]`} {
		_, err := f.invoke(t, "", ChannelOpenWindow, params)
		if err == nil || err.Code != CodeInvalidParams {
			t.Errorf("openWindow(%q) error = %v, want invalid params", params, err)
		}
	}
}

func TestOpenExternalURL(t *testing.T) {
	f := newFixture(t)

	urls := []string{
		"https://example.com/docs",
		"vscode://vscode-remote/ssh-remote+repl/home/runner/app",
		"replit://repl/@alice/my-project",
	}
	for _, u := range urls {
		if _, err := f.invoke(t, "", ChannelOpenExternalURL, `{"url":"`+u+`"}`); err != nil {
			t.Fatalf("openExternalUrl(%s) error = %v", u, err)
		}
	}
	opens := f.host.ExternalOpens()
	if len(opens) != len(urls) {
		t.Fatalf("external opens = %v", opens)
	}
	for i, u := range urls {
		if opens[i] != u {
			t.Errorf("external open[%d] = %q, want %q", i, opens[i], u)
		}
	}
}

func TestOpenExternalURL_RejectsUnsafeSchemes(t *testing.T) {
	f := newFixture(t)

	for _, params := range []string{
		`{"url":"file:///etc/passwd"}`,
		`{"url":"javascript:alert(1)"}`,
		`{"url":"notaurl"}`,
	} {
		_, err := f.invoke(t, "", ChannelOpenExternalURL, params)
		if err == nil || err.Code != CodeRejected {
			t.Errorf("openExternalUrl(%s) error = %v, want rejected", params, err)
		}
	}
	if len(f.host.ExternalOpens()) != 0 {
		t.Errorf("external opens = %v, want none", f.host.ExternalOpens())
	}
}

func TestLogout(t *testing.T) {
	f := newFixture(t)

	f.prefs.SetUser(&store.User{ID: "u1", Username: "alice"})
	f.prefs.SetLastOpenRepl("/@alice/my-project")
	f.prefs.SetLastSeenBackgroundColor("#101020")

	var notified *store.User = &store.User{ID: "sentinel"}
	f.svc.OnUserChanged = func(u *store.User) { notified = u }

	f.open(t, "/@alice/my-project")
	f.open(t, "/desktopApp/home")

	if _, err := f.invoke(t, "", ChannelLogout, ""); err != nil {
		t.Fatalf("error = %v", err)
	}

	if u := f.prefs.GetUser(); u != nil {
		t.Errorf("user after logout = %+v, want nil", u)
	}
	if _, ok := f.prefs.LastOpenRepl(); ok {
		t.Error("lastOpenRepl survived logout")
	}
	if got := f.prefs.LastSeenBackgroundColor(); got != "#101020" {
		t.Errorf("background color after logout = %q, want kept", got)
	}
	if notified != nil {
		t.Errorf("OnUserChanged got %+v, want nil", notified)
	}

	if f.mgr.Count() != 1 {
		t.Fatalf("window count = %d, want 1", f.mgr.Count())
	}
	want := "https://replit.com/logout?goto=%2FdesktopApp%2Flogin"
	if got := f.mgr.All()[0].URL(); got != want {
		t.Errorf("URL = %q, want %q", got, want)
	}
}

func TestShowMessageBox(t *testing.T) {
	f := newFixture(t)
	f.host.MessageBoxResponse = 1

	result, err := f.invoke(t, "", ChannelShowMessageBox,
		`{"type":"question","title":"Unsaved changes","message":"Close anyway?","buttons":["Cancel","Close"]}`)
	if err != nil {
		t.Fatalf("error = %v", err)
	}
	if got := result.(map[string]int)["response"]; got != 1 {
		t.Errorf("response = %d, want 1", got)
	}

	boxes := f.host.MessageBoxes()
	if len(boxes) != 1 || boxes[0].Title != "Unsaved changes" {
		t.Errorf("message boxes = %+v", boxes)
	}
}

func TestCheckForUpdates(t *testing.T) {
	f := newFixture(t)

	result, err := f.invoke(t, "", ChannelCheckForUpdates, "")
	if err != nil {
		t.Fatalf("error = %v", err)
	}
	if !f.updater.called {
		t.Error("updater not invoked")
	}
	if !result.(map[string]bool)["supported"] {
		t.Error("supported = false, want true")
	}
}

func TestCheckForUpdates_NoUpdater(t *testing.T) {
	f := newFixture(t)
	f.svc.updater = nil

	result, err := f.invoke(t, "", ChannelCheckForUpdates, "")
	if err != nil {
		t.Fatalf("error = %v", err)
	}
	if result.(map[string]bool)["supported"] {
		t.Error("supported = true, want false")
	}
}

func TestUpdateThemeValues(t *testing.T) {
	f := newFixture(t)
	sess := f.open(t, "")

	if _, err := f.invoke(t, sess.ID(), ChannelUpdateThemeValues,
		`{"backgroundColor":"#101020","foregroundColor":"#EEEEEE"}`); err != nil {
		t.Fatalf("error = %v", err)
	}

	if got := f.prefs.LastSeenBackgroundColor(); got != "#101020" {
		t.Errorf("persisted background = %q", got)
	}
	if got := f.host.Windows()[0].Background(); got != "#101020" {
		t.Errorf("window background = %q", got)
	}
}

func TestUserInfoRoundTrip(t *testing.T) {
	f := newFixture(t)

	var notified *store.User
	f.svc.OnUserChanged = func(u *store.User) { notified = u }

	if _, err := f.invoke(t, "", ChannelUpdateUserInfo,
		`{"id":"u1","username":"alice","email":"alice@example.com"}`); err != nil {
		t.Fatalf("error = %v", err)
	}
	if notified == nil || notified.Username != "alice" {
		t.Errorf("OnUserChanged got %+v", notified)
	}

	result, err := f.invoke(t, "", ChannelGetUserInfo, "")
	if err != nil {
		t.Fatalf("error = %v", err)
	}
	u := result.(*store.User)
	if u == nil || u.ID != "u1" || u.Email != "alice@example.com" {
		t.Errorf("user = %+v", u)
	}
}

func TestShowOpenDirectoryDialog(t *testing.T) {
	f := newFixture(t)
	f.host.DirectoryResponse = "/home/alice/projects"

	result, err := f.invoke(t, "", ChannelShowOpenDirectoryDialog, "")
	if err != nil {
		t.Fatalf("error = %v", err)
	}
	got := result.(map[string]any)
	if got["path"] != "/home/alice/projects" || got["canceled"] != false {
		t.Errorf("result = %v", got)
	}
}

func TestStopLocalDirectorySync_NotSyncing(t *testing.T) {
	f := newFixture(t)

	_, err := f.invoke(t, "", ChannelStopLocalDirectorySync, `{"replId":"repl-1"}`)
	if err == nil || err.Code != CodeRejected {
		t.Errorf("error = %v, want rejected", err)
	}
}
