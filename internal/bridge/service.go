package bridge

import (
	"context"
	"net/url"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/replit/desktop/internal/dirsync"
	"github.com/replit/desktop/internal/native"
	"github.com/replit/desktop/internal/pages"
	"github.com/replit/desktop/internal/store"
	"github.com/replit/desktop/internal/windows"
)

// Updater is the slice of the update checker the bridge needs.
type Updater interface {
	// CheckNow triggers an immediate check. Reports false when updates are
	// unavailable on this build.
	CheckNow() bool
}

// Service implements every bridge channel against the window manager, the
// preference store and the native host.
type Service struct {
	mgr     *windows.Manager
	prefs   *store.Store
	host    native.Host
	sync    *dirsync.Manager
	updater Updater

	// OnUserChanged, when set, is notified after login identity changes so
	// crash reports can be tagged or untagged.
	OnUserChanged func(*store.User)
}

func NewService(mgr *windows.Manager, prefs *store.Store, host native.Host, sync *dirsync.Manager, updater Updater) *Service {
	return &Service{mgr: mgr, prefs: prefs, host: host, sync: sync, updater: updater}
}

// RegisterChannels registers every channel the web app may invoke.
func (s *Service) RegisterChannels(r *Registry) {
	r.Register(ChannelCloseCurrentWindow, s.closeCurrentWindow)
	r.Register(ChannelOpenWindow, s.openWindow)
	r.Register(ChannelOpenExternalURL, s.openExternalURL)
	r.Register(ChannelLogout, s.logout)
	r.Register(ChannelShowMessageBox, s.showMessageBox)
	r.Register(ChannelCheckForUpdates, s.checkForUpdates)
	r.Register(ChannelUpdateThemeValues, s.updateThemeValues)
	r.Register(ChannelGetUserInfo, s.getUserInfo)
	r.Register(ChannelUpdateUserInfo, s.updateUserInfo)
	r.Register(ChannelShowOpenDirectoryDialog, s.showOpenDirectoryDialog)
	r.Register(ChannelGenerateSSHKeys, s.generateSSHKeys)
	r.Register(ChannelSyncLocalDirectory, s.syncLocalDirectory)
	r.Register(ChannelStopLocalDirectorySync, s.stopLocalDirectorySync)
}

func (s *Service) closeCurrentWindow(ctx context.Context, call *Call) (any, *Error) {
	if call.Sender == nil {
		return nil, nil
	}
	call.Sender.Close()
	return nil, nil
}

type openWindowParams struct {
	Path string `json:"path"`
}

func (s *Service) openWindow(ctx context.Context, call *Call) (any, *Error) {
	var p openWindowParams
	if err := call.Bind(&p); err != nil {
		return nil, err
	}
	if !pages.IsSupportedPage(p.Path) {
		return nil, ErrRejected("unsupported page: " + p.Path)
	}
	sess, err := s.mgr.Open(p.Path)
	if err != nil {
		return nil, ErrInternal("failed to open window: " + err.Error())
	}
	return map[string]string{"windowId": sess.ID()}, nil
}

type openExternalURLParams struct {
	URL string `json:"url"`
}

func (s *Service) openExternalURL(ctx context.Context, call *Call) (any, *Error) {
	var p openExternalURLParams
	if err := call.Bind(&p); err != nil {
		return nil, err
	}
	// Same scheme policy as the window-open guard, so content can hand off
	// editor deep links as well as plain web URLs.
	u, err := url.Parse(p.URL)
	if err != nil || !s.mgr.SchemeAllowed(u.Scheme) {
		return nil, ErrRejected("refusing to open " + p.URL)
	}
	if err := s.host.OpenExternal(p.URL); err != nil {
		return nil, ErrInternal("failed to open externally: " + err.Error())
	}
	return nil, nil
}

// logout clears the login identity, closes every window and opens a fresh
// one on the site's logout endpoint so the session cookie dies with it. The
// captured theme colors survive so the next login doesn't flash.
func (s *Service) logout(ctx context.Context, call *Call) (any, *Error) {
	s.prefs.ClearLastOpenRepl()
	s.prefs.SetUser(nil)
	if s.OnUserChanged != nil {
		s.OnUserChanged(nil)
	}

	s.mgr.CloseAll()

	authPage := strings.TrimPrefix(s.mgr.AuthURL(), s.mgr.Origin())
	logoutURL := s.mgr.Origin() + "/logout?goto=" + url.QueryEscape(authPage)
	if _, err := s.mgr.Open(logoutURL); err != nil {
		return nil, ErrInternal("failed to open window after logout: " + err.Error())
	}
	return nil, nil
}

func (s *Service) showMessageBox(ctx context.Context, call *Call) (any, *Error) {
	var opts native.MessageBoxOptions
	if err := call.Bind(&opts); err != nil {
		return nil, err
	}
	response, err := s.host.ShowMessageBox(opts)
	if err != nil {
		return nil, ErrInternal("failed to show dialog: " + err.Error())
	}
	return map[string]int{"response": response}, nil
}

func (s *Service) checkForUpdates(ctx context.Context, call *Call) (any, *Error) {
	if s.updater == nil {
		return map[string]bool{"supported": false}, nil
	}
	supported := s.updater.CheckNow()
	return map[string]bool{"supported": supported}, nil
}

type themeValuesParams struct {
	BackgroundColor string `json:"backgroundColor"`
	ForegroundColor string `json:"foregroundColor"`
}

func (s *Service) updateThemeValues(ctx context.Context, call *Call) (any, *Error) {
	var p themeValuesParams
	if err := call.Bind(&p); err != nil {
		return nil, err
	}
	if call.Sender == nil {
		return nil, nil
	}
	s.mgr.ApplyTheme(call.Sender, p.BackgroundColor, p.ForegroundColor)
	return nil, nil
}

func (s *Service) getUserInfo(ctx context.Context, call *Call) (any, *Error) {
	return s.prefs.GetUser(), nil
}

func (s *Service) updateUserInfo(ctx context.Context, call *Call) (any, *Error) {
	var u store.User
	if err := call.Bind(&u); err != nil {
		return nil, err
	}
	s.prefs.SetUser(&u)
	if s.OnUserChanged != nil {
		s.OnUserChanged(&u)
	}
	return nil, nil
}

func (s *Service) showOpenDirectoryDialog(ctx context.Context, call *Call) (any, *Error) {
	dir, err := s.host.OpenDirectoryDialog("Choose a directory to sync")
	if err != nil {
		return nil, ErrInternal("failed to show directory dialog: " + err.Error())
	}
	return map[string]any{"path": dir, "canceled": dir == ""}, nil
}

type sshKeysParams struct {
	ReplID string `json:"replId"`
}

func (s *Service) generateSSHKeys(ctx context.Context, call *Call) (any, *Error) {
	var p sshKeysParams
	if err := call.Bind(&p); err != nil {
		return nil, err
	}
	pub, err := s.sync.GenerateKeys(ctx, p.ReplID)
	if err != nil {
		return nil, ErrInternal(err.Error())
	}
	return map[string]string{"publicKey": pub}, nil
}

type syncDirectoryParams struct {
	ReplID    string `json:"replId"`
	Remote    string `json:"remote"`
	Directory string `json:"directory"`
}

func (s *Service) syncLocalDirectory(ctx context.Context, call *Call) (any, *Error) {
	var p syncDirectoryParams
	if err := call.Bind(&p); err != nil {
		return nil, err
	}
	if err := s.sync.Sync(p.ReplID, p.Remote, p.Directory); err != nil {
		return nil, ErrInternal(err.Error())
	}
	return nil, nil
}

func (s *Service) stopLocalDirectorySync(ctx context.Context, call *Call) (any, *Error) {
	var p sshKeysParams
	if err := call.Bind(&p); err != nil {
		return nil, err
	}
	if err := s.sync.Stop(p.ReplID); err != nil {
		log.Debug().Str("repl_id", p.ReplID).Err(err).Msg("Stop sync")
		return nil, ErrRejected(err.Error())
	}
	return nil, nil
}
