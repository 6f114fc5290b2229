package deeplink

import (
	"net/url"

	"github.com/rs/zerolog/log"

	"github.com/replit/desktop/internal/events"
	"github.com/replit/desktop/internal/windows"
)

// Router dispatches parsed deep-link commands to the window manager. Links
// can arrive before the app finished booting; the router holds them until
// the ready channel closes so startup and activation never race.
type Router struct {
	parser Parser
	mgr    *windows.Manager
	ready  <-chan struct{}
}

func NewRouter(parser Parser, mgr *windows.Manager, ready <-chan struct{}) *Router {
	return &Router{parser: parser, mgr: mgr, ready: ready}
}

// HandleURL parses and dispatches one activation URL. Blocks until the app
// is ready; callers on event threads should run it on a goroutine.
func (r *Router) HandleURL(raw string) {
	r.Dispatch(r.parser.Parse(raw))
}

// HandleArgs dispatches the command line of a second app instance, if it
// carries anything actionable.
func (r *Router) HandleArgs(args []string) {
	cmd, ok := r.parser.FromArgs(args)
	if !ok {
		return
	}
	r.Dispatch(cmd)
}

// Dispatch executes a command once the app is ready.
func (r *Router) Dispatch(cmd Command) {
	<-r.ready

	switch c := cmd.(type) {
	case AuthComplete:
		r.completeAuth(c.Token)

	case Home:
		r.navigateOrOpen(r.mgr.HomeURL())

	case NewRepl:
		u := r.mgr.HomeURL() + "?language=" + url.QueryEscape(c.Language)
		if _, err := r.mgr.Open(u); err != nil {
			log.Error().Err(err).Msg("Failed to open window for new repl link")
		}

	case OpenRepl:
		r.navigateOrOpen(r.mgr.ResolveURL(c.Path))

	case NewWindow:
		if _, err := r.mgr.Open(""); err != nil {
			log.Error().Err(err).Msg("Failed to open window")
		}

	case Invalid:
		log.Warn().Str("url", c.Raw).Str("reason", c.Reason).Msg("Ignoring deep link")

	default:
		log.Warn().Msg("Unhandled deep link command")
	}
}

// completeAuth forwards the token to the window waiting on the auth page.
// Every other window belongs to the logged-out session and is closed. When
// no auth window exists the token rides in as a query parameter on a fresh
// one.
func (r *Router) completeAuth(token string) {
	authWin := r.mgr.FindByURLPrefix(r.mgr.AuthURL())
	r.mgr.CloseOthers(authWin)

	if authWin != nil {
		authWin.Focus()
		authWin.Emit(events.AuthTokenReceived, token)
		return
	}

	u := r.mgr.AuthURL() + "?authToken=" + url.QueryEscape(token)
	if _, err := r.mgr.Open(u); err != nil {
		log.Error().Err(err).Msg("Failed to open window for auth handoff")
	}
}

// navigateOrOpen reuses the focused window when one exists.
func (r *Router) navigateOrOpen(u string) {
	if sess := r.mgr.FocusedOrFirst(); sess != nil {
		sess.Navigate(u)
		sess.Focus()
		return
	}
	if _, err := r.mgr.Open(u); err != nil {
		log.Error().Err(err).Msg("Failed to open window for deep link")
	}
}
