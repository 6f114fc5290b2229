// Package deeplink translates OS activation URLs on the app's custom scheme
// into window actions.
package deeplink

import (
	"net/url"
	"regexp"
	"strings"

	"github.com/replit/desktop/internal/pages"
)

// Command is a parsed deep link. Parsing fails closed: anything that is not
// a well-formed link on the registered scheme becomes Invalid, never an
// error or a panic.
type Command interface {
	isCommand()
}

// AuthComplete resumes an authentication handoff with the received token.
type AuthComplete struct {
	Token string
}

// Home navigates to the in-app home page.
type Home struct{}

// NewRepl opens a fresh window on the home page with a preselected language.
type NewRepl struct {
	Language string
}

// OpenRepl opens a workspace by its validated path.
type OpenRepl struct {
	Path string
}

// NewWindow opens a fresh default window. Produced by a bare invocation of
// the scheme from OS-level shortcuts.
type NewWindow struct{}

// Invalid is a link that failed validation. Carries the reason for logging.
type Invalid struct {
	Raw    string
	Reason string
}

func (AuthComplete) isCommand() {}
func (Home) isCommand()         {}
func (NewRepl) isCommand()      {}
func (OpenRepl) isCommand()     {}
func (NewWindow) isCommand()    {}
func (Invalid) isCommand()      {}

// semverRe matches the bare version strings the auto-updater leaves in the
// command line after a version swap.
var semverRe = regexp.MustCompile(`^v?\d+\.\d+\.\d+(?:-[0-9A-Za-z.-]+)?(?:\+[0-9A-Za-z.-]+)?$`)

// Parser turns activation strings into Commands for one registered scheme.
type Parser struct {
	// Scheme is the registered custom URL scheme, without the "://".
	Scheme string

	// DefaultLanguage is preselected when a "new" link carries none.
	DefaultLanguage string
}

// Parse parses a candidate deep-link URL. The URL's hostname selects the
// command.
func (p Parser) Parse(raw string) Command {
	u, err := url.Parse(raw)
	if err != nil {
		return Invalid{Raw: raw, Reason: "not a URL"}
	}
	if u.Scheme != p.Scheme {
		return Invalid{Raw: raw, Reason: "scheme is not " + p.Scheme}
	}

	switch u.Host {
	case "authComplete":
		token := u.Query().Get("authToken")
		if token == "" {
			return Invalid{Raw: raw, Reason: "missing authToken"}
		}
		return AuthComplete{Token: token}

	case "home":
		return Home{}

	case "new":
		language := u.Query().Get("language")
		if language == "" {
			language = p.DefaultLanguage
		}
		return NewRepl{Language: language}

	case "repl":
		path := u.Path
		// Protocol launches on some platforms append a trailing slash.
		if len(path) > 1 {
			path = strings.TrimSuffix(path, "/")
		}
		if !pages.IsWorkspacePath(path) {
			return Invalid{Raw: raw, Reason: "not a workspace path"}
		}
		return OpenRepl{Path: path}

	default:
		return Invalid{Raw: raw, Reason: "unrecognized command " + u.Host}
	}
}

// FromArgs extracts a deep-link command from a second instance's command
// line. Returns false when the arguments carry nothing to act on: the
// updater's post-swap relaunch passes a bare version string that must not be
// mistaken for a link.
func (p Parser) FromArgs(args []string) (Command, bool) {
	if len(args) == 0 {
		return nil, false
	}

	candidate := strings.TrimSpace(args[len(args)-1])
	if candidate == "" {
		return nil, false
	}

	if semverRe.MatchString(candidate) {
		return nil, false
	}

	// A bare invocation of the scheme is "new window", not a link.
	switch candidate {
	case p.Scheme, p.Scheme + ":", p.Scheme + "://":
		return NewWindow{}, true
	}

	return p.Parse(candidate), true
}
