// Package wailshost implements native.Host on the Wails v3 runtime. It is
// the only package that imports the framework; everything above it talks to
// the native interfaces.
package wailshost

import (
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/pkg/browser"
	"github.com/rs/zerolog/log"
	"github.com/wailsapp/wails/v3/pkg/application"
	"github.com/wailsapp/wails/v3/pkg/events"

	"github.com/replit/desktop/internal/native"
)

// Internal event names used for plumbing between the injected page script
// and the Go side.
const (
	eventEvalResult = "__evalResult"
	eventNavigated  = "__navigated"
	eventNavRequest = "__navRequest"
)

// Options configures the wails application.
type Options struct {
	Name string
	Icon []byte

	// UniqueID scopes single-instance enforcement.
	UniqueID string

	// OnSecondInstance receives the command line of another launch while
	// this instance holds the single-instance lock.
	OnSecondInstance func(args []string)

	// Services are bound into every window's JS runtime.
	Services []application.Service
}

// Host adapts the wails application to native.Host.
type Host struct {
	app *application.App

	mu      sync.Mutex
	windows map[string]*hostWindow
	evals   map[string]chan string

	optWarnOnce sync.Once
}

// New creates the wails application. Must be called on the main goroutine
// before Run.
func New(opts Options) *Host {
	h := &Host{
		windows: make(map[string]*hostWindow),
		evals:   make(map[string]chan string),
	}

	h.app = application.New(application.Options{
		Name:     opts.Name,
		Icon:     opts.Icon,
		Services: opts.Services,
		Mac: application.MacOptions{
			ApplicationShouldTerminateAfterLastWindowClosed: false,
		},
		SingleInstance: &application.SingleInstanceOptions{
			UniqueID: opts.UniqueID,
			OnSecondInstanceLaunch: func(data application.SecondInstanceData) {
				if opts.OnSecondInstance != nil {
					opts.OnSecondInstance(data.Args)
				}
			},
		},
	})

	h.app.OnEvent(eventEvalResult, h.handleEvalResult)
	h.app.OnEvent(eventNavigated, h.handleNavigated)
	h.app.OnEvent(eventNavRequest, h.handleNavRequest)

	return h
}

// App exposes the underlying wails application for tray and menu setup.
func (h *Host) App() *application.App {
	return h.app
}

// Run starts the OS event loop and blocks until Quit.
func (h *Host) Run() error {
	return h.app.Run()
}

func (h *Host) Quit() {
	h.app.Quit()
}

func (h *Host) Displays() []native.Display {
	screens, err := h.app.GetScreens()
	if err != nil {
		log.Warn().Err(err).Msg("Screen enumeration failed")
		return nil
	}
	out := make([]native.Display, 0, len(screens))
	for _, s := range screens {
		out = append(out, native.Display{
			Bounds:   rectFrom(s.Bounds),
			WorkArea: rectFrom(s.WorkArea),
			Primary:  s.IsPrimary,
		})
	}
	return out
}

// CursorPoint approximates the pointer position with the center of the
// primary display; the runtime does not expose the cursor.
func (h *Host) CursorPoint() native.Point {
	for _, d := range h.Displays() {
		if d.Primary {
			return native.Point{
				X: d.WorkArea.X + d.WorkArea.Width/2,
				Y: d.WorkArea.Y + d.WorkArea.Height/2,
			}
		}
	}
	return native.Point{}
}

func (h *Host) NewWindow(opts native.WindowOptions) (native.Window, error) {
	if opts.UserAgentSuffix != "" || opts.BypassCache {
		h.optWarnOnce.Do(func() {
			log.Warn().Msg("User agent suffix and cache bypass are not supported by this webview runtime")
		})
	}

	id := uuid.NewString()

	winOpts := application.WebviewWindowOptions{
		Name:      id,
		Title:     opts.Title,
		URL:       opts.URL,
		MinWidth:  opts.MinWidth,
		MinHeight: opts.MinHeight,
		Mac: application.MacWindow{
			TitleBar: application.MacTitleBarHiddenInset,
		},
	}
	if rgb, ok := parseHexColor(opts.BackgroundColor); ok {
		winOpts.BackgroundColour = rgb
	}
	if opts.Bounds != nil {
		winOpts.Width = opts.Bounds.Width
		winOpts.Height = opts.Bounds.Height
	}

	win := h.app.Window.NewWithOptions(winOpts)

	hw := &hostWindow{
		host: h,
		id:   id,
		win:  win,
		opts: opts,
		url:  opts.URL,
	}

	h.mu.Lock()
	h.windows[id] = hw
	h.mu.Unlock()

	if opts.Bounds != nil {
		win.SetPosition(opts.Bounds.X, opts.Bounds.Y)
	}

	win.RegisterHook(events.Common.WindowClosing, func(e *application.WindowEvent) {
		hw.handleClosing()
	})
	win.RegisterHook(events.Common.WindowFocus, func(e *application.WindowEvent) {
		if opts.OnFocus != nil {
			opts.OnFocus()
		}
	})
	win.RegisterHook(events.Common.WindowLostFocus, func(e *application.WindowEvent) {
		if opts.OnBlur != nil {
			opts.OnBlur()
		}
	})
	win.RegisterHook(events.Common.WindowFullscreen, func(e *application.WindowEvent) {
		if opts.OnFullScreenChange != nil {
			opts.OnFullScreenChange(true)
		}
	})
	win.RegisterHook(events.Common.WindowUnFullscreen, func(e *application.WindowEvent) {
		if opts.OnFullScreenChange != nil {
			opts.OnFullScreenChange(false)
		}
	})
	win.RegisterHook(events.Common.WindowRuntimeReady, func(e *application.WindowEvent) {
		hw.runInitScript()
		hw.injectNavigationProbe()
	})

	return hw, nil
}

func (h *Host) OpenExternal(url string) error {
	return browser.OpenURL(url)
}

// ShowMessageBox maps the generic dialog description onto the runtime's
// dialog builder. The builder reports the chosen button through a callback,
// bridged here to a synchronous index.
func (h *Host) ShowMessageBox(opts native.MessageBoxOptions) (int, error) {
	var dialog *application.MessageDialog
	switch opts.Type {
	case "warning":
		dialog = application.WarningDialog()
	case "error":
		dialog = application.ErrorDialog()
	case "question":
		dialog = application.QuestionDialog()
	default:
		dialog = application.InfoDialog()
	}

	dialog.SetTitle(opts.Title)
	message := opts.Message
	if opts.Detail != "" {
		message += "\n\n" + opts.Detail
	}
	dialog.SetMessage(message)

	buttons := opts.Buttons
	if len(buttons) == 0 {
		buttons = []string{"OK"}
	}

	result := make(chan int, 1)
	for i, label := range buttons {
		idx := i
		btn := dialog.AddButton(label)
		btn.OnClick(func() {
			select {
			case result <- idx:
			default:
			}
		})
		if idx == 0 {
			dialog.SetDefaultButton(btn)
		}
	}

	dialog.Show()
	return <-result, nil
}

func (h *Host) OpenDirectoryDialog(title string) (string, error) {
	path, err := application.OpenFileDialog().
		SetTitle(title).
		CanChooseDirectories(true).
		CanChooseFiles(false).
		PromptForSingleSelection()
	if err != nil {
		return "", fmt.Errorf("directory dialog failed: %w", err)
	}
	return path, nil
}

func (h *Host) window(id string) *hostWindow {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.windows[id]
}

func (h *Host) removeWindow(id string) {
	h.mu.Lock()
	delete(h.windows, id)
	h.mu.Unlock()
}

// handleEvalResult resolves a pending EvalJS call.
func (h *Host) handleEvalResult(e *application.CustomEvent) {
	data, ok := e.Data.(map[string]any)
	if !ok {
		return
	}
	id, _ := data["id"].(string)
	value, _ := data["value"].(string)

	h.mu.Lock()
	ch, ok := h.evals[id]
	if ok {
		delete(h.evals, id)
	}
	h.mu.Unlock()

	if ok {
		ch <- value
	}
}

// handleNavigated forwards in-page route changes to the owning window's
// callback.
func (h *Host) handleNavigated(e *application.CustomEvent) {
	data, ok := e.Data.(map[string]any)
	if !ok {
		return
	}
	windowID, _ := data["window"].(string)
	url, _ := data["url"].(string)

	hw := h.window(windowID)
	if hw == nil || url == "" {
		return
	}
	hw.setURL(url)
	if hw.opts.OnNavigated != nil {
		hw.opts.OnNavigated(url)
	}
}

// handleNavRequest runs the navigation guards for link activations the
// injected probe intercepted. Allowed same-window navigations are replayed
// through SetURL; everything else stays blocked or was already handed to
// the OS by the guard.
func (h *Host) handleNavRequest(e *application.CustomEvent) {
	data, ok := e.Data.(map[string]any)
	if !ok {
		return
	}
	windowID, _ := data["window"].(string)
	url, _ := data["url"].(string)
	newWindow, _ := data["newWindow"].(bool)

	hw := h.window(windowID)
	if hw == nil || url == "" {
		return
	}

	if newWindow {
		if hw.opts.OnWindowOpen != nil {
			hw.opts.OnWindowOpen(url)
		}
		return
	}

	allowed := hw.opts.OnWillNavigate == nil || hw.opts.OnWillNavigate(url)
	if allowed {
		hw.SetURL(url)
	} else {
		log.Debug().Str("url", url).Msg("Navigation blocked")
	}
}

func rectFrom(r application.Rect) native.Rect {
	return native.Rect{X: r.X, Y: r.Y, Width: r.Width, Height: r.Height}
}

// parseHexColor parses #RRGGBB.
func parseHexColor(s string) (application.RGBA, bool) {
	if len(s) != 7 || s[0] != '#' {
		return application.RGBA{}, false
	}
	var r, g, b uint8
	if _, err := fmt.Sscanf(s[1:], "%02x%02x%02x", &r, &g, &b); err != nil {
		return application.RGBA{}, false
	}
	return application.NewRGB(r, g, b), true
}
