package wailshost

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/wailsapp/wails/v3/pkg/application"

	"github.com/replit/desktop/internal/native"
)

const evalTimeout = 2 * time.Second

// navProbeJS runs inside every page once the runtime is ready. It reports
// SPA route changes and intercepts link activations that would leave the
// page, so the Go-side guards decide what happens. The window name rides in
// every event because runtime events are app-scoped.
const navProbeJS = `
(function () {
  if (window.__shellNavProbe) return;
  window.__shellNavProbe = true;
  var name = %q;
  function emit(n, d) {
    if (window.wails && window.wails.Events) {
      window.wails.Events.Emit({ name: n, data: d });
    }
  }
  function report() {
    emit("__navigated", { window: name, url: location.href });
  }
  var push = history.pushState;
  history.pushState = function () { push.apply(this, arguments); report(); };
  var replace = history.replaceState;
  history.replaceState = function () { replace.apply(this, arguments); report(); };
  window.addEventListener("popstate", report);
  document.addEventListener("click", function (ev) {
    var a = ev.target && ev.target.closest ? ev.target.closest("a[href]") : null;
    if (!a) return;
    var url = new URL(a.href, location.href);
    var newWindow = a.target === "_blank";
    if (!newWindow && url.origin === location.origin) return;
    ev.preventDefault();
    emit("__navRequest", { window: name, url: url.href, newWindow: newWindow });
  }, true);
})();
`

// hostWindow adapts one wails window to native.Window. Calls after the OS
// window is destroyed degrade to no-ops.
type hostWindow struct {
	host *Host
	id   string
	win  *application.WebviewWindow
	opts native.WindowOptions

	mu      sync.Mutex
	url     string
	closing bool
	closed  bool
}

func (w *hostWindow) ID() string {
	return w.id
}

func (w *hostWindow) URL() string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.url
}

func (w *hostWindow) setURL(url string) {
	w.mu.Lock()
	w.url = url
	w.mu.Unlock()
}

func (w *hostWindow) SetURL(url string) {
	if w.isClosed() {
		return
	}
	w.setURL(url)
	w.win.SetURL(url)
}

func (w *hostWindow) Bounds() native.Rect {
	if w.isClosed() {
		return native.Rect{}
	}
	x, y := w.win.Position()
	width, height := w.win.Size()
	return native.Rect{X: x, Y: y, Width: width, Height: height}
}

func (w *hostWindow) SetBounds(r native.Rect) {
	if w.isClosed() {
		return
	}
	w.win.SetPosition(r.X, r.Y)
	w.win.SetSize(r.Width, r.Height)
}

func (w *hostWindow) Focus() {
	if w.isClosed() {
		return
	}
	w.win.Show()
	w.win.Focus()
}

func (w *hostWindow) IsFocused() bool {
	if w.isClosed() {
		return false
	}
	return w.win.IsFocused()
}

func (w *hostWindow) IsFullScreen() bool {
	if w.isClosed() {
		return false
	}
	return w.win.IsFullscreen()
}

func (w *hostWindow) SetBackgroundColor(color string) {
	if w.isClosed() {
		return
	}
	if rgb, ok := parseHexColor(color); ok {
		w.win.SetBackgroundColour(rgb)
	}
}

// SetTitleBarColors restyles the overlay by styling the page's title-bar
// region; the runtime draws no separate overlay chrome of its own.
func (w *hostWindow) SetTitleBarColors(background, foreground string) {
	w.SetBackgroundColor(background)
}

// EvalJS evaluates an expression in the page. The runtime's script
// execution is one-way, so the result comes back on an app event keyed by
// call ID.
func (w *hostWindow) EvalJS(js string) (string, error) {
	if w.isClosed() {
		return "", fmt.Errorf("window %s is closed", w.id)
	}

	callID := uuid.NewString()
	ch := make(chan string, 1)

	w.host.mu.Lock()
	w.host.evals[callID] = ch
	w.host.mu.Unlock()

	script := fmt.Sprintf(`
(function () {
  var value = "";
  try { value = String(eval(%q)); } catch (e) {}
  if (window.wails && window.wails.Events) {
    window.wails.Events.Emit({ name: "__evalResult", data: { id: %q, value: value } });
  }
})();`, js, callID)

	w.win.ExecJS(script)

	select {
	case value := <-ch:
		return value, nil
	case <-time.After(evalTimeout):
		w.host.mu.Lock()
		delete(w.host.evals, callID)
		w.host.mu.Unlock()
		return "", fmt.Errorf("eval in window %s timed out", w.id)
	}
}

func (w *hostWindow) Emit(event string, payload any) {
	if w.isClosed() {
		return
	}
	w.host.app.EmitEvent(event, map[string]any{
		"window":  w.id,
		"payload": payload,
	})
}

func (w *hostWindow) Close() {
	if w.isClosed() {
		return
	}
	w.win.Close()
}

func (w *hostWindow) runInitScript() {
	if w.opts.InitScript == "" || w.isClosed() {
		return
	}
	w.win.ExecJS(w.opts.InitScript)
}

func (w *hostWindow) injectNavigationProbe() {
	if w.isClosed() {
		return
	}
	w.win.ExecJS(fmt.Sprintf(navProbeJS, w.id))
}

// handleClosing runs on the OS close event, before the window is destroyed.
// OnClose runs while the window is still live so close handlers can read
// bounds and evaluate script; only then does the adapter mark it gone.
func (w *hostWindow) handleClosing() {
	w.mu.Lock()
	if w.closed || w.closing {
		w.mu.Unlock()
		return
	}
	w.closing = true
	w.mu.Unlock()

	if w.opts.OnClose != nil {
		w.opts.OnClose()
	}

	w.mu.Lock()
	w.closed = true
	w.mu.Unlock()
	w.host.removeWindow(w.id)
}

func (w *hostWindow) isClosed() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.closed
}
