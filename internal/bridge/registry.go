// Package bridge is the typed channel layer between host and web content.
// Content invokes named channels with JSON params; the host dispatches them
// to registered handlers with the sending window attached.
package bridge

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/replit/desktop/internal/windows"
)

// Channel names are the wire contract with the web app. Renaming one breaks
// deployed content.
const (
	ChannelCloseCurrentWindow      = "closeCurrentWindow"
	ChannelOpenWindow              = "openWindow"
	ChannelOpenExternalURL         = "openExternalUrl"
	ChannelLogout                  = "logout"
	ChannelShowMessageBox          = "showMessageBox"
	ChannelCheckForUpdates         = "checkForUpdates"
	ChannelUpdateThemeValues       = "updateThemeValues"
	ChannelGetUserInfo             = "getUserInfo"
	ChannelUpdateUserInfo          = "updateUserInfo"
	ChannelShowOpenDirectoryDialog = "showOpenDirectoryDialog"
	ChannelGenerateSSHKeys         = "generateSSHKeys"
	ChannelSyncLocalDirectory      = "syncLocalDirectory"
	ChannelStopLocalDirectorySync  = "stopLocalDirectorySync"
)

// Call carries one invocation from content to a handler.
type Call struct {
	Channel string

	// Sender is the window the call came from. Nil when the window closed
	// between sending and dispatch; handlers must tolerate that.
	Sender *windows.Session

	Params json.RawMessage
}

// Bind decodes the call's params into v.
func (c *Call) Bind(v any) *Error {
	if len(c.Params) == 0 {
		return ErrInvalidParams("missing params")
	}
	if err := json.Unmarshal(c.Params, v); err != nil {
		return ErrInvalidParams("malformed params: " + err.Error())
	}
	return nil
}

// HandlerFunc handles one channel. A nil result with a nil error produces
// an empty success response.
type HandlerFunc func(ctx context.Context, call *Call) (any, *Error)

// Middleware wraps a HandlerFunc.
type Middleware func(HandlerFunc) HandlerFunc

// Registry holds the channel handlers and the middleware chain.
type Registry struct {
	mu         sync.RWMutex
	handlers   map[string]HandlerFunc
	middleware []Middleware
}

func NewRegistry() *Registry {
	return &Registry{handlers: make(map[string]HandlerFunc)}
}

// Register registers a handler for a channel, replacing any existing one.
func (r *Registry) Register(channel string, handler HandlerFunc) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.handlers[channel] = handler
}

// Use appends middleware. Middleware added first runs outermost.
func (r *Registry) Use(mw Middleware) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.middleware = append(r.middleware, mw)
}

// Get returns the handler for a channel with middleware applied, or nil.
func (r *Registry) Get(channel string) HandlerFunc {
	r.mu.RLock()
	defer r.mu.RUnlock()

	handler, ok := r.handlers[channel]
	if !ok {
		return nil
	}
	for i := len(r.middleware) - 1; i >= 0; i-- {
		handler = r.middleware[i](handler)
	}
	return handler
}

// Has reports whether a handler is registered for the channel.
func (r *Registry) Has(channel string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.handlers[channel]
	return ok
}

// Channels returns the registered channel names.
func (r *Registry) Channels() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.handlers))
	for ch := range r.handlers {
		out = append(out, ch)
	}
	return out
}
