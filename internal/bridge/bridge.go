package bridge

import (
	"context"
	"encoding/json"

	"github.com/rs/zerolog/log"

	"github.com/replit/desktop/internal/windows"
)

// Bridge dispatches content invocations to the registry, resolving the
// sending window first.
type Bridge struct {
	registry *Registry
	mgr      *windows.Manager
}

func New(registry *Registry, mgr *windows.Manager) *Bridge {
	return &Bridge{registry: registry, mgr: mgr}
}

// Invoke handles one call from the window with the given ID. The window may
// have closed since the call was sent; the handler then runs with a nil
// sender.
func (b *Bridge) Invoke(ctx context.Context, windowID, channel string, params json.RawMessage) (any, *Error) {
	handler := b.registry.Get(channel)
	if handler == nil {
		log.Warn().Str("channel", channel).Msg("Channel not found")
		return nil, ErrChannelNotFound(channel)
	}

	call := &Call{
		Channel: channel,
		Sender:  b.mgr.Get(windowID),
		Params:  params,
	}
	return handler(ctx, call)
}

// Registry returns the underlying registry.
func (b *Bridge) Registry() *Registry {
	return b.registry
}

// WithLogging logs every invocation with its channel name and serialized
// params.
func WithLogging() Middleware {
	return func(next HandlerFunc) HandlerFunc {
		return func(ctx context.Context, call *Call) (any, *Error) {
			sender := ""
			if call.Sender != nil {
				sender = call.Sender.ID()
			}
			log.Debug().
				Str("channel", call.Channel).
				Str("window", sender).
				RawJSON("params", normalizeParams(call.Params)).
				Msg("Bridge call")

			result, err := next(ctx, call)
			if err != nil {
				log.Warn().
					Str("channel", call.Channel).
					Int("code", err.Code).
					Str("error", err.Message).
					Msg("Bridge call failed")
			}
			return result, err
		}
	}
}

func normalizeParams(params json.RawMessage) json.RawMessage {
	if len(params) == 0 {
		return json.RawMessage("null")
	}
	return params
}
