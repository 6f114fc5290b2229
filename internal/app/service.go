package app

import (
	"context"
	"encoding/json"
)

// BridgeService is the object bound into every window's JS runtime. Content
// invokes bridge channels through its Invoke method with the window's own
// name, so responses and side effects land on the right window.
type BridgeService struct {
	shell *Shell
}

// Invoke dispatches one channel call from content.
func (b *BridgeService) Invoke(windowName, channel string, params json.RawMessage) (any, error) {
	result, err := b.shell.bridge.Invoke(context.Background(), windowName, channel, params)
	if err != nil {
		return nil, err
	}
	return result, nil
}

// Channels lists the channels content may invoke.
func (b *BridgeService) Channels() []string {
	return b.shell.bridge.Registry().Channels()
}
