package store

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog/log"
)

// Watch starts observing the backing file for external modifications and
// replays them through the store's change notifications. Writes issued by the
// store itself produce no diff against the cache and are ignored naturally.
// The returned function stops watching.
func (s *Store) Watch() (stop func(), err error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	// Watch the directory: the file itself may not exist yet, and editors
	// often replace files via rename.
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		watcher.Close()
		return nil, err
	}
	if err := watcher.Add(dir); err != nil {
		watcher.Close()
		return nil, err
	}

	done := make(chan struct{})
	go func() {
		for {
			select {
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if event.Name != s.path {
					continue
				}
				if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
					continue
				}
				s.reloadAndNotify()
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				log.Warn().Err(err).Msg("preferences watcher error")
			case <-done:
				return
			}
		}
	}()

	return func() {
		close(done)
		watcher.Close()
	}, nil
}

// reloadAndNotify re-reads the document and notifies subscribers of every key
// whose stored value changed.
func (s *Store) reloadAndNotify() {
	data, err := os.ReadFile(s.path)
	if err != nil {
		return
	}

	doc := make(map[string]json.RawMessage)
	if err := json.Unmarshal(data, &doc); err != nil {
		log.Warn().Err(err).Str("path", s.path).Msg("ignoring corrupt external preferences write")
		return
	}

	s.mu.Lock()
	var changed []Key
	for key, raw := range doc {
		if prev, ok := s.doc[key]; !ok || !bytes.Equal(prev, raw) {
			changed = append(changed, Key(key))
		}
	}
	for key := range s.doc {
		if _, ok := doc[key]; !ok {
			changed = append(changed, Key(key))
		}
	}
	s.doc = doc

	var fns []func()
	for _, key := range changed {
		fns = append(fns, s.listenersLocked(key)...)
	}
	s.mu.Unlock()

	for _, fn := range fns {
		fn()
	}
}
