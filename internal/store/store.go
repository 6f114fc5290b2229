// Package store implements the persisted preferences store.
//
// One JSON document per resolved environment holds the last-seen theme
// colors, window bounds, last open repl and cached user identity. Reads are
// served from a write-through cache and never fail: a missing or corrupt
// file behaves as an empty store.
package store

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/rs/zerolog/log"
)

// Default theme colors, used until the hosted app reports its own.
// These match the dark theme of the remote web app.
const (
	DefaultBackgroundColor = "#0E1525"
	DefaultForegroundColor = "#F5F9FC"
)

// Key identifies a single preference within the persisted document.
type Key string

const (
	KeyLastSeenBackgroundColor Key = "lastSeenBackgroundColor"
	KeyLastSeenForegroundColor Key = "lastSeenForegroundColor"
	KeyWindowBounds            Key = "windowBounds"
	KeyLastOpenRepl            Key = "lastOpenRepl"
	KeyUser                    Key = "user"
)

// Bounds is a persisted window rectangle.
type Bounds struct {
	X      int `json:"x"`
	Y      int `json:"y"`
	Width  int `json:"width"`
	Height int `json:"height"`
}

// User is the cached identity of the signed-in user, used for crash-report
// attribution.
type User struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email"`
}

type subscriber struct {
	id int
	fn func()
}

// Store is a durable key/value preferences store scoped to one environment.
// Safe for concurrent use.
type Store struct {
	mu     sync.Mutex
	path   string
	doc    map[string]json.RawMessage // full document, unknown keys preserved
	subs   map[Key][]subscriber
	nextID int
}

// New opens (or lazily creates) the preferences store for the given
// environment inside dir. The store is usable immediately: an unreadable or
// corrupt backing file is treated as empty.
func New(dir, environment string) *Store {
	s := &Store{
		path: filepath.Join(dir, fmt.Sprintf("preferences-%s.json", environment)),
		doc:  make(map[string]json.RawMessage),
		subs: make(map[Key][]subscriber),
	}
	s.reload()
	return s
}

// Path returns the location of the backing file.
func (s *Store) Path() string {
	return s.path
}

// LastSeenBackgroundColor returns the persisted background color or the
// default.
func (s *Store) LastSeenBackgroundColor() string {
	return s.getString(KeyLastSeenBackgroundColor, DefaultBackgroundColor)
}

// SetLastSeenBackgroundColor persists the background color.
func (s *Store) SetLastSeenBackgroundColor(color string) {
	s.set(KeyLastSeenBackgroundColor, color)
}

// LastSeenForegroundColor returns the persisted foreground color or the
// default.
func (s *Store) LastSeenForegroundColor() string {
	return s.getString(KeyLastSeenForegroundColor, DefaultForegroundColor)
}

// SetLastSeenForegroundColor persists the foreground color.
func (s *Store) SetLastSeenForegroundColor(color string) {
	s.set(KeyLastSeenForegroundColor, color)
}

// WindowBounds returns the persisted window bounds, if any.
func (s *Store) WindowBounds() (Bounds, bool) {
	s.mu.Lock()
	raw, ok := s.doc[string(KeyWindowBounds)]
	s.mu.Unlock()
	if !ok || isNull(raw) {
		return Bounds{}, false
	}
	var b Bounds
	if err := json.Unmarshal(raw, &b); err != nil {
		return Bounds{}, false
	}
	return b, true
}

// SetWindowBounds persists the window bounds.
func (s *Store) SetWindowBounds(b Bounds) {
	s.set(KeyWindowBounds, b)
}

// ClearWindowBounds removes any persisted window bounds.
func (s *Store) ClearWindowBounds() {
	s.set(KeyWindowBounds, nil)
}

// LastOpenRepl returns the path of the most recently open workspace, if any.
func (s *Store) LastOpenRepl() (string, bool) {
	s.mu.Lock()
	raw, ok := s.doc[string(KeyLastOpenRepl)]
	s.mu.Unlock()
	if !ok || isNull(raw) {
		return "", false
	}
	var p string
	if err := json.Unmarshal(raw, &p); err != nil {
		return "", false
	}
	return p, true
}

// SetLastOpenRepl persists the most recently open workspace path. Setting the
// same path twice is a no-op and does not re-notify subscribers.
func (s *Store) SetLastOpenRepl(path string) {
	s.set(KeyLastOpenRepl, path)
}

// ClearLastOpenRepl removes the persisted workspace path.
func (s *Store) ClearLastOpenRepl() {
	s.set(KeyLastOpenRepl, nil)
}

// GetUser returns the cached user identity, or nil when signed out.
func (s *Store) GetUser() *User {
	s.mu.Lock()
	raw, ok := s.doc[string(KeyUser)]
	s.mu.Unlock()
	if !ok || isNull(raw) {
		return nil
	}
	var u User
	if err := json.Unmarshal(raw, &u); err != nil {
		return nil
	}
	return &u
}

// SetUser caches the user identity. Passing nil clears it.
func (s *Store) SetUser(u *User) {
	if u == nil {
		s.set(KeyUser, nil)
		return
	}
	s.set(KeyUser, u)
}

// OnChange registers a listener for mutations of key. Listeners fire in
// registration order after the mutation is applied. The returned function
// unsubscribes.
func (s *Store) OnChange(key Key, fn func()) (unsubscribe func()) {
	s.mu.Lock()
	s.nextID++
	id := s.nextID
	s.subs[key] = append(s.subs[key], subscriber{id: id, fn: fn})
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		subs := s.subs[key]
		for i, sub := range subs {
			if sub.id == id {
				s.subs[key] = append(subs[:i], subs[i+1:]...)
				break
			}
		}
	}
}

func (s *Store) getString(key Key, def string) string {
	s.mu.Lock()
	raw, ok := s.doc[string(key)]
	s.mu.Unlock()
	if !ok || isNull(raw) {
		return def
	}
	var v string
	if err := json.Unmarshal(raw, &v); err != nil || v == "" {
		return def
	}
	return v
}

// set marshals value under key, persists the document and notifies
// subscribers. A write that does not change the stored value is skipped
// entirely.
func (s *Store) set(key Key, value any) {
	raw, err := json.Marshal(value)
	if err != nil {
		log.Error().Err(err).Str("key", string(key)).Msg("failed to encode preference")
		return
	}

	s.mu.Lock()
	if prev, ok := s.doc[string(key)]; ok && bytes.Equal(prev, raw) {
		s.mu.Unlock()
		return
	}
	s.doc[string(key)] = raw
	s.persistLocked()
	listeners := s.listenersLocked(key)
	s.mu.Unlock()

	for _, fn := range listeners {
		fn()
	}
}

func (s *Store) listenersLocked(key Key) []func() {
	subs := s.subs[key]
	fns := make([]func(), len(subs))
	for i, sub := range subs {
		fns[i] = sub.fn
	}
	return fns
}

// persistLocked writes the document to disk. Failures are logged, never
// fatal: the in-process cache stays authoritative.
func (s *Store) persistLocked() {
	data, err := json.MarshalIndent(s.doc, "", "  ")
	if err != nil {
		log.Error().Err(err).Msg("failed to encode preferences document")
		return
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		log.Error().Err(err).Str("path", s.path).Msg("failed to create preferences directory")
		return
	}
	if err := os.WriteFile(s.path, data, 0o644); err != nil {
		log.Error().Err(err).Str("path", s.path).Msg("failed to write preferences")
	}
}

// reload replaces the cache with the on-disk document. Corruption is treated
// as "key absent".
func (s *Store) reload() {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if !os.IsNotExist(err) {
			log.Warn().Err(err).Str("path", s.path).Msg("preferences unreadable, starting fresh")
		}
		return
	}

	doc := make(map[string]json.RawMessage)
	if err := json.Unmarshal(data, &doc); err != nil {
		log.Warn().Err(err).Str("path", s.path).Msg("preferences corrupt, starting fresh")
		return
	}

	s.mu.Lock()
	s.doc = doc
	s.mu.Unlock()
}

func isNull(raw json.RawMessage) bool {
	return len(raw) == 0 || bytes.Equal(raw, []byte("null"))
}
