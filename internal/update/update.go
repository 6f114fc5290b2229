// Package update polls the release server and applies new versions after
// user confirmation.
package update

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"runtime"
	"sync"
	"time"

	"github.com/hashicorp/go-retryablehttp"
	"github.com/rs/zerolog/log"

	"github.com/replit/desktop/internal/config"
	"github.com/replit/desktop/internal/diag"
	"github.com/replit/desktop/internal/native"
	"github.com/replit/desktop/internal/platform"
)

// State is the checker's lifecycle position.
type State int

const (
	StateIdle State = iota
	StateChecking
	StateNoUpdate
	StateDownloading
	StateDownloaded
	StateRestarting
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateChecking:
		return "checking"
	case StateNoUpdate:
		return "no-update"
	case StateDownloading:
		return "downloading"
	case StateDownloaded:
		return "downloaded"
	case StateRestarting:
		return "restarting"
	default:
		return "unknown"
	}
}

// Feed is the release server's response for an available update.
type Feed struct {
	URL   string `json:"url"`
	Name  string `json:"name"`
	Notes string `json:"notes"`
}

// Checker polls {server}/update/{platform}/{version} on an exponential
// backoff schedule and downloads at most one update per process lifetime.
type Checker struct {
	cfg      config.UpdateConfig
	host     native.Host
	version  string
	packaged bool
	target   string
	client   *retryablehttp.Client

	// apply swaps the running install for the downloaded artifact. Split
	// out so tests can intercept it.
	apply func(path string) error

	mu       sync.Mutex
	state    State
	checks   int
	download string
	stop     chan struct{}
	stopOnce sync.Once
}

// New creates a checker for the given build. Unpackaged builds (dev runs)
// never check.
func New(cfg config.UpdateConfig, host native.Host, version string, packaged bool) *Checker {
	client := retryablehttp.NewClient()
	client.RetryMax = 3
	client.RetryWaitMin = 1 * time.Second
	client.RetryWaitMax = 30 * time.Second
	client.Logger = nil

	return &Checker{
		cfg:      cfg,
		host:     host,
		version:  version,
		packaged: packaged,
		target:   runtime.GOOS + "_" + runtime.GOARCH,
		client:   client,
		apply:    applyUpdate,
		stop:     make(chan struct{}),
	}
}

// Enabled reports whether this build can self-update. Linux installs come
// from package managers and are excluded.
func (c *Checker) Enabled() bool {
	return c.packaged && !platform.IsLinux()
}

// State returns the current lifecycle state.
func (c *Checker) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Start begins the polling loop: one immediate check, then exponential
// backoff until an update is downloaded or the check budget runs out.
func (c *Checker) Start() {
	if !c.Enabled() {
		log.Info().Bool("packaged", c.packaged).Str("os", platform.Name()).
			Msg("Automatic updates disabled for this build")
		return
	}
	go c.run()
}

// Stop ends the polling loop.
func (c *Checker) Stop() {
	c.stopOnce.Do(func() { close(c.stop) })
}

// CheckNow triggers an out-of-schedule check. Reports false when this
// build cannot self-update.
func (c *Checker) CheckNow() bool {
	if !c.Enabled() {
		return false
	}
	go c.check()
	return true
}

func (c *Checker) run() {
	c.check()

	for {
		c.mu.Lock()
		done := c.state == StateDownloaded || c.state == StateRestarting || c.checks >= c.cfg.MaxChecks
		n := c.checks
		c.mu.Unlock()
		if done {
			return
		}

		timer := time.NewTimer(c.nextDelay(n))
		select {
		case <-c.stop:
			timer.Stop()
			return
		case <-timer.C:
		}
		c.check()
	}
}

// nextDelay returns the wait before check n+1: base doubled per completed
// check, capped at the max interval.
func (c *Checker) nextDelay(n int) time.Duration {
	base := time.Duration(c.cfg.BaseIntervalSec) * time.Second
	max := time.Duration(c.cfg.MaxIntervalSec) * time.Second

	delay := base
	for i := 1; i < n; i++ {
		delay *= 2
		if delay >= max {
			return max
		}
	}
	if delay > max {
		return max
	}
	return delay
}

func (c *Checker) check() {
	c.mu.Lock()
	if c.state == StateDownloading || c.state == StateDownloaded || c.state == StateRestarting {
		c.mu.Unlock()
		return
	}
	c.state = StateChecking
	c.checks++
	c.mu.Unlock()

	feedURL := fmt.Sprintf("%s/update/%s/%s", c.cfg.Server, c.target, c.version)
	log.Debug().Str("url", feedURL).Msg("Checking for updates")

	resp, err := c.client.Get(feedURL)
	if err != nil {
		c.fail(fmt.Errorf("update check failed: %w", err), feedURL)
		return
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusNoContent:
		c.setState(StateNoUpdate)
		log.Debug().Str("version", c.version).Msg("No update available")
		return
	case http.StatusOK:
	default:
		c.fail(fmt.Errorf("update server returned %d", resp.StatusCode), feedURL)
		return
	}

	var feed Feed
	if err := json.NewDecoder(resp.Body).Decode(&feed); err != nil {
		c.fail(fmt.Errorf("malformed update feed: %w", err), feedURL)
		return
	}
	if feed.URL == "" {
		c.fail(fmt.Errorf("update feed has no artifact URL"), feedURL)
		return
	}

	log.Info().Str("name", feed.Name).Msg("Update available")
	c.setState(StateDownloading)

	path, err := c.fetchArtifact(feed.URL)
	if err != nil {
		c.fail(err, feed.URL)
		return
	}

	c.mu.Lock()
	c.state = StateDownloaded
	c.download = path
	c.mu.Unlock()

	c.promptRestart(feed)
}

func (c *Checker) fetchArtifact(url string) (string, error) {
	resp, err := c.client.Get(url)
	if err != nil {
		return "", fmt.Errorf("update download failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("update download returned %d", resp.StatusCode)
	}

	f, err := os.CreateTemp("", "replit-desktop-update-*")
	if err != nil {
		return "", fmt.Errorf("failed to create update file: %w", err)
	}
	defer f.Close()

	if _, err := io.Copy(f, resp.Body); err != nil {
		os.Remove(f.Name())
		return "", fmt.Errorf("update download interrupted: %w", err)
	}
	return f.Name(), nil
}

func (c *Checker) promptRestart(feed Feed) {
	message := "A new version of Replit is ready to install."
	if feed.Name != "" {
		message = fmt.Sprintf("Replit %s is ready to install.", feed.Name)
	}

	response, err := c.host.ShowMessageBox(native.MessageBoxOptions{
		Type:    "question",
		Title:   "Update available",
		Message: message,
		Detail:  feed.Notes,
		Buttons: []string{"Restart now", "Later"},
	})
	if err != nil || response != 0 {
		log.Info().Msg("Update installs on next launch")
		return
	}

	c.setState(StateRestarting)

	c.mu.Lock()
	path := c.download
	c.mu.Unlock()

	if err := c.apply(path); err != nil {
		c.fail(fmt.Errorf("failed to apply update: %w", err), path)
		return
	}
	c.host.Quit()
}

func (c *Checker) setState(s State) {
	c.mu.Lock()
	c.state = s
	c.mu.Unlock()
}

// fail reports the error and returns the checker to idle so the schedule
// keeps running.
func (c *Checker) fail(err error, url string) {
	log.Warn().Err(err).Str("url", url).Msg("Update check failed")
	diag.CaptureError(err, map[string]string{
		"component": "updater",
		"url":       url,
		"version":   c.version,
	})
	c.setState(StateIdle)
}
