// Package diag wires crash reporting. Every function is a no-op when
// reporting is disabled, so callers never need to check.
package diag

import (
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/rs/zerolog/log"

	"github.com/replit/desktop/internal/config"
	"github.com/replit/desktop/internal/store"
)

// Init configures the crash reporter. Disabled or DSN-less configs leave
// the default no-op hub in place.
func Init(cfg config.SentryConfig, environment, release string) error {
	if !cfg.Enabled || cfg.DSN == "" {
		log.Debug().Msg("Crash reporting disabled")
		return nil
	}
	return sentry.Init(sentry.ClientOptions{
		Dsn:         cfg.DSN,
		Environment: environment,
		Release:     release,
	})
}

// SetUser tags subsequent reports with the login identity. A nil user
// clears the tag.
func SetUser(u *store.User) {
	sentry.ConfigureScope(func(scope *sentry.Scope) {
		if u == nil {
			scope.SetUser(sentry.User{})
			return
		}
		scope.SetUser(sentry.User{ID: u.ID, Username: u.Username, Email: u.Email})
	})
}

// CaptureError reports an error with extra tags.
func CaptureError(err error, tags map[string]string) {
	if err == nil {
		return
	}
	sentry.WithScope(func(scope *sentry.Scope) {
		for k, v := range tags {
			scope.SetTag(k, v)
		}
		sentry.CaptureException(err)
	})
}

// Flush drains pending reports. Called on shutdown.
func Flush(timeout time.Duration) {
	sentry.Flush(timeout)
}
