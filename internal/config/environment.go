package config

import (
	"net/url"
	"strings"
)

// productionHost is the host of the production origin. Any other origin is
// treated as a development target with its own preference scope.
const productionHost = "replit.com"

// EnvironmentName derives a normalized identifier from the configured base
// URL. Preference files are scoped by this name so that pointing the app at a
// staging or local origin never mixes state with production.
func EnvironmentName(baseURL string) string {
	u, err := url.Parse(baseURL)
	if err != nil || u.Host == "" {
		return "unknown"
	}

	host := strings.ToLower(u.Hostname())
	if host == productionHost {
		return "production"
	}

	name := host
	if port := u.Port(); port != "" {
		name += "-" + port
	}

	return sanitizeEnvironmentName(name)
}

// sanitizeEnvironmentName keeps the name safe to embed in a file name.
func sanitizeEnvironmentName(name string) string {
	var b strings.Builder
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '-', r == '.':
			b.WriteRune(r)
		default:
			b.WriteRune('-')
		}
	}
	return b.String()
}
