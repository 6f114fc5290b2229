// Package pages decides which paths of the remote web app the desktop shell
// is allowed to display.
package pages

import "regexp"

// DesktopAppPrefix is the route prefix reserved for pages that are aware of
// the desktop host.
const DesktopAppPrefix = "/desktopApp"

var (
	// personalReplRegex matches a personal workspace: /@owner/slug
	personalReplRegex = regexp.MustCompile(`^/@[A-Za-z0-9_][A-Za-z0-9_-]*/[A-Za-z0-9][A-Za-z0-9._-]*$`)

	// teamReplRegex matches a team workspace: /t/orgSlug/orgId/repls/replSlug
	teamReplRegex = regexp.MustCompile(`^/t/[A-Za-z0-9_-]+/[A-Za-z0-9-]+/repls/[A-Za-z0-9][A-Za-z0-9._-]*$`)

	// legacyTeamReplRegex matches the pre-orgs team workspace URL shape.
	legacyTeamReplRegex = regexp.MustCompile(`^/team/[A-Za-z0-9_-]+/repls/[A-Za-z0-9][A-Za-z0-9._-]*$`)
)

// supportedNonDesktopAppPages are pages outside the desktop-app prefix that
// the shell may still display.
var supportedNonDesktopAppPages = map[string]bool{
	"/logout": true,
}

// IsSupportedPage reports whether the shell may navigate to the given path.
// Total: malformed input simply returns false.
func IsSupportedPage(page string) bool {
	if page == "" {
		return false
	}

	if len(page) >= len(DesktopAppPrefix) && page[:len(DesktopAppPrefix)] == DesktopAppPrefix {
		return true
	}

	return IsWorkspacePath(page) || supportedNonDesktopAppPages[page]
}

// IsWorkspacePath reports whether the path addresses a workspace, personal or
// team-owned, including the legacy team URL shape.
func IsWorkspacePath(path string) bool {
	return personalReplRegex.MatchString(path) ||
		teamReplRegex.MatchString(path) ||
		legacyTeamReplRegex.MatchString(path)
}
