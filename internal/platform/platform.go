// Package platform answers which OS the host is running on.
package platform

import "runtime"

// Name returns the platform identifier used in update feed URLs and startup
// arguments handed to content.
func Name() string {
	return runtime.GOOS
}

// IsMac reports whether the host runs on macOS.
func IsMac() bool {
	return runtime.GOOS == "darwin"
}

// IsWindows reports whether the host runs on Windows.
func IsWindows() bool {
	return runtime.GOOS == "windows"
}

// IsLinux reports whether the host is neither macOS nor Windows.
func IsLinux() bool {
	return !IsMac() && !IsWindows()
}

// HasTitleBarOverlay reports whether the platform draws the custom title-bar
// overlay that is restyled from the page theme.
func HasTitleBarOverlay() bool {
	return IsMac() || IsWindows()
}
