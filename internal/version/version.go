// Package version holds the build version and semver comparison helpers used
// by the schema migrator.
package version

import (
	"fmt"

	"golang.org/x/mod/semver"
)

// Version is the current application and schema version.
var Version = "0.3.1"

// DevVersion is the suffix used for development builds.
var DevVersion = fmt.Sprintf("%s-dev", Version)

// GetCurrentVersion returns the version for the given run mode.
func GetCurrentVersion(mode string) string {
	if mode == "dev" || mode == "demo" {
		return DevVersion
	}
	return Version
}

// GetSchemaVersion returns the version migrations are keyed by, without any
// dev suffix.
func GetSchemaVersion(mode string) string {
	return Version
}

// canonical prefixes a version with "v" so the semver package accepts it.
func canonical(version string) string {
	if len(version) == 0 || version[0] == 'v' {
		return version
	}
	return "v" + version
}

// IsVersionGreaterThan returns true if version is greater than target.
func IsVersionGreaterThan(version, target string) bool {
	return semver.Compare(canonical(version), canonical(target)) > 0
}

// IsVersionGreaterOrEqualThan returns true if version is greater than or
// equal to target.
func IsVersionGreaterOrEqualThan(version, target string) bool {
	return semver.Compare(canonical(version), canonical(target)) >= 0
}
