// Package version executes and returns the version string
// for the currently running process.
package version

import (
	"fmt"
	"time"
)

// The value of these vars are set through linker options.
var gitCommit = "Local build"
var buildDate = "Moments ago"
var gitTag = "Unknown"

// GetVersion returns the version string of this build.
func GetVersion() string {
	if buildDate == "{DATE}" {
		now := time.Now().Format(time.RFC3339)
		buildDate = now
	}
	return fmt.Sprintf("%s. Built at: %s", GetBuildData(), buildDate)
}

// GetBuildData returns the git tag and commit of the current build.
func GetBuildData() string {
	return fmt.Sprintf("dashboard-backend/%s/%s", gitTag, gitCommit)
}
