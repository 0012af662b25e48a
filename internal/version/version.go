// Package version holds build metadata for the libertyls CLI.
// The variables can be overridden at build time via -ldflags.
package version

import (
	"strconv"

	"github.com/Masterminds/semver/v3"
	"github.com/fatih/color"
)

var (
	versionMajorColor = color.New(color.FgYellow, color.Bold)
	versionMinorColor = color.New(color.FgGreen, color.Bold)
	versionPatchColor = color.New(color.FgBlue, color.Bold)
)

var (
	// Version is the semantic version of the CLI.
	Version = "0.1.0-dev"

	// GitCommit is an optional git commit hash.
	GitCommit = ""

	// BuildDate is an optional build date in ISO-8601.
	BuildDate = ""
)

// Colored renders v with its major, minor and patch numbers highlighted.
// Strings that are not semantic versions are returned unchanged.
func Colored(v string) string {
	sv, err := semver.NewVersion(v)
	if err != nil {
		return v
	}
	out := versionMajorColor.Sprint(strconv.FormatUint(sv.Major(), 10)) + "." +
		versionMinorColor.Sprint(strconv.FormatUint(sv.Minor(), 10)) + "." +
		versionPatchColor.Sprint(strconv.FormatUint(sv.Patch(), 10))
	if pre := sv.Prerelease(); pre != "" {
		out += "-" + pre
	}
	if meta := sv.Metadata(); meta != "" {
		out += "+" + meta
	}
	return out
}
