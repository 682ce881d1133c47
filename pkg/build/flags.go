// SPDX-License-Identifier: MIT
//
// Package build exposes metadata embedded into the binary at compile time
// with linker flags, for example:
//
//	go build -ldflags "-X spectrum/pkg/build.buildName=spectrum \
//	  -X spectrum/pkg/build.buildVersion=0.1.0 ..."
//
// Development builds without flags report DevVersion.
package build

import (
	"fmt"
	"strings"
)

// Development defaults used when no build flags were injected.
const (
	DefaultName = "spectrum"
	DevVersion  = "dev"
	unknown     = "unknown"
)

// Flags holds the build information.
type Flags struct {
	Name    string
	Time    string
	Commit  string
	Version string
}

// String formats the flags for version output.
func (f Flags) String() string {
	return fmt.Sprintf("%s %s (commit %s, built %s)", f.Name, f.Version, f.Commit, f.Time)
}

// Package-level variables for build information, populated by -ldflags.
var (
	buildName    string
	buildTime    string
	buildCommit  string
	buildVersion string
	buildFlags   = &Flags{
		Name:    DefaultName,
		Time:    unknown,
		Commit:  unknown,
		Version: DevVersion,
	}
)

// Initialize copies build information from the ldflags variables. A binary
// built without any flags keeps the development defaults. A partially
// flagged build is an error naming the missing flags.
func Initialize() error {
	provided := map[string]string{
		"BuildName":    buildName,
		"BuildTime":    buildTime,
		"BuildCommit":  buildCommit,
		"BuildVersion": buildVersion,
	}

	var missing []string
	for _, name := range []string{"BuildName", "BuildTime", "BuildCommit", "BuildVersion"} {
		if provided[name] == "" {
			missing = append(missing, name)
		}
	}
	switch len(missing) {
	case len(provided):
		return nil
	case 0:
	default:
		return fmt.Errorf("%s required", strings.Join(missing, ", "))
	}

	buildFlags.Name = buildName
	buildFlags.Time = buildTime
	buildFlags.Commit = buildCommit
	buildFlags.Version = buildVersion

	return nil
}

// GetBuildFlags returns the current build information.
func GetBuildFlags() *Flags {
	return buildFlags
}

// IsDev reports whether the binary was built without version flags.
func IsDev() bool {
	return buildFlags.Version == DevVersion
}
