package version

import (
	"fmt"
	"runtime"
	"runtime/debug"
)

// Version identifies a build of fptrap.
type Version struct {
	Major, Minor, Patch int
	Metadata            string
	// Revision is the VCS revision the binary was built from. When empty it
	// is taken from the build settings recorded by the go command.
	Revision string
	Modified bool
}

// FptrapVersion is the current version of fptrap.
var FptrapVersion = Version{Major: 0, Minor: 3, Patch: 0}

// Semver returns the version number, e.g. "0.3.0" or "0.3.0-rc1".
func (v Version) Semver() string {
	s := fmt.Sprintf("%d.%d.%d", v.Major, v.Minor, v.Patch)
	if v.Metadata != "" {
		s += "-" + v.Metadata
	}
	return s
}

func (v Version) String() string {
	v = v.withVCS(readSettings())
	rev := v.Revision
	if rev == "" {
		rev = "unknown"
	}
	if v.Modified {
		rev += "+dirty"
	}
	return fmt.Sprintf("Version: %s\nBuild: %s", v.Semver(), rev)
}

func readSettings() []debug.BuildSetting {
	info, ok := debug.ReadBuildInfo()
	if !ok {
		return nil
	}
	return info.Settings
}

// withVCS fills Revision and Modified from settings unless a revision was
// set at link time.
func (v Version) withVCS(settings []debug.BuildSetting) Version {
	if v.Revision != "" {
		return v
	}
	for _, s := range settings {
		switch s.Key {
		case "vcs.revision":
			v.Revision = s.Value
		case "vcs.modified":
			v.Modified = s.Value == "true"
		}
	}
	return v
}

// BuildInfo returns the toolchain, the target and the modules the binary
// was built from.
func BuildInfo() string {
	return fmt.Sprintf("%s %s/%s\n%s", runtime.Version(), runtime.GOOS, runtime.GOARCH, moduleBuildInfo())
}
