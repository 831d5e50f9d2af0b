package version

import (
	"fmt"
	"runtime"
	"runtime/debug"
)

// Version can be set at build time using something like:
// go build -ldflags "-X github.com/vsariola/polysynth/version.Version=$(git describe --dirty)"
var Version string

// Hash is the short VCS revision the binary was built from, with "-dirty"
// appended if the tree had local changes. Empty without VCS information.
var Hash = func() string {
	info, ok := debug.ReadBuildInfo()
	if !ok {
		return ""
	}
	return revision(info.Settings)
}()

var VersionOrHash = func() string {
	if Version != "" {
		return Version
	}
	return Hash
}()

// String describes the build for the -v flag of the commands.
func String() string {
	v := VersionOrHash
	if v == "" {
		v = "devel"
	}
	return fmt.Sprintf("polysynth %s (%s)", v, runtime.Version())
}

func revision(settings []debug.BuildSetting) string {
	var rev string
	var dirty bool
	for _, s := range settings {
		switch s.Key {
		case "vcs.revision":
			rev = s.Value
		case "vcs.modified":
			dirty = s.Value == "true"
		}
	}
	if rev == "" {
		return ""
	}
	rev = rev[:min(len(rev), 7)]
	if dirty {
		rev += "-dirty"
	}
	return rev
}
