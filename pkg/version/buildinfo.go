package version

import (
	"fmt"
	"runtime/debug"
	"strings"
)

// moduleBuildInfo lists the main module, the build settings that affect
// floating-point code generation and every dependency.
func moduleBuildInfo() string {
	info, ok := debug.ReadBuildInfo()
	if !ok {
		return "not built in module mode"
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, " mod\t%s\t%s\n", info.Main.Path, info.Main.Version)
	for _, setting := range info.Settings {
		switch setting.Key {
		case "CGO_ENABLED", "GOARCH", "GOOS", "GOARM64", "GOAMD64", "-tags":
			fmt.Fprintf(&sb, " set\t%s=%s\n", setting.Key, setting.Value)
		}
	}
	for _, dep := range info.Deps {
		mod := dep
		if dep.Replace != nil {
			mod = dep.Replace
		}
		fmt.Fprintf(&sb, " dep\t%s\t%s\n", mod.Path, mod.Version)
	}
	return sb.String()
}
