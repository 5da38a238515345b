// Package hostinfo collects the facts about the machine that decide
// whether floating-point traps can work: architecture, kernel, CPU
// features and whether the probe runs under a hypervisor or emulator.
package hostinfo

import (
	"context"
	"fmt"
	"io"
	"runtime"
	"strings"

	"github.com/shirou/gopsutil/v3/host"
	"golang.org/x/sys/cpu"
)

// Info describes the host a probe runs on.
type Info struct {
	GOOS, GOARCH   string
	Platform       string
	Kernel         string
	Virtualization string
	Features       []string
}

// Collect gathers Info. Host details that cannot be read are left empty.
func Collect(ctx context.Context) *Info {
	info := &Info{
		GOOS:     runtime.GOOS,
		GOARCH:   runtime.GOARCH,
		Features: cpuFeatures(runtime.GOARCH),
	}
	if hi, err := host.InfoWithContext(ctx); err == nil {
		info.Platform = strings.TrimSpace(hi.Platform + " " + hi.PlatformVersion)
		info.Kernel = strings.TrimSpace(hi.KernelVersion + " " + hi.KernelArch)
		if hi.VirtualizationSystem != "" {
			info.Virtualization = hi.VirtualizationSystem + " (" + hi.VirtualizationRole + ")"
		}
	}
	return info
}

func cpuFeatures(arch string) []string {
	var r []string
	add := func(name string, has bool) {
		if has {
			r = append(r, name)
		}
	}
	switch arch {
	case "arm64":
		add("fp", cpu.ARM64.HasFP)
		add("asimd", cpu.ARM64.HasASIMD)
		add("fphp", cpu.ARM64.HasFPHP)
		add("sve", cpu.ARM64.HasSVE)
	case "amd64":
		add("sse2", cpu.X86.HasSSE2)
		add("sse41", cpu.X86.HasSSE41)
		add("avx", cpu.X86.HasAVX)
		add("avx2", cpu.X86.HasAVX2)
	}
	return r
}

// Write prints info as aligned "key: value" lines, skipping empty values.
func (info *Info) Write(w io.Writer) {
	rows := [][2]string{
		{"Arch", info.GOOS + "/" + info.GOARCH},
		{"Platform", info.Platform},
		{"Kernel", info.Kernel},
		{"Virtualization", info.Virtualization},
		{"CPU features", strings.Join(info.Features, " ")},
	}
	for _, row := range rows {
		if row[1] == "" {
			continue
		}
		fmt.Fprintf(w, "%-15s %s\n", row[0]+":", row[1])
	}
}
