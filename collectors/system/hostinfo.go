package system

import (
	"context"
	"fmt"
	"os"
	"runtime"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/disk"
	"github.com/shirou/gopsutil/v3/host"
	"github.com/shirou/gopsutil/v3/mem"
)

// HostSummary renders host, CPU, memory and system disk facts read through
// the OS APIs rather than external commands. Each line degrades on its own.
func HostSummary(ctx context.Context) string {
	var b strings.Builder
	line := func(key, format string, args ...interface{}) {
		fmt.Fprintf(&b, "%-16s %s\n", key+":", fmt.Sprintf(format, args...))
	}

	if hi, err := host.InfoWithContext(ctx); err != nil {
		line("Host", "ERROR: %v", err)
	} else {
		boot := time.Unix(int64(hi.BootTime), 0)
		line("Hostname", "%s", hi.Hostname)
		line("OS", "%s %s %s (%s)", hi.OS, hi.Platform, hi.PlatformVersion, hi.PlatformFamily)
		line("Kernel", "%s %s", hi.KernelVersion, hi.KernelArch)
		line("Booted", "%s (%s)", boot.UTC().Format(time.RFC3339), humanize.Time(boot))
		line("Processes", "%d", hi.Procs)
		if hi.VirtualizationSystem != "" {
			line("Virtualization", "%s (%s)", hi.VirtualizationSystem, hi.VirtualizationRole)
		}
	}

	if infos, err := cpu.InfoWithContext(ctx); err != nil || len(infos) == 0 {
		line("CPU", "ERROR: %v", errOrEmpty(err))
	} else {
		physical, _ := cpu.CountsWithContext(ctx, false)
		logical, _ := cpu.CountsWithContext(ctx, true)
		line("CPU", "%s, %d physical / %d logical cores, %.0f MHz", strings.TrimSpace(infos[0].ModelName), physical, logical, infos[0].Mhz)
	}

	if vm, err := mem.VirtualMemoryWithContext(ctx); err != nil {
		line("Memory", "ERROR: %v", err)
	} else {
		line("Memory", "%s total, %s available (%.1f%% used)", humanize.Bytes(vm.Total), humanize.Bytes(vm.Available), vm.UsedPercent)
	}

	root := systemRoot()
	if du, err := disk.UsageWithContext(ctx, root); err != nil {
		line("Disk ("+root+")", "ERROR: %v", err)
	} else {
		line("Disk ("+root+")", "%s total, %s free (%.1f%% used)", humanize.Bytes(du.Total), humanize.Bytes(du.Free), du.UsedPercent)
	}

	return b.String()
}

func systemRoot() string {
	if runtime.GOOS != "windows" {
		return "/"
	}
	drive := os.Getenv("SystemDrive")
	if drive == "" {
		drive = "C:"
	}
	return drive + `\`
}

func errOrEmpty(err error) error {
	if err != nil {
		return err
	}
	return fmt.Errorf("no processors reported")
}
