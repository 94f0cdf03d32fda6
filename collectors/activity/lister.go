package activity

import (
	"context"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/shirou/gopsutil/v3/process"
)

// NativeLister enumerates processes through the OS process table and renders
// them in the same delimited layout the command listing uses.
type NativeLister struct{}

func (NativeLister) List(ctx context.Context) string {
	procs, err := process.ProcessesWithContext(ctx)
	if err != nil {
		return fmt.Sprintf("ERROR listing processes: %v\n", err)
	}
	sort.Slice(procs, func(i, j int) bool { return procs[i].Pid < procs[j].Pid })

	node, _ := os.Hostname()
	clean := strings.NewReplacer("\n", " ", "\r", " ")

	var b strings.Builder
	b.WriteString(processHeader + "\n")
	for _, p := range procs {
		// Processes exit between enumeration and inspection, and some
		// attributes need privileges; missing values stay empty.
		cmdline, _ := p.CmdlineWithContext(ctx)
		exe, _ := p.ExeWithContext(ctx)
		ppid, _ := p.PpidWithContext(ctx)
		fmt.Fprintf(&b, "%s,%s,%s,%d,%d\n", node, clean.Replace(cmdline), clean.Replace(exe), ppid, p.Pid)
	}
	return b.String()
}
