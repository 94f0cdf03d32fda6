// Package activity collects what is running on the host and who has used it.
package activity

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/afero"

	"livecollect/collectors"
	"livecollect/collectors/runner"
	"livecollect/evidence"
)

// processColumns is the Node,CommandLine,ExecutablePath,ParentProcessId,ProcessId layout.
const processColumns = 5

const processHeader = "Node,CommandLine,ExecutablePath,ParentProcessId,ProcessId"

// ProcessRecord is one parsed line of the process listing.
type ProcessRecord struct {
	Node           string
	PID            int
	ParentPID      int
	CommandLine    string
	ExecutablePath string
	Digest         string
}

// ParseProcessLine parses one delimited listing line. The command line may
// itself contain commas, so the node is taken from the front and the
// executable and ids from the back. Short lines and lines without numeric ids
// (headers, blanks) are rejected.
func ParseProcessLine(line string) (ProcessRecord, bool) {
	line = strings.TrimRight(line, "\r\n")
	cols := strings.Split(line, ",")
	n := len(cols)
	if n < processColumns {
		return ProcessRecord{}, false
	}
	pid, err := strconv.Atoi(strings.TrimSpace(cols[n-1]))
	if err != nil {
		return ProcessRecord{}, false
	}
	ppid, err := strconv.Atoi(strings.TrimSpace(cols[n-2]))
	if err != nil {
		return ProcessRecord{}, false
	}
	return ProcessRecord{
		Node:           strings.TrimSpace(cols[0]),
		PID:            pid,
		ParentPID:      ppid,
		CommandLine:    strings.Join(cols[1:n-3], ","),
		ExecutablePath: strings.TrimSpace(cols[n-3]),
	}, true
}

// Lister produces the raw process listing as report text.
type Lister interface {
	List(ctx context.Context) string
}

// CommandLister gets the listing from an external command.
type CommandLister struct {
	Runner  runner.Runner
	Command runner.Command
}

func (l CommandLister) List(ctx context.Context) string {
	return l.Runner.Run(ctx, l.Command).Text()
}

// ProcessCollector lists processes and hashes every executable it can find.
type ProcessCollector struct {
	fs     afero.Fs
	lister Lister
}

func NewProcessCollector(fs afero.Fs, lister Lister) *ProcessCollector {
	return &ProcessCollector{fs: fs, lister: lister}
}

func (c *ProcessCollector) Name() string  { return "process_inventory" }
func (c *ProcessCollector) Title() string { return collectors.TitleProcesses }

func (c *ProcessCollector) Collect(ctx context.Context, rc collectors.RunContext) (string, error) {
	raw := c.lister.List(ctx)

	out := []string{
		"Process list (" + processHeader + "). SHA256 of each executable whose path exists follows the listing.\n",
		raw,
	}

	digests := map[string]string{}
	for _, line := range strings.Split(raw, "\n") {
		rec, ok := ParseProcessLine(line)
		if !ok || !evidence.IsFile(c.fs, rec.ExecutablePath) {
			continue
		}
		sum, seen := digests[rec.ExecutablePath]
		if !seen {
			sum = evidence.Digest(c.fs, rec.ExecutablePath)
			digests[rec.ExecutablePath] = sum
		}
		rec.Digest = sum
		out = append(out, digestLine(rec))
	}
	return strings.Join(out, "\n"), nil
}

func digestLine(rec ProcessRecord) string {
	return fmt.Sprintf("PID %d EXEC %s SHA256: %s", rec.PID, rec.ExecutablePath, rec.Digest)
}
