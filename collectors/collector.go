package collectors

import (
	"context"
	"strings"

	"livecollect/collectors/runner"
)

// Section titles, in report order.
const (
	TitleSystem    = "SYSTEM INFORMATION"
	TitleProcesses = "RUNNING PROCESSES & HASHES"
	TitleDrivers   = "DRIVERS AND SERVICES"
	TitleUsers     = "USER ACCOUNTS AND LOGON/LOGOFF"
	TitleBrowser   = "BROWSER ARTIFACTS (sample recent history if readable)"
	TitleNetwork   = "NETWORK (connections, routing, ARP, DNS cache)"
	TitleListening = "LISTENING PORTS"
	TitleNotes     = "NOTES"
)

// Titles lists every section title in report order.
var Titles = []string{
	TitleSystem,
	TitleProcesses,
	TitleDrivers,
	TitleUsers,
	TitleBrowser,
	TitleNetwork,
	TitleListening,
	TitleNotes,
}

// Section is one titled block of report text. The body is opaque.
type Section struct {
	Title string
	Body  string
}

// Artifact is a file preserved in the output directory.
type Artifact struct {
	RelativePath string            `json:"relative_path"`
	Collector    string            `json:"collector"`
	CollectedAt  string            `json:"collected_at"`
	SizeBytes    int64             `json:"size_bytes"`
	SHA256       string            `json:"sha256"`
	Metadata     map[string]string `json:"metadata,omitempty"`
}

type RunContext struct {
	CaseID    string
	OutputDir string
}

// Collector gathers one category of evidence and renders it as the body of
// the section named by Title. A returned error is rendered inline by the
// caller; it never stops other collectors.
type Collector interface {
	Name() string
	Title() string
	Collect(ctx context.Context, rc RunContext) (string, error)
}

// Step is one sub-headed command of a collector.
type Step struct {
	Header string
	Cmd    runner.Command
}

// RunSteps runs every step in order and concatenates the outputs under
// "=== header ===" lines.
func RunSteps(ctx context.Context, r runner.Runner, steps []Step) string {
	parts := make([]string, 0, len(steps)*2)
	for i, s := range steps {
		header := "=== " + s.Header + " ==="
		if i > 0 {
			header = "\n" + header
		}
		parts = append(parts, header, r.Run(ctx, s.Cmd).Text())
	}
	return strings.Join(parts, "\n")
}
