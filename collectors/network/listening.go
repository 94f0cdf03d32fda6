package network

import (
	"context"
	"fmt"

	"livecollect/collectors"
	"livecollect/collectors/runner"
)

// ListeningCollector runs the owner-resolving connection table command and
// appends natively read listening sockets. Both may show less without
// elevated privileges.
type ListeningCollector struct {
	runner runner.Runner
	steps  []collectors.Step
	source Source
}

func NewListeningCollector(r runner.Runner, steps []collectors.Step, source Source) *ListeningCollector {
	return &ListeningCollector{runner: r, steps: steps, source: source}
}

func (c *ListeningCollector) Name() string  { return "listening_ports" }
func (c *ListeningCollector) Title() string { return collectors.TitleListening }

func (c *ListeningCollector) Collect(ctx context.Context, rc collectors.RunContext) (string, error) {
	body := collectors.RunSteps(ctx, c.runner, c.steps)
	if c.source == nil {
		return body, nil
	}

	body += "\n\n=== native listening sockets ===\n"
	conns, err := c.source.Connections(ctx)
	if err != nil {
		return body + fmt.Sprintf("ERROR reading connection table: %v\n", err), nil
	}
	var listening []ConnectionRecord
	for _, r := range conns {
		if r.Listening() {
			listening = append(listening, r)
		}
	}
	return body + renderConnections(listening), nil
}
