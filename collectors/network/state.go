package network

import (
	"context"
	"fmt"

	"livecollect/collectors"
	"livecollect/collectors/runner"
)

// StateCollector concatenates the connection, routing, ARP and DNS cache
// commands and appends the native socket and interface tables.
type StateCollector struct {
	runner runner.Runner
	steps  []collectors.Step
	source Source
}

// NewStateCollector builds the collector. A nil source skips the native tables.
func NewStateCollector(r runner.Runner, steps []collectors.Step, source Source) *StateCollector {
	return &StateCollector{runner: r, steps: steps, source: source}
}

func (c *StateCollector) Name() string  { return "network_state" }
func (c *StateCollector) Title() string { return collectors.TitleNetwork }

func (c *StateCollector) Collect(ctx context.Context, rc collectors.RunContext) (string, error) {
	body := collectors.RunSteps(ctx, c.runner, c.steps)
	if c.source == nil {
		return body, nil
	}

	body += "\n\n=== native connection table ===\n"
	if conns, err := c.source.Connections(ctx); err != nil {
		body += fmt.Sprintf("ERROR reading connection table: %v\n", err)
	} else {
		body += renderConnections(conns)
	}

	body += "\n=== native interface addresses ===\n"
	if ifaces, err := c.source.Interfaces(ctx); err != nil {
		body += fmt.Sprintf("ERROR reading interfaces: %v\n", err)
	} else {
		body += renderInterfaces(ifaces)
	}
	return body, nil
}
