// Package system collects host identity, driver and service inventories.
package system

import (
	"context"

	"livecollect/collectors"
	"livecollect/collectors/runner"
)

// IdentityCollector issues the read-only system, firmware, CPU and memory
// inventory commands and appends the native host summary.
type IdentityCollector struct {
	runner runner.Runner
	steps  []collectors.Step
	native func(context.Context) string
}

// NewIdentityCollector builds the collector. A nil native skips the native
// host summary.
func NewIdentityCollector(r runner.Runner, steps []collectors.Step, native func(context.Context) string) *IdentityCollector {
	return &IdentityCollector{runner: r, steps: steps, native: native}
}

func (c *IdentityCollector) Name() string  { return "system_identity" }
func (c *IdentityCollector) Title() string { return collectors.TitleSystem }

func (c *IdentityCollector) Collect(ctx context.Context, rc collectors.RunContext) (string, error) {
	body := collectors.RunSteps(ctx, c.runner, c.steps)
	if c.native != nil {
		body += "\n\n=== native host summary ===\n" + c.native(ctx)
	}
	return body, nil
}
