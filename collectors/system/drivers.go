package system

import (
	"context"

	"livecollect/collectors"
	"livecollect/collectors/runner"
)

// DriversCollector concatenates the driver and service enumerations.
type DriversCollector struct {
	runner runner.Runner
	steps  []collectors.Step
}

func NewDriversCollector(r runner.Runner, steps []collectors.Step) *DriversCollector {
	return &DriversCollector{runner: r, steps: steps}
}

func (c *DriversCollector) Name() string  { return "drivers_services" }
func (c *DriversCollector) Title() string { return collectors.TitleDrivers }

func (c *DriversCollector) Collect(ctx context.Context, rc collectors.RunContext) (string, error) {
	return collectors.RunSteps(ctx, c.runner, c.steps), nil
}
