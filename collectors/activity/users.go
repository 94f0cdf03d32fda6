package activity

import (
	"context"

	"livecollect/collectors"
	"livecollect/collectors/runner"
)

// UsersCollector enumerates local accounts and recent logon/logoff records.
// The record count is bounded by the plan's query.
type UsersCollector struct {
	runner runner.Runner
	steps  []collectors.Step
}

func NewUsersCollector(r runner.Runner, steps []collectors.Step) *UsersCollector {
	return &UsersCollector{runner: r, steps: steps}
}

func (c *UsersCollector) Name() string  { return "users_logons" }
func (c *UsersCollector) Title() string { return collectors.TitleUsers }

func (c *UsersCollector) Collect(ctx context.Context, rc collectors.RunContext) (string, error) {
	return collectors.RunSteps(ctx, c.runner, c.steps), nil
}
