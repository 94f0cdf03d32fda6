package system

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"livecollect/collectors"
	"livecollect/collectors/platform"
	"livecollect/collectors/runner"
)

func windowsPlan() platform.Plan {
	return platform.Windows(func(string) string { return "" }, platform.Limits{})
}

func TestIdentityCollector(t *testing.T) {
	p := windowsPlan()
	stub := &runner.Stub{Outputs: map[string]string{"systeminfo": "Host Name: WS01\n"}}
	c := NewIdentityCollector(stub, p.System, func(context.Context) string { return "Hostname: WS01\n" })

	body, err := c.Collect(context.Background(), collectors.RunContext{})
	require.NoError(t, err)

	assert.Equal(t, collectors.TitleSystem, c.Title())
	assert.Contains(t, body, "=== systeminfo ===\nHost Name: WS01")
	assert.Contains(t, body, "=== wmic bios ===")
	assert.Contains(t, body, "ERROR running wmic bios get")
	assert.Contains(t, body, "=== native host summary ===\nHostname: WS01")
	assert.Len(t, stub.Calls, 5)
}

func TestDriversCollectorAllFailing(t *testing.T) {
	p := windowsPlan()
	c := NewDriversCollector(&runner.Stub{}, p.Drivers)

	body, err := c.Collect(context.Background(), collectors.RunContext{})
	require.NoError(t, err)
	assert.Equal(t, collectors.TitleDrivers, c.Title())
	assert.Contains(t, body, "ERROR running driverquery /v")
	assert.Contains(t, body, "ERROR running wmic service get")
}

func TestHostSummary(t *testing.T) {
	out := HostSummary(context.Background())
	assert.NotEmpty(t, out)
	assert.Contains(t, out, "Memory:")
	assert.Contains(t, out, "Disk (")
}
