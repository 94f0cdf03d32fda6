package platform

import (
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"livecollect/collectors"
	"livecollect/collectors/runner"
)

func env(m map[string]string) func(string) string {
	return func(k string) string { return m[k] }
}

func TestWindowsPlan(t *testing.T) {
	p := ForOS("windows", env(map[string]string{"LOCALAPPDATA": `L`, "USERPROFILE": `U`}), Limits{})

	assert.Equal(t, "windows", p.OS)
	assert.Len(t, p.System, 5)
	assert.Equal(t, "wmic process get ProcessId,ExecutablePath,ParentProcessId,CommandLine /format:csv", p.ProcessList.String())
	assert.Equal(t, filepath.Join("L", "Google", "Chrome", "User Data", "Default", "History"), p.Browsers.Chrome)
	assert.Equal(t, filepath.Join("U", "AppData", "Roaming", "Mozilla", "Firefox", "Profiles"), p.Browsers.FirefoxProfile)

	require.Len(t, p.Users, 3)
	events := p.Users[2].Cmd.Args[len(p.Users[2].Cmd.Args)-1]
	assert.Contains(t, events, "Id=4624,4634")
	assert.Contains(t, events, "-MaxEvents 200")
}

func TestWindowsPlanDefaultsAndLimits(t *testing.T) {
	p := Windows(env(nil), Limits{LogonEvents: 50})
	assert.True(t, strings.HasPrefix(p.Browsers.Edge, `C:\Users\Default\AppData\Local`))
	assert.Contains(t, p.Users[2].Header, "last 50")
}

func TestUnixPlan(t *testing.T) {
	p := ForOS("linux", env(map[string]string{"HOME": "/home/ann"}), Limits{})

	assert.Empty(t, p.ProcessList.String())
	assert.Equal(t, "/home/ann/.config/google-chrome/Default/History", p.Browsers.Chrome)
	assert.Equal(t, "/home/ann/.mozilla/firefox", p.Browsers.FirefoxProfile)
	assert.Equal(t, "last -F -n 200", p.Users[2].Cmd.String())
	assert.Equal(t, "ss -tulpen", p.Listening[0].Cmd.String())
}

func TestOverride(t *testing.T) {
	p := ForOS("linux", env(nil), Limits{})
	steps := []collectors.Step{{Header: "custom", Cmd: runner.Line("netstat -tlnp")}}

	require.NoError(t, p.Override(SectionListening, steps))
	assert.Equal(t, steps, p.Listening)

	assert.Error(t, p.Override("browser", steps))
}
