package collectors

import (
	"context"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"

	"livecollect/collectors/runner"
)

func TestRunSteps(t *testing.T) {
	stub := &runner.Stub{
		Outputs: map[string]string{"arp -a": "10.0.0.1 aa-bb\n"},
		Errors:  map[string]error{"route print": errors.New("exit status 1")},
	}
	body := RunSteps(context.Background(), stub, []Step{
		{Header: "arp -a", Cmd: runner.Argv("arp", "-a")},
		{Header: "route print", Cmd: runner.Argv("route", "print")},
	})

	assert.Equal(t, "=== arp -a ===\n10.0.0.1 aa-bb\n\n\n=== route print ===\nERROR running route print: exit status 1\n", body)
}

func TestRunStepsEmpty(t *testing.T) {
	assert.Equal(t, "", RunSteps(context.Background(), &runner.Stub{}, nil))
}
