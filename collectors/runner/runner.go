// Package runner executes the external commands collectors depend on and
// turns every failure into renderable text.
package runner

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"runtime"
	"strings"
	"time"

	"github.com/pkg/errors"
)

// Command is either an argv (Name plus Args) or an opaque shell line.
type Command struct {
	Name  string
	Args  []string
	Shell string
}

// Argv builds a command that is executed without a shell.
func Argv(name string, args ...string) Command {
	return Command{Name: name, Args: args}
}

// Line builds a command that is handed to the platform shell.
func Line(line string) Command {
	return Command{Shell: line}
}

func (c Command) String() string {
	if c.Shell != "" {
		return c.Shell
	}
	if len(c.Args) == 0 {
		return c.Name
	}
	return c.Name + " " + strings.Join(c.Args, " ")
}

// Result is the outcome of one command invocation. Output holds whatever the
// child wrote even when Err is set.
type Result struct {
	Command Command
	Output  string
	Err     error
}

// Text renders the result for a report. A failed command keeps its partial
// output followed by the error line.
func (r Result) Text() string {
	if r.Err == nil {
		return r.Output
	}
	line := fmt.Sprintf("ERROR running %s: %v\n", r.Command, r.Err)
	if strings.TrimSpace(r.Output) == "" {
		return line
	}
	if !strings.HasSuffix(r.Output, "\n") {
		return r.Output + "\n" + line
	}
	return r.Output + line
}

// Runner runs a single command synchronously.
type Runner interface {
	Run(ctx context.Context, cmd Command) Result
}

// Exec runs commands as child processes. Each call gets its own deadline when
// Timeout is positive.
type Exec struct {
	Timeout time.Duration
}

func (e Exec) Run(ctx context.Context, c Command) Result {
	parent := ctx
	if e.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.Timeout)
		defer cancel()
	}

	var cmd *exec.Cmd
	switch {
	case c.Shell != "":
		cmd = shellCommand(ctx, c.Shell)
	case c.Name != "":
		cmd = exec.CommandContext(ctx, c.Name, c.Args...)
	default:
		return Result{Command: c, Err: errors.New("empty command")}
	}

	var out bytes.Buffer
	cmd.WaitDelay = time.Second
	cmd.Stdout = &out
	cmd.Stderr = &out
	err := cmd.Run()
	switch {
	case err == nil:
	case parent.Err() != nil:
		err = parent.Err()
	case ctx.Err() == context.DeadlineExceeded:
		err = errors.Errorf("timed out after %s", e.Timeout)
	}
	return Result{Command: c, Output: out.String(), Err: err}
}

func shellCommand(ctx context.Context, line string) *exec.Cmd {
	if runtime.GOOS == "windows" {
		return exec.CommandContext(ctx, "cmd", "/C", line)
	}
	return exec.CommandContext(ctx, "sh", "-c", line)
}

// Stub answers commands from canned output keyed by Command.String(). Unknown
// commands fail like a missing binary would.
type Stub struct {
	Outputs map[string]string
	Errors  map[string]error
	// Default, when set, answers every command not found in Outputs or Errors.
	Default *Result

	Calls []string
}

func (s *Stub) Run(_ context.Context, c Command) Result {
	key := c.String()
	s.Calls = append(s.Calls, key)
	if err, ok := s.Errors[key]; ok {
		return Result{Command: c, Output: s.Outputs[key], Err: err}
	}
	if out, ok := s.Outputs[key]; ok {
		return Result{Command: c, Output: out}
	}
	if s.Default != nil {
		r := *s.Default
		r.Command = c
		return r
	}
	return Result{Command: c, Err: exec.ErrNotFound}
}
