package cli

import (
	"github.com/pkg/errors"

	"livecollect/core/internal/session"
)

// Exit statuses of the livecollect binary.
const (
	ExitOK    = 0
	ExitError = 1
	ExitSetup = 2
)

// ExitCode maps a command error to the process exit status. A collection that
// could not create its output directory, vault or report exits with ExitSetup.
func ExitCode(err error) int {
	switch {
	case err == nil:
		return ExitOK
	case errors.Is(err, session.ErrSetup):
		return ExitSetup
	default:
		return ExitError
	}
}
