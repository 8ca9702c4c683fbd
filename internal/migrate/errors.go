package migrate

import (
	goerrors "github.com/goliatone/go-errors"
)

// Process exit codes.
const (
	ExitOK     = 0
	ExitConfig = 1
	ExitCommit = 23
)

// ExitCode maps a run error onto the process status.
func ExitCode(err error) int {
	switch {
	case err == nil:
		return ExitOK
	case goerrors.IsCategory(err, goerrors.CategoryCommand):
		return ExitCommit
	default:
		return ExitConfig
	}
}
