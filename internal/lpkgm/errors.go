package lpkgm

import (
	"errors"
	"fmt"
)

// Exit codes reported by the CLI. These are stable; scripts may depend
// on them.
const (
	ExitOK                = 0
	ExitFailure           = 1
	ExitBuildFailed       = 2
	ExitCollisionDetected = 3
	ExitIncompleteInstall = 4
)

// BuildFailedError reports that the build driver itself failed during
// either phase of the transaction. The real prefix is untouched and the
// transaction is safe to retry once the cause is fixed.
type BuildFailedError struct {
	Driver string
	Phase  string // "discovery" or "commit"
	Err    error
}

func (e *BuildFailedError) Error() string {
	return fmt.Sprintf("build driver %s failed during %s phase: %v", e.Driver, e.Phase, e.Err)
}

func (e *BuildFailedError) Unwrap() error { return e.Err }

// CollisionError reports that a footprint path already exists as a
// regular file under the target prefix. Nothing was written; the
// pre-existing file belongs to some other package or install attempt.
type CollisionError struct {
	Path string
}

func (e *CollisionError) Error() string {
	return fmt.Sprintf("collision: %s already exists as a regular file", e.Path)
}

// IncompleteInstallError reports that post-commit verification found a
// footprint path missing from the prefix. The prefix is partially
// populated; this is fatal and requires operator intervention, files
// already placed may be in active use so no rollback is attempted.
type IncompleteInstallError struct {
	Path string
}

func (e *IncompleteInstallError) Error() string {
	return fmt.Sprintf("incomplete install: %s missing after commit phase", e.Path)
}

// ExitCodeFor maps a transaction error to the documented exit code.
func ExitCodeFor(err error) int {
	if err == nil {
		return ExitOK
	}
	var bf *BuildFailedError
	var ce *CollisionError
	var ie *IncompleteInstallError
	switch {
	case errors.As(err, &bf):
		return ExitBuildFailed
	case errors.As(err, &ce):
		return ExitCollisionDetected
	case errors.As(err, &ie):
		return ExitIncompleteInstall
	}
	return ExitFailure
}
