package lpkgm

import (
	"context"
	"os"
	"os/exec"
	"syscall"
)

// Executor provides a consistent interface for executing external
// commands under the application's cancellation context. Build scripts
// run under the invoking user; the shared software tree is expected to
// be writable without privilege escalation.
type Executor struct {
	Context context.Context
}

func NewExecutor(ctx context.Context) *Executor {
	return &Executor{Context: ctx}
}

// Run executes the given command, wiring up stdio when the caller left
// it unset and isolating the child in its own process group so a
// cancelled context does not leave orphans behind.
func (e *Executor) Run(cmd *exec.Cmd) error {
	if cmd.Stdin == nil {
		cmd.Stdin = os.Stdin
	}
	if cmd.Stdout == nil {
		cmd.Stdout = os.Stdout
	}
	if cmd.Stderr == nil {
		cmd.Stderr = os.Stderr
	}

	ctx := e.Context
	if ctx == nil {
		ctx = context.Background()
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}

	if err := cmd.Start(); err != nil {
		return err
	}

	done := make(chan error, 1)
	go func() { done <- cmd.Wait() }()

	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		// Kill the whole process group, then reap.
		syscall.Kill(-cmd.Process.Pid, syscall.SIGTERM)
		<-done
		return ctx.Err()
	}
}
