package lpkgm

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
)

// BuildConfig is forwarded verbatim to the build driver for both phases
// of a transaction. It must be identical between the discovery and
// commit runs so the discovered footprint matches the real install.
type BuildConfig struct {
	Package  string
	Version  string
	Platform string
	Options  []string // KEY=VALUE pairs, passed through to the driver environment
}

// BuildDriver is the strategy a transaction uses to install a build
// into a directory. Implementations must be idempotent given a clean
// target directory and must return an error on build or install
// failure.
type BuildDriver interface {
	Name() string
	Install(ctx context.Context, installRoot string, cfg BuildConfig) error
}

// ScriptDriver installs by running the package definition's build
// script with the install root as its single argument. The script
// receives the package identity and the opaque build options through
// LPKGM_* environment variables.
type ScriptDriver struct {
	Script      string // path to the executable build script
	BuildSource string // working directory for the script
	Exec        *Executor
	Log         io.Writer // receives a copy of the script's output
}

func (d *ScriptDriver) Name() string { return "script" }

func (d *ScriptDriver) Install(ctx context.Context, installRoot string, cfg BuildConfig) error {
	if err := os.MkdirAll(installRoot, 0o755); err != nil {
		return fmt.Errorf("failed to create install root %s: %w", installRoot, err)
	}

	cmd := exec.Command(d.Script, installRoot)
	cmd.Dir = d.BuildSource
	cmd.Env = append(os.Environ(),
		"LPKGM_PKG_NAME="+cfg.Package,
		"LPKGM_PKG_VERSION="+cfg.Version,
		"LPKGM_PLATFORM="+cfg.Platform,
		"LPKGM_INSTALL_ROOT="+installRoot,
	)
	cmd.Env = append(cmd.Env, cfg.Options...)

	if d.Log != nil {
		cmd.Stdout = io.MultiWriter(os.Stdout, d.Log)
		cmd.Stderr = io.MultiWriter(os.Stderr, d.Log)
	}

	ex := d.Exec
	if ex == nil {
		ex = NewExecutor(ctx)
	}
	if err := ex.Run(cmd); err != nil {
		return fmt.Errorf("build script %s: %w", d.Script, err)
	}
	return nil
}
