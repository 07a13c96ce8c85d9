package lpkgm

import (
	"errors"
	"sync/atomic"

	"github.com/gookit/color"
)

// Set to 1 while the commit phase of an install transaction is running.
// The signal handler in main consults it to decide between graceful
// cancellation and the "press Ctrl+C again" guard.
var CriticalPhase atomic.Int32

// Global variables
var (
	rootDir         string
	repoPaths       string
	stateDir        string
	logDir          string
	tmpDir          string
	defaultPlatform string
	platformsList   string
	Debug           bool
	ConfigFile      = "/etc/lpkgm.conf"
	version         = "dev" // overridden at build time

	errPackageNotFound = errors.New("package not found")
	errLockBusy        = errors.New("another transaction holds the prefix lock")

	// Global executor (assigned in main)
	UserExec *Executor
)

// color helpers
var (
	colInfo    = color.Info
	colWarn    = color.Warn
	colError   = color.Error
	colSuccess = color.HEX("#1976D2")
	colArrow   = color.HEX("#FFEB3B")
)
