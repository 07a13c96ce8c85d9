package lpkgm

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/sys/unix"
)

// InstallTransaction performs the two-phase probe-then-commit install
// protocol against prefix and returns the manifest path on success.
//
// Phase one installs the build into an ephemeral probe directory to
// discover its file footprint; the probe directory is removed
// unconditionally afterwards. Every footprint path is then checked
// against the real prefix and the transaction aborts before any write
// if a regular file already exists there. Only then is the same build
// run again, installing into prefix directly; the build is re-run
// rather than copied because build systems may embed the install path
// into generated artifacts.
//
// The transaction holds an advisory flock scoped to prefix for its
// whole lifetime. The lock is host-local: callers sharing the prefix
// from several hosts must still serialize externally, one transaction
// per prefix at a time.
//
// Failure semantics: BuildFailedError (discovery) and CollisionError
// leave the prefix untouched and are safe to retry. A commit-phase
// BuildFailedError or an IncompleteInstallError leaves the prefix
// partially populated; neither is rolled back, files already installed
// may be in active use. Nothing is ever retried automatically.
func InstallTransaction(ctx context.Context, drv BuildDriver, prefix, manifestPath string, cfg BuildConfig) (string, error) {
	if !filepath.IsAbs(prefix) {
		return "", fmt.Errorf("prefix must be an absolute path, got %q", prefix)
	}
	prefix = filepath.Clean(prefix)

	lock, err := acquirePrefixLock(prefix)
	if err != nil {
		return "", err
	}
	defer releasePrefixLock(lock)

	// Discovery phase: install into the probe directory.
	probeRoot, err := prepareProbeDir(cfg, prefix)
	if err != nil {
		return "", err
	}
	if err := drv.Install(ctx, probeRoot, cfg); err != nil {
		removeProbeDir(probeRoot)
		return "", &BuildFailedError{Driver: drv.Name(), Phase: "discovery", Err: err}
	}

	// Footprint extraction. The probe directory is deleted no matter
	// what, so a failed extraction cannot leak probe state into later
	// attempts.
	footprint, footprintErr := collectFootprint(probeRoot)
	removeProbeDir(probeRoot)
	if footprintErr != nil {
		return "", fmt.Errorf("failed to extract footprint: %w", footprintErr)
	}

	// Collision check against the real prefix, before any write.
	for _, rel := range footprint {
		isFile, err := regularFileAt(prefix, rel)
		if err != nil {
			return "", fmt.Errorf("collision check failed for %s: %w", rel, err)
		}
		if isFile {
			return "", &CollisionError{Path: filepath.Join(prefix, rel)}
		}
	}

	// Commit phase: same driver, same config, real prefix.
	CriticalPhase.Store(1)
	defer CriticalPhase.Store(0)
	if err := drv.Install(ctx, prefix, cfg); err != nil {
		return "", &BuildFailedError{Driver: drv.Name(), Phase: "commit", Err: err}
	}

	// Verification: every discovered path must now exist as a regular
	// file under the prefix.
	absPaths := make([]string, 0, len(footprint))
	for _, rel := range footprint {
		isFile, err := regularFileAt(prefix, rel)
		if err != nil {
			return "", fmt.Errorf("verification failed for %s: %w", rel, err)
		}
		if !isFile {
			return "", &IncompleteInstallError{Path: filepath.Join(prefix, rel)}
		}
		absPaths = append(absPaths, filepath.Join(prefix, rel))
	}

	if err := appendManifest(manifestPath, absPaths); err != nil {
		return "", err
	}
	return manifestPath, nil
}

// prepareProbeDir selects the probe directory for the given install
// target, sweeps stale remnants from earlier killed attempts, and
// creates it empty. The key carries the prefix hash so that the sweep
// only ever matches runs serialized by this transaction's own prefix
// lock; a concurrent install of the same package/version into another
// prefix keeps its live probe directory. The PID suffix keeps the new
// directory unique.
func prepareProbeDir(cfg BuildConfig, prefix string) (string, error) {
	key := probeKey(cfg, prefix)

	// Anything matching the key belongs to an earlier run on the same
	// prefix; the lock we hold proves that run is dead.
	stale, _ := filepath.Glob(filepath.Join(tmpDir, key+".*"))
	for _, d := range stale {
		debugf("removing stale probe directory %s\n", d)
		if err := os.RemoveAll(d); err != nil {
			colWarn.Printf("failed to remove stale probe directory %s: %v\n", d, err)
		}
	}

	probeRoot := filepath.Join(tmpDir, fmt.Sprintf("%s.%d", key, os.Getpid()))
	if err := os.RemoveAll(probeRoot); err != nil {
		return "", fmt.Errorf("failed to clear probe directory %s: %w", probeRoot, err)
	}
	if err := os.MkdirAll(probeRoot, 0o755); err != nil {
		return "", fmt.Errorf("failed to create probe directory %s: %w", probeRoot, err)
	}
	return probeRoot, nil
}

func probeKey(cfg BuildConfig, prefix string) string {
	return fmt.Sprintf("lpkgm-probe-%s-%s-%s",
		sanitizePathComponent(cfg.Package), sanitizePathComponent(cfg.Version), hashString(prefix))
}

// removeProbeDir deletes the probe directory. Failure to do so does not
// abort the transaction (the real install has not started yet); it is
// reported as a warning so the operator can clean up by hand.
func removeProbeDir(probeRoot string) {
	if err := os.RemoveAll(probeRoot); err != nil {
		colWarn.Printf("probe cleanup failed: could not remove %s: %v\n", probeRoot, err)
	}
}

// regularFileAt reports whether prefix/rel resolves (following
// symlinks) to an existing regular file. A path whose parent components
// do not exist counts as "does not exist", not as an error.
func regularFileAt(prefix, rel string) (bool, error) {
	target := filepath.Join(prefix, rel)
	resolved, err := filepath.EvalSymlinks(target)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return false, nil
		}
		return false, err
	}
	fi, err := os.Stat(resolved)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return false, nil
		}
		return false, err
	}
	return fi.Mode().IsRegular(), nil
}

// acquirePrefixLock takes an exclusive, non-blocking advisory lock
// keyed by the prefix path. A busy lock means another transaction is
// mid-flight on this prefix; we abort instead of queueing because no
// operation in this engine is retried or delayed.
func acquirePrefixLock(prefix string) (*os.File, error) {
	if err := os.MkdirAll(stateDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create state directory %s: %w", stateDir, err)
	}
	lockPath := filepath.Join(stateDir, "prefix-"+hashString(prefix)+".lock")
	f, err := os.OpenFile(lockPath, os.O_CREATE|os.O_RDWR, 0o644)
	if err != nil {
		return nil, fmt.Errorf("failed to open lock file %s: %w", lockPath, err)
	}
	if err := unix.Flock(int(f.Fd()), unix.LOCK_EX|unix.LOCK_NB); err != nil {
		f.Close()
		return nil, fmt.Errorf("%w (prefix %s)", errLockBusy, prefix)
	}
	return f, nil
}

func releasePrefixLock(f *os.File) {
	unix.Flock(int(f.Fd()), unix.LOCK_UN)
	f.Close()
}

// sanitizePathComponent makes a package name or version usable as a
// single path component (platform ids and versions may contain '/').
func sanitizePathComponent(s string) string {
	return strings.ReplaceAll(s, "/", "_")
}
