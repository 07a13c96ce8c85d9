package lpkgm

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"golang.org/x/term"
)

// RemoveOptions carries the remove subcommand's arguments. Name and
// version accept shell-style globs; Keep excludes "name/version" glob
// matches from the selection.
type RemoveOptions struct {
	Platform    string
	NamePattern string
	VerPattern  string
	Keep        []string
	AutoConfirm bool
}

// PkgRemove deletes every installed package-version matching the given
// patterns: the manifest's files first, then directories that became
// empty, then the manifest and descriptor themselves.
func PkgRemove(opts RemoveOptions) error {
	platform := opts.Platform
	if platform == "" {
		platform = defaultPlatform
	}
	if platform == "" {
		return fmt.Errorf("no platform selected: pass -Dplatform=<id> or set LPKGM_PLATFORM")
	}

	selected, err := MatchInstalled(platform, opts.NamePattern, opts.VerPattern, opts.Keep)
	if err != nil {
		return err
	}
	if len(selected) == 0 {
		return fmt.Errorf("%w: %s of version %q on %s (no install descriptor exists)",
			errPackageNotFound, opts.NamePattern, opts.VerPattern, platform)
	}

	colArrow.Print("-> ")
	colSuccess.Printf("Packages selected for deletion (%d):\n", len(selected))
	for _, d := range selected {
		fmt.Printf("    %-24s %-20s %s, installed %s\n",
			d.Package, d.FullVersion(), sizeofFmt(d.Stats.Size),
			d.InstalledAt.Format("02/01/06 15:04"))
	}

	if !opts.AutoConfirm {
		if !term.IsTerminal(int(os.Stdin.Fd())) {
			// A batch run without -y: refuse deletion as a precaution.
			colWarn.Printf("not a terminal and -y not given, refusing to delete %d package(s)\n", len(selected))
			return fmt.Errorf("deletion not confirmed")
		}
		if !confirm(fmt.Sprintf("Confirm deletion of %d package(s)?", len(selected))) {
			return fmt.Errorf("deletion declined")
		}
	}

	for _, d := range selected {
		if err := removeOne(d); err != nil {
			return err
		}
	}
	return nil
}

func removeOne(d *Descriptor) error {
	paths, err := readManifest(d.Manifest)
	if err != nil {
		return fmt.Errorf("failed to read manifest for %s/%s: %w", d.Package, d.FullVersion(), err)
	}

	// Delete files and symlinks; collect their parents for pruning.
	// Duplicate manifest lines from repeated install attempts make the
	// second unlink a no-op.
	dirs := make(map[string]bool)
	for _, p := range paths {
		fi, err := os.Lstat(p)
		if err != nil {
			if os.IsNotExist(err) {
				debugf("manifest entry already gone: %s\n", p)
				continue
			}
			return err
		}
		if fi.IsDir() {
			dirs[p] = true
			continue
		}
		debugf("deleting %s\n", p)
		if err := os.Remove(p); err != nil {
			colError.Printf("error removing %s: %v\n", p, err)
			colError.Printf("descriptor %s kept for investigation\n",
				descriptorPath(d.Platform, d.Package, d.FullVersion()))
			return err
		}
		dirs[filepath.Dir(p)] = true
	}

	pruneEmptyDirs(dirs, d.Prefix)

	// The prefix directory itself, if emptied, goes too.
	os.Remove(d.Prefix)

	if err := os.Remove(d.Manifest); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete manifest: %w", err)
	}
	descPath := descriptorPath(d.Platform, d.Package, d.FullVersion())
	if err := os.Remove(descPath); err != nil {
		return fmt.Errorf("failed to delete descriptor: %w", err)
	}
	// Drop the package's registry dir when no versions remain.
	os.Remove(filepath.Dir(descPath))

	colArrow.Print("-> ")
	colSuccess.Printf("%s of version %s removed\n", d.Package, d.FullVersion())
	return nil
}

// pruneEmptyDirs removes directories that became empty, deepest first,
// walking up but never above the package prefix. Directories still
// holding foreign files are left alone.
func pruneEmptyDirs(dirs map[string]bool, prefix string) {
	var sorted []string
	for d := range dirs {
		sorted = append(sorted, d)
	}
	sort.Slice(sorted, func(i, j int) bool { return len(sorted[i]) > len(sorted[j]) })

	for _, dir := range sorted {
		for dir != prefix && strings.HasPrefix(dir, prefix+string(os.PathSeparator)) {
			if err := os.Remove(dir); err != nil {
				break // not empty, or already gone
			}
			debugf("removed empty directory %s\n", dir)
			dir = filepath.Dir(dir)
		}
	}
}

func confirm(prompt string) bool {
	reader := bufio.NewReader(os.Stdin)
	for {
		fmt.Printf("%s (please type \"yes\" or \"no\"): ", prompt)
		answer, err := reader.ReadString('\n')
		if err != nil {
			return false
		}
		switch strings.ToLower(strings.TrimSpace(answer)) {
		case "yes":
			return true
		case "no":
			return false
		}
	}
}
