package lpkgm

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
)

// ShowPackages implements the show subcommand's listing and detail
// modes. With no version it prints a table of installed packages
// (optionally filtered by name); with both name and version it dumps
// the matching descriptors as JSON.
func ShowPackages(out io.Writer, platform, namePat, verPat string) error {
	if platform == "" {
		platform = defaultPlatform
	}

	platforms := []string{platform}
	if platform == "" {
		platforms = Platforms()
	}

	if verPat != "" {
		// Detail mode: dump descriptor JSON, original-style.
		found := false
		for _, pf := range platforms {
			descs, err := MatchInstalled(pf, namePat, verPat, nil)
			if err != nil {
				return err
			}
			for _, d := range descs {
				found = true
				data, err := json.MarshalIndent(d, "", "  ")
				if err != nil {
					return err
				}
				fmt.Fprintln(out, string(data))
			}
		}
		if !found {
			return fmt.Errorf("%w: %s/%s", errPackageNotFound, namePat, verPat)
		}
		return nil
	}

	var overall int64
	rows := 0
	for _, pf := range platforms {
		descs, err := MatchInstalled(pf, namePat, "*", nil)
		if err != nil {
			return err
		}
		if len(descs) == 0 {
			continue
		}
		if rows == 0 {
			fmt.Fprintf(out, "%-24s %-20s %-22s %10s  %s\n",
				"Package", "Version", "Platform", "Size", "Installed")
		}
		for _, d := range descs {
			fmt.Fprintf(out, "%-24s %-20s %-22s %10s  %s\n",
				d.Package, d.FullVersion(), d.Platform,
				sizeofFmt(d.Stats.Size), d.InstalledAt.Format("02/01/06, 15:04"))
			overall += d.Stats.Size
			rows++
		}
	}

	if rows == 0 {
		fmt.Fprintf(out, "(no packages installed -- %q is empty)\n", rootDir)
		return nil
	}
	fmt.Fprintf(out, "%s overall\n", sizeofFmt(overall))
	return nil
}

// ShowManifest prints the recorded manifest for one installed
// package-version.
func ShowManifest(out io.Writer, platform, pkg, ver string) error {
	if platform == "" {
		platform = defaultPlatform
	}
	d, err := readDescriptor(platform, pkg, ver)
	if err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("%w: %s/%s on %s", errPackageNotFound, pkg, ver, platform)
		}
		return err
	}
	paths, err := readManifest(d.Manifest)
	if err != nil {
		return err
	}
	for _, p := range paths {
		fmt.Fprintln(out, p)
	}
	return nil
}
