package lpkgm

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"
)

// InstallOptions carries the install subcommand's arguments.
type InstallOptions struct {
	Platform string
	Package  string
	Version  string
	Options  []string // -o KEY=VALUE build options
	LogFile  string   // -l/--log override for the build log path
}

// PkgInstall installs one package-version into its prefix: locates the
// definition, picks the build driver, runs the install transaction and
// records the registry descriptor. The package must not already be
// installed for this platform/version.
func PkgInstall(ctx context.Context, opts InstallOptions) error {
	platform := opts.Platform
	if platform == "" {
		platform = defaultPlatform
	}
	if platform == "" {
		return fmt.Errorf("no platform selected: pass -Dplatform=<id> or set LPKGM_PLATFORM")
	}

	if _, err := os.Stat(descriptorPath(platform, opts.Package, opts.Version)); err == nil {
		return fmt.Errorf("package %s version %s already installed on %s (descriptor exists)",
			opts.Package, opts.Version, platform)
	}

	pkgDir, err := FindPackageDir(opts.Package)
	if err != nil {
		return err
	}
	if vers := ConfiguredVersions(opts.Package); len(vers) > 0 && !slices.Contains(vers, opts.Version) {
		colWarn.Printf("version %s is not listed in %s\n", opts.Version, filepath.Join(pkgDir, "versions"))
	}

	verFields := ParseVersion(opts.Version)
	cfg := BuildConfig{
		Package:  opts.Package,
		Version:  opts.Version,
		Platform: platform,
		Options:  opts.Options,
	}

	drv, err := driverFor(pkgDir, verFields)
	if err != nil {
		return err
	}

	// Script builds keep a copy of their output under the log dir (or
	// the -l override) so failures can be inspected after the fact.
	logPath := ""
	if sd, ok := drv.(*ScriptDriver); ok {
		logPath = opts.LogFile
		if logPath == "" {
			logPath = filepath.Join(logDir, fmt.Sprintf("%s-%s.%d.log",
				sanitizePathComponent(opts.Package), sanitizePathComponent(opts.Version), time.Now().Unix()))
		}
		if err := os.MkdirAll(filepath.Dir(logPath), 0o755); err != nil {
			colWarn.Printf("cannot create log directory for %s: %v\n", logPath, err)
			logPath = ""
		} else if lf, err := os.Create(logPath); err != nil {
			colWarn.Printf("cannot open build log %s: %v\n", logPath, err)
			logPath = ""
		} else {
			defer lf.Close()
			sd.Log = lf
		}
	}

	prefix := PrefixFor(platform, opts.Package, opts.Version)
	manifestPath := ManifestPathFor(platform, opts.Package, opts.Version)

	colArrow.Print("-> ")
	colSuccess.Printf("Installing %s/%s into %s (driver: %s)\n", opts.Package, opts.Version, prefix, drv.Name())

	if _, err := InstallTransaction(ctx, drv, prefix, manifestPath, cfg); err != nil {
		var bf *BuildFailedError
		if errors.As(err, &bf) && logPath != "" {
			colWarn.Printf("build output saved to %s\n", logPath)
		}
		return err
	}

	// The transaction succeeded; record the descriptor. Checksums and
	// stats are derived from the manifest just written.
	paths, err := readManifest(manifestPath)
	if err != nil {
		return fmt.Errorf("manifest written but unreadable: %w", err)
	}
	colInfo.Printf("checksumming %d installed files\n", len(paths))
	sums, err := ComputeChecksums(paths, true)
	if err != nil {
		colWarn.Printf("checksum pass incomplete: %v\n", err)
	}

	var stats Stats
	checksums := make(map[string]string, len(sums))
	for _, p := range paths {
		if fi, err := os.Stat(p); err == nil {
			stats.Size += fi.Size()
			stats.NFiles++
		}
		if sum, ok := sums[p]; ok {
			rel, err := filepath.Rel(prefix, p)
			if err != nil {
				rel = p
			}
			checksums[rel] = sum
		}
	}

	desc := &Descriptor{
		Package:     opts.Package,
		Version:     verFields,
		Platform:    platform,
		Prefix:      prefix,
		InstalledAt: time.Now().UTC(),
		Manifest:    manifestPath,
		Stats:       stats,
		Checksums:   checksums,
	}
	if err := writeDescriptor(desc); err != nil {
		return fmt.Errorf("install committed but descriptor write failed: %w", err)
	}

	colArrow.Print("-> ")
	colSuccess.Printf("Installed %s/%s (%s in %d files)\n",
		opts.Package, opts.Version, sizeofFmt(stats.Size), stats.NFiles)
	return nil
}

// driverFor picks the build driver from the package definition: a
// dist-archive template takes precedence, otherwise the build script.
func driverFor(pkgDir string, verFields map[string]string) (BuildDriver, error) {
	archTemplate := filepath.Join(pkgDir, "dist-archive")
	if data, err := os.ReadFile(archTemplate); err == nil {
		tmpl := strings.TrimSpace(string(data))
		if tmpl == "" {
			return nil, fmt.Errorf("empty dist-archive template in %s", pkgDir)
		}
		archive := expandVersionFields(tmpl, verFields)
		if !filepath.IsAbs(archive) {
			archive = filepath.Join(pkgDir, archive)
		}
		if _, err := os.Stat(archive); err != nil {
			return nil, fmt.Errorf("dist archive not found: %s", archive)
		}
		return &ArchiveDriver{Archive: archive, StripComponents: 1}, nil
	}

	script := filepath.Join(pkgDir, "build")
	if fi, err := os.Stat(script); err != nil || fi.IsDir() {
		return nil, fmt.Errorf("package definition %s has neither dist-archive nor build script", pkgDir)
	}
	return &ScriptDriver{Script: script, BuildSource: pkgDir, Exec: UserExec}, nil
}

// expandVersionFields substitutes {field} placeholders (fullVersion,
// major, minor, ...) in a definition template.
func expandVersionFields(tmpl string, fields map[string]string) string {
	out := tmpl
	for k, v := range fields {
		out = strings.ReplaceAll(out, "{"+k+"}", v)
	}
	return out
}
