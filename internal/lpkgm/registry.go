package lpkgm

import (
	"encoding/json"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

// The registry is the per-platform metadata layout under the software
// root: <root>/<platform>/.lpkgm/<package>/<version>.json holds the
// install descriptor and <version>.manifest the file manifest. The
// package prefix itself is <root>/<platform>/<package>/<version>.
const metaDirName = ".lpkgm"

// Stats summarizes a package's installed footprint.
type Stats struct {
	Size   int64 `json:"size"`
	NFiles int   `json:"nFiles"`
}

// Descriptor is the persisted record of one installed package-version.
type Descriptor struct {
	Package     string            `json:"package"`
	Version     map[string]string `json:"version"`
	Platform    string            `json:"platform"`
	Prefix      string            `json:"prefix"`
	InstalledAt time.Time         `json:"installedAt"`
	Manifest    string            `json:"manifest"`
	Stats       Stats             `json:"stats"`
	Checksums   map[string]string `json:"checksums,omitempty"`
}

func (d *Descriptor) FullVersion() string {
	return d.Version["fullVersion"]
}

func platformRoot(platform string) string {
	return filepath.Join(rootDir, platform)
}

func metaDir(platform string) string {
	return filepath.Join(platformRoot(platform), metaDirName)
}

// PrefixFor returns the installation prefix for one package-version.
func PrefixFor(platform, pkg, ver string) string {
	return filepath.Join(platformRoot(platform), pkg, ver)
}

func descriptorPath(platform, pkg, ver string) string {
	return filepath.Join(metaDir(platform), pkg, ver+".json")
}

// ManifestPathFor returns where the manifest for one package-version
// lives. It sits beside the descriptor, not under the prefix, so that
// removal can read it after the prefix is gone.
func ManifestPathFor(platform, pkg, ver string) string {
	return filepath.Join(metaDir(platform), pkg, ver+".manifest")
}

// writeDescriptor persists d next to the manifest.
func writeDescriptor(d *Descriptor) error {
	p := descriptorPath(d.Platform, d.Package, d.FullVersion())
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		return fmt.Errorf("failed to create registry directory: %w", err)
	}
	data, err := json.MarshalIndent(d, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(p, append(data, '\n'), 0o644)
}

func readDescriptor(platform, pkg, ver string) (*Descriptor, error) {
	data, err := os.ReadFile(descriptorPath(platform, pkg, ver))
	if err != nil {
		return nil, err
	}
	var d Descriptor
	if err := json.Unmarshal(data, &d); err != nil {
		return nil, fmt.Errorf("corrupt descriptor for %s/%s: %w", pkg, ver, err)
	}
	return &d, nil
}

// Platforms returns the known platform identifiers: the configured
// LPKGM_PLATFORMS list when set, otherwise the two-level directory
// layout under the software root (e.g. el9/x86_64-gcc12).
func Platforms() []string {
	if platformsList != "" {
		var ids []string
		for _, id := range strings.FieldsFunc(platformsList, func(r rune) bool { return r == ',' || r == ' ' }) {
			if id != "" {
				ids = append(ids, id)
			}
		}
		return ids
	}

	var ids []string
	outer, err := os.ReadDir(rootDir)
	if err != nil {
		return nil
	}
	for _, o := range outer {
		if !o.IsDir() || strings.HasPrefix(o.Name(), ".") {
			continue
		}
		inner, err := os.ReadDir(filepath.Join(rootDir, o.Name()))
		if err != nil {
			continue
		}
		for _, i := range inner {
			if !i.IsDir() || strings.HasPrefix(i.Name(), ".") {
				continue
			}
			ids = append(ids, o.Name()+"/"+i.Name())
		}
	}
	sort.Strings(ids)
	return ids
}

// InstalledPackages lists package names with at least one descriptor
// under the platform's registry.
func InstalledPackages(platform string) []string {
	entries, err := os.ReadDir(metaDir(platform))
	if err != nil {
		return nil
	}
	var names []string
	for _, e := range entries {
		if e.IsDir() {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)
	return names
}

// InstalledVersions lists installed version strings for one package on
// one platform, in display order.
func InstalledVersions(platform, pkg string) []string {
	entries, err := os.ReadDir(filepath.Join(metaDir(platform), pkg))
	if err != nil {
		return nil
	}
	var vers []string
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasSuffix(name, ".json") {
			continue
		}
		vers = append(vers, strings.TrimSuffix(name, ".json"))
	}
	sort.Slice(vers, func(i, j int) bool { return CompareVersions(vers[i], vers[j]) < 0 })
	return vers
}

// ConfiguredPackages lists package names that have a definition in any
// repository on LPKGM_PATH.
func ConfiguredPackages() []string {
	seen := make(map[string]bool)
	var names []string
	for _, repo := range repoDirs() {
		entries, err := os.ReadDir(repo)
		if err != nil {
			continue
		}
		for _, e := range entries {
			if !e.IsDir() || strings.HasPrefix(e.Name(), ".") || seen[e.Name()] {
				continue
			}
			if !hasDefinition(filepath.Join(repo, e.Name())) {
				continue
			}
			seen[e.Name()] = true
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)
	return names
}

// ConfiguredVersions lists the installable version strings from a
// package's definition (its versions file), in file order.
func ConfiguredVersions(pkg string) []string {
	dir, err := FindPackageDir(pkg)
	if err != nil {
		return nil
	}
	data, err := os.ReadFile(filepath.Join(dir, "versions"))
	if err != nil {
		return nil
	}
	var vers []string
	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		vers = append(vers, line)
	}
	return vers
}

// FindPackageDir locates the definition directory for pkg, searching
// the repositories on LPKGM_PATH in order.
func FindPackageDir(pkg string) (string, error) {
	for _, repo := range repoDirs() {
		dir := filepath.Join(repo, pkg)
		if hasDefinition(dir) {
			return dir, nil
		}
	}
	return "", fmt.Errorf("%w: %s (searched %s)", errPackageNotFound, pkg, repoPaths)
}

func hasDefinition(dir string) bool {
	for _, f := range []string{"build", "dist-archive", "versions"} {
		if _, err := os.Stat(filepath.Join(dir, f)); err == nil {
			return true
		}
	}
	return false
}

// MatchInstalled loads descriptors for installed package-versions on a
// platform whose name and version match the given shell-style globs.
// Entries matching any keep glob ("name/version") are excluded.
func MatchInstalled(platform, namePat, verPat string, keep []string) ([]*Descriptor, error) {
	if namePat == "" {
		namePat = "*"
	}
	if verPat == "" {
		verPat = "*"
	}
	var out []*Descriptor
	for _, pkg := range InstalledPackages(platform) {
		if ok, _ := path.Match(namePat, pkg); !ok {
			continue
		}
		for _, ver := range InstalledVersions(platform, pkg) {
			if ok, _ := path.Match(verPat, ver); !ok {
				continue
			}
			excluded := false
			for _, k := range keep {
				if ok, _ := path.Match(k, pkg+"/"+ver); ok {
					excluded = true
					break
				}
			}
			if excluded {
				continue
			}
			d, err := readDescriptor(platform, pkg, ver)
			if err != nil {
				colWarn.Printf("skipping unreadable descriptor %s/%s: %v\n", pkg, ver, err)
				continue
			}
			out = append(out, d)
		}
	}
	return out, nil
}
