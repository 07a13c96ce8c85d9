package lpkgm

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"testing"
)

// placeInstalled fabricates a fully installed package: prefix tree,
// manifest and descriptor, the way a successful install leaves them.
func placeInstalled(t *testing.T, platform, pkg, ver string, rels []string) *Descriptor {
	t.Helper()
	prefix := PrefixFor(platform, pkg, ver)
	var abs []string
	for _, rel := range rels {
		p := filepath.Join(prefix, rel)
		if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(p, []byte(rel), 0o644); err != nil {
			t.Fatal(err)
		}
		abs = append(abs, p)
	}
	mp := ManifestPathFor(platform, pkg, ver)
	if err := appendManifest(mp, abs); err != nil {
		t.Fatal(err)
	}
	return installFake(t, platform, pkg, ver)
}

func TestRemoveDeletesFilesAndPrunesDirs(t *testing.T) {
	setTestRoot(t)
	const platform = "el9/x86_64-gcc12"
	d := placeInstalled(t, platform, "libfoo", "1.2.3", []string{
		"bin/tool",
		"lib/libfoo.so",
		"share/doc/libfoo/readme",
	})

	if err := PkgRemove(RemoveOptions{
		Platform:    platform,
		NamePattern: "libfoo",
		VerPattern:  "1.2.3",
		AutoConfirm: true,
	}); err != nil {
		t.Fatal(err)
	}

	if _, err := os.Stat(d.Prefix); !errors.Is(err, fs.ErrNotExist) {
		t.Errorf("prefix still present after removal: %v", err)
	}
	if _, err := os.Stat(d.Manifest); !errors.Is(err, fs.ErrNotExist) {
		t.Error("manifest still present after removal")
	}
	if _, err := readDescriptor(platform, "libfoo", "1.2.3"); err == nil {
		t.Error("descriptor still present after removal")
	}
	if pkgs := InstalledPackages(platform); len(pkgs) != 0 {
		t.Errorf("registry still lists packages: %v", pkgs)
	}
}

func TestRemoveKeepsForeignFiles(t *testing.T) {
	setTestRoot(t)
	const platform = "el9/x86_64-gcc12"
	d := placeInstalled(t, platform, "libfoo", "1.2.3", []string{"bin/tool"})

	// A file in the prefix that no manifest claims.
	foreign := filepath.Join(d.Prefix, "bin", "stray")
	if err := os.WriteFile(foreign, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}

	if err := PkgRemove(RemoveOptions{
		Platform:    platform,
		NamePattern: "libfoo",
		AutoConfirm: true,
	}); err != nil {
		t.Fatal(err)
	}

	if _, err := os.Stat(foreign); err != nil {
		t.Errorf("foreign file deleted: %v", err)
	}
	if _, err := os.Stat(filepath.Join(d.Prefix, "bin", "tool")); !errors.Is(err, fs.ErrNotExist) {
		t.Error("manifest-owned file survived removal")
	}
}

func TestRemoveKeepGlobSpares(t *testing.T) {
	setTestRoot(t)
	const platform = "el9/x86_64-gcc12"
	placeInstalled(t, platform, "libfoo", "1.2.3", []string{"bin/a"})
	kept := placeInstalled(t, platform, "libfoo", "2.0.0", []string{"bin/b"})

	if err := PkgRemove(RemoveOptions{
		Platform:    platform,
		NamePattern: "libfoo",
		VerPattern:  "*",
		Keep:        []string{"libfoo/2.0.0"},
		AutoConfirm: true,
	}); err != nil {
		t.Fatal(err)
	}

	if got := InstalledVersions(platform, "libfoo"); len(got) != 1 || got[0] != "2.0.0" {
		t.Errorf("remaining versions = %v, want [2.0.0]", got)
	}
	if _, err := os.Stat(filepath.Join(kept.Prefix, "bin", "b")); err != nil {
		t.Errorf("kept package's files deleted: %v", err)
	}
}

func TestRemoveToleratesDuplicateManifestLines(t *testing.T) {
	setTestRoot(t)
	const platform = "el9/x86_64-gcc12"
	d := placeInstalled(t, platform, "libfoo", "1.2.3", []string{"bin/tool"})
	// A second failed-then-retried install appended the same lines again.
	if err := appendManifest(d.Manifest, []string{filepath.Join(d.Prefix, "bin/tool")}); err != nil {
		t.Fatal(err)
	}

	if err := PkgRemove(RemoveOptions{
		Platform:    platform,
		NamePattern: "libfoo",
		AutoConfirm: true,
	}); err != nil {
		t.Fatal(err)
	}
}

func TestRemoveNothingSelected(t *testing.T) {
	setTestRoot(t)
	err := PkgRemove(RemoveOptions{
		Platform:    "el9/x86_64-gcc12",
		NamePattern: "ghost",
		AutoConfirm: true,
	})
	if !errors.Is(err, errPackageNotFound) {
		t.Errorf("want package-not-found, got %v", err)
	}
}

func TestRemoveRequiresPlatform(t *testing.T) {
	setTestRoot(t)
	oldDefault := defaultPlatform
	defaultPlatform = ""
	t.Cleanup(func() { defaultPlatform = oldDefault })

	if err := PkgRemove(RemoveOptions{NamePattern: "libfoo", AutoConfirm: true}); err == nil {
		t.Error("remove without a platform must fail")
	}
}

func TestPruneEmptyDirsStopsAtPrefix(t *testing.T) {
	base := t.TempDir()
	prefix := filepath.Join(base, "prefix")
	deep := filepath.Join(prefix, "a", "b", "c")
	if err := os.MkdirAll(deep, 0o755); err != nil {
		t.Fatal(err)
	}

	pruneEmptyDirs(map[string]bool{deep: true}, prefix)

	if _, err := os.Stat(filepath.Join(prefix, "a")); !errors.Is(err, fs.ErrNotExist) {
		t.Error("empty chain not pruned")
	}
	// The prefix itself and everything above it stay.
	if _, err := os.Stat(prefix); err != nil {
		t.Errorf("prefix pruned: %v", err)
	}
}
