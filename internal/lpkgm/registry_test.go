package lpkgm

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"
	"time"
)

func setTestRoot(t *testing.T) string {
	t.Helper()
	oldRoot, oldRepos, oldPlatforms := rootDir, repoPaths, platformsList
	rootDir = t.TempDir()
	repoPaths = ""
	platformsList = ""
	t.Cleanup(func() { rootDir, repoPaths, platformsList = oldRoot, oldRepos, oldPlatforms })
	return rootDir
}

func installFake(t *testing.T, platform, pkg, ver string) *Descriptor {
	t.Helper()
	d := &Descriptor{
		Package:     pkg,
		Version:     ParseVersion(ver),
		Platform:    platform,
		Prefix:      PrefixFor(platform, pkg, ver),
		InstalledAt: time.Now().UTC(),
		Manifest:    ManifestPathFor(platform, pkg, ver),
	}
	if err := writeDescriptor(d); err != nil {
		t.Fatal(err)
	}
	return d
}

func TestPlatformsFromDirectoryLayout(t *testing.T) {
	root := setTestRoot(t)
	for _, p := range []string{"el9/x86_64-gcc12", "el8/x86_64-gcc11", "el9/aarch64-gcc12"} {
		if err := os.MkdirAll(filepath.Join(root, p), 0o755); err != nil {
			t.Fatal(err)
		}
	}
	// Dot-directories and stray files are not platforms.
	if err := os.MkdirAll(filepath.Join(root, "el9", ".lpkgm"), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(root, "README"), []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}

	got := Platforms()
	want := []string{"el8/x86_64-gcc11", "el9/aarch64-gcc12", "el9/x86_64-gcc12"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Platforms() = %v, want %v", got, want)
	}
}

func TestPlatformsFromConfiguredList(t *testing.T) {
	setTestRoot(t)
	platformsList = "el9/x86_64-gcc12, el8/x86_64-gcc11"
	got := Platforms()
	want := []string{"el9/x86_64-gcc12", "el8/x86_64-gcc11"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Platforms() = %v, want %v", got, want)
	}
}

func TestInstalledEnumeration(t *testing.T) {
	setTestRoot(t)
	const platform = "el9/x86_64-gcc12"
	installFake(t, platform, "libfoo", "1.2.3")
	installFake(t, platform, "libfoo", "1.10.0")
	installFake(t, platform, "libfoo", "1.9.2")
	installFake(t, platform, "zlib", "1.3")

	if got, want := InstalledPackages(platform), []string{"libfoo", "zlib"}; !reflect.DeepEqual(got, want) {
		t.Errorf("InstalledPackages = %v, want %v", got, want)
	}
	// Version order is numeric-aware, not lexical.
	got := InstalledVersions(platform, "libfoo")
	want := []string{"1.2.3", "1.9.2", "1.10.0"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("InstalledVersions = %v, want %v", got, want)
	}
	if vers := InstalledVersions(platform, "absent"); vers != nil {
		t.Errorf("versions of absent package = %v, want nil", vers)
	}
}

func TestDescriptorRoundTrip(t *testing.T) {
	setTestRoot(t)
	const platform = "el9/x86_64-gcc12"
	d := installFake(t, platform, "libfoo", "1.2.3-opt")
	d.Stats = Stats{Size: 4096, NFiles: 3}
	d.Checksums = map[string]string{"bin/tool": "deadbeef"}
	if err := writeDescriptor(d); err != nil {
		t.Fatal(err)
	}

	got, err := readDescriptor(platform, "libfoo", "1.2.3-opt")
	if err != nil {
		t.Fatal(err)
	}
	if got.Package != "libfoo" || got.FullVersion() != "1.2.3-opt" {
		t.Errorf("identity = %s/%s", got.Package, got.FullVersion())
	}
	if got.Version["buildConf"] != "opt" {
		t.Errorf("parsed fields lost: %v", got.Version)
	}
	if got.Stats != d.Stats {
		t.Errorf("stats = %+v, want %+v", got.Stats, d.Stats)
	}
}

func TestConfiguredPackagesAndVersions(t *testing.T) {
	setTestRoot(t)
	repoA := t.TempDir()
	repoB := t.TempDir()
	repoPaths = repoA + ":" + repoB

	mkdef := func(repo, pkg string, files map[string]string) {
		dir := filepath.Join(repo, pkg)
		if err := os.MkdirAll(dir, 0o755); err != nil {
			t.Fatal(err)
		}
		for name, content := range files {
			if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644); err != nil {
				t.Fatal(err)
			}
		}
	}
	mkdef(repoA, "libfoo", map[string]string{
		"build":    "#!/bin/sh\n",
		"versions": "1.2.3\n1.2.4\n\n# comment\n2.0.0\n",
	})
	mkdef(repoB, "libfoo", map[string]string{"versions": "9.9.9\n"}) // shadowed by repoA
	mkdef(repoB, "zlib", map[string]string{"dist-archive": "https://example.org/zlib-{fullVersion}.tar.gz\n"})
	mkdef(repoA, "notapkg", nil) // no definition files

	if got, want := ConfiguredPackages(), []string{"libfoo", "zlib"}; !reflect.DeepEqual(got, want) {
		t.Errorf("ConfiguredPackages = %v, want %v", got, want)
	}
	if got, want := ConfiguredVersions("libfoo"), []string{"1.2.3", "1.2.4", "2.0.0"}; !reflect.DeepEqual(got, want) {
		t.Errorf("ConfiguredVersions = %v, want %v", got, want)
	}

	dir, err := FindPackageDir("libfoo")
	if err != nil {
		t.Fatal(err)
	}
	if dir != filepath.Join(repoA, "libfoo") {
		t.Errorf("FindPackageDir searched out of order: %s", dir)
	}
	if _, err := FindPackageDir("ghost"); err == nil {
		t.Error("FindPackageDir found a package with no definition")
	}
}

func TestMatchInstalled(t *testing.T) {
	setTestRoot(t)
	const platform = "el9/x86_64-gcc12"
	installFake(t, platform, "libfoo", "1.2.3")
	installFake(t, platform, "libfoo", "2.0.0")
	installFake(t, platform, "libbar", "1.2.3")

	names := func(ds []*Descriptor) []string {
		var out []string
		for _, d := range ds {
			out = append(out, d.Package+"/"+d.FullVersion())
		}
		return out
	}

	tests := []struct {
		name    string
		namePat string
		verPat  string
		keep    []string
		want    []string
	}{
		{"all", "", "", nil, []string{"libbar/1.2.3", "libfoo/1.2.3", "libfoo/2.0.0"}},
		{"name glob", "libf*", "", nil, []string{"libfoo/1.2.3", "libfoo/2.0.0"}},
		{"version glob", "*", "1.2.*", nil, []string{"libbar/1.2.3", "libfoo/1.2.3"}},
		{"keep excludes", "libfoo", "", []string{"libfoo/2.0.0"}, []string{"libfoo/1.2.3"}},
		{"no match", "ghost", "", nil, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ds, err := MatchInstalled(platform, tt.namePat, tt.verPat, tt.keep)
			if err != nil {
				t.Fatal(err)
			}
			if got := names(ds); !reflect.DeepEqual(got, tt.want) {
				t.Errorf("MatchInstalled = %v, want %v", got, tt.want)
			}
		})
	}
}
