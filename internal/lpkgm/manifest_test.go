package lpkgm

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"
)

func TestManifestAppendPreservesDuplicates(t *testing.T) {
	mp := filepath.Join(t.TempDir(), "reg", "1.0.manifest")

	first := []string{"/opt/sw/el9/foo/1.0/bin/tool", "/opt/sw/el9/foo/1.0/lib/libfoo.so"}
	if err := appendManifest(mp, first); err != nil {
		t.Fatal(err)
	}
	// A later attempt appends, it never rewrites.
	if err := appendManifest(mp, first); err != nil {
		t.Fatal(err)
	}

	got, err := readManifest(mp)
	if err != nil {
		t.Fatal(err)
	}
	want := append(append([]string{}, first...), first...)
	if !reflect.DeepEqual(got, want) {
		t.Errorf("manifest = %v, want %v", got, want)
	}
}

func TestReadManifestSkipsBlankLines(t *testing.T) {
	mp := filepath.Join(t.TempDir(), "m.manifest")
	content := "/a/b\n\n/a/c\n   \n/a/b\n"
	if err := os.WriteFile(mp, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	got, err := readManifest(mp)
	if err != nil {
		t.Fatal(err)
	}
	want := []string{"/a/b", "/a/c", "/a/b"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("readManifest = %v, want %v", got, want)
	}
}

func TestReadManifestMissingFile(t *testing.T) {
	if _, err := readManifest(filepath.Join(t.TempDir(), "nope.manifest")); err == nil {
		t.Error("missing manifest should error")
	}
}
