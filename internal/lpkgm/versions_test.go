package lpkgm

import (
	"reflect"
	"sort"
	"testing"
)

func TestParseVersion(t *testing.T) {
	tests := []struct {
		in   string
		want map[string]string
	}{
		{
			in: "1.2",
			want: map[string]string{
				"fullVersion": "1.2", "major": "1", "minor": "2",
			},
		},
		{
			in: "1.2.3",
			want: map[string]string{
				"fullVersion": "1.2.3", "major": "1", "minor": "2", "patchNum": "3",
			},
		},
		{
			in: "1.2.3-opt",
			want: map[string]string{
				"fullVersion": "1.2.3-opt", "major": "1", "minor": "2",
				"patchNum": "3", "buildConf": "opt",
			},
		},
		{
			in: "10.0.dbg",
			want: map[string]string{
				"fullVersion": "10.0.dbg", "major": "10", "minor": "0", "buildConf": "dbg",
			},
		},
		{
			in: "dbg.c3edf12",
			want: map[string]string{
				"fullVersion": "dbg.c3edf12", "buildConf": "dbg", "commit": "c3edf12",
			},
		},
		{
			in: "3f45ac-standalone-lib.opt",
			want: map[string]string{
				"fullVersion": "3f45ac-standalone-lib.opt", "commit": "3f45ac",
				"flavour": "standalone-lib", "buildConf": "opt",
			},
		},
		{
			// Exotic scheme: no parsed fields, just the identity.
			in:   "snapshot_2024",
			want: map[string]string{"fullVersion": "snapshot_2024"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got := ParseVersion(tt.in)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("ParseVersion(%q) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestCompareVersions(t *testing.T) {
	tests := []struct {
		a, b string
		want int
	}{
		{"1.2.3", "1.2.3", 0},
		{"1.2.3", "1.2.4", -1},
		{"1.10.0", "1.9.0", 1}, // numeric, not lexical
		{"2.0", "2.0.1", -1},
		{"1.2.3-dbg", "1.2.3-opt", -1},
		{"0.9", "1.0", -1},
	}
	for _, tt := range tests {
		if got := CompareVersions(tt.a, tt.b); got != tt.want {
			t.Errorf("CompareVersions(%q, %q) = %d, want %d", tt.a, tt.b, got, tt.want)
		}
	}
}

func TestCompareVersionsSortOrder(t *testing.T) {
	vers := []string{"1.10.0", "1.2.3", "0.9", "1.2.10", "1.2.4"}
	sort.Slice(vers, func(i, j int) bool { return CompareVersions(vers[i], vers[j]) < 0 })
	want := []string{"0.9", "1.2.3", "1.2.4", "1.2.10", "1.10.0"}
	if !reflect.DeepEqual(vers, want) {
		t.Errorf("sorted = %v, want %v", vers, want)
	}
}
