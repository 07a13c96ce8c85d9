package lpkgm

import (
	"regexp"
	"strconv"
	"strings"
)

// Version expressions accepted for package versions, tried in order.
// Each parse produces named fields recorded in the registry descriptor;
// "fullVersion" is always present. Packages using exotic schemes still
// install fine, they just carry no parsed fields.
var versionRegexes = []*regexp.Regexp{
	// 1.2, 1.2.3, 1.2.3-opt, 1.2.3.dbg
	regexp.MustCompile(`^(?P<major>\d+)\.(?P<minor>\d+)(?:\.(?P<patchNum>\d+))?(?:[-.](?P<buildConf>opt|dbg))?$`),
	// dbg.c3edf12 (build configuration + commit)
	regexp.MustCompile(`^(?P<buildConf>opt|dbg)\.(?P<commit>[0-9a-f]{6,40})$`),
	// 3f45ac-45-standalone-lib.opt (commit + flavour + build configuration)
	regexp.MustCompile(`^(?P<commit>[0-9a-f]{6,40})-(?P<flavour>[A-Za-z0-9][A-Za-z0-9-]*)\.(?P<buildConf>opt|dbg)$`),
}

// ParseVersion matches s against the version expressions and returns
// the named fields plus fullVersion. The map contains only fullVersion
// when nothing matches.
func ParseVersion(s string) map[string]string {
	fields := map[string]string{"fullVersion": s}
	for _, rx := range versionRegexes {
		m := rx.FindStringSubmatch(s)
		if m == nil {
			continue
		}
		for i, name := range rx.SubexpNames() {
			if name != "" && m[i] != "" {
				fields[name] = m[i]
			}
		}
		break
	}
	return fields
}

// CompareVersions orders version strings for display: dot-separated
// numeric parts compare numerically, everything else lexically.
func CompareVersions(a, b string) int {
	as := strings.FieldsFunc(a, func(r rune) bool { return r == '.' || r == '-' })
	bs := strings.FieldsFunc(b, func(r rune) bool { return r == '.' || r == '-' })
	for i := 0; i < len(as) && i < len(bs); i++ {
		an, aerr := strconv.Atoi(as[i])
		bn, berr := strconv.Atoi(bs[i])
		if aerr == nil && berr == nil {
			if an != bn {
				if an < bn {
					return -1
				}
				return 1
			}
			continue
		}
		if c := strings.Compare(as[i], bs[i]); c != 0 {
			return c
		}
	}
	switch {
	case len(as) < len(bs):
		return -1
	case len(as) > len(bs):
		return 1
	}
	return 0
}
