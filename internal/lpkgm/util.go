package lpkgm

import "fmt"

// debugf prints debug messages when Debug is true
func debugf(format string, args ...any) {
	if Debug {
		fmt.Printf(format, args...)
	}
}

// sizeofFmt renders a byte count in human-readable form.
func sizeofFmt(n int64) string {
	v := float64(n)
	for _, unit := range []string{"", "Ki", "Mi", "Gi", "Ti", "Pi"} {
		if v < 1024.0 {
			return fmt.Sprintf("%3.1f%sB", v, unit)
		}
		v /= 1024.0
	}
	return fmt.Sprintf("%.1fEiB", v)
}
