package lpkgm

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// appendManifest appends the given absolute paths to the manifest file,
// one per line, in the order given. The manifest is append-only for a
// given install run: repeated attempts may accumulate duplicate lines
// and this layer does not deduplicate them.
func appendManifest(manifestPath string, paths []string) error {
	if err := os.MkdirAll(filepath.Dir(manifestPath), 0o755); err != nil {
		return fmt.Errorf("failed to create manifest directory: %w", err)
	}
	f, err := os.OpenFile(manifestPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("failed to open manifest %s: %w", manifestPath, err)
	}
	defer f.Close()

	w := bufio.NewWriter(f)
	for _, p := range paths {
		if _, err := w.WriteString(p + "\n"); err != nil {
			return fmt.Errorf("failed to write manifest entry: %w", err)
		}
	}
	if err := w.Flush(); err != nil {
		return fmt.Errorf("failed to flush manifest: %w", err)
	}
	return nil
}

// readManifest returns the manifest's recorded paths in file order.
// Blank lines are skipped; duplicates are preserved.
func readManifest(manifestPath string) ([]string, error) {
	f, err := os.Open(manifestPath)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var paths []string
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}
		paths = append(paths, line)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("error reading manifest %s: %w", manifestPath, err)
	}
	return paths, nil
}
