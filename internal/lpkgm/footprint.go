package lpkgm

import (
	"io/fs"
	"path/filepath"
)

// collectFootprint enumerates every regular file under root and returns
// its path relative to root. The walk order (lexical, as delivered by
// WalkDir) is the order later preserved in the manifest, so the result
// is deterministic for a given tree.
func collectFootprint(root string) ([]string, error) {
	var footprint []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.Type().IsRegular() {
			return nil
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		footprint = append(footprint, rel)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return footprint, nil
}
