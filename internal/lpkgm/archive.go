package lpkgm

import (
	"archive/tar"
	"compress/bzip2"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/zstd"
	"github.com/klauspost/pgzip"
	"github.com/ulikunitz/xz"
)

// ArchiveDriver installs by unpacking a local distribution archive into
// the install root. Both transaction phases extract the same archive,
// so the discovered footprint equals the committed one by construction;
// the driver still runs twice to honor the transaction contract.
type ArchiveDriver struct {
	Archive         string
	StripComponents int
}

func (d *ArchiveDriver) Name() string { return "dist-archive" }

func (d *ArchiveDriver) Install(ctx context.Context, installRoot string, cfg BuildConfig) error {
	if err := os.MkdirAll(installRoot, 0o755); err != nil {
		return fmt.Errorf("failed to create install root %s: %w", installRoot, err)
	}
	f, err := os.Open(d.Archive)
	if err != nil {
		return fmt.Errorf("failed to open dist archive: %w", err)
	}
	defer f.Close()

	r, closeFn, err := decompressReader(f, d.Archive)
	if err != nil {
		return err
	}
	defer closeFn()

	return extractTar(ctx, r, installRoot, d.StripComponents)
}

// decompressReader wraps f with the decompressor matching the archive's
// extension. Plain .tar passes through unchanged.
func decompressReader(f *os.File, name string) (io.Reader, func(), error) {
	noop := func() {}
	switch {
	case strings.HasSuffix(name, ".tar.gz"), strings.HasSuffix(name, ".tgz"):
		zr, err := pgzip.NewReader(f)
		if err != nil {
			return nil, noop, fmt.Errorf("gzip: %w", err)
		}
		return zr, func() { zr.Close() }, nil
	case strings.HasSuffix(name, ".tar.xz"), strings.HasSuffix(name, ".txz"):
		xr, err := xz.NewReader(f)
		if err != nil {
			return nil, noop, fmt.Errorf("xz: %w", err)
		}
		return xr, noop, nil
	case strings.HasSuffix(name, ".tar.zst"):
		zr, err := zstd.NewReader(f)
		if err != nil {
			return nil, noop, fmt.Errorf("zstd: %w", err)
		}
		return zr, func() { zr.Close() }, nil
	case strings.HasSuffix(name, ".tar.bz2"), strings.HasSuffix(name, ".tbz2"):
		return bzip2.NewReader(f), noop, nil
	case strings.HasSuffix(name, ".tar"):
		return f, noop, nil
	}
	return nil, noop, fmt.Errorf("unsupported archive format: %s", name)
}

// extractTar unpacks a tar stream into dest, optionally stripping
// leading path components. Entries escaping dest are rejected.
func extractTar(ctx context.Context, r io.Reader, dest string, strip int) error {
	dest, err := filepath.Abs(dest)
	if err != nil {
		return err
	}

	tr := tar.NewReader(r)
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		hdr, err := tr.Next()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return fmt.Errorf("reading archive: %w", err)
		}

		name := stripComponents(hdr.Name, strip)
		if name == "" {
			continue
		}
		fpath := filepath.Join(dest, name)
		// Prevent path traversal out of the destination.
		if fpath != dest && !strings.HasPrefix(fpath, dest+string(os.PathSeparator)) {
			return fmt.Errorf("illegal file path in archive: %s", hdr.Name)
		}

		switch hdr.Typeflag {
		case tar.TypeDir:
			if err := os.MkdirAll(fpath, os.FileMode(hdr.Mode)|0o700); err != nil {
				return err
			}
		case tar.TypeSymlink:
			// A link pointing outside the destination would let later
			// entries beneath it write through to the real location.
			if filepath.IsAbs(hdr.Linkname) {
				return fmt.Errorf("illegal absolute link target in archive: %s -> %s", hdr.Name, hdr.Linkname)
			}
			target := filepath.Join(filepath.Dir(fpath), hdr.Linkname)
			if target != dest && !strings.HasPrefix(target, dest+string(os.PathSeparator)) {
				return fmt.Errorf("illegal link target in archive: %s -> %s", hdr.Name, hdr.Linkname)
			}
			if err := os.MkdirAll(filepath.Dir(fpath), 0o755); err != nil {
				return err
			}
			os.Remove(fpath)
			if err := os.Symlink(hdr.Linkname, fpath); err != nil {
				return err
			}
		case tar.TypeReg:
			if err := os.MkdirAll(filepath.Dir(fpath), 0o755); err != nil {
				return err
			}
			out, err := os.OpenFile(fpath, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, os.FileMode(hdr.Mode))
			if err != nil {
				return err
			}
			_, err = io.Copy(out, tr)
			out.Close()
			if err != nil {
				return err
			}
		default:
			debugf("skipping archive entry %s (type %c)\n", hdr.Name, hdr.Typeflag)
		}
	}
}

func stripComponents(name string, strip int) string {
	name = filepath.Clean(name)
	if strip <= 0 {
		return strings.TrimPrefix(name, "/")
	}
	parts := strings.Split(name, "/")
	if len(parts) <= strip {
		return ""
	}
	return filepath.Join(parts[strip:]...)
}
