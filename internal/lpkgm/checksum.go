package lpkgm

import (
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"runtime"
	"sync"

	"github.com/schollz/progressbar/v3"
	"lukechampine.com/blake3"
)

// hashString returns a short BLAKE3 hex digest of s, used for lock file
// names keyed by prefix path.
func hashString(s string) string {
	sum := blake3.Sum256([]byte(s))
	return hex.EncodeToString(sum[:])[:16]
}

// ComputeChecksums hashes every file with BLAKE3 using a bounded worker
// pool and returns a map of path to hex digest. Paths are hashed after
// the commit phase has finished, so the parallelism never touches the
// transaction itself. A progress bar is shown when showProgress is set
// and there is more than a handful of files.
func ComputeChecksums(paths []string, showProgress bool) (map[string]string, error) {
	results := make(map[string]string, len(paths))
	if len(paths) == 0 {
		return results, nil
	}

	var bar *progressbar.ProgressBar
	if showProgress && len(paths) > 8 {
		bar = progressbar.NewOptions(len(paths),
			progressbar.OptionSetDescription("checksumming"),
			progressbar.OptionClearOnFinish(),
			progressbar.OptionSetWriter(os.Stderr),
		)
	}

	numWorkers := runtime.NumCPU()
	if len(paths) < numWorkers {
		numWorkers = len(paths)
	}

	jobs := make(chan string, len(paths))
	var mu sync.Mutex
	var wg sync.WaitGroup
	var errOnce sync.Once
	var firstErr error

	for w := 0; w < numWorkers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			buf := make([]byte, 64*1024)
			for path := range jobs {
				hash, err := hashFile(path, buf)
				mu.Lock()
				if err != nil {
					errOnce.Do(func() { firstErr = err })
				} else {
					results[path] = hash
				}
				mu.Unlock()
				if bar != nil {
					bar.Add(1)
				}
			}
		}()
	}

	for _, p := range paths {
		jobs <- p
	}
	close(jobs)
	wg.Wait()
	if bar != nil {
		bar.Finish()
	}

	if firstErr != nil {
		return results, firstErr
	}
	return results, nil
}

func hashFile(path string, buf []byte) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("failed to open %s for hashing: %w", path, err)
	}
	defer f.Close()

	h := blake3.New(32, nil)
	if _, err := io.CopyBuffer(h, f, buf); err != nil {
		return "", fmt.Errorf("failed to hash %s: %w", path, err)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}
