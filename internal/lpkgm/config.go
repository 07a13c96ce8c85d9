package lpkgm

import (
	"bufio"
	"os"
	"path/filepath"
	"strings"
)

// Config holds the raw settings read from lpkgm.conf plus LPKGM_* env
// overrides. Derived globals are filled in by InitConfig.
type Config struct {
	Values map[string]string
}

// LoadConfig reads a key=value settings file and applies defaults.
// A missing file is not an error; env overrides still apply.
func LoadConfig(path string) (*Config, error) {
	cfg := &Config{Values: make(map[string]string)}

	file, err := os.Open(path)
	if err == nil {
		defer file.Close()
		scanner := bufio.NewScanner(file)
		for scanner.Scan() {
			line := strings.TrimSpace(scanner.Text())
			if line == "" || strings.HasPrefix(line, "#") {
				continue
			}
			parts := strings.SplitN(line, "=", 2)
			if len(parts) != 2 {
				continue
			}
			key := strings.TrimSpace(parts[0])
			val := strings.TrimSpace(parts[1])
			val = strings.Trim(val, `"'`)
			cfg.Values[key] = val
		}
		if err := scanner.Err(); err != nil {
			return cfg, err
		}
	}

	mergeEnvOverrides(cfg)

	if cfg.Values["TMPDIR"] == "" {
		cfg.Values["TMPDIR"] = "/tmp"
	}

	return cfg, nil
}

// mergeEnvOverrides merges LPKGM_* environment variables over file values.
func mergeEnvOverrides(cfg *Config) {
	for _, env := range os.Environ() {
		if strings.HasPrefix(env, "LPKGM_") {
			parts := strings.SplitN(env, "=", 2)
			if len(parts) == 2 {
				cfg.Values[parts[0]] = parts[1]
			}
		}
	}
}

// InitConfig populates the package globals from cfg.
func InitConfig(cfg *Config) {
	rootDir = cfg.Values["LPKGM_ROOT"]
	if rootDir == "" {
		rootDir = "/opt/sw"
	}
	rootDir = filepath.Clean(rootDir)

	repoPaths = cfg.Values["LPKGM_PATH"]

	defaultPlatform = cfg.Values["LPKGM_PLATFORM"]
	platformsList = cfg.Values["LPKGM_PLATFORMS"]

	stateDir = cfg.Values["LPKGM_STATE"]
	if stateDir == "" {
		stateDir = "/var/lib/lpkgm"
	}

	logDir = cfg.Values["LPKGM_LOG_DIR"]
	if logDir == "" {
		logDir = "/var/log/lpkgm"
	}

	tmpDir = cfg.Values["TMPDIR"]
	if tmpDir == "" {
		tmpDir = "/tmp"
	}
}

// repoDirs splits LPKGM_PATH into its component repository directories.
func repoDirs() []string {
	var dirs []string
	for _, d := range strings.Split(repoPaths, ":") {
		d = strings.TrimSpace(d)
		if d != "" {
			dirs = append(dirs, d)
		}
	}
	return dirs
}
