package lpkgm

import (
	"os"
	"path/filepath"
	"sort"
	"strings"
	"unicode"
)

// Enumerator supplies the completion resolver with read-only views of
// the prefix tree and the configuration. Implementations must be cheap:
// completion runs on every keystroke of an interactive shell.
type Enumerator interface {
	// Platforms returns the known platform identifiers.
	Platforms() []string
	// InstalledPackages returns installed package names for a platform.
	InstalledPackages(platform string) []string
	// InstalledVersions returns installed versions of one package.
	InstalledVersions(platform, pkg string) []string
	// ConfiguredPackages returns package names installable from
	// configuration.
	ConfiguredPackages() []string
	// ConfiguredVersions returns installable versions of one package.
	ConfiguredVersions(platform, pkg string) []string
	// DefaultPlatform returns the platform assumed when the command
	// line carries no -Dplatform= selector, or "" if there is none.
	DefaultPlatform() string
	// FlagValues returns the domain-specific value candidates for a
	// flag expecting a value (e.g. recent log files for --log).
	FlagValues(flag string) []string
}

// parseState is the resolver's position in the command grammar. The
// states mirror the order in which a command line is assembled:
// platform selector, subcommand, package name, package version.
type parseState int

const (
	stateNoPlatform parseState = iota
	stateNoSubcommand
	stateCollectingName
	stateCollectingVersion
	stateDone
)

const platformSelectorPrefix = "-Dplatform="

// Subcommand synonyms, mapped to their canonical form.
var subcommandAliases = map[string]string{
	"install":   "install",
	"add":       "install",
	"remove":    "remove",
	"delete":    "remove",
	"uninstall": "remove",
	"rm":        "remove",
	"show":      "show",
	"inspect":   "show",
	"list":      "show",
}

var subcommandWords = []string{
	"install", "add",
	"remove", "delete", "uninstall", "rm",
	"show", "inspect", "list",
}

// completionContext is rebuilt from scratch on every request; there is
// no session state, so completion can never observe a stale parse of a
// previous command line.
type completionContext struct {
	platform    string
	subcommand  string // canonical: install, remove or show
	pkgName     string
	pkgVersion  string
	ignoreNext  bool   // previous token was a flag expecting a value
	pendingFlag string // the flag owning the value position
}

func (c *completionContext) state() parseState {
	switch {
	case c.platform == "":
		return stateNoPlatform
	case c.subcommand == "":
		return stateNoSubcommand
	case c.pkgName == "":
		return stateCollectingName
	case c.pkgVersion == "":
		return stateCollectingVersion
	}
	return stateDone
}

// Resolve re-parses the typed line up to the cursor and returns the
// completion candidates for the word under the cursor. Enumeration
// failures surface as an empty candidate set, never as an error: the
// caller is an interactive shell.
func Resolve(line string, point int, enum Enumerator) []string {
	if point < 0 {
		point = 0
	}
	if point > len(line) {
		point = len(line)
	}
	upto := line[:point]

	fields := strings.Fields(upto)
	cur := ""
	completed := fields
	if len(upto) > 0 && !unicode.IsSpace(rune(upto[len(upto)-1])) && len(fields) > 0 {
		cur = fields[len(fields)-1]
		completed = fields[:len(fields)-1]
	}
	if len(completed) == 0 {
		// Still typing the program name itself.
		return nil
	}
	completed = completed[1:] // drop argv[0]

	ctx := &completionContext{platform: enum.DefaultPlatform()}
	for _, tok := range completed {
		classify(ctx, tok)
	}

	return decide(ctx, cur, enum)
}

// classify folds one completed token into the context. Tokens that fit
// nowhere are ignored, which keeps the grammar forward-compatible with
// flags the resolver does not know about.
func classify(ctx *completionContext, tok string) {
	if ctx.ignoreNext {
		// This token is the pending flag's value, not a positional.
		ctx.ignoreNext = false
		ctx.pendingFlag = ""
		return
	}
	if v, ok := strings.CutPrefix(tok, platformSelectorPrefix); ok {
		ctx.platform = v
		return
	}
	if canon, ok := subcommandAliases[tok]; ok && ctx.subcommand == "" {
		ctx.subcommand = canon
		return
	}
	if isFlagToken(tok) {
		ctx.ignoreNext = true
		ctx.pendingFlag = tok
		return
	}
	if ctx.subcommand != "" {
		if ctx.pkgName == "" {
			ctx.pkgName = tok
			return
		}
		if ctx.pkgVersion == "" {
			ctx.pkgVersion = tok
			return
		}
	}
	// ignored
}

// isFlagToken reports whether tok looks like a short (-x) or long
// (--name) option with no inline value.
func isFlagToken(tok string) bool {
	if strings.Contains(tok, "=") {
		return false
	}
	if strings.HasPrefix(tok, "--") {
		return len(tok) > 2
	}
	return len(tok) > 1 && tok[0] == '-'
}

// decide evaluates the completion priorities in order against the
// rebuilt context and the word under the cursor.
func decide(ctx *completionContext, cur string, enum Enumerator) []string {
	// 1. The cursor word is itself a partially typed platform selector.
	// The bare-id form handles shells that split the token at '='.
	if val, ok := strings.CutPrefix(cur, platformSelectorPrefix); ok {
		return filterPrefix(enum.Platforms(), val)
	}
	if cur != "" && strings.HasPrefix(platformSelectorPrefix, cur) {
		return selectorTokens(enum)
	}

	// 2. The cursor sits in a flag-value position.
	if ctx.ignoreNext {
		return filterPrefix(enum.FlagValues(ctx.pendingFlag), cur)
	}

	switch ctx.state() {
	case stateNoPlatform:
		// 3. No platform captured yet: offer selector tokens.
		return filterPrefix(selectorTokens(enum), cur)
	case stateNoSubcommand:
		// 4. No subcommand yet: canonical keywords plus synonyms.
		return filterPrefix(subcommandWords, cur)
	case stateCollectingName:
		// 5. Dispatch on the captured subcommand.
		if ctx.subcommand == "install" {
			return filterPrefix(enum.ConfiguredPackages(), cur)
		}
		return filterPrefix(enum.InstalledPackages(ctx.platform), cur)
	case stateCollectingVersion:
		if ctx.subcommand == "install" {
			return filterPrefix(enum.ConfiguredVersions(ctx.platform, ctx.pkgName), cur)
		}
		return filterPrefix(enum.InstalledVersions(ctx.platform, ctx.pkgName), cur)
	}
	return nil
}

func selectorTokens(enum Enumerator) []string {
	ids := enum.Platforms()
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		out = append(out, platformSelectorPrefix+id)
	}
	return out
}

func filterPrefix(candidates []string, prefix string) []string {
	if prefix == "" {
		return candidates
	}
	var out []string
	for _, c := range candidates {
		if strings.HasPrefix(c, prefix) {
			out = append(out, c)
		}
	}
	return out
}

// prefixEnumerator is the production Enumerator, backed by the registry
// layout and LPKGM_PATH configuration.
type prefixEnumerator struct{}

func NewEnumerator() Enumerator { return prefixEnumerator{} }

func (prefixEnumerator) Platforms() []string { return Platforms() }

func (prefixEnumerator) InstalledPackages(platform string) []string {
	return InstalledPackages(platform)
}

func (prefixEnumerator) InstalledVersions(platform, pkg string) []string {
	return InstalledVersions(platform, pkg)
}

func (prefixEnumerator) ConfiguredPackages() []string { return ConfiguredPackages() }

func (prefixEnumerator) ConfiguredVersions(platform, pkg string) []string {
	return ConfiguredVersions(pkg)
}

func (prefixEnumerator) DefaultPlatform() string { return defaultPlatform }

// FlagValues maps value-taking flags to their domain candidates.
// Unknown flags complete to nothing but do not break the parse.
func (e prefixEnumerator) FlagValues(flag string) []string {
	switch flag {
	case "-c", "--settings":
		confs, _ := filepath.Glob("*.conf")
		return confs
	case "-l", "--log":
		return recentLogFiles(logDir, 10)
	case "-k", "--keep":
		platform := defaultPlatform
		var pairs []string
		for _, pkg := range InstalledPackages(platform) {
			for _, ver := range InstalledVersions(platform, pkg) {
				pairs = append(pairs, pkg+"/"+ver)
			}
		}
		return pairs
	}
	return nil
}

// recentLogFiles returns up to max log file names under dir, most
// recently modified first.
func recentLogFiles(dir string, max int) []string {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil
	}
	type logEnt struct {
		name  string
		mtime int64
	}
	var logs []logEnt
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		logs = append(logs, logEnt{filepath.Join(dir, e.Name()), info.ModTime().UnixNano()})
	}
	sort.Slice(logs, func(i, j int) bool { return logs[i].mtime > logs[j].mtime })
	if len(logs) > max {
		logs = logs[:max]
	}
	out := make([]string, 0, len(logs))
	for _, l := range logs {
		out = append(out, l.name)
	}
	return out
}
