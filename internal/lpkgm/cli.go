package lpkgm

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
)

const usageText = `Usage: lpkgm [-c <file>] [-Dplatform=<id>] [-v] <command> [args...]

Commands:
  install|add <name> <version> [-o KEY=VALUE]... [-l <file>]
      Install a configured package into its prefix. Build script
      output is copied to a log file (default under the log dir).
  remove|delete|uninstall|rm <name> <version> [-y] [-k <name/version>]...
      Remove installed packages; name and version accept globs.
  show|inspect|list [name] [version] [--tui]
      List installed packages, dump a descriptor, or browse (--tui).
  manifest <name> <version>
      Print the recorded file manifest of an installed package.
  complete -- <line> <point>
      Print completion candidates for a partial command line.
  version
      Print the lpkgm version.

Exit codes: 0 ok, 1 error, 2 build failed, 3 collision detected,
4 incomplete install (partial prefix, operator intervention required).
`

func Usage() {
	fmt.Print(usageText)
}

// Run dispatches the parsed command line and returns the process exit
// code. The -c/--settings flag is consumed by main before the config
// is loaded; it is skipped here.
func Run(ctx context.Context, args []string) int {
	var (
		platform    string
		autoConfirm bool
		useTUI      bool
		logFile     string
		keep        []string
		buildOpts   []string
		positional  []string
		command     string
	)

	i := 0
	for ; i < len(args); i++ {
		arg := args[i]
		switch {
		case strings.HasPrefix(arg, "-Dplatform="):
			platform = strings.TrimPrefix(arg, "-Dplatform=")
		case arg == "-v" || arg == "--verbose":
			Debug = true
		case arg == "-y":
			autoConfirm = true
		case arg == "--tui":
			useTUI = true
		case arg == "-c" || arg == "--settings":
			i++ // value already consumed by main
		case arg == "-k" || arg == "--keep":
			if i+1 >= len(args) {
				colError.Printf("%s requires a value\n", arg)
				return ExitFailure
			}
			i++
			keep = append(keep, args[i])
		case arg == "-l" || arg == "--log":
			if i+1 >= len(args) {
				colError.Printf("%s requires a value\n", arg)
				return ExitFailure
			}
			i++
			logFile = args[i]
		case arg == "-o" || arg == "--opt":
			if i+1 >= len(args) {
				colError.Printf("%s requires a value\n", arg)
				return ExitFailure
			}
			i++
			buildOpts = append(buildOpts, args[i])
		case arg == "--":
			positional = append(positional, args[i+1:]...)
			i = len(args)
		case command == "":
			command = arg
		default:
			positional = append(positional, arg)
		}
	}

	if command == "" {
		Usage()
		return ExitFailure
	}

	pkgName, pkgVersion := "", ""
	if len(positional) > 0 {
		pkgName = positional[0]
	}
	if len(positional) > 1 {
		pkgVersion = positional[1]
	}

	switch command {
	case "version":
		fmt.Printf("lpkgm %s\n", version)
		return ExitOK

	case "install", "add":
		if pkgName == "" || pkgVersion == "" {
			colError.Println("install requires <name> and <version>")
			return ExitFailure
		}
		err := PkgInstall(ctx, InstallOptions{
			Platform: platform,
			Package:  pkgName,
			Version:  pkgVersion,
			Options:  buildOpts,
			LogFile:  logFile,
		})
		return reportAndExit(err)

	case "remove", "delete", "uninstall", "rm":
		if pkgName == "" || pkgVersion == "" {
			colError.Println("remove requires <name> and <version> (globs accepted)")
			return ExitFailure
		}
		err := PkgRemove(RemoveOptions{
			Platform:    platform,
			NamePattern: pkgName,
			VerPattern:  pkgVersion,
			Keep:        keep,
			AutoConfirm: autoConfirm,
		})
		return reportAndExit(err)

	case "show", "inspect", "list":
		if useTUI {
			return reportAndExit(RunBrowser(platform))
		}
		return reportAndExit(ShowPackages(os.Stdout, platform, pkgName, pkgVersion))

	case "manifest":
		if pkgName == "" || pkgVersion == "" {
			colError.Println("manifest requires <name> and <version>")
			return ExitFailure
		}
		return reportAndExit(ShowManifest(os.Stdout, platform, pkgName, pkgVersion))

	case "complete":
		// complete -- "<line>" <point>
		if len(positional) < 1 {
			return ExitFailure
		}
		line := positional[0]
		point := len(line)
		if len(positional) > 1 {
			if p, err := strconv.Atoi(positional[1]); err == nil {
				point = p
			}
		}
		for _, cand := range Resolve(line, point, NewEnumerator()) {
			fmt.Println(cand)
		}
		return ExitOK
	}

	colError.Printf("Unknown command: %s\n", command)
	Usage()
	return ExitFailure
}

// reportAndExit prints err (with its offending path, when the error
// carries one) and maps it to the documented exit code.
func reportAndExit(err error) int {
	if err == nil {
		return ExitOK
	}
	var ie *IncompleteInstallError
	if errors.As(err, &ie) {
		colError.Printf("FATAL: %v\n", err)
		colError.Println("the prefix is partially populated; manual cleanup is required")
	} else {
		colError.Printf("Error: %v\n", err)
	}
	return ExitCodeFor(err)
}
