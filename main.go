package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"lpkgm/internal/lpkgm"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, os.Interrupt, syscall.SIGTERM)

	// The commit phase of an install transaction must not be
	// interrupted casually: a half-written prefix is a fatal condition
	// for the operator. First signal during that phase only warns;
	// a second one forces exit.
	go func() {
		for {
			select {
			case <-sigs:
				if lpkgm.CriticalPhase.Load() == 1 {
					fmt.Fprintf(os.Stderr, "\n[WARNING] commit phase in progress; press Ctrl+C again to force exit\n")
					select {
					case <-sigs:
						fmt.Fprintln(os.Stderr, "\n[FATAL] forced immediate exit")
						os.Exit(130)
					case <-time.After(5 * time.Second):
						continue
					case <-ctx.Done():
						return
					}
				}
				fmt.Fprintln(os.Stderr, "\n[INFO] interrupt received, cancelling")
				cancel()
				select {
				case <-sigs:
					os.Exit(130)
				case <-time.After(500 * time.Millisecond):
					return
				}
			case <-ctx.Done():
				return
			}
		}
	}()

	// The settings file path must be known before anything else runs;
	// scan for -c/--settings ahead of the real dispatch.
	configFile := os.Getenv("LPKGM_SETTINGS")
	if configFile == "" {
		configFile = lpkgm.ConfigFile
	}
	args := os.Args[1:]
	for i, arg := range args {
		if (arg == "-c" || arg == "--settings") && i+1 < len(args) {
			configFile = args[i+1]
		}
	}

	cfg, err := lpkgm.LoadConfig(configFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error reading settings %s: %v\n", configFile, err)
		os.Exit(1)
	}
	lpkgm.InitConfig(cfg)
	lpkgm.UserExec = lpkgm.NewExecutor(ctx)

	os.Exit(lpkgm.Run(ctx, args))
}
