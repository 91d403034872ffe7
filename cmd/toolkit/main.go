package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/adlift/toolkit/internal/cmd"
	"github.com/adlift/toolkit/internal/exitcode"
	"github.com/adlift/toolkit/internal/manifest"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// A second notification channel handles the crash path: force-finalize
	// the active run's manifest before the process dies, so even an
	// interrupted run leaves an audit record.
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, os.Interrupt, syscall.SIGTERM)
	go func() {
		sig := <-sigs
		name := "SIGTERM"
		code := exitcode.GeneralError
		if sig == os.Interrupt {
			name = "SIGINT"
			code = exitcode.Interrupted
		}
		if path := manifest.EmergencyFinalizeAndWrite(name); path != "" {
			fmt.Fprintf(os.Stderr, "\nrun interrupted by %s (manifest: %s)\n", name, path)
		} else {
			fmt.Fprintf(os.Stderr, "\ninterrupted by %s\n", name)
		}
		exitcode.Exit(code)
	}()

	defer func() {
		if r := recover(); r != nil {
			if path := manifest.EmergencyFinalizeAndWrite("panic"); path != "" {
				fmt.Fprintf(os.Stderr, "panic: %v (manifest: %s)\n", r, path)
			} else {
				fmt.Fprintf(os.Stderr, "panic: %v\n", r)
			}
			exitcode.Exit(exitcode.GeneralError)
		}
	}()

	if err := cmd.ExecuteContext(ctx); err != nil {
		if ctx.Err() == context.Canceled {
			fmt.Fprintln(os.Stderr, "\noperation cancelled")
			exitcode.Exit(exitcode.Interrupted)
		}

		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		exitcode.ExitWithError(err)
	}
	exitcode.Exit(exitcode.Success)
}
