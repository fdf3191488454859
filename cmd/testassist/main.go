package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"runtime/debug"
	"syscall"

	"testassist/internal/telemetry"
)

// exitCrash sets a crash apart from a failed run.
const exitCrash = 2

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := runCLI(ctx, os.Args[1:])
	stop()
	os.Exit(code)
}

// runCLI executes one invocation and turns a panic into exitCrash with the
// stack in the log.
func runCLI(ctx context.Context, args []string) (code int) {
	defer func() {
		if r := recover(); r != nil {
			telemetry.LogError("testassist crashed", fmt.Errorf("panic: %v", r), "stack", string(debug.Stack()))
			fmt.Fprintf(os.Stderr, "testassist crashed: %v\n", r)
			code = exitCrash
		}
	}()

	root := newRootCmd()
	root.SetArgs(args)
	return Execute(ctx, root)
}
