package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/xkilldash9x/skillgraph/cmd"
)

// Allows mocking os.Exit in tests.
var osExit = os.Exit

// main is the entry point of the skillgraph CLI.
func main() {
	// A missing .env file is fine; variables may come from the real environment.
	_ = godotenv.Load()

	// Cancel on interrupt so running commands can shut down gracefully.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	code := exitCode(cmd.Execute(ctx))
	stop()
	osExit(code)
}

// exitCode maps the command result to a process exit status.
func exitCode(err error) int {
	switch {
	case err == nil, errors.Is(err, context.Canceled):
		return 0
	default:
		return 1
	}
}
