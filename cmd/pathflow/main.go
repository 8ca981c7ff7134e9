package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
)

// 版本信息（构建时注入）
var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

const (
	exitOK    = 0
	exitError = 1
	exitUsage = 2
)

// errUsage marks errors caused by bad arguments.
var errUsage = errors.New("usage error")

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := execute(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

// execute dispatches a subcommand and maps its error to an exit code.
func execute(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	if len(args) == 0 {
		printUsage(stderr)
		return exitUsage
	}

	var err error
	switch args[0] {
	case "run":
		err = cmdRun(ctx, args[1:], stdout, stderr)
	case "validate":
		err = cmdValidate(args[1:], stdout, stderr)
	case "discover":
		err = cmdDiscover(ctx, args[1:], stdout, stderr)
	case "history":
		err = cmdHistory(ctx, args[1:], stdout, stderr)
	case "version":
		printVersion(stdout)
	case "help", "-h", "--help":
		printUsage(stdout)
	default:
		fmt.Fprintf(stderr, "Unknown command: %s\n", args[0])
		printUsage(stderr)
		return exitUsage
	}

	switch {
	case err == nil:
		return exitOK
	case errors.Is(err, flag.ErrHelp):
		return exitOK
	case errors.Is(err, errUsage):
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return exitUsage
	default:
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return exitError
	}
}

func printVersion(w io.Writer) {
	fmt.Fprintf(w, "PathFlow %s\n", Version)
	fmt.Fprintf(w, "  Build Time: %s\n", BuildTime)
	fmt.Fprintf(w, "  Git Commit: %s\n", GitCommit)
}

func printUsage(w io.Writer) {
	fmt.Fprintln(w, `PathFlow - scoped agent path discovery and execution

Usage:
  pathflow <command> [options]

Commands:
  run       Run a workflow once and print the result as JSON
  validate  Parse and build a workflow without running it
  discover  Print the candidate paths the scout finds in a scope
  history   Query stored run histories
  version   Show version information
  help      Show this help message

Common options:
  -config <path>     Path to configuration file (YAML)
  -workflow <path>   Path to workflow definition (YAML)
  -set name=value    Override a workflow variable (repeatable)

Examples:
  pathflow run -workflow research.yaml -input "churn drivers" -var tenant=acme
  pathflow validate -workflow research.yaml -set env=prod
  pathflow discover -workflow research.yaml -goal "data_retrieval then reasoning"
  pathflow history -config pathflow.yaml -status failed`)
}
