package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sort"
	"syscall"

	"github.com/spf13/pflag"
)

type commandFn func(ctx *commandContext, args []string) error

type command struct {
	name        string
	description string
	run         commandFn
}

type commandContext struct {
	Ctx context.Context
	Out io.Writer
	Err io.Writer
}

// globalOptions are accepted by every command.
type globalOptions struct {
	Addr   string
	Output string
}

const defaultAddr = "http://localhost:8080"

func main() {
	os.Exit(execute()) //nolint:forbidigo // CLI must propagate command status to the shell
}

func execute() int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return runCLI(&commandContext{Ctx: ctx, Out: os.Stdout, Err: os.Stderr}, os.Args[1:])
}

// runCLI dispatches to a command and returns the process exit code.
func runCLI(cmdCtx *commandContext, args []string) int {
	if len(args) < 1 {
		printUsage(cmdCtx.Err)
		return 2
	}

	cmd, ok := commands()[args[0]]
	if !ok {
		fmt.Fprintf(cmdCtx.Err, "unknown command %q\n\n", args[0])
		printUsage(cmdCtx.Err)
		return 2
	}

	if err := cmd.run(cmdCtx, args[1:]); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return 0
		}
		fmt.Fprintf(cmdCtx.Err, "%s: %v\n", cmd.name, err)
		return 1
	}
	return 0
}

func commands() map[string]command {
	return map[string]command{
		"generate": {
			name:        "generate",
			description: "Request a report and save the returned PDF",
			run:         runGenerate,
		},
		"status": {
			name:        "status",
			description: "Show the status of a task",
			run:         runStatus,
		},
		"cleanup": {
			name:        "cleanup",
			description: "Remove task records older than the given age",
			run:         runCleanup,
		},
	}
}

func printUsage(w io.Writer) {
	fmt.Fprintf(w, "Usage: briefctl <command> [flags]\n\n")
	fmt.Fprintf(w, "Available commands:\n")
	names := make([]string, 0, len(commands()))
	for name := range commands() {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		fmt.Fprintf(w, "  %-10s %s\n", name, commands()[name].description)
	}
}

func newFlagSet(name string, out io.Writer, opts *globalOptions) *pflag.FlagSet {
	fs := pflag.NewFlagSet(name, pflag.ContinueOnError)
	fs.SetOutput(out)
	addr := os.Getenv("BRIEF_ADDR")
	if addr == "" {
		addr = defaultAddr
	}
	fs.StringVar(&opts.Addr, "addr", addr, "briefd base URL (env BRIEF_ADDR)")
	fs.StringVarP(&opts.Output, "output", "o", "json", "output format: json or yaml")
	return fs
}

func (o globalOptions) validate() error {
	switch o.Output {
	case "json", "yaml":
		return nil
	default:
		return fmt.Errorf("unsupported output format %q", o.Output)
	}
}
