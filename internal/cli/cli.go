// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"runtime"
	"strings"
	"syscall"
)

// Version information (overridden at build time)
var (
	Version   = "0.1.0"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

// Command represents the CLI command to execute.
type Command int

const (
	CmdHelp Command = iota
	CmdList
	CmdGet
	CmdSet
	CmdReset
	CmdTier
	CmdFlush
	CmdShell
	CmdDemo
	CmdSchema
	CmdConfig
	CmdVersion
	CmdUnknown
)

var commandNames = map[Command]string{
	CmdHelp:    "help",
	CmdList:    "list",
	CmdGet:     "get",
	CmdSet:     "set",
	CmdReset:   "reset",
	CmdTier:    "tier",
	CmdFlush:   "flush",
	CmdShell:   "shell",
	CmdDemo:    "demo",
	CmdSchema:  "schema",
	CmdConfig:  "config",
	CmdVersion: "version",
}

func (c Command) String() string {
	if name, ok := commandNames[c]; ok {
		return name
	}
	return "unknown"
}

// Args holds parsed CLI arguments.
type Args struct {
	// Global flags
	ConfigPath string // --config FILE
	JSON       bool   // --json
	Tier       string // --tier N|NAME, empty means the configured tier
	Verbose    bool   // -v, --verbose: debug logging

	// Name is the command word as typed, kept for error messages
	Name string

	// Raw holds the arguments after the command word
	Raw []string
}

const usageText = `paramctl - inspect and change persistent device parameters

Usage:
  paramctl [global flags] <command> [arguments]

Commands:
  list, ls                  List every parameter with its value and state
  get NAME [--info]         Print one parameter
  set NAME VALUE...         Change a parameter (arrays: 1,2,3 or 1 2 3)
  reset NAME | --all        Restore defaults
  tier                      Show the access tier table
  flush                     Write every unsaved parameter to the store
  shell                     Interactive console with periodic saving
  demo basic|array|string   Run a walkthrough against the device table
  schema [check FILE]       Show the parameter table or validate a TOML table
  config [show|get|set|keys|path|init]
                            Inspect or edit the configuration file
  version                   Show version information
  help                      Show this help

Global flags:
  --config FILE             Config file (default ~/.paramstore/config.toml)
  --tier N|NAME             Access tier for this invocation (0 is most privileged)
  --json                    Machine-readable output
  -v, --verbose             Debug logging

Environment:
  PARAMSTORE_HOME, PARAMSTORE_BACKEND, PARAMSTORE_STORE, PARAMSTORE_NAMESPACE,
  PARAMSTORE_SAVE_INTERVAL, PARAMSTORE_TIER, PARAMSTORE_LOG_LEVEL,
  PARAMSTORE_LOG_FORMAT, PARAMSTORE_LOG_FILE, PARAMSTORE_SCHEMA, NO_COLOR

Examples:
  paramctl list
  paramctl --tier factory set ExampleIntArray 9 8 7 6
  paramctl set ExampleString "Hi there"
  paramctl reset --all --tier 0
  paramctl --json get Brightness
`

// PrintUsage writes the help text to w.
func PrintUsage(w io.Writer) {
	fmt.Fprint(w, usageText)
}

// =============================================================================
// PARSING
// =============================================================================

// Parse splits argv (without the program name) into a command and its args.
// Global flags may appear anywhere.
func Parse(argv []string) (Command, Args) {
	remaining, args := parseGlobalFlags(argv)

	if len(remaining) == 0 {
		if IsTTY() && IsStdoutTTY() {
			return CmdShell, args
		}
		return CmdHelp, args
	}

	args.Name = strings.ToLower(remaining[0])
	args.Raw = remaining[1:]

	switch args.Name {
	case "list", "ls":
		return CmdList, args
	case "get", "show":
		return CmdGet, args
	case "set":
		return CmdSet, args
	case "reset":
		return CmdReset, args
	case "tier", "tiers":
		return CmdTier, args
	case "flush", "save":
		return CmdFlush, args
	case "shell", "console":
		return CmdShell, args
	case "demo", "example":
		return CmdDemo, args
	case "schema":
		return CmdSchema, args
	case "config":
		return CmdConfig, args
	case "version", "--version":
		return CmdVersion, args
	case "help", "-h", "--help":
		return CmdHelp, args
	}
	return CmdUnknown, args
}

// parseGlobalFlags extracts global flags and returns the rest in order.
func parseGlobalFlags(argv []string) ([]string, Args) {
	var (
		remaining []string
		args      Args
	)

	for i := 0; i < len(argv); i++ {
		arg := argv[i]
		switch {
		case arg == "--json":
			args.JSON = true
		case arg == "-v" || arg == "--verbose":
			args.Verbose = true
		case arg == "--config" || arg == "--tier":
			if i+1 < len(argv) {
				i++
				if arg == "--config" {
					args.ConfigPath = argv[i]
				} else {
					args.Tier = argv[i]
				}
			}
		case strings.HasPrefix(arg, "--config="):
			args.ConfigPath = strings.TrimPrefix(arg, "--config=")
		case strings.HasPrefix(arg, "--tier="):
			args.Tier = strings.TrimPrefix(arg, "--tier=")
		default:
			remaining = append(remaining, arg)
		}
	}
	return remaining, args
}

// =============================================================================
// EXECUTION
// =============================================================================

// App runs one command against the given output streams.
type App struct {
	Args Args
	Out  io.Writer
	Err  io.Writer
}

// Run parses argv, executes the command and returns the process exit code.
// Errors are reported on stderr, or on stdout as JSON in --json mode.
func Run(argv []string, stdout, stderr io.Writer) int {
	cmd, args := Parse(argv)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app := &App{Args: args, Out: stdout, Err: stderr}
	err := app.Execute(ctx, cmd)
	if err == nil {
		return ExitSuccess
	}
	if args.JSON {
		DisplayError(stdout, cmd.String(), err, true)
	} else {
		DisplayError(stderr, cmd.String(), err, false)
	}
	return GetExitCode(err)
}

// Execute runs cmd.
func (a *App) Execute(ctx context.Context, cmd Command) error {
	switch cmd {
	case CmdHelp:
		PrintUsage(a.Out)
		return nil
	case CmdVersion:
		return a.handleVersion()
	case CmdList:
		return a.handleList(ctx)
	case CmdGet:
		return a.handleGet(ctx)
	case CmdSet:
		return a.handleSet(ctx)
	case CmdReset:
		return a.handleReset(ctx)
	case CmdTier:
		return a.handleTier()
	case CmdFlush:
		return a.handleFlush(ctx)
	case CmdShell:
		return a.handleShell(ctx)
	case CmdDemo:
		return a.handleDemo(ctx)
	case CmdSchema:
		return a.handleSchema()
	case CmdConfig:
		return a.handleConfig()
	}
	return &UsageError{
		Reason:  fmt.Sprintf("unknown command %q", a.Args.Name),
		Example: "paramctl help",
	}
}

// handleVersion handles the "version" command.
func (a *App) handleVersion() error {
	if a.Args.JSON {
		return NewJSONResponse("version", VersionData{
			Version:   Version,
			GitCommit: GitCommit,
			BuildDate: BuildDate,
			GoVersion: runtime.Version(),
		}).Print(a.Out)
	}
	fmt.Fprintf(a.Out, "paramctl %s (commit %s, built %s, %s)\n", Version, GitCommit, BuildDate, runtime.Version())
	return nil
}
