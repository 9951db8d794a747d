// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/peterh/liner"

	"github.com/jeranaias/paramstore/internal/config"
	"github.com/jeranaias/paramstore/internal/param"
	"github.com/jeranaias/paramstore/internal/scheduler"
)

// historyFileName is the shell history file inside the config directory.
const historyFileName = "shell_history"

// shellCommands are offered for tab completion.
var shellCommands = []string{"list", "get", "info", "set", "reset", "tier", "save", "help", "quit", "exit"}

const shellHelp = `Commands (a leading "/" is optional):
  list                 List every parameter
  get NAME             Print a value
  info NAME            Print a parameter with its metadata
  set NAME VALUE...    Change a parameter
  reset NAME | all     Restore defaults
  tier [N|NAME]        Show or change the access tier
  save                 Write unsaved parameters now
  help                 Show this help
  quit, exit           Leave (unsaved parameters are written on exit)
`

// =============================================================================
// LINE EDITOR
// =============================================================================

// shellInput wraps liner with a history file in the config directory.
type shellInput struct {
	line        *liner.State
	historyFile string
}

func newShellInput(completions func(string) []string) *shellInput {
	line := liner.NewLiner()
	line.SetCtrlCAborts(true)
	line.SetCompleter(completions)

	dir, err := config.ConfigDir()
	if err != nil {
		dir = os.TempDir()
	}
	in := &shellInput{line: line, historyFile: filepath.Join(dir, historyFileName)}

	if f, err := os.Open(in.historyFile); err == nil {
		in.line.ReadHistory(f)
		f.Close()
	}
	return in
}

func (in *shellInput) readLine(prompt string) (string, error) {
	input, err := in.line.Prompt(prompt)
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(input) != "" {
		in.line.AppendHistory(input)
	}
	return input, nil
}

// close saves history with owner-only permissions and restores the terminal.
func (in *shellInput) close() {
	if err := os.MkdirAll(filepath.Dir(in.historyFile), 0700); err == nil {
		if f, err := os.OpenFile(in.historyFile, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600); err == nil {
			in.line.WriteHistory(f)
			f.Close()
		}
	}
	in.line.Close()
}

// =============================================================================
// SHELL
// =============================================================================

// handleShell runs the interactive console. Parameters are saved in the
// background on the configured interval and once more on exit. Edits to
// access.initial_tier in the config file move the access tier live.
func (a *App) handleShell(ctx context.Context) error {
	if err := RequiresTTY("shell"); err != nil {
		return err
	}

	runner := scheduler.NewRunner()
	defer runner.Stop()

	return a.withSession(ctx, sessionOptions{sched: runner}, func(s *Session) error {
		watchCtx, cancel := context.WithCancel(ctx)
		defer cancel()
		a.watchConfig(watchCtx, s)

		sh := &shell{ctl: s.Ctl, out: a.Out, json: a.Args.JSON}
		in := newShellInput(sh.complete)
		defer in.close()

		fmt.Fprintln(a.Out, TitleStyle.Render("paramctl shell"))
		fmt.Fprintln(a.Out, DimStyle.Render(fmt.Sprintf(
			"namespace %s, %d parameters, tier %d (%s). Type help for commands.",
			s.Ctl.Namespace(), s.Ctl.Schema().Len(), s.Ctl.CurrentTier(), s.Ctl.Gate().Describe(s.Ctl.CurrentTier()),
		)))

		for {
			if ctx.Err() != nil {
				return nil
			}
			input, err := in.readLine(PromptStyle.Render(fmt.Sprintf("params[%d]> ", s.Ctl.CurrentTier())))
			if err != nil {
				// Ctrl+C, Ctrl+D or a closed terminal all end the session.
				fmt.Fprintln(a.Out)
				return nil
			}

			more, err := sh.execShellLine(input)
			if err != nil {
				fmt.Fprintf(a.Err, "%s %v\n", ErrorStyle.Render("[Error]"), err)
			}
			if !more {
				return nil
			}
		}
	})
}

// watchConfig follows the config file, if it exists, and applies changes
// to the configured access tier.
func (a *App) watchConfig(ctx context.Context, s *Session) {
	path := a.Args.ConfigPath
	if path == "" {
		p, err := config.ConfigPath()
		if err != nil {
			return
		}
		path = p
	}
	if _, err := os.Stat(path); err != nil {
		s.Logger.Debug("config file not found, not watching", "path", path)
		return
	}

	last := s.Config.Access.InitialTier
	go func() {
		err := config.Watch(ctx, path, config.DefaultWatchDebounce, func(cfg *config.Config, err error) {
			if err != nil {
				s.Logger.Warn("config reload failed", "path", path, "error", err)
				return
			}
			if cfg.Access.InitialTier == last {
				return
			}
			last = cfg.Access.InitialTier
			tier := last
			if tier < 0 {
				tier = s.Ctl.Gate().MaxTier()
			}
			if err := s.Ctl.ChangeTier(tier); err != nil {
				s.Logger.Warn("config tier rejected", "tier", tier, "error", err)
			}
		})
		if err != nil {
			s.Logger.Warn("config watch stopped", "path", path, "error", err)
		}
	}()
}

// shell executes console lines against a controller.
type shell struct {
	ctl  *param.Controller
	out  io.Writer
	json bool
}

// execShellLine runs one line of input. It returns false when the shell
// should exit.
func (sh *shell) execShellLine(input string) (bool, error) {
	fields := splitShellLine(strings.TrimSpace(input))
	if len(fields) == 0 {
		return true, nil
	}
	cmd := strings.ToLower(strings.TrimPrefix(fields[0], "/"))
	args := fields[1:]

	switch cmd {
	case "quit", "exit", "q":
		return false, nil
	case "help", "h", "?":
		fmt.Fprint(sh.out, shellHelp)
		return true, nil
	case "list", "ls":
		return true, writeList(sh.out, sh.ctl, sh.json)
	case "get", "info":
		if len(args) != 1 {
			return true, &UsageError{Command: cmd, Reason: "expects one parameter name", Example: cmd + " Brightness"}
		}
		return true, writeParam(sh.out, sh.ctl, args[0], cmd == "info", sh.json)
	case "set":
		if len(args) < 2 {
			return true, &UsageError{Command: cmd, Reason: "expects a name and a value", Example: "set Brightness 128"}
		}
		return true, applySet(sh.out, sh.ctl, args[0], args[1:], sh.json)
	case "reset":
		if len(args) == 0 {
			return true, &UsageError{Command: cmd, Reason: "expects parameter names or all", Example: "reset all"}
		}
		if len(args) == 1 && strings.EqualFold(args[0], "all") {
			args = nil
		}
		return true, applyReset(sh.out, sh.ctl, args, sh.json)
	case "tier":
		if len(args) > 0 {
			tier, err := resolveTier(args[0], -1, sh.ctl.Gate().Levels())
			if err != nil {
				return true, err
			}
			if err := sh.ctl.ChangeTier(tier); err != nil {
				return true, err
			}
		}
		return true, writeTiers(sh.out, sh.ctl.Gate(), sh.ctl.Schema(), sh.json)
	case "save", "flush":
		return true, writeFlush(sh.out, sh.ctl, sh.json)
	}
	return true, &UsageError{Reason: fmt.Sprintf("unknown command %q", cmd), Example: "help"}
}

// complete offers command names for the first word and parameter names
// after it.
func (sh *shell) complete(line string) []string {
	fields := strings.Fields(line)
	var candidates []string
	prefix := ""

	if len(fields) == 0 || (len(fields) == 1 && !strings.HasSuffix(line, " ")) {
		candidates = shellCommands
		if len(fields) == 1 {
			prefix = fields[0]
		}
	} else {
		for _, def := range sh.ctl.Schema().Definitions() {
			candidates = append(candidates, def.Name)
		}
		if !strings.HasSuffix(line, " ") {
			prefix = fields[len(fields)-1]
		}
	}

	head := line[:len(line)-len(prefix)]
	var out []string
	for _, c := range candidates {
		if strings.HasPrefix(strings.ToLower(c), strings.ToLower(strings.TrimPrefix(prefix, "/"))) {
			out = append(out, head+c)
		}
	}
	sort.Strings(out)
	return out
}

// splitShellLine splits on spaces, keeping double-quoted runs together so
// text values may contain spaces.
func splitShellLine(s string) []string {
	var (
		fields  []string
		cur     strings.Builder
		quoted  bool
		started bool
	)
	for _, r := range s {
		switch {
		case r == '"':
			quoted = !quoted
			started = true
		case r == ' ' && !quoted:
			if started {
				fields = append(fields, cur.String())
				cur.Reset()
				started = false
			}
		default:
			cur.WriteRune(r)
			started = true
		}
	}
	if started {
		fields = append(fields, cur.String())
	}
	return fields
}
