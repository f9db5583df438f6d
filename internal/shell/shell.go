// Package shell wires the lexer/parser, pipeline executor, builtin
// registry, completion provider, and line editor into the read/eval
// loop a user actually types at.
package shell

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	"github.com/neevsh/gosh/internal/builtin"
	"github.com/neevsh/gosh/internal/complete"
	"github.com/neevsh/gosh/internal/config"
	"github.com/neevsh/gosh/internal/exec"
	"github.com/neevsh/gosh/internal/lineedit"
	"github.com/neevsh/gosh/internal/parser"
	"github.com/neevsh/gosh/internal/pathindex"
)

// Prompt is printed by the line editor before every read.
const Prompt = "$ "

// Shell is the top-level REPL: it owns the line editor and builtin
// registry and satisfies exec.ShellEnv so the pipeline executor can
// dispatch builtins and resolve external commands through it.
type Shell struct {
	editor   *lineedit.Editor
	builtins *builtin.Registry
	index    *pathindex.Index
	histFile string
	log      zerolog.Logger
}

// New constructs a Shell from cfg, loading history from cfg.HistFile
// if set.
func New(cfg *config.Config, log zerolog.Logger) (*Shell, error) {
	idx := pathindex.New("PATH")
	reg := builtin.New()
	comp := complete.New(reg.Names(), idx)

	editor, err := lineedit.New(Prompt, comp, cfg.HistFile)
	if err != nil {
		return nil, err
	}

	return &Shell{editor: editor, builtins: reg, index: idx, histFile: cfg.HistFile, log: log}, nil
}

// Builtins implements exec.ShellEnv.
func (s *Shell) Builtins() exec.BuiltinLookup { return s.builtins }

// PathIndex implements exec.ShellEnv.
func (s *Shell) PathIndex() *pathindex.Index { return s.index }

// Stdin implements exec.ShellEnv: a pipeline's first stage inherits
// the shell's own stdin when it isn't fed by an upstream stage.
func (s *Shell) Stdin() io.Reader { return os.Stdin }

// Stdout implements exec.ShellEnv.
func (s *Shell) Stdout() io.Writer { return os.Stdout }

// Stderr implements exec.ShellEnv.
func (s *Shell) Stderr() io.Writer { return os.Stderr }

// Getwd implements exec.ShellEnv.
func (s *Shell) Getwd() (string, error) { return os.Getwd() }

// Chdir implements exec.ShellEnv.
func (s *Shell) Chdir(dir string) error { return os.Chdir(dir) }

// History implements exec.ShellEnv.
func (s *Shell) History() exec.HistoryStore { return s.editor.History() }

// Run blocks, reading and executing lines until the user exits, the
// line editor reaches EOF, or a fatal error occurs. On either of the
// first two it appends new history to HISTFILE and returns nil unless
// that write fails; a fatal error is returned for the caller to report
// and translate into an exit code.
func (s *Shell) Run(ctx context.Context) error {
	defer s.editor.Close()

	for {
		line, err := s.editor.Readline()
		switch {
		case errors.Is(err, io.EOF):
			return s.flushHistory()
		case errors.Is(err, lineedit.ErrInterrupted):
			continue
		case err != nil:
			return err
		}

		if strings.TrimSpace(line) == "" {
			continue
		}

		if err := s.eval(ctx, line); err != nil {
			if errors.Is(err, exec.ErrExit) {
				return s.flushHistory()
			}
			return err
		}
	}
}

// eval parses and runs one line, routing non-fatal failures to the
// shell's own stderr rather than returning them.
func (s *Shell) eval(ctx context.Context, line string) error {
	cmd, err := parser.Parse(line)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return nil
	}
	if len(cmd.Args) == 0 {
		return nil
	}

	s.log.Debug().Str("line", line).Msg("dispatching pipeline")

	err = exec.Run(ctx, cmd, s)
	if err == nil || errors.Is(err, exec.ErrExit) {
		return err
	}

	fmt.Fprintln(os.Stderr, err)
	return nil
}

// flushHistory appends any lines recorded since the last save point to
// HISTFILE, per spec: set-but-unwritable is a fatal condition.
func (s *Shell) flushHistory() error {
	if s.histFile == "" {
		return nil
	}
	if err := s.editor.History().Append(s.histFile); err != nil {
		return errors.Wrap(err, "save history on exit")
	}
	return nil
}
