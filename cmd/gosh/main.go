// Command gosh is an interactive POSIX-flavored shell: it reads a
// line, parses it into a pipeline of builtins and external commands,
// and runs that pipeline to completion before prompting again.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/rs/zerolog"

	"github.com/neevsh/gosh/internal/config"
	"github.com/neevsh/gosh/internal/shell"
)

func main() {
	os.Exit(run())
}

// run builds the shell from flags/environment and drives its REPL to
// completion, returning the process exit code.
func run() int {
	cfg, err := config.Parse(os.Args[1:])
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 2
	}

	if cfg.ShowVersion {
		fmt.Println("gosh", config.Version)
		return 0
	}

	log := newLogger()

	sh, err := shell.New(cfg, log)
	if err != nil {
		log.Error().Err(err).Msg("failed to start shell")
		fmt.Fprintln(os.Stderr, err)
		return 1
	}

	if err := sh.Run(context.Background()); err != nil {
		log.Error().Err(err).Msg("shell exited with a fatal error")
		fmt.Fprintln(os.Stderr, err)
		return 1
	}

	return 0
}

// newLogger builds a stderr zerolog.Logger, silent unless GOSH_DEBUG
// is set: diagnostics are for development, not the interactive user.
func newLogger() zerolog.Logger {
	level := zerolog.Disabled
	if os.Getenv("GOSH_DEBUG") != "" {
		level = zerolog.DebugLevel
	}

	return zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).
		Level(level).
		With().Timestamp().Logger()
}
