// Package config resolves the shell's startup configuration from
// command-line flags and environment variables.
package config

import (
	"os"

	"github.com/spf13/pflag"
)

// Version is the shell's displayed version string; overridden at
// build time with -ldflags.
var Version = "dev"

// Config holds everything cmd/gosh needs to construct a Shell.
type Config struct {
	HistFile    string
	ShowVersion bool
}

// Parse reads args (typically os.Args[1:]) plus the HISTFILE
// environment variable into a Config. A --histfile flag takes
// precedence over HISTFILE.
func Parse(args []string) (*Config, error) {
	fs := pflag.NewFlagSet("gosh", pflag.ContinueOnError)

	histFile := fs.String("histfile", os.Getenv("HISTFILE"), "path to the history file")
	showVersion := fs.BoolP("version", "v", false, "print the version and exit")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	return &Config{HistFile: *histFile, ShowVersion: *showVersion}, nil
}
