package builtin

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/pkg/errors"

	"github.com/neevsh/gosh/internal/exec"
)

// exitBuiltin signals a whole-process exit; it never writes anything.
func exitBuiltin(_ context.Context, _ []string, _ exec.IOBindings, _ Env) error {
	return exec.ErrExit
}

// echoBuiltin writes args[1:] joined by a single space, then a newline.
func echoBuiltin(_ context.Context, args []string, io exec.IOBindings, _ Env) error {
	fmt.Fprintln(io.Stdout, strings.Join(args[1:], " "))
	return nil
}

// pwdBuiltin writes the current working directory.
func pwdBuiltin(_ context.Context, _ []string, io exec.IOBindings, env Env) error {
	dir, err := env.Getwd()
	if err != nil {
		return err
	}
	fmt.Fprintln(io.Stdout, dir)
	return nil
}

// cdBuiltin changes the shell's working directory. A missing argument
// or a bare "~" falls back to $HOME; a target that doesn't exist is a
// user-visible message on stdout, not an error, so the read/eval loop
// keeps going.
func cdBuiltin(_ context.Context, args []string, io exec.IOBindings, env Env) error {
	target := ""
	if len(args) > 1 {
		target = args[1]
	}
	if target == "" || target == "~" {
		target = os.Getenv("HOME")
	}

	if err := env.Chdir(target); err != nil {
		if os.IsNotExist(err) {
			fmt.Fprintf(io.Stdout, "cd: %s: No such file or directory\n", target)
			return nil
		}
		return err
	}
	return nil
}

// typeBuiltin reports, for every name in args[1:], whether it is a
// builtin, a resolvable external, or neither.
func (r *Registry) typeBuiltin(_ context.Context, args []string, io exec.IOBindings, env Env) error {
	for _, name := range args[1:] {
		if r.IsBuiltin(name) {
			fmt.Fprintf(io.Stdout, "%s is a shell builtin\n", name)
			continue
		}

		path, ok, err := env.PathIndex().Lookup(name)
		if err != nil {
			return err
		}
		if ok {
			fmt.Fprintf(io.Stdout, "%s is %s\n", name, path)
			continue
		}

		fmt.Fprintf(io.Stdout, "%s: not found\n", name)
	}
	return nil
}

// historyBuiltin implements the history subcommand's positional,
// strict argument parsing: a bare count, or one of -r/-w/-a followed
// by a file path.
func historyBuiltin(_ context.Context, args []string, io exec.IOBindings, env Env) error {
	store := env.History()
	rest := args[1:]

	if len(rest) == 0 {
		printHistory(io, store.Entries(), 0)
		return nil
	}

	switch rest[0] {
	case "-r":
		if len(rest) != 2 {
			return errors.New("history: -r requires a file argument")
		}
		return store.Load(rest[1])

	case "-w":
		if len(rest) != 2 {
			return errors.New("history: -w requires a file argument")
		}
		return store.Save(rest[1])

	case "-a":
		if len(rest) != 2 {
			return errors.New("history: -a requires a file argument")
		}
		return store.Append(rest[1])

	default:
		n, err := strconv.Atoi(rest[0])
		if err != nil {
			return errors.Errorf("history: %s: numeric argument required", rest[0])
		}
		printHistory(io, store.Entries(), n)
		return nil
	}
}

// printHistory writes the last n entries (or all of them, if n <= 0),
// each prefixed with its 1-based index in the full history.
func printHistory(io exec.IOBindings, entries []string, n int) {
	start := 0
	if n > 0 && n < len(entries) {
		start = len(entries) - n
	}
	for i := start; i < len(entries); i++ {
		fmt.Fprintf(io.Stdout, "\t%d  %s\n", i+1, entries[i])
	}
}
