// Package exec runs a parser.Command pipeline: it dispatches each stage
// to a builtin or an external process, wires stdout of one stage into
// stdin of the next, resolves the final stage's streams against file
// redirects, and joins every worker it spawns before returning.
package exec

import (
	"bytes"
	"context"
	"io"
	"os"
	"os/exec"
	"sync"

	"github.com/pkg/errors"

	"github.com/neevsh/gosh/internal/parser"
	"github.com/neevsh/gosh/internal/pathindex"
)

// ErrCommandNotFound is returned by dispatch when a stage's program name
// is neither a builtin nor resolvable against the path index.
var ErrCommandNotFound = errors.New("command not found")

// ErrExit is returned by the exit builtin to signal that the whole
// process should terminate. Run propagates it unchanged; the caller
// (the shell's read/eval loop) is responsible for actually ending the
// program, after any of its own cleanup.
var ErrExit = errors.New("exit")

// IOBindings connects a stage's three standard streams to concrete
// readers/writers. A builtin sees these directly; an external stage's
// IOBindings become its exec.Cmd Stdin/Stdout/Stderr.
type IOBindings struct {
	Stdin  io.Reader
	Stdout io.Writer
	Stderr io.Writer
}

// ByteSource is a stage's output stream, read exactly once by whatever
// downstream consumer claims it: the next stage's stdin, or the final
// join that copies into the resolved sink.
type ByteSource io.Reader

// Stage is one dispatched pipeline element, already spawned (external)
// or already run to completion (builtin). Stdout and Stderr transfer
// ownership of the underlying stream and must not be called twice;
// Wait blocks until the stage is reaped, and is called only once the
// streams taken from it have been fully drained.
type Stage interface {
	Stdout() ByteSource
	Stderr() ByteSource
	Wait() error
}

// BuiltinFunc is the shape of a registered builtin. It receives the
// stage's own argv (args[0] is the builtin's name), the stream
// bindings the executor prepared for it, and the ambient ShellEnv.
type BuiltinFunc func(ctx context.Context, args []string, io IOBindings, env ShellEnv) error

// BuiltinLookup resolves a command name to a BuiltinFunc. internal/builtin's
// Registry implements this.
type BuiltinLookup interface {
	Lookup(name string) (BuiltinFunc, bool)
}

// HistoryStore is the subset of the line-editor's history behavior the
// history builtin needs: enumerating, loading from, saving to, and
// appending to a history file.
type HistoryStore interface {
	Entries() []string
	Load(path string) error
	Save(path string) error
	Append(path string) error
}

// ShellEnv is the surface the executor and builtins need from the
// orchestrator: builtin dispatch, executable resolution, the process's
// own stdio (stdin feeds the first stage; stdout and stderr receive the
// tail stage's streams that have no file redirect), and the mutable
// pieces of shell state a builtin can change.
type ShellEnv interface {
	Builtins() BuiltinLookup
	PathIndex() *pathindex.Index
	Stdin() io.Reader
	Stdout() io.Writer
	Stderr() io.Writer
	Getwd() (string, error)
	Chdir(dir string) error
	History() HistoryStore
}

// Run executes cmd's pipeline to completion: every stage is dispatched
// and wired to its neighbors, the final stage's streams are resolved
// against file redirects (or the shell's own stdio), and every worker
// goroutine Run spawns is joined before it returns.
func Run(ctx context.Context, cmd *parser.Command, env ShellEnv) error {
	stages, err := spawnChain(ctx, cmd, env)
	if err != nil {
		return err
	}

	var wg sync.WaitGroup

	last := stages[len(stages)-1]
	lastCmd := lastCommand(cmd)

	stdoutSink, closeStdout, err := resolveSink(lastCmd, parser.Stdout, env)
	if err != nil {
		return err
	}
	defer closeStdout()

	stderrSink, closeStderr, err := resolveSink(lastCmd, parser.Stderr, env)
	if err != nil {
		return err
	}
	defer closeStderr()

	var copies sync.WaitGroup
	copies.Add(2)
	var copyErr error
	var mu sync.Mutex
	go copyStream(&copies, stdoutSink, last.Stdout(), &mu, &copyErr)
	go copyStream(&copies, stderrSink, last.Stderr(), &mu, &copyErr)

	waitErrs := make([]error, len(stages))
	for i, st := range stages {
		i, st := i, st
		wg.Add(1)
		go func() {
			defer wg.Done()
			if i == len(stages)-1 {
				// Waiting on a child closes its pipes, so the tail stage
				// is reaped only after both of its streams are drained.
				copies.Wait()
			}
			waitErrs[i] = st.Wait()
		}()
	}

	wg.Wait()

	for _, werr := range waitErrs {
		if errors.Is(werr, ErrExit) {
			return ErrExit
		}
	}
	return copyErr
}

// spawnChain walks cmd's pipe chain left to right, dispatching each
// stage and wiring stage N's stdout into stage N+1's stdin. Every
// stage is spawned before any earlier stage is waited on, so the whole
// chain runs concurrently.
func spawnChain(ctx context.Context, cmd *parser.Command, env ShellEnv) ([]Stage, error) {
	var stages []Stage
	var upstream ByteSource

	for stage := cmd; stage != nil; stage = stage.Next() {
		in := upstream
		if in == nil {
			in = env.Stdin()
		}

		st, err := dispatch(ctx, stage, in, env)
		if err != nil {
			return nil, err
		}
		stages = append(stages, st)

		if stage.Next() != nil {
			upstream = st.Stdout()
		}
	}

	return stages, nil
}

// dispatch resolves stage's program name to a builtin or an external
// executable and constructs the corresponding Stage, feeding it stdin
// (the previous stage's stdout, or the shell's own stdin for the first
// stage).
func dispatch(ctx context.Context, stage *parser.Command, stdin ByteSource, env ShellEnv) (Stage, error) {
	if len(stage.Args) == 0 {
		return nil, errors.New("empty pipeline stage")
	}
	name := stage.Args[0]

	if fn, ok := env.Builtins().Lookup(name); ok {
		return runBuiltin(ctx, fn, stage.Args, stdin, env)
	}

	path, ok, err := env.PathIndex().Lookup(name)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, errors.Wrapf(ErrCommandNotFound, "%s", name)
	}

	return spawnExternal(ctx, path, stage.Args, stdin)
}

// lastCommand walks to the tail of cmd's pipe chain.
func lastCommand(cmd *parser.Command) *parser.Command {
	stage := cmd
	for stage.Next() != nil {
		stage = stage.Next()
	}
	return stage
}

// resolveSink picks the final stage's sink for stream: a file redirect
// if one targets that stream, otherwise the shell's own stdout/stderr.
// A pipe on Stdout always already consumed the redirect at spawnChain
// time (HasPipeOut), so by the time resolveSink runs on the tail stage
// there is never a competing pipe redirect to consider.
//
// Every file redirect targeting stream must have its target created,
// even the ones a later redirect overrides for writing purposes (spec:
// "later redirects override earlier ones ... all files must still be
// created"), so resolveSink opens each one in order and keeps only the
// last as the actual sink, closing the rest immediately.
func resolveSink(stage *parser.Command, stream parser.StreamKind, env ShellEnv) (io.Writer, func(), error) {
	redirects := stage.FileRedirects(stream)
	if len(redirects) == 0 {
		if stream == parser.Stderr {
			return env.Stderr(), func() {}, nil
		}
		return env.Stdout(), func() {}, nil
	}

	var sink *os.File
	for i, redirect := range redirects {
		f, err := openRedirectFile(redirect)
		if err != nil {
			if sink != nil {
				sink.Close()
			}
			return nil, func() {}, err
		}
		if i == len(redirects)-1 {
			sink = f
			continue
		}
		f.Close()
	}

	return sink, func() { sink.Close() }, nil
}

// openRedirectFile creates or truncates/appends redirect.ToFile per its
// mode.
func openRedirectFile(redirect parser.Redirect) (*os.File, error) {
	flags := os.O_WRONLY | os.O_CREATE
	if redirect.Mode == parser.Append {
		flags |= os.O_APPEND
	} else {
		flags |= os.O_TRUNC
	}

	f, err := os.OpenFile(redirect.ToFile, flags, 0o644)
	if err != nil {
		return nil, errors.Wrapf(err, "open %s", redirect.ToFile)
	}
	return f, nil
}

// copyStream drains src into dst and records the first error any
// stream copy encounters, guarded by mu since stdout and stderr copy
// concurrently.
func copyStream(wg *sync.WaitGroup, dst io.Writer, src ByteSource, mu *sync.Mutex, firstErr *error) {
	defer wg.Done()
	if src == nil {
		return
	}
	_, err := io.Copy(dst, src)
	if err != nil {
		mu.Lock()
		if *firstErr == nil {
			*firstErr = err
		}
		mu.Unlock()
	}
}

// spawnExternal constructs a Stage around an os/exec.Cmd, piping its
// stdout and stderr so the caller can drain them on its own schedule.
func spawnExternal(ctx context.Context, path string, args []string, stdin ByteSource) (Stage, error) {
	c := exec.CommandContext(ctx, path)
	c.Args = args
	c.Stdin = stdin

	stdout, err := c.StdoutPipe()
	if err != nil {
		return nil, errors.Wrap(err, "stdout pipe")
	}
	stderr, err := c.StderrPipe()
	if err != nil {
		return nil, errors.Wrap(err, "stderr pipe")
	}

	if err := c.Start(); err != nil {
		return nil, errors.Wrapf(err, "start %s", path)
	}

	return &externalStage{cmd: c, stdout: stdout, stderr: stderr}, nil
}

// externalStage is a Stage backed by a live child process.
type externalStage struct {
	cmd    *exec.Cmd
	stdout ByteSource
	stderr ByteSource
	moved  struct{ stdout, stderr bool }
}

func (s *externalStage) Stdout() ByteSource {
	if s.moved.stdout {
		panic("exec: Stdout already moved")
	}
	s.moved.stdout = true
	return s.stdout
}

func (s *externalStage) Stderr() ByteSource {
	if s.moved.stderr {
		panic("exec: Stderr already moved")
	}
	s.moved.stderr = true
	return s.stderr
}

func (s *externalStage) Wait() error {
	if err := s.cmd.Wait(); err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return nil
		}
		return errors.Wrapf(err, "wait %s", s.cmd.Path)
	}
	return nil
}

// runBuiltin executes fn synchronously, capturing its stdout into a
// buffer so later stages (or the final join) can drain it like any
// other ByteSource. Builtin stderr output is always empty per the
// builtin contract: a builtin's user-directed messages go through its
// stdout buffer, and its failures surface as the returned error.
func runBuiltin(ctx context.Context, fn BuiltinFunc, args []string, stdin ByteSource, env ShellEnv) (Stage, error) {
	var out bytes.Buffer
	bindings := IOBindings{Stdin: stdin, Stdout: &out, Stderr: &out}

	err := fn(ctx, args, bindings, env)
	if err != nil && !errors.Is(err, ErrExit) {
		return nil, err
	}

	return &builtinStage{stdout: bytes.NewReader(out.Bytes()), err: err}, nil
}

// builtinStage is a Stage around an already-completed builtin's
// buffered output.
type builtinStage struct {
	stdout ByteSource
	err    error
	moved  struct{ stdout, stderr bool }
}

func (s *builtinStage) Stdout() ByteSource {
	if s.moved.stdout {
		panic("exec: Stdout already moved")
	}
	s.moved.stdout = true
	return s.stdout
}

func (s *builtinStage) Stderr() ByteSource {
	if s.moved.stderr {
		panic("exec: Stderr already moved")
	}
	s.moved.stderr = true
	return bytes.NewReader(nil)
}

func (s *builtinStage) Wait() error {
	return s.err
}
