package builtin

import (
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/neevsh/gosh/internal/exec"
	"github.com/neevsh/gosh/internal/pathindex"
)

type fakeEnv struct {
	wd      string
	history *fakeHistory
	index   *pathindex.Index
}

func newFakeEnv() *fakeEnv {
	return &fakeEnv{wd: "/home/user", history: &fakeHistory{}, index: pathindex.New("GOSH_TEST_PATH_UNSET")}
}

func (e *fakeEnv) Builtins() exec.BuiltinLookup { return nil }
func (e *fakeEnv) PathIndex() *pathindex.Index  { return e.index }
func (e *fakeEnv) Stdin() io.Reader             { return strings.NewReader("") }
func (e *fakeEnv) Stdout() io.Writer            { return io.Discard }
func (e *fakeEnv) Stderr() io.Writer            { return io.Discard }
func (e *fakeEnv) Getwd() (string, error)       { return e.wd, nil }
func (e *fakeEnv) Chdir(dir string) error {
	if dir == "" {
		return os.ErrInvalid
	}
	if _, err := os.Stat(dir); err != nil {
		return err
	}
	e.wd = dir
	return nil
}
func (e *fakeEnv) History() exec.HistoryStore { return e.history }

type fakeHistory struct {
	entries  []string
	loaded   string
	saved    string
	appended string
}

func (h *fakeHistory) Entries() []string        { return h.entries }
func (h *fakeHistory) Load(path string) error   { h.loaded = path; return nil }
func (h *fakeHistory) Save(path string) error   { h.saved = path; return nil }
func (h *fakeHistory) Append(path string) error { h.appended = path; return nil }

func run(t *testing.T, fn Func, args []string, env Env) (string, error) {
	t.Helper()
	var out bytes.Buffer
	io := exec.IOBindings{Stdout: &out, Stderr: &out}
	err := fn(context.Background(), args, io, env)
	return out.String(), err
}

func TestEchoBuiltin(t *testing.T) {
	got, err := run(t, echoBuiltin, []string{"echo", "hello", "world"}, newFakeEnv())
	require.NoError(t, err)
	assert.Equal(t, "hello world\n", got)
}

func TestExitBuiltin(t *testing.T) {
	_, err := run(t, exitBuiltin, []string{"exit"}, newFakeEnv())
	assert.ErrorIs(t, err, exec.ErrExit)
}

func TestPwdBuiltin(t *testing.T) {
	env := newFakeEnv()
	got, err := run(t, pwdBuiltin, []string{"pwd"}, env)
	require.NoError(t, err)
	assert.Equal(t, env.wd+"\n", got)
}

func TestCdBuiltin(t *testing.T) {
	dir := t.TempDir()
	env := newFakeEnv()

	_, err := run(t, cdBuiltin, []string{"cd", dir}, env)
	require.NoError(t, err)
	assert.Equal(t, dir, env.wd)
}

func TestCdBuiltin_missing(t *testing.T) {
	env := newFakeEnv()
	got, err := run(t, cdBuiltin, []string{"cd", "/no/such/dir"}, env)
	require.NoError(t, err)
	assert.Equal(t, "cd: /no/such/dir: No such file or directory\n", got)
	assert.Equal(t, "/home/user", env.wd)
}

func TestCdBuiltin_home(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("HOME", dir)

	env := newFakeEnv()
	_, err := run(t, cdBuiltin, []string{"cd"}, env)
	require.NoError(t, err)
	assert.Equal(t, dir, env.wd)
}

func TestTypeBuiltin(t *testing.T) {
	reg := New()
	dir := t.TempDir()
	exe := filepath.Join(dir, "mytool")
	require.NoError(t, os.WriteFile(exe, []byte("#!/bin/sh\n"), 0o755))
	t.Setenv("PATH", dir)

	env := newFakeEnv()
	env.index = pathindex.New("PATH")

	got, err := run(t, reg.typeBuiltin, []string{"type", "echo", "mytool", "nosuch"}, env)
	require.NoError(t, err)
	want := "echo is a shell builtin\nmytool is " + exe + "\nnosuch: not found\n"
	assert.Equal(t, want, got)
}

func TestHistoryBuiltin_list(t *testing.T) {
	env := newFakeEnv()
	env.history.entries = []string{"echo a", "echo b", "echo c"}

	got, err := run(t, historyBuiltin, []string{"history", "2"}, env)
	require.NoError(t, err)
	assert.Equal(t, "\t2  echo b\n\t3  echo c\n", got)
}

func TestHistoryBuiltin_flags(t *testing.T) {
	env := newFakeEnv()

	_, err := run(t, historyBuiltin, []string{"history", "-r", "hist.txt"}, env)
	require.NoError(t, err)
	assert.Equal(t, "hist.txt", env.history.loaded)

	_, err = run(t, historyBuiltin, []string{"history", "-a", "hist.txt"}, env)
	require.NoError(t, err)
	assert.Equal(t, "hist.txt", env.history.appended)
}

func TestHistoryBuiltin_nonNumeric(t *testing.T) {
	env := newFakeEnv()
	_, err := run(t, historyBuiltin, []string{"history", "abc"}, env)
	assert.Error(t, err)
}
