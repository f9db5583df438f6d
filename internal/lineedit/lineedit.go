// Package lineedit wraps github.com/chzyer/readline into the shell's
// line-editor collaborator contract: prompted input, pluggable tab
// completion, and a history the "history" builtin can list, load,
// save, and append.
package lineedit

import (
	"bufio"
	"io"
	"os"
	"sync"

	"github.com/chzyer/readline"
	"github.com/pkg/errors"
)

// ErrInterrupted is returned by Readline when the user hits Ctrl-C
// mid-line; the caller should treat it as "discard this line, prompt
// again", not as a fatal condition.
var ErrInterrupted = errors.New("interrupted")

// Editor reads prompted lines from the terminal and records them into
// its History.
type Editor struct {
	rl   *readline.Instance
	hist *history
}

// New constructs an Editor. completer may be nil. histFile, if
// non-empty, is loaded into history immediately (a missing file is not
// an error; any other read failure is).
func New(prompt string, completer readline.AutoCompleter, histFile string) (*Editor, error) {
	cfg := &readline.Config{
		Prompt:       prompt,
		AutoComplete: completer,
	}

	rl, err := readline.NewEx(cfg)
	if err != nil {
		return nil, errors.Wrap(err, "init line editor")
	}

	e := &Editor{rl: rl, hist: &history{}}

	if histFile != "" {
		if err := e.hist.Load(histFile); err != nil {
			rl.Close()
			return nil, err
		}
		for _, line := range e.hist.Entries() {
			rl.SaveHistory(line)
		}
	}

	return e, nil
}

// Readline blocks for one line of input. It returns io.EOF on Ctrl-D
// and ErrInterrupted on Ctrl-C; any other error is a fatal line-editor
// failure per the shell's error taxonomy.
func (e *Editor) Readline() (string, error) {
	line, err := e.rl.Readline()
	switch {
	case errors.Is(err, readline.ErrInterrupt):
		return "", ErrInterrupted
	case errors.Is(err, io.EOF):
		return "", io.EOF
	case err != nil:
		return "", errors.Wrap(err, "readline")
	}

	e.hist.record(line)
	e.rl.SaveHistory(line)
	return line, nil
}

// History returns the editor's history store.
func (e *Editor) History() *history { return e.hist }

// Close releases the underlying terminal state.
func (e *Editor) Close() error {
	return e.rl.Close()
}

// history is an in-process, append-only record of accepted input
// lines, independently of whatever readline itself keeps for
// up-arrow recall. It implements exec.HistoryStore.
type history struct {
	mu         sync.Mutex
	entries    []string
	appendMark int
}

func (h *history) record(line string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.entries = append(h.entries, line)
}

// Entries returns a snapshot of every recorded line, oldest first.
func (h *history) Entries() []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]string, len(h.entries))
	copy(out, h.entries)
	return out
}

// Load replaces the in-memory history with the lines read from path.
// A nonexistent file is treated as an empty history, not an error.
func (h *history) Load(path string) error {
	f, err := os.Open(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return errors.Wrapf(err, "open history file %s", path)
	}
	defer f.Close()

	var lines []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		lines = append(lines, scanner.Text())
	}
	if err := scanner.Err(); err != nil {
		return errors.Wrapf(err, "read history file %s", path)
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	h.entries = lines
	h.appendMark = len(lines)
	return nil
}

// Save overwrites path with every recorded line.
func (h *history) Save(path string) error {
	h.mu.Lock()
	entries := append([]string(nil), h.entries...)
	h.mu.Unlock()

	if err := writeLines(path, entries, false); err != nil {
		return err
	}

	h.mu.Lock()
	h.appendMark = len(h.entries)
	h.mu.Unlock()
	return nil
}

// Append writes every line recorded since the last Load, Save, or
// Append call onto the end of path, creating it if necessary.
func (h *history) Append(path string) error {
	h.mu.Lock()
	pending := append([]string(nil), h.entries[h.appendMark:]...)
	h.mu.Unlock()

	if len(pending) == 0 {
		return nil
	}

	if err := writeLines(path, pending, true); err != nil {
		return err
	}

	h.mu.Lock()
	h.appendMark = len(h.entries)
	h.mu.Unlock()
	return nil
}

func writeLines(path string, lines []string, appendMode bool) error {
	flags := os.O_WRONLY | os.O_CREATE
	if appendMode {
		flags |= os.O_APPEND
	} else {
		flags |= os.O_TRUNC
	}

	f, err := os.OpenFile(path, flags, 0o644)
	if err != nil {
		return errors.Wrapf(err, "open history file %s", path)
	}
	defer f.Close()

	w := bufio.NewWriter(f)
	for _, line := range lines {
		if _, err := w.WriteString(line); err != nil {
			return errors.Wrapf(err, "write history file %s", path)
		}
		if _, err := w.WriteString("\n"); err != nil {
			return errors.Wrapf(err, "write history file %s", path)
		}
	}
	return errors.Wrapf(w.Flush(), "flush history file %s", path)
}
