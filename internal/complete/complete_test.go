package complete

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/neevsh/gosh/internal/pathindex"
)

func TestProvider_Do(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"echoexec", "edit"} {
		if err := os.WriteFile(filepath.Join(dir, name), []byte("#!/bin/sh\n"), 0o755); err != nil {
			t.Fatal(err)
		}
	}
	t.Setenv("PATH", dir)

	p := New([]string{"echo", "exit"}, pathindex.New("PATH"))

	line := []rune("ec")
	newLine, length := p.Do(line, len(line))

	if length != 2 {
		t.Fatalf("length = %d, want 2", length)
	}

	var got []string
	for _, s := range newLine {
		got = append(got, string(s))
	}

	want := map[string]bool{"ho ": true, "hoexec ": true}
	if len(got) != len(want) {
		t.Fatalf("candidates = %v", got)
	}
	for _, g := range got {
		if !want[g] {
			t.Fatalf("unexpected candidate %q in %v", g, got)
		}
	}
}

func TestExtractWord(t *testing.T) {
	line := []rune("echo hel")
	word, start := extractWord(line, len(line))
	if string(word) != "hel" || start != 5 {
		t.Fatalf("word=%q start=%d", word, start)
	}
}
