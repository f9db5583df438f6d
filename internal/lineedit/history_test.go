package lineedit

import (
	"os"
	"path/filepath"
	"testing"
)

func TestHistory_recordAndEntries(t *testing.T) {
	h := &history{}
	h.record("echo a")
	h.record("echo b")

	got := h.Entries()
	if len(got) != 2 || got[0] != "echo a" || got[1] != "echo b" {
		t.Fatalf("entries = %v", got)
	}
}

func TestHistory_saveAndLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "hist")

	h := &history{}
	h.record("one")
	h.record("two")
	if err := h.Save(path); err != nil {
		t.Fatal(err)
	}

	loaded := &history{}
	if err := loaded.Load(path); err != nil {
		t.Fatal(err)
	}
	got := loaded.Entries()
	if len(got) != 2 || got[0] != "one" || got[1] != "two" {
		t.Fatalf("loaded entries = %v", got)
	}
}

func TestHistory_loadMissingFileIsNotError(t *testing.T) {
	h := &history{}
	if err := h.Load(filepath.Join(t.TempDir(), "nope")); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(h.Entries()) != 0 {
		t.Fatalf("expected empty history")
	}
}

func TestHistory_appendOnlyWritesNewEntries(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "hist")

	h := &history{}
	h.record("one")
	if err := h.Save(path); err != nil {
		t.Fatal(err)
	}
	h.record("two")
	if err := h.Append(path); err != nil {
		t.Fatal(err)
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if string(raw) != "one\ntwo\n" {
		t.Fatalf("file contents = %q", raw)
	}

	if err := h.Append(path); err != nil {
		t.Fatal(err)
	}
	raw, _ = os.ReadFile(path)
	if string(raw) != "one\ntwo\n" {
		t.Fatalf("append with nothing new changed file: %q", raw)
	}
}
