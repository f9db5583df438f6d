// Package pathindex caches the directories on the executable search path
// and resolves or enumerates the executables they contain.
//
// The directory list is read once, from the PATH environment variable,
// and frozen for the lifetime of the process; directory contents are
// never cached, so every Lookup or Enumerate call hits the file system.
package pathindex

import (
	"iter"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/pkg/errors"
)

// Index is a lazily-populated, process-lifetime cache of PATH directories.
//
// Index is safe to construct from any goroutine but, per the shell's
// single-threaded ownership model, is only ever touched from the main
// goroutine in practice.
type Index struct {
	envVar string
	once   sync.Once
	dirs   []string
}

// New returns an Index that will split envVar (typically "PATH") on
// first use.
func New(envVar string) *Index {
	return &Index{envVar: envVar}
}

// Lookup searches the cached directory list in order and returns the
// first dir/name whose metadata exists and is world-executable.
//
// A missing entry in a given directory is not an error; it simply moves
// on to the next directory. Any other stat error propagates.
func (idx *Index) Lookup(name string) (string, bool, error) {
	idx.load()

	for _, dir := range idx.dirs {
		candidate := filepath.Join(dir, name)

		info, err := os.Stat(candidate)
		if errors.Is(err, os.ErrNotExist) {
			continue
		}
		if err != nil {
			return "", false, errors.Wrapf(err, "stat %s", candidate)
		}

		if isExecutable(info) {
			return candidate, true, nil
		}
	}

	return "", false, nil
}

// Entry is one yielded result from Enumerate: either a resolved
// executable path, or a per-item error that should be skipped rather
// than abort the whole enumeration.
type Entry struct {
	Path string
	Err  error
}

// Enumerate lazily walks every PATH directory in order, yielding every
// entry whose metadata has the world-execute bit set. Directory-read
// or per-entry metadata errors are reported as Entry.Err and do not
// stop the enumeration.
func (idx *Index) Enumerate() iter.Seq[Entry] {
	idx.load()

	return func(yield func(Entry) bool) {
		for _, dir := range idx.dirs {
			entries, err := os.ReadDir(dir)
			if err != nil {
				if !yield(Entry{Err: errors.Wrapf(err, "read dir %s", dir)}) {
					return
				}
				continue
			}

			for _, de := range entries {
				info, err := de.Info()
				if err != nil {
					if !yield(Entry{Err: errors.Wrapf(err, "stat %s", de.Name())}) {
						return
					}
					continue
				}

				if !isExecutable(info) {
					continue
				}

				if !yield(Entry{Path: filepath.Join(dir, de.Name())}) {
					return
				}
			}
		}
	}
}

func (idx *Index) load() {
	idx.once.Do(func() {
		raw := os.Getenv(idx.envVar)
		if raw == "" {
			idx.dirs = nil
			return
		}
		idx.dirs = strings.Split(raw, string(os.PathListSeparator))
	})
}

func isExecutable(info os.FileInfo) bool {
	return info.Mode()&0o001 != 0
}
