// Package complete implements the shell's tab-completion candidate
// lookup, exposed as a github.com/chzyer/readline AutoCompleter.
package complete

import (
	"path/filepath"
	"sort"
	"strings"

	"github.com/neevsh/gosh/internal/pathindex"
)

// Provider answers completion requests by combining a fixed builtin
// name list with whatever executables the path index currently yields.
type Provider struct {
	builtins []string
	index    *pathindex.Index
}

// New returns a Provider backed by builtins (typically Registry.Names())
// and index.
func New(builtins []string, index *pathindex.Index) *Provider {
	return &Provider{builtins: builtins, index: index}
}

// Do implements readline.AutoCompleter. It extracts the word under the
// cursor, finds every candidate whose name starts with that word, and
// returns each as the suffix readline should insert (plus a trailing
// space), alongside how many runes of line that suffix replaces.
func (p *Provider) Do(line []rune, pos int) (newLine [][]rune, length int) {
	word, _ := extractWord(line, pos)
	length = len(word)

	for _, name := range p.candidates(string(word)) {
		suffix := name[len(word):] + " "
		newLine = append(newLine, []rune(suffix))
	}
	return newLine, length
}

// extractWord walks backward from pos to the nearest space (or the
// start of line) and returns the word it bounds along with its start
// offset.
func extractWord(line []rune, pos int) (word []rune, start int) {
	start = pos
	for start > 0 && line[start-1] != ' ' {
		start--
	}
	return line[start:pos], start
}

// candidates returns the de-duplicated, sorted set of builtin names
// and PATH executable basenames whose name has prefix as a prefix.
func (p *Provider) candidates(prefix string) []string {
	seen := make(map[string]bool)
	var out []string

	add := func(name string) {
		if !strings.HasPrefix(name, prefix) || seen[name] {
			return
		}
		seen[name] = true
		out = append(out, name)
	}

	for _, name := range p.builtins {
		add(name)
	}

	for entry := range p.index.Enumerate() {
		if entry.Err != nil {
			continue
		}
		add(filepath.Base(entry.Path))
	}

	sort.Strings(out)
	return out
}
