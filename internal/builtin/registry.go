// Package builtin implements the shell's built-in commands and the
// registry the pipeline executor dispatches them through.
package builtin

import (
	"sort"

	"github.com/neevsh/gosh/internal/exec"
)

// Func is the signature every builtin implements; it is exactly
// exec.BuiltinFunc, named locally so builtin code doesn't read like it
// depends on the executor's internals.
type Func = exec.BuiltinFunc

// Env is the ambient shell state a builtin may read or mutate.
type Env = exec.ShellEnv

// Registry holds the name-to-implementation map the executor consults
// before falling back to the path index. It implements exec.BuiltinLookup.
type Registry struct {
	fns map[string]Func
}

// New returns a Registry with every built-in command registered.
func New() *Registry {
	r := &Registry{fns: make(map[string]Func, 6)}

	r.fns["exit"] = exitBuiltin
	r.fns["echo"] = echoBuiltin
	r.fns["pwd"] = pwdBuiltin
	r.fns["cd"] = cdBuiltin
	r.fns["history"] = historyBuiltin
	r.fns["type"] = r.typeBuiltin

	return r
}

// Lookup implements exec.BuiltinLookup.
func (r *Registry) Lookup(name string) (Func, bool) {
	fn, ok := r.fns[name]
	return fn, ok
}

// IsBuiltin reports whether name names a registered built-in command,
// independent of dispatch; type and completion both need this without
// wanting to actually invoke anything.
func (r *Registry) IsBuiltin(name string) bool {
	_, ok := r.fns[name]
	return ok
}

// Names returns every registered builtin name, sorted, for use by the
// completion provider.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.fns))
	for name := range r.fns {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
