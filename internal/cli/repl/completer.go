package repl

import (
	"sort"
	"strings"
)

var builtins = []string{"exit", "quit", "history", "help"}

// Completer suggests command paths such as "tx add".
type Completer struct {
	commands []string
}

// NewCompleter creates a completer over the given command paths plus
// the shell builtins.
func NewCompleter(commands []string) *Completer {
	all := append(append([]string(nil), commands...), builtins...)
	sort.Strings(all)
	return &Completer{commands: all}
}

// Complete returns the command paths starting with prefix. Runs of
// spaces in prefix are treated as one.
func (c *Completer) Complete(prefix string) []string {
	prefix = strings.Join(strings.Fields(prefix), " ")
	var out []string
	for _, cmd := range c.commands {
		if strings.HasPrefix(cmd, prefix) {
			out = append(out, cmd)
		}
	}
	return out
}
