package client

import (
	"fmt"
	"strings"
)

// bindPositional converts positional arguments into the named form the
// service expects: generated p0, p1, ... names, with each literal '?' in
// the statement rewritten left to right, one substitution per argument.
//
// The rewrite is purely textual and not SQL-aware: a '?' inside a string
// literal or comment is indistinguishable from a placeholder.
func bindPositional(query string, args []any) (string, map[string]any) {
	if len(args) == 0 {
		return query, nil
	}

	params := make(map[string]any, len(args))
	for i, arg := range args {
		name := fmt.Sprintf("p%d", i)
		params[name] = arg
		query = strings.Replace(query, "?", ":"+name, 1)
	}

	return query, params
}
