package model

import (
	"fmt"
	"strings"
)

// BaseName strips a trailing "[n]" disambiguation suffix from an assertion
// name, e.g. "1 + 1 is equal to 2[2]" -> "1 + 1 is equal to 2".
//
// Workers only ever know bare names; suffixes exist purely on the manager
// side to keep duplicate names within one flow distinct, so every name must
// pass through here before it is sent back out.
func BaseName(name string) string {
	i := strings.LastIndex(name, "[")
	if i < 0 {
		return name
	}
	return name[:i]
}

// DisambiguatedName returns the effective name for the n-th occurrence
// (0-based) of a raw assertion name within one flow's run. The first
// occurrence keeps the bare name; repeats get "[2]", "[3]", ...
func DisambiguatedName(raw string, seen int) string {
	if seen == 0 {
		return raw
	}
	return fmt.Sprintf("%s[%d]", raw, seen+1)
}
