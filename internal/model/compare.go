package model

import (
	"encoding/json"
	"reflect"
)

// StructurallyEqual reports whether two snapshot values are equal after both
// are parsed as JSON. Comparison is structural, not textual: key order and
// whitespace differences do not matter.
//
// A value that fails to parse can never match anything, including itself.
// Callers treat that the same as a genuine mismatch (MISS), never as an
// error.
func StructurallyEqual(stored, observed string) bool {
	var a, b any
	if err := json.Unmarshal([]byte(stored), &a); err != nil {
		return false
	}
	if err := json.Unmarshal([]byte(observed), &b); err != nil {
		return false
	}
	return reflect.DeepEqual(a, b)
}
