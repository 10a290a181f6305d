package common

import (
	"fmt"
	"strings"
)

// CURIE builds a compact identifier from a namespace and local ID. The
// namespace is lower-cased; either part missing yields an empty string.
func CURIE(ns, id string) string {
	if ns == "" || id == "" {
		return ""
	}
	return strings.ToLower(ns) + ":" + id
}

// SplitCURIE splits a CURIE string into namespace and local identifier.
// The string must contain exactly one colon; MESH tree IDs and the like with
// embedded colons are ambiguous and rejected rather than guessed at.
func SplitCURIE(curie string) (ns, id string, err error) {
	parts := strings.Split(curie, ":")
	if len(parts) != 2 {
		return "", "", fmt.Errorf("malformed CURIE %q: expected exactly one colon separator", curie)
	}
	return parts[0], parts[1], nil
}
