// Package slug derives URL-safe identifiers from display names.
package slug

import (
	"regexp"
	"strings"
)

var nonAlphanumeric = regexp.MustCompile(`[^a-z0-9]+`)

// Make lowercases s and replaces every run of characters outside [a-z0-9]
// with a single hyphen. Leading and trailing hyphens are kept, so the result
// is stable when fed back in: Make(Make(s)) == Make(s).
func Make(s string) string {
	return nonAlphanumeric.ReplaceAllString(strings.ToLower(s), "-")
}
