// Package symbols canonicalizes ticker spelling so that class-share
// aliases (BRK.B vs BRK-B vs BRK/B) never count as distinct symbols in
// set operations or store keys.
package symbols

import "strings"

// classSeparators are the vendor-specific spellings of the class-share
// separator. The canonical form uses a dot.
var classSeparators = []string{"-", "/", " "}

// Normalize returns the canonical spelling of a ticker: uppercase,
// trimmed, class-share separator unified to a dot. Idempotent.
func Normalize(symbol string) string {
	s := strings.ToUpper(strings.TrimSpace(symbol))
	if s == "" {
		return s
	}

	for _, sep := range classSeparators {
		s = strings.ReplaceAll(s, sep, ".")
	}

	// Collapse any doubled separators left by sloppy input ("BRK- B").
	for strings.Contains(s, "..") {
		s = strings.ReplaceAll(s, "..", ".")
	}

	return strings.Trim(s, ".")
}

// NormalizeAll normalizes a list in place-order, dropping empties.
func NormalizeAll(list []string) []string {
	out := make([]string, 0, len(list))
	for _, sym := range list {
		if n := Normalize(sym); n != "" {
			out = append(out, n)
		}
	}
	return out
}

// Dedupe returns list with duplicates removed, preserving first-seen
// order. Input is assumed normalized.
func Dedupe(list []string) []string {
	seen := make(map[string]bool, len(list))
	out := make([]string, 0, len(list))
	for _, sym := range list {
		if seen[sym] {
			continue
		}
		seen[sym] = true
		out = append(out, sym)
	}
	return out
}
