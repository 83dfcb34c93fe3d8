// Package expand implements WORD-token substitution: "$name"/"${name}"
// variable interpolation and nested closure/execution markers embedded in a
// token's text (spec.md §4.2).
package expand

import (
	"strings"

	"github.com/ardnew/shellcore/ast"
	"github.com/ardnew/shellcore/value"
)

// Lookup resolves a name using the active closure frame's scoping order
// (spec.md §3 invariant 3). The expand package depends only on this narrow
// function type, not on the closure package, to avoid an import cycle.
type Lookup func(name string) (*value.Value, bool)

// Expand performs substitution on a WORD token's text. If no "$name" or
// "${name}" marker is present, it returns (nil, false) so the caller
// applies the text-to-typed-value ladder itself (spec.md §4.1: "If
// expansion returns the same token object ... coerce the textual body").
// If exactly one marker spans the entire text, the resolved Value is
// returned directly (preserving its type, e.g. a List or Map variable used
// whole). Otherwise all markers are resolved to their display string and
// spliced into the surrounding literal text, yielding a Text value.
func Expand(tok *ast.Token, lookup Lookup) (*value.Value, bool) {
	if tok.Kind != ast.Word {
		return nil, false
	}

	text := tok.Text
	if !strings.ContainsRune(text, '$') {
		return nil, false
	}

	if name, ok := wholeMarker(text); ok {
		if v, found := lookup(name); found {
			return v, true
		}

		return value.NewNull(), true
	}

	var b strings.Builder

	changed := false
	i := 0

	for i < len(text) {
		if text[i] != '$' {
			b.WriteByte(text[i])
			i++

			continue
		}

		name, width, braced := scanMarker(text[i:])
		if width == 0 {
			b.WriteByte(text[i])
			i++

			continue
		}

		changed = true

		if v, found := lookup(name); found {
			b.WriteString(v.String())
		}

		_ = braced

		i += width
	}

	if !changed {
		return nil, false
	}

	return value.NewText(b.String()), true
}

// wholeMarker reports whether text is exactly one "$name" or "${name}"
// marker spanning its full length, returning the name if so.
func wholeMarker(text string) (string, bool) {
	name, width, _ := scanMarker(text)
	if width == len(text) {
		return name, true
	}

	return "", false
}

// scanMarker reads one substitution marker starting at the '$' in s,
// returning the variable name, the total width consumed (0 if s does not
// start with a valid marker), and whether it was brace-delimited.
func scanMarker(s string) (name string, width int, braced bool) {
	if len(s) < 2 || s[0] != '$' {
		return "", 0, false
	}

	if s[1] == '{' {
		end := strings.IndexByte(s, '}')
		if end < 0 {
			return "", 0, false
		}

		return s[2:end], end + 1, true
	}

	j := 1
	for j < len(s) && isNameByte(s[j]) {
		j++
	}

	if j == 1 {
		return "", 0, false
	}

	return s[1:j], j, false
}

func isNameByte(b byte) bool {
	return b == '_' ||
		(b >= 'a' && b <= 'z') ||
		(b >= 'A' && b <= 'Z') ||
		(b >= '0' && b <= '9') ||
		b == '-' ||
		b == '.' ||
		b == ':'
}
