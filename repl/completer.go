package repl

import (
	"sort"

	"github.com/sahilm/fuzzy"

	"github.com/ardnew/shellcore/session"
)

// candidates returns the fuzzy-completion universe for a session: every
// session variable name plus every registered command name, the same two
// namespaces dispatch.Resolve consults.
func candidates(sess *session.Session) []string {
	set := make(map[string]bool)

	if names, ok := sess.Get(".variables"); ok {
		if list, ok := names.List(); ok {
			for _, v := range list {
				if text, ok := v.Text(); ok {
					set[text] = true
				}
			}
		}
	}

	if names, ok := sess.Get(".commands"); ok {
		if list, ok := names.List(); ok {
			for _, v := range list {
				if text, ok := v.Text(); ok {
					set[text] = true
				}
			}
		}
	}

	out := make([]string, 0, len(set))
	for name := range set {
		out = append(out, name)
	}

	sort.Strings(out)

	return out
}

// complete fuzzy-matches prefix against the candidate universe, returning
// matches ordered by fuzzy score.
func complete(prefix string, universe []string) []string {
	if prefix == "" {
		return universe
	}

	matches := fuzzy.Find(prefix, universe)

	out := make([]string, len(matches))
	for i, m := range matches {
		out[i] = m.Str
	}

	return out
}
