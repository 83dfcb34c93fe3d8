// Package interpolate implements lazy, cycle-safe "${var}" substitution
// over a layered profile configuration space, plus scheme-based placeholder
// resolvers (spec.md §4.7).
package interpolate

import (
	"fmt"
	"strings"
)

// CatchAllScheme is the reserved scheme value for post-substitution
// resolvers (spec.md §4.7 step 4, §6).
const CatchAllScheme = "*"

// cycleSentinel is returned in place of a value whose resolution re-enters
// itself (spec.md §4.7 step 3, §8 invariant 7: "must neither infinite-loop
// nor panic").
const cycleSentinel = "${cycle}"

// View exposes a profile's configuration space as pid -> key -> text
// (spec.md §4.7).
type View interface {
	Keys(pid string) []string
	Get(pid, key string) (string, bool)
}

// MapView is the simplest View: a fixed pid -> key -> text map.
type MapView map[string]map[string]string

// Keys implements View.
func (m MapView) Keys(pid string) []string {
	keys := make([]string, 0, len(m[pid]))
	for k := range m[pid] {
		keys = append(keys, k)
	}

	return keys
}

// Get implements View.
func (m MapView) Get(pid, key string) (string, bool) {
	v, ok := m[pid][key]

	return v, ok
}

// Resolver is a placeholder resolver (spec.md §6 "Placeholder resolver
// interface"). Scheme == "" means scheme-less (tried first, against the
// raw value); a non-empty Scheme is tried only against values of the form
// "scheme:rest". Scheme == CatchAllScheme is a post-substitution pass.
type Resolver struct {
	Scheme  string
	Resolve func(view View, pid, key, value string) (string, bool)
}

// Engine runs the four-stage substitution of spec.md §4.7 over a View,
// memoising results per (pid, key).
type Engine struct {
	view      View
	resolvers []Resolver

	memo map[string]string
}

// New creates an Engine over view with the given resolvers.
func New(view View, resolvers []Resolver) *Engine {
	return &Engine{view: view, resolvers: resolvers, memo: make(map[string]string)}
}

// Value computes the fully-substituted value for pid/key, memoised per key
// (spec.md §4.7 "Values are computed on demand and memoised per
// configuration-key").
func (e *Engine) Value(pid, key string) (string, bool) {
	return e.value(pid, key, make(map[string]bool))
}

func (e *Engine) value(pid, key string, inProgress map[string]bool) (string, bool) {
	memoKey := pid + "\x00" + key

	if v, ok := e.memo[memoKey]; ok {
		return v, true
	}

	raw, ok := e.view.Get(pid, key)
	if !ok {
		return "", false
	}

	result := e.substitute(pid, raw, inProgress)

	e.memo[memoKey] = result

	return result, true
}

// substitute applies the four stages to one raw value.
func (e *Engine) substitute(pid, raw string, inProgress map[string]bool) string {
	// Stage 1: scheme-less resolvers against the raw value.
	matched := false

	for _, r := range e.resolvers {
		if r.Scheme != "" {
			continue
		}

		if v, ok := r.Resolve(e.view, pid, "", raw); ok {
			raw = v
			matched = true

			break
		}
	}

	// Stage 2: if no scheme-less resolver matched and the value contains
	// ":", try scheme-matching resolvers against the remainder.
	if scheme, rest, has := splitScheme(raw); !matched && has {
		for _, r := range e.resolvers {
			if r.Scheme == "" || r.Scheme == CatchAllScheme || r.Scheme != scheme {
				continue
			}

			if v, ok := r.Resolve(e.view, pid, "", rest); ok {
				raw = v

				break
			}
		}
	}

	// Stage 3: ${var} expansion, cycle-tracking.
	raw = e.expandVars(pid, raw, inProgress)

	// Stage 4: catch-all resolvers.
	for _, r := range e.resolvers {
		if r.Scheme != CatchAllScheme {
			continue
		}

		if v, ok := r.Resolve(e.view, pid, "", raw); ok {
			raw = v
		}
	}

	return raw
}

func splitScheme(s string) (scheme, rest string, ok bool) {
	i := strings.IndexByte(s, ':')
	if i < 0 {
		return "", s, false
	}

	return s[:i], s[i+1:], true
}

// expandVars performs "${var}" substitution, using a reference key of
// "pid\x00var" (falling back to var alone if absent in this profile) to
// detect cycles via the caller-supplied in-progress set.
func (e *Engine) expandVars(pid, s string, inProgress map[string]bool) string {
	var b strings.Builder

	i := 0

	for i < len(s) {
		start := strings.Index(s[i:], "${")
		if start < 0 {
			b.WriteString(s[i:])

			break
		}

		start += i

		end := strings.IndexByte(s[start+2:], '}')
		if end < 0 {
			b.WriteString(s[i:])

			break
		}

		end += start + 2

		b.WriteString(s[i:start])

		name := s[start+2 : end]
		refKey := pid + "\x00" + name

		if inProgress[refKey] {
			b.WriteString(cycleSentinel)
		} else {
			inProgress[refKey] = true
			v, ok := e.value(pid, name, inProgress)
			delete(inProgress, refKey)

			if ok {
				b.WriteString(v)
			} else {
				b.WriteString(fmt.Sprintf("${%s}", name))
			}
		}

		i = end + 1
	}

	return b.String()
}
