// Package overlay implements the profile overlay engine: depth-first
// post-order parent-chain flattening of layered key-value "profiles",
// including the ".properties" merge/delete-sentinel rules (spec.md §4.6).
package overlay

import (
	"sort"
	"strings"

	"github.com/ardnew/shellcore/session"
)

// deletedSentinel is the reserved key and value recognised within a
// ".properties" file (spec.md §4.6).
const deletedSentinel = "#deleted#"

// Profile is {id, parent_ids, files} (spec.md §4.6).
type Profile struct {
	ID        string
	ParentIDs []string
	Files     map[string][]byte

	// Attributes carries arbitrary profile metadata preserved through
	// overlay (spec.md §4.6 "carrying the original attributes"). Builder
	// pattern per Open Question (a): WithAttribute returns a copy so a
	// Profile stays otherwise immutable once registered.
	Attributes map[string]string

	IsOverlay bool
}

// WithAttribute returns a copy of p with key set to value in Attributes.
func (p Profile) WithAttribute(key, value string) Profile {
	attrs := make(map[string]string, len(p.Attributes)+1)
	for k, v := range p.Attributes {
		attrs[k] = v
	}

	attrs[key] = value
	p.Attributes = attrs

	return p
}

// Registry resolves a profile id to its Profile, failing with
// session.MissingProfile on an unknown id (spec.md §4.6).
type Registry interface {
	Resolve(id string) (Profile, error)
}

// MapRegistry is the simplest Registry: a fixed map of known profiles.
type MapRegistry map[string]Profile

// Resolve implements Registry.
func (m MapRegistry) Resolve(id string) (Profile, error) {
	p, ok := m[id]
	if !ok {
		return Profile{}, session.MissingProfile(id)
	}

	return p, nil
}

// properties is a parsed ".properties" file: an ordered key->text mapping.
type properties struct {
	keys   []string
	values map[string]string
}

func newProperties() *properties {
	return &properties{values: make(map[string]string)}
}

func parseProperties(data []byte) *properties {
	p := newProperties()

	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") && line != deletedSentinel {
			continue
		}

		eq := strings.IndexByte(line, '=')
		if eq < 0 {
			continue
		}

		key := strings.TrimSpace(line[:eq])
		val := strings.TrimSpace(line[eq+1:])
		p.set(key, val)
	}

	return p
}

func (p *properties) set(key, val string) {
	if _, exists := p.values[key]; !exists {
		p.keys = append(p.keys, key)
	}

	p.values[key] = val
}

func (p *properties) remove(key string) {
	if _, exists := p.values[key]; !exists {
		return
	}

	delete(p.values, key)

	for i, k := range p.keys {
		if k == key {
			p.keys = append(p.keys[:i], p.keys[i+1:]...)

			break
		}
	}
}

func (p *properties) bytes() []byte {
	var b strings.Builder

	for _, k := range p.keys {
		b.WriteString(k)
		b.WriteByte('=')
		b.WriteString(p.values[k])
		b.WriteByte('\n')
	}

	return []byte(b.String())
}

// accumulator is the flattened files map being built during the overlay
// walk, alongside the parsed-properties cache for files already merged as
// ".properties" (so repeated merges into the same key reuse the parsed
// form instead of re-parsing bytes each step).
type accumulator struct {
	files map[string][]byte
	props map[string]*properties
}

func newAccumulator() *accumulator {
	return &accumulator{files: make(map[string][]byte), props: make(map[string]*properties)}
}

// Overlay flattens p's parent chain using reg to resolve parents, and env
// to select environment-qualified file variants (spec.md §4.6). env may be
// empty, meaning no environment qualification is applied.
func Overlay(p Profile, reg Registry, env string) (Profile, error) {
	visited := make(map[string]bool)
	acc := newAccumulator()

	if err := walk(p, reg, env, visited, acc); err != nil {
		return Profile{}, err
	}

	result := p
	result.Files = acc.files
	result.IsOverlay = true

	return result, nil
}

// walk performs the depth-first post-order traversal: parents are merged
// before the profile itself, cycle-safe via visited (spec.md §4.6
// "depth-first post-order, cycle-safe via a visited set of profile
// identities").
func walk(p Profile, reg Registry, env string, visited map[string]bool, acc *accumulator) error {
	if visited[p.ID] {
		return nil
	}

	visited[p.ID] = true

	for _, parentID := range p.ParentIDs {
		parent, err := reg.Resolve(parentID)
		if err != nil {
			return err
		}

		if err := walk(parent, reg, env, visited, acc); err != nil {
			return err
		}
	}

	mergeProfile(p, env, acc)

	return nil
}

// mergeProfile applies one profile's files into acc per the four rules of
// spec.md §4.6.
func mergeProfile(p Profile, env string, acc *accumulator) {
	keys := make([]string, 0, len(p.Files))
	for k := range p.Files {
		keys = append(keys, k)
	}

	sort.Strings(keys)

	for _, key := range keys {
		if strings.ContainsRune(key, '#') {
			// Rule 1: environment-qualified keys are skipped during the
			// base pass; they are only consulted via rule 2 below.
			continue
		}

		data := p.Files[key]

		if env != "" {
			if qualified, ok := p.Files[key+"#"+env]; ok {
				data = qualified
			}
		}

		if strings.HasSuffix(key, ".properties") {
			mergeProperties(key, data, acc)

			continue
		}

		// Rule 4: opaque files overwrite the accumulator entry entirely.
		acc.files[key] = data
	}
}

// mergeProperties implements rule 3 of spec.md §4.6.
func mergeProperties(key string, data []byte, acc *accumulator) {
	incoming := parseProperties(data)

	existing, ok := acc.props[key]
	if !ok {
		existing = incoming
		acc.props[key] = existing
		acc.files[key] = existing.bytes()

		return
	}

	if _, hasDeleteAll := incoming.values[deletedSentinel]; hasDeleteAll {
		existing = newProperties()
	}

	for _, k := range incoming.keys {
		v := incoming.values[k]
		if k == deletedSentinel {
			continue
		}

		if v == deletedSentinel {
			existing.remove(k)

			continue
		}

		existing.set(k, v)
	}

	acc.props[key] = existing
	acc.files[key] = existing.bytes()
}
