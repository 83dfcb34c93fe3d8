// Package resource implements the resource-graph topological sorter:
// stable, cycle-tolerant ordering of resources by capability/requirement
// matching (spec.md §4.5).
package resource

// Capability is offered by a Resource under a namespace, carrying an
// attribute map a Requirement's Filter can inspect.
type Capability struct {
	Namespace  string
	Attributes map[string]string
}

// Requirement is a Resource's need, satisfied by any Capability sharing its
// Namespace for which Filter (if non-nil) returns true.
type Requirement struct {
	Namespace string
	Filter    func(Capability) bool
}

// Matches reports whether cap satisfies r: same namespace, and either no
// filter (meaning "match all") or a filter that accepts it.
func (r Requirement) Matches(cap Capability) bool {
	if r.Namespace != cap.Namespace {
		return false
	}

	if r.Filter == nil {
		return true
	}

	return r.Filter(cap)
}

// Resource exposes a set of capabilities and requirements (spec.md §4.5
// "Input").
type Resource struct {
	ID           string
	Capabilities []Capability
	Requirements []Requirement
}

// index maps a namespace to the resources offering a capability in it, in
// original input order, built once over the full universe (spec.md §4.5
// "Algorithm": "Build a per-namespace capability index over the universe").
type index map[string][]int

func buildIndex(resources []Resource) index {
	idx := make(index)

	for i, r := range resources {
		for _, cap := range r.Capabilities {
			idx[cap.Namespace] = append(idx[cap.Namespace], i)
		}
	}

	return idx
}

// Sort reorders resources so that if A requires a capability B offers, B
// precedes A, ties broken by original input order, cycles tolerated via a
// monotonic visited set (spec.md §4.5, §8 invariant 5).
func Sort(resources []Resource) []Resource {
	idx := buildIndex(resources)

	visited := make([]bool, len(resources))
	out := make([]Resource, 0, len(resources))

	var visit func(i int)

	visit = func(i int) {
		if visited[i] {
			return
		}

		visited[i] = true

		for _, req := range resources[i].Requirements {
			for _, j := range idx[req.Namespace] {
				if j == i {
					continue
				}

				for _, cap := range resources[j].Capabilities {
					if cap.Namespace == req.Namespace && req.Matches(cap) {
						visit(j)

						break
					}
				}
			}
		}

		out = append(out, resources[i])
	}

	for i := range resources {
		visit(i)
	}

	return out
}
