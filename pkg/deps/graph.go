// Package deps builds the reverse-dependency graph of a form: for every field
// path it records which fields must recompute their state when that path
// changes.
//
// Edges come from a field's explicit `dependencies` list and from the value
// references inside its `visible` and `disabled` expressions. References
// written as `formValues.<path>` are recorded as `<path>`.
//
// Cycles are legal. Traversal never revisits a field, so a field on a cycle
// appears in its own dependents instead of looping; Cycles lists them.
package deps

import (
	"slices"
	"sort"
	"strings"

	"github.com/goliatone/go-formengine/pkg/formconfig"
	"github.com/goliatone/go-formengine/pkg/visibility/expr"
)

// ValuesRoot is the context key under which form values are also reachable
// from expressions.
const ValuesRoot = "formValues"

// Graph maps a source field path to the fields that depend on it.
type Graph struct {
	edges map[string][]string
}

// Build walks fields depth-first, qualifying group members with their parent
// path, and collects dependency edges.
func Build(fields []formconfig.FieldConfig) *Graph {
	g := &Graph{edges: make(map[string][]string)}
	formconfig.Walk(fields, func(path string, field *formconfig.FieldConfig) bool {
		for _, dep := range field.Dependencies {
			g.add(strings.TrimSpace(dep), path)
		}
		for _, cond := range []formconfig.Condition{field.Visible, field.Disabled} {
			for _, ref := range References(cond.Expression()) {
				g.add(ref, path)
			}
		}
		return field.Type == formconfig.FieldGroup
	})
	return g
}

// References returns the value paths read by expression, with the
// `formValues.` root stripped.
func References(expression string) []string {
	if strings.TrimSpace(expression) == "" {
		return nil
	}
	var out []string
	for _, ref := range expr.Parse(expression).Refs() {
		path := strings.TrimPrefix(ref, ValuesRoot+".")
		if path == "" || path == ValuesRoot {
			continue
		}
		if !slices.Contains(out, path) {
			out = append(out, path)
		}
	}
	return out
}

func (g *Graph) add(source, dependent string) {
	if source == "" || dependent == "" {
		return
	}
	if slices.Contains(g.edges[source], dependent) {
		return
	}
	g.edges[source] = append(g.edges[source], dependent)
}

// Edges returns a copy of the direct edges.
func (g *Graph) Edges() map[string][]string {
	out := make(map[string][]string, len(g.edges))
	for k, v := range g.edges {
		out[k] = slices.Clone(v)
	}
	return out
}

// Sources lists every path that has dependents, sorted.
func (g *Graph) Sources() []string {
	keys := make([]string, 0, len(g.edges))
	for k := range g.edges {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Direct returns the fields that reference field directly.
func (g *Graph) Direct(field string) []string {
	return slices.Clone(g.edges[field])
}

// Dependents returns every field that transitively depends on field, in
// discovery order.
func (g *Graph) Dependents(field string) []string {
	var out []string
	seen := make(map[string]struct{})
	g.collect(field, seen, &out)
	return out
}

func (g *Graph) collect(field string, seen map[string]struct{}, out *[]string) {
	for _, dependent := range g.edges[field] {
		if _, ok := seen[dependent]; ok {
			continue
		}
		seen[dependent] = struct{}{}
		*out = append(*out, dependent)
		g.collect(dependent, seen, out)
	}
}

// FieldsToRecalculate returns the deduplicated union of the dependents of
// every changed path. A changed container path also counts as a change of
// every graph source nested below it, and a changed nested path as a change
// of its containers.
func (g *Graph) FieldsToRecalculate(changed []string) []string {
	var out []string
	seen := make(map[string]struct{})
	for _, field := range changed {
		for _, source := range g.related(field) {
			g.collect(source, seen, &out)
		}
	}
	return out
}

func (g *Graph) related(field string) []string {
	sources := []string{field}
	for _, key := range g.Sources() {
		if key == field {
			continue
		}
		if strings.HasPrefix(key, field+".") || strings.HasPrefix(field, key+".") {
			sources = append(sources, key)
		}
	}
	return sources
}

// Cycles reports every strongly connected set of fields that depend on each
// other, including self-references. Each cycle is sorted; the list is sorted
// by first member.
func (g *Graph) Cycles() [][]string {
	t := &tarjan{
		graph:   g,
		index:   make(map[string]int),
		lowlink: make(map[string]int),
		onStack: make(map[string]bool),
	}
	for _, node := range g.nodes() {
		if _, visited := t.index[node]; !visited {
			t.connect(node)
		}
	}

	var cycles [][]string
	for _, component := range t.components {
		if len(component) == 1 && !slices.Contains(g.edges[component[0]], component[0]) {
			continue
		}
		sort.Strings(component)
		cycles = append(cycles, component)
	}
	sort.Slice(cycles, func(i, j int) bool { return cycles[i][0] < cycles[j][0] })
	return cycles
}

func (g *Graph) nodes() []string {
	set := make(map[string]struct{})
	for k, deps := range g.edges {
		set[k] = struct{}{}
		for _, d := range deps {
			set[d] = struct{}{}
		}
	}
	out := make([]string, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

type tarjan struct {
	graph      *Graph
	counter    int
	index      map[string]int
	lowlink    map[string]int
	stack      []string
	onStack    map[string]bool
	components [][]string
}

func (t *tarjan) connect(node string) {
	t.index[node] = t.counter
	t.lowlink[node] = t.counter
	t.counter++
	t.stack = append(t.stack, node)
	t.onStack[node] = true

	for _, next := range t.graph.edges[node] {
		if _, visited := t.index[next]; !visited {
			t.connect(next)
			t.lowlink[node] = min(t.lowlink[node], t.lowlink[next])
		} else if t.onStack[next] {
			t.lowlink[node] = min(t.lowlink[node], t.index[next])
		}
	}

	if t.lowlink[node] != t.index[node] {
		return
	}
	var component []string
	for {
		last := len(t.stack) - 1
		top := t.stack[last]
		t.stack = t.stack[:last]
		t.onStack[top] = false
		component = append(component, top)
		if top == node {
			break
		}
	}
	t.components = append(t.components, component)
}
