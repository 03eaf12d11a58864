package validator

import (
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/conneroisu/nxml/internal/types"
)

// computedRefPattern matches $state.name and $computed.name references in a
// computed expression. State and computed namespaces are disjoint, so a
// captured name identifies its target regardless of the prefix used.
var computedRefPattern = regexp.MustCompile(`\$(?:state|computed)\.([A-Za-z_][A-Za-z0-9_]*)`)

// extractComputedRefs returns the names referenced by expr, deduplicated in
// first-seen order.
func extractComputedRefs(expr string) []string {
	matches := computedRefPattern.FindAllStringSubmatch(expr, -1)
	seen := make(map[string]struct{}, len(matches))
	refs := make([]string, 0, len(matches))
	for _, match := range matches {
		name := match[1]
		if _, dup := seen[name]; dup {
			continue
		}
		seen[name] = struct{}{}
		refs = append(refs, name)
	}
	return refs
}

// checkComputedDeps resolves every dependency of every computed variable,
// whether declared in the deps attribute or referenced in the expression.
// Unresolvable names are warnings; cycles between computed variables are
// errors since no evaluation order can satisfy them.
func (v *Validator) checkComputedDeps(panel *types.Panel, c *collector) {
	if len(panel.Data.Computed) == 0 {
		return
	}

	states := make(map[string]struct{}, len(panel.Data.States))
	for _, state := range panel.Data.States {
		states[state.Name] = struct{}{}
	}
	computed := make(map[string]struct{}, len(panel.Data.Computed))
	for _, decl := range panel.Data.Computed {
		computed[decl.Name] = struct{}{}
	}

	// Only computed-to-computed edges can form cycles; state references
	// terminate.
	graph := make(map[string][]string, len(panel.Data.Computed))
	for _, decl := range panel.Data.Computed {
		refs := extractComputedRefs(decl.Expression)
		refs = append(refs, decl.Deps...)

		seen := make(map[string]struct{}, len(refs))
		var edges, unknown []string
		for _, name := range refs {
			if _, dup := seen[name]; dup {
				continue
			}
			seen[name] = struct{}{}
			if _, ok := computed[name]; ok {
				edges = append(edges, name)
				continue
			}
			if _, ok := states[name]; ok {
				continue
			}
			unknown = append(unknown, name)
		}
		graph[decl.Name] = edges

		if len(unknown) > 0 {
			sort.Strings(unknown)
			c.warnAt(decl.Location,
				fmt.Sprintf("Computed '%s' depends on unknown names: %s", decl.Name, strings.Join(unknown, ", ")),
				"Dependencies must name a declared state or computed variable",
			)
		}
	}

	for _, cycle := range findCycles(graph) {
		c.error(
			fmt.Sprintf("Circular computed dependency: %s", strings.Join(cycle, " -> ")),
			"Break the cycle so computed variables form an evaluation order",
		)
	}
}

// findCycles searches the dependency graph depth first and returns each
// cycle discovered. Roots are visited in sorted order so the report is
// deterministic.
func findCycles(graph map[string][]string) [][]string {
	roots := make([]string, 0, len(graph))
	for name := range graph {
		roots = append(roots, name)
	}
	sort.Strings(roots)

	visited := make(map[string]bool, len(graph))
	stack := make(map[string]bool, len(graph))
	var cycles [][]string
	for _, root := range roots {
		if !visited[root] {
			if cycle := cycleDFS(root, graph, visited, stack, nil); cycle != nil {
				cycles = append(cycles, cycle)
			}
		}
	}
	return cycles
}

// cycleDFS walks from node, tracking the recursion stack. When it meets a
// node already on the stack it slices the cycle out of the current path and
// closes it with the repeated name.
func cycleDFS(node string, graph map[string][]string, visited, stack map[string]bool, path []string) []string {
	visited[node] = true
	stack[node] = true
	path = append(path, node)

	for _, dep := range graph[node] {
		if !visited[dep] {
			if cycle := cycleDFS(dep, graph, visited, stack, path); cycle != nil {
				return cycle
			}
		} else if stack[dep] {
			start := -1
			for i, name := range path {
				if name == dep {
					start = i
					break
				}
			}
			// A cycle found through an earlier root leaves stale stack
			// flags behind; only report when dep is on this path.
			if start >= 0 {
				cycle := make([]string, len(path)-start+1)
				copy(cycle, path[start:])
				cycle[len(cycle)-1] = dep
				return cycle
			}
		}
	}

	stack[node] = false
	return nil
}
