package cycles

import (
	"sort"
	"strings"

	"factorylens/internal/graph"
	"factorylens/internal/model"
)

// Detect finds circular dependencies at two levels: pipeline invocation
// cycles over the whole factory (CRITICAL) and activity dependency cycles
// local to each pipeline (HIGH). Cycles are deduplicated by rotating each
// path to its lexicographically smallest element.
func Detect(g *graph.Graph, pipelines map[string]*model.PipelineRecord) []model.Cycle {
	var found []model.Cycle

	found = append(found, detectPipelineCycles(g, pipelines)...)
	found = append(found, detectActivityCycles(g)...)

	return dedupe(found)
}

// detectPipelineCycles runs DFS over pipeline-pipeline edges only. A cycle
// is kept only when every member is a registered pipeline.
func detectPipelineCycles(g *graph.Graph, pipelines map[string]*model.PipelineRecord) []model.Cycle {
	adj := make(map[string][]string)
	for _, e := range g.Edges[model.EdgePipelinePipeline] {
		adj[e.From.Name] = append(adj[e.From.Name], e.To.Name)
	}
	for from := range adj {
		sort.Strings(adj[from])
	}

	roots := make([]string, 0, len(adj))
	for from := range adj {
		roots = append(roots, from)
	}
	sort.Strings(roots)

	var cycles []model.Cycle
	for _, path := range findCycles(roots, adj) {
		valid := true
		for _, member := range path[:len(path)-1] {
			if _, ok := pipelines[member]; !ok {
				valid = false
				break
			}
		}
		if !valid {
			continue
		}
		cycles = append(cycles, model.Cycle{
			Kind:           model.CyclePipeline,
			Path:           path,
			Length:         len(path) - 1,
			Severity:       "CRITICAL",
			Impact:         "Pipelines in this cycle can trigger each other indefinitely",
			Recommendation: "Break the invocation cycle by removing or gating one Execute Pipeline dependency",
		})
	}
	return cycles
}

// detectActivityCycles runs DFS per pipeline over that pipeline's local
// activity-activity edges.
func detectActivityCycles(g *graph.Graph) []model.Cycle {
	perPipeline := make(map[string]map[string][]string)
	for _, e := range g.Edges[model.EdgeActivityActivity] {
		adj := perPipeline[e.Pipeline]
		if adj == nil {
			adj = make(map[string][]string)
			perPipeline[e.Pipeline] = adj
		}
		adj[e.From.Name] = append(adj[e.From.Name], e.To.Name)
	}

	pipelineNames := make([]string, 0, len(perPipeline))
	for name := range perPipeline {
		pipelineNames = append(pipelineNames, name)
	}
	sort.Strings(pipelineNames)

	var cycles []model.Cycle
	for _, pipeline := range pipelineNames {
		adj := perPipeline[pipeline]
		roots := make([]string, 0, len(adj))
		for from := range adj {
			sort.Strings(adj[from])
			roots = append(roots, from)
		}
		sort.Strings(roots)

		for _, path := range findCycles(roots, adj) {
			cycles = append(cycles, model.Cycle{
				Kind:           model.CycleActivity,
				Path:           path,
				Length:         len(path) - 1,
				Severity:       "HIGH",
				Impact:         "Activities in this cycle can never be scheduled",
				Recommendation: "Remove one dependsOn condition to restore a valid execution order",
			})
		}
	}
	return cycles
}

// findCycles is the classic white/grey/black DFS. visited is global across
// roots; recursionStack marks the grey set of the current branch. On
// meeting a grey neighbor the cycle is path[indexOf(neighbor):] plus the
// neighbor repeated to close it.
func findCycles(roots []string, adj map[string][]string) [][]string {
	visited := make(map[string]bool)
	var cycles [][]string

	var stack map[string]bool
	var path []string

	var dfs func(node string)
	dfs = func(node string) {
		visited[node] = true
		stack[node] = true
		path = append(path, node)

		for _, next := range adj[node] {
			if stack[next] {
				start := indexOf(path, next)
				if start >= 0 {
					cycle := make([]string, 0, len(path)-start+1)
					cycle = append(cycle, path[start:]...)
					cycle = append(cycle, next)
					cycles = append(cycles, cycle)
				}
				continue
			}
			if !visited[next] {
				dfs(next)
			}
		}

		path = path[:len(path)-1]
		delete(stack, node)
	}

	for _, root := range roots {
		if visited[root] {
			continue
		}
		stack = make(map[string]bool)
		path = nil
		dfs(root)
	}
	return cycles
}

func indexOf(path []string, node string) int {
	for i, p := range path {
		if p == node {
			return i
		}
	}
	return -1
}

// dedupe keeps the first occurrence of each canonical cycle tuple.
func dedupe(cycles []model.Cycle) []model.Cycle {
	seen := make(map[string]bool)
	out := make([]model.Cycle, 0, len(cycles))
	for _, c := range cycles {
		key := string(c.Kind) + "|" + strings.Join(c.CanonicalPath(), "→")
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, c)
	}
	return out
}
