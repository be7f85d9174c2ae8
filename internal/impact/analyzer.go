package impact

import (
	"sort"
	"strconv"
	"strings"

	"factorylens/internal/graph"
	"factorylens/internal/model"
	"factorylens/internal/registry"
)

// DefaultMaxDepth bounds the transitive breadth-first traversal.
const DefaultMaxDepth = 5

// Display caps applied when rendering transitive sets. These truncate the
// report only; the underlying counts stay exact.
const (
	DisplayLevels       = 3
	DisplayNamesPerLevel = 3
)

// Analyzer computes per-pipeline blast radius and impact classification
// over the functional subset of the graph: trigger edges count only when
// the trigger is Started, and pipeline-pipeline edges only exist for
// explicit Execute Pipeline invocations.
type Analyzer struct {
	g        *graph.Graph
	reg      *registry.Registry
	maxDepth int

	callers  map[string][]string
	callees  map[string][]string
	triggers map[string][]string
}

// NewAnalyzer creates an impact analyzer with the given BFS depth bound.
func NewAnalyzer(g *graph.Graph, reg *registry.Registry, maxDepth int) *Analyzer {
	if maxDepth <= 0 {
		maxDepth = DefaultMaxDepth
	}
	a := &Analyzer{
		g:        g,
		reg:      reg,
		maxDepth: maxDepth,
		callers:  make(map[string][]string),
		callees:  make(map[string][]string),
		triggers: make(map[string][]string),
	}
	a.buildFunctionalAdjacency()
	return a
}

func (a *Analyzer) buildFunctionalAdjacency() {
	callerSets := make(map[string]map[string]bool)
	calleeSets := make(map[string]map[string]bool)
	for _, e := range a.g.Edges[model.EdgePipelinePipeline] {
		addToSet(calleeSets, e.From.Name, e.To.Name)
		addToSet(callerSets, e.To.Name, e.From.Name)
	}
	for p, set := range callerSets {
		a.callers[p] = model.SortedStrings(set)
	}
	for p, set := range calleeSets {
		a.callees[p] = model.SortedStrings(set)
	}

	triggerSets := make(map[string]map[string]bool)
	for _, e := range a.g.Edges[model.EdgeTriggerPipeline] {
		trigger, ok := a.reg.Triggers[e.From.Name]
		if !ok || trigger.State != "Started" {
			continue
		}
		addToSet(triggerSets, e.To.Name, e.From.Name)
	}
	for p, set := range triggerSets {
		a.triggers[p] = model.SortedStrings(set)
	}
}

func addToSet(m map[string]map[string]bool, key, value string) {
	set := m[key]
	if set == nil {
		set = make(map[string]bool)
		m[key] = set
	}
	set[value] = true
}

// Analyze computes one ImpactRecord per registered pipeline, sorted by
// pipeline name.
func (a *Analyzer) Analyze() []model.ImpactRecord {
	names := make([]string, 0, len(a.reg.Pipelines))
	for name := range a.reg.Pipelines {
		names = append(names, name)
	}
	sort.Strings(names)

	records := make([]model.ImpactRecord, 0, len(names))
	for _, name := range names {
		records = append(records, a.analyzePipeline(name))
	}
	return records
}

func (a *Analyzer) analyzePipeline(name string) model.ImpactRecord {
	rec := model.ImpactRecord{
		Pipeline:                name,
		DirectUpstreamTriggers:  a.triggers[name],
		DirectUpstreamPipelines: a.callers[name],
		DirectDownstreamPipelines: a.callees[name],
		UsedDataFlows:           a.usedDataFlows(name),
		UsedDatasets:            a.usedDatasets(name),
		IsOrphaned:              !a.reg.Usage.Pipelines[name],
	}

	hasDirectUpstream := len(rec.DirectUpstreamTriggers) > 0 || len(rec.DirectUpstreamPipelines) > 0
	hasDirectDownstream := len(rec.DirectDownstreamPipelines) > 0 ||
		len(rec.UsedDataFlows) > 0 || len(rec.UsedDatasets) > 0

	if hasDirectUpstream {
		rec.TransitiveUpstream = a.traverse(name, a.callers)
	}
	if hasDirectDownstream {
		rec.TransitiveDownstream = a.traverse(name, a.callees)
	}

	hasTransUp := model.TransitiveCount(rec.TransitiveUpstream) > 0
	hasTransDown := model.TransitiveCount(rec.TransitiveDownstream) > 0

	// Classification, checked strictly in order.
	switch {
	case (hasDirectUpstream && hasDirectDownstream) || (hasTransUp && hasTransDown):
		rec.Impact = model.ImpactCritical
	case (hasDirectUpstream && !hasDirectDownstream) || hasTransUp:
		rec.Impact = model.ImpactHigh
	case hasDirectDownstream || hasTransDown:
		rec.Impact = model.ImpactMedium
	default:
		rec.Impact = model.ImpactLow
	}

	rec.BlastRadius = len(rec.DirectUpstreamTriggers) +
		len(rec.DirectUpstreamPipelines) + model.TransitiveCount(rec.TransitiveUpstream) +
		len(rec.DirectDownstreamPipelines) + model.TransitiveCount(rec.TransitiveDownstream) +
		len(rec.UsedDataFlows) + len(rec.UsedDatasets)

	return rec
}

// traverse is the bounded BFS. visited seeds with self; a dequeued node at
// maxDepth is not expanded, so nodes reached exactly at the bound appear in
// results but never contribute neighbors. Level 1 duplicates the direct
// set, so only levels >= 2 are retained as transitive.
func (a *Analyzer) traverse(start string, adjacency map[string][]string) map[int][]string {
	type queued struct {
		node  string
		depth int
	}
	visited := map[string]bool{start: true}
	queue := []queued{{start, 0}}
	levels := make(map[int][]string)

	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		if cur.depth == a.maxDepth {
			continue
		}
		for _, next := range adjacency[cur.node] {
			if visited[next] {
				continue
			}
			visited[next] = true
			queue = append(queue, queued{next, cur.depth + 1})
			levels[cur.depth+1] = append(levels[cur.depth+1], next)
		}
	}

	for level := range levels {
		sort.Strings(levels[level])
	}
	delete(levels, 1)
	if len(levels) == 0 {
		return nil
	}
	return levels
}

func (a *Analyzer) usedDataFlows(pipeline string) []string {
	set := make(map[string]bool)
	for _, e := range a.g.Edges[model.EdgePipelineDataFlow] {
		if e.From.Name == pipeline {
			set[e.To.Name] = true
		}
	}
	return model.SortedStrings(set)
}

func (a *Analyzer) usedDatasets(pipeline string) []string {
	set := make(map[string]bool)
	for _, e := range a.g.Edges[model.EdgeActivityDataset] {
		if e.Pipeline == pipeline {
			set[e.To.Name] = true
		}
	}
	return model.SortedStrings(set)
}

// FormatTransitive renders a transitive level map for display, capped to
// DisplayLevels levels and DisplayNamesPerLevel names per level.
func FormatTransitive(levels map[int][]string) string {
	if len(levels) == 0 {
		return ""
	}
	keys := make([]int, 0, len(levels))
	for level := range levels {
		keys = append(keys, level)
	}
	sort.Ints(keys)
	if len(keys) > DisplayLevels {
		keys = keys[:DisplayLevels]
	}

	out := ""
	for i, level := range keys {
		names := levels[level]
		shown := names
		suffix := ""
		if len(shown) > DisplayNamesPerLevel {
			shown = shown[:DisplayNamesPerLevel]
			suffix = ", …"
		}
		if i > 0 {
			out += "; "
		}
		out += "L" + strconv.Itoa(level) + ": " + strings.Join(shown, ", ") + suffix
	}
	return out
}
