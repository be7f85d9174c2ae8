package stages

import (
	"sort"

	"factorylens/internal/model"
)

// Assign computes execution stages per pipeline using Kahn's algorithm over
// that pipeline's activity dependencies. An activity's stage is
// max(stage of resolved predecessors)+1, 0 when it has none. Activities
// whose indegree never reaches zero sit in an unresolved cycle and are
// stamped with the CYCLE sentinel. Stages are written back to the activity
// records and to every activity-activity edge's from/to stage fields.
func Assign(activities []*model.Activity, edges []model.Edge) []model.Edge {
	byPipeline := make(map[string][]*model.Activity)
	for _, act := range activities {
		byPipeline[act.Pipeline] = append(byPipeline[act.Pipeline], act)
	}

	pipelines := make([]string, 0, len(byPipeline))
	for name := range byPipeline {
		pipelines = append(pipelines, name)
	}
	sort.Strings(pipelines)

	for _, pipeline := range pipelines {
		assignPipeline(byPipeline[pipeline])
	}

	stamped := make([]model.Edge, len(edges))
	stageOf := make(map[string]int, len(activities))
	for _, act := range activities {
		stageOf[act.Key()] = act.Stage
	}
	for i, e := range edges {
		if e.Kind == model.EdgeActivityActivity {
			if s, ok := stageOf[e.From.Name]; ok {
				e.FromStage = s
			}
			if s, ok := stageOf[e.To.Name]; ok {
				e.ToStage = s
			}
		}
		stamped[i] = e
	}
	return stamped
}

func assignPipeline(acts []*model.Activity) {
	// Walk order is deterministic; keep it for queue seeding.
	sort.Slice(acts, func(i, j int) bool { return acts[i].Sequence < acts[j].Sequence })

	known := make(map[string]*model.Activity, len(acts))
	for _, act := range acts {
		known[act.Name] = act
	}

	indegree := make(map[string]int, len(acts))
	successors := make(map[string][]string)
	predecessors := make(map[string][]string)
	for _, act := range acts {
		indegree[act.Name] = 0
	}
	for _, act := range acts {
		for _, dep := range act.DependsOn {
			// Dependencies on unknown activities were already warned about;
			// they do not block scheduling.
			if _, ok := known[dep.Activity]; !ok {
				continue
			}
			indegree[act.Name]++
			successors[dep.Activity] = append(successors[dep.Activity], act.Name)
			predecessors[act.Name] = append(predecessors[act.Name], dep.Activity)
		}
	}

	var queue []string
	for _, act := range acts {
		if indegree[act.Name] == 0 {
			queue = append(queue, act.Name)
		}
	}

	resolved := make(map[string]int, len(acts))
	for len(queue) > 0 {
		name := queue[0]
		queue = queue[1:]

		stage := 0
		for _, pred := range predecessors[name] {
			if s, ok := resolved[pred]; ok && s+1 > stage {
				stage = s + 1
			}
		}
		resolved[name] = stage
		known[name].Stage = stage

		for _, next := range successors[name] {
			indegree[next]--
			if indegree[next] == 0 {
				queue = append(queue, next)
			}
		}
	}

	for _, act := range acts {
		if _, ok := resolved[act.Name]; !ok {
			act.Stage = model.StageCycle
		}
	}
}
