package activity

import (
	"encoding/json"
	"sort"

	"factorylens/internal/logging"
	"factorylens/internal/model"
	"factorylens/internal/registry"
)

// DefaultMaxDepth caps activity tree recursion. Exceeding it logs an error
// and stops descending; the omitted subtree is documented data loss, not a
// fault.
const DefaultMaxDepth = 20

// FallbackRuntime is the sentinel used when no integration runtime can be
// resolved for an activity.
const FallbackRuntime = "AutoResolveIntegrationRuntime"

// Walker parses every pipeline's activity tree into flat activity records
// plus the edges the activities contribute to the dependency graph.
type Walker struct {
	reg       *registry.Registry
	logger    *logging.Logger
	maxDepth  int
	sqlMaxLen int

	Activities []*model.Activity
	Edges      []model.Edge
}

// NewWalker creates a walker over the given registry.
func NewWalker(reg *registry.Registry, logger *logging.Logger, maxDepth, sqlMaxLen int) *Walker {
	if maxDepth <= 0 {
		maxDepth = DefaultMaxDepth
	}
	return &Walker{
		reg:       reg,
		logger:    logger,
		maxDepth:  maxDepth,
		sqlMaxLen: sqlMaxLen,
	}
}

// WalkAll walks every registered pipeline in name order.
func (w *Walker) WalkAll() {
	names := make([]string, 0, len(w.reg.Pipelines))
	for name := range w.reg.Pipelines {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		res, ok := w.pipelineResource(name)
		if !ok {
			continue
		}
		acts := getSlice(res.Properties, "activities")
		w.walk(name, acts, "", 0, 0)
	}
	w.checkDanglingEdges()
}

func (w *Walker) pipelineResource(name string) (model.Resource, bool) {
	for _, res := range w.reg.ByKind[model.KindPipeline] {
		if res.Name == name {
			return res, true
		}
	}
	return model.Resource{}, false
}

// walk parses one level of an activity tree. seq is a single counter
// threaded through the entire recursive walk of a pipeline: branches never
// reset it, so sibling containers receive strictly increasing but not
// contiguous-per-branch sequence numbers. Returns the next sequence value.
func (w *Walker) walk(pipeline string, activities []any, parent string, depth, seq int) int {
	if depth > w.maxDepth {
		w.logger.Error("Activity nesting exceeds depth cap; subtree skipped", map[string]any{
			"pipeline": pipeline,
			"parent":   parent,
			"depth":    depth,
		})
		return seq
	}

	for _, raw := range activities {
		m, ok := raw.(map[string]any)
		if !ok {
			w.logger.Warn("Skipping non-object activity entry", map[string]any{
				"pipeline": pipeline,
				"parent":   parent,
			})
			continue
		}
		seq = w.visit(pipeline, m, parent, depth, seq)
	}
	return seq
}

// visit parses a single activity node and recurses into its containers.
func (w *Walker) visit(pipeline string, m map[string]any, parent string, depth, seq int) int {
	name := getString(m, "name")
	if name == "" {
		w.logger.Warn("Skipping unnamed activity", map[string]any{
			"pipeline": pipeline,
			"parent":   parent,
		})
		return seq
	}
	actType := getString(m, "type")
	seq++

	act := &model.Activity{
		Pipeline: pipeline,
		Name:     name,
		Type:     actType,
		Role:     roleFor(actType),
		Parent:   parent,
		Depth:    depth,
		Sequence: seq,
		Disabled: getString(m, "state") == "Inactive",
		Stage:    model.StagePending,
	}

	w.parsePolicy(act, m)
	w.parseUserProperties(act, m)
	w.parseDependsOn(act, m)

	handler, ok := handlers[actType]
	if !ok {
		handler = genericHandler
	}
	func() {
		defer func() {
			if r := recover(); r != nil {
				w.logger.Error("Activity handler failed", map[string]any{
					"pipeline": pipeline,
					"activity": name,
					"type":     actType,
					"panic":    r,
				})
			}
		}()
		handler(w, act, m)
	}()

	w.resolveRuntime(act, m)
	w.scanReferences(act, m)
	w.Activities = append(w.Activities, act)

	// Container recursion rules. The sequence counter threads through every
	// branch in declared order.
	typeProps := getMap(m, "typeProperties")
	switch actType {
	case "ForEach":
		seq = w.walk(pipeline, getSlice(typeProps, "activities"), name, depth+1, seq)
	case "IfCondition":
		seq = w.walk(pipeline, getSlice(typeProps, "ifTrueActivities"), name+"→TRUE", depth+1, seq)
		seq = w.walk(pipeline, getSlice(typeProps, "ifFalseActivities"), name+"→FALSE", depth+1, seq)
	case "Switch":
		for _, rawCase := range getSlice(typeProps, "cases") {
			c, ok := rawCase.(map[string]any)
			if !ok {
				continue
			}
			label := name + "→CASE[" + getString(c, "value") + "]"
			seq = w.walk(pipeline, getSlice(c, "activities"), label, depth+1, seq)
		}
		seq = w.walk(pipeline, getSlice(typeProps, "defaultActivities"), name+"→DEFAULT", depth+1, seq)
	case "Until":
		seq = w.walk(pipeline, getSlice(typeProps, "activities"), name+"→LOOP", depth+1, seq)
	}

	return seq
}

func (w *Walker) parsePolicy(act *model.Activity, m map[string]any) {
	policy := getMap(m, "policy")
	if policy == nil {
		return
	}
	act.Timeout = getString(policy, "timeout")
	act.RetryCount = getInt(policy, "retry")
	act.RetryInterval = getInt(policy, "retryIntervalInSeconds")
	act.SecureInput = getBool(policy, "secureInput")
	act.SecureOutput = getBool(policy, "secureOutput")
}

const userPropertyValueLimit = 50

func (w *Walker) parseUserProperties(act *model.Activity, m map[string]any) {
	for _, raw := range getSlice(m, "userProperties") {
		p, ok := raw.(map[string]any)
		if !ok {
			continue
		}
		value := resolveAny(p["value"])
		if len(value) > userPropertyValueLimit {
			value = value[:userPropertyValueLimit]
		}
		act.UserProperties = append(act.UserProperties, model.UserProperty{
			Name:  getString(p, "name"),
			Value: value,
		})
	}
}

// parseDependsOn records each dependency both on the activity record (for
// display) and as a raw activity-activity edge. The edge's To is the
// activity that must complete first.
func (w *Walker) parseDependsOn(act *model.Activity, m map[string]any) {
	for _, raw := range getSlice(m, "dependsOn") {
		d, ok := raw.(map[string]any)
		if !ok {
			continue
		}
		target := getString(d, "activity")
		if target == "" {
			continue
		}
		var conditions []string
		for _, c := range getSlice(d, "dependencyConditions") {
			if s, ok := c.(string); ok {
				conditions = append(conditions, s)
			}
		}
		act.DependsOn = append(act.DependsOn, model.ActivityDependency{
			Activity:   target,
			Conditions: conditions,
		})
		edge := model.NewEdge(model.EdgeActivityActivity,
			model.NodeID{Kind: model.NodeActivity, Name: act.Key()},
			model.NodeID{Kind: model.NodeActivity, Name: model.ActivityKey(act.Pipeline, target)})
		edge.Pipeline = act.Pipeline
		edge.Conditions = conditions
		w.Edges = append(w.Edges, edge)
	}
}

// resolveRuntime applies the 3-level integration runtime resolution:
// explicit activity runtime, then the activity's linked service's runtime,
// then the first input dataset's linked service's runtime, then the
// fallback sentinel.
func (w *Walker) resolveRuntime(act *model.Activity, m map[string]any) {
	if explicit := referenceName(m, "connectVia"); explicit != "" {
		act.Runtime = explicit
		return
	}
	if connection := referenceName(m, "linkedServiceName"); connection != "" {
		if rec, ok := w.reg.Connections[connection]; ok && rec.Runtime != "" {
			act.Runtime = rec.Runtime
			return
		}
	}
	if ds := w.firstInputDataset(m); ds != "" {
		if dsRec, ok := w.reg.Datasets[ds]; ok {
			if conn, ok := w.reg.Connections[dsRec.Connection]; ok && conn.Runtime != "" {
				act.Runtime = conn.Runtime
				return
			}
		}
	}
	act.Runtime = FallbackRuntime
}

func (w *Walker) firstInputDataset(m map[string]any) string {
	for _, raw := range getSlice(m, "inputs") {
		in, ok := raw.(map[string]any)
		if !ok {
			continue
		}
		if name := getString(in, "referenceName"); name != "" {
			return name
		}
	}
	return ""
}

// scanReferences serializes the activity's type properties and runs the
// expression reference scan, recording parameter/variable reference edges.
func (w *Walker) scanReferences(act *model.Activity, m map[string]any) {
	typeProps := getMap(m, "typeProperties")
	if typeProps == nil {
		return
	}
	data, err := json.Marshal(typeProps)
	if err != nil {
		return
	}
	act.References = findReferences(string(data))

	from := model.NodeID{Kind: model.NodeActivity, Name: act.Key()}
	for _, ref := range act.References {
		kind, name, ok := splitReference(ref)
		if !ok {
			continue
		}
		switch kind {
		case "parameter", "globalParameter":
			edge := model.NewEdge(model.EdgeReference, from,
				model.NodeID{Kind: model.NodeParameter, Name: name})
			edge.Pipeline = act.Pipeline
			w.Edges = append(w.Edges, edge)
		case "variable":
			edge := model.NewEdge(model.EdgeReference, from,
				model.NodeID{Kind: model.NodeVariable, Name: model.ActivityKey(act.Pipeline, name)})
			edge.Pipeline = act.Pipeline
			w.Edges = append(w.Edges, edge)
		}
	}
}

// checkDanglingEdges warns for activity dependencies whose endpoints were
// never produced by the walk. No silent dangling edges.
func (w *Walker) checkDanglingEdges() {
	known := make(map[string]bool, len(w.Activities))
	for _, act := range w.Activities {
		known[act.Key()] = true
	}
	for _, edge := range w.Edges {
		if edge.Kind != model.EdgeActivityActivity {
			continue
		}
		for _, end := range []model.NodeID{edge.From, edge.To} {
			if !known[end.Name] {
				w.logger.Warn("Activity dependency references unknown activity", map[string]any{
					"pipeline": edge.Pipeline,
					"activity": end.Name,
				})
			}
		}
	}
}

// recordDatasetEdge links an activity to a dataset it reads or writes and
// marks the dataset used.
func (w *Walker) recordDatasetEdge(act *model.Activity, dataset string) {
	if dataset == "" {
		return
	}
	w.reg.Usage.Datasets[dataset] = true
	edge := model.NewEdge(model.EdgeActivityDataset,
		model.NodeID{Kind: model.NodeActivity, Name: act.Key()},
		model.NodeID{Kind: model.NodeDataset, Name: dataset})
	edge.Pipeline = act.Pipeline
	w.Edges = append(w.Edges, edge)
}

// recordPipelineInvocation links the containing pipeline to an invoked
// pipeline and marks the target used.
func (w *Walker) recordPipelineInvocation(act *model.Activity, target string) {
	if target == "" {
		return
	}
	w.reg.Usage.Pipelines[target] = true
	edge := model.NewEdge(model.EdgePipelinePipeline,
		model.NodeID{Kind: model.NodePipeline, Name: act.Pipeline},
		model.NodeID{Kind: model.NodePipeline, Name: target})
	edge.Pipeline = act.Pipeline
	w.Edges = append(w.Edges, edge)
}

// recordDataFlowInvocation links the containing pipeline to an invoked data
// flow and marks it used.
func (w *Walker) recordDataFlowInvocation(act *model.Activity, target string) {
	if target == "" {
		return
	}
	w.reg.Usage.DataFlows[target] = true
	edge := model.NewEdge(model.EdgePipelineDataFlow,
		model.NodeID{Kind: model.NodePipeline, Name: act.Pipeline},
		model.NodeID{Kind: model.NodeDataFlow, Name: target})
	edge.Pipeline = act.Pipeline
	w.Edges = append(w.Edges, edge)
}
