package registry

import (
	"factorylens/internal/expr"
	"factorylens/internal/logging"
	"factorylens/internal/model"
	"factorylens/internal/template"
)

// Registry holds the classified resources, the normalized records produced
// by the typed parsers, the provisional usage sets, and every edge
// extracted during registration. It is built once and read-only afterward.
type Registry struct {
	// ByKind groups raw resources by classified kind.
	ByKind map[model.ResourceKind][]model.Resource
	// ByName is the flat name -> resource lookup. Names are only unique
	// within a kind; on cross-kind collision the first registration wins
	// and a warning is logged.
	ByName map[string]model.Resource

	Runtimes    map[string]*model.RuntimeRecord
	Credentials map[string]*model.CredentialRecord
	Networks    map[string]*model.ManagedNetworkRecord
	Endpoints   map[string]*model.ManagedEndpointRecord
	Connections map[string]*model.ConnectionRecord
	Datasets    map[string]*model.DatasetRecord
	DataFlows   map[string]*model.DataFlowRecord
	Pipelines   map[string]*model.PipelineRecord
	Triggers    map[string]*model.TriggerRecord

	GlobalParameters []model.GlobalParameter

	// Edges collected during registration: structural, trigger-pipeline,
	// dataflow-dataset, dataflow-linkedservice, dataset-linkedservice,
	// linkedservice-runtime.
	Edges []model.Edge

	Usage *Usage
}

// Usage tracks which resources have at least one direct reference. Marking
// is non-transitive: a reference from an orphaned resource still counts.
type Usage struct {
	Pipelines   map[string]bool
	DataFlows   map[string]bool
	Datasets    map[string]bool
	Connections map[string]bool
	Runtimes    map[string]bool
}

// NewUsage creates empty usage sets.
func NewUsage() *Usage {
	return &Usage{
		Pipelines:   make(map[string]bool),
		DataFlows:   make(map[string]bool),
		Datasets:    make(map[string]bool),
		Connections: make(map[string]bool),
		Runtimes:    make(map[string]bool),
	}
}

// parserOrder fixes the typed parser sequence: later kinds look up records
// registered by earlier ones.
var parserOrder = []model.ResourceKind{
	model.KindRuntime,
	model.KindCredential,
	model.KindManagedNetwork,
	model.KindManagedEndpoint,
	model.KindConnection,
	model.KindDataset,
	model.KindDataFlow,
	model.KindPipeline,
	model.KindTrigger,
}

// Register classifies the template's resource array and runs the typed
// parsers in dependency order. Malformed resources log and are skipped.
func Register(tpl *template.Template, logger *logging.Logger) *Registry {
	r := &Registry{
		ByKind:      make(map[model.ResourceKind][]model.Resource),
		ByName:      make(map[string]model.Resource),
		Runtimes:    make(map[string]*model.RuntimeRecord),
		Credentials: make(map[string]*model.CredentialRecord),
		Networks:    make(map[string]*model.ManagedNetworkRecord),
		Endpoints:   make(map[string]*model.ManagedEndpointRecord),
		Connections: make(map[string]*model.ConnectionRecord),
		Datasets:    make(map[string]*model.DatasetRecord),
		DataFlows:   make(map[string]*model.DataFlowRecord),
		Pipelines:   make(map[string]*model.PipelineRecord),
		Triggers:    make(map[string]*model.TriggerRecord),
		Usage:       NewUsage(),
	}

	for _, res := range tpl.Resources {
		name := expr.ResolveResourceName(res.Name)
		if name == "" {
			logger.Warn("Resource with empty name skipped", map[string]any{
				"type": res.RawType,
			})
			continue
		}
		res.Name = name
		r.ByKind[res.Kind] = append(r.ByKind[res.Kind], res)
		if prev, exists := r.ByName[name]; exists {
			logger.Warn("Resource name collides across kinds", map[string]any{
				"name":     name,
				"kind":     string(res.Kind),
				"existing": string(prev.Kind),
			})
		} else {
			r.ByName[name] = res
		}
		r.addStructuralEdges(res)
	}

	for _, kind := range parserOrder {
		for _, res := range r.ByKind[kind] {
			r.parseResource(res, logger)
		}
	}
	for _, res := range r.ByKind[model.KindFactory] {
		r.parseFactory(res)
	}

	return r
}

// addStructuralEdges records the raw ARM dependsOn relationships.
func (r *Registry) addStructuralEdges(res model.Resource) {
	from := model.NodeID{Kind: nodeKindFor(res.Kind), Name: res.Name}
	for _, dep := range res.DependsOn {
		target := dependsOnTarget(dep)
		if target == "" || target == res.Name {
			continue
		}
		to := model.NodeID{Kind: nodeKindFromTypeSegment(dependsOnKind(dep)), Name: target}
		r.Edges = append(r.Edges, model.NewEdge(model.EdgeStructural, from, to))
	}
}

func (r *Registry) parseResource(res model.Resource, logger *logging.Logger) {
	defer func() {
		if rec := recover(); rec != nil {
			logger.Error("Resource parser failed", map[string]any{
				"resource": res.Name,
				"kind":     string(res.Kind),
				"panic":    rec,
			})
		}
	}()

	switch res.Kind {
	case model.KindRuntime:
		r.parseRuntime(res)
	case model.KindCredential:
		r.parseCredential(res)
	case model.KindManagedNetwork:
		r.parseNetwork(res)
	case model.KindManagedEndpoint:
		r.parseEndpoint(res)
	case model.KindConnection:
		r.parseConnection(res, logger)
	case model.KindDataset:
		r.parseDataset(res, logger)
	case model.KindDataFlow:
		r.parseDataFlow(res, logger)
	case model.KindPipeline:
		r.parsePipeline(res)
	case model.KindTrigger:
		r.parseTrigger(res, logger)
	}
}

func nodeKindFor(kind model.ResourceKind) model.NodeKind {
	switch kind {
	case model.KindPipeline:
		return model.NodePipeline
	case model.KindDataFlow:
		return model.NodeDataFlow
	case model.KindDataset:
		return model.NodeDataset
	case model.KindConnection:
		return model.NodeConnection
	case model.KindTrigger:
		return model.NodeTrigger
	case model.KindRuntime:
		return model.NodeRuntime
	default:
		return model.NodeKind(kind)
	}
}

func nodeKindFromTypeSegment(segment string) model.NodeKind {
	switch segment {
	case "pipelines":
		return model.NodePipeline
	case "dataflows":
		return model.NodeDataFlow
	case "datasets":
		return model.NodeDataset
	case "linkedServices", "linkedservices":
		return model.NodeConnection
	case "triggers":
		return model.NodeTrigger
	case "integrationRuntimes", "integrationruntimes":
		return model.NodeRuntime
	default:
		return model.NodeKind("resource")
	}
}
