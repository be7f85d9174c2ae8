package usage

import (
	"sort"

	"factorylens/internal/graph"
	"factorylens/internal/model"
	"factorylens/internal/registry"
)

// PipelineUsage counts the active consumers of one pipeline.
type PipelineUsage struct {
	Pipeline       string
	TriggerCount   int
	StartedTriggers int
	InvocationCount int
	Used           bool
}

// DatasetUsage counts the consumers of one dataset.
type DatasetUsage struct {
	Dataset       string
	ActivityCount int
	DataFlowCount int
	Connection    string
	Used          bool
}

// ConnectionUsage counts the consumers of one linked service.
type ConnectionUsage struct {
	Connection    string
	DatasetCount  int
	DataFlowCount int
	Runtime       string
	Used          bool
}

// Result bundles the three usage tables.
type Result struct {
	Pipelines   []PipelineUsage
	Datasets    []DatasetUsage
	Connections []ConnectionUsage
}

// Aggregate computes reference counts per pipeline, dataset and linked
// service from the built graph. Rows are sorted by resource name.
func Aggregate(g *graph.Graph, reg *registry.Registry) *Result {
	res := &Result{}

	triggerTotal := make(map[string]int)
	triggerStarted := make(map[string]int)
	for _, e := range g.Edges[model.EdgeTriggerPipeline] {
		triggerTotal[e.To.Name]++
		if t, ok := reg.Triggers[e.From.Name]; ok && t.State == "Started" {
			triggerStarted[e.To.Name]++
		}
	}
	invocations := make(map[string]int)
	for _, e := range g.Edges[model.EdgePipelinePipeline] {
		invocations[e.To.Name]++
	}
	for _, name := range sortedKeys(reg.Pipelines) {
		res.Pipelines = append(res.Pipelines, PipelineUsage{
			Pipeline:        name,
			TriggerCount:    triggerTotal[name],
			StartedTriggers: triggerStarted[name],
			InvocationCount: invocations[name],
			Used:            reg.Usage.Pipelines[name],
		})
	}

	datasetActivities := make(map[string]int)
	for _, e := range g.Edges[model.EdgeActivityDataset] {
		datasetActivities[e.To.Name]++
	}
	datasetFlows := make(map[string]int)
	for _, e := range g.Edges[model.EdgeDataFlowDataset] {
		datasetFlows[e.To.Name]++
	}
	for _, name := range sortedKeys(reg.Datasets) {
		res.Datasets = append(res.Datasets, DatasetUsage{
			Dataset:       name,
			ActivityCount: datasetActivities[name],
			DataFlowCount: datasetFlows[name],
			Connection:    reg.Datasets[name].Connection,
			Used:          reg.Usage.Datasets[name],
		})
	}

	connDatasets := make(map[string]int)
	for _, e := range g.Edges[model.EdgeDatasetConnection] {
		connDatasets[e.To.Name]++
	}
	connFlows := make(map[string]int)
	for _, e := range g.Edges[model.EdgeDataFlowConnection] {
		connFlows[e.To.Name]++
	}
	for _, name := range sortedKeys(reg.Connections) {
		res.Connections = append(res.Connections, ConnectionUsage{
			Connection:    name,
			DatasetCount:  connDatasets[name],
			DataFlowCount: connFlows[name],
			Runtime:       reg.Connections[name].Runtime,
			Used:          reg.Usage.Connections[name],
		})
	}

	return res
}

func sortedKeys[T any](m map[string]T) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
