package tables

import (
	"sort"
	"strconv"
	"strings"

	"factorylens/internal/impact"
	"factorylens/internal/logging"
	"factorylens/internal/model"
	"factorylens/internal/registry"
	"factorylens/internal/usage"
)

// Input carries everything the table builders render. All slices arrive
// pre-sorted from the analysis stages; builders only join and format.
type Input struct {
	Registry   *registry.Registry
	Activities []*model.Activity
	Edges      []model.Edge
	Cycles     []model.Cycle
	Impacts    []model.ImpactRecord
	Orphans    []model.OrphanRecord
	Usage      *usage.Result
	Errors     []logging.Entry

	RunID       string
	SourceFile  string
	GeneratedAt string
}

// Build produces the full fixed table set in its canonical order. Every
// table is present even when empty.
func Build(in *Input) []*Table {
	return []*Table{
		buildPipelines(in),
		buildPipelineAnalysis(in),
		buildActivities(in),
		buildActivityCount(in),
		buildActivityExecutionOrder(in),
		buildDataFlows(in),
		buildDataFlowLineage(in),
		buildDatasets(in),
		buildLinkedServices(in),
		buildTriggers(in),
		buildTriggerDetails(in),
		buildIntegrationRuntimes(in),
		buildGlobalParameters(in),
		buildGlobalParameterUsage(in),
		buildDataLineage(in),
		buildImpactAnalysis(in),
		buildCircularDependencies(in),
		buildOrphans(in, "OrphanedPipelines", model.KindPipeline),
		buildOrphans(in, "OrphanedDataFlows", model.KindDataFlow),
		buildOrphans(in, "OrphanedDatasets", model.KindDataset),
		buildOrphans(in, "OrphanedLinkedServices", model.KindConnection),
		buildOrphanedTriggers(in),
		buildPipelineUsage(in),
		buildDatasetUsage(in),
		buildLinkedServiceUsage(in),
		buildErrors(in),
	}
}

func joinList(items []string) string {
	return strings.Join(items, ", ")
}

func yesNo(b bool) string {
	if b {
		return "Yes"
	}
	return "No"
}

func buildPipelines(in *Input) *Table {
	t := &Table{
		Name:    "Pipelines",
		Columns: []string{"Pipeline", "Folder", "Description", "Concurrency", "ActivityCount", "Parameters", "Variables", "Annotations"},
	}
	for _, name := range sortedKeys(in.Registry.Pipelines) {
		p := in.Registry.Pipelines[name]
		concurrency := ""
		if p.Concurrency > 0 {
			concurrency = strconv.Itoa(p.Concurrency)
		}
		t.AddRow(p.Name, p.Folder, p.Description, concurrency,
			strconv.Itoa(p.ActivityCount), joinList(p.Parameters),
			joinList(p.Variables), joinList(p.Annotations))
	}
	return t
}

func buildPipelineAnalysis(in *Input) *Table {
	t := &Table{
		Name: "PipelineAnalysis",
		Columns: []string{"Pipeline", "ActivityCount", "MaxStage", "Triggers",
			"InvokedPipelines", "UsedDataFlows", "UsedDatasets", "IsOrphaned"},
	}
	maxStage := make(map[string]int)
	hasCycle := make(map[string]bool)
	for _, act := range in.Activities {
		if act.Stage == model.StageCycle {
			hasCycle[act.Pipeline] = true
			continue
		}
		if act.Stage > maxStage[act.Pipeline] {
			maxStage[act.Pipeline] = act.Stage
		}
	}
	impactByPipeline := make(map[string]model.ImpactRecord, len(in.Impacts))
	for _, rec := range in.Impacts {
		impactByPipeline[rec.Pipeline] = rec
	}
	for _, name := range sortedKeys(in.Registry.Pipelines) {
		rec := impactByPipeline[name]
		stage := strconv.Itoa(maxStage[name])
		if hasCycle[name] {
			stage = model.FormatStage(model.StageCycle)
		}
		t.AddRow(name, strconv.Itoa(in.Registry.Pipelines[name].ActivityCount), stage,
			joinList(rec.DirectUpstreamTriggers), joinList(rec.DirectDownstreamPipelines),
			joinList(rec.UsedDataFlows), joinList(rec.UsedDatasets), yesNo(rec.IsOrphaned))
	}
	return t
}

func buildActivities(in *Input) *Table {
	t := &Table{
		Name: "Activities",
		Columns: []string{"Pipeline", "Activity", "Type", "Role", "Parent", "Depth",
			"Sequence", "Stage", "Disabled", "DependsOn", "Runtime", "Timeout",
			"RetryCount", "SourceDataset", "SinkDataset", "SourceTable", "SinkTable",
			"StoredProcedure", "InvokedPipeline", "InvokedDataFlow", "FilePath",
			"SQL", "Tables", "Columns", "References", "UserProperties"},
	}
	for _, act := range in.Activities {
		props := make([]string, 0, len(act.UserProperties))
		for _, p := range act.UserProperties {
			props = append(props, p.Name+"="+p.Value)
		}
		t.AddRow(act.Pipeline, act.Name, act.Type, act.Role, act.Parent,
			strconv.Itoa(act.Depth), strconv.Itoa(act.Sequence),
			model.FormatStage(act.Stage), yesNo(act.Disabled),
			act.DependsOnDisplay(), act.Runtime, act.Timeout,
			strconv.Itoa(act.RetryCount), act.SourceDataset, act.SinkDataset,
			act.SourceTable, act.SinkTable, act.StoredProcedure,
			act.InvokedPipeline, act.InvokedDataFlow, act.FilePath,
			act.SQL, joinList(act.Tables), joinList(act.Columns),
			joinList(act.References), joinList(props))
	}
	return t
}

func buildActivityCount(in *Input) *Table {
	t := &Table{
		Name:    "ActivityCount",
		Columns: []string{"Pipeline", "ActivityType", "Count"},
	}
	counts := make(map[string]map[string]int)
	for _, act := range in.Activities {
		if counts[act.Pipeline] == nil {
			counts[act.Pipeline] = make(map[string]int)
		}
		counts[act.Pipeline][act.Type]++
	}
	for _, pipeline := range sortedKeys(counts) {
		for _, typ := range sortedKeys(counts[pipeline]) {
			t.AddRow(pipeline, typ, strconv.Itoa(counts[pipeline][typ]))
		}
	}
	return t
}

func buildActivityExecutionOrder(in *Input) *Table {
	t := &Table{
		Name:    "ActivityExecutionOrder",
		Columns: []string{"Pipeline", "Stage", "Sequence", "Activity", "Type", "Parent", "DependsOn"},
	}
	ordered := make([]*model.Activity, len(in.Activities))
	copy(ordered, in.Activities)
	sort.SliceStable(ordered, func(i, j int) bool {
		a, b := ordered[i], ordered[j]
		if a.Pipeline != b.Pipeline {
			return a.Pipeline < b.Pipeline
		}
		// CYCLE rows sort after every numbered stage.
		as, bs := a.Stage, b.Stage
		if as == model.StageCycle {
			as = int(^uint(0) >> 1)
		}
		if bs == model.StageCycle {
			bs = int(^uint(0) >> 1)
		}
		if as != bs {
			return as < bs
		}
		return a.Sequence < b.Sequence
	})
	for _, act := range ordered {
		t.AddRow(act.Pipeline, model.FormatStage(act.Stage), strconv.Itoa(act.Sequence),
			act.Name, act.Type, act.Parent, act.DependsOnDisplay())
	}
	return t
}

func buildDataFlows(in *Input) *Table {
	t := &Table{
		Name:    "DataFlows",
		Columns: []string{"DataFlow", "Type", "Folder", "Sources", "Sinks", "Transformations", "ScriptTables"},
	}
	for _, name := range sortedKeys(in.Registry.DataFlows) {
		df := in.Registry.DataFlows[name]
		t.AddRow(df.Name, df.Type, df.Folder,
			joinList(endpointNames(df.Sources)), joinList(endpointNames(df.Sinks)),
			joinList(df.Transformations), joinList(df.ScriptTables))
	}
	return t
}

func endpointNames(eps []model.DataFlowEndpoint) []string {
	out := make([]string, 0, len(eps))
	for _, ep := range eps {
		out = append(out, ep.Name)
	}
	return out
}

func buildDataFlowLineage(in *Input) *Table {
	t := &Table{
		Name: "DataFlowLineage",
		Columns: []string{"DataFlow", "Direction", "Endpoint", "Dataset", "LinkedService"},
	}
	for _, name := range sortedKeys(in.Registry.DataFlows) {
		df := in.Registry.DataFlows[name]
		for _, ep := range df.Sources {
			t.AddRow(df.Name, "Source", ep.Name, ep.Dataset, ep.Connection)
		}
		for _, ep := range df.Sinks {
			t.AddRow(df.Name, "Sink", ep.Name, ep.Dataset, ep.Connection)
		}
	}
	return t
}

func buildDatasets(in *Input) *Table {
	t := &Table{
		Name: "Datasets",
		Columns: []string{"Dataset", "Type", "LinkedService", "Schema", "Table",
			"FilePath", "Format", "Folder", "Parameters"},
	}
	for _, name := range sortedKeys(in.Registry.Datasets) {
		ds := in.Registry.Datasets[name]
		t.AddRow(ds.Name, ds.Type, ds.Connection, ds.Schema, ds.Table,
			ds.FilePath, ds.Format, ds.Folder, joinList(ds.Parameters))
	}
	return t
}

func buildLinkedServices(in *Input) *Table {
	t := &Table{
		Name: "LinkedServices",
		Columns: []string{"LinkedService", "Type", "Runtime", "Endpoint",
			"Database", "AuthType", "Credential", "Description"},
	}
	for _, name := range sortedKeys(in.Registry.Connections) {
		c := in.Registry.Connections[name]
		t.AddRow(c.Name, c.Type, c.Runtime, c.Endpoint, c.Database,
			c.AuthType, c.Credential, c.Description)
	}
	return t
}

func buildTriggers(in *Input) *Table {
	t := &Table{
		Name:    "Triggers",
		Columns: []string{"Trigger", "Type", "State", "PipelineCount", "Pipelines"},
	}
	for _, name := range sortedKeys(in.Registry.Triggers) {
		tr := in.Registry.Triggers[name]
		t.AddRow(tr.Name, tr.Type, tr.State,
			strconv.Itoa(len(tr.Pipelines)), joinList(tr.Pipelines))
	}
	return t
}

func buildTriggerDetails(in *Input) *Table {
	t := &Table{
		Name: "TriggerDetails",
		Columns: []string{"Trigger", "Type", "State", "Frequency", "Interval",
			"StartTime", "EndTime", "Detail"},
	}
	for _, name := range sortedKeys(in.Registry.Triggers) {
		tr := in.Registry.Triggers[name]
		interval := ""
		if tr.Interval > 0 {
			interval = strconv.Itoa(tr.Interval)
		}
		t.AddRow(tr.Name, tr.Type, tr.State, tr.Frequency, interval,
			tr.StartTime, tr.EndTime, tr.Detail)
	}
	return t
}

func buildIntegrationRuntimes(in *Input) *Table {
	t := &Table{
		Name:    "IntegrationRuntimes",
		Columns: []string{"Runtime", "Type", "Location", "NodeSize", "NodeCount", "Description"},
	}
	for _, name := range sortedKeys(in.Registry.Runtimes) {
		rt := in.Registry.Runtimes[name]
		nodes := ""
		if rt.NodeCount > 0 {
			nodes = strconv.Itoa(rt.NodeCount)
		}
		t.AddRow(rt.Name, rt.Type, rt.Location, rt.NodeSize, nodes, rt.Description)
	}
	return t
}

func buildGlobalParameters(in *Input) *Table {
	t := &Table{
		Name:    "GlobalParameters",
		Columns: []string{"Parameter", "Type", "Value"},
	}
	for _, gp := range in.Registry.GlobalParameters {
		t.AddRow(gp.Name, gp.Type, gp.Value)
	}
	return t
}

// buildGlobalParameterUsage cross-references global parameters against the
// activity reference scan.
func buildGlobalParameterUsage(in *Input) *Table {
	t := &Table{
		Name:    "GlobalParameterUsage",
		Columns: []string{"Parameter", "UsedBy", "UsageCount"},
	}
	usedBy := make(map[string]map[string]bool)
	for _, act := range in.Activities {
		for _, ref := range act.References {
			name, ok := strings.CutPrefix(ref, "globalParameter:")
			if !ok {
				continue
			}
			if usedBy[name] == nil {
				usedBy[name] = make(map[string]bool)
			}
			usedBy[name][act.Key()] = true
		}
	}
	for _, gp := range in.Registry.GlobalParameters {
		users := model.SortedStrings(usedBy[gp.Name])
		t.AddRow(gp.Name, joinList(users), strconv.Itoa(len(users)))
	}
	return t
}

// buildDataLineage lists source-to-sink movement per data-moving activity.
func buildDataLineage(in *Input) *Table {
	t := &Table{
		Name: "DataLineage",
		Columns: []string{"Pipeline", "Activity", "Type", "SourceDataset",
			"SourceTable", "SinkDataset", "SinkTable", "FilePath"},
	}
	for _, act := range in.Activities {
		if act.SourceDataset == "" && act.SinkDataset == "" {
			continue
		}
		t.AddRow(act.Pipeline, act.Name, act.Type, act.SourceDataset,
			act.SourceTable, act.SinkDataset, act.SinkTable, act.FilePath)
	}
	return t
}

func buildImpactAnalysis(in *Input) *Table {
	t := &Table{
		Name: "ImpactAnalysis",
		Columns: []string{"Pipeline", "Impact", "BlastRadius", "IsOrphaned",
			"UpstreamTriggers", "UpstreamPipelines", "DownstreamPipelines",
			"UsedDataFlows", "UsedDatasets", "TransitiveUpstream", "TransitiveDownstream"},
	}
	for _, rec := range in.Impacts {
		t.AddRow(rec.Pipeline, string(rec.Impact), strconv.Itoa(rec.BlastRadius),
			yesNo(rec.IsOrphaned),
			joinList(rec.DirectUpstreamTriggers), joinList(rec.DirectUpstreamPipelines),
			joinList(rec.DirectDownstreamPipelines),
			joinList(rec.UsedDataFlows), joinList(rec.UsedDatasets),
			impact.FormatTransitive(rec.TransitiveUpstream),
			impact.FormatTransitive(rec.TransitiveDownstream))
	}
	return t
}

func buildCircularDependencies(in *Input) *Table {
	t := &Table{
		Name:    "CircularDependencies",
		Columns: []string{"Kind", "Path", "Length", "Severity", "Impact", "Recommendation"},
	}
	for _, c := range in.Cycles {
		t.AddRow(string(c.Kind), strings.Join(c.Path, " → "),
			strconv.Itoa(c.Length), c.Severity, c.Impact, c.Recommendation)
	}
	return t
}

func buildOrphans(in *Input, name string, kind model.ResourceKind) *Table {
	t := &Table{
		Name:    name,
		Columns: []string{"Resource", "Reason", "Recommendation"},
	}
	for _, o := range in.Orphans {
		if o.Kind != kind {
			continue
		}
		t.AddRow(o.ResourceName, o.Reason, o.Recommendation)
	}
	return t
}

func buildOrphanedTriggers(in *Input) *Table {
	t := &Table{
		Name:    "OrphanedTriggers",
		Columns: []string{"Trigger", "Case", "Reason", "Recommendation"},
	}
	for _, o := range in.Orphans {
		if o.Kind != model.KindTrigger {
			continue
		}
		t.AddRow(o.ResourceName, string(o.TriggerCase), o.Reason, o.Recommendation)
	}
	return t
}

func buildPipelineUsage(in *Input) *Table {
	t := &Table{
		Name: "PipelineUsage",
		Columns: []string{"Pipeline", "TriggerCount", "StartedTriggers",
			"InvocationCount", "Used"},
	}
	for _, u := range in.Usage.Pipelines {
		t.AddRow(u.Pipeline, strconv.Itoa(u.TriggerCount),
			strconv.Itoa(u.StartedTriggers), strconv.Itoa(u.InvocationCount),
			yesNo(u.Used))
	}
	return t
}

func buildDatasetUsage(in *Input) *Table {
	t := &Table{
		Name:    "DatasetUsage",
		Columns: []string{"Dataset", "ActivityCount", "DataFlowCount", "LinkedService", "Used"},
	}
	for _, u := range in.Usage.Datasets {
		t.AddRow(u.Dataset, strconv.Itoa(u.ActivityCount),
			strconv.Itoa(u.DataFlowCount), u.Connection, yesNo(u.Used))
	}
	return t
}

func buildLinkedServiceUsage(in *Input) *Table {
	t := &Table{
		Name:    "LinkedServiceUsage",
		Columns: []string{"LinkedService", "DatasetCount", "DataFlowCount", "Runtime", "Used"},
	}
	for _, u := range in.Usage.Connections {
		t.AddRow(u.Connection, strconv.Itoa(u.DatasetCount),
			strconv.Itoa(u.DataFlowCount), u.Runtime, yesNo(u.Used))
	}
	return t
}

func buildErrors(in *Input) *Table {
	t := &Table{
		Name:    "Errors",
		Columns: []string{"RunID", "Level", "Message", "Context", "Timestamp"},
	}
	for _, e := range in.Errors {
		t.AddRow(in.RunID, string(e.Level), e.Message, e.Context, e.Timestamp)
	}
	return t
}
