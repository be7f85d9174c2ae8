package model

import (
	"fmt"
	"sort"
	"strings"
)

// ResourceKind identifies the type of a factory resource, derived from the
// last dotted segment of the ARM resource type.
type ResourceKind string

const (
	KindPipeline        ResourceKind = "pipeline"
	KindDataFlow        ResourceKind = "dataflow"
	KindDataset         ResourceKind = "dataset"
	KindConnection      ResourceKind = "linkedservice"
	KindTrigger         ResourceKind = "trigger"
	KindRuntime         ResourceKind = "integrationruntime"
	KindCredential      ResourceKind = "credential"
	KindManagedNetwork  ResourceKind = "managedvirtualnetwork"
	KindManagedEndpoint ResourceKind = "managedprivateendpoint"
	KindFactory         ResourceKind = "factory"
	KindUnknown         ResourceKind = "unknown"
)

// Resource is a single entry of the template's resources array.
// Created once during registration, immutable afterward.
type Resource struct {
	Name       string
	Kind       ResourceKind
	RawType    string
	Properties map[string]any
	DependsOn  []string
}

// NodeKind tags graph node identity so that a pipeline named "X" never
// collides with a dataset named "X" or an activity key "X.Y".
type NodeKind string

const (
	NodePipeline   NodeKind = "pipeline"
	NodeActivity   NodeKind = "activity"
	NodeDataFlow   NodeKind = "dataflow"
	NodeDataset    NodeKind = "dataset"
	NodeConnection NodeKind = "linkedservice"
	NodeTrigger    NodeKind = "trigger"
	NodeRuntime    NodeKind = "integrationruntime"
	NodeParameter  NodeKind = "parameter"
	NodeVariable   NodeKind = "variable"
)

// NodeID is the composite graph node identifier.
type NodeID struct {
	Kind NodeKind
	Name string
}

func (n NodeID) String() string {
	return string(n.Kind) + ":" + n.Name
}

// ActivityKey builds the pipeline-qualified key used for activity nodes.
func ActivityKey(pipeline, activity string) string {
	return pipeline + "." + activity
}

// EdgeKind enumerates the dependency categories merged into the graph.
type EdgeKind string

const (
	EdgeStructural         EdgeKind = "structural"
	EdgeTriggerPipeline    EdgeKind = "trigger-pipeline"
	EdgePipelinePipeline   EdgeKind = "pipeline-pipeline"
	EdgePipelineDataFlow   EdgeKind = "pipeline-dataflow"
	EdgeActivityActivity   EdgeKind = "activity-activity"
	EdgeActivityDataset    EdgeKind = "activity-dataset"
	EdgeDataFlowDataset    EdgeKind = "dataflow-dataset"
	EdgeDataFlowConnection EdgeKind = "dataflow-linkedservice"
	EdgeDatasetConnection  EdgeKind = "dataset-linkedservice"
	EdgeConnectionRuntime  EdgeKind = "linkedservice-runtime"
	EdgeReference          EdgeKind = "reference"
)

// Stage sentinels. StageCycle marks activities stuck in an unresolved
// dependency cycle; StagePending marks a stage not yet assigned.
const (
	StageCycle   = -1
	StagePending = -2
)

// FormatStage renders a stage value for output tables.
func FormatStage(stage int) string {
	switch stage {
	case StageCycle:
		return "CYCLE"
	case StagePending:
		return ""
	default:
		return fmt.Sprintf("%d", stage)
	}
}

// Edge is one extracted dependency relationship. For activity-activity
// edges, To is the activity that must complete first. FromStage/ToStage are
// filled in by the stage scheduler.
type Edge struct {
	Kind       EdgeKind
	From       NodeID
	To         NodeID
	Pipeline   string
	Conditions []string
	FromStage  int
	ToStage    int
}

// NewEdge creates an edge with unassigned stages.
func NewEdge(kind EdgeKind, from, to NodeID) Edge {
	return Edge{Kind: kind, From: from, To: to, FromStage: StagePending, ToStage: StagePending}
}

// ActivityDependency is one dependsOn entry of an activity, with its
// completion conditions (Succeeded, Failed, Skipped, Completed).
type ActivityDependency struct {
	Activity   string
	Conditions []string
}

// Display renders the dependency as activity(cond1,cond2).
func (d ActivityDependency) Display() string {
	if len(d.Conditions) == 0 {
		return d.Activity
	}
	return d.Activity + "(" + strings.Join(d.Conditions, ",") + ")"
}

// UserProperty is a name=value pair attached to an activity.
type UserProperty struct {
	Name  string
	Value string
}

// Activity is one record produced by the tree walk, keyed by
// (Pipeline, Name). Only the stage scheduler mutates it after the walk,
// and only the Stage field.
type Activity struct {
	Pipeline string
	Name     string
	Type     string
	Role     string
	Parent   string
	Depth    int
	Sequence int
	Disabled bool

	Timeout       string
	RetryCount    int
	RetryInterval int
	SecureInput   bool
	SecureOutput  bool

	UserProperties []UserProperty
	Runtime        string

	SQL     string
	Tables  []string
	Columns []string

	SourceDataset   string
	SinkDataset     string
	SourceTable     string
	SinkTable       string
	StoredProcedure string
	InvokedPipeline string
	InvokedDataFlow string
	FilePath        string
	References      []string

	DependsOn []ActivityDependency
	Stage     int
}

// Key returns the pipeline-qualified activity key.
func (a *Activity) Key() string {
	return ActivityKey(a.Pipeline, a.Name)
}

// DependsOnDisplay renders all dependencies as a comma-joined display string.
func (a *Activity) DependsOnDisplay() string {
	parts := make([]string, 0, len(a.DependsOn))
	for _, d := range a.DependsOn {
		parts = append(parts, d.Display())
	}
	return strings.Join(parts, ", ")
}

// CycleKind distinguishes pipeline-level from activity-level cycles.
type CycleKind string

const (
	CyclePipeline CycleKind = "Pipeline"
	CycleActivity CycleKind = "Activity"
)

// Cycle is one detected circular dependency, deduplicated by canonical
// rotation of its path.
type Cycle struct {
	Kind           CycleKind
	Path           []string
	Length         int
	Severity       string
	Impact         string
	Recommendation string
}

// CanonicalPath rotates the cycle's node sequence to start at its
// lexicographically smallest element. The path's trailing repeat of the
// first node is ignored for rotation purposes.
func (c Cycle) CanonicalPath() []string {
	nodes := c.Path
	if len(nodes) > 1 && nodes[0] == nodes[len(nodes)-1] {
		nodes = nodes[:len(nodes)-1]
	}
	if len(nodes) == 0 {
		return nil
	}
	minIdx := 0
	for i, n := range nodes {
		if n < nodes[minIdx] {
			minIdx = i
		}
	}
	rotated := make([]string, 0, len(nodes))
	rotated = append(rotated, nodes[minIdx:]...)
	rotated = append(rotated, nodes[:minIdx]...)
	return rotated
}

// ImpactLevel classifies how risky a change to a pipeline is.
type ImpactLevel string

const (
	ImpactCritical ImpactLevel = "CRITICAL"
	ImpactHigh     ImpactLevel = "HIGH"
	ImpactMedium   ImpactLevel = "MEDIUM"
	ImpactLow      ImpactLevel = "LOW"
)

// ImpactRecord is the per-pipeline blast-radius assessment.
type ImpactRecord struct {
	Pipeline    string
	Impact      ImpactLevel
	BlastRadius int
	IsOrphaned  bool

	DirectUpstreamTriggers    []string
	DirectUpstreamPipelines   []string
	DirectDownstreamPipelines []string
	UsedDataFlows             []string
	UsedDatasets              []string

	// Level (1-based) -> sorted node names reached at that level.
	TransitiveUpstream   map[int][]string
	TransitiveDownstream map[int][]string
}

// TransitiveCount sums nodes across all levels of a transitive set.
func TransitiveCount(levels map[int][]string) int {
	n := 0
	for _, names := range levels {
		n += len(names)
	}
	return n
}

// TriggerOrphanCase is the mutually-exclusive trigger orphan classification.
type TriggerOrphanCase string

const (
	TriggerBrokenReference TriggerOrphanCase = "BrokenReference"
	TriggerInactive        TriggerOrphanCase = "Inactive"
	TriggerMisconfigured   TriggerOrphanCase = "Misconfigured"
)

// OrphanRecord is one registered-but-unused resource.
type OrphanRecord struct {
	ResourceName   string
	Kind           ResourceKind
	Reason         string
	Recommendation string
	TriggerCase    TriggerOrphanCase
}

// SortedStrings returns a sorted copy of a string set. Every set rendered
// into an output table goes through this first; deterministic output is a
// contract, not cosmetics.
func SortedStrings(set map[string]bool) []string {
	out := make([]string, 0, len(set))
	for s := range set {
		out = append(out, s)
	}
	sort.Strings(out)
	return out
}
