package impact

import (
	"reflect"
	"testing"

	"factorylens/internal/graph"
	"factorylens/internal/model"
	"factorylens/internal/registry"
)

func pipelineEdge(from, to string) model.Edge {
	return model.NewEdge(model.EdgePipelinePipeline,
		model.NodeID{Kind: model.NodePipeline, Name: from},
		model.NodeID{Kind: model.NodePipeline, Name: to})
}

func triggerEdge(trigger, pipeline string) model.Edge {
	return model.NewEdge(model.EdgeTriggerPipeline,
		model.NodeID{Kind: model.NodeTrigger, Name: trigger},
		model.NodeID{Kind: model.NodePipeline, Name: pipeline})
}

func fixtureRegistry(pipelines []string, triggers map[string]string) *registry.Registry {
	reg := &registry.Registry{
		Pipelines: make(map[string]*model.PipelineRecord),
		Triggers:  make(map[string]*model.TriggerRecord),
		Usage:     registry.NewUsage(),
	}
	for _, name := range pipelines {
		reg.Pipelines[name] = &model.PipelineRecord{Name: name}
	}
	for name, state := range triggers {
		reg.Triggers[name] = &model.TriggerRecord{Name: name, State: state}
	}
	return reg
}

func recordFor(records []model.ImpactRecord, pipeline string) *model.ImpactRecord {
	for i := range records {
		if records[i].Pipeline == pipeline {
			return &records[i]
		}
	}
	return nil
}

func TestClassification(t *testing.T) {
	// T1 (Started) -> P1 -> P2; P3 stands alone.
	reg := fixtureRegistry([]string{"P1", "P2", "P3"}, map[string]string{"T1": "Started"})
	reg.Usage.Pipelines["P1"] = true
	reg.Usage.Pipelines["P2"] = true
	g := graph.Build([]model.Edge{
		triggerEdge("T1", "P1"),
		pipelineEdge("P1", "P2"),
	})

	records := NewAnalyzer(g, reg, 0).Analyze()

	p1 := recordFor(records, "P1")
	if p1.Impact != model.ImpactCritical {
		t.Errorf("P1 impact = %s, want CRITICAL", p1.Impact)
	}
	if want := []string{"T1"}; !reflect.DeepEqual(p1.DirectUpstreamTriggers, want) {
		t.Errorf("P1 triggers = %v, want %v", p1.DirectUpstreamTriggers, want)
	}
	if want := []string{"P2"}; !reflect.DeepEqual(p1.DirectDownstreamPipelines, want) {
		t.Errorf("P1 downstream = %v, want %v", p1.DirectDownstreamPipelines, want)
	}
	// 1 trigger + 1 downstream pipeline.
	if p1.BlastRadius != 2 {
		t.Errorf("P1 blast radius = %d, want 2", p1.BlastRadius)
	}

	p2 := recordFor(records, "P2")
	if p2.Impact != model.ImpactHigh {
		t.Errorf("P2 impact = %s, want HIGH", p2.Impact)
	}
	if want := []string{"P1"}; !reflect.DeepEqual(p2.DirectUpstreamPipelines, want) {
		t.Errorf("P2 upstream = %v, want %v", p2.DirectUpstreamPipelines, want)
	}

	p3 := recordFor(records, "P3")
	if p3.Impact != model.ImpactLow {
		t.Errorf("P3 impact = %s, want LOW", p3.Impact)
	}
	if !p3.IsOrphaned {
		t.Error("P3 should be orphaned")
	}
}

func TestStoppedTriggerNotFunctional(t *testing.T) {
	reg := fixtureRegistry([]string{"P1"}, map[string]string{"T1": "Stopped"})
	g := graph.Build([]model.Edge{triggerEdge("T1", "P1")})

	records := NewAnalyzer(g, reg, 0).Analyze()
	p1 := recordFor(records, "P1")
	if len(p1.DirectUpstreamTriggers) != 0 {
		t.Errorf("triggers = %v, want none for a stopped trigger", p1.DirectUpstreamTriggers)
	}
	if p1.Impact != model.ImpactLow {
		t.Errorf("impact = %s, want LOW", p1.Impact)
	}
}

func TestTransitiveLevels(t *testing.T) {
	// Chain P1 -> P2 -> P3 -> P4.
	reg := fixtureRegistry([]string{"P1", "P2", "P3", "P4"}, nil)
	g := graph.Build([]model.Edge{
		pipelineEdge("P1", "P2"),
		pipelineEdge("P2", "P3"),
		pipelineEdge("P3", "P4"),
	})

	records := NewAnalyzer(g, reg, 0).Analyze()

	p1 := recordFor(records, "P1")
	// Level 1 duplicates the direct set and is dropped.
	want := map[int][]string{2: {"P3"}, 3: {"P4"}}
	if !reflect.DeepEqual(p1.TransitiveDownstream, want) {
		t.Errorf("P1 transitive downstream = %v, want %v", p1.TransitiveDownstream, want)
	}
	// 1 direct + 2 transitive.
	if p1.BlastRadius != 3 {
		t.Errorf("P1 blast radius = %d, want 3", p1.BlastRadius)
	}
	if p1.Impact != model.ImpactMedium {
		t.Errorf("P1 impact = %s, want MEDIUM", p1.Impact)
	}

	p4 := recordFor(records, "P4")
	wantUp := map[int][]string{2: {"P2"}, 3: {"P1"}}
	if !reflect.DeepEqual(p4.TransitiveUpstream, wantUp) {
		t.Errorf("P4 transitive upstream = %v, want %v", p4.TransitiveUpstream, wantUp)
	}
	if p4.Impact != model.ImpactHigh {
		t.Errorf("P4 impact = %s, want HIGH", p4.Impact)
	}
}

func TestTraversalDepthBound(t *testing.T) {
	reg := fixtureRegistry([]string{"P1", "P2", "P3", "P4", "P5"}, nil)
	g := graph.Build([]model.Edge{
		pipelineEdge("P1", "P2"),
		pipelineEdge("P2", "P3"),
		pipelineEdge("P3", "P4"),
		pipelineEdge("P4", "P5"),
	})

	records := NewAnalyzer(g, reg, 2).Analyze()
	p1 := recordFor(records, "P1")
	// Depth 2 reaches P3; P3 is recorded but never expanded.
	want := map[int][]string{2: {"P3"}}
	if !reflect.DeepEqual(p1.TransitiveDownstream, want) {
		t.Errorf("transitive downstream = %v, want %v", p1.TransitiveDownstream, want)
	}
}

func TestCycleDoesNotLoopForever(t *testing.T) {
	reg := fixtureRegistry([]string{"P1", "P2"}, nil)
	g := graph.Build([]model.Edge{
		pipelineEdge("P1", "P2"),
		pipelineEdge("P2", "P1"),
	})

	records := NewAnalyzer(g, reg, 0).Analyze()
	p1 := recordFor(records, "P1")
	// Both directions terminate; the self node is never revisited.
	if p1.Impact != model.ImpactCritical {
		t.Errorf("impact = %s, want CRITICAL", p1.Impact)
	}
	if p1.BlastRadius != 2 {
		t.Errorf("blast radius = %d, want 2", p1.BlastRadius)
	}
}

func TestFormatTransitive(t *testing.T) {
	levels := map[int][]string{
		2: {"A", "B", "C", "D"},
		3: {"E"},
		4: {"F"},
		5: {"G"},
	}
	got := FormatTransitive(levels)
	want := "L2: A, B, C, …; L3: E; L4: F"
	if got != want {
		t.Errorf("FormatTransitive = %q, want %q", got, want)
	}
	if FormatTransitive(nil) != "" {
		t.Error("empty levels should render empty")
	}
}
