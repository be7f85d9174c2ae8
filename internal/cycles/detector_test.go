package cycles

import (
	"reflect"
	"testing"

	"factorylens/internal/graph"
	"factorylens/internal/model"
)

func pipelineEdge(from, to string) model.Edge {
	return model.NewEdge(model.EdgePipelinePipeline,
		model.NodeID{Kind: model.NodePipeline, Name: from},
		model.NodeID{Kind: model.NodePipeline, Name: to})
}

func activityEdge(pipeline, from, to string) model.Edge {
	e := model.NewEdge(model.EdgeActivityActivity,
		model.NodeID{Kind: model.NodeActivity, Name: model.ActivityKey(pipeline, from)},
		model.NodeID{Kind: model.NodeActivity, Name: model.ActivityKey(pipeline, to)})
	e.Pipeline = pipeline
	return e
}

func pipelineSet(names ...string) map[string]*model.PipelineRecord {
	out := make(map[string]*model.PipelineRecord, len(names))
	for _, n := range names {
		out[n] = &model.PipelineRecord{Name: n}
	}
	return out
}

func TestDetectPipelineCycleSingleRow(t *testing.T) {
	// P1 -> P2 -> P3 -> P1: one cycle, reachable from three entry points,
	// must be reported exactly once.
	g := graph.Build([]model.Edge{
		pipelineEdge("P1", "P2"),
		pipelineEdge("P2", "P3"),
		pipelineEdge("P3", "P1"),
	})
	found := Detect(g, pipelineSet("P1", "P2", "P3"))

	if len(found) != 1 {
		t.Fatalf("cycles = %d, want 1", len(found))
	}
	c := found[0]
	if c.Kind != model.CyclePipeline || c.Severity != "CRITICAL" {
		t.Errorf("kind/severity = %s/%s", c.Kind, c.Severity)
	}
	if c.Length != 3 {
		t.Errorf("Length = %d, want 3", c.Length)
	}
	if want := []string{"P1", "P2", "P3"}; !reflect.DeepEqual(c.CanonicalPath(), want) {
		t.Errorf("CanonicalPath = %v, want %v", c.CanonicalPath(), want)
	}
}

func TestDetectIgnoresUnregisteredMembers(t *testing.T) {
	// Ghost is not a registered pipeline, so the cycle through it is dropped.
	g := graph.Build([]model.Edge{
		pipelineEdge("P1", "Ghost"),
		pipelineEdge("Ghost", "P1"),
	})
	found := Detect(g, pipelineSet("P1"))
	if len(found) != 0 {
		t.Errorf("cycles = %v, want none", found)
	}
}

func TestDetectActivityCyclePerPipeline(t *testing.T) {
	g := graph.Build([]model.Edge{
		activityEdge("P1", "A", "B"),
		activityEdge("P1", "B", "A"),
		// Same activity names in another pipeline, acyclic there.
		activityEdge("P2", "A", "B"),
	})
	found := Detect(g, pipelineSet("P1", "P2"))

	if len(found) != 1 {
		t.Fatalf("cycles = %d, want 1", len(found))
	}
	c := found[0]
	if c.Kind != model.CycleActivity || c.Severity != "HIGH" {
		t.Errorf("kind/severity = %s/%s", c.Kind, c.Severity)
	}
	if want := []string{"P1.A", "P1.B"}; !reflect.DeepEqual(c.CanonicalPath(), want) {
		t.Errorf("CanonicalPath = %v, want %v", c.CanonicalPath(), want)
	}
}

func TestDetectSelfLoop(t *testing.T) {
	g := graph.Build([]model.Edge{pipelineEdge("P1", "P1")})
	found := Detect(g, pipelineSet("P1"))
	if len(found) != 1 {
		t.Fatalf("cycles = %d, want 1", len(found))
	}
	if found[0].Length != 1 {
		t.Errorf("Length = %d, want 1", found[0].Length)
	}
}

func TestDetectAcyclicGraph(t *testing.T) {
	g := graph.Build([]model.Edge{
		pipelineEdge("P1", "P2"),
		pipelineEdge("P1", "P3"),
		pipelineEdge("P2", "P3"),
	})
	found := Detect(g, pipelineSet("P1", "P2", "P3"))
	if len(found) != 0 {
		t.Errorf("cycles = %v, want none", found)
	}
}
