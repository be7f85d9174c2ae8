package graph

import (
	"reflect"
	"testing"

	"factorylens/internal/model"
)

func pid(name string) model.NodeID  { return model.NodeID{Kind: model.NodePipeline, Name: name} }
func aid(name string) model.NodeID  { return model.NodeID{Kind: model.NodeActivity, Name: name} }
func dsid(name string) model.NodeID { return model.NodeID{Kind: model.NodeDataset, Name: name} }

func TestBuildOrientation(t *testing.T) {
	// P1.B dependsOn P1.A: A must complete first.
	edge := model.NewEdge(model.EdgeActivityActivity, aid("P1.B"), aid("P1.A"))
	g := Build([]model.Edge{edge})

	if !g.Nodes[aid("P1.B")].DependsOn[aid("P1.A")] {
		t.Error("B should depend on A")
	}
	if !g.Nodes[aid("P1.A")].UsedBy[aid("P1.B")] {
		t.Error("A should be used by B")
	}
	if g.Nodes[aid("P1.A")].DependsOn[aid("P1.B")] {
		t.Error("orientation inverted: A must not depend on B")
	}
}

func TestBuildMergesEdgeLists(t *testing.T) {
	listA := []model.Edge{model.NewEdge(model.EdgePipelinePipeline, pid("P1"), pid("P2"))}
	listB := []model.Edge{
		model.NewEdge(model.EdgeActivityDataset, aid("P1.Copy1"), dsid("DS1")),
		model.NewEdge(model.EdgeActivityDataset, aid("P2.Copy2"), dsid("DS1")),
	}
	g := Build(listA, listB)

	stats := g.Stats()
	if stats.TotalEdges != 3 {
		t.Errorf("TotalEdges = %d, want 3", stats.TotalEdges)
	}
	if stats.TotalNodes != 5 {
		t.Errorf("TotalNodes = %d, want 5", stats.TotalNodes)
	}
	if stats.ByKind[model.EdgeActivityDataset] != 2 {
		t.Errorf("activity-dataset edges = %d, want 2", stats.ByKind[model.EdgeActivityDataset])
	}

	users := g.UsedBySorted(dsid("DS1"))
	want := []model.NodeID{aid("P1.Copy1"), aid("P2.Copy2")}
	if !reflect.DeepEqual(users, want) {
		t.Errorf("UsedBySorted = %v, want %v", users, want)
	}
}

func TestSameNameDifferentKindsStayDistinct(t *testing.T) {
	g := Build([]model.Edge{
		model.NewEdge(model.EdgePipelinePipeline, pid("Shared"), pid("Other")),
		model.NewEdge(model.EdgeActivityDataset, aid("P.A"), dsid("Shared")),
	})
	if g.Nodes[pid("Shared")] == g.Nodes[dsid("Shared")] {
		t.Error("pipeline Shared and dataset Shared must be distinct nodes")
	}
	if len(g.Nodes) != 4 {
		t.Errorf("nodes = %d, want 4", len(g.Nodes))
	}
}

func TestUnknownNodeLookups(t *testing.T) {
	g := NewGraph()
	if got := g.DependsOnSorted(pid("missing")); got != nil {
		t.Errorf("DependsOnSorted = %v, want nil", got)
	}
	if got := g.UsedBySorted(pid("missing")); got != nil {
		t.Errorf("UsedBySorted = %v, want nil", got)
	}
}
