package model

import (
	"reflect"
	"testing"
)

func TestCanonicalPath(t *testing.T) {
	tests := []struct {
		name string
		path []string
		want []string
	}{
		{
			name: "rotates to smallest element",
			path: []string{"C", "A", "B", "C"},
			want: []string{"A", "B", "C"},
		},
		{
			name: "already canonical",
			path: []string{"A", "B", "A"},
			want: []string{"A", "B"},
		},
		{
			name: "same cycle different entry points",
			path: []string{"B", "C", "A", "B"},
			want: []string{"A", "B", "C"},
		},
		{
			name: "single node self loop",
			path: []string{"X", "X"},
			want: []string{"X"},
		},
		{
			name: "empty",
			path: nil,
			want: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Cycle{Path: tt.path}.CanonicalPath()
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("CanonicalPath(%v) = %v, want %v", tt.path, got, tt.want)
			}
		})
	}
}

func TestCanonicalPathEquivalence(t *testing.T) {
	a := Cycle{Path: []string{"P1", "P2", "P3", "P1"}}
	b := Cycle{Path: []string{"P3", "P1", "P2", "P3"}}
	if !reflect.DeepEqual(a.CanonicalPath(), b.CanonicalPath()) {
		t.Errorf("rotations of the same cycle should canonicalize equal: %v vs %v",
			a.CanonicalPath(), b.CanonicalPath())
	}
}

func TestFormatStage(t *testing.T) {
	tests := []struct {
		stage int
		want  string
	}{
		{0, "0"},
		{3, "3"},
		{StageCycle, "CYCLE"},
		{StagePending, ""},
	}
	for _, tt := range tests {
		if got := FormatStage(tt.stage); got != tt.want {
			t.Errorf("FormatStage(%d) = %q, want %q", tt.stage, got, tt.want)
		}
	}
}

func TestActivityDependencyDisplay(t *testing.T) {
	tests := []struct {
		name string
		dep  ActivityDependency
		want string
	}{
		{
			name: "no conditions",
			dep:  ActivityDependency{Activity: "Step1"},
			want: "Step1",
		},
		{
			name: "single condition",
			dep:  ActivityDependency{Activity: "Step1", Conditions: []string{"Succeeded"}},
			want: "Step1(Succeeded)",
		},
		{
			name: "multiple conditions",
			dep:  ActivityDependency{Activity: "Step1", Conditions: []string{"Succeeded", "Skipped"}},
			want: "Step1(Succeeded,Skipped)",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.dep.Display(); got != tt.want {
				t.Errorf("Display() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestNodeIDDistinctAcrossKinds(t *testing.T) {
	pipeline := NodeID{Kind: NodePipeline, Name: "Shared"}
	dataset := NodeID{Kind: NodeDataset, Name: "Shared"}
	if pipeline == dataset {
		t.Error("same name under different kinds must not collide")
	}
	set := map[NodeID]bool{pipeline: true, dataset: true}
	if len(set) != 2 {
		t.Errorf("expected 2 distinct node IDs, got %d", len(set))
	}
}

func TestSortedStrings(t *testing.T) {
	got := SortedStrings(map[string]bool{"b": true, "a": true, "c": true})
	want := []string{"a", "b", "c"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("SortedStrings = %v, want %v", got, want)
	}
}
