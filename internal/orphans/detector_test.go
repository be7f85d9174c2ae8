package orphans

import (
	"testing"

	"factorylens/internal/model"
	"factorylens/internal/registry"
)

func fixtureRegistry() *registry.Registry {
	return &registry.Registry{
		Pipelines:   make(map[string]*model.PipelineRecord),
		DataFlows:   make(map[string]*model.DataFlowRecord),
		Datasets:    make(map[string]*model.DatasetRecord),
		Connections: make(map[string]*model.ConnectionRecord),
		Triggers:    make(map[string]*model.TriggerRecord),
		Usage:       registry.NewUsage(),
	}
}

func recordsFor(records []model.OrphanRecord, kind model.ResourceKind) []model.OrphanRecord {
	var out []model.OrphanRecord
	for _, r := range records {
		if r.Kind == kind {
			out = append(out, r)
		}
	}
	return out
}

func TestDetectUnusedResources(t *testing.T) {
	reg := fixtureRegistry()
	reg.Pipelines["Used"] = &model.PipelineRecord{Name: "Used"}
	reg.Pipelines["Unused"] = &model.PipelineRecord{Name: "Unused"}
	reg.Usage.Pipelines["Used"] = true
	reg.Datasets["DS1"] = &model.DatasetRecord{Name: "DS1"}
	reg.Connections["LS1"] = &model.ConnectionRecord{Name: "LS1"}
	reg.DataFlows["DF1"] = &model.DataFlowRecord{Name: "DF1"}

	found := Detect(reg)

	pipelines := recordsFor(found, model.KindPipeline)
	if len(pipelines) != 1 || pipelines[0].ResourceName != "Unused" {
		t.Errorf("orphaned pipelines = %v, want [Unused]", pipelines)
	}
	if n := len(recordsFor(found, model.KindDataset)); n != 1 {
		t.Errorf("orphaned datasets = %d, want 1", n)
	}
	if n := len(recordsFor(found, model.KindConnection)); n != 1 {
		t.Errorf("orphaned linked services = %d, want 1", n)
	}
	if n := len(recordsFor(found, model.KindDataFlow)); n != 1 {
		t.Errorf("orphaned data flows = %d, want 1", n)
	}
}

// Usage marking is non-transitive: a pipeline referenced only by an orphaned
// pipeline still counts as used.
func TestDetectUsageIsNonTransitive(t *testing.T) {
	reg := fixtureRegistry()
	reg.Pipelines["Orphan"] = &model.PipelineRecord{Name: "Orphan"}
	reg.Pipelines["Callee"] = &model.PipelineRecord{Name: "Callee"}
	// Orphan invokes Callee; nothing invokes Orphan.
	reg.Usage.Pipelines["Callee"] = true

	found := Detect(reg)
	pipelines := recordsFor(found, model.KindPipeline)
	if len(pipelines) != 1 || pipelines[0].ResourceName != "Orphan" {
		t.Errorf("orphaned pipelines = %v, want [Orphan]", pipelines)
	}
}

func TestDetectTriggerClassification(t *testing.T) {
	reg := fixtureRegistry()
	reg.Pipelines["P1"] = &model.PipelineRecord{Name: "P1"}
	reg.Triggers["Healthy"] = &model.TriggerRecord{
		Name: "Healthy", State: "Started", Pipelines: []string{"P1"},
	}
	// Broken reference wins over the stopped state.
	reg.Triggers["Broken"] = &model.TriggerRecord{
		Name: "Broken", State: "Stopped", Pipelines: []string{"Missing"},
	}
	reg.Triggers["Paused"] = &model.TriggerRecord{
		Name: "Paused", State: "Stopped", Pipelines: []string{"P1"},
	}
	reg.Triggers["Detached"] = &model.TriggerRecord{
		Name: "Detached", State: "Started",
	}

	found := recordsFor(Detect(reg), model.KindTrigger)

	cases := make(map[string]model.TriggerOrphanCase, len(found))
	for _, r := range found {
		if _, dup := cases[r.ResourceName]; dup {
			t.Errorf("trigger %s reported more than once", r.ResourceName)
		}
		cases[r.ResourceName] = r.TriggerCase
	}

	if _, ok := cases["Healthy"]; ok {
		t.Error("Healthy should not be reported")
	}
	if cases["Broken"] != model.TriggerBrokenReference {
		t.Errorf("Broken case = %s, want %s", cases["Broken"], model.TriggerBrokenReference)
	}
	if cases["Paused"] != model.TriggerInactive {
		t.Errorf("Paused case = %s, want %s", cases["Paused"], model.TriggerInactive)
	}
	if cases["Detached"] != model.TriggerMisconfigured {
		t.Errorf("Detached case = %s, want %s", cases["Detached"], model.TriggerMisconfigured)
	}
}

func TestDetectSortsByName(t *testing.T) {
	reg := fixtureRegistry()
	reg.Pipelines["Zeta"] = &model.PipelineRecord{Name: "Zeta"}
	reg.Pipelines["Alpha"] = &model.PipelineRecord{Name: "Alpha"}

	found := recordsFor(Detect(reg), model.KindPipeline)
	if len(found) != 2 || found[0].ResourceName != "Alpha" || found[1].ResourceName != "Zeta" {
		t.Errorf("order = %v, want [Alpha Zeta]", found)
	}
}
