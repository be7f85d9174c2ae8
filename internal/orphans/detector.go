package orphans

import (
	"sort"

	"factorylens/internal/model"
	"factorylens/internal/registry"
)

// Detect reports every registered resource with no direct reference. Usage
// marking is non-transitive by design: a reference from a resource that is
// itself orphaned still counts as use.
func Detect(reg *registry.Registry) []model.OrphanRecord {
	var out []model.OrphanRecord
	out = append(out, orphanedPipelines(reg)...)
	out = append(out, orphanedDataFlows(reg)...)
	out = append(out, orphanedDatasets(reg)...)
	out = append(out, orphanedConnections(reg)...)
	out = append(out, orphanedTriggers(reg)...)
	return out
}

func sortedKeys[T any](m map[string]T) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func orphanedPipelines(reg *registry.Registry) []model.OrphanRecord {
	var out []model.OrphanRecord
	for _, name := range sortedKeys(reg.Pipelines) {
		if reg.Usage.Pipelines[name] {
			continue
		}
		out = append(out, model.OrphanRecord{
			ResourceName:   name,
			Kind:           model.KindPipeline,
			Reason:         "Not invoked by any started trigger or Execute Pipeline activity",
			Recommendation: "Attach a trigger, invoke it from another pipeline, or remove it",
		})
	}
	return out
}

func orphanedDataFlows(reg *registry.Registry) []model.OrphanRecord {
	var out []model.OrphanRecord
	for _, name := range sortedKeys(reg.DataFlows) {
		if reg.Usage.DataFlows[name] {
			continue
		}
		out = append(out, model.OrphanRecord{
			ResourceName:   name,
			Kind:           model.KindDataFlow,
			Reason:         "Not executed by any Data Flow activity",
			Recommendation: "Wire it into a pipeline or remove it",
		})
	}
	return out
}

func orphanedDatasets(reg *registry.Registry) []model.OrphanRecord {
	var out []model.OrphanRecord
	for _, name := range sortedKeys(reg.Datasets) {
		if reg.Usage.Datasets[name] {
			continue
		}
		out = append(out, model.OrphanRecord{
			ResourceName:   name,
			Kind:           model.KindDataset,
			Reason:         "Not used as activity input/output or data flow source/sink",
			Recommendation: "Reference it from an activity or data flow, or remove it",
		})
	}
	return out
}

func orphanedConnections(reg *registry.Registry) []model.OrphanRecord {
	var out []model.OrphanRecord
	for _, name := range sortedKeys(reg.Connections) {
		if reg.Usage.Connections[name] {
			continue
		}
		out = append(out, model.OrphanRecord{
			ResourceName:   name,
			Kind:           model.KindConnection,
			Reason:         "Not referenced by any dataset or data flow",
			Recommendation: "Point a dataset at it or remove it",
		})
	}
	return out
}

// orphanedTriggers applies the mutually-exclusive 3-case classification in
// order; the first matching case wins and each trigger is reported at most
// once.
func orphanedTriggers(reg *registry.Registry) []model.OrphanRecord {
	var out []model.OrphanRecord
	for _, name := range sortedKeys(reg.Triggers) {
		trigger := reg.Triggers[name]

		broken := false
		for _, pipeline := range trigger.Pipelines {
			if _, ok := reg.Pipelines[pipeline]; !ok {
				broken = true
				break
			}
		}

		switch {
		case broken:
			out = append(out, model.OrphanRecord{
				ResourceName:   name,
				Kind:           model.KindTrigger,
				TriggerCase:    model.TriggerBrokenReference,
				Reason:         "References a pipeline that is not registered",
				Recommendation: "Fix or remove the broken pipeline reference",
			})
		case trigger.State == "Stopped":
			out = append(out, model.OrphanRecord{
				ResourceName:   name,
				Kind:           model.KindTrigger,
				TriggerCase:    model.TriggerInactive,
				Reason:         "Trigger is stopped",
				Recommendation: "Start the trigger or remove it",
			})
		case len(trigger.Pipelines) == 0:
			out = append(out, model.OrphanRecord{
				ResourceName:   name,
				Kind:           model.KindTrigger,
				TriggerCase:    model.TriggerMisconfigured,
				Reason:         "Trigger is not associated with any pipeline",
				Recommendation: "Associate at least one pipeline or remove the trigger",
			})
		}
	}
	return out
}
