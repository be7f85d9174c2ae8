// Package analysis orchestrates the full pipeline from a template export
// file to the rendered output table set.
package analysis

import (
	"time"

	"github.com/google/uuid"

	"factorylens/internal/activity"
	"factorylens/internal/config"
	"factorylens/internal/cycles"
	"factorylens/internal/graph"
	"factorylens/internal/impact"
	"factorylens/internal/logging"
	"factorylens/internal/model"
	"factorylens/internal/orphans"
	"factorylens/internal/registry"
	"factorylens/internal/stages"
	"factorylens/internal/tables"
	"factorylens/internal/template"
	"factorylens/internal/usage"
)

// Result holds every artifact of one analysis run. Tables is the rendered
// output set; the other fields expose the intermediate model for callers
// that want programmatic access.
type Result struct {
	RunID       string
	SourceFile  string
	GeneratedAt string

	Registry   *registry.Registry
	Activities []*model.Activity
	Edges      []model.Edge
	Graph      *graph.Graph
	Cycles     []model.Cycle
	Impacts    []model.ImpactRecord
	Orphans    []model.OrphanRecord
	Usage      *usage.Result
	Tables     []*tables.Table
}

// Run loads a template export and derives the full analytical model. Only
// the four fatal template conditions return an error; everything else is
// handled fail-soft and lands in the Errors table.
func Run(path string, cfg *config.Config, logger *logging.Logger) (*Result, error) {
	tpl, err := template.Load(path, logger)
	if err != nil {
		return nil, err
	}
	return analyze(tpl, path, cfg, logger)
}

// RunBytes is Run for an in-memory template, used by tests and callers that
// already hold the export.
func RunBytes(data []byte, cfg *config.Config, logger *logging.Logger) (*Result, error) {
	tpl, err := template.Parse(data, logger)
	if err != nil {
		return nil, err
	}
	return analyze(tpl, "", cfg, logger)
}

func analyze(tpl *template.Template, path string, cfg *config.Config, logger *logging.Logger) (*Result, error) {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}

	reg := registry.Register(tpl, logger)

	walker := activity.NewWalker(reg, logger, cfg.Walker.MaxDepth, cfg.SQL.MaxLength)
	walker.WalkAll()

	g := graph.Build(reg.Edges, walker.Edges)

	edges := stages.Assign(walker.Activities, append(append([]model.Edge{}, reg.Edges...), walker.Edges...))

	found := cycles.Detect(g, reg.Pipelines)
	impacts := impact.NewAnalyzer(g, reg, cfg.Impact.MaxDepth).Analyze()
	orphaned := orphans.Detect(reg)
	usages := usage.Aggregate(g, reg)

	res := &Result{
		RunID:       uuid.NewString(),
		SourceFile:  path,
		GeneratedAt: time.Now().UTC().Format(time.RFC3339),
		Registry:    reg,
		Activities:  walker.Activities,
		Edges:       edges,
		Graph:       g,
		Cycles:      found,
		Impacts:     impacts,
		Orphans:     orphaned,
		Usage:       usages,
	}

	res.Tables = tables.Build(&tables.Input{
		Registry:    reg,
		Activities:  walker.Activities,
		Edges:       edges,
		Cycles:      found,
		Impacts:     impacts,
		Orphans:     orphaned,
		Usage:       usages,
		Errors:      logger.Entries(),
		RunID:       res.RunID,
		SourceFile:  path,
		GeneratedAt: res.GeneratedAt,
	})

	logger.Info("analysis complete", map[string]any{
		"resources":  len(tpl.Resources),
		"pipelines":  len(reg.Pipelines),
		"activities": len(walker.Activities),
		"edges":      len(edges),
		"cycles":     len(found),
		"orphans":    len(orphaned),
	})

	return res, nil
}
