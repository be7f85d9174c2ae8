package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"factorylens/internal/analysis"
	"factorylens/internal/logging"
	"factorylens/internal/model"
)

var summaryCmd = &cobra.Command{
	Use:   "summary <template.json>",
	Short: "Print an analysis summary without writing output files",
	Args:  cobra.ExactArgs(1),
	Run:   runSummary,
}

func init() {
	rootCmd.AddCommand(summaryCmd)
}

func runSummary(cmd *cobra.Command, args []string) {
	bootLogger := logging.NewLogger(logging.Config{Format: logging.HumanFormat, Level: logging.ErrorLevel})
	cfg := mustLoadConfig(bootLogger)
	logger := newLogger(cfg)

	result, err := analysis.Run(args[0], cfg, logger)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error analyzing template: %v\n", err)
		os.Exit(1)
	}
	printSummary(result)
}

func printSummary(result *analysis.Result) {
	reg := result.Registry
	fmt.Printf("Run %s\n", result.RunID)
	fmt.Printf("  Pipelines:            %d\n", len(reg.Pipelines))
	fmt.Printf("  Activities:           %d\n", len(result.Activities))
	fmt.Printf("  Data flows:           %d\n", len(reg.DataFlows))
	fmt.Printf("  Datasets:             %d\n", len(reg.Datasets))
	fmt.Printf("  Linked services:      %d\n", len(reg.Connections))
	fmt.Printf("  Triggers:             %d\n", len(reg.Triggers))
	fmt.Printf("  Integration runtimes: %d\n", len(reg.Runtimes))
	fmt.Printf("  Dependency edges:     %d\n", len(result.Edges))
	fmt.Printf("  Circular dependencies: %d\n", len(result.Cycles))
	fmt.Printf("  Orphaned resources:   %d\n", len(result.Orphans))

	critical := 0
	for _, rec := range result.Impacts {
		if rec.Impact == model.ImpactCritical {
			critical++
		}
	}
	fmt.Printf("  Critical-impact pipelines: %d\n", critical)
}
