package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"factorylens/internal/analysis"
	"factorylens/internal/export"
	"factorylens/internal/logging"
)

var (
	analyzeFormat    string
	analyzeOut       string
	analyzeCompress  bool
	analyzeSplitRows int
	analyzeManifest  bool
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze <template.json>",
	Short: "Analyze a factory template export",
	Long: `Analyze a deployment-template JSON export and write the full output
table set.

Examples:
  factorylens analyze factory.json
  factorylens analyze factory.json --format=sqlite --out=results
  factorylens analyze factory.json --compress --manifest`,
	Args: cobra.ExactArgs(1),
	Run:  runAnalyze,
}

func init() {
	analyzeCmd.Flags().StringVar(&analyzeFormat, "format", "", "Output format (csv, json, yaml, sqlite)")
	analyzeCmd.Flags().StringVar(&analyzeOut, "out", "", "Output directory")
	analyzeCmd.Flags().BoolVar(&analyzeCompress, "compress", false, "Gzip CSV output files")
	analyzeCmd.Flags().IntVar(&analyzeSplitRows, "split-rows", 0, "Rows per sheet before splitting (0 = default)")
	analyzeCmd.Flags().BoolVar(&analyzeManifest, "manifest", false, "Write a workbook layout manifest")

	rootCmd.AddCommand(analyzeCmd)
}

func runAnalyze(cmd *cobra.Command, args []string) {
	start := time.Now()
	bootLogger := logging.NewLogger(logging.Config{Format: logging.HumanFormat, Level: logging.ErrorLevel})
	cfg := mustLoadConfig(bootLogger)

	if analyzeFormat != "" {
		cfg.Export.Format = analyzeFormat
	}
	if analyzeOut != "" {
		cfg.Export.OutputDir = analyzeOut
	}
	if analyzeCompress {
		cfg.Export.Compress = true
	}
	if analyzeSplitRows > 0 {
		cfg.Export.SplitRows = analyzeSplitRows
	}
	if analyzeManifest {
		cfg.Export.Manifest = true
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	logger := newLogger(cfg)
	result, err := analysis.Run(args[0], cfg, logger)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error analyzing template: %v\n", err)
		os.Exit(1)
	}

	err = export.Write(result.Tables, export.Options{
		Format:      export.Format(cfg.Export.Format),
		OutputDir:   cfg.Export.OutputDir,
		Compress:    cfg.Export.Compress,
		SplitRows:   cfg.Export.SplitRows,
		Manifest:    cfg.Export.Manifest,
		RunID:       result.RunID,
		SourceFile:  result.SourceFile,
		GeneratedAt: result.GeneratedAt,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error writing output: %v\n", err)
		os.Exit(1)
	}

	printSummary(result)
	fmt.Printf("Output written to %s in %s\n", cfg.Export.OutputDir, time.Since(start).Round(time.Millisecond))
}
