package export

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/klauspost/compress/gzip"
	"gopkg.in/yaml.v3"

	"factorylens/internal/errors"
	"factorylens/internal/tables"
)

// Format selects the export encoding.
type Format string

const (
	FormatCSV    Format = "csv"
	FormatJSON   Format = "json"
	FormatYAML   Format = "yaml"
	FormatSQLite Format = "sqlite"
)

// Options controls the export writers.
type Options struct {
	Format    Format
	OutputDir string
	// Compress gzips each CSV file. Ignored by the other formats.
	Compress bool
	// SplitRows caps rows per sheet part; 0 means the default split.
	SplitRows int
	// Manifest additionally writes a workbook layout manifest describing
	// the sheet mapping.
	Manifest bool

	RunID       string
	SourceFile  string
	GeneratedAt string
}

// Write renders the table set in the selected format. All formats split
// oversized tables into numbered parts first so no output unit exceeds the
// sheet row cap.
func Write(set []*tables.Table, opts Options) error {
	split := splitAll(set, opts.SplitRows)

	var err error
	switch opts.Format {
	case FormatCSV:
		err = writeCSVDir(split, opts)
	case FormatJSON:
		err = writeJSON(split, opts)
	case FormatYAML:
		err = writeYAML(split, opts)
	case FormatSQLite:
		err = writeSQLite(split, opts)
	default:
		return errors.New(errors.ConfigInvalid, fmt.Sprintf("unknown export format: %s", opts.Format), nil)
	}
	if err != nil {
		return err
	}

	if opts.Manifest {
		return writeManifest(split, opts)
	}
	return nil
}

func splitAll(set []*tables.Table, splitRows int) []*tables.Table {
	if splitRows <= 0 {
		splitRows = tables.DefaultSplitRows
	}
	var out []*tables.Table
	for _, t := range set {
		out = append(out, tables.Split(t, splitRows)...)
	}
	return out
}

func exportErr(cause error, context string) error {
	return errors.New(errors.ExportFailed, context, cause)
}

func writeCSVDir(set []*tables.Table, opts Options) error {
	if err := os.MkdirAll(opts.OutputDir, 0o755); err != nil {
		return exportErr(err, "creating output directory")
	}
	for _, t := range set {
		if err := writeCSVFile(t, opts); err != nil {
			return err
		}
	}
	return nil
}

func writeCSVFile(t *tables.Table, opts Options) error {
	name := t.Name + ".csv"
	if opts.Compress {
		name += ".gz"
	}
	path := filepath.Join(opts.OutputDir, name)

	f, err := os.Create(path)
	if err != nil {
		return exportErr(err, "creating "+name)
	}
	defer f.Close()

	var sink io.Writer = f
	var gz *gzip.Writer
	if opts.Compress {
		gz = gzip.NewWriter(f)
		sink = gz
	}

	w := csv.NewWriter(sink)
	if err := w.Write(t.Columns); err != nil {
		return exportErr(err, "writing "+name)
	}
	for _, row := range t.Rows {
		if err := w.Write(row); err != nil {
			return exportErr(err, "writing "+name)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return exportErr(err, "writing "+name)
	}
	if gz != nil {
		if err := gz.Close(); err != nil {
			return exportErr(err, "compressing "+name)
		}
	}
	if err := f.Close(); err != nil {
		return exportErr(err, "closing "+name)
	}
	return nil
}

// document is the serialized shape shared by the JSON and YAML exports.
type document struct {
	RunID       string          `json:"runId" yaml:"runId"`
	SourceFile  string          `json:"sourceFile" yaml:"sourceFile"`
	GeneratedAt string          `json:"generatedAt" yaml:"generatedAt"`
	Tables      []tableDocument `json:"tables" yaml:"tables"`
}

type tableDocument struct {
	Name    string     `json:"name" yaml:"name"`
	Columns []string   `json:"columns" yaml:"columns"`
	Rows    [][]string `json:"rows" yaml:"rows"`
}

func buildDocument(set []*tables.Table, opts Options) document {
	doc := document{
		RunID:       opts.RunID,
		SourceFile:  opts.SourceFile,
		GeneratedAt: opts.GeneratedAt,
	}
	for _, t := range set {
		rows := t.Rows
		if rows == nil {
			rows = [][]string{}
		}
		doc.Tables = append(doc.Tables, tableDocument{Name: t.Name, Columns: t.Columns, Rows: rows})
	}
	return doc
}

func writeJSON(set []*tables.Table, opts Options) error {
	if err := os.MkdirAll(opts.OutputDir, 0o755); err != nil {
		return exportErr(err, "creating output directory")
	}
	path := filepath.Join(opts.OutputDir, "factorylens.json")
	f, err := os.Create(path)
	if err != nil {
		return exportErr(err, "creating factorylens.json")
	}
	defer f.Close()

	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	if err := enc.Encode(buildDocument(set, opts)); err != nil {
		return exportErr(err, "encoding factorylens.json")
	}
	return f.Close()
}

func writeYAML(set []*tables.Table, opts Options) error {
	if err := os.MkdirAll(opts.OutputDir, 0o755); err != nil {
		return exportErr(err, "creating output directory")
	}
	path := filepath.Join(opts.OutputDir, "factorylens.yaml")
	f, err := os.Create(path)
	if err != nil {
		return exportErr(err, "creating factorylens.yaml")
	}
	defer f.Close()

	enc := yaml.NewEncoder(f)
	enc.SetIndent(2)
	if err := enc.Encode(buildDocument(set, opts)); err != nil {
		return exportErr(err, "encoding factorylens.yaml")
	}
	if err := enc.Close(); err != nil {
		return exportErr(err, "encoding factorylens.yaml")
	}
	return f.Close()
}
