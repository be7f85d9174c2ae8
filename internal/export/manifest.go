package export

import (
	"os"
	"path/filepath"

	"github.com/pelletier/go-toml/v2"

	"factorylens/internal/tables"
)

// Manifest describes the workbook layout: how output tables map onto sheet
// names after splitting and name sanitization. Spreadsheet tooling consumes
// this to reassemble split tables.
type Manifest struct {
	RunID       string          `toml:"run_id"`
	SourceFile  string          `toml:"source_file"`
	GeneratedAt string          `toml:"generated_at"`
	Sheets      []ManifestSheet `toml:"sheets"`
}

// ManifestSheet is one sheet of the workbook layout.
type ManifestSheet struct {
	Table   string `toml:"table"`
	Sheet   string `toml:"sheet"`
	Rows    int    `toml:"rows"`
	Columns int    `toml:"columns"`
}

func writeManifest(set []*tables.Table, opts Options) error {
	m := Manifest{
		RunID:       opts.RunID,
		SourceFile:  opts.SourceFile,
		GeneratedAt: opts.GeneratedAt,
	}
	names := tables.SheetNames(set)
	for i, t := range set {
		m.Sheets = append(m.Sheets, ManifestSheet{
			Table:   t.Name,
			Sheet:   names[i],
			Rows:    len(t.Rows),
			Columns: len(t.Columns),
		})
	}

	path := filepath.Join(opts.OutputDir, "workbook.toml")
	f, err := os.Create(path)
	if err != nil {
		return exportErr(err, "creating workbook.toml")
	}
	defer f.Close()

	if err := toml.NewEncoder(f).Encode(m); err != nil {
		return exportErr(err, "encoding workbook.toml")
	}
	return f.Close()
}
