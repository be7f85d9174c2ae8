package export

import (
	"database/sql"
	"os"
	"path/filepath"
	"strings"

	_ "modernc.org/sqlite"

	"factorylens/internal/tables"
)

// writeSQLite renders the table set into a single SQLite database, one SQL
// table per output table. Existing databases are replaced, never appended.
func writeSQLite(set []*tables.Table, opts Options) error {
	if err := os.MkdirAll(opts.OutputDir, 0o755); err != nil {
		return exportErr(err, "creating output directory")
	}
	path := filepath.Join(opts.OutputDir, "factorylens.db")
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return exportErr(err, "replacing factorylens.db")
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return exportErr(err, "opening factorylens.db")
	}
	defer db.Close()

	for _, t := range set {
		if err := writeSQLiteTable(db, t); err != nil {
			return err
		}
	}
	return nil
}

func writeSQLiteTable(db *sql.DB, t *tables.Table) error {
	quoted := make([]string, len(t.Columns))
	holders := make([]string, len(t.Columns))
	for i, col := range t.Columns {
		quoted[i] = quoteIdent(col) + " TEXT"
		holders[i] = "?"
	}
	create := "CREATE TABLE " + quoteIdent(t.Name) + " (" + strings.Join(quoted, ", ") + ")"
	if _, err := db.Exec(create); err != nil {
		return exportErr(err, "creating table "+t.Name)
	}
	if len(t.Rows) == 0 {
		return nil
	}

	tx, err := db.Begin()
	if err != nil {
		return exportErr(err, "inserting into "+t.Name)
	}
	stmt, err := tx.Prepare("INSERT INTO " + quoteIdent(t.Name) +
		" VALUES (" + strings.Join(holders, ", ") + ")")
	if err != nil {
		tx.Rollback()
		return exportErr(err, "inserting into "+t.Name)
	}
	for _, row := range t.Rows {
		args := make([]any, len(row))
		for i, cell := range row {
			args[i] = cell
		}
		if _, err := stmt.Exec(args...); err != nil {
			stmt.Close()
			tx.Rollback()
			return exportErr(err, "inserting into "+t.Name)
		}
	}
	stmt.Close()
	if err := tx.Commit(); err != nil {
		return exportErr(err, "inserting into "+t.Name)
	}
	return nil
}

func quoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}
