package sqlscan

import (
	"reflect"
	"testing"
)

func TestParseSQLTables(t *testing.T) {
	tests := []struct {
		name string
		sql  string
		want []string
	}{
		{
			name: "simple select",
			sql:  "SELECT a, b FROM dbo.Orders",
			want: []string{"DBO.ORDERS"},
		},
		{
			name: "joins and brackets",
			sql:  "SELECT o.id FROM [dbo].[Orders] o JOIN dbo.Customers c ON o.cid = c.id",
			want: []string{"DBO.CUSTOMERS", "DBO.ORDERS"},
		},
		{
			name: "cte names excluded but cte bodies scanned",
			sql: `WITH recent AS (SELECT id FROM RawOrders),
			      buyers AS (SELECT id FROM RawCustomers)
			      SELECT * FROM recent JOIN buyers ON recent.id = buyers.id`,
			want: []string{"RAWCUSTOMERS", "RAWORDERS"},
		},
		{
			name: "merge with aliased source",
			sql:  "MERGE dbo.Target AS t USING staging.Source AS s ON t.id = s.id WHEN MATCHED THEN UPDATE SET t.v = s.v",
			want: []string{"DBO.TARGET", "STAGING.SOURCE"},
		},
		{
			name: "merge with subquery source",
			sql:  "MERGE INTO dbo.Tgt USING (SELECT id FROM src) s ON dbo.Tgt.id = s.id WHEN MATCHED THEN UPDATE SET v = 1",
			want: []string{"DBO.TGT", "SRC"},
		},
		{
			name: "delete truncate insert",
			sql:  "DELETE FROM dbo.A; TRUNCATE TABLE dbo.B; INSERT INTO dbo.C (x) VALUES (1)",
			want: []string{"DBO.A", "DBO.B", "DBO.C"},
		},
		{
			name: "variables and subqueries rejected",
			sql:  "SELECT x FROM @tableVar JOIN (SELECT 1) q",
			want: []string{},
		},
		{
			name: "empty input",
			sql:  "   ",
			want: []string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, _ := ParseSQL(tt.sql, 0)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("ParseSQL(%q) tables = %v, want %v", tt.sql, got, tt.want)
			}
		})
	}
}

func TestParseSQLColumns(t *testing.T) {
	tests := []struct {
		name string
		sql  string
		want []string
	}{
		{
			name: "plain columns",
			sql:  "SELECT a, b FROM T",
			want: []string{"A", "B"},
		},
		{
			name: "alias wins over expression",
			sql:  "SELECT 'it''s ok' AS col1, col2 FROM T",
			want: []string{"COL1", "COL2"},
		},
		{
			name: "function wrapper unwrapped and qualifier stripped",
			sql:  "SELECT UPPER(t.name), t.city FROM T t",
			want: []string{"CITY", "NAME"},
		},
		{
			name: "star projection ignored",
			sql:  "SELECT * FROM T",
			want: []string{},
		},
		{
			name: "comma inside string literal not a separator",
			sql:  "SELECT 'a,b' AS pair, other FROM T",
			want: []string{"OTHER", "PAIR"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, got := ParseSQL(tt.sql, 0)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("ParseSQL(%q) columns = %v, want %v", tt.sql, got, tt.want)
			}
		})
	}
}

func TestParseSQLTruncation(t *testing.T) {
	// Truncation cuts the table reference off entirely.
	tables, columns := ParseSQL("SELECT a FROM VeryLongTableName", 13)
	if len(tables) != 0 {
		t.Errorf("tables = %v, want none after truncation", tables)
	}
	if !reflect.DeepEqual(columns, []string{"A"}) {
		t.Errorf("columns = %v, want [A]", columns)
	}
}

func TestParseSQLNeverFails(t *testing.T) {
	inputs := []string{
		"", "not sql at all", "SELECT", "WITH x AS (", "MERGE USING",
		"SELECT FROM FROM FROM", "((((", "'''",
	}
	for _, sql := range inputs {
		tables, columns := ParseSQL(sql, 0)
		if tables == nil || columns == nil {
			t.Errorf("ParseSQL(%q) returned nil slices", sql)
		}
	}
}
