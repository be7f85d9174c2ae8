package sqlscan

import (
	"regexp"
	"sort"
	"strings"
)

// Package sqlscan extracts referenced tables and columns from SQL text
// embedded in activity and dataset properties. The scanner is best-effort
// and never fails: malformed SQL yields empty results.

const (
	// DefaultMaxLen is the truncation limit applied to scanned SQL text.
	DefaultMaxLen = 10000
	maxTables     = 50
	maxColumns    = 100
)

var sqlKeywords = map[string]bool{
	"SELECT": true, "FROM": true, "WHERE": true, "JOIN": true, "INNER": true,
	"LEFT": true, "RIGHT": true, "OUTER": true, "FULL": true, "CROSS": true,
	"ON": true, "AND": true, "OR": true, "NOT": true, "AS": true, "GROUP": true,
	"ORDER": true, "BY": true, "HAVING": true, "UNION": true, "ALL": true,
	"DISTINCT": true, "TOP": true, "CASE": true, "WHEN": true, "THEN": true,
	"ELSE": true, "END": true, "NULL": true, "IS": true, "IN": true,
	"EXISTS": true, "BETWEEN": true, "LIKE": true, "VALUES": true, "SET": true,
	"UPDATE": true, "INSERT": true, "INTO": true, "DELETE": true, "MERGE": true,
	"USING": true, "WITH": true, "TABLE": true, "NOLOCK": true, "MATCHED": true,
	"TARGET": true, "SOURCE": true, "OUTPUT": true, "DECLARE": true,
	"EXEC": true, "EXECUTE": true, "BEGIN": true, "IF": true, "OVER": true,
}

var (
	tableRefPattern = regexp.MustCompile(`(?is)\b(?:DELETE\s+FROM|TRUNCATE\s+TABLE|INSERT\s+INTO|FROM|JOIN|INTO|UPDATE)\s+([@(\[]?[\w.\[\]]+)`)

	// MERGE patterns, in priority order: aliased target+source, subquery
	// source (target only), generic USING fallback.
	mergeAliasedPattern  = regexp.MustCompile(`(?is)\bMERGE\s+(?:INTO\s+)?([\w.\[\]]+)(?:\s+(?:AS\s+)?\w+)?\s+USING\s+([\w.\[\]]+)`)
	mergeSubqueryPattern = regexp.MustCompile(`(?is)\bMERGE\s+(?:INTO\s+)?([\w.\[\]]+)(?:\s+(?:AS\s+)?\w+)?\s+USING\s*\(`)
	mergeUsingFallback   = regexp.MustCompile(`(?is)\bUSING\s+([\w.\[\]]+)`)

	columnAliasPattern = regexp.MustCompile(`(?is)^(.*?)\s+AS\s+([\w\[\]]+)$`)
	funcWrapPattern    = regexp.MustCompile(`^\w+\(([^(),]+)\)$`)
	identifierPattern  = regexp.MustCompile(`^[A-Za-z_][\w]*$`)
	selectSpanPattern  = regexp.MustCompile(`(?is)\bSELECT\b`)
)

// ParseSQL extracts referenced tables and columns from sql, truncated to
// maxLen characters (DefaultMaxLen when maxLen <= 0). Results are uppercase,
// deduplicated and sorted. Any internal failure yields empty results.
func ParseSQL(sql string, maxLen int) (tables []string, columns []string) {
	defer func() {
		if r := recover(); r != nil {
			tables, columns = []string{}, []string{}
		}
	}()

	tables, columns = []string{}, []string{}
	if strings.TrimSpace(sql) == "" {
		return tables, columns
	}
	if maxLen <= 0 {
		maxLen = DefaultMaxLen
	}
	if len(sql) > maxLen {
		sql = sql[:maxLen]
	}

	stripped, cteNames, cteBodies := stripCTEs(sql)

	tableSet := make(map[string]bool)
	collectTables(stripped, cteNames, tableSet)
	for _, body := range cteBodies {
		collectTables(body, cteNames, tableSet)
	}
	collectMergeTables(stripped, cteNames, tableSet)

	tables = setToSorted(tableSet, maxTables)

	columnSet := make(map[string]bool)
	collectColumns(stripped, columnSet)
	columns = setToSorted(columnSet, maxColumns)
	return tables, columns
}

// stripCTEs removes WITH name AS ( ... ) definition blocks using balanced
// parenthesis scanning. CTE names are never table candidates, but their
// bodies are returned so tables referenced inside them can be extracted.
func stripCTEs(sql string) (string, map[string]bool, []string) {
	cteNames := make(map[string]bool)
	var bodies []string

	upper := strings.ToUpper(sql)
	withIdx := indexOfKeyword(upper, "WITH")
	if withIdx < 0 {
		return sql, cteNames, bodies
	}

	pos := withIdx + len("WITH")
	end := pos
	for {
		name, next := readIdentifier(sql, pos)
		if name == "" {
			break
		}
		pos = next
		// Optional column list before AS
		pos = skipSpaces(sql, pos)
		if pos < len(sql) && sql[pos] == '(' {
			close := matchParen(sql, pos)
			if close < 0 {
				break
			}
			pos = skipSpaces(sql, close+1)
		}
		if !hasKeywordAt(upper, pos, "AS") {
			break
		}
		pos = skipSpaces(sql, pos+2)
		if pos >= len(sql) || sql[pos] != '(' {
			break
		}
		close := matchParen(sql, pos)
		if close < 0 {
			break
		}
		cteNames[strings.ToUpper(name)] = true
		bodies = append(bodies, sql[pos+1:close])
		pos = skipSpaces(sql, close+1)
		end = close + 1
		if pos < len(sql) && sql[pos] == ',' {
			pos = skipSpaces(sql, pos+1)
			continue
		}
		break
	}

	if len(cteNames) == 0 {
		return sql, cteNames, bodies
	}
	return sql[:withIdx] + " " + sql[end:], cteNames, bodies
}

// collectTables runs the standard FROM/JOIN/INTO/UPDATE/DELETE/TRUNCATE/
// INSERT extraction over text.
func collectTables(text string, cteNames map[string]bool, out map[string]bool) {
	for _, m := range tableRefPattern.FindAllStringSubmatch(text, -1) {
		addTableCandidate(m[1], cteNames, out)
	}
}

// collectMergeTables applies the three prioritized MERGE patterns.
func collectMergeTables(text string, cteNames map[string]bool, out map[string]bool) {
	if m := mergeAliasedPattern.FindStringSubmatch(text); m != nil {
		addTableCandidate(m[1], cteNames, out)
		addTableCandidate(m[2], cteNames, out)
		return
	}
	if m := mergeSubqueryPattern.FindStringSubmatch(text); m != nil {
		addTableCandidate(m[1], cteNames, out)
		// Subquery tables are picked up by the standard extraction.
		return
	}
	if m := mergeUsingFallback.FindStringSubmatch(text); m != nil {
		addTableCandidate(m[1], cteNames, out)
	}
}

func addTableCandidate(raw string, cteNames map[string]bool, out map[string]bool) {
	candidate := strings.TrimSpace(raw)
	if candidate == "" || candidate[0] == '@' || candidate[0] == '(' {
		return
	}
	candidate = strings.NewReplacer("[", "", "]", "").Replace(candidate)
	candidate = strings.Trim(candidate, ".")
	if candidate == "" {
		return
	}
	upper := strings.ToUpper(candidate)
	if sqlKeywords[upper] || cteNames[upper] {
		return
	}
	// Every dotted segment must be a plain identifier.
	for _, part := range strings.Split(upper, ".") {
		if !identifierPattern.MatchString(part) {
			return
		}
	}
	out[upper] = true
}

// collectColumns scans only the first SELECT ... FROM span, splitting the
// select list on top-level commas with a string- and paren-aware scanner.
func collectColumns(text string, out map[string]bool) {
	loc := selectSpanPattern.FindStringIndex(text)
	if loc == nil {
		return
	}
	span, ok := selectListSpan(text, loc[1])
	if !ok {
		return
	}
	for _, candidate := range splitTopLevel(span) {
		if name, ok := normalizeColumn(candidate); ok {
			out[name] = true
		}
	}
}

// selectListSpan returns the text between SELECT and its matching FROM at
// paren depth 0, outside string literals.
func selectListSpan(text string, start int) (string, bool) {
	depth := 0
	inString := false
	upper := strings.ToUpper(text)
	for i := start; i < len(text); i++ {
		c := text[i]
		if inString {
			if c == '\'' {
				// A doubled quote is an escaped literal quote: consume both
				// characters and stay inside the string.
				if i+1 < len(text) && text[i+1] == '\'' {
					i++
					continue
				}
				inString = false
			}
			continue
		}
		switch c {
		case '\'':
			inString = true
		case '(':
			depth++
		case ')':
			depth--
		default:
			if depth == 0 && hasKeywordAt(upper, i, "FROM") {
				return text[start:i], true
			}
		}
	}
	return "", false
}

// splitTopLevel splits s on commas that sit at paren depth 0 outside string
// literals, honoring the doubled-quote escape inside strings.
func splitTopLevel(s string) []string {
	var parts []string
	depth := 0
	inString := false
	start := 0
	for i := 0; i < len(s); i++ {
		c := s[i]
		if inString {
			if c == '\'' {
				if i+1 < len(s) && s[i+1] == '\'' {
					i++
					continue
				}
				inString = false
			}
			continue
		}
		switch c {
		case '\'':
			inString = true
		case '(':
			depth++
		case ')':
			depth--
		case ',':
			if depth == 0 {
				parts = append(parts, s[start:i])
				start = i + 1
			}
		}
	}
	parts = append(parts, s[start:])
	return parts
}

// normalizeColumn strips aliasing, table qualifiers and single-argument
// function wrappers from a select-list candidate, then validates that a
// plain identifier remains.
func normalizeColumn(candidate string) (string, bool) {
	c := strings.TrimSpace(candidate)
	if c == "" || c == "*" {
		return "", false
	}

	// AS alias wins: the projected name is the alias.
	if m := columnAliasPattern.FindStringSubmatch(c); m != nil {
		c = m[2]
	}

	// Unwrap single-argument function calls: UPPER(col) -> col.
	for {
		m := funcWrapPattern.FindStringSubmatch(c)
		if m == nil {
			break
		}
		c = strings.TrimSpace(m[1])
	}

	// Strip table qualifier: t.col -> col.
	if idx := strings.LastIndex(c, "."); idx >= 0 {
		c = c[idx+1:]
	}
	c = strings.NewReplacer("[", "", "]", "").Replace(c)
	c = strings.TrimSpace(c)

	upper := strings.ToUpper(c)
	if !identifierPattern.MatchString(c) || sqlKeywords[upper] {
		return "", false
	}
	return upper, true
}

func setToSorted(set map[string]bool, limit int) []string {
	out := make([]string, 0, len(set))
	for s := range set {
		out = append(out, s)
	}
	sort.Strings(out)
	if len(out) > limit {
		out = out[:limit]
	}
	return out
}

// readIdentifier reads an identifier starting at or after pos, returning the
// identifier and the position just past it.
func readIdentifier(s string, pos int) (string, int) {
	pos = skipSpaces(s, pos)
	start := pos
	for pos < len(s) && (isWordByte(s[pos]) || s[pos] == '.') {
		pos++
	}
	return s[start:pos], pos
}

func skipSpaces(s string, pos int) int {
	for pos < len(s) && (s[pos] == ' ' || s[pos] == '\t' || s[pos] == '\n' || s[pos] == '\r') {
		pos++
	}
	return pos
}

// matchParen returns the index of the parenthesis closing the one at open,
// skipping string literals, or -1 when unbalanced.
func matchParen(s string, open int) int {
	depth := 0
	inString := false
	for i := open; i < len(s); i++ {
		c := s[i]
		if inString {
			if c == '\'' {
				if i+1 < len(s) && s[i+1] == '\'' {
					i++
					continue
				}
				inString = false
			}
			continue
		}
		switch c {
		case '\'':
			inString = true
		case '(':
			depth++
		case ')':
			depth--
			if depth == 0 {
				return i
			}
		}
	}
	return -1
}

// hasKeywordAt reports whether upper contains the keyword at pos with word
// boundaries on both sides. upper must already be uppercased.
func hasKeywordAt(upper string, pos int, keyword string) bool {
	if pos < 0 || pos+len(keyword) > len(upper) {
		return false
	}
	if upper[pos:pos+len(keyword)] != keyword {
		return false
	}
	if pos > 0 && isWordByte(upper[pos-1]) {
		return false
	}
	end := pos + len(keyword)
	if end < len(upper) && isWordByte(upper[end]) {
		return false
	}
	return true
}

// indexOfKeyword finds the first word-bounded occurrence of keyword in
// upper.
func indexOfKeyword(upper, keyword string) int {
	for idx := 0; idx < len(upper); {
		rel := strings.Index(upper[idx:], keyword)
		if rel < 0 {
			return -1
		}
		abs := idx + rel
		if hasKeywordAt(upper, abs, keyword) {
			return abs
		}
		idx = abs + 1
	}
	return -1
}

func isWordByte(c byte) bool {
	return c == '_' || (c >= '0' && c <= '9') || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}
