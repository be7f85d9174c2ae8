package registry

import (
	"regexp"
	"strings"
)

// Safe navigation helpers over the untyped property maps decoded from the
// template. Missing or mistyped values yield zero values, never panics.

func getMap(m map[string]any, key string) map[string]any {
	if m == nil {
		return nil
	}
	child, _ := m[key].(map[string]any)
	return child
}

func getSlice(m map[string]any, key string) []any {
	if m == nil {
		return nil
	}
	s, _ := m[key].([]any)
	return s
}

func getString(m map[string]any, key string) string {
	if m == nil {
		return ""
	}
	s, _ := m[key].(string)
	return s
}

func getInt(m map[string]any, key string) int {
	if m == nil {
		return 0
	}
	switch v := m[key].(type) {
	case float64:
		return int(v)
	case int:
		return v
	}
	return 0
}

func getBool(m map[string]any, key string) bool {
	if m == nil {
		return false
	}
	b, _ := m[key].(bool)
	return b
}

// referenceName digs out a {referenceName: ...} reference.
func referenceName(m map[string]any, key string) string {
	return getString(getMap(m, key), "referenceName")
}

var dependsOnNamePattern = regexp.MustCompile(`'([^']+)'\)?\]?\s*$`)

// dependsOnTarget reduces an ARM dependsOn entry to the bare resource name.
// Entries look like [resourceId('Microsoft.DataFactory/factories/datasets',
// parameters('factoryName'), 'OrdersDataset')] or a plain concat form; the
// last quoted segment is the resource name.
func dependsOnTarget(entry string) string {
	trimmed := strings.TrimSpace(entry)
	if m := dependsOnNamePattern.FindStringSubmatch(trimmed); m != nil {
		name := m[1]
		if idx := strings.LastIndex(name, "/"); idx >= 0 {
			name = name[idx+1:]
		}
		return name
	}
	if idx := strings.LastIndex(trimmed, "/"); idx >= 0 {
		return trimmed[idx+1:]
	}
	return trimmed
}

// dependsOnKind extracts the resource type segment from a resourceId
// dependsOn entry, e.g. datasets from .../factories/datasets'.
func dependsOnKind(entry string) string {
	idx := strings.Index(entry, "factories/")
	if idx < 0 {
		return ""
	}
	rest := entry[idx+len("factories/"):]
	for i := 0; i < len(rest); i++ {
		if rest[i] == '\'' || rest[i] == ',' || rest[i] == ')' {
			return rest[:i]
		}
	}
	return rest
}
