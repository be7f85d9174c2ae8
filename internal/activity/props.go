package activity

import (
	"strings"

	"factorylens/internal/expr"
)

// Untyped map helpers, mirroring the registry package's navigation style.

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

func referenceName(m map[string]any, key string) string {
	return getString(getMap(m, key), "referenceName")
}

func resolveAny(v any) string {
	return expr.Resolve(v)
}

func findReferences(text string) []string {
	return expr.FindReferences(text)
}

// splitReference splits a kind:name reference produced by the expression
// scanner.
func splitReference(ref string) (kind, name string, ok bool) {
	idx := strings.Index(ref, ":")
	if idx < 0 {
		return "", "", false
	}
	return ref[:idx], ref[idx+1:], true
}

// sqlKeys are the property names searched, in order, for embedded SQL text.
var sqlKeys = []string{
	"sqlReaderQuery",
	"oracleReaderQuery",
	"query",
	"text",
	"script",
	"scripts",
	"command",
	"preCopyScript",
}

// findSQL searches a property map for embedded SQL text under the known
// keys, descending one level into source/sink style sub-objects.
func findSQL(m map[string]any) string {
	if m == nil {
		return ""
	}
	for _, key := range sqlKeys {
		switch v := m[key].(type) {
		case string:
			if v != "" {
				return v
			}
		case map[string]any:
			if s := resolveAny(v); s != "" {
				return s
			}
		case []any:
			var sb strings.Builder
			for _, item := range v {
				if entry, ok := item.(map[string]any); ok {
					if s := resolveAny(entry["text"]); s != "" {
						sb.WriteString(s)
						sb.WriteString("\n")
					}
				} else if s, ok := item.(string); ok {
					sb.WriteString(s)
					sb.WriteString("\n")
				}
			}
			if sb.Len() > 0 {
				return sb.String()
			}
		}
	}
	for _, sub := range []string{"source", "sink", "dataset"} {
		if child := getMap(m, sub); child != nil {
			if s := findSQL(child); s != "" {
				return s
			}
		}
	}
	return ""
}

// filePathKeys are the known property names contributing to a file path, in
// concatenation order.
var filePathKeys = []string{
	"container",
	"folderPath",
	"directory",
	"path",
	"relativeUrl",
	"wildcardFolderPath",
	"fileName",
	"filename",
	"wildcardFileName",
	"fileListPath",
	"prefix",
	"url",
}

// findFilePath concatenates the known file-path property values found in a
// property map, descending one level into source/sink/location sub-objects.
func findFilePath(m map[string]any) string {
	if m == nil {
		return ""
	}
	parts := make([]string, 0, 4)
	for _, key := range filePathKeys {
		if v, ok := m[key]; ok {
			if s := resolveAny(v); s != "" {
				parts = append(parts, s)
			}
		}
	}
	if len(parts) > 0 {
		return strings.Join(parts, "/")
	}
	for _, sub := range []string{"location", "source", "sink", "storeSettings"} {
		if child := getMap(m, sub); child != nil {
			if s := findFilePath(child); s != "" {
				return s
			}
		}
	}
	return ""
}
