package expr

import (
	"fmt"
	"regexp"
	"sort"
	"strings"
)

// Resolver turns template-expression values into display strings. It never
// evaluates anything; the goal is a stable, human-readable rendering of
// parameter references, nested value objects and ARM concat expressions.

var concatPattern = regexp.MustCompile(`^\[?concat\((.*)\)\]?$`)
var parameterPattern = regexp.MustCompile(`parameters\('([^']+)'\)`)

// Resolve renders an arbitrary template value as a display string.
func Resolve(value any) string {
	switch v := value.(type) {
	case nil:
		return ""
	case string:
		return resolveString(v)
	case bool:
		return fmt.Sprintf("%t", v)
	case float64:
		if v == float64(int64(v)) {
			return fmt.Sprintf("%d", int64(v))
		}
		return fmt.Sprintf("%g", v)
	case map[string]any:
		return resolveObject(v)
	case []any:
		parts := make([]string, 0, len(v))
		for _, item := range v {
			if s := Resolve(item); s != "" {
				parts = append(parts, s)
			}
		}
		return strings.Join(parts, ", ")
	default:
		return fmt.Sprintf("%v", v)
	}
}

// resolveString handles ARM concat and bare parameter references.
func resolveString(s string) string {
	trimmed := strings.TrimSpace(s)
	if m := concatPattern.FindStringSubmatch(trimmed); m != nil {
		return resolveConcatArgs(m[1])
	}
	// A bare [parameters('x')] style reference
	inner := strings.TrimSuffix(strings.TrimPrefix(trimmed, "["), "]")
	if m := parameterPattern.FindStringSubmatch(inner); m != nil && strings.HasPrefix(inner, "parameters(") {
		return "@" + m[1]
	}
	return s
}

// resolveConcatArgs splits concat arguments on top-level commas, resolving
// each piece. Quoted literals keep their content; parameter references
// render as @name.
func resolveConcatArgs(args string) string {
	var sb strings.Builder
	depth := 0
	inString := false
	start := 0
	flush := func(end int) {
		piece := strings.TrimSpace(args[start:end])
		if piece == "" {
			return
		}
		if strings.HasPrefix(piece, "'") && strings.HasSuffix(piece, "'") && len(piece) >= 2 {
			sb.WriteString(piece[1 : len(piece)-1])
		} else if m := parameterPattern.FindStringSubmatch(piece); m != nil {
			sb.WriteString("@" + m[1])
		} else {
			sb.WriteString(piece)
		}
	}
	for i := 0; i < len(args); i++ {
		c := args[i]
		switch {
		case c == '\'':
			inString = !inString
		case inString:
		case c == '(':
			depth++
		case c == ')':
			depth--
		case c == ',' && depth == 0:
			flush(i)
			start = i + 1
		}
	}
	flush(len(args))
	return sb.String()
}

// resolveObject handles the nested value/secret object shapes that appear
// in linked service and activity properties.
func resolveObject(obj map[string]any) string {
	typeName, _ := obj["type"].(string)
	switch typeName {
	case "Expression":
		return Resolve(obj["value"])
	case "SecureString":
		return "***"
	case "AzureKeyVaultSecret":
		secret := Resolve(obj["secretName"])
		store := ""
		if ref, ok := obj["store"].(map[string]any); ok {
			store = Resolve(ref["referenceName"])
		}
		if store != "" {
			return fmt.Sprintf("KeyVault(%s/%s)", store, secret)
		}
		return fmt.Sprintf("KeyVault(%s)", secret)
	}
	if value, ok := obj["value"]; ok {
		return Resolve(value)
	}
	if ref, ok := obj["referenceName"]; ok {
		return Resolve(ref)
	}
	return ""
}

// ResolveResourceName reduces an ARM resource name expression such as
// [concat(parameters('factoryName'), '/CopyOrders')] to the bare resource
// name CopyOrders.
func ResolveResourceName(name string) string {
	resolved := Resolve(name)
	if idx := strings.LastIndex(resolved, "/"); idx >= 0 {
		resolved = resolved[idx+1:]
	}
	return strings.TrimSpace(resolved)
}

// Reference patterns recognized by FindReferences. Order matters only for
// readability; results are dedup-sorted.
var referencePatterns = []struct {
	kind    string
	pattern *regexp.Regexp
}{
	{"parameter", regexp.MustCompile(`@?\{?pipeline\(\)\.parameters\.(\w+)\}?`)},
	{"globalParameter", regexp.MustCompile(`@?\{?pipeline\(\)\.globalParameters\.(\w+)\}?`)},
	{"variable", regexp.MustCompile(`@?\{?variables\('(\w+)'\)\}?`)},
	{"activityOutput", regexp.MustCompile(`@?\{?activity\('([^']+)'\)\.output`)},
	{"item", regexp.MustCompile(`@?\{?(item)\(\)`)},
	{"dataset", regexp.MustCompile(`@?\{?dataset\(\)\.(\w+)\}?`)},
	{"linkedService", regexp.MustCompile(`@?\{?linkedService\(\)\.(\w+)\}?`)},
	{"trigger", regexp.MustCompile(`@?\{?trigger\(\)\.(\w+)\}?`)},
}

// FindReferences scans expression text for parameter, variable, activity
// output and item references, returning sorted kind:name strings.
func FindReferences(text string) []string {
	if text == "" {
		return nil
	}
	seen := make(map[string]bool)
	for _, p := range referencePatterns {
		for _, m := range p.pattern.FindAllStringSubmatch(text, -1) {
			name := m[1]
			if p.kind == "item" {
				seen["item"] = true
				continue
			}
			seen[p.kind+":"+name] = true
		}
	}
	if len(seen) == 0 {
		return nil
	}
	out := make([]string, 0, len(seen))
	for ref := range seen {
		out = append(out, ref)
	}
	sort.Strings(out)
	return out
}
