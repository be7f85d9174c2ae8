package template

import (
	"encoding/json"
	"os"
	"strings"

	"factorylens/internal/errors"
	"factorylens/internal/logging"
	"factorylens/internal/model"
)

// Known deployment template schema prefixes. Anything else logs a warning
// but does not abort the run.
const knownSchemaPrefix = "https://schema.management.azure.com/schemas/"

// Template is the parsed deployment export: top-level parameters, variables
// and the flat resources array.
type Template struct {
	Schema         string
	ContentVersion string
	Parameters     map[string]any
	Variables      map[string]any
	Resources      []model.Resource
}

type rawTemplate struct {
	Schema         string            `json:"$schema"`
	ContentVersion string            `json:"contentVersion"`
	Parameters     map[string]any    `json:"parameters"`
	Variables      map[string]any    `json:"variables"`
	Resources      []json.RawMessage `json:"resources"`
}

type rawResource struct {
	Name       string         `json:"name"`
	Type       string         `json:"type"`
	Properties map[string]any `json:"properties"`
	DependsOn  []string       `json:"dependsOn"`
}

// Load reads and validates a deployment template file. The four fatal
// conditions (missing file, unparsable JSON, non-object root, zero
// resources) return an AnalysisError; everything else is fail-soft.
func Load(path string, logger *logging.Logger) (*Template, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.New(errors.TemplateNotFound, "template file not found: "+path, err)
	}
	return Parse(data, logger)
}

// Parse validates and decodes template bytes.
func Parse(data []byte, logger *logging.Logger) (*Template, error) {
	var probe any
	if err := json.Unmarshal(data, &probe); err != nil {
		return nil, errors.New(errors.TemplateParseFailed, "template is not valid JSON", err)
	}
	if _, ok := probe.(map[string]any); !ok {
		return nil, errors.New(errors.TemplateNotObject, "template root must be a JSON object", nil)
	}

	var raw rawTemplate
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, errors.New(errors.TemplateParseFailed, "template structure is malformed", err)
	}
	if len(raw.Resources) == 0 {
		return nil, errors.New(errors.NoResources, "template contains no resources", nil)
	}

	if raw.Schema != "" && !strings.HasPrefix(raw.Schema, knownSchemaPrefix) {
		logger.Warn("Unknown template schema version", map[string]any{
			"schema": raw.Schema,
		})
	}

	tpl := &Template{
		Schema:         raw.Schema,
		ContentVersion: raw.ContentVersion,
		Parameters:     raw.Parameters,
		Variables:      raw.Variables,
		Resources:      make([]model.Resource, 0, len(raw.Resources)),
	}

	for i, msg := range raw.Resources {
		var res rawResource
		if err := json.Unmarshal(msg, &res); err != nil {
			logger.Warn("Skipping malformed resource entry", map[string]any{
				"index": i,
				"error": err.Error(),
			})
			continue
		}
		tpl.Resources = append(tpl.Resources, model.Resource{
			Name:       res.Name,
			Kind:       KindFromType(res.Type),
			RawType:    res.Type,
			Properties: res.Properties,
			DependsOn:  res.DependsOn,
		})
	}

	if len(tpl.Resources) == 0 {
		return nil, errors.New(errors.NoResources, "no parsable resources in template", nil)
	}

	return tpl, nil
}

// KindFromType maps the last segment of a dotted/slashed ARM resource type
// to a resource kind.
func KindFromType(resourceType string) model.ResourceKind {
	t := resourceType
	if idx := strings.LastIndexAny(t, "/."); idx >= 0 {
		t = t[idx+1:]
	}
	switch strings.ToLower(t) {
	case "pipelines":
		return model.KindPipeline
	case "dataflows":
		return model.KindDataFlow
	case "datasets":
		return model.KindDataset
	case "linkedservices":
		return model.KindConnection
	case "triggers":
		return model.KindTrigger
	case "integrationruntimes":
		return model.KindRuntime
	case "credentials":
		return model.KindCredential
	case "managedvirtualnetworks":
		return model.KindManagedNetwork
	case "managedprivateendpoints":
		return model.KindManagedEndpoint
	case "factories":
		return model.KindFactory
	default:
		return model.KindUnknown
	}
}
