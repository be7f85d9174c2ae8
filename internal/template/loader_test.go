package template

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"factorylens/internal/errors"
	"factorylens/internal/logging"
	"factorylens/internal/model"
)

func fatalCode(t *testing.T, err error) errors.ErrorCode {
	t.Helper()
	if err == nil {
		t.Fatal("expected an error")
	}
	ae, ok := err.(*errors.AnalysisError)
	if !ok {
		t.Fatalf("expected *errors.AnalysisError, got %T", err)
	}
	return ae.Code
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.json"), logging.NewDiscardLogger())
	if code := fatalCode(t, err); code != errors.TemplateNotFound {
		t.Errorf("code = %s, want %s", code, errors.TemplateNotFound)
	}
}

func TestParseFatalConditions(t *testing.T) {
	tests := []struct {
		name string
		data string
		want errors.ErrorCode
	}{
		{"invalid json", `{not json`, errors.TemplateParseFailed},
		{"array root", `[1, 2, 3]`, errors.TemplateNotObject},
		{"string root", `"hello"`, errors.TemplateNotObject},
		{"no resources key", `{"contentVersion": "1.0"}`, errors.NoResources},
		{"empty resources", `{"resources": []}`, errors.NoResources},
		{"only malformed resources", `{"resources": [42, "x"]}`, errors.NoResources},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.data), logging.NewDiscardLogger())
			if code := fatalCode(t, err); code != tt.want {
				t.Errorf("code = %s, want %s", code, tt.want)
			}
		})
	}
}

func TestParseSkipsMalformedResources(t *testing.T) {
	data := `{
		"resources": [
			{"name": "good", "type": "Microsoft.DataFactory/factories/pipelines", "properties": {}},
			"not an object"
		]
	}`
	logger := logging.NewDiscardLogger()
	tpl, err := Parse([]byte(data), logger)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if len(tpl.Resources) != 1 {
		t.Fatalf("resources = %d, want 1", len(tpl.Resources))
	}
	if tpl.Resources[0].Kind != model.KindPipeline {
		t.Errorf("kind = %s, want %s", tpl.Resources[0].Kind, model.KindPipeline)
	}

	entries := logger.Entries()
	if len(entries) != 1 || !strings.Contains(entries[0].Message, "malformed resource") {
		t.Errorf("expected one malformed-resource warning, got %v", entries)
	}
}

func TestLoadRoundTrip(t *testing.T) {
	data := `{
		"$schema": "https://schema.management.azure.com/schemas/2015-01-01/deploymentTemplate.json#",
		"contentVersion": "1.0.0.0",
		"resources": [
			{"name": "f/P1", "type": "Microsoft.DataFactory/factories/pipelines", "properties": {}}
		]
	}`
	path := filepath.Join(t.TempDir(), "factory.json")
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatal(err)
	}

	logger := logging.NewDiscardLogger()
	tpl, err := Load(path, logger)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if tpl.ContentVersion != "1.0.0.0" {
		t.Errorf("contentVersion = %q", tpl.ContentVersion)
	}
	if len(logger.Entries()) != 0 {
		t.Errorf("unexpected warnings: %v", logger.Entries())
	}
}

func TestKindFromType(t *testing.T) {
	tests := []struct {
		in   string
		want model.ResourceKind
	}{
		{"Microsoft.DataFactory/factories/pipelines", model.KindPipeline},
		{"Microsoft.DataFactory/factories/dataflows", model.KindDataFlow},
		{"Microsoft.DataFactory/factories/datasets", model.KindDataset},
		{"Microsoft.DataFactory/factories/linkedServices", model.KindConnection},
		{"Microsoft.DataFactory/factories/triggers", model.KindTrigger},
		{"Microsoft.DataFactory/factories/integrationRuntimes", model.KindRuntime},
		{"Microsoft.DataFactory/factories/credentials", model.KindCredential},
		{"Microsoft.DataFactory/factories/managedVirtualNetworks", model.KindManagedNetwork},
		{"Microsoft.DataFactory/factories", model.KindFactory},
		{"Microsoft.Storage/storageAccounts", model.KindUnknown},
	}
	for _, tt := range tests {
		if got := KindFromType(tt.in); got != tt.want {
			t.Errorf("KindFromType(%q) = %s, want %s", tt.in, got, tt.want)
		}
	}
}
