package registry

import (
	"reflect"
	"strings"
	"testing"

	"factorylens/internal/logging"
	"factorylens/internal/model"
	"factorylens/internal/template"
)

const fixtureTemplate = `{
	"$schema": "https://schema.management.azure.com/schemas/2015-01-01/deploymentTemplate.json#",
	"resources": [
		{
			"name": "[concat(parameters('factoryName'), '/IR1')]",
			"type": "Microsoft.DataFactory/factories/integrationRuntimes",
			"properties": {"type": "Managed", "typeProperties": {"computeProperties": {"location": "westeurope"}}}
		},
		{
			"name": "[concat(parameters('factoryName'), '/SqlLS')]",
			"type": "Microsoft.DataFactory/factories/linkedServices",
			"properties": {
				"type": "AzureSqlDatabase",
				"connectVia": {"referenceName": "IR1", "type": "IntegrationRuntimeReference"},
				"typeProperties": {"server": "sql.example.net", "database": "orders"}
			}
		},
		{
			"name": "[concat(parameters('factoryName'), '/OrdersDS')]",
			"type": "Microsoft.DataFactory/factories/datasets",
			"properties": {
				"type": "AzureSqlTable",
				"linkedServiceName": {"referenceName": "SqlLS", "type": "LinkedServiceReference"},
				"typeProperties": {"schema": "dbo", "tableName": "Orders"},
				"parameters": {"env": {"type": "string"}, "day": {"type": "string"}}
			}
		},
		{
			"name": "[concat(parameters('factoryName'), '/UnusedDS')]",
			"type": "Microsoft.DataFactory/factories/datasets",
			"properties": {
				"type": "Binary",
				"linkedServiceName": {"referenceName": "SqlLS", "type": "LinkedServiceReference"},
				"typeProperties": {}
			}
		},
		{
			"name": "[concat(parameters('factoryName'), '/CleanFlow')]",
			"type": "Microsoft.DataFactory/factories/dataflows",
			"properties": {
				"type": "MappingDataFlow",
				"typeProperties": {
					"sources": [{"name": "src1", "dataset": {"referenceName": "OrdersDS", "type": "DatasetReference"}}],
					"sinks": [{"name": "sink1", "linkedService": {"referenceName": "SqlLS", "type": "LinkedServiceReference"}}],
					"transformations": [{"name": "derive1"}],
					"scriptLines": ["source(query: 'SELECT id FROM staging.RawOrders')"]
				}
			}
		},
		{
			"name": "[concat(parameters('factoryName'), '/LoadOrders')]",
			"type": "Microsoft.DataFactory/factories/pipelines",
			"properties": {
				"folder": {"name": "ingest"},
				"activities": [{"name": "Copy1", "type": "Copy"}, {"name": "Wait1", "type": "Wait"}],
				"parameters": {"env": {}},
				"variables": {"count": {}}
			}
		},
		{
			"name": "[concat(parameters('factoryName'), '/Nightly')]",
			"type": "Microsoft.DataFactory/factories/triggers",
			"properties": {
				"type": "ScheduleTrigger",
				"runtimeState": "Started",
				"pipelines": [{"pipelineReference": {"referenceName": "LoadOrders", "type": "PipelineReference"}}],
				"typeProperties": {"recurrence": {"frequency": "Day", "interval": 1, "startTime": "2024-01-01T00:00:00Z"}}
			}
		},
		{
			"name": "[concat(parameters('factoryName'), '/Paused')]",
			"type": "Microsoft.DataFactory/factories/triggers",
			"properties": {
				"type": "ScheduleTrigger",
				"runtimeState": "Stopped",
				"pipelines": [{"pipelineReference": {"referenceName": "LoadOrders", "type": "PipelineReference"}}],
				"typeProperties": {}
			}
		},
		{
			"name": "[parameters('factoryName')]",
			"type": "Microsoft.DataFactory/factories",
			"properties": {
				"globalParameters": {
					"region": {"type": "string", "value": "weu"},
					"env": {"type": "string", "value": "prod"}
				}
			}
		}
	]
}`

func registerFixture(t *testing.T, logger *logging.Logger) *Registry {
	t.Helper()
	tpl, err := template.Parse([]byte(fixtureTemplate), logger)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	return Register(tpl, logger)
}

func TestRegisterClassification(t *testing.T) {
	reg := registerFixture(t, logging.NewDiscardLogger())

	if len(reg.Runtimes) != 1 || reg.Runtimes["IR1"] == nil {
		t.Errorf("Runtimes = %v, want IR1", reg.Runtimes)
	}
	if len(reg.Connections) != 1 || reg.Connections["SqlLS"] == nil {
		t.Errorf("Connections = %v, want SqlLS", reg.Connections)
	}
	if len(reg.Datasets) != 2 {
		t.Errorf("Datasets = %d, want 2", len(reg.Datasets))
	}
	if len(reg.DataFlows) != 1 || len(reg.Pipelines) != 1 || len(reg.Triggers) != 2 {
		t.Errorf("DataFlows/Pipelines/Triggers = %d/%d/%d, want 1/1/2",
			len(reg.DataFlows), len(reg.Pipelines), len(reg.Triggers))
	}
}

func TestRegisterConnection(t *testing.T) {
	reg := registerFixture(t, logging.NewDiscardLogger())

	ls := reg.Connections["SqlLS"]
	if ls.Runtime != "IR1" {
		t.Errorf("Runtime = %q, want IR1", ls.Runtime)
	}
	if ls.Endpoint != "sql.example.net" {
		t.Errorf("Endpoint = %q", ls.Endpoint)
	}
	if ls.Database != "orders" {
		t.Errorf("Database = %q", ls.Database)
	}
	if !reg.Usage.Runtimes["IR1"] {
		t.Error("connectVia should mark the runtime as used")
	}

	if n := countEdges(reg.Edges, model.EdgeConnectionRuntime); n != 1 {
		t.Errorf("linkedservice-runtime edges = %d, want 1", n)
	}
}

func TestRegisterDataset(t *testing.T) {
	reg := registerFixture(t, logging.NewDiscardLogger())

	ds := reg.Datasets["OrdersDS"]
	if ds.Table != "Orders" {
		t.Errorf("Table = %q, want Orders", ds.Table)
	}
	if ds.Connection != "SqlLS" {
		t.Errorf("Connection = %q, want SqlLS", ds.Connection)
	}
	if want := []string{"day", "env"}; !reflect.DeepEqual(ds.Parameters, want) {
		t.Errorf("Parameters = %v, want %v", ds.Parameters, want)
	}
	if !reg.Usage.Connections["SqlLS"] {
		t.Error("linkedServiceName should mark the linked service as used")
	}
	if n := countEdges(reg.Edges, model.EdgeDatasetConnection); n != 2 {
		t.Errorf("dataset-linkedservice edges = %d, want 2", n)
	}
}

func TestRegisterDataFlow(t *testing.T) {
	reg := registerFixture(t, logging.NewDiscardLogger())

	df := reg.DataFlows["CleanFlow"]
	if len(df.Sources) != 1 || df.Sources[0].Dataset != "OrdersDS" {
		t.Errorf("Sources = %v", df.Sources)
	}
	if len(df.Sinks) != 1 || df.Sinks[0].Connection != "SqlLS" {
		t.Errorf("Sinks = %v", df.Sinks)
	}
	if want := []string{"derive1"}; !reflect.DeepEqual(df.Transformations, want) {
		t.Errorf("Transformations = %v, want %v", df.Transformations, want)
	}
	if want := []string{"STAGING.RAWORDERS"}; !reflect.DeepEqual(df.ScriptTables, want) {
		t.Errorf("ScriptTables = %v, want %v", df.ScriptTables, want)
	}
	if !reg.Usage.Datasets["OrdersDS"] {
		t.Error("data flow source should mark the dataset as used")
	}
	if reg.Usage.Datasets["UnusedDS"] {
		t.Error("UnusedDS should stay unused")
	}
}

func TestRegisterTriggerUsage(t *testing.T) {
	reg := registerFixture(t, logging.NewDiscardLogger())

	if !reg.Usage.Pipelines["LoadOrders"] {
		t.Error("started trigger should mark the pipeline as used")
	}
	// Both triggers still produce edges.
	if n := countEdges(reg.Edges, model.EdgeTriggerPipeline); n != 2 {
		t.Errorf("trigger-pipeline edges = %d, want 2", n)
	}

	nightly := reg.Triggers["Nightly"]
	if nightly.Frequency != "Day" || nightly.Interval != 1 {
		t.Errorf("recurrence = %q/%d", nightly.Frequency, nightly.Interval)
	}
	if !strings.Contains(nightly.Detail, "every 1 day") {
		t.Errorf("Detail = %q", nightly.Detail)
	}
}

func TestRegisterStoppedTriggerDoesNotMarkUsage(t *testing.T) {
	logger := logging.NewDiscardLogger()
	tpl, err := template.Parse([]byte(`{
		"resources": [
			{"name": "f/P1", "type": "Microsoft.DataFactory/factories/pipelines", "properties": {"activities": []}},
			{"name": "f/T1", "type": "Microsoft.DataFactory/factories/triggers", "properties": {
				"type": "ScheduleTrigger", "runtimeState": "Stopped",
				"pipelines": [{"pipelineReference": {"referenceName": "P1"}}]
			}}
		]
	}`), logger)
	if err != nil {
		t.Fatal(err)
	}
	reg := Register(tpl, logger)
	if reg.Usage.Pipelines["P1"] {
		t.Error("stopped trigger must not mark the pipeline as used")
	}
	if n := countEdges(reg.Edges, model.EdgeTriggerPipeline); n != 1 {
		t.Errorf("trigger-pipeline edges = %d, want 1", n)
	}
}

func TestRegisterGlobalParameters(t *testing.T) {
	reg := registerFixture(t, logging.NewDiscardLogger())

	want := []model.GlobalParameter{
		{Name: "env", Type: "string", Value: "prod"},
		{Name: "region", Type: "string", Value: "weu"},
	}
	if !reflect.DeepEqual(reg.GlobalParameters, want) {
		t.Errorf("GlobalParameters = %v, want %v", reg.GlobalParameters, want)
	}
}

func TestRegisterUnknownReferenceWarnings(t *testing.T) {
	logger := logging.NewDiscardLogger()
	tpl, err := template.Parse([]byte(`{
		"resources": [
			{"name": "f/LS1", "type": "Microsoft.DataFactory/factories/linkedServices", "properties": {
				"type": "AzureSqlDatabase",
				"connectVia": {"referenceName": "MissingIR"},
				"typeProperties": {}
			}}
		]
	}`), logger)
	if err != nil {
		t.Fatal(err)
	}
	Register(tpl, logger)

	found := false
	for _, e := range logger.Entries() {
		if strings.Contains(e.Message, "unknown integration runtime") {
			found = true
		}
	}
	if !found {
		t.Errorf("expected unknown-runtime warning, got %v", logger.Entries())
	}
}

func TestRegisterNameCollisionFirstWins(t *testing.T) {
	logger := logging.NewDiscardLogger()
	tpl, err := template.Parse([]byte(`{
		"resources": [
			{"name": "f/Shared", "type": "Microsoft.DataFactory/factories/pipelines", "properties": {"activities": []}},
			{"name": "f/Shared", "type": "Microsoft.DataFactory/factories/datasets", "properties": {"typeProperties": {}}}
		]
	}`), logger)
	if err != nil {
		t.Fatal(err)
	}
	reg := Register(tpl, logger)

	if reg.ByName["Shared"].Kind != model.KindPipeline {
		t.Errorf("first registration should win, got %s", reg.ByName["Shared"].Kind)
	}
	found := false
	for _, e := range logger.Entries() {
		if strings.Contains(e.Message, "collides") {
			found = true
		}
	}
	if !found {
		t.Error("expected a collision warning")
	}
}

func countEdges(edges []model.Edge, kind model.EdgeKind) int {
	n := 0
	for _, e := range edges {
		if e.Kind == kind {
			n++
		}
	}
	return n
}
