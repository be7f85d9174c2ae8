package activity

import (
	"sort"

	"factorylens/internal/model"
	"factorylens/internal/sqlscan"
)

// handlerFunc extracts the type-specific fields of one activity variant.
type handlerFunc func(w *Walker, act *model.Activity, m map[string]any)

// handlers maps the activity type tag to its parser. Unrecognized types go
// through genericHandler, which deep-searches for dataset references.
var handlers = map[string]handlerFunc{
	"Copy":                      handleCopy,
	"ExecutePipeline":           handleExecutePipeline,
	"ExecuteDataFlow":           handleExecuteDataFlow,
	"Lookup":                    handleSQLSource,
	"Script":                    handleScript,
	"SqlServerStoredProcedure":  handleStoredProcedure,
	"SqlPoolStoredProcedure":    handleStoredProcedure,
	"ForEach":                   handleContainer,
	"IfCondition":               handleCondition,
	"Switch":                    handleCondition,
	"Until":                     handleCondition,
	"Filter":                    handleCondition,
	"Wait":                      handleWait,
	"WebActivity":               handleWeb,
	"WebHook":                   handleWeb,
	"AzureFunctionActivity":     handleAzureFunction,
	"SetVariable":               handleSetVariable,
	"AppendVariable":            handleSetVariable,
	"GetMetadata":               handleDatasetRef,
	"Delete":                    handleDatasetRef,
	"Validation":                handleDatasetRef,
	"Fail":                      handleFail,
	"DatabricksNotebook":        handleNotebook,
	"DatabricksSparkJar":        handleSparkFile,
	"DatabricksSparkPython":     handleSparkFile,
	"HDInsightHive":             handleHDInsight,
	"HDInsightPig":              handleHDInsight,
	"HDInsightSpark":            handleHDInsight,
	"SynapseNotebook":           handleNotebook,
	"Custom":                    handleCustom,
	"AzureMLExecutePipeline":    handleGenericPassthrough,
	"AzureDataExplorerCommand":  handleSQLSource,
}

// roleFor labels an activity type with its human role.
func roleFor(actType string) string {
	switch actType {
	case "Copy":
		return "Data Movement"
	case "ExecuteDataFlow":
		return "Data Transformation"
	case "ExecutePipeline":
		return "Orchestration"
	case "ForEach", "IfCondition", "Switch", "Until", "Filter":
		return "Control Flow"
	case "Lookup", "GetMetadata":
		return "Data Retrieval"
	case "Script", "SqlServerStoredProcedure", "SqlPoolStoredProcedure", "AzureDataExplorerCommand":
		return "Database Operation"
	case "SetVariable", "AppendVariable":
		return "Variable Management"
	case "WebActivity", "WebHook", "AzureFunctionActivity":
		return "External Call"
	case "Delete", "Validation":
		return "File Management"
	case "Wait", "Fail":
		return "Control Flow"
	case "DatabricksNotebook", "DatabricksSparkJar", "DatabricksSparkPython",
		"HDInsightHive", "HDInsightPig", "HDInsightSpark", "SynapseNotebook":
		return "External Compute"
	case "Custom":
		return "Custom Processing"
	default:
		return "General"
	}
}

func handleCopy(w *Walker, act *model.Activity, m map[string]any) {
	typeProps := getMap(m, "typeProperties")

	for i, raw := range getSlice(m, "inputs") {
		in, ok := raw.(map[string]any)
		if !ok {
			continue
		}
		name := getString(in, "referenceName")
		if i == 0 {
			act.SourceDataset = name
		}
		w.recordDatasetEdge(act, name)
	}
	for i, raw := range getSlice(m, "outputs") {
		out, ok := raw.(map[string]any)
		if !ok {
			continue
		}
		name := getString(out, "referenceName")
		if i == 0 {
			act.SinkDataset = name
		}
		w.recordDatasetEdge(act, name)
	}

	act.SQL = findSQL(getMap(typeProps, "source"))
	if act.SQL != "" {
		act.Tables, act.Columns = sqlscan.ParseSQL(act.SQL, w.sqlMaxLen)
		if len(act.Tables) > 0 {
			act.SourceTable = act.Tables[0]
		}
	}
	if act.SourceTable == "" {
		if ds, ok := w.reg.Datasets[act.SourceDataset]; ok {
			act.SourceTable = qualifiedTable(ds)
		}
	}
	if ds, ok := w.reg.Datasets[act.SinkDataset]; ok {
		act.SinkTable = qualifiedTable(ds)
	}
	act.FilePath = findFilePath(typeProps)
}

func qualifiedTable(ds *model.DatasetRecord) string {
	if ds.Schema != "" && ds.Table != "" {
		return ds.Schema + "." + ds.Table
	}
	return ds.Table
}

func handleExecutePipeline(w *Walker, act *model.Activity, m map[string]any) {
	typeProps := getMap(m, "typeProperties")
	act.InvokedPipeline = referenceName(typeProps, "pipeline")
	w.recordPipelineInvocation(act, act.InvokedPipeline)
}

func handleExecuteDataFlow(w *Walker, act *model.Activity, m map[string]any) {
	typeProps := getMap(m, "typeProperties")
	act.InvokedDataFlow = referenceName(typeProps, "dataFlow")
	w.recordDataFlowInvocation(act, act.InvokedDataFlow)
}

// handleSQLSource covers activities whose type properties carry a query and
// an optional dataset reference (Lookup, Data Explorer commands).
func handleSQLSource(w *Walker, act *model.Activity, m map[string]any) {
	typeProps := getMap(m, "typeProperties")
	act.SQL = findSQL(typeProps)
	if act.SQL != "" {
		act.Tables, act.Columns = sqlscan.ParseSQL(act.SQL, w.sqlMaxLen)
	}
	if name := referenceName(typeProps, "dataset"); name != "" {
		act.SourceDataset = name
		w.recordDatasetEdge(act, name)
	}
}

func handleScript(w *Walker, act *model.Activity, m map[string]any) {
	typeProps := getMap(m, "typeProperties")
	act.SQL = findSQL(typeProps)
	if act.SQL != "" {
		act.Tables, act.Columns = sqlscan.ParseSQL(act.SQL, w.sqlMaxLen)
	}
}

func handleStoredProcedure(w *Walker, act *model.Activity, m map[string]any) {
	typeProps := getMap(m, "typeProperties")
	act.StoredProcedure = resolveAny(typeProps["storedProcedureName"])
}

// handleContainer and handleCondition carry no structural fields of their
// own; the loop/branch expressions are picked up by the reference scan and
// recursion happens in the walker.
func handleContainer(w *Walker, act *model.Activity, m map[string]any) {
}

func handleCondition(w *Walker, act *model.Activity, m map[string]any) {
}

func handleWait(w *Walker, act *model.Activity, m map[string]any) {
	typeProps := getMap(m, "typeProperties")
	act.Timeout = resolveAny(typeProps["waitTimeInSeconds"])
}

func handleWeb(w *Walker, act *model.Activity, m map[string]any) {
	typeProps := getMap(m, "typeProperties")
	act.FilePath = resolveAny(typeProps["url"])
}

func handleAzureFunction(w *Walker, act *model.Activity, m map[string]any) {
	typeProps := getMap(m, "typeProperties")
	act.FilePath = resolveAny(typeProps["functionName"])
}

func handleSetVariable(w *Walker, act *model.Activity, m map[string]any) {
	// Variable name and value references are picked up by the scan.
}

func handleDatasetRef(w *Walker, act *model.Activity, m map[string]any) {
	typeProps := getMap(m, "typeProperties")
	if name := referenceName(typeProps, "dataset"); name != "" {
		act.SourceDataset = name
		w.recordDatasetEdge(act, name)
	}
	act.FilePath = findFilePath(typeProps)
}

func handleFail(w *Walker, act *model.Activity, m map[string]any) {
	// Message and error code are plain expressions; nothing structural.
}

func handleNotebook(w *Walker, act *model.Activity, m map[string]any) {
	typeProps := getMap(m, "typeProperties")
	if path := resolveAny(typeProps["notebookPath"]); path != "" {
		act.FilePath = path
	} else if ref := getMap(typeProps, "notebook"); ref != nil {
		act.FilePath = getString(ref, "referenceName")
	}
}

func handleSparkFile(w *Walker, act *model.Activity, m map[string]any) {
	typeProps := getMap(m, "typeProperties")
	for _, key := range []string{"mainClassName", "pythonFile", "filePath"} {
		if v := resolveAny(typeProps[key]); v != "" {
			act.FilePath = v
			return
		}
	}
}

func handleHDInsight(w *Walker, act *model.Activity, m map[string]any) {
	typeProps := getMap(m, "typeProperties")
	for _, key := range []string{"scriptPath", "entryFilePath"} {
		if v := resolveAny(typeProps[key]); v != "" {
			act.FilePath = v
			return
		}
	}
}

func handleCustom(w *Walker, act *model.Activity, m map[string]any) {
	typeProps := getMap(m, "typeProperties")
	act.FilePath = resolveAny(typeProps["command"])
}

func handleGenericPassthrough(w *Walker, act *model.Activity, m map[string]any) {
	genericHandler(w, act, m)
}

// genericHandler deep-searches the type properties for any dataset
// reference shape ({"referenceName": ..., "type": "DatasetReference"}).
func genericHandler(w *Walker, act *model.Activity, m map[string]any) {
	typeProps := getMap(m, "typeProperties")
	refs := collectDatasetRefs(typeProps, 0)
	sort.Strings(refs)
	for _, name := range refs {
		if act.SourceDataset == "" {
			act.SourceDataset = name
		}
		w.recordDatasetEdge(act, name)
	}
	if act.SQL == "" {
		act.SQL = findSQL(typeProps)
		if act.SQL != "" {
			act.Tables, act.Columns = sqlscan.ParseSQL(act.SQL, w.sqlMaxLen)
		}
	}
	if act.FilePath == "" {
		act.FilePath = findFilePath(typeProps)
	}
}

const maxRefSearchDepth = 6

// collectDatasetRefs recursively finds dataset references in an untyped
// property tree, bounded to avoid runaway recursion.
func collectDatasetRefs(v any, depth int) []string {
	if depth > maxRefSearchDepth {
		return nil
	}
	var refs []string
	switch node := v.(type) {
	case map[string]any:
		if getString(node, "type") == "DatasetReference" {
			if name := getString(node, "referenceName"); name != "" {
				refs = append(refs, name)
			}
		}
		for _, child := range node {
			refs = append(refs, collectDatasetRefs(child, depth+1)...)
		}
	case []any:
		for _, child := range node {
			refs = append(refs, collectDatasetRefs(child, depth+1)...)
		}
	}
	return refs
}
