package registry

import (
	"sort"
	"strconv"
	"strings"

	"factorylens/internal/expr"
	"factorylens/internal/logging"
	"factorylens/internal/model"
	"factorylens/internal/sqlscan"
)

// Typed resource parsers. Each one normalizes a raw resource into its
// record, marks provisional usage, and emits the edges its kind owns.

func (r *Registry) parseRuntime(res model.Resource) {
	props := res.Properties
	typeProps := getMap(props, "typeProperties")
	compute := getMap(typeProps, "computeProperties")
	rec := &model.RuntimeRecord{
		Name:        res.Name,
		Type:        getString(props, "type"),
		Description: getString(props, "description"),
		Location:    getString(compute, "location"),
	}
	if dataFlow := getMap(compute, "dataFlowProperties"); dataFlow != nil {
		rec.NodeSize = getString(dataFlow, "coreCount")
	}
	if nodes := getMap(typeProps, "nodeProperties"); nodes != nil {
		rec.NodeCount = getInt(nodes, "numberOfNodes")
	}
	r.Runtimes[res.Name] = rec
}

func (r *Registry) parseCredential(res model.Resource) {
	props := res.Properties
	r.Credentials[res.Name] = &model.CredentialRecord{
		Name:        res.Name,
		Type:        getString(props, "type"),
		Identity:    getString(getMap(props, "typeProperties"), "resourceId"),
		Description: getString(props, "description"),
	}
}

func (r *Registry) parseNetwork(res model.Resource) {
	r.Networks[res.Name] = &model.ManagedNetworkRecord{Name: res.Name}
}

func (r *Registry) parseEndpoint(res model.Resource) {
	typeProps := getMap(res.Properties, "typeProperties")
	network := ""
	if parts := strings.Split(res.Name, "/"); len(parts) > 1 {
		network = parts[0]
	}
	r.Endpoints[res.Name] = &model.ManagedEndpointRecord{
		Name:           res.Name,
		Network:        network,
		TargetResource: getString(typeProps, "privateLinkResourceId"),
		GroupID:        getString(typeProps, "groupId"),
	}
}

func (r *Registry) parseConnection(res model.Resource, logger *logging.Logger) {
	props := res.Properties
	typeProps := getMap(props, "typeProperties")

	rec := &model.ConnectionRecord{
		Name:        res.Name,
		Type:        getString(props, "type"),
		Runtime:     referenceName(props, "connectVia"),
		Description: getString(props, "description"),
		AuthType:    getString(typeProps, "authenticationType"),
		Credential:  referenceName(typeProps, "credential"),
	}

	for _, key := range []string{"url", "baseUrl", "host", "server", "endpoint", "serviceEndpoint", "connectionString"} {
		if v, ok := typeProps[key]; ok {
			rec.Endpoint = expr.Resolve(v)
			break
		}
	}
	for _, key := range []string{"database", "databaseName", "initialCatalog"} {
		if v, ok := typeProps[key]; ok {
			rec.Database = expr.Resolve(v)
			break
		}
	}

	r.Connections[res.Name] = rec

	if rec.Runtime != "" {
		if _, ok := r.Runtimes[rec.Runtime]; !ok {
			logger.Warn("Linked service references unknown integration runtime", map[string]any{
				"linkedService": res.Name,
				"runtime":       rec.Runtime,
			})
		}
		r.Usage.Runtimes[rec.Runtime] = true
		r.Edges = append(r.Edges, model.NewEdge(model.EdgeConnectionRuntime,
			model.NodeID{Kind: model.NodeConnection, Name: res.Name},
			model.NodeID{Kind: model.NodeRuntime, Name: rec.Runtime}))
	}
}

func (r *Registry) parseDataset(res model.Resource, logger *logging.Logger) {
	props := res.Properties
	typeProps := getMap(props, "typeProperties")
	location := getMap(typeProps, "location")

	rec := &model.DatasetRecord{
		Name:       res.Name,
		Type:       getString(props, "type"),
		Connection: referenceName(props, "linkedServiceName"),
		Schema:     expr.Resolve(typeProps["schema"]),
		Folder:     getString(getMap(props, "folder"), "name"),
	}
	if table := typeProps["table"]; table != nil {
		rec.Table = expr.Resolve(table)
	} else if tableName := typeProps["tableName"]; tableName != nil {
		rec.Table = expr.Resolve(tableName)
	}
	if location != nil {
		rec.Format = getString(location, "type")
		parts := make([]string, 0, 3)
		for _, key := range []string{"container", "folderPath", "fileName"} {
			if v := expr.Resolve(location[key]); v != "" {
				parts = append(parts, v)
			}
		}
		rec.FilePath = strings.Join(parts, "/")
	}
	for name := range getMap(props, "parameters") {
		rec.Parameters = append(rec.Parameters, name)
	}
	sort.Strings(rec.Parameters)

	r.Datasets[res.Name] = rec

	if rec.Connection != "" {
		if _, ok := r.Connections[rec.Connection]; !ok {
			logger.Warn("Dataset references unknown linked service", map[string]any{
				"dataset":       res.Name,
				"linkedService": rec.Connection,
			})
		}
		r.Usage.Connections[rec.Connection] = true
		r.Edges = append(r.Edges, model.NewEdge(model.EdgeDatasetConnection,
			model.NodeID{Kind: model.NodeDataset, Name: res.Name},
			model.NodeID{Kind: model.NodeConnection, Name: rec.Connection}))
	}
}

func (r *Registry) parseDataFlow(res model.Resource, logger *logging.Logger) {
	props := res.Properties
	typeProps := getMap(props, "typeProperties")

	rec := &model.DataFlowRecord{
		Name:   res.Name,
		Type:   getString(props, "type"),
		Folder: getString(getMap(props, "folder"), "name"),
	}

	parseEndpoint := func(raw any) (model.DataFlowEndpoint, bool) {
		m, ok := raw.(map[string]any)
		if !ok {
			return model.DataFlowEndpoint{}, false
		}
		return model.DataFlowEndpoint{
			Name:       getString(m, "name"),
			Dataset:    referenceName(m, "dataset"),
			Connection: referenceName(m, "linkedService"),
		}, true
	}

	from := model.NodeID{Kind: model.NodeDataFlow, Name: res.Name}
	for _, raw := range getSlice(typeProps, "sources") {
		ep, ok := parseEndpoint(raw)
		if !ok {
			continue
		}
		rec.Sources = append(rec.Sources, ep)
		r.linkDataFlowEndpoint(from, ep, res.Name, logger)
	}
	for _, raw := range getSlice(typeProps, "sinks") {
		ep, ok := parseEndpoint(raw)
		if !ok {
			continue
		}
		rec.Sinks = append(rec.Sinks, ep)
		r.linkDataFlowEndpoint(from, ep, res.Name, logger)
	}
	for _, raw := range getSlice(typeProps, "transformations") {
		if m, ok := raw.(map[string]any); ok {
			if name := getString(m, "name"); name != "" {
				rec.Transformations = append(rec.Transformations, name)
			}
		}
	}

	// Script lines carry the transformation DSL; any embedded SQL source
	// queries contribute tables.
	var script strings.Builder
	if s := getString(typeProps, "script"); s != "" {
		script.WriteString(s)
	}
	for _, raw := range getSlice(typeProps, "scriptLines") {
		if line, ok := raw.(string); ok {
			script.WriteString(line)
			script.WriteString("\n")
		}
	}
	if script.Len() > 0 {
		tables, _ := sqlscan.ParseSQL(script.String(), sqlscan.DefaultMaxLen)
		rec.ScriptTables = tables
	}

	r.DataFlows[res.Name] = rec
}

func (r *Registry) linkDataFlowEndpoint(from model.NodeID, ep model.DataFlowEndpoint, flow string, logger *logging.Logger) {
	if ep.Dataset != "" {
		if _, ok := r.Datasets[ep.Dataset]; !ok {
			logger.Warn("Data flow references unknown dataset", map[string]any{
				"dataFlow": flow,
				"dataset":  ep.Dataset,
			})
		}
		r.Usage.Datasets[ep.Dataset] = true
		r.Edges = append(r.Edges, model.NewEdge(model.EdgeDataFlowDataset,
			from, model.NodeID{Kind: model.NodeDataset, Name: ep.Dataset}))
	}
	if ep.Connection != "" {
		r.Usage.Connections[ep.Connection] = true
		r.Edges = append(r.Edges, model.NewEdge(model.EdgeDataFlowConnection,
			from, model.NodeID{Kind: model.NodeConnection, Name: ep.Connection}))
	}
}

func (r *Registry) parsePipeline(res model.Resource) {
	props := res.Properties
	rec := &model.PipelineRecord{
		Name:          res.Name,
		Folder:        getString(getMap(props, "folder"), "name"),
		Description:   getString(props, "description"),
		Concurrency:   getInt(props, "concurrency"),
		ActivityCount: len(getSlice(props, "activities")),
	}
	for name := range getMap(props, "parameters") {
		rec.Parameters = append(rec.Parameters, name)
	}
	for name := range getMap(props, "variables") {
		rec.Variables = append(rec.Variables, name)
	}
	sort.Strings(rec.Parameters)
	sort.Strings(rec.Variables)
	for _, raw := range getSlice(props, "annotations") {
		if s, ok := raw.(string); ok {
			rec.Annotations = append(rec.Annotations, s)
		}
	}
	r.Pipelines[res.Name] = rec
}

func (r *Registry) parseTrigger(res model.Resource, logger *logging.Logger) {
	props := res.Properties
	typeProps := getMap(props, "typeProperties")

	rec := &model.TriggerRecord{
		Name:  res.Name,
		Type:  getString(props, "type"),
		State: getString(props, "runtimeState"),
	}

	// Schedule and event triggers carry a pipelines array; tumbling window
	// triggers a single pipeline reference.
	for _, raw := range getSlice(props, "pipelines") {
		m, ok := raw.(map[string]any)
		if !ok {
			continue
		}
		if name := referenceName(m, "pipelineReference"); name != "" {
			rec.Pipelines = append(rec.Pipelines, name)
		}
	}
	if single := getMap(props, "pipeline"); single != nil {
		if name := referenceName(single, "pipelineReference"); name != "" {
			rec.Pipelines = append(rec.Pipelines, name)
		}
	}

	if recurrence := getMap(typeProps, "recurrence"); recurrence != nil {
		rec.Frequency = getString(recurrence, "frequency")
		rec.Interval = getInt(recurrence, "interval")
		rec.StartTime = getString(recurrence, "startTime")
		rec.EndTime = getString(recurrence, "endTime")
	} else {
		rec.Frequency = getString(typeProps, "frequency")
		rec.Interval = getInt(typeProps, "interval")
	}
	rec.Detail = triggerDetail(rec, typeProps)

	r.Triggers[res.Name] = rec

	started := rec.State == "Started"
	from := model.NodeID{Kind: model.NodeTrigger, Name: res.Name}
	for _, pipeline := range rec.Pipelines {
		if _, ok := r.Pipelines[pipeline]; !ok {
			logger.Warn("Trigger references unknown pipeline", map[string]any{
				"trigger":  res.Name,
				"pipeline": pipeline,
			})
		}
		// Only Started triggers mark a pipeline as used.
		if started {
			r.Usage.Pipelines[pipeline] = true
		}
		r.Edges = append(r.Edges, model.NewEdge(model.EdgeTriggerPipeline,
			from, model.NodeID{Kind: model.NodePipeline, Name: pipeline}))
	}
}

// triggerDetail renders a one-line schedule summary for the TriggerDetails
// table.
func triggerDetail(rec *model.TriggerRecord, typeProps map[string]any) string {
	var parts []string
	if rec.Frequency != "" {
		if rec.Interval > 0 {
			parts = append(parts, "every "+strconv.Itoa(rec.Interval)+" "+strings.ToLower(rec.Frequency))
		} else {
			parts = append(parts, strings.ToLower(rec.Frequency))
		}
	}
	if rec.StartTime != "" {
		parts = append(parts, "from "+rec.StartTime)
	}
	if events := getSlice(typeProps, "events"); len(events) > 0 {
		names := make([]string, 0, len(events))
		for _, raw := range events {
			if s, ok := raw.(string); ok {
				names = append(names, s)
			}
		}
		parts = append(parts, "on "+strings.Join(names, ","))
	}
	if path := getString(typeProps, "blobPathBeginsWith"); path != "" {
		parts = append(parts, "path "+path)
	}
	return strings.Join(parts, " ")
}

// parseFactory extracts factory-level global parameters.
func (r *Registry) parseFactory(res model.Resource) {
	globals := getMap(res.Properties, "globalParameters")
	for name, raw := range globals {
		m, ok := raw.(map[string]any)
		if !ok {
			continue
		}
		r.GlobalParameters = append(r.GlobalParameters, model.GlobalParameter{
			Name:  name,
			Type:  getString(m, "type"),
			Value: expr.Resolve(m["value"]),
		})
	}
	sort.Slice(r.GlobalParameters, func(i, j int) bool {
		return r.GlobalParameters[i].Name < r.GlobalParameters[j].Name
	})
}
