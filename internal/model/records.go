package model

// Normalized records produced by the typed resource parsers. Parsers run in
// dependency order (runtime first, trigger last) so later kinds can resolve
// names registered by earlier ones.

// RuntimeRecord describes an integration runtime.
type RuntimeRecord struct {
	Name        string
	Type        string
	Description string
	Location    string
	NodeSize    string
	NodeCount   int
}

// CredentialRecord describes a credential resource.
type CredentialRecord struct {
	Name        string
	Type        string
	Identity    string
	Description string
}

// ManagedNetworkRecord describes a managed virtual network.
type ManagedNetworkRecord struct {
	Name string
}

// ManagedEndpointRecord describes a managed private endpoint inside a
// managed network.
type ManagedEndpointRecord struct {
	Name           string
	Network        string
	TargetResource string
	GroupID        string
}

// ConnectionRecord describes a linked service.
type ConnectionRecord struct {
	Name        string
	Type        string
	Runtime     string
	Endpoint    string
	Database    string
	AuthType    string
	Credential  string
	Description string
}

// DatasetRecord describes a dataset and the connection it points through.
type DatasetRecord struct {
	Name       string
	Type       string
	Connection string
	Schema     string
	Table      string
	FilePath   string
	Format     string
	Folder     string
	Parameters []string
}

// DataFlowEndpoint is one source or sink of a data flow.
type DataFlowEndpoint struct {
	Name       string
	Dataset    string
	Connection string
}

// DataFlowRecord describes a mapping data flow.
type DataFlowRecord struct {
	Name            string
	Type            string
	Folder          string
	Sources         []DataFlowEndpoint
	Sinks           []DataFlowEndpoint
	Transformations []string
	ScriptTables    []string
}

// PipelineRecord describes a pipeline shell; its activities are produced
// separately by the tree walker.
type PipelineRecord struct {
	Name          string
	Folder        string
	Description   string
	Concurrency   int
	Parameters    []string
	Variables     []string
	Annotations   []string
	ActivityCount int
}

// TriggerRecord describes a trigger and the pipelines it starts.
type TriggerRecord struct {
	Name      string
	Type      string
	State     string
	Pipelines []string
	Frequency string
	Interval  int
	StartTime string
	EndTime   string
	Detail    string
}

// GlobalParameter is one factory-level parameter.
type GlobalParameter struct {
	Name  string
	Type  string
	Value string
}
