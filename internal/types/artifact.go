package types

import "time"

// Generated artifacts -------------------------------------------------------------

// ArtifactKind classifies a generated file.
type ArtifactKind string

const (
	ArtifactTest       ArtifactKind = "test"
	ArtifactLoadTest   ArtifactKind = "load_test"
	ArtifactMockServer ArtifactKind = "mock_server"
	ArtifactSeedData   ArtifactKind = "seed_data"
	ArtifactDeploy     ArtifactKind = "deploy"
)

// Artifact is one generated file: test source, mock source, seed data or a
// deployment descriptor.
type Artifact struct {
	Framework string       `json:"framework,omitempty"`
	Filename  string       `json:"filename"`
	Kind      ArtifactKind `json:"kind"`
	Content   string       `json:"content"`
}

// MockBundle is everything the mock stage produces.
type MockBundle struct {
	ServerDefinition      Artifact   `json:"server_definition"`
	SeedData              Artifact   `json:"seed_data"`
	DeploymentDescriptors []Artifact `json:"deployment_descriptors"`
	SampleEndpoints       []string   `json:"sample_endpoints"`
}

// Artifacts flattens the bundle into a writable list.
func (b MockBundle) Artifacts() []Artifact {
	out := []Artifact{b.ServerDefinition, b.SeedData}
	return append(out, b.DeploymentDescriptors...)
}

// RunResult ----------------------------------------------------------------------

// RunResult is the best-effort bundle an orchestration run returns. Errors is
// non-empty whenever some stage degraded; the run still carries every
// artifact that was produced.
type RunResult struct {
	RunID       string      `json:"run_id"`
	SourcePath  string      `json:"source_path"`
	Endpoints   []Endpoint  `json:"endpoints"`
	Spec        SpecDoc     `json:"spec"`
	Tests       []Artifact  `json:"tests,omitempty"`
	Mock        *MockBundle `json:"mock,omitempty"`
	Findings    []Finding   `json:"findings,omitempty"`
	Errors      []string    `json:"errors,omitempty"`
	StartedAt   time.Time   `json:"started_at"`
	CompletedAt time.Time   `json:"completed_at"`
}

// Finding is one structured observation from the external analysis
// collaborator. The core passes these through without interpreting them.
type Finding struct {
	Category string `json:"category"`
	Severity string `json:"severity,omitempty"`
	Target   string `json:"target,omitempty"`
	Summary  string `json:"summary"`
}
