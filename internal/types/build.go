package types

// BuildFailure classifies why a build did not produce an artifact.
type BuildFailure string

const (
	FailureNone            BuildFailure = ""
	FailureProjectMissing  BuildFailure = "project_missing"
	FailureManifestMissing BuildFailure = "manifest_missing"
	FailureToolFailed      BuildFailure = "tool_failed"
	FailureTimeout         BuildFailure = "timeout"
	FailureNoArtifact      BuildFailure = "no_artifact"
)

// CompilationResult is the normalized outcome of one build invocation.
type CompilationResult struct {
	Success      bool         `json:"success"`
	BuildOutput  string       `json:"buildOutput"`
	Errors       string       `json:"errors,omitempty"`
	ArtifactPath string       `json:"artifactPath,omitempty"`
	Failure      BuildFailure `json:"failure,omitempty"`
}

// Diagnostics returns the most specific failure text available.
func (r CompilationResult) Diagnostics() string {
	if r.Errors != "" {
		return r.Errors
	}
	return r.BuildOutput
}
