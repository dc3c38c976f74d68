package artifactory

// Outcome distinguishes the non-failing results of create and remove operations.
type Outcome string

// Outcome enumerations. Failures are reported as errors alongside OutcomeFailed.
const (
	OutcomeCreated        Outcome = Outcome("created")
	OutcomeAlreadyPresent Outcome = Outcome("already_present")
	OutcomeRemoved        Outcome = Outcome("removed")
	OutcomeNotPresent     Outcome = Outcome("not_present")
	OutcomeFailed         Outcome = Outcome("failed")
)

// Changed reports whether the registry state was modified.
func (outcome Outcome) Changed() bool {
	return outcome == OutcomeCreated || outcome == OutcomeRemoved
}

// ResourceKind names the registry entity an operation targets.
type ResourceKind string

// Resource kinds managed by the package.
const (
	ResourceKindRepository ResourceKind = ResourceKind("repository")
	ResourceKindGroup      ResourceKind = ResourceKind("group")
	ResourceKindPermission ResourceKind = ResourceKind("permission")
	ResourceKindUser       ResourceKind = ResourceKind("user")
	ResourceKindAPIKey     ResourceKind = ResourceKind("api key")
	ResourceKindToken      ResourceKind = ResourceKind("access token")
)

// OperationName describes a named registry call.
type OperationName string

// Registry operations.
const (
	OperationExists OperationName = OperationName("exists")
	OperationCreate OperationName = OperationName("create")
	OperationRemove OperationName = OperationName("remove")
	OperationUpdate OperationName = OperationName("update")
	OperationIssue  OperationName = OperationName("issue")
)
