package governance

// TemplateCategory identifies an independent governance lane for one class
// of business-document template. Categories never share state.
type TemplateCategory string

const (
	CategoryInvoice  TemplateCategory = "invoice"
	CategoryEstimate TemplateCategory = "estimate"
	CategoryReceipt  TemplateCategory = "receipt"
)

// Categories lists all known template categories.
var Categories = []TemplateCategory{CategoryInvoice, CategoryEstimate, CategoryReceipt}

// Valid reports whether the category is one of the known governance lanes.
func (c TemplateCategory) Valid() bool {
	for _, known := range Categories {
		if c == known {
			return true
		}
	}
	return false
}

// RiskLevel classifies how disruptive a default-template change is.
type RiskLevel string

const (
	RiskLow      RiskLevel = "low"
	RiskMedium   RiskLevel = "medium"
	RiskHigh     RiskLevel = "high"
	RiskCritical RiskLevel = "critical"
)

// RequestStatus represents the state of a change request.
type RequestStatus string

const (
	StatusPendingApproval     RequestStatus = "pending_approval"
	StatusPendingConfirmation RequestStatus = "pending_confirmation"
	StatusDeployed            RequestStatus = "deployed"
	StatusFailed              RequestStatus = "failed"
	StatusCancelled           RequestStatus = "cancelled"
)

// Terminal reports whether no further transitions are permitted.
func (s RequestStatus) Terminal() bool {
	switch s {
	case StatusDeployed, StatusFailed, StatusCancelled:
		return true
	}
	return false
}

// StakeholderRole identifies an approval role in the workflow.
type StakeholderRole string

const (
	RoleTechnicalLead StakeholderRole = "technical_lead"
	RoleDesignLead    StakeholderRole = "design_lead"
	RoleProductOwner  StakeholderRole = "product_owner"
	RoleBusinessOwner StakeholderRole = "business_owner"
)

// ChangeType classifies the version delta attached to a template version.
type ChangeType string

const (
	ChangeMajor ChangeType = "major"
	ChangeMinor ChangeType = "minor"
	ChangePatch ChangeType = "patch"
)

// CheckSeverity classifies how a safety check result gates a change.
type CheckSeverity string

const (
	SeverityBlocking CheckSeverity = "blocking"
	SeverityWarning  CheckSeverity = "warning"
	SeverityInfo     CheckSeverity = "info"
)

// HistoryAction is the kind of event recorded in the version history ledger.
type HistoryAction string

const (
	ActionSetDefault HistoryAction = "set_default"
	ActionRollback   HistoryAction = "rollback"
	ActionCreated    HistoryAction = "created"
	ActionDeprecated HistoryAction = "deprecated"
)

// TemplateVersion is the API-facing template version metadata.
// Versions are created externally; this service only registers and reads them.
type TemplateVersion struct {
	VersionID             string           `json:"versionId"`
	Category              TemplateCategory `json:"category"`
	Title                 string           `json:"title"`
	Description           string           `json:"description,omitempty"`
	ChangeType            ChangeType       `json:"changeType"`
	BreakingChanges       []string         `json:"breakingChanges,omitempty"`
	DataMigrationRequired bool             `json:"dataMigrationRequired"`
	UserTrainingRequired  bool             `json:"userTrainingRequired"`
	ValidationStatus      string           `json:"validationStatus,omitempty"`
	PerformanceScore      float64          `json:"performanceScore,omitempty"`
	CreatedBy             string           `json:"createdBy,omitempty"`
	CreatedAt             string           `json:"createdAt"`
}

// ImpactAssessment is the computed impact of a from/to version change.
type ImpactAssessment struct {
	RiskLevel               RiskLevel `json:"riskLevel"`
	BreakingChanges         []string  `json:"breakingChanges,omitempty"`
	UserImpactSummary       string    `json:"userImpactSummary"`
	RollbackEstimateMinutes int       `json:"rollbackEstimateMinutes"`
	DataMigrationRequired   bool      `json:"dataMigrationRequired"`
	UserTrainingRequired    bool      `json:"userTrainingRequired"`
}

// SafetyCheckResult is the outcome of a single safety check execution.
// Results are transient; they are recomputed per attempt and summarized into
// the change request and history entry.
type SafetyCheckResult struct {
	Name           string        `json:"name"`
	Type           string        `json:"type"` // automated or manual
	Severity       CheckSeverity `json:"severity"`
	Passed         bool          `json:"passed"`
	Error          string        `json:"error,omitempty"`
	DurationMillis int64         `json:"durationMillis"`
}

// StakeholderApproval is one required-role approval entry on a change request.
// It is mutated exactly once, by the owning stakeholder approving.
type StakeholderApproval struct {
	ID         string          `json:"id"`
	Role       StakeholderRole `json:"role"`
	Identity   string          `json:"identity"`
	Email      string          `json:"email,omitempty"`
	Required   bool            `json:"required"`
	Approved   bool            `json:"approved"`
	ApprovedAt string          `json:"approvedAt,omitempty"`
	Notes      string          `json:"notes,omitempty"`
	Conditions []string        `json:"conditions,omitempty"`
}

// ChangeRequest is the API-facing governance transaction.
type ChangeRequest struct {
	ID               string                `json:"id"`
	Category         TemplateCategory      `json:"category"`
	FromVersion      string                `json:"fromVersion"`
	ToVersion        string                `json:"toVersion"`
	Reason           string                `json:"reason"`
	Requester        string                `json:"requester"`
	Status           RequestStatus         `json:"status"`
	Impact           ImpactAssessment      `json:"impact"`
	ConfirmationText string                `json:"confirmationText"`
	Approvals        []StakeholderApproval `json:"approvals"`
	SafetyResults    []SafetyCheckResult   `json:"safetyResults,omitempty"`
	Warnings         []string              `json:"warnings,omitempty"`
	MismatchCount    int                   `json:"mismatchCount,omitempty"`
	FailureReason    string                `json:"failureReason,omitempty"`
	CreatedAt        string                `json:"createdAt"`
	ConfirmedAt      string                `json:"confirmedAt,omitempty"`
	DeployedAt       string                `json:"deployedAt,omitempty"`
	ResolvedAt       string                `json:"resolvedAt,omitempty"`
}

// VersionHistoryEntry is one immutable record in a category's deployment ledger.
type VersionHistoryEntry struct {
	ID               string              `json:"id"`
	Category         TemplateCategory    `json:"category"`
	Action           HistoryAction       `json:"action"`
	FromVersion      string              `json:"fromVersion"`
	ToVersion        string              `json:"toVersion"`
	RequestID        string              `json:"requestId"`
	ConfirmationText string              `json:"confirmationText"`
	ConfirmedBy      string              `json:"confirmedBy"`
	Approvers        []string            `json:"approvers"`
	RequestedAt      string              `json:"requestedAt"`
	ConfirmedAt      string              `json:"confirmedAt"`
	DeployedAt       string              `json:"deployedAt"`
	RollbackSafe     bool                `json:"rollbackSafe"`
	SafetyResults    []SafetyCheckResult `json:"safetyResults,omitempty"`
}

// ChangeRequestList is a list of change requests.
type ChangeRequestList struct {
	Requests  []ChangeRequest `json:"requests"`
	TotalSize int             `json:"totalSize"`
}

// VersionHistoryList is a category's ordered deployment ledger.
type VersionHistoryList struct {
	Category  TemplateCategory      `json:"category"`
	Entries   []VersionHistoryEntry `json:"entries"`
	TotalSize int                   `json:"totalSize"`
}

// TemplateVersionList is a list of registered template versions.
type TemplateVersionList struct {
	Category  TemplateCategory  `json:"category"`
	Versions  []TemplateVersion `json:"versions"`
	TotalSize int               `json:"totalSize"`
}

// CurrentDefaultResponse is the API response for the current-default lookup.
type CurrentDefaultResponse struct {
	Category  TemplateCategory `json:"category"`
	VersionID string           `json:"versionId"`
}

// ApprovalOutcome is the API response for an approval submission.
type ApprovalOutcome struct {
	RequestID     string        `json:"requestId"`
	Role          string        `json:"role"`
	QuorumReached bool          `json:"quorumReached"`
	Status        RequestStatus `json:"status"`
	Warnings      []string      `json:"warnings,omitempty"`
}
