package governance

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// JSONStringSlice is a custom GORM type for []string stored as JSON.
type JSONStringSlice []string

// Scan implements the sql.Scanner interface for JSONStringSlice.
func (s *JSONStringSlice) Scan(value any) error {
	if value == nil {
		*s = nil
		return nil
	}
	var bytes []byte
	switch v := value.(type) {
	case string:
		bytes = []byte(v)
	case []byte:
		bytes = v
	default:
		return fmt.Errorf("unsupported type for JSONStringSlice: %T", value)
	}
	return json.Unmarshal(bytes, s)
}

// Value implements the driver.Valuer interface for JSONStringSlice.
func (s JSONStringSlice) Value() (driver.Value, error) {
	if s == nil {
		return nil, nil
	}
	b, err := json.Marshal(s)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

// JSONAny is a custom GORM type for map[string]any stored as JSON.
type JSONAny map[string]any

// Scan implements the sql.Scanner interface for JSONAny.
func (m *JSONAny) Scan(value any) error {
	if value == nil {
		*m = nil
		return nil
	}
	var bytes []byte
	switch v := value.(type) {
	case string:
		bytes = []byte(v)
	case []byte:
		bytes = v
	default:
		return fmt.Errorf("unsupported type for JSONAny: %T", value)
	}
	return json.Unmarshal(bytes, m)
}

// Value implements the driver.Valuer interface for JSONAny.
func (m JSONAny) Value() (driver.Value, error) {
	if m == nil {
		return nil, nil
	}
	b, err := json.Marshal(m)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

// JSONCheckResults is a custom GORM type for []SafetyCheckResult stored as JSON.
type JSONCheckResults []SafetyCheckResult

// Scan implements the sql.Scanner interface for JSONCheckResults.
func (r *JSONCheckResults) Scan(value any) error {
	if value == nil {
		*r = nil
		return nil
	}
	var bytes []byte
	switch v := value.(type) {
	case string:
		bytes = []byte(v)
	case []byte:
		bytes = v
	default:
		return fmt.Errorf("unsupported type for JSONCheckResults: %T", value)
	}
	return json.Unmarshal(bytes, r)
}

// Value implements the driver.Valuer interface for JSONCheckResults.
func (r JSONCheckResults) Value() (driver.Value, error) {
	if r == nil {
		return nil, nil
	}
	b, err := json.Marshal(r)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

// TemplateVersionRecord stores metadata for a registered template version.
// Records are immutable once registered; superseded versions remain valid
// rollback targets and are never deleted.
type TemplateVersionRecord struct {
	ID                    string          `gorm:"primaryKey;column:id;type:varchar(36)"`
	Category              string          `gorm:"column:category;index:idx_version_category;not null"`
	VersionID             string          `gorm:"column:version_id;uniqueIndex:idx_version_id;not null"`
	Title                 string          `gorm:"column:title;not null"`
	Description           string          `gorm:"column:description"`
	ChangeType            string          `gorm:"column:change_type;default:patch;not null"`
	BreakingChanges       JSONStringSlice `gorm:"column:breaking_changes;type:text"`
	DataMigrationRequired bool            `gorm:"column:data_migration_required"`
	UserTrainingRequired  bool            `gorm:"column:user_training_required"`
	ValidationStatus      string          `gorm:"column:validation_status"`
	PerformanceScore      float64         `gorm:"column:performance_score"`
	CreatedBy             string          `gorm:"column:created_by"`
	CreatedAt             time.Time       `gorm:"column:created_at;autoCreateTime"`
}

// TableName returns the GORM table name.
func (TemplateVersionRecord) TableName() string { return "template_versions" }

// TemplateDefaultRecord holds the current-default pointer for one category.
// The version_id column is only ever changed via compare-and-swap (SwapDefault)
// or the emergency rollback path (ForceDefault).
type TemplateDefaultRecord struct {
	Category  string    `gorm:"primaryKey;column:category;type:varchar(32)"`
	VersionID string    `gorm:"column:version_id;not null"`
	UpdatedBy string    `gorm:"column:updated_by"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

// TableName returns the GORM table name.
func (TemplateDefaultRecord) TableName() string { return "template_defaults" }

// ChangeRequestRecord is the persisted form of a governance change request.
//
// ActiveSlot equals the category while the request is non-terminal and is
// cleared (NULL) on any terminal transition. The unique index on it enforces
// the one-active-request-per-category invariant at the database layer,
// independent of the orchestrator's per-category lock.
type ChangeRequestRecord struct {
	ID                      string           `gorm:"primaryKey;column:id;type:varchar(36)"`
	Category                string           `gorm:"column:category;index:idx_request_category;not null"`
	ActiveSlot              *string          `gorm:"column:active_slot;uniqueIndex:idx_request_active_slot"`
	FromVersion             string           `gorm:"column:from_version;not null"`
	ToVersion               string           `gorm:"column:to_version;not null"`
	Reason                  string           `gorm:"column:reason"`
	Requester               string           `gorm:"column:requester;not null"`
	Status                  string           `gorm:"column:status;index:idx_request_status;default:pending_approval;not null"`
	RiskLevel               string           `gorm:"column:risk_level;not null"`
	BreakingChanges         JSONStringSlice  `gorm:"column:breaking_changes;type:text"`
	UserImpactSummary       string           `gorm:"column:user_impact_summary"`
	RollbackEstimateMinutes int              `gorm:"column:rollback_estimate_minutes"`
	DataMigrationRequired   bool             `gorm:"column:data_migration_required"`
	UserTrainingRequired    bool             `gorm:"column:user_training_required"`
	ConfirmationText        string           `gorm:"column:confirmation_text;type:text;not null"`
	SafetyResults           JSONCheckResults `gorm:"column:safety_results;type:text"`
	MismatchCount           int              `gorm:"column:mismatch_count"`
	FailureReason           string           `gorm:"column:failure_reason"`
	CreatedAt               time.Time        `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt               time.Time        `gorm:"column:updated_at;autoUpdateTime"`
	ConfirmedAt             *time.Time       `gorm:"column:confirmed_at"`
	DeployedAt              *time.Time       `gorm:"column:deployed_at"`
	ResolvedAt              *time.Time       `gorm:"column:resolved_at"`
}

// TableName returns the GORM table name.
func (ChangeRequestRecord) TableName() string { return "change_requests" }

// StakeholderApprovalRecord is one required-role approval entry belonging to
// exactly one change request.
type StakeholderApprovalRecord struct {
	ID         string          `gorm:"primaryKey;column:id;type:varchar(36)"`
	RequestID  string          `gorm:"column:request_id;index:idx_approval_request;not null"`
	Role       string          `gorm:"column:role;not null"`
	Identity   string          `gorm:"column:identity;not null"`
	Email      string          `gorm:"column:email"`
	Required   bool            `gorm:"column:required;not null"`
	Approved   bool            `gorm:"column:approved"`
	ApprovedAt *time.Time      `gorm:"column:approved_at"`
	Notes      string          `gorm:"column:notes"`
	Conditions JSONStringSlice `gorm:"column:conditions;type:text"`
	CreatedAt  time.Time       `gorm:"column:created_at;autoCreateTime"`
}

// TableName returns the GORM table name.
func (StakeholderApprovalRecord) TableName() string { return "stakeholder_approvals" }

// HistoryEntryRecord is an immutable entry in a category's deployment ledger.
// Entries are appended only at successful deployment; a failed attempt
// produces no ledger entry.
type HistoryEntryRecord struct {
	ID               string           `gorm:"primaryKey;column:id;type:varchar(36)"`
	Category         string           `gorm:"column:category;index:idx_history_category;not null"`
	Action           string           `gorm:"column:action;not null"`
	FromVersion      string           `gorm:"column:from_version;not null"`
	ToVersion        string           `gorm:"column:to_version;not null"`
	RequestID        string           `gorm:"column:request_id;index:idx_history_request"`
	ConfirmationText string           `gorm:"column:confirmation_text;type:text"`
	ConfirmedBy      string           `gorm:"column:confirmed_by;not null"`
	Approvers        JSONStringSlice  `gorm:"column:approvers;type:text"`
	RequestedAt      time.Time        `gorm:"column:requested_at"`
	ConfirmedAt      time.Time        `gorm:"column:confirmed_at"`
	DeployedAt       time.Time        `gorm:"column:deployed_at"`
	RollbackSafe     bool             `gorm:"column:rollback_safe"`
	SafetyResults    JSONCheckResults `gorm:"column:safety_results;type:text"`
	CreatedAt        time.Time        `gorm:"column:created_at;autoCreateTime"`
}

// TableName returns the GORM table name.
func (HistoryEntryRecord) TableName() string { return "version_history" }

// AuditEventRecord is an immutable audit log entry.
type AuditEventRecord struct {
	ID            string    `gorm:"primaryKey;column:id;type:varchar(36)"`
	CorrelationID string    `gorm:"column:correlation_id;index"`
	EventType     string    `gorm:"column:event_type;index:idx_audit_type_time,priority:1;not null"`
	Actor         string    `gorm:"column:actor;not null"`
	Category      string    `gorm:"column:category;index:idx_audit_category_time,priority:1"`
	RequestID     string    `gorm:"column:request_id;index"`
	VersionID     string    `gorm:"column:version_id"`
	Action        string    `gorm:"column:action"`
	Outcome       string    `gorm:"column:outcome;not null"` // success, failure, denied, pending, escalated
	Reason        string    `gorm:"column:reason"`
	OldValue      JSONAny   `gorm:"column:old_value;type:text"`
	NewValue      JSONAny   `gorm:"column:new_value;type:text"`
	CreatedAt     time.Time `gorm:"column:created_at;index:idx_audit_type_time,priority:2;index:idx_audit_category_time,priority:2;autoCreateTime"`
}

// TableName returns the GORM table name.
func (AuditEventRecord) TableName() string { return "audit_events" }
