package governance

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// DefaultStore is the narrow view of the registry the orchestrator uses for
// the current-default pointer. *VersionRegistry satisfies it; tests inject
// faulty implementations to exercise the rollback paths.
type DefaultStore interface {
	CurrentDefault(category TemplateCategory) (string, error)
	SwapDefault(category TemplateCategory, fromVersion, toVersion, actor string) (bool, error)
	ForceDefault(category TemplateCategory, versionID, actor string) error
}

// Orchestrator drives the change-request lifecycle: creation, approval
// collection, confirmation, atomic default swap with rollback-on-failure,
// and history commit.
//
// Mutating operations are serialized per category by an in-process lock; the
// registry's compare-and-swap is the independent cross-process guard.
type Orchestrator struct {
	registry  *VersionRegistry
	defaults  DefaultStore
	requests  *RequestStore
	history   *HistoryStore
	assessor  *ImpactAssessor
	directory StakeholderDirectory
	safety    *SafetyRunner
	audit     *AuditTrail
	notifier  NotificationService
	logger    *slog.Logger

	emergencyContact Stakeholder

	mu            sync.Mutex
	categoryLocks map[TemplateCategory]*sync.Mutex
}

// NewOrchestrator wires the governance engine.
func NewOrchestrator(
	registry *VersionRegistry,
	requests *RequestStore,
	history *HistoryStore,
	assessor *ImpactAssessor,
	directory StakeholderDirectory,
	safety *SafetyRunner,
	audit *AuditTrail,
	notifier NotificationService,
	logger *slog.Logger,
) *Orchestrator {
	return &Orchestrator{
		registry:      registry,
		defaults:      registry,
		requests:      requests,
		history:       history,
		assessor:      assessor,
		directory:     directory,
		safety:        safety,
		audit:         audit,
		notifier:      notifier,
		logger:        logger,
		categoryLocks: make(map[TemplateCategory]*sync.Mutex),
	}
}

// SetDefaultStore overrides the default-pointer store. Used by tests to
// inject registry faults.
func (o *Orchestrator) SetDefaultStore(ds DefaultStore) {
	o.defaults = ds
}

// SetEmergencyContact configures the stakeholder paged when an emergency
// rollback itself fails.
func (o *Orchestrator) SetEmergencyContact(s Stakeholder) {
	o.emergencyContact = s
}

// lockCategory acquires the category's serialization lock and returns the
// unlock function.
func (o *Orchestrator) lockCategory(category TemplateCategory) func() {
	o.mu.Lock()
	lock, ok := o.categoryLocks[category]
	if !ok {
		lock = &sync.Mutex{}
		o.categoryLocks[category] = lock
	}
	o.mu.Unlock()

	lock.Lock()
	return lock.Unlock
}

// RequestChange opens a new change request for a category.
//
// fromVersion must equal the category's current registered default
// (StaleDefaultConflict otherwise), and no other active request may exist for
// the category (ConcurrentChangeConflict). The returned request carries the
// verbatim confirmation text the confirmer must later reproduce exactly.
func (o *Orchestrator) RequestChange(ctx context.Context, category TemplateCategory, fromVersion, toVersion, reason, requester string) (*ChangeRequest, error) {
	if !category.Valid() {
		return nil, fmt.Errorf("unknown template category: %s", category)
	}
	if reason == "" {
		return nil, fmt.Errorf("change reason is required")
	}
	if requester == "" {
		return nil, fmt.Errorf("requester identity is required")
	}

	unlock := o.lockCategory(category)
	defer unlock()

	current, err := o.defaults.CurrentDefault(category)
	if err != nil {
		return nil, err
	}
	if current == "" {
		return nil, fmt.Errorf("category %s has no registered default", category)
	}
	if fromVersion != current {
		return nil, govErr(CodeStaleDefaultConflict,
			"from-version %s does not match the current default %s for category %s; refetch and retry",
			fromVersion, current, category)
	}
	if fromVersion == toVersion {
		return nil, fmt.Errorf("from-version and to-version must differ")
	}

	active, err := o.requests.ActiveForCategory(category)
	if err != nil {
		return nil, err
	}
	if active != nil {
		return nil, govErr(CodeConcurrentChangeConflict,
			"change request %s is already active for category %s", active.ID, category)
	}

	impact, err := o.assessor.Assess(category, fromVersion, toVersion)
	if err != nil {
		return nil, err
	}

	// Initial safety run. Results are recorded on the request but do not gate
	// creation; the blocking gate applies at quorum and again at confirm.
	checks := o.safety.Run(ctx, category, fromVersion, toVersion)

	roles := RequiredRoles(impact.RiskLevel)
	now := time.Now()
	requestID := uuid.New().String()

	approvals := make([]StakeholderApprovalRecord, 0, len(roles))
	approverEmails := make([]string, 0, len(roles))
	for _, role := range roles {
		stakeholder, err := o.directory.Resolve(role)
		if err != nil {
			return nil, fmt.Errorf("resolve approver for role %s: %w", role, err)
		}
		approvals = append(approvals, StakeholderApprovalRecord{
			ID:        uuid.New().String(),
			RequestID: requestID,
			Role:      string(role),
			Identity:  stakeholder.Name,
			Email:     stakeholder.Email,
			Required:  true,
		})
		approverEmails = append(approverEmails, stakeholder.Email)
	}

	confirmationText := BuildConfirmationText(category, fromVersion, toVersion, requester, impact, now)

	slot := string(category)
	record := &ChangeRequestRecord{
		ID:                      requestID,
		Category:                string(category),
		ActiveSlot:              &slot,
		FromVersion:             fromVersion,
		ToVersion:               toVersion,
		Reason:                  reason,
		Requester:               requester,
		Status:                  string(StatusPendingApproval),
		RiskLevel:               string(impact.RiskLevel),
		BreakingChanges:         JSONStringSlice(impact.BreakingChanges),
		UserImpactSummary:       impact.UserImpactSummary,
		RollbackEstimateMinutes: impact.RollbackEstimateMinutes,
		DataMigrationRequired:   impact.DataMigrationRequired,
		UserTrainingRequired:    impact.UserTrainingRequired,
		ConfirmationText:        confirmationText,
		SafetyResults:           JSONCheckResults(checks),
	}

	if err := o.requests.Create(record, approvals); err != nil {
		return nil, err
	}

	o.audit.Record(&AuditEventRecord{
		CorrelationID: requestID,
		EventType:     "governance.request.created",
		Actor:         requester,
		Category:      string(category),
		RequestID:     requestID,
		VersionID:     toVersion,
		Action:        "requestChange",
		Outcome:       "success",
		Reason:        reason,
		OldValue:      JSONAny{"versionId": fromVersion},
		NewValue:      JSONAny{"versionId": toVersion, "riskLevel": string(impact.RiskLevel)},
	})

	o.notify(ctx, Notification{
		Kind:       "approval_requested",
		Category:   category,
		RequestID:  requestID,
		Subject:    fmt.Sprintf("Approval required: %s default change %s -> %s (%s risk)", category, fromVersion, toVersion, impact.RiskLevel),
		Body:       reason,
		Recipients: approverEmails,
	})

	return recordToChangeRequest(record, approvals), nil
}

// Approve records a stakeholder approval and reports whether quorum was
// reached and the request advanced to pending_confirmation.
//
// Approvals are a one-way ratchet: re-approval by the same (role, identity)
// pair is rejected, and there is no revocation. When quorum is reached but a
// blocking safety check fails, the request stays in pending_approval and the
// failure is returned (and surfaced to the requester) so the underlying issue
// can be fixed.
func (o *Orchestrator) Approve(ctx context.Context, requestID string, role StakeholderRole, identity, notes string, conditions []string) (bool, error) {
	record, _, err := o.requests.Get(requestID)
	if err != nil {
		return false, err
	}
	if record == nil {
		return false, ErrRequestNotFound
	}

	category := TemplateCategory(record.Category)
	unlock := o.lockCategory(category)
	defer unlock()

	// Reload under the lock; a concurrent cancel may have landed.
	record, approvals, err := o.requests.Get(requestID)
	if err != nil {
		return false, err
	}
	if record == nil {
		return false, ErrRequestNotFound
	}
	if record.Status != string(StatusPendingApproval) {
		return false, govErr(CodeInvalidRequestState,
			"change request %s is %s, not pending_approval", requestID, record.Status)
	}

	var entry *StakeholderApprovalRecord
	for i := range approvals {
		if approvals[i].Role == string(role) {
			entry = &approvals[i]
			break
		}
	}
	if entry == nil {
		return false, govErr(CodeUnknownApprover,
			"role %s is not a required approver for request %s", role, requestID)
	}
	if identity != "" && entry.Identity != identity {
		return false, govErr(CodeUnknownApprover,
			"identity %q does not match the configured %s stakeholder", identity, role)
	}
	if entry.Approved {
		return false, govErr(CodeAlreadyApproved,
			"role %s already approved request %s", role, requestID)
	}

	now := time.Now()
	entry.Approved = true
	entry.ApprovedAt = &now
	entry.Notes = notes
	entry.Conditions = JSONStringSlice(conditions)
	if err := o.requests.SaveApproval(entry); err != nil {
		return false, err
	}

	o.audit.Record(&AuditEventRecord{
		CorrelationID: requestID,
		EventType:     "governance.request.approved",
		Actor:         entry.Identity,
		Category:      record.Category,
		RequestID:     requestID,
		Action:        fmt.Sprintf("approve.%s", role),
		Outcome:       "success",
		Reason:        notes,
	})

	if !QuorumReached(approvals) {
		return false, nil
	}

	// Quorum met: re-run safety checks before opening the confirmation gate.
	checks := o.safety.Run(ctx, category, record.FromVersion, record.ToVersion)
	record.SafetyResults = JSONCheckResults(checks)

	if failure := BlockingFailure(checks); failure != nil {
		// The approval stands; the request stays in pending_approval so the
		// requester can fix the issue and the gate re-evaluates on the next
		// approval cycle or re-request.
		if err := o.requests.Save(record); err != nil {
			return false, err
		}
		o.audit.Record(&AuditEventRecord{
			CorrelationID: requestID,
			EventType:     "governance.safety.blocked",
			Actor:         "system",
			Category:      record.Category,
			RequestID:     requestID,
			Action:        "approve",
			Outcome:       "failure",
			Reason:        failure.Error,
		})
		o.notify(ctx, Notification{
			Kind:      "safety_check_failed",
			Category:  category,
			RequestID: requestID,
			Subject:   fmt.Sprintf("Safety check %s failed for %s change request", failure.Name, category),
			Body:      failure.Error,
		})
		return false, govErr(CodeSafetyCheckFailed,
			"quorum reached but blocking safety check %s failed: %s", failure.Name, failure.Error)
	}

	record.Status = string(StatusPendingConfirmation)
	if err := o.requests.Save(record); err != nil {
		return false, err
	}

	warnings := CheckWarnings(checks)
	o.audit.Record(&AuditEventRecord{
		CorrelationID: requestID,
		EventType:     "governance.request.quorum_reached",
		Actor:         entry.Identity,
		Category:      record.Category,
		RequestID:     requestID,
		Action:        "approve",
		Outcome:       "success",
		NewValue:      JSONAny{"status": string(StatusPendingConfirmation), "warnings": warnings},
	})
	o.notify(ctx, Notification{
		Kind:      "confirmation_required",
		Category:  category,
		RequestID: requestID,
		Subject:   fmt.Sprintf("All approvals received: %s change awaiting confirmation", category),
		Body:      confirmationBody(record.ConfirmationText, warnings),
	})

	return true, nil
}

// Confirm finalizes a fully approved change. The submitted text must exactly
// match the stored confirmation text (modulo surrounding whitespace); safety
// checks are re-run; the default pointer is swapped and verified; on
// verification failure the pointer is rolled back and the request fails.
// From the caller's perspective the operation either fully succeeds (deployed,
// ledger entry appended, registry updated) or fully fails (request failed,
// registry unchanged, no ledger entry).
func (o *Orchestrator) Confirm(ctx context.Context, requestID, confirmationText, confirmer string) (*VersionHistoryEntry, error) {
	record, _, err := o.requests.Get(requestID)
	if err != nil {
		return nil, err
	}
	if record == nil {
		return nil, ErrRequestNotFound
	}

	category := TemplateCategory(record.Category)
	unlock := o.lockCategory(category)
	defer unlock()

	record, approvals, err := o.requests.Get(requestID)
	if err != nil {
		return nil, err
	}
	if record == nil {
		return nil, ErrRequestNotFound
	}
	if record.Status != string(StatusPendingConfirmation) {
		return nil, govErr(CodeInvalidRequestState,
			"change request %s is %s, not pending_confirmation", requestID, record.Status)
	}

	// Step 1: exact text match. Mismatches are security-relevant events.
	if !ConfirmationMatches(confirmationText, record.ConfirmationText) {
		record.MismatchCount++
		if err := o.requests.Save(record); err != nil {
			return nil, err
		}
		o.audit.Record(&AuditEventRecord{
			CorrelationID: requestID,
			EventType:     "governance.confirmation.mismatch",
			Actor:         confirmer,
			Category:      record.Category,
			RequestID:     requestID,
			Action:        "confirm",
			Outcome:       "denied",
			Reason:        fmt.Sprintf("confirmation text mismatch (attempt %d)", record.MismatchCount),
		})
		return nil, govErr(CodeConfirmationMismatch,
			"confirmation text does not match; the request remains open for retry with the exact stored text")
	}

	// Step 2: final safety re-check; time has passed since assessment.
	checks := o.safety.Run(ctx, category, record.FromVersion, record.ToVersion)
	record.SafetyResults = JSONCheckResults(checks)
	if failure := BlockingFailure(checks); failure != nil {
		if err := o.requests.Save(record); err != nil {
			return nil, err
		}
		o.audit.Record(&AuditEventRecord{
			CorrelationID: requestID,
			EventType:     "governance.safety.blocked",
			Actor:         confirmer,
			Category:      record.Category,
			RequestID:     requestID,
			Action:        "confirm",
			Outcome:       "failure",
			Reason:        failure.Error,
		})
		return nil, govErr(CodeSafetyCheckFailed,
			"final safety check %s failed: %s", failure.Name, failure.Error)
	}

	// Step 3: construct the ledger entry before touching the registry.
	now := time.Now()
	approverNames := make(JSONStringSlice, 0, len(approvals))
	for _, a := range approvals {
		if a.Approved {
			approverNames = append(approverNames, a.Identity)
		}
	}
	entry := &HistoryEntryRecord{
		ID:               uuid.New().String(),
		Category:         record.Category,
		Action:           string(ActionSetDefault),
		FromVersion:      record.FromVersion,
		ToVersion:        record.ToVersion,
		RequestID:        requestID,
		ConfirmationText: record.ConfirmationText,
		ConfirmedBy:      confirmer,
		Approvers:        approverNames,
		RequestedAt:      record.CreatedAt,
		ConfirmedAt:      now,
		DeployedAt:       now,
		RollbackSafe:     true,
		SafetyResults:    JSONCheckResults(checks),
	}

	// Step 4: atomic compare-and-swap of the default pointer.
	swapped, err := o.defaults.SwapDefault(category, record.FromVersion, record.ToVersion, confirmer)
	if err != nil || !swapped {
		reason := "default pointer no longer matches the requested from-version"
		if err != nil {
			reason = err.Error()
		}
		o.failRequest(ctx, record, confirmer, reason)
		return nil, govErr(CodeSwapVerificationFailed, "default swap failed: %s", reason)
	}

	// Step 5: post-swap verification, with emergency rollback on mismatch.
	verified, err := o.defaults.CurrentDefault(category)
	if err != nil || verified != record.ToVersion {
		reason := fmt.Sprintf("post-swap verification read %q, expected %q", verified, record.ToVersion)
		if err != nil {
			reason = fmt.Sprintf("post-swap verification failed: %v", err)
		}
		if rbErr := o.defaults.ForceDefault(category, record.FromVersion, "system"); rbErr != nil {
			o.escalateRollbackFailure(ctx, record, confirmer, reason, rbErr)
			return nil, govErr(CodeEmergencyRollbackFailed,
				"deployment verification failed and emergency rollback also failed: %v", rbErr)
		}
		o.failRequest(ctx, record, confirmer, reason)
		o.audit.Record(&AuditEventRecord{
			CorrelationID: requestID,
			EventType:     "governance.deployment.rolled_back",
			Actor:         "system",
			Category:      record.Category,
			RequestID:     requestID,
			VersionID:     record.FromVersion,
			Action:        "rollback",
			Outcome:       "success",
			Reason:        reason,
		})
		return nil, govErr(CodeSwapVerificationFailed, "%s; default restored to %s", reason, record.FromVersion)
	}

	// Step 6: commit the deployment — ledger entry and terminal status in one
	// transaction. If the commit fails the pointer is restored so the caller
	// observes a clean failure.
	confirmedAt := now
	record.Status = string(StatusDeployed)
	record.ConfirmedAt = &confirmedAt
	record.DeployedAt = &confirmedAt
	record.ResolvedAt = &confirmedAt
	record.ActiveSlot = nil

	err = o.requests.Transaction(func(tx *gorm.DB) error {
		if err := o.history.appendTx(tx, entry); err != nil {
			return err
		}
		return o.requests.saveTx(tx, record)
	})
	if err != nil {
		record.ConfirmedAt = nil
		record.DeployedAt = nil
		if rbErr := o.defaults.ForceDefault(category, record.FromVersion, "system"); rbErr != nil {
			o.escalateRollbackFailure(ctx, record, confirmer, err.Error(), rbErr)
			return nil, govErr(CodeEmergencyRollbackFailed,
				"deployment commit failed and emergency rollback also failed: %v", rbErr)
		}
		o.failRequest(ctx, record, confirmer, fmt.Sprintf("deployment commit failed: %v", err))
		return nil, govErr(CodeSwapVerificationFailed,
			"deployment commit failed: %v; default restored to %s", err, record.FromVersion)
	}

	o.audit.Record(&AuditEventRecord{
		CorrelationID: requestID,
		EventType:     "governance.default.changed",
		Actor:         confirmer,
		Category:      record.Category,
		RequestID:     requestID,
		VersionID:     record.ToVersion,
		Action:        "confirm",
		Outcome:       "success",
		OldValue:      JSONAny{"versionId": record.FromVersion},
		NewValue:      JSONAny{"versionId": record.ToVersion},
	})
	o.notify(ctx, Notification{
		Kind:      "deployed",
		Category:  category,
		RequestID: requestID,
		Subject: fmt.Sprintf("Default %s template changed: %s -> %s",
			category, record.FromVersion, record.ToVersion),
	})

	return recordToHistoryEntry(entry), nil
}

// Cancel aborts a non-terminal change request and frees the category's
// active-request slot.
func (o *Orchestrator) Cancel(ctx context.Context, requestID, reason, actor string) error {
	record, _, err := o.requests.Get(requestID)
	if err != nil {
		return err
	}
	if record == nil {
		return ErrRequestNotFound
	}

	category := TemplateCategory(record.Category)
	unlock := o.lockCategory(category)
	defer unlock()

	record, _, err = o.requests.Get(requestID)
	if err != nil {
		return err
	}
	if record == nil {
		return ErrRequestNotFound
	}
	if RequestStatus(record.Status).Terminal() {
		return govErr(CodeInvalidRequestState,
			"change request %s is already %s", requestID, record.Status)
	}

	now := time.Now()
	record.Status = string(StatusCancelled)
	record.FailureReason = reason
	record.ResolvedAt = &now
	record.ActiveSlot = nil
	if err := o.requests.Save(record); err != nil {
		return err
	}

	o.audit.Record(&AuditEventRecord{
		CorrelationID: requestID,
		EventType:     "governance.request.cancelled",
		Actor:         actor,
		Category:      record.Category,
		RequestID:     requestID,
		Action:        "cancel",
		Outcome:       "success",
		Reason:        reason,
	})
	o.notify(ctx, Notification{
		Kind:      "cancelled",
		Category:  category,
		RequestID: requestID,
		Subject:   fmt.Sprintf("%s change request cancelled by %s", category, actor),
		Body:      reason,
	})
	return nil
}

// GetRequest returns a change request with its approval entries.
func (o *Orchestrator) GetRequest(requestID string) (*ChangeRequest, error) {
	record, approvals, err := o.requests.Get(requestID)
	if err != nil {
		return nil, err
	}
	if record == nil {
		return nil, ErrRequestNotFound
	}
	return recordToChangeRequest(record, approvals), nil
}

// ListRequests returns requests, optionally restricted to active ones.
func (o *Orchestrator) ListRequests(activeOnly bool) ([]ChangeRequest, error) {
	records, err := o.requests.List(activeOnly)
	if err != nil {
		return nil, err
	}
	out := make([]ChangeRequest, 0, len(records))
	for i := range records {
		_, approvals, err := o.requests.Get(records[i].ID)
		if err != nil {
			return nil, err
		}
		out = append(out, *recordToChangeRequest(&records[i], approvals))
	}
	return out, nil
}

// CurrentDefault returns the category's live default version id.
func (o *Orchestrator) CurrentDefault(category TemplateCategory) (string, error) {
	return o.defaults.CurrentDefault(category)
}

// History returns the category's deployment ledger in commit order.
func (o *Orchestrator) History(category TemplateCategory) ([]VersionHistoryEntry, error) {
	records, err := o.history.List(category)
	if err != nil {
		return nil, err
	}
	out := make([]VersionHistoryEntry, 0, len(records))
	for i := range records {
		out = append(out, *recordToHistoryEntry(&records[i]))
	}
	return out, nil
}

// PreviewImpact assesses a hypothetical change without opening a request.
func (o *Orchestrator) PreviewImpact(category TemplateCategory, fromVersion, toVersion string) (*ImpactAssessment, error) {
	return o.assessor.Assess(category, fromVersion, toVersion)
}

// failRequest moves a request to terminal failed state and frees the slot.
func (o *Orchestrator) failRequest(ctx context.Context, record *ChangeRequestRecord, actor, reason string) {
	now := time.Now()
	record.Status = string(StatusFailed)
	record.FailureReason = reason
	record.ResolvedAt = &now
	record.ActiveSlot = nil
	if err := o.requests.Save(record); err != nil {
		o.logger.Error("failed to persist terminal failure state",
			"requestId", record.ID, "error", err)
	}

	o.audit.Record(&AuditEventRecord{
		CorrelationID: record.ID,
		EventType:     "governance.deployment.failed",
		Actor:         actor,
		Category:      record.Category,
		RequestID:     record.ID,
		VersionID:     record.ToVersion,
		Action:        "confirm",
		Outcome:       "failure",
		Reason:        reason,
	})
	o.notify(ctx, Notification{
		Kind:      "deployment_failed",
		Category:  TemplateCategory(record.Category),
		RequestID: record.ID,
		Subject:   fmt.Sprintf("Deployment of %s default change failed", record.Category),
		Body:      reason,
	})
}

// escalateRollbackFailure handles the most severe failure mode: the registry
// may point at neither clean version. The event is audited as escalated and
// the emergency contact is paged synchronously before the error is returned.
func (o *Orchestrator) escalateRollbackFailure(ctx context.Context, record *ChangeRequestRecord, actor, reason string, rollbackErr error) {
	o.failRequest(ctx, record, actor, fmt.Sprintf("%s; emergency rollback failed: %v", reason, rollbackErr))

	o.audit.Record(&AuditEventRecord{
		CorrelationID: record.ID,
		EventType:     "governance.rollback.failed",
		Actor:         "system",
		Category:      record.Category,
		RequestID:     record.ID,
		Action:        "rollback",
		Outcome:       "escalated",
		Reason:        rollbackErr.Error(),
	})

	o.logger.Error("emergency rollback failed, registry state is ambiguous",
		"category", record.Category,
		"requestId", record.ID,
		"fromVersion", record.FromVersion,
		"toVersion", record.ToVersion,
		"error", rollbackErr,
	)

	recipients := []string{}
	if o.emergencyContact.Email != "" {
		recipients = append(recipients, o.emergencyContact.Email)
	}
	if err := o.notifier.Send(ctx, Notification{
		Kind:      "emergency_rollback_failed",
		Category:  TemplateCategory(record.Category),
		RequestID: record.ID,
		Subject: fmt.Sprintf("ACTION REQUIRED: %s default registry in ambiguous state after failed rollback",
			record.Category),
		Body:       fmt.Sprintf("%s; rollback error: %v", reason, rollbackErr),
		Recipients: recipients,
	}); err != nil {
		o.logger.Error("emergency escalation notification failed", "error", err)
	}
}

// notify sends a best-effort notification; failures are logged, never propagated.
func (o *Orchestrator) notify(ctx context.Context, n Notification) {
	if err := o.notifier.Send(ctx, n); err != nil {
		o.logger.Warn("notification delivery failed",
			"kind", n.Kind, "requestId", n.RequestID, "error", err)
	}
}

// confirmationBody renders the confirmation instructions sent to the requester.
func confirmationBody(text string, warnings []string) string {
	body := "Reproduce the following text exactly to confirm the change:\n\n" + text
	for _, w := range warnings {
		body += "\nwarning: " + w
	}
	return body
}

// recordToChangeRequest converts a request record to the API type.
func recordToChangeRequest(record *ChangeRequestRecord, approvals []StakeholderApprovalRecord) *ChangeRequest {
	req := &ChangeRequest{
		ID:          record.ID,
		Category:    TemplateCategory(record.Category),
		FromVersion: record.FromVersion,
		ToVersion:   record.ToVersion,
		Reason:      record.Reason,
		Requester:   record.Requester,
		Status:      RequestStatus(record.Status),
		Impact: ImpactAssessment{
			RiskLevel:               RiskLevel(record.RiskLevel),
			BreakingChanges:         []string(record.BreakingChanges),
			UserImpactSummary:       record.UserImpactSummary,
			RollbackEstimateMinutes: record.RollbackEstimateMinutes,
			DataMigrationRequired:   record.DataMigrationRequired,
			UserTrainingRequired:    record.UserTrainingRequired,
		},
		ConfirmationText: record.ConfirmationText,
		SafetyResults:    []SafetyCheckResult(record.SafetyResults),
		Warnings:         CheckWarnings([]SafetyCheckResult(record.SafetyResults)),
		MismatchCount:    record.MismatchCount,
		FailureReason:    record.FailureReason,
		CreatedAt:        record.CreatedAt.Format(time.RFC3339),
	}
	if record.ConfirmedAt != nil {
		req.ConfirmedAt = record.ConfirmedAt.Format(time.RFC3339)
	}
	if record.DeployedAt != nil {
		req.DeployedAt = record.DeployedAt.Format(time.RFC3339)
	}
	if record.ResolvedAt != nil {
		req.ResolvedAt = record.ResolvedAt.Format(time.RFC3339)
	}

	req.Approvals = make([]StakeholderApproval, len(approvals))
	for i, a := range approvals {
		approval := StakeholderApproval{
			ID:         a.ID,
			Role:       StakeholderRole(a.Role),
			Identity:   a.Identity,
			Email:      a.Email,
			Required:   a.Required,
			Approved:   a.Approved,
			Notes:      a.Notes,
			Conditions: []string(a.Conditions),
		}
		if a.ApprovedAt != nil {
			approval.ApprovedAt = a.ApprovedAt.Format(time.RFC3339)
		}
		req.Approvals[i] = approval
	}
	return req
}

// recordToHistoryEntry converts a ledger record to the API type.
func recordToHistoryEntry(record *HistoryEntryRecord) *VersionHistoryEntry {
	return &VersionHistoryEntry{
		ID:               record.ID,
		Category:         TemplateCategory(record.Category),
		Action:           HistoryAction(record.Action),
		FromVersion:      record.FromVersion,
		ToVersion:        record.ToVersion,
		RequestID:        record.RequestID,
		ConfirmationText: record.ConfirmationText,
		ConfirmedBy:      record.ConfirmedBy,
		Approvers:        []string(record.Approvers),
		RequestedAt:      record.RequestedAt.Format(time.RFC3339),
		ConfirmedAt:      record.ConfirmedAt.Format(time.RFC3339),
		DeployedAt:       record.DeployedAt.Format(time.RFC3339),
		RollbackSafe:     record.RollbackSafe,
		SafetyResults:    []SafetyCheckResult(record.SafetyResults),
	}
}

// recordToTemplateVersion converts a version record to the API type.
func recordToTemplateVersion(record *TemplateVersionRecord) TemplateVersion {
	return TemplateVersion{
		VersionID:             record.VersionID,
		Category:              TemplateCategory(record.Category),
		Title:                 record.Title,
		Description:           record.Description,
		ChangeType:            ChangeType(record.ChangeType),
		BreakingChanges:       []string(record.BreakingChanges),
		DataMigrationRequired: record.DataMigrationRequired,
		UserTrainingRequired:  record.UserTrainingRequired,
		ValidationStatus:      record.ValidationStatus,
		PerformanceScore:      record.PerformanceScore,
		CreatedBy:             record.CreatedBy,
		CreatedAt:             record.CreatedAt.Format(time.RFC3339),
	}
}
