package governance

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

// createRequestHandler returns a handler that opens a change request for a
// category. When fromVersion is omitted the live default is snapshotted; the
// stale-default check then guards the window between snapshot and creation.
func createRequestHandler(orch *Orchestrator) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		category := TemplateCategory(chi.URLParam(r, "category"))
		if !category.Valid() {
			writeError(w, http.StatusNotFound, fmt.Sprintf("unknown template category: %s", category))
			return
		}

		var req struct {
			FromVersion string `json:"fromVersion"`
			ToVersion   string `json:"toVersion"`
			Reason      string `json:"reason"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid request body: %v", err))
			return
		}
		if req.ToVersion == "" {
			writeError(w, http.StatusBadRequest, "toVersion is required")
			return
		}

		fromVersion := req.FromVersion
		if fromVersion == "" {
			current, err := orch.CurrentDefault(category)
			if err != nil {
				writeError(w, http.StatusInternalServerError, fmt.Sprintf("failed to read current default: %v", err))
				return
			}
			fromVersion = current
		}

		actor := extractActor(r)
		request, err := orch.RequestChange(r.Context(), category, fromVersion, req.ToVersion, req.Reason, actor)
		if err != nil {
			writeGovernanceError(w, err)
			return
		}

		writeJSON(w, http.StatusCreated, request)
	}
}

// listRequestsHandler returns a handler that lists change requests. Active
// requests only, unless ?all=true.
func listRequestsHandler(orch *Orchestrator) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		all, _ := strconv.ParseBool(r.URL.Query().Get("all"))
		requests, err := orch.ListRequests(!all)
		if err != nil {
			writeError(w, http.StatusInternalServerError, fmt.Sprintf("failed to list change requests: %v", err))
			return
		}
		writeJSON(w, http.StatusOK, ChangeRequestList{
			Requests:  requests,
			TotalSize: len(requests),
		})
	}
}

// getRequestHandler returns a handler that retrieves one change request with
// its approval entries and confirmation text.
func getRequestHandler(orch *Orchestrator) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		request, err := orch.GetRequest(chi.URLParam(r, "id"))
		if err != nil {
			writeGovernanceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, request)
	}
}

// submitApprovalHandler returns a handler that records a stakeholder approval.
func submitApprovalHandler(orch *Orchestrator) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		requestID := chi.URLParam(r, "id")

		var req struct {
			Role       StakeholderRole `json:"role"`
			Notes      string          `json:"notes"`
			Conditions []string        `json:"conditions"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid request body: %v", err))
			return
		}
		if req.Role == "" {
			writeError(w, http.StatusBadRequest, "role is required")
			return
		}

		actor := extractActor(r)
		quorum, err := orch.Approve(r.Context(), requestID, req.Role, actor, req.Notes, req.Conditions)
		if err != nil {
			writeGovernanceError(w, err)
			return
		}

		request, err := orch.GetRequest(requestID)
		if err != nil {
			writeGovernanceError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, ApprovalOutcome{
			RequestID:     requestID,
			Role:          string(req.Role),
			QuorumReached: quorum,
			Status:        request.Status,
			Warnings:      request.Warnings,
		})
	}
}

// confirmRequestHandler returns a handler that finalizes a fully approved
// change. The submitted text must match the stored confirmation text exactly.
func confirmRequestHandler(orch *Orchestrator) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		requestID := chi.URLParam(r, "id")

		var req struct {
			ConfirmationText string `json:"confirmationText"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid request body: %v", err))
			return
		}

		actor := extractActor(r)
		entry, err := orch.Confirm(r.Context(), requestID, req.ConfirmationText, actor)
		if err != nil {
			writeGovernanceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, entry)
	}
}

// cancelRequestHandler returns a handler that aborts a non-terminal request.
func cancelRequestHandler(orch *Orchestrator) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		requestID := chi.URLParam(r, "id")

		var req struct {
			Reason string `json:"reason"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid request body: %v", err))
			return
		}

		actor := extractActor(r)
		if err := orch.Cancel(r.Context(), requestID, req.Reason, actor); err != nil {
			writeGovernanceError(w, err)
			return
		}

		request, err := orch.GetRequest(requestID)
		if err != nil {
			writeGovernanceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, request)
	}
}

// getDefaultHandler returns a handler that reads a category's current default
// version pointer.
func getDefaultHandler(orch *Orchestrator) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		category := TemplateCategory(chi.URLParam(r, "category"))
		if !category.Valid() {
			writeError(w, http.StatusNotFound, fmt.Sprintf("unknown template category: %s", category))
			return
		}

		versionID, err := orch.CurrentDefault(category)
		if err != nil {
			writeError(w, http.StatusInternalServerError, fmt.Sprintf("failed to read current default: %v", err))
			return
		}
		if versionID == "" {
			writeError(w, http.StatusNotFound, fmt.Sprintf("category %s has no default version", category))
			return
		}
		writeJSON(w, http.StatusOK, CurrentDefaultResponse{
			Category:  category,
			VersionID: versionID,
		})
	}
}

// getHistoryHandler returns a handler that lists a category's deployment
// ledger in commit order.
func getHistoryHandler(orch *Orchestrator) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		category := TemplateCategory(chi.URLParam(r, "category"))
		if !category.Valid() {
			writeError(w, http.StatusNotFound, fmt.Sprintf("unknown template category: %s", category))
			return
		}

		entries, err := orch.History(category)
		if err != nil {
			writeError(w, http.StatusInternalServerError, fmt.Sprintf("failed to list history: %v", err))
			return
		}
		writeJSON(w, http.StatusOK, VersionHistoryList{
			Category:  category,
			Entries:   entries,
			TotalSize: len(entries),
		})
	}
}

// registerVersionHandler returns a handler that registers a template version
// so it can participate in governance. Version content lives elsewhere; only
// change metadata is recorded here.
func registerVersionHandler(registry *VersionRegistry, audit *AuditTrail) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		category := TemplateCategory(chi.URLParam(r, "category"))
		if !category.Valid() {
			writeError(w, http.StatusNotFound, fmt.Sprintf("unknown template category: %s", category))
			return
		}

		var req TemplateVersion
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid request body: %v", err))
			return
		}
		if req.VersionID == "" {
			writeError(w, http.StatusBadRequest, "versionId is required")
			return
		}

		actor := extractActor(r)
		record := &TemplateVersionRecord{
			ID:                    uuid.New().String(),
			VersionID:             req.VersionID,
			Category:              string(category),
			Title:                 req.Title,
			Description:           req.Description,
			ChangeType:            string(req.ChangeType),
			BreakingChanges:       JSONStringSlice(req.BreakingChanges),
			DataMigrationRequired: req.DataMigrationRequired,
			UserTrainingRequired:  req.UserTrainingRequired,
			ValidationStatus:      req.ValidationStatus,
			PerformanceScore:      req.PerformanceScore,
			CreatedBy:             actor,
		}
		if err := registry.RegisterVersion(record); err != nil {
			writeGovernanceError(w, err)
			return
		}

		audit.Record(&AuditEventRecord{
			CorrelationID: record.ID,
			EventType:     "governance.version.registered",
			Actor:         actor,
			Category:      string(category),
			VersionID:     req.VersionID,
			Action:        "registerVersion",
			Outcome:       "success",
		})

		writeJSON(w, http.StatusCreated, recordToTemplateVersion(record))
	}
}

// listVersionsHandler returns a handler that lists a category's registered
// versions, oldest first.
func listVersionsHandler(registry *VersionRegistry) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		category := TemplateCategory(chi.URLParam(r, "category"))
		if !category.Valid() {
			writeError(w, http.StatusNotFound, fmt.Sprintf("unknown template category: %s", category))
			return
		}

		records, err := registry.ListVersions(category)
		if err != nil {
			writeError(w, http.StatusInternalServerError, fmt.Sprintf("failed to list versions: %v", err))
			return
		}
		versions := make([]TemplateVersion, len(records))
		for i := range records {
			versions[i] = recordToTemplateVersion(&records[i])
		}
		writeJSON(w, http.StatusOK, TemplateVersionList{
			Category:  category,
			Versions:  versions,
			TotalSize: len(versions),
		})
	}
}

// previewImpactHandler returns a handler that assesses a hypothetical change
// without opening a request.
func previewImpactHandler(orch *Orchestrator) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		category := TemplateCategory(chi.URLParam(r, "category"))
		if !category.Valid() {
			writeError(w, http.StatusNotFound, fmt.Sprintf("unknown template category: %s", category))
			return
		}

		from := r.URL.Query().Get("from")
		to := r.URL.Query().Get("to")
		if to == "" {
			writeError(w, http.StatusBadRequest, "to query parameter is required")
			return
		}

		impact, err := orch.PreviewImpact(category, from, to)
		if err != nil {
			writeGovernanceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, impact)
	}
}

// listRolesHandler returns a handler that exposes the risk-to-roles approval
// matrix.
func listRolesHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, ApprovalMatrix())
	}
}

// listCategoryAuditHandler returns a handler that lists a category's audit
// events, newest first.
func listCategoryAuditHandler(auditStore *AuditStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		category := TemplateCategory(chi.URLParam(r, "category"))
		if !category.Valid() {
			writeError(w, http.StatusNotFound, fmt.Sprintf("unknown template category: %s", category))
			return
		}

		limit := 0
		if l := r.URL.Query().Get("limit"); l != "" {
			if v, err := strconv.Atoi(l); err == nil && v > 0 {
				limit = v
			}
		}

		records, err := auditStore.ListByCategory(category, limit)
		if err != nil {
			writeError(w, http.StatusInternalServerError, fmt.Sprintf("failed to list audit events: %v", err))
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"events":    records,
			"totalSize": len(records),
		})
	}
}

// listRequestAuditHandler returns a handler that lists the audit events
// correlated to one change request, oldest first.
func listRequestAuditHandler(auditStore *AuditStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		records, err := auditStore.ListByRequest(chi.URLParam(r, "id"))
		if err != nil {
			writeError(w, http.StatusInternalServerError, fmt.Sprintf("failed to list audit events: %v", err))
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"events":    records,
			"totalSize": len(records),
		})
	}
}

// extractActor extracts the actor from the request headers.
// Prefers X-User-Principal over X-User-Role, falls back to "system".
func extractActor(r *http.Request) string {
	if principal := r.Header.Get("X-User-Principal"); principal != "" {
		return principal
	}
	if role := r.Header.Get("X-User-Role"); role != "" {
		return role
	}
	return "system"
}

// writeGovernanceError maps governance error codes to HTTP statuses.
func writeGovernanceError(w http.ResponseWriter, err error) {
	if errors.Is(err, ErrRequestNotFound) {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}

	var ge *GovernanceError
	if errors.As(err, &ge) {
		status := http.StatusBadRequest
		switch ge.Code {
		case CodeStaleDefaultConflict, CodeConcurrentChangeConflict,
			CodeAlreadyApproved, CodeConfirmationMismatch, CodeInvalidRequestState:
			status = http.StatusConflict
		case CodeUnknownApprover:
			status = http.StatusForbidden
		case CodeSafetyCheckFailed:
			status = http.StatusUnprocessableEntity
		case CodeSwapVerificationFailed, CodeEmergencyRollbackFailed:
			status = http.StatusInternalServerError
		}
		writeJSON(w, status, ge)
		return
	}

	writeError(w, http.StatusBadRequest, err.Error())
}

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
