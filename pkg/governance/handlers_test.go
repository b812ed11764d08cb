package governance

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newTestServer wires the full API over an in-memory database.
func newTestServer(t *testing.T) (*httptest.Server, *testEnv) {
	t.Helper()
	env := newTestEnv(t)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	audit := NewAuditTrail(env.auditStore, logger)

	router := NewRouter(env.orch, env.registry, env.auditStore, audit)
	server := httptest.NewServer(router)
	t.Cleanup(server.Close)
	return server, env
}

func doJSON(t *testing.T, method, url, actor string, body any, out any) int {
	t.Helper()
	var payload io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		payload = bytes.NewReader(data)
	}
	req, err := http.NewRequest(method, url, payload)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	if actor != "" {
		req.Header.Set("X-User-Principal", actor)
	}

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	if out != nil {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
	}
	return resp.StatusCode
}

func TestAPI_FullChangeLifecycle(t *testing.T) {
	server, _ := newTestServer(t)

	// Open a request; fromVersion omitted snapshots the live default.
	var created ChangeRequest
	status := doJSON(t, http.MethodPost, server.URL+"/categories/invoice/requests", "carol",
		map[string]any{"toVersion": "inv-v2", "reason": "layout refresh"}, &created)
	require.Equal(t, http.StatusCreated, status)
	assert.Equal(t, "inv-v1", created.FromVersion)
	assert.Equal(t, StatusPendingApproval, created.Status)
	require.Len(t, created.Approvals, 2)

	// Approvals from both required roles.
	var outcome ApprovalOutcome
	status = doJSON(t, http.MethodPost, server.URL+"/requests/"+created.ID+"/approvals", "ted",
		map[string]any{"role": "technical_lead"}, &outcome)
	require.Equal(t, http.StatusOK, status)
	assert.False(t, outcome.QuorumReached)

	status = doJSON(t, http.MethodPost, server.URL+"/requests/"+created.ID+"/approvals", "dana",
		map[string]any{"role": "design_lead", "notes": "ship it"}, &outcome)
	require.Equal(t, http.StatusOK, status)
	assert.True(t, outcome.QuorumReached)
	assert.Equal(t, StatusPendingConfirmation, outcome.Status)

	// Fetch the stored confirmation text and confirm with it verbatim.
	var fetched ChangeRequest
	status = doJSON(t, http.MethodGet, server.URL+"/requests/"+created.ID, "carol", nil, &fetched)
	require.Equal(t, http.StatusOK, status)

	var entry VersionHistoryEntry
	status = doJSON(t, http.MethodPost, server.URL+"/requests/"+created.ID+"/confirm", "carol",
		map[string]any{"confirmationText": fetched.ConfirmationText}, &entry)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "inv-v2", entry.ToVersion)

	// The default moved and the ledger recorded it.
	var current CurrentDefaultResponse
	status = doJSON(t, http.MethodGet, server.URL+"/categories/invoice/default", "", nil, &current)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "inv-v2", current.VersionID)

	var history VersionHistoryList
	status = doJSON(t, http.MethodGet, server.URL+"/categories/invoice/history", "", nil, &history)
	require.Equal(t, http.StatusOK, status)
	require.Equal(t, 1, history.TotalSize)
	assert.Equal(t, created.ID, history.Entries[0].RequestID)
}

func TestAPI_ErrorStatusMapping(t *testing.T) {
	server, env := newTestServer(t)

	// Stale from-version: 409 with a structured code.
	var ge GovernanceError
	status := doJSON(t, http.MethodPost, server.URL+"/categories/invoice/requests", "carol",
		map[string]any{"fromVersion": "inv-v9", "toVersion": "inv-v2", "reason": "r"}, &ge)
	assert.Equal(t, http.StatusConflict, status)
	assert.Equal(t, CodeStaleDefaultConflict, ge.Code)

	var created ChangeRequest
	status = doJSON(t, http.MethodPost, server.URL+"/categories/invoice/requests", "carol",
		map[string]any{"toVersion": "inv-v2", "reason": "r"}, &created)
	require.Equal(t, http.StatusCreated, status)

	// Second concurrent request: 409.
	status = doJSON(t, http.MethodPost, server.URL+"/categories/invoice/requests", "dave",
		map[string]any{"toVersion": "inv-v3", "reason": "r"}, &ge)
	assert.Equal(t, http.StatusConflict, status)
	assert.Equal(t, CodeConcurrentChangeConflict, ge.Code)

	// Non-required role: 403.
	status = doJSON(t, http.MethodPost, server.URL+"/requests/"+created.ID+"/approvals", "bob",
		map[string]any{"role": "business_owner"}, &ge)
	assert.Equal(t, http.StatusForbidden, status)
	assert.Equal(t, CodeUnknownApprover, ge.Code)

	// Confirm before quorum: 409.
	status = doJSON(t, http.MethodPost, server.URL+"/requests/"+created.ID+"/confirm", "carol",
		map[string]any{"confirmationText": created.ConfirmationText}, &ge)
	assert.Equal(t, http.StatusConflict, status)
	assert.Equal(t, CodeInvalidRequestState, ge.Code)

	doJSON(t, http.MethodPost, server.URL+"/requests/"+created.ID+"/approvals", "ted",
		map[string]any{"role": "technical_lead"}, nil)
	doJSON(t, http.MethodPost, server.URL+"/requests/"+created.ID+"/approvals", "dana",
		map[string]any{"role": "design_lead"}, nil)

	// Wrong confirmation text: 409.
	status = doJSON(t, http.MethodPost, server.URL+"/requests/"+created.ID+"/confirm", "carol",
		map[string]any{"confirmationText": "yes, do it"}, &ge)
	assert.Equal(t, http.StatusConflict, status)
	assert.Equal(t, CodeConfirmationMismatch, ge.Code)

	// Blocking safety failure at confirm: 422.
	env.validator.report = &ValidationReport{Passed: false, Score: 0.95}
	status = doJSON(t, http.MethodPost, server.URL+"/requests/"+created.ID+"/confirm", "carol",
		map[string]any{"confirmationText": created.ConfirmationText}, &ge)
	assert.Equal(t, http.StatusUnprocessableEntity, status)
	assert.Equal(t, CodeSafetyCheckFailed, ge.Code)

	// Unknown request: 404.
	status = doJSON(t, http.MethodGet, server.URL+"/requests/missing", "", nil, nil)
	assert.Equal(t, http.StatusNotFound, status)

	// Unknown category: 404.
	status = doJSON(t, http.MethodGet, server.URL+"/categories/poster/default", "", nil, nil)
	assert.Equal(t, http.StatusNotFound, status)
}

func TestAPI_VersionRegistrationAndImpactPreview(t *testing.T) {
	server, _ := newTestServer(t)

	var registered TemplateVersion
	status := doJSON(t, http.MethodPost, server.URL+"/categories/receipt/versions", "carol",
		map[string]any{
			"versionId":        "rec-v1",
			"title":            "Compact receipt",
			"changeType":       "minor",
			"validationStatus": "passed",
			"performanceScore": 0.9,
		}, &registered)
	require.Equal(t, http.StatusCreated, status)
	assert.Equal(t, "rec-v1", registered.VersionID)
	assert.Equal(t, "carol", registered.CreatedBy)

	var versions TemplateVersionList
	status = doJSON(t, http.MethodGet, server.URL+"/categories/receipt/versions", "", nil, &versions)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, 1, versions.TotalSize)

	var impact ImpactAssessment
	status = doJSON(t, http.MethodGet, server.URL+"/categories/invoice/impact?from=inv-v1&to=inv-v4", "", nil, &impact)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, RiskCritical, impact.RiskLevel)

	// Missing to parameter is a 400.
	status = doJSON(t, http.MethodGet, server.URL+"/categories/invoice/impact", "", nil, nil)
	assert.Equal(t, http.StatusBadRequest, status)
}

func TestAPI_CancelAndAuditTrail(t *testing.T) {
	server, _ := newTestServer(t)

	var created ChangeRequest
	status := doJSON(t, http.MethodPost, server.URL+"/categories/invoice/requests", "carol",
		map[string]any{"toVersion": "inv-v2", "reason": "r"}, &created)
	require.Equal(t, http.StatusCreated, status)

	var cancelled ChangeRequest
	status = doJSON(t, http.MethodPost, server.URL+"/requests/"+created.ID+"/cancel", "carol",
		map[string]any{"reason": "superseded"}, &cancelled)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, StatusCancelled, cancelled.Status)

	var trail struct {
		Events    []AuditEventRecord `json:"events"`
		TotalSize int                `json:"totalSize"`
	}
	status = doJSON(t, http.MethodGet, server.URL+"/requests/"+created.ID+"/audit", "", nil, &trail)
	require.Equal(t, http.StatusOK, status)
	require.GreaterOrEqual(t, trail.TotalSize, 2)
	assert.Equal(t, "governance.request.created", trail.Events[0].EventType)
}

func TestAPI_RolesMatrix(t *testing.T) {
	server, _ := newTestServer(t)

	var matrix map[string][]string
	status := doJSON(t, http.MethodGet, server.URL+"/roles", "", nil, &matrix)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, []string{"technical_lead"}, matrix["low"])
	assert.Len(t, matrix["critical"], 4)
}
