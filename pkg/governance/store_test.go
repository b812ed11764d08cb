package governance

import (
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// newTestDB creates an in-memory SQLite DB with all governance tables migrated.
// TranslateError is on so unique-constraint violations surface as
// gorm.ErrDuplicatedKey, matching the production configuration.
func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		TranslateError: true,
		Logger:         logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, NewVersionRegistry(db).AutoMigrate())
	require.NoError(t, NewRequestStore(db).AutoMigrate())
	require.NoError(t, NewHistoryStore(db).AutoMigrate())
	require.NoError(t, NewAuditStore(db).AutoMigrate())
	return db
}

func testVersion(versionID string, category TemplateCategory, changeType ChangeType) *TemplateVersionRecord {
	return &TemplateVersionRecord{
		VersionID:        versionID,
		Category:         string(category),
		Title:            "Test template " + versionID,
		ChangeType:       string(changeType),
		ValidationStatus: "passed",
		PerformanceScore: 0.95,
		CreatedBy:        "carol",
	}
}

func TestVersionRegistry_RegisterAndGet(t *testing.T) {
	registry := NewVersionRegistry(newTestDB(t))

	require.NoError(t, registry.RegisterVersion(testVersion("inv-v1", CategoryInvoice, ChangePatch)))

	got, err := registry.GetVersion("inv-v1")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "inv-v1", got.VersionID)
	assert.Equal(t, "invoice", got.Category)
	assert.NotEmpty(t, got.ID)

	// Unknown version is nil, nil.
	got, err = registry.GetVersion("nope")
	require.NoError(t, err)
	assert.Nil(t, got)

	// Duplicate version id is rejected.
	err = registry.RegisterVersion(testVersion("inv-v1", CategoryInvoice, ChangeMinor))
	assert.Error(t, err)

	// Unknown category is rejected.
	err = registry.RegisterVersion(testVersion("x-v1", TemplateCategory("poster"), ChangePatch))
	assert.Error(t, err)
}

func TestVersionRegistry_ListVersions(t *testing.T) {
	registry := NewVersionRegistry(newTestDB(t))

	require.NoError(t, registry.RegisterVersion(testVersion("inv-v1", CategoryInvoice, ChangePatch)))
	require.NoError(t, registry.RegisterVersion(testVersion("inv-v2", CategoryInvoice, ChangeMinor)))
	require.NoError(t, registry.RegisterVersion(testVersion("est-v1", CategoryEstimate, ChangePatch)))

	invoices, err := registry.ListVersions(CategoryInvoice)
	require.NoError(t, err)
	require.Len(t, invoices, 2)

	estimates, err := registry.ListVersions(CategoryEstimate)
	require.NoError(t, err)
	require.Len(t, estimates, 1)
	assert.Equal(t, "est-v1", estimates[0].VersionID)
}

func TestVersionRegistry_SwapDefault(t *testing.T) {
	registry := NewVersionRegistry(newTestDB(t))

	seeded, err := registry.SetInitialDefault(CategoryInvoice, "inv-v1", "system")
	require.NoError(t, err)
	assert.True(t, seeded)

	// Second seed is a no-op.
	seeded, err = registry.SetInitialDefault(CategoryInvoice, "inv-v9", "system")
	require.NoError(t, err)
	assert.False(t, seeded)

	current, err := registry.CurrentDefault(CategoryInvoice)
	require.NoError(t, err)
	assert.Equal(t, "inv-v1", current)

	// Swap with matching from-version succeeds.
	swapped, err := registry.SwapDefault(CategoryInvoice, "inv-v1", "inv-v2", "dana")
	require.NoError(t, err)
	assert.True(t, swapped)

	current, err = registry.CurrentDefault(CategoryInvoice)
	require.NoError(t, err)
	assert.Equal(t, "inv-v2", current)

	// Swap with stale from-version fails without changing the pointer.
	swapped, err = registry.SwapDefault(CategoryInvoice, "inv-v1", "inv-v3", "dana")
	require.NoError(t, err)
	assert.False(t, swapped)

	current, err = registry.CurrentDefault(CategoryInvoice)
	require.NoError(t, err)
	assert.Equal(t, "inv-v2", current)
}

func TestVersionRegistry_ForceDefault(t *testing.T) {
	registry := NewVersionRegistry(newTestDB(t))

	// ForceDefault on an empty category creates the pointer.
	require.NoError(t, registry.ForceDefault(CategoryReceipt, "rec-v1", "system"))
	current, err := registry.CurrentDefault(CategoryReceipt)
	require.NoError(t, err)
	assert.Equal(t, "rec-v1", current)

	// ForceDefault ignores the current value.
	require.NoError(t, registry.ForceDefault(CategoryReceipt, "rec-v5", "system"))
	current, err = registry.CurrentDefault(CategoryReceipt)
	require.NoError(t, err)
	assert.Equal(t, "rec-v5", current)
}

func TestVersionRegistry_DefaultsAreIndependentPerCategory(t *testing.T) {
	registry := NewVersionRegistry(newTestDB(t))

	_, err := registry.SetInitialDefault(CategoryInvoice, "inv-v1", "system")
	require.NoError(t, err)
	_, err = registry.SetInitialDefault(CategoryEstimate, "est-v1", "system")
	require.NoError(t, err)

	swapped, err := registry.SwapDefault(CategoryInvoice, "inv-v1", "inv-v2", "dana")
	require.NoError(t, err)
	require.True(t, swapped)

	current, err := registry.CurrentDefault(CategoryEstimate)
	require.NoError(t, err)
	assert.Equal(t, "est-v1", current)

	current, err = registry.CurrentDefault(CategoryReceipt)
	require.NoError(t, err)
	assert.Equal(t, "", current)
}

func TestRequestStore_ActiveSlotUniqueness(t *testing.T) {
	store := NewRequestStore(newTestDB(t))

	slot := "invoice"
	first := &ChangeRequestRecord{
		ID:               "req-1",
		Category:         "invoice",
		ActiveSlot:       &slot,
		FromVersion:      "inv-v1",
		ToVersion:        "inv-v2",
		Requester:        "carol",
		Status:           string(StatusPendingApproval),
		RiskLevel:        "low",
		ConfirmationText: "text",
	}
	require.NoError(t, store.Create(first, nil))

	// A second active request for the same category violates the slot index.
	slot2 := "invoice"
	second := &ChangeRequestRecord{
		ID:               "req-2",
		Category:         "invoice",
		ActiveSlot:       &slot2,
		FromVersion:      "inv-v1",
		ToVersion:        "inv-v3",
		Requester:        "dave",
		Status:           string(StatusPendingApproval),
		RiskLevel:        "low",
		ConfirmationText: "text",
	}
	err := store.Create(second, nil)
	require.Error(t, err)
	assert.Equal(t, CodeConcurrentChangeConflict, CodeOf(err))

	// After the first request resolves, the slot frees up.
	first.Status = string(StatusCancelled)
	first.ActiveSlot = nil
	require.NoError(t, store.Save(first))
	require.NoError(t, store.Create(second, nil))

	// Different categories never collide.
	slot3 := "estimate"
	third := &ChangeRequestRecord{
		ID:               "req-3",
		Category:         "estimate",
		ActiveSlot:       &slot3,
		FromVersion:      "est-v1",
		ToVersion:        "est-v2",
		Requester:        "carol",
		Status:           string(StatusPendingApproval),
		RiskLevel:        "low",
		ConfirmationText: "text",
	}
	require.NoError(t, store.Create(third, nil))
}

func TestRequestStore_GetWithApprovals(t *testing.T) {
	store := NewRequestStore(newTestDB(t))

	slot := "invoice"
	req := &ChangeRequestRecord{
		ID:               "req-1",
		Category:         "invoice",
		ActiveSlot:       &slot,
		FromVersion:      "inv-v1",
		ToVersion:        "inv-v2",
		Requester:        "carol",
		Status:           string(StatusPendingApproval),
		RiskLevel:        "medium",
		ConfirmationText: "text",
	}
	approvals := []StakeholderApprovalRecord{
		{ID: "ap-1", RequestID: "req-1", Role: "design_lead", Identity: "dana", Required: true},
		{ID: "ap-2", RequestID: "req-1", Role: "technical_lead", Identity: "ted", Required: true},
	}
	require.NoError(t, store.Create(req, approvals))

	got, gotApprovals, err := store.Get("req-1")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "inv-v2", got.ToVersion)
	require.Len(t, gotApprovals, 2)

	// Unknown id is nil, nil, nil.
	got, gotApprovals, err = store.Get("missing")
	require.NoError(t, err)
	assert.Nil(t, got)
	assert.Nil(t, gotApprovals)

	// ActiveForCategory finds the open request.
	active, err := store.ActiveForCategory(CategoryInvoice)
	require.NoError(t, err)
	require.NotNil(t, active)
	assert.Equal(t, "req-1", active.ID)

	active, err = store.ActiveForCategory(CategoryReceipt)
	require.NoError(t, err)
	assert.Nil(t, active)
}

func TestHistoryStore_AppendAndList(t *testing.T) {
	store := NewHistoryStore(newTestDB(t))

	now := time.Now()
	for i, to := range []string{"inv-v2", "inv-v3"} {
		entry := &HistoryEntryRecord{
			ID:          string(rune('a' + i)),
			Category:    "invoice",
			Action:      string(ActionSetDefault),
			FromVersion: "inv-v1",
			ToVersion:   to,
			ConfirmedBy: "carol",
			RequestedAt: now,
			ConfirmedAt: now,
			DeployedAt:  now,
		}
		require.NoError(t, store.Append(entry))
	}

	entries, err := store.List(CategoryInvoice)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "inv-v2", entries[0].ToVersion)
	assert.Equal(t, "inv-v3", entries[1].ToVersion)

	latest, err := store.Latest(CategoryInvoice)
	require.NoError(t, err)
	require.NotNil(t, latest)

	empty, err := store.Latest(CategoryEstimate)
	require.NoError(t, err)
	assert.Nil(t, empty)
}

func TestAuditStore_ListAndRetention(t *testing.T) {
	store := NewAuditStore(newTestDB(t))

	events := []*AuditEventRecord{
		{ID: "ev-1", EventType: "governance.request.created", Actor: "carol", Category: "invoice", RequestID: "req-1", Outcome: "success"},
		{ID: "ev-2", EventType: "governance.request.approved", Actor: "ted", Category: "invoice", RequestID: "req-1", Outcome: "success"},
		{ID: "ev-3", EventType: "governance.request.created", Actor: "dana", Category: "estimate", RequestID: "req-2", Outcome: "success"},
	}
	for _, ev := range events {
		require.NoError(t, store.Append(ev))
	}

	byCategory, err := store.ListByCategory(CategoryInvoice, 0)
	require.NoError(t, err)
	assert.Len(t, byCategory, 2)

	byRequest, err := store.ListByRequest("req-1")
	require.NoError(t, err)
	require.Len(t, byRequest, 2)
	assert.Equal(t, "ev-1", byRequest[0].ID)

	// Nothing is old enough to sweep yet.
	deleted, err := store.DeleteOlderThan(time.Now().Add(-time.Hour))
	require.NoError(t, err)
	assert.Zero(t, deleted)

	deleted, err = store.DeleteOlderThan(time.Now().Add(time.Hour))
	require.NoError(t, err)
	assert.Equal(t, int64(3), deleted)
}
