package governance

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// AuditStore provides append-only operations for audit event records.
type AuditStore struct {
	db *gorm.DB
}

// NewAuditStore creates a new AuditStore.
func NewAuditStore(db *gorm.DB) *AuditStore {
	return &AuditStore{db: db}
}

// AutoMigrate creates or updates the audit_events table.
func (s *AuditStore) AutoMigrate() error {
	if err := s.db.AutoMigrate(&AuditEventRecord{}); err != nil {
		return fmt.Errorf("auto-migrate audit_events: %w", err)
	}
	return nil
}

// Append creates a new immutable audit event record.
func (s *AuditStore) Append(event *AuditEventRecord) error {
	if err := s.db.Create(event).Error; err != nil {
		return fmt.Errorf("append audit event: %w", err)
	}
	return nil
}

// ListByCategory returns audit events for a category, newest first.
func (s *AuditStore) ListByCategory(category TemplateCategory, limit int) ([]AuditEventRecord, error) {
	if limit <= 0 {
		limit = 50
	}
	var records []AuditEventRecord
	err := s.db.Where("category = ?", string(category)).
		Order("created_at DESC").Limit(limit).Find(&records).Error
	if err != nil {
		return nil, fmt.Errorf("list audit events: %w", err)
	}
	return records, nil
}

// ListByRequest returns all audit events correlated to a change request,
// oldest first.
func (s *AuditStore) ListByRequest(requestID string) ([]AuditEventRecord, error) {
	var records []AuditEventRecord
	err := s.db.Where("request_id = ?", requestID).Order("created_at ASC").Find(&records).Error
	if err != nil {
		return nil, fmt.Errorf("list audit events by request: %w", err)
	}
	return records, nil
}

// DeleteOlderThan deletes audit events created before the cutoff time.
// Returns the number of deleted records.
func (s *AuditStore) DeleteOlderThan(cutoff time.Time) (int64, error) {
	result := s.db.Where("created_at < ?", cutoff).Delete(&AuditEventRecord{})
	if result.Error != nil {
		return 0, fmt.Errorf("delete old audit events: %w", result.Error)
	}
	return result.RowsAffected, nil
}

// AuditTrail records governance events. Every state transition, approval,
// confirmation mismatch, and failure produces exactly one event. Store
// failures are retried once and then logged locally with the full event
// payload, so the underlying governance event is never silently lost and the
// primary operation never fails because of audit I/O.
type AuditTrail struct {
	store  *AuditStore
	logger *slog.Logger
}

// NewAuditTrail creates an audit trail over the given store.
func NewAuditTrail(store *AuditStore, logger *slog.Logger) *AuditTrail {
	return &AuditTrail{store: store, logger: logger}
}

// Record persists an audit event, filling in the id if unset.
func (t *AuditTrail) Record(event *AuditEventRecord) {
	if event.ID == "" {
		event.ID = uuid.New().String()
	}
	err := t.store.Append(event)
	if err != nil {
		// One retry, then fall back to the local log.
		err = t.store.Append(event)
	}
	if err != nil {
		t.logger.Error("audit sink unavailable, logging event locally",
			"error", err,
			"eventType", event.EventType,
			"actor", event.Actor,
			"category", event.Category,
			"requestId", event.RequestID,
			"action", event.Action,
			"outcome", event.Outcome,
			"reason", event.Reason,
		)
	}
}
