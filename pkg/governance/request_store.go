package governance

import (
	"errors"
	"fmt"

	"gorm.io/gorm"
)

// RequestStore provides persistence for change requests and their
// stakeholder approval entries.
type RequestStore struct {
	db *gorm.DB
}

// NewRequestStore creates a new RequestStore.
func NewRequestStore(db *gorm.DB) *RequestStore {
	return &RequestStore{db: db}
}

// AutoMigrate creates or updates the request and approval tables.
func (s *RequestStore) AutoMigrate() error {
	if err := s.db.AutoMigrate(&ChangeRequestRecord{}); err != nil {
		return fmt.Errorf("auto-migrate change_requests: %w", err)
	}
	if err := s.db.AutoMigrate(&StakeholderApprovalRecord{}); err != nil {
		return fmt.Errorf("auto-migrate stakeholder_approvals: %w", err)
	}
	return nil
}

// Create inserts a change request and its approval entries in one transaction.
// The unique index on active_slot rejects a second non-terminal request for
// the same category; that violation surfaces as a ConcurrentChangeConflict.
func (s *RequestStore) Create(req *ChangeRequestRecord, approvals []StakeholderApprovalRecord) error {
	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(req).Error; err != nil {
			return err
		}
		for i := range approvals {
			if err := tx.Create(&approvals[i]).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return govErr(CodeConcurrentChangeConflict,
				"another active change request exists for category %s", req.Category)
		}
		return fmt.Errorf("create change request: %w", err)
	}
	return nil
}

// Get retrieves a change request by id together with its approval entries.
// Returns nil, nil, nil if no request exists.
func (s *RequestStore) Get(id string) (*ChangeRequestRecord, []StakeholderApprovalRecord, error) {
	var req ChangeRequestRecord
	if err := s.db.Where("id = ?", id).First(&req).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, nil
		}
		return nil, nil, fmt.Errorf("get change request: %w", err)
	}

	var approvals []StakeholderApprovalRecord
	if err := s.db.Where("request_id = ?", id).Order("created_at ASC, role ASC").Find(&approvals).Error; err != nil {
		return nil, nil, fmt.Errorf("get approval entries: %w", err)
	}
	return &req, approvals, nil
}

// ActiveForCategory returns the category's non-terminal request, if any.
// Returns nil, nil if no active request exists.
func (s *RequestStore) ActiveForCategory(category TemplateCategory) (*ChangeRequestRecord, error) {
	var req ChangeRequestRecord
	err := s.db.Where("active_slot = ?", string(category)).First(&req).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("get active request: %w", err)
	}
	return &req, nil
}

// List returns change requests, newest first. With activeOnly set, only
// non-terminal requests are returned.
func (s *RequestStore) List(activeOnly bool) ([]ChangeRequestRecord, error) {
	query := s.db.Order("created_at DESC")
	if activeOnly {
		query = query.Where("active_slot IS NOT NULL")
	}
	var records []ChangeRequestRecord
	if err := query.Find(&records).Error; err != nil {
		return nil, fmt.Errorf("list change requests: %w", err)
	}
	return records, nil
}

// Save persists the full state of a change request record.
func (s *RequestStore) Save(req *ChangeRequestRecord) error {
	if err := s.db.Save(req).Error; err != nil {
		return fmt.Errorf("save change request: %w", err)
	}
	return nil
}

// saveTx persists the full request record within an existing transaction.
func (s *RequestStore) saveTx(tx *gorm.DB, req *ChangeRequestRecord) error {
	if err := tx.Save(req).Error; err != nil {
		return fmt.Errorf("save change request: %w", err)
	}
	return nil
}

// SaveApproval persists the state of a single approval entry.
func (s *RequestStore) SaveApproval(approval *StakeholderApprovalRecord) error {
	if err := s.db.Save(approval).Error; err != nil {
		return fmt.Errorf("save approval entry: %w", err)
	}
	return nil
}

// Transaction runs fn inside a database transaction. It exists so the
// orchestrator can commit a deployment (terminal status + ledger entry)
// atomically.
func (s *RequestStore) Transaction(fn func(tx *gorm.DB) error) error {
	return s.db.Transaction(fn)
}
